// Package state manages the .wiggum directory structure and the iteration counter.
package state

import (
	"fmt"
	"os"
	"path/filepath"
)

// File names inside the state directory.
const (
	StateFile           = "workflow-state.json"
	IterationFile       = ".iteration-count"
	ProgressFile        = "progress.txt"
	ProgressArchiveFile = "progress.old"
)

// Layout resolves every storage path from an explicit project root, so the
// caller's working directory never matters.
type Layout struct {
	root string
	dir  string
}

// NewLayout returns the layout for root. A relative dir is resolved against
// root; an absolute dir is used as is.
func NewLayout(root, dir string) Layout {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return Layout{root: root, dir: dir}
}

// Root returns the project root.
func (l Layout) Root() string {
	return l.root
}

// Dir returns the state directory.
func (l Layout) Dir() string {
	return l.dir
}

// StatePath returns the path to the workflow state document.
func (l Layout) StatePath() string {
	return filepath.Join(l.dir, StateFile)
}

// IterationPath returns the path to the iteration counter file.
func (l Layout) IterationPath() string {
	return filepath.Join(l.dir, IterationFile)
}

// ProgressPath returns the path to the progress log.
func (l Layout) ProgressPath() string {
	return filepath.Join(l.dir, ProgressFile)
}

// ProgressArchivePath returns the path the progress log is archived to on completion.
func (l Layout) ProgressArchivePath() string {
	return filepath.Join(l.dir, ProgressArchiveFile)
}

// EnsureDir creates the state directory if it doesn't exist.
// The function is idempotent - calling it multiple times is safe.
func (l Layout) EnsureDir() error {
	if _, err := os.Stat(l.root); os.IsNotExist(err) {
		return fmt.Errorf("root directory does not exist: %s", l.root)
	}

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", l.dir, err)
	}

	return nil
}
