// Package git wraps the few git operations used to checkpoint and roll back
// a workflow's working tree.
package git

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common Git failures.
var (
	// ErrNotAGitRepo indicates the directory is not a git repository.
	ErrNotAGitRepo = errors.New("not a git repository")

	// ErrNoCommits indicates the repository has no commits yet.
	ErrNoCommits = errors.New("repository has no commits")

	// ErrTimeout indicates the git command exceeded its deadline.
	ErrTimeout = errors.New("git command timed out")
)

// GitError represents a Git command error with additional context.
type GitError struct {
	// Command is the git command that failed.
	Command string
	// Output is the stderr output from the command.
	Output string
	// Err is the underlying error (typically a sentinel error).
	Err error
}

// Error returns a formatted error message.
func (e *GitError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("git command %q failed: %s", e.Command, e.Output)
	}
	return fmt.Sprintf("git command %q failed: %v", e.Command, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *GitError) Unwrap() error {
	return e.Err
}

// Manager defines the git operations needed for working-state checkpoints.
type Manager interface {
	// CurrentCommit returns the current HEAD commit hash.
	CurrentCommit(ctx context.Context) (string, error)

	// Stash stashes uncommitted changes with the given message.
	// A clean tree is not an error.
	Stash(ctx context.Context, message string) error

	// ResetHard resets the working tree and index to ref.
	ResetHard(ctx context.Context, ref string) error
}
