package memory

import (
	"errors"
	"fmt"
	"os"
)

// Archive moves the progress log to archivePath, replacing any earlier archive.
// It returns false without error when there is no progress log to archive.
func (p *ProgressLog) Archive(archivePath string) (bool, error) {
	if _, err := os.Stat(p.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	if err := os.Rename(p.path, archivePath); err != nil {
		return false, fmt.Errorf("archiving progress file: %w", err)
	}

	return true, nil
}
