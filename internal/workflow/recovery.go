package workflow

import (
	"context"
	"errors"
	"fmt"
)

// rollbackStashMessage labels the stash made before a rollback.
const rollbackStashMessage = "Pre-rollback stash"

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}

// MarkWorkingState records HEAD as the last known-good commit.
func (m *Manager) MarkWorkingState(ctx context.Context) (string, error) {
	if m.git == nil {
		return "", errors.New("git is not configured")
	}
	sha, err := m.git.CurrentCommit(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}

	_, err = m.update(ctx, func(rec *Record) error {
		now := m.stamp()
		rec.LastWorkingCommit = sha
		rec.LastWorkingAt = &now
		return nil
	})
	if err != nil {
		return "", err
	}

	m.logProgress("", "", "Marked working state: "+shortSHA(sha))
	return sha, nil
}

// RollbackToCheckpoint stashes local changes and hard-resets to the last
// known-good commit. It returns that commit.
func (m *Manager) RollbackToCheckpoint(ctx context.Context) (string, error) {
	if m.git == nil {
		return "", errors.New("git is not configured")
	}
	rec, err := m.store.Load()
	if err != nil {
		return "", err
	}
	if rec.LastWorkingCommit == "" {
		return "", ErrNoWorkingCommit
	}

	if err := m.git.Stash(ctx, rollbackStashMessage); err != nil {
		m.logger.Warn("pre-rollback stash failed", "error", err)
	}
	if err := m.git.ResetHard(ctx, rec.LastWorkingCommit); err != nil {
		return "", fmt.Errorf("failed to reset to %s: %w", shortSHA(rec.LastWorkingCommit), err)
	}

	m.logProgress("", "", "Rolled back to checkpoint: "+shortSHA(rec.LastWorkingCommit))
	return rec.LastWorkingCommit, nil
}
