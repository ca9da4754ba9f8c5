package intervention

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yarlson/go-wiggum/internal/workflow"
)

// ErrWaitTimeout is returned when the user does not signal in time.
var ErrWaitTimeout = errors.New("timed out waiting for user fix")

// pollInterval re-reads the state when filesystem events are missed.
const pollInterval = 5 * time.Second

// signaled reports whether the user has signaled or the intervention is gone.
func signaled(store workflow.Store) (bool, error) {
	rec, err := store.Load()
	if err != nil {
		return false, err
	}
	iv := rec.UserIntervention
	return iv == nil || iv.CompletedAt != nil, nil
}

// WaitForSignal blocks until the state document records the user's fix,
// watching statePath's directory for writes. A zero timeout waits until ctx
// is done.
func WaitForSignal(ctx context.Context, store workflow.Store, statePath string, timeout time.Duration) error {
	if done, err := signaled(store); err != nil || done {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// The store replaces the file by rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(statePath)); err != nil {
		return fmt.Errorf("failed to watch state directory: %w", err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	target := filepath.Clean(statePath)
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrWaitTimeout
			}
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
				continue
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			return fmt.Errorf("watch error: %w", err)
		case <-ticker.C:
		}

		if done, err := signaled(store); err != nil || done {
			return err
		}
	}
}
