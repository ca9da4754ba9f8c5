package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/flock"
)

// DefaultLockTimeout bounds how long a store waits for the state-file lock.
const DefaultLockTimeout = 10 * time.Second

// errLockBusy signals that another process holds the lock.
var errLockBusy = errors.New("state file is locked by another process")

// Store defines persistence for the single workflow record.
// This interface is defined at the consumer level following Go idioms.
type Store interface {
	// Load returns the current record.
	// Returns ErrNoWorkflow if none exists or it cannot be parsed.
	Load() (*Record, error)

	// Save persists rec. The stored version must equal rec.Version,
	// otherwise ErrStaleWrite is returned and nothing is written.
	Save(rec *Record) error

	// Update loads the record, applies fn and saves it while holding the lock.
	// fn returning an error aborts without saving.
	Update(ctx context.Context, fn func(rec *Record) error) (*Record, error)

	// Replace is Update for callers that may create the record: fn receives
	// the current record (nil when absent) and returns the record to store.
	Replace(ctx context.Context, fn func(current *Record) (*Record, error)) (*Record, error)
}

// FileStore implements Store as a JSON document guarded by an flock.
type FileStore struct {
	path        string
	lockTimeout time.Duration
	now         func() time.Time
	iterations  func() int
	logger      *slog.Logger
}

// NewFileStore creates a FileStore that persists the record at path.
// The parent directory is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:        path,
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
		iterations:  func() int { return 0 },
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetClock sets the clock used to stamp LastUpdated.
func (s *FileStore) SetClock(now func() time.Time) {
	s.now = now
}

// SetIterationSource sets the function whose value is snapshotted into
// TotalIterations on every save.
func (s *FileStore) SetIterationSource(fn func() int) {
	s.iterations = fn
}

// SetLockTimeout sets how long to wait for the state-file lock.
func (s *FileStore) SetLockTimeout(d time.Duration) {
	if d > 0 {
		s.lockTimeout = d
	}
}

// SetLogger sets the logger.
func (s *FileStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Path returns the state document path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the record from disk.
func (s *FileStore) Load() (*Record, error) {
	return s.read()
}

// Save persists rec under the lock.
func (s *FileStore) Save(rec *Record) error {
	unlock, err := s.lock(context.Background())
	if err != nil {
		return err
	}
	defer unlock()

	return s.saveLocked(rec)
}

// Update performs lock, load, fn, save as one unit.
func (s *FileStore) Update(ctx context.Context, fn func(rec *Record) error) (*Record, error) {
	return s.Replace(ctx, func(current *Record) (*Record, error) {
		if current == nil {
			return nil, ErrNoWorkflow
		}
		if err := fn(current); err != nil {
			return nil, err
		}
		return current, nil
	})
}

// Replace performs lock, load, fn, save as one unit. The returned record is
// saved against the version that was loaded.
func (s *FileStore) Replace(ctx context.Context, fn func(current *Record) (*Record, error)) (*Record, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.read()
	if err != nil && !errors.Is(err, ErrNoWorkflow) {
		return nil, err
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return current, nil
	}

	// next may alias current, so read the loaded version first.
	version := 0
	if current != nil {
		version = current.Version
	}
	next.Version = version
	if err := s.saveLocked(next); err != nil {
		return nil, err
	}
	return next, nil
}

// read loads the document. Missing or malformed documents mean no workflow.
func (s *FileStore) read() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoWorkflow
		}
		s.logger.Warn("failed to read workflow state", "path", s.path, "error", err)
		return nil, ErrNoWorkflow
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("ignoring malformed workflow state", "path", s.path, "error", err)
		return nil, ErrNoWorkflow
	}
	return &rec, nil
}

// saveLocked checks the version, stamps and writes rec. Caller must hold the lock.
func (s *FileStore) saveLocked(rec *Record) error {
	if stored, err := s.read(); err == nil && stored.Version != rec.Version {
		return &StaleWriteError{Expected: rec.Version, Actual: stored.Version}
	}

	prevVersion, prevUpdated, prevIterations := rec.Version, rec.LastUpdated, rec.TotalIterations
	rec.Version++
	rec.LastUpdated = s.now().UTC()
	rec.TotalIterations = s.iterations()

	if err := s.write(rec); err != nil {
		rec.Version, rec.LastUpdated, rec.TotalIterations = prevVersion, prevUpdated, prevIterations
		return err
	}
	s.logger.Debug("saved workflow state", "path", s.path, "version", rec.Version)
	return nil
}

// write writes rec to disk using atomic write.
func (s *FileStore) write(rec *Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow state: %w", err)
	}

	// Atomic write: write to temp file, then rename
	tmpFile := s.path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, s.path); err != nil {
		// Clean up temp file on rename failure
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// lock acquires the exclusive state-file lock, retrying with backoff until
// the lock timeout elapses.
func (s *FileStore) lock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	fl := flock.New(s.path + ".lock")

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = s.lockTimeout

	err := backoff.Retry(func() error {
		locked, err := fl.TryLock()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !locked {
			return errLockBusy
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to lock workflow state: %w", err)
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("failed to release state lock", "path", fl.Path(), "error", err)
		}
	}, nil
}

// Ensure FileStore implements Store interface.
var _ Store = (*FileStore)(nil)
