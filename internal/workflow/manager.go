package workflow

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/yarlson/go-wiggum/internal/config"
	"github.com/yarlson/go-wiggum/internal/failure"
	"github.com/yarlson/go-wiggum/internal/git"
)

// Counter is the iteration counter as seen by workflow operations.
type Counter interface {
	Get() int
	Reset() error
}

// ProgressLog is the append-only event log.
type ProgressLog interface {
	Log(storyID, agent, message string) error
	Recent(n int) ([]string, error)
	Archive(archivePath string) (bool, error)
}

// CheckpointPolicy controls when human reviews and progress reports fall due.
type CheckpointPolicy struct {
	ReviewEveryStories int
	ReportEveryStories int
	ReportEvery        time.Duration
}

// DefaultCheckpointPolicy returns the built-in cadence.
func DefaultCheckpointPolicy() CheckpointPolicy {
	return CheckpointPolicy{
		ReviewEveryStories: config.DefaultReviewEveryStories,
		ReportEveryStories: config.DefaultReportEveryStories,
		ReportEvery:        time.Duration(config.DefaultProgressReportMinutes) * time.Minute,
	}
}

// DefaultTimeouts returns the per-workflow budgets stamped on new records.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		StoryMaxMinutes:        config.DefaultStoryMaxMinutes,
		IterationMaxMinutes:    config.DefaultIterationMaxMinutes,
		QuestionTimeoutMinutes: config.DefaultQuestionTimeoutMinutes,
	}
}

// ManagerDeps holds the collaborators of a Manager.
type ManagerDeps struct {
	Store      Store
	Counter    Counter
	Progress   ProgressLog
	Classifier *failure.Classifier
	Git        git.Manager

	// ArchivePath receives the progress log when the workflow completes.
	ArchivePath string

	Timeouts    Timeouts
	Checkpoints CheckpointPolicy

	Clock  func() time.Time
	Logger *slog.Logger
}

// Manager applies workflow operations against the store. Every mutation is a
// single locked load-mutate-save cycle.
type Manager struct {
	store       Store
	counter     Counter
	progress    ProgressLog
	classifier  *failure.Classifier
	git         git.Manager
	archivePath string
	timeouts    Timeouts
	policy      CheckpointPolicy
	now         func() time.Time
	logger      *slog.Logger
	newID       func() string
}

// NewManager creates a Manager. Zero-valued deps fall back to defaults.
func NewManager(deps ManagerDeps) *Manager {
	m := &Manager{
		store:       deps.Store,
		counter:     deps.Counter,
		progress:    deps.Progress,
		classifier:  deps.Classifier,
		git:         deps.Git,
		archivePath: deps.ArchivePath,
		timeouts:    deps.Timeouts,
		policy:      deps.Checkpoints,
		now:         deps.Clock,
		logger:      deps.Logger,
		newID:       newWorkflowID,
	}
	if m.classifier == nil {
		m.classifier = failure.NewClassifier(nil)
	}
	if m.timeouts == (Timeouts{}) {
		m.timeouts = DefaultTimeouts()
	}
	if m.policy == (CheckpointPolicy{}) {
		m.policy = DefaultCheckpointPolicy()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return m
}

// Store returns the underlying store.
func (m *Manager) Store() Store {
	return m.store
}

// Load returns the current record.
func (m *Manager) Load() (*Record, error) {
	return m.store.Load()
}

func (m *Manager) update(ctx context.Context, fn func(rec *Record) error) (*Record, error) {
	return m.store.Update(ctx, fn)
}

func (m *Manager) iteration() int {
	if m.counter == nil {
		return 0
	}
	return m.counter.Get()
}

func (m *Manager) resetIterations() {
	if m.counter == nil {
		return
	}
	if err := m.counter.Reset(); err != nil {
		m.logger.Warn("failed to reset iteration counter", "error", err)
	}
}

func (m *Manager) stamp() time.Time {
	return m.now().UTC()
}

// logProgress appends to the progress log. Failures are logged, not returned.
func (m *Manager) logProgress(storyID, agent, message string) {
	if m.progress == nil {
		return
	}
	if err := m.progress.Log(storyID, agent, message); err != nil {
		m.logger.Warn("failed to write progress log", "error", err)
	}
}

func storyOf(rec *Record, id string) (*Story, error) {
	s := rec.Story(id)
	if s == nil {
		return nil, &NotFoundError{ID: id}
	}
	return s, nil
}
