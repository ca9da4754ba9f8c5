package workflow

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarlson/go-wiggum/internal/failure"
	"github.com/yarlson/go-wiggum/internal/memory"
	"github.com/yarlson/go-wiggum/internal/state"
)

// testClock is a settable clock.
type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time           { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	dir      string
	store    *FileStore
	counter  *state.Counter
	progress *memory.ProgressLog
	clock    *testClock
	git      *fakeGit
	mgr      *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	layout := state.NewLayout(dir, ".wiggum")
	clock := &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}

	counter := state.NewCounter(layout.IterationPath())
	store := NewFileStore(layout.StatePath())
	store.SetClock(clock.Now)
	store.SetIterationSource(counter.Get)

	progress := memory.NewProgressLog(layout.ProgressPath())
	progress.SetClock(clock.Now)

	g := &fakeGit{head: "0123456789abcdef0123456789abcdef01234567"}

	mgr := NewManager(ManagerDeps{
		Store:       store,
		Counter:     counter,
		Progress:    progress,
		Git:         g,
		ArchivePath: layout.ProgressArchivePath(),
		Clock:       clock.Now,
	})
	return &fixture{dir: dir, store: store, counter: counter, progress: progress, clock: clock, git: g, mgr: mgr}
}

func (f *fixture) init(t *testing.T, goal string) *Record {
	t.Helper()
	rec, _, err := f.mgr.Init(context.Background(), goal, "sess-1")
	require.NoError(t, err)
	return rec
}

func (f *fixture) load(t *testing.T) *Record {
	t.Helper()
	rec, err := f.store.Load()
	require.NoError(t, err)
	return rec
}

type fakeGit struct {
	head     string
	stashed  []string
	resetTo  string
	headErr  error
	resetErr error
}

func (g *fakeGit) CurrentCommit(ctx context.Context) (string, error) { return g.head, g.headErr }
func (g *fakeGit) Stash(ctx context.Context, message string) error {
	g.stashed = append(g.stashed, message)
	return nil
}
func (g *fakeGit) ResetHard(ctx context.Context, ref string) error {
	g.resetTo = ref
	return g.resetErr
}

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a new workflow", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.counter.Increment()
		require.NoError(t, err)

		rec, resumed, err := f.mgr.Init(ctx, "Add login", "")
		require.NoError(t, err)
		assert.False(t, resumed)
		assert.Len(t, rec.WorkflowID, 8)
		assert.Equal(t, "unknown", rec.SessionID)
		assert.Equal(t, StatusInProgress, rec.Status)
		assert.Equal(t, "analysis", rec.CurrentPhase)
		assert.Equal(t, "orchestrator", rec.CurrentAgent)
		assert.Equal(t, 30, rec.Timeouts.StoryMaxMinutes)
		assert.Equal(t, 0, f.counter.Get(), "new workflow resets iterations")
		assert.Contains(t, rec.Metrics.FailuresByCategory, failure.CategoryTimeout)
	})

	t.Run("resumes an in-progress workflow", func(t *testing.T) {
		f := newFixture(t)
		first := f.init(t, "Add login")
		_, err := f.mgr.AddStory(ctx, StoryInput{Title: "Form"})
		require.NoError(t, err)

		rec, resumed, err := f.mgr.Init(ctx, "Something else", "sess-2")
		require.NoError(t, err)
		assert.True(t, resumed)
		assert.Equal(t, first.WorkflowID, rec.WorkflowID)
		assert.Equal(t, "Add login", rec.Goal)
		assert.Equal(t, "sess-2", rec.SessionID)
		assert.Len(t, rec.Stories, 1)
	})

	t.Run("replaces a completed workflow", func(t *testing.T) {
		f := newFixture(t)
		f.init(t, "Old goal")
		_, err := f.mgr.Complete(ctx)
		require.NoError(t, err)

		rec, resumed, err := f.mgr.Init(ctx, "New goal", "")
		require.NoError(t, err)
		assert.False(t, resumed)
		assert.Equal(t, "New goal", rec.Goal)
		assert.Empty(t, rec.Stories)
		assert.Equal(t, StatusInProgress, rec.Status)
	})

	t.Run("empty goal", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.mgr.Init(ctx, "  ", "")
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	})
}

func TestInit_ThenMutate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rec := f.init(t, "Add login")
	assert.Equal(t, 1, rec.Version)

	id, err := f.mgr.AddStory(ctx, StoryInput{Title: "Implement login form"})
	require.NoError(t, err)
	assert.Equal(t, "S1", id)

	_, err = f.mgr.UpdateStoryStatus(ctx, id, StoryInProgress, "dev")
	require.NoError(t, err)

	cur := f.load(t)
	assert.Equal(t, 3, cur.Version)
	require.Len(t, cur.Stories, 1)
	assert.Equal(t, StoryInProgress, cur.Stories[0].Status)
	assert.Equal(t, 1, cur.Stories[0].Attempts)
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.init(t, "Ship it")
	_, err := f.counter.Increment()
	require.NoError(t, err)

	f.clock.Advance(90 * time.Minute)
	rec, err := f.mgr.Complete(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)
	require.NotNil(t, rec.CompletedAt)
	assert.Equal(t, 0, f.counter.Get())
	assert.False(t, f.progress.Exists(), "progress log archived")

	archived := memory.NewProgressLog(filepath.Join(f.dir, ".wiggum", state.ProgressArchiveFile))
	lines, err := archived.Recent(5)
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[len(lines)-1], "WORKFLOW COMPLETED - 0/0 stories in 1h 30m")
}

func TestComplete_NoWorkflow(t *testing.T) {
	f := newFixture(t)
	_, err := f.mgr.Complete(context.Background())
	assert.ErrorIs(t, err, ErrNoWorkflow)
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "0m", FormatElapsed(0))
	assert.Equal(t, "0m", FormatElapsed(-time.Minute))
	assert.Equal(t, "59m", FormatElapsed(59*time.Minute+59*time.Second))
	assert.Equal(t, "2h 5m", FormatElapsed(125*time.Minute))
}

func TestElapsedMinutes(t *testing.T) {
	f := newFixture(t)
	f.init(t, "goal")
	f.clock.Advance(12*time.Minute + 30*time.Second)

	mins, err := f.mgr.ElapsedMinutes()
	require.NoError(t, err)
	assert.InDelta(t, 12.5, mins, 0.001)
}

func TestSummaryAndRecovery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.init(t, "Add login")
	_, err := f.mgr.AddStory(ctx, StoryInput{Title: "Form"})
	require.NoError(t, err)
	_, err = f.mgr.AddStory(ctx, StoryInput{Title: "API"})
	require.NoError(t, err)
	_, err = f.mgr.UpdateStoryStatus(ctx, "S1", StoryInProgress, "dev")
	require.NoError(t, err)
	_, err = f.mgr.AddBlocker(ctx, "DB down", SeverityHigh)
	require.NoError(t, err)

	sum, err := f.mgr.Summary()
	require.NoError(t, err)
	assert.Equal(t, "Add login", sum.Goal)
	assert.Equal(t, StatusBlocked, sum.Status)
	require.NotNil(t, sum.CurrentStory)
	assert.Equal(t, "S1", sum.CurrentStory.ID)
	assert.Equal(t, 2, sum.Progress.Total)
	assert.Equal(t, 1, sum.Progress.InProgress)
	assert.Equal(t, 1, sum.Progress.Pending)
	assert.Len(t, sum.Blockers, 1)

	info, err := f.mgr.RecoveryInfo()
	require.NoError(t, err)
	assert.True(t, info.HasActiveWorkflow)
	require.NotNil(t, info.CurrentStory)
	require.NotNil(t, info.CurrentStory.Verification)
	assert.NotEmpty(t, info.RecentProgress)

	text, err := f.mgr.CompactContext()
	require.NoError(t, err)
	assert.Contains(t, text, "Goal: Add login")
	assert.Contains(t, text, "Progress: 0/2 (0%)")
	assert.Contains(t, text, "CURRENT: [S1] Form")
	assert.Contains(t, text, "Checks: testsPass=N, coverageMet=N, reviewApproved=N, securityCleared=Y")
	assert.Contains(t, text, "  - [high] DB down")
}

func TestRecoveryInfo_NoWorkflow(t *testing.T) {
	f := newFixture(t)

	info, err := f.mgr.RecoveryInfo()
	require.NoError(t, err)
	assert.False(t, info.HasActiveWorkflow)
	assert.Empty(t, info.RecentProgress)

	text, err := f.mgr.CompactContext()
	require.NoError(t, err)
	assert.Equal(t, "No active workflow", text)

	_, err = f.mgr.Summary()
	assert.ErrorIs(t, err, ErrNoWorkflow)
}

func TestResumeContext(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.init(t, "goal")
	for i := 0; i < 7; i++ {
		require.NoError(t, f.mgr.AddClarification(ctx, "q", "a", "analysis", "scope"))
	}
	_, err := f.mgr.AddBlocker(ctx, "needs key", SeverityMedium)
	require.NoError(t, err)
	_, err = f.store.Update(ctx, func(rec *Record) error {
		now := f.clock.Now()
		rec.Blockers[0].Resolved = true
		rec.Blockers[0].ResolvedAt = &now
		rec.Blockers[0].ResolvedBy = ResolvedByUser
		return nil
	})
	require.NoError(t, err)

	rc, err := f.mgr.ResumeContext()
	require.NoError(t, err)
	assert.Len(t, rc.Clarifications, 5)
	require.Len(t, rc.RecentlyResolvedBlockers, 1)
	assert.Equal(t, "needs key", rc.RecentlyResolvedBlockers[0].Description)
	assert.Nil(t, rc.CurrentStory)
	assert.Len(t, rc.ResumeInstructions, 4)
}
