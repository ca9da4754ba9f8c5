package intervention

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarlson/go-wiggum/internal/verifier"
	"github.com/yarlson/go-wiggum/internal/workflow"
)

type fakeRunner struct {
	result   verifier.Result
	commands []string
}

func (r *fakeRunner) Run(ctx context.Context, command string) verifier.Result {
	r.commands = append(r.commands, command)
	res := r.result
	res.Command = command
	return res
}

type recordingProgress struct {
	lines []string
}

func (p *recordingProgress) Log(storyID, agent, message string) error {
	p.lines = append(p.lines, message)
	return nil
}

type gateFixture struct {
	store    *workflow.FileStore
	runner   *fakeRunner
	progress *recordingProgress
	now      time.Time
	gate     *Gate
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	f := &gateFixture{
		store:    workflow.NewFileStore(filepath.Join(t.TempDir(), "workflow-state.json")),
		runner:   &fakeRunner{result: verifier.Result{Passed: true}},
		progress: &recordingProgress{},
		now:      time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	f.gate = NewGate(GateDeps{
		Store:    f.store,
		Runner:   f.runner,
		Progress: f.progress,
		Clock:    func() time.Time { return f.now },
	})
	require.NoError(t, f.store.Save(&workflow.Record{
		Status: workflow.StatusBlocked,
		Blockers: []workflow.Blocker{
			{Description: "Missing STRIPE_KEY", Severity: workflow.SeverityHigh},
		},
	}))
	return f
}

func (f *gateFixture) load(t *testing.T) *workflow.Record {
	t.Helper()
	rec, err := f.store.Load()
	require.NoError(t, err)
	return rec
}

func TestRequestUserFix(t *testing.T) {
	ctx := context.Background()
	f := newGateFixture(t)

	ins, err := f.gate.RequestUserFix(ctx, Request{BlockerIndex: 0, Description: "Add STRIPE_KEY to .env", CheckCommand: "make check-env"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusAwaitingUser, ins.Status)
	assert.Equal(t, "2. Run verification: make check-env", ins.Instructions[1])
	assert.Contains(t, ins.Instructions[2], ResumeCommand)

	rec := f.load(t)
	assert.Equal(t, workflow.StatusAwaitingUser, rec.Status)
	require.NotNil(t, rec.UserIntervention)
	assert.Equal(t, 60, rec.UserIntervention.TimeoutMinutes)
	assert.True(t, rec.Blockers[0].AwaitingUserFix)
	assert.Equal(t, "make check-env", rec.Blockers[0].CheckCommand)
	assert.Contains(t, f.progress.lines, "AWAITING USER: Add STRIPE_KEY to .env")
}

func TestRequestUserFix_OutOfRangeBlocker(t *testing.T) {
	f := newGateFixture(t)
	ins, err := f.gate.RequestUserFix(context.Background(), Request{BlockerIndex: 5, Description: "x", TimeoutMinutes: 15})
	require.NoError(t, err)
	assert.Equal(t, "2. Verify your fix manually", ins.Instructions[1])

	rec := f.load(t)
	assert.Equal(t, 15, rec.UserIntervention.TimeoutMinutes)
	assert.False(t, rec.Blockers[0].AwaitingUserFix)
}

func TestCheckUserFix_NoIntervention(t *testing.T) {
	f := newGateFixture(t)
	res, err := f.gate.CheckUserFix(context.Background())
	require.NoError(t, err)
	assert.True(t, res.IsFixed)
	assert.True(t, res.CanResume)
	assert.Equal(t, "No intervention pending", res.Details)
}

func TestCheckUserFix_WaitingThenTimedOut(t *testing.T) {
	ctx := context.Background()
	f := newGateFixture(t)
	_, err := f.gate.RequestUserFix(ctx, Request{BlockerIndex: 0, Description: "x", TimeoutMinutes: 60})
	require.NoError(t, err)

	f.now = f.now.Add(20 * time.Minute)
	res, err := f.gate.CheckUserFix(ctx)
	require.NoError(t, err)
	assert.False(t, res.CanResume)
	assert.False(t, res.TimedOut)
	assert.InDelta(t, 20.0, res.WaitingMinutes, 0.01)
	assert.Equal(t, 60, res.TimeoutMinutes)
	assert.Equal(t, "Waiting for user fix (20/60 minutes)", res.Details)

	f.now = f.now.Add(40 * time.Minute)
	res, err = f.gate.CheckUserFix(ctx)
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.True(t, res.Escalate)
	assert.False(t, res.CanResume)
	assert.Empty(t, f.runner.commands)
}

func TestSignalAndCheck_WithCommand(t *testing.T) {
	ctx := context.Background()
	f := newGateFixture(t)
	_, err := f.gate.RequestUserFix(ctx, Request{BlockerIndex: 0, Description: "x", CheckCommand: "make check"})
	require.NoError(t, err)

	sig, err := f.gate.SignalFixComplete(ctx, "added key")
	require.NoError(t, err)
	assert.Equal(t, "resumed", sig.Status)
	require.NotNil(t, sig.Intervention.CompletedAt)

	rec := f.load(t)
	assert.Equal(t, workflow.StatusInProgress, rec.Status)
	assert.True(t, rec.Blockers[0].Resolved)
	assert.Equal(t, workflow.ResolvedByUser, rec.Blockers[0].ResolvedBy)
	assert.Equal(t, "added key", rec.UserIntervention.Notes)

	f.runner.result = verifier.Result{Passed: false, ExitCode: 2, Stdout: "out", Stderr: "missing key"}
	res, err := f.gate.CheckUserFix(ctx)
	require.NoError(t, err)
	assert.True(t, res.IsFixed)
	require.NotNil(t, res.Verified)
	assert.False(t, *res.Verified)
	assert.False(t, res.CanResume)
	assert.Equal(t, "Verification failed: make check", res.Details)
	assert.Equal(t, "missing key", res.Error)
	assert.NotNil(t, f.load(t).UserIntervention, "failed check keeps the intervention")

	f.runner.result = verifier.Result{Passed: true}
	res, err = f.gate.CheckUserFix(ctx)
	require.NoError(t, err)
	assert.True(t, res.CanResume)
	assert.Equal(t, "Verification passed: make check", res.Details)
	assert.Nil(t, f.load(t).UserIntervention, "verified fix clears the intervention")
	assert.Equal(t, []string{"make check", "make check"}, f.runner.commands)
}

func TestSignalAndCheck_CommandTimesOut(t *testing.T) {
	ctx := context.Background()
	f := newGateFixture(t)
	_, err := f.gate.RequestUserFix(ctx, Request{BlockerIndex: 0, Description: "x", CheckCommand: "sleep 999"})
	require.NoError(t, err)
	_, err = f.gate.SignalFixComplete(ctx, "")
	require.NoError(t, err)

	f.runner.result = verifier.Result{TimedOut: true, ExitCode: -1}
	res, err := f.gate.CheckUserFix(ctx)
	require.NoError(t, err)
	assert.False(t, res.CanResume)
	assert.Equal(t, "Verification command timed out", res.Details)
}

func TestSignalAndCheck_NoCommand(t *testing.T) {
	ctx := context.Background()
	f := newGateFixture(t)
	_, err := f.gate.RequestUserFix(ctx, Request{BlockerIndex: 0, Description: "x"})
	require.NoError(t, err)
	_, err = f.gate.SignalFixComplete(ctx, "")
	require.NoError(t, err)

	res, err := f.gate.CheckUserFix(ctx)
	require.NoError(t, err)
	assert.True(t, res.CanResume)
	assert.Equal(t, "User signaled fix complete (no verification command)", res.Details)
	assert.Empty(t, f.runner.commands)
}

func TestSignalFixComplete_NothingPending(t *testing.T) {
	f := newGateFixture(t)
	_, err := f.gate.SignalFixComplete(context.Background(), "")
	assert.ErrorIs(t, err, workflow.ErrNoIntervention)
}

func TestCheckUserFix_NoWorkflow(t *testing.T) {
	g := NewGate(GateDeps{Store: workflow.NewFileStore(filepath.Join(t.TempDir(), "s.json"))})
	_, err := g.CheckUserFix(context.Background())
	assert.ErrorIs(t, err, workflow.ErrNoWorkflow)
}

func TestPauseMessage(t *testing.T) {
	msg := PauseMessage("Install docker", "docker info")
	assert.Contains(t, msg, "WORKFLOW PAUSED - USER ACTION REQUIRED")
	assert.Contains(t, msg, "Issue: Install docker")
	assert.Contains(t, msg, "Verification command: docker info")
	assert.Contains(t, msg, "2. Verify your fix: docker info")
	assert.Contains(t, msg, "3. Run: "+ResumeCommand)

	msg = PauseMessage("", "")
	assert.Contains(t, msg, "Issue: Manual intervention needed")
	assert.Contains(t, msg, "2. Test your fix manually")
	assert.NotContains(t, msg, "Verification command:")
}
