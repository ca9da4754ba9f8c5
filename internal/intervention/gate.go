// Package intervention implements the pause/resume protocol for fixes that
// only a human can make.
package intervention

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/yarlson/go-wiggum/internal/config"
	"github.com/yarlson/go-wiggum/internal/verifier"
	"github.com/yarlson/go-wiggum/internal/workflow"
)

// ResumeCommand is what the user runs after fixing the issue.
const ResumeCommand = "wiggum user-fix-complete"

// Progress receives progress log events.
type Progress interface {
	Log(storyID, agent, message string) error
}

// GateDeps holds the collaborators of a Gate.
type GateDeps struct {
	Store    workflow.Store
	Runner   verifier.Runner
	Progress Progress
	Clock    func() time.Time
	Logger   *slog.Logger

	// DefaultTimeout applies when a request does not set one.
	DefaultTimeout time.Duration
}

// Gate implements the user intervention protocol on top of the blocker list.
type Gate struct {
	store          workflow.Store
	runner         verifier.Runner
	progress       Progress
	now            func() time.Time
	logger         *slog.Logger
	defaultTimeout time.Duration
}

// NewGate creates a Gate.
func NewGate(deps GateDeps) *Gate {
	g := &Gate{
		store:          deps.Store,
		runner:         deps.Runner,
		progress:       deps.Progress,
		now:            deps.Clock,
		logger:         deps.Logger,
		defaultTimeout: deps.DefaultTimeout,
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.logger == nil {
		g.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if g.defaultTimeout <= 0 {
		g.defaultTimeout = time.Duration(config.DefaultInterventionMinutes) * time.Minute
	}
	return g
}

// Request describes a fix the user must make.
type Request struct {
	BlockerIndex   int
	Description    string
	CheckCommand   string
	TimeoutMinutes int
}

// Instructions tells the user how to fix and resume.
type Instructions struct {
	Status       workflow.Status `json:"status"`
	Description  string          `json:"description"`
	CheckCommand string          `json:"checkCommand,omitempty"`
	Instructions []string        `json:"instructions"`
}

// RequestUserFix pauses the workflow until the user signals a fix.
func (g *Gate) RequestUserFix(ctx context.Context, req Request) (*Instructions, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, errors.New("description is required")
	}
	timeout := req.TimeoutMinutes
	if timeout <= 0 {
		timeout = int(g.defaultTimeout / time.Minute)
	}

	_, err := g.store.Update(ctx, func(rec *workflow.Record) error {
		rec.Status = workflow.StatusAwaitingUser
		rec.UserIntervention = &workflow.UserIntervention{
			BlockerIndex:   req.BlockerIndex,
			Description:    req.Description,
			CheckCommand:   req.CheckCommand,
			RequestedAt:    g.now().UTC(),
			TimeoutMinutes: timeout,
		}
		if req.BlockerIndex >= 0 && req.BlockerIndex < len(rec.Blockers) {
			rec.Blockers[req.BlockerIndex].AwaitingUserFix = true
			rec.Blockers[req.BlockerIndex].CheckCommand = req.CheckCommand
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.log("AWAITING USER: " + req.Description)

	verify := "2. Verify your fix manually"
	if req.CheckCommand != "" {
		verify = "2. Run verification: " + req.CheckCommand
	}
	return &Instructions{
		Status:       workflow.StatusAwaitingUser,
		Description:  req.Description,
		CheckCommand: req.CheckCommand,
		Instructions: []string{
			"1. Fix the issue: " + req.Description,
			verify,
			"3. Resume workflow: " + ResumeCommand,
			"",
			"The workflow will resume automatically when you signal completion.",
		},
	}, nil
}

// CheckResult reports whether the workflow may resume.
type CheckResult struct {
	IsFixed        bool    `json:"isFixed"`
	Verified       *bool   `json:"verified,omitempty"`
	CanResume      bool    `json:"canResume"`
	TimedOut       bool    `json:"timedOut,omitempty"`
	Escalate       bool    `json:"escalate,omitempty"`
	Details        string  `json:"details"`
	WaitingMinutes float64 `json:"waitingMinutes,omitempty"`
	TimeoutMinutes int     `json:"timeoutMinutes,omitempty"`
	Output         string  `json:"output,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// CheckUserFix inspects the pending intervention. Once the user has signaled
// completion, the check command (if any) must succeed before resuming; a
// successful check clears the intervention.
func (g *Gate) CheckUserFix(ctx context.Context) (*CheckResult, error) {
	rec, err := g.store.Load()
	if err != nil {
		return nil, err
	}

	iv := rec.UserIntervention
	if iv == nil {
		return &CheckResult{IsFixed: true, CanResume: true, Details: "No intervention pending"}, nil
	}

	if iv.CompletedAt != nil {
		res := g.verify(ctx, iv)
		if res.CanResume {
			g.clear(ctx)
		}
		return res, nil
	}

	waited := g.now().Sub(iv.RequestedAt).Minutes()
	if waited < 0 {
		waited = 0
	}
	if waited >= float64(iv.TimeoutMinutes) {
		g.log(fmt.Sprintf("USER INTERVENTION TIMED OUT after %d minutes: %s", iv.TimeoutMinutes, iv.Description))
		return &CheckResult{
			TimedOut: true,
			Escalate: true,
			Details:  fmt.Sprintf("User intervention timed out after %d minutes", iv.TimeoutMinutes),
		}, nil
	}

	return &CheckResult{
		WaitingMinutes: float64(int(waited*10+0.5)) / 10,
		TimeoutMinutes: iv.TimeoutMinutes,
		Details:        fmt.Sprintf("Waiting for user fix (%d/%d minutes)", int(waited+0.5), iv.TimeoutMinutes),
	}, nil
}

func (g *Gate) verify(ctx context.Context, iv *workflow.UserIntervention) *CheckResult {
	if iv.CheckCommand == "" {
		ok := true
		return &CheckResult{
			IsFixed:   true,
			Verified:  &ok,
			CanResume: true,
			Details:   "User signaled fix complete (no verification command)",
		}
	}

	result := g.runner.Run(ctx, iv.CheckCommand)
	verified := result.Passed
	res := &CheckResult{IsFixed: true, Verified: &verified, CanResume: verified}

	switch {
	case result.TimedOut:
		res.Details = "Verification command timed out"
	case verified:
		res.Details = "Verification passed: " + iv.CheckCommand
	default:
		res.Details = "Verification failed: " + iv.CheckCommand
		res.Output = result.Stdout
		res.Error = result.Stderr
	}
	g.logger.Debug("intervention check", "command", iv.CheckCommand, "passed", verified, "exit", result.ExitCode)
	return res
}

// clear removes an acknowledged intervention.
func (g *Gate) clear(ctx context.Context) {
	_, err := g.store.Update(ctx, func(rec *workflow.Record) error {
		if rec.UserIntervention != nil && rec.UserIntervention.CompletedAt != nil {
			rec.UserIntervention = nil
		}
		return nil
	})
	if err != nil {
		g.logger.Warn("failed to clear user intervention", "error", err)
	}
}

// SignalResult confirms a signaled fix.
type SignalResult struct {
	Status       string                     `json:"status"`
	Intervention *workflow.UserIntervention `json:"intervention"`
	Details      string                     `json:"details"`
}

// SignalFixComplete records that the user finished the fix and resumes the
// workflow. The referenced blocker is resolved by the user.
func (g *Gate) SignalFixComplete(ctx context.Context, notes string) (*SignalResult, error) {
	var iv workflow.UserIntervention
	_, err := g.store.Update(ctx, func(rec *workflow.Record) error {
		if rec.UserIntervention == nil {
			return workflow.ErrNoIntervention
		}
		now := g.now().UTC()
		rec.UserIntervention.CompletedAt = &now
		rec.UserIntervention.Notes = notes
		rec.Status = workflow.StatusInProgress

		idx := rec.UserIntervention.BlockerIndex
		if idx >= 0 && idx < len(rec.Blockers) {
			b := &rec.Blockers[idx]
			b.Resolved = true
			b.ResolvedAt = &now
			b.ResolvedBy = workflow.ResolvedByUser
			b.AwaitingUserFix = false
		}
		iv = *rec.UserIntervention
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.log("USER FIX COMPLETE: " + iv.Description)
	return &SignalResult{
		Status:       "resumed",
		Intervention: &iv,
		Details:      "Workflow will resume on next iteration",
	}, nil
}

func (g *Gate) log(message string) {
	if g.progress == nil {
		return
	}
	if err := g.progress.Log("", "", message); err != nil {
		g.logger.Warn("failed to write progress log", "error", err)
	}
}

// PauseMessage renders the instructions shown when the loop pauses for the user.
func PauseMessage(description, checkCommand string) string {
	if description == "" {
		description = "Manual intervention needed"
	}
	rule := strings.Repeat("=", 60)

	lines := []string{
		"",
		rule,
		"WORKFLOW PAUSED - USER ACTION REQUIRED",
		rule,
		"",
		"Issue: " + description,
		"",
	}
	if checkCommand != "" {
		lines = append(lines, "Verification command: "+checkCommand, "")
	}

	verify := "  2. Test your fix manually"
	if checkCommand != "" {
		verify = "  2. Verify your fix: " + checkCommand
	}
	lines = append(lines,
		"To resume the workflow:",
		"  1. Fix the issue described above",
		verify,
		"  3. Run: "+ResumeCommand,
		"  4. Restart the agent session to resume the workflow",
		"",
		rule,
	)
	return strings.Join(lines, "\n")
}
