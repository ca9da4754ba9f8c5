package hook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/yarlson/go-wiggum/internal/config"
	"github.com/yarlson/go-wiggum/internal/intervention"
	"github.com/yarlson/go-wiggum/internal/transcript"
	"github.com/yarlson/go-wiggum/internal/workflow"
)

// Agent is the agent name used on progress log lines written by the hook.
const Agent = "STOP_HOOK"

// Counter is the durable iteration counter.
type Counter interface {
	Increment() (int, error)
	Reset() error
}

// ControllerDeps holds the collaborators of a Controller.
type ControllerDeps struct {
	Store    workflow.Store
	Counter  Counter
	Progress intervention.Progress
	Markers  *Markers

	// MaxIterations is consulted on every decision. Nil uses the default cap.
	MaxIterations func() int

	// TailBytes bounds how much of a transcript file is scanned.
	TailBytes int64

	Clock  func() time.Time
	Logger *slog.Logger
}

// Controller decides whether the agent may stop.
type Controller struct {
	store         workflow.Store
	counter       Counter
	progress      intervention.Progress
	markers       Markers
	maxIterations func() int
	tailBytes     int64
	now           func() time.Time
	logger        *slog.Logger
}

// NewController creates a Controller.
func NewController(deps ControllerDeps) *Controller {
	c := &Controller{
		store:         deps.Store,
		counter:       deps.Counter,
		progress:      deps.Progress,
		markers:       DefaultMarkers(),
		maxIterations: deps.MaxIterations,
		tailBytes:     deps.TailBytes,
		now:           deps.Clock,
		logger:        deps.Logger,
	}
	if deps.Markers != nil {
		c.markers = *deps.Markers
	}
	if c.maxIterations == nil {
		c.maxIterations = func() int { return config.DefaultMaxIterations }
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Decide runs one continuation decision. It never fails: problems reading
// state are logged and treated as an absent workflow.
func (c *Controller) Decide(ctx context.Context, in *Input) *Decision {
	if in == nil {
		return UnparseableDecision()
	}
	c.fillFromTranscript(in)

	iteration, err := c.counter.Increment()
	if err != nil {
		// Without a durable count the iteration cap cannot hold.
		c.logger.Warn("failed to persist iteration counter", "error", err)
		c.log("Iteration counter not persisted - allowing exit")
		return &Decision{
			Decision:  Allow,
			Reason:    "Iteration counter not persisted - safety exit",
			Outcome:   OutcomeBlockedExit,
			Iteration: iteration,
		}
	}

	limit := c.maxIterations()
	if iteration >= limit {
		c.log(fmt.Sprintf("Max iterations (%d) reached - allowing exit", limit))
		c.reset()
		return &Decision{
			Decision:  Allow,
			Reason:    fmt.Sprintf("Max iterations (%d) reached - safety exit", limit),
			Outcome:   OutcomeBlockedExit,
			Iteration: iteration,
		}
	}

	rec := c.load()
	text := in.Text()

	if awaiting, desc, check := c.awaitingUser(rec, text); awaiting {
		c.log("Awaiting user fix: " + desc)
		return &Decision{
			Decision:    Allow,
			Reason:      "Awaiting user intervention",
			UserMessage: intervention.PauseMessage(desc, check),
			Outcome:     OutcomeAwaitingUser,
			Iteration:   iteration,
		}
	}

	if reason, done := c.completion(rec, text); done {
		c.log("Workflow complete: " + reason)
		c.reset()
		return &Decision{Decision: Allow, Reason: reason, Outcome: OutcomeComplete, Iteration: iteration}
	}

	if marker, ok := findMarker(text, c.markers.Escalation); ok {
		reason := "Escalation required: " + marker
		c.log("Workflow exit: " + reason)
		c.reset()
		return &Decision{Decision: Allow, Reason: reason, Outcome: OutcomeEscalated, Iteration: iteration}
	}

	c.log(fmt.Sprintf("Iteration %d: Blocking exit - Workflow incomplete", iteration))
	c.logger.Debug("blocking exit", "iteration", iteration, "max", limit, "stop_hook_active", in.StopHookActive)
	return &Decision{
		Decision:       Block,
		Reason:         fmt.Sprintf("Workflow incomplete (iteration %d/%d)", iteration, limit),
		ContinuePrompt: ContinuationMessage(rec, iteration, c.now()),
		Outcome:        OutcomeContinue,
		Iteration:      iteration,
	}
}

// fillFromTranscript reads the transcript file when the runtime passes a path
// instead of inline text.
func (c *Controller) fillFromTranscript(in *Input) {
	if in.Transcript != "" || in.TranscriptPath == "" {
		return
	}
	all, last, err := transcript.ReadTail(in.TranscriptPath, c.tailBytes)
	if err != nil {
		c.logger.Warn("failed to read transcript", "path", in.TranscriptPath, "error", err)
		return
	}
	in.Transcript = all
	if in.LastAssistantMessage == "" {
		in.LastAssistantMessage = last
	}
}

func (c *Controller) load() *workflow.Record {
	rec, err := c.store.Load()
	if err != nil {
		if !errors.Is(err, workflow.ErrNoWorkflow) {
			c.logger.Warn("failed to load workflow state", "error", err)
		}
		return nil
	}
	return rec
}

func (c *Controller) awaitingUser(rec *workflow.Record, text string) (bool, string, string) {
	if rec != nil && rec.Status == workflow.StatusAwaitingUser {
		if iv := rec.UserIntervention; iv != nil {
			return true, iv.Description, iv.CheckCommand
		}
		return true, "", ""
	}
	if _, ok := findMarker(text, c.markers.Intervention); ok {
		return true, "User intervention requested in output", ""
	}
	return false, "", ""
}

func (c *Controller) completion(rec *workflow.Record, text string) (string, bool) {
	if marker, ok := findMarker(text, c.markers.Completion); ok {
		return "Completion marker found: " + marker, true
	}
	if rec == nil {
		return "", false
	}
	if rec.Status == workflow.StatusCompleted {
		return "Workflow state is 'completed'", true
	}
	if rec.AllStoriesCompleted() {
		return "All stories marked as completed", true
	}
	return "", false
}

func (c *Controller) reset() {
	if err := c.counter.Reset(); err != nil {
		c.logger.Warn("failed to reset iteration counter", "error", err)
	}
}

func (c *Controller) log(message string) {
	if c.progress == nil {
		return
	}
	if err := c.progress.Log("", Agent, message); err != nil {
		c.logger.Warn("failed to write progress log", "error", err)
	}
}
