// Package alert derives time and iteration alerts from the workflow record.
package alert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/yarlson/go-wiggum/internal/config"
	"github.com/yarlson/go-wiggum/internal/workflow"
)

// Thresholds configures when alerts fire.
type Thresholds struct {
	ProgressReport   time.Duration
	ExtendedWorkflow time.Duration
	VeryLongWorkflow time.Duration
	HighIterations   int
}

// DefaultThresholds returns the built-in thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ProgressReport:   time.Duration(config.DefaultProgressReportMinutes) * time.Minute,
		ExtendedWorkflow: time.Duration(config.DefaultExtendedWorkflowMinutes) * time.Minute,
		VeryLongWorkflow: time.Duration(config.DefaultVeryLongWorkflowMinutes) * time.Minute,
		HighIterations:   config.DefaultHighIterationCount,
	}
}

// Evaluate computes the alerts for rec at now. It is a pure function.
//
// The workflow-duration alerts form a ladder: past the very-long threshold
// only the critical alert is reported.
func Evaluate(rec *workflow.Record, iterations int, now time.Time, th Thresholds) []workflow.Alert {
	alerts := []workflow.Alert{}

	if last := rec.Checkpoints.LastProgressReport; !last.IsZero() {
		since := now.Sub(last)
		if since >= th.ProgressReport {
			alerts = append(alerts, workflow.Alert{
				Type:     workflow.AlertProgressReportDue,
				Severity: workflow.AlertInfo,
				Message:  fmt.Sprintf("Progress report due (last: %dm ago)", int(since.Minutes())),
			})
		}
	}

	elapsed := now.Sub(rec.StartedAt)
	switch {
	case elapsed >= th.VeryLongWorkflow:
		alerts = append(alerts, workflow.Alert{
			Type:     workflow.AlertVeryLongWorkflow,
			Severity: workflow.AlertCritical,
			Message:  fmt.Sprintf("Workflow running for %dm - aggressive context trimming recommended", int(elapsed.Minutes())),
		})
	case elapsed >= th.ExtendedWorkflow:
		alerts = append(alerts, workflow.Alert{
			Type:     workflow.AlertExtendedWorkflow,
			Severity: workflow.AlertWarning,
			Message:  fmt.Sprintf("Workflow running for %dm - consider context management", int(elapsed.Minutes())),
		})
	}

	if a, ok := storyTimeout(rec, now); ok {
		alerts = append(alerts, a)
	}

	if iterations >= th.HighIterations {
		alerts = append(alerts, workflow.Alert{
			Type:     workflow.AlertHighIterations,
			Severity: workflow.AlertWarning,
			Message:  fmt.Sprintf("High iteration count: %d - verify progress is being made", iterations),
		})
	}

	return alerts
}

// storyTimeout checks the current story against the per-story budget. The
// clock starts at the latest attempt, falling back to the last update.
func storyTimeout(rec *workflow.Record, now time.Time) (workflow.Alert, bool) {
	cur := rec.NextStory()
	if cur == nil || cur.Status != workflow.StoryInProgress {
		return workflow.Alert{}, false
	}

	budget := rec.Timeouts.StoryMaxMinutes
	if budget <= 0 {
		budget = config.DefaultStoryMaxMinutes
	}

	started := cur.LastUpdated
	if n := len(cur.Iterations); n > 0 {
		started = cur.Iterations[n-1].StartedAt
	}

	mins := now.Sub(started).Minutes()
	if mins <= float64(budget) {
		return workflow.Alert{}, false
	}
	return workflow.Alert{
		Type:     workflow.AlertStoryTimeout,
		Severity: workflow.AlertWarning,
		StoryID:  cur.ID,
		Message:  fmt.Sprintf("Story %s exceeded %dm timeout (%dm elapsed)", cur.ID, budget, int(mins)),
	}, true
}

// HasCritical reports whether any alert is critical.
func HasCritical(alerts []workflow.Alert) bool {
	for _, a := range alerts {
		if a.Severity == workflow.AlertCritical {
			return true
		}
	}
	return false
}

// Counter reads the iteration count.
type Counter interface {
	Get() int
}

// Engine evaluates alerts and persists the snapshot on the record.
type Engine struct {
	store      workflow.Store
	counter    Counter
	thresholds Thresholds
	now        func() time.Time
	logger     *slog.Logger
}

// NewEngine creates an Engine with default thresholds.
func NewEngine(store workflow.Store, counter Counter) *Engine {
	return &Engine{
		store:      store,
		counter:    counter,
		thresholds: DefaultThresholds(),
		now:        time.Now,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetThresholds overrides the alert thresholds.
func (e *Engine) SetThresholds(th Thresholds) {
	e.thresholds = th
}

// SetClock sets the clock.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// SetLogger sets the logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// Check recomputes alerts and overwrites the record's alert snapshot.
func (e *Engine) Check(ctx context.Context) ([]workflow.Alert, error) {
	var alerts []workflow.Alert
	_, err := e.store.Update(ctx, func(rec *workflow.Record) error {
		now := e.now()
		alerts = Evaluate(rec, e.counter.Get(), now, e.thresholds)
		rec.Alerts = alerts
		rec.Checkpoints.LastTimeCheck = now.UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, a := range alerts {
		e.logger.Debug("alert", "type", a.Type, "severity", a.Severity)
	}
	return alerts, nil
}
