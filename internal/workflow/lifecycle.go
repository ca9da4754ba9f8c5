package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yarlson/go-wiggum/internal/failure"
)

const (
	defaultPhase   = "analysis"
	defaultAgent   = "orchestrator"
	unknownSession = "unknown"
)

func newWorkflowID() string {
	return uuid.New().String()[:8]
}

// newRecord builds a fresh in_progress record.
func (m *Manager) newRecord(goal, sessionID string) *Record {
	now := m.stamp()
	if sessionID == "" {
		sessionID = unknownSession
	}
	byCategory := make(map[failure.Category]int)
	for _, r := range m.classifier.Table() {
		byCategory[r.Category] = 0
	}
	return &Record{
		WorkflowID:     m.newID(),
		SessionID:      sessionID,
		StartedAt:      now,
		LastUpdated:    now,
		Goal:           goal,
		Status:         StatusInProgress,
		CurrentPhase:   defaultPhase,
		CurrentAgent:   defaultAgent,
		Stories:        []Story{},
		Decisions:      []Decision{},
		Clarifications: []Clarification{},
		Failures:       []failure.Failure{},
		Checkpoints: Checkpoints{
			LastHumanReview:    now,
			LastProgressReport: now,
			LastTimeCheck:      now,
		},
		Blockers: []Blocker{},
		Metrics:  Metrics{FailuresByCategory: byCategory},
		Timeouts: m.timeouts,
		Alerts:   []Alert{},
	}
}

// Init starts a workflow for goal, or resumes the existing one when it is
// still in progress. The second return value reports a resume.
func (m *Manager) Init(ctx context.Context, goal, sessionID string) (*Record, bool, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, false, &ValidationError{Field: "goal", Value: goal, Err: errors.New("goal is required")}
	}

	resumed := false
	rec, err := m.store.Replace(ctx, func(current *Record) (*Record, error) {
		if current != nil && current.Status == StatusInProgress {
			resumed = true
			if sessionID != "" {
				current.SessionID = sessionID
			}
			return current, nil
		}
		m.resetIterations()
		return m.newRecord(goal, sessionID), nil
	})
	if err != nil {
		return nil, false, err
	}

	if resumed {
		m.logProgress("", "", fmt.Sprintf("RESUMED workflow %s - Goal: %s", rec.WorkflowID, rec.Goal))
		m.logger.Info("resumed workflow", "workflow", rec.WorkflowID)
	} else {
		m.logProgress("", "", fmt.Sprintf("STARTED workflow %s - Goal: %s", rec.WorkflowID, goal))
		m.logger.Info("started workflow", "workflow", rec.WorkflowID)
	}
	return rec, resumed, nil
}

// Complete marks the workflow completed, resets the iteration counter and
// archives the progress log.
func (m *Manager) Complete(ctx context.Context) (*Record, error) {
	rec, err := m.update(ctx, func(rec *Record) error {
		now := m.stamp()
		rec.Status = StatusCompleted
		rec.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	counts := rec.Counts()
	m.logProgress("", "", fmt.Sprintf("WORKFLOW COMPLETED - %d/%d stories in %s",
		counts.Completed, counts.Total, FormatElapsed(m.now().Sub(rec.StartedAt))))

	m.resetIterations()

	if m.progress != nil && m.archivePath != "" {
		if _, err := m.progress.Archive(m.archivePath); err != nil {
			m.logger.Warn("failed to archive progress log", "error", err)
		}
	}
	return rec, nil
}

// FormatElapsed renders d as "2h 5m" or "5m".
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// ElapsedMinutes returns the minutes since the workflow started, to one decimal.
func (m *Manager) ElapsedMinutes() (float64, error) {
	rec, err := m.store.Load()
	if err != nil {
		return 0, err
	}
	return elapsedMinutes(rec.StartedAt, m.now()), nil
}

func elapsedMinutes(since, now time.Time) float64 {
	mins := now.Sub(since).Minutes()
	if mins < 0 {
		return 0
	}
	return float64(int(mins*10+0.5)) / 10
}

// StoryBrief is the compact view of a story used in summaries.
type StoryBrief struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Status       StoryStatus         `json:"status"`
	Attempts     int                 `json:"attempts"`
	TDDPhase     Phase               `json:"tddPhase,omitempty"`
	Verification *VerificationChecks `json:"verification,omitempty"`
}

func briefOf(s *Story, withChecks bool) *StoryBrief {
	if s == nil {
		return nil
	}
	b := &StoryBrief{ID: s.ID, Title: s.Title, Status: s.Status, Attempts: s.Attempts, TDDPhase: s.TDDPhase}
	if withChecks {
		checks := s.VerificationChecks
		b.Verification = &checks
	}
	return b
}

// Summary is the status view of a workflow.
type Summary struct {
	WorkflowID        string      `json:"workflowId"`
	Goal              string      `json:"goal"`
	Status            Status      `json:"status"`
	CurrentPhase      string      `json:"currentPhase"`
	CurrentAgent      string      `json:"currentAgent"`
	Elapsed           string      `json:"elapsed"`
	Iterations        int         `json:"iterations"`
	CurrentStory      *StoryBrief `json:"currentStory"`
	Progress          StoryCounts `json:"progress"`
	Metrics           Metrics     `json:"metrics"`
	CheckpointDue     bool        `json:"checkpointDue"`
	ProgressReportDue bool        `json:"progressReportDue"`
	Blockers          []Blocker   `json:"blockers"`
}

// Summary returns the status view.
func (m *Manager) Summary() (*Summary, error) {
	rec, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	blockers := rec.UnresolvedBlockers()
	if blockers == nil {
		blockers = []Blocker{}
	}
	return &Summary{
		WorkflowID:        rec.WorkflowID,
		Goal:              rec.Goal,
		Status:            rec.Status,
		CurrentPhase:      rec.CurrentPhase,
		CurrentAgent:      rec.CurrentAgent,
		Elapsed:           FormatElapsed(m.now().Sub(rec.StartedAt)),
		Iterations:        m.iteration(),
		CurrentStory:      briefOf(rec.NextStory(), false),
		Progress:          rec.Counts(),
		Metrics:           rec.Metrics,
		CheckpointDue:     m.checkpointDue(rec),
		ProgressReportDue: m.progressReportDue(rec),
		Blockers:          blockers,
	}, nil
}

// RecoveryInfo is what a fresh session needs to pick the workflow back up.
type RecoveryInfo struct {
	HasActiveWorkflow bool         `json:"hasActiveWorkflow"`
	WorkflowID        string       `json:"workflowId,omitempty"`
	Goal              string       `json:"goal,omitempty"`
	Status            Status       `json:"status,omitempty"`
	Elapsed           string       `json:"elapsed,omitempty"`
	Iterations        int          `json:"iterations"`
	CurrentPhase      string       `json:"currentPhase,omitempty"`
	CurrentStory      *StoryBrief  `json:"currentStory,omitempty"`
	StoriesSummary    *StoryCounts `json:"storiesSummary,omitempty"`
	Blockers          []Blocker    `json:"blockers,omitempty"`
	RecentProgress    []string     `json:"recentProgress"`
}

// RecoveryProgressLines is how many progress entries recovery info includes.
const RecoveryProgressLines = 15

// RecoveryInfo returns session recovery information. An absent workflow is
// reported, not treated as an error.
func (m *Manager) RecoveryInfo() (*RecoveryInfo, error) {
	info := &RecoveryInfo{RecentProgress: []string{}}
	if m.progress != nil {
		recent, err := m.progress.Recent(RecoveryProgressLines)
		if err != nil {
			m.logger.Warn("failed to read progress log", "error", err)
		} else if recent != nil {
			info.RecentProgress = recent
		}
	}

	rec, err := m.store.Load()
	if errors.Is(err, ErrNoWorkflow) {
		return info, nil
	}
	if err != nil {
		return nil, err
	}

	counts := rec.Counts()
	info.HasActiveWorkflow = true
	info.WorkflowID = rec.WorkflowID
	info.Goal = rec.Goal
	info.Status = rec.Status
	info.Elapsed = FormatElapsed(m.now().Sub(rec.StartedAt))
	info.Iterations = m.iteration()
	info.CurrentPhase = rec.CurrentPhase
	info.CurrentStory = briefOf(rec.NextStory(), true)
	info.StoriesSummary = &counts
	info.Blockers = rec.UnresolvedBlockers()
	return info, nil
}

// CompactContext returns a minimal plain-text summary for context recovery.
func (m *Manager) CompactContext() (string, error) {
	rec, err := m.store.Load()
	if errors.Is(err, ErrNoWorkflow) {
		return "No active workflow", nil
	}
	if err != nil {
		return "", err
	}

	counts := rec.Counts()
	var b strings.Builder
	fmt.Fprintf(&b, "=== Workflow %s ===\n", rec.WorkflowID)
	fmt.Fprintf(&b, "Goal: %s\n", rec.Goal)
	fmt.Fprintf(&b, "Phase: %s\n", rec.CurrentPhase)
	fmt.Fprintf(&b, "Elapsed: %s\n", FormatElapsed(m.now().Sub(rec.StartedAt)))
	fmt.Fprintf(&b, "Iterations: %d\n", m.iteration())
	fmt.Fprintf(&b, "Progress: %d/%d (%d%%)\n", counts.Completed, counts.Total, counts.Percentage)

	if cur := rec.NextStory(); cur != nil {
		fmt.Fprintf(&b, "\nCURRENT: [%s] %s\n", cur.ID, cur.Title)
		fmt.Fprintf(&b, "  Status: %s, Attempts: %d\n", cur.Status, cur.Attempts)
		fmt.Fprintf(&b, "  Checks: %s\n", FormatChecks(cur.VerificationChecks, "Y", "N"))
	}

	if blockers := rec.UnresolvedBlockers(); len(blockers) > 0 {
		b.WriteString("\nBLOCKERS:\n")
		for _, bl := range blockers {
			fmt.Fprintf(&b, "  - [%s] %s\n", bl.Severity, bl.Description)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// FormatChecks renders checks as "testsPass=Y, coverageMet=N, ...".
func FormatChecks(v VerificationChecks, yes, no string) string {
	parts := make([]string, 0, len(Checks))
	for _, c := range Checks {
		mark := no
		if v.Get(c) {
			mark = yes
		}
		parts = append(parts, fmt.Sprintf("%s=%s", c, mark))
	}
	return strings.Join(parts, ", ")
}

// ResolvedBlocker is a blocker the user fixed.
type ResolvedBlocker struct {
	Index       int        `json:"index"`
	Description string     `json:"description"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
}

// ResumeContext is what the agent needs after a user fix.
type ResumeContext struct {
	WorkflowID               string            `json:"workflowId"`
	Goal                     string            `json:"goal"`
	CurrentPhase             string            `json:"currentPhase"`
	RecentlyResolvedBlockers []ResolvedBlocker `json:"recentlyResolvedBlockers"`
	CurrentStory             *StoryBrief       `json:"currentStory"`
	Clarifications           []Clarification   `json:"clarifications"`
	ResumeInstructions       []string          `json:"resumeInstructions"`
}

// resumeClarifications is how many of the latest clarifications are carried.
const resumeClarifications = 5

// ResumeContext returns the context for resuming after a user fix.
func (m *Manager) ResumeContext() (*ResumeContext, error) {
	rec, err := m.store.Load()
	if err != nil {
		return nil, err
	}

	resolved := []ResolvedBlocker{}
	for i, b := range rec.Blockers {
		if b.Resolved && b.ResolvedBy == ResolvedByUser {
			resolved = append(resolved, ResolvedBlocker{Index: i, Description: b.Description, ResolvedAt: b.ResolvedAt})
		}
	}

	clar := rec.Clarifications
	if len(clar) > resumeClarifications {
		clar = clar[len(clar)-resumeClarifications:]
	}
	if clar == nil {
		clar = []Clarification{}
	}

	return &ResumeContext{
		WorkflowID:               rec.WorkflowID,
		Goal:                     rec.Goal,
		CurrentPhase:             rec.CurrentPhase,
		RecentlyResolvedBlockers: resolved,
		CurrentStory:             briefOf(rec.NextStory(), true),
		Clarifications:           clar,
		ResumeInstructions: []string{
			"1. Verify the blocker fix by running the check command if applicable",
			"2. Continue from the current TDD phase if mid-story",
			"3. Re-run tests to ensure the fix didn't break anything",
			"4. Proceed with normal workflow",
		},
	}, nil
}
