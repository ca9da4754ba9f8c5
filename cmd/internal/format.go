// Package internal renders human-readable views for the wiggum CLI.
package internal

import (
	"fmt"
	"strings"

	"github.com/yarlson/go-wiggum/internal/workflow"
)

// ProgressBar returns an ASCII progress bar string for the given percentage.
// The width parameter specifies the inner width of the bar (excluding brackets).
// Percentage values are clamped to 0-100.
//
// Example: ProgressBar(50, 20) returns "[==========          ]"
func ProgressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := (percent * width) / 100

	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(strings.Repeat("=", filled))
	sb.WriteString(strings.Repeat(" ", width-filled))
	sb.WriteString("]")

	return sb.String()
}

// FormatSummary renders the status view as text.
func FormatSummary(s *workflow.Summary) string {
	var sb strings.Builder

	_, _ = fmt.Fprintf(&sb, "Workflow: %s (%s)\n", s.WorkflowID, s.Status)
	_, _ = fmt.Fprintf(&sb, "Goal:     %s\n", s.Goal)
	if s.CurrentPhase != "" {
		phase := s.CurrentPhase
		if s.CurrentAgent != "" {
			phase += " / " + s.CurrentAgent
		}
		_, _ = fmt.Fprintf(&sb, "Phase:    %s\n", phase)
	}
	_, _ = fmt.Fprintf(&sb, "Elapsed:  %s, %d iterations\n", s.Elapsed, s.Iterations)

	p := s.Progress
	_, _ = fmt.Fprintf(&sb, "\n%s %d%%  %d/%d completed", ProgressBar(p.Percentage, 20), p.Percentage, p.Completed, p.Total)
	if p.InProgress > 0 || p.Blocked > 0 {
		_, _ = fmt.Fprintf(&sb, " (%d active, %d blocked)", p.InProgress, p.Blocked)
	}
	sb.WriteString("\n")

	if cur := s.CurrentStory; cur != nil {
		_, _ = fmt.Fprintf(&sb, "\nCurrent: [%s] %s\n", cur.ID, cur.Title)
		_, _ = fmt.Fprintf(&sb, "  %s, attempt %d", cur.Status, cur.Attempts)
		if cur.TDDPhase != "" {
			_, _ = fmt.Fprintf(&sb, ", tdd %s", cur.TDDPhase)
		}
		sb.WriteString("\n")
	}

	if len(s.Blockers) > 0 {
		sb.WriteString("\nBlockers:\n")
		for _, b := range s.Blockers {
			_, _ = fmt.Fprintf(&sb, "  - [%s] %s\n", b.Severity, b.Description)
		}
	}

	var due []string
	if s.CheckpointDue {
		due = append(due, "human review")
	}
	if s.ProgressReportDue {
		due = append(due, "progress report")
	}
	if len(due) > 0 {
		_, _ = fmt.Fprintf(&sb, "\nDue: %s\n", strings.Join(due, ", "))
	}

	return sb.String()
}

// FormatAlerts renders alerts one per line, or "No alerts".
func FormatAlerts(alerts []workflow.Alert) string {
	if len(alerts) == 0 {
		return "No alerts\n"
	}
	var sb strings.Builder
	sb.WriteString("ALERTS:\n")
	for _, a := range alerts {
		_, _ = fmt.Fprintf(&sb, "  [%s] %s: %s\n", strings.ToUpper(string(a.Severity)), a.Type, a.Message)
	}
	return sb.String()
}
