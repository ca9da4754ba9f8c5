package hook

import (
	"fmt"
	"strings"
	"time"

	"github.com/yarlson/go-wiggum/internal/workflow"
)

// StatusCommand is suggested to the agent for a full status view.
const StatusCommand = "wiggum status"

// ContinuationMessage renders the prompt that sends the agent back to work.
// A nil record yields the header and instructions only.
func ContinuationMessage(rec *workflow.Record, iteration int, now time.Time) string {
	rule := strings.Repeat("=", 60)
	lines := []string{
		"",
		rule,
		"WORKFLOW CONTINUATION (Stop Hook Triggered)",
		rule,
		fmt.Sprintf("Iteration: %d", iteration),
	}

	if rec != nil {
		goal := rec.Goal
		if goal == "" {
			goal = "Unknown"
		}
		phase := rec.CurrentPhase
		if phase == "" {
			phase = "Unknown"
		}
		counts := rec.Counts()

		lines = append(lines,
			"Goal: "+goal,
			"Phase: "+phase,
		)
		if !rec.StartedAt.IsZero() {
			lines = append(lines, "Elapsed: "+workflow.FormatElapsed(now.Sub(rec.StartedAt)))
		}
		lines = append(lines, fmt.Sprintf("Progress: %d/%d stories completed", counts.Completed, counts.Total))

		if s := rec.ActiveStory(); s != nil {
			lines = append(lines,
				"",
				fmt.Sprintf("CURRENT STORY: [%s] %s", s.ID, s.Title),
				fmt.Sprintf("Status: %s", s.Status),
				fmt.Sprintf("Attempts: %d", s.Attempts),
				"Verification: "+workflow.FormatChecks(s.VerificationChecks, "PASS", "PENDING"),
			)
			if s.TDDPhase != "" {
				lines = append(lines, fmt.Sprintf("TDD Phase: %s", s.TDDPhase))
			}
		}

		if s := rec.FirstPending(); s != nil {
			lines = append(lines, "", fmt.Sprintf("NEXT: [%s] %s", s.ID, s.Title))
		}

		if blockers := rec.UnresolvedBlockers(); len(blockers) > 0 {
			lines = append(lines, "", "BLOCKERS:")
			for _, b := range blockers {
				sev := b.Severity
				if sev == "" {
					sev = workflow.SeverityMedium
				}
				lines = append(lines, fmt.Sprintf("  - [%s] %s", sev, b.Description))
			}
		}
	}

	lines = append(lines,
		"",
		"INSTRUCTIONS:",
		"1. The workflow is NOT complete. Continue from where you left off.",
		"2. Check current story status and continue implementation/verification.",
		"3. Run build and tests before marking any story complete.",
		"4. Output WORKFLOW_COMPLETE only when ALL stories are verified and PR is created.",
		"",
		"Run: "+StatusCommand,
		rule,
	)
	return strings.Join(lines, "\n")
}
