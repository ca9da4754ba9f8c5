package hook

import "strings"

// Markers are the literal strings scanned for in agent output.
type Markers struct {
	Completion   []string
	Escalation   []string
	Intervention []string
}

// DefaultMarkers returns the built-in marker sets.
func DefaultMarkers() Markers {
	return Markers{
		Completion: []string{
			"WORKFLOW_COMPLETE",
			"## WORKFLOW_COMPLETE",
			"<promise>COMPLETE</promise>",
			"PR created. Workflow complete.",
			"All stories verified. Pull request created.",
		},
		Escalation: []string{
			"BLOCKER:",
			"ESCALATION_REQUIRED",
			"HUMAN_INTERVENTION_NEEDED",
			"MAX_RETRIES_EXCEEDED",
		},
		Intervention: []string{
			"AWAITING_USER_FIX",
			"awaiting_user",
		},
	}
}

// findMarker returns the first marker contained in text.
func findMarker(text string, markers []string) (string, bool) {
	for _, m := range markers {
		if m != "" && strings.Contains(text, m) {
			return m, true
		}
	}
	return "", false
}
