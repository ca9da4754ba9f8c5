package failure

import (
	"fmt"
	"time"
)

// MaxMessageLength bounds the stored failure message.
const MaxMessageLength = 500

// RecentWindow is how many of a story's latest failures the advisor inspects.
const RecentWindow = 3

// BackoffUnit is multiplied by the number of backoff-flagged failures in the window.
const BackoffUnit = 30

// Failure is an append-only record of one classified failure.
type Failure struct {
	ID             string            `json:"id"`
	StoryID        string            `json:"storyId"`
	Category       Category          `json:"category"`
	Message        string            `json:"message"`
	Context        map[string]string `json:"context,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
	Iteration      int               `json:"iteration"`
	Retryable      bool              `json:"retryable"`
	NeedsBackoff   bool              `json:"needsBackoff"`
	ShouldEscalate bool              `json:"shouldEscalate"`
}

// Recommendation is the advisor's verdict for a story.
type Recommendation struct {
	ShouldRetry    bool   `json:"shouldRetry"`
	Reason         string `json:"reason"`
	BackoffSeconds int    `json:"backoffSeconds,omitempty"`
	Escalate       bool   `json:"escalate,omitempty"`
}

// Reasons reported by Recommend.
const (
	ReasonNoFailures     = "No failures recorded"
	ReasonExternal       = "External service failures - manual intervention needed"
	ReasonInfrastructure = "Infrastructure issue - retry with backoff"
	ReasonRepeated       = "Same error repeated 3 times - needs different approach"
	ReasonStandard       = "Standard retry"
)

// Truncate bounds message to MaxMessageLength runes.
func Truncate(message string) string {
	r := []rune(message)
	if len(r) <= MaxMessageLength {
		return message
	}
	return string(r[:MaxMessageLength])
}

// NextID returns the identifier for the failure appended after existing.
func NextID(existing int) string {
	return fmt.Sprintf("F%d", existing+1)
}

// New builds a failure record with the category's flags copied from c.
// An empty category is classified from the message.
func (c *Classifier) New(id, storyID, message string, category Category, details map[string]string, iteration int, now time.Time) (Failure, error) {
	if category == "" {
		category = c.Classify(message)
	}
	rule, err := c.Rule(category)
	if err != nil {
		return Failure{}, err
	}
	return Failure{
		ID:             id,
		StoryID:        storyID,
		Category:       category,
		Message:        Truncate(message),
		Context:        details,
		Timestamp:      now,
		Iteration:      iteration,
		Retryable:      rule.Retryable,
		NeedsBackoff:   rule.NeedsBackoff,
		ShouldEscalate: rule.ShouldEscalate,
	}, nil
}

// ForStory returns the failures recorded against storyID, oldest first.
func ForStory(failures []Failure, storyID string) []Failure {
	var out []Failure
	for _, f := range failures {
		if f.StoryID == storyID {
			out = append(out, f)
		}
	}
	return out
}

// Recommend inspects the latest failures of a single story.
// Rules apply in order: repeated external failures escalate, backoff-flagged
// failures retry with a delay, three identical messages escalate.
func Recommend(failures []Failure) Recommendation {
	if len(failures) == 0 {
		return Recommendation{ShouldRetry: true, Reason: ReasonNoFailures}
	}

	recent := failures
	if len(recent) > RecentWindow {
		recent = recent[len(recent)-RecentWindow:]
	}

	external, backoff := 0, 0
	for _, f := range recent {
		if f.Category == CategoryExternal {
			external++
		}
		if f.NeedsBackoff {
			backoff++
		}
	}

	if external >= 2 {
		return Recommendation{ShouldRetry: false, Reason: ReasonExternal, Escalate: true}
	}
	if backoff > 0 {
		return Recommendation{ShouldRetry: true, Reason: ReasonInfrastructure, BackoffSeconds: BackoffUnit * backoff}
	}
	if len(recent) == RecentWindow && allSameMessage(recent) {
		return Recommendation{ShouldRetry: false, Reason: ReasonRepeated, Escalate: true}
	}
	return Recommendation{ShouldRetry: true, Reason: ReasonStandard}
}

func allSameMessage(failures []Failure) bool {
	for _, f := range failures[1:] {
		if f.Message != failures[0].Message {
			return false
		}
	}
	return true
}
