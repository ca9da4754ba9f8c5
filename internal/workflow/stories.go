package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultStorySize is used when a story is added without a size tag.
const DefaultStorySize = "M"

// StoryInput describes a story to add.
type StoryInput struct {
	Title              string
	Size               string
	AcceptanceCriteria []string
	SecuritySensitive  bool
}

// AddStory appends a pending story and returns its ID (S<n>).
func (m *Manager) AddStory(ctx context.Context, in StoryInput) (string, error) {
	if strings.TrimSpace(in.Title) == "" {
		return "", &ValidationError{Field: "title", Value: in.Title, Err: errors.New("story title is required")}
	}
	size := strings.ToUpper(strings.TrimSpace(in.Size))
	if size == "" {
		size = DefaultStorySize
	}
	criteria := in.AcceptanceCriteria
	if criteria == nil {
		criteria = []string{}
	}

	var id string
	_, err := m.update(ctx, func(rec *Record) error {
		now := m.stamp()
		id = fmt.Sprintf("S%d", len(rec.Stories)+1)
		rec.Stories = append(rec.Stories, Story{
			ID:                 id,
			Title:              in.Title,
			Size:               size,
			Status:             StoryPending,
			AcceptanceCriteria: criteria,
			SecuritySensitive:  in.SecuritySensitive,
			Iterations:         []Attempt{},
			VerificationChecks: VerificationChecks{SecurityCleared: !in.SecuritySensitive},
			CreatedAt:          now,
			LastUpdated:        now,
		})
		return nil
	})
	if err != nil {
		return "", err
	}

	m.logProgress(id, "", fmt.Sprintf("Added story: %s (size: %s)", in.Title, size))
	return id, nil
}

// UpdateStoryStatus moves a story to status. A request for completed while
// any verification check is false stores verified instead.
func (m *Manager) UpdateStoryStatus(ctx context.Context, id string, status StoryStatus, agent string) (*Story, error) {
	if !status.IsValid() {
		return nil, &ValidationError{Field: "status", Value: string(status), Err: ErrInvalidStatus}
	}

	var (
		updated Story
		message string
	)
	_, err := m.update(ctx, func(rec *Record) error {
		s, err := storyOf(rec, id)
		if err != nil {
			return err
		}

		now := m.stamp()
		old := s.Status
		s.Status = status
		s.LastUpdated = now
		if agent != "" {
			s.AssignedAgent = agent
		}

		if status == StoryInProgress && old != StoryInProgress {
			s.Attempts++
			s.Iterations = append(s.Iterations, Attempt{
				Attempt:         s.Attempts,
				StartedAt:       now,
				GlobalIteration: m.iteration(),
			})
			rec.Metrics.TotalAttempts++
		}

		switch {
		case status != StoryCompleted:
			message = fmt.Sprintf("Status: %s -> %s", old, status)
		case !s.VerificationChecks.AllPassed():
			s.Status = StoryVerified
			message = fmt.Sprintf("Status: %s -> verified (awaiting all checks)", old)
		case old == StoryCompleted:
			message = "Status: completed -> completed"
		default:
			s.CompletedAt = &now
			rec.Checkpoints.StoriesSinceReview++
			rec.Checkpoints.StoriesSinceReport++
			rec.Metrics.StoriesCompleted++
			message = "COMPLETED - all verification checks passed"
		}

		updated = *s
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logProgress(id, agent, message)
	return &updated, nil
}

// UpdateVerificationCheck sets one check. When all checks pass the story is
// promoted to verified unless it is already verified or completed.
func (m *Manager) UpdateVerificationCheck(ctx context.Context, id string, check Check, passed bool, details string) (*Story, error) {
	if !check.IsValid() {
		return nil, &ValidationError{Field: "check", Value: string(check), Err: ErrInvalidCheck}
	}

	var (
		updated  Story
		promoted bool
	)
	_, err := m.update(ctx, func(rec *Record) error {
		s, err := storyOf(rec, id)
		if err != nil {
			return err
		}

		s.VerificationChecks.set(check, passed)
		s.LastUpdated = m.stamp()
		if !passed {
			rec.Metrics.FailedVerifications++
		}

		if s.VerificationChecks.AllPassed() && s.Status != StoryCompleted && s.Status != StoryVerified {
			s.Status = StoryVerified
			promoted = true
		}

		updated = *s
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := "PASSED"
	if !passed {
		result = "FAILED"
	}
	detail := ""
	if details != "" {
		detail = " - " + details
	}
	m.logProgress(id, "", fmt.Sprintf("Verification %s: %s%s", check, result, detail))
	if promoted {
		m.logProgress(id, "", "All verification checks PASSED - ready for completion")
	}
	return &updated, nil
}

// VerificationStatus returns a story's checks.
func (m *Manager) VerificationStatus(id string) (VerificationChecks, error) {
	rec, err := m.store.Load()
	if err != nil {
		return VerificationChecks{}, err
	}
	s, err := storyOf(rec, id)
	if err != nil {
		return VerificationChecks{}, err
	}
	return s.VerificationChecks, nil
}

// NextStory returns the story to work on, or nil when nothing is left.
func (m *Manager) NextStory() (*Story, error) {
	rec, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	return rec.NextStory(), nil
}
