package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/yarlson/go-wiggum/internal/failure"
)

// progressExcerpt bounds failure text echoed into the progress log.
const progressExcerpt = 100

// RecordFailure classifies (unless category is set) and appends a failure.
func (m *Manager) RecordFailure(ctx context.Context, storyID, message string, category failure.Category, details map[string]string) (failure.Failure, error) {
	var f failure.Failure
	_, err := m.update(ctx, func(rec *Record) error {
		var err error
		f, err = m.classifier.New(failure.NextID(len(rec.Failures)), storyID, message, category, details, m.iteration(), m.stamp())
		if err != nil {
			return err
		}
		rec.Failures = append(rec.Failures, f)
		if rec.Metrics.FailuresByCategory == nil {
			rec.Metrics.FailuresByCategory = make(map[failure.Category]int)
		}
		rec.Metrics.FailuresByCategory[f.Category]++
		return nil
	})
	if err != nil {
		return failure.Failure{}, err
	}

	excerpt := []rune(message)
	if len(excerpt) > progressExcerpt {
		excerpt = excerpt[:progressExcerpt]
	}
	m.logProgress(storyID, "", fmt.Sprintf("FAILURE [%s]: %s...", strings.ToUpper(string(f.Category)), string(excerpt)))
	return f, nil
}

// StoryFailures returns every failure recorded for a story.
func (m *Manager) StoryFailures(storyID string) ([]failure.Failure, error) {
	rec, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	out := failure.ForStory(rec.Failures, storyID)
	if out == nil {
		out = []failure.Failure{}
	}
	return out, nil
}

// RecommendRetry advises on the next attempt for a story.
func (m *Manager) RecommendRetry(storyID string) (failure.Recommendation, error) {
	failures, err := m.StoryFailures(storyID)
	if err != nil {
		return failure.Recommendation{}, err
	}
	return failure.Recommend(failures), nil
}
