package workflow

import (
	"context"
	"time"
)

func (m *Manager) checkpointDue(rec *Record) bool {
	return m.policy.ReviewEveryStories > 0 && rec.Checkpoints.StoriesSinceReview >= m.policy.ReviewEveryStories
}

func (m *Manager) progressReportDue(rec *Record) bool {
	if m.policy.ReportEveryStories > 0 && rec.Checkpoints.StoriesSinceReport >= m.policy.ReportEveryStories {
		return true
	}
	last := rec.Checkpoints.LastProgressReport
	return m.policy.ReportEvery > 0 && !last.IsZero() && m.now().Sub(last) >= m.policy.ReportEvery
}

// CheckpointDue reports whether a human review checkpoint is needed.
func (m *Manager) CheckpointDue() (bool, error) {
	rec, err := m.store.Load()
	if err != nil {
		return false, err
	}
	return m.checkpointDue(rec), nil
}

// ProgressReportDue reports whether a progress report should be generated.
func (m *Manager) ProgressReportDue() (bool, error) {
	rec, err := m.store.Load()
	if err != nil {
		return false, err
	}
	return m.progressReportDue(rec), nil
}

// RecordHumanReview resets the review cadence.
func (m *Manager) RecordHumanReview(ctx context.Context) error {
	return m.touchCheckpoint(ctx, "Human review checkpoint recorded", func(cp *Checkpoints, now time.Time) {
		cp.LastHumanReview = now
		cp.StoriesSinceReview = 0
	})
}

// RecordProgressReport resets the report cadence.
func (m *Manager) RecordProgressReport(ctx context.Context) error {
	return m.touchCheckpoint(ctx, "Progress report recorded", func(cp *Checkpoints, now time.Time) {
		cp.LastProgressReport = now
		cp.StoriesSinceReport = 0
	})
}

func (m *Manager) touchCheckpoint(ctx context.Context, message string, fn func(cp *Checkpoints, now time.Time)) error {
	_, err := m.update(ctx, func(rec *Record) error {
		fn(&rec.Checkpoints, m.stamp())
		return nil
	})
	if err != nil {
		return err
	}
	m.logProgress("", "", message)
	return nil
}
