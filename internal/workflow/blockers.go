package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ResolvedByUser marks a blocker cleared through the user intervention gate.
const ResolvedByUser = "user"

// AddBlocker records a blocker and marks the workflow blocked. It returns the
// blocker's index.
func (m *Manager) AddBlocker(ctx context.Context, description string, severity Severity) (int, error) {
	if strings.TrimSpace(description) == "" {
		return 0, &ValidationError{Field: "description", Value: description, Err: errors.New("blocker description is required")}
	}
	if severity == "" {
		severity = SeverityMedium
	}
	if !severity.IsValid() {
		return 0, &ValidationError{Field: "severity", Value: string(severity), Err: ErrInvalidSeverity}
	}

	var index int
	_, err := m.update(ctx, func(rec *Record) error {
		index = len(rec.Blockers)
		rec.Blockers = append(rec.Blockers, Blocker{
			Description: description,
			Severity:    severity,
			CreatedAt:   m.stamp(),
		})
		rec.Status = StatusBlocked
		return nil
	})
	if err != nil {
		return 0, err
	}

	m.logProgress("", "", fmt.Sprintf("BLOCKER [%s]: %s", strings.ToUpper(string(severity)), description))
	return index, nil
}

// ResolveBlocker resolves the blocker at index. The workflow returns to
// in_progress once no unresolved blockers remain.
func (m *Manager) ResolveBlocker(ctx context.Context, index int) error {
	_, err := m.update(ctx, func(rec *Record) error {
		if index < 0 || index >= len(rec.Blockers) {
			return &ValidationError{Field: "index", Value: strconv.Itoa(index), Err: ErrBlockerNotFound}
		}
		now := m.stamp()
		rec.Blockers[index].Resolved = true
		rec.Blockers[index].ResolvedAt = &now
		if len(rec.UnresolvedBlockers()) == 0 && rec.Status == StatusBlocked {
			rec.Status = StatusInProgress
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logProgress("", "", fmt.Sprintf("Resolved blocker %d", index))
	return nil
}
