package workflow

import (
	"context"
	"fmt"
	"strings"
)

// nextPhase maps each phase to its canonical successor.
var nextPhase = map[Phase]Phase{
	PhaseRed:      PhaseGreen,
	PhaseGreen:    PhaseRefactor,
	PhaseRefactor: PhaseVerify,
	PhaseVerify:   PhaseRed,
}

// Transition is the verdict on a proposed phase change.
type Transition struct {
	Valid    bool   `json:"valid"`
	Warning  string `json:"warning,omitempty"`
	Error    string `json:"error,omitempty"`
	Expected Phase  `json:"expected,omitempty"`
}

// ValidateTransition checks a move from current (empty when no phase has been
// recorded) to next. green -> verify is allowed with a warning.
func ValidateTransition(current, next Phase) Transition {
	if current == "" && next == PhaseRed {
		return Transition{Valid: true}
	}
	if current != "" && nextPhase[current] == next {
		return Transition{Valid: true}
	}
	if current == PhaseGreen && next == PhaseVerify {
		return Transition{Valid: true, Warning: "Skipped refactor phase"}
	}

	from := string(current)
	if from == "" {
		from = "none"
	}
	expected, ok := nextPhase[current]
	if !ok {
		expected = PhaseRed
	}
	return Transition{
		Error:    fmt.Sprintf("Invalid TDD progression: %s -> %s", from, next),
		Expected: expected,
	}
}

// SetPhase records a story's TDD phase and appends a history entry.
func (m *Manager) SetPhase(ctx context.Context, id string, phase Phase) error {
	if !phase.IsValid() {
		return &ValidationError{Field: "phase", Value: string(phase), Err: ErrInvalidPhase}
	}

	_, err := m.update(ctx, func(rec *Record) error {
		s, err := storyOf(rec, id)
		if err != nil {
			return err
		}
		now := m.stamp()
		s.TDDPhase = phase
		s.TDDPhaseStarted = &now
		s.TDDHistory = append(s.TDDHistory, PhaseEntry{Phase: phase, Timestamp: now, Iteration: m.iteration()})
		return nil
	})
	if err != nil {
		return err
	}

	m.logProgress(id, "", "TDD Phase: "+strings.ToUpper(string(phase)))
	return nil
}

// Phase returns a story's current TDD phase; empty when not started.
func (m *Manager) Phase(id string) (Phase, error) {
	rec, err := m.store.Load()
	if err != nil {
		return "", err
	}
	s, err := storyOf(rec, id)
	if err != nil {
		return "", err
	}
	return s.TDDPhase, nil
}

// ValidatePhaseTransition checks moving a stored story to next.
func (m *Manager) ValidatePhaseTransition(id string, next Phase) (Transition, error) {
	current, err := m.Phase(id)
	if err != nil {
		return Transition{}, err
	}
	return ValidateTransition(current, next), nil
}
