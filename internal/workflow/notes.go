package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// DefaultClarificationCategory is used when none is given.
const DefaultClarificationCategory = "general"

// AddClarification persists a user's answer so it is not asked again.
func (m *Manager) AddClarification(ctx context.Context, question, answer, phase, category string) error {
	if strings.TrimSpace(question) == "" {
		return &ValidationError{Field: "question", Value: question, Err: errors.New("question is required")}
	}
	if phase == "" {
		phase = DefaultClarificationCategory
	}
	if category == "" {
		category = DefaultClarificationCategory
	}

	_, err := m.update(ctx, func(rec *Record) error {
		rec.Clarifications = append(rec.Clarifications, Clarification{
			Question:  question,
			Answer:    answer,
			Phase:     phase,
			Category:  category,
			Timestamp: m.stamp(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	m.logProgress("", "", fmt.Sprintf("CLARIFICATION [%s]: %s... -> %s...", category, clip(question, 50), clip(answer, 50)))
	return nil
}

// Clarifications returns stored clarifications, optionally filtered.
func (m *Manager) Clarifications(phase, category string) ([]Clarification, error) {
	rec, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	out := []Clarification{}
	for _, c := range rec.Clarifications {
		if phase != "" && c.Phase != phase {
			continue
		}
		if category != "" && c.Category != category {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// ClarificationSummary renders all clarifications as markdown.
func (m *Manager) ClarificationSummary() (string, error) {
	const none = "No clarifications recorded."

	rec, err := m.store.Load()
	if errors.Is(err, ErrNoWorkflow) {
		return none, nil
	}
	if err != nil {
		return "", err
	}
	if len(rec.Clarifications) == 0 {
		return none, nil
	}

	var b strings.Builder
	b.WriteString("## User Clarifications\n")
	for _, c := range rec.Clarifications {
		fmt.Fprintf(&b, "\n**%s:** %s\n", titleCase(c.Category), c.Question)
		fmt.Fprintf(&b, "  → %s\n", c.Answer)
	}
	return b.String(), nil
}

// AddDecision records a decision made during the workflow.
func (m *Manager) AddDecision(ctx context.Context, phase, decision, rationale string) error {
	if strings.TrimSpace(decision) == "" {
		return &ValidationError{Field: "decision", Value: decision, Err: errors.New("decision is required")}
	}

	_, err := m.update(ctx, func(rec *Record) error {
		if phase == "" {
			phase = rec.CurrentPhase
		}
		rec.Decisions = append(rec.Decisions, Decision{
			Phase:     phase,
			Decision:  decision,
			Rationale: rationale,
			Timestamp: m.stamp(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	m.logProgress("", "", "DECISION: "+clip(decision, progressExcerpt))
	return nil
}

// SetPhaseLabel updates the workflow's current phase and agent labels.
func (m *Manager) SetPhaseLabel(ctx context.Context, phase, agent string) error {
	_, err := m.update(ctx, func(rec *Record) error {
		if phase != "" {
			rec.CurrentPhase = phase
		}
		if agent != "" {
			rec.CurrentAgent = agent
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.logProgress("", agent, "Phase: "+phase)
	return nil
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// titleCase upper-cases the first letter of each underscore or space separated word.
func titleCase(s string) string {
	r := []rune(s)
	upper := true
	for i, c := range r {
		if upper {
			r[i] = unicode.ToUpper(c)
		} else {
			r[i] = unicode.ToLower(c)
		}
		upper = !unicode.IsLetter(c) && !unicode.IsDigit(c)
	}
	return string(r)
}
