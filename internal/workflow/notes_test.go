package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClarifications(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	summary, err := f.mgr.ClarificationSummary()
	require.NoError(t, err)
	assert.Equal(t, "No clarifications recorded.", summary)

	f.init(t, "goal")
	require.NoError(t, f.mgr.AddClarification(ctx, "Which DB?", "Postgres", "analysis", "technical"))
	require.NoError(t, f.mgr.AddClarification(ctx, "MVP scope?", "Login only", "analysis", "scope"))
	require.NoError(t, f.mgr.AddClarification(ctx, "Retry policy?", "3x", "design", "error_handling"))
	require.NoError(t, f.mgr.AddClarification(ctx, "Anything else?", "No", "", ""))

	all, err := f.mgr.Clarifications("", "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "general", all[3].Phase)
	assert.Equal(t, "general", all[3].Category)

	byPhase, err := f.mgr.Clarifications("analysis", "")
	require.NoError(t, err)
	assert.Len(t, byPhase, 2)

	both, err := f.mgr.Clarifications("analysis", "scope")
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "Login only", both[0].Answer)

	summary, err = f.mgr.ClarificationSummary()
	require.NoError(t, err)
	assert.Contains(t, summary, "## User Clarifications")
	assert.Contains(t, summary, "**Technical:** Which DB?")
	assert.Contains(t, summary, "**Error_Handling:** Retry policy?")
	assert.Contains(t, summary, "  → Postgres")

	assert.Error(t, f.mgr.AddClarification(ctx, "", "a", "p", "c"))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "General", titleCase("general"))
	assert.Equal(t, "Error_Handling", titleCase("error_handling"))
	assert.Equal(t, "Two Words", titleCase("two WORDS"))
}

func TestDecisionsAndPhaseLabel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.init(t, "goal")

	require.NoError(t, f.mgr.AddDecision(ctx, "", "Use JWT", "stateless"))
	require.NoError(t, f.mgr.SetPhaseLabel(ctx, "implementation", "developer"))
	require.NoError(t, f.mgr.AddDecision(ctx, "", "Split API", ""))
	assert.Error(t, f.mgr.AddDecision(ctx, "x", " ", ""))

	rec := f.load(t)
	require.Len(t, rec.Decisions, 2)
	assert.Equal(t, "analysis", rec.Decisions[0].Phase)
	assert.Equal(t, "implementation", rec.Decisions[1].Phase)
	assert.Equal(t, "developer", rec.CurrentAgent)
}
