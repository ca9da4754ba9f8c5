package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransition(t *testing.T) {
	all := []Phase{PhaseRed, PhaseGreen, PhaseRefactor, PhaseVerify}
	valid := map[Phase][]Phase{
		"":            {PhaseRed},
		PhaseRed:      {PhaseGreen},
		PhaseGreen:    {PhaseRefactor, PhaseVerify},
		PhaseRefactor: {PhaseVerify},
		PhaseVerify:   {PhaseRed},
	}

	for current, allowed := range valid {
		for _, next := range all {
			want := false
			for _, a := range allowed {
				if a == next {
					want = true
				}
			}
			tr := ValidateTransition(current, next)
			assert.Equal(t, want, tr.Valid, "%q -> %q", current, next)
			if !want {
				assert.NotEmpty(t, tr.Error)
				assert.NotEmpty(t, tr.Expected)
			}
		}
	}
}

func TestValidateTransition_Details(t *testing.T) {
	tr := ValidateTransition(PhaseGreen, PhaseVerify)
	assert.True(t, tr.Valid)
	assert.Equal(t, "Skipped refactor phase", tr.Warning)

	tr = ValidateTransition("", PhaseGreen)
	assert.False(t, tr.Valid)
	assert.Equal(t, "Invalid TDD progression: none -> green", tr.Error)
	assert.Equal(t, PhaseRed, tr.Expected)

	tr = ValidateTransition(PhaseRed, PhaseRefactor)
	assert.Equal(t, "Invalid TDD progression: red -> refactor", tr.Error)
	assert.Equal(t, PhaseGreen, tr.Expected)
}

func TestSetPhase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.init(t, "goal")
	_, err := f.mgr.AddStory(ctx, StoryInput{Title: "x"})
	require.NoError(t, err)

	phase, err := f.mgr.Phase("S1")
	require.NoError(t, err)
	assert.Empty(t, phase)

	tr, err := f.mgr.ValidatePhaseTransition("S1", PhaseGreen)
	require.NoError(t, err)
	assert.False(t, tr.Valid)

	assert.ErrorIs(t, f.mgr.SetPhase(ctx, "S1", "purple"), ErrInvalidPhase)
	assert.ErrorIs(t, f.mgr.SetPhase(ctx, "S7", PhaseRed), ErrStoryNotFound)

	_, err = f.counter.Increment()
	require.NoError(t, err)
	require.NoError(t, f.mgr.SetPhase(ctx, "S1", PhaseRed))
	require.NoError(t, f.mgr.SetPhase(ctx, "S1", PhaseGreen))

	s := f.load(t).Story("S1")
	assert.Equal(t, PhaseGreen, s.TDDPhase)
	require.NotNil(t, s.TDDPhaseStarted)
	require.Len(t, s.TDDHistory, 2)
	assert.Equal(t, PhaseRed, s.TDDHistory[0].Phase)
	assert.Equal(t, 1, s.TDDHistory[0].Iteration)

	tr, err = f.mgr.ValidatePhaseTransition("S1", PhaseVerify)
	require.NoError(t, err)
	assert.True(t, tr.Valid)
	assert.NotEmpty(t, tr.Warning)
}
