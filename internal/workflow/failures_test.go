package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarlson/go-wiggum/internal/failure"
)

func TestRecordFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.init(t, "goal")
	_, err := f.counter.Increment()
	require.NoError(t, err)

	msgs := []string{"connection refused: db", "timeout waiting for db", "connection refused: db"}
	var got []failure.Failure
	for _, m := range msgs {
		fr, err := f.mgr.RecordFailure(ctx, "S2", m, "", nil)
		require.NoError(t, err)
		got = append(got, fr)
	}

	assert.Equal(t, "F1", got[0].ID)
	assert.Equal(t, "F3", got[2].ID)
	assert.Equal(t, failure.CategoryInfra, got[0].Category)
	assert.Equal(t, failure.CategoryTimeout, got[1].Category)
	assert.Equal(t, failure.CategoryInfra, got[2].Category)
	assert.Equal(t, 1, got[0].Iteration)

	rec := f.load(t)
	assert.Equal(t, 2, rec.Metrics.FailuresByCategory[failure.CategoryInfra])
	assert.Equal(t, 1, rec.Metrics.FailuresByCategory[failure.CategoryTimeout])

	r, err := f.mgr.RecommendRetry("S2")
	require.NoError(t, err)
	assert.True(t, r.ShouldRetry)
	assert.Positive(t, r.BackoffSeconds)
}

func TestRecordFailure_ExplicitCategoryAndTruncation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.init(t, "goal")

	fr, err := f.mgr.RecordFailure(ctx, "S1", strings.Repeat("z", 800), failure.CategoryTest, map[string]string{"file": "a_test.go"})
	require.NoError(t, err)
	assert.Equal(t, failure.CategoryTest, fr.Category)
	assert.Len(t, fr.Message, failure.MaxMessageLength)

	_, err = f.mgr.RecordFailure(ctx, "S1", "boom", "gremlins", nil)
	assert.ErrorIs(t, err, failure.ErrUnknownCategory)
	assert.Len(t, f.load(t).Failures, 1, "rejected failure is not appended")
}

func TestRecommendRetry_Escalations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.init(t, "goal")

	for i := 0; i < 3; i++ {
		_, err := f.mgr.RecordFailure(ctx, "S1", "503 service unavailable", "", nil)
		require.NoError(t, err)
		_, err = f.mgr.RecordFailure(ctx, "S2", "Error: nil pointer", "", nil)
		require.NoError(t, err)
	}

	r, err := f.mgr.RecommendRetry("S1")
	require.NoError(t, err)
	assert.False(t, r.ShouldRetry)
	assert.True(t, r.Escalate)

	r, err = f.mgr.RecommendRetry("S2")
	require.NoError(t, err)
	assert.False(t, r.ShouldRetry)
	assert.Equal(t, failure.ReasonRepeated, r.Reason)

	r, err = f.mgr.RecommendRetry("S3")
	require.NoError(t, err)
	assert.True(t, r.ShouldRetry)
	assert.Equal(t, failure.ReasonNoFailures, r.Reason)

	fs, err := f.mgr.StoryFailures("S1")
	require.NoError(t, err)
	assert.Len(t, fs, 3)
}
