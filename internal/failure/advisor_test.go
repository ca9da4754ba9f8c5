package failure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, c *Classifier, msgs ...string) []Failure {
	t.Helper()
	var out []Failure
	for i, m := range msgs {
		f, err := c.New(NextID(i), "S2", m, "", nil, i+1, time.Now())
		require.NoError(t, err)
		out = append(out, f)
	}
	return out
}

func TestRecommend(t *testing.T) {
	c := NewClassifier(nil)

	t.Run("no failures", func(t *testing.T) {
		r := Recommend(nil)
		assert.True(t, r.ShouldRetry)
		assert.Equal(t, ReasonNoFailures, r.Reason)
	})

	t.Run("mixed infra and timeout backs off", func(t *testing.T) {
		fs := record(t, c, "connection refused: db", "timeout waiting for db", "connection refused: db")
		assert.Equal(t, CategoryInfra, fs[0].Category)
		assert.Equal(t, CategoryTimeout, fs[1].Category)
		assert.Equal(t, CategoryInfra, fs[2].Category)

		r := Recommend(fs)
		assert.True(t, r.ShouldRetry)
		assert.Equal(t, 90, r.BackoffSeconds)
		assert.Equal(t, ReasonInfrastructure, r.Reason)
	})

	t.Run("external failures escalate", func(t *testing.T) {
		r := Recommend(record(t, c, "503 service unavailable", "rate limit exceeded", "401 unauthorized"))
		assert.False(t, r.ShouldRetry)
		assert.True(t, r.Escalate)
		assert.Equal(t, ReasonExternal, r.Reason)
	})

	t.Run("external outranks backoff", func(t *testing.T) {
		r := Recommend(record(t, c, "connection refused", "503", "rate limit"))
		assert.False(t, r.ShouldRetry)
		assert.True(t, r.Escalate)
	})

	t.Run("identical messages escalate", func(t *testing.T) {
		r := Recommend(record(t, c, "Error: nil map", "Error: nil map", "Error: nil map"))
		assert.False(t, r.ShouldRetry)
		assert.True(t, r.Escalate)
		assert.Equal(t, ReasonRepeated, r.Reason)
	})

	t.Run("two identical messages keep retrying", func(t *testing.T) {
		r := Recommend(record(t, c, "Error: nil map", "Error: nil map"))
		assert.True(t, r.ShouldRetry)
		assert.Equal(t, ReasonStandard, r.Reason)
	})

	t.Run("only the latest window counts", func(t *testing.T) {
		fs := record(t, c, "503", "503", "Error: a", "Error: b", "Error: c")
		r := Recommend(fs)
		assert.True(t, r.ShouldRetry)
		assert.Equal(t, ReasonStandard, r.Reason)
	})
}

func TestForStory(t *testing.T) {
	fs := []Failure{{ID: "F1", StoryID: "S1"}, {ID: "F2", StoryID: "S2"}, {ID: "F3", StoryID: "S1"}}
	got := ForStory(fs, "S1")
	require.Len(t, got, 2)
	assert.Equal(t, "F1", got[0].ID)
	assert.Equal(t, "F3", got[1].ID)
	assert.Empty(t, ForStory(fs, "S9"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short"))
	long := make([]rune, 600)
	for i := range long {
		long[i] = 'é'
	}
	assert.Len(t, []rune(Truncate(string(long))), MaxMessageLength)
}

func TestNextID(t *testing.T) {
	assert.Equal(t, "F1", NextID(0))
	assert.Equal(t, "F12", NextID(11))
}
