package hook

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInput(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		in, err := DecodeInput(strings.NewReader(`{"hook_event_name":"Stop","session_id":"abc","lastAssistantMessage":"done","stop_hook_active":true}`))
		require.NoError(t, err)
		assert.Equal(t, "Stop", in.HookEventName)
		assert.Equal(t, "abc", in.SessionID)
		assert.Equal(t, "done", in.LastAssistantMessage)
		assert.True(t, in.StopHookActive)
		assert.Equal(t, "\ndone", in.Text())
	})

	for name, body := range map[string]string{
		"empty":     "",
		"garbage":   "not json",
		"array":     `["x"]`,
		"truncated": `{"transcript": "abc`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeInput(strings.NewReader(body))
			assert.ErrorIs(t, err, ErrUnparseable)
		})
	}
}

func TestUnparseableDecisionEncoding(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, UnparseableDecision().Encode(&buf))
	assert.JSONEq(t, `{"decision":"allow","reason":"","outcome":"unparseable"}`, buf.String())
}

func TestFindMarker(t *testing.T) {
	m := DefaultMarkers()

	got, ok := findMarker("all good\n## WORKFLOW_COMPLETE", m.Completion)
	require.True(t, ok)
	assert.Equal(t, "WORKFLOW_COMPLETE", got, "first listed marker wins")

	_, ok = findMarker("workflow_complete", m.Completion)
	assert.False(t, ok, "markers are case sensitive")

	got, ok = findMarker("BLOCKER: missing credentials", m.Escalation)
	require.True(t, ok)
	assert.Equal(t, "BLOCKER:", got)
}
