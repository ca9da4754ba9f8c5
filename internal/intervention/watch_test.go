package intervention

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarlson/go-wiggum/internal/workflow"
)

func TestWaitForSignal_ReturnsOnSignal(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "workflow-state.json")
	store := workflow.NewFileStore(path)
	require.NoError(t, store.Save(&workflow.Record{Status: workflow.StatusInProgress}))

	gate := NewGate(GateDeps{Store: store})
	_, err := gate.RequestUserFix(ctx, Request{BlockerIndex: -1, Description: "x"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- WaitForSignal(ctx, workflow.NewFileStore(path), path, 10*time.Second)
	}()

	time.Sleep(100 * time.Millisecond)
	_, err = gate.SignalFixComplete(ctx, "")
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(8 * time.Second):
		t.Fatal("WaitForSignal did not return after the fix was signaled")
	}
}

func TestWaitForSignal_AlreadySignaled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflow-state.json")
	store := workflow.NewFileStore(path)
	require.NoError(t, store.Save(&workflow.Record{Status: workflow.StatusInProgress}))

	assert.NoError(t, WaitForSignal(context.Background(), store, path, time.Second))
}

func TestWaitForSignal_Timeout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "workflow-state.json")
	store := workflow.NewFileStore(path)
	require.NoError(t, store.Save(&workflow.Record{Status: workflow.StatusInProgress}))
	_, err := NewGate(GateDeps{Store: store}).RequestUserFix(ctx, Request{BlockerIndex: -1, Description: "x"})
	require.NoError(t, err)

	err = WaitForSignal(ctx, store, path, 200*time.Millisecond)
	assert.ErrorIs(t, err, ErrWaitTimeout)
}
