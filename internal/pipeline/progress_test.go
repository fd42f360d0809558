package pipeline

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHub captures broadcast updates for assertions
type recordingHub struct {
	mu      sync.Mutex
	updates []hubUpdate
}

type hubUpdate struct {
	eventType string
	stage     string
	status    string
	snapshot  RunSnapshot
}

func (h *recordingHub) BroadcastUpdate(eventType, stage, status string, metadata interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	update := hubUpdate{eventType: eventType, stage: stage, status: status}
	if snapshot, ok := metadata.(RunSnapshot); ok {
		update.snapshot = snapshot
	}
	h.updates = append(h.updates, update)
}

func (h *recordingHub) all() []hubUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]hubUpdate(nil), h.updates...)
}

func (h *recordingHub) last() hubUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.updates[len(h.updates)-1]
}

func TestStatusBroadcasterLifecycle(t *testing.T) {
	hub := &recordingHub{}
	sb := NewStatusBroadcaster(hub, testLogger())

	sb.RunStarted("run-1", 100)
	sb.StageStarted("run-1", StageValidate)
	sb.StageCompleted("run-1", StageValidate, 25*time.Millisecond)
	sb.StageStarted("run-1", StageClean)
	sb.StageCompleted("run-1", StageClean, 10*time.Millisecond)
	sb.RunCompleted("run-1", false)

	updates := hub.all()
	require.Len(t, updates, 6)

	t.Run("every update carries the full snapshot", func(t *testing.T) {
		wantTypes := []string{
			"run_started",
			"stage_started",
			"stage_completed",
			"stage_started",
			"stage_completed",
			"run_completed",
		}
		for i, u := range updates {
			assert.Equal(t, wantTypes[i], u.eventType)
			assert.Equal(t, "run-1", u.snapshot.RunID)
		}
	})

	t.Run("run transitions to completed", func(t *testing.T) {
		first := updates[0]
		assert.Equal(t, "running", first.status)
		assert.Equal(t, 100, first.snapshot.RawRows)

		last := hub.last()
		assert.Equal(t, "completed", last.status)
		require.NotNil(t, last.snapshot.CompletedAt)
	})

	t.Run("stages accumulate in order", func(t *testing.T) {
		last := hub.last()
		require.Len(t, last.snapshot.Stages, 2)
		assert.Equal(t, StageValidate, last.snapshot.Stages[0].Name)
		assert.Equal(t, "completed", last.snapshot.Stages[0].Status)
		assert.Equal(t, int64(25), last.snapshot.Stages[0].DurationMS)
		assert.Equal(t, StageClean, last.snapshot.Stages[1].Name)
	})
}

func TestStatusBroadcasterDegradedAndFailed(t *testing.T) {
	t.Run("degraded run", func(t *testing.T) {
		hub := &recordingHub{}
		sb := NewStatusBroadcaster(hub, testLogger())

		sb.RunStarted("run-2", 50)
		sb.RunCompleted("run-2", true)

		assert.Equal(t, "degraded", hub.last().status)
	})

	t.Run("failed run records the error", func(t *testing.T) {
		hub := &recordingHub{}
		sb := NewStatusBroadcaster(hub, testLogger())

		sb.RunStarted("run-3", 50)
		sb.StageStarted("run-3", StageClean)
		sb.StageFailed("run-3", StageClean, fmt.Errorf("disk full"))
		sb.RunFailed("run-3", NewStageError(StageClean, fmt.Errorf("disk full")))

		last := hub.last()
		assert.Equal(t, "run_failed", last.eventType)
		assert.Equal(t, "failed", last.status)
		assert.Contains(t, last.snapshot.Error, "clean")
		require.Len(t, last.snapshot.Stages, 1)
		assert.Equal(t, "failed", last.snapshot.Stages[0].Status)
		assert.Equal(t, "disk full", last.snapshot.Stages[0].Error)
	})
}

func TestGetSnapshot(t *testing.T) {
	hub := &recordingHub{}
	sb := NewStatusBroadcaster(hub, testLogger())

	sb.RunStarted("run-4", 10)
	sb.StageStarted("run-4", StageValidate)

	snapshot, ok := sb.GetSnapshot("run-4")
	require.True(t, ok)
	assert.Equal(t, "running", snapshot.Status)
	assert.Equal(t, StageValidate, snapshot.CurrentStage)

	t.Run("returned snapshot is a copy", func(t *testing.T) {
		snapshot.Stages[0].Status = "mutated"
		fresh, ok := sb.GetSnapshot("run-4")
		require.True(t, ok)
		assert.Equal(t, "running", fresh.Stages[0].Status)
	})

	t.Run("unknown run", func(t *testing.T) {
		_, ok := sb.GetSnapshot("missing")
		assert.False(t, ok)
	})
}

func TestNilBroadcasterIsSafe(t *testing.T) {
	var sb *StatusBroadcaster

	assert.NotPanics(t, func() {
		sb.RunStarted("x", 1)
		sb.StageStarted("x", StageValidate)
		sb.StageCompleted("x", StageValidate, time.Millisecond)
		sb.StageFailed("x", StageValidate, fmt.Errorf("e"))
		sb.RunCompleted("x", false)
		sb.RunFailed("x", fmt.Errorf("e"))
		_, ok := sb.GetSnapshot("x")
		assert.False(t, ok)
	})
}

func TestBroadcasterWithoutHub(t *testing.T) {
	sb := NewStatusBroadcaster(nil, testLogger())

	assert.NotPanics(t, func() {
		sb.RunStarted("run-5", 5)
		sb.RunCompleted("run-5", false)
	})

	snapshot, ok := sb.GetSnapshot("run-5")
	require.True(t, ok)
	assert.Equal(t, "completed", snapshot.Status)
}
