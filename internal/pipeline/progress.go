package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"brfsspulse/pkg/contracts/events"
)

// EventHub receives run status updates. The websocket hub implements it.
type EventHub interface {
	BroadcastUpdate(eventType, stage, status string, metadata interface{})
}

// StatusBroadcaster is the single authority for run status updates. It keeps
// the complete state of every run and broadcasts whole snapshots so clients
// never have to stitch partial updates together. The event type names the
// transition; the payload is always the full snapshot.
type StatusBroadcaster struct {
	mu     sync.RWMutex
	runs   map[string]*RunSnapshot
	hub    EventHub
	logger *slog.Logger
}

// RunSnapshot is the complete state of a run at a point in time
type RunSnapshot struct {
	RunID       string          `json:"run_id"`
	Status      string          `json:"status"` // pending|running|completed|degraded|failed
	RawRows     int             `json:"raw_rows"`
	CurrentStage string         `json:"current_stage,omitempty"`
	Stages      []StageSnapshot `json:"stages"`
	StartedAt   time.Time       `json:"started_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// StageSnapshot is the state of a single stage within a run
type StageSnapshot struct {
	Name       string  `json:"name"`
	Status     string  `json:"status"` // pending|running|completed|failed
	DurationMS int64   `json:"duration_ms,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// NewStatusBroadcaster creates a broadcaster publishing to the given hub
func NewStatusBroadcaster(hub EventHub, logger *slog.Logger) *StatusBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusBroadcaster{
		runs:   make(map[string]*RunSnapshot),
		hub:    hub,
		logger: logger,
	}
}

// RunStarted registers a new run and broadcasts its initial snapshot
func (sb *StatusBroadcaster) RunStarted(runID string, rawRows int) {
	if sb == nil {
		return
	}
	sb.update(runID, events.MessageTypeRunStarted, func(s *RunSnapshot) {
		s.Status = "running"
		s.RawRows = rawRows
	})
}

// StageStarted marks a stage as running
func (sb *StatusBroadcaster) StageStarted(runID, stage string) {
	if sb == nil {
		return
	}
	sb.update(runID, events.MessageTypeStageStarted, func(s *RunSnapshot) {
		s.CurrentStage = stage
		s.stage(stage).Status = "running"
	})
}

// StageCompleted marks a stage as completed with its duration
func (sb *StatusBroadcaster) StageCompleted(runID, stage string, duration time.Duration) {
	if sb == nil {
		return
	}
	sb.update(runID, events.MessageTypeStageCompleted, func(s *RunSnapshot) {
		st := s.stage(stage)
		st.Status = "completed"
		st.DurationMS = duration.Milliseconds()
	})
}

// StageFailed marks a stage as failed
func (sb *StatusBroadcaster) StageFailed(runID, stage string, err error) {
	if sb == nil {
		return
	}
	sb.update(runID, events.MessageTypeStageFailed, func(s *RunSnapshot) {
		st := s.stage(stage)
		st.Status = "failed"
		if err != nil {
			st.Error = err.Error()
		}
	})
}

// RunCompleted marks a run as finished, degraded or not
func (sb *StatusBroadcaster) RunCompleted(runID string, degraded bool) {
	if sb == nil {
		return
	}
	sb.update(runID, events.MessageTypeRunCompleted, func(s *RunSnapshot) {
		s.Status = "completed"
		if degraded {
			s.Status = "degraded"
		}
		s.CurrentStage = ""
		now := time.Now()
		s.CompletedAt = &now
	})
}

// RunFailed marks a run as failed with its terminal error
func (sb *StatusBroadcaster) RunFailed(runID string, err error) {
	if sb == nil {
		return
	}
	sb.update(runID, events.MessageTypeRunFailed, func(s *RunSnapshot) {
		s.Status = "failed"
		s.CurrentStage = ""
		if err != nil {
			s.Error = err.Error()
		}
		now := time.Now()
		s.CompletedAt = &now
	})
}

// GetSnapshot returns a copy of the current snapshot for a run
func (sb *StatusBroadcaster) GetSnapshot(runID string) (RunSnapshot, bool) {
	if sb == nil {
		return RunSnapshot{}, false
	}
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	snapshot, ok := sb.runs[runID]
	if !ok {
		return RunSnapshot{}, false
	}
	copied := *snapshot
	copied.Stages = append([]StageSnapshot(nil), snapshot.Stages...)
	return copied, true
}

// update applies a mutation under the lock and broadcasts the new snapshot.
// Updates are serialized by the lock, so clients observe them in order.
func (sb *StatusBroadcaster) update(runID string, eventType events.MessageType, fn func(*RunSnapshot)) {
	sb.mu.Lock()

	snapshot, ok := sb.runs[runID]
	if !ok {
		snapshot = &RunSnapshot{
			RunID:     runID,
			Status:    "pending",
			StartedAt: time.Now(),
		}
		sb.runs[runID] = snapshot
	}

	fn(snapshot)
	snapshot.UpdatedAt = time.Now()

	copied := *snapshot
	copied.Stages = append([]StageSnapshot(nil), snapshot.Stages...)
	sb.mu.Unlock()

	if sb.hub != nil {
		sb.hub.BroadcastUpdate(string(eventType), copied.CurrentStage, copied.Status, copied)
	}
}

// stage returns the snapshot for a named stage, creating it on first use
func (s *RunSnapshot) stage(name string) *StageSnapshot {
	for i := range s.Stages {
		if s.Stages[i].Name == name {
			return &s.Stages[i]
		}
	}
	s.Stages = append(s.Stages, StageSnapshot{Name: name, Status: "pending"})
	return &s.Stages[len(s.Stages)-1]
}
