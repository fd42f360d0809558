// Package events defines the websocket frame protocol pushed to dashboard
// clients. Every run lifecycle frame carries the complete run snapshot, so
// clients render the latest frame instead of stitching partial updates.
package events

import (
	"encoding/json"
	"time"
)

// Protocol version
const (
	ProtocolVersion = "1.0"
	ProtocolName    = "brfsspulse-websocket-protocol"
)

// MessageType identifies the payload carried by a frame.
type MessageType string

const (
	// Run lifecycle frames. Payload is always a RunStatusEvent.
	MessageTypeRunStarted     MessageType = "run_started"
	MessageTypeStageStarted   MessageType = "stage_started"
	MessageTypeStageCompleted MessageType = "stage_completed"
	MessageTypeStageFailed    MessageType = "stage_failed"
	MessageTypeRunCompleted   MessageType = "run_completed"
	MessageTypeRunFailed      MessageType = "run_failed"

	// Hub frames.
	MessageTypeConnection MessageType = "connection"
	MessageTypeDataUpdate MessageType = "data_update"
	MessageTypeError      MessageType = "error"
)

// Frame is the envelope for every message pushed over the socket.
type Frame struct {
	Version   string          `json:"version"`
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewFrame wraps a payload in an envelope. Marshal errors are surfaced so
// callers never broadcast half-built frames.
func NewFrame(id string, t MessageType, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Version:   ProtocolVersion,
		ID:        id,
		Type:      t,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// RunStatusEvent is the complete state of a pipeline run. The frame type
// names the transition that produced it; the event itself is always whole.
type RunStatusEvent struct {
	RunID        string        `json:"run_id"`
	Status       string        `json:"status"` // pending|running|completed|degraded|failed
	RawRows      int           `json:"raw_rows"`
	CurrentStage string        `json:"current_stage,omitempty"`
	Stages       []StageStatus `json:"stages"`
	StartedAt    time.Time     `json:"started_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// StageStatus is the state of one pipeline stage within a run.
type StageStatus struct {
	Name       string `json:"name"`
	Status     string `json:"status"` // pending|running|completed|failed
	DurationMS int64  `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ConnectionEvent greets a newly registered client.
type ConnectionEvent struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
	Message  string `json:"message,omitempty"`
}

// DataUpdateEvent tells clients which dashboard components should refetch
// after a run replaces the published artifacts.
type DataUpdateEvent struct {
	Source     string   `json:"source"`
	Components []string `json:"components,omitempty"`
}

// ErrorEvent carries an operator-facing error with a recovery hint.
type ErrorEvent struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Stage       string `json:"stage,omitempty"`
	Recoverable bool   `json:"recoverable"`
	Hint        string `json:"hint,omitempty"`
}
