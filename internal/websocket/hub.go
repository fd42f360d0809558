package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"brfsspulse/internal/infrastructure"
	"brfsspulse/pkg/contracts/events"
)

// ErrorRecoveryHints provides user-facing recovery suggestions keyed by
// error code. Codes match the API error taxonomy.
var ErrorRecoveryHints = map[string]string{
	"SOURCE_NOT_FOUND":    "Check that the survey file exists under the raw data directory",
	"UNPROCESSABLE_INPUT": "Verify the survey file has a header row and at least one decodable record",
	"RUN_FAILED":          "Inspect the validation report artifact for rejected row details",
	"default":             "Please try again or contact support",
}

// Hub maintains the set of active clients and broadcasts run status frames
// to them. It implements pipeline.EventHub.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound frames awaiting fan-out
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Logger instance
	logger *slog.Logger

	// Counters
	totalConnections  int64
	activeConnections int64
	messagesSent      int64
	messagesReceived  int64
	connectionErrors  int64

	// Control
	quit        chan struct{}
	running     bool
	metricsQuit chan struct{}
}

// NewHub creates a new Hub instance with dependency injection
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.hub"))

	return &Hub{
		broadcast:   make(chan []byte),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		clients:     make(map[*Client]bool),
		logger:      logger,
		quit:        make(chan struct{}),
		metricsQuit: make(chan struct{}),
	}
}

// Start starts the hub's goroutines
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
	go h.reportMetrics()
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.totalConnections++
			h.activeConnections = int64(count)
			h.mu.Unlock()

			ctx := context.Background()
			if client.traceID != "" {
				ctx = infrastructure.WithTraceID(ctx, client.traceID)
			}

			h.logger.InfoContext(ctx, "client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			GetMetrics().RecordConnection()
			if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
				otelMetrics.RecordConnection(ctx, client.id, client.remoteAddr)
				otelMetrics.RecordClientCount(ctx, int64(count))
			}

			// Greet the new client so the dashboard knows the stream is live.
			frame, err := events.NewFrame(uuid.New().String(), events.MessageTypeConnection, events.ConnectionEvent{
				Status:   "connected",
				ClientID: client.id,
				Message:  "connected to run status stream",
			})
			if err == nil {
				if data, merr := json.Marshal(frame); merr == nil {
					select {
					case client.send <- data:
						h.logger.DebugContext(ctx, "sent connection frame to client",
							slog.String("client_id", client.id))
					default:
						h.logger.WarnContext(ctx, "connection frame dropped, client buffer full",
							slog.String("client_id", client.id))
					}
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				count := len(h.clients)
				h.activeConnections = int64(count)
				h.mu.Unlock()

				ctx := context.Background()
				if client.traceID != "" {
					ctx = infrastructure.WithTraceID(ctx, client.traceID)
				}

				h.logger.InfoContext(ctx, "client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))

				GetMetrics().RecordDisconnection(time.Since(client.connectedAt))
				if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
					otelMetrics.RecordDisconnection(ctx, client.id, time.Since(client.connectedAt), "normal")
					otelMetrics.RecordClientCount(ctx, int64(count))
				}
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			successCount := 0
			failCount := 0

			for _, client := range clients {
				select {
				case client.send <- message:
					successCount++
				default:
					// A full buffer means the client stopped reading.
					failCount++
					h.mu.Lock()
					close(client.send)
					delete(h.clients, client)
					h.mu.Unlock()

					GetMetrics().RecordDroppedMessage()
					ctx := context.Background()
					if client.traceID != "" {
						ctx = infrastructure.WithTraceID(ctx, client.traceID)
					}
					if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
						otelMetrics.RecordDroppedMessage(ctx, "broadcast", "buffer_full")
					}
					h.logger.WarnContext(ctx, "client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}

			h.mu.Lock()
			h.messagesSent += int64(successCount)
			h.mu.Unlock()

			h.logger.Debug("broadcast delivered",
				slog.Int("client_count", len(clients)),
				slog.Int("message_size", len(message)),
				slog.Int("fail_count", failCount))

			if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
				otelMetrics.RecordBroadcast(context.Background(), "broadcast",
					int64(len(clients)), int64(successCount), int64(failCount))
			}
		}
	}
}

// BroadcastUpdate wraps the payload in a protocol frame and fans it out to
// every connected client. It is the pipeline.EventHub implementation: run
// status snapshots arrive here with the transition as the event type.
func (h *Hub) BroadcastUpdate(eventType, stage, status string, metadata interface{}) {
	frame, err := events.NewFrame(uuid.New().String(), events.MessageType(eventType), metadata)
	if err != nil {
		h.logger.Error("error building broadcast frame",
			slog.String("error", err.Error()),
			slog.String("event_type", eventType))
		return
	}

	h.logger.Debug("broadcasting run update",
		slog.String("event_type", eventType),
		slog.String("stage", stage),
		slog.String("status", status))

	if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
		otelMetrics.RecordRunEvent(context.Background(), eventType, stage, status)
	}

	h.broadcastFrame(frame)
}

// Broadcast implements the services hub interface for one-off events
func (h *Hub) Broadcast(messageType string, data interface{}) {
	h.BroadcastUpdate(messageType, "", "", data)
}

// BroadcastError sends a structured error frame with a recovery hint
func (h *Hub) BroadcastError(code, message, stage string, recoverable bool) {
	hint := ErrorRecoveryHints[code]
	if hint == "" {
		hint = ErrorRecoveryHints["default"]
	}

	frame, err := events.NewFrame(uuid.New().String(), events.MessageTypeError, events.ErrorEvent{
		Code:        code,
		Message:     message,
		Stage:       stage,
		Recoverable: recoverable,
		Hint:        hint,
	})
	if err != nil {
		h.logger.Error("error building error frame", slog.String("error", err.Error()))
		return
	}

	h.broadcastFrame(frame)
}

// BroadcastRefresh tells clients which dashboard components to refetch
// after a run replaces the published artifacts
func (h *Hub) BroadcastRefresh(source string, components []string) {
	frame, err := events.NewFrame(uuid.New().String(), events.MessageTypeDataUpdate, events.DataUpdateEvent{
		Source:     source,
		Components: components,
	})
	if err != nil {
		h.logger.Error("error building refresh frame", slog.String("error", err.Error()))
		return
	}

	h.broadcastFrame(frame)
}

// broadcastFrame marshals a frame and hands it to the fan-out loop
func (h *Hub) broadcastFrame(frame events.Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("error marshaling frame",
			slog.String("error", err.Error()),
			slog.String("frame_type", string(frame.Type)))
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop gracefully stops the hub
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	close(h.metricsQuit)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// reportMetrics periodically reports hub metrics
func (h *Hub) reportMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.metricsQuit:
			h.logger.Info("metrics reporting shutting down")
			return

		case <-ticker.C:
			h.mu.RLock()
			activeClients := len(h.clients)
			totalConnections := h.totalConnections
			messagesSent := h.messagesSent
			messagesReceived := h.messagesReceived
			h.mu.RUnlock()

			queueDepth := int64(len(h.broadcast))
			GetMetrics().RecordQueueDepth(queueDepth)
			if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
				ctx := context.Background()
				otelMetrics.RecordQueueDepth(ctx, queueDepth, "broadcast")
				otelMetrics.RecordClientCount(ctx, int64(activeClients))
			}

			h.logger.Info("websocket hub metrics",
				slog.Int("active_clients", activeClients),
				slog.Int64("total_connections", totalConnections),
				slog.Int64("messages_sent", messagesSent),
				slog.Int64("messages_received", messagesReceived),
				slog.Int64("broadcast_queue", queueDepth),
			)
		}
	}
}

// GetHubMetrics returns current hub metrics
func (h *Hub) GetHubMetrics() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"messages_received": h.messagesReceived,
		"connection_errors": h.connectionErrors,
	}
}
