package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"brfsspulse/internal/infrastructure"
	ws "brfsspulse/internal/websocket"
)

// WebSocketHandler upgrades dashboard connections and hands them to the
// hub, which streams pipeline lifecycle frames to every client.
type WebSocketHandler struct {
	hub            *ws.Hub
	allowedOrigins []string
	permissive     bool
	logger         *slog.Logger
}

// NewWebSocketHandler creates a new websocket handler. An empty origin
// allowlist or a "*" entry makes the origin check permissive, which is
// how development setups run.
func NewWebSocketHandler(hub *ws.Hub, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	permissive := len(allowedOrigins) == 0
	for _, origin := range allowedOrigins {
		if origin == "*" {
			permissive = true
		}
	}
	return &WebSocketHandler{
		hub:            hub,
		allowedOrigins: allowedOrigins,
		permissive:     permissive,
		logger:         logger.With(slog.String("component", "websocket_handler")),
	}
}

// HandleWebSocket handles GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// The trace middleware may not have run for raw upgrade requests
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}

	ctx := infrastructure.WithTraceID(r.Context(), reqID)
	h.logger.InfoContext(ctx, "WebSocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")),
		slog.String("host", r.Host),
		slog.String("user_agent", r.UserAgent()))

	origin := r.Header.Get("Origin")
	if origin == "" {
		// Missing Origin happens with file:// dashboards and CLI clients
		origin = fmt.Sprintf("http://%s", r.Host)
	}

	// CORS headers must be set before the upgrade writes its response
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Credentials", "true")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

	upgrader := websocket.Upgrader{
		CheckOrigin:     h.checkOrigin(ctx),
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.logger.ErrorContext(ctx, "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader's Error hook already wrote the HTTP response
		h.logger.ErrorContext(ctx, "WebSocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("origin", origin))
		if metrics := ws.GetOTelMetrics(); metrics != nil {
			metrics.RecordConnectionError(ctx, reqID, "upgrade_failed", err)
		}
		return
	}

	client := ws.NewClientWithTrace(h.hub, conn, reqID, h.logger)
	h.hub.Register(client)

	h.logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", reqID))

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.ErrorContext(ctx, "WebSocket write pump panic",
					slog.Any("panic", rec),
					slog.String("request_id", reqID))
			}
		}()
		client.WritePump()
	}()

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.ErrorContext(ctx, "WebSocket read pump panic",
					slog.Any("panic", rec),
					slog.String("request_id", reqID))
			}
		}()
		client.ReadPump()
	}()
}

func (h *WebSocketHandler) checkOrigin(ctx context.Context) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// Same-origin and non-browser clients send no Origin header
		if origin == "" {
			return true
		}

		if h.permissive {
			h.logger.DebugContext(ctx, "WebSocket origin check - permissive mode, allowing",
				slog.String("origin", origin))
			return true
		}

		for _, allowed := range h.allowedOrigins {
			if origin == allowed {
				return true
			}
		}

		h.logger.WarnContext(ctx, "WebSocket origin check - origin not allowed",
			slog.String("origin", origin),
			slog.Any("allowed_origins", h.allowedOrigins))
		return false
	}
}
