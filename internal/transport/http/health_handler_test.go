package http

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brfsspulse/internal/config"
	"brfsspulse/internal/services"
	ws "brfsspulse/internal/websocket"
)

func newTestHealthHandler(t *testing.T) *HealthHandler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	paths := config.PathsAt(t.TempDir())
	require.NoError(t, os.MkdirAll(paths.RawDir, 0o755))
	require.NoError(t, os.MkdirAll(paths.OutputDir, 0o755))

	analytics := services.NewAnalyticsServiceWithPaths(config.Default(), paths, logger)
	hub := ws.NewHub(logger)
	service := services.NewHealthService("1.0.0-test", paths, analytics, hub, logger)

	return NewHealthHandler(service, logger)
}

func TestHealthHandler_Summary(t *testing.T) {
	handler := newTestHealthHandler(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()

	handler.Summary(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"result_loaded":false`)
}

func TestHealthHandler_LivenessCheck(t *testing.T) {
	handler := newTestHealthHandler(t)

	req := httptest.NewRequest("GET", "/api/health/live", nil)
	rec := httptest.NewRecorder()

	handler.LivenessCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alive"`)
}

func TestHealthHandler_ReadinessCheck(t *testing.T) {
	handler := newTestHealthHandler(t)

	req := httptest.NewRequest("GET", "/api/health/ready", nil)
	rec := httptest.NewRecorder()

	handler.ReadinessCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready"`)
	assert.Contains(t, rec.Body.String(), `"websocket"`)
}

func TestHealthHandler_Version(t *testing.T) {
	handler := newTestHealthHandler(t)

	req := httptest.NewRequest("GET", "/api/version", nil)
	rec := httptest.NewRecorder()

	handler.Version(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1.0.0-test")
}

func TestHealthHandler_SystemStats(t *testing.T) {
	handler := newTestHealthHandler(t)

	req := httptest.NewRequest("GET", "/api/health/stats", nil)
	rec := httptest.NewRecorder()

	handler.SystemStats(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"websocket_clients":0`)
	assert.Contains(t, rec.Body.String(), `"result_loaded":false`)
}

func TestHealthHandler_DetailedHealth(t *testing.T) {
	handler := newTestHealthHandler(t)

	req := httptest.NewRequest("GET", "/api/health/detailed", nil)
	rec := httptest.NewRecorder()

	handler.DetailedHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"liveness"`)
	assert.Contains(t, rec.Body.String(), `"stats"`)
}
