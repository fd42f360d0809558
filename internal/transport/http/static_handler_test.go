package http

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeDashboard(t *testing.T) {
	t.Run("serves installed bundle", func(t *testing.T) {
		webDir := t.TempDir()
		page := `<!DOCTYPE html><html><body><h1>BRFSS Dashboard</h1></body></html>`
		require.NoError(t, os.WriteFile(filepath.Join(webDir, "index.html"), []byte(page), 0o644))

		req := httptest.NewRequest("GET", "/", nil)
		rec := httptest.NewRecorder()

		ServeDashboard(webDir)(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "BRFSS Dashboard")
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})

	t.Run("falls back to status page", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		rec := httptest.NewRecorder()

		ServeDashboard(t.TempDir())(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "BRFSS Health Analytics")
		assert.Contains(t, rec.Body.String(), "/api/health")
	})
}

func TestServeStatic(t *testing.T) {
	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "app.js"), []byte("console.log('ready')"), 0o644))

	req := httptest.NewRequest("GET", "/static/app.js", nil)
	rec := httptest.NewRecorder()

	ServeStatic(staticDir).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "console.log")
}
