package http

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brfsspulse/internal/config"
	apierrors "brfsspulse/internal/errors"
)

// newTestFilesRouter mounts the files handler the way the application does
func newTestFilesRouter(t *testing.T) (chi.Router, *config.Paths) {
	t.Helper()
	paths := config.PathsAt(t.TempDir())
	require.NoError(t, paths.EnsureDirectories())

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	handler := NewFilesHandler(paths, logger, apierrors.NewErrorHandler(logger, false))

	r := chi.NewRouter()
	r.Mount("/api/artifacts", handler.ArtifactRoutes())
	r.Get("/api/sources", handler.ListSources)
	return r, paths
}

func TestFilesHandler_ListArtifacts(t *testing.T) {
	t.Run("lists output files", func(t *testing.T) {
		router, paths := newTestFilesRouter(t)
		require.NoError(t, os.WriteFile(paths.StateSummaryCSV, []byte("state,mean\n"), 0644))
		require.NoError(t, os.WriteFile(paths.DashboardJSON, []byte(`{"states":[]}`), 0644))

		req := httptest.NewRequest("GET", "/api/artifacts", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"count":2`)
		assert.Contains(t, rec.Body.String(), "state_summary.csv")
		assert.Contains(t, rec.Body.String(), "state_health_data.json")
	})

	t.Run("empty before the first run", func(t *testing.T) {
		router, _ := newTestFilesRouter(t)

		req := httptest.NewRequest("GET", "/api/artifacts", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"count":0`)
	})
}

func TestFilesHandler_DownloadArtifact(t *testing.T) {
	t.Run("streams the file as an attachment", func(t *testing.T) {
		router, paths := newTestFilesRouter(t)
		require.NoError(t, os.WriteFile(paths.CorrelationCSV, []byte("metric_a,metric_b,r\n"), 0644))

		req := httptest.NewRequest("GET", "/api/artifacts/correlation_matrix.csv", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `attachment; filename="correlation_matrix.csv"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "metric_a,metric_b,r\n", rec.Body.String())
	})

	t.Run("missing artifact returns a not found problem", func(t *testing.T) {
		router, _ := newTestFilesRouter(t)

		req := httptest.NewRequest("GET", "/api/artifacts/missing.csv", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "NOT_FOUND")
	})

	t.Run("hidden name is rejected", func(t *testing.T) {
		router, paths := newTestFilesRouter(t)
		require.NoError(t, os.WriteFile(filepath.Join(paths.OutputDir, ".staging"), []byte("partial"), 0644))

		req := httptest.NewRequest("GET", "/api/artifacts/.staging", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NotContains(t, rec.Body.String(), "partial")
	})

	t.Run("traversal does not escape the output directory", func(t *testing.T) {
		router, paths := newTestFilesRouter(t)
		secret := filepath.Join(paths.DataDir, "secret.txt")
		require.NoError(t, os.WriteFile(secret, []byte("top-secret"), 0644))

		req := httptest.NewRequest("GET", "/api/artifacts/..%2Fsecret.txt", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.NotEqual(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "top-secret")
	})
}

func TestFilesHandler_ListSources(t *testing.T) {
	t.Run("lists loadable extracts", func(t *testing.T) {
		router, paths := newTestFilesRouter(t)
		require.NoError(t, os.WriteFile(filepath.Join(paths.RawDir, "brfss_2024.csv"), []byte("year,state\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(paths.RawDir, "notes.txt"), []byte("n"), 0644))

		req := httptest.NewRequest("GET", "/api/sources", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"count":1`)
		assert.Contains(t, rec.Body.String(), "brfss_2024.csv")
		assert.NotContains(t, rec.Body.String(), "notes.txt")
	})

	t.Run("empty raw directory", func(t *testing.T) {
		router, _ := newTestFilesRouter(t)

		req := httptest.NewRequest("GET", "/api/sources", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"count":0`)
	})
}
