package http

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"brfsspulse/internal/config"
	apierrors "brfsspulse/internal/errors"
	"brfsspulse/internal/files"
	"brfsspulse/internal/middleware"
)

// FilesHandler serves run artifacts and the survey sources available for
// a run
type FilesHandler struct {
	manager      *files.Manager
	discovery    *files.Discovery
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewFilesHandler creates a files handler rooted at the application paths
func NewFilesHandler(paths *config.Paths, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *FilesHandler {
	return &FilesHandler{
		manager:      files.NewManager(paths, logger),
		discovery:    files.NewDiscovery(paths.RawDir, logger),
		logger:       logger.With(slog.String("component", "files_handler")),
		errorHandler: errorHandler,
	}
}

// ArtifactRoutes sets up the artifact listing and download routes
func (h *FilesHandler) ArtifactRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListArtifacts)
	r.Get("/{name}", h.DownloadArtifact)
	return r
}

// ListArtifacts handles GET /api/artifacts
func (h *FilesHandler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	artifacts, err := h.manager.ListArtifacts()
	if err != nil {
		h.logger.ErrorContext(ctx, "artifact listing failed",
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.FileSystemError("list artifacts", err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   artifacts,
		"count":  len(artifacts),
	})
}

// DownloadArtifact handles GET /api/artifacts/{name}. The file streams out
// with an attachment disposition so browsers save it under its run name.
func (h *FilesHandler) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	file, info, err := h.manager.OpenArtifact(name)
	if err != nil {
		h.handleArtifactError(w, r, name, err)
		return
	}
	defer file.Close()

	h.logger.InfoContext(ctx, "artifact download",
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.String("name", info.Name),
		slog.Int64("size", info.SizeBytes))

	w.Header().Set("Content-Disposition", `attachment; filename="`+info.Name+`"`)
	http.ServeContent(w, r, info.Name, info.ModifiedAt, file)
}

// ListSources handles GET /api/sources
func (h *FilesHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sources, err := h.discovery.ListSurveySources()
	if err != nil {
		h.logger.ErrorContext(ctx, "source listing failed",
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.FileSystemError("list sources", err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   sources,
		"count":  len(sources),
	})
}

// handleArtifactError maps artifact failures onto API errors
func (h *FilesHandler) handleArtifactError(w http.ResponseWriter, r *http.Request, name string, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, "artifact request failed",
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.String("name", name),
		slog.String("error", err.Error()))

	switch {
	case errors.Is(err, files.ErrInvalidName):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("name", err.Error()))
	case errors.Is(err, fs.ErrNotExist):
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("artifact"))
	default:
		h.errorHandler.HandleError(w, r, apierrors.FileSystemError("open artifact", err))
	}
}
