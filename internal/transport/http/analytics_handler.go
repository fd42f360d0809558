package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "brfsspulse/internal/errors"
	"brfsspulse/internal/middleware"
	"brfsspulse/internal/pipeline"
	"brfsspulse/internal/services"
	"brfsspulse/internal/surveillance"
	api "brfsspulse/pkg/contracts/api/v1"
	"brfsspulse/pkg/contracts/domain"
)

// Query parameter vocabularies, derived from the domain enums so the
// transport layer never drifts from the pipeline.
var (
	metricParams    = metricParamValues()
	stateSortParams = append(metricParamValues(), "name")
	dimensionParams = dimensionParamValues()
)

func metricParamValues() []string {
	metrics := domain.Metrics()
	values := make([]string, len(metrics))
	for i, m := range metrics {
		values[i] = string(m)
	}
	return values
}

func dimensionParamValues() []string {
	dimensions := domain.Dimensions()
	values := make([]string, len(dimensions))
	for i, d := range dimensions {
		values[i] = string(d)
	}
	return values
}

// AnalyticsHandler handles analytics-related HTTP requests
type AnalyticsHandler struct {
	service      AnalyticsServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	params       *middleware.QueryParamValidator
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(service AnalyticsServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalyticsHandler {
	return &AnalyticsHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "analytics_handler")),
		errorHandler: errorHandler,
		params:       middleware.NewQueryParamValidator(logger, errorHandler),
	}
}

// Routes sets up the analytics routes
func (h *AnalyticsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/run", h.StartRun)
	r.Get("/run/status", h.GetRunStatus)

	r.Get("/states", h.GetStates)
	r.Get("/trends", h.GetTrends)
	r.Get("/demographics", h.GetDemographics)
	r.Get("/correlations", h.GetCorrelations)
	r.Get("/quality", h.GetQuality)
	r.Get("/metadata", h.GetMetadata)
	r.Get("/dashboard", h.GetDashboard)

	return r
}

// StartRun handles POST /api/analytics/run. The body is optional; an
// empty body runs the configured source with format auto-detection.
func (h *AnalyticsHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	var req api.RunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			h.logger.WarnContext(ctx, "malformed run request body",
				slog.String("request_id", reqID),
				slog.String("error", err.Error()))
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
	}
	if req.Format != "" && req.Format != "csv" && req.Format != "xlsx" {
		h.errorHandler.HandleError(w, r,
			apierrors.ErrValidation("format", "format must be one of: csv, xlsx"))
		return
	}

	h.logger.InfoContext(ctx, "pipeline run requested",
		slog.String("request_id", reqID),
		slog.String("source", req.Source),
		slog.String("format", req.Format))

	result, err := h.service.Run(ctx, req)
	if err != nil {
		h.handleRunError(w, r, result, err)
		return
	}

	status := "completed"
	if result.Meta.Degraded {
		status = "degraded"
	}
	response := api.RunResponse{
		RunID:     result.Meta.RunID,
		Status:    status,
		Processed: result.Meta.ProcessedRowCount,
		Rejected:  result.Meta.RejectedRowCount,
		Degraded:  result.Meta.Degraded,
		Duration:  (time.Duration(result.Meta.DurationMS) * time.Millisecond).String(),
	}

	h.logger.InfoContext(ctx, "pipeline run finished",
		slog.String("request_id", reqID),
		slog.String("run_id", response.RunID),
		slog.String("status", status),
		slog.Int("processed", response.Processed),
		slog.Int("rejected", response.Rejected))

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   response,
	})
}

// GetRunStatus handles GET /api/analytics/run/status
func (h *AnalyticsHandler) GetRunStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"running": h.service.RunInProgress(),
		},
	})
}

// GetStates handles GET /api/analytics/states
func (h *AnalyticsHandler) GetStates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	sortBy, ok := h.params.ValidateEnum(w, r, "sort_by", stateSortParams, "")
	if !ok {
		return
	}
	limit, ok := h.params.ValidateInt(w, r, "limit", 0, surveillance.StateCount, 0)
	if !ok {
		return
	}

	h.logger.InfoContext(ctx, "state summaries requested",
		slog.String("request_id", reqID),
		slog.String("sort_by", sortBy),
		slog.Int("limit", limit))

	states, err := h.service.States(ctx, api.StatesRequest{SortBy: sortBy, Limit: limit})
	if err != nil {
		h.handleServiceError(w, r, err, "states")
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   states,
		"count":  len(states),
	})
}

// GetTrends handles GET /api/analytics/trends
func (h *AnalyticsHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	metric, ok := h.params.ValidateEnum(w, r, "metric", metricParams, "")
	if !ok {
		return
	}

	h.logger.InfoContext(ctx, "national trends requested",
		slog.String("request_id", reqID),
		slog.String("metric", metric))

	report, err := h.service.Trends(ctx, api.TrendsRequest{Metric: metric})
	if err != nil {
		h.handleServiceError(w, r, err, "trends")
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   report,
		"count":  len(report.Points),
	})
}

// GetDemographics handles GET /api/analytics/demographics
func (h *AnalyticsHandler) GetDemographics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	dimension, ok := h.params.ValidateEnum(w, r, "dimension", dimensionParams, "")
	if !ok {
		return
	}

	h.logger.InfoContext(ctx, "demographic stratification requested",
		slog.String("request_id", reqID),
		slog.String("dimension", dimension))

	summaries, err := h.service.Demographics(ctx, api.DemographicsRequest{Dimension: dimension})
	if err != nil {
		h.handleServiceError(w, r, err, "demographics")
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summaries,
		"count":  len(summaries),
	})
}

// GetCorrelations handles GET /api/analytics/correlations
func (h *AnalyticsHandler) GetCorrelations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	h.logger.InfoContext(ctx, "correlation matrix requested",
		slog.String("request_id", reqID))

	correlations, err := h.service.Correlations(ctx)
	if err != nil {
		h.handleServiceError(w, r, err, "correlations")
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   correlations,
		"count":  len(correlations),
	})
}

// GetQuality handles GET /api/analytics/quality
func (h *AnalyticsHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	h.logger.InfoContext(ctx, "quality report requested",
		slog.String("request_id", reqID))

	report, err := h.service.Quality(ctx)
	if err != nil {
		h.handleServiceError(w, r, err, "quality")
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   report,
	})
}

// GetMetadata handles GET /api/analytics/metadata
func (h *AnalyticsHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	h.logger.InfoContext(ctx, "run metadata requested",
		slog.String("request_id", reqID))

	meta, err := h.service.Metadata(ctx)
	if err != nil {
		h.handleServiceError(w, r, err, "metadata")
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   meta,
	})
}

// GetDashboard handles GET /api/analytics/dashboard. It returns the
// same payload the exporter writes to dashboard.json, assembled from
// the cached result so a running server never serves a stale file.
func (h *AnalyticsHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	h.logger.InfoContext(ctx, "dashboard payload requested",
		slog.String("request_id", reqID))

	payload, err := h.service.Dashboard(ctx)
	if err != nil {
		h.handleServiceError(w, r, err, "dashboard")
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   payload,
	})
}

// handleRunError maps run failures onto API errors. A non-nil result
// alongside an error means the pipeline completed but the artifact
// export failed; the cached result is still queryable.
func (h *AnalyticsHandler) handleRunError(w http.ResponseWriter, r *http.Request, result *pipeline.Result, err error) {
	ctx := r.Context()
	h.logger.ErrorContext(ctx, "pipeline run failed",
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.String("error", err.Error()))

	switch {
	case errors.Is(err, services.ErrRunInProgress):
		h.errorHandler.HandleError(w, r, apierrors.ErrRunInProgress)
	case errors.Is(err, services.ErrSourceNotFound):
		h.errorHandler.HandleError(w, r, apierrors.SourceNotFoundError(err))
	case result != nil:
		h.errorHandler.HandleError(w, r, apierrors.FileSystemError("export", err))
	default:
		// Pipeline errors carry their own type; the error handler maps
		// them to the right status.
		h.errorHandler.HandleError(w, r, err)
	}
}

// handleServiceError maps result-view failures onto API errors
func (h *AnalyticsHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	ctx := r.Context()
	h.logger.ErrorContext(ctx, "analytics query failed",
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.String("operation", operation),
		slog.String("error", err.Error()))

	switch {
	case errors.Is(err, services.ErrNoResult):
		h.errorHandler.HandleError(w, r, apierrors.ErrNoResult)
	case errors.Is(err, services.ErrUnknownMetric):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("metric", err.Error()))
	case errors.Is(err, services.ErrUnknownDimension):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("dimension", err.Error()))
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}
