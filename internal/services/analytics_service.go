package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"brfsspulse/internal/config"
	"brfsspulse/internal/exporter"
	"brfsspulse/internal/ingest"
	"brfsspulse/internal/pipeline"
	"brfsspulse/internal/surveillance"
	"brfsspulse/internal/validation"
	api "brfsspulse/pkg/contracts/api/v1"
	"brfsspulse/pkg/contracts/domain"
)

// EventBroadcaster pushes out-of-band notifications to dashboard clients.
// The websocket hub satisfies it; a nil broadcaster disables notifications.
type EventBroadcaster interface {
	BroadcastRefresh(source string, components []string)
	BroadcastError(code, message, stage string, recoverable bool)
}

// refreshComponents names the read endpoints whose data changes after a run
var refreshComponents = []string{
	"states", "trends", "demographics", "correlations", "quality", "metadata",
}

// AnalyticsService runs the surveillance pipeline and serves the latest
// result to the read API. One run executes at a time; a failed run leaves
// the previous result in place.
type AnalyticsService struct {
	cfg       *config.Config
	paths     *config.Paths
	runner    *pipeline.Runner
	exporter  *exporter.Exporter
	validator *validation.FileValidator
	events    EventBroadcaster
	logger    *slog.Logger

	mu      sync.RWMutex
	latest  *pipeline.Result
	running bool
}

// NewAnalyticsService creates the service with paths resolved from the
// executable location.
func NewAnalyticsService(cfg *config.Config, logger *slog.Logger) (*AnalyticsService, error) {
	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	return NewAnalyticsServiceWithPaths(cfg, paths, logger), nil
}

// NewAnalyticsServiceWithPaths creates the service rooted at the given
// paths. Nil config and logger fall back to defaults.
func NewAnalyticsServiceWithPaths(cfg *config.Config, paths *config.Paths, logger *slog.Logger) *AnalyticsService {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "analytics_service"))

	logger.Info("AnalyticsService initialized with paths",
		slog.String("raw_dir", paths.RawDir),
		slog.String("output_dir", paths.OutputDir),
		slog.String("source", cfg.Ingest.Source))

	return &AnalyticsService{
		cfg:       cfg,
		paths:     paths,
		runner:    pipeline.NewRunner(pipelineConfigFrom(cfg), logger),
		exporter:  exporter.NewExporter(paths, logger),
		validator: validation.NewFileValidator(logger),
		logger:    logger,
	}
}

// pipelineConfigFrom translates the application configuration into stage
// parameters
func pipelineConfigFrom(cfg *config.Config) *pipeline.Config {
	p := cfg.Pipeline
	return &pipeline.Config{
		Validation: &surveillance.ValidationParams{
			MinYear: p.MinYear,
			MaxYear: p.MaxYear,
		},
		Cleaning: &surveillance.CleaningParams{
			OutlierMultiplier: p.OutlierMultiplier,
			MinGroupSize:      p.OutlierMinGroup,
		},
		Aggregation: &surveillance.AggregationParams{
			PrimaryMetric: domain.Metric(p.PrimaryMetric),
		},
		Correlation: &surveillance.CorrelationParams{
			UseLatest: p.CorrelationUseLatest,
			MinPoints: p.MinCorrelationPoints,
		},
		Quality: &surveillance.QualityParams{
			MaxRejectionRate: p.MaxRejectionRate,
			RequiredStates:   surveillance.StateCount,
		},
		Timeout: p.Timeout,
	}
}

// Runner exposes the underlying pipeline runner for event and tracer wiring
func (s *AnalyticsService) Runner() *pipeline.Runner {
	return s.runner
}

// SetEventBroadcaster wires dashboard notifications to the given broadcaster
func (s *AnalyticsService) SetEventBroadcaster(events EventBroadcaster) {
	s.events = events
}

// Run executes one pipeline run over the requested source file, caches the
// result and writes the output artifacts. Only one run executes at a time;
// concurrent requests get ErrRunInProgress. A failed run keeps the previous
// result; a failed artifact export keeps the new result and returns the
// export error.
func (s *AnalyticsService) Run(ctx context.Context, req api.RunRequest) (*pipeline.Result, error) {
	if !s.beginRun() {
		return nil, ErrRunInProgress
	}
	defer s.endRun()

	source, format := s.resolveSource(req)
	if err := s.validator.ValidateSourceFile(source); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.broadcastError("SOURCE_NOT_FOUND", fmt.Sprintf("survey source not found: %s", source), "", true)
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
		}
		fatal := pipeline.NewFatalInputError("survey source failed validation", err)
		s.notifyRunError(fatal)
		return nil, fatal
	}

	s.logger.InfoContext(ctx, "Pipeline run requested",
		slog.String("source", source),
		slog.String("format", format))

	loader := ingest.NewLoader(&ingest.Options{Format: format, Sheet: s.cfg.Ingest.Sheet}, s.logger)
	rows, report, err := loader.Load(ctx, source)
	if err != nil {
		s.notifyRunError(err)
		return nil, err
	}
	s.logger.InfoContext(ctx, "Source decoded",
		slog.String("source", report.Source),
		slog.Int("rows_decoded", report.RowsDecoded),
		slog.Int("rows_skipped", report.RowsSkipped))

	result, err := s.runner.Run(ctx, rows)
	if err != nil {
		s.notifyRunError(err)
		return nil, err
	}

	s.setLatest(result)

	if err := s.exporter.ExportAll(ctx, result); err != nil {
		s.logger.ErrorContext(ctx, "Artifact export failed",
			slog.String("run_id", result.Meta.RunID),
			slog.String("error", err.Error()))
		s.broadcastError("FILE_SYSTEM_ERROR", "failed to write run artifacts", "export", true)
		return result, fmt.Errorf("failed to export artifacts: %w", err)
	}

	if s.events != nil {
		s.events.BroadcastRefresh(result.Meta.RunID, refreshComponents)
	}
	return result, nil
}

// resolveSource picks the source path and format for a run. Request sources
// are relative to the raw data directory; the configured source resolves
// against the executable directory when relative.
func (s *AnalyticsService) resolveSource(req api.RunRequest) (string, string) {
	source := s.cfg.Ingest.Source
	if req.Source != "" {
		source = s.paths.GetRawPath(req.Source)
	} else if !filepath.IsAbs(source) {
		source = filepath.Join(s.paths.ExecutableDir, source)
	}

	format := s.cfg.Ingest.Format
	if req.Format != "" {
		format = req.Format
	}
	return source, format
}

// Latest returns the cached result of the most recent successful run
func (s *AnalyticsService) Latest(ctx context.Context) (*pipeline.Result, error) {
	return s.snapshot()
}

// RunInProgress reports whether a run is currently executing
func (s *AnalyticsService) RunInProgress() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// LastRun returns the identity and completion time of the cached run
func (s *AnalyticsService) LastRun() (string, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return "", time.Time{}, false
	}
	return s.latest.Meta.RunID, s.latest.Meta.CompletedAt, true
}

// States returns state summaries sorted and truncated per the request.
// An empty sort key keeps the primary-metric descending order the pipeline
// produced; "name" sorts alphabetically; a metric name sorts by that
// metric's mean, descending with name ties ascending.
func (s *AnalyticsService) States(ctx context.Context, req api.StatesRequest) ([]surveillance.StateSummary, error) {
	result, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	out := make([]surveillance.StateSummary, len(result.States))
	copy(out, result.States)

	switch req.SortBy {
	case "":
	case "name":
		sort.Slice(out, func(i, j int) bool { return out[i].State < out[j].State })
	default:
		metric := domain.Metric(req.SortBy)
		if !metric.IsValid() {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, req.SortBy)
		}
		sort.Slice(out, func(i, j int) bool {
			mi, mj := out[i].Metrics[metric].Mean, out[j].Metrics[metric].Mean
			if mi != mj {
				return mi > mj
			}
			return out[i].State < out[j].State
		})
	}

	if req.Limit > 0 && req.Limit < len(out) {
		out = out[:req.Limit]
	}

	s.logger.DebugContext(ctx, "States query served",
		slog.String("sort_by", req.SortBy),
		slog.Int("limit", req.Limit),
		slog.Int("count", len(out)))
	return out, nil
}

// Trends returns the national trend report, reduced to a single metric when
// the request names one
func (s *AnalyticsService) Trends(ctx context.Context, req api.TrendsRequest) (surveillance.TrendReport, error) {
	result, err := s.snapshot()
	if err != nil {
		return surveillance.TrendReport{}, err
	}
	if req.Metric == "" {
		return result.Trends, nil
	}

	metric := domain.Metric(req.Metric)
	if !metric.IsValid() {
		return surveillance.TrendReport{}, fmt.Errorf("%w: %s", ErrUnknownMetric, req.Metric)
	}

	filtered := surveillance.TrendReport{
		Points: make([]surveillance.TrendPoint, len(result.Trends.Points)),
		Trends: make(map[domain.Metric]surveillance.MetricTrend, 1),
	}
	for i, p := range result.Trends.Points {
		filtered.Points[i] = surveillance.TrendPoint{
			Year:       p.Year,
			Records:    p.Records,
			Population: p.Population,
			Values:     map[domain.Metric]float64{metric: p.Values[metric]},
			YoYChange:  map[domain.Metric]*float64{metric: p.YoYChange[metric]},
		}
	}
	if t, ok := result.Trends.Trends[metric]; ok {
		filtered.Trends[metric] = t
	}
	return filtered, nil
}

// Demographics returns the stratification summaries, filtered to one axis
// when the request names one
func (s *AnalyticsService) Demographics(ctx context.Context, req api.DemographicsRequest) ([]surveillance.DimensionSummary, error) {
	result, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if req.Dimension == "" {
		return result.Demographics, nil
	}

	dimension := domain.Dimension(req.Dimension)
	if !dimension.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDimension, req.Dimension)
	}
	for _, summary := range result.Demographics {
		if summary.Dimension == dimension {
			return []surveillance.DimensionSummary{summary}, nil
		}
	}
	return []surveillance.DimensionSummary{}, nil
}

// Correlations returns the cross-metric association results
func (s *AnalyticsService) Correlations(ctx context.Context) ([]surveillance.CorrelationResult, error) {
	result, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return result.Correlations, nil
}

// Quality returns the quality gate report
func (s *AnalyticsService) Quality(ctx context.Context) (surveillance.QualityReport, error) {
	result, err := s.snapshot()
	if err != nil {
		return surveillance.QualityReport{}, err
	}
	return result.Quality, nil
}

// Metadata returns the run accounting metadata
func (s *AnalyticsService) Metadata(ctx context.Context) (pipeline.RunMetadata, error) {
	result, err := s.snapshot()
	if err != nil {
		return pipeline.RunMetadata{}, err
	}
	return result.Meta, nil
}

// Dashboard builds the dashboard payload from the cached result
func (s *AnalyticsService) Dashboard(ctx context.Context) (api.DashboardPayload, error) {
	result, err := s.snapshot()
	if err != nil {
		return api.DashboardPayload{}, err
	}
	return exporter.BuildDashboard(result), nil
}

// snapshot returns the cached result or ErrNoResult
func (s *AnalyticsService) snapshot() (*pipeline.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, ErrNoResult
	}
	return s.latest, nil
}

func (s *AnalyticsService) setLatest(result *pipeline.Result) {
	s.mu.Lock()
	s.latest = result
	s.mu.Unlock()
}

// beginRun acquires the single-run slot
func (s *AnalyticsService) beginRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *AnalyticsService) endRun() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// notifyRunError pushes an error frame describing a failed run. The status
// broadcaster already sent the run_failed snapshot; this frame adds the
// error code and recovery hint for dashboard toasts.
func (s *AnalyticsService) notifyRunError(err error) {
	code := "RUN_FAILED"
	recoverable := false
	stage := ""

	var pe *pipeline.PipelineError
	if errors.As(err, &pe) {
		stage = pe.Stage
	}
	switch pipeline.GetErrorType(err) {
	case pipeline.ErrorTypeFatalInput:
		code = "UNPROCESSABLE_INPUT"
		recoverable = true
	case pipeline.ErrorTypeCancellation:
		code = "RUN_TIMEOUT"
		recoverable = true
	}
	s.broadcastError(code, err.Error(), stage, recoverable)
}

func (s *AnalyticsService) broadcastError(code, message, stage string, recoverable bool) {
	if s.events == nil {
		return
	}
	s.events.BroadcastError(code, message, stage, recoverable)
}
