package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"brfsspulse/internal/surveillance"
	"brfsspulse/pkg/contracts/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Stage names used in logs, events and spans
const (
	StageValidate     = "validate"
	StageClean        = "clean"
	StageStates       = "aggregate_states"
	StageTrends       = "calculate_trends"
	StageDemographics = "stratify_demographics"
	StageCorrelate    = "correlate"
	StageQualityGate  = "quality_gate"
)

// DefaultRunTimeout bounds a single pipeline run
const DefaultRunTimeout = 2 * time.Minute

// Config collects the parameters for every stage of a run
type Config struct {
	Validation  *surveillance.ValidationParams
	Cleaning    *surveillance.CleaningParams
	Aggregation *surveillance.AggregationParams
	Correlation *surveillance.CorrelationParams
	Quality     *surveillance.QualityParams
	Timeout     time.Duration
}

// DefaultConfig returns the standard stage parameters
func DefaultConfig() *Config {
	return &Config{
		Validation:  surveillance.DefaultValidationParams(),
		Cleaning:    surveillance.DefaultCleaningParams(),
		Aggregation: surveillance.DefaultAggregationParams(),
		Correlation: surveillance.DefaultCorrelationParams(),
		Quality:     surveillance.DefaultQualityParams(),
		Timeout:     DefaultRunTimeout,
	}
}

// IsValid checks that every set stage parameter is usable. Nil parameter
// sets are fine; NewRunner replaces them with defaults.
func (c *Config) IsValid() bool {
	if c == nil {
		return false
	}
	if c.Validation != nil && !c.Validation.IsValid() {
		return false
	}
	if c.Cleaning != nil && !c.Cleaning.IsValid() {
		return false
	}
	if c.Aggregation != nil && !c.Aggregation.IsValid() {
		return false
	}
	if c.Correlation != nil && !c.Correlation.IsValid() {
		return false
	}
	if c.Quality != nil && !c.Quality.IsValid() {
		return false
	}
	return c.Timeout >= 0
}

// Runner executes the full surveillance pipeline: validate, clean, the three
// independent aggregations in parallel, then correlation and the quality
// gate. A run completes with degraded metadata rather than failing; only
// unreadable or empty input aborts.
type Runner struct {
	config       *Config
	validator    *surveillance.Validator
	cleaner      *surveillance.Cleaner
	states       *surveillance.StateAggregator
	trends       *surveillance.TrendCalculator
	demographics *surveillance.DemographicStratifier
	correlations *surveillance.CorrelationEngine
	gate         *surveillance.QualityGate
	broadcaster  *StatusBroadcaster
	tracer       *RunTracer
	logger       *slog.Logger
}

// NewRunner creates a runner with the given configuration.
// Nil config or logger fall back to defaults.
func NewRunner(config *Config, logger *slog.Logger) *Runner {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		config:       config,
		validator:    surveillance.NewValidator(config.Validation, logger),
		cleaner:      surveillance.NewCleaner(config.Cleaning, logger),
		states:       surveillance.NewStateAggregator(config.Aggregation, logger),
		trends:       surveillance.NewTrendCalculator(logger),
		demographics: surveillance.NewDemographicStratifier(logger),
		correlations: surveillance.NewCorrelationEngine(config.Correlation, logger),
		gate:         surveillance.NewQualityGate(config.Quality, logger),
		logger:       logger,
	}
}

// SetEventHub wires run status broadcasting to the given hub
func (r *Runner) SetEventHub(hub EventHub) {
	r.broadcaster = NewStatusBroadcaster(hub, r.logger)
}

// SetTracer wires OpenTelemetry instrumentation into the runner
func (r *Runner) SetTracer(tracer *RunTracer) {
	r.tracer = tracer
}

// Broadcaster exposes the status broadcaster for snapshot queries
func (r *Runner) Broadcaster() *StatusBroadcaster {
	return r.broadcaster
}

// Run executes the pipeline over the decoded rows and returns the full
// analytical result. Empty input is the only abort condition besides
// cancellation and stage failure; per-row problems are counted, not fatal.
func (r *Runner) Run(ctx context.Context, rows []domain.HealthRecord) (*Result, error) {
	runID := uuid.New().String()
	started := time.Now()
	logger := r.logger.With(slog.String("run_id", runID))

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	ctx, span := r.tracer.TraceRun(ctx, runID, len(rows))
	defer span.End()

	logger.InfoContext(ctx, "Pipeline run started",
		slog.Int("raw_rows", len(rows)))
	r.broadcaster.RunStarted(runID, len(rows))

	if len(rows) == 0 {
		err := NewFatalInputError("no rows to process", nil)
		return nil, r.fail(ctx, span, logger, runID, started, err)
	}

	result := &Result{}

	// Validation and cleaning run sequentially; each later stage depends
	// on the cleaned record set.
	err := r.stage(ctx, runID, StageValidate, func(sctx context.Context) error {
		accepted, report, err := r.validator.Validate(sctx, rows)
		if err != nil {
			return err
		}
		result.Validation = report
		rows = accepted
		return nil
	})
	if err != nil {
		return nil, r.fail(ctx, span, logger, runID, started, err)
	}

	var records []surveillance.Record
	err = r.stage(ctx, runID, StageClean, func(sctx context.Context) error {
		cleaned, report, err := r.cleaner.Clean(sctx, rows)
		if err != nil {
			return err
		}
		result.Cleaning = report
		records = cleaned
		return nil
	})
	if err != nil {
		return nil, r.fail(ctx, span, logger, runID, started, err)
	}

	if len(records) == 0 {
		err := NewFatalInputError("no records survived validation and cleaning", nil)
		err.Context = map[string]interface{}{
			"raw_rows":       result.Validation.Total,
			"rejected_rows":  result.Validation.Rejected,
			"missing_metric": result.Cleaning.MissingExcluded,
		}
		return nil, r.fail(ctx, span, logger, runID, started, err)
	}

	// The three aggregations are independent of each other and fan out.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.stage(gctx, runID, StageStates, func(sctx context.Context) error {
			summaries, err := r.states.Aggregate(sctx, records)
			if err != nil {
				return err
			}
			byYear, err := r.states.AggregateByYear(sctx, records)
			if err != nil {
				return err
			}
			result.States = summaries
			result.StateYears = byYear
			return nil
		})
	})
	g.Go(func() error {
		return r.stage(gctx, runID, StageTrends, func(sctx context.Context) error {
			report, err := r.trends.Calculate(sctx, records)
			if err != nil {
				return err
			}
			result.Trends = report
			return nil
		})
	})
	g.Go(func() error {
		return r.stage(gctx, runID, StageDemographics, func(sctx context.Context) error {
			summaries, err := r.demographics.Stratify(sctx, records)
			if err != nil {
				return err
			}
			result.Demographics = summaries
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return nil, r.fail(ctx, span, logger, runID, started, err)
	}

	err = r.stage(ctx, runID, StageCorrelate, func(sctx context.Context) error {
		results, err := r.correlations.Correlate(sctx, result.States)
		if err != nil {
			return err
		}
		result.Correlations = results
		return nil
	})
	if err != nil {
		return nil, r.fail(ctx, span, logger, runID, started, err)
	}

	err = r.stage(ctx, runID, StageQualityGate, func(sctx context.Context) error {
		report, err := r.gate.Evaluate(sctx, result.States, result.Validation, result.Cleaning)
		if err != nil {
			return err
		}
		result.Quality = report
		return nil
	})
	if err != nil {
		return nil, r.fail(ctx, span, logger, runID, started, err)
	}

	result.Meta = buildMetadata(runID, started, result)
	duration := time.Since(started)

	r.tracer.RecordRunCompletion(ctx, span, result.Meta, duration)
	r.broadcaster.RunCompleted(runID, result.Meta.Degraded)

	logger.InfoContext(ctx, "Pipeline run complete",
		slog.Int("processed_rows", result.Meta.ProcessedRowCount),
		slog.Int("rejected_rows", result.Meta.RejectedRowCount),
		slog.Bool("degraded", result.Meta.Degraded),
		slog.Duration("duration", duration))

	return result, nil
}

// stage runs a single pipeline stage with tracing, status broadcasting and
// error classification
func (r *Runner) stage(ctx context.Context, runID, name string, fn func(context.Context) error) error {
	select {
	case <-ctx.Done():
		return NewCancellationError(name, ctx.Err())
	default:
	}

	start := time.Now()
	ctx, span := r.tracer.TraceStage(ctx, runID, name)
	defer span.End()

	r.broadcaster.StageStarted(runID, name)
	err := fn(ctx)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = NewCancellationError(name, err)
		} else {
			err = WrapError(err, name)
		}
		r.tracer.RecordStageCompletion(ctx, span, name, duration, false)
		r.broadcaster.StageFailed(runID, name, err)
		return err
	}

	r.tracer.RecordStageCompletion(ctx, span, name, duration, true)
	r.broadcaster.StageCompleted(runID, name, duration)
	r.logger.DebugContext(ctx, "Stage complete",
		slog.String("run_id", runID),
		slog.String("stage", name),
		slog.Duration("duration", duration))
	return nil
}

// fail records a terminal run error on every channel and returns it
func (r *Runner) fail(ctx context.Context, span trace.Span, logger *slog.Logger, runID string, started time.Time, err error) error {
	duration := time.Since(started)

	r.tracer.RecordRunError(ctx, span, err, duration)
	r.broadcaster.RunFailed(runID, err)
	logger.ErrorContext(ctx, "Pipeline run failed",
		slog.String("error", err.Error()),
		slog.String("error_type", string(GetErrorType(err))),
		slog.Duration("duration", duration))
	return err
}
