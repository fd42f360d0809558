package surveillance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"brfsspulse/pkg/contracts/domain"
)

// CorrelationEngine measures association between metric pairs across
// jurisdictions. It consumes state summaries, one point per state, using
// either pooled means or most-recent-year values.
type CorrelationEngine struct {
	params *CorrelationParams
	logger *slog.Logger
}

// NewCorrelationEngine creates an engine, defaulting nil parameters and
// logger
func NewCorrelationEngine(params *CorrelationParams, logger *slog.Logger) *CorrelationEngine {
	if params == nil {
		params = DefaultCorrelationParams()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CorrelationEngine{params: params, logger: logger}
}

// Correlate computes Pearson and Spearman coefficients for every unordered
// metric pair, in canonical metric order. The obesity/diabetes pair also
// carries an OLS fit with obesity as the predictor. Pairs with fewer than
// the minimum points report an insufficient sample.
func (e *CorrelationEngine) Correlate(ctx context.Context, summaries []StateSummary) ([]CorrelationResult, error) {
	start := time.Now()
	if !e.params.IsValid() {
		return nil, fmt.Errorf("invalid correlation params: min_points=%d", e.params.MinPoints)
	}

	metrics := domain.Metrics()
	results := make([]CorrelationResult, 0, len(metrics)*(len(metrics)-1)/2)
	for i := 0; i < len(metrics); i++ {
		for j := i + 1; j < len(metrics); j++ {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("correlation cancelled: %w", ctx.Err())
			default:
			}
			results = append(results, e.correlatePair(metrics[i], metrics[j], summaries))
		}
	}

	e.logger.InfoContext(ctx, "correlation completed",
		"pairs", len(results),
		"states", len(summaries),
		"use_latest", e.params.UseLatest,
		"duration", time.Since(start),
	)
	return results, nil
}

// correlatePair computes the association statistics for one metric pair
func (e *CorrelationEngine) correlatePair(x, y domain.Metric, summaries []StateSummary) CorrelationResult {
	result := CorrelationResult{X: x, Y: y, N: len(summaries)}
	if len(summaries) < e.params.MinPoints {
		result.Reason = "insufficient_sample"
		return result
	}

	xs := make([]float64, len(summaries))
	ys := make([]float64, len(summaries))
	for i, s := range summaries {
		xs[i] = e.value(s, x)
		ys[i] = e.value(s, y)
	}

	if r, ok := pearson(xs, ys); ok {
		result.Pearson = floatPtr(r)
	}
	if rho, ok := spearman(xs, ys); ok {
		result.Spearman = floatPtr(rho)
	}
	if result.Pearson == nil && result.Spearman == nil {
		result.Reason = "zero_variance"
	}

	if isRegressionPair(x, y) {
		result.Regression = e.fitObesityDiabetes(summaries)
	}
	return result
}

// fitObesityDiabetes fits diabetes prevalence on obesity prevalence across
// states
func (e *CorrelationEngine) fitObesityDiabetes(summaries []StateSummary) *RegressionFit {
	xs := make([]float64, len(summaries))
	ys := make([]float64, len(summaries))
	for i, s := range summaries {
		xs[i] = e.value(s, domain.MetricObesity)
		ys[i] = e.value(s, domain.MetricDiabetes)
	}
	intercept, slope, r2, ok := olsFit(xs, ys)
	if !ok {
		return nil
	}
	return &RegressionFit{
		Predictor: domain.MetricObesity,
		Response:  domain.MetricDiabetes,
		Intercept: intercept,
		Slope:     slope,
		RSquared:  r2,
		N:         len(summaries),
	}
}

// value selects the per-state observation per the configured source
func (e *CorrelationEngine) value(s StateSummary, m domain.Metric) float64 {
	if e.params.UseLatest {
		return s.Metrics[m].Latest
	}
	return s.Metrics[m].Mean
}

// isRegressionPair reports whether the pair is the designated
// obesity/diabetes regression pair, in either order
func isRegressionPair(x, y domain.Metric) bool {
	return (x == domain.MetricObesity && y == domain.MetricDiabetes) ||
		(x == domain.MetricDiabetes && y == domain.MetricObesity)
}
