package surveillance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"brfsspulse/pkg/contracts/domain"
)

// QualityGate runs the final checks over aggregated output. Failures flag;
// they never reject data. Only the rejection-rate check marks the run
// degraded, and a degraded run still completes.
type QualityGate struct {
	params *QualityParams
	logger *slog.Logger
}

// NewQualityGate creates a gate, defaulting nil parameters and logger
func NewQualityGate(params *QualityParams, logger *slog.Logger) *QualityGate {
	if params == nil {
		params = DefaultQualityParams()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QualityGate{params: params, logger: logger}
}

// Evaluate runs the named checks in a fixed order and returns the gate
// report
func (g *QualityGate) Evaluate(ctx context.Context, summaries []StateSummary, validation ValidationReport, cleaning CleaningReport) (QualityReport, error) {
	if !g.params.IsValid() {
		return QualityReport{}, fmt.Errorf("invalid quality params: max_rejection_rate=%.3f, required_states=%d", g.params.MaxRejectionRate, g.params.RequiredStates)
	}
	select {
	case <-ctx.Done():
		return QualityReport{}, fmt.Errorf("quality gate cancelled: %w", ctx.Err())
	default:
	}

	report := QualityReport{}
	report.Checks = append(report.Checks, g.checkCompleteness(summaries))
	report.Checks = append(report.Checks, g.checkCoverage(summaries))
	report.Checks = append(report.Checks, g.checkBounds(summaries))

	rateCheck, rate := g.checkRejectionRate(validation, cleaning)
	report.Checks = append(report.Checks, rateCheck)
	report.RejectionRate = rate
	report.Degraded = !rateCheck.Passed

	for _, c := range report.Checks {
		if c.Passed {
			continue
		}
		g.logger.WarnContext(ctx, "quality check failed",
			"check", c.Name,
			"detail", c.Detail,
		)
	}
	g.logger.InfoContext(ctx, "quality gate completed",
		"checks", len(report.Checks),
		"degraded", report.Degraded,
		"rejection_rate", rate,
	)
	return report, nil
}

// checkCompleteness verifies every canonical jurisdiction produced a summary
func (g *QualityGate) checkCompleteness(summaries []StateSummary) QualityCheck {
	present := make(map[string]bool, len(summaries))
	for _, s := range summaries {
		present[s.State] = true
	}

	var missing []string
	for _, st := range States() {
		if !present[st.Name] {
			missing = append(missing, st.Abbr)
		}
	}
	if len(missing) == 0 {
		return QualityCheck{Name: CheckCompleteness, Passed: true}
	}
	detail := fmt.Sprintf("%d jurisdictions missing", len(missing))
	if len(missing) <= 5 {
		detail = fmt.Sprintf("missing: %s", strings.Join(missing, ", "))
	}
	return QualityCheck{Name: CheckCompleteness, Passed: false, Detail: detail}
}

// checkCoverage verifies the summary count matches the required
// jurisdiction count
func (g *QualityGate) checkCoverage(summaries []StateSummary) QualityCheck {
	if len(summaries) == g.params.RequiredStates {
		return QualityCheck{Name: CheckGeographicCoverage, Passed: true}
	}
	return QualityCheck{
		Name:   CheckGeographicCoverage,
		Passed: false,
		Detail: fmt.Sprintf("%d of %d jurisdictions covered", len(summaries), g.params.RequiredStates),
	}
}

// checkBounds verifies each state's central values sit inside the national
// observed range per metric. The range comes from the state minima and
// maxima themselves, so a violation means an aggregation inconsistency
// rather than bad input.
func (g *QualityGate) checkBounds(summaries []StateSummary) QualityCheck {
	if len(summaries) == 0 {
		return QualityCheck{Name: CheckBounds, Passed: true, Detail: "no summaries"}
	}

	const eps = 1e-9
	violations := 0
	for _, m := range domain.Metrics() {
		lo := summaries[0].Metrics[m].Min
		hi := summaries[0].Metrics[m].Max
		for _, s := range summaries[1:] {
			if s.Metrics[m].Min < lo {
				lo = s.Metrics[m].Min
			}
			if s.Metrics[m].Max > hi {
				hi = s.Metrics[m].Max
			}
		}
		for _, s := range summaries {
			stats := s.Metrics[m]
			for _, v := range []float64{stats.Mean, stats.Median, stats.Latest} {
				if v < lo-eps || v > hi+eps {
					violations++
				}
			}
		}
	}
	if violations == 0 {
		return QualityCheck{Name: CheckBounds, Passed: true}
	}
	return QualityCheck{
		Name:   CheckBounds,
		Passed: false,
		Detail: fmt.Sprintf("%d values outside national range", violations),
	}
}

// checkRejectionRate compares dropped rows against the configured
// threshold. The rate counts validation rejections plus missing-value
// exclusions; duplicates and outliers are reported separately and do not
// degrade a run.
func (g *QualityGate) checkRejectionRate(validation ValidationReport, cleaning CleaningReport) (QualityCheck, float64) {
	rejected := validation.Rejected + cleaning.MissingExcluded
	rate := 0.0
	if validation.Total > 0 {
		rate = float64(rejected) / float64(validation.Total)
	}

	if rate <= g.params.MaxRejectionRate {
		return QualityCheck{
			Name:   CheckRejectionRate,
			Passed: true,
			Detail: fmt.Sprintf("%.2f%% rejected", rate*100),
		}, rate
	}
	return QualityCheck{
		Name:   CheckRejectionRate,
		Passed: false,
		Detail: fmt.Sprintf("%.2f%% rejected exceeds %.2f%% threshold", rate*100, g.params.MaxRejectionRate*100),
	}, rate
}
