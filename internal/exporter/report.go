package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"brfsspulse/internal/pipeline"
	"brfsspulse/internal/surveillance"
)

// maxYoYSwingPct flags implausible national moves in the report's
// temporal-consistency row. Chronic disease prevalence shifts slowly, so a
// year-over-year jump past this is almost always an input artifact.
const maxYoYSwingPct = 50.0

// reportCheck is one row of the report's QA table
type reportCheck struct {
	Name   string
	Passed bool
	Detail string
}

// BuildValidationReport renders the plain-text validation report analysts
// file alongside the dashboard JSON
func BuildValidationReport(result *pipeline.Result, generatedAt time.Time) string {
	var b strings.Builder

	fmt.Fprintln(&b, "BRFSS PULSE DATA VALIDATION REPORT")
	fmt.Fprintln(&b, "==================================")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Run:       %s\n", result.Meta.RunID)
	fmt.Fprintf(&b, "Generated: %s\n", generatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration:  %dms\n", result.Meta.DurationMS)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "QUALITY ASSURANCE CHECKS")
	fmt.Fprintln(&b, "------------------------")
	for _, c := range reportChecks(result) {
		status := "PASS"
		if !c.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %-21s %s\n", status, c.Name, c.Detail)
	}
	fmt.Fprintln(&b)

	meta := result.Meta
	fmt.Fprintln(&b, "ROW ACCOUNTING")
	fmt.Fprintln(&b, "--------------")
	fmt.Fprintf(&b, "Raw rows:             %d\n", meta.RawRowCount)
	fmt.Fprintf(&b, "Processed rows:       %d\n", meta.ProcessedRowCount)
	fmt.Fprintf(&b, "Rejected rows:        %d (%.2f%% of raw)\n",
		meta.RejectedRowCount, result.Quality.RejectionRate*100)
	for _, rc := range sortedReasons(meta.RejectionReasons) {
		fmt.Fprintf(&b, "  %-24s %d\n", rc.reason, rc.count)
	}
	fmt.Fprintf(&b, "Duplicates removed:   %d\n", meta.DuplicatesRemoved)
	fmt.Fprintf(&b, "Outlier rows removed: %d\n", meta.OutliersRemoved)
	fmt.Fprintln(&b)

	status := "COMPLETED"
	if meta.Degraded {
		status = "DEGRADED"
	}
	if rate, ok := gateCheck(result, surveillance.CheckRejectionRate); ok && rate.Detail != "" {
		fmt.Fprintf(&b, "RUN STATUS: %s (%s)\n", status, rate.Detail)
	} else {
		fmt.Fprintf(&b, "RUN STATUS: %s\n", status)
	}
	return b.String()
}

// ExportValidationReport writes the validation report as plain text
func (e *Exporter) ExportValidationReport(ctx context.Context, result *pipeline.Result, path string) error {
	report := BuildValidationReport(result, time.Now())

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(report), 0644); err != nil {
		return fmt.Errorf("failed to write validation report: %w", err)
	}

	e.logger.InfoContext(ctx, "validation report exported",
		slog.String("path", path),
		slog.Bool("degraded", result.Meta.Degraded))
	return nil
}

// reportChecks assembles the report's QA rows. Gate checks are carried
// through as-is; the remaining rows are derived from the validation,
// cleaning, and trend reports.
func reportChecks(result *pipeline.Result) []reportCheck {
	checks := make([]reportCheck, 0, 6)

	if c, ok := gateCheck(result, surveillance.CheckCompleteness); ok {
		detail := c.Detail
		if c.Passed && detail == "" {
			detail = fmt.Sprintf("%d jurisdictions reported", len(result.States))
		}
		checks = append(checks, reportCheck{Name: "Completeness", Passed: c.Passed, Detail: detail})
	}

	checks = append(checks, rangeCheck(result))
	checks = append(checks, temporalCheck(result))

	if c, ok := gateCheck(result, surveillance.CheckGeographicCoverage); ok {
		detail := c.Detail
		if c.Passed && detail == "" {
			detail = fmt.Sprintf("all %d required jurisdictions covered", len(result.States))
		}
		checks = append(checks, reportCheck{Name: "Geographic Coverage", Passed: c.Passed, Detail: detail})
	}

	if c, ok := gateCheck(result, surveillance.CheckBounds); ok {
		detail := c.Detail
		if c.Passed && detail == "" {
			detail = "state values within the national observed range"
		}
		checks = append(checks, reportCheck{Name: "Bounds Checking", Passed: c.Passed, Detail: detail})
	}

	checks = append(checks, outlierCheck(result))
	return checks
}

// rangeCheck reports whether any raw rows carried out-of-range values.
// The cleaned data is in range by construction; this row tells the analyst
// how dirty the extract was.
func rangeCheck(result *pipeline.Result) reportCheck {
	reasons := result.Validation.Reasons
	rejected := reasons[surveillance.ReasonPercentOutOfRange] +
		reasons[surveillance.ReasonNonpositivePopulation] +
		reasons[surveillance.ReasonNonpositiveSampleSize]

	if rejected == 0 {
		return reportCheck{
			Name:   "Range Validation",
			Passed: true,
			Detail: "all percentages within 0-100 and populations positive",
		}
	}
	return reportCheck{
		Name:   "Range Validation",
		Passed: false,
		Detail: fmt.Sprintf("%d rows rejected for out-of-range values", rejected),
	}
}

// temporalCheck scans the national trend for year-over-year swings past
// maxYoYSwingPct
func temporalCheck(result *pipeline.Result) reportCheck {
	comparable := 0
	swings := 0
	for _, p := range result.Trends.Points {
		for _, change := range p.YoYChange {
			if change == nil {
				continue
			}
			comparable++
			if math.Abs(*change) > maxYoYSwingPct {
				swings++
			}
		}
	}

	switch {
	case comparable == 0:
		return reportCheck{
			Name:   "Temporal Consistency",
			Passed: true,
			Detail: "single survey year; no year-over-year comparison",
		}
	case swings == 0:
		return reportCheck{
			Name:   "Temporal Consistency",
			Passed: true,
			Detail: fmt.Sprintf("year-over-year changes within %.0f%%", maxYoYSwingPct),
		}
	default:
		return reportCheck{
			Name:   "Temporal Consistency",
			Passed: false,
			Detail: fmt.Sprintf("%d year-over-year changes moved more than %.0f%%", swings, maxYoYSwingPct),
		}
	}
}

// outlierCheck summarizes what the interquartile fences removed
func outlierCheck(result *pipeline.Result) reportCheck {
	removed := result.Cleaning.OutliersRemoved
	if removed == 0 {
		return reportCheck{Name: "Outlier Detection", Passed: true, Detail: "no outliers detected"}
	}
	return reportCheck{
		Name:   "Outlier Detection",
		Passed: true,
		Detail: fmt.Sprintf("%d rows removed by interquartile fences", removed),
	}
}

// gateCheck finds a named check in the gate report
func gateCheck(result *pipeline.Result, name string) (surveillance.QualityCheck, bool) {
	for _, c := range result.Quality.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return surveillance.QualityCheck{}, false
}

type reasonCount struct {
	reason string
	count  int
}

// sortedReasons orders rejection reasons by count descending, then name
func sortedReasons(reasons map[string]int) []reasonCount {
	out := make([]reasonCount, 0, len(reasons))
	for reason, count := range reasons {
		out = append(out, reasonCount{reason: reason, count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].reason < out[j].reason
	})
	return out
}
