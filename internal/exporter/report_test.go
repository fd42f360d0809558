package exporter

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brfsspulse/internal/config"
	"brfsspulse/internal/surveillance"
	"brfsspulse/pkg/contracts/domain"
)

func TestBuildValidationReport(t *testing.T) {
	generated := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	report := BuildValidationReport(testResult(), generated)

	assert.Contains(t, report, "BRFSS PULSE DATA VALIDATION REPORT")
	assert.Contains(t, report, "Run:       run-123")
	assert.Contains(t, report, "Generated: 2026-08-23T10:00:00Z")
	assert.Contains(t, report, "Duration:  412ms")

	// Gate rows carry through; derived rows come from the stage reports
	assert.Contains(t, report, "[FAIL] Completeness          49 jurisdictions missing")
	assert.Contains(t, report, "[FAIL] Range Validation      2 rows rejected for out-of-range values")
	assert.Contains(t, report, "[PASS] Temporal Consistency  year-over-year changes within 50%")
	assert.Contains(t, report, "[FAIL] Geographic Coverage   2 of 51 jurisdictions covered")
	assert.Contains(t, report, "[PASS] Bounds Checking       state values within the national observed range")
	assert.Contains(t, report, "[PASS] Outlier Detection     1 rows removed by interquartile fences")

	assert.Contains(t, report, "Raw rows:             100")
	assert.Contains(t, report, "Processed rows:       96")
	assert.Contains(t, report, "Rejected rows:        2 (2.00% of raw)")
	assert.Contains(t, report, "percent_out_of_range")
	assert.Contains(t, report, "Duplicates removed:   1")
	assert.Contains(t, report, "Outlier rows removed: 1")

	assert.Contains(t, report, "RUN STATUS: COMPLETED (2.00% rejected)")
}

func TestBuildValidationReportDegraded(t *testing.T) {
	result := testResult()
	result.Meta.Degraded = true
	result.Quality.Degraded = true
	result.Quality.RejectionRate = 0.06
	for i, c := range result.Quality.Checks {
		if c.Name == surveillance.CheckRejectionRate {
			result.Quality.Checks[i].Passed = false
			result.Quality.Checks[i].Detail = "6.00% rejected exceeds 5.00% threshold"
		}
	}

	report := BuildValidationReport(result, time.Now())

	assert.Contains(t, report, "RUN STATUS: DEGRADED (6.00% rejected exceeds 5.00% threshold)")
}

func TestBuildValidationReportCleanRun(t *testing.T) {
	result := testResult()
	result.Validation.Reasons = map[string]int{}
	result.Cleaning.OutliersRemoved = 0

	report := BuildValidationReport(result, time.Now())

	assert.Contains(t, report, "[PASS] Range Validation      all percentages within 0-100 and populations positive")
	assert.Contains(t, report, "[PASS] Outlier Detection     no outliers detected")
}

func TestTemporalCheckFlagsLargeSwings(t *testing.T) {
	result := testResult()
	result.Trends.Points[1].YoYChange[domain.MetricDiabetes] = f64(81.5)
	result.Trends.Points[1].YoYChange[domain.MetricObesity] = f64(-63.2)

	check := temporalCheck(result)

	assert.False(t, check.Passed)
	assert.Equal(t, "2 year-over-year changes moved more than 50%", check.Detail)
}

func TestTemporalCheckSingleYear(t *testing.T) {
	result := testResult()
	result.Trends.Points = result.Trends.Points[:1]

	check := temporalCheck(result)

	assert.True(t, check.Passed)
	assert.Equal(t, "single survey year; no year-over-year comparison", check.Detail)
}

func TestExportValidationReport(t *testing.T) {
	paths := config.PathsAt(t.TempDir())
	exp := NewExporter(paths, testLogger())

	err := exp.ExportValidationReport(context.Background(), testResult(), paths.ValidationReport)
	require.NoError(t, err)

	data, err := os.ReadFile(paths.ValidationReport)
	require.NoError(t, err)
	assert.Contains(t, string(data), "QUALITY ASSURANCE CHECKS")
	assert.Contains(t, string(data), "ROW ACCOUNTING")
}
