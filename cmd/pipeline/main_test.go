package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brfsspulse/internal/config"
	"brfsspulse/internal/pipeline"
	"brfsspulse/internal/surveillance"
)

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		expectError bool
	}{
		{
			name:     "empty defers to detection",
			input:    "",
			expected: "",
		},
		{
			name:     "auto defers to detection",
			input:    "auto",
			expected: "",
		},
		{
			name:     "csv",
			input:    "csv",
			expected: "csv",
		},
		{
			name:     "xlsx",
			input:    "xlsx",
			expected: "xlsx",
		},
		{
			name:     "mixed case normalized",
			input:    "CSV",
			expected: "csv",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    " xlsx ",
			expected: "xlsx",
		},
		{
			name:        "unsupported format",
			input:       "parquet",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := resolveFormat(tt.input)

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported format")
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestResolveSourceFlag(t *testing.T) {
	t.Run("empty leaves both settings untouched", func(t *testing.T) {
		cfgSource, reqSource := resolveSourceFlag("")
		assert.Empty(t, cfgSource)
		assert.Empty(t, reqSource)
	})

	t.Run("absolute path overrides the configured source", func(t *testing.T) {
		abs := filepath.Join(t.TempDir(), "extract.csv")

		cfgSource, reqSource := resolveSourceFlag(abs)
		assert.Equal(t, abs, cfgSource)
		assert.Empty(t, reqSource)
	})

	t.Run("existing relative path resolves against the working directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "extract.csv"), []byte("data"), 0644))

		wd, err := os.Getwd()
		require.NoError(t, err)
		t.Cleanup(func() { _ = os.Chdir(wd) })
		require.NoError(t, os.Chdir(tmpDir))

		cfgSource, reqSource := resolveSourceFlag("extract.csv")
		assert.Empty(t, reqSource)
		require.True(t, filepath.IsAbs(cfgSource))
		assert.Equal(t, "extract.csv", filepath.Base(cfgSource))
	})

	t.Run("bare name passes through the run request", func(t *testing.T) {
		cfgSource, reqSource := resolveSourceFlag("brfss_2024_extract.csv")
		assert.Empty(t, cfgSource)
		assert.Equal(t, "brfss_2024_extract.csv", reqSource)
	})
}

func TestPrintSummary(t *testing.T) {
	result := &pipeline.Result{
		States:       make([]surveillance.StateSummary, 51),
		Trends:       surveillance.TrendReport{Points: make([]surveillance.TrendPoint, 10)},
		Demographics: make([]surveillance.DimensionSummary, 3),
		Correlations: make([]surveillance.CorrelationResult, 6),
		Quality: surveillance.QualityReport{
			RejectionRate: 0.02,
			Checks: []surveillance.QualityCheck{
				{Name: "rejection_rate", Passed: true},
				{Name: "state_coverage", Passed: false, Detail: "48 of 51 states"},
			},
		},
		Meta: pipeline.RunMetadata{
			RunID:             "run-1234",
			DurationMS:        180,
			RawRowCount:       1000,
			ProcessedRowCount: 950,
			RejectedRowCount:  20,
			DuplicatesRemoved: 18,
			OutliersRemoved:   12,
		},
	}

	t.Run("reports accounting and quality checks", func(t *testing.T) {
		var buf bytes.Buffer
		printSummary(&buf, result)

		output := buf.String()
		assert.Contains(t, output, "Run run-1234 completed in 180ms")
		assert.Contains(t, output, "Rows: 1000 decoded, 950 processed, 20 rejected (2.0%)")
		assert.Contains(t, output, "Removed: 18 duplicates, 12 outliers")
		assert.Contains(t, output, "Computed: 51 state summaries, 10 trend points, 3 demographic groups, 6 correlations")
		assert.Contains(t, output, "Quality pass: rejection_rate")
		assert.Contains(t, output, "Quality FAIL: state_coverage (48 of 51 states)")
	})

	t.Run("degraded run is labeled", func(t *testing.T) {
		degraded := *result
		degraded.Meta.Degraded = true

		var buf bytes.Buffer
		printSummary(&buf, &degraded)

		assert.Contains(t, buf.String(), "Run run-1234 completed degraded in 180ms")
	})
}

func TestPrintArtifacts(t *testing.T) {
	paths := config.PathsAt(t.TempDir())

	var buf bytes.Buffer
	printArtifacts(&buf, paths)

	output := buf.String()
	assert.Contains(t, output, "Artifacts written:")
	assert.Contains(t, output, paths.DashboardJSON)
	assert.Contains(t, output, paths.ValidationReport)
	assert.Contains(t, output, paths.StateSummaryCSV)
	assert.Contains(t, output, paths.CorrelationCSV)
}
