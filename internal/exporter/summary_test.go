package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brfsspulse/internal/config"
	"brfsspulse/internal/surveillance"
	"brfsspulse/pkg/contracts/domain"
)

// readArtifactCSV reads a written artifact back, stripping the BOM
func readArtifactCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestStateSummaryRecords(t *testing.T) {
	headers, records := stateSummaryRecords(testResult().States)

	assert.Equal(t, []string{
		"state", "abbr", "latest_year", "records", "avg_population",
		"diabetes_mean", "diabetes_latest",
		"obesity_mean", "obesity_latest",
		"heart_disease_mean", "heart_disease_latest",
		"physical_inactivity_mean", "physical_inactivity_latest",
	}, headers)

	require.Len(t, records, 2)
	assert.Equal(t, []string{
		"Texas", "TX", "2020", "4", "2000000",
		"12.5", "12.9",
		"31.3", "32.3",
		"5.5", "5.5",
		"22.0", "22.0",
	}, records[0])
	assert.Equal(t, "California", records[1][0])
	assert.Equal(t, "1500001", records[1][4])
}

func TestCorrelationMatrixRecords(t *testing.T) {
	headers, records := correlationMatrixRecords(testResult().Correlations)

	assert.Equal(t, []string{"metric", "diabetes", "obesity", "heart_disease", "physical_inactivity"}, headers)
	require.Len(t, records, 4)

	// Diagonal is 1, computed pairs are symmetric, uncomputable pairs stay blank
	diabetes := records[0]
	assert.Equal(t, "diabetes", diabetes[0])
	assert.Equal(t, "1.0000", diabetes[1])
	assert.Equal(t, "0.8123", diabetes[2])
	assert.Equal(t, "", diabetes[3])

	obesity := records[1]
	assert.Equal(t, "0.8123", obesity[1])
	assert.Equal(t, "1.0000", obesity[2])

	heart := records[2]
	assert.Equal(t, "heart_disease", heart[0])
	assert.Equal(t, "", heart[1])
	assert.Equal(t, "1.0000", heart[3])
}

func TestCorrelationMatrixNegativeCoefficient(t *testing.T) {
	correlations := []surveillance.CorrelationResult{
		{X: domain.MetricObesity, Y: domain.MetricDiabetes, N: 5, Pearson: f64(-0.25)},
	}

	_, records := correlationMatrixRecords(correlations)
	assert.Equal(t, "-0.2500", records[0][2])
}

func TestExportStateSummary(t *testing.T) {
	paths := config.PathsAt(t.TempDir())
	exp := NewExporter(paths, testLogger())

	err := exp.ExportStateSummary(context.Background(), testResult(), paths.StateSummaryCSV)
	require.NoError(t, err)

	rows := readArtifactCSV(t, paths.StateSummaryCSV)
	require.Len(t, rows, 3)
	assert.Equal(t, "state", rows[0][0])
	assert.Equal(t, "Texas", rows[1][0])
	assert.Equal(t, "California", rows[2][0])
}

func TestExportCorrelationMatrix(t *testing.T) {
	paths := config.PathsAt(t.TempDir())
	exp := NewExporter(paths, testLogger())

	err := exp.ExportCorrelationMatrix(context.Background(), testResult(), paths.CorrelationCSV)
	require.NoError(t, err)

	rows := readArtifactCSV(t, paths.CorrelationCSV)
	require.Len(t, rows, 5)
	assert.Equal(t, "metric", rows[0][0])
	assert.Equal(t, "0.8123", rows[1][2])
}
