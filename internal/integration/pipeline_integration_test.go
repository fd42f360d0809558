package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brfsspulse/internal/config"
	"brfsspulse/internal/files"
	"brfsspulse/internal/services"
	"brfsspulse/internal/shared/testutil"
	api "brfsspulse/pkg/contracts/api/v1"
)

// newPipelineEnv wires a real analytics service over a temporary layout,
// the way the application does at startup.
func newPipelineEnv(t *testing.T) (*services.AnalyticsService, *config.Paths, *testutil.LogRecorder) {
	t.Helper()
	paths := config.PathsAt(t.TempDir())
	require.NoError(t, paths.EnsureDirectories())

	cfg := config.Default()
	cfg.Ingest.Source = paths.GetRawPath("brfss_health_data.csv")

	logger, recorder := testutil.NewTestLogger(t)
	return services.NewAnalyticsServiceWithPaths(cfg, paths, logger), paths, recorder
}

// TestPipelineRunWritesArtifacts runs the full pipeline against a survey
// extract on disk and verifies every artifact lands in the output layout.
func TestPipelineRunWritesArtifacts(t *testing.T) {
	svc, paths, recorder := newPipelineEnv(t)
	testutil.WriteSurveyCSV(t, paths.GetRawPath("brfss_health_data.csv"), testutil.SurveyRows())

	result, err := svc.Run(context.Background(), api.RunRequest{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Len(t, result.States, 2)
	assert.False(t, result.Meta.Degraded)
	assert.Equal(t, 4, result.Meta.ProcessedRowCount)

	for _, artifact := range []string{
		paths.DashboardJSON,
		paths.ValidationReport,
		paths.CorrelationCSV,
		paths.StateSummaryCSV,
	} {
		info, err := os.Stat(artifact)
		require.NoError(t, err, "artifact %s", artifact)
		assert.Greater(t, info.Size(), int64(0), "artifact %s", artifact)
	}

	testutil.AssertNoErrors(t, recorder)
}

// TestDashboardArtifactRoundTrips verifies the JSON written for the
// dashboard parses back into the contract payload and matches the run.
func TestDashboardArtifactRoundTrips(t *testing.T) {
	svc, paths, _ := newPipelineEnv(t)
	testutil.WriteSurveyCSV(t, paths.GetRawPath("brfss_health_data.csv"), testutil.SurveyRows())

	result, err := svc.Run(context.Background(), api.RunRequest{})
	require.NoError(t, err)

	data, err := os.ReadFile(paths.DashboardJSON)
	require.NoError(t, err)

	var payload api.DashboardPayload
	require.NoError(t, json.Unmarshal(data, &payload))

	assert.Equal(t, result.Meta.RunID, payload.Metadata.RunID)
	require.Len(t, payload.States, 2)
	assert.Equal(t, "Alabama", payload.States[0].Name)
	assert.Equal(t, "Alaska", payload.States[1].Name)
	assert.Len(t, payload.NationalTrends.Years, 2)
	assert.NotEmpty(t, payload.DemographicBreakdown.AgeGroups)
}

// TestArtifactsVisibleToFileManager verifies the export layer and the
// artifact listing agree on the output directory.
func TestArtifactsVisibleToFileManager(t *testing.T) {
	svc, paths, _ := newPipelineEnv(t)
	testutil.WriteSurveyCSV(t, paths.GetRawPath("brfss_health_data.csv"), testutil.SurveyRows())

	manager := files.NewManager(paths, nil)

	before, err := manager.ListArtifacts()
	require.NoError(t, err)
	assert.Empty(t, before)

	_, err = svc.Run(context.Background(), api.RunRequest{})
	require.NoError(t, err)

	after, err := manager.ListArtifacts()
	require.NoError(t, err)
	require.Len(t, after, 4)

	names := make([]string, 0, len(after))
	for _, f := range after {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, names, []string{
		config.DashboardFileName,
		config.ValidationReportFileName,
		config.CorrelationFileName,
		config.StateSummaryFileName,
	})
}

// TestFailedRunKeepsPreviousArtifacts verifies a run against a missing
// source leaves the cached result and the artifacts of the last good run
// untouched.
func TestFailedRunKeepsPreviousArtifacts(t *testing.T) {
	svc, paths, _ := newPipelineEnv(t)
	testutil.WriteSurveyCSV(t, paths.GetRawPath("brfss_health_data.csv"), testutil.SurveyRows())

	first, err := svc.Run(context.Background(), api.RunRequest{})
	require.NoError(t, err)

	dashboardBefore, err := os.ReadFile(paths.DashboardJSON)
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), api.RunRequest{Source: "no_such_extract.csv"})
	require.ErrorIs(t, err, services.ErrSourceNotFound)

	latest, err := svc.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Meta.RunID, latest.Meta.RunID)

	dashboardAfter, err := os.ReadFile(paths.DashboardJSON)
	require.NoError(t, err)
	assert.Equal(t, dashboardBefore, dashboardAfter)
}

// TestSourceDiscoveryFindsNewExtracts verifies extracts dropped into the
// raw directory show up for the dashboard source picker.
func TestSourceDiscoveryFindsNewExtracts(t *testing.T) {
	_, paths, _ := newPipelineEnv(t)
	discovery := files.NewDiscovery(paths.RawDir, nil)

	sources, err := discovery.ListSurveySources()
	require.NoError(t, err)
	assert.Empty(t, sources)

	testutil.WriteSurveyCSV(t, filepath.Join(paths.RawDir, "brfss_2024.csv"), testutil.SurveyRows())
	require.NoError(t, os.WriteFile(filepath.Join(paths.RawDir, "readme.txt"), []byte("notes"), 0644))

	sources, err = discovery.ListSurveySources()
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "brfss_2024.csv", sources[0].Name)
}
