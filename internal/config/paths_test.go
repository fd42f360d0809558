package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPaths(t *testing.T) {
	paths, err := GetPaths()
	require.NoError(t, err)
	require.NotNil(t, paths)

	t.Run("everything resolves under the executable directory", func(t *testing.T) {
		assert.True(t, filepath.IsAbs(paths.ExecutableDir))
		for _, dir := range []string{paths.DataDir, paths.RawDir, paths.OutputDir, paths.LogsDir, paths.WebDir} {
			assert.True(t, strings.HasPrefix(dir, paths.ExecutableDir), "dir %s not under %s", dir, paths.ExecutableDir)
		}
	})

	t.Run("raw and output live under data", func(t *testing.T) {
		assert.Equal(t, filepath.Join(paths.DataDir, "raw"), paths.RawDir)
		assert.Equal(t, filepath.Join(paths.DataDir, "output"), paths.OutputDir)
	})

	t.Run("artifact files live in the output directory", func(t *testing.T) {
		assert.Equal(t, filepath.Join(paths.OutputDir, DashboardFileName), paths.DashboardJSON)
		assert.Equal(t, filepath.Join(paths.OutputDir, ValidationReportFileName), paths.ValidationReport)
		assert.Equal(t, filepath.Join(paths.OutputDir, CorrelationFileName), paths.CorrelationCSV)
		assert.Equal(t, filepath.Join(paths.OutputDir, StateSummaryFileName), paths.StateSummaryCSV)
	})
}

func TestPathsAt(t *testing.T) {
	paths := PathsAt("/srv/pulse")

	assert.Equal(t, "/srv/pulse", paths.ExecutableDir)
	assert.Equal(t, filepath.Join("/srv/pulse", "data", "raw"), paths.RawDir)
	assert.Equal(t, filepath.Join("/srv/pulse", "data", "output", DashboardFileName), paths.DashboardJSON)
	assert.Equal(t, filepath.Join("/srv/pulse", "data", "output", ValidationReportFileName), paths.ValidationReport)
}

func TestPathHelpers(t *testing.T) {
	paths := &Paths{
		ExecutableDir: "/opt/brfsspulse",
		RawDir:        "/opt/brfsspulse/data/raw",
		OutputDir:     "/opt/brfsspulse/data/output",
		LogsDir:       "/opt/brfsspulse/logs",
		WebDir:        "/opt/brfsspulse/web",
		StaticDir:     "/opt/brfsspulse/web/static",
	}

	assert.Equal(t, filepath.Join("/opt/brfsspulse/data/raw", "survey.csv"), paths.GetRawPath("survey.csv"))
	assert.Equal(t, filepath.Join("/opt/brfsspulse/data/output", "dashboard_data.json"), paths.GetOutputPath("dashboard_data.json"))
	assert.Equal(t, filepath.Join("/opt/brfsspulse/logs", "app.log"), paths.GetLogPath("app.log"))
	assert.Equal(t, filepath.Join("/opt/brfsspulse/web", "index.html"), paths.GetWebFilePath("index.html"))
	assert.Equal(t, filepath.Join("/opt/brfsspulse", "config.yaml"), paths.GetRelativePath("config.yaml"))
}

func TestEnsureDirectories(t *testing.T) {
	paths := PathsAt(t.TempDir())

	require.NoError(t, paths.EnsureDirectories())

	for _, dir := range []string{paths.DataDir, paths.RawDir, paths.OutputDir, paths.LogsDir, paths.StaticDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err, "missing %s", dir)
		assert.True(t, info.IsDir())
	}

	// Idempotent on existing directories
	assert.NoError(t, paths.EnsureDirectories())
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	assert.True(t, FileExists(path))
	assert.False(t, FileExists(filepath.Join(dir, "absent.txt")))
}
