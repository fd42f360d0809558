package files

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brfsspulse/internal/config"
)

func testManager(t *testing.T) (*Manager, *config.Paths) {
	t.Helper()
	paths := config.PathsAt(t.TempDir())
	require.NoError(t, os.MkdirAll(paths.OutputDir, 0755))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(paths, logger), paths
}

func writeArtifact(t *testing.T, paths *config.Paths, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(paths.OutputDir, name), []byte(content), 0644))
}

func TestNewManager(t *testing.T) {
	paths := config.PathsAt(t.TempDir())

	m := NewManager(paths, nil)

	require.NotNil(t, m)
	assert.Equal(t, paths, m.paths)
	assert.NotNil(t, m.logger)
}

func TestManager_ListArtifacts(t *testing.T) {
	t.Run("lists regular files with sizes", func(t *testing.T) {
		m, paths := testManager(t)
		writeArtifact(t, paths, "state_summary.csv", "state,mean\n")
		writeArtifact(t, paths, "state_health_data.json", `{"states":[]}`)

		artifacts, err := m.ListArtifacts()

		require.NoError(t, err)
		require.Len(t, artifacts, 2)
		names := []string{artifacts[0].Name, artifacts[1].Name}
		assert.Contains(t, names, "state_summary.csv")
		assert.Contains(t, names, "state_health_data.json")
		for _, a := range artifacts {
			assert.Positive(t, a.SizeBytes)
			assert.False(t, a.ModifiedAt.IsZero())
		}
	})

	t.Run("skips directories and dotfiles", func(t *testing.T) {
		m, paths := testManager(t)
		writeArtifact(t, paths, "correlation_matrix.csv", "a,b\n")
		writeArtifact(t, paths, ".write_test", "probe")
		require.NoError(t, os.MkdirAll(filepath.Join(paths.OutputDir, "archive"), 0755))

		artifacts, err := m.ListArtifacts()

		require.NoError(t, err)
		require.Len(t, artifacts, 1)
		assert.Equal(t, "correlation_matrix.csv", artifacts[0].Name)
	})

	t.Run("newest first", func(t *testing.T) {
		m, paths := testManager(t)
		writeArtifact(t, paths, "older.csv", "1\n")
		older := time.Now().Add(-time.Hour)
		require.NoError(t, os.Chtimes(filepath.Join(paths.OutputDir, "older.csv"), older, older))
		writeArtifact(t, paths, "newer.csv", "2\n")

		artifacts, err := m.ListArtifacts()

		require.NoError(t, err)
		require.Len(t, artifacts, 2)
		assert.Equal(t, "newer.csv", artifacts[0].Name)
		assert.Equal(t, "older.csv", artifacts[1].Name)
	})

	t.Run("missing output directory lists as empty", func(t *testing.T) {
		paths := config.PathsAt(filepath.Join(t.TempDir(), "missing"))
		m := NewManager(paths, nil)

		artifacts, err := m.ListArtifacts()

		require.NoError(t, err)
		assert.Empty(t, artifacts)
	})
}

func TestManager_OpenArtifact(t *testing.T) {
	t.Run("opens by bare name", func(t *testing.T) {
		m, paths := testManager(t)
		writeArtifact(t, paths, "data_validation_report.txt", "all checks passed\n")

		file, info, err := m.OpenArtifact("data_validation_report.txt")

		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "data_validation_report.txt", info.Name)
		assert.Equal(t, int64(len("all checks passed\n")), info.SizeBytes)

		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "all checks passed\n", string(content))
	})

	t.Run("missing artifact keeps fs.ErrNotExist", func(t *testing.T) {
		m, _ := testManager(t)

		_, _, err := m.OpenArtifact("missing.csv")

		require.Error(t, err)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("rejects names with path elements", func(t *testing.T) {
		m, paths := testManager(t)
		// A file outside the output directory that a traversal would reach
		secret := filepath.Join(paths.DataDir, "secret.txt")
		require.NoError(t, os.WriteFile(secret, []byte("secret"), 0644))

		for _, name := range []string{
			"",
			".",
			"..",
			"../secret.txt",
			"sub/file.csv",
			".hidden",
			string(filepath.Separator) + "etc" + string(filepath.Separator) + "passwd",
		} {
			_, _, err := m.OpenArtifact(name)
			assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
		}
	})

	t.Run("rejects a directory name", func(t *testing.T) {
		m, paths := testManager(t)
		require.NoError(t, os.MkdirAll(filepath.Join(paths.OutputDir, "archive"), 0755))

		_, _, err := m.OpenArtifact("archive")

		assert.ErrorIs(t, err, ErrInvalidName)
	})
}
