package validation

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testValidator() *FileValidator {
	return NewFileValidator(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewFileValidator(t *testing.T) {
	t.Run("keeps the given logger", func(t *testing.T) {
		logger := slog.Default()
		v := NewFileValidator(logger)
		require.NotNil(t, v)
		assert.Equal(t, logger, v.logger)
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		v := NewFileValidator(nil)
		require.NotNil(t, v)
		assert.NotNil(t, v.logger)
	})
}

func TestFileValidator_ValidateSourceFile(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		wantErr       bool
		errorContains string
	}{
		{
			name: "readable survey file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "extract.csv")
				require.NoError(t, os.WriteFile(path, []byte("year,state\n2023,Alabama\n"), 0644))
				return path
			},
			wantErr: false,
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.csv")
			},
			wantErr:       true,
			errorContains: "missing.csv",
		},
		{
			name: "path is a directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
			wantErr:       true,
			errorContains: "is a directory",
		},
		{
			name: "empty file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "empty.csv")
				require.NoError(t, os.WriteFile(path, nil, 0644))
				return path
			},
			wantErr:       true,
			errorContains: "is empty",
		},
		{
			name: "office lock file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "~$extract.xlsx")
				require.NoError(t, os.WriteFile(path, []byte("lock"), 0644))
				return path
			},
			wantErr:       true,
			errorContains: "lock file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setupFunc(t)

			err := testValidator().ValidateSourceFile(path)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("missing file keeps fs.ErrNotExist in the chain", func(t *testing.T) {
		err := testValidator().ValidateSourceFile(filepath.Join(t.TempDir(), "missing.csv"))
		require.Error(t, err)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	t.Run("writable directory passes", func(t *testing.T) {
		dir := t.TempDir()

		err := testValidator().ValidateOutputDirectory(dir)

		require.NoError(t, err)
		// The probe file is cleaned up
		_, statErr := os.Stat(filepath.Join(dir, ".write_test"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("missing directory fails as unwritable", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "missing")

		err := testValidator().ValidateOutputDirectory(dir)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "not writable")
	})
}
