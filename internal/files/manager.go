package files

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"brfsspulse/internal/config"
)

// ErrInvalidName rejects artifact names that are empty, hidden or carry
// path elements
var ErrInvalidName = errors.New("invalid artifact name")

// FileInfo describes one file in the data tree
type FileInfo struct {
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Manager resolves run artifacts under the application output directory.
// Artifact names are bare file names; anything carrying a path element is
// rejected before it reaches the filesystem.
type Manager struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewManager creates a manager rooted at the given paths
func NewManager(paths *config.Paths, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{paths: paths, logger: logger}
}

// ListArtifacts returns the regular files in the output directory, newest
// first. A missing output directory lists as empty; a run has simply not
// happened yet.
func (m *Manager) ListArtifacts() ([]FileInfo, error) {
	artifacts, err := scanDir(m.paths.OutputDir, func(name string) bool {
		return !strings.HasPrefix(name, ".")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory %s: %w", m.paths.OutputDir, err)
	}

	m.logger.Debug("Artifacts listed",
		slog.String("directory", m.paths.OutputDir),
		slog.Int("count", len(artifacts)))
	return artifacts, nil
}

// OpenArtifact opens one artifact by bare name for download. The caller
// closes the file. A missing artifact keeps fs.ErrNotExist in the chain.
func (m *Manager) OpenArtifact(name string) (*os.File, FileInfo, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, FileInfo{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	path := filepath.Join(m.paths.OutputDir, name)
	info, err := os.Stat(path)
	if err != nil {
		return nil, FileInfo{}, fmt.Errorf("artifact %s: %w", name, err)
	}
	if info.IsDir() {
		return nil, FileInfo{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, FileInfo{}, fmt.Errorf("failed to open artifact %s: %w", name, err)
	}

	m.logger.Debug("Artifact opened",
		slog.String("name", name),
		slog.Int64("size", info.Size()))
	return file, FileInfo{Name: name, SizeBytes: info.Size(), ModifiedAt: info.ModTime()}, nil
}
