// Package validation provides filesystem preflight checks for survey
// sources and output directories. Checks run before the ingest loader or
// the exporter touch a path, so failures surface with a clear cause
// instead of a mid-run decode or write error.
package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileValidator checks survey source files and output locations
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a validator, defaulting a nil logger
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateSourceFile checks that path names a readable, non-empty regular
// file. Format detection stays with the loader; this guards the filesystem
// properties only. Stat failures keep their cause in the error chain, so
// callers can test for fs.ErrNotExist.
func (v *FileValidator) ValidateSourceFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		v.logger.Warn("Source file failed stat",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("source file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Source path is a directory",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a survey file", path)
	}
	if info.Size() == 0 {
		v.logger.Error("Source file is empty",
			slog.String("file", path))
		return fmt.Errorf("source file %s is empty", path)
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		v.logger.Warn("Source file is an Office lock file",
			slog.String("file", path))
		return fmt.Errorf("%s is an Office lock file, not a survey extract", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("Source file is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("source file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("Source file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory verifies the directory accepts writes by creating
// and removing a probe file. Directory creation belongs to the paths layer;
// a missing directory fails here like an unwritable one.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	probe := filepath.Join(dir, ".write_test")
	file, err := os.Create(probe)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(probe)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}
