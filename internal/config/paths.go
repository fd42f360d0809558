package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths.
// This is the single source of truth for file locations; everything resolves
// relative to the executable directory, never the working directory.
type Paths struct {
	ExecutableDir string
	DataDir       string
	RawDir        string
	OutputDir     string
	LogsDir       string
	WebDir        string
	StaticDir     string

	// Well-known output artifacts
	DashboardJSON    string
	ValidationReport string
	CorrelationCSV   string
	StateSummaryCSV  string
}

// GetPaths returns the application paths relative to the executable location
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	return PathsAt(filepath.Dir(exe)), nil
}

// PathsAt returns the application paths rooted at the given base directory.
// Directory structure:
//
//	data/
//	  raw/       (survey extracts: CSV or XLSX)
//	  output/    (dashboard JSON, QA reports, summary CSVs)
//	logs/
//	web/
func PathsAt(baseDir string) *Paths {
	dataDir := filepath.Join(baseDir, "data")
	outputDir := filepath.Join(dataDir, "output")

	return &Paths{
		ExecutableDir: baseDir,
		DataDir:       dataDir,
		RawDir:        filepath.Join(dataDir, "raw"),
		OutputDir:     outputDir,
		LogsDir:       filepath.Join(baseDir, "logs"),
		WebDir:        filepath.Join(baseDir, "web"),
		StaticDir:     filepath.Join(baseDir, "web", "static"),

		DashboardJSON:    filepath.Join(outputDir, DashboardFileName),
		ValidationReport: filepath.Join(outputDir, ValidationReportFileName),
		CorrelationCSV:   filepath.Join(outputDir, CorrelationFileName),
		StateSummaryCSV:  filepath.Join(outputDir, StateSummaryFileName),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.RawDir,
		p.OutputDir,
		p.LogsDir,
		p.WebDir,
		p.StaticDir,
	}

	logger := slog.Default()
	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		if logger != nil {
			logger.Debug("Ensured directory exists",
				slog.String("directory", dir))
		}
	}

	return nil
}

// LogPathResolution logs the resolved path layout for startup diagnostics
func (p *Paths) LogPathResolution() {
	logger := slog.Default()
	if logger == nil {
		return
	}

	wd, _ := os.Getwd()
	logger.Info("Resolved application paths",
		slog.Group("paths",
			slog.String("executable_dir", p.ExecutableDir),
			slog.String("raw_dir", p.RawDir),
			slog.String("output_dir", p.OutputDir),
			slog.String("logs_dir", p.LogsDir),
		),
		slog.String("working_dir", wd))
}

// GetRelativePath returns a path relative to the executable directory
func (p *Paths) GetRelativePath(subpath string) string {
	return filepath.Join(p.ExecutableDir, subpath)
}

// GetRawPath returns the path of a raw survey file
func (p *Paths) GetRawPath(filename string) string {
	return filepath.Join(p.RawDir, filename)
}

// GetOutputPath returns the path of a generated artifact
func (p *Paths) GetOutputPath(filename string) string {
	return filepath.Join(p.OutputDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetWebFilePath returns the path to a web file
func (p *Paths) GetWebFilePath(filename string) string {
	return filepath.Join(p.WebDir, filename)
}

// GetStaticFilePath returns the path to a static file
func (p *Paths) GetStaticFilePath(filename string) string {
	return filepath.Join(p.StaticDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
