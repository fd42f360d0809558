package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"brfsspulse/internal/config"
	"brfsspulse/internal/infrastructure"
	"brfsspulse/internal/pipeline"
	"brfsspulse/internal/services"
	api "brfsspulse/pkg/contracts/api/v1"
)

func main() {
	source := flag.String("source", "", "survey extract to process (defaults to the configured ingest source)")
	format := flag.String("format", "", "source format: csv, xlsx or auto (defaults to detection by extension)")
	sheet := flag.String("sheet", "", "xlsx worksheet to read (defaults to the first sheet)")
	baseDir := flag.String("dir", "", "base directory for data and output files (defaults to the executable directory)")
	timeout := flag.Duration("timeout", 0, "pipeline run budget (defaults to the configured timeout)")
	flag.Parse()

	// Initialize paths first to get default directories
	var paths *config.Paths
	var err error
	if *baseDir != "" {
		paths = config.PathsAt(*baseDir)
	} else {
		paths, err = config.GetPaths()
		if err != nil {
			slog.Error("Failed to initialize paths", "error", err)
			os.Exit(1)
		}
	}

	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	cfg.Logging.FilePath = paths.GetLogPath("pipeline.log")
	if *sheet != "" {
		cfg.Ingest.Sheet = *sheet
	}
	if *timeout > 0 {
		cfg.Pipeline.Timeout = *timeout
	}

	reqFormat, err := resolveFormat(*format)
	if err != nil {
		slog.Error("Invalid format flag", "error", err)
		os.Exit(1)
	}
	cfgSource, reqSource := resolveSourceFlag(*source)
	if cfgSource != "" {
		cfg.Ingest.Source = cfgSource
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	logger.Info("Starting survey pipeline run",
		slog.String("configured_source", cfg.Ingest.Source),
		slog.String("requested_source", reqSource),
		slog.String("format", reqFormat),
		slog.Duration("timeout", cfg.Pipeline.Timeout),
		slog.String("executable_dir", paths.ExecutableDir))

	svc := services.NewAnalyticsServiceWithPaths(cfg, paths, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Processing survey data...")
	started := time.Now()

	result, err := svc.Run(ctx, api.RunRequest{Source: reqSource, Format: reqFormat})
	if err != nil {
		if result == nil {
			logger.Error("Pipeline run failed", slog.String("error", err.Error()))
			fmt.Fprintf(os.Stderr, "pipeline run failed: %v\n", err)
			os.Exit(1)
		}
		// Analysis succeeded but the artifacts did not reach disk
		logger.Warn("Artifact export failed, results computed but not written",
			slog.String("run_id", result.Meta.RunID),
			slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	logger.Info("Pipeline run finished",
		slog.String("run_id", result.Meta.RunID),
		slog.Bool("degraded", result.Meta.Degraded),
		slog.Duration("elapsed", time.Since(started)))

	printSummary(os.Stdout, result)
	if err == nil {
		printArtifacts(os.Stdout, paths)
	}
}

// resolveFormat normalizes the -format flag. Empty and "auto" defer to
// detection by file extension.
func resolveFormat(value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return "", nil
	case "csv":
		return "csv", nil
	case "xlsx":
		return "xlsx", nil
	default:
		return "", fmt.Errorf("unsupported format %q, want csv, xlsx or auto", value)
	}
}

// resolveSourceFlag maps the -source flag onto the two source settings the
// analytics service understands. Absolute paths and paths that exist from
// the working directory override the configured source; bare names pass
// through the run request and resolve against the raw data directory.
func resolveSourceFlag(value string) (cfgSource, reqSource string) {
	if value == "" {
		return "", ""
	}
	if filepath.IsAbs(value) {
		return value, ""
	}
	if _, err := os.Stat(value); err == nil {
		abs, err := filepath.Abs(value)
		if err != nil {
			return value, ""
		}
		return abs, ""
	}
	return "", value
}

// printSummary writes the run accounting to the console
func printSummary(w io.Writer, result *pipeline.Result) {
	status := "completed"
	if result.Meta.Degraded {
		status = "completed degraded"
	}
	fmt.Fprintf(w, "Run %s %s in %dms\n", result.Meta.RunID, status, result.Meta.DurationMS)
	fmt.Fprintf(w, "Rows: %d decoded, %d processed, %d rejected (%.1f%%)\n",
		result.Meta.RawRowCount, result.Meta.ProcessedRowCount,
		result.Meta.RejectedRowCount, result.Quality.RejectionRate*100)
	fmt.Fprintf(w, "Removed: %d duplicates, %d outliers\n",
		result.Meta.DuplicatesRemoved, result.Meta.OutliersRemoved)
	fmt.Fprintf(w, "Computed: %d state summaries, %d trend points, %d demographic groups, %d correlations\n",
		len(result.States), len(result.Trends.Points), len(result.Demographics), len(result.Correlations))
	for _, check := range result.Quality.Checks {
		mark := "pass"
		if !check.Passed {
			mark = "FAIL"
		}
		if check.Detail != "" {
			fmt.Fprintf(w, "Quality %s: %s (%s)\n", mark, check.Name, check.Detail)
		} else {
			fmt.Fprintf(w, "Quality %s: %s\n", mark, check.Name)
		}
	}
}

// printArtifacts lists the files a successful export wrote
func printArtifacts(w io.Writer, paths *config.Paths) {
	fmt.Fprintln(w, "Artifacts written:")
	for _, p := range []string{
		paths.DashboardJSON,
		paths.ValidationReport,
		paths.StateSummaryCSV,
		paths.CorrelationCSV,
	} {
		fmt.Fprintf(w, "  %s\n", p)
	}
}
