package exporter

import (
	"context"
	"log/slog"

	"brfsspulse/internal/config"
	"brfsspulse/internal/pipeline"
)

// Exporter writes every artifact a run produces. Artifact failures are
// collected; the remaining artifacts still write.
type Exporter struct {
	csv    *CSVWriter
	paths  *config.Paths
	logger *slog.Logger
}

// NewExporter creates an exporter rooted at the given output layout
func NewExporter(paths *config.Paths, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		csv:    NewCSVWriter(paths, logger),
		paths:  paths,
		logger: logger,
	}
}

// Paths returns the output layout the exporter writes into
func (e *Exporter) Paths() *config.Paths {
	return e.paths
}

// ExportAll writes the dashboard JSON and the quality artifacts for a run
func (e *Exporter) ExportAll(ctx context.Context, result *pipeline.Result) error {
	artifacts := []struct {
		name string
		fn   func() error
	}{
		{"dashboard", func() error { return e.ExportDashboard(ctx, result, e.paths.DashboardJSON) }},
		{"validation_report", func() error { return e.ExportValidationReport(ctx, result, e.paths.ValidationReport) }},
		{"correlation_matrix", func() error { return e.ExportCorrelationMatrix(ctx, result, e.paths.CorrelationCSV) }},
		{"state_summary", func() error { return e.ExportStateSummary(ctx, result, e.paths.StateSummaryCSV) }},
	}

	var errs pipeline.ErrorList
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			errs.Add(pipeline.WrapError(err, "export"))
			break
		}
		if err := a.fn(); err != nil {
			e.logger.ErrorContext(ctx, "artifact export failed",
				slog.String("artifact", a.name),
				slog.String("error", err.Error()))
			errs.Add(pipeline.WrapError(err, "export"))
		}
	}

	e.logger.InfoContext(ctx, "export complete",
		slog.Int("artifacts", len(artifacts)),
		slog.Int("failures", len(errs.Errors)))
	return errs.ErrOrNil()
}
