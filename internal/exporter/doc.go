// Package exporter writes the artifacts of a completed pipeline run.
//
// This package contains three main components:
//
// Exporter: Writes every artifact for a run (dashboard JSON, validation
// report, correlation matrix, state summary), collecting per-artifact
// failures so one bad write never blocks the rest.
//
// CSVWriter: Core CSV writing functionality with UTF-8 BOM for Excel
// compatibility and automatic directory creation.
//
// BuildDashboard: Maps a pipeline result onto the dashboard payload the
// web frontend consumes. The JSON field layout is fixed; dashboards parse
// it positionally.
//
// Example usage:
//
//	// Create an exporter rooted at the configured output layout
//	exp := exporter.NewExporter(paths, logger)
//
//	// Write all artifacts for a completed run
//	err := exp.ExportAll(ctx, result)
//
//	// Or build just the dashboard payload for an API response
//	payload := exporter.BuildDashboard(result)
package exporter
