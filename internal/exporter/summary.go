package exporter

import (
	"context"
	"log/slog"
	"math"

	"brfsspulse/internal/pipeline"
	"brfsspulse/internal/surveillance"
	"brfsspulse/pkg/contracts/domain"
)

// ExportStateSummary writes the per-state CSV analysts pull into
// spreadsheets. Rows keep the aggregator's ordering.
func (e *Exporter) ExportStateSummary(ctx context.Context, result *pipeline.Result, path string) error {
	headers, records := stateSummaryRecords(result.States)
	if err := e.csv.WriteSimpleCSV(path, headers, records); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "state summary exported",
		slog.String("path", path),
		slog.Int("states", len(records)))
	return nil
}

// ExportCorrelationMatrix writes the metric correlation matrix as CSV
func (e *Exporter) ExportCorrelationMatrix(ctx context.Context, result *pipeline.Result, path string) error {
	headers, records := correlationMatrixRecords(result.Correlations)
	if err := e.csv.WriteSimpleCSV(path, headers, records); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "correlation matrix exported", slog.String("path", path))
	return nil
}

// stateSummaryRecords builds the state summary header and rows. Metric
// columns follow the canonical metric order with a mean and a latest-year
// column per metric.
func stateSummaryRecords(states []surveillance.StateSummary) ([]string, [][]string) {
	headers := []string{"state", "abbr", "latest_year", "records", "avg_population"}
	for _, m := range domain.Metrics() {
		headers = append(headers, string(m)+"_mean", string(m)+"_latest")
	}

	records := make([][]string, 0, len(states))
	for _, s := range states {
		record := []string{
			s.State,
			s.Abbr,
			formatInt(int64(s.LatestYear)),
			formatInt(int64(s.Records)),
			formatInt(int64(math.Round(s.AvgPopulation))),
		}
		for _, m := range domain.Metrics() {
			stats := s.Metrics[m]
			record = append(record, formatPct(round1(stats.Mean)), formatPct(round1(stats.Latest)))
		}
		records = append(records, record)
	}
	return headers, records
}

// correlationMatrixRecords renders the pairwise Pearson coefficients as a
// symmetric matrix. Cells for pairs that could not be computed are left
// blank; the diagonal is always 1.
func correlationMatrixRecords(correlations []surveillance.CorrelationResult) ([]string, [][]string) {
	metrics := domain.Metrics()

	cells := make(map[[2]domain.Metric]*float64, len(correlations)*2)
	for _, c := range correlations {
		cells[[2]domain.Metric{c.X, c.Y}] = c.Pearson
		cells[[2]domain.Metric{c.Y, c.X}] = c.Pearson
	}

	headers := []string{"metric"}
	for _, m := range metrics {
		headers = append(headers, string(m))
	}

	records := make([][]string, 0, len(metrics))
	for _, row := range metrics {
		record := []string{string(row)}
		for _, col := range metrics {
			switch r := cells[[2]domain.Metric{row, col}]; {
			case row == col:
				record = append(record, formatCorrelation(1))
			case r != nil:
				record = append(record, formatCorrelation(*r))
			default:
				record = append(record, "")
			}
		}
		records = append(records, record)
	}
	return headers, records
}
