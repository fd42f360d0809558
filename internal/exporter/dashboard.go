package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"brfsspulse/internal/pipeline"
	api "brfsspulse/pkg/contracts/api/v1"
	"brfsspulse/pkg/contracts/domain"
)

// BuildDashboard maps a pipeline result onto the dashboard payload. State
// entries keep the aggregator's ordering and carry most-recent-year values;
// percentages are rounded to one decimal and populations to whole numbers.
func BuildDashboard(result *pipeline.Result) api.DashboardPayload {
	payload := api.DashboardPayload{
		States: make([]api.StateEntry, 0, len(result.States)),
		DemographicBreakdown: api.DemographicBreakdown{
			AgeGroups:     []api.DemographicEntry{},
			RaceEthnicity: []api.DemographicEntry{},
			IncomeLevel:   []api.DemographicEntry{},
		},
	}

	for _, s := range result.States {
		payload.States = append(payload.States, api.StateEntry{
			Name:            s.State,
			Abbr:            s.Abbr,
			DiabetesPct:     round1(s.Metrics[domain.MetricDiabetes].Latest),
			ObesityPct:      round1(s.Metrics[domain.MetricObesity].Latest),
			HeartDiseasePct: round1(s.Metrics[domain.MetricHeartDisease].Latest),
			InactivityPct:   round1(s.Metrics[domain.MetricInactivity].Latest),
			Population:      int64(math.Round(s.AvgPopulation)),
		})
	}

	points := result.Trends.Points
	trends := api.NationalTrends{
		Years:        make([]int, 0, len(points)),
		Diabetes:     make([]float64, 0, len(points)),
		Obesity:      make([]float64, 0, len(points)),
		HeartDisease: make([]float64, 0, len(points)),
		Inactivity:   make([]float64, 0, len(points)),
	}
	for _, p := range points {
		trends.Years = append(trends.Years, p.Year)
		trends.Diabetes = append(trends.Diabetes, round1(p.Values[domain.MetricDiabetes]))
		trends.Obesity = append(trends.Obesity, round1(p.Values[domain.MetricObesity]))
		trends.HeartDisease = append(trends.HeartDisease, round1(p.Values[domain.MetricHeartDisease]))
		trends.Inactivity = append(trends.Inactivity, round1(p.Values[domain.MetricInactivity]))
	}
	payload.NationalTrends = trends

	for _, ds := range result.Demographics {
		entries := make([]api.DemographicEntry, 0, len(ds.Groups))
		for _, g := range ds.Groups {
			entries = append(entries, api.DemographicEntry{
				Category:        g.Category,
				DiabetesPct:     round1(g.Means[domain.MetricDiabetes]),
				ObesityPct:      round1(g.Means[domain.MetricObesity]),
				HeartDiseasePct: round1(g.Means[domain.MetricHeartDisease]),
				InactivityPct:   round1(g.Means[domain.MetricInactivity]),
				States:          g.States,
			})
		}
		switch ds.Dimension {
		case domain.DimensionAgeGroup:
			payload.DemographicBreakdown.AgeGroups = entries
		case domain.DimensionRaceEthnicity:
			payload.DemographicBreakdown.RaceEthnicity = entries
		case domain.DimensionIncomeLevel:
			payload.DemographicBreakdown.IncomeLevel = entries
		}
	}

	payload.Metadata = api.Metadata{
		RunID:             result.Meta.RunID,
		GeneratedAt:       time.Now().UTC().Format(time.RFC3339),
		Degraded:          result.Meta.Degraded,
		RejectedRowCount:  result.Meta.RejectedRowCount,
		RejectionReasons:  copyCounts(result.Meta.RejectionReasons),
		ProcessedRowCount: result.Meta.ProcessedRowCount,
		QualityChecks:     copyChecks(result.Meta.QualityChecks),
	}
	return payload
}

// ExportDashboard writes the dashboard payload as indented JSON
func (e *Exporter) ExportDashboard(ctx context.Context, result *pipeline.Result, path string) error {
	payload := BuildDashboard(result)

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard payload: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write dashboard file: %w", err)
	}

	e.logger.InfoContext(ctx, "dashboard exported",
		slog.String("path", path),
		slog.Int("states", len(payload.States)),
		slog.Int("bytes", len(data)))
	return nil
}

// copyCounts clones a count map so the payload never aliases run state.
// Nil maps come back empty; the dashboard expects an object, not null.
func copyCounts(src map[string]int) map[string]int {
	out := make(map[string]int, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func copyChecks(src map[string]bool) map[string]bool {
	out := make(map[string]bool, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
