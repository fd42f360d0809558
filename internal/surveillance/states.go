package surveillance

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"brfsspulse/pkg/contracts/domain"
)

// StateAggregator computes per-jurisdiction descriptive statistics from
// cleaned records
type StateAggregator struct {
	params *AggregationParams
	logger *slog.Logger
}

// NewStateAggregator creates an aggregator, defaulting nil parameters and
// logger
func NewStateAggregator(params *AggregationParams, logger *slog.Logger) *StateAggregator {
	if params == nil {
		params = DefaultAggregationParams()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StateAggregator{params: params, logger: logger}
}

// Aggregate groups records by state and computes per-metric statistics.
// Output is sorted by descending mean of the primary metric, ties broken by
// state name ascending, so identical inputs always produce identical
// rankings.
func (a *StateAggregator) Aggregate(ctx context.Context, records []Record) ([]StateSummary, error) {
	start := time.Now()
	if !a.params.IsValid() {
		return nil, fmt.Errorf("invalid aggregation params: primary_metric=%q", a.params.PrimaryMetric)
	}

	byState := make(map[string][]Record)
	for _, rec := range records {
		byState[rec.State] = append(byState[rec.State], rec)
	}

	summaries := make([]StateSummary, 0, len(byState))
	for state, group := range byState {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("aggregation cancelled: %w", ctx.Err())
		default:
		}
		summaries = append(summaries, a.summarizeState(state, group))
	}

	primary := a.params.PrimaryMetric
	sort.Slice(summaries, func(i, j int) bool {
		mi := summaries[i].Metrics[primary].Mean
		mj := summaries[j].Metrics[primary].Mean
		if mi != mj {
			return mi > mj
		}
		return summaries[i].State < summaries[j].State
	})

	a.logger.InfoContext(ctx, "state aggregation completed",
		"states", len(summaries),
		"records", len(records),
		"primary_metric", primary,
		"duration", time.Since(start),
	)
	return summaries, nil
}

// summarizeState computes the full metric block for one jurisdiction
func (a *StateAggregator) summarizeState(state string, group []Record) StateSummary {
	firstYear, latestYear := group[0].Year, group[0].Year
	var popSum float64
	for _, rec := range group {
		if rec.Year < firstYear {
			firstYear = rec.Year
		}
		if rec.Year > latestYear {
			latestYear = rec.Year
		}
		popSum += float64(rec.Population)
	}

	metrics := make(map[domain.Metric]MetricStats, len(domain.Metrics()))
	for _, m := range domain.Metrics() {
		values := make([]float64, 0, len(group))
		weights := make([]float64, 0, len(group))
		latestValues := make([]float64, 0, 8)
		minV, maxV := group[0].Value(m), group[0].Value(m)

		for _, rec := range group {
			v := rec.Value(m)
			values = append(values, v)
			weights = append(weights, float64(rec.Population))
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
			if rec.Year == latestYear {
				latestValues = append(latestValues, v)
			}
		}

		wm, ok := weightedMean(values, weights)
		if !ok {
			wm = mean(values)
		}
		metrics[m] = MetricStats{
			Mean:         mean(values),
			Median:       median(values),
			StdDev:       sampleStdDev(values),
			Min:          minV,
			Max:          maxV,
			WeightedMean: wm,
			Latest:       mean(latestValues),
		}
	}

	return StateSummary{
		State:         state,
		Abbr:          group[0].StateAbbr,
		FirstYear:     firstYear,
		LatestYear:    latestYear,
		Records:       len(group),
		AvgPopulation: popSum / float64(len(group)),
		Metrics:       metrics,
	}
}

// AggregateByYear groups records by (state, year). Output is ordered by
// state name then year ascending.
func (a *StateAggregator) AggregateByYear(ctx context.Context, records []Record) ([]StateYearSummary, error) {
	type stateYear struct {
		state string
		year  int
	}
	byCell := make(map[stateYear][]Record)
	for _, rec := range records {
		k := stateYear{rec.State, rec.Year}
		byCell[k] = append(byCell[k], rec)
	}

	summaries := make([]StateYearSummary, 0, len(byCell))
	for cell, group := range byCell {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("aggregation cancelled: %w", ctx.Err())
		default:
		}

		means := make(map[domain.Metric]float64, len(domain.Metrics()))
		weighted := make(map[domain.Metric]float64, len(domain.Metrics()))
		var pop int64
		for _, rec := range group {
			pop += rec.Population
		}
		for _, m := range domain.Metrics() {
			values := make([]float64, 0, len(group))
			weights := make([]float64, 0, len(group))
			for _, rec := range group {
				values = append(values, rec.Value(m))
				weights = append(weights, float64(rec.Population))
			}
			means[m] = mean(values)
			if wm, ok := weightedMean(values, weights); ok {
				weighted[m] = wm
			} else {
				weighted[m] = means[m]
			}
		}
		summaries = append(summaries, StateYearSummary{
			State:         cell.state,
			Abbr:          group[0].StateAbbr,
			Year:          cell.year,
			Records:       len(group),
			Means:         means,
			WeightedMeans: weighted,
			Population:    pop,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].State != summaries[j].State {
			return summaries[i].State < summaries[j].State
		}
		return summaries[i].Year < summaries[j].Year
	})
	return summaries, nil
}
