package surveillance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"brfsspulse/pkg/contracts/domain"
)

// DemographicStratifier computes per-category aggregates along each
// stratification axis and the disparity ratio between the highest and
// lowest group per metric
type DemographicStratifier struct {
	logger *slog.Logger
}

// NewDemographicStratifier creates a stratifier, defaulting a nil logger
func NewDemographicStratifier(logger *slog.Logger) *DemographicStratifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &DemographicStratifier{logger: logger}
}

// Stratify produces one summary per axis. Groups follow the canonical
// category order; categories with no qualifying records are omitted from
// the group list and make the axis's disparity ratios undefined.
func (d *DemographicStratifier) Stratify(ctx context.Context, records []Record) ([]DimensionSummary, error) {
	start := time.Now()

	summaries := make([]DimensionSummary, 0, len(domain.Dimensions()))
	for _, dim := range domain.Dimensions() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("stratification cancelled: %w", ctx.Err())
		default:
		}
		summaries = append(summaries, d.stratifyDimension(dim, records))
	}

	d.logger.InfoContext(ctx, "demographic stratification completed",
		"dimensions", len(summaries),
		"records", len(records),
		"duration", time.Since(start),
	)
	return summaries, nil
}

// stratifyDimension groups records along one axis and derives per-metric
// disparities
func (d *DemographicStratifier) stratifyDimension(dim domain.Dimension, records []Record) DimensionSummary {
	byCategory := make(map[string][]Record)
	for _, rec := range records {
		c := rec.Category(dim)
		byCategory[c] = append(byCategory[c], rec)
	}

	categories := dim.Categories()
	groups := make([]GroupSummary, 0, len(categories))
	observed := 0
	for _, c := range categories {
		group, ok := byCategory[c]
		if !ok {
			continue
		}
		observed++
		groups = append(groups, d.summarizeGroup(dim, c, group))
	}

	disparities := make(map[domain.Metric]Disparity, len(domain.Metrics()))
	for _, m := range domain.Metrics() {
		disparities[m] = d.disparity(m, groups, observed == len(categories))
	}

	return DimensionSummary{
		Dimension:   dim,
		Groups:      groups,
		Disparities: disparities,
	}
}

// summarizeGroup computes one category's aggregates
func (d *DemographicStratifier) summarizeGroup(dim domain.Dimension, category string, group []Record) GroupSummary {
	states := make(map[string]bool)
	for _, rec := range group {
		states[rec.State] = true
	}

	means := make(map[domain.Metric]float64, len(domain.Metrics()))
	stds := make(map[domain.Metric]float64, len(domain.Metrics()))
	for _, m := range domain.Metrics() {
		values := make([]float64, 0, len(group))
		for _, rec := range group {
			values = append(values, rec.Value(m))
		}
		means[m] = mean(values)
		stds[m] = sampleStdDev(values)
	}

	return GroupSummary{
		Dimension: dim,
		Category:  category,
		Records:   len(group),
		States:    len(states),
		Means:     means,
		StdDevs:   stds,
	}
}

// disparity finds the max/min group mean ratio for one metric. The ratio is
// undefined when a category had no records or the lowest mean is zero.
func (d *DemographicStratifier) disparity(m domain.Metric, groups []GroupSummary, complete bool) Disparity {
	if !complete {
		return Disparity{Reason: "category without qualifying records"}
	}
	if len(groups) == 0 {
		return Disparity{Reason: "no records"}
	}

	high, low := groups[0], groups[0]
	for _, g := range groups[1:] {
		if g.Means[m] > high.Means[m] {
			high = g
		}
		if g.Means[m] < low.Means[m] {
			low = g
		}
	}
	if low.Means[m] == 0 {
		return Disparity{
			HighCategory: high.Category,
			LowCategory:  low.Category,
			Reason:       "lowest group mean is zero",
		}
	}
	return Disparity{
		Ratio:        floatPtr(high.Means[m] / low.Means[m]),
		HighCategory: high.Category,
		LowCategory:  low.Category,
	}
}
