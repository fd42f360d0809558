package surveillance

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"brfsspulse/pkg/contracts/domain"
)

// TrendCalculator computes national time series from cleaned records. Yearly
// values are population-weighted so large states move the national average
// proportionally.
type TrendCalculator struct {
	logger *slog.Logger
}

// NewTrendCalculator creates a trend calculator, defaulting a nil logger
func NewTrendCalculator(logger *slog.Logger) *TrendCalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrendCalculator{logger: logger}
}

// Calculate produces the year-ordered national series plus per-metric trend
// summaries. Year-over-year change is nil for the first year or a zero
// base; CAGR and the linear trend are nil when the series spans fewer than
// two years.
func (t *TrendCalculator) Calculate(ctx context.Context, records []Record) (TrendReport, error) {
	start := time.Now()

	byYear := make(map[int][]Record)
	for _, rec := range records {
		byYear[rec.Year] = append(byYear[rec.Year], rec)
	}
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	points := make([]TrendPoint, 0, len(years))
	for _, y := range years {
		select {
		case <-ctx.Done():
			return TrendReport{}, fmt.Errorf("trend calculation cancelled: %w", ctx.Err())
		default:
		}
		points = append(points, t.yearPoint(y, byYear[y]))
	}

	for i := range points {
		points[i].YoYChange = make(map[domain.Metric]*float64, len(domain.Metrics()))
		for _, m := range domain.Metrics() {
			if i == 0 {
				points[i].YoYChange[m] = nil
				continue
			}
			prev := points[i-1].Values[m]
			if prev == 0 {
				points[i].YoYChange[m] = nil
				continue
			}
			cur := points[i].Values[m]
			points[i].YoYChange[m] = floatPtr((cur - prev) / prev * 100)
		}
	}

	trends := make(map[domain.Metric]MetricTrend, len(domain.Metrics()))
	for _, m := range domain.Metrics() {
		trends[m] = t.summarizeMetric(m, points)
	}

	t.logger.InfoContext(ctx, "trend calculation completed",
		"years", len(points),
		"records", len(records),
		"duration", time.Since(start),
	)
	return TrendReport{Points: points, Trends: trends}, nil
}

// yearPoint computes one year's population-weighted national averages
func (t *TrendCalculator) yearPoint(year int, group []Record) TrendPoint {
	values := make(map[domain.Metric]float64, len(domain.Metrics()))
	var pop int64
	for _, rec := range group {
		pop += rec.Population
	}
	for _, m := range domain.Metrics() {
		vs := make([]float64, 0, len(group))
		ws := make([]float64, 0, len(group))
		for _, rec := range group {
			vs = append(vs, rec.Value(m))
			ws = append(ws, float64(rec.Population))
		}
		if wm, ok := weightedMean(vs, ws); ok {
			values[m] = wm
		} else {
			values[m] = mean(vs)
		}
	}
	return TrendPoint{
		Year:       year,
		Values:     values,
		Records:    len(group),
		Population: pop,
	}
}

// summarizeMetric fits the whole-series statistics for one metric
func (t *TrendCalculator) summarizeMetric(m domain.Metric, points []TrendPoint) MetricTrend {
	trend := MetricTrend{Metric: m}
	if len(points) == 0 {
		return trend
	}
	trend.StartYear = points[0].Year
	trend.EndYear = points[len(points)-1].Year
	if len(points) < 2 {
		return trend
	}

	series := make([]float64, len(points))
	idx := make([]float64, len(points))
	for i, p := range points {
		series[i] = p.Values[m]
		idx[i] = float64(i)
	}

	if g, ok := cagr(series[0], series[len(series)-1], len(series)); ok {
		trend.CAGR = floatPtr(g)
	}
	if _, slope, r2, ok := olsFit(idx, series); ok {
		trend.Slope = floatPtr(slope)
		trend.RSquared = floatPtr(r2)
	}
	return trend
}
