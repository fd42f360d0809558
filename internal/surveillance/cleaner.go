package surveillance

import (
	"context"
	"fmt"
	"log/slog"

	"brfsspulse/pkg/contracts/domain"
)

// Cleaner turns validated rows into analysis-ready records. Steps run in a
// fixed order: missing-value exclusion, normalization to canonical labels,
// stratum deduplication, then IQR outlier removal per (state, metric)
// group. Rows with blank metric cells are excluded outright; the pipeline
// never imputes.
type Cleaner struct {
	params *CleaningParams
	logger *slog.Logger
}

// NewCleaner creates a cleaner, defaulting nil parameters and logger
func NewCleaner(params *CleaningParams, logger *slog.Logger) *Cleaner {
	if params == nil {
		params = DefaultCleaningParams()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{params: params, logger: logger}
}

// Clean processes rows in input order and returns cleaned records plus the
// cleaning report. Output order follows first appearance, which makes the
// pass deterministic and a second pass over its own output a no-op.
func (c *Cleaner) Clean(ctx context.Context, rows []domain.HealthRecord) ([]Record, CleaningReport, error) {
	if !c.params.IsValid() {
		return nil, CleaningReport{}, fmt.Errorf("invalid cleaning params: multiplier=%.2f, min_group_size=%d", c.params.OutlierMultiplier, c.params.MinGroupSize)
	}

	report := CleaningReport{
		Input:            len(rows),
		OutliersByMetric: make(map[domain.Metric]int),
	}

	normalized := make([]Record, 0, len(rows))
	for _, row := range rows {
		if !row.HasAllMetrics() {
			report.MissingExcluded++
			c.logger.DebugContext(ctx, "row excluded for missing metrics",
				"line", row.Line,
				"missing", row.MissingMetrics(),
			)
			continue
		}
		rec, ok := c.normalize(row)
		if !ok {
			report.Unresolvable++
			c.logger.WarnContext(ctx, "row failed canonical lookup",
				"line", row.Line,
				"state", row.State,
			)
			continue
		}
		normalized = append(normalized, rec)
	}

	select {
	case <-ctx.Done():
		return nil, CleaningReport{}, fmt.Errorf("cleaning cancelled: %w", ctx.Err())
	default:
	}

	deduped := c.dedupe(ctx, normalized, &report)
	cleaned, err := c.removeOutliers(ctx, deduped, &report)
	if err != nil {
		return nil, CleaningReport{}, err
	}
	report.Output = len(cleaned)

	c.logger.InfoContext(ctx, "cleaning completed",
		"input", report.Input,
		"output", report.Output,
		"missing_excluded", report.MissingExcluded,
		"duplicates_removed", report.DuplicatesRemoved,
		"outliers_removed", report.OutliersRemoved,
	)
	return cleaned, report, nil
}

// normalize maps a raw row to a record with canonical labels and a complete
// value set
func (c *Cleaner) normalize(row domain.HealthRecord) (Record, bool) {
	st, ok := CanonicalState(row.State)
	if !ok {
		return Record{}, false
	}
	ag, ok := domain.CanonicalAgeGroup(row.AgeGroup)
	if !ok {
		return Record{}, false
	}
	re, ok := domain.CanonicalRaceEthnicity(row.RaceEthnicity)
	if !ok {
		return Record{}, false
	}
	il, ok := domain.CanonicalIncomeLevel(row.IncomeLevel)
	if !ok {
		return Record{}, false
	}

	values := make(map[domain.Metric]float64, len(domain.Metrics()))
	for _, m := range domain.Metrics() {
		values[m] = *row.MetricValue(m)
	}
	return Record{
		Year:          row.Year,
		State:         st.Name,
		StateAbbr:     st.Abbr,
		AgeGroup:      ag,
		RaceEthnicity: re,
		IncomeLevel:   il,
		Values:        values,
		Population:    row.Population,
		SampleSize:    row.SampleSize,
	}, true
}

// dedupe collapses records sharing a stratum key, keeping the one with the
// larger sample size. First appearance wins ties and fixes output position.
func (c *Cleaner) dedupe(ctx context.Context, records []Record, report *CleaningReport) []Record {
	out := make([]Record, 0, len(records))
	index := make(map[StratumKey]int, len(records))

	for _, rec := range records {
		key := rec.Key()
		at, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, rec)
			continue
		}

		report.DuplicatesRemoved++
		kept := out[at]
		if rec.SampleSize > kept.SampleSize {
			out[at] = rec
			kept = rec
		}
		c.logger.DebugContext(ctx, "duplicate stratum discarded",
			"year", key.Year,
			"state", key.State,
			"age_group", key.AgeGroup,
			"kept_sample_size", kept.SampleSize,
		)
	}
	return out
}

// removeOutliers drops records whose value for any metric falls outside the
// IQR fences of its (state, metric) group. Boundary values are kept. Groups
// below the minimum size are left unfiltered.
func (c *Cleaner) removeOutliers(ctx context.Context, records []Record, report *CleaningReport) ([]Record, error) {
	byState := make(map[string][]int)
	for i, rec := range records {
		byState[rec.State] = append(byState[rec.State], i)
	}

	excluded := make(map[int]bool)
	for state, idxs := range byState {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("outlier removal cancelled: %w", ctx.Err())
		default:
		}
		if len(idxs) < c.params.MinGroupSize {
			continue
		}

		for _, m := range domain.Metrics() {
			values := make([]float64, len(idxs))
			for j, i := range idxs {
				values[j] = records[i].Value(m)
			}
			sorted := sortedCopy(values)
			q1 := quantile(sorted, 0.25)
			q3 := quantile(sorted, 0.75)
			iqr := q3 - q1
			lower := q1 - c.params.OutlierMultiplier*iqr
			upper := q3 + c.params.OutlierMultiplier*iqr

			for j, i := range idxs {
				if values[j] < lower || values[j] > upper {
					if !excluded[i] {
						c.logger.DebugContext(ctx, "outlier excluded",
							"state", state,
							"metric", m,
							"value", values[j],
							"lower", lower,
							"upper", upper,
						)
					}
					excluded[i] = true
					report.OutliersByMetric[m]++
				}
			}
		}
	}

	if len(excluded) == 0 {
		return records, nil
	}
	out := make([]Record, 0, len(records)-len(excluded))
	for i, rec := range records {
		if excluded[i] {
			continue
		}
		out = append(out, rec)
	}
	report.OutliersRemoved = len(excluded)
	return out, nil
}
