package pipeline

import (
	"time"

	"brfsspulse/internal/surveillance"
)

// Result bundles every analytical product of a completed run together with
// the reports that describe how the input was reduced along the way.
type Result struct {
	States       []surveillance.StateSummary     `json:"states"`
	StateYears   []surveillance.StateYearSummary `json:"state_years"`
	Trends       surveillance.TrendReport        `json:"trends"`
	Demographics []surveillance.DimensionSummary `json:"demographics"`
	Correlations []surveillance.CorrelationResult `json:"correlations"`
	Quality      surveillance.QualityReport      `json:"quality"`
	Validation   surveillance.ValidationReport   `json:"validation"`
	Cleaning     surveillance.CleaningReport     `json:"cleaning"`
	Meta         RunMetadata                     `json:"meta"`
}

// RunMetadata records the accounting for a run. Rejected rows cover
// validation failures plus rows excluded for missing metric values;
// duplicates and outliers are itemized separately and never count as
// rejections.
type RunMetadata struct {
	RunID             string          `json:"run_id"`
	StartedAt         time.Time       `json:"started_at"`
	CompletedAt       time.Time       `json:"completed_at"`
	DurationMS        int64           `json:"duration_ms"`
	Degraded          bool            `json:"degraded"`
	RawRowCount       int             `json:"raw_row_count"`
	ProcessedRowCount int             `json:"processed_row_count"`
	RejectedRowCount  int             `json:"rejected_row_count"`
	RejectionReasons  map[string]int  `json:"rejection_reasons"`
	DuplicatesRemoved int             `json:"duplicates_removed"`
	OutliersRemoved   int             `json:"outliers_removed"`
	QualityChecks     map[string]bool `json:"quality_checks"`
}

// buildMetadata assembles run accounting from the stage reports
func buildMetadata(runID string, started time.Time, result *Result) RunMetadata {
	completed := time.Now()

	reasons := make(map[string]int, len(result.Validation.Reasons)+1)
	for reason, count := range result.Validation.Reasons {
		reasons[reason] = count
	}
	if result.Cleaning.MissingExcluded > 0 {
		reasons[surveillance.ReasonMissingMetricValue] = result.Cleaning.MissingExcluded
	}

	return RunMetadata{
		RunID:             runID,
		StartedAt:         started,
		CompletedAt:       completed,
		DurationMS:        completed.Sub(started).Milliseconds(),
		Degraded:          result.Quality.Degraded,
		RawRowCount:       result.Validation.Total,
		ProcessedRowCount: result.Cleaning.Output,
		RejectedRowCount:  result.Validation.Rejected + result.Cleaning.MissingExcluded,
		RejectionReasons:  reasons,
		DuplicatesRemoved: result.Cleaning.DuplicatesRemoved,
		OutliersRemoved:   result.Cleaning.OutliersRemoved,
		QualityChecks:     result.Quality.CheckMap(),
	}
}
