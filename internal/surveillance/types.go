// Package surveillance implements the statistical core of the BRFSS Pulse
// pipeline: validation, cleaning, state aggregation, national trends,
// demographic stratification, cross-metric correlation and the final
// quality gate.
package surveillance

import (
	"fmt"

	"brfsspulse/pkg/contracts/domain"
)

// Record represents a single cleaned observation: one (year, state,
// demographic stratum) cell with a complete set of metric values
type Record struct {
	Year          int                       `json:"year"`
	State         string                    `json:"state"`
	StateAbbr     string                    `json:"state_abbr"`
	AgeGroup      domain.AgeGroup           `json:"age_group"`
	RaceEthnicity domain.RaceEthnicity      `json:"race_ethnicity"`
	IncomeLevel   domain.IncomeLevel        `json:"income_level"`
	Values        map[domain.Metric]float64 `json:"values"`
	Population    int64                     `json:"population"`
	SampleSize    int                       `json:"sample_size"`
}

// Value returns the record's value for the given metric
func (r Record) Value(m domain.Metric) float64 {
	return r.Values[m]
}

// Category returns the record's category value on the given stratification axis
func (r Record) Category(d domain.Dimension) string {
	switch d {
	case domain.DimensionAgeGroup:
		return string(r.AgeGroup)
	case domain.DimensionRaceEthnicity:
		return string(r.RaceEthnicity)
	case domain.DimensionIncomeLevel:
		return string(r.IncomeLevel)
	default:
		return ""
	}
}

// StratumKey identifies the deduplication tuple for a record
type StratumKey struct {
	Year          int
	State         string
	AgeGroup      domain.AgeGroup
	RaceEthnicity domain.RaceEthnicity
	IncomeLevel   domain.IncomeLevel
}

// Key returns the record's deduplication key
func (r Record) Key() StratumKey {
	return StratumKey{
		Year:          r.Year,
		State:         r.State,
		AgeGroup:      r.AgeGroup,
		RaceEthnicity: r.RaceEthnicity,
		IncomeLevel:   r.IncomeLevel,
	}
}

// IsValid checks if the record is a usable cleaned observation
func (r Record) IsValid() bool {
	if r.State == "" || r.Population <= 0 || r.SampleSize <= 0 {
		return false
	}
	for _, m := range domain.Metrics() {
		v, ok := r.Values[m]
		if !ok || v < 0 || v > 100 {
			return false
		}
	}
	return true
}

// MetricStats contains the descriptive statistics for one metric within a
// state
type MetricStats struct {
	Mean         float64 `json:"mean"`
	Median       float64 `json:"median"`
	StdDev       float64 `json:"std_dev"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	WeightedMean float64 `json:"weighted_mean"` // population-weighted
	Latest       float64 `json:"latest"`        // mean over the most recent year
}

// StateSummary contains all aggregated statistics for one jurisdiction
type StateSummary struct {
	State         string                        `json:"state"`
	Abbr          string                        `json:"abbr"`
	FirstYear     int                           `json:"first_year"`
	LatestYear    int                           `json:"latest_year"`
	Records       int                           `json:"records"`
	AvgPopulation float64                       `json:"avg_population"`
	Metrics       map[domain.Metric]MetricStats `json:"metrics"`
}

// StateYearSummary contains per-year aggregates for one jurisdiction
type StateYearSummary struct {
	State         string                    `json:"state"`
	Abbr          string                    `json:"abbr"`
	Year          int                       `json:"year"`
	Records       int                       `json:"records"`
	Means         map[domain.Metric]float64 `json:"means"`
	WeightedMeans map[domain.Metric]float64 `json:"weighted_means"`
	Population    int64                     `json:"population"`
}

// TrendPoint is the national population-weighted average for one year
type TrendPoint struct {
	Year       int                        `json:"year"`
	Values     map[domain.Metric]float64  `json:"values"`
	YoYChange  map[domain.Metric]*float64 `json:"yoy_change"` // nil for the first year or zero base
	Records    int                        `json:"records"`
	Population int64                      `json:"population"` // total stratum population that year
}

// MetricTrend summarizes one metric's national series. Pointer fields are
// nil when the statistic is undefined for the series.
type MetricTrend struct {
	Metric    domain.Metric `json:"metric"`
	StartYear int           `json:"start_year"`
	EndYear   int           `json:"end_year"`
	CAGR      *float64      `json:"cagr,omitempty"`      // fraction per year
	Slope     *float64      `json:"slope,omitempty"`     // percentage points per year
	RSquared  *float64      `json:"r_squared,omitempty"`
}

// TrendReport is the national trend output: year-ordered points plus
// per-metric series summaries
type TrendReport struct {
	Points []TrendPoint                   `json:"points"`
	Trends map[domain.Metric]MetricTrend  `json:"trends"`
}

// GroupSummary contains aggregates for one demographic category
type GroupSummary struct {
	Dimension domain.Dimension          `json:"dimension"`
	Category  string                    `json:"category"`
	Records   int                       `json:"records"`
	States    int                       `json:"states"` // distinct contributing states
	Means     map[domain.Metric]float64 `json:"means"`
	StdDevs   map[domain.Metric]float64 `json:"std_devs"`
}

// Disparity is the max/min group mean ratio for one metric within a
// dimension. Ratio is nil when undefined; Reason says why.
type Disparity struct {
	Ratio        *float64 `json:"ratio,omitempty"`
	HighCategory string   `json:"high_category,omitempty"`
	LowCategory  string   `json:"low_category,omitempty"`
	Reason       string   `json:"reason,omitempty"`
}

// DimensionSummary is the stratification output for one axis
type DimensionSummary struct {
	Dimension   domain.Dimension               `json:"dimension"`
	Groups      []GroupSummary                 `json:"groups"`
	Disparities map[domain.Metric]Disparity    `json:"disparities"`
}

// RegressionFit is an ordinary least squares fit of one metric on another
type RegressionFit struct {
	Predictor domain.Metric `json:"predictor"`
	Response  domain.Metric `json:"response"`
	Intercept float64       `json:"intercept"`
	Slope     float64       `json:"slope"`
	RSquared  float64       `json:"r_squared"`
	N         int           `json:"n"`
}

// CorrelationResult contains the association statistics for one metric pair.
// Coefficients are nil when the pair could not be computed; Reason says why.
type CorrelationResult struct {
	X          domain.Metric  `json:"x"`
	Y          domain.Metric  `json:"y"`
	N          int            `json:"n"`
	Pearson    *float64       `json:"pearson,omitempty"`
	Spearman   *float64       `json:"spearman,omitempty"`
	Regression *RegressionFit `json:"regression,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

// RowIssue is one rejected row's diagnostic
type RowIssue struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// ValidationReport summarizes a validation pass
type ValidationReport struct {
	Total    int            `json:"total"`
	Accepted int            `json:"accepted"`
	Rejected int            `json:"rejected"`
	Reasons  map[string]int `json:"reasons"`
	Issues   []RowIssue     `json:"issues,omitempty"` // capped at MaxReportedIssues
}

// CleaningReport summarizes a cleaning pass
type CleaningReport struct {
	Input             int                    `json:"input"`
	Output            int                    `json:"output"`
	MissingExcluded   int                    `json:"missing_excluded"`
	DuplicatesRemoved int                    `json:"duplicates_removed"`
	OutliersRemoved   int                    `json:"outliers_removed"` // distinct rows
	OutliersByMetric  map[domain.Metric]int  `json:"outliers_by_metric"`
	Unresolvable      int                    `json:"unresolvable"` // failed canonical lookup; zero for validated input
}

// QualityCheck is one named gate check result
type QualityCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// QualityReport is the gate output. Only the rejection-rate check drives
// Degraded; every other failure is flagged and left to the consumer.
type QualityReport struct {
	Checks        []QualityCheck `json:"checks"`
	Degraded      bool           `json:"degraded"`
	RejectionRate float64        `json:"rejection_rate"`
}

// CheckMap returns check results keyed by name
func (qr QualityReport) CheckMap() map[string]bool {
	out := make(map[string]bool, len(qr.Checks))
	for _, c := range qr.Checks {
		out[c.Name] = c.Passed
	}
	return out
}

// ValidationParams contains the validator's configurable bounds
type ValidationParams struct {
	MinYear int `json:"min_year"`
	MaxYear int `json:"max_year"`
}

// DefaultValidationParams returns the surveyed year range
func DefaultValidationParams() *ValidationParams {
	return &ValidationParams{MinYear: DefaultMinYear, MaxYear: DefaultMaxYear}
}

// IsValid checks if validation parameters are usable
func (vp ValidationParams) IsValid() bool {
	return vp.MinYear > 0 && vp.MaxYear >= vp.MinYear
}

// CleaningParams contains the cleaner's configurable behavior
type CleaningParams struct {
	OutlierMultiplier float64 `json:"outlier_multiplier"` // IQR fence multiplier
	MinGroupSize      int     `json:"min_group_size"`     // below this, a group skips outlier filtering
}

// DefaultCleaningParams returns the standard IQR fence configuration
func DefaultCleaningParams() *CleaningParams {
	return &CleaningParams{
		OutlierMultiplier: DefaultOutlierMultiplier,
		MinGroupSize:      MinObservationsForOutliers,
	}
}

// IsValid checks if cleaning parameters are usable
func (cp CleaningParams) IsValid() bool {
	return cp.OutlierMultiplier > 0 && cp.MinGroupSize >= 2
}

// AggregationParams configures state aggregation ordering
type AggregationParams struct {
	PrimaryMetric domain.Metric `json:"primary_metric"` // descending sort key
}

// DefaultAggregationParams sorts by diabetes prevalence
func DefaultAggregationParams() *AggregationParams {
	return &AggregationParams{PrimaryMetric: domain.MetricDiabetes}
}

// IsValid checks if aggregation parameters are usable
func (ap AggregationParams) IsValid() bool {
	return ap.PrimaryMetric.IsValid()
}

// CorrelationParams configures the correlation engine
type CorrelationParams struct {
	UseLatest bool `json:"use_latest"` // most-recent-year values instead of pooled means
	MinPoints int  `json:"min_points"`
}

// DefaultCorrelationParams correlates all-years-pooled state means
func DefaultCorrelationParams() *CorrelationParams {
	return &CorrelationParams{UseLatest: false, MinPoints: MinPointsForCorrelation}
}

// IsValid checks if correlation parameters are usable
func (cp CorrelationParams) IsValid() bool {
	return cp.MinPoints >= 2
}

// QualityParams contains the gate thresholds
type QualityParams struct {
	MaxRejectionRate float64 `json:"max_rejection_rate"` // fraction of raw rows
	RequiredStates   int     `json:"required_states"`
}

// DefaultQualityParams returns the standard gate thresholds
func DefaultQualityParams() *QualityParams {
	return &QualityParams{
		MaxRejectionRate: DefaultMaxRejectionRate,
		RequiredStates:   StateCount,
	}
}

// IsValid checks if quality parameters are usable
func (qp QualityParams) IsValid() bool {
	return qp.MaxRejectionRate >= 0 && qp.MaxRejectionRate <= 1 && qp.RequiredStates > 0
}

// Rejection reason codes. Validation reasons are counted per row by the
// validator; missing_metric_value is counted by the cleaner.
const (
	ReasonMissingField          = "missing_field"
	ReasonYearOutOfRange        = "year_out_of_range"
	ReasonUnknownState          = "unknown_state"
	ReasonUnknownCategory       = "unknown_category"
	ReasonPercentOutOfRange     = "percentage_out_of_range"
	ReasonNonpositivePopulation = "nonpositive_population"
	ReasonNonpositiveSampleSize = "nonpositive_sample_size"
	ReasonMissingMetricValue    = "missing_metric_value"
)

// Quality gate check names
const (
	CheckCompleteness       = "completeness"
	CheckGeographicCoverage = "geographic_coverage"
	CheckBounds             = "bounds_check"
	CheckRejectionRate      = "rejection_rate"
)

// Constants for default values
const (
	// Surveyed year range
	DefaultMinYear = 2015
	DefaultMaxYear = 2024

	// IQR fence multiplier for outlier removal
	DefaultOutlierMultiplier = 1.5

	// Minimum observations in a (state, metric) group before outlier
	// filtering applies
	MinObservationsForOutliers = 4

	// Minimum points for a correlation to be reported
	MinPointsForCorrelation = 3

	// Maximum tolerated rejection rate before a run is degraded
	DefaultMaxRejectionRate = 0.05

	// Cap on per-row diagnostics kept in a validation report
	MaxReportedIssues = 50
)

// ValidationError represents a single field-level validation failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}
