package api

// DashboardPayload is the exported document consumed by the dashboard
// front-end. The shape and key names are fixed; percentages are rounded to
// one decimal and populations to whole numbers before they land here.
type DashboardPayload struct {
	States               []StateEntry          `json:"states"`
	NationalTrends       NationalTrends        `json:"national_trends"`
	DemographicBreakdown DemographicBreakdown  `json:"demographic_breakdown"`
	Metadata             Metadata              `json:"metadata"`
}

// StateEntry is one state's most-recent-year snapshot.
type StateEntry struct {
	Name            string  `json:"name"`
	Abbr            string  `json:"abbr"`
	DiabetesPct     float64 `json:"diabetes_pct"`
	ObesityPct      float64 `json:"obesity_pct"`
	HeartDiseasePct float64 `json:"heart_disease_pct"`
	InactivityPct   float64 `json:"inactivity_pct"`
	Population      int64   `json:"population"`
}

// NationalTrends carries the population-weighted yearly series per metric.
// All slices are parallel to Years.
type NationalTrends struct {
	Years        []int     `json:"years"`
	Diabetes     []float64 `json:"diabetes"`
	Obesity      []float64 `json:"obesity"`
	HeartDisease []float64 `json:"heart_disease"`
	Inactivity   []float64 `json:"inactivity"`
}

// DemographicBreakdown groups prevalence by stratification axis.
type DemographicBreakdown struct {
	AgeGroups     []DemographicEntry `json:"age_groups"`
	RaceEthnicity []DemographicEntry `json:"race_ethnicity"`
	IncomeLevel   []DemographicEntry `json:"income_level"`
}

// DemographicEntry is one category's national averages.
type DemographicEntry struct {
	Category        string  `json:"category"`
	DiabetesPct     float64 `json:"diabetes_pct"`
	ObesityPct      float64 `json:"obesity_pct"`
	HeartDiseasePct float64 `json:"heart_disease_pct"`
	InactivityPct   float64 `json:"inactivity_pct"`
	States          int     `json:"states"`
}

// Metadata describes run provenance and quality outcomes. Degraded is set
// when the quality gate found the rejection rate above its threshold; the
// dashboard surfaces it as a data-quality banner.
type Metadata struct {
	RunID             string          `json:"run_id,omitempty"`
	GeneratedAt       string          `json:"generated_at,omitempty"`
	Degraded          bool            `json:"degraded"`
	RejectedRowCount  int             `json:"rejected_row_count"`
	RejectionReasons  map[string]int  `json:"rejection_reasons"`
	ProcessedRowCount int             `json:"processed_row_count"`
	QualityChecks     map[string]bool `json:"quality_checks"`
}

// RunResponse acknowledges a pipeline run request.
type RunResponse struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	Processed int    `json:"processed_row_count"`
	Rejected  int    `json:"rejected_row_count"`
	Degraded  bool   `json:"degraded"`
	Duration  string `json:"duration"`
}

// HealthResponse reports service liveness and result availability.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	ResultLoaded  bool   `json:"result_loaded"`
	LastRunID     string `json:"last_run_id,omitempty"`
	LastRunTime   string `json:"last_run_time,omitempty"`
}
