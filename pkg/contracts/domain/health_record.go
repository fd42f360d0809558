package domain

// HealthRecord is one raw surveillance observation as decoded from an input
// file: chronic disease prevalence for a (year, state, demographic stratum)
// cell. Metric percentages are pointers because source files may leave cells
// blank; the cleaning stage decides what to do with incomplete rows.
type HealthRecord struct {
	Year            int      `json:"year"`
	State           string   `json:"state" validate:"required"`
	DiabetesPct     *float64 `json:"diabetes_percentage,omitempty" validate:"omitempty,min=0,max=100"`
	ObesityPct      *float64 `json:"obesity_percentage,omitempty" validate:"omitempty,min=0,max=100"`
	HeartDiseasePct *float64 `json:"heart_disease_percentage,omitempty" validate:"omitempty,min=0,max=100"`
	InactivityPct   *float64 `json:"physical_inactivity_percentage,omitempty" validate:"omitempty,min=0,max=100"`
	Population      int64    `json:"population" validate:"gt=0"`
	AgeGroup        string   `json:"age_group" validate:"required"`
	RaceEthnicity   string   `json:"race_ethnicity" validate:"required"`
	IncomeLevel     string   `json:"income_level" validate:"required"`
	SampleSize      int      `json:"sample_size" validate:"gt=0"`

	// Line is the 1-based source row, kept for rejection diagnostics.
	Line int `json:"-"`
}

// MetricValue returns the raw value for the given metric, nil when the
// source cell was blank.
func (r HealthRecord) MetricValue(m Metric) *float64 {
	switch m {
	case MetricDiabetes:
		return r.DiabetesPct
	case MetricObesity:
		return r.ObesityPct
	case MetricHeartDisease:
		return r.HeartDiseasePct
	case MetricInactivity:
		return r.InactivityPct
	default:
		return nil
	}
}

// SetMetricValue stores a value for the given metric.
func (r *HealthRecord) SetMetricValue(m Metric, v float64) {
	switch m {
	case MetricDiabetes:
		r.DiabetesPct = &v
	case MetricObesity:
		r.ObesityPct = &v
	case MetricHeartDisease:
		r.HeartDiseasePct = &v
	case MetricInactivity:
		r.InactivityPct = &v
	}
}

// MissingMetrics lists the metrics whose cells were blank, in canonical order.
func (r HealthRecord) MissingMetrics() []Metric {
	var missing []Metric
	for _, m := range Metrics() {
		if r.MetricValue(m) == nil {
			missing = append(missing, m)
		}
	}
	return missing
}

// HasAllMetrics reports whether every tracked metric has a value.
func (r HealthRecord) HasAllMetrics() bool {
	for _, m := range Metrics() {
		if r.MetricValue(m) == nil {
			return false
		}
	}
	return true
}
