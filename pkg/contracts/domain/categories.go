package domain

import "strings"

// Metric identifies one of the tracked chronic disease indicators.
type Metric string

const (
	MetricDiabetes     Metric = "diabetes"
	MetricObesity      Metric = "obesity"
	MetricHeartDisease Metric = "heart_disease"
	MetricInactivity   Metric = "physical_inactivity"
)

// Metrics returns all tracked metrics in canonical order. Every loop that
// produces per-metric output iterates this slice so results are deterministic.
func Metrics() []Metric {
	return []Metric{MetricDiabetes, MetricObesity, MetricHeartDisease, MetricInactivity}
}

// IsValid checks whether the metric is one of the tracked indicators.
func (m Metric) IsValid() bool {
	switch m {
	case MetricDiabetes, MetricObesity, MetricHeartDisease, MetricInactivity:
		return true
	}
	return false
}

func (m Metric) String() string {
	return string(m)
}

// Label returns the human-readable name used in reports.
func (m Metric) Label() string {
	switch m {
	case MetricDiabetes:
		return "Diabetes"
	case MetricObesity:
		return "Obesity"
	case MetricHeartDisease:
		return "Heart Disease"
	case MetricInactivity:
		return "Physical Inactivity"
	default:
		return string(m)
	}
}

// AgeGroup is a BRFSS age band.
type AgeGroup string

const (
	AgeGroup18To24 AgeGroup = "18-24"
	AgeGroup25To34 AgeGroup = "25-34"
	AgeGroup35To44 AgeGroup = "35-44"
	AgeGroup45To54 AgeGroup = "45-54"
	AgeGroup55To64 AgeGroup = "55-64"
	AgeGroup65Plus AgeGroup = "65+"
)

// AgeGroups returns the age bands in ascending order.
func AgeGroups() []AgeGroup {
	return []AgeGroup{
		AgeGroup18To24,
		AgeGroup25To34,
		AgeGroup35To44,
		AgeGroup45To54,
		AgeGroup55To64,
		AgeGroup65Plus,
	}
}

// IsValid checks whether the age group is one of the surveyed bands.
func (a AgeGroup) IsValid() bool {
	for _, v := range AgeGroups() {
		if a == v {
			return true
		}
	}
	return false
}

func (a AgeGroup) String() string {
	return string(a)
}

// RaceEthnicity is a BRFSS race/ethnicity category.
type RaceEthnicity string

const (
	RaceNonHispanicWhite RaceEthnicity = "Non-Hispanic White"
	RaceNonHispanicBlack RaceEthnicity = "Non-Hispanic Black"
	RaceHispanic         RaceEthnicity = "Hispanic"
	RaceAsianPacific     RaceEthnicity = "Asian/Pacific Islander"
	RaceAmericanIndian   RaceEthnicity = "American Indian/Alaska Native"
)

// RaceEthnicities returns the surveyed race/ethnicity categories.
func RaceEthnicities() []RaceEthnicity {
	return []RaceEthnicity{
		RaceNonHispanicWhite,
		RaceNonHispanicBlack,
		RaceHispanic,
		RaceAsianPacific,
		RaceAmericanIndian,
	}
}

// IsValid checks whether the value is one of the surveyed categories.
func (r RaceEthnicity) IsValid() bool {
	for _, v := range RaceEthnicities() {
		if r == v {
			return true
		}
	}
	return false
}

func (r RaceEthnicity) String() string {
	return string(r)
}

// IncomeLevel is a BRFSS annual household income bracket.
type IncomeLevel string

const (
	IncomeUnder15K IncomeLevel = "<$15,000"
	Income15To25K  IncomeLevel = "$15,000-$24,999"
	Income25To50K  IncomeLevel = "$25,000-$49,999"
	Income50To75K  IncomeLevel = "$50,000-$74,999"
	Income75KPlus  IncomeLevel = "$75,000+"
)

// IncomeLevels returns the income brackets in ascending order.
func IncomeLevels() []IncomeLevel {
	return []IncomeLevel{
		IncomeUnder15K,
		Income15To25K,
		Income25To50K,
		Income50To75K,
		Income75KPlus,
	}
}

// IsValid checks whether the value is one of the surveyed brackets.
func (i IncomeLevel) IsValid() bool {
	for _, v := range IncomeLevels() {
		if i == v {
			return true
		}
	}
	return false
}

func (i IncomeLevel) String() string {
	return string(i)
}

// Dimension identifies a demographic stratification axis.
type Dimension string

const (
	DimensionAgeGroup      Dimension = "age_group"
	DimensionRaceEthnicity Dimension = "race_ethnicity"
	DimensionIncomeLevel   Dimension = "income_level"
)

// Dimensions returns the stratification axes in canonical order.
func Dimensions() []Dimension {
	return []Dimension{DimensionAgeGroup, DimensionRaceEthnicity, DimensionIncomeLevel}
}

// IsValid checks whether the dimension is a known stratification axis.
func (d Dimension) IsValid() bool {
	switch d {
	case DimensionAgeGroup, DimensionRaceEthnicity, DimensionIncomeLevel:
		return true
	}
	return false
}

func (d Dimension) String() string {
	return string(d)
}

// Categories returns the enumerated category values for the dimension in
// canonical order.
func (d Dimension) Categories() []string {
	switch d {
	case DimensionAgeGroup:
		out := make([]string, 0, len(AgeGroups()))
		for _, v := range AgeGroups() {
			out = append(out, string(v))
		}
		return out
	case DimensionRaceEthnicity:
		out := make([]string, 0, len(RaceEthnicities()))
		for _, v := range RaceEthnicities() {
			out = append(out, string(v))
		}
		return out
	case DimensionIncomeLevel:
		out := make([]string, 0, len(IncomeLevels()))
		for _, v := range IncomeLevels() {
			out = append(out, string(v))
		}
		return out
	default:
		return nil
	}
}

// CanonicalAgeGroup resolves a raw value to its canonical spelling,
// tolerating surrounding whitespace and case differences.
func CanonicalAgeGroup(s string) (AgeGroup, bool) {
	c, ok := canonicalIn(s, DimensionAgeGroup.Categories())
	return AgeGroup(c), ok
}

// CanonicalRaceEthnicity resolves a raw value to its canonical spelling.
func CanonicalRaceEthnicity(s string) (RaceEthnicity, bool) {
	c, ok := canonicalIn(s, DimensionRaceEthnicity.Categories())
	return RaceEthnicity(c), ok
}

// CanonicalIncomeLevel resolves a raw value to its canonical spelling.
func CanonicalIncomeLevel(s string) (IncomeLevel, bool) {
	c, ok := canonicalIn(s, DimensionIncomeLevel.Categories())
	return IncomeLevel(c), ok
}

func canonicalIn(s string, set []string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	for _, v := range set {
		if strings.EqualFold(trimmed, v) {
			return v, true
		}
	}
	return "", false
}
