// Package api contains API contract definitions for BRFSS Pulse.
// Version v1 represents the current stable API version.
package api

// RunRequest asks the server to execute a pipeline run over a source file.
// Source is optional; when empty the server uses its configured input path.
type RunRequest struct {
	Source string `json:"source,omitempty" validate:"omitempty,sourcefile"`
	Format string `json:"format,omitempty" validate:"omitempty,oneof=csv xlsx"`
}

// StatesRequest carries the query parameters of the state summaries endpoint.
type StatesRequest struct {
	SortBy string `json:"sort_by" query:"sort_by" validate:"omitempty,oneof=diabetes obesity heart_disease physical_inactivity name"`
	Limit  int    `json:"limit" query:"limit" validate:"min=0,max=51"`
}

// TrendsRequest carries the query parameters of the national trends endpoint.
type TrendsRequest struct {
	Metric string `json:"metric" query:"metric" validate:"omitempty,oneof=diabetes obesity heart_disease physical_inactivity"`
}

// DemographicsRequest selects one stratification axis, or all when empty.
type DemographicsRequest struct {
	Dimension string `json:"dimension" query:"dimension" validate:"omitempty,oneof=age_group race_ethnicity income_level"`
}
