package ingest

import (
	"path/filepath"
	"strings"
)

// Input formats accepted by the loader
const (
	FormatAuto = "auto"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Skip reason codes. Ingest skips rows it cannot decode structurally;
// semantic screening of decoded rows belongs to the validator.
const (
	ReasonMalformedLine  = "malformed_line"
	ReasonBadYear        = "bad_year"
	ReasonBadPopulation  = "bad_population"
	ReasonBadSampleSize  = "bad_sample_size"
	ReasonBadMetricValue = "bad_metric_value"
)

// Cap on per-line diagnostics kept in a report
const maxReportedIssues = 50

// Options configures the loader
type Options struct {
	Format string `json:"format"` // auto, csv or xlsx
	Sheet  string `json:"sheet"`  // xlsx worksheet; empty scans for one
}

// DefaultOptions detects the format from the file extension
func DefaultOptions() *Options {
	return &Options{Format: FormatAuto}
}

// IsValid checks if the options are usable
func (o Options) IsValid() bool {
	switch o.Format {
	case "", FormatAuto, FormatCSV, FormatXLSX:
		return true
	}
	return false
}

// LineIssue is one skipped row's diagnostic
type LineIssue struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// Report summarizes a decode pass over one source file
type Report struct {
	Source      string         `json:"source"`
	Format      string         `json:"format"`
	Sheet       string         `json:"sheet,omitempty"`
	RowsDecoded int            `json:"rows_decoded"`
	RowsSkipped int            `json:"rows_skipped"`
	Reasons     map[string]int `json:"reasons,omitempty"`
	Issues      []LineIssue    `json:"issues,omitempty"` // capped at maxReportedIssues
}

// skip counts a structurally undecodable row
func (r *Report) skip(line int, reason, detail string) {
	r.RowsSkipped++
	if r.Reasons == nil {
		r.Reasons = make(map[string]int)
	}
	r.Reasons[reason]++
	if len(r.Issues) < maxReportedIssues {
		r.Issues = append(r.Issues, LineIssue{Line: line, Reason: reason, Detail: detail})
	}
}

// DetectFormat resolves a file's format from its extension. Unknown
// extensions return an empty string.
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return ""
	}
}
