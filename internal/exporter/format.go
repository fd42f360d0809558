package exporter

import (
	"fmt"
	"math"
)

// round1 rounds to one decimal place, the precision published for
// prevalence percentages
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// round2 rounds to two decimal places, the precision published for
// year-over-year changes
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// formatPct formats a prevalence percentage with exactly 1 decimal place
func formatPct(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// formatFloat formats a float64 value for CSV output with exactly 2 decimal places
func formatFloat(f float64) string {
	// Always format with exactly 2 decimal places for consistency
	// This ensures values like 13.4 appear as 13.40 in CSV
	return fmt.Sprintf("%.2f", f)
}

// formatCorrelation formats a coefficient with 4 decimal places
func formatCorrelation(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return fmt.Sprintf("%d", i)
}
