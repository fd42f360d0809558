package testutil

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// SurveyHeader is the column order the ingest layer expects from a
// BRFSS-style extract.
var SurveyHeader = []string{
	"year", "state",
	"diabetes_percentage", "obesity_percentage",
	"heart_disease_percentage", "physical_inactivity_percentage",
	"population", "age_group", "race_ethnicity", "income_level", "sample_size",
}

// SurveyRows returns a small valid fixture: two states over two years,
// one stratum each. Alaska leads on diabetes, Alabama on obesity, which
// keeps ranking assertions unambiguous.
func SurveyRows() [][]string {
	return [][]string{
		{"2022", "Alabama", "8.0", "36.0", "6.0", "28.0", "150000", "45-54", "Non-Hispanic White", "$25,000-$49,999", "900"},
		{"2023", "Alabama", "8.2", "36.4", "6.2", "28.4", "151000", "45-54", "Non-Hispanic White", "$25,000-$49,999", "920"},
		{"2022", "Alaska", "12.0", "30.0", "4.0", "22.0", "90000", "45-54", "Non-Hispanic White", "$25,000-$49,999", "500"},
		{"2023", "Alaska", "12.4", "30.2", "4.2", "22.2", "91000", "45-54", "Non-Hispanic White", "$25,000-$49,999", "510"},
	}
}

// WriteSurveyCSV writes header plus rows to path, creating parent
// directories as needed.
func WriteSurveyCSV(t *testing.T, path string, rows [][]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.Write(SurveyHeader))
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, w.Error())
}
