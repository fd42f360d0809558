package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"brfsspulse/internal/pipeline"
	"brfsspulse/pkg/contracts/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

const csvHeader = "year,state,diabetes_percentage,obesity_percentage,heart_disease_percentage,physical_inactivity_percentage,population,age_group,race_ethnicity,income_level,sample_size"

const csvRow2020 = `2020,California,10.2,26.5,5.5,21.0,150000,45-54,Hispanic,"$25,000-$49,999",820`

func TestReadCSV(t *testing.T) {
	input := strings.Join([]string{
		csvHeader,
		csvRow2020,
		`2021,Texas,12.4,30.1,6.2,24.8,180000,55-64,Non-Hispanic White,"$50,000-$74,999",940`,
		`2021,Ohio,,28.0,5.9,23.1,90000,35-44,Non-Hispanic Black,"<$15,000",510`,
	}, "\n")

	loader := NewLoader(nil, testLogger())
	rows, report, err := loader.ReadCSV(context.Background(), strings.NewReader(input), "test.csv")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	t.Run("cells decode into the record contract", func(t *testing.T) {
		first := rows[0]
		assert.Equal(t, 2020, first.Year)
		assert.Equal(t, "California", first.State)
		require.NotNil(t, first.DiabetesPct)
		assert.InDelta(t, 10.2, *first.DiabetesPct, 1e-9)
		assert.Equal(t, int64(150000), first.Population)
		assert.Equal(t, "45-54", first.AgeGroup)
		assert.Equal(t, "Hispanic", first.RaceEthnicity)
		assert.Equal(t, "$25,000-$49,999", first.IncomeLevel)
		assert.Equal(t, 820, first.SampleSize)
	})

	t.Run("line numbers follow the source file", func(t *testing.T) {
		assert.Equal(t, 2, rows[0].Line)
		assert.Equal(t, 3, rows[1].Line)
		assert.Equal(t, 4, rows[2].Line)
	})

	t.Run("blank metric cells decode to nil", func(t *testing.T) {
		ohio := rows[2]
		assert.Nil(t, ohio.DiabetesPct)
		require.NotNil(t, ohio.ObesityPct)
		assert.InDelta(t, 28.0, *ohio.ObesityPct, 1e-9)
	})

	t.Run("report accounting", func(t *testing.T) {
		assert.Equal(t, "test.csv", report.Source)
		assert.Equal(t, FormatCSV, report.Format)
		assert.Equal(t, 3, report.RowsDecoded)
		assert.Equal(t, 0, report.RowsSkipped)
	})
}

func TestReadCSVTolerantHeaders(t *testing.T) {
	input := strings.Join([]string{
		"\ufeffYear,State,Diabetes_Pct,Obesity_Pct,Heart_Disease_Pct,Inactivity_Pct,Population,Age Group,Race_Ethnicity,Income Level,Sample_Size",
		`2020,California,10.2,26.5,5.5,21.0,150000,45-54,Hispanic,"$25,000-$49,999",820`,
	}, "\n")

	loader := NewLoader(nil, testLogger())
	rows, _, err := loader.ReadCSV(context.Background(), strings.NewReader(input), "bom.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2020, rows[0].Year)
	require.NotNil(t, rows[0].InactivityPct)
	assert.InDelta(t, 21.0, *rows[0].InactivityPct, 1e-9)
}

func TestReadCSVSkipsUndecodableRows(t *testing.T) {
	input := strings.Join([]string{
		csvHeader,
		csvRow2020,
		`20x5,California,10.2,26.5,5.5,21.0,150000,45-54,Hispanic,"$25,000-$49,999",820`,
		`2020,Texas,10.2,26.5,5.5,21.0,many,45-54,Hispanic,"$25,000-$49,999",820`,
		`2020,Ohio,10.2,26.5,5.5,21.0,150000,45-54,Hispanic,"$25,000-$49,999",soon`,
		`2020,Iowa,junk,26.5,5.5,21.0,150000,45-54,Hispanic,"$25,000-$49,999",820`,
		`2020,Utah`,
		`2020,Nev"ada,10.2,26.5,5.5,21.0,150000,45-54,Hispanic,x,820`,
	}, "\n")

	loader := NewLoader(nil, testLogger())
	rows, report, err := loader.ReadCSV(context.Background(), strings.NewReader(input), "dirty.csv")
	require.NoError(t, err, "structural problems skip rows, never abort")
	require.Len(t, rows, 1)
	assert.Equal(t, "California", rows[0].State)

	assert.Equal(t, 6, report.RowsSkipped)
	assert.Equal(t, 1, report.Reasons[ReasonBadYear])
	assert.Equal(t, 2, report.Reasons[ReasonBadPopulation], "short row loses its population cell")
	assert.Equal(t, 1, report.Reasons[ReasonBadSampleSize])
	assert.Equal(t, 1, report.Reasons[ReasonBadMetricValue])
	assert.Equal(t, 1, report.Reasons[ReasonMalformedLine])

	require.NotEmpty(t, report.Issues)
	assert.Equal(t, 3, report.Issues[0].Line)
	assert.Equal(t, ReasonBadYear, report.Issues[0].Reason)
}

func TestReadCSVMissingColumns(t *testing.T) {
	input := strings.Join([]string{
		"year,state,diabetes_percentage,population",
		"2020,California,10.2,150000",
	}, "\n")

	loader := NewLoader(nil, testLogger())
	_, _, err := loader.ReadCSV(context.Background(), strings.NewReader(input), "partial.csv")
	require.Error(t, err)
	assert.True(t, pipeline.IsFatal(err))
	assert.Contains(t, err.Error(), "missing required columns")
	assert.Contains(t, err.Error(), "obesity_percentage")
}

func TestReadCSVNoRows(t *testing.T) {
	t.Run("empty file", func(t *testing.T) {
		loader := NewLoader(nil, testLogger())
		_, _, err := loader.ReadCSV(context.Background(), strings.NewReader(""), "empty.csv")
		require.Error(t, err)
		assert.True(t, pipeline.IsFatal(err))
	})

	t.Run("header only", func(t *testing.T) {
		loader := NewLoader(nil, testLogger())
		_, _, err := loader.ReadCSV(context.Background(), strings.NewReader(csvHeader), "header.csv")
		require.Error(t, err)
		assert.True(t, pipeline.IsFatal(err))
		assert.Contains(t, err.Error(), "no decodable rows")
	})

	t.Run("all rows undecodable", func(t *testing.T) {
		input := strings.Join([]string{
			csvHeader,
			`bad,California,10.2,26.5,5.5,21.0,150000,45-54,Hispanic,x,820`,
		}, "\n")
		loader := NewLoader(nil, testLogger())
		_, report, err := loader.ReadCSV(context.Background(), strings.NewReader(input), "bad.csv")
		require.Error(t, err)
		assert.True(t, pipeline.IsFatal(err))
		assert.Equal(t, 1, report.RowsSkipped)
	})
}

func TestReadCSVCancellation(t *testing.T) {
	var b strings.Builder
	b.WriteString(csvHeader)
	for i := 0; i < 2500; i++ {
		fmt.Fprintf(&b, "\n2020,California,10.2,26.5,5.5,21.0,150000,45-54,Hispanic,x,%d", i+1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := NewLoader(nil, testLogger())
	_, _, err := loader.ReadCSV(ctx, strings.NewReader(b.String()), "big.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "survey.csv")
	content := strings.Join([]string{csvHeader, csvRow2020}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	loader := NewLoader(nil, testLogger())
	rows, report, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, FormatCSV, report.Format)
	assert.Equal(t, path, report.Source)
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "analyst notes, no data here"))
	_, err := f.NewSheet("prevalence")
	require.NoError(t, err)

	header := []interface{}{
		"year", "state",
		"diabetes_percentage", "obesity_percentage", "heart_disease_percentage", "physical_inactivity_percentage",
		"population", "age_group", "race_ethnicity", "income_level", "sample_size",
	}
	require.NoError(t, f.SetSheetRow("prevalence", "A1", &[]interface{}{"BRFSS prevalence extract"}))
	require.NoError(t, f.SetSheetRow("prevalence", "A2", &header))
	require.NoError(t, f.SetSheetRow("prevalence", "A3", &[]interface{}{
		2020, "California", 10.2, 26.5, 5.5, 21.0, 150000, "45-54", "Hispanic", "$25,000-$49,999", 820,
	}))
	require.NoError(t, f.SetSheetRow("prevalence", "A5", &[]interface{}{
		2021, "Texas", "N/A", 30.1, 6.2, 24.8, 180000, "55-64", "Non-Hispanic White", "$50,000-$74,999", 940,
	}))

	path := filepath.Join(t.TempDir(), "survey.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	loader := NewLoader(nil, testLogger())
	rows, report, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rows, 2, "the title row and the blank row are not records")

	assert.Equal(t, "prevalence", report.Sheet)
	assert.Equal(t, FormatXLSX, report.Format)
	assert.Equal(t, 2, report.RowsDecoded)

	assert.Equal(t, 2020, rows[0].Year)
	assert.Equal(t, 3, rows[0].Line)
	require.NotNil(t, rows[0].DiabetesPct)
	assert.InDelta(t, 10.2, *rows[0].DiabetesPct, 1e-9)

	assert.Equal(t, "Texas", rows[1].State)
	assert.Equal(t, 5, rows[1].Line)
	assert.Nil(t, rows[1].DiabetesPct, "NA markers decode to nil")
}

func TestLoadXLSXSheetSelection(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "no survey data"))
	path := filepath.Join(t.TempDir(), "notes.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	t.Run("no sheet carries the columns", func(t *testing.T) {
		loader := NewLoader(nil, testLogger())
		_, _, err := loader.Load(context.Background(), path)
		require.Error(t, err)
		assert.True(t, pipeline.IsFatal(err))
	})

	t.Run("explicit missing sheet", func(t *testing.T) {
		loader := NewLoader(&Options{Format: FormatXLSX, Sheet: "prevalence"}, testLogger())
		_, _, err := loader.Load(context.Background(), path)
		require.Error(t, err)
		assert.True(t, pipeline.IsFatal(err))
	})
}

func TestLoadPathErrors(t *testing.T) {
	loader := NewLoader(nil, testLogger())

	t.Run("missing file", func(t *testing.T) {
		_, _, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "absent.csv"))
		require.Error(t, err)
		assert.True(t, pipeline.IsFatal(err))
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, _, err := loader.Load(context.Background(), "data.parquet")
		require.Error(t, err)
		assert.True(t, pipeline.IsFatal(err))
		assert.Contains(t, err.Error(), "cannot detect input format")
	})

	t.Run("invalid options", func(t *testing.T) {
		bad := NewLoader(&Options{Format: "tsv"}, testLogger())
		_, _, err := bad.Load(context.Background(), "data.csv")
		require.Error(t, err)
		assert.False(t, pipeline.IsFatal(err))
	})
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"data/raw/brfss_health_data.csv", FormatCSV},
		{"survey.CSV", FormatCSV},
		{"survey.xlsx", FormatXLSX},
		{"survey.XLSM", FormatXLSX},
		{"survey.txt", ""},
		{"survey", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.path))
		})
	}
}

func TestDecodeRowMetricOrder(t *testing.T) {
	columns, missing := mapHeader(strings.Split(csvHeader, ","))
	require.Empty(t, missing)

	row := strings.Split(`2020,California,1.5,2.5,3.5,4.5,1000,45-54,Hispanic,x,10`, ",")
	rec, issue := decodeRow(columns, row, 7)
	require.Nil(t, issue)

	for i, m := range domain.Metrics() {
		v := rec.MetricValue(m)
		require.NotNil(t, v, m)
		assert.InDelta(t, float64(i)+1.5, *v, 1e-9)
	}
	assert.Equal(t, 7, rec.Line)
}
