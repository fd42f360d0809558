// Package ingest decodes raw survey files into health records. It reads
// CSV and XLSX sources, maps columns by header name, and skips rows it
// cannot decode with per-line diagnostics. Decoded rows go to the pipeline
// unscreened; only an unreadable file or zero decodable rows is fatal.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"brfsspulse/internal/pipeline"
	"brfsspulse/pkg/contracts/domain"
)

// Schema column keys
const (
	colYear          = "year"
	colState         = "state"
	colDiabetes      = "diabetes_percentage"
	colObesity       = "obesity_percentage"
	colHeartDisease  = "heart_disease_percentage"
	colInactivity    = "physical_inactivity_percentage"
	colPopulation    = "population"
	colAgeGroup      = "age_group"
	colRaceEthnicity = "race_ethnicity"
	colIncomeLevel   = "income_level"
	colSampleSize    = "sample_size"
)

// columnAliases maps each schema column to the header spellings it accepts.
// Headers are matched after normalization (case-folded, trimmed, spaces to
// underscores), so "Age Group" resolves the same as "age_group".
var columnAliases = map[string][]string{
	colYear:          {"year"},
	colState:         {"state", "state_name"},
	colDiabetes:      {"diabetes_percentage", "diabetes_pct", "diabetes"},
	colObesity:       {"obesity_percentage", "obesity_pct", "obesity"},
	colHeartDisease:  {"heart_disease_percentage", "heart_disease_pct", "heart_disease"},
	colInactivity:    {"physical_inactivity_percentage", "physical_inactivity_pct", "physical_inactivity", "inactivity_pct"},
	colPopulation:    {"population"},
	colAgeGroup:      {"age_group"},
	colRaceEthnicity: {"race_ethnicity"},
	colIncomeLevel:   {"income_level"},
	colSampleSize:    {"sample_size"},
}

// metricColumns pairs each metric column with its contract metric in
// canonical order
var metricColumns = []struct {
	col    string
	metric domain.Metric
}{
	{colDiabetes, domain.MetricDiabetes},
	{colObesity, domain.MetricObesity},
	{colHeartDisease, domain.MetricHeartDisease},
	{colInactivity, domain.MetricInactivity},
}

// Header rows in XLSX sheets are searched within this many leading rows
const headerSearchRows = 10

// Loader decodes survey source files into raw health records
type Loader struct {
	opts   *Options
	logger *slog.Logger
}

// NewLoader creates a loader, defaulting nil options and logger
func NewLoader(opts *Options, logger *slog.Logger) *Loader {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{opts: opts, logger: logger}
}

// Load decodes the file at path, resolving the format from the options or
// the file extension. It returns the decoded rows and a decode report.
func (l *Loader) Load(ctx context.Context, path string) ([]domain.HealthRecord, Report, error) {
	if !l.opts.IsValid() {
		return nil, Report{}, fmt.Errorf("invalid ingest options: format=%q", l.opts.Format)
	}

	format := l.opts.Format
	if format == "" || format == FormatAuto {
		format = DetectFormat(path)
		if format == "" {
			return nil, Report{}, pipeline.NewFatalInputError(
				fmt.Sprintf("cannot detect input format for %s", path), nil)
		}
	}

	var (
		rows   []domain.HealthRecord
		report Report
		err    error
	)
	switch format {
	case FormatCSV:
		file, openErr := os.Open(path)
		if openErr != nil {
			return nil, Report{}, pipeline.NewFatalInputError("failed to open input file", openErr)
		}
		defer file.Close()
		rows, report, err = l.ReadCSV(ctx, file, path)
	case FormatXLSX:
		rows, report, err = l.readXLSX(ctx, path)
	default:
		return nil, Report{}, pipeline.NewFatalInputError(
			fmt.Sprintf("unsupported input format %q", format), nil)
	}
	if err != nil {
		return nil, report, err
	}

	l.logger.InfoContext(ctx, "ingest complete",
		slog.String("source", path),
		slog.String("format", format),
		slog.Int("rows_decoded", report.RowsDecoded),
		slog.Int("rows_skipped", report.RowsSkipped))
	return rows, report, nil
}

// ReadCSV decodes records from a CSV stream. The first row must be the
// header; a UTF-8 byte order mark on the first cell is tolerated.
func (l *Loader) ReadCSV(ctx context.Context, r io.Reader, source string) ([]domain.HealthRecord, Report, error) {
	report := Report{Source: source, Format: FormatCSV}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, report, pipeline.NewFatalInputError(
				fmt.Sprintf("empty input file %s", source), nil)
		}
		return nil, report, pipeline.NewFatalInputError("failed to read header row", err)
	}
	columns, missing := mapHeader(header)
	if len(missing) > 0 {
		return nil, report, pipeline.NewFatalInputError(
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")), nil)
	}

	var rows []domain.HealthRecord
	line := 1
	for {
		line++
		if line%1024 == 0 {
			select {
			case <-ctx.Done():
				return nil, report, fmt.Errorf("ingest cancelled: %w", ctx.Err())
			default:
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				report.skip(parseErr.Line, ReasonMalformedLine, err.Error())
				l.logger.WarnContext(ctx, "skipped malformed line",
					slog.String("source", source),
					slog.Int("line", parseErr.Line),
					slog.String("error", err.Error()))
				continue
			}
			return nil, report, pipeline.NewFatalInputError("reading input failed", err)
		}
		if rowEmpty(record) {
			continue
		}

		row, issue := decodeRow(columns, record, line)
		if issue != nil {
			report.skip(issue.Line, issue.Reason, issue.Detail)
			l.logger.WarnContext(ctx, "skipped undecodable row",
				slog.String("source", source),
				slog.Int("line", issue.Line),
				slog.String("reason", issue.Reason),
				slog.String("detail", issue.Detail))
			continue
		}
		rows = append(rows, row)
	}

	report.RowsDecoded = len(rows)
	if len(rows) == 0 {
		fatal := pipeline.NewFatalInputError(
			fmt.Sprintf("no decodable rows in %s", source), nil)
		fatal.Context = map[string]interface{}{
			"rows_skipped": report.RowsSkipped,
		}
		return nil, report, fatal
	}
	return rows, report, nil
}

// readXLSX decodes records from an Excel workbook. With no sheet configured
// every sheet is scanned for a header row within its first rows.
func (l *Loader) readXLSX(ctx context.Context, path string) ([]domain.HealthRecord, Report, error) {
	report := Report{Source: path, Format: FormatXLSX}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, report, pipeline.NewFatalInputError("failed to open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if l.opts.Sheet != "" {
		sheets = []string{l.opts.Sheet}
	}

	for _, sheet := range sheets {
		sheetRows, err := f.GetRows(sheet)
		if err != nil {
			if l.opts.Sheet != "" {
				return nil, report, pipeline.NewFatalInputError(
					fmt.Sprintf("failed to read sheet %q", sheet), err)
			}
			continue
		}

		headerIdx, columns, found := findHeaderRow(sheetRows)
		if !found {
			continue
		}
		report.Sheet = sheet
		l.logger.DebugContext(ctx, "found survey data sheet",
			slog.String("source", path),
			slog.String("sheet", sheet),
			slog.Int("header_row", headerIdx+1))

		var rows []domain.HealthRecord
		for i := headerIdx + 1; i < len(sheetRows); i++ {
			if i%1024 == 0 {
				select {
				case <-ctx.Done():
					return nil, report, fmt.Errorf("ingest cancelled: %w", ctx.Err())
				default:
				}
			}
			if rowEmpty(sheetRows[i]) {
				continue
			}

			line := i + 1
			row, issue := decodeRow(columns, sheetRows[i], line)
			if issue != nil {
				report.skip(issue.Line, issue.Reason, issue.Detail)
				l.logger.WarnContext(ctx, "skipped undecodable row",
					slog.String("source", path),
					slog.String("sheet", sheet),
					slog.Int("line", issue.Line),
					slog.String("reason", issue.Reason),
					slog.String("detail", issue.Detail))
				continue
			}
			rows = append(rows, row)
		}

		report.RowsDecoded = len(rows)
		if len(rows) == 0 {
			fatal := pipeline.NewFatalInputError(
				fmt.Sprintf("no decodable rows in %s", path), nil)
			fatal.Context = map[string]interface{}{
				"sheet":        sheet,
				"rows_skipped": report.RowsSkipped,
			}
			return nil, report, fatal
		}
		return rows, report, nil
	}

	return nil, report, pipeline.NewFatalInputError(
		fmt.Sprintf("no sheet in %s carries the survey columns", path), nil)
}

// findHeaderRow scans the leading rows for one that resolves every schema
// column
func findHeaderRow(rows [][]string) (int, map[string]int, bool) {
	limit := len(rows)
	if limit > headerSearchRows {
		limit = headerSearchRows
	}
	for i := 0; i < limit; i++ {
		columns, missing := mapHeader(rows[i])
		if len(missing) == 0 {
			return i, columns, true
		}
	}
	return 0, nil, false
}

// mapHeader resolves header cells to schema columns and reports the columns
// it could not find
func mapHeader(header []string) (map[string]int, []string) {
	byName := make(map[string]int, len(header))
	for i, cell := range header {
		byName[normalizeHeader(cell)] = i
	}

	columns := make(map[string]int, len(columnAliases))
	var missing []string
	for _, col := range []string{
		colYear, colState,
		colDiabetes, colObesity, colHeartDisease, colInactivity,
		colPopulation, colAgeGroup, colRaceEthnicity, colIncomeLevel, colSampleSize,
	} {
		found := false
		for _, alias := range columnAliases[col] {
			if idx, ok := byName[alias]; ok {
				columns[col] = idx
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, col)
		}
	}
	return columns, missing
}

func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "_")
}

// decodeRow converts one source row into a raw record. Required numeric
// cells must parse; blank or NA-marked metric cells decode to nil and are
// left to the cleaner's missing-value policy.
func decodeRow(columns map[string]int, row []string, line int) (domain.HealthRecord, *LineIssue) {
	cell := func(col string) string {
		idx, ok := columns[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	year, err := parseIntCell(cell(colYear))
	if err != nil {
		return domain.HealthRecord{}, &LineIssue{Line: line, Reason: ReasonBadYear, Detail: err.Error()}
	}
	population, err := parseInt64Cell(cell(colPopulation))
	if err != nil {
		return domain.HealthRecord{}, &LineIssue{Line: line, Reason: ReasonBadPopulation, Detail: err.Error()}
	}
	sampleSize, err := parseIntCell(cell(colSampleSize))
	if err != nil {
		return domain.HealthRecord{}, &LineIssue{Line: line, Reason: ReasonBadSampleSize, Detail: err.Error()}
	}

	record := domain.HealthRecord{
		Year:          year,
		State:         cell(colState),
		Population:    population,
		AgeGroup:      cell(colAgeGroup),
		RaceEthnicity: cell(colRaceEthnicity),
		IncomeLevel:   cell(colIncomeLevel),
		SampleSize:    sampleSize,
		Line:          line,
	}
	for _, mc := range metricColumns {
		raw := cell(mc.col)
		if isNA(raw) {
			continue
		}
		value, err := parseFloatCell(raw)
		if err != nil {
			return domain.HealthRecord{}, &LineIssue{
				Line:   line,
				Reason: ReasonBadMetricValue,
				Detail: fmt.Sprintf("column %s: %v", mc.col, err),
			}
		}
		record.SetMetricValue(mc.metric, value)
	}
	return record, nil
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// isNA reports whether a cell carries a conventional blank marker
func isNA(s string) bool {
	switch strings.ToLower(s) {
	case "", "na", "n/a", "nan", "null", "none":
		return true
	}
	return false
}

func parseIntCell(s string) (int, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, errors.New("empty cell")
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return v, nil
}

func parseInt64Cell(s string) (int64, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, errors.New("empty cell")
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return v, nil
}

func parseFloatCell(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return v, nil
}
