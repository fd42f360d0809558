package surveillance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"brfsspulse/pkg/contracts/domain"
)

// reasonPrecedence fixes the order checks are applied in; the first failing
// check supplies a rejected row's reason code.
var reasonPrecedence = []string{
	ReasonMissingField,
	ReasonYearOutOfRange,
	ReasonUnknownState,
	ReasonUnknownCategory,
	ReasonPercentOutOfRange,
	ReasonNonpositivePopulation,
	ReasonNonpositiveSampleSize,
}

// Validator screens raw records against the schema and range rules. Field
// constraints live as struct tags on the record contract; set membership
// and the configurable year range are checked in code. Rows with blank
// metric cells pass validation: the missing-value policy belongs to the
// Cleaner.
type Validator struct {
	params   *ValidationParams
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a validator with the given bounds, defaulting nil
// parameters and logger
func NewValidator(params *ValidationParams, logger *slog.Logger) *Validator {
	if params == nil {
		params = DefaultValidationParams()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		params:   params,
		validate: validator.New(),
		logger:   logger,
	}
}

// Validate screens rows in input order and returns the accepted subset plus
// a report with per-reason rejection counts
func (v *Validator) Validate(ctx context.Context, rows []domain.HealthRecord) ([]domain.HealthRecord, ValidationReport, error) {
	if !v.params.IsValid() {
		return nil, ValidationReport{}, fmt.Errorf("invalid validation params: min_year=%d, max_year=%d", v.params.MinYear, v.params.MaxYear)
	}

	report := ValidationReport{
		Total:   len(rows),
		Reasons: make(map[string]int),
	}

	accepted := make([]domain.HealthRecord, 0, len(rows))
	for i, row := range rows {
		if i%1024 == 0 {
			select {
			case <-ctx.Done():
				return nil, ValidationReport{}, fmt.Errorf("validation cancelled: %w", ctx.Err())
			default:
			}
		}

		reason, detail := v.checkRow(row)
		if reason == "" {
			accepted = append(accepted, row)
			continue
		}

		report.Rejected++
		report.Reasons[reason]++
		if len(report.Issues) < MaxReportedIssues {
			report.Issues = append(report.Issues, RowIssue{Line: row.Line, Reason: reason, Detail: detail})
		}
		v.logger.DebugContext(ctx, "row rejected",
			"line", row.Line,
			"reason", reason,
			"detail", detail,
		)
	}
	report.Accepted = len(accepted)

	v.logger.InfoContext(ctx, "validation completed",
		"total", report.Total,
		"accepted", report.Accepted,
		"rejected", report.Rejected,
	)
	return accepted, report, nil
}

// checkRow runs every check and reports the highest-precedence failure.
// An empty reason means the row passed.
func (v *Validator) checkRow(row domain.HealthRecord) (reason, detail string) {
	found := make(map[string]string)

	if err := v.validate.Struct(row); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				r, d := classifyFieldError(fe)
				if _, seen := found[r]; !seen {
					found[r] = d
				}
			}
		}
	}

	if d := checkBlankFields(row); d != "" {
		if _, seen := found[ReasonMissingField]; !seen {
			found[ReasonMissingField] = d
		}
	}
	if row.Year < v.params.MinYear || row.Year > v.params.MaxYear {
		found[ReasonYearOutOfRange] = fmt.Sprintf("year %d outside [%d, %d]", row.Year, v.params.MinYear, v.params.MaxYear)
	}
	if strings.TrimSpace(row.State) != "" {
		if _, ok := CanonicalState(row.State); !ok {
			found[ReasonUnknownState] = fmt.Sprintf("unknown state %q", strings.TrimSpace(row.State))
		}
	}
	if d := checkCategories(row); d != "" {
		found[ReasonUnknownCategory] = d
	}

	for _, r := range reasonPrecedence {
		if d, ok := found[r]; ok {
			return r, d
		}
	}
	return "", ""
}

// classifyFieldError maps a struct tag violation to a rejection reason
func classifyFieldError(fe validator.FieldError) (reason, detail string) {
	switch {
	case fe.Tag() == "required":
		return ReasonMissingField, fmt.Sprintf("%s is required", fe.Field())
	case fe.Field() == "Population":
		return ReasonNonpositivePopulation, fmt.Sprintf("population %v must be positive", fe.Value())
	case fe.Field() == "SampleSize":
		return ReasonNonpositiveSampleSize, fmt.Sprintf("sample_size %v must be positive", fe.Value())
	default:
		return ReasonPercentOutOfRange, fmt.Sprintf("%s %v outside [0, 100]", fe.Field(), fe.Value())
	}
}

// checkBlankFields catches whitespace-only values the required tag cannot
// see (it only fails on the zero value)
func checkBlankFields(row domain.HealthRecord) string {
	fields := map[string]string{
		"state":          row.State,
		"age_group":      row.AgeGroup,
		"race_ethnicity": row.RaceEthnicity,
		"income_level":   row.IncomeLevel,
	}
	for _, name := range []string{"state", "age_group", "race_ethnicity", "income_level"} {
		v := fields[name]
		if v != "" && strings.TrimSpace(v) == "" {
			return fmt.Sprintf("%s is blank", name)
		}
	}
	return ""
}

// checkCategories verifies the demographic values against their enumerated
// sets, tolerating case and whitespace
func checkCategories(row domain.HealthRecord) string {
	if strings.TrimSpace(row.AgeGroup) != "" {
		if _, ok := domain.CanonicalAgeGroup(row.AgeGroup); !ok {
			return fmt.Sprintf("unknown age_group %q", strings.TrimSpace(row.AgeGroup))
		}
	}
	if strings.TrimSpace(row.RaceEthnicity) != "" {
		if _, ok := domain.CanonicalRaceEthnicity(row.RaceEthnicity); !ok {
			return fmt.Sprintf("unknown race_ethnicity %q", strings.TrimSpace(row.RaceEthnicity))
		}
	}
	if strings.TrimSpace(row.IncomeLevel) != "" {
		if _, ok := domain.CanonicalIncomeLevel(row.IncomeLevel); !ok {
			return fmt.Sprintf("unknown income_level %q", strings.TrimSpace(row.IncomeLevel))
		}
	}
	return ""
}
