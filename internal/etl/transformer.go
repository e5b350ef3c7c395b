package etl

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/personio-adapter/internal/metrics"
	"github.com/Checker-Finance/personio-adapter/internal/personio"
	"github.com/Checker-Finance/personio-adapter/pkg/model"
)

const (
	// defaultWeeklyHours applies when the hourly-salary fallback has no
	// weekly_working_hours attribute to go on.
	defaultWeeklyHours = 40
	// avgWeeksPerMonth converts an hourly wage to a monthly figure.
	avgWeeksPerMonth = "4.33"
)

// SkippedRecord identifies one entity dropped during transformation, with the
// reason, so the run report can name what was lost.
type SkippedRecord struct {
	EmployeeID string
	Err        error
}

// Transformer flattens raw Personio entities into canonical employee records.
// A malformed entity never aborts the batch: it is logged, counted and
// dropped.
type Transformer struct {
	logger *zap.Logger
}

func NewTransformer(logger *zap.Logger) *Transformer {
	return &Transformer{logger: logger}
}

// TransformEmployees maps each raw entity to a flat record, splitting the
// batch into successes and skipped entries.
func (t *Transformer) TransformEmployees(raw []personio.Entity) ([]model.EmployeeRecord, []SkippedRecord) {
	records := make([]model.EmployeeRecord, 0, len(raw))
	var skipped []SkippedRecord

	for _, entity := range raw {
		rec, err := t.transformOne(entity)
		if err != nil {
			t.logger.Warn("etl.transform_skipped",
				zap.String("employee_id", entity.ID()),
				zap.Error(err))
			metrics.RecordsSkipped.Inc()
			skipped = append(skipped, SkippedRecord{EmployeeID: entity.ID(), Err: err})
			continue
		}
		metrics.RecordsTransformed.Inc()
		records = append(records, rec)
	}

	return records, skipped
}

func (t *Transformer) transformOne(entity personio.Entity) (model.EmployeeRecord, error) {
	attrs := entity.Attributes()
	if attrs == nil {
		return model.EmployeeRecord{}, fmt.Errorf("entity carries no attributes map")
	}

	weeklyHours := ResolveFloat(attrs, "weekly_working_hours", 0)

	return model.EmployeeRecord{
		EmployeeID:      ResolveString(attrs, "id", ""),
		FirstName:       ResolveString(attrs, "first_name", ""),
		LastName:        ResolveString(attrs, "last_name", ""),
		Email:           ResolveString(attrs, "email", ""),
		Status:          ResolveString(attrs, "status", ""),
		HireDate:        NormalizeDate(ResolveString(attrs, "hire_date", "")),
		TerminationDate: NormalizeDate(ResolveString(attrs, "termination_date", "")),
		Position:        ResolveString(attrs, "position", ""),
		DepartmentID:    ResolveNestedID(attrs, "department"),
		Department:      ResolveString(attrs, "department", ""),
		Team:            ResolveString(attrs, "team", ""),
		SupervisorName:  supervisorName(attrs),
		Location:        ResolveString(attrs, "office", ""),
		WeeklyHours:     weeklyHours,
		EmploymentType:  ResolveString(attrs, "employment_type", ""),
		CostCenters:     costCenterNames(attrs),
		MonthlySalary:   monthlySalary(attrs, weeklyHours),
		LastModified:    ResolveString(attrs, "last_modified_at", ""),
	}, nil
}

// NormalizeDate truncates date-time strings to YYYY-MM-DD. Only values that
// carry a time separator and matching dash positions are truncated; anything
// else passes through unchanged.
func NormalizeDate(s string) string {
	if s == "" {
		return ""
	}
	if len(s) >= 10 && strings.ContainsAny(s, "T ") {
		ten := s[:10]
		if ten[4] == '-' && ten[7] == '-' {
			return ten
		}
	}
	return s
}

// monthlySalary derives a monthly base salary. A positive fixed salary wins:
// yearly intervals divide by 12, monthly passes through, unknown intervals
// pass through untouched. Otherwise the hourly wage is extrapolated over the
// weekly hours (default 40) and the average weeks per month. No usable input
// yields 0, never an error.
func monthlySalary(attrs map[string]any, weeklyHours float64) float64 {
	fixed := ResolveFloat(attrs, "fixed_salary", 0)
	if fixed > 0 {
		d := decimal.NewFromFloat(fixed)
		switch strings.ToLower(ResolveString(attrs, "salary_interval", "")) {
		case "yearly", "annual":
			d = d.Div(decimal.NewFromInt(12))
		case "monthly":
			// already monthly
		}
		return d.InexactFloat64()
	}

	hourly := ResolveFloat(attrs, "hourly_salary", 0)
	if hourly > 0 {
		if weeklyHours <= 0 {
			weeklyHours = defaultWeeklyHours
		}
		return decimal.NewFromFloat(hourly).
			Mul(decimal.NewFromFloat(weeklyHours)).
			Mul(decimal.RequireFromString(avgWeeksPerMonth)).
			InexactFloat64()
	}

	return 0
}

// costCenterNames maps a list-valued cost_centers attribute to a compact
// array-like string of entry names. Entries without a resolvable name are
// skipped silently.
func costCenterNames(attrs map[string]any) string {
	entries := ResolveList(attrs, "cost_centers")
	if len(entries) == 0 {
		return ""
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := displayName(obj); ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// supervisorName joins the first/last name carried directly on the
// supervisor reference object.
func supervisorName(attrs map[string]any) string {
	sup := ResolveMap(attrs, "supervisor")
	if sup == nil {
		return ""
	}
	first, _ := sup["first_name"].(string)
	last, _ := sup["last_name"].(string)
	return strings.TrimSpace(first + " " + last)
}
