package etl

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/personio-adapter/pkg/model"
)

// unknownDepartment is the bucket for records carrying no department.
const unknownDepartment = "Unknown"

type deptAccumulator struct {
	id    string
	name  string
	count int
	total decimal.Decimal
}

// DepartmentSummaries reduces flat records into one row per department
// (keyed by id+name pair), with the average monthly salary rounded to two
// decimal places. Rows come back sorted by department display name.
func DepartmentSummaries(records []model.EmployeeRecord) []model.DepartmentSummary {
	groups := make(map[string]*deptAccumulator)

	for _, rec := range records {
		name := rec.Department
		if name == "" {
			name = unknownDepartment
		}
		key := rec.DepartmentID + "|" + name

		acc, ok := groups[key]
		if !ok {
			acc = &deptAccumulator{id: rec.DepartmentID, name: name}
			groups[key] = acc
		}
		acc.count++
		acc.total = acc.total.Add(decimal.NewFromFloat(rec.MonthlySalary))
	}

	summaries := make([]model.DepartmentSummary, 0, len(groups))
	for _, acc := range groups {
		avg := decimal.Zero
		if acc.count > 0 {
			avg = acc.total.Div(decimal.NewFromInt(int64(acc.count))).Round(2)
		}
		summaries = append(summaries, model.DepartmentSummary{
			DepartmentID:  acc.id,
			Department:    acc.name,
			EmployeeCount: acc.count,
			AverageSalary: avg.InexactFloat64(),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Department != summaries[j].Department {
			return summaries[i].Department < summaries[j].Department
		}
		return summaries[i].DepartmentID < summaries[j].DepartmentID
	})

	return summaries
}
