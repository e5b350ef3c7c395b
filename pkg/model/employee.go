package model

import (
	"strconv"
	"time"
)

// EmployeeRecord is the canonical flat employee row produced by the
// transformer. Field order here drives the CSV column order, so the header
// names match what the downstream HR consumers already expect.
type EmployeeRecord struct {
	EmployeeID      string
	FirstName       string
	LastName        string
	Email           string
	Status          string
	HireDate        string
	TerminationDate string
	Position        string
	DepartmentID    string
	Department      string
	Team            string
	SupervisorName  string
	Location        string
	WeeklyHours     float64
	EmploymentType  string
	CostCenters     string
	MonthlySalary   float64
	LastModified    string
}

// EmployeeCSVHeader returns the CSV header row for employee exports.
func EmployeeCSVHeader() []string {
	return []string{
		"employeeID",
		"First name",
		"Last name",
		"email",
		"status",
		"Hire date",
		"Termination date",
		"position",
		"department_id",
		"department",
		"team",
		"Supervisor name",
		"location",
		"Weekly working hours",
		"Employment type",
		"Cost center",
		"Monthly base salary",
		"Last modified",
	}
}

// CSVRow renders the record in the same order as EmployeeCSVHeader.
func (r EmployeeRecord) CSVRow() []string {
	return []string{
		r.EmployeeID,
		r.FirstName,
		r.LastName,
		r.Email,
		r.Status,
		r.HireDate,
		r.TerminationDate,
		r.Position,
		r.DepartmentID,
		r.Department,
		r.Team,
		r.SupervisorName,
		r.Location,
		formatFloat(r.WeeklyHours),
		r.EmploymentType,
		r.CostCenters,
		formatFloat(r.MonthlySalary),
		r.LastModified,
	}
}

// DepartmentSummary is one aggregated row of the department-level report.
type DepartmentSummary struct {
	DepartmentID  string
	Department    string
	EmployeeCount int
	AverageSalary float64
}

// SummaryCSVHeader returns the CSV header row for department summaries.
func SummaryCSVHeader() []string {
	return []string{"department_id", "department_name", "employee_count", "average_base_salary"}
}

// CSVRow renders the summary row in the same order as SummaryCSVHeader.
func (s DepartmentSummary) CSVRow() []string {
	return []string{
		s.DepartmentID,
		s.Department,
		strconv.Itoa(s.EmployeeCount),
		formatFloat(s.AverageSalary),
	}
}

// RunReport summarises one completed (or failed) sync run.
type RunReport struct {
	RunID               string        `json:"run_id"`
	StartedAt           time.Time     `json:"started_at"`
	Duration            time.Duration `json:"duration"`
	Extracted           int           `json:"extracted"`
	Transformed         int           `json:"transformed"`
	Skipped             int           `json:"skipped"`
	Departments         int           `json:"departments"`
	DocumentsDownloaded int           `json:"documents_downloaded"`
	DocumentsSkipped    int           `json:"documents_skipped"`
	Success             bool          `json:"success"`
	Error               string        `json:"error,omitempty"`
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
