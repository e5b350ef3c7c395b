package etl

import (
	"context"

	"go.uber.org/zap"

	"github.com/Checker-Finance/personio-adapter/internal/personio"
)

// Extractor pulls the raw entity sets the transformer works on. Per-employee
// detail fetches are enrichment: a failure there is logged and an empty
// result returned, so a single flaky sub-resource cannot abort the run.
type Extractor struct {
	client   *personio.Client
	logger   *zap.Logger
	maxPages int
}

func NewExtractor(client *personio.Client, logger *zap.Logger, maxPages int) *Extractor {
	return &Extractor{client: client, logger: logger, maxPages: maxPages}
}

// FetchEmployees fetches all employee master data across pages.
func (e *Extractor) FetchEmployees(ctx context.Context) ([]personio.Entity, error) {
	e.logger.Info("etl.extract_employees.start")
	employees, err := e.client.FetchAll(ctx, "company/employees", nil, e.maxPages)
	if err != nil {
		return nil, err
	}
	e.logger.Info("etl.extract_employees.done", zap.Int("count", len(employees)))
	return employees, nil
}

// FetchEmploymentDetails fetches the employment sub-resource for one
// employee. Empty on failure.
func (e *Extractor) FetchEmploymentDetails(ctx context.Context, employeeID string) personio.Entity {
	var out personio.Entity
	if err := e.client.Get(ctx, "company/employees/"+employeeID+"/employment", nil, &out); err != nil {
		e.logger.Warn("etl.employment_details_failed",
			zap.String("employee_id", employeeID),
			zap.Error(err))
		return personio.Entity{}
	}
	return out
}

// FetchCompensation fetches the compensation sub-resource for one employee.
// Empty on failure.
func (e *Extractor) FetchCompensation(ctx context.Context, employeeID string) personio.Entity {
	var out personio.Entity
	if err := e.client.Get(ctx, "company/employees/"+employeeID+"/compensation", nil, &out); err != nil {
		e.logger.Warn("etl.compensation_failed",
			zap.String("employee_id", employeeID),
			zap.Error(err))
		return personio.Entity{}
	}
	return out
}

// FetchDocumentMetadata lists an employee's documents. Nil on failure.
func (e *Extractor) FetchDocumentMetadata(ctx context.Context, employeeID string) []personio.DocumentMeta {
	docs, err := e.client.EmployeeDocuments(ctx, employeeID)
	if err != nil {
		e.logger.Warn("etl.document_metadata_failed",
			zap.String("employee_id", employeeID),
			zap.Error(err))
		return nil
	}
	return docs
}
