package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/personio-adapter/internal/documents"
	"github.com/Checker-Finance/personio-adapter/internal/etl"
	"github.com/Checker-Finance/personio-adapter/internal/personio"
	"github.com/Checker-Finance/personio-adapter/internal/rate"
)

func attr(v any) map[string]any { return map[string]any{"value": v} }

func employeePayload() map[string]any {
	return map[string]any{
		"success": true,
		"data": []any{
			map[string]any{
				"type": "Employee",
				"attributes": map[string]any{
					"id":              attr(float64(1)),
					"first_name":      attr("Ada"),
					"last_name":       attr("Lovelace"),
					"email":           attr("ada@example.com"),
					"status":          attr("active"),
					"hire_date":       attr("2020-01-15T00:00:00+01:00"),
					"department":      attr(map[string]any{"id": float64(9), "attributes": map[string]any{"name": "Engineering"}}),
					"fixed_salary":    attr(float64(72000)),
					"salary_interval": attr("yearly"),
				},
			},
			map[string]any{
				"type": "Employee",
				"attributes": map[string]any{
					"id":              attr(float64(2)),
					"first_name":      attr("Grace"),
					"last_name":       attr("Hopper"),
					"status":          attr("active"),
					"department":      attr(map[string]any{"id": float64(9), "attributes": map[string]any{"name": "Engineering"}}),
					"fixed_salary":    attr(float64(6000)),
					"salary_interval": attr("monthly"),
				},
			},
		},
		"metadata": map[string]any{"current_page": 1, "total_pages": 1},
	}
}

func newSyncServer(t *testing.T, withDocs bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/v1/auth":
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
				"success": true,
				"data":    map[string]string{"token": "test-token"},
			})
		case r.URL.Path == "/v1/company/employees":
			json.NewEncoder(w).Encode(employeePayload()) //nolint:errcheck
		case withDocs && r.URL.Path == "/v1/company/employees/1/documents":
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
				"success": true,
				"data": []any{
					map[string]any{"id": 11, "title": "Contract", "extension": "pdf"},
				},
			})
		case withDocs && r.URL.Path == "/v1/company/employees/2/documents":
			json.NewEncoder(w).Encode(map[string]any{"success": true, "data": []any{}}) //nolint:errcheck
		case withDocs && r.URL.Path == "/v1/company/employees/1/documents/11/download":
			w.Header().Del("Content-Type")
			w.Write([]byte("pdf bytes")) //nolint:errcheck
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newService(t *testing.T, srv *httptest.Server, withDocs bool) (*Service, string) {
	t.Helper()
	logger := zap.NewNop()
	tokens := personio.NewTokenManager(logger, srv.URL, "id", "secret")
	client := personio.NewClient(logger, tokens, rate.NewManager(rate.Config{RequestsPerSecond: 100, Burst: 100}), srv.URL)

	dir := t.TempDir()
	loader, err := etl.NewLoader(dir, logger)
	require.NoError(t, err)

	var dl *documents.Downloader
	if withDocs {
		dl = documents.NewDownloader(client, logger, dir)
	}

	svc := New(logger,
		etl.NewExtractor(client, logger, 10),
		etl.NewTransformer(logger),
		loader,
		dl, nil, nil,
		Options{IncludeDocuments: withDocs})
	return svc, dir
}

func TestRunWritesExportsAndReport(t *testing.T) {
	srv := newSyncServer(t, false)
	defer srv.Close()

	svc, dir := newService(t, srv, false)
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Extracted)
	assert.Equal(t, 2, report.Transformed)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 1, report.Departments)

	f, err := os.Open(filepath.Join(dir, EmployeeExportFile))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Ada", rows[1][1])
	assert.Equal(t, "2020-01-15", rows[1][5])
	assert.Equal(t, "6000", rows[1][16]) // 72000 yearly over 12 months

	sf, err := os.Open(filepath.Join(dir, DepartmentSummaryFile))
	require.NoError(t, err)
	defer sf.Close()
	srows, err := csv.NewReader(sf).ReadAll()
	require.NoError(t, err)
	require.Len(t, srows, 2)
	assert.Equal(t, []string{"9", "Engineering", "2", "6000"}, srows[1])

	last, err := svc.LastReport(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, report.RunID, last.RunID)
}

func TestRunDownloadsDocumentsWhenEnabled(t *testing.T) {
	srv := newSyncServer(t, true)
	defer srv.Close()

	svc, dir := newService(t, srv, true)
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.DocumentsDownloaded)
	assert.Equal(t, 0, report.DocumentsSkipped)
	assert.FileExists(t, filepath.Join(dir, "documents", "1", "Contract.pdf"))
}

func TestRunFailsWhenExtractionFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/auth" {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
				"success": true,
				"data":    map[string]string{"token": "test-token"},
			})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	svc, _ := newService(t, srv, false)
	report, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.False(t, report.Success)
	assert.NotEmpty(t, report.Error)
}

func TestRunRejectsConcurrentTrigger(t *testing.T) {
	srv := newSyncServer(t, false)
	defer srv.Close()

	svc, _ := newService(t, srv, false)
	svc.mu.Lock()
	svc.running = true
	svc.mu.Unlock()

	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
}
