package etl

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Checker-Finance/personio-adapter/pkg/model"
)

// Loader writes the flattened exports as CSV files under one output
// directory.
type Loader struct {
	outputDir string
	logger    *zap.Logger
}

// NewLoader creates the output directory if missing.
func NewLoader(outputDir string, logger *zap.Logger) (*Loader, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", outputDir, err)
	}
	return &Loader{outputDir: outputDir, logger: logger}, nil
}

// OutputDir returns the directory exports are written to.
func (l *Loader) OutputDir() string { return l.outputDir }

// SaveEmployees writes employee records to filename.
func (l *Loader) SaveEmployees(records []model.EmployeeRecord, filename string) error {
	if len(records) == 0 {
		l.logger.Warn("etl.load.no_data", zap.String("file", filename))
		return nil
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.CSVRow())
	}
	return l.writeCSV(filename, model.EmployeeCSVHeader(), rows)
}

// SaveSummaries writes department summary rows to filename.
func (l *Loader) SaveSummaries(summaries []model.DepartmentSummary, filename string) error {
	if len(summaries) == 0 {
		l.logger.Warn("etl.load.no_data", zap.String("file", filename))
		return nil
	}
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, s.CSVRow())
	}
	return l.writeCSV(filename, model.SummaryCSVHeader(), rows)
}

func (l *Loader) writeCSV(filename string, header []string, rows [][]string) error {
	path := filepath.Join(l.outputDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header to %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows to %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}

	l.logger.Info("etl.load.saved",
		zap.String("file", path),
		zap.Int("rows", len(rows)))
	return nil
}
