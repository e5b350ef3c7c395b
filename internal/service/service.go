package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Checker-Finance/personio-adapter/internal/documents"
	"github.com/Checker-Finance/personio-adapter/internal/etl"
	"github.com/Checker-Finance/personio-adapter/internal/metrics"
	"github.com/Checker-Finance/personio-adapter/internal/personio"
	"github.com/Checker-Finance/personio-adapter/internal/publisher"
	"github.com/Checker-Finance/personio-adapter/internal/store"
	"github.com/Checker-Finance/personio-adapter/pkg/model"
)

// Output filenames within the configured export directory.
const (
	EmployeeExportFile    = "personio_employee_export.csv"
	DepartmentSummaryFile = "department_summary.csv"
)

// ErrRunInProgress is returned when a sync is triggered while another run
// is still going.
var ErrRunInProgress = errors.New("sync run already in progress")

// Service orchestrates one full sync: extract employees from Personio,
// flatten them, write the CSV exports, mirror to the store and optionally
// download documents. Store, publisher and downloader are all optional;
// a nil value disables that stage.
type Service struct {
	logger      *zap.Logger
	extractor   *etl.Extractor
	transformer *etl.Transformer
	loader      *etl.Loader
	downloader  *documents.Downloader
	store       store.Store
	pub         *publisher.Publisher

	includeDocuments bool

	mu      sync.Mutex
	running bool
	last    *model.RunReport
}

type Options struct {
	IncludeDocuments bool
}

func New(
	logger *zap.Logger,
	extractor *etl.Extractor,
	transformer *etl.Transformer,
	loader *etl.Loader,
	downloader *documents.Downloader,
	st store.Store,
	pub *publisher.Publisher,
	opts Options,
) *Service {
	return &Service{
		logger:           logger,
		extractor:        extractor,
		transformer:      transformer,
		loader:           loader,
		downloader:       downloader,
		store:            st,
		pub:              pub,
		includeDocuments: opts.IncludeDocuments,
	}
}

// Run executes one sync end to end and returns its report. Only one run may
// be in flight at a time; a second trigger gets ErrRunInProgress.
func (s *Service) Run(ctx context.Context) (model.RunReport, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return model.RunReport{}, ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	report := model.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	s.logger.Info("sync.start", zap.String("run_id", report.RunID))

	err := s.run(ctx, &report)
	report.Duration = time.Since(report.StartedAt)
	report.Success = err == nil
	if err != nil {
		report.Error = err.Error()
		metrics.SyncRunsTotal.WithLabelValues("failure").Inc()
		s.logger.Error("sync.failed",
			zap.String("run_id", report.RunID),
			zap.Duration("duration", report.Duration),
			zap.Error(err))
	} else {
		metrics.SyncRunsTotal.WithLabelValues("success").Inc()
		s.logger.Info("sync.completed",
			zap.String("run_id", report.RunID),
			zap.Duration("duration", report.Duration),
			zap.Int("extracted", report.Extracted),
			zap.Int("transformed", report.Transformed),
			zap.Int("skipped", report.Skipped),
			zap.Int("departments", report.Departments))
	}
	metrics.SyncDuration.Observe(report.Duration.Seconds())

	s.finish(ctx, report)
	return report, err
}

func (s *Service) run(ctx context.Context, report *model.RunReport) error {
	raw, err := s.extractor.FetchEmployees(ctx)
	if err != nil {
		return err
	}
	report.Extracted = len(raw)

	records, skipped := s.transformer.TransformEmployees(raw)
	report.Transformed = len(records)
	report.Skipped = len(skipped)

	if err := s.loader.SaveEmployees(records, EmployeeExportFile); err != nil {
		return err
	}

	summaries := etl.DepartmentSummaries(records)
	report.Departments = len(summaries)
	if err := s.loader.SaveSummaries(summaries, DepartmentSummaryFile); err != nil {
		return err
	}

	// Store mirroring is best effort; the CSV files are already on disk.
	if s.store != nil {
		if err := s.store.UpsertEmployeeSnapshot(ctx, records); err != nil {
			s.logger.Warn("sync.store.snapshot_failed", zap.Error(err))
		}
		if err := s.store.UpsertDepartmentSummaries(ctx, summaries); err != nil {
			s.logger.Warn("sync.store.summary_failed", zap.Error(err))
		}
	}

	if s.includeDocuments && s.downloader != nil {
		if err := s.downloadDocuments(ctx, raw, report); err != nil {
			return err
		}
	}

	return nil
}

// downloadDocuments walks every extracted employee and mirrors their
// documents. A per-document failure is counted and skipped inside the
// downloader; only authentication failures abort the stage.
func (s *Service) downloadDocuments(ctx context.Context, raw []personio.Entity, report *model.RunReport) error {
	for _, entity := range raw {
		id := entity.ID()
		if id == "" {
			continue
		}
		docs := s.extractor.FetchDocumentMetadata(ctx, id)
		res, err := s.downloader.DownloadForEmployee(ctx, id, docs)
		report.DocumentsDownloaded += res.Downloaded
		report.DocumentsSkipped += res.Skipped
		if err != nil {
			return err
		}
	}
	return nil
}

// finish records the report in memory and, when configured, in the store and
// on the event bus. Failures here never fail the run itself.
func (s *Service) finish(ctx context.Context, report model.RunReport) {
	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveRunReport(ctx, report); err != nil {
			s.logger.Warn("sync.report.save_failed", zap.Error(err))
		}
	}
	if s.pub != nil {
		if err := s.pub.PublishSyncCompleted(ctx, report); err != nil {
			s.logger.Warn("sync.report.publish_failed", zap.Error(err))
		}
	}
}

// LastReport returns the most recent run report: the in-memory one when this
// process has run a sync, otherwise the store's copy, otherwise nil.
func (s *Service) LastReport(ctx context.Context) (*model.RunReport, error) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last != nil {
		return last, nil
	}
	if s.store != nil {
		return s.store.LastRunReport(ctx)
	}
	return nil, nil
}
