package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/personio-adapter/internal/service"
	"github.com/Checker-Finance/personio-adapter/pkg/model"
)

// SyncRunner defines the sync operations needed by the handler.
type SyncRunner interface {
	Run(ctx context.Context) (model.RunReport, error)
	LastReport(ctx context.Context) (*model.RunReport, error)
}

// SyncHandler exposes the sync service over HTTP: manual triggers and the
// last run report.
type SyncHandler struct {
	logger *zap.Logger
	svc    SyncRunner
}

func NewSyncHandler(logger *zap.Logger, svc SyncRunner) *SyncHandler {
	return &SyncHandler{logger: logger, svc: svc}
}

// TriggerSync starts a sync run and returns its report. A run already in
// flight yields 409 instead of stacking a second extraction.
func (h *SyncHandler) TriggerSync(c *fiber.Ctx) error {
	report, err := h.svc.Run(c.Context())
	if errors.Is(err, service.ErrRunInProgress) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		h.logger.Error("api.sync.failed",
			zap.String("run_id", report.RunID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(report)
	}
	return c.Status(fiber.StatusOK).JSON(report)
}

// LastReport returns the most recent run report, 404 when no run has
// happened yet.
func (h *SyncHandler) LastReport(c *fiber.Ctx) error {
	report, err := h.svc.LastReport(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if report == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no sync has run yet"})
	}
	return c.Status(fiber.StatusOK).JSON(report)
}
