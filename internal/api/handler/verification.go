package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/ingest"
)

// VerificationService runs verifications and reads stored results
type VerificationService interface {
	Run(ctx context.Context, src ingest.Source) (*domain.VerificationOutput, error)
	Comparisons(ctx context.Context, runID uuid.UUID) ([]domain.ComparisonRecord, error)
}

// SourceFactory builds the applicant source for a submitted manifest. The
// returned release func is called once the run is over.
type SourceFactory func(m *ingest.Manifest) (ingest.Source, func(), error)

// VerificationHandler handles verification run requests. The pipeline shares
// one temporary file registry, so runs are served one at a time.
type VerificationHandler struct {
	service VerificationService
	sources SourceFactory
	logger  *slog.Logger
	running sync.Mutex
}

// NewVerificationHandler creates a new VerificationHandler instance
func NewVerificationHandler(service VerificationService, sources SourceFactory, logger *slog.Logger) *VerificationHandler {
	return &VerificationHandler{
		service: service,
		sources: sources,
		logger:  logger,
	}
}

// ComparisonsResponse response for the comparisons endpoint
type ComparisonsResponse struct {
	RunID       string                    `json:"run_id"`
	Comparisons []domain.ComparisonRecord `json:"comparisons"`
}

// Create handles POST /v1/verifications with a manifest body
func (h *VerificationHandler) Create(c *fiber.Ctx) error {
	manifest, err := ingest.DecodeManifest(bytes.NewReader(c.Body()))
	if err != nil {
		return domain.ErrManifestInvalid.WithError(err)
	}
	if manifest.MappedApplicants() == 0 {
		return domain.ErrNoApplicants
	}

	if !h.running.TryLock() {
		return domain.ErrRunInProgress
	}
	defer h.running.Unlock()

	src, release, err := h.sources(manifest)
	if err != nil {
		if errors.Is(err, ingest.ErrLocalDocument) {
			return domain.ErrBadRequest.WithError(err)
		}
		return domain.ErrInternal.WithError(err)
	}
	defer release()

	output, err := h.service.Run(c.UserContext(), src)
	if err != nil {
		if errors.Is(err, domain.ErrInputNotFound) {
			return domain.ErrBadRequest.WithError(err)
		}
		return domain.ErrInternal.WithError(err)
	}

	h.logger.Info("verification run served",
		"run_id", output.RunID,
		"co_applicants", len(output.CoApplicants),
	)

	return c.Status(fiber.StatusOK).JSON(output)
}

// Comparisons handles GET /v1/verifications/:id/comparisons
func (h *VerificationHandler) Comparisons(c *fiber.Ctx) error {
	runID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	records, err := h.service.Comparisons(c.UserContext(), runID)
	if err != nil {
		return err
	}

	return c.JSON(ComparisonsResponse{
		RunID:       runID.String(),
		Comparisons: records,
	})
}
