package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/audit"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/ingest"
)

// StatusSuccess is the status of every run that reached the grouping step.
const StatusSuccess = "success"

type ApplicantProcessor interface {
	ProcessApplicant(ctx context.Context, applicant domain.Applicant) domain.ApplicantReport
	Cleanup() error
}

type ReportRepositoryInterface interface {
	Save(ctx context.Context, output *domain.VerificationOutput, startedAt time.Time) error
	ListComparisons(ctx context.Context, runID uuid.UUID) ([]domain.ComparisonRecord, error)
}

// ProgressFunc is called after each applicant, successful or not.
type ProgressFunc func(role string, done, total int)

type VerificationService struct {
	processor ApplicantProcessor
	reports   ReportRepositoryInterface
	audit     audit.Logger
	logger    *slog.Logger
	progress  ProgressFunc
}

func NewVerificationService(
	processor ApplicantProcessor,
	reports ReportRepositoryInterface,
	auditLogger audit.Logger,
	logger *slog.Logger,
) *VerificationService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	return &VerificationService{
		processor: processor,
		reports:   reports,
		audit:     auditLogger,
		logger:    logger.With("component", "verification_service"),
	}
}

func (s *VerificationService) WithProgress(fn ProgressFunc) *VerificationService {
	s.progress = fn
	return s
}

// Run verifies every applicant of src and groups the reports. Only a failure
// to read src aborts the run; temporary files are removed in every case.
func (s *VerificationService) Run(ctx context.Context, src ingest.Source) (*domain.VerificationOutput, error) {
	runID := uuid.New()
	ctx = audit.WithRunID(ctx, runID)
	start := time.Now()
	logger := s.logger.With("run_id", runID)

	defer func() {
		if err := s.processor.Cleanup(); err != nil {
			logger.WarnContext(ctx, "cleanup failed", "error", err)
		}
	}()

	applicants, err := src.Applicants(ctx)
	if err != nil {
		return nil, fmt.Errorf("run %s: load applicants: %w", runID, err)
	}

	logger.InfoContext(ctx, "starting face verification run", "applicants", len(applicants))
	s.logEvent(ctx, audit.Event{
		EventType: audit.EventRunStarted,
		Success:   true,
		Metadata:  map[string]string{"applicants": strconv.Itoa(len(applicants))},
	})

	reports := make([]domain.ApplicantReport, 0, len(applicants))
	for i, applicant := range applicants {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}

		report, err := s.processApplicant(ctx, applicant)
		if err != nil {
			logger.ErrorContext(ctx, "applicant processing failed", "role", applicant.Role, "error", err)
			s.logEvent(ctx, audit.Event{
				EventType: audit.EventApplicantFailed,
				Role:      applicant.Role,
				Success:   false,
				Error:     err.Error(),
			})
		} else {
			reports = append(reports, report)
		}

		if s.progress != nil {
			s.progress(applicant.Role, i+1, len(applicants))
		}
	}

	for _, r := range reports {
		if !strings.Contains(strings.ToLower(r.Role), "applicant") {
			logger.WarnContext(ctx, "role is neither applicant nor co-applicant, omitted from output", "role", r.Role)
		}
	}
	output := GroupReports(runID, reports)

	if s.reports != nil {
		if err := s.reports.Save(ctx, output, start); err != nil {
			logger.ErrorContext(ctx, "persist run failed", "error", err)
		}
	}

	s.logEvent(ctx, audit.Event{
		EventType: audit.EventRunCompleted,
		Success:   true,
		Metadata: map[string]string{
			"processed":   strconv.Itoa(len(reports)),
			"duration_ms": strconv.FormatInt(time.Since(start).Milliseconds(), 10),
		},
	})
	logger.InfoContext(ctx, "face verification run complete",
		"processed", len(reports),
		"duration", time.Since(start),
	)

	return output, nil
}

// Comparisons returns the stored comparison records of a run.
func (s *VerificationService) Comparisons(ctx context.Context, runID uuid.UUID) ([]domain.ComparisonRecord, error) {
	if s.reports == nil {
		return nil, domain.ErrPersistenceDisabled
	}
	records, err := s.reports.ListComparisons(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("run %s: list comparisons: %w", runID, err)
	}
	return records, nil
}

// processApplicant isolates one applicant so that a panic in the pipeline
// does not abort the run.
func (s *VerificationService) processApplicant(ctx context.Context, applicant domain.Applicant) (report domain.ApplicantReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "panic while processing applicant",
				"role", applicant.Role,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("applicant %s: panic: %v", applicant.Role, r)
		}
	}()

	return s.processor.ProcessApplicant(ctx, applicant), nil
}

func (s *VerificationService) logEvent(ctx context.Context, event audit.Event) {
	if err := s.audit.Log(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit log failed", "event_type", event.EventType, "error", err)
	}
}

// GroupReports places the report whose role is "applicant" (case-insensitive,
// first one wins) in the applicant slot and every other role containing
// "applicant" in co_applicants, keeping their order. Other roles are dropped.
func GroupReports(runID uuid.UUID, reports []domain.ApplicantReport) *domain.VerificationOutput {
	output := &domain.VerificationOutput{
		RunID:        runID,
		Status:       StatusSuccess,
		CoApplicants: []domain.ApplicantReport{},
	}

	for i := range reports {
		role := strings.ToLower(reports[i].Role)
		switch {
		case role == "applicant":
			if output.Applicant == nil {
				r := reports[i]
				output.Applicant = &r
			}
		case strings.Contains(role, "applicant"):
			output.CoApplicants = append(output.CoApplicants, reports[i])
		}
	}

	return output
}
