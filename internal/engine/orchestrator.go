package engine

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"strconv"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/audit"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/imaging"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/provider"
)

// DocumentExpander turns a document into the image files it contains.
type DocumentExpander interface {
	Expand(ctx context.Context, doc domain.Document) iter.Seq2[string, error]
}

// Orchestrator runs the verification pipeline for one applicant at a time.
// It is not safe for concurrent use.
type Orchestrator struct {
	extractor    *Extractor
	matcher      *Matcher
	documents    DocumentExpander
	registry     *imaging.Registry
	audit        audit.Logger
	providerName string
	logger       *slog.Logger
}

// NewOrchestrator wires the pipeline. registry must be the same registry the
// document expander writes into so that Cleanup releases both.
func NewOrchestrator(
	detector provider.FaceDetector,
	documents DocumentExpander,
	registry *imaging.Registry,
	cfg Config,
	auditLogger audit.Logger,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	return &Orchestrator{
		extractor:    NewExtractor(detector, registry, cfg, logger),
		matcher:      NewMatcher(cfg.MatchThreshold),
		documents:    documents,
		registry:     registry,
		audit:        auditLogger,
		providerName: provider.Name(detector),
		logger:       logger.With("component", "orchestrator"),
	}
}

// ProcessApplicant extracts the primary faces and compares every comparison
// document against them. Records follow the input order.
func (o *Orchestrator) ProcessApplicant(ctx context.Context, applicant domain.Applicant) domain.ApplicantReport {
	logger := o.logger.With("role", applicant.Role)
	logger.InfoContext(ctx, "processing applicant",
		"primary_docs", len(applicant.PrimaryDocs),
		"comparison_docs", len(applicant.ComparisonDocs),
	)

	var primary []domain.FaceObservation
	for _, doc := range applicant.PrimaryDocs {
		faces, err := o.extractDocument(ctx, doc)
		if err != nil {
			logger.WarnContext(ctx, "primary document extraction failed", "document", doc.DisplayName(), "error", err)
		}
		primary = append(primary, faces...)
	}

	if len(primary) == 0 {
		logger.WarnContext(ctx, "no faces found in primary documents, comparisons cannot be verified")
	} else {
		logger.InfoContext(ctx, "primary faces found", "count", len(primary))
	}

	report := domain.ApplicantReport{
		Role:                 applicant.Role,
		PrimaryFacesDetected: len(primary),
		Comparisons:          make([]domain.ComparisonRecord, 0, len(applicant.ComparisonDocs)),
		PrimaryFaces:         primary,
	}

	for _, doc := range applicant.ComparisonDocs {
		record := o.compareDocument(ctx, doc, primary)
		report.Comparisons = append(report.Comparisons, record)
		o.logComparison(ctx, applicant.Role, record)
	}

	return report
}

// Cleanup removes every temporary artifact still owned by the run.
func (o *Orchestrator) Cleanup() error {
	return o.registry.Close()
}

func (o *Orchestrator) compareDocument(ctx context.Context, doc domain.Document, primary []domain.FaceObservation) domain.ComparisonRecord {
	record := domain.ComparisonRecord{
		DocumentClass: doc.DocClass,
		Filename:      doc.OriginalFilename,
		FilePath:      doc.FilePath,
		Distance:      1.0,
		Threshold:     o.matcher.Threshold(),
	}

	faces, err := o.extractDocument(ctx, doc)
	if err != nil {
		record.Details = fmt.Sprintf(domain.DetailsExtractionErrorFn, err)
		return record
	}
	record.FacesFound = len(faces)

	switch {
	case len(faces) == 0:
		record.Details = domain.DetailsNoHumanFaces
	case len(primary) == 0:
		record.Details = domain.DetailsNoPrimaryFace
	default:
		match := o.matcher.BestMatch(primary, faces)
		record.IsMatch = match.Result.Verified
		record.Similarity = round4(match.Result.Similarity)
		record.Distance = round4(match.Result.Distance)
		record.RotationAngle = match.Comparison.RotationAngle
		record.Details = domain.DetailsComparisonDone
	}

	return record
}

// extractDocument expands doc and extracts every image it yields. On an
// expansion error the faces gathered so far are returned with the error.
func (o *Orchestrator) extractDocument(ctx context.Context, doc domain.Document) ([]domain.FaceObservation, error) {
	var faces []domain.FaceObservation
	for imagePath, err := range o.documents.Expand(ctx, doc) {
		if err != nil {
			return faces, err
		}
		faces = append(faces, o.extractor.Extract(ctx, imagePath)...)
	}
	return faces, nil
}

func (o *Orchestrator) logComparison(ctx context.Context, role string, record domain.ComparisonRecord) {
	_ = o.audit.Log(ctx, audit.Event{
		EventType: audit.EventDocumentCompared,
		Role:      role,
		Document:  record.FilePath,
		Provider:  o.providerName,
		Success:   record.Details == domain.DetailsComparisonDone,
		Metadata: map[string]string{
			"document_class": record.DocumentClass,
			"faces_found":    strconv.Itoa(record.FacesFound),
			"is_match":       strconv.FormatBool(record.IsMatch),
			"similarity":     strconv.FormatFloat(record.Similarity, 'f', 4, 64),
			"distance":       strconv.FormatFloat(record.Distance, 'f', 4, 64),
			"details":        record.Details,
		},
	})
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
