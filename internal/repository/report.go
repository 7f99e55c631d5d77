package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
)

// ErrRunExists is returned when a run id is saved twice.
var ErrRunExists = errors.New("verification run already stored")

const (
	slotApplicant   = "applicant"
	slotCoApplicant = "co_applicant"
)

type ReportRepository struct {
	pool PgxPool
}

func NewReportRepository(pool PgxPool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// Save writes a grouped run in one transaction: the run, its applicant
// reports in output order, their comparison records and primary faces.
func (r *ReportRepository) Save(ctx context.Context, output *domain.VerificationOutput, startedAt time.Time) (err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO verification_runs (id, status, started_at, completed_at)
		VALUES ($1, $2, $3, NOW())
	`, output.RunID, output.Status, startedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRunExists
		}
		return fmt.Errorf("insert run %s: %w", output.RunID, err)
	}

	position := 0
	if output.Applicant != nil {
		if err = r.insertReport(ctx, tx, output.RunID, slotApplicant, position, output.Applicant); err != nil {
			return err
		}
		position++
	}
	for i := range output.CoApplicants {
		if err = r.insertReport(ctx, tx, output.RunID, slotCoApplicant, position, &output.CoApplicants[i]); err != nil {
			return err
		}
		position++
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run %s: %w", output.RunID, err)
	}
	return nil
}

func (r *ReportRepository) insertReport(ctx context.Context, tx pgx.Tx, runID uuid.UUID, slot string, position int, report *domain.ApplicantReport) error {
	reportID := uuid.New()

	_, err := tx.Exec(ctx, `
		INSERT INTO applicant_reports (id, run_id, role, slot, position, primary_faces_detected)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, reportID, runID, report.Role, slot, position, report.PrimaryFacesDetected)
	if err != nil {
		return fmt.Errorf("insert report %s: %w", report.Role, err)
	}

	for i, c := range report.Comparisons {
		_, err := tx.Exec(ctx, `
			INSERT INTO comparison_records (id, report_id, position, document_class, filename, file_path,
				faces_found, is_match, similarity, distance, threshold, rotation_angle, details)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`,
			uuid.New(),
			reportID,
			i,
			c.DocumentClass,
			c.Filename,
			c.FilePath,
			c.FacesFound,
			c.IsMatch,
			c.Similarity,
			c.Distance,
			c.Threshold,
			c.RotationAngle,
			c.Details,
		)
		if err != nil {
			return fmt.Errorf("insert comparison %s/%s: %w", report.Role, c.Filename, err)
		}
	}

	for _, f := range report.PrimaryFaces {
		_, err := tx.Exec(ctx, `
			INSERT INTO primary_faces (id, report_id, source_path, rotation_angle, confidence, quality_score,
				box_x, box_y, box_width, box_height, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			uuid.New(),
			reportID,
			f.SourcePath,
			f.RotationAngle,
			f.Confidence,
			f.QualityScore,
			f.Box.X,
			f.Box.Y,
			f.Box.Width,
			f.Box.Height,
			toVector(f.Embedding),
		)
		if err != nil {
			return fmt.Errorf("insert primary face %s: %w", report.Role, err)
		}
	}

	return nil
}

// ListComparisons returns the comparison records of a run, applicant first,
// each report's records in their original order.
func (r *ReportRepository) ListComparisons(ctx context.Context, runID uuid.UUID) ([]domain.ComparisonRecord, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM verification_runs WHERE id = $1)`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check run %s: %w", runID, err)
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	rows, err := r.pool.Query(ctx, `
		SELECT c.document_class, c.filename, c.file_path, c.faces_found, c.is_match,
			c.similarity, c.distance, c.threshold, c.rotation_angle, c.details
		FROM comparison_records c
		INNER JOIN applicant_reports ar ON ar.id = c.report_id
		WHERE ar.run_id = $1
		ORDER BY ar.position, c.position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list comparisons %s: %w", runID, err)
	}
	defer rows.Close()

	records := []domain.ComparisonRecord{}
	for rows.Next() {
		var c domain.ComparisonRecord
		if err := rows.Scan(
			&c.DocumentClass,
			&c.Filename,
			&c.FilePath,
			&c.FacesFound,
			&c.IsMatch,
			&c.Similarity,
			&c.Distance,
			&c.Threshold,
			&c.RotationAngle,
			&c.Details,
		); err != nil {
			return nil, fmt.Errorf("scan comparison: %w", err)
		}
		records = append(records, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comparisons: %w", err)
	}

	return records, nil
}

// toVector converts an embedding for storage. Detection-only faces have no
// embedding and are stored as NULL.
func toVector(embedding []float64) *pgvector.Vector {
	if len(embedding) == 0 {
		return nil
	}
	floats := make([]float32, len(embedding))
	for i, v := range embedding {
		floats[i] = float32(v)
	}
	vec := pgvector.NewVector(floats)
	return &vec
}
