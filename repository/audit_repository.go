package repository

import (
	"context"

	"radioaudit-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository handles database operations for audit runs. A run is
// written exactly once, when it reaches a terminal state.
type AuditRepository struct {
	db *pgxpool.Pool
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create persists a terminal audit run
func (r *AuditRepository) Create(ctx context.Context, run *models.AuditRun) error {
	query := `
		INSERT INTO audits (
			id, transcript_id, template_id, status, category_scores,
			overall_score, critical_findings, narrative, failures,
			categories_attempted, categories_scored, synthesis_error,
			model, latency_ms, completed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		) RETURNING created_at`

	err := r.db.QueryRow(
		ctx, query,
		run.ID,
		run.TranscriptID,
		run.TemplateID,
		run.Status,
		run.CategoryScores,
		run.OverallScore,
		run.CriticalFindings,
		run.Narrative,
		run.Failures,
		run.CategoriesAttempted,
		run.CategoriesScored,
		run.SynthesisError,
		run.Model,
		run.LatencyMS,
		run.CompletedAt,
	).Scan(&run.CreatedAt)

	return err
}

// GetByID retrieves an audit run by ID
func (r *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditRun, error) {
	run := &models.AuditRun{}
	query := `
		SELECT id, transcript_id, template_id, status, category_scores,
			overall_score, critical_findings, narrative, failures,
			categories_attempted, categories_scored, synthesis_error,
			model, latency_ms, created_at, completed_at
		FROM audits
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&run.ID,
		&run.TranscriptID,
		&run.TemplateID,
		&run.Status,
		&run.CategoryScores,
		&run.OverallScore,
		&run.CriticalFindings,
		&run.Narrative,
		&run.Failures,
		&run.CategoriesAttempted,
		&run.CategoriesScored,
		&run.SynthesisError,
		&run.Model,
		&run.LatencyMS,
		&run.CreatedAt,
		&run.CompletedAt,
	)

	if err != nil {
		return nil, err
	}

	return run, nil
}

// ListByTranscriptID retrieves all audit runs for a transcript
func (r *AuditRepository) ListByTranscriptID(ctx context.Context, transcriptID uuid.UUID) ([]*models.AuditRun, error) {
	query := `
		SELECT id, transcript_id, template_id, status, category_scores,
			overall_score, critical_findings, narrative, failures,
			categories_attempted, categories_scored, synthesis_error,
			model, latency_ms, created_at, completed_at
		FROM audits
		WHERE transcript_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, transcriptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.AuditRun
	for rows.Next() {
		run := &models.AuditRun{}
		err := rows.Scan(
			&run.ID,
			&run.TranscriptID,
			&run.TemplateID,
			&run.Status,
			&run.CategoryScores,
			&run.OverallScore,
			&run.CriticalFindings,
			&run.Narrative,
			&run.Failures,
			&run.CategoriesAttempted,
			&run.CategoriesScored,
			&run.SynthesisError,
			&run.Model,
			&run.LatencyMS,
			&run.CreatedAt,
			&run.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
