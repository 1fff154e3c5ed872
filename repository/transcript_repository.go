package repository

import (
	"context"

	"radioaudit-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TranscriptRepository handles database operations for transcripts
type TranscriptRepository struct {
	db *pgxpool.Pool
}

// NewTranscriptRepository creates a new transcript repository
func NewTranscriptRepository(db *pgxpool.Pool) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// Create creates a new transcript
func (r *TranscriptRepository) Create(ctx context.Context, transcript *models.Transcript) error {
	query := `
		INSERT INTO transcripts (incident_id, text, segments)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRow(
		ctx, query,
		transcript.IncidentID,
		transcript.Text,
		transcript.Segments,
	).Scan(&transcript.ID, &transcript.CreatedAt)

	return err
}

// GetByID retrieves a transcript by ID
func (r *TranscriptRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transcript, error) {
	transcript := &models.Transcript{}
	query := `
		SELECT id, incident_id, text, segments, created_at
		FROM transcripts
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&transcript.ID,
		&transcript.IncidentID,
		&transcript.Text,
		&transcript.Segments,
		&transcript.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	return transcript, nil
}
