package repository

import (
	"context"

	"radioaudit-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IncidentRepository handles database operations for incidents
type IncidentRepository struct {
	db *pgxpool.Pool
}

// NewIncidentRepository creates a new incident repository
func NewIncidentRepository(db *pgxpool.Pool) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// Create creates a new incident
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (context, selected_template_ids)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		incident.Context,
		incident.SelectedTemplateIDs,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)

	return err
}

// GetByID retrieves an incident by ID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	incident := &models.Incident{}
	query := `
		SELECT id, context, selected_template_ids, created_at, updated_at
		FROM incidents
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&incident.ID,
		&incident.Context,
		&incident.SelectedTemplateIDs,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return incident, nil
}

// UpdateSelectedTemplates updates the template selection for an incident
func (r *IncidentRepository) UpdateSelectedTemplates(ctx context.Context, id uuid.UUID, templateIDs []uuid.UUID) error {
	query := `
		UPDATE incidents SET
			selected_template_ids = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, templateIDs)
	return err
}
