package repository

import (
	"context"

	"radioaudit-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TemplateRepository handles database operations for rubric templates
type TemplateRepository struct {
	db *pgxpool.Pool
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create creates a new template
func (r *TemplateRepository) Create(ctx context.Context, template *models.Template) error {
	query := `
		INSERT INTO templates (name, active, categories)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		template.Name,
		template.Active,
		template.Categories,
	).Scan(&template.ID, &template.CreatedAt, &template.UpdatedAt)

	return err
}

// GetByID retrieves a template by ID
func (r *TemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	template := &models.Template{}
	query := `
		SELECT id, name, active, categories, created_at, updated_at
		FROM templates
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&template.ID,
		&template.Name,
		&template.Active,
		&template.Categories,
		&template.CreatedAt,
		&template.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return template, nil
}

// Update updates a template
func (r *TemplateRepository) Update(ctx context.Context, template *models.Template) error {
	query := `
		UPDATE templates SET
			name = $2,
			active = $3,
			categories = $4,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(
		ctx, query,
		template.ID,
		template.Name,
		template.Active,
		template.Categories,
	).Scan(&template.UpdatedAt)

	return err
}

// ListActiveByIDs retrieves the active templates among the given IDs,
// preserving the order of ids.
func (r *TemplateRepository) ListActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Template, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, active, categories, created_at, updated_at
		FROM templates
		WHERE id = ANY($1) AND active = TRUE`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*models.Template)
	for rows.Next() {
		template := &models.Template{}
		err := rows.Scan(
			&template.ID,
			&template.Name,
			&template.Active,
			&template.Categories,
			&template.CreatedAt,
			&template.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		byID[template.ID] = template
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var templates []*models.Template
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			templates = append(templates, t)
		}
	}
	return templates, nil
}
