package repository

import (
	"context"

	"radioaudit-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PolicyDocumentRepository handles database operations for policy documents
type PolicyDocumentRepository struct {
	db *pgxpool.Pool
}

// NewPolicyDocumentRepository creates a new policy document repository
func NewPolicyDocumentRepository(db *pgxpool.Pool) *PolicyDocumentRepository {
	return &PolicyDocumentRepository{db: db}
}

// Create creates a new policy document
func (r *PolicyDocumentRepository) Create(ctx context.Context, doc *models.PolicyDocument) error {
	query := `
		INSERT INTO policy_documents (name, text, mime_type, size, storage_path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRow(
		ctx, query,
		doc.Name,
		doc.Text,
		doc.MimeType,
		doc.Size,
		doc.StoragePath,
	).Scan(&doc.ID, &doc.CreatedAt)

	return err
}

// GetByID retrieves a policy document by ID
func (r *PolicyDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PolicyDocument, error) {
	doc := &models.PolicyDocument{}
	query := `
		SELECT id, name, text, mime_type, size, storage_path, created_at
		FROM policy_documents
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.Name,
		&doc.Text,
		&doc.MimeType,
		&doc.Size,
		&doc.StoragePath,
		&doc.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	return doc, nil
}

// GetByIDs retrieves policy documents by ID, preserving the order of ids.
// Missing ids are skipped.
func (r *PolicyDocumentRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.PolicyDocument, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, text, mime_type, size, storage_path, created_at
		FROM policy_documents
		WHERE id = ANY($1)`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*models.PolicyDocument)
	for rows.Next() {
		doc := &models.PolicyDocument{}
		err := rows.Scan(
			&doc.ID,
			&doc.Name,
			&doc.Text,
			&doc.MimeType,
			&doc.Size,
			&doc.StoragePath,
			&doc.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		byID[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var docs []*models.PolicyDocument
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			docs = append(docs, d)
		}
	}
	return docs, nil
}
