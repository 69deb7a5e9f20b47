package repository

import (
	"context"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
)

// EvidenceRepository stores evidence file metadata; blobs live in the
// evidence store
type EvidenceRepository struct {
	db DBTX
}

func NewEvidenceRepository(db DBTX) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

const evidenceColumns = `id, category, entity_id, file_name, content_type, size, storage_path, uploaded_at`

// Create inserts file metadata
func (r *EvidenceRepository) Create(ctx context.Context, f *domain.EvidenceFile) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO evidence_files (`+evidenceColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		f.ID, f.Category, f.EntityID, f.FileName, f.ContentType, f.Size, f.StoragePath, f.UploadedAt,
	)
	if err != nil {
		return apperrors.Internal("failed to create evidence file", err)
	}
	return nil
}

// Get retrieves file metadata by ID
func (r *EvidenceRepository) Get(ctx context.Context, id string) (*domain.EvidenceFile, error) {
	f := &domain.EvidenceFile{}
	err := r.db.QueryRow(ctx, `SELECT `+evidenceColumns+` FROM evidence_files WHERE id = $1`, id).Scan(
		&f.ID, &f.Category, &f.EntityID, &f.FileName, &f.ContentType, &f.Size, &f.StoragePath, &f.UploadedAt,
	)
	if isNoRows(err) {
		return nil, apperrors.NotFound("evidence file", id)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get evidence file", err)
	}
	return f, nil
}

// List lists files, optionally filtered by category and entity
func (r *EvidenceRepository) List(ctx context.Context, category, entityID string) ([]*domain.EvidenceFile, error) {
	query := `
		SELECT ` + evidenceColumns + `
		FROM evidence_files
		WHERE ($1::text = '' OR category = $1)
		  AND ($2::text = '' OR entity_id = $2)
		ORDER BY uploaded_at DESC
	`
	rows, err := r.db.Query(ctx, query, category, entityID)
	if err != nil {
		return nil, apperrors.Internal("failed to list evidence files", err)
	}
	defer rows.Close()

	out := make([]*domain.EvidenceFile, 0)
	for rows.Next() {
		f := &domain.EvidenceFile{}
		if err := rows.Scan(&f.ID, &f.Category, &f.EntityID, &f.FileName, &f.ContentType, &f.Size, &f.StoragePath, &f.UploadedAt); err != nil {
			return nil, apperrors.Internal("failed to scan evidence file", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to list evidence files", err)
	}
	return out, nil
}

// Delete removes file metadata
func (r *EvidenceRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM evidence_files WHERE id = $1`, id)
	if err != nil {
		return apperrors.Internal("failed to delete evidence file", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("evidence file", id)
	}
	return nil
}
