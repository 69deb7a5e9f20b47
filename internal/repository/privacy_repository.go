package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
)

// PrivacyRepository stores privacy register entries with JSONB data
type PrivacyRepository struct {
	db DBTX
}

func NewPrivacyRepository(db DBTX) *PrivacyRepository {
	return &PrivacyRepository{db: db}
}

const privacyColumns = `id, type, data, company_id, created_at`

// Create inserts a record
func (r *PrivacyRepository) Create(ctx context.Context, rec *domain.PrivacyRecord) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return apperrors.Internal("failed to encode privacy data", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO privacy_records (`+privacyColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, string(rec.Type), data, rec.CompanyID, rec.CreatedAt,
	)
	if err != nil {
		return apperrors.Internal("failed to create privacy record", err)
	}
	return nil
}

// Get retrieves a record by ID
func (r *PrivacyRepository) Get(ctx context.Context, id string) (*domain.PrivacyRecord, error) {
	rec, err := scanPrivacy(r.db.QueryRow(ctx, `SELECT `+privacyColumns+` FROM privacy_records WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, apperrors.NotFound("privacy record", id)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get privacy record", err)
	}
	return rec, nil
}

// List lists records, optionally filtered by company and type
func (r *PrivacyRepository) List(ctx context.Context, companyID string, typ domain.PrivacyType) ([]*domain.PrivacyRecord, error) {
	query := `
		SELECT ` + privacyColumns + `
		FROM privacy_records
		WHERE ($1::text = '' OR company_id = $1)
		  AND ($2::text = '' OR type = $2)
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, companyID, string(typ))
	if err != nil {
		return nil, apperrors.Internal("failed to list privacy records", err)
	}
	defer rows.Close()

	out := make([]*domain.PrivacyRecord, 0)
	for rows.Next() {
		rec, err := scanPrivacy(rows)
		if err != nil {
			return nil, apperrors.Internal("failed to scan privacy record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to list privacy records", err)
	}
	return out, nil
}

// Update replaces a record's data; the type never changes
func (r *PrivacyRepository) Update(ctx context.Context, rec *domain.PrivacyRecord) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return apperrors.Internal("failed to encode privacy data", err)
	}
	tag, err := r.db.Exec(ctx, `UPDATE privacy_records SET data = $3 WHERE id = $1 AND type = $2`, rec.ID, string(rec.Type), data)
	if err != nil {
		return apperrors.Internal("failed to update privacy record", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("privacy record", rec.ID)
	}
	return nil
}

// Delete removes a record
func (r *PrivacyRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM privacy_records WHERE id = $1`, id)
	if err != nil {
		return apperrors.Internal("failed to delete privacy record", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("privacy record", id)
	}
	return nil
}

func scanPrivacy(row pgx.Row) (*domain.PrivacyRecord, error) {
	rec := &domain.PrivacyRecord{}
	var typ string
	var raw []byte
	if err := row.Scan(&rec.ID, &typ, &raw, &rec.CompanyID, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Type = domain.PrivacyType(typ)
	data, err := domain.DecodePrivacyData(rec.Type, raw)
	if err != nil {
		return nil, err
	}
	rec.Data = data
	return rec, nil
}
