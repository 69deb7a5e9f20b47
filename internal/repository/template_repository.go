package repository

import (
	"context"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
)

// TemplateRepository stores audit templates
type TemplateRepository struct {
	db DBTX
}

func NewTemplateRepository(db DBTX) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create inserts a template; names are unique
func (r *TemplateRepository) Create(ctx context.Context, t *domain.AuditTemplate) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO audit_templates (name, control_ids, created_at) VALUES ($1, $2, $3)`,
		t.Name, t.ControlIDs, t.CreatedAt,
	)
	if isUniqueViolation(err) {
		return apperrors.Conflict("audit template " + t.Name + " already exists")
	}
	if err != nil {
		return apperrors.Internal("failed to create audit template", err)
	}
	return nil
}

// Get retrieves a template by name
func (r *TemplateRepository) Get(ctx context.Context, name string) (*domain.AuditTemplate, error) {
	t := &domain.AuditTemplate{}
	err := r.db.QueryRow(ctx,
		`SELECT name, control_ids, created_at FROM audit_templates WHERE name = $1`, name,
	).Scan(&t.Name, &t.ControlIDs, &t.CreatedAt)
	if isNoRows(err) {
		return nil, apperrors.NotFound("audit template", name)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get audit template", err)
	}
	return t, nil
}

// List returns every template ordered by name
func (r *TemplateRepository) List(ctx context.Context) ([]*domain.AuditTemplate, error) {
	rows, err := r.db.Query(ctx, `SELECT name, control_ids, created_at FROM audit_templates ORDER BY name`)
	if err != nil {
		return nil, apperrors.Internal("failed to list audit templates", err)
	}
	defer rows.Close()

	out := make([]*domain.AuditTemplate, 0)
	for rows.Next() {
		t := &domain.AuditTemplate{}
		if err := rows.Scan(&t.Name, &t.ControlIDs, &t.CreatedAt); err != nil {
			return nil, apperrors.Internal("failed to scan audit template", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to list audit templates", err)
	}
	return out, nil
}
