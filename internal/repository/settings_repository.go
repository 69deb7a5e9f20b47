package repository

import (
	"context"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
)

// SettingsRepository stores the singleton settings row
type SettingsRepository struct {
	db DBTX
}

func NewSettingsRepository(db DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get loads the settings record
func (r *SettingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	s := &domain.Settings{}
	var provider string
	query := `
		SELECT id, client_logo, auditor_logo, primary_color, secondary_color, company_name, ai_provider, updated_at
		FROM settings
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, domain.SettingsID).Scan(
		&s.ID, &s.ClientLogo, &s.AuditorLogo, &s.PrimaryColor, &s.SecondaryColor,
		&s.CompanyName, &provider, &s.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, apperrors.NotFound("settings", domain.SettingsID)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get settings", err)
	}
	s.AIProvider = domain.AIProvider(provider)
	return s, nil
}

// Save upserts the settings record
func (r *SettingsRepository) Save(ctx context.Context, s *domain.Settings) error {
	query := `
		INSERT INTO settings (id, client_logo, auditor_logo, primary_color, secondary_color, company_name, ai_provider, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET client_logo = EXCLUDED.client_logo,
		    auditor_logo = EXCLUDED.auditor_logo,
		    primary_color = EXCLUDED.primary_color,
		    secondary_color = EXCLUDED.secondary_color,
		    company_name = EXCLUDED.company_name,
		    ai_provider = EXCLUDED.ai_provider,
		    updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query,
		domain.SettingsID, s.ClientLogo, s.AuditorLogo, s.PrimaryColor, s.SecondaryColor,
		s.CompanyName, string(s.AIProvider), s.UpdatedAt,
	)
	if err != nil {
		return apperrors.Internal("failed to save settings", err)
	}
	return nil
}

// CompanyRepository stores companies
type CompanyRepository struct {
	db DBTX
}

func NewCompanyRepository(db DBTX) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// Create inserts a company
func (r *CompanyRepository) Create(ctx context.Context, c *domain.Company) error {
	_, err := r.db.Exec(ctx, `INSERT INTO companies (id, name, created_at) VALUES ($1, $2, $3)`, c.ID, c.Name, c.CreatedAt)
	if isUniqueViolation(err) {
		return apperrors.Conflict("company already exists")
	}
	if err != nil {
		return apperrors.Internal("failed to create company", err)
	}
	return nil
}

// Get retrieves a company by ID
func (r *CompanyRepository) Get(ctx context.Context, id string) (*domain.Company, error) {
	c := &domain.Company{}
	err := r.db.QueryRow(ctx, `SELECT id, name, created_at FROM companies WHERE id = $1`, id).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if isNoRows(err) {
		return nil, apperrors.NotFound("company", id)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get company", err)
	}
	return c, nil
}

// List returns all companies ordered by name
func (r *CompanyRepository) List(ctx context.Context) ([]*domain.Company, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM companies ORDER BY name`)
	if err != nil {
		return nil, apperrors.Internal("failed to list companies", err)
	}
	defer rows.Close()

	out := make([]*domain.Company, 0)
	for rows.Next() {
		c := &domain.Company{}
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, apperrors.Internal("failed to scan company", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to list companies", err)
	}
	return out, nil
}
