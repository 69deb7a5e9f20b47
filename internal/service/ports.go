package service

import (
	"context"
	"io"
	"time"

	"github.com/pesio-ai/be-plt-grc/internal/domain"
)

// The store interfaces below are satisfied by both the postgres repositories
// and the in-memory store.

type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, user *domain.User) error
	UpdatePassword(ctx context.Context, id, hash string, mustChange bool) error
	Delete(ctx context.Context, id string) error
}

type PermissionStore interface {
	GetUserPermissions(ctx context.Context, userID string) (domain.Permissions, error)
}

type SessionStore interface {
	Create(ctx context.Context, session *domain.SessionRecord, refreshToken string) error
	GetByID(ctx context.Context, sessionID string) (*domain.SessionRecord, error)
	UpdateLastActivity(ctx context.Context, sessionID string, at time.Time) error
	RotateRefreshToken(ctx context.Context, sessionID, refreshToken string, expiresAt time.Time) error
	Deactivate(ctx context.Context, sessionID string) error
	DeactivateUserSessions(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	ValidateRefreshToken(ctx context.Context, sessionID, refreshToken string, now time.Time) (bool, error)
}

type VendorStore interface {
	Create(ctx context.Context, v *domain.Vendor) error
	Get(ctx context.Context, id string) (*domain.Vendor, error)
	List(ctx context.Context, companyID string) ([]*domain.Vendor, error)
	Update(ctx context.Context, v *domain.Vendor) error
	Delete(ctx context.Context, id string) error
	GetAuditResponses(ctx context.Context, vendorID string) ([]domain.AuditResponse, error)
	SaveAuditResponses(ctx context.Context, vendorID string, responses []domain.AuditResponse) error
}

type AuditTemplateStore interface {
	Create(ctx context.Context, t *domain.AuditTemplate) error
	Get(ctx context.Context, name string) (*domain.AuditTemplate, error)
	List(ctx context.Context) ([]*domain.AuditTemplate, error)
}

type ComplianceStore interface {
	InsertControls(ctx context.Context, controls []*domain.ComplianceControl) error
	GetControl(ctx context.Context, id string) (*domain.ComplianceControl, error)
	ListControls(ctx context.Context, companyID, framework string) ([]*domain.ComplianceControl, error)
	UpdateControl(ctx context.Context, c *domain.ComplianceControl, rev *domain.ControlRevision) error
	Revisions(ctx context.Context, controlID string) ([]*domain.ControlRevision, error)
	DeleteFramework(ctx context.Context, companyID, framework string) (int64, error)
}

type VAPTStore interface {
	Create(ctx context.Context, rep *domain.VAPTReport) error
	Get(ctx context.Context, id string) (*domain.VAPTReport, error)
	List(ctx context.Context, companyID string) ([]*domain.VAPTReport, error)
	Update(ctx context.Context, rep *domain.VAPTReport) error
	Delete(ctx context.Context, id string) error
}

type PrivacyStore interface {
	Create(ctx context.Context, rec *domain.PrivacyRecord) error
	Get(ctx context.Context, id string) (*domain.PrivacyRecord, error)
	List(ctx context.Context, companyID string, typ domain.PrivacyType) ([]*domain.PrivacyRecord, error)
	Update(ctx context.Context, rec *domain.PrivacyRecord) error
	Delete(ctx context.Context, id string) error
}

type SettingsStore interface {
	Get(ctx context.Context) (*domain.Settings, error)
	Save(ctx context.Context, s *domain.Settings) error
}

type CompanyStore interface {
	Create(ctx context.Context, c *domain.Company) error
	Get(ctx context.Context, id string) (*domain.Company, error)
	List(ctx context.Context) ([]*domain.Company, error)
}

type EvidenceStore interface {
	Create(ctx context.Context, f *domain.EvidenceFile) error
	Get(ctx context.Context, id string) (*domain.EvidenceFile, error)
	List(ctx context.Context, category, entityID string) ([]*domain.EvidenceFile, error)
	Delete(ctx context.Context, id string) error
}

// BlobStore keeps the bytes behind evidence records.
type BlobStore interface {
	Save(ctx context.Context, category, fileName string, r io.Reader) (path string, size int64, err error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Remove(ctx context.Context, path string) error
}

// SecretStore holds the AI provider key outside the settings record.
type SecretStore interface {
	GetAIKey(ctx context.Context, provider domain.AIProvider) (string, error)
	PutAIKey(ctx context.Context, provider domain.AIProvider, key string) error
	DeleteAIKey(ctx context.Context) error
}

// TextGenerator sends one prompt to a provider.
type TextGenerator interface {
	Generate(ctx context.Context, provider domain.AIProvider, apiKey, prompt string) (string, error)
}

// ControlCatalog lists the built-in framework templates.
type ControlCatalog interface {
	List() []*domain.ControlTemplate
	Get(framework string) (*domain.ControlTemplate, error)
}
