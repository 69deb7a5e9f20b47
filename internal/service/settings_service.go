package service

import (
	"context"
	"strings"
	"time"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
)

type SettingsService struct {
	settingsRepo SettingsStore
	secrets      SecretStore
	log          *logger.Logger
	now          func() time.Time
}

func NewSettingsService(settingsRepo SettingsStore, secrets SecretStore, log *logger.Logger) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
		secrets:      secrets,
		log:          log,
		now:          utcNow,
	}
}

// GetSettings returns the settings record. The AI key is never included,
// only whether one is configured.
func (s *SettingsService) GetSettings(ctx context.Context, sess *domain.Session) (*domain.Settings, error) {
	if err := requireAuthenticated(sess); err != nil {
		return nil, err
	}
	return s.load(ctx)
}

func (s *SettingsService) load(ctx context.Context) (*domain.Settings, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		settings = domain.DefaultSettings(s.now())
	} else if err != nil {
		return nil, err
	}
	settings.AIKeyConfigured = s.keyConfigured(ctx, settings.AIProvider)
	return settings, nil
}

func (s *SettingsService) keyConfigured(ctx context.Context, provider domain.AIProvider) bool {
	if s.secrets == nil || provider == "" {
		return false
	}
	key, err := s.secrets.GetAIKey(ctx, provider)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to check AI key")
		return false
	}
	return key != ""
}

// UpdateSettings applies a partial update
func (s *SettingsService) UpdateSettings(ctx context.Context, sess *domain.Session, u domain.SettingsUpdate) (*domain.Settings, error) {
	if err := requireAdmin(s.log, sess); err != nil {
		return nil, err
	}
	cur, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	next, err := domain.ApplySettingsUpdate(cur, u, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.settingsRepo.Save(ctx, next); err != nil {
		s.log.Error().Err(err).Msg("Failed to save settings")
		return nil, err
	}
	next.AIKeyConfigured = s.keyConfigured(ctx, next.AIProvider)

	s.log.Info().Str("actor", sess.ActorID()).Msg("Settings updated")
	return next, nil
}

// SetAIKey stores the key for the configured provider in the secret store
func (s *SettingsService) SetAIKey(ctx context.Context, sess *domain.Session, key string) error {
	if err := requireAdmin(s.log, sess); err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return apperrors.Validation("api key is required")
	}
	if s.secrets == nil {
		return apperrors.Unavailable("secret store is not configured", nil)
	}
	cur, err := s.load(ctx)
	if err != nil {
		return err
	}
	if cur.AIProvider == "" {
		return apperrors.Validation("select an AI provider before setting its key")
	}
	if err := s.secrets.PutAIKey(ctx, cur.AIProvider, key); err != nil {
		s.log.Error().Err(err).Msg("Failed to store AI key")
		return err
	}
	s.log.Info().Str("provider", string(cur.AIProvider)).Str("actor", sess.ActorID()).Msg("AI key stored")
	return nil
}

// ClearAIKey removes the stored key
func (s *SettingsService) ClearAIKey(ctx context.Context, sess *domain.Session) error {
	if err := requireAdmin(s.log, sess); err != nil {
		return err
	}
	if s.secrets == nil {
		return nil
	}
	if err := s.secrets.DeleteAIKey(ctx); err != nil {
		return err
	}
	s.log.Info().Str("actor", sess.ActorID()).Msg("AI key cleared")
	return nil
}

type CompanyService struct {
	companyRepo CompanyStore
	log         *logger.Logger
	now         func() time.Time
	newID       func() string
}

func NewCompanyService(companyRepo CompanyStore, log *logger.Logger) *CompanyService {
	return &CompanyService{companyRepo: companyRepo, log: log, now: utcNow, newID: newUUID}
}

// ListCompanies lists companies by name
func (s *CompanyService) ListCompanies(ctx context.Context, sess *domain.Session) ([]*domain.Company, error) {
	if err := requireAuthenticated(sess); err != nil {
		return nil, err
	}
	return s.companyRepo.List(ctx)
}

// CreateCompany creates a company
func (s *CompanyService) CreateCompany(ctx context.Context, sess *domain.Session, name string) (*domain.Company, error) {
	if err := requireAdmin(s.log, sess); err != nil {
		return nil, err
	}
	c, err := domain.NewCompany(s.newID(), name, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.companyRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info().Str("company_id", c.ID).Str("name", c.Name).Msg("Company created")
	return c, nil
}

type BootstrapResult struct {
	AdminCreated bool
	// GeneratedPassword is the seed administrator's one-time password when
	// none was configured.
	GeneratedPassword string
	CompanyCreated    bool
	SettingsCreated   bool
}

// BootstrapService performs first initialization. Running it again changes nothing.
type BootstrapService struct {
	users        *UserService
	companyRepo  CompanyStore
	settingsRepo SettingsStore
	log          *logger.Logger
	now          func() time.Time

	defaultProvider domain.AIProvider
}

func NewBootstrapService(users *UserService, companyRepo CompanyStore, settingsRepo SettingsStore, log *logger.Logger) *BootstrapService {
	return &BootstrapService{
		users:        users,
		companyRepo:  companyRepo,
		settingsRepo: settingsRepo,
		log:          log,
		now:          utcNow,
	}
}

// WithDefaultProvider preselects the AI provider in newly created settings
func (s *BootstrapService) WithDefaultProvider(p domain.AIProvider) *BootstrapService {
	s.defaultProvider = p
	return s
}

// Run creates the seed administrator, the default company and default settings when missing
func (s *BootstrapService) Run(ctx context.Context, adminPassword string) (*BootstrapResult, error) {
	res := &BootstrapResult{}
	var err error

	res.AdminCreated, res.GeneratedPassword, err = s.users.EnsureSeedAdmin(ctx, adminPassword)
	if err != nil {
		return nil, err
	}

	if _, err := s.companyRepo.Get(ctx, domain.DefaultCompanyID); apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		if err := s.companyRepo.Create(ctx, domain.DefaultCompany(s.now())); err != nil && !apperrors.HasCode(err, apperrors.ErrCodeConflict) {
			return nil, err
		}
		res.CompanyCreated = true
	} else if err != nil {
		return nil, err
	}

	if _, err := s.settingsRepo.Get(ctx); apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		st := domain.DefaultSettings(s.now())
		if s.defaultProvider != "" {
			st.AIProvider = s.defaultProvider
		}
		if err := s.settingsRepo.Save(ctx, st); err != nil {
			return nil, err
		}
		res.SettingsCreated = true
	} else if err != nil {
		return nil, err
	}

	s.log.Info().
		Bool("admin_created", res.AdminCreated).
		Bool("company_created", res.CompanyCreated).
		Bool("settings_created", res.SettingsCreated).
		Msg("Bootstrap complete")
	return res, nil
}
