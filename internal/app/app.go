// Package app wires repositories, adapters and services into the transports.
package app

import (
	"github.com/pesio-ai/be-plt-grc/internal/handler"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
	"github.com/pesio-ai/be-plt-grc/internal/repository"
	"github.com/pesio-ai/be-plt-grc/internal/repository/memory"
	"github.com/pesio-ai/be-plt-grc/internal/service"
	jwtpkg "github.com/pesio-ai/be-plt-grc/pkg/jwt"
)

// Repositories is one storage backend
type Repositories struct {
	Users       service.UserStore
	Permissions service.PermissionStore
	Sessions    service.SessionStore
	Companies   service.CompanyStore
	Settings    service.SettingsStore
	Vendors     service.VendorStore
	Templates   service.AuditTemplateStore
	Compliance  service.ComplianceStore
	VAPT        service.VAPTStore
	Privacy     service.PrivacyStore
	Evidence    service.EvidenceStore
}

// PostgresRepositories builds the pgx-backed repositories on db
func PostgresRepositories(db repository.DBTX, log *logger.Logger) Repositories {
	perms := repository.NewPermissionRepository(db, log)
	return Repositories{
		Users:       repository.NewUserRepository(db, perms, log),
		Permissions: perms,
		Sessions:    repository.NewSessionRepository(db, log),
		Companies:   repository.NewCompanyRepository(db),
		Settings:    repository.NewSettingsRepository(db),
		Vendors:     repository.NewVendorRepository(db, log),
		Templates:   repository.NewTemplateRepository(db),
		Compliance:  repository.NewComplianceRepository(db, log),
		VAPT:        repository.NewVAPTRepository(db),
		Privacy:     repository.NewPrivacyRepository(db),
		Evidence:    repository.NewEvidenceRepository(db),
	}
}

// MemoryRepositories exposes an in-process store
func MemoryRepositories(s *memory.Store) Repositories {
	return Repositories{
		Users:       s.Users(),
		Permissions: s.Permissions(),
		Sessions:    s.Sessions(),
		Companies:   s.Companies(),
		Settings:    s.Settings(),
		Vendors:     s.Vendors(),
		Templates:   s.Templates(),
		Compliance:  s.Compliance(),
		VAPT:        s.VAPT(),
		Privacy:     s.Privacy(),
		Evidence:    s.Evidence(),
	}
}

// Adapters are the non-storage dependencies of the services.
type Adapters struct {
	JWT       *jwtpkg.Manager
	Secrets   service.SecretStore
	Generator service.TextGenerator
	Catalog   service.ControlCatalog
	Blobs     service.BlobStore
}

// App holds the wired services.
type App struct {
	Services  *handler.Services
	Bootstrap *service.BootstrapService
	Assist    *service.AssistService
}

// New wires every service
func New(repos Repositories, ad Adapters, log *logger.Logger) *App {
	users := service.NewUserService(repos.Users, repos.Sessions, log)
	evidence := service.NewEvidenceService(repos.Evidence, ad.Blobs, log)
	assist := service.NewAssistService(repos.Settings, ad.Secrets, ad.Generator, log)

	return &App{
		Services: &handler.Services{
			Auth:       service.NewAuthService(repos.Users, repos.Sessions, repos.Companies, ad.JWT, log),
			Users:      users,
			Roles:      service.NewRoleService(repos.Users, repos.Permissions, log),
			Vendors:    service.NewVendorService(repos.Vendors, repos.Templates, evidence, assist, log),
			Templates:  service.NewTemplateService(repos.Templates, log),
			Compliance: service.NewComplianceService(repos.Compliance, ad.Catalog, log),
			VAPT:       service.NewVAPTService(repos.VAPT, assist, log),
			Privacy:    service.NewPrivacyService(repos.Privacy, log),
			Settings:   service.NewSettingsService(repos.Settings, ad.Secrets, log),
			Companies:  service.NewCompanyService(repos.Companies, log),
			Evidence:   evidence,
		},
		Bootstrap: service.NewBootstrapService(users, repos.Companies, repos.Settings, log),
		Assist:    assist,
	}
}
