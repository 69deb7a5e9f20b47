// Command bootstrap seeds a development database with sample GRC data.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/app"
	"github.com/pesio-ai/be-plt-grc/internal/config"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/evidence"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
	"github.com/pesio-ai/be-plt-grc/internal/repository"
	"github.com/pesio-ai/be-plt-grc/internal/service"
	"github.com/pesio-ai/be-plt-grc/internal/templates"
	jwtpkg "github.com/pesio-ai/be-plt-grc/pkg/jwt"
)

const devAdminPassword = "Admin123!dev"

type devUser struct {
	username string
	email    string
	password string
	role     domain.Role
}

var devUsers = []devUser{
	{username: "analyst", email: "analyst@test.com", password: "Analyst123!", role: domain.RoleAnalyst},
	{username: "auditor", email: "auditor@test.com", password: "Auditor123!", role: domain.RoleAuditor},
	{username: "viewer", email: "viewer@test.com", password: "Viewer123!", role: domain.RoleViewer},
}

func main() {
	log := logger.New(logger.Config{Level: "info", ServiceName: "grc-bootstrap", Pretty: true})
	if err := run(context.Background(), log); err != nil {
		log.Error().Err(err).Msg("Bootstrap failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pool, err := repository.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	if _, err := repository.Migrate(ctx, pool, log); err != nil {
		return err
	}

	jwtManager, err := jwtpkg.NewManager("development-only-secret-32-bytes!", cfg.JWT.Issuer, time.Hour, time.Hour)
	if err != nil {
		return err
	}
	blobs, err := evidence.NewFileStore(cfg.Evidence.Dir, cfg.Evidence.MaxBytes)
	if err != nil {
		return err
	}
	a := app.New(app.PostgresRepositories(pool, log), app.Adapters{
		JWT:     jwtManager,
		Catalog: templates.MustBuiltin(),
		Blobs:   blobs,
	}, log)

	if _, err := a.Bootstrap.Run(ctx, devAdminPassword); err != nil {
		return err
	}
	login, err := a.Services.Auth.Login(ctx, &service.LoginRequest{Login: "admin", Password: devAdminPassword})
	if err != nil {
		return fmt.Errorf("admin login failed (was the admin password changed?): %w", err)
	}
	sess, err := a.Services.Auth.Authenticate(ctx, login.AccessToken)
	if err != nil {
		return err
	}

	for _, u := range devUsers {
		_, err := a.Services.Users.CreateUser(ctx, sess, &service.CreateUserRequest{
			Username: u.username,
			Email:    u.email,
			Password: u.password,
			Role:     u.role,
		})
		if err != nil && !apperrors.HasCode(err, apperrors.ErrCodeConflict) {
			return fmt.Errorf("create user %s: %w", u.username, err)
		}
		log.Info().Str("username", u.username).Str("role", string(u.role)).Msg("User ready")
	}

	vendors, err := a.Services.Vendors.ListVendors(ctx, sess)
	if err != nil {
		return err
	}
	if len(vendors) == 0 {
		samples := []service.CreateVendorRequest{
			{Name: "Acme Cloud Hosting", Responses: map[string]string{"iso_certified": "Yes", "encryption": "Yes", "bc_plan": "No"}},
			{Name: "Globex Payroll", Responses: map[string]string{"iso_certified": "No", "gdpr_compliance": "No", "backup_frequency": "No regular backups"}},
		}
		for i := range samples {
			v, err := a.Services.Vendors.CreateVendor(ctx, sess, &samples[i])
			if err != nil {
				return err
			}
			log.Info().Str("vendor", v.Name).Int("risk_score", v.RiskScore).Msg("Vendor created")
		}
	}

	if _, err := a.Services.Compliance.LoadFramework(ctx, sess, "ISO 27001:2022"); err != nil && !apperrors.HasCode(err, apperrors.ErrCodeConflict) {
		return err
	}

	log.Info().Msg("=== Bootstrap Complete ===")
	log.Info().Str("login", "admin").Str("password", devAdminPassword).Msg("Admin credentials")
	for _, u := range devUsers {
		log.Info().Str("login", u.username).Str("password", u.password).Msg("User credentials")
	}
	return nil
}
