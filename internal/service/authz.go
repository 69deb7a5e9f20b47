package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
)

// authorize gates an operation on the session's capability for module.
func authorize(log *logger.Logger, sess *domain.Session, module domain.Module, action domain.Action) error {
	if err := domain.CheckPermission(sess.Actor(), module, action); err != nil {
		log.Warn().
			Err(err).
			Str("actor", sess.ActorID()).
			Str("module", string(module)).
			Str("action", string(action)).
			Msg("Permission denied")
		return err
	}
	return nil
}

func requireAuthenticated(sess *domain.Session) error {
	if sess.Actor() == nil {
		return apperrors.Unauthorized("authentication required")
	}
	return nil
}

func requireAdmin(log *logger.Logger, sess *domain.Session) error {
	if err := requireAuthenticated(sess); err != nil {
		return err
	}
	if sess.Actor().Role != domain.RoleAdmin {
		log.Warn().Str("actor", sess.ActorID()).Msg("Admin role required")
		return apperrors.Forbidden("admin role is required")
	}
	return nil
}

// companyOf is the company new records are tagged with.
func companyOf(sess *domain.Session) string {
	if sess != nil && sess.CompanyID != "" {
		return sess.CompanyID
	}
	return domain.DefaultCompanyID
}

func newUUID() string { return uuid.New().String() }

func utcNow() time.Time { return time.Now().UTC() }

func errRequiredField(field string) error {
	return apperrors.Validation(field + " is required")
}
