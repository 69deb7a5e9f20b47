package service

import (
	"context"
	"fmt"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
)

type RoleService struct {
	userRepo       UserStore
	permissionRepo PermissionStore
	log            *logger.Logger
}

func NewRoleService(userRepo UserStore, permissionRepo PermissionStore, log *logger.Logger) *RoleService {
	return &RoleService{
		userRepo:       userRepo,
		permissionRepo: permissionRepo,
		log:            log,
	}
}

type PermissionDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// CheckPermission reports whether the session's user holds action on module.
// Unknown modules and actions are reported as validation errors.
func (s *RoleService) CheckPermission(sess *domain.Session, module domain.Module, action domain.Action) (*PermissionDecision, error) {
	err := domain.CheckPermission(sess.Actor(), module, action)
	switch {
	case err == nil:
		return &PermissionDecision{
			Allowed: true,
			Reason:  fmt.Sprintf("User has permission %s:%s", module, action),
		}, nil
	case apperrors.HasCode(err, apperrors.ErrCodeValidation):
		s.log.Warn().Err(err).Str("actor", sess.ActorID()).Msg("Permission lookup with unknown module or action")
		return nil, err
	default:
		return &PermissionDecision{
			Allowed: false,
			Reason:  fmt.Sprintf("User does not have permission %s:%s", module, action),
		}, nil
	}
}

// EffectivePermissions returns the acting user's full capability grid
func (s *RoleService) EffectivePermissions(sess *domain.Session) (domain.Permissions, error) {
	if err := requireAuthenticated(sess); err != nil {
		return nil, err
	}
	return domain.EffectivePermissions(sess.Actor()), nil
}

type UserPermissions struct {
	UserID    string             `json:"userId"`
	Role      domain.Role        `json:"role"`
	Stored    domain.Permissions `json:"stored"`
	Effective domain.Permissions `json:"effective"`
}

// GetUserPermissions returns another user's stored map next to what it grants
func (s *RoleService) GetUserPermissions(ctx context.Context, sess *domain.Session, userID string) (*UserPermissions, error) {
	if err := requireAuthenticated(sess); err != nil {
		return nil, err
	}
	if sess.ActorID() != userID {
		if err := authorize(s.log, sess, domain.ModuleUsers, domain.ActionRead); err != nil {
			return nil, err
		}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	stored, err := s.permissionRepo.GetUserPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Permissions = stored

	return &UserPermissions{
		UserID:    user.ID,
		Role:      user.Role,
		Stored:    stored,
		Effective: domain.EffectivePermissions(user),
	}, nil
}
