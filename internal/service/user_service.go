package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
	"github.com/pesio-ai/be-plt-grc/pkg/password"
)

// ErrSeedAdminProtected is returned for any attempt to delete the built-in administrator.
var ErrSeedAdminProtected = apperrors.Integrity("the built-in administrator cannot be deleted")

type UserService struct {
	userRepo    UserStore
	sessionRepo SessionStore
	log         *logger.Logger

	hashParams *password.Params
	now        func() time.Time
	newID      func() string
}

func NewUserService(userRepo UserStore, sessionRepo SessionStore, log *logger.Logger) *UserService {
	return &UserService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		log:         log,
		hashParams:  password.DefaultParams(),
		now:         utcNow,
		newID:       newUUID,
	}
}

type CreateUserRequest struct {
	Username string
	Email    string
	// Password may be empty, in which case a temporary one is generated.
	Password    string
	Role        domain.Role
	Permissions domain.Permissions
}

type CreateUserResponse struct {
	User *domain.User
	// TemporaryPassword is set only when the request carried no password.
	// It is not stored anywhere and cannot be retrieved again.
	TemporaryPassword string
}

// CreateUser creates a new user
func (s *UserService) CreateUser(ctx context.Context, sess *domain.Session, req *CreateUserRequest) (*CreateUserResponse, error) {
	if err := authorize(s.log, sess, domain.ModuleUsers, domain.ActionWrite); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("username", req.Username).
		Str("actor", sess.ActorID()).
		Msg("Creating user")

	user, err := domain.NewUser(s.newID(), domain.NewUserInput{
		Username:    req.Username,
		Email:       req.Email,
		Role:        req.Role,
		Permissions: req.Permissions,
	}, s.now())
	if err != nil {
		return nil, err
	}

	plain := req.Password
	resp := &CreateUserResponse{User: user}
	if plain == "" {
		plain, err = password.Generate(password.MinTemporaryLength)
		if err != nil {
			return nil, apperrors.Internal("failed to generate password", err)
		}
		user.MustChangePassword = true
		resp.TemporaryPassword = plain
	} else if err := validatePassword(plain); err != nil {
		return nil, err
	}

	user.PasswordHash, err = password.Hash(plain, s.hashParams)
	if err != nil {
		return nil, apperrors.Internal("failed to hash password", err)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		s.log.Error().Err(err).Msg("Failed to create user")
		return nil, err
	}

	s.log.Info().
		Str("user_id", user.ID).
		Bool("temporary_password", resp.TemporaryPassword != "").
		Msg("User created successfully")
	return resp, nil
}

// GetUser retrieves a user by ID. Users may always read their own record.
func (s *UserService) GetUser(ctx context.Context, sess *domain.Session, userID string) (*domain.User, error) {
	if err := requireAuthenticated(sess); err != nil {
		return nil, err
	}
	if sess.ActorID() != userID {
		if err := authorize(s.log, sess, domain.ModuleUsers, domain.ActionRead); err != nil {
			return nil, err
		}
	}
	return s.userRepo.GetByID(ctx, userID)
}

// ListUsers lists every user
func (s *UserService) ListUsers(ctx context.Context, sess *domain.Session) ([]*domain.User, error) {
	if err := authorize(s.log, sess, domain.ModuleUsers, domain.ActionRead); err != nil {
		return nil, err
	}
	return s.userRepo.List(ctx)
}

type UpdateUserRequest struct {
	ID    string
	Email *string
	Role  *domain.Role
	// Permissions replaces the stored map when non-nil.
	Permissions domain.Permissions
}

// UpdateUser updates a user's email, role and permissions
func (s *UserService) UpdateUser(ctx context.Context, sess *domain.Session, req *UpdateUserRequest) (*domain.User, error) {
	if err := authorize(s.log, sess, domain.ModuleUsers, domain.ActionWrite); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", req.ID).
		Str("actor", sess.ActorID()).
		Msg("Updating user")

	user, err := s.userRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" {
			return nil, apperrors.Validation("email is required")
		}
		if !strings.Contains(email, "@") {
			return nil, apperrors.Validation(fmt.Sprintf("invalid email %q", email))
		}
		user.Email = email
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, apperrors.Validation(fmt.Sprintf("invalid role %q", *req.Role))
		}
		if user.IsSeedAdmin() && *req.Role != domain.RoleAdmin {
			return nil, apperrors.Integrity("the built-in administrator must keep the admin role")
		}
		user.Role = *req.Role
	}
	if req.Permissions != nil {
		if err := req.Permissions.Validate(); err != nil {
			return nil, err
		}
		user.Permissions = req.Permissions.Clone()
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.log.Error().Err(err).Msg("Failed to update user")
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("User updated successfully")
	return user, nil
}

// DeleteUser removes a user and its sessions. The built-in administrator is
// refused for every actor before any permission check.
func (s *UserService) DeleteUser(ctx context.Context, sess *domain.Session, userID string) error {
	if userID == domain.SeedAdminID {
		s.log.Warn().
			Str("user_id", userID).
			Str("actor", sess.ActorID()).
			Msg("Refused to delete built-in administrator")
		return ErrSeedAdminProtected
	}
	if err := authorize(s.log, sess, domain.ModuleUsers, domain.ActionWrite); err != nil {
		return err
	}

	s.log.Info().
		Str("user_id", userID).
		Str("actor", sess.ActorID()).
		Msg("Deleting user")

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		s.log.Error().Err(err).Msg("Failed to delete user")
		return err
	}

	s.log.Info().Str("user_id", userID).Msg("User deleted successfully")
	return nil
}

// ResetPassword issues a new temporary password and signs the user out everywhere
func (s *UserService) ResetPassword(ctx context.Context, sess *domain.Session, userID string) (string, error) {
	if err := authorize(s.log, sess, domain.ModuleUsers, domain.ActionWrite); err != nil {
		return "", err
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return "", err
	}

	plain, err := password.Generate(password.MinTemporaryLength)
	if err != nil {
		return "", apperrors.Internal("failed to generate password", err)
	}
	hash, err := password.Hash(plain, s.hashParams)
	if err != nil {
		return "", apperrors.Internal("failed to hash password", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hash, true); err != nil {
		return "", err
	}
	if err := s.sessionRepo.DeactivateUserSessions(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to revoke sessions after password reset")
	}

	s.log.Info().Str("user_id", userID).Str("actor", sess.ActorID()).Msg("Password reset")
	return plain, nil
}

// EnsureSeedAdmin creates the built-in administrator when no users exist.
// With an empty adminPassword a temporary one is generated and returned.
func (s *UserService) EnsureSeedAdmin(ctx context.Context, adminPassword string) (created bool, generated string, err error) {
	n, err := s.userRepo.Count(ctx)
	if err != nil {
		return false, "", err
	}
	if n > 0 {
		return false, "", nil
	}

	admin := domain.NewSeedAdmin(s.now())
	plain := adminPassword
	if plain == "" {
		if plain, err = password.Generate(password.MinTemporaryLength + 4); err != nil {
			return false, "", apperrors.Internal("failed to generate password", err)
		}
		admin.MustChangePassword = true
		generated = plain
	}
	if admin.PasswordHash, err = password.Hash(plain, s.hashParams); err != nil {
		return false, "", apperrors.Internal("failed to hash password", err)
	}

	if err := s.userRepo.Create(ctx, admin); err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeConflict) {
			return false, "", nil
		}
		return false, "", err
	}

	s.log.Info().Str("user_id", admin.ID).Msg("Seed administrator created")
	return true, generated, nil
}

const minPasswordLength = 8

func validatePassword(p string) error {
	if len(p) < minPasswordLength {
		return apperrors.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}
