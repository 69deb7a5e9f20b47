package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
	jwtpkg "github.com/pesio-ai/be-plt-grc/pkg/jwt"
	"github.com/pesio-ai/be-plt-grc/pkg/password"
)

var (
	ErrInvalidCredentials = apperrors.Unauthorized("invalid credentials")
	ErrSessionNotFound    = apperrors.Unauthorized("session not found or expired")
	ErrInvalidToken       = apperrors.Unauthorized("invalid token")
)

type AuthService struct {
	userRepo    UserStore
	sessionRepo SessionStore
	companyRepo CompanyStore
	jwtManager  *jwtpkg.Manager
	log         *logger.Logger

	hashParams *password.Params
	now        func() time.Time
	newID      func() string
}

func NewAuthService(
	userRepo UserStore,
	sessionRepo SessionStore,
	companyRepo CompanyStore,
	jwtManager *jwtpkg.Manager,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		companyRepo: companyRepo,
		jwtManager:  jwtManager,
		log:         log,
		hashParams:  password.DefaultParams(),
		now:         utcNow,
		newID:       newUUID,
	}
}

type LoginRequest struct {
	// Login is a username or an email address.
	Login     string
	Password  string
	CompanyID string
}

type LoginResponse struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	User         *domain.User
	Session      *domain.SessionRecord
}

// Login authenticates a user and creates a session
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	login := strings.TrimSpace(req.Login)
	s.log.Info().Str("login", login).Msg("Login attempt")

	if login == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByLogin(ctx, login)
	if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		s.log.Warn().Str("login", login).Msg("User not found")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	valid, err := password.Verify(req.Password, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("Password verification failed")
		return nil, ErrInvalidCredentials
	}
	if !valid {
		s.log.Warn().Str("user_id", user.ID).Msg("Invalid password")
		return nil, ErrInvalidCredentials
	}

	if password.NeedsRehash(user.PasswordHash, s.hashParams) {
		if hash, err := password.Hash(req.Password, s.hashParams); err == nil {
			if err := s.userRepo.UpdatePassword(ctx, user.ID, hash, user.MustChangePassword); err != nil {
				s.log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to upgrade password hash")
			}
		}
	}

	companyID := req.CompanyID
	if companyID == "" {
		companyID = domain.DefaultCompanyID
	} else if _, err := s.companyRepo.Get(ctx, companyID); err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
			return nil, apperrors.Validation("unknown company " + companyID)
		}
		return nil, err
	}

	now := s.now()
	session := &domain.SessionRecord{
		ID:             s.newID(),
		UserID:         user.ID,
		CompanyID:      companyID,
		CreatedAt:      now,
		LastActivityAt: now,
		IsActive:       true,
	}

	tokenPair, err := s.jwtManager.GenerateTokenPair(user.ID, companyID, session.ID, string(user.Role))
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to generate tokens")
		return nil, apperrors.Internal("token generation failed", err)
	}
	session.ExpiresAt = tokenPair.RefreshExpiresAt
	session.RefreshTokenExpiresAt = tokenPair.RefreshExpiresAt

	if err := s.sessionRepo.Create(ctx, session, tokenPair.RefreshToken); err != nil {
		s.log.Error().Err(err).Msg("Failed to create session")
		return nil, err
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("session_id", session.ID).
		Msg("Login successful")

	return &LoginResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
		User:         user,
		Session:      session,
	}, nil
}

// Authenticate turns an access token into the acting session. The user is
// reloaded so role and permission changes apply immediately.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.Session, error) {
	claims, err := s.jwtManager.ValidateAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, jwtpkg.ErrTokenExpired) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "token expired")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid token")
	}

	record, err := s.sessionRepo.GetByID(ctx, claims.SessionID)
	if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !record.Usable(now) || record.UserID != claims.UserID {
		return nil, ErrSessionNotFound
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	_ = s.sessionRepo.UpdateLastActivity(ctx, record.ID, now)

	return &domain.Session{
		ID:        record.ID,
		User:      user,
		CompanyID: record.CompanyID,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// RefreshToken rotates the token pair of a live session
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*jwtpkg.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	valid, err := s.sessionRepo.ValidateRefreshToken(ctx, claims.SessionID, refreshToken, s.now())
	if err != nil || !valid {
		s.log.Warn().Str("session_id", claims.SessionID).Msg("Refresh token rejected")
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	tokenPair, err := s.jwtManager.GenerateTokenPair(user.ID, claims.CompanyID, claims.SessionID, string(user.Role))
	if err != nil {
		return nil, apperrors.Internal("token generation failed", err)
	}
	if err := s.sessionRepo.RotateRefreshToken(ctx, claims.SessionID, tokenPair.RefreshToken, tokenPair.RefreshExpiresAt); err != nil {
		return nil, err
	}

	return tokenPair, nil
}

// Logout deactivates a session
func (s *AuthService) Logout(ctx context.Context, sess *domain.Session) error {
	if err := requireAuthenticated(sess); err != nil {
		return err
	}
	if err := s.sessionRepo.Deactivate(ctx, sess.ID); err != nil {
		return err
	}

	s.log.Info().Str("session_id", sess.ID).Msg("Logout successful")
	return nil
}

// ChangePassword changes the acting user's password and ends all their sessions
func (s *AuthService) ChangePassword(ctx context.Context, sess *domain.Session, currentPassword, newPassword string) error {
	if err := requireAuthenticated(sess); err != nil {
		return err
	}
	user, err := s.userRepo.GetByID(ctx, sess.ActorID())
	if err != nil {
		return err
	}

	valid, err := password.Verify(currentPassword, user.PasswordHash)
	if err != nil || !valid {
		return ErrInvalidCredentials
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if newPassword == currentPassword {
		return apperrors.Validation("new password must differ from the current one")
	}

	newHash, err := password.Hash(newPassword, s.hashParams)
	if err != nil {
		return apperrors.Internal("failed to hash password", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, newHash, false); err != nil {
		return err
	}

	if err := s.sessionRepo.DeactivateUserSessions(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to revoke sessions after password change")
	}

	s.log.Info().Str("user_id", user.ID).Msg("Password changed successfully")
	return nil
}

// PurgeExpiredSessions deletes sessions past their expiry
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessionRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info().Int64("count", n).Msg("Expired sessions purged")
	}
	return n, nil
}
