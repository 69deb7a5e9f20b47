package repository

import (
	"context"
	"time"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
	"github.com/pesio-ai/be-plt-grc/pkg/jwt"
)

type SessionRepository struct {
	db  DBTX
	log *logger.Logger
}

func NewSessionRepository(db DBTX, log *logger.Logger) *SessionRepository {
	return &SessionRepository{
		db:  db,
		log: log,
	}
}

// Create creates a new session, storing only the refresh token hash
func (r *SessionRepository) Create(ctx context.Context, session *domain.SessionRecord, refreshToken string) error {
	session.RefreshTokenHash = jwt.HashToken(refreshToken)

	query := `
		INSERT INTO sessions (
			id, user_id, company_id, created_at, expires_at, last_activity_at,
			is_active, refresh_token_hash, refresh_token_expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		session.ID, session.UserID, session.CompanyID, session.CreatedAt, session.ExpiresAt,
		session.LastActivityAt, session.IsActive, session.RefreshTokenHash, session.RefreshTokenExpiresAt,
	)
	if err != nil {
		return apperrors.Internal("failed to create session", err)
	}
	return nil
}

// GetByID retrieves a session by ID
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	s := &domain.SessionRecord{}

	query := `
		SELECT id, user_id, company_id, created_at, expires_at, last_activity_at,
		       is_active, refresh_token_hash, refresh_token_expires_at
		FROM sessions
		WHERE id = $1
	`

	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&s.ID, &s.UserID, &s.CompanyID, &s.CreatedAt, &s.ExpiresAt, &s.LastActivityAt,
		&s.IsActive, &s.RefreshTokenHash, &s.RefreshTokenExpiresAt,
	)
	if isNoRows(err) {
		return nil, apperrors.NotFound("session", sessionID)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get session", err)
	}
	return s, nil
}

// UpdateLastActivity updates the last activity timestamp
func (r *SessionRepository) UpdateLastActivity(ctx context.Context, sessionID string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE sessions SET last_activity_at = $1 WHERE id = $2`, at, sessionID)
	if err != nil {
		return apperrors.Internal("failed to update last activity", err)
	}
	return nil
}

// RotateRefreshToken replaces the refresh token hash and extends the session
func (r *SessionRepository) RotateRefreshToken(ctx context.Context, sessionID, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE sessions
		SET refresh_token_hash = $2, refresh_token_expires_at = $3, expires_at = $3
		WHERE id = $1 AND is_active = true
	`
	tag, err := r.db.Exec(ctx, query, sessionID, jwt.HashToken(refreshToken), expiresAt)
	if err != nil {
		return apperrors.Internal("failed to rotate refresh token", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("session", sessionID)
	}
	return nil
}

// Deactivate deactivates a session
func (r *SessionRepository) Deactivate(ctx context.Context, sessionID string) error {
	_, err := r.db.Exec(ctx, `UPDATE sessions SET is_active = false WHERE id = $1`, sessionID)
	if err != nil {
		return apperrors.Internal("failed to deactivate session", err)
	}
	return nil
}

// DeactivateUserSessions deactivates all sessions for a user
func (r *SessionRepository) DeactivateUserSessions(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `UPDATE sessions SET is_active = false WHERE user_id = $1 AND is_active = true`, userID)
	if err != nil {
		return apperrors.Internal("failed to deactivate user sessions", err)
	}
	return nil
}

// DeleteExpired deletes sessions that expired before now
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, apperrors.Internal("failed to delete expired sessions", err)
	}
	return tag.RowsAffected(), nil
}

// ValidateRefreshToken checks if a refresh token is valid for a session
func (r *SessionRepository) ValidateRefreshToken(ctx context.Context, sessionID, refreshToken string, now time.Time) (bool, error) {
	s, err := r.GetByID(ctx, sessionID)
	if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return refreshTokenMatches(s, refreshToken, now), nil
}

func refreshTokenMatches(s *domain.SessionRecord, refreshToken string, now time.Time) bool {
	if !s.IsActive || !now.Before(s.RefreshTokenExpiresAt) {
		return false
	}
	return s.RefreshTokenHash == jwt.HashToken(refreshToken)
}
