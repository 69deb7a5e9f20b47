package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/pkg/jwt"
)

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[u.ID]; ok {
		return apperrors.Conflict("user already exists")
	}
	for _, existing := range r.s.users {
		if existing.Username == u.Username || strings.EqualFold(existing.Email, u.Email) {
			return apperrors.Conflict("username or email already in use")
		}
	}
	r.s.users[u.ID] = cloneUser(u)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	return cloneUser(u), nil
}

func (r *UserRepository) GetByLogin(_ context.Context, login string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Username == login || strings.EqualFold(u.Email, login) {
			return cloneUser(u), nil
		}
	}
	return nil, apperrors.NotFound("user", login)
}

func (r *UserRepository) List(_ context.Context) ([]*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

func (r *UserRepository) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.users), nil
}

func (r *UserRepository) Update(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.users[u.ID]
	if !ok {
		return apperrors.NotFound("user", u.ID)
	}
	for id, existing := range r.s.users {
		if id != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return apperrors.Conflict("email already in use")
		}
	}
	next := cloneUser(u)
	next.Username = cur.Username
	next.PasswordHash = cur.PasswordHash
	next.CreatedAt = cur.CreatedAt
	r.s.users[u.ID] = next
	return nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id, hash string, mustChange bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return apperrors.NotFound("user", id)
	}
	u.PasswordHash = hash
	u.MustChangePassword = mustChange
	return nil
}

// Delete removes the user and its sessions.
func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return apperrors.NotFound("user", id)
	}
	delete(r.s.users, id)
	for sid, sess := range r.s.sessions {
		if sess.UserID == id {
			delete(r.s.sessions, sid)
		}
	}
	return nil
}

type PermissionRepository struct{ s *Store }

func (r *PermissionRepository) GetUserPermissions(_ context.Context, userID string) (domain.Permissions, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[userID]
	if !ok || u.Permissions == nil {
		return domain.Permissions{}, nil
	}
	return u.Permissions.Clone(), nil
}

type SessionRepository struct{ s *Store }

func (r *SessionRepository) Create(_ context.Context, sess *domain.SessionRecord, refreshToken string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess.RefreshTokenHash = jwt.HashToken(refreshToken)
	c := *sess
	r.s.sessions[sess.ID] = &c
	return nil
}

func (r *SessionRepository) GetByID(_ context.Context, id string) (*domain.SessionRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, apperrors.NotFound("session", id)
	}
	c := *sess
	return &c, nil
}

func (r *SessionRepository) UpdateLastActivity(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if sess, ok := r.s.sessions[id]; ok {
		sess.LastActivityAt = at
	}
	return nil
}

func (r *SessionRepository) RotateRefreshToken(_ context.Context, id, refreshToken string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[id]
	if !ok || !sess.IsActive {
		return apperrors.NotFound("session", id)
	}
	sess.RefreshTokenHash = jwt.HashToken(refreshToken)
	sess.RefreshTokenExpiresAt = expiresAt
	sess.ExpiresAt = expiresAt
	return nil
}

func (r *SessionRepository) Deactivate(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if sess, ok := r.s.sessions[id]; ok {
		sess.IsActive = false
	}
	return nil
}

func (r *SessionRepository) DeactivateUserSessions(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, sess := range r.s.sessions {
		if sess.UserID == userID {
			sess.IsActive = false
		}
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, sess := range r.s.sessions {
		if sess.ExpiresAt.Before(now) {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *SessionRepository) ValidateRefreshToken(_ context.Context, id, refreshToken string, now time.Time) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sess, ok := r.s.sessions[id]
	if !ok || !sess.IsActive || !now.Before(sess.RefreshTokenExpiresAt) {
		return false, nil
	}
	return sess.RefreshTokenHash == jwt.HashToken(refreshToken), nil
}

type CompanyRepository struct{ s *Store }

func (r *CompanyRepository) Create(_ context.Context, c *domain.Company) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.companies[c.ID]; ok {
		return apperrors.Conflict("company already exists")
	}
	cp := *c
	r.s.companies[c.ID] = &cp
	return nil
}

func (r *CompanyRepository) Get(_ context.Context, id string) (*domain.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.companies[id]
	if !ok {
		return nil, apperrors.NotFound("company", id)
	}
	cp := *c
	return &cp, nil
}

func (r *CompanyRepository) List(_ context.Context) ([]*domain.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Company, 0, len(r.s.companies))
	for _, c := range r.s.companies {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type SettingsRepository struct{ s *Store }

func (r *SettingsRepository) Get(_ context.Context) (*domain.Settings, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if r.s.settings == nil {
		return nil, apperrors.NotFound("settings", domain.SettingsID)
	}
	cp := *r.s.settings
	return &cp, nil
}

func (r *SettingsRepository) Save(_ context.Context, st *domain.Settings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *st
	cp.ID = domain.SettingsID
	cp.AIKeyConfigured = false
	r.s.settings = &cp
	return nil
}
