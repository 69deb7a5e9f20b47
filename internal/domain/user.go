package domain

import (
	"strings"
	"time"
)

// SeedAdminID identifies the built-in administrator created at first init.
// It can never be deleted.
const SeedAdminID = "admin-001"

// Role is a user's coarse role. Admin short-circuits every permission lookup.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleAuditor Role = "auditor"
	RoleAnalyst Role = "analyst"
	RoleViewer  Role = "viewer"
)

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAuditor, RoleAnalyst, RoleViewer:
		return true
	}
	return false
}

// User is an application account.
type User struct {
	ID                 string      `json:"id"`
	Username           string      `json:"username"`
	Email              string      `json:"email"`
	PasswordHash       string      `json:"-"`
	Role               Role        `json:"role"`
	Permissions        Permissions `json:"permissions"`
	MustChangePassword bool        `json:"mustChangePassword"`
	CreatedAt          time.Time   `json:"createdAt"`
}

// IsSeedAdmin reports whether u is the protected built-in administrator.
func (u *User) IsSeedAdmin() bool {
	return u != nil && u.ID == SeedAdminID
}

// NewUserInput carries the caller-supplied fields for a new user.
// Nil Permissions and an empty Role select the defaults.
type NewUserInput struct {
	Username    string
	Email       string
	Role        Role
	Permissions Permissions
}

// NewUser validates input and applies creation defaults. The password hash is
// set by the caller, which owns credential handling.
func NewUser(id string, in NewUserInput, now time.Time) (*User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" {
		return nil, errRequired("username")
	}
	if email == "" {
		return nil, errRequired("email")
	}
	if !strings.Contains(email, "@") {
		return nil, errInvalid("email", email)
	}

	role := in.Role
	if role == "" {
		role = RoleViewer
	}
	if !role.Valid() {
		return nil, errInvalid("role", string(role))
	}

	perms := in.Permissions
	if perms == nil {
		perms = DefaultPermissions()
	} else {
		if err := perms.Validate(); err != nil {
			return nil, err
		}
		perms = perms.Clone()
	}

	return &User{
		ID:          id,
		Username:    username,
		Email:       email,
		Role:        role,
		Permissions: perms,
		CreatedAt:   now,
	}, nil
}

// NewSeedAdmin builds the built-in administrator record.
func NewSeedAdmin(now time.Time) *User {
	return &User{
		ID:          SeedAdminID,
		Username:    "admin",
		Email:       "admin@grc.local",
		Role:        RoleAdmin,
		Permissions: FullPermissions(),
		CreatedAt:   now,
	}
}

// Session is the authenticated actor passed explicitly into every operation.
type Session struct {
	ID        string
	User      *User
	CompanyID string
	ExpiresAt time.Time
}

// Actor returns the session's user, or nil for an unauthenticated session.
func (s *Session) Actor() *User {
	if s == nil {
		return nil
	}
	return s.User
}

// ActorID returns the acting user's id, or "anonymous".
func (s *Session) ActorID() string {
	if u := s.Actor(); u != nil {
		return u.ID
	}
	return "anonymous"
}

// SessionRecord is the persisted login session behind a token pair. Only a
// hash of the refresh token is stored.
type SessionRecord struct {
	ID                    string
	UserID                string
	CompanyID             string
	CreatedAt             time.Time
	ExpiresAt             time.Time
	LastActivityAt        time.Time
	IsActive              bool
	RefreshTokenHash      string
	RefreshTokenExpiresAt time.Time
}

// Usable reports whether the session is active and unexpired at now.
func (s *SessionRecord) Usable(now time.Time) bool {
	return s != nil && s.IsActive && now.Before(s.ExpiresAt)
}
