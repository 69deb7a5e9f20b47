// Package jwt issues and validates the HS256 access and refresh tokens used by
// the API transports.
package jwt

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrWrongTokenType = errors.New("wrong token type")
	ErrWeakSecret     = errors.New("jwt secret must be at least 32 bytes")
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

const minSecretLength = 32

// Claims represents the JWT claims
type Claims struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	ExpiresIn        int64     `json:"expiresIn"` // seconds
	RefreshExpiresAt time.Time `json:"-"`
}

// Manager handles JWT token operations
type Manager struct {
	secret               []byte
	accessTokenDuration  time.Duration
	refreshTokenDuration time.Duration
	issuer               string
	now                  func() time.Time
}

// NewManager creates a new JWT manager signing with secret
func NewManager(secret string, issuer string, accessTokenDuration, refreshTokenDuration time.Duration) (*Manager, error) {
	if len(secret) < minSecretLength {
		return nil, ErrWeakSecret
	}
	if accessTokenDuration <= 0 || refreshTokenDuration <= 0 {
		return nil, errors.New("token durations must be positive")
	}
	if issuer == "" {
		issuer = "grc-platform"
	}
	return &Manager{
		secret:               []byte(secret),
		accessTokenDuration:  accessTokenDuration,
		refreshTokenDuration: refreshTokenDuration,
		issuer:               issuer,
		now:                  time.Now,
	}, nil
}

// RefreshTokenDuration is the lifetime of issued refresh tokens
func (m *Manager) RefreshTokenDuration() time.Duration {
	return m.refreshTokenDuration
}

// GenerateTokenPair creates both access and refresh tokens for a session
func (m *Manager) GenerateTokenPair(userID, companyID, sessionID, role string) (*TokenPair, error) {
	now := m.now()

	access, err := m.sign(userID, companyID, sessionID, role, TokenTypeAccess, now, m.accessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := m.sign(userID, companyID, sessionID, role, TokenTypeRefresh, now, m.refreshTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresIn:        int64(m.accessTokenDuration.Seconds()),
		RefreshExpiresAt: now.Add(m.refreshTokenDuration),
	}, nil
}

func (m *Manager) sign(userID, companyID, sessionID, role, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID:    userID,
		CompanyID: companyID,
		SessionID: sessionID,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			ID:        uuid.New().String(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ValidateToken validates a JWT token and returns the claims
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateAccessToken validates a token and requires it to be an access token
func (m *Manager) ValidateAccessToken(tokenString string) (*Claims, error) {
	return m.validateType(tokenString, TokenTypeAccess)
}

// ValidateRefreshToken validates a token and requires it to be a refresh token
func (m *Manager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return m.validateType(tokenString, TokenTypeRefresh)
}

func (m *Manager) validateType(tokenString, tokenType string) (*Claims, error) {
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// HashToken returns the hex SHA-256 of a token for at-rest storage
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
