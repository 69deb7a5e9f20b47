package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setupTestManager(t *testing.T) *Manager {
	t.Helper()
	manager, err := NewManager(testSecret, "grc-test", 15*time.Minute, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return manager
}

func TestNewManager(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		access  time.Duration
		refresh time.Duration
		wantErr bool
	}{
		{name: "valid", secret: testSecret, access: time.Minute, refresh: time.Hour},
		{name: "short secret", secret: "short", access: time.Minute, refresh: time.Hour, wantErr: true},
		{name: "empty secret", secret: "", access: time.Minute, refresh: time.Hour, wantErr: true},
		{name: "zero access duration", secret: testSecret, access: 0, refresh: time.Hour, wantErr: true},
		{name: "negative refresh duration", secret: testSecret, access: time.Minute, refresh: -time.Hour, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(tt.secret, "", tt.access, tt.refresh)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewManager() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateTokenPair(t *testing.T) {
	manager := setupTestManager(t)

	tokenPair, err := manager.GenerateTokenPair("user-123", "company-default", "session-789", "analyst")
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}
	if tokenPair.AccessToken == "" || tokenPair.RefreshToken == "" {
		t.Fatal("GenerateTokenPair() returned empty token")
	}
	if tokenPair.AccessToken == tokenPair.RefreshToken {
		t.Error("Access and refresh tokens should be different")
	}
	if tokenPair.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("ExpiresIn = %d", tokenPair.ExpiresIn)
	}
}

func TestValidateAccessToken(t *testing.T) {
	manager := setupTestManager(t)
	tokenPair, err := manager.GenerateTokenPair("user-123", "company-default", "session-789", "analyst")
	if err != nil {
		t.Fatalf("Failed to generate token pair: %v", err)
	}

	claims, err := manager.ValidateAccessToken(tokenPair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("UserID = %v", claims.UserID)
	}
	if claims.CompanyID != "company-default" {
		t.Errorf("CompanyID = %v", claims.CompanyID)
	}
	if claims.SessionID != "session-789" {
		t.Errorf("SessionID = %v", claims.SessionID)
	}
	if claims.Role != "analyst" {
		t.Errorf("Role = %v", claims.Role)
	}

	if _, err := manager.ValidateAccessToken(tokenPair.RefreshToken); !errors.Is(err, ErrWrongTokenType) {
		t.Errorf("refresh token accepted as access token: %v", err)
	}
	if _, err := manager.ValidateRefreshToken(tokenPair.RefreshToken); err != nil {
		t.Errorf("ValidateRefreshToken() error = %v", err)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	manager := setupTestManager(t)
	issued := time.Now().Add(-time.Hour)
	manager.now = func() time.Time { return issued }
	tokenPair, err := manager.GenerateTokenPair("u", "c", "s", "viewer")
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}

	manager.now = time.Now
	if _, err := manager.ValidateToken(tokenPair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("ValidateToken() error = %v, want ErrTokenExpired", err)
	}
}

func TestValidateInvalidToken(t *testing.T) {
	manager := setupTestManager(t)
	other, err := NewManager(strings.Repeat("x", 32), "grc-test", time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	foreign, _ := other.GenerateTokenPair("u", "c", "s", "admin")

	otherIssuer, _ := NewManager(testSecret, "someone-else", time.Minute, time.Hour)
	wrongIssuer, _ := otherIssuer.GenerateTokenPair("u", "c", "s", "admin")

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "malformed token", token: "not.a.valid.token"},
		{name: "random string", token: "random-string-not-jwt"},
		{name: "signed with another secret", token: foreign.AccessToken},
		{name: "wrong issuer", token: wrongIssuer.AccessToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := manager.ValidateToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestHashToken(t *testing.T) {
	a := HashToken("refresh-token")
	if len(a) != 64 {
		t.Errorf("len = %d, want 64", len(a))
	}
	if a != HashToken("refresh-token") {
		t.Error("HashToken() not deterministic")
	}
	if a == HashToken("other-token") {
		t.Error("HashToken() collided")
	}
}
