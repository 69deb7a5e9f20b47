package domain

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestApplySettingsUpdate(t *testing.T) {
	now := time.Now()
	base := DefaultSettings(now.Add(-time.Hour))

	tests := []struct {
		name    string
		update  SettingsUpdate
		check   func(*Settings) bool
		wantErr bool
	}{
		{
			name:   "provider",
			update: SettingsUpdate{AIProvider: strPtr("anthropic")},
			check:  func(s *Settings) bool { return s.AIProvider == AIProviderAnthropic },
		},
		{
			name:   "clear provider",
			update: SettingsUpdate{AIProvider: strPtr("")},
			check:  func(s *Settings) bool { return s.AIProvider == "" },
		},
		{
			name:   "colors",
			update: SettingsUpdate{PrimaryColor: strPtr("#FFF"), SecondaryColor: strPtr("#0a0b0c")},
			check:  func(s *Settings) bool { return s.PrimaryColor == "#FFF" && s.SecondaryColor == "#0a0b0c" },
		},
		{
			name:   "untouched fields survive",
			update: SettingsUpdate{CompanyName: strPtr(" Acme ")},
			check:  func(s *Settings) bool { return s.CompanyName == "Acme" && s.PrimaryColor == base.PrimaryColor },
		},
		{name: "bad provider", update: SettingsUpdate{AIProvider: strPtr("gemini")}, wantErr: true},
		{name: "bad color", update: SettingsUpdate{PrimaryColor: strPtr("blue")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplySettingsUpdate(base, tt.update, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplySettingsUpdate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !tt.check(got) {
				t.Errorf("unexpected settings %+v", got)
			}
			if !got.UpdatedAt.Equal(now) {
				t.Errorf("UpdatedAt = %v", got.UpdatedAt)
			}
			if got.ID != SettingsID {
				t.Errorf("ID = %q", got.ID)
			}
		})
	}
}

func TestNewCompany(t *testing.T) {
	c, err := NewCompany("c1", "  Acme Ltd ", time.Now())
	if err != nil || c.Name != "Acme Ltd" {
		t.Fatalf("NewCompany() = %+v, %v", c, err)
	}
	if _, err := NewCompany("c2", "", time.Now()); err == nil {
		t.Error("empty name accepted")
	}
	if DefaultCompany(time.Now()).ID != "company-default" {
		t.Error("default company id changed")
	}
}
