package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
	"github.com/pesio-ai/be-plt-grc/internal/repository/memory"
)

func strPtr(s string) *string { return &s }

func TestSettingsNeverExposeKey(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	secrets := newFakeSecrets()
	svc := NewSettingsService(store.Settings(), secrets, logger.Nop())
	svc.now = fixedClock()

	_, err := svc.UpdateSettings(ctx, writerSession(), domain.SettingsUpdate{CompanyName: strPtr("x")})
	assertCode(t, err, apperrors.ErrCodeForbidden)

	assertCode(t, svc.SetAIKey(ctx, adminSession(), "sk-secret-value"), apperrors.ErrCodeValidation)

	if _, err := svc.UpdateSettings(ctx, adminSession(), domain.SettingsUpdate{AIProvider: strPtr("anthropic")}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	assertCode(t, svc.SetAIKey(ctx, viewerSession(), "sk-secret-value"), apperrors.ErrCodeForbidden)
	if err := svc.SetAIKey(ctx, adminSession(), "sk-secret-value"); err != nil {
		t.Fatalf("SetAIKey() error = %v", err)
	}

	got, err := svc.GetSettings(ctx, viewerSession())
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if !got.AIKeyConfigured {
		t.Error("AIKeyConfigured = false after SetAIKey")
	}
	raw, _ := json.Marshal(got)
	if bytes.Contains(raw, []byte("sk-secret-value")) {
		t.Errorf("settings JSON leaks the key: %s", raw)
	}

	if err := svc.ClearAIKey(ctx, adminSession()); err != nil {
		t.Fatalf("ClearAIKey() error = %v", err)
	}
	got, _ = svc.GetSettings(ctx, viewerSession())
	if got.AIKeyConfigured {
		t.Error("AIKeyConfigured = true after ClearAIKey")
	}

	_, err = svc.GetSettings(ctx, nil)
	assertCode(t, err, apperrors.ErrCodeUnauthorized)
}

func TestUpdateSettingsValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewSettingsService(memory.New().Settings(), nil, logger.Nop())

	tests := []struct {
		name    string
		update  domain.SettingsUpdate
		wantErr bool
	}{
		{name: "valid colours", update: domain.SettingsUpdate{PrimaryColor: strPtr("#112233"), SecondaryColor: strPtr("#abc")}},
		{name: "bad colour", update: domain.SettingsUpdate{PrimaryColor: strPtr("blue")}, wantErr: true},
		{name: "unknown provider", update: domain.SettingsUpdate{AIProvider: strPtr("gemini")}, wantErr: true},
		{name: "clear provider", update: domain.SettingsUpdate{AIProvider: strPtr("")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateSettings(ctx, adminSession(), tt.update)
			if (err != nil) != tt.wantErr {
				t.Errorf("UpdateSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAssistPlaceholders(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		provider domain.AIProvider
		key      string
		gen      *fakeGenerator
		want     string
	}{
		{name: "no provider", gen: &fakeGenerator{text: "ok"}, want: PlaceholderNoProvider},
		{name: "no key", provider: domain.AIProviderOpenAI, gen: &fakeGenerator{text: "ok"}, want: PlaceholderNoKey},
		{name: "local needs no key", provider: domain.AIProviderLocal, gen: &fakeGenerator{text: "ok"}, want: "ok"},
		{name: "generator error", provider: domain.AIProviderAnthropic, key: "k", gen: &fakeGenerator{err: errBoom}, want: PlaceholderFailed},
		{name: "blank output", provider: domain.AIProviderAnthropic, key: "k", gen: &fakeGenerator{text: "  \n"}, want: PlaceholderEmpty},
		{name: "success", provider: domain.AIProviderAnthropic, key: "k", gen: &fakeGenerator{text: "Summary."}, want: "Summary."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			_ = store.Settings().Save(ctx, &domain.Settings{AIProvider: tt.provider})
			secrets := newFakeSecrets()
			if tt.key != "" {
				secrets.keys[tt.provider] = tt.key
			}
			svc := NewAssistService(store.Settings(), secrets, tt.gen, logger.Nop())

			if got := svc.GenerateText(ctx, "Summarize", "ctx"); got != tt.want {
				t.Errorf("GenerateText() = %q, want %q", got, tt.want)
			}
		})
	}

	var nilSvc *AssistService
	if got := nilSvc.GenerateText(ctx, "p", ""); got != PlaceholderNoProvider {
		t.Errorf("nil service GenerateText() = %q", got)
	}
}

func TestAssistAppendsContext(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_ = store.Settings().Save(ctx, &domain.Settings{AIProvider: domain.AIProviderLocal})
	gen := &fakeGenerator{text: "ok"}
	svc := NewAssistService(store.Settings(), nil, gen, logger.Nop())

	svc.GenerateText(ctx, "Prompt", "")
	svc.GenerateText(ctx, "Prompt", "Details")
	if gen.prompts[0] != "Prompt" {
		t.Errorf("prompt without context = %q", gen.prompts[0])
	}
	if !strings.HasSuffix(gen.prompts[1], "Context:\nDetails") {
		t.Errorf("prompt with context = %q", gen.prompts[1])
	}
}

func TestCompanies(t *testing.T) {
	ctx := context.Background()
	svc := NewCompanyService(memory.New().Companies(), logger.Nop())

	_, err := svc.CreateCompany(ctx, writerSession(), "Acme")
	assertCode(t, err, apperrors.ErrCodeForbidden)
	_, err = svc.CreateCompany(ctx, adminSession(), " ")
	assertCode(t, err, apperrors.ErrCodeValidation)

	if _, err := svc.CreateCompany(ctx, adminSession(), "Acme"); err != nil {
		t.Fatalf("CreateCompany() error = %v", err)
	}
	list, err := svc.ListCompanies(ctx, viewerSession())
	if err != nil || len(list) != 1 || list[0].Name != "Acme" {
		t.Errorf("ListCompanies() = %+v, %v", list, err)
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	users := newTestUserService(store)
	svc := NewBootstrapService(users, store.Companies(), store.Settings(), logger.Nop())
	svc.now = fixedClock()

	first, err := svc.Run(ctx, "configured-password")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !first.AdminCreated || !first.CompanyCreated || !first.SettingsCreated || first.GeneratedPassword != "" {
		t.Errorf("first run = %+v", first)
	}

	second, err := svc.Run(ctx, "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if second.AdminCreated || second.CompanyCreated || second.SettingsCreated {
		t.Errorf("second run = %+v, want no changes", second)
	}

	settings, _ := store.Settings().Get(ctx)
	if settings.PrimaryColor != "#1e40af" || settings.CompanyName != "GRC Platform" {
		t.Errorf("settings = %+v", settings)
	}
	if _, err := store.Companies().Get(ctx, domain.DefaultCompanyID); err != nil {
		t.Errorf("default company missing: %v", err)
	}
}

func TestBootstrapDefaultProvider(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewBootstrapService(newTestUserService(store), store.Companies(), store.Settings(), logger.Nop()).
		WithDefaultProvider(domain.AIProviderAnthropic)

	if _, err := svc.Run(ctx, "configured-password"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	settings, err := store.Settings().Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if settings.AIProvider != domain.AIProviderAnthropic {
		t.Errorf("AIProvider = %q, want anthropic", settings.AIProvider)
	}
}
