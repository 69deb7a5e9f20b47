package service

import (
	"context"
	"strings"

	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
)

// Placeholder texts returned instead of errors when drafting is not possible.
const (
	PlaceholderNoProvider = "[AI drafting unavailable: no AI provider is configured]"
	PlaceholderNoKey      = "[AI drafting unavailable: no API key is configured for the selected provider]"
	PlaceholderFailed     = "[AI drafting unavailable: the text generation service did not respond]"
	PlaceholderEmpty      = "[AI drafting unavailable: the text generation service returned no text]"
)

// AssistService drafts free text through the configured provider. It never
// fails; every problem becomes a placeholder string.
type AssistService struct {
	settingsRepo SettingsStore
	secrets      SecretStore
	generator    TextGenerator
	log          *logger.Logger
}

func NewAssistService(settingsRepo SettingsStore, secrets SecretStore, generator TextGenerator, log *logger.Logger) *AssistService {
	return &AssistService{
		settingsRepo: settingsRepo,
		secrets:      secrets,
		generator:    generator,
		log:          log,
	}
}

// GenerateText sends prompt, optionally followed by context material
func (s *AssistService) GenerateText(ctx context.Context, prompt, contextText string) string {
	if s == nil || s.generator == nil {
		return PlaceholderNoProvider
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil || settings.AIProvider == "" {
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to load settings for text generation")
		}
		return PlaceholderNoProvider
	}
	provider := settings.AIProvider

	var key string
	if s.secrets != nil {
		key, err = s.secrets.GetAIKey(ctx, provider)
		if err != nil {
			s.log.Warn().Err(err).Str("provider", string(provider)).Msg("Failed to read AI key")
		}
	}
	if key == "" && provider != domain.AIProviderLocal {
		return PlaceholderNoKey
	}

	full := prompt
	if strings.TrimSpace(contextText) != "" {
		full = prompt + "\n\nContext:\n" + contextText
	}

	text, err := s.generator.Generate(ctx, provider, key, full)
	if err != nil {
		s.log.Warn().Err(err).Str("provider", string(provider)).Msg("Text generation failed")
		return PlaceholderFailed
	}
	if strings.TrimSpace(text) == "" {
		return PlaceholderEmpty
	}
	return text
}
