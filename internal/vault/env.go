package vault

import (
	"context"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
)

// SecretStore matches the service-side port.
type SecretStore interface {
	GetAIKey(ctx context.Context, provider domain.AIProvider) (string, error)
	PutAIKey(ctx context.Context, provider domain.AIProvider, key string) error
	DeleteAIKey(ctx context.Context) error
}

// EnvSecrets serves keys taken from process configuration. It is read-only.
type EnvSecrets struct {
	OpenAIKey    string
	AnthropicKey string
}

func (e EnvSecrets) GetAIKey(_ context.Context, provider domain.AIProvider) (string, error) {
	switch provider {
	case domain.AIProviderOpenAI:
		return e.OpenAIKey, nil
	case domain.AIProviderAnthropic:
		return e.AnthropicKey, nil
	}
	return "", nil
}

func (EnvSecrets) PutAIKey(context.Context, domain.AIProvider, string) error {
	return apperrors.Unavailable("no writable secret store is configured; set VAULT_ADDR", nil)
}

func (EnvSecrets) DeleteAIKey(context.Context) error {
	return apperrors.Unavailable("no writable secret store is configured; set VAULT_ADDR", nil)
}

// Layered reads from Primary and falls back to Fallback when Primary has no
// key or is unreachable. Writes go to Primary only.
type Layered struct {
	Primary  SecretStore
	Fallback SecretStore
}

func (l Layered) GetAIKey(ctx context.Context, provider domain.AIProvider) (string, error) {
	key, err := l.Primary.GetAIKey(ctx, provider)
	if key != "" && err == nil {
		return key, nil
	}
	if l.Fallback == nil {
		return key, err
	}
	fb, fbErr := l.Fallback.GetAIKey(ctx, provider)
	if fb != "" {
		return fb, nil
	}
	if err != nil {
		return "", err
	}
	return "", fbErr
}

func (l Layered) PutAIKey(ctx context.Context, provider domain.AIProvider, key string) error {
	return l.Primary.PutAIKey(ctx, provider, key)
}

func (l Layered) DeleteAIKey(ctx context.Context) error {
	return l.Primary.DeleteAIKey(ctx)
}
