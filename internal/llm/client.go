// Package llm sends drafting prompts to a hosted or local text-generation API.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
)

const (
	DefaultOpenAIURL    = "https://api.openai.com/v1/chat/completions"
	DefaultAnthropicURL = "https://api.anthropic.com/v1/messages"
	DefaultLocalURL     = "http://localhost:11434/v1/chat/completions"

	defaultMaxTokens = 1024
	maxBodyBytes     = 10 << 20
)

var defaultModels = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:    "gpt-4o-mini",
	domain.AIProviderAnthropic: "claude-3-5-haiku-latest",
	domain.AIProviderLocal:     "llama3",
}

const systemPrompt = "You draft text for governance, risk and compliance records. " +
	"Write plain, professional prose without markdown headings. Do not invent facts that are not in the context."

// Config selects endpoints and limits. Empty fields fall back to defaults.
type Config struct {
	// Model overrides the per-provider default model.
	Model        string
	OpenAIURL    string
	AnthropicURL string
	LocalURL     string
	MaxTokens    int
	Timeout      time.Duration
}

// Client implements text generation for every supported provider.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *logger.Logger
}

// New creates a client
func New(cfg Config, log *logger.Logger) *Client {
	if cfg.OpenAIURL == "" {
		cfg.OpenAIURL = DefaultOpenAIURL
	}
	if cfg.AnthropicURL == "" {
		cfg.AnthropicURL = DefaultAnthropicURL
	}
	if cfg.LocalURL == "" {
		cfg.LocalURL = DefaultLocalURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// Generate sends one user prompt and returns the generated text
func (c *Client) Generate(ctx context.Context, provider domain.AIProvider, apiKey, prompt string) (string, error) {
	model := c.model(provider)
	start := time.Now()

	var (
		text string
		err  error
	)
	switch provider {
	case domain.AIProviderOpenAI:
		text, err = c.chatCompletion(ctx, c.cfg.OpenAIURL, apiKey, model, prompt)
	case domain.AIProviderLocal:
		text, err = c.chatCompletion(ctx, c.cfg.LocalURL, apiKey, model, prompt)
	case domain.AIProviderAnthropic:
		text, err = c.messages(ctx, apiKey, model, prompt)
	default:
		return "", fmt.Errorf("unsupported provider %q", provider)
	}

	c.log.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Dur("elapsed", time.Since(start)).
		Bool("ok", err == nil).
		Msg("Text generation finished")
	return text, err
}

func (c *Client) model(provider domain.AIProvider) string {
	if c.cfg.Model != "" {
		return c.cfg.Model
	}
	return defaultModels[provider]
}

// truncate limits a string to maxLen runes, appending "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
