// Package vault keeps the AI provider key in a Vault KV v2 secret instead of
// the settings table.
package vault

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	vault "github.com/hashicorp/vault/api"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
)

const (
	fieldProvider = "provider"
	fieldKey      = "key"
)

// Config locates the secret
type Config struct {
	Address    string
	Token      string
	Namespace  string
	Mount      string
	SecretPath string
	// MaxRetries is passed to the Vault client. Zero keeps the client default.
	MaxRetries int
	Timeout    time.Duration
}

// Client stores one {provider, key} pair at Config.SecretPath.
type Client struct {
	client *vault.Client
	kv     *vault.KVv2
	path   string
	log    *logger.Logger
}

// NewClient creates a Vault-backed secret store
func NewClient(cfg *Config, log *logger.Logger) (*Client, error) {
	if cfg == nil || strings.TrimSpace(cfg.Address) == "" {
		return nil, errors.New("vault address is required")
	}
	if strings.TrimSpace(cfg.SecretPath) == "" {
		return nil, errors.New("vault secret path is required")
	}

	vcfg := vault.DefaultConfig()
	vcfg.Address = cfg.Address
	if cfg.MaxRetries > 0 {
		vcfg.MaxRetries = cfg.MaxRetries
	} else if cfg.MaxRetries < 0 {
		vcfg.MaxRetries = 0
	}
	if cfg.Timeout > 0 {
		vcfg.Timeout = cfg.Timeout
	}

	client, err := vault.NewClient(vcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	mount := cfg.Mount
	if mount == "" {
		mount = "secret"
	}

	return &Client{
		client: client,
		kv:     client.KVv2(mount),
		path:   strings.Trim(cfg.SecretPath, "/"),
		log:    log,
	}, nil
}

// GetAIKey returns the stored key when it belongs to provider. A missing
// secret, or one saved for another provider, yields an empty key.
func (c *Client) GetAIKey(ctx context.Context, provider domain.AIProvider) (string, error) {
	secret, err := c.kv.Get(ctx, c.path)
	if errors.Is(err, vault.ErrSecretNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.Unavailable("secret store unavailable", err)
	}
	if secret == nil || secret.Data == nil {
		return "", nil
	}

	stored, _ := secret.Data[fieldProvider].(string)
	if stored != string(provider) {
		c.log.Debug().
			Str("stored_provider", stored).
			Str("provider", string(provider)).
			Msg("Stored AI key belongs to another provider")
		return "", nil
	}
	key, _ := secret.Data[fieldKey].(string)
	return key, nil
}

// PutAIKey writes a new version of the secret
func (c *Client) PutAIKey(ctx context.Context, provider domain.AIProvider, key string) error {
	_, err := c.kv.Put(ctx, c.path, map[string]interface{}{
		fieldProvider: string(provider),
		fieldKey:      key,
	})
	if err != nil {
		return apperrors.Unavailable("failed to store AI key", err)
	}
	c.log.Info().Str("provider", string(provider)).Msg("AI key stored in vault")
	return nil
}

// DeleteAIKey removes every version of the secret
func (c *Client) DeleteAIKey(ctx context.Context) error {
	err := c.kv.DeleteMetadata(ctx, c.path)
	var respErr *vault.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return apperrors.Unavailable("failed to delete AI key", err)
	}
	c.log.Info().Msg("AI key removed from vault")
	return nil
}
