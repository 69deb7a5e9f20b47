package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pesio-ai/be-plt-grc/internal/app"
	"github.com/pesio-ai/be-plt-grc/internal/config"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/evidence"
	"github.com/pesio-ai/be-plt-grc/internal/handler"
	"github.com/pesio-ai/be-plt-grc/internal/llm"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
	"github.com/pesio-ai/be-plt-grc/internal/repository"
	"github.com/pesio-ai/be-plt-grc/internal/repository/memory"
	"github.com/pesio-ai/be-plt-grc/internal/service"
	"github.com/pesio-ai/be-plt-grc/internal/templates"
	"github.com/pesio-ai/be-plt-grc/internal/vault"
	jwtpkg "github.com/pesio-ai/be-plt-grc/pkg/jwt"
)

const sessionPurgeInterval = 15 * time.Minute

// runtime is the wired application plus the resources it owns.
type runtime struct {
	app   *app.App
	pool  *pgxpool.Pool
	ready func(r *http.Request) error
}

func (rt *runtime) Close() {
	if rt.pool != nil {
		rt.pool.Close()
	}
}

func newRuntime(ctx context.Context, cfg *config.Config, log *logger.Logger) (*runtime, error) {
	rt := &runtime{}

	secret := cfg.JWT.Secret
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		log.Warn().Msg("JWT_SECRET not set; generated an ephemeral secret, tokens will not survive a restart")
	}
	jwtManager, err := jwtpkg.NewManager(secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT manager: %w", err)
	}

	var repos app.Repositories
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn().Msg("Using in-memory store; data is lost on exit")
		repos = app.MemoryRepositories(memory.New())
	default:
		log.Info().Msg("Connecting to database")
		pool, err := repository.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, err
		}
		rt.pool = pool
		if _, err := repository.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("Database connection established")
		repos = app.PostgresRepositories(pool, log)
		rt.ready = func(r *http.Request) error { return pool.Ping(r.Context()) }
	}

	secrets, err := newSecretStore(cfg, log)
	if err != nil {
		rt.Close()
		return nil, err
	}

	catalog, err := templates.Builtin()
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to load framework catalog: %w", err)
	}

	blobs, err := evidence.NewFileStore(cfg.Evidence.Dir, cfg.Evidence.MaxBytes)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to open evidence store: %w", err)
	}

	generator := llm.New(llm.Config{
		Model:    cfg.AI.Model,
		LocalURL: cfg.AI.LocalURL,
		Timeout:  cfg.AI.Timeout,
	}, log)

	rt.app = app.New(repos, app.Adapters{
		JWT:       jwtManager,
		Secrets:   secrets,
		Generator: generator,
		Catalog:   catalog,
		Blobs:     blobs,
	}, log)

	if cfg.AI.Provider != "" {
		p, err := domain.ParseAIProvider(cfg.AI.Provider)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("AI_PROVIDER: %w", err)
		}
		rt.app.Bootstrap.WithDefaultProvider(p)
	}
	return rt, nil
}

// newSecretStore prefers Vault and falls back to keys from the environment
func newSecretStore(cfg *config.Config, log *logger.Logger) (service.SecretStore, error) {
	env := vault.EnvSecrets{OpenAIKey: cfg.AI.OpenAIKey, AnthropicKey: cfg.AI.AnthropicKey}
	if !cfg.VaultEnabled() {
		log.Info().Msg("Vault not configured; AI keys are read from the environment")
		return env, nil
	}
	client, err := vault.NewClient(&vault.Config{
		Address:    cfg.Vault.Address,
		Token:      cfg.Vault.Token,
		Namespace:  cfg.Vault.Namespace,
		Mount:      cfg.Vault.Mount,
		SecretPath: cfg.Vault.SecretPath,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	return vault.Layered{Primary: client, Fallback: env}, nil
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	rt, err := newRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.app.Bootstrap.Run(ctx, cfg.SeedAdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	if res.GeneratedPassword != "" {
		log.Warn().
			Str("user_id", domain.SeedAdminID).
			Str("password", res.GeneratedPassword).
			Msg("Built-in administrator created with a one-time password; change it after first login")
	}

	httpHandler := handler.NewHTTPHandler(rt.app.Services, log)
	if rt.ready != nil {
		httpHandler.WithReadiness(rt.ready)
	}
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           httpHandler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcHandler := handler.NewGRPCHandler(rt.app.Services, log)
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcHandler.UnaryInterceptor()))
	grpcHandler.Register(grpcServer)
	healthServer := health.NewServer()
	healthServer.SetServingStatus(handler.GRPCServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	grpcListener, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to create gRPC listener on port %s: %w", cfg.Server.GRPCPort, err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("port", cfg.Server.HTTPPort).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()
	go func() {
		log.Info().Str("port", cfg.Server.GRPCPort).Msg("Starting gRPC server")
		if err := grpcServer.Serve(grpcListener); err != nil {
			errCh <- fmt.Errorf("gRPC server failed: %w", err)
		}
	}()
	go purgeSessions(ctx, rt.app.Services.Auth, log)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down gracefully...")
	case err = <-errCh:
		log.Error().Err(err).Msg("Server error, shutting down")
	}

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		log.Error().Err(serr).Msg("HTTP shutdown failed")
	}
	grpcServer.GracefulStop()

	log.Info().Msg("Server stopped")
	return err
}

// purgeSessions removes expired sessions until ctx is done
func purgeSessions(ctx context.Context, auth *service.AuthService, log *logger.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := auth.PurgeExpiredSessions(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("Session purge failed")
				continue
			}
			if n > 0 {
				log.Info().Int64("count", n).Msg("Expired sessions purged")
			}
		}
	}
}
