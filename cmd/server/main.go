// Package main is the entry point for the item management server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/item-management/internal/auth"
	"github.com/vyrodovalexey/item-management/internal/config"
	"github.com/vyrodovalexey/item-management/internal/inventory"
	"github.com/vyrodovalexey/item-management/internal/seed"
	"github.com/vyrodovalexey/item-management/internal/server"
	"github.com/vyrodovalexey/item-management/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use a basic logger for startup errors
		basicLogger, _ := zap.NewProduction()
		basicLogger.Error("failed to load configuration", zap.Error(err))
		return 1
	}

	// Initialize logger
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Error("failed to initialize logger", zap.Error(err))
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.Int("health_port", cfg.HealthPort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("auth_mode", cfg.AuthMode),
		zap.Bool("tls_enabled", cfg.TLSEnabled),
		zap.String("seed_file", cfg.SeedFile),
		zap.Float64("rate_limit_rps", cfg.RateLimitRPS),
		zap.Strings("cors_allowed_origins", cfg.CORSAllowedOrigins),
	)

	// Create authenticator based on config
	authenticator, closeAuth, err := createAuthenticator(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create authenticator", zap.Error(err))
		return 1
	}
	defer closeAuth()

	// Load seed items and build the inventory
	svc, err := buildInventory(cfg.SeedFile, logger)
	if err != nil {
		logger.Error("failed to build inventory", zap.Error(err))
		return 1
	}

	// Create server (pass authenticator)
	srv := server.New(cfg, logger, svc, authenticator)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		return 1
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		// Create shutdown context with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// Graceful shutdown
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// buildInventory loads the seed items and wraps them in a service.
func buildInventory(seedFile string, logger *zap.Logger) (*inventory.Service, error) {
	items, err := seed.Load(seedFile)
	if err != nil {
		return nil, fmt.Errorf("loading seed: %w", err)
	}

	logger.Info("inventory seeded", zap.Int("items", len(items)), zap.String("source", seedSource(seedFile)))

	return inventory.NewService(store.NewMemoryStore(items...), logger), nil
}

func seedSource(seedFile string) string {
	if seedFile == "" {
		return "built-in"
	}
	return seedFile
}

// initLogger builds the JSON zap logger. Unknown levels fall back to info.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build(zap.Fields(zap.String("service", "item-management")))
}

// errNoAuthenticators is returned for multi mode without any credentials.
var errNoAuthenticators = errors.New("multi auth mode requires at least one authenticator")

// oidcStartupTimeout bounds the discovery and first JWKS fetch.
const oidcStartupTimeout = 30 * time.Second

// createAuthenticator returns nil when authentication is disabled. The
// returned func releases background resources and is never nil.
func createAuthenticator(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
) (auth.Authenticator, func(), error) {
	noop := func() {}

	switch cfg.AuthMode {
	case "none", "":
		logger.Info("authentication disabled")
		return nil, noop, nil
	case "basic":
		logger.Info("authentication mode: basic auth")
		a, err := auth.NewBasicAuthenticator(cfg.BasicAuthUsers)
		return a, noop, err
	case "apikey":
		logger.Info("authentication mode: API key")
		a, err := auth.NewAPIKeyAuthenticator(cfg.APIKeys)
		return a, noop, err
	case "mtls":
		logger.Info("authentication mode: mTLS")
		return auth.NewMTLSAuthenticator(), noop, nil
	case "oidc":
		logger.Info("authentication mode: OIDC",
			zap.String("issuer_url", cfg.OIDCIssuerURL),
			zap.String("client_id", cfg.OIDCClientID),
		)
		verifier, err := newVerifier(ctx, cfg, logger)
		if err != nil {
			return nil, noop, err
		}
		return auth.NewOIDCAuthenticator(verifier, cfg.OIDCAudienceOrClientID()), verifier.Close, nil
	case "multi":
		logger.Info("authentication mode: multi")
		return createMultiAuthenticator(ctx, cfg, logger)
	default:
		return nil, noop, fmt.Errorf("unknown auth mode: %s", cfg.AuthMode)
	}
}

// createMultiAuthenticator chains every configured method: mTLS first,
// then OIDC, Basic and API key.
func createMultiAuthenticator(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
) (auth.Authenticator, func(), error) {
	var authenticators []auth.Authenticator
	closeAll := func() {}

	if cfg.MTLSEnabled() {
		authenticators = append(authenticators, auth.NewMTLSAuthenticator())
		logger.Info("multi-auth: mTLS enabled")
	}

	if cfg.OIDCEnabled() {
		verifier, err := newVerifier(ctx, cfg, logger)
		if err != nil {
			return nil, closeAll, err
		}
		closeAll = verifier.Close
		authenticators = append(authenticators,
			auth.NewOIDCAuthenticator(verifier, cfg.OIDCAudienceOrClientID()))
		logger.Info("multi-auth: OIDC enabled")
	}

	if cfg.BasicAuthUsers != "" {
		ba, err := auth.NewBasicAuthenticator(cfg.BasicAuthUsers)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("creating basic authenticator: %w", err)
		}
		authenticators = append(authenticators, ba)
		logger.Info("multi-auth: basic auth enabled")
	}

	if cfg.APIKeys != "" {
		ak, err := auth.NewAPIKeyAuthenticator(cfg.APIKeys)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("creating API key authenticator: %w", err)
		}
		authenticators = append(authenticators, ak)
		logger.Info("multi-auth: API key auth enabled")
	}

	if len(authenticators) == 0 {
		return nil, closeAll, errNoAuthenticators
	}

	return auth.NewMultiAuthenticator(authenticators...), closeAll, nil
}

func newVerifier(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*auth.JWKSVerifier, error) {
	ctx, cancel := context.WithTimeout(ctx, oidcStartupTimeout)
	defer cancel()

	verifier, err := auth.NewJWKSVerifier(ctx, cfg.OIDCIssuerURL, logger)
	if err != nil {
		return nil, fmt.Errorf("creating OIDC token verifier: %w", err)
	}
	return verifier, nil
}
