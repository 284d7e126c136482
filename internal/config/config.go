// Package config provides configuration management for the item management server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultAuthMode        = "none"
	DefaultRateLimitRPS    = 10.0
	DefaultRateLimitBurst  = 20
	DefaultEnvFile         = ".env"
	DefaultTLSClientAuth   = "none"
	DefaultHealthPort      = 9090
)

// Environment variable names.
const (
	EnvServerPort         = "APP_SERVER_PORT"
	EnvLogLevel           = "APP_LOG_LEVEL"
	EnvShutdownTimeout    = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled     = "APP_METRICS_ENABLED"
	EnvAuthMode           = "APP_AUTH_MODE"
	EnvBasicAuthUsers     = "APP_BASIC_AUTH_USERS"
	EnvAPIKeys            = "APP_API_KEYS" //nolint:gosec // env var name, not a credential
	EnvSeedFile           = "APP_SEED_FILE"
	EnvRateLimitRPS       = "APP_RATE_LIMIT_RPS"
	EnvRateLimitBurst     = "APP_RATE_LIMIT_BURST"
	EnvCORSAllowedOrigins = "APP_CORS_ALLOWED_ORIGINS"
	EnvEnvFile            = "APP_ENV_FILE"
	EnvHealthPort         = "APP_HEALTH_PORT"
	EnvTLSEnabled         = "APP_TLS_ENABLED"
	EnvTLSCertPath        = "APP_TLS_CERT_PATH"
	EnvTLSKeyPath         = "APP_TLS_KEY_PATH"
	EnvTLSCAPath          = "APP_TLS_CA_PATH"
	EnvTLSClientAuth      = "APP_TLS_CLIENT_AUTH"
	EnvOIDCIssuerURL      = "APP_OIDC_ISSUER_URL"
	EnvOIDCClientID       = "APP_OIDC_CLIENT_ID"
	EnvOIDCAudience       = "APP_OIDC_AUDIENCE"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool
	HealthPort      int // Health server port (0 = disabled).

	// Authentication mode: none, basic, apikey, mtls, oidc, multi.
	AuthMode string

	// TLS settings. TLSClientAuth is one of none, request, require.
	TLSEnabled    bool
	TLSCertPath   string
	TLSKeyPath    string
	TLSCAPath     string
	TLSClientAuth string

	// OIDC settings. An empty audience defaults to the client ID.
	OIDCIssuerURL string
	OIDCClientID  string
	OIDCAudience  string

	// Basic auth settings (format: "user1:bcrypt_hash,user2:bcrypt_hash").
	BasicAuthUsers string

	// API key settings (format: "key1:name1,key2:name2").
	APIKeys string

	// YAML file with the initial items. Empty uses the built-in seed.
	SeedFile string

	// Rate limit for mutating requests per client (0 RPS = disabled).
	RateLimitRPS   float64
	RateLimitBurst int

	// Allowed CORS origins ("*" = any).
	CORSAllowedOrigins []string
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidAuthMode        = errors.New(
		"auth mode must be one of: none, basic, apikey, mtls, oidc, multi",
	)
	ErrInvalidBasicAuthConfig = errors.New(
		"basic auth users must be set when auth mode is basic",
	)
	ErrInvalidAPIKeyConfig = errors.New(
		"API keys must be set when auth mode is apikey",
	)
	ErrInvalidMultiAuthConfig = errors.New(
		"at least one auth config must be provided when auth mode is multi",
	)
	ErrInvalidRateLimit = errors.New(
		"rate limit RPS must not be negative and burst must be positive when RPS is set",
	)
	ErrInvalidCORSOrigins = errors.New("at least one CORS origin must be allowed")
	ErrInvalidHealthPort  = errors.New(
		"health port must be between 0 and 65535",
	)
	ErrHealthPortConflict = errors.New(
		"health port must differ from server port when health port is not 0",
	)
	ErrInvalidTLSClientAuth = errors.New(
		"TLS client auth must be one of: none, request, require",
	)
	ErrInvalidTLSCertRequired = errors.New(
		"TLS cert path and key path must be set when TLS is enabled",
	)
	ErrInvalidTLSCARequired = errors.New(
		"TLS CA path must be set when TLS client auth is request or require",
	)
	ErrInvalidMTLSConfig = errors.New(
		"mtls auth mode requires TLS with client auth request or require",
	)
	ErrInvalidOIDCConfig = errors.New(
		"OIDC issuer URL and client ID must be set when auth mode is oidc",
	)
)

// Load reads configuration from environment variables with defaults.
// A dotenv file (APP_ENV_FILE, default ".env") is read first when present;
// variables already set in the environment take priority over it.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	cfg := Defaults()

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	return &Config{
		ServerPort:         DefaultServerPort,
		HealthPort:         DefaultHealthPort,
		LogLevel:           DefaultLogLevel,
		ShutdownTimeout:    DefaultShutdownTimeout,
		MetricsEnabled:     DefaultMetricsEnabled,
		AuthMode:           DefaultAuthMode,
		TLSClientAuth:      DefaultTLSClientAuth,
		RateLimitRPS:       DefaultRateLimitRPS,
		RateLimitBurst:     DefaultRateLimitBurst,
		CORSAllowedOrigins: []string{"*"},
	}
}

// loadEnvFile loads the dotenv file if it exists. godotenv.Load never
// overrides variables that are already set.
func loadEnvFile() error {
	path := os.Getenv(EnvEnvFile)
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("reading %s: %w", path, err)
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	c.loadAuthEnv()
	c.loadOIDCEnv()

	if err := c.loadTLSEnv(); err != nil {
		return err
	}

	if err := c.loadInventoryEnv(); err != nil {
		return err
	}

	return nil
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if val := os.Getenv(EnvServerPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvServerPort, err)
		}
		c.ServerPort = port
	}

	if val := os.Getenv(EnvHealthPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvHealthPort, err)
		}
		c.HealthPort = port
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	if val := os.Getenv(EnvMetricsEnabled); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMetricsEnabled, err)
		}
		c.MetricsEnabled = enabled
	}

	if val := os.Getenv(EnvCORSAllowedOrigins); val != "" {
		c.CORSAllowedOrigins = splitList(val)
	}

	return nil
}

// loadAuthEnv loads authentication environment variables.
func (c *Config) loadAuthEnv() {
	if val := os.Getenv(EnvAuthMode); val != "" {
		c.AuthMode = val
	}

	if val := os.Getenv(EnvBasicAuthUsers); val != "" {
		c.BasicAuthUsers = val
	}

	if val := os.Getenv(EnvAPIKeys); val != "" {
		c.APIKeys = val
	}
}

// loadTLSEnv loads TLS-related environment variables.
func (c *Config) loadTLSEnv() error {
	if val := os.Getenv(EnvTLSEnabled); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvTLSEnabled, err)
		}
		c.TLSEnabled = enabled
	}

	if val := os.Getenv(EnvTLSCertPath); val != "" {
		c.TLSCertPath = val
	}

	if val := os.Getenv(EnvTLSKeyPath); val != "" {
		c.TLSKeyPath = val
	}

	if val := os.Getenv(EnvTLSCAPath); val != "" {
		c.TLSCAPath = val
	}

	if val := os.Getenv(EnvTLSClientAuth); val != "" {
		c.TLSClientAuth = val
	}

	return nil
}

// loadOIDCEnv loads OIDC-related environment variables.
func (c *Config) loadOIDCEnv() {
	if val := os.Getenv(EnvOIDCIssuerURL); val != "" {
		c.OIDCIssuerURL = val
	}

	if val := os.Getenv(EnvOIDCClientID); val != "" {
		c.OIDCClientID = val
	}

	if val := os.Getenv(EnvOIDCAudience); val != "" {
		c.OIDCAudience = val
	}
}

// loadInventoryEnv loads seed and rate limit environment variables.
func (c *Config) loadInventoryEnv() error {
	if val := os.Getenv(EnvSeedFile); val != "" {
		c.SeedFile = val
	}

	if val := os.Getenv(EnvRateLimitRPS); val != "" {
		rps, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvRateLimitRPS, err)
		}
		c.RateLimitRPS = rps
	}

	if val := os.Getenv(EnvRateLimitBurst); val != "" {
		burst, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvRateLimitBurst, err)
		}
		c.RateLimitBurst = burst
	}

	return nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateAuth(); err != nil {
		return err
	}

	if c.RateLimitRPS < 0 || (c.RateLimitRPS > 0 && c.RateLimitBurst <= 0) {
		return ErrInvalidRateLimit
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	if c.HealthPort < 0 || c.HealthPort > 65535 {
		return ErrInvalidHealthPort
	}

	if c.HealthPort != 0 && c.HealthPort == c.ServerPort {
		return ErrHealthPortConflict
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	if len(c.CORSAllowedOrigins) == 0 {
		return ErrInvalidCORSOrigins
	}

	return nil
}

// validateAuth validates authentication and TLS configuration.
func (c *Config) validateAuth() error {
	if err := c.validateTLS(); err != nil {
		return err
	}

	switch c.authModeOrDefault() {
	case "none":
	case "mtls":
		if !c.TLSEnabled || c.tlsClientAuthOrDefault() == "none" {
			return ErrInvalidMTLSConfig
		}
	case "oidc":
		if c.OIDCIssuerURL == "" || c.OIDCClientID == "" {
			return ErrInvalidOIDCConfig
		}
	case "basic":
		if c.BasicAuthUsers == "" {
			return ErrInvalidBasicAuthConfig
		}
	case "apikey":
		if c.APIKeys == "" {
			return ErrInvalidAPIKeyConfig
		}
	case "multi":
		if !c.hasAnyAuthConfig() {
			return ErrInvalidMultiAuthConfig
		}
	default:
		return ErrInvalidAuthMode
	}

	return nil
}

// validateTLS validates TLS-related configuration.
func (c *Config) validateTLS() error {
	validClientAuth := map[string]bool{
		"none":    true,
		"request": true,
		"require": true,
	}
	if !validClientAuth[c.tlsClientAuthOrDefault()] {
		return ErrInvalidTLSClientAuth
	}

	if !c.TLSEnabled {
		return nil
	}

	if c.TLSCertPath == "" || c.TLSKeyPath == "" {
		return ErrInvalidTLSCertRequired
	}

	if c.tlsClientAuthOrDefault() != "none" && c.TLSCAPath == "" {
		return ErrInvalidTLSCARequired
	}

	return nil
}

// hasAnyAuthConfig reports whether multi mode has at least one method to chain.
func (c *Config) hasAnyAuthConfig() bool {
	return c.BasicAuthUsers != "" ||
		c.APIKeys != "" ||
		c.OIDCEnabled() ||
		c.MTLSEnabled()
}

// MTLSEnabled reports whether the listener can present client certificates
// to the mtls authenticator.
func (c *Config) MTLSEnabled() bool {
	return c.TLSEnabled && c.tlsClientAuthOrDefault() != "none"
}

// OIDCEnabled reports whether an OIDC issuer is configured.
func (c *Config) OIDCEnabled() bool {
	return c.OIDCIssuerURL != "" && c.OIDCClientID != ""
}

// OIDCAudienceOrClientID returns the audience tokens must carry.
func (c *Config) OIDCAudienceOrClientID() string {
	if c.OIDCAudience != "" {
		return c.OIDCAudience
	}
	return c.OIDCClientID
}

// tlsClientAuthOrDefault returns the TLS client auth, defaulting to "none" if empty.
func (c *Config) tlsClientAuthOrDefault() string {
	if c.TLSClientAuth == "" {
		return DefaultTLSClientAuth
	}
	return c.TLSClientAuth
}

// authModeOrDefault returns the auth mode, defaulting to "none" if empty.
func (c *Config) authModeOrDefault() string {
	if c.AuthMode == "" {
		return DefaultAuthMode
	}
	return c.AuthMode
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// HealthAddress returns the health server address in host:port format.
func (c *Config) HealthAddress() string {
	return fmt.Sprintf(":%d", c.HealthPort)
}

// TLSClientAuthMode returns the configured client certificate policy.
func (c *Config) TLSClientAuthMode() string {
	return c.tlsClientAuthOrDefault()
}

// RateLimitEnabled reports whether mutating requests are rate limited.
func (c *Config) RateLimitEnabled() bool {
	return c.RateLimitRPS > 0
}

// splitList splits a comma-separated list and drops empty entries.
func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
