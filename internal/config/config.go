// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

// Package config provides centralized configuration management for Aegis.
//
// Configuration is loaded with Koanf v2 from layered sources, highest
// priority last:
//
//  1. Defaults: built-in values for every optional setting
//  2. Config file: optional YAML file (config.yaml, or CONFIG_PATH)
//  3. Environment variables: flat names mapped onto the nested tree
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Bootstrap BootstrapConfig `koanf:"bootstrap"`
	Token     TokenConfig     `koanf:"token"`
	MFA       MFAConfig       `koanf:"mfa"`
	Lockout   LockoutConfig   `koanf:"lockout"`
	Session   SessionConfig   `koanf:"session"`
	Authz     AuthzConfig     `koanf:"authz"`
	Store     StoreConfig     `koanf:"store"`
	Audit     AuditConfig     `koanf:"audit"`
	NATS      NATSConfig      `koanf:"nats"`    // Optional: audit event publishing (-tags nats)
	OIDC      OIDCConfig      `koanf:"oidc"`    // Optional: federated login
	API       APIConfig       `koanf:"api"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Environment selects validation strictness: development or production.
	// Production refuses to start with a weak or missing token secret.
	Environment string `koanf:"environment"`
}

// BootstrapConfig seeds the initial administrator. On first start against
// an empty store, the server creates an admin role with the ("iam", "*")
// permission and this user holding it. Ignored once any user exists.
type BootstrapConfig struct {
	AdminUsername string `koanf:"admin_username"`
	AdminPassword string `koanf:"admin_password"`
	AdminEmail    string `koanf:"admin_email"`
}

// TokenConfig holds signing and lifetime settings for issued tokens.
//
// Access tokens are short-lived and verified statelessly; refresh tokens
// are long-lived, bound to a session and rotated on every use.
type TokenConfig struct {
	// Secret signs all tokens (HS256). Minimum 32 bytes in production.
	Secret string `koanf:"secret"`

	// Issuer is the iss claim stamped into every token.
	Issuer string `koanf:"issuer"`

	AccessTTL  time.Duration `koanf:"access_ttl"`
	RefreshTTL time.Duration `koanf:"refresh_ttl"`

	// ResetTTL bounds password-reset tokens, VerifyTTL email-verification
	// tokens. Both are single-purpose signed tokens, not session tokens.
	ResetTTL  time.Duration `koanf:"reset_ttl"`
	VerifyTTL time.Duration `koanf:"verify_ttl"`
}

// MFAConfig holds TOTP enrollment settings. Step width, accepted clock
// skew and backup-code count are fixed protocol parameters, not config.
type MFAConfig struct {
	// Issuer appears in authenticator apps next to the account name.
	Issuer string `koanf:"issuer"`
}

// LockoutConfig holds failed-authentication lockout settings.
type LockoutConfig struct {
	Enabled     bool `koanf:"enabled"`
	MaxAttempts int  `koanf:"max_attempts"`

	// BaseDuration is the first lockout period; repeated lockouts back off
	// exponentially up to MaxDuration.
	BaseDuration time.Duration `koanf:"base_duration"`
	MaxDuration  time.Duration `koanf:"max_duration"`

	// TrackByIP additionally locks out by source IP, not only by account.
	TrackByIP bool `koanf:"track_by_ip"`

	// RetainFor keeps idle lockout entries around for forensics before
	// the sweeper drops them.
	RetainFor time.Duration `koanf:"retain_for"`
}

// SessionConfig holds session store settings.
type SessionConfig struct {
	// Store selects the backend: memory, badger or redis.
	Store string `koanf:"store"`

	// TTL is the absolute session lifetime; refresh extends tokens but
	// never a session past this point.
	TTL             time.Duration `koanf:"ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`

	// BadgerPath is the on-disk location for the badger backend.
	BadgerPath string `koanf:"badger_path"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
}

// AuthzConfig holds decision-engine settings.
type AuthzConfig struct {
	// SyncInterval is how often the in-memory snapshot is refreshed from
	// the persistence collaborator. Zero disables periodic refresh.
	SyncInterval time.Duration `koanf:"sync_interval"`

	// ExposeReasons returns the decision reason chain in API responses.
	// Off by default: end users get a generic denial while the full chain
	// goes to the audit log.
	ExposeReasons bool `koanf:"expose_reasons"`
}

// StoreConfig holds persistence collaborator settings.
type StoreConfig struct {
	// Driver selects the backend: memory or postgres.
	Driver string `koanf:"driver"`

	PostgresDSN string        `koanf:"postgres_dsn"`
	MaxConns    int32         `koanf:"max_conns"`
	MinConns    int32         `koanf:"min_conns"`
	ConnTimeout time.Duration `koanf:"conn_timeout"`

	// Circuit breaker around the backend. Open circuit surfaces as an
	// UnavailableError to callers, never as a hang.
	BreakerMaxRequests uint32        `koanf:"breaker_max_requests"`
	BreakerInterval    time.Duration `koanf:"breaker_interval"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
	BreakerThreshold   uint32        `koanf:"breaker_threshold"`
}

// AuditConfig holds audit pipeline settings.
type AuditConfig struct {
	Enabled bool `koanf:"enabled"`

	// DBPath is the DuckDB file backing the decision log.
	// Empty string uses an in-memory database.
	DBPath string `koanf:"db_path"`

	BufferSize      int           `koanf:"buffer_size"`
	RetentionDays   int           `koanf:"retention_days"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`

	// HashKey keys the HMAC integrity chain over audit events.
	HashKey string `koanf:"hash_key"`

	// StreamEnabled exposes the live event stream over websocket.
	StreamEnabled bool `koanf:"stream_enabled"`

	LogToStdout bool `koanf:"log_to_stdout"`
}

// NATSConfig holds optional audit event publishing settings.
// Only effective when built with -tags nats.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	// RetentionDays bounds how long the JetStream stream keeps published
	// events for external consumers.
	RetentionDays int `koanf:"retention_days"`
}

// OIDCConfig holds optional federated-login settings.
type OIDCConfig struct {
	Enabled        bool          `koanf:"enabled"`
	IssuerURL      string        `koanf:"issuer_url"`
	ClientID       string        `koanf:"client_id"`
	ClientSecret   string        `koanf:"client_secret"`
	RedirectURL    string        `koanf:"redirect_url"`
	Scopes         []string      `koanf:"scopes"`
	PKCEEnabled    bool          `koanf:"pkce_enabled"`
	RolesClaim     string        `koanf:"roles_claim"`
	DefaultRoles   []string      `koanf:"default_roles"`
	UsernameClaims []string      `koanf:"username_claims"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// APIConfig holds API surface settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`

	// Rate limiting applies to authentication endpoints only; decision
	// checks are bounded by the caller.
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins    []string `koanf:"cors_origins"`
	TrustedProxies []string `koanf:"trusted_proxies"`

	SwaggerEnabled bool `koanf:"swagger_enabled"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load loads and validates the full configuration.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
