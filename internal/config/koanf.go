// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/aegis/config.yaml",
	"/etc/aegis/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with every optional setting defaulted.
// Defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8089,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Token: TokenConfig{
			Secret:     "",
			Issuer:     "aegis",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
			ResetTTL:   time.Hour,
			VerifyTTL:  48 * time.Hour,
		},
		MFA: MFAConfig{
			Issuer: "Aegis",
		},
		Lockout: LockoutConfig{
			Enabled:      true,
			MaxAttempts:  5,
			BaseDuration: 30 * time.Minute,
			MaxDuration:  24 * time.Hour,
			TrackByIP:    false,
			RetainFor:    24 * time.Hour,
		},
		Session: SessionConfig{
			Store:           "memory",
			TTL:             30 * 24 * time.Hour,
			CleanupInterval: time.Hour,
			BadgerPath:      "/data/sessions",
			RedisAddr:       "",
			RedisPassword:   "",
			RedisDB:         0,
		},
		Authz: AuthzConfig{
			SyncInterval:  0,
			ExposeReasons: false,
		},
		Store: StoreConfig{
			Driver:             "memory",
			PostgresDSN:        "",
			MaxConns:           10,
			MinConns:           2,
			ConnTimeout:        5 * time.Second,
			BreakerMaxRequests: 3,
			BreakerInterval:    60 * time.Second,
			BreakerTimeout:     30 * time.Second,
			BreakerThreshold:   5,
		},
		Audit: AuditConfig{
			Enabled:         true,
			DBPath:          "/data/aegis-audit.duckdb",
			BufferSize:      1000,
			RetentionDays:   90,
			CleanupInterval: 24 * time.Hour,
			HashKey:         "",
			StreamEnabled:   false,
			LogToStdout:     false,
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			StoreDir:       "/data/nats/jetstream",
			MaxMemory:      1 << 30,
			MaxStore:       10 << 30,
			RetentionDays:  7,
		},
		OIDC: OIDCConfig{
			Enabled:        false,
			IssuerURL:      "",
			ClientID:       "",
			ClientSecret:   "",
			RedirectURL:    "",
			Scopes:         []string{"openid", "profile", "email"},
			PKCEEnabled:    true,
			RolesClaim:     "roles",
			DefaultRoles:   []string{"viewer"},
			UsernameClaims: []string{"preferred_username", "email"},
			RequestTimeout: 30 * time.Second,
		},
		API: APIConfig{
			DefaultPageSize:   20,
			MaxPageSize:       100,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
			TrustedProxies:    []string{},
			SwaggerEnabled:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf assembles the runtime configuration from three layers,
// each overriding the one before it: struct defaults, an optional YAML
// config file, and flat environment variables.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load default configuration: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	// JWT_SECRET -> token.secret, SESSION_STORE -> session.store, etc.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("split comma-separated values: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file, env override first.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when supplied through environment variables.
var sliceConfigPaths = []string{
	"api.cors_origins",
	"api.trusted_proxies",
	"oidc.scopes",
	"oidc.default_roles",
	"oidc.username_claims",
}

// processSliceFields converts comma-separated string values to slices
// for known slice fields. Only strings need converting; YAML already
// yields slices, which the type assertion leaves alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok || raw == "" {
			continue
		}

		parts := strings.Split(raw, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envKeyMap maps flat environment variable names onto the nested
// configuration tree. Variables not listed here never reach the config,
// which keeps unrelated environment noise out.
var envKeyMap = map[string]string{
	// Server
	"http_host":          "server.host",
	"http_port":          "server.port",
	"http_read_timeout":  "server.read_timeout",
	"http_write_timeout": "server.write_timeout",
	"http_idle_timeout":  "server.idle_timeout",
	"shutdown_timeout":   "server.shutdown_timeout",
	"environment":        "server.environment",

	// Tokens
	"jwt_secret":        "token.secret",
	"jwt_issuer":        "token.issuer",
	"access_token_ttl":  "token.access_ttl",
	"refresh_token_ttl": "token.refresh_ttl",
	"reset_token_ttl":   "token.reset_ttl",
	"verify_token_ttl":  "token.verify_ttl",

	// Bootstrap
	"admin_username": "bootstrap.admin_username",
	"admin_password": "bootstrap.admin_password",
	"admin_email":    "bootstrap.admin_email",

	// MFA
	"mfa_issuer": "mfa.issuer",

	// Lockout
	"lockout_enabled":       "lockout.enabled",
	"lockout_max_attempts":  "lockout.max_attempts",
	"lockout_base_duration": "lockout.base_duration",
	"lockout_max_duration":  "lockout.max_duration",
	"lockout_track_by_ip":   "lockout.track_by_ip",
	"lockout_retain_for":    "lockout.retain_for",

	// Sessions
	"session_store":            "session.store",
	"session_ttl":              "session.ttl",
	"session_cleanup_interval": "session.cleanup_interval",
	"session_badger_path":      "session.badger_path",
	"redis_addr":               "session.redis_addr",
	"redis_password":           "session.redis_password",
	"redis_db":                 "session.redis_db",

	// Decision engine
	"authz_sync_interval":  "authz.sync_interval",
	"authz_expose_reasons": "authz.expose_reasons",

	// Persistence
	"store_driver":         "store.driver",
	"postgres_dsn":         "store.postgres_dsn",
	"store_max_conns":      "store.max_conns",
	"store_min_conns":      "store.min_conns",
	"store_conn_timeout":   "store.conn_timeout",
	"breaker_max_requests": "store.breaker_max_requests",
	"breaker_interval":     "store.breaker_interval",
	"breaker_timeout":      "store.breaker_timeout",
	"breaker_threshold":    "store.breaker_threshold",

	// Audit
	"audit_enabled":          "audit.enabled",
	"audit_db_path":          "audit.db_path",
	"audit_buffer_size":      "audit.buffer_size",
	"audit_retention_days":   "audit.retention_days",
	"audit_cleanup_interval": "audit.cleanup_interval",
	"audit_hash_key":         "audit.hash_key",
	"audit_stream_enabled":   "audit.stream_enabled",
	"audit_log_to_stdout":    "audit.log_to_stdout",

	// NATS
	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded_server",
	"nats_store_dir":      "nats.store_dir",
	"nats_max_memory":     "nats.max_memory",
	"nats_max_store":      "nats.max_store",
	"nats_retention_days": "nats.retention_days",

	// OIDC
	"oidc_enabled":         "oidc.enabled",
	"oidc_issuer_url":      "oidc.issuer_url",
	"oidc_client_id":       "oidc.client_id",
	"oidc_client_secret":   "oidc.client_secret",
	"oidc_redirect_url":    "oidc.redirect_url",
	"oidc_scopes":          "oidc.scopes",
	"oidc_pkce_enabled":    "oidc.pkce_enabled",
	"oidc_roles_claim":     "oidc.roles_claim",
	"oidc_default_roles":   "oidc.default_roles",
	"oidc_username_claims": "oidc.username_claims",
	"oidc_request_timeout": "oidc.request_timeout",

	// API
	"api_default_page_size": "api.default_page_size",
	"api_max_page_size":     "api.max_page_size",
	"rate_limit_requests":   "api.rate_limit_reqs",
	"rate_limit_window":     "api.rate_limit_window",
	"disable_rate_limit":    "api.rate_limit_disabled",
	"cors_origins":          "api.cors_origins",
	"trusted_proxies":       "api.trusted_proxies",
	"swagger_enabled":       "api.swagger_enabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc is the env.Provider key callback. It runs once per
// environment variable, so the lookup table lives at package level.
func envTransformFunc(key string) string {
	return envKeyMap[strings.ToLower(key)]
}

// WatchConfigFile invokes callback whenever the file at path changes.
// Swapping the live configuration, and guarding that swap with a lock,
// is the caller's problem.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
