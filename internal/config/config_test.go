// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8089 {
		t.Errorf("expected default port 8089, got %d", cfg.Server.Port)
	}
	if cfg.Token.AccessTTL != 15*time.Minute {
		t.Errorf("expected access TTL 15m, got %s", cfg.Token.AccessTTL)
	}
	if cfg.Token.RefreshTTL != 30*24*time.Hour {
		t.Errorf("expected refresh TTL 720h, got %s", cfg.Token.RefreshTTL)
	}
	if cfg.MFA.Issuer != "Aegis" {
		t.Errorf("expected MFA issuer Aegis, got %q", cfg.MFA.Issuer)
	}
	if cfg.Lockout.RetainFor != 24*time.Hour {
		t.Errorf("expected lockout retention 24h, got %s", cfg.Lockout.RetainFor)
	}
	if cfg.Session.Store != "memory" {
		t.Errorf("expected memory session store, got %q", cfg.Session.Store)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("expected memory store driver, got %q", cfg.Store.Driver)
	}
	if !cfg.Audit.Enabled {
		t.Error("expected audit enabled by default")
	}
	if cfg.Lockout.MaxAttempts != 5 {
		t.Errorf("expected 5 lockout attempts, got %d", cfg.Lockout.MaxAttempts)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("HTTP_PORT", "9443")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("SESSION_STORE", "memory")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9443 {
		t.Errorf("expected port 9443 from env, got %d", cfg.Server.Port)
	}
	if cfg.Token.Secret != "0123456789abcdef0123456789abcdef" {
		t.Error("JWT_SECRET env override not applied")
	}
	if cfg.Token.AccessTTL != 5*time.Minute {
		t.Errorf("expected access TTL 5m from env, got %s", cfg.Token.AccessTTL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug log level from env, got %q", cfg.Logging.Level)
	}
}

func TestLoadSliceFromEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.API.CORSOrigins) != 2 {
		t.Fatalf("expected 2 CORS origins, got %v", cfg.API.CORSOrigins)
	}
	if cfg.API.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("expected trimmed origin, got %q", cfg.API.CORSOrigins[1])
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
server:
  port: 7070
token:
  issuer: test-issuer
session:
  store: memory
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("expected port 7070 from file, got %d", cfg.Server.Port)
	}
	if cfg.Token.Issuer != "test-issuer" {
		t.Errorf("expected issuer from file, got %q", cfg.Token.Issuer)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("HTTP_PORT", "7071")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 7071 {
		t.Errorf("env should override file: expected 7071, got %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "HTTP_PORT",
		},
		{
			name:    "invalid environment",
			mutate:  func(c *Config) { c.Server.Environment = "staging" },
			wantErr: "ENVIRONMENT",
		},
		{
			name: "production requires secret",
			mutate: func(c *Config) {
				c.Server.Environment = "production"
				c.Token.Secret = ""
			},
			wantErr: "JWT_SECRET is required",
		},
		{
			name: "production rejects short secret",
			mutate: func(c *Config) {
				c.Server.Environment = "production"
				c.Token.Secret = "short"
			},
			wantErr: "at least 32",
		},
		{
			name: "refresh must exceed access",
			mutate: func(c *Config) {
				c.Token.Secret = "0123456789abcdef0123456789abcdef"
				c.Token.AccessTTL = time.Hour
				c.Token.RefreshTTL = time.Minute
			},
			wantErr: "REFRESH_TOKEN_TTL",
		},
		{
			name:    "invalid session store",
			mutate:  func(c *Config) { c.Session.Store = "etcd" },
			wantErr: "SESSION_STORE",
		},
		{
			name: "redis store requires addr",
			mutate: func(c *Config) {
				c.Session.Store = "redis"
				c.Session.RedisAddr = ""
			},
			wantErr: "REDIS_ADDR",
		},
		{
			name:    "invalid store driver",
			mutate:  func(c *Config) { c.Store.Driver = "sqlite" },
			wantErr: "STORE_DRIVER",
		},
		{
			name: "postgres requires dsn",
			mutate: func(c *Config) {
				c.Store.Driver = "postgres"
				c.Store.PostgresDSN = ""
			},
			wantErr: "POSTGRES_DSN",
		},
		{
			name: "oidc requires issuer",
			mutate: func(c *Config) {
				c.OIDC.Enabled = true
				c.OIDC.IssuerURL = ""
			},
			wantErr: "OIDC_ISSUER_URL",
		},
		{
			name: "oidc rejects non-http issuer",
			mutate: func(c *Config) {
				c.OIDC.Enabled = true
				c.OIDC.IssuerURL = "ftp://idp.example.com"
				c.OIDC.ClientID = "client"
				c.OIDC.RedirectURL = "https://app.example.com/callback"
			},
			wantErr: "http or https",
		},
		{
			name: "valid bootstrap admin",
			mutate: func(c *Config) {
				c.Bootstrap.AdminUsername = "admin"
				c.Bootstrap.AdminPassword = "correct-horse-battery"
				c.Bootstrap.AdminEmail = "admin@example.com"
			},
			wantErr: "",
		},
		{
			name: "bootstrap rejects short password",
			mutate: func(c *Config) {
				c.Bootstrap.AdminUsername = "admin"
				c.Bootstrap.AdminPassword = "short"
				c.Bootstrap.AdminEmail = "admin@example.com"
			},
			wantErr: "ADMIN_PASSWORD",
		},
		{
			name: "bootstrap requires email",
			mutate: func(c *Config) {
				c.Bootstrap.AdminUsername = "admin"
				c.Bootstrap.AdminPassword = "correct-horse-battery"
			},
			wantErr: "ADMIN_EMAIL",
		},
		{
			name: "bootstrap password without username",
			mutate: func(c *Config) {
				c.Bootstrap.AdminPassword = "correct-horse-battery"
			},
			wantErr: "ADMIN_USERNAME",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "LOG_LEVEL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestEnvTransformSkipsUnknown(t *testing.T) {
	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("expected unmapped env var to be skipped, got %q", got)
	}
	if got := envTransformFunc("JWT_SECRET"); got != "token.secret" {
		t.Errorf("expected token.secret, got %q", got)
	}
	if got := envTransformFunc("ADMIN_USERNAME"); got != "bootstrap.admin_username" {
		t.Errorf("expected bootstrap.admin_username, got %q", got)
	}
	if got := envTransformFunc("session_store"); got != "session.store" {
		t.Errorf("expected lowercase input to map too, got %q", got)
	}
}

func TestIsProduction(t *testing.T) {
	cfg := defaultConfig()
	if cfg.IsProduction() {
		t.Error("development config reported as production")
	}
	cfg.Server.Environment = "production"
	if !cfg.IsProduction() {
		t.Error("production config not detected")
	}
}
