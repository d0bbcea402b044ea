// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// minSecretLength is the minimum byte length accepted for signing and
// hashing secrets in production mode.
const minSecretLength = 32

// minBootstrapPasswordLength bounds the seeded admin password.
const minBootstrapPasswordLength = 8

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateBootstrap(); err != nil {
		return err
	}
	if err := c.validateToken(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateAudit(); err != nil {
		return err
	}
	if err := c.validateOIDC(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}

	return nil
}

func (c *Config) validateToken() error {
	if c.Token.Secret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		return nil
	}

	if len(c.Token.Secret) < minSecretLength && c.IsProduction() {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in production, got %d",
			minSecretLength, len(c.Token.Secret))
	}

	if c.Token.AccessTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if c.Token.RefreshTTL <= c.Token.AccessTTL {
		return fmt.Errorf("REFRESH_TOKEN_TTL (%s) must exceed ACCESS_TOKEN_TTL (%s)",
			c.Token.RefreshTTL, c.Token.AccessTTL)
	}

	return nil
}

// validateBootstrap checks the initial-admin settings. All three fields
// travel together: a username without credentials would seed an account
// nobody can log into.
func (c *Config) validateBootstrap() error {
	if c.Bootstrap.AdminUsername == "" {
		if c.Bootstrap.AdminPassword != "" {
			return fmt.Errorf("ADMIN_USERNAME is required when ADMIN_PASSWORD is set")
		}
		return nil
	}

	if len(c.Bootstrap.AdminPassword) < minBootstrapPasswordLength {
		return fmt.Errorf("ADMIN_PASSWORD must be at least %d characters when ADMIN_USERNAME is set",
			minBootstrapPasswordLength)
	}
	if c.Bootstrap.AdminEmail == "" || !strings.Contains(c.Bootstrap.AdminEmail, "@") {
		return fmt.Errorf("ADMIN_EMAIL must be a valid address when ADMIN_USERNAME is set")
	}

	return nil
}

func (c *Config) validateSession() error {
	switch c.Session.Store {
	case "memory", "badger", "redis":
	default:
		return fmt.Errorf("SESSION_STORE must be memory, badger or redis, got %q", c.Session.Store)
	}

	if c.Session.Store == "badger" && c.Session.BadgerPath == "" {
		return fmt.Errorf("SESSION_BADGER_PATH is required when SESSION_STORE=badger")
	}
	if c.Session.Store == "redis" && c.Session.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when SESSION_STORE=redis")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("STORE_DRIVER must be memory or postgres, got %q", c.Store.Driver)
	}

	if c.Store.Driver == "postgres" {
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when STORE_DRIVER=postgres")
		}
		if c.Store.MaxConns < 1 {
			return fmt.Errorf("STORE_MAX_CONNS must be at least 1, got %d", c.Store.MaxConns)
		}
		if c.Store.MinConns > c.Store.MaxConns {
			return fmt.Errorf("STORE_MIN_CONNS (%d) must not exceed STORE_MAX_CONNS (%d)",
				c.Store.MinConns, c.Store.MaxConns)
		}
	}

	return nil
}

func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}

	if c.Audit.BufferSize < 1 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE must be at least 1, got %d", c.Audit.BufferSize)
	}
	if c.Audit.RetentionDays < 1 {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must be at least 1, got %d", c.Audit.RetentionDays)
	}
	if c.IsProduction() && c.Audit.HashKey != "" && len(c.Audit.HashKey) < minSecretLength {
		return fmt.Errorf("AUDIT_HASH_KEY must be at least %d characters in production, got %d",
			minSecretLength, len(c.Audit.HashKey))
	}

	return nil
}

func (c *Config) validateOIDC() error {
	if !c.OIDC.Enabled {
		return nil
	}

	if c.OIDC.IssuerURL == "" {
		return fmt.Errorf("OIDC_ISSUER_URL is required when OIDC_ENABLED=true")
	}
	if err := validateHTTPURL(c.OIDC.IssuerURL, "OIDC_ISSUER_URL"); err != nil {
		return err
	}
	if c.OIDC.ClientID == "" {
		return fmt.Errorf("OIDC_CLIENT_ID is required when OIDC_ENABLED=true")
	}
	if c.OIDC.RedirectURL == "" {
		return fmt.Errorf("OIDC_REDIRECT_URL is required when OIDC_ENABLED=true")
	}
	return validateHTTPURL(c.OIDC.RedirectURL, "OIDC_REDIRECT_URL")
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled", "":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, got %q",
			c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console", "":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}

	return nil
}

// validateHTTPURL checks that the value parses as an absolute http(s) URL.
func validateHTTPURL(raw, name string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https scheme, got %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", name)
	}
	return nil
}
