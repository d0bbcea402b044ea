// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/aegis/internal/authz"
)

// Token kinds carried in the token_type claim. A token of one kind never
// verifies as another.
const (
	KindAccess        = "access"
	KindRefresh       = "refresh"
	KindPasswordReset = "password_reset"
	KindEmailVerify   = "email_verify"
)

// minSecretLength guards against weak HMAC keys.
const minSecretLength = 32

// Claims is the JWT payload for every token kind the service issues.
type Claims struct {
	TokenType string `json:"token_type"`

	// SessionID binds access and refresh tokens to their session.
	SessionID string `json:"sid,omitempty"`

	// RefreshVersion is the rotation counter; only refresh tokens carry
	// it. A mismatch against the session marks the token as reused.
	RefreshVersion int `json:"rv,omitempty"`

	// UserVersion is the user's token version at issue time. Password
	// changes bump the user version, invalidating older tokens.
	UserVersion int `json:"uv,omitempty"`

	// Trust records how the session authenticated (password or mfa).
	Trust string `json:"trust,omitempty"`

	jwt.RegisteredClaims
}

// ManagerConfig configures token signing and lifetimes.
type ManagerConfig struct {
	// Secret is the HS256 signing key, minimum 32 bytes.
	Secret string

	Issuer string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
	VerifyTTL  time.Duration
}

// SetDefaults fills unset lifetimes.
func (c *ManagerConfig) SetDefaults() {
	if c.Issuer == "" {
		c.Issuer = "aegis"
	}
	if c.AccessTTL <= 0 {
		c.AccessTTL = 15 * time.Minute
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = 7 * 24 * time.Hour
	}
	if c.ResetTTL <= 0 {
		c.ResetTTL = time.Hour
	}
	if c.VerifyTTL <= 0 {
		c.VerifyTTL = 24 * time.Hour
	}
}

// Manager signs and verifies the service's JWTs with HMAC-SHA256.
type Manager struct {
	secret []byte
	cfg    ManagerConfig
	now    func() time.Time
}

// NewManager validates the signing secret and returns a manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", minSecretLength)
	}
	cfg.SetDefaults()
	return &Manager{
		secret: []byte(cfg.Secret),
		cfg:    cfg,
		now:    time.Now,
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.cfg.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.cfg.RefreshTTL }

func (m *Manager) sign(claims *Claims, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(ttl)
	claims.RegisteredClaims.Issuer = m.cfg.Issuer
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.NotBefore = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(expiresAt)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", claims.TokenType, err)
	}
	return signed, expiresAt, nil
}

// IssueAccess mints an access token for an active session.
func (m *Manager) IssueAccess(userID, sessionID string, userVersion int, trust authz.TrustLevel) (string, time.Time, error) {
	return m.sign(&Claims{
		TokenType:        KindAccess,
		SessionID:        sessionID,
		UserVersion:      userVersion,
		Trust:            string(trust),
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}, m.cfg.AccessTTL)
}

// IssueRefresh mints a refresh token bound to the session's current
// rotation counter.
func (m *Manager) IssueRefresh(userID, sessionID string, refreshVersion, userVersion int) (string, time.Time, error) {
	return m.sign(&Claims{
		TokenType:        KindRefresh,
		SessionID:        sessionID,
		RefreshVersion:   refreshVersion,
		UserVersion:      userVersion,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}, m.cfg.RefreshTTL)
}

// IssuePasswordReset mints a single-purpose password reset token.
func (m *Manager) IssuePasswordReset(userID string, userVersion int) (string, time.Time, error) {
	return m.sign(&Claims{
		TokenType:        KindPasswordReset,
		UserVersion:      userVersion,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}, m.cfg.ResetTTL)
}

// IssueEmailVerification mints an email verification token.
func (m *Manager) IssueEmailVerification(userID string) (string, time.Time, error) {
	return m.sign(&Claims{
		TokenType:        KindEmailVerify,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}, m.cfg.VerifyTTL)
}

// Parse verifies signature, expiry and kind, and returns the claims.
// Signature and time checks happen locally; no store is consulted.
func (m *Manager) Parse(tokenString, wantKind string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.cfg.Issuer), jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		return nil, NewAuthenticationError("parse token: " + err.Error())
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, NewAuthenticationError("invalid token claims")
	}
	if claims.TokenType != wantKind {
		return nil, NewAuthenticationError(fmt.Sprintf("token is %q, want %q", claims.TokenType, wantKind))
	}
	if claims.Subject == "" {
		return nil, NewAuthenticationError("token has no subject")
	}
	return claims, nil
}
