// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/tomtom215/aegis/internal/logging"
)

// Federation errors surfaced to the API layer.
var (
	ErrInvalidState        = errors.New("oidc state is invalid or expired")
	ErrTokenExchangeFailed = errors.New("oidc token exchange failed")
	ErrNoIDToken           = errors.New("oidc response carried no id token claims")
)

// FederationConfig configures the OIDC relying party used for federated
// login. Scopes must include "openid"; defaults follow the certified
// client's conventions.
type FederationConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	PKCEEnabled  bool

	// RolesClaim names the claim holding role ids; UsernameClaims is the
	// ordered list of claims tried for the local username.
	RolesClaim     string
	UsernameClaims []string

	// DefaultRoles are granted when the provider sends no roles claim.
	DefaultRoles []string

	// StateTTL bounds how long an authorization flow may stay pending.
	StateTTL time.Duration

	HTTPClient *http.Client
}

// SetDefaults fills unset fields.
func (c *FederationConfig) SetDefaults() {
	if len(c.Scopes) == 0 {
		c.Scopes = []string{"openid", "profile", "email"}
	}
	if c.RolesClaim == "" {
		c.RolesClaim = "roles"
	}
	if len(c.UsernameClaims) == 0 {
		c.UsernameClaims = []string{"preferred_username", "name", "email"}
	}
	if c.StateTTL <= 0 {
		c.StateTTL = 10 * time.Minute
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
}

// Validate checks the required fields.
func (c *FederationConfig) Validate() error {
	if c.IssuerURL == "" {
		return fmt.Errorf("issuer_url is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if c.RedirectURL == "" {
		return fmt.Errorf("redirect_url is required")
	}
	hasOpenID := false
	for _, s := range c.Scopes {
		if s == "openid" {
			hasOpenID = true
			break
		}
	}
	if !hasOpenID && len(c.Scopes) > 0 {
		return fmt.Errorf("scopes must include 'openid'")
	}
	return nil
}

// Federation runs the OIDC authorization-code flow against an upstream
// provider and provisions local users from the returned claims.
type Federation struct {
	rp    rp.RelyingParty
	cfg   FederationConfig
	users *Registry

	mu     sync.Mutex
	states map[string]time.Time // state -> expiry
}

// NewFederation performs OIDC discovery and builds the relying party.
// The context bounds the discovery request.
func NewFederation(ctx context.Context, cfg FederationConfig, users *Registry) (*Federation, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid oidc config: %w", err)
	}

	options := []rp.Option{rp.WithHTTPClient(cfg.HTTPClient)}
	if cfg.PKCEEnabled {
		options = append(options, rp.WithPKCE(nil))
	}
	relyingParty, err := rp.NewRelyingPartyOIDC(ctx,
		cfg.IssuerURL, cfg.ClientID, cfg.ClientSecret, cfg.RedirectURL, cfg.Scopes,
		options...,
	)
	if err != nil {
		return nil, fmt.Errorf("create relying party: %w", err)
	}
	logging.Info().Str("issuer", cfg.IssuerURL).Str("client_id", cfg.ClientID).Msg("OIDC federation configured")
	return &Federation{
		rp:     relyingParty,
		cfg:    cfg,
		users:  users,
		states: map[string]time.Time{},
	}, nil
}

// AuthorizationURL starts a login flow: it mints a state value, remembers
// it until StateTTL, and returns the provider URL to redirect to.
func (f *Federation) AuthorizationURL() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	state := hex.EncodeToString(buf)

	f.mu.Lock()
	f.pruneLocked()
	f.states[state] = time.Now().Add(f.cfg.StateTTL)
	f.mu.Unlock()

	return rp.AuthURL(state, f.rp), nil
}

// pruneLocked drops expired pending states. Callers hold mu.
func (f *Federation) pruneLocked() {
	now := time.Now()
	for s, exp := range f.states {
		if now.After(exp) {
			delete(f.states, s)
		}
	}
}

// consumeState validates a callback state and removes it; each state is
// single-use.
func (f *Federation) consumeState(state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	exp, ok := f.states[state]
	if !ok {
		return ErrInvalidState
	}
	delete(f.states, state)
	if time.Now().After(exp) {
		return ErrInvalidState
	}
	return nil
}

// HandleCallback finishes the flow: consumes the state, exchanges the
// code and provisions (or links) the local user.
func (f *Federation) HandleCallback(ctx context.Context, code, state string) (User, error) {
	if err := f.consumeState(state); err != nil {
		return User{}, err
	}
	tokens, err := rp.CodeExchange[*oidc.IDTokenClaims](ctx, code, f.rp)
	if err != nil {
		logging.Error().Err(err).Msg("OIDC token exchange failed")
		return User{}, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}
	if tokens.IDTokenClaims == nil {
		return User{}, ErrNoIDToken
	}
	return f.provision(tokens.IDTokenClaims)
}

// provision maps upstream claims to a local user: an existing federated
// identity is reused, a matching verified email gets linked, anything
// else creates a fresh active account with the default roles.
func (f *Federation) provision(claims *oidc.IDTokenClaims) (User, error) {
	issuer := claims.Issuer
	subject := claims.Subject

	if u, ok := f.users.ByExternalIdentity(issuer, subject); ok {
		f.users.RecordLogin(u.ID)
		return u, nil
	}

	if claims.Email != "" && bool(claims.EmailVerified) {
		if existing, err := f.users.ByEmail(claims.Email); err == nil {
			linked, err := f.users.Update(existing.ID, func(u *User) error {
				u.ExternalIssuer = issuer
				u.ExternalSubject = subject
				return nil
			})
			if err != nil {
				return User{}, err
			}
			logging.Info().Str("user_id", linked.ID).Str("issuer", issuer).Msg("Linked federated identity to existing user")
			f.users.RecordLogin(linked.ID)
			return linked, nil
		}
	}

	username := f.extractUsername(claims)
	if username == "" {
		username = subject
	}
	roles := extractStringSlice(claims.Claims, f.cfg.RolesClaim)
	if len(roles) == 0 {
		roles = append([]string(nil), f.cfg.DefaultRoles...)
	}

	created, err := f.users.Create(User{
		Username:        username,
		Email:           claims.Email,
		Status:          StatusActive,
		EmailVerified:   bool(claims.EmailVerified),
		Roles:           roles,
		ExternalIssuer:  issuer,
		ExternalSubject: subject,
	})
	if err != nil {
		return User{}, fmt.Errorf("provision federated user: %w", err)
	}
	logging.Info().Str("user_id", created.ID).Str("issuer", issuer).Msg("Provisioned federated user")
	return created, nil
}

// extractUsername walks the configured claim priority and returns the
// first non-empty value.
func (f *Federation) extractUsername(claims *oidc.IDTokenClaims) string {
	for _, name := range f.cfg.UsernameClaims {
		switch name {
		case "preferred_username":
			if claims.PreferredUsername != "" {
				return claims.PreferredUsername
			}
		case "name":
			if claims.Name != "" {
				return claims.Name
			}
		case "email":
			if claims.Email != "" {
				return claims.Email
			}
		default:
			if claims.Claims != nil {
				if v, ok := claims.Claims[name].(string); ok && v != "" {
					return v
				}
			}
		}
	}
	return ""
}

// extractStringSlice reads a claim as a string slice, tolerating the
// []any form JSON decoding produces and single string values.
func extractStringSlice(claims map[string]any, name string) []string {
	if claims == nil || name == "" {
		return nil
	}
	switch v := claims[name].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}
