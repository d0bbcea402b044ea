// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/aegis/internal/identity"
	"github.com/tomtom215/aegis/internal/token"
)

// FederationHandlers serves the OIDC authorization-code flow. The
// upstream provider authenticates; the callback provisions or links a
// local user and opens a session the same way a password login does.
type FederationHandlers struct {
	federation *identity.Federation
	tokens     *token.Service
}

// NewFederationHandlers creates the federated login handler group.
func NewFederationHandlers(federation *identity.Federation, tokens *token.Service) *FederationHandlers {
	return &FederationHandlers{federation: federation, tokens: tokens}
}

// Start redirects to the provider's authorization endpoint.
//
// @Summary Start federated login
// @Tags Auth
// @Success 302 "Redirect to the identity provider"
// @Failure 503 {object} APIResponse "Federation unavailable"
// @Router /auth/oidc/login [get]
func (h *FederationHandlers) Start(w http.ResponseWriter, r *http.Request) {
	url, err := h.federation.AuthorizationURL()
	if err != nil {
		loggerFrom(r).Error().Err(err).Msg("Failed to start OIDC flow")
		NewResponseWriter(w, r).ServiceUnavailable("federated login unavailable")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// Callback finishes the flow and issues tokens. MFA-enrolled users
// still land in the mfa_pending state and must verify before tokens
// are issued.
//
// @Summary Federated login callback
// @Tags Auth
// @Produce json
// @Param code query string true "Authorization code"
// @Param state query string true "Flow state"
// @Success 200 {object} APIResponse{data=LoginResponse} "Session opened"
// @Failure 400 {object} APIResponse "Invalid or expired state"
// @Failure 401 {object} APIResponse "Authentication failed"
// @Router /auth/oidc/callback [get]
func (h *FederationHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		rw.BadRequest("code and state are required")
		return
	}

	u, err := h.federation.HandleCallback(r.Context(), code, state)
	if errors.Is(err, identity.ErrInvalidState) {
		rw.BadRequest("state is invalid or expired")
		return
	}
	if err != nil {
		loggerFrom(r).Debug().Err(err).Msg("OIDC callback rejected")
		rw.Unauthorized(genericAuthMessage)
		return
	}

	result, err := h.tokens.LoginExternal(r.Context(), u.ID, clientIP(r), r.UserAgent())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if result.MFARequired {
		rw.Success(LoginResponse{MFARequired: true, SessionID: result.Session.ID})
		return
	}

	pair, err := h.tokens.IssueTokens(r.Context(), result.Session.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	rw.Success(LoginResponse{SessionID: result.Session.ID, Tokens: pair})
}
