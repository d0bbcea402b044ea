// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/aegis/internal/audit"
	"github.com/tomtom215/aegis/internal/identity"
	"github.com/tomtom215/aegis/internal/store"
	"github.com/tomtom215/aegis/internal/token"
)

// AuthHandlers serves registration, login, token lifecycle, MFA
// enrollment and account recovery.
type AuthHandlers struct {
	tokens *token.Service
	users  *identity.Registry
	mirror *store.Mirror
	audit  *audit.Logger
}

// NewAuthHandlers creates the authentication handler group.
func NewAuthHandlers(tokens *token.Service, users *identity.Registry, mirror *store.Mirror, auditor *audit.Logger) *AuthHandlers {
	return &AuthHandlers{
		tokens: tokens,
		users:  users,
		mirror: mirror,
		audit:  auditor,
	}
}

// RegisterResponse returns the created account and its email
// verification token. Token delivery is an external concern; accounts
// stay pending until the token is redeemed.
type RegisterResponse struct {
	User              identity.User `json:"user"`
	VerificationToken string        `json:"verification_token"`
}

// LoginResponse is returned by login and MFA verification. Tokens is nil
// while the session still awaits its second factor.
type LoginResponse struct {
	MFARequired bool             `json:"mfa_required"`
	SessionID   string           `json:"session_id"`
	Tokens      *token.TokenPair `json:"tokens,omitempty"`
}

// Register creates a local account in pending_verification status.
//
// @Summary Register a new account
// @Description Creates a local user account. The account stays in pending_verification status until the returned email verification token is redeemed. Delivering the token to the user is an external concern.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Account details"
// @Success 201 {object} APIResponse{data=RegisterResponse} "Account created"
// @Failure 400 {object} APIResponse "Validation failed or username/email in use"
// @Failure 429 {object} APIResponse "Rate limit exceeded"
// @Router /auth/register [post]
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := identity.ValidatePassword(req.Password); err != nil {
		writeDomainError(w, r, err)
		return
	}
	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	user, err := h.mirror.CreateUser(r.Context(), identity.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Status:       identity.StatusPendingVerification,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	verifyToken, err := h.tokens.RequestEmailVerification(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	NewResponseWriter(w, r).Created(RegisterResponse{
		User:              user,
		VerificationToken: verifyToken,
	})
}

// Login authenticates credentials and opens a session.
//
// @Summary Log in with username and password
// @Description Verifies credentials and opens a session. When MFA is enabled for the account the response carries mfa_required=true and a session id for the verify step; otherwise tokens are issued directly.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} APIResponse{data=LoginResponse} "Session opened"
// @Failure 401 {object} APIResponse "Authentication failed"
// @Failure 429 {object} APIResponse "Locked out or rate limited"
// @Router /auth/login [post]
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.tokens.Login(r.Context(), req.Username, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if result.MFARequired {
		NewResponseWriter(w, r).Success(LoginResponse{
			MFARequired: true,
			SessionID:   result.Session.ID,
		})
		return
	}

	pair, err := h.tokens.IssueTokens(r.Context(), result.Session.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	NewResponseWriter(w, r).Success(LoginResponse{
		SessionID: result.Session.ID,
		Tokens:    pair,
	})
}

// VerifyMFA completes a login that required a second factor.
//
// @Summary Verify the second factor for a pending session
// @Description Accepts a TOTP code or a single-use backup code for a session in password_verified state, then issues tokens.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body MFAVerifyRequest true "Session id and code"
// @Success 200 {object} APIResponse{data=LoginResponse} "Tokens issued"
// @Failure 401 {object} APIResponse "Code rejected"
// @Failure 429 {object} APIResponse "Locked out or rate limited"
// @Router /auth/mfa/verify [post]
func (h *AuthHandlers) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req MFAVerifyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sess, err := h.tokens.VerifyMFA(r.Context(), req.SessionID, req.Code)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	pair, err := h.tokens.IssueTokens(r.Context(), sess.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	NewResponseWriter(w, r).Success(LoginResponse{
		SessionID: sess.ID,
		Tokens:    pair,
	})
}

// Refresh rotates a refresh token.
//
// @Summary Refresh the token pair
// @Description Exchanges a refresh token for a new pair. Each refresh token is single-use; presenting a rotated-out token revokes the whole session.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} APIResponse{data=token.TokenPair} "New token pair"
// @Failure 401 {object} APIResponse "Token rejected or session revoked"
// @Router /auth/refresh [post]
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.tokens.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	NewResponseWriter(w, r).Success(pair)
}

// Logout ends the caller's session.
//
// @Summary Log out
// @Description Ends the caller's session. Outstanding access tokens stay valid until expiry; refresh is refused immediately. Idempotent.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 204 "Session ended"
// @Failure 401 {object} APIResponse "Not authenticated"
// @Router /auth/logout [post]
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized(genericAuthMessage)
		return
	}

	if err := h.tokens.Logout(r.Context(), caller.SessionID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	NewResponseWriter(w, r).NoContent()
}

// Sessions lists the caller's sessions.
//
// @Summary List own sessions
// @Description Returns every live session for the authenticated user, including device metadata captured at login.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=[]token.Session} "Sessions"
// @Failure 401 {object} APIResponse "Not authenticated"
// @Router /auth/sessions [get]
func (h *AuthHandlers) Sessions(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized(genericAuthMessage)
		return
	}

	sessions, err := h.tokens.Sessions(r.Context(), caller.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	NewResponseWriter(w, r).Success(sessions)
}

// RevokeSession revokes one of the caller's sessions.
//
// @Summary Revoke one of your sessions
// @Description Revokes a session belonging to the authenticated user. Sessions of other users are reported as not found.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Success 204 "Session revoked"
// @Failure 401 {object} APIResponse "Not authenticated"
// @Failure 404 {object} APIResponse "No such session for this user"
// @Router /auth/sessions/{id} [delete]
func (h *AuthHandlers) RevokeSession(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized(genericAuthMessage)
		return
	}

	id := chi.URLParam(r, "id")

	// Ownership check before revoking keeps other users' session ids
	// unprobeable: foreign ids 404 the same way unknown ids do.
	sessions, err := h.tokens.Sessions(r.Context(), caller.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	owned := false
	for _, s := range sessions {
		if s.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		NewResponseWriter(w, r).NotFound("session " + sanitizeLogValue(id) + " not found")
		return
	}

	if err := h.tokens.RevokeSession(r.Context(), id, "revoked by user"); err != nil {
		writeDomainError(w, r, err)
		return
	}

	NewResponseWriter(w, r).NoContent()
}

// MFASetup starts TOTP enrollment.
//
// @Summary Begin MFA enrollment
// @Description Generates a TOTP secret, provisioning URL and backup codes. MFA stays disabled until the enrollment is confirmed with a valid code. The secret and backup codes are not retrievable again.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=token.Enrollment} "Enrollment material"
// @Failure 401 {object} APIResponse "Not authenticated"
// @Router /auth/mfa/setup [post]
func (h *AuthHandlers) MFASetup(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized(genericAuthMessage)
		return
	}

	enrollment, err := h.tokens.MFA().Setup(caller.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	NewResponseWriter(w, r).Success(enrollment)
}

// MFAConfirm proves the authenticator was enrolled and enables MFA.
//
// @Summary Confirm MFA enrollment
// @Description Verifies a code from the newly enrolled authenticator and turns MFA on for the account.
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body MFAConfirmRequest true "TOTP code"
// @Success 204 "MFA enabled"
// @Failure 401 {object} APIResponse "Code rejected"
// @Router /auth/mfa/confirm [post]
func (h *AuthHandlers) MFAConfirm(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized(genericAuthMessage)
		return
	}

	var req MFAConfirmRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.tokens.MFA().Confirm(caller.UserID, req.Code); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.recordMFAChange(r, caller, "mfa_enabled")
	NewResponseWriter(w, r).NoContent()
}

// MFADisable turns MFA off for the caller's account.
//
// @Summary Disable MFA
// @Description Removes the TOTP secret and backup codes from the account.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 204 "MFA disabled"
// @Failure 401 {object} APIResponse "Not authenticated"
// @Router /auth/mfa [delete]
func (h *AuthHandlers) MFADisable(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized(genericAuthMessage)
		return
	}

	if err := h.tokens.MFA().Disable(caller.UserID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.recordMFAChange(r, caller, "mfa_disabled")
	NewResponseWriter(w, r).NoContent()
}

// MFABackupCodes replaces the caller's backup codes.
//
// @Summary Regenerate backup codes
// @Description Invalidates all outstanding backup codes and returns a fresh set. The plaintext codes are not retrievable again.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=[]string} "New backup codes"
// @Failure 401 {object} APIResponse "Not authenticated"
// @Router /auth/mfa/backup-codes [post]
func (h *AuthHandlers) MFABackupCodes(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized(genericAuthMessage)
		return
	}

	codes, err := h.tokens.MFA().RegenerateBackupCodes(caller.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.recordMFAChange(r, caller, "mfa_backup_codes_regenerated")
	NewResponseWriter(w, r).Success(codes)
}

// ForgotPassword records a password reset request.
//
// @Summary Request a password reset
// @Description Always answers 202 with the same body whether or not the account exists, so the endpoint cannot be used to probe accounts. The reset token itself is issued to administrators via POST /admin/users/{id}/password-reset.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Username or email"
// @Success 202 {object} APIResponse "Request recorded"
// @Failure 429 {object} APIResponse "Rate limit exceeded"
// @Router /auth/password/forgot [post]
func (h *AuthHandlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	// The outcome is deliberately not reflected in the response.
	if _, err := h.tokens.RequestPasswordReset(r.Context(), req.Username); err != nil {
		logger := loggerFrom(r)
		logger.Debug().Err(err).Msg("Password reset request for unknown account")
	}

	NewResponseWriter(w, r).Accepted(map[string]string{
		"message": "if the account exists, a reset has been initiated",
	})
}

// ResetPassword consumes a reset token.
//
// @Summary Reset password with a token
// @Description Installs a new password using a single-use reset token and revokes every session of the account.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Reset token and new password"
// @Success 204 "Password replaced"
// @Failure 401 {object} APIResponse "Token rejected"
// @Router /auth/password/reset [post]
func (h *AuthHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.tokens.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeDomainError(w, r, err)
		return
	}

	NewResponseWriter(w, r).NoContent()
}

// ChangePassword replaces the caller's password.
//
// @Summary Change own password
// @Description Verifies the current password, installs the new one and revokes every session of the account, including the caller's. The client is expected to log in again.
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Current and new password"
// @Success 204 "Password replaced"
// @Failure 401 {object} APIResponse "Current password rejected"
// @Router /auth/password/change [post]
func (h *AuthHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized(genericAuthMessage)
		return
	}

	var req ChangePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.tokens.ChangePassword(r.Context(), caller.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeDomainError(w, r, err)
		return
	}

	NewResponseWriter(w, r).NoContent()
}

// VerifyEmail redeems an email verification token.
//
// @Summary Verify email address
// @Description Redeems a verification token. Accounts in pending_verification status become active.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body VerifyEmailRequest true "Verification token"
// @Success 204 "Email verified"
// @Failure 401 {object} APIResponse "Token rejected"
// @Router /auth/email/verify [post]
func (h *AuthHandlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.tokens.VerifyEmail(r.Context(), req.Token); err != nil {
		writeDomainError(w, r, err)
		return
	}

	NewResponseWriter(w, r).NoContent()
}

// Me returns the caller's own account.
//
// @Summary Get own account
// @Description Returns the authenticated user's profile.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=identity.User} "Account"
// @Failure 401 {object} APIResponse "Not authenticated"
// @Router /auth/me [get]
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized(genericAuthMessage)
		return
	}

	user, err := h.users.ByID(caller.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	NewResponseWriter(w, r).Success(user)
}

// recordMFAChange emits an auth audit event for MFA state changes, which
// happen outside the token service's own event stream.
func (h *AuthHandlers) recordMFAChange(r *http.Request, caller *token.Identity, eventType string) {
	if h.audit == nil {
		return
	}
	h.audit.RecordAuth(token.AuthEvent{
		Type:      eventType,
		UserID:    caller.UserID,
		SessionID: caller.SessionID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Outcome:   "ok",
		At:        time.Now().UTC(),
	})
}
