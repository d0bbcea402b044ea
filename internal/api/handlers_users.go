// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/aegis/internal/audit"
	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/config"
	"github.com/tomtom215/aegis/internal/identity"
	"github.com/tomtom215/aegis/internal/store"
	"github.com/tomtom215/aegis/internal/token"
)

// UserHandlers serves user administration. Recovery tokens minted here
// go to the administrator, not the account holder; delivering them is
// an out-of-band concern.
type UserHandlers struct {
	mirror *store.Mirror
	tokens *token.Service
	audit  *audit.Logger
	cfg    config.APIConfig
}

// NewUserHandlers creates the user administration handler group.
func NewUserHandlers(mirror *store.Mirror, tokens *token.Service, auditor *audit.Logger, cfg config.APIConfig) *UserHandlers {
	return &UserHandlers{mirror: mirror, tokens: tokens, audit: auditor, cfg: cfg}
}

func (h *UserHandlers) record(r *http.Request, action string, u identity.User, description string, metadata map[string]any) {
	h.audit.LogAdminAction(r.Context(), audit.EventTypeUserChanged,
		adminActor(r, h.mirror.Users), audit.SourceFromRequest(r),
		&audit.Target{ID: u.ID, Type: "user", Name: u.Username}, action, description, metadata)
}

// coerceSubjectAttributes type-checks raw attribute values against the
// declared kinds. User attribute maps are keyed bare; declarations are
// scoped under "subject.". A null value marks the key for removal.
func (h *UserHandlers) coerceSubjectAttributes(raw map[string]interface{}) (map[string]authz.Value, []string, error) {
	if len(raw) == 0 {
		return nil, nil, nil
	}
	vals := make(map[string]authz.Value, len(raw))
	var removals []string
	for key, rv := range raw {
		if rv == nil {
			removals = append(removals, key)
			continue
		}
		v, err := h.mirror.Attributes.CoerceValue("subject."+key, rv)
		if err != nil {
			return nil, nil, err
		}
		vals[key] = v
	}
	return vals, removals, nil
}

// List returns users ordered by creation time.
//
// @Summary List users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} APIResponse{data=[]identity.User} "Users"
// @Failure 403 {object} APIResponse "Permission denied"
// @Router /admin/users [get]
func (h *UserHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r, h.cfg)

	all := h.mirror.Users.List()
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := all[offset:end]

	NewResponseWriter(w, r).SuccessWithPagination(page, &PaginationMeta{
		Total:   int64(total),
		Count:   len(page),
		Offset:  offset,
		Limit:   limit,
		HasMore: end < total,
	})
}

// Get returns one user.
//
// @Summary Get a user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Success 200 {object} APIResponse{data=identity.User} "User"
// @Failure 404 {object} APIResponse "User not found"
// @Router /admin/users/{id} [get]
func (h *UserHandlers) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.mirror.Users.ByID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(u)
}

// Create provisions a user. Admin-created accounts start active with a
// verified email; self-service registration goes through the
// verification flow instead.
//
// @Summary Create a user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "User"
// @Success 201 {object} APIResponse{data=identity.User} "User created"
// @Failure 400 {object} APIResponse "Validation failed"
// @Router /admin/users [post]
func (h *UserHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
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
	attrs, _, err := h.coerceSubjectAttributes(req.Attributes)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	u, err := h.mirror.CreateUser(r.Context(), identity.User{
		Username:      req.Username,
		Email:         req.Email,
		PasswordHash:  hash,
		Status:        identity.StatusActive,
		EmailVerified: true,
		Roles:         req.Roles,
		Permissions:   req.Permissions,
		Attributes:    attrs,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "user.create", u, "user "+u.Username+" created", nil)
	NewResponseWriter(w, r).Created(u)
}

// Update changes a user's roles, direct permissions and attributes.
// Username and email are immutable through this endpoint.
//
// @Summary Update a user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Param request body UpdateUserRequest true "Changes"
// @Success 200 {object} APIResponse{data=identity.User} "User updated"
// @Failure 400 {object} APIResponse "Validation failed"
// @Failure 404 {object} APIResponse "User not found"
// @Router /admin/users/{id} [put]
func (h *UserHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	vals, removals, err := h.coerceSubjectAttributes(req.Attributes)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	u, err := h.mirror.UpdateUser(r.Context(), id, func(u *identity.User) error {
		if req.Roles != nil {
			u.Roles = append([]string(nil), (*req.Roles)...)
		}
		if req.Permissions != nil {
			u.Permissions = append([]string(nil), (*req.Permissions)...)
		}
		if len(vals) > 0 || len(removals) > 0 {
			if u.Attributes == nil {
				u.Attributes = make(map[string]authz.Value, len(vals))
			}
			for k, v := range vals {
				u.Attributes[k] = v
			}
			for _, k := range removals {
				delete(u.Attributes, k)
			}
		}
		return nil
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "user.update", u, "user "+u.Username+" updated", nil)
	NewResponseWriter(w, r).Success(u)
}

// SetStatus moves a user through the lifecycle. Leaving the active
// state revokes every live session the user holds.
//
// @Summary Set a user's lifecycle status
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Param request body SetUserStatusRequest true "Status"
// @Success 200 {object} APIResponse{data=identity.User} "User"
// @Failure 400 {object} APIResponse "Transition not allowed"
// @Failure 404 {object} APIResponse "User not found"
// @Router /admin/users/{id}/status [put]
func (h *UserHandlers) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SetUserStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	next := identity.Status(req.Status)
	u, err := h.mirror.SetUserStatus(r.Context(), id, next)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	metadata := map[string]any{"status": string(next)}
	if next != identity.StatusActive {
		revoked, err := h.tokens.RevokeAllForUser(r.Context(), id, "status_change")
		if err != nil {
			loggerFrom(r).Error().Err(err).Str("user_id", id).Msg("Session revocation after status change failed")
		}
		metadata["sessions_revoked"] = revoked
	}

	h.record(r, "user.status", u, "user "+u.Username+" moved to "+string(next), metadata)
	NewResponseWriter(w, r).Success(u)
}

// Sessions lists a user's sessions, live and terminal.
//
// @Summary List a user's sessions
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Success 200 {object} APIResponse{data=[]token.Session} "Sessions"
// @Failure 404 {object} APIResponse "User not found"
// @Router /admin/users/{id}/sessions [get]
func (h *UserHandlers) Sessions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.mirror.Users.ByID(id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	sessions, err := h.tokens.Sessions(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(sessions)
}

// RevokeSessions force-logs-out a user everywhere.
//
// @Summary Revoke all of a user's sessions
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Success 200 {object} APIResponse "Revocation count"
// @Failure 404 {object} APIResponse "User not found"
// @Router /admin/users/{id}/sessions [delete]
func (h *UserHandlers) RevokeSessions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	u, err := h.mirror.Users.ByID(id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	revoked, err := h.tokens.RevokeAllForUser(r.Context(), id, "admin")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "user.revoke_sessions", u, "sessions revoked for "+u.Username,
		map[string]any{"sessions_revoked": revoked})
	NewResponseWriter(w, r).Success(map[string]int{"revoked": revoked})
}

// IssuePasswordReset mints a reset token for the user and returns it to
// the administrator. The self-service forgot-password endpoint never
// returns the token; this is the recovery path for accounts that cannot
// receive it any other way.
//
// @Summary Issue a password reset token
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Success 200 {object} APIResponse "Reset token"
// @Failure 404 {object} APIResponse "User not found"
// @Router /admin/users/{id}/password-reset [post]
func (h *UserHandlers) IssuePasswordReset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	u, err := h.mirror.Users.ByID(id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	tok, err := h.tokens.RequestPasswordReset(r.Context(), u.Username)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "user.password_reset_issued", u, "reset token issued for "+u.Username, nil)
	NewResponseWriter(w, r).Success(map[string]string{"reset_token": tok})
}

// IssueEmailVerification mints a fresh email verification token.
//
// @Summary Issue an email verification token
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Success 200 {object} APIResponse "Verification token"
// @Failure 404 {object} APIResponse "User not found"
// @Failure 409 {object} APIResponse "Email already verified"
// @Router /admin/users/{id}/email-verification [post]
func (h *UserHandlers) IssueEmailVerification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	u, err := h.mirror.Users.ByID(id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if u.EmailVerified {
		NewResponseWriter(w, r).Conflict("email already verified")
		return
	}
	tok, err := h.tokens.RequestEmailVerification(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "user.email_verification_issued", u, "verification token issued for "+u.Username, nil)
	NewResponseWriter(w, r).Success(map[string]string{"verification_token": tok})
}
