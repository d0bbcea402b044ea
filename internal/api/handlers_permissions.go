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
	"github.com/tomtom215/aegis/internal/store"
)

// PermissionHandlers serves permission administration.
type PermissionHandlers struct {
	mirror *store.Mirror
	audit  *audit.Logger
}

// NewPermissionHandlers creates the permission administration handler group.
func NewPermissionHandlers(mirror *store.Mirror, auditor *audit.Logger) *PermissionHandlers {
	return &PermissionHandlers{mirror: mirror, audit: auditor}
}

func (h *PermissionHandlers) record(r *http.Request, action, permID, description string) {
	h.audit.LogAdminAction(r.Context(), audit.EventTypeRoleChanged,
		adminActor(r, h.mirror.Users), audit.SourceFromRequest(r),
		&audit.Target{ID: permID, Type: "permission"}, action, description, nil)
}

// List returns all permissions.
//
// @Summary List permissions
// @Tags Permissions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=[]authz.Permission} "Permissions"
// @Failure 403 {object} APIResponse "Permission denied"
// @Router /admin/permissions [get]
func (h *PermissionHandlers) List(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.mirror.Graph.ListPermissions())
}

// Get returns one permission.
//
// @Summary Get a permission
// @Tags Permissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Permission id"
// @Success 200 {object} APIResponse{data=authz.Permission} "Permission"
// @Failure 404 {object} APIResponse "Permission not found"
// @Router /admin/permissions/{id} [get]
func (h *PermissionHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	perm, ok := h.mirror.Graph.Permission(id)
	if !ok {
		writeDomainError(w, r, &authz.NotFoundError{Kind: "permission", ID: id})
		return
	}
	NewResponseWriter(w, r).Success(perm)
}

// Create adds a permission.
//
// @Summary Create a permission
// @Description Defines a resource type and action pair. "*" in either position matches anything; scope "own" restricts the grant to resources owned by the subject.
// @Tags Permissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PermissionRequest true "Permission"
// @Success 201 {object} APIResponse{data=authz.Permission} "Permission created"
// @Failure 400 {object} APIResponse "Validation failed"
// @Router /admin/permissions [post]
func (h *PermissionHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req PermissionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	scope := authz.ScopeQualifier(req.Scope)
	if scope == "" {
		scope = authz.ScopeAll
	}
	perm, err := h.mirror.UpsertPermission(r.Context(), authz.Permission{
		ID:           req.ID,
		ResourceType: req.ResourceType,
		Action:       req.Action,
		Scope:        scope,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "permission.create", perm.ID, "permission "+perm.ID+" created")
	NewResponseWriter(w, r).Created(perm)
}

// Update replaces a permission's resource type, action and scope.
// Roles that reference the permission pick the change up on the next
// evaluation; no re-grant is needed.
//
// @Summary Update a permission
// @Tags Permissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Permission id"
// @Param request body UpdatePermissionRequest true "Permission"
// @Success 200 {object} APIResponse{data=authz.Permission} "Permission updated"
// @Failure 400 {object} APIResponse "Validation failed"
// @Router /admin/permissions/{id} [put]
func (h *PermissionHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdatePermissionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	scope := authz.ScopeQualifier(req.Scope)
	if scope == "" {
		scope = authz.ScopeAll
	}
	perm, err := h.mirror.UpsertPermission(r.Context(), authz.Permission{
		ID:           id,
		ResourceType: req.ResourceType,
		Action:       req.Action,
		Scope:        scope,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "permission.update", id, "permission "+id+" updated")
	NewResponseWriter(w, r).Success(perm)
}

// Delete removes a permission. Role grants that reference it dangle
// harmlessly; evaluation skips them.
//
// @Summary Delete a permission
// @Tags Permissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Permission id"
// @Success 204 "Permission deleted"
// @Failure 404 {object} APIResponse "Permission not found"
// @Router /admin/permissions/{id} [delete]
func (h *PermissionHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.mirror.DeletePermission(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "permission.delete", id, "permission "+id+" deleted")
	NewResponseWriter(w, r).NoContent()
}
