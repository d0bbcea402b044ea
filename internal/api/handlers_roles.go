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

// RoleHandlers serves role graph administration. Every mutation goes
// through the store mirror so the in-memory graph and the persistence
// collaborator stay aligned, and every mutation lands in the audit log.
type RoleHandlers struct {
	mirror *store.Mirror
	audit  *audit.Logger
}

// NewRoleHandlers creates the role administration handler group.
func NewRoleHandlers(mirror *store.Mirror, auditor *audit.Logger) *RoleHandlers {
	return &RoleHandlers{mirror: mirror, audit: auditor}
}

func (h *RoleHandlers) record(r *http.Request, action, roleID, description string, metadata map[string]any) {
	h.audit.LogAdminAction(r.Context(), audit.EventTypeRoleChanged,
		adminActor(r, h.mirror.Users), audit.SourceFromRequest(r),
		&audit.Target{ID: roleID, Type: "role"}, action, description, metadata)
}

// List returns all roles.
//
// @Summary List roles
// @Tags Roles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=[]authz.Role} "Roles"
// @Failure 403 {object} APIResponse "Permission denied"
// @Router /admin/roles [get]
func (h *RoleHandlers) List(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.mirror.Graph.ListRoles())
}

// Get returns one role.
//
// @Summary Get a role
// @Tags Roles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Role id"
// @Success 200 {object} APIResponse{data=authz.Role} "Role"
// @Failure 404 {object} APIResponse "Role not found"
// @Router /admin/roles/{id} [get]
func (h *RoleHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	role, ok := h.mirror.Graph.Role(id)
	if !ok {
		writeDomainError(w, r, &authz.NotFoundError{Kind: "role", ID: id})
		return
	}
	NewResponseWriter(w, r).Success(role)
}

// Create adds a role.
//
// @Summary Create a role
// @Tags Roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RoleRequest true "Role"
// @Success 201 {object} APIResponse{data=authz.Role} "Role created"
// @Failure 400 {object} APIResponse "Validation failed"
// @Failure 409 {object} APIResponse "Parent edge would close a cycle"
// @Router /admin/roles [post]
func (h *RoleHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	role := authz.Role{
		ID:          req.ID,
		Name:        req.Name,
		Permissions: req.Permissions,
		Parents:     req.Parents,
	}
	if err := h.mirror.UpsertRole(r.Context(), role); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "role.create", role.ID, "role "+role.ID+" created", nil)

	created, _ := h.mirror.Graph.Role(role.ID)
	NewResponseWriter(w, r).Created(created)
}

// Update replaces a role's name, direct permissions and parents.
//
// @Summary Update a role
// @Tags Roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Role id"
// @Param request body UpdateRoleRequest true "Role"
// @Success 200 {object} APIResponse{data=authz.Role} "Role updated"
// @Failure 400 {object} APIResponse "Validation failed"
// @Failure 409 {object} APIResponse "Parent edge would close a cycle"
// @Router /admin/roles/{id} [put]
func (h *RoleHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateRoleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	role := authz.Role{
		ID:          id,
		Name:        req.Name,
		Permissions: req.Permissions,
		Parents:     req.Parents,
	}
	if err := h.mirror.UpsertRole(r.Context(), role); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "role.update", id, "role "+id+" updated", nil)

	updated, _ := h.mirror.Graph.Role(id)
	NewResponseWriter(w, r).Success(updated)
}

// Delete removes a role. References to the role from users or other
// roles dangle harmlessly; evaluation skips them.
//
// @Summary Delete a role
// @Tags Roles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Role id"
// @Success 204 "Role deleted"
// @Failure 404 {object} APIResponse "Role not found"
// @Router /admin/roles/{id} [delete]
func (h *RoleHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.mirror.DeleteRole(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "role.delete", id, "role "+id+" deleted", nil)
	NewResponseWriter(w, r).NoContent()
}

// AddParent adds an inheritance edge.
//
// @Summary Add a parent role
// @Description Adds an inheritance edge; the child inherits the parent's effective permissions. Edges that would close a cycle are rejected.
// @Tags Roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Child role id"
// @Param request body RoleParentRequest true "Parent"
// @Success 204 "Edge added"
// @Failure 404 {object} APIResponse "Role not found"
// @Failure 409 {object} APIResponse "Edge would close a cycle"
// @Router /admin/roles/{id}/parents [post]
func (h *RoleHandlers) AddParent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RoleParentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.mirror.AddRoleParent(r.Context(), id, req.ParentID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "role.add_parent", id, "role "+id+" gained parent "+req.ParentID,
		map[string]any{"parent_id": req.ParentID})
	NewResponseWriter(w, r).NoContent()
}

// RemoveParent removes an inheritance edge.
//
// @Summary Remove a parent role
// @Tags Roles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Child role id"
// @Param parentID path string true "Parent role id"
// @Success 204 "Edge removed"
// @Failure 404 {object} APIResponse "Role not found"
// @Router /admin/roles/{id}/parents/{parentID} [delete]
func (h *RoleHandlers) RemoveParent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	parentID := chi.URLParam(r, "parentID")

	if err := h.mirror.RemoveRoleParent(r.Context(), id, parentID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "role.remove_parent", id, "role "+id+" lost parent "+parentID,
		map[string]any{"parent_id": parentID})
	NewResponseWriter(w, r).NoContent()
}

// GrantPermission attaches a permission to a role.
//
// @Summary Grant a permission to a role
// @Tags Roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Role id"
// @Param request body RolePermissionRequest true "Permission"
// @Success 204 "Permission granted"
// @Failure 404 {object} APIResponse "Role or permission not found"
// @Router /admin/roles/{id}/permissions [post]
func (h *RoleHandlers) GrantPermission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RolePermissionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.mirror.GrantPermission(r.Context(), id, req.PermissionID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "role.grant", id, "role "+id+" granted "+req.PermissionID,
		map[string]any{"permission_id": req.PermissionID})
	NewResponseWriter(w, r).NoContent()
}

// RevokePermission detaches a permission from a role.
//
// @Summary Revoke a permission from a role
// @Tags Roles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Role id"
// @Param permissionID path string true "Permission id"
// @Success 204 "Permission revoked"
// @Failure 404 {object} APIResponse "Role not found"
// @Router /admin/roles/{id}/permissions/{permissionID} [delete]
func (h *RoleHandlers) RevokePermission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	permissionID := chi.URLParam(r, "permissionID")

	if err := h.mirror.RevokePermission(r.Context(), id, permissionID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "role.revoke", id, "role "+id+" revoked "+permissionID,
		map[string]any{"permission_id": permissionID})
	NewResponseWriter(w, r).NoContent()
}
