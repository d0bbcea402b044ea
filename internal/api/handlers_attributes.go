// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/aegis/internal/audit"
	"github.com/tomtom215/aegis/internal/store"
)

// AttributeHandlers serves attribute definition administration.
type AttributeHandlers struct {
	mirror *store.Mirror
	audit  *audit.Logger
}

// NewAttributeHandlers creates the attribute administration handler group.
func NewAttributeHandlers(mirror *store.Mirror, auditor *audit.Logger) *AttributeHandlers {
	return &AttributeHandlers{mirror: mirror, audit: auditor}
}

func (h *AttributeHandlers) record(r *http.Request, action, path, description string) {
	h.audit.LogAdminAction(r.Context(), audit.EventTypeAttributeChanged,
		adminActor(r, h.mirror.Users), audit.SourceFromRequest(r),
		&audit.Target{ID: path, Type: "attribute"}, action, description, nil)
}

// List returns all attribute definitions, builtin and custom.
//
// @Summary List attribute definitions
// @Tags Attributes
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=[]identity.AttributeDefinition} "Definitions"
// @Failure 403 {object} APIResponse "Permission denied"
// @Router /admin/attributes [get]
func (h *AttributeHandlers) List(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.mirror.Attributes.List())
}

// Define registers or replaces a custom attribute definition. Declared
// kinds gate policy rules and incoming attribute values from then on.
//
// @Summary Define an attribute
// @Tags Attributes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AttributeDefinitionRequest true "Definition"
// @Success 201 {object} APIResponse{data=identity.AttributeDefinition} "Definition"
// @Failure 400 {object} APIResponse "Validation failed"
// @Router /admin/attributes [post]
func (h *AttributeHandlers) Define(w http.ResponseWriter, r *http.Request) {
	var req AttributeDefinitionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	def, err := h.mirror.DefineAttribute(r.Context(), req.Path, req.Kind, req.Description)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "attribute.define", def.Path, "attribute "+def.Path+" defined as "+def.KindName)
	NewResponseWriter(w, r).Created(def)
}

// Remove deletes a custom definition. Builtins cannot be removed.
//
// @Summary Remove an attribute definition
// @Tags Attributes
// @Produce json
// @Security BearerAuth
// @Param path path string true "Attribute path"
// @Success 204 "Definition removed"
// @Failure 400 {object} APIResponse "Builtin attribute"
// @Failure 404 {object} APIResponse "Definition not found"
// @Router /admin/attributes/{path} [delete]
func (h *AttributeHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")

	if err := h.mirror.RemoveAttribute(r.Context(), path); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "attribute.remove", path, "attribute "+path+" removed")
	NewResponseWriter(w, r).NoContent()
}
