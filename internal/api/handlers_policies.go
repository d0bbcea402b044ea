// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/aegis/internal/audit"
	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/store"
)

// PolicyHandlers serves attribute policy administration.
type PolicyHandlers struct {
	mirror *store.Mirror
	audit  *audit.Logger
}

// NewPolicyHandlers creates the policy administration handler group.
func NewPolicyHandlers(mirror *store.Mirror, auditor *audit.Logger) *PolicyHandlers {
	return &PolicyHandlers{mirror: mirror, audit: auditor}
}

func (h *PolicyHandlers) record(r *http.Request, action string, p authz.Policy, description string) {
	h.audit.LogAdminAction(r.Context(), audit.EventTypePolicyChanged,
		adminActor(r, h.mirror.Users), audit.SourceFromRequest(r),
		&audit.Target{ID: p.ID, Type: "policy", Name: p.Name}, action, description,
		map[string]any{"version": p.Version, "effect": string(p.Effect)})
}

func policyFromRequest(id string, req PolicyRequest) authz.Policy {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return authz.Policy{
		ID:           id,
		Name:         req.Name,
		Effect:       authz.Effect(req.Effect),
		ResourceType: req.ResourceType,
		Priority:     req.Priority,
		Rules:        req.Rules,
		Groups:       req.Groups,
		Active:       active,
	}
}

// List returns all policies, active and inactive.
//
// @Summary List policies
// @Tags Policies
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=[]authz.Policy} "Policies"
// @Failure 403 {object} APIResponse "Permission denied"
// @Router /admin/policies [get]
func (h *PolicyHandlers) List(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.mirror.Policies.List())
}

// Get returns the current revision of one policy.
//
// @Summary Get a policy
// @Tags Policies
// @Produce json
// @Security BearerAuth
// @Param id path string true "Policy id"
// @Success 200 {object} APIResponse{data=authz.Policy} "Policy"
// @Failure 404 {object} APIResponse "Policy not found"
// @Router /admin/policies/{id} [get]
func (h *PolicyHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := h.mirror.Policies.Policy(id)
	if !ok {
		writeDomainError(w, r, &authz.NotFoundError{Kind: "policy", ID: id})
		return
	}
	NewResponseWriter(w, r).Success(p)
}

// Create adds a policy at version 1. An omitted id is generated.
//
// @Summary Create a policy
// @Description Creates an attribute policy. Rules within the policy are conjunctive; rule groups are satisfied by any one member. Deny policies override allow policies regardless of priority.
// @Tags Policies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PolicyRequest true "Policy"
// @Success 201 {object} APIResponse{data=authz.Policy} "Policy created"
// @Failure 400 {object} APIResponse "Validation failed"
// @Router /admin/policies [post]
func (h *PolicyHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req PolicyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	candidate := policyFromRequest(id, req)
	if err := h.mirror.Attributes.CheckPolicy(candidate); err != nil {
		writeDomainError(w, r, err)
		return
	}
	p, err := h.mirror.UpsertPolicy(r.Context(), candidate)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "policy.create", p, "policy "+p.Name+" created")
	NewResponseWriter(w, r).Created(p)
}

// Update replaces a policy's content, bumping its version and moving
// the superseded revision into history. The active flag is part of the
// replacement; an omitted flag activates the policy.
//
// @Summary Update a policy
// @Tags Policies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Policy id"
// @Param request body PolicyRequest true "Policy"
// @Success 200 {object} APIResponse{data=authz.Policy} "Policy updated"
// @Failure 400 {object} APIResponse "Validation failed"
// @Router /admin/policies/{id} [put]
func (h *PolicyHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req PolicyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	candidate := policyFromRequest(id, req)
	if err := h.mirror.Attributes.CheckPolicy(candidate); err != nil {
		writeDomainError(w, r, err)
		return
	}
	p, err := h.mirror.UpsertPolicy(r.Context(), candidate)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "policy.update", p, "policy "+p.Name+" updated")
	NewResponseWriter(w, r).Success(p)
}

// Delete removes a policy and its revision history.
//
// @Summary Delete a policy
// @Tags Policies
// @Produce json
// @Security BearerAuth
// @Param id path string true "Policy id"
// @Success 204 "Policy deleted"
// @Failure 404 {object} APIResponse "Policy not found"
// @Router /admin/policies/{id} [delete]
func (h *PolicyHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, _ := h.mirror.Policies.Policy(id)
	if err := h.mirror.DeletePolicy(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.record(r, "policy.delete", p, "policy "+p.Name+" deleted")
	NewResponseWriter(w, r).NoContent()
}

// SetActive toggles a policy in or out of evaluation without changing
// its content version.
//
// @Summary Activate or deactivate a policy
// @Tags Policies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Policy id"
// @Param request body PolicyActiveRequest true "Active flag"
// @Success 200 {object} APIResponse{data=authz.Policy} "Policy"
// @Failure 404 {object} APIResponse "Policy not found"
// @Router /admin/policies/{id}/active [put]
func (h *PolicyHandlers) SetActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req PolicyActiveRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.mirror.SetPolicyActive(r.Context(), id, req.Active)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	action, verb := "policy.activate", "activated"
	if !req.Active {
		action, verb = "policy.deactivate", "deactivated"
	}
	h.record(r, action, p, "policy "+p.Name+" "+verb)
	NewResponseWriter(w, r).Success(p)
}

// History returns superseded revisions of a policy, oldest first.
// Recorded decisions carry the policy store version they were evaluated
// under, so history is what makes old decisions interpretable.
//
// @Summary Get policy revision history
// @Tags Policies
// @Produce json
// @Security BearerAuth
// @Param id path string true "Policy id"
// @Success 200 {object} APIResponse{data=[]authz.Policy} "Prior revisions"
// @Failure 404 {object} APIResponse "Policy not found"
// @Router /admin/policies/{id}/history [get]
func (h *PolicyHandlers) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, ok := h.mirror.Policies.Policy(id); !ok {
		writeDomainError(w, r, &authz.NotFoundError{Kind: "policy", ID: id})
		return
	}
	revisions, err := h.mirror.PolicyHistory(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(revisions)
}
