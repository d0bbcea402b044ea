// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/identity"
)

// CheckHandlers serves decision evaluation.
type CheckHandlers struct {
	evaluator *authz.Evaluator
	resolver  *identity.Resolver
	attrs     *identity.AttributeRegistry

	// exposeReasons gates the reason chain in responses. The audit log
	// always records the full chain regardless.
	exposeReasons bool
}

// NewCheckHandlers creates the evaluation handler group.
func NewCheckHandlers(evaluator *authz.Evaluator, resolver *identity.Resolver, attrs *identity.AttributeRegistry, exposeReasons bool) *CheckHandlers {
	return &CheckHandlers{
		evaluator:     evaluator,
		resolver:      resolver,
		attrs:         attrs,
		exposeReasons: exposeReasons,
	}
}

// CheckResponse carries one evaluated decision. Reasons is omitted when
// the deployment does not expose reason chains to callers.
type CheckResponse struct {
	DecisionID    string               `json:"decision_id"`
	SubjectID     string               `json:"subject_id"`
	Action        string               `json:"action"`
	Resource      authz.Resource       `json:"resource"`
	Allowed       bool                 `json:"allowed"`
	Source        authz.DecisionSource `json:"source"`
	Reasons       []authz.Reason       `json:"reasons,omitempty"`
	EvaluatedAt   time.Time            `json:"evaluated_at"`
	RoleVersion   uint64               `json:"role_version"`
	PolicyVersion uint64               `json:"policy_version"`
}

// Check evaluates an access request against the live snapshot.
//
// @Summary Evaluate an access decision
// @Description Evaluates whether a subject may perform an action on a resource. The subject defaults to the caller; naming another subject or overriding the trust level requires the simulate permission. Every evaluation is recorded in the decision log.
// @Tags Authz
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CheckRequest true "Access request"
// @Success 200 {object} APIResponse{data=CheckResponse} "Decision"
// @Failure 400 {object} APIResponse "Validation failed"
// @Failure 401 {object} APIResponse "Not authenticated"
// @Failure 403 {object} APIResponse "Simulation not permitted"
// @Router /authz/check [post]
func (h *CheckHandlers) Check(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized(genericAuthMessage)
		return
	}

	var req CheckRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	subjectID := req.SubjectID
	if subjectID == "" {
		subjectID = caller.UserID
	}
	simulated := subjectID != caller.UserID || req.SubjectTrust != ""

	env := requestEnvironment(r)

	if simulated {
		callerSub, err := h.resolver.Resolve(caller.UserID, caller.Trust)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		gate := h.evaluator.Evaluate(r.Context(), callerSub, actionSimulate,
			authz.Resource{Type: adminResourceType}, env)
		if !gate.Allowed {
			NewResponseWriter(w, r).Forbidden("permission denied")
			return
		}
	}

	trust := caller.Trust
	if simulated {
		trust = authz.TrustPassword
		if req.SubjectTrust != "" {
			trust = authz.TrustLevel(req.SubjectTrust)
		}
	}

	sub, err := h.resolver.Resolve(subjectID, trust)
	if err != nil {
		// A simulated inactive subject is a caller mistake, not an
		// authentication failure of the caller.
		if simulated && errors.Is(err, identity.ErrUserNotActive) {
			NewResponseWriter(w, r).ValidationError("subject is not active",
				map[string]string{"subject_id": subjectID})
			return
		}
		writeDomainError(w, r, err)
		return
	}

	res := authz.Resource{Type: req.ResourceType, ID: req.ResourceID}
	if len(req.ResourceAttributes) > 0 {
		res.Attributes = make(map[string]authz.Value, len(req.ResourceAttributes))
		for key, raw := range req.ResourceAttributes {
			val, cerr := h.attrs.CoerceValue("resource."+key, raw)
			if cerr != nil {
				writeDomainError(w, r, cerr)
				return
			}
			res.Attributes[key] = val
		}
	}
	if len(req.EnvironmentAttributes) > 0 {
		env.Attributes = make(map[string]authz.Value, len(req.EnvironmentAttributes))
		for key, raw := range req.EnvironmentAttributes {
			val, cerr := h.attrs.CoerceValue("environment."+key, raw)
			if cerr != nil {
				writeDomainError(w, r, cerr)
				return
			}
			env.Attributes[key] = val
		}
	}

	decision := h.evaluator.Evaluate(r.Context(), sub, req.Action, res, env)

	resp := CheckResponse{
		DecisionID:    decision.ID,
		SubjectID:     decision.SubjectID,
		Action:        decision.Action,
		Resource:      decision.Resource,
		Allowed:       decision.Allowed,
		Source:        decision.Source,
		EvaluatedAt:   decision.EvaluatedAt,
		RoleVersion:   decision.RoleVersion,
		PolicyVersion: decision.PolicyVersion,
	}
	if h.exposeReasons {
		resp.Reasons = decision.Reasons
	}

	NewResponseWriter(w, r).Success(resp)
}
