// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/aegis/internal/logging"
	"github.com/tomtom215/aegis/internal/metrics"
)

// AuditSink receives exactly one record per evaluated decision. Sinks
// must not block; the audit pipeline buffers internally.
type AuditSink interface {
	RecordDecision(d Decision)
}

// Evaluator combines the role graph baseline with attribute policies
// using deny-overrides:
//
//  1. A matched deny policy denies, regardless of everything else.
//  2. Otherwise a matched allow policy or a role-derived permission allows.
//  3. Otherwise the request is denied.
//
// Every decision carries an ordered reason chain. An evaluation that
// somehow produces no reasons is a consistency violation and fails
// closed. Missing or malformed inputs deny, never error out to the
// caller.
type Evaluator struct {
	roles    *RoleGraph
	policies *PolicyStore
	audit    AuditSink
	now      func() time.Time
}

// NewEvaluator builds an evaluator over the given stores. audit may be
// nil, in which case decisions are only logged and counted.
func NewEvaluator(roles *RoleGraph, policies *PolicyStore, audit AuditSink) *Evaluator {
	return &Evaluator{roles: roles, policies: policies, audit: audit, now: time.Now}
}

// Evaluate decides whether the subject may perform action on the
// resource. It always returns a usable Decision and emits exactly one
// audit record; it never returns an error to the caller.
func (e *Evaluator) Evaluate(ctx context.Context, sub Subject, action string, res Resource, env Environment) Decision {
	start := time.Now()
	d := e.decide(ctx, sub, action, res, env)
	elapsed := time.Since(start)

	outcome := "deny"
	if d.Allowed {
		outcome = "allow"
	}
	metrics.RecordDecision(d.Allowed, string(d.Source), res.Type, elapsed)

	log := logging.LoggerFromContext(ctx)
	evt := log.Debug()
	if d.ConsistencyErr {
		evt = log.Error()
	}
	evt.
		Str("decision_id", d.ID).
		Str("subject_id", d.SubjectID).
		Str("action", d.Action).
		Str("resource_type", d.Resource.Type).
		Str("outcome", outcome).
		Str("source", string(d.Source)).
		Int("reasons", len(d.Reasons)).
		Dur("elapsed", elapsed).
		Msg("Authorization decision")

	if e.audit != nil {
		e.audit.RecordDecision(d)
	}
	return d
}

// decide runs the pipeline against one consistent snapshot pair.
func (e *Evaluator) decide(ctx context.Context, sub Subject, action string, res Resource, env Environment) Decision {
	log := logging.LoggerFromContext(ctx)
	if env.Time.IsZero() {
		env.Time = e.now().UTC()
	}
	if env.RequestID == "" {
		env.RequestID = logging.RequestIDFromContext(ctx)
	}

	d := Decision{
		ID:          uuid.New().String(),
		SubjectID:   sub.ID,
		Action:      action,
		Resource:    res,
		EvaluatedAt: env.Time,
	}

	roleSnap := e.roles.snapshot()
	policySnap := e.policies.snapshot()
	d.RoleVersion = roleSnap.version
	d.PolicyVersion = policySnap.version

	// Malformed requests deny immediately; nothing to evaluate against.
	if sub.ID == "" || action == "" || res.Type == "" {
		d.Allowed = false
		d.Source = SourceFailClosed
		d.Reasons = append(d.Reasons, Reason{
			Kind:   ReasonError,
			Detail: malformedDetail(sub.ID, action, res.Type),
		})
		return d
	}

	// RBAC baseline: permissions reachable through the role graph plus
	// direct grants, matched against action, resource type and scope.
	baselineAllowed := false
	granted := roleSnap.closure(sub.Roles, &log)
	granted = append(granted, roleSnap.direct(sub.Permissions, &log)...)
	for _, p := range granted {
		if p.matches(action, res, sub.ID) {
			baselineAllowed = true
			d.Reasons = append(d.Reasons, Reason{
				Kind:      ReasonPermission,
				Reference: p.Ref(),
				Detail:    fmt.Sprintf("permission grants %s on %s%s", p.Action, p.ResourceType, scopeSuffix(p.Scope)),
			})
		}
	}
	if !baselineAllowed {
		d.Reasons = append(d.Reasons, Reason{
			Kind:   ReasonBaseline,
			Detail: fmt.Sprintf("no role-derived permission grants %s on %s", action, res.Type),
		})
	}

	// Policies in deterministic order. A matched deny short-circuits;
	// matched allows are recorded and scanning continues so a later deny
	// can still override.
	policyAllowed := false
	denied := false
	evaluated := 0
	for _, p := range policySnap.activeFor(res.Type) {
		evaluated++
		matched := e.matchPolicy(p, &sub, res, env, &log)
		if !matched {
			continue
		}
		d.Reasons = append(d.Reasons, Reason{
			Kind:      ReasonPolicy,
			Reference: p.Ref(),
			Detail:    fmt.Sprintf("policy %q matched with effect %s", p.Name, p.Effect),
		})
		if p.Effect == EffectDeny {
			denied = true
			break
		}
		policyAllowed = true
	}
	metrics.PoliciesEvaluated.Observe(float64(evaluated))

	switch {
	case denied:
		d.Allowed = false
		d.Source = SourcePolicyDeny
	case baselineAllowed:
		d.Allowed = true
		d.Source = SourceRBAC
	case policyAllowed:
		d.Allowed = true
		d.Source = SourcePolicyAllow
	default:
		d.Allowed = false
		d.Source = SourceRBAC
	}

	// A decision with no reasons is unexplainable and must not stand.
	if len(d.Reasons) == 0 {
		log.Error().
			Str("subject_id", sub.ID).
			Str("action", action).
			Str("resource_type", res.Type).
			Msg("Evaluation produced no reasons, failing closed")
		d.Allowed = false
		d.Source = SourceFailClosed
		d.ConsistencyErr = true
		d.Reasons = append(d.Reasons, Reason{Kind: ReasonError, Detail: ErrInternalConsistency.Error()})
	}
	return d
}

// matchPolicy reports whether every top-level rule holds and every group
// is satisfied. Rules that fail to evaluate count as false and are
// logged; a broken rule can narrow access but never widen it.
func (e *Evaluator) matchPolicy(p *Policy, sub *Subject, res Resource, env Environment, log *zerolog.Logger) bool {
	for _, r := range p.Rules {
		ok := e.evalLogged(p, r, sub, res, env, log)
		if !ok {
			return false
		}
	}
	for _, g := range p.Groups {
		if !e.matchGroup(p, g, sub, res, env, log) {
			return false
		}
	}
	return true
}

// matchGroup evaluates one rule group: with Any set it needs one holding
// rule, otherwise all.
func (e *Evaluator) matchGroup(p *Policy, g RuleGroup, sub *Subject, res Resource, env Environment, log *zerolog.Logger) bool {
	if g.Any {
		for _, r := range g.Rules {
			if e.evalLogged(p, r, sub, res, env, log) {
				return true
			}
		}
		return false
	}
	for _, r := range g.Rules {
		if !e.evalLogged(p, r, sub, res, env, log) {
			return false
		}
	}
	return true
}

func (e *Evaluator) evalLogged(p *Policy, r Rule, sub *Subject, res Resource, env Environment, log *zerolog.Logger) bool {
	ok, err := evalRule(r, sub, res, env)
	if err != nil {
		metrics.RuleTypeMismatches.WithLabelValues(string(r.Operator)).Inc()
		log.Warn().
			Err(err).
			Str("policy_id", p.ID).
			Str("attribute", r.Attribute).
			Str("operator", string(r.Operator)).
			Msg("Rule evaluation failed, treating as not matched")
	}
	return ok
}

func malformedDetail(subjectID, action, resourceType string) string {
	switch {
	case subjectID == "":
		return "request rejected: empty subject id"
	case action == "":
		return "request rejected: empty action"
	default:
		return "request rejected: empty resource type"
	}
}

func scopeSuffix(s ScopeQualifier) string {
	if s == ScopeOwn {
		return " (own resources)"
	}
	return ""
}
