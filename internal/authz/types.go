// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

// Package authz implements the authorization decision engine: a role graph
// with inheritance, a versioned attribute-policy store, and an evaluator
// that combines both into one decision using deny-overrides.
//
// Reads are lock-free against immutable copy-on-write snapshots; writes
// serialize behind a mutex and publish a new snapshot atomically. A single
// evaluation therefore always observes one consistent point-in-time view
// of roles, permissions and policies.
package authz

import (
	"net/netip"
	"strconv"
	"time"
)

// Effect is a policy's outcome when it matches.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Valid reports whether the effect is a known value.
func (e Effect) Valid() bool {
	return e == EffectAllow || e == EffectDeny
}

// Operator compares an attribute against a rule's operand.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpContains    Operator = "contains"
	OpStartsWith  Operator = "startsWith"
	OpEndsWith    Operator = "endsWith"
	OpGreaterThan Operator = "greaterThan"
	OpLessThan    Operator = "lessThan"
	OpInRange     Operator = "inRange"
	OpTimeWindow  Operator = "timeWindow"
	OpIPRange     Operator = "ipRange"
)

// Operators lists every supported operator.
var Operators = []Operator{
	OpEquals, OpContains, OpStartsWith, OpEndsWith,
	OpGreaterThan, OpLessThan, OpInRange, OpTimeWindow, OpIPRange,
}

// Valid reports whether the operator is a known value.
func (o Operator) Valid() bool {
	for _, op := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// ValueKind tags the dynamic type of an attribute value.
type ValueKind int

const (
	KindAbsent ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindIP
	KindTime
)

// String returns the kind name for logs and error messages.
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindIP:
		return "ip"
	case KindTime:
		return "time"
	default:
		return "absent"
	}
}

// Value is a typed scalar attribute value. The zero Value is absent.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	IP   netip.Addr
	Time time.Time
}

// StringValue wraps a string attribute.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// NumberValue wraps a numeric attribute.
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// BoolValue wraps a boolean attribute.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// IPValue wraps an IP address attribute.
func IPValue(ip netip.Addr) Value { return Value{Kind: KindIP, IP: ip} }

// TimeValue wraps a timestamp attribute.
func TimeValue(t time.Time) Value { return Value{Kind: KindTime, Time: t} }

// String renders the value for reason chains and logs.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindIP:
		return v.IP.String()
	case KindTime:
		return v.Time.Format(time.RFC3339)
	default:
		return "<absent>"
	}
}

// ScopeQualifier narrows which resource instances a permission reaches.
type ScopeQualifier string

const (
	// ScopeAll matches every instance of the resource type. Empty scope
	// behaves the same.
	ScopeAll ScopeQualifier = "all"

	// ScopeOwn matches only resources whose owner_id attribute equals the
	// subject id.
	ScopeOwn ScopeQualifier = "own"
)

// Permission grants one action on one resource type.
//
// Permissions are versioned: mutating edits bump Version and decision
// reason chains reference id@version, so historical decision-log rows stay
// interpretable after an edit.
type Permission struct {
	ID           string         `json:"id"`
	ResourceType string         `json:"resource_type"`
	Action       string         `json:"action"`
	Scope        ScopeQualifier `json:"scope,omitempty"`
	Version      int            `json:"version"`
}

// Ref returns the versioned reference used in reason chains.
func (p *Permission) Ref() string {
	return p.ID + "@v" + strconv.Itoa(p.Version)
}

// matches reports whether this permission covers the action on the
// resource. "*" in action or resource type acts as a wildcard.
func (p *Permission) matches(action string, res Resource, subjectID string) bool {
	if p.Action != action && p.Action != "*" {
		return false
	}
	if p.ResourceType != res.Type && p.ResourceType != "*" {
		return false
	}
	if p.Scope == ScopeOwn {
		owner, ok := res.Attributes["owner_id"]
		return ok && owner.Kind == KindString && owner.Str == subjectID
	}
	return true
}

// Role names a set of permissions plus inherited parent roles.
type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"` // permission ids
	Parents     []string `json:"parents"`     // parent role ids
}

// clone returns a deep copy so published snapshots stay immutable.
func (r *Role) clone() *Role {
	cp := &Role{ID: r.ID, Name: r.Name}
	cp.Permissions = append([]string(nil), r.Permissions...)
	cp.Parents = append([]string(nil), r.Parents...)
	return cp
}

// Rule is one attribute comparison inside a policy.
//
// Values holds the operand(s): one entry for most operators, exactly two
// (low, high) for inRange. timeWindow operands use HH:MM-HH:MM form and
// ipRange operands use CIDR form.
type Rule struct {
	Attribute string   `json:"attribute"` // dotted path: subject.department, environment.ip
	Operator  Operator `json:"operator"`
	Values    []string `json:"values"`
}

// operand returns the primary operand.
func (r *Rule) operand() string {
	if len(r.Values) == 0 {
		return ""
	}
	return r.Values[0]
}

// RuleGroup is an explicitly declared group of rules. With Any set the
// group holds when at least one rule holds; otherwise all must hold.
type RuleGroup struct {
	Any   bool   `json:"any"`
	Rules []Rule `json:"rules"`
}

// Policy is a named rule set with an effect. A policy "matches" a request
// when all top-level rules hold and every group is satisfied; matching
// policies feed the deny-overrides combination.
type Policy struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Effect       Effect      `json:"effect"`
	ResourceType string      `json:"resource_type,omitempty"` // empty applies to all types
	Priority     int         `json:"priority"`
	Rules        []Rule      `json:"rules"`
	Groups       []RuleGroup `json:"groups,omitempty"`
	Version      int         `json:"version"`
	Active       bool        `json:"active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Ref returns the versioned reference used in reason chains.
func (p *Policy) Ref() string {
	return p.ID + "@v" + strconv.Itoa(p.Version)
}

// clone returns a deep copy so published snapshots stay immutable.
func (p *Policy) clone() *Policy {
	cp := *p
	cp.Rules = cloneRules(p.Rules)
	if p.Groups != nil {
		cp.Groups = make([]RuleGroup, len(p.Groups))
		for i, g := range p.Groups {
			cp.Groups[i] = RuleGroup{Any: g.Any, Rules: cloneRules(g.Rules)}
		}
	}
	return &cp
}

func cloneRules(rules []Rule) []Rule {
	if rules == nil {
		return nil
	}
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = Rule{Attribute: r.Attribute, Operator: r.Operator}
		out[i].Values = append([]string(nil), r.Values...)
	}
	return out
}

// TrustLevel is the session trust carried by a subject's claims.
type TrustLevel string

const (
	TrustNone     TrustLevel = "none"
	TrustPassword TrustLevel = "password"
	TrustMFA      TrustLevel = "mfa"
)

// Subject is the authenticated caller as seen by one evaluation. It is
// built by the claims resolver per request, never cached across requests
// and never mutated during evaluation.
type Subject struct {
	ID          string           `json:"id"`
	Roles       []string         `json:"roles"`
	Permissions []string         `json:"permissions"` // directly granted permission ids
	MFAEnabled  bool             `json:"mfa_enabled"`
	TrustLevel  TrustLevel       `json:"trust_level"`
	Attributes  map[string]Value `json:"-"`
}

// Resource identifies the target of a requested action.
type Resource struct {
	Type       string           `json:"type"`
	ID         string           `json:"id,omitempty"`
	Attributes map[string]Value `json:"-"`
}

// Environment carries request-scoped context supplied by the caller.
// External lookups (geo, device posture) must be resolved by the caller
// beforehand; evaluation never blocks on I/O.
type Environment struct {
	Time       time.Time        `json:"time"`
	IP         netip.Addr       `json:"ip"`
	RequestID  string           `json:"request_id,omitempty"`
	Attributes map[string]Value `json:"-"`
}

// DecisionSource names which stage of the combination determined the
// outcome.
type DecisionSource string

const (
	SourceRBAC        DecisionSource = "rbac"
	SourcePolicyAllow DecisionSource = "policy_allow"
	SourcePolicyDeny  DecisionSource = "policy_deny"
	SourceFailClosed  DecisionSource = "fail_closed"
)

// ReasonKind tags one entry in a decision's reason chain.
type ReasonKind string

const (
	ReasonPermission ReasonKind = "permission"
	ReasonPolicy     ReasonKind = "policy"
	ReasonBaseline   ReasonKind = "baseline"
	ReasonError      ReasonKind = "error"
)

// Reason is one step in the chain that determined a decision.
type Reason struct {
	Kind      ReasonKind `json:"kind"`
	Reference string     `json:"reference,omitempty"` // permission/policy id@version
	Detail    string     `json:"detail"`
}

// Decision is the write-once outcome of one evaluation. Every evaluation
// produces exactly one Decision with a non-empty reason chain and exactly
// one audit event.
type Decision struct {
	ID          string         `json:"id"`
	SubjectID   string         `json:"subject_id"`
	Action      string         `json:"action"`
	Resource    Resource       `json:"resource"`
	Allowed     bool           `json:"allowed"`
	Source      DecisionSource `json:"source"`
	Reasons     []Reason       `json:"reasons"`
	EvaluatedAt time.Time      `json:"evaluated_at"`

	// Snapshot versions consulted, recorded for audit reconstruction.
	RoleVersion   uint64 `json:"role_version"`
	PolicyVersion uint64 `json:"policy_version"`

	// ConsistencyErr flags a fail-closed decision caused by an internal
	// consistency violation (empty reason chain).
	ConsistencyErr bool `json:"consistency_err,omitempty"`
}
