// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package identity

import (
	"fmt"
	"net/netip"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/aegis/internal/authz"
)

// AttributeDefinition declares an attribute's type so policy rules and
// incoming attribute values can be checked before they reach evaluation.
type AttributeDefinition struct {
	// Path is the full dotted path including scope prefix, e.g.
	// "subject.department" or "environment.ip".
	Path        string          `json:"path"`
	Kind        authz.ValueKind `json:"-"`
	KindName    string          `json:"kind"`
	Description string          `json:"description,omitempty"`
	Builtin     bool            `json:"builtin,omitempty"`
}

// kindFromName maps wire names to value kinds.
func kindFromName(name string) (authz.ValueKind, error) {
	switch name {
	case "string":
		return authz.KindString, nil
	case "number":
		return authz.KindNumber, nil
	case "bool":
		return authz.KindBool, nil
	case "ip":
		return authz.KindIP, nil
	case "time":
		return authz.KindTime, nil
	default:
		return authz.KindAbsent, authz.NewValidationError("attribute.kind", fmt.Sprintf("unknown kind %q", name))
	}
}

// builtinDefinitions cover the paths the evaluator resolves from struct
// fields rather than attribute maps. They cannot be redefined or removed.
var builtinDefinitions = []AttributeDefinition{
	{Path: "subject.id", Kind: authz.KindString, Description: "authenticated user id", Builtin: true},
	{Path: "subject.mfa_enabled", Kind: authz.KindBool, Description: "user has MFA configured", Builtin: true},
	{Path: "subject.trust_level", Kind: authz.KindString, Description: "session trust: none, password or mfa", Builtin: true},
	{Path: "resource.type", Kind: authz.KindString, Description: "resource type under decision", Builtin: true},
	{Path: "resource.id", Kind: authz.KindString, Description: "resource instance id", Builtin: true},
	{Path: "environment.time", Kind: authz.KindTime, Description: "request time", Builtin: true},
	{Path: "environment.ip", Kind: authz.KindIP, Description: "caller ip address", Builtin: true},
	{Path: "environment.request_id", Kind: authz.KindString, Description: "request correlation id", Builtin: true},
}

// AttributeRegistry holds attribute definitions keyed by full path.
type AttributeRegistry struct {
	mu   sync.RWMutex
	defs map[string]AttributeDefinition
}

// NewAttributeRegistry returns a registry seeded with the builtin paths.
func NewAttributeRegistry() *AttributeRegistry {
	r := &AttributeRegistry{defs: make(map[string]AttributeDefinition, len(builtinDefinitions))}
	for _, d := range builtinDefinitions {
		d.KindName = d.Kind.String()
		r.defs[d.Path] = d
	}
	return r
}

// Define registers or replaces a custom attribute definition.
func (r *AttributeRegistry) Define(path, kindName, description string) (AttributeDefinition, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return AttributeDefinition{}, authz.NewValidationError("attribute.path", "must not be empty")
	}
	scope, _, ok := strings.Cut(path, ".")
	if !ok || (scope != "subject" && scope != "resource" && scope != "environment") {
		return AttributeDefinition{}, authz.NewValidationError("attribute.path",
			"must start with subject., resource. or environment.")
	}
	kind, err := kindFromName(kindName)
	if err != nil {
		return AttributeDefinition{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.defs[path]; ok && existing.Builtin {
		return AttributeDefinition{}, authz.NewValidationError("attribute.path", "builtin attributes cannot be redefined")
	}
	def := AttributeDefinition{Path: path, Kind: kind, KindName: kind.String(), Description: description}
	r.defs[path] = def
	return def, nil
}

// Remove deletes a custom definition. Builtins cannot be removed.
func (r *AttributeRegistry) Remove(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.defs[path]
	if !ok {
		return &authz.NotFoundError{Kind: "attribute", ID: path}
	}
	if def.Builtin {
		return authz.NewValidationError("attribute.path", "builtin attributes cannot be removed")
	}
	delete(r.defs, path)
	return nil
}

// Lookup returns the definition for a full path.
func (r *AttributeRegistry) Lookup(path string) (AttributeDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[path]
	return def, ok
}

// List returns all definitions sorted by path.
func (r *AttributeRegistry) List() []AttributeDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AttributeDefinition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// operatorKinds lists which value kinds each operator can compare.
var operatorKinds = map[authz.Operator][]authz.ValueKind{
	authz.OpEquals:      {authz.KindString, authz.KindNumber, authz.KindBool, authz.KindIP, authz.KindTime},
	authz.OpContains:    {authz.KindString},
	authz.OpStartsWith:  {authz.KindString},
	authz.OpEndsWith:    {authz.KindString},
	authz.OpGreaterThan: {authz.KindNumber, authz.KindTime},
	authz.OpLessThan:    {authz.KindNumber, authz.KindTime},
	authz.OpInRange:     {authz.KindNumber, authz.KindTime},
	authz.OpTimeWindow:  {authz.KindTime},
	authz.OpIPRange:     {authz.KindIP},
}

// CheckRule verifies a rule against the declared attribute type, when one
// is declared. Undeclared attributes pass: policies may reference
// request-supplied attributes the registry has never seen.
func (r *AttributeRegistry) CheckRule(field string, rule authz.Rule) error {
	path := rule.Attribute
	if !strings.Contains(path, ".") {
		path = "subject." + path
	}
	def, ok := r.Lookup(path)
	if !ok {
		return nil
	}
	for _, k := range operatorKinds[rule.Operator] {
		if k == def.Kind {
			return nil
		}
	}
	return authz.NewValidationError(field,
		fmt.Sprintf("operator %s cannot compare %s attribute %s", rule.Operator, def.Kind, path))
}

// CheckPolicy runs CheckRule across a policy's rules and groups.
func (r *AttributeRegistry) CheckPolicy(p authz.Policy) error {
	for i, rule := range p.Rules {
		if err := r.CheckRule(fmt.Sprintf("policy.rules[%d]", i), rule); err != nil {
			return err
		}
	}
	for gi, g := range p.Groups {
		for ri, rule := range g.Rules {
			if err := r.CheckRule(fmt.Sprintf("policy.groups[%d].rules[%d]", gi, ri), rule); err != nil {
				return err
			}
		}
	}
	return nil
}

// CoerceValue converts a JSON-decoded value into a typed attribute value.
// With a definition present the value must convert to the declared kind;
// without one the JSON type is taken as-is (string, number, bool).
func (r *AttributeRegistry) CoerceValue(path string, raw any) (authz.Value, error) {
	def, declared := r.Lookup(path)
	if !declared {
		switch v := raw.(type) {
		case string:
			return authz.StringValue(v), nil
		case float64:
			return authz.NumberValue(v), nil
		case bool:
			return authz.BoolValue(v), nil
		case nil:
			return authz.Value{}, nil
		default:
			return authz.Value{}, authz.NewValidationError(path, fmt.Sprintf("unsupported value type %T", raw))
		}
	}

	switch def.Kind {
	case authz.KindString:
		if s, ok := raw.(string); ok {
			return authz.StringValue(s), nil
		}
	case authz.KindNumber:
		switch v := raw.(type) {
		case float64:
			return authz.NumberValue(v), nil
		case string:
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				return authz.NumberValue(n), nil
			}
		}
	case authz.KindBool:
		switch v := raw.(type) {
		case bool:
			return authz.BoolValue(v), nil
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return authz.BoolValue(b), nil
			}
		}
	case authz.KindIP:
		if s, ok := raw.(string); ok {
			if ip, err := netip.ParseAddr(s); err == nil {
				return authz.IPValue(ip), nil
			}
		}
	case authz.KindTime:
		if s, ok := raw.(string); ok {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				return authz.TimeValue(t), nil
			}
		}
	}
	return authz.Value{}, authz.NewValidationError(path,
		fmt.Sprintf("value %v does not convert to declared kind %s", raw, def.Kind))
}
