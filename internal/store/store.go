// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package store

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/identity"
)

// Store is the durable mirror of the in-memory engines. Implementations
// must be safe for concurrent use. Load methods return complete sets;
// Save methods upsert one entity; no method retries internally.
type Store interface {
	LoadRoles(ctx context.Context) ([]authz.Role, error)
	LoadPermissions(ctx context.Context) ([]authz.Permission, error)
	LoadPolicies(ctx context.Context) ([]authz.Policy, error)
	LoadUsers(ctx context.Context) ([]identity.User, error)
	LoadAttributeDefinitions(ctx context.Context) ([]identity.AttributeDefinition, error)

	SaveRole(ctx context.Context, role authz.Role) error
	DeleteRole(ctx context.Context, id string) error

	SavePermission(ctx context.Context, p authz.Permission) error
	DeletePermission(ctx context.Context, id string) error

	// SavePolicy upserts the current revision and records it in the
	// revision history.
	SavePolicy(ctx context.Context, p authz.Policy) error
	DeletePolicy(ctx context.Context, id string) error

	// PolicyHistory returns prior revisions of a policy, oldest first,
	// excluding the current revision.
	PolicyHistory(ctx context.Context, id string) ([]authz.Policy, error)

	SaveUser(ctx context.Context, u identity.User) error

	SaveAttributeDefinition(ctx context.Context, def identity.AttributeDefinition) error
	DeleteAttributeDefinition(ctx context.Context, path string) error

	Ping(ctx context.Context) error
	Close() error
}

// storedValue is the wire form of a typed attribute value. Kind names
// match authz.ValueKind.String().
type storedValue struct {
	Kind string    `json:"kind"`
	Str  string    `json:"str,omitempty"`
	Num  float64   `json:"num,omitempty"`
	Bool bool      `json:"bool,omitempty"`
	IP   string    `json:"ip,omitempty"`
	Time time.Time `json:"time,omitempty"`
}

func encodeValue(v authz.Value) storedValue {
	out := storedValue{Kind: v.Kind.String()}
	switch v.Kind {
	case authz.KindString:
		out.Str = v.Str
	case authz.KindNumber:
		out.Num = v.Num
	case authz.KindBool:
		out.Bool = v.Bool
	case authz.KindIP:
		out.IP = v.IP.String()
	case authz.KindTime:
		out.Time = v.Time
	}
	return out
}

func decodeValue(sv storedValue) (authz.Value, error) {
	switch sv.Kind {
	case "string":
		return authz.StringValue(sv.Str), nil
	case "number":
		return authz.NumberValue(sv.Num), nil
	case "bool":
		return authz.BoolValue(sv.Bool), nil
	case "ip":
		addr, err := netip.ParseAddr(sv.IP)
		if err != nil {
			return authz.Value{}, fmt.Errorf("stored ip value %q: %w", sv.IP, err)
		}
		return authz.IPValue(addr), nil
	case "time":
		return authz.TimeValue(sv.Time), nil
	default:
		return authz.Value{}, fmt.Errorf("stored value kind %q unknown", sv.Kind)
	}
}

// encodeAttributes never returns nil so the stored form is {} rather
// than null.
func encodeAttributes(attrs map[string]authz.Value) map[string]storedValue {
	out := make(map[string]storedValue, len(attrs))
	for k, v := range attrs {
		out[k] = encodeValue(v)
	}
	return out
}

func decodeAttributes(stored map[string]storedValue) (map[string]authz.Value, error) {
	if len(stored) == 0 {
		return nil, nil
	}
	out := make(map[string]authz.Value, len(stored))
	for k, sv := range stored {
		v, err := decodeValue(sv)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// unavailable wraps a backend failure in the engine's error taxonomy.
func unavailable(op string, err error) error {
	return &authz.UnavailableError{Op: op, Err: err}
}
