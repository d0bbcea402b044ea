// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package identity

import (
	"errors"

	"github.com/tomtom215/aegis/internal/authz"
)

// ErrUserNotActive marks a subject resolution against a user whose
// lifecycle state does not permit authenticated activity.
var ErrUserNotActive = errors.New("user is not active")

// Resolver builds evaluation subjects from user records and session
// trust. Subjects are rebuilt on every request; nothing here is cached,
// so role and attribute edits apply to the very next evaluation.
type Resolver struct {
	users *Registry
}

// NewResolver returns a resolver over the given registry.
func NewResolver(users *Registry) *Resolver {
	return &Resolver{users: users}
}

// Resolve loads the user and builds its subject. Users outside the
// active state resolve to ErrUserNotActive; verification of how the
// caller authenticated is the token service's concern.
func (r *Resolver) Resolve(userID string, trust authz.TrustLevel) (authz.Subject, error) {
	u, err := r.users.ByID(userID)
	if err != nil {
		return authz.Subject{}, err
	}
	if u.Status != StatusActive {
		return authz.Subject{}, ErrUserNotActive
	}
	return SubjectFor(u, trust), nil
}

// SubjectFor builds the subject for an already loaded user. The standard
// identity fields are exposed as policy attributes alongside the user's
// own attribute map.
func SubjectFor(u User, trust authz.TrustLevel) authz.Subject {
	attrs := make(map[string]authz.Value, len(u.Attributes)+5)
	for k, v := range u.Attributes {
		attrs[k] = v
	}
	attrs["username"] = authz.StringValue(u.Username)
	attrs["email"] = authz.StringValue(u.Email)
	attrs["email_verified"] = authz.BoolValue(u.EmailVerified)
	attrs["status"] = authz.StringValue(string(u.Status))
	attrs["created_at"] = authz.TimeValue(u.CreatedAt)

	return authz.Subject{
		ID:          u.ID,
		Roles:       append([]string(nil), u.Roles...),
		Permissions: append([]string(nil), u.Permissions...),
		MFAEnabled:  u.MFAEnabled,
		TrustLevel:  trust,
		Attributes:  attrs,
	}
}
