// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

// Package identity manages user records, credential hashing, attribute
// definitions and the claims resolver that turns a user plus session
// state into an evaluation subject.
package identity

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/logging"
	"github.com/tomtom215/aegis/internal/metrics"
)

// Status is a user's lifecycle state.
type Status string

const (
	StatusPendingVerification Status = "pending_verification"
	StatusActive              Status = "active"
	StatusInactive            Status = "inactive"
	StatusLocked              Status = "locked"
)

// Valid reports whether the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingVerification, StatusActive, StatusInactive, StatusLocked:
		return true
	}
	return false
}

// legalTransitions lists the allowed lifecycle moves. Locking is allowed
// from any state except inactive; unlocking returns to active.
var legalTransitions = map[Status][]Status{
	StatusPendingVerification: {StatusActive, StatusInactive, StatusLocked},
	StatusActive:              {StatusInactive, StatusLocked},
	StatusInactive:            {StatusActive},
	StatusLocked:              {StatusActive, StatusInactive},
}

// User is one identity record. PasswordHash and BackupCodeHashes hold
// bcrypt digests, never plaintext. TokenVersion is monotonic; bumping it
// invalidates every outstanding token for the user.
type User struct {
	ID            string                 `json:"id"`
	Username      string                 `json:"username"`
	Email         string                 `json:"email"`
	PasswordHash  string                 `json:"-"`
	Status        Status                 `json:"status"`
	Roles         []string               `json:"roles"`
	Permissions   []string               `json:"permissions,omitempty"`
	Attributes    map[string]authz.Value `json:"-"`
	EmailVerified bool                   `json:"email_verified"`

	MFAEnabled       bool     `json:"mfa_enabled"`
	TOTPSecret       string   `json:"-"`
	BackupCodeHashes []string `json:"-"`

	TokenVersion int `json:"-"`

	// ExternalIssuer and ExternalSubject tie a federated identity to its
	// upstream provider. Empty for local accounts.
	ExternalIssuer  string `json:"external_issuer,omitempty"`
	ExternalSubject string `json:"external_subject,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	LastLoginAt time.Time `json:"last_login_at"`
}

// clone deep-copies the user so registry snapshots never alias.
func (u *User) clone() *User {
	cp := *u
	cp.Roles = append([]string(nil), u.Roles...)
	cp.Permissions = append([]string(nil), u.Permissions...)
	cp.BackupCodeHashes = append([]string(nil), u.BackupCodeHashes...)
	if u.Attributes != nil {
		cp.Attributes = make(map[string]authz.Value, len(u.Attributes))
		for k, v := range u.Attributes {
			cp.Attributes[k] = v
		}
	}
	return &cp
}

// Registry is the in-memory authoritative user set. The persistence
// collaborator loads it at startup and mirrors writes back out; runtime
// reads never leave this process.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byName  map[string]string // lowercase username -> id
	byEmail map[string]string // lowercase email -> id
	now     func() time.Time
}

// NewRegistry returns an empty user registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:    map[string]*User{},
		byName:  map[string]string{},
		byEmail: map[string]string{},
		now:     time.Now,
	}
}

// Create registers a new user. Username and email must be unique,
// case-insensitively. A zero status defaults to pending verification.
func (r *Registry) Create(u User) (User, error) {
	if strings.TrimSpace(u.Username) == "" {
		return User{}, authz.NewValidationError("user.username", "must not be empty")
	}
	if strings.TrimSpace(u.Email) == "" {
		return User{}, authz.NewValidationError("user.email", "must not be empty")
	}
	if u.Status == "" {
		u.Status = StatusPendingVerification
	}
	if !u.Status.Valid() {
		return User{}, authz.NewValidationError("user.status", "unknown status "+string(u.Status))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	nameKey := strings.ToLower(u.Username)
	emailKey := strings.ToLower(u.Email)
	if _, taken := r.byName[nameKey]; taken {
		return User{}, authz.NewValidationError("user.username", "already in use")
	}
	if _, taken := r.byEmail[emailKey]; taken {
		return User{}, authz.NewValidationError("user.email", "already in use")
	}

	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if _, exists := r.byID[u.ID]; exists {
		return User{}, authz.NewValidationError("user.id", "already in use")
	}
	now := r.now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.TokenVersion = 1

	stored := u.clone()
	r.byID[u.ID] = stored
	r.byName[nameKey] = u.ID
	r.byEmail[emailKey] = u.ID
	metrics.UsersTotal.Set(float64(len(r.byID)))
	logging.Info().Str("user_id", u.ID).Str("username", u.Username).Msg("User registered")
	return *stored.clone(), nil
}

// ByID returns a copy of one user.
func (r *Registry) ByID(id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return User{}, &authz.NotFoundError{Kind: "user", ID: id}
	}
	return *u.clone(), nil
}

// ByUsername looks a user up by case-insensitive username.
func (r *Registry) ByUsername(username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[strings.ToLower(username)]
	if !ok {
		return User{}, &authz.NotFoundError{Kind: "user", ID: username}
	}
	return *r.byID[id].clone(), nil
}

// ByEmail looks a user up by case-insensitive email.
func (r *Registry) ByEmail(email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return User{}, &authz.NotFoundError{Kind: "user", ID: email}
	}
	return *r.byID[id].clone(), nil
}

// ByExternalIdentity looks a federated user up by provider issuer and
// upstream subject id.
func (r *Registry) ByExternalIdentity(issuer, subject string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.ExternalIssuer == issuer && u.ExternalSubject == subject {
			return *u.clone(), true
		}
	}
	return User{}, false
}

// Update replaces mutable profile fields of an existing user. Identity
// fields (id, username, email) and credential state are updated through
// their dedicated operations.
func (r *Registry) Update(id string, mutate func(*User) error) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return User{}, &authz.NotFoundError{Kind: "user", ID: id}
	}
	next := u.clone()
	if err := mutate(next); err != nil {
		return User{}, err
	}
	// Identity and index fields must not drift through Update.
	next.ID = u.ID
	next.Username = u.Username
	next.Email = u.Email
	next.UpdatedAt = r.now().UTC()
	r.byID[id] = next
	return *next.clone(), nil
}

// SetStatus moves a user through the lifecycle, rejecting transitions the
// state machine does not allow. Setting the current status again is a
// no-op.
func (r *Registry) SetStatus(id string, next Status) (User, error) {
	if !next.Valid() {
		return User{}, authz.NewValidationError("user.status", "unknown status "+string(next))
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return User{}, &authz.NotFoundError{Kind: "user", ID: id}
	}
	if u.Status == next {
		return *u.clone(), nil
	}
	allowed := false
	for _, s := range legalTransitions[u.Status] {
		if s == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return User{}, authz.NewValidationError("user.status",
			"cannot transition from "+string(u.Status)+" to "+string(next))
	}

	cp := u.clone()
	cp.Status = next
	cp.UpdatedAt = r.now().UTC()
	r.byID[id] = cp
	logging.Info().Str("user_id", id).Str("from", string(u.Status)).Str("to", string(next)).Msg("User status changed")
	return *cp.clone(), nil
}

// MarkEmailVerified flags the email as verified and activates a pending
// account.
func (r *Registry) MarkEmailVerified(id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return User{}, &authz.NotFoundError{Kind: "user", ID: id}
	}
	cp := u.clone()
	cp.EmailVerified = true
	if cp.Status == StatusPendingVerification {
		cp.Status = StatusActive
	}
	cp.UpdatedAt = r.now().UTC()
	r.byID[id] = cp
	return *cp.clone(), nil
}

// BumpTokenVersion invalidates every outstanding token for the user and
// returns the new version.
func (r *Registry) BumpTokenVersion(id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return 0, &authz.NotFoundError{Kind: "user", ID: id}
	}
	cp := u.clone()
	cp.TokenVersion++
	cp.UpdatedAt = r.now().UTC()
	r.byID[id] = cp
	return cp.TokenVersion, nil
}

// RecordLogin stamps a successful login.
func (r *Registry) RecordLogin(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		cp := u.clone()
		cp.LastLoginAt = r.now().UTC()
		r.byID[id] = cp
	}
}

// SetPasswordHash replaces the stored credential and bumps the token
// version so existing sessions cannot outlive a password change.
func (r *Registry) SetPasswordHash(id, hash string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return User{}, &authz.NotFoundError{Kind: "user", ID: id}
	}
	cp := u.clone()
	cp.PasswordHash = hash
	cp.TokenVersion++
	cp.UpdatedAt = r.now().UTC()
	r.byID[id] = cp
	logging.Info().Str("user_id", id).Msg("Password changed, outstanding tokens invalidated")
	return *cp.clone(), nil
}

// List returns all users sorted by creation time then id. Intended for
// the admin API; hot paths use the indexed lookups.
func (r *Registry) List() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, *u.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Replace swaps the entire registry contents, used by the startup loader.
func (r *Registry) Replace(users []User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID = make(map[string]*User, len(users))
	r.byName = make(map[string]string, len(users))
	r.byEmail = make(map[string]string, len(users))
	for i := range users {
		u := users[i].clone()
		if u.TokenVersion < 1 {
			u.TokenVersion = 1
		}
		r.byID[u.ID] = u
		r.byName[strings.ToLower(u.Username)] = u.ID
		r.byEmail[strings.ToLower(u.Email)] = u.ID
	}
	metrics.UsersTotal.Set(float64(len(r.byID)))
	logging.Info().Int("users", len(users)).Msg("User registry replaced")
}
