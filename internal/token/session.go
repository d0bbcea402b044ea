// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

// Package token implements the authenticated session lifecycle: password
// login, optional MFA step-up, JWT issuance, refresh rotation with reuse
// detection, and revocation.
package token

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/aegis/internal/authz"
)

// Session store errors.
var (
	ErrSessionNotFound = errors.New("session not found")
)

// State is a session's position in the authentication lifecycle.
type State string

const (
	// StatePasswordVerified: the password check passed; tokens may be
	// issued if the account has no second factor.
	StatePasswordVerified State = "password_verified"

	// StateMfaPending: the password check passed but the account requires
	// a second factor before tokens may be issued.
	StateMfaPending State = "mfa_pending"

	// StateMfaVerified: the second factor passed; tokens may be issued.
	StateMfaVerified State = "mfa_verified"

	// StateActive: tokens have been issued; refresh keeps the session in
	// this state while rotating the refresh version.
	StateActive State = "active"

	// StateExpired: the session outlived its lifetime. Terminal.
	StateExpired State = "expired"

	// StateRevoked: the session was revoked by logout, administrative
	// action or refresh reuse detection. Terminal.
	StateRevoked State = "revoked"
)

// stateTransitions encodes the legal lifecycle moves. Expiry is driven
// by the clock rather than a transition, so every non-terminal state may
// also move to StateExpired.
var stateTransitions = map[State][]State{
	StatePasswordVerified: {StateMfaPending, StateActive, StateRevoked},
	StateMfaPending:       {StateMfaVerified, StateRevoked},
	StateMfaVerified:      {StateActive, StateRevoked},
	StateActive:           {StateActive, StateRevoked},
	StateExpired:          {},
	StateRevoked:          {},
}

// CanTransition reports whether a session may move from s to next.
func (s State) CanTransition(next State) bool {
	if next == StateExpired {
		return s != StateRevoked
	}
	for _, allowed := range stateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether a state accepts no further transitions.
func (s State) Terminal() bool {
	return s == StateExpired || s == StateRevoked
}

// Session tracks one authenticated login from password check to
// revocation or expiry.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	State  State  `json:"state"`

	// RefreshVersion is the rotation counter. Exactly one outstanding
	// refresh token carries the current value; presenting any other value
	// is treated as token reuse and revokes the session.
	RefreshVersion int `json:"refresh_version"`

	// UserVersion pins the user's token version at login. A password
	// change bumps the user's version and orphans this session.
	UserVersion int `json:"user_version"`

	// Trust is the strongest factor the session has passed.
	Trust authz.TrustLevel `json:"trust"`

	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	MfaVerifiedAt time.Time `json:"mfa_verified_at,omitempty"`
	RevokedAt     time.Time `json:"revoked_at,omitempty"`

	// RevokeCause records why a revoked session ended (logout, reuse,
	// admin, password_change).
	RevokeCause string `json:"revoke_cause,omitempty"`
}

// NewSession builds a session in the password-verified state.
func NewSession(userID string, userVersion int, ttl time.Duration, ip, userAgent string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:             uuid.New().String(),
		UserID:         userID,
		State:          StatePasswordVerified,
		RefreshVersion: 0,
		UserVersion:    userVersion,
		Trust:          authz.TrustPassword,
		IP:             ip,
		UserAgent:      userAgent,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
}

// Expired reports whether the session lifetime has passed at t.
func (s *Session) Expired(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// Transition moves the session to next, rejecting illegal moves.
func (s *Session) Transition(next State) error {
	if !s.State.CanTransition(next) {
		return NewAuthenticationError("illegal session transition " + string(s.State) + " -> " + string(next))
	}
	s.State = next
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// clone returns a deep copy.
func (s *Session) clone() *Session {
	cp := *s
	return &cp
}

// Store persists sessions. Implementations must treat stored sessions
// as immutable values: Get returns copies, Save replaces whole records.
type Store interface {
	// Save inserts or replaces a session.
	Save(ctx context.Context, s *Session) error

	// Get returns a session by id, or ErrSessionNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session. Missing sessions are not an error.
	Delete(ctx context.Context, id string) error

	// ByUserID returns all sessions belonging to a user.
	ByUserID(ctx context.Context, userID string) ([]*Session, error)

	// DeleteExpired removes sessions whose lifetime passed before cutoff
	// and returns how many were removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// MemoryStore is the in-memory Store used for tests and single-node
// deployments without persistence.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore returns an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Save inserts or replaces a session.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.clone()
	return nil
}

// Get returns a copy of the stored session.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.clone(), nil
}

// Delete removes a session.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// ByUserID returns copies of all sessions for one user.
func (m *MemoryStore) ByUserID(_ context.Context, userID string) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s.clone())
		}
	}
	return out, nil
}

// DeleteExpired removes sessions that expired before cutoff.
func (m *MemoryStore) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for id, s := range m.sessions {
		if cutoff.After(s.ExpiresAt) {
			delete(m.sessions, id)
			count++
		}
	}
	return count, nil
}
