// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

// Package audit records authorization decisions and authentication
// lifecycle events for compliance and forensic analysis. Events are
// buffered, chained with HMAC integrity hashes, and persisted
// asynchronously.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
)

// ErrEventNotFound marks a Get for an id the store does not hold.
var ErrEventNotFound = errors.New("audit event not found")

// EventType names the kind of event in dotted category.action form.
type EventType string

const (
	// Authorization decisions
	EventTypeDecision EventType = "authz.decision"

	// Authentication lifecycle events
	EventTypeLogin           EventType = "auth.login"
	EventTypeMfaVerify       EventType = "auth.mfa_verify"
	EventTypeTokensIssued    EventType = "auth.issue"
	EventTypeTokensRefreshed EventType = "auth.refresh"
	EventTypeReuseDetected   EventType = "auth.reuse_detected"
	EventTypeLogout          EventType = "auth.logout"
	EventTypeSessionRevoked  EventType = "auth.revoke"
	EventTypeSessionsRevoked EventType = "auth.revoke_all"
	EventTypeResetRequested  EventType = "auth.password_reset_requested"
	EventTypePasswordReset   EventType = "auth.password_reset"
	EventTypePasswordChange  EventType = "auth.password_change"
	EventTypeEmailVerified   EventType = "auth.email_verified"
	EventTypeLockout         EventType = "auth.lockout"

	// Administrative change events
	EventTypeUserChanged      EventType = "admin.user_changed"
	EventTypeRoleChanged      EventType = "admin.role_changed"
	EventTypePolicyChanged    EventType = "admin.policy_changed"
	EventTypeAttributeChanged EventType = "admin.attribute_changed"
	EventTypeAdminAction      EventType = "admin.action"
)

// Severity grades how much attention an event deserves.
type Severity string

const (
	SeverityDebug    Severity = "debug"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Outcome indicates whether an action succeeded or failed. Authorization
// decisions map allow to success and deny to failure.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event represents one audit record. Seq, Hash, and PrevHash are filled
// by the logger when the event enters the chain; callers leave them
// empty.
type Event struct {
	// ID is the event's unique identifier, a UUID.
	ID string `json:"id"`

	// Seq is the event's position in the hash chain, assigned at seal
	// time. Chain order, not timestamp order, is what verification
	// walks.
	Seq uint64 `json:"seq,omitempty"`

	// Timestamp is when the action happened, not when it was persisted.
	Timestamp time.Time `json:"timestamp"`

	// Type names what happened.
	Type EventType `json:"type"`

	// Severity grades the event.
	Severity Severity `json:"severity"`

	// Outcome records whether the action succeeded.
	Outcome Outcome `json:"outcome"`

	// Actor is the identity that performed the action.
	Actor Actor `json:"actor"`

	// Target is the acted-on object, when the action has one.
	Target *Target `json:"target,omitempty"`

	// Source describes where the request came from.
	Source Source `json:"source"`

	// Action describes what was attempted (authenticate, refresh,
	// document:read, ...).
	Action string `json:"action"`

	// Description provides human-readable details. Denial reasons live
	// here and in Metadata; they are never returned to end users.
	Description string `json:"description"`

	// Metadata contains event-specific details such as the decision
	// reason chain and snapshot versions.
	Metadata json.RawMessage `json:"metadata,omitempty" swaggertype:"object"`

	// CorrelationID links related events. Decision events carry the
	// decision ID here.
	CorrelationID string `json:"correlation_id,omitempty"`

	// RequestID ties the event to the HTTP request that caused it.
	RequestID string `json:"request_id,omitempty"`

	// PrevHash is the integrity hash of the previous event in the
	// chain, empty for the first event after startup.
	PrevHash string `json:"prev_hash,omitempty"`

	// Hash is the HMAC-SHA256 over this event's canonical fields and
	// PrevHash.
	Hash string `json:"hash,omitempty"`
}

// Actor identifies who performed an action.
type Actor struct {
	// ID is the subject or user identifier, or "system".
	ID string `json:"id"`

	// Type distinguishes user, service and system actors.
	Type string `json:"type"`

	// Name is the username or service name.
	Name string `json:"name,omitempty"`

	// Roles held by the actor when the event was recorded.
	Roles []string `json:"roles,omitempty"`

	// SessionID of the authenticated session, when there is one.
	SessionID string `json:"session_id,omitempty"`
}

// Target represents the object of an action: the resource of a decision,
// the session of a revocation, the policy of an edit.
type Target struct {
	// ID of the acted-on object.
	ID string `json:"id"`

	// Type of target (document, session, policy, ...).
	Type string `json:"type"`

	// Name is the human-readable label, when one exists.
	Name string `json:"name,omitempty"`
}

// Source carries the network origin of the triggering request.
type Source struct {
	// IPAddress the request came from.
	IPAddress string `json:"ip_address"`

	// UserAgent header of the request, if set.
	UserAgent string `json:"user_agent,omitempty"`
}

// Store persists and queries audit events.
type Store interface {
	// Save persists one event.
	Save(ctx context.Context, event *Event) error

	// Get returns the event with the given id, ErrEventNotFound otherwise.
	Get(ctx context.Context, id string) (*Event, error)

	// Query returns events matching the filter, honoring its ordering
	// and paging.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Count reports how many events match the filter.
	Count(ctx context.Context, filter QueryFilter) (int64, error)

	// Delete drops events recorded before olderThan, returning the count.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}

// QueryFilter narrows, orders and pages an event query. Zero-valued
// fields leave their dimension unconstrained.
type QueryFilter struct {
	// Types restricts to the given event types.
	Types []EventType `json:"types,omitempty"`

	// Severities restricts to the given severities.
	Severities []Severity `json:"severities,omitempty"`

	// Outcomes restricts to the given outcomes.
	Outcomes []Outcome `json:"outcomes,omitempty"`

	// ActorID filters by subject or user ID.
	ActorID string `json:"actor_id,omitempty"`

	// SessionID filters by session.
	SessionID string `json:"session_id,omitempty"`

	// TargetID filters by target ID; for decisions, the resource ID.
	TargetID string `json:"target_id,omitempty"`

	// TargetType filters by target type; for decisions, the resource type.
	TargetType string `json:"target_type,omitempty"`

	// Action filters by the attempted action.
	Action string `json:"action,omitempty"`

	// SourceIP restricts to events from one client address.
	SourceIP string `json:"source_ip,omitempty"`

	// StartTime bounds the range on the left, inclusive.
	StartTime *time.Time `json:"start_time,omitempty"`

	// EndTime bounds the range on the right, inclusive.
	EndTime *time.Time `json:"end_time,omitempty"`

	// CorrelationID restricts to one correlation chain.
	CorrelationID string `json:"correlation_id,omitempty"`

	// RequestID restricts to events from one HTTP request.
	RequestID string `json:"request_id,omitempty"`

	// SearchText matches case-insensitively against description and
	// action.
	SearchText string `json:"search_text,omitempty"`

	// Limit caps the number of returned events.
	Limit int `json:"limit,omitempty"`

	// Offset skips that many matches first.
	Offset int `json:"offset,omitempty"`

	// OrderBy names the sort column.
	OrderBy string `json:"order_by,omitempty"`

	// OrderDesc reverses the sort, newest first.
	OrderDesc bool `json:"order_desc,omitempty"`
}

// DefaultQueryFilter is the query the API applies when the caller
// constrains nothing.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{
		Limit:     100,
		OrderBy:   "timestamp",
		OrderDesc: true,
	}
}

// Stats summarizes the contents of an audit store.
type Stats struct {
	TotalEvents      int64            `json:"total_events"`
	EventsByType     map[string]int64 `json:"events_by_type"`
	EventsBySeverity map[string]int64 `json:"events_by_severity"`
	EventsByOutcome  map[string]int64 `json:"events_by_outcome"`
	OldestEvent      *time.Time       `json:"oldest_event,omitempty"`
	NewestEvent      *time.Time       `json:"newest_event,omitempty"`
}
