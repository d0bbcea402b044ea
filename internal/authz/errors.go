// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package authz

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports malformed input to a write operation: bad
// operator names, empty ids, rule operand arity mismatches.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Detail
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Detail)
}

// NewValidationError builds a ValidationError for one field.
func NewValidationError(field, detail string) *ValidationError {
	return &ValidationError{Field: field, Detail: detail}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CycleError rejects a role-parent edge that would close an inheritance
// cycle. Path holds the role ids along the offending cycle, starting and
// ending at the role being modified.
type CycleError struct {
	RoleID   string
	ParentID string
	Path     []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("role cycle: adding parent %q to role %q closes cycle %s",
		e.ParentID, e.RoleID, strings.Join(e.Path, " -> "))
}

// IsCycle reports whether err is a CycleError.
func IsCycle(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce)
}

// NotFoundError reports a missing entity on operations that require it to
// exist. Dangling references discovered during read-side traversal are not
// errors; those are skipped and logged.
type NotFoundError struct {
	Kind string // "role", "permission", "policy"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// ErrInternalConsistency flags an evaluation that reached its end with an
// empty reason chain. The evaluator fails closed and attaches this to the
// audit record; it indicates a bug, not bad input.
var ErrInternalConsistency = errors.New("internal consistency: decision produced no reasons")

// UnavailableError wraps a dependency failure (store down, breaker open)
// on operations that cannot proceed without it.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
