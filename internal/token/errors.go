// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package token

import (
	"errors"
	"fmt"
	"time"
)

// AuthenticationError covers every credential or token failure that the
// API reports to callers as a generic authentication failure. Reason is
// for logs and audit only; it must never reach the response body.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Reason
}

// NewAuthenticationError builds an AuthenticationError with a reason.
func NewAuthenticationError(reason string) *AuthenticationError {
	return &AuthenticationError{Reason: reason}
}

// IsAuthentication reports whether err is an AuthenticationError.
func IsAuthentication(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}

// RevokedSessionError marks an operation against a session that has been
// revoked, including the revocation triggered by refresh token reuse.
type RevokedSessionError struct {
	SessionID string
}

func (e *RevokedSessionError) Error() string {
	return "session " + e.SessionID + " is revoked"
}

// IsRevokedSession reports whether err is a RevokedSessionError.
func IsRevokedSession(err error) bool {
	var re *RevokedSessionError
	return errors.As(err, &re)
}

// LockedOutError rejects login attempts while a lockout is in force.
// Remaining feeds the Retry-After header.
type LockedOutError struct {
	Remaining time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("too many failed attempts, locked for %s", e.Remaining.Round(time.Second))
}

// IsLockedOut reports whether err is a LockedOutError.
func IsLockedOut(err error) bool {
	var le *LockedOutError
	return errors.As(err, &le)
}

// MfaRequiredError marks a token issuance attempt before the session has
// passed the second factor.
type MfaRequiredError struct {
	SessionID string
}

func (e *MfaRequiredError) Error() string {
	return "mfa verification required for session " + e.SessionID
}

// IsMfaRequired reports whether err is an MfaRequiredError.
func IsMfaRequired(err error) bool {
	var me *MfaRequiredError
	return errors.As(err, &me)
}
