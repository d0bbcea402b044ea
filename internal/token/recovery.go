// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package token

import (
	"context"
	"strings"

	"github.com/tomtom215/aegis/internal/identity"
	"github.com/tomtom215/aegis/internal/logging"
)

// RequestPasswordReset mints a single-use reset token for the account
// matching name (username or email address). The token embeds the user's
// current token version, so it dies the moment any password change lands.
// Callers must not reveal to the requester whether the account exists.
func (s *Service) RequestPasswordReset(ctx context.Context, name string) (string, error) {
	u, err := s.users.ByUsername(name)
	if err != nil && strings.Contains(name, "@") {
		u, err = s.users.ByEmail(name)
	}
	if err != nil {
		return "", err
	}
	tok, _, err := s.jwt.IssuePasswordReset(u.ID, u.TokenVersion)
	if err != nil {
		return "", err
	}
	s.record(AuthEvent{Type: "password_reset_requested", UserID: u.ID, Outcome: "ok"})
	return tok, nil
}

// ResetPassword consumes a reset token and installs a new password. The
// token version check makes tokens single-use: SetPasswordHash bumps the
// version, so replaying the same token fails. All sessions are revoked.
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	claims, err := s.jwt.Parse(resetToken, KindPasswordReset)
	if err != nil {
		return err
	}
	u, err := s.users.ByID(claims.Subject)
	if err != nil {
		return NewAuthenticationError("reset token user missing")
	}
	if u.TokenVersion != claims.UserVersion {
		return NewAuthenticationError("reset token already used")
	}
	if err := identity.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := identity.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if _, err := s.users.SetPasswordHash(u.ID, hash); err != nil {
		return err
	}
	revoked, _ := s.RevokeAllForUser(ctx, u.ID, "password_change")
	logger := logging.LoggerFromContext(ctx)
	logger.Info().
		Str("user_id", u.ID).
		Int("sessions_revoked", revoked).
		Msg("Password reset completed")
	s.record(AuthEvent{Type: "password_reset", UserID: u.ID, Outcome: "ok"})
	return nil
}

// ChangePassword replaces the password of an authenticated user after
// verifying the current one. Every session is revoked, including the
// caller's; the client is expected to log in again.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.users.ByID(userID)
	if err != nil {
		return err
	}
	if !identity.VerifyPassword(u.PasswordHash, current) {
		s.record(AuthEvent{Type: "password_change", UserID: userID, Outcome: "denied", Detail: "current password mismatch"})
		return NewAuthenticationError("current password mismatch")
	}
	if err := identity.ValidatePassword(next); err != nil {
		return err
	}
	hash, err := identity.HashPassword(next)
	if err != nil {
		return err
	}
	if _, err := s.users.SetPasswordHash(userID, hash); err != nil {
		return err
	}
	revoked, _ := s.RevokeAllForUser(ctx, userID, "password_change")
	logger := logging.LoggerFromContext(ctx)
	logger.Info().
		Str("user_id", userID).
		Int("sessions_revoked", revoked).
		Msg("Password changed")
	s.record(AuthEvent{Type: "password_change", UserID: userID, Outcome: "ok"})
	return nil
}

// RequestEmailVerification mints a verification token for the user.
func (s *Service) RequestEmailVerification(ctx context.Context, userID string) (string, error) {
	u, err := s.users.ByID(userID)
	if err != nil {
		return "", err
	}
	if u.EmailVerified {
		return "", NewAuthenticationError("email already verified")
	}
	tok, _, err := s.jwt.IssueEmailVerification(u.ID)
	if err != nil {
		return "", err
	}
	return tok, nil
}

// VerifyEmail consumes a verification token. Accounts created in the
// pending_verification state become active here.
func (s *Service) VerifyEmail(ctx context.Context, verifyToken string) error {
	claims, err := s.jwt.Parse(verifyToken, KindEmailVerify)
	if err != nil {
		return err
	}
	if _, err := s.users.MarkEmailVerified(claims.Subject); err != nil {
		return err
	}
	s.record(AuthEvent{Type: "email_verified", UserID: claims.Subject, Outcome: "ok"})
	return nil
}
