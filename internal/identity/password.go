// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package identity

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"

	"github.com/tomtom215/aegis/internal/authz"
)

const (
	// MinPasswordLength is the minimum password length in runes.
	MinPasswordLength = 8

	// maxPasswordBytes is bcrypt's hard input limit. Oversized passwords
	// are rejected rather than silently truncated.
	maxPasswordBytes = 72

	// bcryptCost balances verification latency against brute-force cost.
	bcryptCost = 12
)

// NormalizePassword applies NFKC so visually identical input composed
// differently (mobile keyboards, IMEs) verifies against the same hash.
func NormalizePassword(password string) string {
	return norm.NFKC.String(password)
}

// ValidatePassword enforces the credential policy on the normalized form.
func ValidatePassword(password string) error {
	if !utf8.ValidString(password) {
		return authz.NewValidationError("password", "must be valid UTF-8")
	}
	normalized := NormalizePassword(password)
	if utf8.RuneCountInString(normalized) < MinPasswordLength {
		return authz.NewValidationError("password",
			fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if len(normalized) > maxPasswordBytes {
		return authz.NewValidationError("password",
			fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	return nil
}

// HashPassword validates, normalizes and bcrypt-hashes a password.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(NormalizePassword(password)), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether the candidate matches the stored hash.
// The comparison runs even for malformed input so timing does not reveal
// which check failed.
func VerifyPassword(hash, candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(NormalizePassword(candidate)))
	return err == nil
}
