// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package identity

import (
	"strings"
	"testing"

	"github.com/tomtom215/aegis/internal/authz"
)

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		valid    bool
	}{
		{"minimum_length", "12345678", true},
		{"too_short", "1234567", false},
		{"empty", "", false},
		{"multibyte_runes_counted_as_one", "пароль78", true},
		{"max_bytes", strings.Repeat("a", 72), true},
		{"over_max_bytes", strings.Repeat("a", 73), false},
		{"invalid_utf8", "pass\xffword", false},
		// NFKC expands ligatures before the length check.
		{"ligatures_expand_past_minimum", "ﬀﬀﬀﬀ", true},
		// 24 runes at 4 bytes each exceeds the byte budget.
		{"multibyte_over_byte_budget", strings.Repeat("\U0001F512", 24), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.password)
			if tc.valid && err != nil {
				t.Errorf("ValidatePassword(%q) = %v, want nil", tc.password, err)
			}
			if !tc.valid && !authz.IsValidation(err) {
				t.Errorf("ValidatePassword(%q) = %v, want ValidationError", tc.password, err)
			}
		})
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !VerifyPassword(hash, "correct horse battery") {
		t.Error("correct password should verify")
	}
	if VerifyPassword(hash, "wrong horse battery") {
		t.Error("wrong password should not verify")
	}
	if VerifyPassword("not-a-bcrypt-hash", "correct horse battery") {
		t.Error("malformed hash should not verify")
	}

	if _, err := HashPassword("short"); !authz.IsValidation(err) {
		t.Errorf("HashPassword(short) = %v, want ValidationError", err)
	}
}

func TestPasswordNormalizationEquivalence(t *testing.T) {
	// U+00C5 composed vs A + U+030A decomposed. NFKC maps both to the
	// same sequence, so either form verifies against one hash.
	composed := "Ångström-unit"
	decomposed := "Ångström-unit"
	if composed == decomposed {
		t.Fatal("test inputs must differ before normalization")
	}
	if NormalizePassword(composed) != NormalizePassword(decomposed) {
		t.Fatal("NFKC should unify composed and decomposed forms")
	}

	hash, err := HashPassword(composed)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !VerifyPassword(hash, decomposed) {
		t.Error("decomposed input should verify against hash of composed form")
	}
}
