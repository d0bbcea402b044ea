// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/aegis/internal/identity"
	"github.com/tomtom215/aegis/internal/logging"
	"github.com/tomtom215/aegis/internal/metrics"
)

const (
	// backupCodeCount codes are minted per enrollment; each verifies
	// exactly once.
	backupCodeCount = 8

	// totpPeriod and totpSkew: 30s steps, one step of clock drift
	// accepted in both directions.
	totpPeriod = 30
	totpSkew   = 1
)

// Enrollment is returned once from Setup. The secret and plaintext
// backup codes are never retrievable again.
type Enrollment struct {
	Secret          string   `json:"secret"`
	ProvisioningURL string   `json:"provisioning_url"`
	BackupCodes     []string `json:"backup_codes"`
}

// MFAManager enrolls and verifies time-based one-time passwords plus
// bcrypt-hashed single-use backup codes.
type MFAManager struct {
	users  *identity.Registry
	issuer string
}

// NewMFAManager returns a manager; issuer names this service in
// authenticator apps.
func NewMFAManager(users *identity.Registry, issuer string) *MFAManager {
	if issuer == "" {
		issuer = "Aegis"
	}
	return &MFAManager{users: users, issuer: issuer}
}

// Setup generates a TOTP secret and backup codes for the user. MFA stays
// disabled until Confirm proves the authenticator was enrolled; calling
// Setup again before Confirm replaces the pending enrollment.
func (m *MFAManager) Setup(userID string) (*Enrollment, error) {
	u, err := m.users.ByID(userID)
	if err != nil {
		return nil, err
	}
	if u.MFAEnabled {
		return nil, NewAuthenticationError("mfa already enabled")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.issuer,
		AccountName: u.Username,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}

	codes, hashes, err := generateBackupCodes(backupCodeCount)
	if err != nil {
		return nil, err
	}

	if _, err := m.users.Update(userID, func(next *identity.User) error {
		next.TOTPSecret = key.Secret()
		next.BackupCodeHashes = hashes
		next.MFAEnabled = false
		return nil
	}); err != nil {
		return nil, err
	}
	logging.Info().Str("user_id", userID).Msg("MFA enrollment started")

	return &Enrollment{
		Secret:          key.Secret(),
		ProvisioningURL: key.URL(),
		BackupCodes:     codes,
	}, nil
}

// Confirm completes enrollment by proving the authenticator produces
// valid codes, then enables MFA for the account.
func (m *MFAManager) Confirm(userID, code string) error {
	u, err := m.users.ByID(userID)
	if err != nil {
		return err
	}
	if u.TOTPSecret == "" {
		return NewAuthenticationError("no pending mfa enrollment")
	}
	if !m.validateTOTP(code, u.TOTPSecret) {
		metrics.MFAVerificationsTotal.WithLabelValues("totp", "error").Inc()
		return NewAuthenticationError("invalid totp code")
	}
	if _, err := m.users.Update(userID, func(next *identity.User) error {
		next.MFAEnabled = true
		return nil
	}); err != nil {
		return err
	}
	metrics.MFAVerificationsTotal.WithLabelValues("totp", "ok").Inc()
	logging.Info().Str("user_id", userID).Msg("MFA enabled")
	return nil
}

// Verify checks a second-factor code: first as a TOTP code with one step
// of skew, then against the unused backup codes. A matching backup code
// is consumed. Returns the method that matched.
func (m *MFAManager) Verify(userID, code string) (string, error) {
	u, err := m.users.ByID(userID)
	if err != nil {
		return "", err
	}
	if !u.MFAEnabled || u.TOTPSecret == "" {
		return "", NewAuthenticationError("mfa is not enabled")
	}

	if m.validateTOTP(code, u.TOTPSecret) {
		metrics.MFAVerificationsTotal.WithLabelValues("totp", "ok").Inc()
		return "totp", nil
	}

	// Consumption happens inside the registry write so a code cannot
	// verify twice.
	consumed := false
	if _, err := m.users.Update(userID, func(next *identity.User) error {
		for i, hash := range next.BackupCodeHashes {
			if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil {
				next.BackupCodeHashes = append(next.BackupCodeHashes[:i], next.BackupCodeHashes[i+1:]...)
				consumed = true
				return nil
			}
		}
		return nil
	}); err != nil {
		return "", err
	}
	if consumed {
		metrics.MFAVerificationsTotal.WithLabelValues("backup_code", "ok").Inc()
		logging.Info().Str("user_id", userID).Msg("Backup code consumed")
		return "backup_code", nil
	}

	metrics.MFAVerificationsTotal.WithLabelValues("totp", "error").Inc()
	return "", NewAuthenticationError("invalid mfa code")
}

// Disable turns MFA off and discards the secret and backup codes.
func (m *MFAManager) Disable(userID string) error {
	if _, err := m.users.Update(userID, func(next *identity.User) error {
		next.MFAEnabled = false
		next.TOTPSecret = ""
		next.BackupCodeHashes = nil
		return nil
	}); err != nil {
		return err
	}
	logging.Info().Str("user_id", userID).Msg("MFA disabled")
	return nil
}

// RegenerateBackupCodes replaces all backup codes for an MFA-enabled
// account, invalidating any unused ones.
func (m *MFAManager) RegenerateBackupCodes(userID string) ([]string, error) {
	u, err := m.users.ByID(userID)
	if err != nil {
		return nil, err
	}
	if !u.MFAEnabled {
		return nil, NewAuthenticationError("mfa is not enabled")
	}
	codes, hashes, err := generateBackupCodes(backupCodeCount)
	if err != nil {
		return nil, err
	}
	if _, err := m.users.Update(userID, func(next *identity.User) error {
		next.BackupCodeHashes = hashes
		return nil
	}); err != nil {
		return nil, err
	}
	logging.Info().Str("user_id", userID).Msg("Backup codes regenerated")
	return codes, nil
}

func (m *MFAManager) validateTOTP(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, nowFunc(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// nowFunc is swapped in tests to pin the TOTP clock.
var nowFunc = time.Now

// generateBackupCodes returns plaintext codes and their bcrypt hashes.
func generateBackupCodes(n int) ([]string, []string, error) {
	codes := make([]string, 0, n)
	hashes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		buf := make([]byte, 5)
		if _, err := rand.Read(buf); err != nil {
			return nil, nil, fmt.Errorf("generate backup code: %w", err)
		}
		raw := hex.EncodeToString(buf)
		code := raw[:5] + "-" + raw[5:]
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			return nil, nil, fmt.Errorf("hash backup code: %w", err)
		}
		codes = append(codes, code)
		hashes = append(hashes, string(hash))
	}
	return codes, hashes, nil
}
