// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package token

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/identity"
	"github.com/tomtom215/aegis/internal/logging"
	"github.com/tomtom215/aegis/internal/metrics"
)

// sessionLockStripes bounds the per-session mutex pool. Operations on
// one session serialize on its stripe, so two refreshes carrying the
// same token can never both rotate.
const sessionLockStripes = 64

// AuthEvent describes one token lifecycle operation for the audit trail.
type AuthEvent struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// AuditSink receives auth events. Implementations must not block.
type AuditSink interface {
	RecordAuth(e AuthEvent)
}

// LoginResult reports a successful password check. When MFARequired is
// set the session sits in the mfa_pending state and IssueTokens will
// refuse until VerifyMFA passes.
type LoginResult struct {
	Session     *Session
	MFARequired bool
}

// TokenPair is one issued access/refresh pair.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	TokenType        string    `json:"token_type"`
}

// Identity is the result of stateless access token verification.
type Identity struct {
	UserID      string
	SessionID   string
	Trust       authz.TrustLevel
	UserVersion int
}

// ServiceConfig tunes the session lifecycle.
type ServiceConfig struct {
	// SessionTTL bounds how long a session may keep refreshing. Defaults
	// to the refresh token lifetime.
	SessionTTL time.Duration
}

// Service runs the authentication state machine over the user registry,
// session store and JWT manager.
type Service struct {
	users    *identity.Registry
	sessions Store
	jwt      *Manager
	mfa      *MFAManager
	lockout  *LockoutGuard
	audit    AuditSink

	sessionTTL time.Duration
	locks      [sessionLockStripes]sync.Mutex
	now        func() time.Time
}

// NewService wires the token service. audit may be nil.
func NewService(users *identity.Registry, sessions Store, jwt *Manager, mfa *MFAManager, lockout *LockoutGuard, audit AuditSink, cfg ServiceConfig) *Service {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = jwt.RefreshTTL()
	}
	return &Service{
		users:      users,
		sessions:   sessions,
		jwt:        jwt,
		mfa:        mfa,
		lockout:    lockout,
		audit:      audit,
		sessionTTL: ttl,
		now:        time.Now,
	}
}

// MFA exposes the MFA manager for enrollment endpoints.
func (s *Service) MFA() *MFAManager { return s.mfa }

// Lockout exposes the guard for admin unlock endpoints.
func (s *Service) Lockout() *LockoutGuard { return s.lockout }

func (s *Service) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%sessionLockStripes]
}

func (s *Service) record(e AuthEvent) {
	e.At = s.now().UTC()
	if s.audit != nil {
		s.audit.RecordAuth(e)
	}
}

// Login verifies a password and opens a session. Lockout is checked
// before the password so a locked subject learns nothing about the
// credential, and failures count toward both username and IP.
func (s *Service) Login(ctx context.Context, username, password, ip, userAgent string) (*LoginResult, error) {
	log := logging.LoggerFromContext(ctx)

	if locked, remaining := s.lockout.CheckLocked(username, ip); locked {
		metrics.AuthAttemptsTotal.WithLabelValues("locked").Inc()
		s.record(AuthEvent{Type: "login", IP: ip, UserAgent: userAgent, Outcome: "denied", Detail: "locked out"})
		return nil, &LockedOutError{Remaining: remaining}
	}

	fail := func(detail string) (*LoginResult, error) {
		if locked, remaining := s.lockout.RecordFailure(username, ip); locked {
			metrics.AuthAttemptsTotal.WithLabelValues("locked").Inc()
			s.record(AuthEvent{Type: "login", IP: ip, UserAgent: userAgent, Outcome: "denied", Detail: "locked out after failure: " + detail})
			return nil, &LockedOutError{Remaining: remaining}
		}
		metrics.AuthAttemptsTotal.WithLabelValues("bad_credentials").Inc()
		s.record(AuthEvent{Type: "login", IP: ip, UserAgent: userAgent, Outcome: "denied", Detail: detail})
		return nil, NewAuthenticationError(detail)
	}

	u, err := s.users.ByUsername(username)
	if err != nil {
		return fail("unknown user " + username)
	}
	if !identity.VerifyPassword(u.PasswordHash, password) {
		return fail("bad credentials for " + username)
	}
	if u.Status != identity.StatusActive {
		// A correct password against a non-active account is not a
		// guessing signal; report without counting a failure.
		metrics.AuthAttemptsTotal.WithLabelValues("bad_credentials").Inc()
		s.record(AuthEvent{Type: "login", UserID: u.ID, IP: ip, UserAgent: userAgent, Outcome: "denied", Detail: "account status " + string(u.Status)})
		return nil, NewAuthenticationError("account status " + string(u.Status))
	}

	s.lockout.Clear(username)
	s.users.RecordLogin(u.ID)

	sess := NewSession(u.ID, u.TokenVersion, s.sessionTTL, ip, userAgent)
	if u.MFAEnabled {
		if err := sess.Transition(StateMfaPending); err != nil {
			return nil, err
		}
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	metrics.SessionsCreatedTotal.Inc()
	if u.MFAEnabled {
		metrics.AuthAttemptsTotal.WithLabelValues("mfa_required").Inc()
	} else {
		metrics.AuthAttemptsTotal.WithLabelValues("ok").Inc()
	}
	log.Info().
		Str("user_id", u.ID).
		Str("session_id", sess.ID).
		Bool("mfa_required", u.MFAEnabled).
		Msg("Password verified, session opened")
	s.record(AuthEvent{Type: "login", UserID: u.ID, SessionID: sess.ID, IP: ip, UserAgent: userAgent, Outcome: "ok"})

	return &LoginResult{Session: sess.clone(), MFARequired: u.MFAEnabled}, nil
}

// LoginExternal opens a session for a user an upstream identity
// provider has already authenticated. No lockout bookkeeping applies,
// there is no local credential to guess. Local MFA still gates the
// session when the user has it enrolled.
func (s *Service) LoginExternal(ctx context.Context, userID, ip, userAgent string) (*LoginResult, error) {
	u, err := s.users.ByID(userID)
	if err != nil {
		return nil, NewAuthenticationError("unknown user " + userID)
	}
	if u.Status != identity.StatusActive {
		s.record(AuthEvent{Type: "login", UserID: u.ID, IP: ip, UserAgent: userAgent, Outcome: "denied", Detail: "account status " + string(u.Status)})
		return nil, NewAuthenticationError("account status " + string(u.Status))
	}

	s.users.RecordLogin(u.ID)

	sess := NewSession(u.ID, u.TokenVersion, s.sessionTTL, ip, userAgent)
	if u.MFAEnabled {
		if err := sess.Transition(StateMfaPending); err != nil {
			return nil, err
		}
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	metrics.SessionsCreatedTotal.Inc()
	metrics.AuthAttemptsTotal.WithLabelValues("ok").Inc()
	logging.LoggerFromContext(ctx).Info().
		Str("user_id", u.ID).
		Str("session_id", sess.ID).
		Bool("mfa_required", u.MFAEnabled).
		Msg("Federated login, session opened")
	s.record(AuthEvent{Type: "login", UserID: u.ID, SessionID: sess.ID, IP: ip, UserAgent: userAgent, Outcome: "ok", Detail: "federated"})

	return &LoginResult{Session: sess.clone(), MFARequired: u.MFAEnabled}, nil
}

// VerifyMFA advances an mfa_pending session after a valid second factor.
func (s *Service) VerifyMFA(ctx context.Context, sessionID, code string) (*Session, error) {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.loadLive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State != StateMfaPending {
		return nil, NewAuthenticationError("session is not awaiting mfa")
	}

	method, err := s.mfa.Verify(sess.UserID, code)
	if err != nil {
		s.record(AuthEvent{Type: "mfa_verify", UserID: sess.UserID, SessionID: sess.ID, Outcome: "denied", Detail: "invalid code"})
		return nil, err
	}

	if err := sess.Transition(StateMfaVerified); err != nil {
		return nil, err
	}
	sess.Trust = authz.TrustMFA
	sess.MfaVerifiedAt = s.now().UTC()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	logging.LoggerFromContext(ctx).Info().
		Str("user_id", sess.UserID).
		Str("session_id", sess.ID).
		Str("method", method).
		Msg("Second factor verified")
	s.record(AuthEvent{Type: "mfa_verify", UserID: sess.UserID, SessionID: sess.ID, Outcome: "ok", Detail: method})
	return sess.clone(), nil
}

// IssueTokens mints the first access/refresh pair for a session. Legal
// only from password_verified (account without MFA) or mfa_verified; a
// password_verified session whose account has MFA enabled is moved to
// mfa_pending and refused.
func (s *Service) IssueTokens(ctx context.Context, sessionID string) (*TokenPair, error) {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.loadLive(ctx, sessionID)
	if err != nil {
		metrics.TokenOperationsTotal.WithLabelValues("issue", "error").Inc()
		return nil, err
	}

	switch sess.State {
	case StatePasswordVerified:
		u, err := s.users.ByID(sess.UserID)
		if err != nil {
			metrics.TokenOperationsTotal.WithLabelValues("issue", "error").Inc()
			return nil, NewAuthenticationError("session user missing")
		}
		if u.MFAEnabled {
			// MFA was enabled between password check and issuance.
			if err := sess.Transition(StateMfaPending); err != nil {
				return nil, err
			}
			if err := s.sessions.Save(ctx, sess); err != nil {
				return nil, fmt.Errorf("save session: %w", err)
			}
			metrics.TokenOperationsTotal.WithLabelValues("issue", "error").Inc()
			s.record(AuthEvent{Type: "issue", UserID: sess.UserID, SessionID: sess.ID, Outcome: "denied", Detail: "mfa required"})
			return nil, &MfaRequiredError{SessionID: sess.ID}
		}
	case StateMfaVerified:
		// Ready.
	case StateMfaPending:
		metrics.TokenOperationsTotal.WithLabelValues("issue", "error").Inc()
		s.record(AuthEvent{Type: "issue", UserID: sess.UserID, SessionID: sess.ID, Outcome: "denied", Detail: "mfa required"})
		return nil, &MfaRequiredError{SessionID: sess.ID}
	case StateActive:
		metrics.TokenOperationsTotal.WithLabelValues("issue", "error").Inc()
		return nil, NewAuthenticationError("tokens already issued; use refresh")
	default:
		metrics.TokenOperationsTotal.WithLabelValues("issue", "error").Inc()
		return nil, NewAuthenticationError("session state " + string(sess.State) + " cannot issue tokens")
	}

	pair, err := s.issueLocked(ctx, sess, 1)
	if err != nil {
		metrics.TokenOperationsTotal.WithLabelValues("issue", "error").Inc()
		return nil, err
	}
	metrics.TokenOperationsTotal.WithLabelValues("issue", "ok").Inc()
	s.record(AuthEvent{Type: "issue", UserID: sess.UserID, SessionID: sess.ID, Outcome: "ok"})
	return pair, nil
}

// Refresh rotates a refresh token. Presenting any version other than the
// session's current one is treated as reuse of a stolen token: the whole
// session is revoked and both the thief and the legitimate holder are
// cut off.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.Parse(refreshToken, KindRefresh)
	if err != nil {
		metrics.TokenOperationsTotal.WithLabelValues("refresh", "error").Inc()
		return nil, err
	}

	mu := s.lockFor(claims.SessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.loadLive(ctx, claims.SessionID)
	if err != nil {
		metrics.TokenOperationsTotal.WithLabelValues("refresh", "error").Inc()
		return nil, err
	}
	if sess.State != StateActive {
		metrics.TokenOperationsTotal.WithLabelValues("refresh", "error").Inc()
		return nil, NewAuthenticationError("session has no issued tokens")
	}

	if claims.RefreshVersion != sess.RefreshVersion {
		metrics.RefreshReuseDetected.Inc()
		metrics.TokenOperationsTotal.WithLabelValues("refresh", "error").Inc()
		logging.LoggerFromContext(ctx).Error().
			Str("session_id", sess.ID).
			Str("user_id", sess.UserID).
			Int("presented_version", claims.RefreshVersion).
			Int("current_version", sess.RefreshVersion).
			Msg("Refresh token reuse detected, revoking session")
		if err := s.revokeLocked(ctx, sess, "reuse"); err != nil {
			return nil, err
		}
		s.record(AuthEvent{Type: "reuse_detected", UserID: sess.UserID, SessionID: sess.ID, Outcome: "denied", Detail: "refresh version mismatch"})
		return nil, &RevokedSessionError{SessionID: sess.ID}
	}

	u, err := s.users.ByID(sess.UserID)
	if err != nil {
		metrics.TokenOperationsTotal.WithLabelValues("refresh", "error").Inc()
		return nil, NewAuthenticationError("session user missing")
	}
	if u.Status != identity.StatusActive {
		metrics.TokenOperationsTotal.WithLabelValues("refresh", "error").Inc()
		if err := s.revokeLocked(ctx, sess, "admin"); err != nil {
			return nil, err
		}
		return nil, NewAuthenticationError("account status " + string(u.Status))
	}
	if u.TokenVersion != claims.UserVersion {
		// Password changed since this token was minted.
		metrics.TokenOperationsTotal.WithLabelValues("refresh", "error").Inc()
		if err := s.revokeLocked(ctx, sess, "password_change"); err != nil {
			return nil, err
		}
		s.record(AuthEvent{Type: "refresh", UserID: sess.UserID, SessionID: sess.ID, Outcome: "denied", Detail: "stale user token version"})
		return nil, &RevokedSessionError{SessionID: sess.ID}
	}

	pair, err := s.issueLocked(ctx, sess, sess.RefreshVersion+1)
	if err != nil {
		metrics.TokenOperationsTotal.WithLabelValues("refresh", "error").Inc()
		return nil, err
	}
	metrics.TokenOperationsTotal.WithLabelValues("refresh", "ok").Inc()
	s.record(AuthEvent{Type: "refresh", UserID: sess.UserID, SessionID: sess.ID, Outcome: "ok"})
	return pair, nil
}

// issueLocked moves the session to active at the given refresh version
// and mints the pair. Callers hold the session stripe.
func (s *Service) issueLocked(ctx context.Context, sess *Session, refreshVersion int) (*TokenPair, error) {
	sess.RefreshVersion = refreshVersion
	if err := sess.Transition(StateActive); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	access, accessExp, err := s.jwt.IssueAccess(sess.UserID, sess.ID, sess.UserVersion, sess.Trust)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.jwt.IssueRefresh(sess.UserID, sess.ID, sess.RefreshVersion, sess.UserVersion)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		TokenType:        "Bearer",
	}, nil
}

// VerifyAccessToken checks signature and expiry locally and returns the
// caller's identity. It never touches the session store; revocation
// takes effect at the next refresh, bounded by the access TTL.
func (s *Service) VerifyAccessToken(tokenString string) (*Identity, error) {
	claims, err := s.jwt.Parse(tokenString, KindAccess)
	if err != nil {
		metrics.TokenOperationsTotal.WithLabelValues("verify", "error").Inc()
		return nil, err
	}
	metrics.TokenOperationsTotal.WithLabelValues("verify", "ok").Inc()
	return &Identity{
		UserID:      claims.Subject,
		SessionID:   claims.SessionID,
		Trust:       authz.TrustLevel(claims.Trust),
		UserVersion: claims.UserVersion,
	}, nil
}

// Logout revokes one session. Unknown or already terminal sessions are
// fine; logout is idempotent.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess.State.Terminal() {
		return nil
	}
	if err := s.revokeLocked(ctx, sess, "logout"); err != nil {
		return err
	}
	s.record(AuthEvent{Type: "logout", UserID: sess.UserID, SessionID: sess.ID, Outcome: "ok"})
	return nil
}

// RevokeSession revokes one session with a cause (admin action).
func (s *Service) RevokeSession(ctx context.Context, sessionID, cause string) error {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return &authz.NotFoundError{Kind: "session", ID: sessionID}
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess.State.Terminal() {
		return nil
	}
	if err := s.revokeLocked(ctx, sess, cause); err != nil {
		return err
	}
	s.record(AuthEvent{Type: "revoke", UserID: sess.UserID, SessionID: sess.ID, Outcome: "ok", Detail: cause})
	return nil
}

// RevokeAllForUser revokes every live session a user has and returns the
// count. Used on password change and administrative lockout.
func (s *Service) RevokeAllForUser(ctx context.Context, userID, cause string) (int, error) {
	sessions, err := s.sessions.ByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}
	count := 0
	for _, sess := range sessions {
		if sess.State.Terminal() {
			continue
		}
		mu := s.lockFor(sess.ID)
		mu.Lock()
		current, err := s.sessions.Get(ctx, sess.ID)
		if err == nil && !current.State.Terminal() {
			if err := s.revokeLocked(ctx, current, cause); err == nil {
				count++
			}
		}
		mu.Unlock()
	}
	if count > 0 {
		s.record(AuthEvent{Type: "revoke_all", UserID: userID, Outcome: "ok", Detail: cause})
	}
	return count, nil
}

// Sessions lists a user's sessions for the admin and self-service views.
func (s *Service) Sessions(ctx context.Context, userID string) ([]*Session, error) {
	return s.sessions.ByUserID(ctx, userID)
}

// revokeLocked marks the session revoked. Callers hold the stripe.
func (s *Service) revokeLocked(ctx context.Context, sess *Session, cause string) error {
	if err := sess.Transition(StateRevoked); err != nil {
		return err
	}
	sess.RevokedAt = s.now().UTC()
	sess.RevokeCause = cause
	if err := s.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("save revoked session: %w", err)
	}
	metrics.SessionsRevokedTotal.WithLabelValues(cause).Inc()
	return nil
}

// loadLive loads a session and applies clock expiry. Expired sessions
// are persisted as expired; revoked ones surface RevokedSessionError.
func (s *Service) loadLive(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, NewAuthenticationError("unknown session")
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess.State == StateRevoked {
		return nil, &RevokedSessionError{SessionID: sess.ID}
	}
	if sess.State == StateExpired {
		return nil, NewAuthenticationError("session expired")
	}
	if sess.Expired(s.now()) {
		if err := sess.Transition(StateExpired); err == nil {
			if saveErr := s.sessions.Save(ctx, sess); saveErr != nil {
				logging.LoggerFromContext(ctx).Warn().Err(saveErr).Str("session_id", sess.ID).Msg("Failed to persist session expiry")
			}
			metrics.SessionsRevokedTotal.WithLabelValues("expired").Inc()
		}
		return nil, NewAuthenticationError("session expired")
	}
	return sess, nil
}

// Sweep removes sessions that expired before now and returns the count.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}

// Run sweeps expired sessions periodically until the context ends.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.Sweep(ctx); err != nil {
				logging.Error().Err(err).Msg("Session sweep failed")
			} else if n > 0 {
				logging.Debug().Int("removed", n).Msg("Swept expired sessions")
			}
		}
	}
}
