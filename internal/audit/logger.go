// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package audit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/logging"
	"github.com/tomtom215/aegis/internal/metrics"
	"github.com/tomtom215/aegis/internal/token"
)

// Config controls what the audit pipeline records and how long it keeps it.
type Config struct {
	Enabled         bool          `json:"enabled"`          // master switch for recording
	LogLevel        Severity      `json:"log_level"`        // minimum severity recorded
	RetentionDays   int           `json:"retention_days"`   // age in days before cleanup deletes an event
	CleanupInterval time.Duration `json:"cleanup_interval"` // pause between retention sweeps
	BufferSize      int           `json:"buffer_size"`      // writer queue capacity before events drop
	LogToStdout     bool          `json:"log_to_stdout"`    // mirror each event into the application log
	IncludeDebug    bool          `json:"include_debug"`    // record debug-severity events as well
}

// DefaultConfig returns the audit settings the server ships with.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		LogLevel:        SeverityInfo,
		RetentionDays:   90,
		CleanupInterval: 24 * time.Hour,
		BufferSize:      1000,
	}
}

// Logger is the audit pipeline. Producers hand it events through Log or
// the sink adapters (RecordDecision, RecordAuth); a single writer
// goroutine seals each event into the hash chain and persists it, so
// recording never blocks a decision or a token operation. A full buffer
// drops the event with a log line and a metric, never silently.
type Logger struct {
	config    *Config
	store     Store
	chain     *Chainer
	eventChan chan *Event
	mu        sync.RWMutex
	notify    func(Event)
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// Interface checks: the logger is the audit sink for both the evaluator
// and the token service.
var (
	_ authz.AuditSink = (*Logger)(nil)
	_ token.AuditSink = (*Logger)(nil)
)

// NewLogger creates an audit logger and starts its writer goroutine.
// The chainer may be nil, in which case events are persisted unsealed.
func NewLogger(store Store, chain *Chainer, config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}

	l := &Logger{
		config:    config,
		store:     store,
		chain:     chain,
		eventChan: make(chan *Event, config.BufferSize),
		stopChan:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.asyncWriter()

	return l
}

// ResumeChain continues the hash chain from the newest persisted event.
// Call once at startup, before any event is logged.
func (l *Logger) ResumeChain(ctx context.Context) error {
	if l.chain == nil || l.store == nil {
		return nil
	}

	events, err := l.store.Query(ctx, QueryFilter{Limit: 1, OrderBy: "seq", OrderDesc: true})
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	l.chain.Resume(events[0].Seq, events[0].Hash)
	return nil
}

// SetNotifier registers a callback invoked from the writer goroutine
// after each event is sealed. The stream hub uses this to fan events out
// to websocket subscribers; the callback must not block.
func (l *Logger) SetNotifier(fn func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notify = fn
}

// asyncWriter processes events from the buffer in arrival order, which
// is the order the hash chain records.
func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			// Flush what is already queued, then exit.
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

// writeEvent seals an event into the chain and persists it.
func (l *Logger) writeEvent(event *Event) {
	metrics.AuditBufferDepth.Set(float64(len(l.eventChan)))

	if l.chain != nil {
		l.chain.Seal(event)
	}

	l.mu.RLock()
	config := l.config
	notify := l.notify
	l.mu.RUnlock()

	if config.LogToStdout {
		l.logToStdout(event)
	}

	if l.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := l.store.Save(ctx, event); err != nil {
			logging.Error().Err(err).Str("event_id", event.ID).Str("event_type", string(event.Type)).Msg("Failed to save audit event")
		}
	}

	if notify != nil {
		notify(*event)
	}
}

// logToStdout mirrors an event into the application log as raw JSON.
func (l *Logger) logToStdout(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logging.Error().Err(err).Str("event_id", event.ID).Msg("Audit event does not marshal")
		return
	}
	logging.Info().RawJSON("audit_event", data).Msg("Audit event recorded")
}

// Log records an audit event. Non-blocking: if the buffer is full the
// event is dropped with a warning and a counter increment.
func (l *Logger) Log(event *Event) {
	l.mu.RLock()
	config := l.config
	l.mu.RUnlock()

	if !config.Enabled {
		return
	}

	if !l.shouldLog(event.Severity, config) {
		return
	}

	if event.ID == "" {
		event.ID = generateEventID()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case l.eventChan <- event:
		metrics.AuditEventsTotal.WithLabelValues(string(event.Type)).Inc()
		metrics.AuditBufferDepth.Set(float64(len(l.eventChan)))
	default:
		metrics.AuditEventsDropped.Inc()
		logging.Warn().Str("event_id", event.ID).Str("event_type", string(event.Type)).Msg("Audit event buffer full, dropping event")
	}
}

// shouldLog applies the severity floor. Debug events additionally need
// IncludeDebug, whatever the configured level.
func (l *Logger) shouldLog(severity Severity, config *Config) bool {
	if severity == SeverityDebug && !config.IncludeDebug {
		return false
	}
	return severityRank(severity) >= severityRank(config.LogLevel)
}

// severityRank orders severities for level filtering. Unknown values
// rank lowest.
func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Close drains the buffer and stops the writer goroutine.
func (l *Logger) Close() error {
	close(l.stopChan)
	l.wg.Wait()
	return nil
}

// StartCleanupRoutine launches the retention sweeper. Every
// CleanupInterval it deletes events older than RetentionDays, until ctx
// ends.
func (l *Logger) StartCleanupRoutine(ctx context.Context) {
	l.mu.RLock()
	interval := l.config.CleanupInterval
	retention := l.config.RetentionDays
	l.mu.RUnlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -retention)
				count, err := l.store.Delete(ctx, cutoff)
				if err != nil {
					logging.Error().Err(err).Msg("Audit retention sweep failed")
				} else if count > 0 {
					logging.Info().Int64("count", count).Msg("Expired audit events removed")
				}
			}
		}
	}()
}

// Query reads events back from the store, honoring filter's ordering
// and paging.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Count reports how many stored events match filter.
func (l *Logger) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return l.store.Count(ctx, filter)
}

// Get retrieves one event by id.
func (l *Logger) Get(ctx context.Context, id string) (*Event, error) {
	return l.store.Get(ctx, id)
}

// Stats summarizes the persisted events.
func (l *Logger) Stats(ctx context.Context) (*Stats, error) {
	return l.store.GetStats(ctx)
}

// verifyPageSize bounds how many events one verification read loads.
const verifyPageSize = 1000

// VerifyRange checks hash-chain integrity for all persisted events in
// the given time window and returns the number verified. The window may
// be open on either side. The first event's PrevHash is taken on trust;
// everything after it must link and re-hash correctly.
func (l *Logger) VerifyRange(ctx context.Context, start, end *time.Time) (int, error) {
	if l.chain == nil {
		return 0, fmt.Errorf("audit chain verification requires a configured chain secret")
	}

	filter := QueryFilter{
		StartTime: start,
		EndTime:   end,
		OrderBy:   "seq",
		Limit:     verifyPageSize,
	}

	verified := 0
	prevHash := ""

	for {
		events, err := l.store.Query(ctx, filter)
		if err != nil {
			return verified, err
		}
		if len(events) == 0 {
			return verified, nil
		}

		if verified == 0 {
			prevHash = events[0].PrevHash
		}

		if err := l.chain.VerifyFrom(prevHash, events); err != nil {
			var chainErr *ChainError
			if errors.As(err, &chainErr) {
				chainErr.Index += verified
			}
			return verified, err
		}

		verified += len(events)
		prevHash = events[len(events)-1].Hash
		filter.Offset += len(events)

		if len(events) < verifyPageSize {
			return verified, nil
		}
	}
}

// SetEnabled flips recording on or off at runtime.
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Enabled = enabled
}

// Enabled reports whether events are being recorded.
func (l *Logger) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config.Enabled
}

// generateEventID returns a random UUID, falling back to a timestamp
// when the randomness source fails.
func generateEventID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return time.Now().Format("20060102150405.000000000")
	}
	return id.String()
}

// RecordDecision implements authz.AuditSink. Every evaluation produces
// exactly one decision event; the reason chain and snapshot versions go
// into metadata, never back to the caller.
func (l *Logger) RecordDecision(d authz.Decision) {
	severity := SeverityInfo
	outcome := OutcomeSuccess
	if !d.Allowed {
		severity = SeverityWarning
		outcome = OutcomeFailure
	}
	if d.ConsistencyErr {
		severity = SeverityCritical
	}

	l.Log(&Event{
		Timestamp: d.EvaluatedAt,
		Type:      EventTypeDecision,
		Severity:  severity,
		Outcome:   outcome,
		Actor: Actor{
			ID:   d.SubjectID,
			Type: "user",
		},
		Target: &Target{
			ID:   d.Resource.ID,
			Type: d.Resource.Type,
		},
		Action:      d.Action,
		Description: describeDecision(&d),
		Metadata: mustJSON(map[string]any{
			"source":          d.Source,
			"reasons":         d.Reasons,
			"role_version":    d.RoleVersion,
			"policy_version":  d.PolicyVersion,
			"consistency_err": d.ConsistencyErr,
		}),
		CorrelationID: d.ID,
	})
}

// describeDecision summarizes a decision for the event description.
func describeDecision(d *authz.Decision) string {
	verdict := "allowed"
	if !d.Allowed {
		verdict = "denied"
	}

	resource := d.Resource.Type
	if d.Resource.ID != "" {
		resource += "/" + d.Resource.ID
	}

	return verdict + " " + d.Action + " on " + resource
}

// RecordAuth implements token.AuditSink. Authentication lifecycle events
// map onto the auth.* event types; refresh-token reuse is the one
// critical signal.
func (l *Logger) RecordAuth(e token.AuthEvent) {
	severity := SeverityInfo
	outcome := OutcomeSuccess
	if e.Outcome != "ok" {
		severity = SeverityWarning
		outcome = OutcomeFailure
	}
	if e.Type == "reuse_detected" {
		severity = SeverityCritical
	}

	event := &Event{
		Timestamp: e.At,
		Type:      EventType("auth." + e.Type),
		Severity:  severity,
		Outcome:   outcome,
		Actor: Actor{
			ID:        e.UserID,
			Type:      "user",
			SessionID: e.SessionID,
		},
		Source: Source{
			IPAddress: e.IP,
			UserAgent: e.UserAgent,
		},
		Action:      e.Type,
		Description: describeAuth(&e),
	}

	if e.SessionID != "" {
		event.Target = &Target{ID: e.SessionID, Type: "session"}
	}
	if e.Detail != "" {
		event.Metadata = mustJSON(map[string]string{"detail": e.Detail})
	}

	l.Log(event)
}

// describeAuth summarizes an auth event for the event description.
func describeAuth(e *token.AuthEvent) string {
	if e.Detail != "" {
		return e.Type + " " + e.Outcome + ": " + e.Detail
	}
	return e.Type + " " + e.Outcome
}

// Helper methods for administrative audit events

// LogAdminAction records an administrative change performed through the
// management API.
//
//nolint:gocritic // hugeParam: a copied Actor keeps call sites simple
func (l *Logger) LogAdminAction(ctx context.Context, eventType EventType, actor Actor, source Source, target *Target, action, description string, metadata map[string]any) {
	l.Log(&Event{
		Type:        eventType,
		Severity:    SeverityWarning,
		Outcome:     OutcomeSuccess,
		Actor:       actor,
		Source:      source,
		Target:      target,
		Action:      action,
		Description: description,
		Metadata:    mustJSON(metadata),
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// mustJSON marshals v, degrading to an empty object instead of failing
// the event.
func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

// SourceFromRequest extracts the network origin from r, preferring
// proxy headers over the socket address.
func SourceFromRequest(r *http.Request) Source {
	ip := r.RemoteAddr
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip = xff
	} else if xri := r.Header.Get("X-Real-IP"); xri != "" {
		ip = xri
	}

	return Source{
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}

// ActorFromSubject creates an Actor from an authenticated identity.
func ActorFromSubject(id, name string, roles []string, sessionID string) Actor {
	return Actor{
		ID:        id,
		Type:      "user",
		Name:      name,
		Roles:     roles,
		SessionID: sessionID,
	}
}

// SystemActor is the actor recorded when Aegis acts on its own behalf.
func SystemActor() Actor {
	return Actor{
		ID:   "system",
		Type: "system",
		Name: "Aegis",
	}
}
