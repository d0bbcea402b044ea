// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/aegis/internal/logging"
)

// DuckDBStore is the durable decision log. Events land in a single
// audit_events table with the chain columns stored alongside the
// payload, so a seq-ordered range read is all verification needs.
type DuckDBStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewDuckDBStore wraps an open DuckDB handle. Call CreateTable once
// before first use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

const auditSchema = `
	CREATE TABLE IF NOT EXISTS audit_events (
		id TEXT PRIMARY KEY,
		seq BIGINT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		type TEXT NOT NULL,
		severity TEXT NOT NULL,
		outcome TEXT NOT NULL,

		actor_id TEXT NOT NULL,
		actor_type TEXT NOT NULL,
		actor_name TEXT,
		actor_roles JSON,
		actor_session_id TEXT,

		target_id TEXT,
		target_type TEXT,
		target_name TEXT,

		source_ip TEXT NOT NULL,
		source_user_agent TEXT,

		action TEXT NOT NULL,
		description TEXT NOT NULL,
		metadata JSON,

		correlation_id TEXT,
		request_id TEXT,

		prev_hash TEXT NOT NULL,
		hash TEXT NOT NULL,

		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

// auditIndexes covers the filterable columns. seq is unique: the chain
// assigns every event exactly one position.
var auditIndexes = []string{
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_audit_seq ON audit_events(seq)",
	"CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp DESC)",
	"CREATE INDEX IF NOT EXISTS idx_audit_type ON audit_events(type)",
	"CREATE INDEX IF NOT EXISTS idx_audit_severity ON audit_events(severity)",
	"CREATE INDEX IF NOT EXISTS idx_audit_outcome ON audit_events(outcome)",
	"CREATE INDEX IF NOT EXISTS idx_audit_actor_id ON audit_events(actor_id)",
	"CREATE INDEX IF NOT EXISTS idx_audit_session_id ON audit_events(actor_session_id)",
	"CREATE INDEX IF NOT EXISTS idx_audit_target_id ON audit_events(target_id)",
	"CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_events(action)",
	"CREATE INDEX IF NOT EXISTS idx_audit_source_ip ON audit_events(source_ip)",
	"CREATE INDEX IF NOT EXISTS idx_audit_correlation_id ON audit_events(correlation_id)",
	"CREATE INDEX IF NOT EXISTS idx_audit_request_id ON audit_events(request_id)",
	"CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_events(created_at DESC)",
}

// CreateTable creates the audit_events table and its indexes during
// database initialization. Every statement is idempotent.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, auditSchema); err != nil {
		return fmt.Errorf("create audit_events table: %w", err)
	}
	for _, stmt := range auditIndexes {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create audit index: %w", err)
		}
	}

	logging.Info().Msg("Audit events table ready")
	return nil
}

const insertEvent = `
	INSERT INTO audit_events (
		id, seq, timestamp, type, severity, outcome,
		actor_id, actor_type, actor_name, actor_roles, actor_session_id,
		target_id, target_type, target_name,
		source_ip, source_user_agent,
		action, description, metadata,
		correlation_id, request_id,
		prev_hash, hash, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Save persists one sealed event.
func (s *DuckDBStore) Save(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New("save nil audit event")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Roles always store as a JSON array so the column scans uniformly.
	roles := "[]"
	if len(event.Actor.Roles) > 0 {
		if data, err := json.Marshal(event.Actor.Roles); err == nil {
			roles = string(data)
		}
	}

	var targetID, targetType, targetName interface{}
	if event.Target != nil {
		targetID, targetType, targetName = event.Target.ID, event.Target.Type, event.Target.Name
	}

	var metadata interface{}
	if len(event.Metadata) > 0 {
		metadata = string(event.Metadata)
	}

	_, err := s.db.ExecContext(ctx, insertEvent,
		event.ID, int64(event.Seq), event.Timestamp,
		string(event.Type), string(event.Severity), string(event.Outcome),
		event.Actor.ID, event.Actor.Type, event.Actor.Name, roles, event.Actor.SessionID,
		targetID, targetType, targetName,
		event.Source.IPAddress, event.Source.UserAgent,
		event.Action, event.Description, metadata,
		event.CorrelationID, event.RequestID,
		event.PrevHash, event.Hash, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save audit event: %w", err)
	}
	return nil
}

// selectColumns casts the JSON columns to VARCHAR so database/sql can
// scan them as strings.
const selectColumns = `
		id, seq, timestamp, type, severity, outcome,
		actor_id, actor_type, actor_name,
		CAST(actor_roles AS VARCHAR),
		actor_session_id,
		target_id, target_type, target_name,
		source_ip, source_user_agent,
		action, description,
		CAST(metadata AS VARCHAR),
		correlation_id, request_id,
		prev_hash, hash`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanEvent reads one selectColumns row back into an Event, decoding
// the JSON columns and reassembling the optional target.
func scanEvent(row rowScanner) (*Event, error) {
	var (
		e          Event
		seq        int64
		typ        string
		severity   string
		outcome    string
		roles      sql.NullString
		targetID   sql.NullString
		targetType sql.NullString
		targetName sql.NullString
		metadata   sql.NullString
	)

	err := row.Scan(
		&e.ID, &seq, &e.Timestamp, &typ, &severity, &outcome,
		&e.Actor.ID, &e.Actor.Type, &e.Actor.Name, &roles, &e.Actor.SessionID,
		&targetID, &targetType, &targetName,
		&e.Source.IPAddress, &e.Source.UserAgent,
		&e.Action, &e.Description, &metadata,
		&e.CorrelationID, &e.RequestID,
		&e.PrevHash, &e.Hash,
	)
	if err != nil {
		return nil, err
	}

	e.Seq = uint64(seq)
	e.Type = EventType(typ)
	e.Severity = Severity(severity)
	e.Outcome = Outcome(outcome)

	if roles.Valid && roles.String != "" {
		if err := json.Unmarshal([]byte(roles.String), &e.Actor.Roles); err != nil {
			logging.Debug().Err(err).Str("roles", roles.String).Msg("Failed to parse actor roles JSON")
		}
	}
	if targetID.Valid {
		e.Target = &Target{ID: targetID.String, Type: targetType.String, Name: targetName.String}
	}
	if metadata.Valid && metadata.String != "" {
		e.Metadata = json.RawMessage(metadata.String)
	}
	return &e, nil
}

// Get looks up one event by id, mapping an empty result onto
// ErrEventNotFound.
func (s *DuckDBStore) Get(ctx context.Context, id string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT"+selectColumns+" FROM audit_events WHERE id = ?", id)

	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get audit event: %w", err)
	}
	return event, nil
}

// whereClause accumulates filter conditions and their arguments.
type whereClause struct {
	conds []string
	args  []interface{}
}

func (w *whereClause) eq(column, value string) {
	if value != "" {
		w.conds = append(w.conds, column+" = ?")
		w.args = append(w.args, value)
	}
}

func (w *whereClause) in(column string, values []string) {
	if len(values) == 0 {
		return
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	w.conds = append(w.conds, fmt.Sprintf("%s IN (%s)", column, marks))
	for _, v := range values {
		w.args = append(w.args, v)
	}
}

func (w *whereClause) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func toStrings[T ~string](values []T) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// filterWhere translates a QueryFilter into SQL conditions.
func filterWhere(filter QueryFilter) *whereClause {
	w := &whereClause{}

	w.in("type", toStrings(filter.Types))
	w.in("severity", toStrings(filter.Severities))
	w.in("outcome", toStrings(filter.Outcomes))

	w.eq("actor_id", filter.ActorID)
	w.eq("actor_session_id", filter.SessionID)
	w.eq("target_id", filter.TargetID)
	w.eq("target_type", filter.TargetType)
	w.eq("action", filter.Action)
	w.eq("source_ip", filter.SourceIP)
	w.eq("correlation_id", filter.CorrelationID)
	w.eq("request_id", filter.RequestID)

	if filter.StartTime != nil {
		w.conds = append(w.conds, "timestamp >= ?")
		w.args = append(w.args, *filter.StartTime)
	}
	if filter.EndTime != nil {
		w.conds = append(w.conds, "timestamp <= ?")
		w.args = append(w.args, *filter.EndTime)
	}

	if filter.SearchText != "" {
		pattern := "%" + strings.ToLower(filter.SearchText) + "%"
		w.conds = append(w.conds, "(LOWER(description) LIKE ? OR LOWER(action) LIKE ?)")
		w.args = append(w.args, pattern, pattern)
	}

	return w
}

// sortableColumns whitelists ORDER BY targets. Anything else falls back
// to timestamp.
var sortableColumns = map[string]bool{
	"timestamp": true, "seq": true, "type": true, "severity": true,
	"outcome": true, "actor_id": true, "action": true, "created_at": true,
}

func orderAndLimit(filter QueryFilter) string {
	column := "timestamp"
	if sortableColumns[filter.OrderBy] {
		column = filter.OrderBy
	}
	direction := "ASC"
	if filter.OrderDesc {
		direction = "DESC"
	}

	clause := fmt.Sprintf(" ORDER BY %s %s", column, direction)
	if filter.Limit > 0 {
		clause += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		clause += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}
	return clause
}

// Query retrieves events matching the filter. Rows that fail to scan
// are logged and skipped rather than failing the whole page.
func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := filterWhere(filter)
	query := "SELECT" + selectColumns + " FROM audit_events" + where.sql() + orderAndLimit(filter)

	rows, err := s.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			logging.Warn().Err(err).Msg("Audit row does not scan, skipped")
			continue
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

// Count reports how many events match the filter.
func (s *DuckDBStore) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := filterWhere(filter)

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events"+where.sql(), where.args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return count, nil
}

// Delete removes events older than the given time. Retention trims a
// prefix of the chain; range verification takes the first remaining
// PrevHash on trust.
func (s *DuckDBStore) Delete(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM audit_events WHERE timestamp < ?", olderThan)
	if err != nil {
		return 0, fmt.Errorf("delete old audit events: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleted event count: %w", err)
	}
	if count > 0 {
		logging.Info().Int64("deleted", count).Time("older_than", olderThan).Msg("Audit events past retention removed")
	}
	return count, nil
}

// GetStats aggregates event counts and the stored time range.
func (s *DuckDBStore) GetStats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events").Scan(&stats.TotalEvents); err != nil {
		return nil, fmt.Errorf("count audit events: %w", err)
	}

	var err error
	if stats.EventsByType, err = s.groupCounts(ctx, "type"); err != nil {
		return nil, err
	}
	if stats.EventsBySeverity, err = s.groupCounts(ctx, "severity"); err != nil {
		return nil, err
	}
	if stats.EventsByOutcome, err = s.groupCounts(ctx, "outcome"); err != nil {
		return nil, err
	}

	var oldest, newest sql.NullTime
	if err := s.db.QueryRowContext(ctx, "SELECT MIN(timestamp), MAX(timestamp) FROM audit_events").Scan(&oldest, &newest); err == nil {
		if oldest.Valid {
			stats.OldestEvent = &oldest.Time
		}
		if newest.Valid {
			stats.NewestEvent = &newest.Time
		}
	}

	return stats, nil
}

// groupCounts runs a GROUP BY over one enum column.
func (s *DuckDBStore) groupCounts(ctx context.Context, column string) (map[string]int64, error) {
	query := fmt.Sprintf("SELECT %s, COUNT(*) FROM audit_events GROUP BY %s", column, column)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count by %s: %w", column, err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err == nil {
			counts[key] = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s counts: %w", column, err)
	}
	return counts, nil
}
