// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package audit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps events in an in-memory slice, in insertion order.
// Development and test backend; data is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
	maxLen int
}

// NewMemoryStore creates an in-memory audit store holding at most
// maxLen events.
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemoryStore{
		events: make([]Event, 0, maxLen),
		maxLen: maxLen,
	}
}

// Save appends an event. When the store is full the oldest 10% are
// evicted, so a long-running dev instance degrades to a sliding window
// instead of failing.
func (s *MemoryStore) Save(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) >= s.maxLen {
		drop := s.maxLen / 10
		if drop == 0 {
			drop = 1
		}
		s.events = s.events[drop:]
	}
	s.events = append(s.events, *event)
	return nil
}

// Get scans for the event with the given id, mapping a miss onto
// ErrEventNotFound.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.events {
		if s.events[i].ID == id {
			event := s.events[i]
			return &event, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEventNotFound, id)
}

// oneOf reports whether v is in values. An empty values slice means the
// filter dimension is unconstrained.
func oneOf[T comparable](values []T, v T) bool {
	if len(values) == 0 {
		return true
	}
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// eventMatches applies every filter dimension to one event.
func eventMatches(e *Event, f *QueryFilter) bool {
	if !oneOf(f.Types, e.Type) || !oneOf(f.Severities, e.Severity) || !oneOf(f.Outcomes, e.Outcome) {
		return false
	}

	equalities := [...]struct{ want, got string }{
		{f.ActorID, e.Actor.ID},
		{f.SessionID, e.Actor.SessionID},
		{f.Action, e.Action},
		{f.SourceIP, e.Source.IPAddress},
		{f.CorrelationID, e.CorrelationID},
		{f.RequestID, e.RequestID},
	}
	for _, eq := range equalities {
		if eq.want != "" && eq.got != eq.want {
			return false
		}
	}

	if f.TargetID != "" && (e.Target == nil || e.Target.ID != f.TargetID) {
		return false
	}
	if f.TargetType != "" && (e.Target == nil || e.Target.Type != f.TargetType) {
		return false
	}

	if f.StartTime != nil && e.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && e.Timestamp.After(*f.EndTime) {
		return false
	}

	if f.SearchText != "" {
		needle := strings.ToLower(f.SearchText)
		if !strings.Contains(strings.ToLower(e.Description), needle) &&
			!strings.Contains(strings.ToLower(e.Action), needle) {
			return false
		}
	}

	return true
}

// Query retrieves events matching the filter. Insertion order is chain
// (seq) order and close enough to timestamp order, so OrderBy is
// ignored; only OrderDesc, Offset and Limit are honored.
func (s *MemoryStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Event
	for i := range s.events {
		if eventMatches(&s.events[i], &filter) {
			matched = append(matched, s.events[i])
		}
	}

	if filter.OrderDesc {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

// Count reports how many events match the filter.
func (s *MemoryStore) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for i := range s.events {
		if eventMatches(&s.events[i], &filter) {
			count++
		}
	}
	return count, nil
}

// Delete drops events recorded before olderThan and reports how many
// went.
func (s *MemoryStore) Delete(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	kept := s.events[:0]
	for i := range s.events {
		if s.events[i].Timestamp.Before(olderThan) {
			deleted++
		} else {
			kept = append(kept, s.events[i])
		}
	}

	s.events = kept
	return deleted, nil
}

// Clear empties the store. Test helper.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
}

// Len reports how many events are held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// GetStats aggregates event counts and the stored time range.
func (s *MemoryStore) GetStats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		TotalEvents:      int64(len(s.events)),
		EventsByType:     make(map[string]int64),
		EventsBySeverity: make(map[string]int64),
		EventsByOutcome:  make(map[string]int64),
	}

	for i := range s.events {
		event := &s.events[i]
		stats.EventsByType[string(event.Type)]++
		stats.EventsBySeverity[string(event.Severity)]++
		stats.EventsByOutcome[string(event.Outcome)]++

		if stats.OldestEvent == nil || event.Timestamp.Before(*stats.OldestEvent) {
			t := event.Timestamp
			stats.OldestEvent = &t
		}
		if stats.NewestEvent == nil || event.Timestamp.After(*stats.NewestEvent) {
			t := event.Timestamp
			stats.NewestEvent = &t
		}
	}

	return stats, nil
}
