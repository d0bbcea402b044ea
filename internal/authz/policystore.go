// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package authz

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/aegis/internal/logging"
	"github.com/tomtom215/aegis/internal/metrics"
)

// policySnapshot is one immutable point-in-time view of the policy set.
// ordered holds every policy pre-sorted into evaluation order so reads
// never sort.
type policySnapshot struct {
	version  uint64
	policies map[string]*Policy
	ordered  []*Policy
	history  map[string][]*Policy // prior revisions, oldest first
}

// PolicyStore holds attribute policies with per-policy version history.
// Reads are lock-free against the current snapshot; writes serialize
// behind mu and publish a new snapshot atomically.
type PolicyStore struct {
	mu   sync.Mutex
	snap atomic.Pointer[policySnapshot]
	now  func() time.Time // test hook
}

// NewPolicyStore returns an empty policy store.
func NewPolicyStore() *PolicyStore {
	s := &PolicyStore{now: time.Now}
	s.snap.Store(&policySnapshot{
		policies: map[string]*Policy{},
		history:  map[string][]*Policy{},
	})
	return s
}

// Version returns the current snapshot version.
func (s *PolicyStore) Version() uint64 {
	return s.snap.Load().version
}

func (s *PolicyStore) snapshot() *policySnapshot {
	return s.snap.Load()
}

// evaluationOrder sorts policies deterministically: priority descending,
// then creation time ascending, then id ascending. Same request against
// the same snapshot always walks policies in the same order.
func evaluationOrder(policies map[string]*Policy) []*Policy {
	out := make([]*Policy, 0, len(policies))
	for _, p := range policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// publish installs a new snapshot. Callers must hold mu.
func (s *PolicyStore) publish(policies map[string]*Policy, history map[string][]*Policy) {
	next := &policySnapshot{
		version:  s.snap.Load().version + 1,
		policies: policies,
		ordered:  evaluationOrder(policies),
		history:  history,
	}
	s.snap.Store(next)
	metrics.SnapshotVersion.WithLabelValues("policies").Set(float64(next.version))
	metrics.SnapshotSwapsTotal.WithLabelValues("policies").Inc()
}

func copyPolicies(src map[string]*Policy) map[string]*Policy {
	dst := make(map[string]*Policy, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyHistory(src map[string][]*Policy) map[string][]*Policy {
	dst := make(map[string][]*Policy, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// ValidatePolicy rejects structurally malformed policies at write time.
func ValidatePolicy(p Policy) error {
	if strings.TrimSpace(p.ID) == "" {
		return NewValidationError("policy.id", "must not be empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("policy.name", "must not be empty")
	}
	if !p.Effect.Valid() {
		return NewValidationError("policy.effect", fmt.Sprintf("unknown effect %q", p.Effect))
	}
	if len(p.Rules) == 0 && len(p.Groups) == 0 {
		return NewValidationError("policy.rules", "policy must contain at least one rule")
	}
	for i, r := range p.Rules {
		if err := ValidateRule(fmt.Sprintf("policy.rules[%d]", i), r); err != nil {
			return err
		}
	}
	for gi, g := range p.Groups {
		if len(g.Rules) == 0 {
			return NewValidationError(fmt.Sprintf("policy.groups[%d].rules", gi), "group must contain at least one rule")
		}
		for ri, r := range g.Rules {
			if err := ValidateRule(fmt.Sprintf("policy.groups[%d].rules[%d]", gi, ri), r); err != nil {
				return err
			}
		}
	}
	return nil
}

// Upsert creates or updates a policy. The store manages versions: a new
// policy starts at 1 and every content update increments it, moving the
// superseded revision into history so recorded decisions stay
// interpretable.
func (s *PolicyStore) Upsert(p Policy) (Policy, error) {
	if err := ValidatePolicy(p); err != nil {
		return Policy{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	now := s.now().UTC()
	history := cur.history
	if prev, ok := cur.policies[p.ID]; ok {
		p.Version = prev.Version + 1
		p.CreatedAt = prev.CreatedAt
		history = copyHistory(cur.history)
		history[p.ID] = append(append([]*Policy(nil), cur.history[p.ID]...), prev)
	} else {
		p.Version = 1
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
	}
	p.UpdatedAt = now

	policies := copyPolicies(cur.policies)
	policies[p.ID] = p.clone()
	s.publish(policies, history)
	logging.Debug().Str("policy_id", p.ID).Int("version", p.Version).Str("effect", string(p.Effect)).Msg("Policy upserted")
	return p, nil
}

// Remove deletes a policy and its revision history.
func (s *PolicyStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	if _, ok := cur.policies[id]; !ok {
		return &NotFoundError{Kind: "policy", ID: id}
	}
	policies := copyPolicies(cur.policies)
	delete(policies, id)
	history := copyHistory(cur.history)
	delete(history, id)
	s.publish(policies, history)
	logging.Debug().Str("policy_id", id).Msg("Policy removed")
	return nil
}

// SetActive toggles a policy in or out of evaluation without changing its
// content version.
func (s *PolicyStore) SetActive(id string, active bool) (Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	prev, ok := cur.policies[id]
	if !ok {
		return Policy{}, &NotFoundError{Kind: "policy", ID: id}
	}
	if prev.Active == active {
		return *prev.clone(), nil
	}
	next := prev.clone()
	next.Active = active
	next.UpdatedAt = s.now().UTC()
	policies := copyPolicies(cur.policies)
	policies[id] = next
	s.publish(policies, cur.history)
	return *next.clone(), nil
}

// Policy returns a copy of the current revision of one policy.
func (s *PolicyStore) Policy(id string) (Policy, bool) {
	p, ok := s.snap.Load().policies[id]
	if !ok {
		return Policy{}, false
	}
	return *p.clone(), true
}

// History returns prior revisions of a policy, oldest first. The current
// revision is not included.
func (s *PolicyStore) History(id string) []Policy {
	revs := s.snap.Load().history[id]
	out := make([]Policy, 0, len(revs))
	for _, r := range revs {
		out = append(out, *r.clone())
	}
	return out
}

// List returns all current policies in evaluation order.
func (s *PolicyStore) List() []Policy {
	snap := s.snap.Load()
	out := make([]Policy, 0, len(snap.ordered))
	for _, p := range snap.ordered {
		out = append(out, *p.clone())
	}
	return out
}

// Replace swaps the entire policy set in one publish. Used by the store
// loader at startup. Histories reset; persisted revision history stays in
// the backing store.
func (s *PolicyStore) Replace(policies []Policy) error {
	next := make(map[string]*Policy, len(policies))
	for i := range policies {
		p := policies[i]
		if err := ValidatePolicy(p); err != nil {
			return err
		}
		if p.Version < 1 {
			p.Version = 1
		}
		next[p.ID] = p.clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(next, map[string][]*Policy{})
	logging.Info().Int("policies", len(next)).Msg("Policy set replaced")
	return nil
}

// activeFor selects active policies applying to the resource type, in
// evaluation order. A policy with an empty resource type applies to every
// type.
func (s *policySnapshot) activeFor(resourceType string) []*Policy {
	out := make([]*Policy, 0, len(s.ordered))
	for _, p := range s.ordered {
		if !p.Active {
			continue
		}
		if p.ResourceType != "" && p.ResourceType != resourceType {
			continue
		}
		out = append(out, p)
	}
	return out
}
