// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// minChainSecretLength is the minimum HMAC key size in bytes.
const minChainSecretLength = 32

// Chainer seals audit events into a tamper-evident hash chain. Each
// event's hash is an HMAC-SHA256 over its canonical fields plus the hash
// of the previous event, so editing, removing, or reordering a stored
// event breaks verification from that point on. Chain order is tracked
// by a sequence number assigned at seal time; event timestamps come from
// producers and are not guaranteed monotonic.
type Chainer struct {
	secret []byte

	mu   sync.Mutex
	seq  uint64
	prev string
}

// NewChainer creates a hash chainer keyed with the given secret.
func NewChainer(secret []byte) (*Chainer, error) {
	if len(secret) < minChainSecretLength {
		return nil, fmt.Errorf("audit chain secret must be at least %d bytes, got %d", minChainSecretLength, len(secret))
	}

	return &Chainer{secret: secret}, nil
}

// Resume continues a chain from the last persisted event. Called once at
// startup, before any event is sealed.
func (c *Chainer) Resume(lastSeq uint64, lastHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq = lastSeq
	c.prev = lastHash
}

// Seal links the event to the chain, filling Seq, PrevHash, and Hash.
// Events must be sealed in the order they are persisted; the logger
// guarantees this by sealing inside its single writer goroutine.
func (c *Chainer) Seal(event *Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	event.Seq = c.seq
	event.PrevHash = c.prev
	event.Hash = c.compute(event)
	c.prev = event.Hash
}

// Verify checks the integrity of a contiguous range of events in chain
// order (ascending Seq). The first event's PrevHash is taken on trust
// since its predecessor is outside the range or never existed.
func (c *Chainer) Verify(events []Event) error {
	if len(events) == 0 {
		return nil
	}

	return c.VerifyFrom(events[0].PrevHash, events)
}

// VerifyFrom checks a contiguous range of events whose first event must
// link to prevHash. Used to carry the chain across paginated reads.
func (c *Chainer) VerifyFrom(prevHash string, events []Event) error {
	for i := range events {
		e := &events[i]

		if e.PrevHash != prevHash {
			return &ChainError{Index: i, EventID: e.ID, Reason: "chain link broken"}
		}

		if want := c.compute(e); !hmac.Equal([]byte(e.Hash), []byte(want)) {
			return &ChainError{Index: i, EventID: e.ID, Reason: "hash mismatch"}
		}

		prevHash = e.Hash
	}

	return nil
}

// compute returns the hex HMAC-SHA256 of the event's canonical fields.
func (c *Chainer) compute(event *Event) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(canonicalPayload(event)))

	return hex.EncodeToString(mac.Sum(nil))
}

// canonicalPayload serializes the fields covered by the integrity hash.
// Field order and formats are part of the chain contract; changing them
// invalidates every previously stored hash.
func canonicalPayload(event *Event) string {
	targetID, targetType := "", ""
	if event.Target != nil {
		targetID, targetType = event.Target.ID, event.Target.Type
	}

	return strconv.FormatUint(event.Seq, 10) + "|" +
		event.ID + "|" +
		event.Timestamp.UTC().Format(time.RFC3339Nano) + "|" +
		string(event.Type) + "|" +
		string(event.Severity) + "|" +
		string(event.Outcome) + "|" +
		event.Actor.ID + "|" +
		event.Actor.SessionID + "|" +
		event.Action + "|" +
		targetID + "|" +
		targetType + "|" +
		event.Description + "|" +
		string(event.Metadata) + "|" +
		event.CorrelationID + "|" +
		event.PrevHash
}

// ChainError reports the first event that fails chain verification.
type ChainError struct {
	// Index into the verified range, 0-based.
	Index int

	// EventID of the failing event.
	EventID string

	// Reason is "hash mismatch" or "chain link broken".
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("audit chain verification failed at index %d (event %s): %s", e.Index, e.EventID, e.Reason)
}
