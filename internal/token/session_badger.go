// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key prefixes in the badger keyspace.
const (
	badgerSessionPrefix     = "session:"
	badgerSessionUserPrefix = "session_user:"

	// badgerRecordGrace keeps revoked and expired records queryable for a
	// day past session expiry before badger drops them.
	badgerRecordGrace = 24 * time.Hour
)

// BadgerStore persists sessions in BadgerDB so they survive restarts.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an open badger database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Save inserts or replaces a session and its user index entry.
func (s *BadgerStore) Save(_ context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := time.Until(sess.ExpiresAt.Add(badgerRecordGrace))
	if ttl <= 0 {
		ttl = time.Minute
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(badgerSessionPrefix+sess.ID), data).WithTTL(ttl)
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("write session: %w", err)
		}
		userKey := badger.NewEntry(
			[]byte(badgerSessionUserPrefix+sess.UserID+":"+sess.ID),
			[]byte(sess.ID),
		).WithTTL(ttl)
		if err := txn.SetEntry(userKey); err != nil {
			return fmt.Errorf("set user index: %w", err)
		}
		return nil
	})
}

// Get returns a session by id.
func (s *BadgerStore) Get(_ context.Context, id string) (*Session, error) {
	var sess Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerSessionPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("read session: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &sess)
		})
	})
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Delete removes a session and its index entry.
func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(badgerSessionPrefix + id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("remove session: %w", err)
		}
		userKey := []byte(badgerSessionUserPrefix + sess.UserID + ":" + id)
		if err := txn.Delete(userKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete user index: %w", err)
		}
		return nil
	})
}

// ByUserID returns all sessions recorded for a user.
func (s *BadgerStore) ByUserID(_ context.Context, userID string) ([]*Session, error) {
	var sessions []*Session
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(badgerSessionUserPrefix + userID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var sessionID string
			if err := it.Item().Value(func(val []byte) error {
				sessionID = string(val)
				return nil
			}); err != nil {
				continue
			}
			item, err := txn.Get([]byte(badgerSessionPrefix + sessionID))
			if err != nil {
				continue
			}
			var sess Session
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &sess)
			}); err != nil {
				continue
			}
			sessions = append(sessions, &sess)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan user sessions: %w", err)
	}
	return sessions, nil
}

// DeleteExpired removes sessions that expired before cutoff.
func (s *BadgerStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	var expired []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(badgerSessionPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var sess Session
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &sess)
			}); err != nil {
				continue
			}
			if cutoff.After(sess.ExpiresAt) {
				expired = append(expired, sess.ID)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("iterate sessions: %w", err)
	}

	count := 0
	for _, id := range expired {
		if err := s.Delete(ctx, id); err != nil {
			continue
		}
		count++
	}
	return count, nil
}
