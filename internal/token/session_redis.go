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

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	redisSessionPrefix   = "aegis:session:"
	redisUserIndexPrefix = "aegis:user_sessions:"

	// redisRecordGrace mirrors the badger grace: records stay queryable
	// for a day past expiry, then redis drops them itself.
	redisRecordGrace = 24 * time.Hour
)

// RedisStore keeps sessions in Redis for multi-instance deployments.
// Keys expire on their own; DeleteExpired only scrubs the user indexes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a connected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Save inserts or replaces a session and indexes it by user.
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(sess.ExpiresAt.Add(redisRecordGrace))
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := s.client.Set(ctx, redisSessionPrefix+sess.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	indexKey := redisUserIndexPrefix + sess.UserID
	if err := s.client.SAdd(ctx, indexKey, sess.ID).Err(); err != nil {
		return fmt.Errorf("index session: %w", err)
	}
	if err := s.client.Expire(ctx, indexKey, ttl).Err(); err != nil {
		return fmt.Errorf("expire index: %w", err)
	}
	return nil
}

// Get returns a session by id.
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	payload, err := s.client.Get(ctx, redisSessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// Delete removes a session and its index entry.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, redisSessionPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := s.client.SRem(ctx, redisUserIndexPrefix+sess.UserID, id).Err(); err != nil {
		return fmt.Errorf("unindex session: %w", err)
	}
	return nil
}

// ByUserID returns all live sessions for a user, scrubbing index entries
// whose session key already expired.
func (s *RedisStore) ByUserID(ctx context.Context, userID string) ([]*Session, error) {
	indexKey := redisUserIndexPrefix + userID
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}

	var sessions []*Session
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if errors.Is(err, ErrSessionNotFound) {
			_ = s.client.SRem(ctx, indexKey, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// DeleteExpired scrubs stale ids out of the user indexes. The session
// keys themselves expire via TTL.
func (s *RedisStore) DeleteExpired(ctx context.Context, _ time.Time) (int, error) {
	scrubbed := 0
	iter := s.client.Scan(ctx, 0, redisUserIndexPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		indexKey := iter.Val()
		ids, err := s.client.SMembers(ctx, indexKey).Result()
		if err != nil {
			continue
		}
		for _, id := range ids {
			exists, err := s.client.Exists(ctx, redisSessionPrefix+id).Result()
			if err != nil || exists > 0 {
				continue
			}
			if s.client.SRem(ctx, indexKey, id).Err() == nil {
				scrubbed++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return scrubbed, fmt.Errorf("scan session indexes: %w", err)
	}
	return scrubbed, nil
}
