// Package kvstore is the thin, error-normalizing facade over the key-value
// store described in spec.md §4.B. It exposes exactly the commands the
// core needs (GET/SET/DEL/EXPIRE/RENAME/SCAN/MGET/SADD/SMEMBERS/SCARD/
// SRANDMEMBER/SINTERSTORE/SUNIONSTORE, plus SET NX for the warm lock and
// EXISTS for the orphan-shadow sweep) plus pipelining, grounded on
// src/performance/redis_cluster_cache.go and
// src/template/management/ratelimit/distributed.go, both of which drive
// github.com/go-redis/redis/v8 against a redis.UniversalClient so the same
// code runs against a single node or a cluster.
package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/insano70/bcos-sub009/internal/cacheerr"
	"github.com/insano70/bcos-sub009/internal/logging"
)

// Store wraps a redis.UniversalClient and normalizes every error into the
// cacheerr taxonomy. It holds no cache-domain knowledge: callers pass fully
// built key names.
type Store struct {
	client               redis.UniversalClient
	logger               logging.Logger
	compressionThreshold int64
}

// New wraps client. compressionThreshold is the serialized blob size, in
// bytes, at or above which SetBlob transparently zstd-compresses (spec_full
// §11's completion of the teacher's stubbed CompressionEnabled field). Pass
// 0 to disable compression entirely.
func New(client redis.UniversalClient, logger logging.Logger, compressionThreshold int64) *Store {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Store{client: client, logger: logger, compressionThreshold: compressionThreshold}
}

// Client exposes the underlying redis.UniversalClient for callers that need
// direct access. The Store's own Pipeline builder and lock helpers use the
// client field directly.
func (s *Store) Client() redis.UniversalClient { return s.client }

func wrapErr(op string, err error) error {
	if err == nil || err == redis.Nil {
		return err
	}
	return fmt.Errorf("kvstore: %s: %w: %v", op, cacheerr.ErrStoreUnavailable, err)
}

// Get returns the raw value, redis.Nil passed through for callers that need
// to distinguish "absent" from "empty".
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", redis.Nil
	}
	if err != nil {
		return "", wrapErr("GET", err)
	}
	return v, nil
}

// Set stores value with TTL. ttl <= 0 means no expiry, matching spec.md I5's
// requirement that shadow keys carry no TTL.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return wrapErr("SET", s.client.Set(ctx, key, value, ttl).Err())
}

// Del deletes one or more keys, tolerating an empty slice.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return wrapErr("DEL", s.client.Del(ctx, keys...).Err())
}

// Expire sets a TTL on an existing key.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return wrapErr("EXPIRE", s.client.Expire(ctx, key, ttl).Err())
}

// Rename overwrites dst with src, atomically, per spec.md's swap algorithm.
func (s *Store) Rename(ctx context.Context, src, dst string) error {
	return wrapErr("RENAME", s.client.Rename(ctx, src, dst).Err())
}

// SAdd adds members to a set.
func (s *Store) SAdd(ctx context.Context, key string, members ...interface{}) error {
	return wrapErr("SADD", s.client.SAdd(ctx, key, members...).Err())
}

// SMembers returns every member of a set.
func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	v, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, wrapErr("SMEMBERS", err)
	}
	return v, nil
}

// SCard returns the cardinality of a set.
func (s *Store) SCard(ctx context.Context, key string) (int64, error) {
	v, err := s.client.SCard(ctx, key).Result()
	if err != nil {
		return 0, wrapErr("SCARD", err)
	}
	return v, nil
}

// SRandMember draws up to count distinct members without removing them.
func (s *Store) SRandMember(ctx context.Context, key string, count int64) ([]string, error) {
	v, err := s.client.SRandMemberN(ctx, key, count).Result()
	if err != nil {
		return nil, wrapErr("SRANDMEMBER", err)
	}
	return v, nil
}

// SInterStore intersects src sets into dst.
func (s *Store) SInterStore(ctx context.Context, dst string, src ...string) (int64, error) {
	v, err := s.client.SInterStore(ctx, dst, src...).Result()
	if err != nil {
		return 0, wrapErr("SINTERSTORE", err)
	}
	return v, nil
}

// Exists reports whether key is currently present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, wrapErr("EXISTS", err)
	}
	return n > 0, nil
}

// SUnionStore unions src sets into dst.
func (s *Store) SUnionStore(ctx context.Context, dst string, src ...string) (int64, error) {
	v, err := s.client.SUnionStore(ctx, dst, src...).Result()
	if err != nil {
		return 0, wrapErr("SUNIONSTORE", err)
	}
	return v, nil
}
