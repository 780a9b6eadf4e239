package kvstore

import (
	"context"
	"time"
)

// AcquireLock attempts a set-if-absent-with-expiry on key, the distributed
// lock primitive spec.md §3/§4.C builds warm-exclusivity on. It returns
// true iff this call won the lock.
func (s *Store) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, wrapErr("SETNX", err)
	}
	return ok, nil
}

// ReleaseLock deletes a lock key. Safe to call even if the lock was never
// held (DEL on a missing key is a no-op).
func (s *Store) ReleaseLock(ctx context.Context, key string) error {
	return s.Del(ctx, key)
}
