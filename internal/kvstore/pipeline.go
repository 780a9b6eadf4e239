package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/insano70/bcos-sub009/internal/cacheerr"
)

// Pipeline records a batch of operations and executes them as one
// server-side round trip, per spec.md §4.B/§9: "a builder pattern that
// records operations and an Exec that returns a slice of (error, value)
// pairs. Implementations must check per-op errors, not just the batch
// error."
type Pipeline struct {
	pipe                 redis.Pipeliner
	cmds                 []redis.Cmder
	compressionThreshold int64
}

// Pipeline begins a new batch against the store.
func (s *Store) Pipeline(ctx context.Context) *Pipeline {
	return &Pipeline{pipe: s.client.Pipeline(), compressionThreshold: s.compressionThreshold}
}

// Set queues a SET with the given TTL (0 means no expiry).
func (p *Pipeline) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if ttl < 0 {
		ttl = 0
	}
	p.cmds = append(p.cmds, p.pipe.Set(ctx, key, value, ttl))
}

// SetBlob queues a SET whose value is payload wrapped by the same
// self-describing compression envelope Store.SetBlob applies, so a
// pipelined shadow write gets the same transparent compression as any
// other blob write.
func (p *Pipeline) SetBlob(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	p.Set(ctx, key, encodeBlob(payload, p.compressionThreshold), ttl)
}

// SAdd queues an SADD.
func (p *Pipeline) SAdd(ctx context.Context, key string, members ...interface{}) {
	p.cmds = append(p.cmds, p.pipe.SAdd(ctx, key, members...))
}

// Rename queues a RENAME.
func (p *Pipeline) Rename(ctx context.Context, src, dst string) {
	p.cmds = append(p.cmds, p.pipe.Rename(ctx, src, dst))
}

// Expire queues an EXPIRE.
func (p *Pipeline) Expire(ctx context.Context, key string, ttl time.Duration) {
	p.cmds = append(p.cmds, p.pipe.Expire(ctx, key, ttl))
}

// Del queues a DEL.
func (p *Pipeline) Del(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	p.cmds = append(p.cmds, p.pipe.Del(ctx, keys...))
}

// Len reports how many operations are queued.
func (p *Pipeline) Len() int { return len(p.cmds) }

// Result is one queued operation's outcome.
type Result struct {
	Cmd redis.Cmder
	Err error
}

// Exec executes every queued operation in one round trip. It returns a
// per-op Result slice regardless of whether the batch itself returned an
// aggregate error, so callers can distinguish "this op failed" from
// "every op failed" per spec.md §9.
func (p *Pipeline) Exec(ctx context.Context) ([]Result, error) {
	_, batchErr := p.pipe.Exec(ctx)

	results := make([]Result, len(p.cmds))
	failures := 0
	for i, cmd := range p.cmds {
		err := cmd.Err()
		if err == redis.Nil {
			err = nil
		}
		results[i] = Result{Cmd: cmd, Err: err}
		if err != nil {
			failures++
		}
	}

	if batchErr != nil && batchErr != redis.Nil {
		return results, fmt.Errorf("kvstore: pipeline exec: %w: %v", cacheerr.ErrStoreUnavailable, batchErr)
	}
	if failures > 0 {
		return results, fmt.Errorf("kvstore: %d of %d pipelined ops failed: %w", failures, len(p.cmds), cacheerr.ErrPipeline)
	}
	return results, nil
}
