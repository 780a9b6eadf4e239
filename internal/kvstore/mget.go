package kvstore

import (
	"context"
	"encoding/json"
)

// Mget fetches keys in fixed-size chunks (spec.md §4.B: "Mget(keys,
// chunkSize=10000) — splits into fixed chunks"), decompresses and
// JSON-validates each non-null value, and returns only the successfully
// decoded payloads in original order within each chunk. A value whose blob
// decode or JSON parse fails is skipped and logged rather than failing the
// whole call — a single corrupt entry must not take down a query that
// touches thousands of other, healthy keys.
func (s *Store) Mget(ctx context.Context, keys []string, chunkSize int) ([]json.RawMessage, error) {
	if chunkSize <= 0 {
		chunkSize = len(keys)
		if chunkSize == 0 {
			chunkSize = 1
		}
	}

	out := make([]json.RawMessage, 0, len(keys))
	for start := 0; start < len(keys); start += chunkSize {
		end := start + chunkSize
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		vals, err := s.client.MGet(ctx, chunk...).Result()
		if err != nil {
			return nil, wrapErr("MGET", err)
		}

		for i, v := range vals {
			if v == nil {
				continue
			}
			raw, ok := v.(string)
			if !ok {
				s.logger.Warn("mget: unexpected value type", "key", chunk[i])
				continue
			}
			payload, err := decodeBlob(raw)
			if err != nil {
				s.logger.Warn("mget: malformed blob, skipping", "key", chunk[i], "error", err.Error())
				continue
			}
			if !json.Valid(payload) {
				s.logger.Warn("mget: malformed json, skipping", "key", chunk[i])
				continue
			}
			out = append(out, json.RawMessage(payload))
		}
	}
	return out, nil
}
