package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/insano70/bcos-sub009/internal/cacheerr"
)

// Wire-format tags. Every blob SetBlob writes is one of these tags
// followed by the payload; GetBlob/Mget strip the tag transparently so
// callers only ever see JSON.
const (
	tagRaw        byte = 'J'
	tagCompressed byte = 'Z'
)

var codec = newBlobCodec()

type blobCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newBlobCodec() *blobCodec {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		panic(fmt.Sprintf("kvstore: zstd encoder init: %v", err))
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("kvstore: zstd decoder init: %v", err))
	}
	return &blobCodec{enc: enc, dec: dec}
}

// encodeBlob wraps a JSON payload for storage, compressing it with zstd
// when it is at or above threshold bytes. threshold <= 0 disables
// compression entirely, finishing the CompressionEnabled field the teacher
// left as a TODO (src/performance/redis_cluster_cache.go).
func encodeBlob(payload []byte, threshold int64) string {
	if threshold <= 0 || int64(len(payload)) < threshold {
		buf := make([]byte, 0, len(payload)+1)
		buf = append(buf, tagRaw)
		buf = append(buf, payload...)
		return string(buf)
	}
	compressed := codec.enc.EncodeAll(payload, make([]byte, 0, len(payload)))
	buf := make([]byte, 0, len(compressed)+1)
	buf = append(buf, tagCompressed)
	buf = append(buf, compressed...)
	return string(buf)
}

// decodeBlob reverses encodeBlob.
func decodeBlob(raw string) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("kvstore: empty blob")
	}
	tag, body := raw[0], raw[1:]
	switch tag {
	case tagRaw:
		return []byte(body), nil
	case tagCompressed:
		out, err := codec.dec.DecodeAll([]byte(body), nil)
		if err != nil {
			return nil, fmt.Errorf("kvstore: zstd decode: %w", err)
		}
		return out, nil
	default:
		// Data written before the tag byte existed is treated as raw JSON.
		return []byte(raw), nil
	}
}

// SetBlob JSON-marshals value, compresses it transparently when it crosses
// the store's compressionThreshold, and stores it with ttl (0 means no
// expiry).
func (s *Store) SetBlob(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kvstore: marshal blob %q: %w: %v", key, cacheerr.ErrSerialization, err)
	}
	return s.Set(ctx, key, encodeBlob(payload, s.compressionThreshold), ttl)
}

// GetBlob fetches and decodes a value written by SetBlob into dst.
func (s *Store) GetBlob(ctx context.Context, key string, dst interface{}) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	payload, err := decodeBlob(raw)
	if err != nil {
		return fmt.Errorf("kvstore: decode blob %q: %w: %v", key, cacheerr.ErrSerialization, err)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("kvstore: unmarshal blob %q: %w: %v", key, cacheerr.ErrSerialization, err)
	}
	return nil
}
