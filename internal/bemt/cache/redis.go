package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/skylift/rotoreval/internal/bemt"
	"github.com/skylift/rotoreval/internal/errs"
)

// RedisStore shares memoized results across processes. Values are gob
// encoded; keys carry the quantized double hash, so any two processes
// using the same quantization and polar id agree on entries.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps a redis client. prefix namespaces the keys; ttl <= 0
// stores entries without expiry.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "rotoreval:bemt"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) redisKey(key Key) string {
	return fmt.Sprintf("%s:%d:%016x%016x", s.prefix, key.Kind, key.H1, key.H2)
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, errs.Newf(errs.IOError, "cache encode: %v", err)
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return errs.Newf(errs.ParseError, "cache decode: %v", err)
	}
	return nil
}

// GetHover fetches a hover result; the bool reports presence.
func (s *RedisStore) GetHover(ctx context.Context, key Key) (bemt.Result, bool, error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err == redis.Nil {
		return bemt.Result{}, false, nil
	}
	if err != nil {
		return bemt.Result{}, false, errs.Newf(errs.IOError, "cache get: %v", err)
	}
	var out bemt.Result
	if err := decodeGob(data, &out); err != nil {
		return bemt.Result{}, false, err
	}
	return out, true, nil
}

// PutHover stores a hover result under the key.
func (s *RedisStore) PutHover(ctx context.Context, key Key, value bemt.Result) error {
	data, err := encodeGob(&value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.redisKey(key), data, s.ttl).Err(); err != nil {
		return errs.Newf(errs.IOError, "cache set: %v", err)
	}
	return nil
}

// GetForward fetches a forward result; the bool reports presence.
func (s *RedisStore) GetForward(ctx context.Context, key Key) (bemt.ForwardResult, bool, error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err == redis.Nil {
		return bemt.ForwardResult{}, false, nil
	}
	if err != nil {
		return bemt.ForwardResult{}, false, errs.Newf(errs.IOError, "cache get: %v", err)
	}
	var out bemt.ForwardResult
	if err := decodeGob(data, &out); err != nil {
		return bemt.ForwardResult{}, false, err
	}
	return out, true, nil
}

// PutForward stores a forward result under the key.
func (s *RedisStore) PutForward(ctx context.Context, key Key, value bemt.ForwardResult) error {
	data, err := encodeGob(&value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.redisKey(key), data, s.ttl).Err(); err != nil {
		return errs.Newf(errs.IOError, "cache set: %v", err)
	}
	return nil
}
