package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/robertarktes/venue-seat-holds/internal/idempotency"
)

const (
	responsePrefix = "svh:idemp:resp:"
	claimPrefix    = "svh:idemp:claim:"
)

// IdempotencyStore keeps recorded responses and in-flight claims in Redis.
type IdempotencyStore struct {
	client *redis.Client
}

func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (*idempotency.Response, error) {
	val, err := s.client.Get(ctx, responsePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get idempotent response %s", key)
	}
	var resp idempotency.Response
	if err := json.Unmarshal(val, &resp); err != nil {
		return nil, errors.Wrapf(err, "decode idempotent response %s", key)
	}
	return &resp, nil
}

func (s *IdempotencyStore) Set(ctx context.Context, key string, resp idempotency.Response, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, responsePrefix+key, data, ttl)
	pipe.Del(ctx, claimPrefix+key)
	_, err = pipe.Exec(ctx)
	return errors.Wrapf(err, "store idempotent response %s", key)
}

func (s *IdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, claimPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "claim idempotency key %s", key)
	}
	return ok, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, claimPrefix+key).Err()
}
