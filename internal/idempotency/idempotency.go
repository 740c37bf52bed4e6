package idempotency

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

var ErrInFlight = errors.New("request with this idempotency key is in flight")

type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Result      []byte `json:"result"`
}

// Store persists responses keyed by Idempotency-Key. Claim marks a key as in
// flight so concurrent duplicates do not both execute.
type Store interface {
	Get(ctx context.Context, key string) (*Response, error)
	Set(ctx context.Context, key string, resp Response, ttl time.Duration) error
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type Idempotency struct {
	store Store
	ttl   time.Duration
}

func NewIdempotency(store Store, ttl time.Duration) *Idempotency {
	return &Idempotency{store: store, ttl: ttl}
}

// Begin returns the recorded response for key if there is one. Otherwise it
// claims the key; the caller must follow up with Finish or Abort.
func (i *Idempotency) Begin(ctx context.Context, key string) (*Response, error) {
	resp, err := i.store.Get(ctx, key)
	if err != nil || resp != nil {
		return resp, err
	}
	ok, err := i.store.Claim(ctx, key, time.Minute)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrInFlight, "key %s", key)
	}
	return nil, nil
}

func (i *Idempotency) Finish(ctx context.Context, key string, resp Response) error {
	return i.store.Set(ctx, key, resp, i.ttl)
}

func (i *Idempotency) Abort(ctx context.Context, key string) error {
	return i.store.Release(ctx, key)
}
