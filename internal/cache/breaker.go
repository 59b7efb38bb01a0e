package cache

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hilmishah-img/usms/internal/common/errors"
	"github.com/hilmishah-img/usms/internal/common/logging"
)

// BreakerConfig trips the disk tier after MaxFailures consecutive errors.
// While open, disk calls fail fast for Cooldown.
type BreakerConfig struct {
	MaxFailures uint32
	Cooldown    time.Duration
}

// breakerStore short-circuits a failing Store so requests are served from
// memory without waiting on the disk timeout each time.
type breakerStore struct {
	Store
	breaker *gobreaker.CircuitBreaker
}

func newBreakerStore(store Store, cfg BreakerConfig, logger logging.Logger) *breakerStore {
	settings := gobreaker.Settings{
		Name:        "disk-tier",
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Disk tier circuit breaker state changed",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
		},
	}
	return &breakerStore{Store: store, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// guard runs fn through the breaker, translating a rejected call into a storage error
func guard[T any](b *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	out, err := b.Execute(func() (interface{}, error) {
		v, err := fn()
		return v, err
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		var zero T
		return zero, errors.StorageError("disk tier unavailable", err)
	}
	v, _ := out.(T)
	return v, err
}

type payload struct {
	data []byte
	ok   bool
}

func (s *breakerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	p, err := guard(s.breaker, func() (payload, error) {
		data, ok, err := s.Store.Get(ctx, key)
		return payload{data: data, ok: ok}, err
	})
	return p.data, p.ok, err
}

func (s *breakerStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	_, err := guard(s.breaker, func() (struct{}, error) {
		return struct{}{}, s.Store.Set(ctx, key, data, ttl)
	})
	return err
}

func (s *breakerStore) Delete(ctx context.Context, key string) (bool, error) {
	return guard(s.breaker, func() (bool, error) {
		return s.Store.Delete(ctx, key)
	})
}

func (s *breakerStore) Keys(ctx context.Context) ([]string, error) {
	return guard(s.breaker, func() ([]string, error) {
		return s.Store.Keys(ctx)
	})
}

func (s *breakerStore) Len(ctx context.Context) (int, error) {
	return guard(s.breaker, func() (int, error) {
		return s.Store.Len(ctx)
	})
}

func (s *breakerStore) Bytes(ctx context.Context) (int64, error) {
	return guard(s.breaker, func() (int64, error) {
		return s.Store.Bytes(ctx)
	})
}

func (s *breakerStore) Clear(ctx context.Context) error {
	_, err := guard(s.breaker, func() (struct{}, error) {
		return struct{}{}, s.Store.Clear(ctx)
	})
	return err
}

func (s *breakerStore) Cull(ctx context.Context) (int, error) {
	return guard(s.breaker, func() (int, error) {
		return s.Store.Cull(ctx)
	})
}
