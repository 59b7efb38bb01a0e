package cache

import (
	"context"
	"time"

	"github.com/hilmishah-img/usms/internal/common/errors"
)

// result classifies the outcome of a disk tier call
type result int

const (
	resultAbsent result = iota
	resultHit
	resultFailed
)

func (r result) String() string {
	switch r {
	case resultHit:
		return "hit"
	case resultFailed:
		return "failed"
	default:
		return "absent"
	}
}

// diskAdapter pairs a Store with a Codec. Failures come back as resultFailed
// together with the error so the Manager can log and absorb them.
type diskAdapter[V any] struct {
	store Store
	codec Codec[V]
}

func (a diskAdapter[V]) encode(value V) ([]byte, error) {
	data, err := a.codec.Encode(value)
	if err != nil {
		return nil, errors.SerializationError("failed to encode cache value", err)
	}
	return data, nil
}

func (a diskAdapter[V]) get(ctx context.Context, key string) (V, result, error) {
	var zero V

	data, ok, err := a.store.Get(ctx, key)
	if err != nil {
		return zero, resultFailed, err
	}
	if !ok {
		return zero, resultAbsent, nil
	}

	value, err := a.codec.Decode(data)
	if err != nil {
		return zero, resultFailed, errors.SerializationError("failed to decode cache value", err).
			WithContext("key", key)
	}
	return value, resultHit, nil
}

func (a diskAdapter[V]) put(ctx context.Context, key string, data []byte, ttl time.Duration) (result, error) {
	if err := a.store.Set(ctx, key, data, ttl); err != nil {
		return resultFailed, err
	}
	return resultHit, nil
}

func (a diskAdapter[V]) remove(ctx context.Context, key string) (result, error) {
	removed, err := a.store.Delete(ctx, key)
	if err != nil {
		return resultFailed, err
	}
	if !removed {
		return resultAbsent, nil
	}
	return resultHit, nil
}
