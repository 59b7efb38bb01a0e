package cache

import (
	"time"

	"github.com/hilmishah-img/usms/internal/common/logging"
)

type options struct {
	logger logging.Logger
	codec  any
	store  Store
	now    func() time.Time

	breaker *BreakerConfig
}

// Option customises a Manager at construction
type Option func(*options)

// WithLogger sets the logger; the global logger is used otherwise
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCodec replaces the JSON codec. The codec's type must match the Manager's.
func WithCodec[V any](codec Codec[V]) Option {
	return func(o *options) {
		o.codec = codec
	}
}

// WithStore replaces the SQLite disk tier
func WithStore(store Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithClock overrides time.Now for both tiers
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithDiskBreaker guards the disk tier with a circuit breaker. A zero
// MaxFailures leaves the tier unguarded.
func WithDiskBreaker(cfg BreakerConfig) Option {
	return func(o *options) {
		if cfg.MaxFailures == 0 {
			o.breaker = nil
			return
		}
		o.breaker = &cfg
	}
}
