package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"

	"github.com/hilmishah-img/usms/internal/common/errors"
	"github.com/hilmishah-img/usms/internal/common/logging"
)

// Selector picks what Invalidate removes. Exactly one field must be set.
type Selector struct {
	Key     string
	Pattern string
}

// Manager coordinates the memory and disk tiers.
type Manager[V any] struct {
	config Config
	l1     *MemoryTier[V]
	l2     diskAdapter[V]
	locks  keyLocks
	loads  singleflight.Group
	stats  counters
	logger logging.Logger

	closeOnce sync.Once
}

// New builds a Manager from cfg. Unless WithStore is given, the SQLite tier is
// opened under cfg.DiskPath.
func New[V any](cfg Config, opts ...Option) (*Manager[V], error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.GetGlobalLogger()
	}

	codec := Codec[V](JSONCodec[V]{})
	if o.codec != nil {
		c, ok := o.codec.(Codec[V])
		if !ok {
			return nil, errors.ConfigError(fmt.Sprintf("codec %T does not match the cache value type", o.codec))
		}
		codec = c
	}

	store := o.store
	if store == nil {
		disk, err := OpenDiskTier(DiskConfig{
			Directory:            filepath.Join(cfg.DiskPath, diskSubdir),
			SizeLimit:            cfg.DiskSizeLimit,
			CompressionThreshold: cfg.CompressionThreshold,
			OpTimeout:            cfg.OpTimeout,
			Now:                  o.now,
		})
		if err != nil {
			return nil, err
		}
		store = disk
	}

	logger := o.logger.WithFields(logging.String("component", "cache"))
	if o.breaker != nil {
		store = newBreakerStore(store, *o.breaker, logger)
	}

	m := &Manager[V]{
		config: cfg,
		l1:     NewMemoryTier[V](cfg.MemoryCapacity, o.now),
		l2:     diskAdapter[V]{store: store, codec: codec},
		logger: logger,
	}

	m.logger.Info("Cache initialized",
		logging.Int("memory_capacity", cfg.MemoryCapacity),
		logging.String("disk_path", cfg.DiskPath),
		logging.String("disk_size_limit", humanize.IBytes(uint64(cfg.DiskSizeLimit))),
	)

	return m, nil
}

// Get returns the cached value for key, consulting memory then disk. A disk
// hit is copied into memory with the configured promotion TTL.
func (m *Manager[V]) Get(key string) (V, bool) {
	if swept := m.l1.Sweep(); swept > 0 {
		m.stats.evictions.Add(int64(swept))
	}

	unlock := m.locks.lock(key)
	defer unlock()

	if value, ok := m.l1.Get(key); ok {
		m.stats.l1Hits.Add(1)
		m.logger.Debug("Cache hit", logging.String("key", key), logging.String("tier", "l1"))
		return value, true
	}

	value, res, err := m.l2.get(context.Background(), key)
	switch res {
	case resultHit:
		m.stats.l2Hits.Add(1)
		if m.l1.Put(key, value, m.config.PromotionTTL) {
			m.stats.evictions.Add(1)
		}
		m.logger.Debug("Cache hit", logging.String("key", key), logging.String("tier", "l2"))
		return value, true
	case resultFailed:
		m.logger.Warn("Disk cache read failed, treating as miss",
			logging.String("key", key), logging.Err(err))
	}

	m.stats.misses.Add(1)
	m.logger.Debug("Cache miss", logging.String("key", key))
	var zero V
	return zero, false
}

// Set stores value in both tiers with independent lifetimes. Only invalid
// arguments are reported; a disk write failure is logged.
func (m *Manager[V]) Set(key string, value V, ttlMemory, ttlDisk time.Duration) error {
	if key == "" {
		return errors.ValidationError("cache key must not be empty")
	}
	if ttlMemory < 0 || ttlDisk < 0 {
		return errors.ValidationError("cache TTL must not be negative").
			WithContext("key", key).
			WithContext("ttl_memory", ttlMemory.String()).
			WithContext("ttl_disk", ttlDisk.String())
	}

	data, err := m.l2.encode(value)
	if err != nil {
		verr := errors.ValidationError("cache value cannot be serialized").WithContext("key", key)
		verr.Cause = err
		return verr
	}

	m.stats.sets.Add(1)

	unlock := m.locks.lock(key)
	defer unlock()

	if m.l1.Put(key, value, ttlMemory) {
		m.stats.evictions.Add(1)
	}

	if res, err := m.l2.put(context.Background(), key, data, ttlDisk); res == resultFailed {
		m.logger.Error("Disk cache write failed", err, logging.String("key", key))
	}

	m.logger.Debug("Cache set",
		logging.String("key", key),
		logging.Duration("ttl_memory", ttlMemory),
		logging.Duration("ttl_disk", ttlDisk),
	)
	return nil
}

// Invalidate removes the entries named by sel and returns how many were deleted
func (m *Manager[V]) Invalidate(sel Selector) (int, error) {
	switch {
	case sel.Key != "" && sel.Pattern != "":
		return 0, errors.ValidationError("invalidate takes either a key or a pattern, not both")
	case sel.Key != "":
		return m.InvalidateKey(sel.Key)
	case sel.Pattern != "":
		return m.InvalidatePattern(sel.Pattern)
	default:
		return 0, errors.ValidationError("invalidate requires a key or a pattern")
	}
}

// InvalidateKey deletes key from both tiers. The result counts the tiers that
// removed something: any memory entry, or a live disk row.
func (m *Manager[V]) InvalidateKey(key string) (int, error) {
	if key == "" {
		return 0, errors.ValidationError("cache key must not be empty")
	}

	unlock := m.locks.lock(key)
	defer unlock()

	count := m.deleteLocked(key)
	m.logger.Info("Invalidated cache key", logging.String("key", key), logging.Int("count", count))
	return count, nil
}

// InvalidatePattern deletes every key starting with the pattern's prefix. A
// pattern is a literal prefix with an optional trailing '*'.
func (m *Manager[V]) InvalidatePattern(pattern string) (int, error) {
	prefix := strings.TrimRight(pattern, "*")
	if prefix == "" {
		return 0, errors.ValidationError("invalidation pattern must have a non-empty prefix").
			WithContext("pattern", pattern)
	}

	keys := m.l1.KeysWithPrefix(prefix)
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		seen[key] = struct{}{}
	}

	diskKeys, err := m.l2.store.Keys(context.Background())
	if err != nil {
		m.logger.Error("Disk cache key scan failed", err, logging.String("pattern", pattern))
	}
	for _, key := range diskKeys {
		if _, dup := seen[key]; dup || !strings.HasPrefix(key, prefix) {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	// Both tiers are cleared under a single hold of the key's stripe.
	count := 0
	for _, key := range keys {
		unlock := m.locks.lock(key)
		count += m.deleteLocked(key)
		unlock()
	}

	m.logger.Info("Invalidated cache pattern", logging.String("pattern", pattern), logging.Int("count", count))
	return count, nil
}

// deleteLocked removes key from both tiers; the key's stripe must be held
func (m *Manager[V]) deleteLocked(key string) int {
	count := 0
	if m.l1.Delete(key) {
		count++
	}

	res, err := m.l2.remove(context.Background(), key)
	switch res {
	case resultHit:
		count++
	case resultFailed:
		m.logger.Error("Disk cache delete failed", err, logging.String("key", key))
	}
	return count
}

// Clear empties both tiers. Counters are left untouched.
func (m *Manager[V]) Clear() {
	unlock := m.locks.lockAll()
	defer unlock()

	m.l1.Clear()
	if err := m.l2.store.Clear(context.Background()); err != nil {
		m.logger.Error("Disk cache clear failed", err)
	}
	m.logger.Info("Cache cleared")
}

// Stats reports counters and current tier sizes. Disk failures yield zero sizes.
func (m *Manager[V]) Stats() Stats {
	s := m.stats.snapshot()
	s.L1Size = m.l1.Len()

	ctx := context.Background()
	if n, err := m.l2.store.Len(ctx); err != nil {
		m.logger.Debug("Disk cache size unavailable", logging.Err(err))
	} else {
		s.L2Size = n
	}
	if n, err := m.l2.store.Bytes(ctx); err != nil {
		m.logger.Debug("Disk cache volume unavailable", logging.Err(err))
	} else {
		s.L2Bytes = n
	}
	return s
}

// Cleanup sweeps expired memory entries, culls the disk tier and logs stats
func (m *Manager[V]) Cleanup() {
	start := time.Now()

	swept := m.l1.Sweep()
	if swept > 0 {
		m.stats.evictions.Add(int64(swept))
	}

	culled, err := m.l2.store.Cull(context.Background())
	if err != nil {
		m.logger.Error("Disk cache cull failed", err)
	}

	s := m.Stats()
	m.logger.Info("Cache cleanup completed",
		logging.Int("memory_expired", swept),
		logging.Int("disk_culled", culled),
		logging.Int("l1_size", s.L1Size),
		logging.Int("l2_size", s.L2Size),
		logging.String("l2_bytes", humanize.IBytes(uint64(s.L2Bytes))),
		logging.Any("hit_rate_percent", s.HitRatePercent),
		logging.Duration("duration", time.Since(start)),
	)
}

// Close releases the disk tier. It is safe to call more than once.
func (m *Manager[V]) Close() {
	m.closeOnce.Do(func() {
		if err := m.l2.store.Close(); err != nil {
			m.logger.Error("Failed to close disk cache", err)
			return
		}
		m.logger.Info("Cache closed")
	})
}

// GetOrLoad returns the cached value for key or calls load and caches its
// result with policy. Concurrent misses for one key share a single load, which
// keeps ctx values but not its cancellation. Loader errors are returned
// unchanged and nothing is cached.
func (m *Manager[V]) GetOrLoad(ctx context.Context, key string, policy Policy, load func(context.Context) (V, error)) (V, error) {
	if value, ok := m.Get(key); ok {
		return value, nil
	}

	res, err, shared := m.loads.Do(key, func() (interface{}, error) {
		// A load that finished after our miss has already populated memory.
		if value, ok := m.l1.Get(key); ok {
			return value, nil
		}

		// The load is shared and outlives the first caller's cancellation.
		value, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if err := m.Set(key, value, policy.Memory, policy.Disk); err != nil {
			m.logger.Warn("Loaded value not cached", logging.String("key", key), logging.Err(err))
		}
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}

	if shared {
		m.logger.Debug("Coalesced cache load", logging.String("key", key))
	}
	value, _ := res.(V)
	return value, nil
}
