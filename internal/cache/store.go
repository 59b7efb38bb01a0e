package cache

import (
	"context"
	"time"
)

// Store is the contract of the persistent tier. DiskTier is the production
// implementation; tests substitute a fault-injecting double.
type Store interface {
	// Get returns the payload for key. Expired rows are reported absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set upserts key with the given lifetime (NoExpiration for none).
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key and reports whether a live row was removed.
	Delete(ctx context.Context, key string) (bool, error)
	// Keys lists every stored key, including ones not yet culled.
	Keys(ctx context.Context) ([]string, error)
	// Len counts live rows.
	Len(ctx context.Context) (int, error)
	// Bytes sums the stored payload sizes.
	Bytes(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
	// Cull drops expired rows then the oldest rows until the byte budget holds.
	Cull(ctx context.Context) (int, error)
	Close() error
}
