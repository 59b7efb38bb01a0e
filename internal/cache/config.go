package cache

import (
	"time"

	"github.com/hilmishah-img/usms/internal/common/errors"
)

const (
	// NoExpiration marks an entry that never expires in a tier
	NoExpiration time.Duration = 0

	DefaultMemoryCapacity       = 1000
	DefaultDiskSizeLimit        = int64(1 << 30)
	DefaultOpTimeout            = 5 * time.Second
	DefaultCompressionThreshold = 1024

	// diskSubdir is appended to Config.DiskPath to locate the database
	diskSubdir = "cache"
)

// Config holds the tunables of a Manager.
type Config struct {
	// MemoryCapacity is the maximum number of entries kept in L1.
	MemoryCapacity int
	// DiskPath is the data directory; the database lives in DiskPath/cache.
	DiskPath string
	// DiskSizeLimit is the byte budget enforced on L2 by Cleanup.
	DiskSizeLimit int64
	// PromotionTTL is the L1 lifetime given to values promoted from L2.
	// NoExpiration keeps promoted copies until evicted or invalidated.
	PromotionTTL time.Duration
	// OpTimeout bounds every disk operation.
	OpTimeout time.Duration
	// CompressionThreshold is the payload size above which L2 values are
	// zstd-compressed. A negative value disables compression.
	CompressionThreshold int
}

// DefaultConfig returns a configuration rooted at dataDir
func DefaultConfig(dataDir string) Config {
	return Config{
		MemoryCapacity:       DefaultMemoryCapacity,
		DiskPath:             dataDir,
		DiskSizeLimit:        DefaultDiskSizeLimit,
		PromotionTTL:         NoExpiration,
		OpTimeout:            DefaultOpTimeout,
		CompressionThreshold: DefaultCompressionThreshold,
	}
}

// withDefaults fills zero values with package defaults
func (c Config) withDefaults() Config {
	if c.MemoryCapacity == 0 {
		c.MemoryCapacity = DefaultMemoryCapacity
	}
	if c.DiskSizeLimit == 0 {
		c.DiskSizeLimit = DefaultDiskSizeLimit
	}
	if c.OpTimeout == 0 {
		c.OpTimeout = DefaultOpTimeout
	}
	if c.CompressionThreshold == 0 {
		c.CompressionThreshold = DefaultCompressionThreshold
	}
	return c
}

// Validate checks the configuration for values the tiers cannot honour
func (c Config) Validate() error {
	if c.MemoryCapacity < 1 {
		return errors.ConfigError("memory capacity must be at least 1").
			WithContext("memory_capacity", c.MemoryCapacity)
	}
	if c.DiskPath == "" {
		return errors.ConfigError("disk path is required")
	}
	if c.DiskSizeLimit < 1 {
		return errors.ConfigError("disk size limit must be positive").
			WithContext("disk_size_limit", c.DiskSizeLimit)
	}
	if c.PromotionTTL < 0 {
		return errors.ConfigError("promotion TTL must not be negative").
			WithContext("promotion_ttl", c.PromotionTTL.String())
	}
	if c.OpTimeout < 0 {
		return errors.ConfigError("operation timeout must not be negative").
			WithContext("op_timeout", c.OpTimeout.String())
	}
	return nil
}
