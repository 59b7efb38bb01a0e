// Package config loads the service configuration from USMS_* environment
// variables, applying defaults and validating the result before startup.
//
// Environment Variables:
//
// Admin API:
//   - USMS_API_HOST: listen host (default: 127.0.0.1)
//   - USMS_API_PORT: listen port (default: 8000)
//   - USMS_API_RATE_LIMIT: requests per second per client on /api/cache, 0 = unlimited (default: 0)
//   - USMS_API_RATE_BURST: burst allowance for the rate limit (default: 20)
//
// Logging:
//   - USMS_LOG_LEVEL: debug, info, warn or error (default: info)
//   - USMS_LOG_FILE: optional file receiving a copy of the logs
//
// Cache:
//   - USMS_CACHE_PATH: data directory; the disk tier lives in <path>/cache (default: ./data)
//   - USMS_CACHE_MEMORY_SIZE: memory tier capacity in entries (default: 1000)
//   - USMS_CACHE_DISK_SIZE_LIMIT: disk tier budget in bytes (default: 1073741824)
//   - USMS_CACHE_PROMOTION_TTL: memory lifetime of values promoted from disk, seconds, 0 = none (default: 0)
//   - USMS_CACHE_TTL_ACCOUNT / USMS_CACHE_TTL_ACCOUNT_DISK: seconds (default: 900 / 3600)
//   - USMS_CACHE_TTL_METER_CURRENT / USMS_CACHE_TTL_METER_CURRENT_DISK: seconds (default: 300 / 1800)
//   - USMS_CACHE_TTL_CONSUMPTION / USMS_CACHE_TTL_CONSUMPTION_DISK: seconds (default: 3600 / 86400)
//   - USMS_CACHE_DISK_BREAKER_FAILURES: consecutive disk errors before it is skipped, 0 = never (default: 5)
//   - USMS_CACHE_DISK_BREAKER_COOLDOWN: seconds the disk is skipped once tripped (default: 30)
//
// Maintenance:
//   - USMS_ENABLE_SCHEDULER: run cleanup and stats jobs (default: true)
//   - USMS_CACHE_CLEANUP_SCHEDULE: cron spec for cache cleanup (default: @every 1h)
//   - USMS_CACHE_STATS_SCHEDULE: cron spec for stats logging (default: @every 15m)
//   - USMS_METRICS_ENABLED: expose /metrics (default: true)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hilmishah-img/usms/internal/cache"
	"github.com/hilmishah-img/usms/internal/common/errors"
	"github.com/hilmishah-img/usms/internal/common/validation"
)

// TTLConfig holds the memory and disk lifetimes for each kind of portal data
type TTLConfig struct {
	Account          time.Duration `json:"ttl_account" validate:"gte=0"`
	AccountDisk      time.Duration `json:"ttl_account_disk" validate:"gte=0"`
	MeterCurrent     time.Duration `json:"ttl_meter_current" validate:"gte=0"`
	MeterCurrentDisk time.Duration `json:"ttl_meter_current_disk" validate:"gte=0"`
	Consumption      time.Duration `json:"ttl_consumption" validate:"gte=0"`
	ConsumptionDisk  time.Duration `json:"ttl_consumption_disk" validate:"gte=0"`
}

// Config holds all configuration values for the service.
type Config struct {
	APIHost  string `json:"api_host" validate:"required"`
	APIPort  int    `json:"api_port" validate:"min=1,max=65535"`
	LogLevel string `json:"log_level" validate:"oneof=debug info warn warning error"`
	LogFile  string `json:"log_file"`

	CachePath          string        `json:"cache_path" validate:"required"`
	MemoryCacheSize    int           `json:"memory_cache_size" validate:"min=1"`
	DiskCacheSizeLimit int64         `json:"disk_cache_size_limit" validate:"min=1"`
	PromotionTTL       time.Duration `json:"promotion_ttl" validate:"gte=0"`
	TTL                TTLConfig     `json:"ttl"`

	// DiskBreakerFailures of zero disables the disk tier circuit breaker
	DiskBreakerFailures int           `json:"disk_breaker_failures" validate:"gte=0"`
	DiskBreakerCooldown time.Duration `json:"disk_breaker_cooldown" validate:"gte=0"`

	// APIRateLimit is requests per second per client; zero disables limiting
	APIRateLimit int `json:"api_rate_limit" validate:"gte=0"`
	APIRateBurst int `json:"api_rate_burst" validate:"gte=0"`

	EnableScheduler bool   `json:"enable_scheduler"`
	CleanupSchedule string `json:"cleanup_schedule" validate:"required,cron_expression"`
	StatsSchedule   string `json:"stats_schedule" validate:"required,cron_expression"`
	MetricsEnabled  bool   `json:"metrics_enabled"`

	// parseErrors collects malformed numeric variables seen by Load
	parseErrors []string
}

// Load creates a Config from the environment. It does not validate; call
// Validate on the result.
func Load() *Config {
	c := &Config{
		APIHost:  getEnv("USMS_API_HOST", "127.0.0.1"),
		LogLevel: strings.ToLower(strings.TrimSpace(getEnv("USMS_LOG_LEVEL", "info"))),
		LogFile:  getEnv("USMS_LOG_FILE", ""),

		CachePath: getEnv("USMS_CACHE_PATH", "./data"),

		EnableScheduler: getBoolEnv("USMS_ENABLE_SCHEDULER", true),
		CleanupSchedule: getEnv("USMS_CACHE_CLEANUP_SCHEDULE", "@every 1h"),
		StatsSchedule:   getEnv("USMS_CACHE_STATS_SCHEDULE", "@every 15m"),
		MetricsEnabled:  getBoolEnv("USMS_METRICS_ENABLED", true),
	}

	c.APIPort = int(c.getIntEnv("USMS_API_PORT", 8000))
	c.MemoryCacheSize = int(c.getIntEnv("USMS_CACHE_MEMORY_SIZE", cache.DefaultMemoryCapacity))
	c.DiskCacheSizeLimit = c.getIntEnv("USMS_CACHE_DISK_SIZE_LIMIT", cache.DefaultDiskSizeLimit)
	c.PromotionTTL = c.getSecondsEnv("USMS_CACHE_PROMOTION_TTL", 0)
	c.DiskBreakerFailures = int(c.getIntEnv("USMS_CACHE_DISK_BREAKER_FAILURES", 5))
	c.DiskBreakerCooldown = c.getSecondsEnv("USMS_CACHE_DISK_BREAKER_COOLDOWN", 30)
	c.APIRateLimit = int(c.getIntEnv("USMS_API_RATE_LIMIT", 0))
	c.APIRateBurst = int(c.getIntEnv("USMS_API_RATE_BURST", 20))

	c.TTL = TTLConfig{
		Account:          c.getSecondsEnv("USMS_CACHE_TTL_ACCOUNT", 900),
		AccountDisk:      c.getSecondsEnv("USMS_CACHE_TTL_ACCOUNT_DISK", 3600),
		MeterCurrent:     c.getSecondsEnv("USMS_CACHE_TTL_METER_CURRENT", 300),
		MeterCurrentDisk: c.getSecondsEnv("USMS_CACHE_TTL_METER_CURRENT_DISK", 1800),
		Consumption:      c.getSecondsEnv("USMS_CACHE_TTL_CONSUMPTION", 3600),
		ConsumptionDisk:  c.getSecondsEnv("USMS_CACHE_TTL_CONSUMPTION_DISK", 86400),
	}

	return c
}

// Validate checks that every value is usable before the service starts
func (c *Config) Validate() error {
	if len(c.parseErrors) > 0 {
		return errors.ConfigError(strings.Join(c.parseErrors, "; "))
	}

	if err := validation.ValidateStruct(c); err != nil {
		cfgErr := errors.ConfigError("invalid configuration")
		cfgErr.Cause = err
		return cfgErr
	}
	return nil
}

// Addr returns the admin listener address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.APIHost, strconv.Itoa(c.APIPort))
}

// CacheConfig converts the settings into a cache.Config
func (c *Config) CacheConfig() cache.Config {
	cfg := cache.DefaultConfig(c.CachePath)
	cfg.MemoryCapacity = c.MemoryCacheSize
	cfg.DiskSizeLimit = c.DiskCacheSizeLimit
	cfg.PromotionTTL = c.PromotionTTL
	return cfg
}

// DiskBreaker returns the disk tier circuit breaker settings
func (c *Config) DiskBreaker() cache.BreakerConfig {
	return cache.BreakerConfig{
		MaxFailures: uint32(c.DiskBreakerFailures),
		Cooldown:    c.DiskBreakerCooldown,
	}
}

// Policies returns the per-kind cache lifetimes
func (c *Config) Policies() cache.Policies {
	return cache.Policies{
		Account:      cache.Policy{Memory: c.TTL.Account, Disk: c.TTL.AccountDisk},
		MeterCurrent: cache.Policy{Memory: c.TTL.MeterCurrent, Disk: c.TTL.MeterCurrentDisk},
		Consumption:  cache.Policy{Memory: c.TTL.Consumption, Disk: c.TTL.ConsumptionDisk},
	}
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv accepts the values understood by strconv.ParseBool; anything
// else yields defaultValue.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getIntEnv parses an integer variable, recording malformed values
func (c *Config) getIntEnv(key string, defaultValue int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s must be an integer, got %q", key, value))
		return defaultValue
	}
	return parsed
}

// getSecondsEnv parses a whole number of seconds into a duration
func (c *Config) getSecondsEnv(key string, defaultSeconds int64) time.Duration {
	return time.Duration(c.getIntEnv(key, defaultSeconds)) * time.Second
}
