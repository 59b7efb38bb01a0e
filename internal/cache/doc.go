// Package cache provides the two-tier cache used by the USMS portal client.
//
// Values live in a bounded in-memory tier (L1) backed by a persistent SQLite
// tier (L2) under the configured data directory. Reads consult L1 first and
// fall back to L2; an L2 hit is promoted into L1. Writes go to both tiers with
// independent lifetimes so short-lived hot copies sit in memory while the
// durable copy survives restarts.
//
// # Tiers
//
// MemoryTier: a mutex-guarded map plus insertion-ordered list. When the tier is
// full the oldest inserted key is dropped. Expired entries are swept before
// every read and during Cleanup.
//
// DiskTier: a SQLite table keyed by cache key. Payloads above the compression
// threshold are stored zstd-compressed. The tier enforces a byte budget by
// culling the oldest rows and expires rows lazily on read.
//
// # Failure Model
//
// Only caller mistakes surface as errors (empty keys, negative TTLs, values the
// codec cannot encode). Disk and decode failures are logged and treated as a
// miss or a skipped write so the cache never takes its caller down.
// WithDiskBreaker stops calling a disk that keeps failing until a cooldown
// passes.
//
// # Usage
//
//	mgr, err := cache.New[Account](cache.DefaultConfig("./data"))
//	if err != nil {
//		return err
//	}
//	defer mgr.Close()
//
//	policy := cache.DefaultPolicies().Account
//	_ = mgr.Set(cache.AccountKey("REG-001"), account, policy.Memory, policy.Disk)
//	if acct, ok := mgr.Get(cache.AccountKey("REG-001")); ok {
//		// ...
//	}
//
//	mgr.Invalidate(cache.Selector{Pattern: cache.MeterPattern("M-42")})
package cache
