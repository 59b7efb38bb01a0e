package cache

import (
	"math"
	"sync/atomic"
)

// Stats is a point-in-time view of cache activity. Counters are cumulative
// since the Manager was created; sizes are read from the tiers.
type Stats struct {
	L1Hits         int64   `json:"l1_hits"`
	L2Hits         int64   `json:"l2_hits"`
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	Sets           int64   `json:"sets"`
	Evictions      int64   `json:"evictions"`
	L1Size         int     `json:"l1_size"`
	L2Size         int     `json:"l2_size"`
	L2Bytes        int64   `json:"l2_bytes"`
	TotalRequests  int64   `json:"total_requests"`
	HitRatePercent float64 `json:"hit_rate_percent"`
}

// counters are the monotonic activity counters of a Manager
type counters struct {
	l1Hits    atomic.Int64
	l2Hits    atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
}

// snapshot derives the aggregate fields from a single read of each counter
func (c *counters) snapshot() Stats {
	s := Stats{
		L1Hits:    c.l1Hits.Load(),
		L2Hits:    c.l2Hits.Load(),
		Misses:    c.misses.Load(),
		Sets:      c.sets.Load(),
		Evictions: c.evictions.Load(),
	}
	s.Hits = s.L1Hits + s.L2Hits
	s.TotalRequests = s.Hits + s.Misses
	s.HitRatePercent = hitRatePercent(s.Hits, s.TotalRequests)
	return s
}

// hitRatePercent rounds hits/total to two decimal places of a percentage
func hitRatePercent(hits, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(hits)/float64(total)*100*100) / 100
}
