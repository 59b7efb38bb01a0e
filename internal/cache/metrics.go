package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource is anything that can report cache Stats
type StatsSource interface {
	Stats() Stats
}

// Collector exports cache Stats as Prometheus metrics. Values are read from
// the source on every scrape.
type Collector struct {
	source StatsSource

	hits      *prometheus.Desc
	misses    *prometheus.Desc
	sets      *prometheus.Desc
	evictions *prometheus.Desc
	entries   *prometheus.Desc
	diskBytes *prometheus.Desc
	hitRate   *prometheus.Desc
}

// NewCollector creates a collector for source under namespace
func NewCollector(source StatsSource, namespace string) *Collector {
	return &Collector{
		source: source,
		hits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "hits_total"),
			"Cache hits by tier",
			[]string{"tier"}, nil,
		),
		misses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "misses_total"),
			"Lookups that found nothing in either tier",
			nil, nil,
		),
		sets: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "sets_total"),
			"Accepted set operations",
			nil, nil,
		),
		evictions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "evictions_total"),
			"Memory entries removed by capacity or expiry",
			nil, nil,
		),
		entries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "entries"),
			"Entries currently held by tier",
			[]string{"tier"}, nil,
		),
		diskBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "disk_bytes"),
			"Payload bytes stored in the disk tier",
			nil, nil,
		),
		hitRate: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "hit_rate_percent"),
			"Hits as a percentage of all lookups",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.sets
	ch <- c.evictions
	ch <- c.entries
	ch <- c.diskBytes
	ch <- c.hitRate
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()

	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.L1Hits), "l1")
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.L2Hits), "l2")
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.sets, prometheus.CounterValue, float64(s.Sets))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions))
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.L1Size), "l1")
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.L2Size), "l2")
	ch <- prometheus.MustNewConstMetric(c.diskBytes, prometheus.GaugeValue, float64(s.L2Bytes))
	ch <- prometheus.MustNewConstMetric(c.hitRate, prometheus.GaugeValue, s.HitRatePercent)
}
