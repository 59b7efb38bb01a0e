// Package scheduler runs periodic cache maintenance on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"

	"github.com/hilmishah-img/usms/internal/cache"
	"github.com/hilmishah-img/usms/internal/common/errors"
	"github.com/hilmishah-img/usms/internal/common/logging"
	"github.com/hilmishah-img/usms/internal/common/validation"
)

const (
	JobCleanupCache  = "cleanup_cache"
	JobLogCacheStats = "log_cache_stats"
)

// Maintainer is the part of the cache the scheduler drives
type Maintainer interface {
	Cleanup()
	Stats() cache.Stats
}

// Config holds the job schedules
type Config struct {
	CleanupSchedule string
	StatsSchedule   string
}

// Scheduler owns a cron runner with the cache maintenance jobs registered
type Scheduler struct {
	cron   *cron.Cron
	target Maintainer
	logger logging.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	running bool
}

// New registers the maintenance jobs against target without starting them
func New(target Maintainer, cfg Config, logger logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	logger = logger.WithFields(logging.String("component", "scheduler"))

	cronLogger := cronLogAdapter{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(validation.CronParser),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		target:  target,
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}

	jobs := []struct {
		name     string
		schedule string
		run      func(logging.Logger)
	}{
		{JobCleanupCache, cfg.CleanupSchedule, s.cleanupCache},
		{JobLogCacheStats, cfg.StatsSchedule, s.logCacheStats},
	}

	for _, job := range jobs {
		name, run := job.name, job.run
		id, err := s.cron.AddFunc(job.schedule, func() { run(s.jobLogger(name)) })
		if err != nil {
			cfgErr := errors.ConfigError(fmt.Sprintf("invalid schedule for job %s", job.name)).
				WithContext("schedule", job.schedule)
			cfgErr.Cause = err
			return nil, cfgErr
		}
		s.entries[job.name] = id
		logger.Info("Scheduled job",
			logging.String("job", job.name),
			logging.String("schedule", job.schedule),
		)
	}

	return s, nil
}

// Start begins running jobs in the background
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("Scheduler started", logging.Int("jobs", len(s.entries)))
}

// Stop halts the scheduler and waits for running jobs or ctx, whichever ends first
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return errors.TimeoutError("scheduler stop")
	}
}

// RunNow executes the named job synchronously
func (s *Scheduler) RunNow(name string) error {
	switch name {
	case JobCleanupCache:
		s.cleanupCache(s.jobLogger(name))
	case JobLogCacheStats:
		s.logCacheStats(s.jobLogger(name))
	default:
		return errors.ValidationError("unknown job").WithContext("job", name)
	}
	return nil
}

// Jobs lists the registered job names with their next run time
func (s *Scheduler) Jobs() map[string]cron.Entry {
	out := make(map[string]cron.Entry, len(s.entries))
	for name, id := range s.entries {
		out[name] = s.cron.Entry(id)
	}
	return out
}

func (s *Scheduler) jobLogger(name string) logging.Logger {
	return s.logger.WithContext(context.WithValue(context.Background(), logging.JobKey, name))
}

func (s *Scheduler) cleanupCache(logger logging.Logger) {
	logger.Debug("Running job")
	s.target.Cleanup()
}

func (s *Scheduler) logCacheStats(logger logging.Logger) {
	stats := s.target.Stats()
	logger.Info("Cache statistics",
		logging.Any("hit_rate_percent", stats.HitRatePercent),
		logging.Int64("total_requests", stats.TotalRequests),
		logging.Int64("hits", stats.Hits),
		logging.Int64("misses", stats.Misses),
		logging.Int("l1_size", stats.L1Size),
		logging.Int("l2_size", stats.L2Size),
		logging.String("l2_bytes", humanize.IBytes(uint64(stats.L2Bytes))),
	)
}

// cronLogAdapter routes cron's internal logging to our logger
type cronLogAdapter struct {
	logger logging.Logger
}

func (a cronLogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug("cron: "+msg, toFields(keysAndValues)...)
}

func (a cronLogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.Error("cron: "+msg, err, toFields(keysAndValues)...)
}

func toFields(keysAndValues []interface{}) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logging.Any(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1]))
	}
	return fields
}
