package core

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// HistoryConfig holds the run history retention settings.
type HistoryConfig struct {
	RetentionDays int           // Days to keep finished runs (default: 90)
	CheckInterval time.Duration // How often to purge (default: 24h)
	Schedule      string        // Cron spec; overrides CheckInterval when set
}

func (c HistoryConfig) withDefaults() HistoryConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 90
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

func (c HistoryConfig) spec() string {
	if c.Schedule != "" {
		return c.Schedule
	}
	return fmt.Sprintf("@every %s", c.CheckInterval)
}

// StartHistoryScheduler purges finished runs older than the retention
// period. It runs once immediately, then on the cron schedule, and returns
// when ctx is cancelled. Purge failures are logged and retried on the next
// tick.
func (s *Service) StartHistoryScheduler(ctx context.Context, cfg HistoryConfig) {
	cfg = cfg.withDefaults()

	c := cron.New()
	if _, err := c.AddFunc(cfg.spec(), func() { s.purgeHistory(ctx, cfg) }); err != nil {
		s.logger.Error("invalid history schedule", "schedule", cfg.spec(), "error", err)
		return
	}
	s.logger.Info("history scheduler started",
		"retention_days", cfg.RetentionDays,
		"schedule", cfg.spec(),
	)

	s.purgeHistory(ctx, cfg)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("history scheduler stopped")
}

func (s *Service) purgeHistory(ctx context.Context, cfg HistoryConfig) {
	start := time.Now()
	cutoff := s.now().AddDate(0, 0, -cfg.RetentionDays)

	purged, err := s.runs.PurgeRuns(ctx, cutoff)
	if err != nil {
		s.logger.Error("history purge failed", "error", err)
		return
	}
	s.logger.Info("purged run history",
		"runs_purged", purged,
		"cutoff", cutoff,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
