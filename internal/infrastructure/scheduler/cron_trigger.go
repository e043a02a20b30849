package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/agricoop/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

// CronTriggerConfig holds configuration for the cron trigger
type CronTriggerConfig struct {
	// SweepHour and SweepMinute are the local wall-clock time of the daily sweep
	SweepHour   int
	SweepMinute int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration

	// Location is the zone "daily" is measured in
	Location *time.Location
}

// DefaultCronTriggerConfig returns default cron trigger configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		SweepHour:     0,
		SweepMinute:   5,
		CheckInterval: time.Minute,
		Location:      time.UTC,
	}
}

// NewCronTriggerConfig maps application settings onto a CronTriggerConfig
func NewCronTriggerConfig(cfg config.SchedulerConfig, loc *time.Location) CronTriggerConfig {
	out := DefaultCronTriggerConfig()
	out.SweepHour = cfg.SweepHour
	out.SweepMinute = cfg.SweepMinute
	if cfg.CheckInterval > 0 {
		out.CheckInterval = cfg.CheckInterval
	}
	if loc != nil {
		out.Location = loc
	}
	return out
}

// CronTrigger submits the daily fee sweep once a day at the configured time.
// A sweep missed because the process was down at that minute is caught up on
// the first check after it.
type CronTrigger struct {
	config    CronTriggerConfig
	scheduler *Scheduler
	logger    *zap.Logger
	now       func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string // Track which date we last ran for
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(config CronTriggerConfig, scheduler *Scheduler, logger *zap.Logger) *CronTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &CronTrigger{
		config:    config,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}
}

// Start starts the cron trigger
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Cron trigger started",
		zap.Int("sweep_hour", c.config.SweepHour),
		zap.Int("sweep_minute", c.config.SweepMinute),
		zap.Duration("check_interval", c.config.CheckInterval),
		zap.String("location", c.config.Location.String()),
	)

	return nil
}

// Stop stops the cron trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop checks periodically if it's time to run the sweep
func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger()
		}
	}
}

// ShouldRun reports whether the sweep is due at t and has not run that day
func (c *CronTrigger) ShouldRun(t time.Time) bool {
	local := t.In(c.config.Location)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastRunDate == local.Format("2006-01-02") {
		return false
	}
	sweepAt := time.Date(local.Year(), local.Month(), local.Day(), c.config.SweepHour, c.config.SweepMinute, 0, 0, c.config.Location)
	return !local.Before(sweepAt)
}

// checkAndTrigger submits the sweep when it is due
func (c *CronTrigger) checkAndTrigger() {
	now := c.now()
	if !c.ShouldRun(now) {
		return
	}

	job, err := c.scheduler.ScheduleDailyFeeSweep(TriggerCron)
	if err != nil {
		c.logger.Error("Failed to schedule daily fee sweep", zap.Error(err))
		return
	}

	c.mu.Lock()
	c.lastRunDate = now.In(c.config.Location).Format("2006-01-02")
	c.mu.Unlock()

	c.logger.Info("Daily fee sweep triggered", zap.String("job_id", job.ID.String()))
}

// TriggerNow submits a sweep immediately, independent of the daily schedule
func (c *CronTrigger) TriggerNow() (*Job, error) {
	return c.scheduler.ScheduleDailyFeeSweep(TriggerManual)
}
