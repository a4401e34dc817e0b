package orchestrator

import (
	"context"
	"log"
	"time"

	"github.com/LeonardoBeccarini/cropwatch/internal/services/vegetation"
)

const (
	DefaultBatchSize       = 5
	DefaultInterBatchDelay = 30 * time.Second
	DefaultFreshnessWindow = 24 * time.Hour
	DefaultMaxImageAgeDays = 10
	DefaultCallTimeout     = 60 * time.Second
)

type Config struct {
	BatchSize          int
	InterBatchDelay    time.Duration
	FreshnessWindow    time.Duration
	Thresholds         vegetation.Thresholds
	MaxImageAgeDays    int
	CallTimeout        time.Duration
	AdminNotifications bool
	AdminContacts      []string

	Logger *log.Logger
	Hooks  Hooks
	Now    func() time.Time
	// Sleep pauses between batches and returns early with ctx.Err().
	Sleep func(ctx context.Context, d time.Duration) error
}

func (c *Config) setDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.InterBatchDelay < 0 {
		c.InterBatchDelay = 0
	}
	if c.FreshnessWindow <= 0 {
		c.FreshnessWindow = DefaultFreshnessWindow
	}
	if c.Thresholds == (vegetation.Thresholds{}) {
		c.Thresholds = vegetation.DefaultThresholds()
	}
	if c.MaxImageAgeDays <= 0 {
		c.MaxImageAgeDays = DefaultMaxImageAgeDays
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Sleep == nil {
		c.Sleep = sleepCtx
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
