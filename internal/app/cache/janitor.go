package cache

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/pagecraft/render-engine/pkg/logger"
)

// Purger is the part of a cache backend the janitor needs. Redis expires
// keys itself, so only the memory backend implements it.
type Purger interface {
	PurgeExpired() int
}

// Janitor sweeps expired entries out of a memory cache on a cron schedule.
type Janitor struct {
	purger   Purger
	schedule string
	cron     *cron.Cron
	log      *logger.Logger
}

// NewJanitor creates a janitor running on the given cron schedule, for
// example "@every 5m".
func NewJanitor(purger Purger, schedule string, log *logger.Logger) *Janitor {
	if log == nil {
		log = logger.NewDefault("cache-janitor")
	}
	if schedule == "" {
		schedule = "@every 5m"
	}
	return &Janitor{purger: purger, schedule: schedule, log: log}
}

// Name implements system.Service.
func (j *Janitor) Name() string { return "cache-janitor" }

// Start implements system.Service.
func (j *Janitor) Start(context.Context) error {
	j.cron = cron.New()
	if _, err := j.cron.AddFunc(j.schedule, j.sweep); err != nil {
		return fmt.Errorf("janitor schedule %q: %w", j.schedule, err)
	}
	j.cron.Start()
	j.log.WithField("schedule", j.schedule).Info("cache janitor started")
	return nil
}

// Stop implements system.Service.
func (j *Janitor) Stop(ctx context.Context) error {
	if j.cron == nil {
		return nil
	}
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (j *Janitor) sweep() {
	if purged := j.purger.PurgeExpired(); purged > 0 {
		j.log.WithField("purged", purged).Debug("swept expired cache entries")
	}
}
