// Package retention prunes old execution records and chat history on a
// cron schedule.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Store is the pruning surface of the record store.
type Store interface {
	DeleteExecutionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteChatHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config controls what the cleaner keeps.
type Config struct {
	// Cron expression (minute hour dom month dow) for cleanup runs.
	Schedule string

	ExecutionRetention   time.Duration
	ChatHistoryRetention time.Duration
}

// Cleaner runs retention sweeps until its context is cancelled.
type Cleaner struct {
	store  Store
	config Config
	log    *zap.SugaredLogger

	schedule cron.Schedule
	clock    func() time.Time
}

func NewCleaner(store Store, config Config, log *zap.SugaredLogger) (*Cleaner, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(config.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse retention schedule: %w", err)
	}
	return &Cleaner{
		store:    store,
		config:   config,
		log:      log,
		schedule: schedule,
		clock:    time.Now,
	}, nil
}

// Run sleeps until each scheduled sweep and blocks until ctx is done.
func (c *Cleaner) Run(ctx context.Context) {
	c.log.Infow("retention cleaner started",
		"schedule", c.config.Schedule,
		"execution_retention", c.config.ExecutionRetention,
		"chat_retention", c.config.ChatHistoryRetention)

	for {
		now := c.clock()
		next := c.schedule.Next(now)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			c.log.Infow("retention cleaner stopping", "reason", ctx.Err())
			return
		case <-timer.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep deletes everything older than the configured retention windows.
func (c *Cleaner) Sweep(ctx context.Context) {
	now := c.clock()

	if c.config.ExecutionRetention > 0 {
		cutoff := now.Add(-c.config.ExecutionRetention)
		deleted, err := c.store.DeleteExecutionsBefore(ctx, cutoff)
		if err != nil {
			c.log.Errorw("retention: prune executions failed", "error", err)
		} else if deleted > 0 {
			c.log.Infow("retention: pruned executions", "deleted", deleted, "cutoff", cutoff)
		}
	}

	if c.config.ChatHistoryRetention > 0 {
		cutoff := now.Add(-c.config.ChatHistoryRetention)
		deleted, err := c.store.DeleteChatHistoryBefore(ctx, cutoff)
		if err != nil {
			c.log.Errorw("retention: prune chat history failed", "error", err)
		} else if deleted > 0 {
			c.log.Infow("retention: pruned chat history", "deleted", deleted, "cutoff", cutoff)
		}
	}
}
