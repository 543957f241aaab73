// Package analytics keeps windowed counters of automation fires in
// Redis. Counters are fire-and-forget and never block dispatch.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vtftk/app/internal/domain"
)

// Config controls counter bucketing.
type Config struct {
	Enabled   bool
	Window    time.Duration
	Retention time.Duration
}

type RedisSink struct {
	client *redis.Client
	config Config
}

func NewRedisSink(client *redis.Client, config Config) *RedisSink {
	return &RedisSink{client: client, config: config}
}

// RecordFire increments the counter bucket of one automation firing.
func (s *RedisSink) RecordFire(ctx context.Context, exec domain.Execution) error {
	if !s.config.Enabled {
		return nil
	}

	key := buildKey(exec.Kind, exec.AutomationID.String(), exec.CreatedAt, s.config.Window)

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.config.Retention)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}

	return nil
}

func buildKey(kind domain.AutomationKind, automationID string, t time.Time, window time.Duration) string {
	bucket := truncateToBucket(t, window)
	return fmt.Sprintf("fires:%s:%s:%s", kind, automationID, bucket)
}

func truncateToBucket(t time.Time, window time.Duration) string {
	t = t.UTC()
	switch window {
	case time.Minute:
		return t.Format("200601021504")
	case 5 * time.Minute:
		minute := (t.Minute() / 5) * 5
		return t.Format("2006010215") + fmt.Sprintf("%02d", minute)
	case time.Hour:
		return t.Format("2006010215")
	default:
		return t.Format("200601021504")
	}
}
