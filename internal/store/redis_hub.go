package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/getreach/internal/models"
)

// NewRedisClient creates and verifies a Redis client connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

// RedisHub fans report updates out over Redis pub/sub so every instance of
// the service sees them.
type RedisHub struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisHub(rdb *redis.Client, logger *zap.Logger) *RedisHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisHub{rdb: rdb, logger: logger}
}

var _ Hub = (*RedisHub)(nil)

func reportChannel(reportID string) string { return "report:" + reportID }

func (h *RedisHub) Publish(ctx context.Context, reportID string, report *models.ReachReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("publish: encode report: %w", err)
	}
	if err := h.rdb.Publish(ctx, reportChannel(reportID), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", reportID, err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so a publish
// made after it returns is guaranteed to be seen.
func (h *RedisHub) Subscribe(ctx context.Context, reportID string, fn func(*models.ReachReport)) (*Subscription, error) {
	ps := h.rdb.Subscribe(ctx, reportChannel(reportID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", reportID, err)
	}

	stopped := make(chan struct{})
	sub := newSubscription(func() error {
		err := ps.Close()
		<-stopped
		return err
	})

	go func() {
		defer close(stopped)
		defer sub.finish()
		for msg := range ps.Channel() {
			report, err := models.ParseReport(msg.Payload)
			if err != nil {
				h.logger.Warn("dropping undecodable report update", zap.String("report_id", reportID), zap.Error(err))
				continue
			}
			fn(report)
		}
	}()
	return sub, nil
}
