package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dealer-desk-go/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	pendingTTL        = 7 * 24 * time.Hour // queued notifications older than this are not worth showing
	pendingMaxPerUser = 50
	analyticsMax      = 10000
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(opts *redis.Options) *RedisStore {
	rdb := redis.NewClient(opts)
	return &RedisStore{client: rdb}
}

// EnqueuePending queues a notification for a user to be picked up by the
// worker's background-sync request. Used for iOS fallback devices and for
// payloads whose push delivery failed transiently.
func (s *RedisStore) EnqueuePending(ctx context.Context, userID int, payload models.NotificationPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("pending:user:%d", userID)

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -pendingMaxPerUser, -1)
	pipe.Expire(ctx, key, pendingTTL)
	_, err = pipe.Exec(ctx)

	return err
}

// DrainPending returns and removes all queued notifications for a user,
// oldest first.
func (s *RedisStore) DrainPending(ctx context.Context, userID int) ([]models.NotificationPayload, error) {
	key := fmt.Sprintf("pending:user:%d", userID)

	pipe := s.client.TxPipeline()
	rangeCmd := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	var payloads []models.NotificationPayload
	for _, val := range rangeCmd.Val() {
		var p models.NotificationPayload
		if err := json.Unmarshal([]byte(val), &p); err != nil {
			continue
		}
		payloads = append(payloads, p)
	}

	return payloads, nil
}

// RecordAnalytics appends a notification interaction event to a capped list
// and bumps a per-type counter. Best-effort; callers never surface failures.
func (s *RedisStore) RecordAnalytics(ctx context.Context, event models.AnalyticsEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.LPush(ctx, "analytics:notifications", data)
	pipe.LTrim(ctx, "analytics:notifications", 0, analyticsMax-1)
	pipe.Incr(ctx, fmt.Sprintf("analytics:count:%s", event.EventType))
	_, err = pipe.Exec(ctx)

	return err
}
