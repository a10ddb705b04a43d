package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// LogSink writes alert events to the structured log. It is always
// wired so alerts are visible even when no external fanout is
// configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(_ context.Context, event Event) error {
	s.logger.Info("alert event",
		"profile_id", event.ProfileID,
		"zone_id", event.ZoneID,
		"event", string(event.Event),
		"at", event.At,
	)
	return nil
}

// RedisSink publishes alert events to a per-profile pub/sub channel and
// mirrors the latest event into a keyed entry so late subscribers
// (caregiver apps reconnecting) can catch up.
type RedisSink struct {
	client   redis.UniversalClient
	stateTTL time.Duration
}

func NewRedisSink(client redis.UniversalClient) *RedisSink {
	return &RedisSink{client: client, stateTTL: 24 * time.Hour}
}

func (s *RedisSink) Notify(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}

	channel := fmt.Sprintf("safeband:alerts:%s", event.ProfileID)
	if err := s.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish alert event: %w", err)
	}

	stateKey := fmt.Sprintf("safeband:alerts:last:%s:%s", event.ProfileID, event.ZoneID)
	if err := s.client.Set(ctx, stateKey, payload, s.stateTTL).Err(); err != nil {
		return fmt.Errorf("store last alert event: %w", err)
	}
	return nil
}
