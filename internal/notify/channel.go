package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
)

// Notification is one outbound message, addressed either to a subscriber
// phone number or a staff member.
type Notification struct {
	Kind           string       `json:"kind"`
	RequestKey     string       `json:"request_key"`
	RecipientPhone string       `json:"recipient_phone,omitempty"`
	RecipientID    string       `json:"recipient_id,omitempty"`
	RecipientRole  *domain.Role `json:"recipient_role,omitempty"`
	Body           string       `json:"body"`
}

// Channel delivers notifications. Delivery is best-effort: implementations
// must respect context cancellation and report failures through the error
// return only.
type Channel interface {
	Send(ctx context.Context, notification Notification) error
	Name() string
}

// LogChannel writes notifications to the structured log. Used as the
// always-on fallback adapter.
type LogChannel struct {
	logger *zap.Logger
}

// NewLogChannel builds the logging adapter.
func NewLogChannel(logger *zap.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Send(_ context.Context, notification Notification) error {
	c.logger.Info("notification",
		zap.String("kind", notification.Kind),
		zap.String("request_key", notification.RequestKey),
		zap.String("recipient_phone", notification.RecipientPhone),
		zap.String("recipient_id", notification.RecipientID),
		zap.String("body", notification.Body))
	return nil
}

func (c *LogChannel) Name() string { return "log" }

// RedisChannel publishes notifications to a redis channel consumed by the
// external delivery adapters (bot transport, SMS gateway).
type RedisChannel struct {
	client  *redis.Client
	channel string
}

// NewRedisChannel builds the redis pub/sub adapter.
func NewRedisChannel(client *redis.Client, channel string) *RedisChannel {
	return &RedisChannel{client: client, channel: channel}
}

func (c *RedisChannel) Send(ctx context.Context, notification Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, c.channel, payload).Err()
}

func (c *RedisChannel) Name() string { return "redis" }
