package registry

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ChangeChannel is the Redis pub/sub channel carrying tenant ids whose
// mapping changed.
const ChangeChannel = "schemamap:mapping:changed"

// RedisNotifier publishes mapping changes over Redis pub/sub.
type RedisNotifier struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisNotifier creates a notifier publishing on ChangeChannel.
func NewRedisNotifier(client redis.UniversalClient) *RedisNotifier {
	return &RedisNotifier{client: client, channel: ChangeChannel}
}

// Publish sends tenantID to every subscriber.
func (n *RedisNotifier) Publish(ctx context.Context, tenantID string) error {
	if err := n.client.Publish(ctx, n.channel, tenantID).Err(); err != nil {
		return fmt.Errorf("failed to publish on %s: %w", n.channel, err)
	}
	return nil
}

// Channel returns the channel name used for publishing.
func (n *RedisNotifier) Channel() string {
	return n.channel
}
