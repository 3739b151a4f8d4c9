package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Publisher fans out tracking notifications on per-device Redis channels.
type Publisher struct {
	client *redis.Client
}

// NewPublisher creates a new Publisher.
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish sends payload to the device's channel.
func (p *Publisher) Publish(ctx context.Context, deviceID string, payload []byte) error {
	return p.client.Publish(ctx, Channel(deviceID), payload).Err()
}

// Subscribe opens a subscription to the device's channel. The caller closes it.
func (p *Publisher) Subscribe(ctx context.Context, deviceID string) *redis.PubSub {
	return p.client.Subscribe(ctx, Channel(deviceID))
}

// Channel returns the channel name for a device: tracking:{device}:events.
func Channel(deviceID string) string {
	return "tracking:" + deviceID + ":events"
}
