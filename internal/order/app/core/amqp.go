package core

import (
	"context"

	"dine-order/internal/order/domain/models"
)

// IBroadcaster delivers order events to the table channel and the global channel.
type IBroadcaster interface {
	Publish(ctx context.Context, event models.Event) error
}

type IRabbitMQ interface {
	IBroadcaster
	Close() error
}
