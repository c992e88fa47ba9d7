package messaging

import (
	"context"
)

// Handler processes one delivered message
type Handler func(ctx context.Context, payload []byte) error

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe delivers messages on channel to handler until ctx is done
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Ping(ctx context.Context) error
	Close() error
}
