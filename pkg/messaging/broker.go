package messaging

import (
	"context"
)

// Broker is the minimal pub/sub surface the service needs. Publishing is
// best-effort: callers log failures and move on, they never fail the
// request that produced the event.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
