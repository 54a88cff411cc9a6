package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Consume delivers every message on channel to handler until ctx is done or
// the subscription ends. Handler errors go to onError and do not stop the loop.
func Consume(ctx context.Context, broker Broker, channel string, handler func([]byte) error, onError func(error)) error {
	msgChan, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgChan:
			if !ok {
				return nil
			}
			if err := handler(msg); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
