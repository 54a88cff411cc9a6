package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medconsult-api/pkg/messaging"
)

func setupTestBroker(t *testing.T) (*miniredis.Miniredis, *RedisBroker) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	broker := NewRedisBrokerFromClient(client, nil)
	t.Cleanup(func() { broker.Close() })
	return mr, broker
}

func TestRedisBroker_PublishSubscribe(t *testing.T) {
	_, broker := setupTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := broker.Subscribe(ctx, "events")
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, "events", map[string]string{"type": "appointment.booked"}))

	select {
	case msg := <-msgs:
		assert.JSONEq(t, `{"type":"appointment.booked"}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}
}

func TestRedisBroker_ConsumeStopsOnCancel(t *testing.T) {
	_, broker := setupTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())

	received := make(chan []byte, 1)
	done := make(chan error, 1)
	go func() {
		done <- messaging.Consume(ctx, broker, "events", func(b []byte) error {
			received <- b
			return nil
		}, nil)
	}()

	require.Eventually(t, func() bool {
		_ = broker.Publish(context.Background(), "events", "ping")
		select {
		case <-received:
			return true
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestRedisBroker_PublishFailsWhenServerDown(t *testing.T) {
	mr, broker := setupTestBroker(t)
	mr.Close()

	err := broker.Publish(context.Background(), "events", "ping")
	assert.Error(t, err)
}
