package event

import (
	"context"
	"sync"

	"github.com/jwalitptl/medconsult-api/pkg/logger"
	"github.com/jwalitptl/medconsult-api/pkg/messaging"
	"github.com/jwalitptl/medconsult-api/pkg/metrics"
)

// Publisher announces committed changes. Publishing happens after the store
// write, so a failure never rolls anything back.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// BrokerPublisher sends events to a message broker channel.
type BrokerPublisher struct {
	broker  messaging.Broker
	channel string
	metrics *metrics.Metrics
}

func NewBrokerPublisher(broker messaging.Broker, channel string, m *metrics.Metrics) *BrokerPublisher {
	if channel == "" {
		channel = Channel
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &BrokerPublisher{broker: broker, channel: channel, metrics: m}
}

func (p *BrokerPublisher) Publish(ctx context.Context, e Event) error {
	if err := p.broker.Publish(ctx, p.channel, e); err != nil {
		p.metrics.EventsFailed.WithLabelValues(string(e.Type)).Inc()
		return err
	}
	p.metrics.EventsPublished.WithLabelValues(string(e.Type)).Inc()
	return nil
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]Type, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

// Emit builds and publishes an event, logging instead of returning failures.
func Emit(ctx context.Context, p Publisher, log *logger.Logger, t Type, subject string, data interface{}, changes map[string]interface{}) {
	if p == nil {
		return
	}
	e, err := New(t, subject, data)
	if err != nil {
		log.Error(err, "Failed to build event", "type", string(t), "subject", subject)
		return
	}
	if len(changes) > 0 {
		e.Changes = changes
	}
	if err := p.Publish(ctx, e); err != nil {
		log.Warn("Failed to publish event", "type", string(t), "subject", subject, "error", err.Error())
	}
}
