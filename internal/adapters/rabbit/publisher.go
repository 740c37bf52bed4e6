package rabbit

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/robertarktes/venue-seat-holds/internal/domain"
)

const Exchange = "svh.events"

type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	err = ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return nil, err
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Publish(ctx context.Context, key string, msg amqp.Publishing) error {
	return p.ch.PublishWithContext(ctx, Exchange, key, false, false, msg)
}

// Message wraps an encoded event body for publishing.
func Message(id string, body []byte) amqp.Publishing {
	return amqp.Publishing{
		MessageId:    id,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// EventSink publishes hold events routed by their type.
type EventSink struct {
	pub *Publisher
}

func NewEventSink(pub *Publisher) *EventSink {
	return &EventSink{pub: pub}
}

func (s *EventSink) Publish(ctx context.Context, ev domain.HoldEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "encode hold event")
	}
	return s.pub.Publish(ctx, string(ev.Type), Message(ev.ID.String(), body))
}
