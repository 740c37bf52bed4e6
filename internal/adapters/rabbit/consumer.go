package rabbit

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/robertarktes/venue-seat-holds/internal/domain"
	"github.com/robertarktes/venue-seat-holds/internal/observability"
)

type Consumer struct {
	ch     *amqp.Channel
	queue  string
	logger observability.Logger
}

// NewConsumer declares queue and binds it to every hold event.
func NewConsumer(conn *amqp.Connection, queue string, logger observability.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, err
	}
	if err := ch.QueueBind(queue, "hold.*", Exchange, false, nil); err != nil {
		return nil, err
	}
	return &Consumer{ch: ch, queue: queue, logger: logger}, nil
}

// Consume hands each hold event to handle until ctx is done. Undecodable
// messages are dropped; handler failures are requeued.
func (c *Consumer) Consume(ctx context.Context, handle func(context.Context, domain.HoldEvent) error) error {
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrapf(err, "consume %s", c.queue)
	}

	for {
		select {
		case <-ctx.Done():
			return c.ch.Close()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			var ev domain.HoldEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				c.logger.WithError(err).WithField("message_id", d.MessageId).Error("dropping malformed hold event")
				_ = d.Nack(false, false)
				continue
			}
			if err := handle(ctx, ev); err != nil {
				c.logger.WithError(err).WithField("hold_id", ev.HoldID).Warn("hold event handler failed, requeueing")
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
