package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/meethub/libs/mq"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPConsumer reads meeting events from a RabbitMQ queue bound to the
// scheduling exchange.
type AMQPConsumer struct {
	source *mq.Consumer
	proc   *processor
}

func NewAMQP(logger *slog.Logger, inbox Inbox, source *mq.Consumer, handler Handler) *AMQPConsumer {
	return &AMQPConsumer{
		source: source,
		proc:   &processor{system: "rabbitmq", logger: logger, inbox: inbox, handler: handler},
	}
}

func (c *AMQPConsumer) Run(ctx context.Context) {
	defer func() { _ = c.source.Close() }()

	deliveries, err := c.source.Deliveries(ctx)
	if err != nil {
		c.proc.logger.Error("amqp consume failed", "err", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-deliveries:
			if !ok {
				if ctx.Err() == nil {
					c.proc.logger.Error("amqp delivery channel closed")
				}
				return
			}
			c.handle(ctx, msg)
		}
	}
}

// handle acks processed deliveries and requeues those whose inbox write failed.
func (c *AMQPConsumer) handle(ctx context.Context, msg amqp.Delivery) {
	eventType := msg.Type
	if eventType == "" {
		eventType = msg.RoutingKey
	}
	d := Delivery{EventID: msg.MessageId, EventType: eventType, Body: msg.Body}
	if err := c.proc.process(mq.ExtractTraceContext(ctx, msg), msg.RoutingKey, d); err != nil {
		c.proc.logger.Error("inbox record failed; requeueing", "err", err, "event_id", d.EventID)
		sleep(ctx, time.Second)
		_ = msg.Nack(false, true)
		return
	}
	if err := msg.Ack(false); err != nil {
		c.proc.logger.Error("amqp ack failed", "err", err)
	}
}
