package outbox

import (
	"context"

	"github.com/md-rashed-zaman/meethub/libs/kafkax"
	"github.com/md-rashed-zaman/meethub/libs/mq"
	"github.com/segmentio/kafka-go"
)

// KafkaSink writes each record to the topic named after its event type,
// keyed by aggregate id so one booking's events stay ordered.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers string) *KafkaSink {
	return &KafkaSink{writer: &kafka.Writer{
		Addr:                   kafka.TCP(kafkax.SplitBrokers(brokers)...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}}
}

func (s *KafkaSink) Send(ctx context.Context, rec Record) error {
	meta := kafkax.EventMeta{EventID: rec.EventID, EventType: rec.EventType}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Topic:   rec.EventType,
		Key:     []byte(rec.AggregateID),
		Value:   rec.Payload,
		Headers: kafkax.InjectTraceHeaders(ctx, meta.Headers()),
	})
}

func (s *KafkaSink) Close() error { return s.writer.Close() }

// AMQPSink publishes each record to the topic exchange with the event type as routing key.
type AMQPSink struct {
	pub *mq.Publisher
}

func NewAMQPSink(pub *mq.Publisher) *AMQPSink {
	return &AMQPSink{pub: pub}
}

func (s *AMQPSink) Send(ctx context.Context, rec Record) error {
	return s.pub.Publish(ctx, mq.Message{
		RoutingKey: rec.EventType,
		MessageID:  rec.EventID,
		Type:       rec.EventType,
		Body:       rec.Payload,
	})
}

func (s *AMQPSink) Close() error { return s.pub.Close() }
