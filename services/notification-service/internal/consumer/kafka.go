package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/meethub/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

type KafkaConfig struct {
	Brokers string
	GroupID string
	Topics  []string
}

type KafkaConsumer struct {
	reader *kafka.Reader
	proc   *processor
}

func NewKafka(logger *slog.Logger, inbox Inbox, cfg KafkaConfig, handler Handler) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkax.SplitBrokers(cfg.Brokers),
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &KafkaConsumer{
		reader: reader,
		proc:   &processor{system: "kafka", logger: logger, inbox: inbox, handler: handler},
	}
}

// Run commits each message only after it is processed. Inbox failures are
// retried in place so offsets never skip an unprocessed message.
func (c *KafkaConsumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.proc.logger.Error("kafka read error", "err", err)
			sleep(ctx, time.Second)
			continue
		}

		meta := kafkax.ExtractEventMeta(msg)
		d := Delivery{EventID: meta.EventID, EventType: meta.EventType, Body: msg.Value}
		msgCtx := kafkax.ExtractTraceContext(ctx, msg)
		for {
			err := c.proc.process(msgCtx, msg.Topic, d)
			if err == nil {
				break
			}
			c.proc.logger.Error("inbox record failed; retrying", "err", err, "event_id", d.EventID)
			if !sleep(ctx, time.Second) {
				return
			}
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.proc.logger.Error("kafka commit failed", "err", err)
		}
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
