package consumer

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Delivery is one broker message, independent of the broker.
type Delivery struct {
	EventID   string
	EventType string
	Body      []byte
}

type Handler func(ctx context.Context, d Delivery) error

type Inbox interface {
	Record(ctx context.Context, eventID string, eventType string) (bool, error)
}

var errMissingEventID = errors.New("message has no event id")

// processor dedupes deliveries through the inbox before handing them on.
type processor struct {
	system  string
	logger  *slog.Logger
	inbox   Inbox
	handler Handler
}

// process returns an error only when the inbox could not be reached; the
// delivery should then be retried. Handler errors are logged and dropped.
func (p *processor) process(ctx context.Context, destination string, d Delivery) error {
	ctxSpan, span := otel.Tracer(p.system).Start(ctx, p.system+".consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", p.system),
			attribute.String("messaging.destination", destination),
			attribute.String("messaging.message_id", d.EventID),
		),
	)
	defer span.End()

	if d.EventID == "" {
		p.logger.Error("message rejected", "err", errMissingEventID, "destination", destination)
		return nil
	}

	ok, err := p.inbox.Record(ctxSpan, d.EventID, d.EventType)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !ok {
		p.logger.Info("duplicate event ignored", "event_id", d.EventID, "event_type", d.EventType)
		return nil
	}

	if err := p.handler(ctxSpan, d); err != nil {
		p.logger.Error("handler error", "err", err, "event_id", d.EventID)
		span.RecordError(err)
	}
	return nil
}
