package outbox

import (
	"time"

	otelx "github.com/md-rashed-zaman/meethub/libs/otel"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic (or AMQP routing key) equals EventType.
type Event struct {
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Record is a stored event awaiting or past publication.
type Record struct {
	ID int64
	Event
	Trace     otelx.TraceContext
	CreatedAt time.Time
}
