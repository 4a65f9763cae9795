package booking

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/outbox"
)

// Store is what the booking service needs from persistence.
type Store interface {
	availability.RuleSource
	EventTypeBySlug(ctx context.Context, slug string) (model.EventType, error)
	BookingsOn(ctx context.Context, eventTypeID string, date model.Date) ([]model.Booking, error)

	// InTx runs fn as one atomic step. A non-empty lockKey serializes every
	// step that uses the same key. Errors returned by fn abort the step.
	InTx(ctx context.Context, lockKey string, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the view of storage available inside an atomic step.
type Tx interface {
	Host(ctx context.Context, hostID string) (model.Host, error)
	EventTypeByID(ctx context.Context, eventTypeID string) (model.EventType, error)
	ScheduledBookings(ctx context.Context, eventTypeID string, date model.Date) ([]model.Booking, error)
	RulesForDay(ctx context.Context, hostID string, day time.Weekday) ([]model.WeeklyRule, error)
	InsertBooking(ctx context.Context, b model.Booking) error
	BookingForUpdate(ctx context.Context, bookingID string) (model.Booking, error)
	MarkCancelled(ctx context.Context, bookingID string, at time.Time) error
	Enqueue(ctx context.Context, evt outbox.Event) error
}

// SlotLockKey names the serialization scope of one event type on one date.
func SlotLockKey(eventTypeID string, date model.Date) string {
	return "booking:" + eventTypeID + ":" + date.String()
}
