package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/meethub/libs/db"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/outbox"
)

// InTx runs fn in a SERIALIZABLE transaction bounded by the configured timeout.
// A non-empty lockKey takes a transaction-scoped advisory lock first. The
// lock statement fixes the serializable snapshot, so a waiter still reads
// bookings from before the holder committed; its insert then fails on the
// exclusion constraint or as a serialization failure, and a retry sees the
// committed row.
// Serialization failures are retried; once retries run out, or the timeout
// fires, the error wraps model.ErrTransient.
func (r *Repository) InTx(ctx context.Context, lockKey string, fn func(ctx context.Context, tx booking.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.txTimeout)
	defer cancel()

	err := db.RunInTx(ctx, r.pool, r.txPolicy, func(tx pgx.Tx) error {
		if lockKey != "" {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
				return err
			}
		}
		return fn(ctx, &pgTx{tx: tx, outbox: r.outbox})
	})
	return classify(err)
}

type pgTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (t *pgTx) Host(ctx context.Context, hostID string) (model.Host, error) {
	var h model.Host
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, email, timezone, created_at, updated_at FROM hosts WHERE id = $1
	`, hostID).Scan(&h.ID, &h.Name, &h.Email, &h.Timezone, &h.CreatedAt, &h.UpdatedAt)
	return h, classify(err)
}

func (t *pgTx) EventTypeByID(ctx context.Context, id string) (model.EventType, error) {
	et, err := scanEventType(t.tx.QueryRow(ctx, `SELECT `+eventTypeColumns+` FROM event_types WHERE id = $1`, id))
	return et, classify(err)
}

func (t *pgTx) ScheduledBookings(ctx context.Context, eventTypeID string, date model.Date) ([]model.Booking, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings b
		WHERE b.event_type_id = $1 AND b.meeting_date = $2 AND b.status = 'scheduled'
		ORDER BY b.start_minute
	`, eventTypeID, pgDate(date))
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (t *pgTx) RulesForDay(ctx context.Context, hostID string, day time.Weekday) ([]model.WeeklyRule, error) {
	return rulesForDay(ctx, t.tx, hostID, day)
}

// InsertBooking relies on the bookings_no_overlap exclusion constraint as the
// last line against double booking; a violation surfaces as model.ErrConflict.
func (t *pgTx) InsertBooking(ctx context.Context, b model.Booking) error {
	answers := b.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO bookings
			(id, event_type_id, host_id, invitee_name, invitee_email, meeting_date, start_minute, end_minute,
			 timezone, status, answers, message_to_host, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, b.ID, b.EventTypeID, b.HostID, b.InviteeName, b.InviteeEmail, pgDate(b.Date), int(b.Start), int(b.End),
		b.Timezone, string(b.Status), answers, b.MessageToHost, b.CreatedAt)
	if db.IsExclusionViolation(err) {
		return model.ErrConflict
	}
	return err
}

func (t *pgTx) BookingForUpdate(ctx context.Context, bookingID string) (model.Booking, error) {
	b, err := scanBooking(t.tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings b
		WHERE b.id = $1
		FOR UPDATE
	`, bookingID))
	return b, classify(err)
}

func (t *pgTx) MarkCancelled(ctx context.Context, bookingID string, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE bookings
		SET status = 'cancelled', cancelled_at = $2
		WHERE id = $1 AND status = 'scheduled'
	`, bookingID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (t *pgTx) Enqueue(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}
