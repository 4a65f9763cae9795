package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/model"
)

const bookingColumns = `b.id, b.event_type_id, b.host_id, b.invitee_name, b.invitee_email, b.meeting_date,
	b.start_minute, b.end_minute, b.timezone, b.status, b.answers, b.message_to_host, b.created_at, b.cancelled_at`

func scanBooking(row pgx.Row, extra ...any) (model.Booking, error) {
	var b model.Booking
	var day time.Time
	var start, end int
	var status string
	dest := []any{&b.ID, &b.EventTypeID, &b.HostID, &b.InviteeName, &b.InviteeEmail, &day,
		&start, &end, &b.Timezone, &status, &b.Answers, &b.MessageToHost, &b.CreatedAt, &b.CancelledAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return model.Booking{}, err
	}
	b.Date = model.DateOf(day)
	b.Start = model.LocalTime(start)
	b.End = model.LocalTime(end)
	b.Status = model.Status(status)
	return b, nil
}

func collectBookings(rows pgx.Rows) ([]model.Booking, error) {
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BookingsOn returns every booking, scheduled or cancelled, for the event type on date.
func (r *Repository) BookingsOn(ctx context.Context, eventTypeID string, date model.Date) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings b
		WHERE b.event_type_id = $1 AND b.meeting_date = $2
		ORDER BY b.start_minute
	`, eventTypeID, pgDate(date))
	if err != nil {
		return nil, classify(err)
	}
	return collectBookings(rows)
}

// MeetingFilter selects a host's meeting list relative to the host's current wall clock.
type MeetingFilter struct {
	Upcoming bool
	Today    model.Date
	Now      model.LocalTime
	Limit    int
}

// ListMeetings returns upcoming meetings (scheduled and not yet ended) soonest
// first, or past meetings (ended or cancelled) most recent first.
func (r *Repository) ListMeetings(ctx context.Context, hostID string, f MeetingFilter) ([]model.Meeting, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	where := `b.status = 'cancelled' OR b.meeting_date < $2 OR (b.meeting_date = $2 AND b.end_minute <= $3)`
	order := `b.meeting_date DESC, b.start_minute DESC`
	if f.Upcoming {
		where = `b.status = 'scheduled' AND (b.meeting_date > $2 OR (b.meeting_date = $2 AND b.end_minute > $3))`
		order = `b.meeting_date ASC, b.start_minute ASC`
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`, e.name, e.slug, e.duration_minutes
		FROM bookings b
		JOIN event_types e ON e.id = b.event_type_id
		WHERE b.host_id = $1 AND (`+where+`)
		ORDER BY `+order+`
		LIMIT $4
	`, hostID, pgDate(f.Today), int(f.Now), f.Limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []model.Meeting
	for rows.Next() {
		var m model.Meeting
		b, err := scanBooking(rows, &m.EventName, &m.EventSlug, &m.DurationMinutes)
		if err != nil {
			return nil, err
		}
		m.Booking = b
		out = append(out, m)
	}
	return out, rows.Err()
}
