package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/model"
)

const (
	maxNameLength    = 200
	maxMessageLength = 2000
	maxAnswerLength  = 2000
)

// Request is an invitee's attempt to book one slot.
type Request struct {
	Slug          string
	Date          model.Date
	Start         model.LocalTime
	InviteeName   string
	InviteeEmail  string
	Timezone      string
	Answers       map[string]string
	MessageToHost string
}

type Service struct {
	store    Store
	resolver *availability.Resolver
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		resolver: availability.NewResolver(store),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EventType returns the public view of an event type and its host.
func (s *Service) EventType(ctx context.Context, slug string) (model.EventType, model.Host, error) {
	et, err := s.store.EventTypeBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return model.EventType{}, model.Host{}, err
	}
	host, err := s.store.Host(ctx, et.HostID)
	if err != nil {
		return model.EventType{}, model.Host{}, err
	}
	return et, host, nil
}

// AvailableSlots lists open slots for the event type on date. Slots held by a
// scheduled booking are removed, and so are slots freed by a cancellation.
func (s *Service) AvailableSlots(ctx context.Context, slug string, date model.Date) ([]availability.Slot, error) {
	et, err := s.store.EventTypeBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, err
	}
	candidates, err := s.resolver.CandidateSlots(ctx, et.HostID, date, et.DurationMinutes, s.now())
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []availability.Slot{}, nil
	}
	bookings, err := s.store.BookingsOn(ctx, et.ID, date)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	return availability.RetireCancelled(availability.FilterAvailable(candidates, bookings), bookings), nil
}

// Attempt books req's slot. Exactly one of any set of concurrent attempts on
// overlapping windows of the same event type and date succeeds; the rest get
// model.ErrConflict.
func (s *Service) Attempt(ctx context.Context, req Request) (model.Booking, error) {
	inviteeLoc, err := req.normalize()
	if err != nil {
		return model.Booking{}, err
	}
	et, host, err := s.EventType(ctx, req.Slug)
	if err != nil {
		return model.Booking{}, err
	}
	hostLoc, err := host.Location()
	if err != nil {
		return model.Booking{}, err
	}
	if availability.IsPastDate(req.Date, s.now(), hostLoc) {
		return model.Booking{}, model.ErrPastDate
	}
	end, ok := availability.MeetingEnd(req.Date, req.Start, et.DurationMinutes, inviteeLoc)
	if !ok {
		return model.Booking{}, fmt.Errorf("%w: meeting would run past the end of the day", model.ErrOutOfHours)
	}
	answers, err := collectAnswers(et.Questions, req.Answers)
	if err != nil {
		return model.Booking{}, err
	}

	b := model.Booking{
		ID:            uuid.NewString(),
		EventTypeID:   et.ID,
		HostID:        et.HostID,
		InviteeName:   req.InviteeName,
		InviteeEmail:  req.InviteeEmail,
		Date:          req.Date,
		Start:         req.Start,
		End:           end,
		Timezone:      req.Timezone,
		Status:        model.StatusScheduled,
		Answers:       answers,
		MessageToHost: req.MessageToHost,
	}

	err = s.store.InTx(ctx, SlotLockKey(et.ID, req.Date), func(ctx context.Context, tx Tx) error {
		existing, err := tx.ScheduledBookings(ctx, et.ID, req.Date)
		if err != nil {
			return err
		}
		if clash, busy := availability.ConflictsWith(b.Start, b.End, existing); busy {
			return fmt.Errorf("%w: overlaps %s-%s", model.ErrConflict, clash.Start, clash.End)
		}
		rules, err := tx.RulesForDay(ctx, et.HostID, req.Date.Weekday())
		if err != nil {
			return err
		}
		if !availability.WithinAnyRule(b.Start, b.End, rules) {
			return model.ErrOutOfHours
		}

		b.CreatedAt = s.now().UTC()
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		evt, err := meetingEvent(EventMeetingScheduled, b, et, host, b.CreatedAt)
		if err != nil {
			return err
		}
		return tx.Enqueue(ctx, evt)
	})
	if err != nil {
		if !isClientError(err) {
			s.logger.Error("booking failed", "event_type_id", et.ID, "date", req.Date.String(), "start", req.Start.String(), "err", err)
		}
		return model.Booking{}, err
	}

	s.logger.Info("meeting booked",
		"booking_id", b.ID,
		"event_type_id", et.ID,
		"date", b.Date.String(),
		"start", b.Start.String(),
		"end", b.End.String(),
	)
	return b, nil
}

// Cancel marks a scheduled booking cancelled on behalf of its host.
// Bookings of other hosts are reported as not found. Cancelling twice returns
// the booking unchanged and emits nothing.
func (s *Service) Cancel(ctx context.Context, bookingID, hostID string) (model.Booking, error) {
	var out model.Booking
	err := s.store.InTx(ctx, "", func(ctx context.Context, tx Tx) error {
		b, err := tx.BookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.HostID != hostID {
			return model.ErrNotFound
		}
		if b.Status == model.StatusCancelled {
			out = b
			return nil
		}

		at := s.now().UTC()
		if err := tx.MarkCancelled(ctx, b.ID, at); err != nil {
			return err
		}
		b.Status = model.StatusCancelled
		b.CancelledAt = &at
		out = b

		et, err := tx.EventTypeByID(ctx, b.EventTypeID)
		if err != nil {
			return err
		}
		host, err := tx.Host(ctx, b.HostID)
		if err != nil {
			return err
		}
		evt, err := meetingEvent(EventMeetingCancelled, b, et, host, at)
		if err != nil {
			return err
		}
		return tx.Enqueue(ctx, evt)
	})
	if err != nil {
		return model.Booking{}, err
	}
	s.logger.Info("meeting cancelled", "booking_id", out.ID, "host_id", hostID)
	return out, nil
}

func (r *Request) normalize() (*time.Location, error) {
	r.Slug = strings.TrimSpace(r.Slug)
	r.InviteeName = strings.TrimSpace(r.InviteeName)
	r.InviteeEmail = strings.TrimSpace(r.InviteeEmail)
	r.Timezone = strings.TrimSpace(r.Timezone)
	r.MessageToHost = strings.TrimSpace(r.MessageToHost)

	switch {
	case r.Slug == "":
		return nil, fmt.Errorf("%w: slug is required", model.ErrValidation)
	case r.Date.IsZero():
		return nil, fmt.Errorf("%w: date is required", model.ErrValidation)
	case !r.Start.Valid():
		return nil, fmt.Errorf("%w: start_time is invalid", model.ErrValidation)
	case r.InviteeName == "":
		return nil, fmt.Errorf("%w: invitee_name is required", model.ErrValidation)
	case len(r.InviteeName) > maxNameLength:
		return nil, fmt.Errorf("%w: invitee_name is too long", model.ErrValidation)
	case len(r.MessageToHost) > maxMessageLength:
		return nil, fmt.Errorf("%w: message_to_host is too long", model.ErrValidation)
	}
	addr, err := mail.ParseAddress(r.InviteeEmail)
	if err != nil || addr.Address != r.InviteeEmail {
		return nil, fmt.Errorf("%w: invitee_email is not a valid address", model.ErrValidation)
	}
	return model.LoadTimezone(r.Timezone)
}

// collectAnswers keeps answers to the event type's questions, keyed by prompt,
// and enforces required questions.
func collectAnswers(questions []model.Question, given map[string]string) (map[string]string, error) {
	if len(questions) == 0 {
		return nil, nil
	}
	out := map[string]string{}
	for _, q := range questions {
		a := strings.TrimSpace(given[q.Prompt])
		if a == "" {
			if q.Required {
				return nil, fmt.Errorf("%w: answer to %q is required", model.ErrValidation, q.Prompt)
			}
			continue
		}
		if len(a) > maxAnswerLength {
			return nil, fmt.Errorf("%w: answer to %q is too long", model.ErrValidation, q.Prompt)
		}
		out[q.Prompt] = a
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func isClientError(err error) bool {
	for _, target := range []error{model.ErrValidation, model.ErrPastDate, model.ErrOutOfHours, model.ErrConflict, model.ErrNotFound} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
