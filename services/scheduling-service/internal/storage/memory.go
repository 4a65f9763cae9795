package storage

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	otelx "github.com/md-rashed-zaman/meethub/libs/otel"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/outbox"
)

// Memory is a process-local store for development and tests. One mutex
// serializes every atomic step, which gives the same first-writer-wins
// outcome as the Postgres store.
type Memory struct {
	mu         sync.Mutex
	hosts      map[string]model.Host
	rules      map[string][]model.WeeklyRule
	eventTypes map[string]model.EventType
	bookings   map[string]model.Booking
	events     []outbox.Record
	nextSeq    int64
	published  int
}

func NewMemory() *Memory {
	return &Memory{
		hosts:      map[string]model.Host{},
		rules:      map[string][]model.WeeklyRule{},
		eventTypes: map[string]model.EventType{},
		bookings:   map[string]model.Booking{},
	}
}

func (m *Memory) Host(_ context.Context, hostID string) (model.Host, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.host(hostID)
}

func (m *Memory) host(hostID string) (model.Host, error) {
	h, ok := m.hosts[hostID]
	if !ok {
		return model.Host{}, model.ErrNotFound
	}
	return h, nil
}

func (m *Memory) UpsertHost(_ context.Context, h model.Host) (model.Host, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if prev, ok := m.hosts[h.ID]; ok {
		h.CreatedAt = prev.CreatedAt
	} else {
		h.CreatedAt = now
	}
	h.UpdatedAt = now
	m.hosts[h.ID] = h
	return h, nil
}

func (m *Memory) ListRules(_ context.Context, hostID string) ([]model.WeeklyRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.rules[hostID])
	slices.SortStableFunc(out, func(a, b model.WeeklyRule) int {
		return cmp.Or(cmp.Compare(a.DayOfWeek, b.DayOfWeek), cmp.Compare(a.Start, b.Start))
	})
	return out, nil
}

func (m *Memory) RulesForDay(_ context.Context, hostID string, day time.Weekday) ([]model.WeeklyRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rulesForDay(hostID, day), nil
}

func (m *Memory) rulesForDay(hostID string, day time.Weekday) []model.WeeklyRule {
	var out []model.WeeklyRule
	for _, r := range m.rules[hostID] {
		if r.DayOfWeek == day {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b model.WeeklyRule) int { return cmp.Compare(a.Start, b.Start) })
	return out
}

func (m *Memory) ReplaceRules(_ context.Context, hostID string, rules []model.WeeklyRule) ([]model.WeeklyRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hosts[hostID]; !ok {
		return nil, fmt.Errorf("%w: create a host profile first", model.ErrValidation)
	}
	out := make([]model.WeeklyRule, 0, len(rules))
	for _, r := range rules {
		r.ID = uuid.NewString()
		r.HostID = hostID
		out = append(out, r)
	}
	m.rules[hostID] = out
	return slices.Clone(out), nil
}

func (m *Memory) EventTypeBySlug(_ context.Context, slug string) (model.EventType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, et := range m.eventTypes {
		if et.Slug == slug {
			return et, nil
		}
	}
	return model.EventType{}, model.ErrNotFound
}

func (m *Memory) EventTypeByID(_ context.Context, id string) (model.EventType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventType(id)
}

func (m *Memory) eventType(id string) (model.EventType, error) {
	et, ok := m.eventTypes[id]
	if !ok {
		return model.EventType{}, model.ErrNotFound
	}
	return et, nil
}

func (m *Memory) ListEventTypes(_ context.Context, hostID string) ([]model.EventType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.EventType
	for _, et := range m.eventTypes {
		if et.HostID == hostID {
			out = append(out, et)
		}
	}
	slices.SortFunc(out, func(a, b model.EventType) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (m *Memory) CreateEventType(_ context.Context, et model.EventType) (model.EventType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hosts[et.HostID]; !ok {
		return model.EventType{}, fmt.Errorf("%w: create a host profile first", model.ErrValidation)
	}
	if m.slugTaken(et.Slug, "") {
		return model.EventType{}, fmt.Errorf("%w: slug already exists", model.ErrConflict)
	}
	et.ID = uuid.NewString()
	et.CreatedAt = time.Now().UTC()
	et.UpdatedAt = et.CreatedAt
	m.eventTypes[et.ID] = et
	return et, nil
}

func (m *Memory) UpdateEventType(_ context.Context, et model.EventType) (model.EventType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.eventTypes[et.ID]
	if !ok || prev.HostID != et.HostID {
		return model.EventType{}, model.ErrNotFound
	}
	if m.slugTaken(et.Slug, et.ID) {
		return model.EventType{}, fmt.Errorf("%w: slug already exists", model.ErrConflict)
	}
	et.CreatedAt = prev.CreatedAt
	et.UpdatedAt = time.Now().UTC()
	m.eventTypes[et.ID] = et
	return et, nil
}

func (m *Memory) slugTaken(slug, exceptID string) bool {
	for id, et := range m.eventTypes {
		if et.Slug == slug && id != exceptID {
			return true
		}
	}
	return false
}

func (m *Memory) DeleteEventType(_ context.Context, hostID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	et, ok := m.eventTypes[id]
	if !ok || et.HostID != hostID {
		return model.ErrNotFound
	}
	delete(m.eventTypes, id)
	maps.DeleteFunc(m.bookings, func(_ string, b model.Booking) bool { return b.EventTypeID == id })
	return nil
}

func (m *Memory) BookingsOn(_ context.Context, eventTypeID string, date model.Date) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookingsOn(eventTypeID, date, false), nil
}

func (m *Memory) bookingsOn(eventTypeID string, date model.Date, scheduledOnly bool) []model.Booking {
	var out []model.Booking
	for _, b := range m.bookings {
		if b.EventTypeID != eventTypeID || b.Date != date {
			continue
		}
		if scheduledOnly && !b.Scheduled() {
			continue
		}
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b model.Booking) int { return cmp.Compare(a.Start, b.Start) })
	return out
}

func (m *Memory) ListMeetings(_ context.Context, hostID string, f MeetingFilter) ([]model.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.Limit <= 0 {
		f.Limit = 100
	}

	var out []model.Meeting
	for _, b := range m.bookings {
		if b.HostID != hostID {
			continue
		}
		ahead := f.Today.Before(b.Date) || (b.Date == f.Today && b.End > f.Now)
		upcoming := b.Scheduled() && ahead
		if upcoming != f.Upcoming {
			continue
		}
		et := m.eventTypes[b.EventTypeID]
		out = append(out, model.Meeting{Booking: b, EventName: et.Name, EventSlug: et.Slug, DurationMinutes: et.DurationMinutes})
	}
	slices.SortFunc(out, func(a, b model.Meeting) int {
		c := compareSlot(a.Booking, b.Booking)
		if !f.Upcoming {
			c = -c
		}
		return c
	})
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func compareSlot(a, b model.Booking) int {
	switch {
	case a.Date.Before(b.Date):
		return -1
	case b.Date.Before(a.Date):
		return 1
	}
	return cmp.Compare(a.Start, b.Start)
}

// InTx holds the store mutex for the whole step; lockKey is implied.
func (m *Memory) InTx(ctx context.Context, _ string, fn func(ctx context.Context, tx booking.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{m: m}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// Events returns a copy of every enqueued outbox record.
func (m *Memory) Events() []outbox.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.events)
}

// Drain implements outbox.Source for a single publisher goroutine.
// Records stay in Events after publication.
func (m *Memory) Drain(ctx context.Context, limit int, send func(context.Context, outbox.Record) error) (int, error) {
	m.mu.Lock()
	end := min(len(m.events), m.published+limit)
	pending := slices.Clone(m.events[m.published:end])
	m.mu.Unlock()

	for i, rec := range pending {
		if err := send(ctx, rec); err != nil {
			return i, err
		}
		m.mu.Lock()
		m.published++
		m.mu.Unlock()
	}
	return len(pending), nil
}

// memTx stages writes and applies them only when fn succeeds.
type memTx struct {
	m         *Memory
	bookings  []model.Booking
	cancelled map[string]time.Time
	events    []outbox.Record
}

func (t *memTx) Host(_ context.Context, hostID string) (model.Host, error) {
	return t.m.host(hostID)
}

func (t *memTx) EventTypeByID(_ context.Context, id string) (model.EventType, error) {
	return t.m.eventType(id)
}

func (t *memTx) ScheduledBookings(_ context.Context, eventTypeID string, date model.Date) ([]model.Booking, error) {
	return t.m.bookingsOn(eventTypeID, date, true), nil
}

func (t *memTx) RulesForDay(_ context.Context, hostID string, day time.Weekday) ([]model.WeeklyRule, error) {
	return t.m.rulesForDay(hostID, day), nil
}

func (t *memTx) InsertBooking(_ context.Context, b model.Booking) error {
	t.bookings = append(t.bookings, b)
	return nil
}

func (t *memTx) BookingForUpdate(_ context.Context, bookingID string) (model.Booking, error) {
	b, ok := t.m.bookings[bookingID]
	if !ok {
		return model.Booking{}, model.ErrNotFound
	}
	return b, nil
}

func (t *memTx) MarkCancelled(_ context.Context, bookingID string, at time.Time) error {
	b, ok := t.m.bookings[bookingID]
	if !ok || !b.Scheduled() {
		return model.ErrNotFound
	}
	if t.cancelled == nil {
		t.cancelled = map[string]time.Time{}
	}
	t.cancelled[bookingID] = at
	return nil
}

func (t *memTx) Enqueue(ctx context.Context, evt outbox.Event) error {
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	t.events = append(t.events, outbox.Record{Event: evt, Trace: otelx.CaptureTraceContext(ctx), CreatedAt: time.Now().UTC()})
	return nil
}

func (t *memTx) commit() {
	for _, b := range t.bookings {
		t.m.bookings[b.ID] = b
	}
	for id, at := range t.cancelled {
		b := t.m.bookings[id]
		b.Status = model.StatusCancelled
		b.CancelledAt = &at
		t.m.bookings[id] = b
	}
	for _, rec := range t.events {
		t.m.nextSeq++
		rec.ID = t.m.nextSeq
		t.m.events = append(t.m.events, rec)
	}
}
