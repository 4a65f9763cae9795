package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/md-rashed-zaman/meethub/libs/auth"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/storage"
)

const testSecret = "test-secret"

type testEnv struct {
	store *storage.Memory
	host  *HostHandler
	mux   *http.ServeMux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMemory()

	if _, err := store.UpsertHost(ctx, model.Host{ID: "host-1", Name: "Ada", Email: "ada@example.com", Timezone: "UTC"}); err != nil {
		t.Fatalf("upsert host: %v", err)
	}
	if _, err := store.ReplaceRules(ctx, "host-1", []model.WeeklyRule{
		{DayOfWeek: time.Monday, Start: 9 * 60, End: 12 * 60},
	}); err != nil {
		t.Fatalf("replace rules: %v", err)
	}
	if _, err := store.CreateEventType(ctx, model.EventType{
		HostID:          "host-1",
		Name:            "Intro call",
		DurationMinutes: 30,
		Slug:            "intro",
		Questions:       []model.Question{{Prompt: "Topic", Kind: "text", Required: true}},
	}); err != nil {
		t.Fatalf("create event type: %v", err)
	}

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := booking.NewService(store, logger, booking.WithClock(func() time.Time { return now }))
	host := NewHostHandler(store, svc, logger)
	host.now = func() time.Time { return now }

	mux := http.NewServeMux()
	Register(mux, NewPublicHandler(svc, logger), host, nil, auth.NewVerifier(testSecret, nil, "").Require)
	return &testEnv{store: store, host: host, mux: mux}
}

func (e *testEnv) do(t *testing.T, method, path, subject string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if subject != "" {
		tok, err := auth.SignHS256(testSecret, subject, time.Hour, auth.Claims{})
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func bookBody(start string) map[string]any {
	return map[string]any{
		"invitee_name":  "Grace",
		"invitee_email": "grace@example.com",
		"date":          "2025-03-10",
		"start_time":    start,
		"timezone":      "UTC",
		"answers":       map[string]string{"Topic": "Roadmap"},
	}
}

func TestPublicBookingFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/public/intro", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("event type: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	et := decode[publicEventTypeResponse](t, rec)
	if et.HostName != "Ada" || et.HostTimezone != "UTC" || len(et.Questions) != 1 {
		t.Fatalf("unexpected event type: %+v", et)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/public/intro/available-slots?date=2025-03-10", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("slots: expected 200, got %d", rec.Code)
	}
	if got := len(decode[slotsResponse](t, rec).Slots); got != 6 {
		t.Fatalf("expected 6 slots, got %d", got)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/public/intro/book", "", bookBody("09:30"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	b := decode[bookingResponse](t, rec)
	if b.StartTime != "09:30" || b.EndTime != "10:00" || b.Status != "scheduled" {
		t.Fatalf("unexpected booking: %+v", b)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/public/intro/available-slots?date=2025-03-10", "", nil)
	for _, s := range decode[slotsResponse](t, rec).Slots {
		if s.Start.String() == "09:30" {
			t.Fatalf("booked slot still listed")
		}
	}

	rec = env.do(t, http.MethodPost, "/api/v1/public/intro/book", "", bookBody("09:30"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("rebook: expected 409, got %d", rec.Code)
	}
}

func TestPublicErrors(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown slug", http.MethodGet, "/api/v1/public/nope", nil, http.StatusNotFound},
		{"slots unknown slug", http.MethodGet, "/api/v1/public/nope/available-slots?date=2025-03-10", nil, http.StatusNotFound},
		{"missing date", http.MethodGet, "/api/v1/public/intro/available-slots", nil, http.StatusBadRequest},
		{"bad date", http.MethodGet, "/api/v1/public/intro/available-slots?date=2025-02-30", nil, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/v1/public/intro/book", nil, http.StatusBadRequest},
		{"outside hours", http.MethodPost, "/api/v1/public/intro/book", bookBody("13:00"), http.StatusBadRequest},
		{"bad start", http.MethodPost, "/api/v1/public/intro/book", bookBody("9am"), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, tc.method, tc.path, "", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
			if _, ok := decode[map[string]string](t, rec)["error"]; !ok {
				t.Fatalf("expected error body, got %s", rec.Body.String())
			}
		})
	}

	rec := env.do(t, http.MethodGet, "/api/v1/public/intro/available-slots?date=2025-02-24", "", nil)
	if rec.Code != http.StatusOK || len(decode[slotsResponse](t, rec).Slots) != 0 {
		t.Fatalf("past date: expected 200 with no slots, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBookRejectsInvalidInvitee(t *testing.T) {
	env := newTestEnv(t)

	mutate := map[string]func(map[string]any){
		"bad email":       func(b map[string]any) { b["invitee_email"] = "not-an-email" },
		"no timezone":     func(b map[string]any) { delete(b, "timezone") },
		"bad timezone":    func(b map[string]any) { b["timezone"] = "Mars/Olympus" },
		"missing answer":  func(b map[string]any) { delete(b, "answers") },
		"past date":       func(b map[string]any) { b["date"] = "2025-02-24" },
		"no invitee name": func(b map[string]any) { b["invitee_name"] = "  " },
	}
	for name, fn := range mutate {
		t.Run(name, func(t *testing.T) {
			body := bookBody("10:00")
			fn(body)
			rec := env.do(t, http.MethodPost, "/api/v1/public/intro/book", "", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHostRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/host/profile", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHostProfileAndAvailability(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/host/profile", "host-9", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing profile: expected 404, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPut, "/api/v1/host/profile", "host-9", map[string]string{"name": "Lin", "email": "lin@example.com"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("no timezone: expected 400, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPut, "/api/v1/host/profile", "host-9", map[string]string{"name": "Lin", "email": "lin@example.com", "timezone": "Asia/Tokyo"})
	if rec.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if p := decode[profileResponse](t, rec); p.ID != "host-9" || p.Timezone != "Asia/Tokyo" {
		t.Fatalf("unexpected profile: %+v", p)
	}

	bad := map[string]any{"availability": []map[string]any{{"day_of_week": 1, "start_time": "12:00", "end_time": "09:00"}}}
	rec = env.do(t, http.MethodPut, "/api/v1/host/availability", "host-9", bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted rule: expected 400, got %d", rec.Code)
	}
	bad = map[string]any{"availability": []map[string]any{{"day_of_week": 7, "start_time": "09:00", "end_time": "12:00"}}}
	rec = env.do(t, http.MethodPut, "/api/v1/host/availability", "host-9", bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad weekday: expected 400, got %d", rec.Code)
	}

	good := map[string]any{"availability": []map[string]any{
		{"day_of_week": 3, "start_time": "13:00", "end_time": "17:00"},
		{"day_of_week": 1, "start_time": "09:00", "end_time": "12:00"},
	}}
	rec = env.do(t, http.MethodPut, "/api/v1/host/availability", "host-9", good)
	if rec.Code != http.StatusOK {
		t.Fatalf("availability: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodGet, "/api/v1/host/availability", "host-9", nil)
	rules := decode[[]ruleDTO](t, rec)
	if len(rules) != 2 || rules[0].DayOfWeek != 1 || rules[0].StartTime != "09:00" {
		t.Fatalf("unexpected rules: %+v", rules)
	}
}

func TestHostEventTypes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/host/event-types", "host-1", map[string]any{
		"name": "Quick", "duration_minutes": 4, "slug": "quick",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("short duration: expected 400, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/v1/host/event-types", "host-1", map[string]any{
		"name": "Marathon", "duration_minutes": 2_000_000_000, "slug": "marathon",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized duration: expected 400, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/host/event-types", "host-1", map[string]any{
		"name": " Deep dive ", "duration_minutes": 60, "slug": " deep-dive ",
		"questions": []map[string]any{
			{"question": "Agenda", "type": "textarea", "required": true},
			{"question": "", "type": "text"},
			{"question": "No type"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[eventTypeResponse](t, rec)
	if created.Name != "Deep dive" || created.Slug != "deep-dive" || len(created.Questions) != 1 {
		t.Fatalf("unexpected event type: %+v", created)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/host/event-types", "host-1", map[string]any{
		"name": "Copy", "duration_minutes": 15, "slug": "intro",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate slug: expected 409, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/v1/host/event-types", "host-1", map[string]any{
		"name": "Spaces", "duration_minutes": 15, "slug": "a b",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad slug: expected 400, got %d", rec.Code)
	}

	path := "/api/v1/host/event-types/" + created.ID
	rec = env.do(t, http.MethodPut, path, "host-1", map[string]any{"name": "Deeper dive"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if u := decode[eventTypeResponse](t, rec); u.Name != "Deeper dive" || u.DurationMinutes != 60 || u.Slug != "deep-dive" {
		t.Fatalf("partial update lost fields: %+v", u)
	}
	rec = env.do(t, http.MethodPut, path, "host-2", map[string]any{"name": "Stolen"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign update: expected 404, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/host/event-types", "host-1", nil)
	if got := len(decode[[]eventTypeResponse](t, rec)); got != 2 {
		t.Fatalf("expected 2 event types, got %d", got)
	}

	rec = env.do(t, http.MethodDelete, path, "host-2", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete: expected 404, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, path, "host-1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
}

func TestHostMeetingsAndCancel(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/public/intro/book", "", bookBody("10:00"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	booked := decode[bookingResponse](t, rec)

	rec = env.do(t, http.MethodGet, "/api/v1/host/meetings/upcoming", "host-1", nil)
	upcoming := decode[[]meetingResponse](t, rec)
	if len(upcoming) != 1 || upcoming[0].ID != booked.ID || upcoming[0].EventTypeSlug != "intro" {
		t.Fatalf("unexpected upcoming: %+v", upcoming)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/host/meetings/upcoming?limit=0", "host-1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: expected 400, got %d", rec.Code)
	}

	cancel := fmt.Sprintf("/api/v1/host/meetings/%s/cancel", booked.ID)
	rec = env.do(t, http.MethodPost, cancel, "host-1", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("cancel via POST: expected 405, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPut, cancel, "host-2", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign cancel: expected 404, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPut, cancel, "host-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if c := decode[bookingResponse](t, rec); c.Status != "cancelled" || c.CancelledAt == "" {
		t.Fatalf("unexpected cancel response: %+v", c)
	}
	rec = env.do(t, http.MethodPut, cancel, "host-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second cancel: expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/host/meetings/upcoming", "host-1", nil)
	if got := len(decode[[]meetingResponse](t, rec)); got != 0 {
		t.Fatalf("expected no upcoming meetings, got %d", got)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/host/meetings/past", "host-1", nil)
	past := decode[[]meetingResponse](t, rec)
	if len(past) != 1 || past[0].Status != "cancelled" {
		t.Fatalf("unexpected past: %+v", past)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/host/meetings/upcoming", "host-unknown", nil)
	if rec.Code != http.StatusOK || len(decode[[]meetingResponse](t, rec)) != 0 {
		t.Fatalf("host without profile: expected empty list, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestWriteServiceError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cases := []struct {
		err  error
		want int
		msg  string
	}{
		{fmt.Errorf("%w: name is required", model.ErrValidation), http.StatusBadRequest, "name is required"},
		{model.ErrPastDate, http.StatusBadRequest, model.ErrPastDate.Error()},
		{model.ErrNotFound, http.StatusNotFound, model.ErrNotFound.Error()},
		{fmt.Errorf("%w: overlaps", model.ErrConflict), http.StatusConflict, "time slot is already booked: overlaps"},
		{fmt.Errorf("commit: %w", model.ErrTransient), http.StatusServiceUnavailable, model.ErrTransient.Error()},
		{errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), logger, tc.err)
		if rec.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, rec.Code)
		}
		if got := decode[map[string]string](t, rec)["error"]; got != tc.msg {
			t.Fatalf("%v: expected message %q, got %q", tc.err, tc.msg, got)
		}
		if tc.want == http.StatusServiceUnavailable && rec.Header().Get("Retry-After") == "" {
			t.Fatalf("expected Retry-After on 503")
		}
	}
}
