package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/md-rashed-zaman/meethub/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/meethub/services/notification-service/internal/storage"
)

type fakeSender struct {
	sent   []email.Message
	failTo string
}

func (f *fakeSender) Send(msg email.Message) error {
	if msg.To == f.failTo {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeRecorder struct {
	rows []storage.Notification
	err  error
}

func (f *fakeRecorder) Insert(_ context.Context, n storage.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, n)
	return nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func sampleEvent() MeetingEvent {
	return MeetingEvent{
		BookingID:       "b-1",
		Status:          "scheduled",
		EventName:       "Intro call",
		DurationMinutes: 30,
		HostID:          "host-1",
		HostName:        "Ada",
		HostEmail:       "ada@example.com",
		InviteeName:     "Grace",
		InviteeEmail:    "grace@example.com",
		Date:            "2025-03-10",
		StartTime:       "09:30",
		EndTime:         "10:00",
		Timezone:        "Europe/Berlin",
		Answers:         map[string]string{"Topic": "Roadmap", "Company": "Acme"},
		MessageToHost:   "See you then",
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestScheduledSendsInviteeAndHostEmails(t *testing.T) {
	sender := &fakeSender{}
	rec := &fakeRecorder{}
	d := New(sender, rec, discard())

	if err := d.Handle(context.Background(), "evt-1", EventMeetingScheduled, mustJSON(t, sampleEvent())); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(sender.sent))
	}
	invitee, host := sender.sent[0], sender.sent[1]
	if invitee.To != "grace@example.com" || invitee.Subject != "Meeting Confirmed: Intro call with Ada" {
		t.Fatalf("unexpected invitee email: %+v", invitee)
	}
	if !strings.Contains(invitee.Body, "Monday, March 10, 2025") || !strings.Contains(invitee.Body, "9:30 AM - 10:00 AM") {
		t.Fatalf("invitee body missing date or time:\n%s", invitee.Body)
	}
	if host.To != "ada@example.com" || !strings.Contains(host.Body, "Company: Acme\nTopic: Roadmap") || !strings.Contains(host.Body, "See you then") {
		t.Fatalf("unexpected host email:\n%s", host.Body)
	}
	if len(rec.rows) != 2 || rec.rows[0].Role != RoleInvitee || rec.rows[1].Role != RoleHost || rec.rows[0].Status != storage.StatusSent {
		t.Fatalf("unexpected notification rows: %+v", rec.rows)
	}
}

func TestCancelledSkipsHostWithoutEmail(t *testing.T) {
	sender := &fakeSender{}
	rec := &fakeRecorder{}
	d := New(sender, rec, discard())

	evt := sampleEvent()
	evt.Status = "cancelled"
	evt.HostEmail = ""
	if err := d.Handle(context.Background(), "evt-2", EventMeetingCancelled, mustJSON(t, evt)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].Subject != "Meeting Cancelled: Intro call" {
		t.Fatalf("unexpected emails: %+v", sender.sent)
	}
}

func TestSendFailureIsRecordedNotReturned(t *testing.T) {
	sender := &fakeSender{failTo: "grace@example.com"}
	rec := &fakeRecorder{}
	d := New(sender, rec, discard())

	if err := d.Handle(context.Background(), "evt-3", EventMeetingScheduled, mustJSON(t, sampleEvent())); err != nil {
		t.Fatalf("expected send failure to be swallowed, got %v", err)
	}
	if rec.rows[0].Status != storage.StatusFailed || rec.rows[0].Error != "smtp down" {
		t.Fatalf("expected failed row, got %+v", rec.rows[0])
	}
	if rec.rows[1].Status != storage.StatusSent {
		t.Fatalf("host email should still be sent, got %+v", rec.rows[1])
	}
}

func TestBadPayloadsAreDropped(t *testing.T) {
	sender := &fakeSender{}
	d := New(sender, &fakeRecorder{}, discard())

	incomplete := sampleEvent()
	incomplete.BookingID = ""
	for name, tc := range map[string]struct {
		eventType string
		body      []byte
	}{
		"not json":     {EventMeetingScheduled, []byte("{")},
		"incomplete":   {EventMeetingScheduled, mustJSON(t, incomplete)},
		"unknown type": {"booking.meeting.moved.v1", mustJSON(t, sampleEvent())},
	} {
		if err := d.Handle(context.Background(), "evt", tc.eventType, tc.body); err != nil {
			t.Fatalf("%s: expected nil, got %v", name, err)
		}
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no emails, got %d", len(sender.sent))
	}
}

func TestRecordFailureIsReturned(t *testing.T) {
	d := New(&fakeSender{}, &fakeRecorder{err: errors.New("db down")}, discard())
	if err := d.Handle(context.Background(), "evt-4", EventMeetingScheduled, mustJSON(t, sampleEvent())); err == nil {
		t.Fatalf("expected error when the notification cannot be recorded")
	}
}

func TestFormatting(t *testing.T) {
	cases := []struct{ got, want string }{
		{formatDate("2025-03-10"), "Monday, March 10, 2025"},
		{formatDate("garbage"), "garbage"},
		{formatTime("00:05"), "12:05 AM"},
		{formatTime("13:45"), "1:45 PM"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, tc.got)
		}
	}
}
