package email

import (
	"strings"
	"testing"
	"time"
)

func TestBuildMessageHeaders(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	raw := buildMessage("no-reply@meethub.local", Message{
		FromName: "Ada Lovelace",
		To:       "grace@example.com",
		Subject:  "Meeting Confirmed: Intro",
		Body:     "line one\nline two",
	}, now)

	head, body, ok := strings.Cut(raw, "\r\n\r\n")
	if !ok {
		t.Fatalf("missing header/body separator:\n%q", raw)
	}
	for _, want := range []string{
		"From: Ada Lovelace <no-reply@meethub.local>",
		"To: grace@example.com",
		"Subject: Meeting Confirmed: Intro",
		"Content-Type: text/plain; charset=utf-8",
	} {
		if !strings.Contains(head, want) {
			t.Fatalf("expected header %q in:\n%s", want, head)
		}
	}
	if body != "line one\r\nline two\r\n" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestBuildMessageEncodesNonASCIISubject(t *testing.T) {
	raw := buildMessage("a@b.c", Message{To: "x@y.z", Subject: "Réunion"}, time.Now())
	if !strings.Contains(raw, "Subject: =?utf-8?q?") {
		t.Fatalf("expected encoded subject, got %q", raw)
	}
}

func TestSendRejectsEmptyRecipient(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: "1025"})
	if err := s.Send(Message{Subject: "x"}); err == nil {
		t.Fatalf("expected error for empty recipient")
	}
}
