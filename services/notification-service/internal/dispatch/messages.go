package dispatch

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/md-rashed-zaman/meethub/services/notification-service/internal/email"
)

const (
	EventMeetingScheduled = "booking.meeting.scheduled.v1"
	EventMeetingCancelled = "booking.meeting.cancelled.v1"
)

// Topics lists every event type this service reacts to.
var Topics = []string{EventMeetingScheduled, EventMeetingCancelled}

// MeetingEvent mirrors the payload the scheduling service writes to its outbox.
type MeetingEvent struct {
	BookingID       string            `json:"booking_id"`
	Status          string            `json:"status"`
	EventTypeID     string            `json:"event_type_id"`
	EventName       string            `json:"event_name"`
	DurationMinutes int               `json:"duration_minutes"`
	HostID          string            `json:"host_id"`
	HostName        string            `json:"host_name"`
	HostEmail       string            `json:"host_email"`
	InviteeName     string            `json:"invitee_name"`
	InviteeEmail    string            `json:"invitee_email"`
	Date            string            `json:"date"`
	StartTime       string            `json:"start_time"`
	EndTime         string            `json:"end_time"`
	Timezone        string            `json:"timezone"`
	Answers         map[string]string `json:"answers,omitempty"`
	MessageToHost   string            `json:"message_to_host,omitempty"`
	OccurredAt      time.Time         `json:"occurred_at"`
}

func (e MeetingEvent) validate() error {
	switch {
	case e.BookingID == "":
		return fmt.Errorf("missing booking_id")
	case e.InviteeEmail == "":
		return fmt.Errorf("missing invitee_email")
	case e.Date == "" || e.StartTime == "":
		return fmt.Errorf("missing date or start_time")
	}
	return nil
}

// Recipient roles.
const (
	RoleInvitee = "invitee"
	RoleHost    = "host"
)

type outgoing struct {
	role string
	msg  email.Message
}

// messagesFor builds the emails one event produces. Host messages are skipped
// when the host profile has no email.
func messagesFor(eventType string, e MeetingEvent) ([]outgoing, error) {
	var out []outgoing
	switch eventType {
	case EventMeetingScheduled:
		out = append(out, outgoing{RoleInvitee, inviteeConfirmation(e)})
		if e.HostEmail != "" {
			out = append(out, outgoing{RoleHost, hostNotification(e)})
		}
	case EventMeetingCancelled:
		out = append(out, outgoing{RoleInvitee, inviteeCancellation(e)})
		if e.HostEmail != "" {
			out = append(out, outgoing{RoleHost, hostCancellation(e)})
		}
	default:
		return nil, fmt.Errorf("unsupported event type %q", eventType)
	}
	return out, nil
}

func inviteeConfirmation(e MeetingEvent) email.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", e.InviteeName)
	b.WriteString("Your meeting has been successfully scheduled.\n\n")
	fmt.Fprintf(&b, "Event: %s\n", e.EventName)
	fmt.Fprintf(&b, "Host: %s\n", e.HostName)
	writeWhen(&b, e)
	b.WriteString("\nWe look forward to meeting with you!\n")
	return email.Message{
		FromName: e.HostName,
		To:       e.InviteeEmail,
		Subject:  fmt.Sprintf("Meeting Confirmed: %s with %s", e.EventName, e.HostName),
		Body:     b.String(),
	}
}

func hostNotification(e MeetingEvent) email.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "You have a new meeting scheduled for your event type %q.\n\n", e.EventName)
	fmt.Fprintf(&b, "Invitee: %s (%s)\n", e.InviteeName, e.InviteeEmail)
	writeWhen(&b, e)
	if len(e.Answers) > 0 {
		b.WriteString("\nInvitee information:\n")
		for _, q := range slices.Sorted(maps.Keys(e.Answers)) {
			fmt.Fprintf(&b, "%s: %s\n", q, e.Answers[q])
		}
	}
	if msg := strings.TrimSpace(e.MessageToHost); msg != "" {
		fmt.Fprintf(&b, "\nMessage from invitee:\n%s\n", msg)
	}
	b.WriteString("\nPlease make sure to add this to your calendar!\n")
	return email.Message{
		FromName: "MeetHub",
		To:       e.HostEmail,
		Subject:  fmt.Sprintf("New Meeting Scheduled: %s - %s", e.EventName, e.InviteeName),
		Body:     b.String(),
	}
}

func inviteeCancellation(e MeetingEvent) email.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", e.InviteeName)
	fmt.Fprintf(&b, "Unfortunately, your meeting scheduled for %s at %s has been cancelled.\n", formatDate(e.Date), formatTime(e.StartTime))
	fmt.Fprintf(&b, "Event: %s with %s\n\n", e.EventName, e.HostName)
	b.WriteString("We apologize for any inconvenience. Please feel free to schedule a new meeting if needed.\n")
	return email.Message{
		FromName: e.HostName,
		To:       e.InviteeEmail,
		Subject:  fmt.Sprintf("Meeting Cancelled: %s", e.EventName),
		Body:     b.String(),
	}
}

func hostCancellation(e MeetingEvent) email.Message {
	var b strings.Builder
	b.WriteString("The following meeting has been cancelled:\n\n")
	fmt.Fprintf(&b, "Event: %s\n", e.EventName)
	fmt.Fprintf(&b, "Invitee: %s\n", e.InviteeName)
	fmt.Fprintf(&b, "Date: %s\n", formatDate(e.Date))
	fmt.Fprintf(&b, "Time: %s\n", formatTime(e.StartTime))
	return email.Message{
		FromName: "MeetHub",
		To:       e.HostEmail,
		Subject:  fmt.Sprintf("Meeting Cancelled: %s - %s", e.EventName, e.InviteeName),
		Body:     b.String(),
	}
}

func writeWhen(b *strings.Builder, e MeetingEvent) {
	fmt.Fprintf(b, "Date: %s\n", formatDate(e.Date))
	fmt.Fprintf(b, "Time: %s - %s", formatTime(e.StartTime), formatTime(e.EndTime))
	if e.Timezone != "" {
		fmt.Fprintf(b, " (%s)", e.Timezone)
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "Duration: %d minutes\n", e.DurationMinutes)
}

// formatDate renders YYYY-MM-DD as "Monday, March 10, 2025". Unparseable
// input is returned unchanged.
func formatDate(s string) string {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return d.Format("Monday, January 2, 2006")
}

// formatTime renders HH:mm on a 12-hour clock, e.g. "9:30 AM".
func formatTime(s string) string {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return s
	}
	return t.Format("3:04 PM")
}
