package booking

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/outbox"
)

const (
	EventMeetingScheduled = "booking.meeting.scheduled.v1"
	EventMeetingCancelled = "booking.meeting.cancelled.v1"
)

// MeetingEvent is the payload of both meeting events. It carries everything
// the notification service needs to write both emails without calling back.
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

func meetingEvent(eventType string, b model.Booking, et model.EventType, host model.Host, at time.Time) (outbox.Event, error) {
	payload, err := json.Marshal(MeetingEvent{
		BookingID:       b.ID,
		Status:          string(b.Status),
		EventTypeID:     et.ID,
		EventName:       et.Name,
		DurationMinutes: et.DurationMinutes,
		HostID:          host.ID,
		HostName:        host.Name,
		HostEmail:       host.Email,
		InviteeName:     b.InviteeName,
		InviteeEmail:    b.InviteeEmail,
		Date:            b.Date.String(),
		StartTime:       b.Start.String(),
		EndTime:         b.End.String(),
		Timezone:        b.Timezone,
		Answers:         b.Answers,
		MessageToHost:   b.MessageToHost,
		OccurredAt:      at.UTC(),
	})
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		EventID:       uuid.NewString(),
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
