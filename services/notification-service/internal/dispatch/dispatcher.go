package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/md-rashed-zaman/meethub/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/meethub/services/notification-service/internal/storage"
)

type Recorder interface {
	Insert(ctx context.Context, n storage.Notification) error
}

// Dispatcher turns meeting events into emails. Delivery failures are recorded
// and logged but never fail the event; only a failure to record does.
type Dispatcher struct {
	sender email.Sender
	store  Recorder
	logger *slog.Logger
}

func New(sender email.Sender, store Recorder, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, store: store, logger: logger}
}

func (d *Dispatcher) Handle(ctx context.Context, eventID, eventType string, body []byte) error {
	var evt MeetingEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		d.logger.Error("invalid meeting payload", "err", err, "event_id", eventID, "event_type", eventType)
		return nil
	}
	if err := evt.validate(); err != nil {
		d.logger.Error("incomplete meeting payload", "err", err, "event_id", eventID, "event_type", eventType)
		return nil
	}
	msgs, err := messagesFor(eventType, evt)
	if err != nil {
		d.logger.Warn("event ignored", "err", err, "event_id", eventID)
		return nil
	}
	if evt.HostEmail == "" {
		d.logger.Info("host has no email; host message skipped", "booking_id", evt.BookingID, "host_id", evt.HostID)
	}

	for _, out := range msgs {
		status, reason := storage.StatusSent, ""
		if err := d.sender.Send(out.msg); err != nil {
			status, reason = storage.StatusFailed, err.Error()
			d.logger.Error("email send failed", "err", err, "booking_id", evt.BookingID, "role", out.role)
		}
		if err := d.store.Insert(ctx, storage.Notification{
			EventID:   eventID,
			EventType: eventType,
			BookingID: evt.BookingID,
			Role:      out.role,
			Recipient: out.msg.To,
			Subject:   out.msg.Subject,
			Status:    status,
			Error:     reason,
		}); err != nil {
			return err
		}
	}

	d.logger.Info("meeting event processed", "booking_id", evt.BookingID, "event_type", eventType, "messages", len(msgs))
	return nil
}
