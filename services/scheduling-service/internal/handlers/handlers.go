package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/meethub/libs/httpx"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/model"
)

const retryAfterSeconds = "1"

// writeServiceError maps core errors to HTTP statuses. Anything unclassified is
// logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrPastDate),
		errors.Is(err, model.ErrOutOfHours):
		httpx.WriteError(w, http.StatusBadRequest, message(err))
	case errors.Is(err, model.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, message(err))
	case errors.Is(err, model.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, message(err))
	case errors.Is(err, model.ErrTransient):
		w.Header().Set("Retry-After", retryAfterSeconds)
		httpx.WriteError(w, http.StatusServiceUnavailable, model.ErrTransient.Error())
	default:
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"err", err,
		)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

// message drops the sentinel prefix from wrapped validation errors so clients
// see only the detail.
func message(err error) string {
	msg := err.Error()
	if _, detail, ok := strings.Cut(msg, model.ErrValidation.Error()+": "); ok && detail != "" {
		return detail
	}
	return msg
}

type questionDTO struct {
	Question    string `json:"question"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Placeholder string `json:"placeholder,omitempty"`
}

func questionsFromModel(qs []model.Question) []questionDTO {
	out := make([]questionDTO, 0, len(qs))
	for _, q := range qs {
		out = append(out, questionDTO{Question: q.Prompt, Type: q.Kind, Required: q.Required, Placeholder: q.Placeholder})
	}
	return out
}

// questionsToModel keeps only entries that carry both a prompt and a type.
func questionsToModel(qs []questionDTO) []model.Question {
	var out []model.Question
	for _, q := range qs {
		prompt, kind := strings.TrimSpace(q.Question), strings.TrimSpace(q.Type)
		if prompt == "" || kind == "" {
			continue
		}
		out = append(out, model.Question{Prompt: prompt, Kind: kind, Required: q.Required, Placeholder: strings.TrimSpace(q.Placeholder)})
	}
	return out
}

type bookingResponse struct {
	ID            string            `json:"id"`
	EventTypeID   string            `json:"event_type_id"`
	InviteeName   string            `json:"invitee_name"`
	InviteeEmail  string            `json:"invitee_email"`
	Date          string            `json:"date"`
	StartTime     string            `json:"start_time"`
	EndTime       string            `json:"end_time"`
	Timezone      string            `json:"timezone"`
	Status        string            `json:"status"`
	Answers       map[string]string `json:"answers,omitempty"`
	MessageToHost string            `json:"message_to_host,omitempty"`
	CreatedAt     string            `json:"created_at"`
	CancelledAt   string            `json:"cancelled_at,omitempty"`
}

func bookingFromModel(b model.Booking) bookingResponse {
	resp := bookingResponse{
		ID:            b.ID,
		EventTypeID:   b.EventTypeID,
		InviteeName:   b.InviteeName,
		InviteeEmail:  b.InviteeEmail,
		Date:          b.Date.String(),
		StartTime:     b.Start.String(),
		EndTime:       b.End.String(),
		Timezone:      b.Timezone,
		Status:        string(b.Status),
		Answers:       b.Answers,
		MessageToHost: b.MessageToHost,
		CreatedAt:     b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.CancelledAt != nil {
		resp.CancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
	}
	return resp
}

type meetingResponse struct {
	bookingResponse
	EventTypeName   string `json:"event_type_name"`
	EventTypeSlug   string `json:"event_type_slug"`
	DurationMinutes int    `json:"duration_minutes"`
}

type eventTypeResponse struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	DurationMinutes int           `json:"duration_minutes"`
	Slug            string        `json:"slug"`
	Description     string        `json:"description"`
	Questions       []questionDTO `json:"questions"`
	CreatedAt       string        `json:"created_at"`
	UpdatedAt       string        `json:"updated_at"`
}

func eventTypeFromModel(et model.EventType) eventTypeResponse {
	return eventTypeResponse{
		ID:              et.ID,
		Name:            et.Name,
		DurationMinutes: et.DurationMinutes,
		Slug:            et.Slug,
		Description:     et.Description,
		Questions:       questionsFromModel(et.Questions),
		CreatedAt:       et.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       et.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
