package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/meethub/libs/httpx"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/model"
)

// PublicHandler serves the unauthenticated booking pages.
type PublicHandler struct {
	svc    *booking.Service
	logger *slog.Logger
}

func NewPublicHandler(svc *booking.Service, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{svc: svc, logger: logger}
}

type publicEventTypeResponse struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	DurationMinutes int           `json:"duration_minutes"`
	Slug            string        `json:"slug"`
	Description     string        `json:"description"`
	Questions       []questionDTO `json:"questions"`
	HostName        string        `json:"host_name"`
	HostTimezone    string        `json:"host_timezone"`
}

type slotsResponse struct {
	Slots []availability.Slot `json:"slots"`
}

type bookRequest struct {
	InviteeName   string            `json:"invitee_name"`
	InviteeEmail  string            `json:"invitee_email"`
	Date          string            `json:"date"`
	StartTime     string            `json:"start_time"`
	Timezone      string            `json:"timezone"`
	Answers       map[string]string `json:"answers"`
	MessageToHost string            `json:"message_to_host"`
}

func (h *PublicHandler) EventType(w http.ResponseWriter, r *http.Request) {
	et, host, err := h.svc.EventType(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, publicEventTypeResponse{
		ID:              et.ID,
		Name:            et.Name,
		DurationMinutes: et.DurationMinutes,
		Slug:            et.Slug,
		Description:     et.Description,
		Questions:       questionsFromModel(et.Questions),
		HostName:        host.Name,
		HostTimezone:    host.Timezone,
	})
}

func (h *PublicHandler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		httpx.WriteError(w, http.StatusBadRequest, "date parameter is required")
		return
	}
	date, err := model.ParseDate(raw)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
		return
	}

	slots, err := h.svc.AvailableSlots(r.Context(), r.PathValue("slug"), date)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slotsResponse{Slots: slots})
}

func (h *PublicHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	start, err := model.ParseLocalTime(req.StartTime)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	b, err := h.svc.Attempt(r.Context(), booking.Request{
		Slug:          r.PathValue("slug"),
		Date:          date,
		Start:         start,
		InviteeName:   req.InviteeName,
		InviteeEmail:  req.InviteeEmail,
		Timezone:      req.Timezone,
		Answers:       req.Answers,
		MessageToHost: req.MessageToHost,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, bookingFromModel(b))
}
