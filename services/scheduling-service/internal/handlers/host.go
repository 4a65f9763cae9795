package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/meethub/libs/auth"
	"github.com/md-rashed-zaman/meethub/libs/httpx"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/storage"
)

const (
	maxSlugLength       = 100
	maxMeetingListLimit = 500
)

// HostStore is the host-facing slice of the scheduling store. Both the
// Postgres repository and the in-memory store satisfy it.
type HostStore interface {
	Host(ctx context.Context, hostID string) (model.Host, error)
	UpsertHost(ctx context.Context, h model.Host) (model.Host, error)
	ListRules(ctx context.Context, hostID string) ([]model.WeeklyRule, error)
	ReplaceRules(ctx context.Context, hostID string, rules []model.WeeklyRule) ([]model.WeeklyRule, error)
	EventTypeByID(ctx context.Context, id string) (model.EventType, error)
	ListEventTypes(ctx context.Context, hostID string) ([]model.EventType, error)
	CreateEventType(ctx context.Context, et model.EventType) (model.EventType, error)
	UpdateEventType(ctx context.Context, et model.EventType) (model.EventType, error)
	DeleteEventType(ctx context.Context, hostID, id string) error
	ListMeetings(ctx context.Context, hostID string, f storage.MeetingFilter) ([]model.Meeting, error)
}

// HostHandler serves the authenticated host dashboard. The bearer token's
// subject is the host id.
type HostHandler struct {
	store  HostStore
	svc    *booking.Service
	logger *slog.Logger
	now    func() time.Time
}

func NewHostHandler(store HostStore, svc *booking.Service, logger *slog.Logger) *HostHandler {
	return &HostHandler{store: store, svc: svc, logger: logger, now: time.Now}
}

type profileRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Timezone string `json:"timezone"`
}

type profileResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Timezone  string `json:"timezone"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ruleDTO struct {
	ID        string `json:"id,omitempty"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type availabilityRequest struct {
	Availability []ruleDTO `json:"availability"`
}

type eventTypeRequest struct {
	Name            *string        `json:"name"`
	DurationMinutes *int           `json:"duration_minutes"`
	Slug            *string        `json:"slug"`
	Description     *string        `json:"description"`
	Questions       *[]questionDTO `json:"questions"`
}

func hostID(r *http.Request) string {
	return auth.SubjectFromContext(r.Context())
}

func (h *HostHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	host, err := h.store.Host(r.Context(), hostID(r))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "host profile not set up")
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profileFromModel(host))
}

func (h *HostHandler) PutProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Timezone = strings.TrimSpace(req.Timezone)
	if req.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		httpx.WriteError(w, http.StatusBadRequest, "email is not a valid address")
		return
	}
	if _, err := model.LoadTimezone(req.Timezone); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	host, err := h.store.UpsertHost(r.Context(), model.Host{
		ID:       hostID(r),
		Name:     req.Name,
		Email:    req.Email,
		Timezone: req.Timezone,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profileFromModel(host))
}

func profileFromModel(host model.Host) profileResponse {
	return profileResponse{
		ID:        host.ID,
		Name:      host.Name,
		Email:     host.Email,
		Timezone:  host.Timezone,
		CreatedAt: host.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: host.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *HostHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	rules, err := h.store.ListRules(r.Context(), hostID(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rulesFromModel(rules))
}

// PutAvailability replaces the host's whole weekly schedule.
func (h *HostHandler) PutAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Availability == nil {
		httpx.WriteError(w, http.StatusBadRequest, "availability must be an array")
		return
	}

	rules := make([]model.WeeklyRule, 0, len(req.Availability))
	for i, item := range req.Availability {
		rule, err := ruleToModel(item)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("availability[%d]: %s", i, message(err)))
			return
		}
		rules = append(rules, rule)
	}

	saved, err := h.store.ReplaceRules(r.Context(), hostID(r), rules)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("availability replaced", "host_id", hostID(r), "rules", len(saved))
	httpx.WriteJSON(w, http.StatusOK, rulesFromModel(saved))
}

func ruleToModel(item ruleDTO) (model.WeeklyRule, error) {
	start, err := model.ParseLocalTime(item.StartTime)
	if err != nil {
		return model.WeeklyRule{}, err
	}
	end, err := model.ParseLocalTime(item.EndTime)
	if err != nil {
		return model.WeeklyRule{}, err
	}
	rule := model.WeeklyRule{DayOfWeek: time.Weekday(item.DayOfWeek), Start: start, End: end}
	return rule, rule.Validate()
}

func rulesFromModel(rules []model.WeeklyRule) []ruleDTO {
	out := make([]ruleDTO, 0, len(rules))
	for _, rule := range rules {
		out = append(out, ruleDTO{
			ID:        rule.ID,
			DayOfWeek: int(rule.DayOfWeek),
			StartTime: rule.Start.String(),
			EndTime:   rule.End.String(),
		})
	}
	return out
}

func (h *HostHandler) ListEventTypes(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListEventTypes(r.Context(), hostID(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	out := make([]eventTypeResponse, 0, len(items))
	for _, et := range items {
		out = append(out, eventTypeFromModel(et))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *HostHandler) CreateEventType(w http.ResponseWriter, r *http.Request) {
	var req eventTypeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == nil || req.DurationMinutes == nil || req.Slug == nil {
		httpx.WriteError(w, http.StatusBadRequest, "name, duration_minutes and slug are required")
		return
	}

	et := model.EventType{HostID: hostID(r)}
	if err := req.apply(&et); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	created, err := h.store.CreateEventType(r.Context(), et)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("event type created", "host_id", et.HostID, "event_type_id", created.ID, "slug", created.Slug)
	httpx.WriteJSON(w, http.StatusCreated, eventTypeFromModel(created))
}

// UpdateEventType applies the fields present in the body and keeps the rest.
func (h *HostHandler) UpdateEventType(w http.ResponseWriter, r *http.Request) {
	var req eventTypeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	et, err := h.ownedEventType(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if err := req.apply(&et); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	updated, err := h.store.UpdateEventType(r.Context(), et)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, eventTypeFromModel(updated))
}

func (h *HostHandler) DeleteEventType(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.DeleteEventType(r.Context(), hostID(r), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("event type deleted", "host_id", hostID(r), "event_type_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ownedEventType loads the path's event type, hiding other hosts' rows.
func (h *HostHandler) ownedEventType(r *http.Request) (model.EventType, error) {
	et, err := h.store.EventTypeByID(r.Context(), r.PathValue("id"))
	if err != nil {
		return model.EventType{}, err
	}
	if et.HostID != hostID(r) {
		return model.EventType{}, model.ErrNotFound
	}
	return et, nil
}

func (req eventTypeRequest) apply(et *model.EventType) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return fmt.Errorf("%w: name is required", model.ErrValidation)
		}
		et.Name = name
	}
	if req.DurationMinutes != nil {
		if d := *req.DurationMinutes; d < model.MinDurationMinutes || d > model.MaxDurationMinutes {
			return fmt.Errorf("%w: duration must be between %d and %d minutes", model.ErrValidation, model.MinDurationMinutes, model.MaxDurationMinutes)
		}
		et.DurationMinutes = *req.DurationMinutes
	}
	if req.Slug != nil {
		slug, err := normalizeSlug(*req.Slug)
		if err != nil {
			return err
		}
		et.Slug = slug
	}
	if req.Description != nil {
		et.Description = strings.TrimSpace(*req.Description)
	}
	if req.Questions != nil {
		et.Questions = questionsToModel(*req.Questions)
	}
	return nil
}

// normalizeSlug trims the slug and requires it to be usable as one URL path segment.
func normalizeSlug(raw string) (string, error) {
	slug := strings.TrimSpace(raw)
	if slug == "" {
		return "", fmt.Errorf("%w: slug is required", model.ErrValidation)
	}
	if len(slug) > maxSlugLength {
		return "", fmt.Errorf("%w: slug is too long", model.ErrValidation)
	}
	for _, c := range slug {
		ok := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_'
		if !ok {
			return "", fmt.Errorf("%w: slug may only contain letters, digits, '-' and '_'", model.ErrValidation)
		}
	}
	return slug, nil
}

func (h *HostHandler) UpcomingMeetings(w http.ResponseWriter, r *http.Request) {
	h.listMeetings(w, r, true)
}

func (h *HostHandler) PastMeetings(w http.ResponseWriter, r *http.Request) {
	h.listMeetings(w, r, false)
}

// listMeetings splits meetings around the host's current wall clock.
func (h *HostHandler) listMeetings(w http.ResponseWriter, r *http.Request, upcoming bool) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	host, err := h.store.Host(r.Context(), hostID(r))
	if errors.Is(err, model.ErrNotFound) {
		httpx.WriteJSON(w, http.StatusOK, []meetingResponse{})
		return
	}
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	loc, err := host.Location()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	now := h.now().In(loc)
	meetings, err := h.store.ListMeetings(r.Context(), host.ID, storage.MeetingFilter{
		Upcoming: upcoming,
		Today:    model.DateOf(now),
		Now:      model.ClockOf(now),
		Limit:    limit,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	out := make([]meetingResponse, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, meetingResponse{
			bookingResponse: bookingFromModel(m.Booking),
			EventTypeName:   m.EventName,
			EventTypeSlug:   m.EventSlug,
			DurationMinutes: m.DurationMinutes,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxMeetingListLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", maxMeetingListLimit)
	}
	return n, nil
}

func (h *HostHandler) CancelMeeting(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Cancel(r.Context(), r.PathValue("id"), hostID(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, bookingFromModel(b))
}
