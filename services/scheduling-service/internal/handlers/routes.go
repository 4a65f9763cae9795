package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/meethub/libs/httpx"
)

// Register mounts the public and host routes on mux. publicMW wraps the
// unauthenticated routes; requireHost wraps the host routes.
func Register(mux *http.ServeMux, pub *PublicHandler, host *HostHandler, publicMW httpx.Middleware, requireHost func(http.Handler) http.Handler) {
	public := func(h http.HandlerFunc) http.Handler {
		if publicMW == nil {
			return h
		}
		return publicMW(h)
	}
	mux.Handle("GET /api/v1/public/{slug}", public(pub.EventType))
	mux.Handle("GET /api/v1/public/{slug}/available-slots", public(pub.AvailableSlots))
	mux.Handle("POST /api/v1/public/{slug}/book", public(pub.Book))

	authed := func(h http.HandlerFunc) http.Handler { return requireHost(h) }
	mux.Handle("GET /api/v1/host/profile", authed(host.GetProfile))
	mux.Handle("PUT /api/v1/host/profile", authed(host.PutProfile))
	mux.Handle("GET /api/v1/host/availability", authed(host.GetAvailability))
	mux.Handle("PUT /api/v1/host/availability", authed(host.PutAvailability))
	mux.Handle("GET /api/v1/host/event-types", authed(host.ListEventTypes))
	mux.Handle("POST /api/v1/host/event-types", authed(host.CreateEventType))
	mux.Handle("PUT /api/v1/host/event-types/{id}", authed(host.UpdateEventType))
	mux.Handle("DELETE /api/v1/host/event-types/{id}", authed(host.DeleteEventType))
	mux.Handle("GET /api/v1/host/meetings/upcoming", authed(host.UpcomingMeetings))
	mux.Handle("GET /api/v1/host/meetings/past", authed(host.PastMeetings))
	mux.Handle("PUT /api/v1/host/meetings/{id}/cancel", authed(host.CancelMeeting))
}
