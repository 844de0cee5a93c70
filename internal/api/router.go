package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/rolodex/internal/contactservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *contactservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Contacts.
	r.Post("/contacts", h.CreateContact)
	r.Get("/contacts", h.ListContacts)
	r.Get("/contacts/{id}/meetings/future", h.ContactFutureMeetings)
	r.Get("/contacts/{id}/meetings/past", h.ContactPastMeetings)

	// Meetings.
	r.Get("/meetings", h.MeetingsOnDate)
	r.Post("/meetings/future", h.CreateFutureMeeting)
	r.Post("/meetings/past", h.CreatePastMeeting)
	r.Get("/meetings/future/{id}", h.GetFutureMeeting)
	r.Get("/meetings/past/{id}", h.GetPastMeeting)
	r.Get("/meetings/{id}", h.GetMeeting)
	r.Post("/meetings/{id}/notes", h.AddMeetingNotes)

	// Persistence.
	r.Post("/flush", h.Flush)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
