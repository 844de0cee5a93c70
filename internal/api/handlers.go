package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/rolodex/internal/contactservice"
	"github.com/starford/rolodex/internal/models"
	"github.com/starford/rolodex/internal/parser"
)

// Handler holds API route handlers.
type Handler struct {
	svc *contactservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *contactservice.Service) *Handler {
	return &Handler{svc: svc}
}

// decode reads a JSON body into v and runs its validation rules.
func decode(w http.ResponseWriter, r *http.Request, v interface{ Validate() error }) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("id must be an integer"))
		return 0, false
	}
	return id, true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// CreateContact handles POST /contacts.
//
//	@Summary		Create a contact
//	@Tags			contacts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateContactRequest	true	"Contact to create"
//	@Success		201		{object}	Contact
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contacts [post]
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req CreateContactRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.svc.AddContact(r.Context(), req.Name, req.Notes)
	if err != nil {
		writeError(w, "create contact", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListContacts handles GET /contacts.
//
//	@Summary		List contacts by ids, by name substring, or all
//	@Tags			contacts
//	@Produce		json
//	@Param			ids		query		string	false	"Comma-separated contact ids"
//	@Param			name	query		string	false	"Case-sensitive name substring"
//	@Success		200		{object}	ContactListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contacts [get]
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		contacts []models.Contact
		err      error
	)
	switch {
	case q.Has("ids"):
		ids, perr := parser.ParseIDs(q.Get("ids"))
		if perr != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(perr.Error()))
			return
		}
		contacts, err = h.svc.GetContactsByID(r.Context(), ids...)
	case q.Has("name"):
		contacts, err = h.svc.GetContactsByName(r.Context(), q.Get("name"))
	default:
		contacts = h.svc.Contacts(r.Context())
	}
	if err != nil {
		writeError(w, "list contacts", err)
		return
	}
	writeJSON(w, http.StatusOK, ContactListResponse{Contacts: nonNil(contacts)})
}

// CreateFutureMeeting handles POST /meetings/future.
//
//	@Summary		Schedule a future meeting
//	@Tags			meetings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateMeetingRequest	true	"Participants and date"
//	@Success		201		{object}	Meeting
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/meetings/future [post]
func (h *Handler) CreateFutureMeeting(w http.ResponseWriter, r *http.Request) {
	var req CreateMeetingRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := req.When()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	m, err := h.svc.AddFutureMeeting(r.Context(), req.ContactIDs, date)
	if err != nil {
		writeError(w, "create future meeting", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// CreatePastMeeting handles POST /meetings/past.
//
//	@Summary		Record a past meeting
//	@Tags			meetings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateMeetingRequest	true	"Participants, date and notes"
//	@Success		201		{object}	Meeting
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/meetings/past [post]
func (h *Handler) CreatePastMeeting(w http.ResponseWriter, r *http.Request) {
	var req CreateMeetingRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := req.When()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	m, err := h.svc.AddPastMeeting(r.Context(), req.ContactIDs, date, req.Notes)
	if err != nil {
		writeError(w, "create past meeting", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// GetMeeting handles GET /meetings/{id}.
//
//	@Summary		Get a meeting of either kind
//	@Tags			meetings
//	@Produce		json
//	@Param			id	path		int	true	"Meeting id"
//	@Success		200	{object}	Meeting
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/meetings/{id} [get]
func (h *Handler) GetMeeting(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	m, err := h.svc.GetMeeting(r.Context(), id)
	if err != nil {
		writeError(w, "get meeting", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// GetFutureMeeting handles GET /meetings/future/{id}.
//
//	@Summary		Get a future meeting
//	@Tags			meetings
//	@Produce		json
//	@Param			id	path		int	true	"Meeting id"
//	@Success		200	{object}	Meeting
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse	"Meeting is past"
//	@Security		BearerAuth
//	@Router			/meetings/future/{id} [get]
func (h *Handler) GetFutureMeeting(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	m, err := h.svc.GetFutureMeeting(r.Context(), id)
	if err != nil {
		writeError(w, "get future meeting", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// GetPastMeeting handles GET /meetings/past/{id}.
//
//	@Summary		Get a past meeting
//	@Tags			meetings
//	@Produce		json
//	@Param			id	path		int	true	"Meeting id"
//	@Success		200	{object}	Meeting
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse	"Meeting is future"
//	@Security		BearerAuth
//	@Router			/meetings/past/{id} [get]
func (h *Handler) GetPastMeeting(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	m, err := h.svc.GetPastMeeting(r.Context(), id)
	if err != nil {
		writeError(w, "get past meeting", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// AddMeetingNotes handles POST /meetings/{id}/notes.
//
//	@Summary		Add notes, completing an elapsed future meeting
//	@Tags			meetings
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int				true	"Meeting id"
//	@Param			body	body		AddNotesRequest	true	"Notes text"
//	@Success		200		{object}	Meeting
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse	"Meeting has not happened yet"
//	@Security		BearerAuth
//	@Router			/meetings/{id}/notes [post]
func (h *Handler) AddMeetingNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req AddNotesRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.svc.AddMeetingNotes(r.Context(), id, req.Text)
	if err != nil {
		writeError(w, "add meeting notes", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ContactFutureMeetings handles GET /contacts/{id}/meetings/future.
//
//	@Summary		List a contact's future meetings in date order
//	@Tags			meetings
//	@Produce		json
//	@Param			id	path		int	true	"Contact id"
//	@Success		200	{object}	MeetingListResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contacts/{id}/meetings/future [get]
func (h *Handler) ContactFutureMeetings(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	list, err := h.svc.GetFutureMeetingsForContact(r.Context(), id)
	if err != nil {
		writeError(w, "list future meetings", err)
		return
	}
	writeJSON(w, http.StatusOK, MeetingListResponse{Meetings: nonNil(list)})
}

// ContactPastMeetings handles GET /contacts/{id}/meetings/past.
//
//	@Summary		List a contact's past meetings in date order
//	@Tags			meetings
//	@Produce		json
//	@Param			id	path		int	true	"Contact id"
//	@Success		200	{object}	MeetingListResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contacts/{id}/meetings/past [get]
func (h *Handler) ContactPastMeetings(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	list, err := h.svc.GetPastMeetingsForContact(r.Context(), id)
	if err != nil {
		writeError(w, "list past meetings", err)
		return
	}
	writeJSON(w, http.StatusOK, MeetingListResponse{Meetings: nonNil(list)})
}

// MeetingsOnDate handles GET /meetings?date=.
//
//	@Summary		List past and future meetings held on a day
//	@Tags			meetings
//	@Produce		json
//	@Param			date	query		string	true	"Day as yyyy-mm-dd or dd/MM/yyyy HH:mm"
//	@Success		200		{object}	MeetingListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/meetings [get]
func (h *Handler) MeetingsOnDate(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'date' is required"))
		return
	}
	day, err := parser.ParseDay(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	list := h.svc.GetMeetingsOnDate(r.Context(), day)
	writeJSON(w, http.StatusOK, MeetingListResponse{Meetings: nonNil(list)})
}

// Flush handles POST /flush.
//
//	@Summary		Persist the current state
//	@Tags			store
//	@Produce		json
//	@Success		200	{object}	FlushResponse
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/flush [post]
func (h *Handler) Flush(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Flush(r.Context()); err != nil {
		writeError(w, "flush", err)
		return
	}
	st := h.svc.Stats(r.Context())
	writeJSON(w, http.StatusOK, FlushResponse{
		Contacts:       st.Contacts,
		PastMeetings:   st.PastMeetings,
		FutureMeetings: st.FutureMeetings,
	})
}
