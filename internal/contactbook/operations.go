package contactbook

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/starford/rolodex/internal/apperr"
	"github.com/starford/rolodex/internal/models"
	"github.com/starford/rolodex/internal/temporal"
)

// AddContact registers a contact and returns its id. The name is required;
// notes may be empty.
func (s *Store) AddContact(name, notes string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: contact name", apperr.ErrNullArgument)
	}
	st := s.st
	c := models.NewContact(st.nextContactID, name, notes)
	st.nextContactID++
	st.contacts = append(st.contacts, c)
	st.byID[c.ID] = c
	return c.ID, nil
}

// Contacts returns every known contact in id order.
func (s *Store) Contacts() []models.Contact {
	out := make([]models.Contact, len(s.st.contacts))
	for i, c := range s.st.contacts {
		out[i] = *c
	}
	return out
}

// GetContactsByID returns the contacts with the given ids, deduplicated and
// in id order. Every id must be known.
func (s *Store) GetContactsByID(ids ...int) ([]models.Contact, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: contact ids", apperr.ErrNullArgument)
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	out := make([]models.Contact, 0, len(sorted))
	for _, id := range sorted {
		c, ok := s.st.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown contact %d", apperr.ErrInvalidArgument, id)
		}
		out = append(out, *c)
	}
	return out, nil
}

// GetContactsByName returns contacts whose name contains text. Matching is
// case-sensitive.
func (s *Store) GetContactsByName(text string) ([]models.Contact, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: name text", apperr.ErrNullArgument)
	}
	out := []models.Contact{}
	for _, c := range s.st.contacts {
		if strings.Contains(c.Name, text) {
			out = append(out, *c)
		}
	}
	return out, nil
}

// AddFutureMeeting schedules a meeting strictly after now and returns its id.
// The date is rounded down to the minute before it is checked.
func (s *Store) AddFutureMeeting(contactIDs []int, date time.Time) (int, error) {
	now := s.clock()
	if date.IsZero() {
		return 0, fmt.Errorf("%w: meeting date", apperr.ErrNullArgument)
	}
	date = temporal.Truncate(date)
	participants, err := s.st.resolve(uniqueIDs(contactIDs))
	if err != nil {
		return 0, err
	}
	if !temporal.IsFuture(date, now) {
		return 0, fmt.Errorf("%w: date %s is not in the future", apperr.ErrInvalidArgument, date.Format(time.RFC3339))
	}
	m := models.NewFutureMeeting(s.st.nextMeetingID, participants, date)
	s.st.nextMeetingID++
	s.st.index(m, s.dayKey(date))
	return m.ID, nil
}

// AddPastMeeting records a meeting that took place and returns its id. The
// date is not checked against now, so meetings can be back-filled. Like
// future meetings it is kept to the minute.
func (s *Store) AddPastMeeting(contactIDs []int, date time.Time, notes string) (int, error) {
	if date.IsZero() {
		return 0, fmt.Errorf("%w: meeting date", apperr.ErrNullArgument)
	}
	date = temporal.Truncate(date)
	participants, err := s.st.resolve(uniqueIDs(contactIDs))
	if err != nil {
		return 0, err
	}
	m := models.NewPastMeeting(s.st.nextMeetingID, participants, date, notes)
	s.st.nextMeetingID++
	s.st.index(m, s.dayKey(date))
	return m.ID, nil
}

// GetMeeting returns the meeting with id, looking in past meetings first.
func (s *Store) GetMeeting(id int) (models.Meeting, error) {
	if m, ok := s.st.past[id]; ok {
		return m.Clone(), nil
	}
	if m, ok := s.st.future[id]; ok {
		return m.Clone(), nil
	}
	return models.Meeting{}, fmt.Errorf("%w: meeting %d", apperr.ErrNotFound, id)
}

// GetFutureMeeting returns the future meeting with id. An id that belongs to
// a past meeting is an ErrInvalidState.
func (s *Store) GetFutureMeeting(id int) (models.Meeting, error) {
	if _, ok := s.st.past[id]; ok {
		return models.Meeting{}, fmt.Errorf("%w: meeting %d is past", apperr.ErrInvalidState, id)
	}
	if m, ok := s.st.future[id]; ok {
		return m.Clone(), nil
	}
	return models.Meeting{}, fmt.Errorf("%w: meeting %d", apperr.ErrNotFound, id)
}

// GetPastMeeting returns the past meeting with id. An id that belongs to a
// future meeting is an ErrInvalidState.
func (s *Store) GetPastMeeting(id int) (models.Meeting, error) {
	if _, ok := s.st.future[id]; ok {
		return models.Meeting{}, fmt.Errorf("%w: meeting %d is future", apperr.ErrInvalidState, id)
	}
	if m, ok := s.st.past[id]; ok {
		return m.Clone(), nil
	}
	return models.Meeting{}, fmt.Errorf("%w: meeting %d", apperr.ErrNotFound, id)
}

// AddMeetingNotes appends text to a past meeting. On a future meeting whose
// date has elapsed it moves the meeting to past, carrying text as its notes.
// It returns the updated meeting.
func (s *Store) AddMeetingNotes(id int, text string) (models.Meeting, error) {
	now := s.clock()
	st := s.st
	if m, ok := st.past[id]; ok {
		if text == "" {
			return models.Meeting{}, fmt.Errorf("%w: notes", apperr.ErrNullArgument)
		}
		m.AddNotes(text)
		return m.Clone(), nil
	}

	m, ok := st.future[id]
	if !ok {
		return models.Meeting{}, fmt.Errorf("%w: unknown meeting %d", apperr.ErrInvalidArgument, id)
	}
	if text == "" {
		return models.Meeting{}, fmt.Errorf("%w: notes", apperr.ErrNullArgument)
	}
	if !temporal.IsPast(m.Date, now) {
		return models.Meeting{}, fmt.Errorf("%w: meeting %d has not happened yet", apperr.ErrInvalidState, id)
	}

	day := s.dayKey(m.Date)
	st.unindex(m, day)
	// Cannot fail: m was filed as future.
	_ = m.Complete(text)
	st.index(m, day)
	return m.Clone(), nil
}

// GetFutureMeetingsForContact lists the contact's future meetings in
// chronological order.
func (s *Store) GetFutureMeetingsForContact(contactID int) ([]models.Meeting, error) {
	if _, ok := s.st.byID[contactID]; !ok {
		return nil, fmt.Errorf("%w: unknown contact %d", apperr.ErrInvalidArgument, contactID)
	}
	return cloneAll(s.st.futureByContact[contactID]), nil
}

// GetPastMeetingsForContact lists the contact's past meetings in
// chronological order.
func (s *Store) GetPastMeetingsForContact(contactID int) ([]models.Meeting, error) {
	if _, ok := s.st.byID[contactID]; !ok {
		return nil, fmt.Errorf("%w: unknown contact %d", apperr.ErrInvalidArgument, contactID)
	}
	return cloneAll(s.st.pastByContact[contactID]), nil
}

// GetMeetingsOnDate lists past and future meetings held on the calendar day
// of date, in chronological order.
func (s *Store) GetMeetingsOnDate(date time.Time) []models.Meeting {
	return cloneAll(s.st.byDay[s.dayKey(date)])
}

func uniqueIDs(ids []int) []int {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
