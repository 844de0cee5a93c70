package models

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Status tags a meeting as scheduled (future) or held (past).
type Status int

const (
	StatusFuture Status = iota
	StatusPast
)

// String returns the lowercase name used in documents and JSON.
func (s Status) String() string {
	if s == StatusPast {
		return "past"
	}
	return "future"
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "future":
		*s = StatusFuture
	case "past":
		*s = StatusPast
	default:
		return fmt.Errorf("unknown meeting status %q", text)
	}
	return nil
}

// ErrAlreadyPast is returned by Complete on a meeting that is already past.
var ErrAlreadyPast = errors.New("meeting is already past")

// Meeting is an event with a date and a non-empty participant set.
// Notes are only carried by past meetings.
type Meeting struct {
	ID           int        `json:"id"`
	Date         time.Time  `json:"date"`
	Participants []*Contact `json:"participants"`
	Status       Status     `json:"status"`
	Notes        string     `json:"notes,omitempty"`
}

// NewFutureMeeting builds a scheduled meeting. Participants are deduplicated
// by id and kept in id order.
func NewFutureMeeting(id int, participants []*Contact, date time.Time) *Meeting {
	return &Meeting{
		ID:           id,
		Date:         date,
		Participants: participantSet(participants),
		Status:       StatusFuture,
	}
}

// NewPastMeeting builds a meeting that already took place.
func NewPastMeeting(id int, participants []*Contact, date time.Time, notes string) *Meeting {
	return &Meeting{
		ID:           id,
		Date:         date,
		Participants: participantSet(participants),
		Status:       StatusPast,
		Notes:        notes,
	}
}

// IsPast reports whether the meeting is tagged past.
func (m *Meeting) IsPast() bool { return m.Status == StatusPast }

// IsFuture reports whether the meeting is tagged future.
func (m *Meeting) IsFuture() bool { return m.Status == StatusFuture }

// Complete turns a future meeting into a past one carrying notes.
// There is no transition out of past.
func (m *Meeting) Complete(notes string) error {
	if m.Status == StatusPast {
		return ErrAlreadyPast
	}
	m.Status = StatusPast
	m.Notes = notes
	return nil
}

// AddNotes appends to the notes of a past meeting.
func (m *Meeting) AddNotes(text string) {
	m.Notes = appendNotes(m.Notes, text)
}

// ParticipantIDs returns participant ids in ascending order.
func (m *Meeting) ParticipantIDs() []int {
	ids := make([]int, len(m.Participants))
	for i, c := range m.Participants {
		ids[i] = c.ID
	}
	return ids
}

// Clone returns a deep copy, participants included.
func (m *Meeting) Clone() Meeting {
	out := *m
	out.Participants = make([]*Contact, len(m.Participants))
	for i, c := range m.Participants {
		cp := *c
		out.Participants[i] = &cp
	}
	return out
}

// Equal compares id, date and participant set; for past meetings the notes
// must match too.
func (m Meeting) Equal(o Meeting) bool {
	if m.ID != o.ID || !m.Date.Equal(o.Date) || m.Status != o.Status {
		return false
	}
	if m.Status == StatusPast && m.Notes != o.Notes {
		return false
	}
	return slices.EqualFunc(m.Participants, o.Participants, func(a, b *Contact) bool {
		return a.Equal(*b)
	})
}

func participantSet(in []*Contact) []*Contact {
	out := make([]*Contact, 0, len(in))
	for _, c := range in {
		if c != nil {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b *Contact) int { return a.ID - b.ID })
	return slices.CompactFunc(out, func(a, b *Contact) bool { return a.ID == b.ID })
}
