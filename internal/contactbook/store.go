// Package contactbook holds the in-memory contact and meeting store together
// with the indices that keep it queryable by id, by contact and by day.
//
// A Store is not safe for concurrent use. Callers sharing one across
// goroutines wrap it, as contactservice does.
package contactbook

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"time"

	"github.com/starford/rolodex/internal/apperr"
	"github.com/starford/rolodex/internal/models"
	"github.com/starford/rolodex/internal/storage"
	"github.com/starford/rolodex/internal/temporal"
)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the source of the evaluation instant.
func WithClock(clock temporal.Clock) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithLocation sets the time zone used to bucket meetings by day.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		s.loc = loc
	}
}

// Store owns contacts, meetings and every derived index.
type Store struct {
	clock temporal.Clock
	loc   *time.Location
	st    *state
}

// Stats counts the records held by a Store.
type Stats struct {
	Contacts       int `json:"contacts"`
	PastMeetings   int `json:"past_meetings"`
	FutureMeetings int `json:"future_meetings"`
}

// state is the canonical data plus its indices. Restore builds a fresh one
// and swaps it in, so a rejected snapshot never touches the live one.
type state struct {
	contacts []*models.Contact // id order
	byID     map[int]*models.Contact

	past   map[int]*models.Meeting
	future map[int]*models.Meeting

	pastByContact   map[int][]*models.Meeting
	futureByContact map[int][]*models.Meeting
	byDay           map[string][]*models.Meeting

	nextContactID int
	nextMeetingID int
}

func newState() *state {
	return &state{
		byID:            make(map[int]*models.Contact),
		past:            make(map[int]*models.Meeting),
		future:          make(map[int]*models.Meeting),
		pastByContact:   make(map[int][]*models.Meeting),
		futureByContact: make(map[int][]*models.Meeting),
		byDay:           make(map[string][]*models.Meeting),
	}
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		clock: temporal.SystemClock,
		loc:   time.Local,
		st:    newState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open builds a Store from the provider's data. A missing data file yields an
// empty Store. On any other failure the returned Store is empty and the error
// is reported alongside it.
func Open(p storage.Provider, opts ...Option) (*Store, error) {
	s := New(opts...)
	snap, err := p.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("contactbook: load: %w", err)
	}
	if err := s.Restore(snap); err != nil {
		return s, fmt.Errorf("contactbook: load: %w", err)
	}
	return s, nil
}

// Stats returns record counts.
func (s *Store) Stats() Stats {
	return Stats{
		Contacts:       len(s.st.contacts),
		PastMeetings:   len(s.st.past),
		FutureMeetings: len(s.st.future),
	}
}

// Snapshot returns a deep copy of the canonical collections for persistence.
// Meetings reference the copied contacts.
func (s *Store) Snapshot() *storage.Snapshot {
	snap := &storage.Snapshot{
		Contacts: make([]*models.Contact, len(s.st.contacts)),
		Past:     make([]*models.Meeting, 0, len(s.st.past)),
		Future:   make([]*models.Meeting, 0, len(s.st.future)),
	}
	copies := make(map[int]*models.Contact, len(s.st.contacts))
	for i, c := range s.st.contacts {
		cp := *c
		snap.Contacts[i] = &cp
		copies[c.ID] = &cp
	}
	relink := func(m *models.Meeting) *models.Meeting {
		out := *m
		out.Participants = make([]*models.Contact, len(m.Participants))
		for i, c := range m.Participants {
			out.Participants[i] = copies[c.ID]
		}
		return &out
	}
	for _, m := range s.st.past {
		snap.Past = append(snap.Past, relink(m))
	}
	for _, m := range s.st.future {
		snap.Future = append(snap.Future, relink(m))
	}
	slices.SortFunc(snap.Past, temporal.Compare)
	slices.SortFunc(snap.Future, temporal.Compare)
	return snap
}

// Restore replaces the Store's contents with snap and rebuilds every index.
// Participants are resolved by contact id. The snapshot is validated in full
// before anything changes; id counters continue after the largest ids seen.
func (s *Store) Restore(snap *storage.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: snapshot", apperr.ErrNullArgument)
	}

	next := newState()
	for _, c := range snap.Contacts {
		if c == nil {
			return fmt.Errorf("%w: nil contact in snapshot", apperr.ErrInvalidArgument)
		}
		if _, dup := next.byID[c.ID]; dup {
			return fmt.Errorf("%w: duplicate contact id %d", apperr.ErrInvalidArgument, c.ID)
		}
		cp := *c
		next.byID[c.ID] = &cp
		next.contacts = append(next.contacts, &cp)
		next.nextContactID = max(next.nextContactID, c.ID+1)
	}
	slices.SortFunc(next.contacts, func(a, b *models.Contact) int { return a.ID - b.ID })

	meetingCount := len(snap.Past) + len(snap.Future)
	seen := make(map[int]struct{}, meetingCount)
	add := func(m *models.Meeting, status models.Status) error {
		if m == nil {
			return fmt.Errorf("%w: nil meeting in snapshot", apperr.ErrInvalidArgument)
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("%w: duplicate meeting id %d", apperr.ErrInvalidArgument, m.ID)
		}
		seen[m.ID] = struct{}{}
		ids := m.ParticipantIDs()
		participants, err := next.resolve(ids)
		if err != nil {
			return fmt.Errorf("meeting %d: %w", m.ID, err)
		}
		var rebuilt *models.Meeting
		if status == models.StatusPast {
			rebuilt = models.NewPastMeeting(m.ID, participants, m.Date, m.Notes)
		} else {
			rebuilt = models.NewFutureMeeting(m.ID, participants, m.Date)
		}
		next.index(rebuilt, s.dayKey(rebuilt.Date))
		next.nextMeetingID = max(next.nextMeetingID, m.ID+1)
		return nil
	}
	for _, m := range snap.Past {
		if err := add(m, models.StatusPast); err != nil {
			return err
		}
	}
	for _, m := range snap.Future {
		if err := add(m, models.StatusFuture); err != nil {
			return err
		}
	}

	s.st = next
	return nil
}

func (s *Store) dayKey(t time.Time) string {
	return temporal.DayKey(t.In(s.loc))
}

// resolve maps contact ids to the stored contacts. The set must be non-empty
// and fully known.
func (st *state) resolve(ids []int) ([]*models.Contact, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty participant set", apperr.ErrInvalidArgument)
	}
	out := make([]*models.Contact, 0, len(ids))
	for _, id := range ids {
		c, ok := st.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown contact %d", apperr.ErrInvalidArgument, id)
		}
		out = append(out, c)
	}
	return out, nil
}

// index files m under its status in the id map, the per-contact lists and the
// day bucket.
func (st *state) index(m *models.Meeting, day string) {
	byContact := st.futureByContact
	if m.IsPast() {
		st.past[m.ID] = m
		byContact = st.pastByContact
	} else {
		st.future[m.ID] = m
	}
	for _, c := range m.Participants {
		byContact[c.ID] = insertSorted(byContact[c.ID], m)
	}
	st.byDay[day] = insertSorted(st.byDay[day], m)
}

// unindex reverses index for a meeting in its current status.
func (st *state) unindex(m *models.Meeting, day string) {
	byContact := st.futureByContact
	if m.IsPast() {
		delete(st.past, m.ID)
		byContact = st.pastByContact
	} else {
		delete(st.future, m.ID)
	}
	for _, c := range m.Participants {
		byContact[c.ID] = removeSorted(byContact[c.ID], m)
	}
	st.byDay[day] = removeSorted(st.byDay[day], m)
	if len(st.byDay[day]) == 0 {
		delete(st.byDay, day)
	}
}

func insertSorted(list []*models.Meeting, m *models.Meeting) []*models.Meeting {
	i, found := slices.BinarySearchFunc(list, m, temporal.Compare)
	if found {
		return list
	}
	return slices.Insert(list, i, m)
}

func removeSorted(list []*models.Meeting, m *models.Meeting) []*models.Meeting {
	i, found := slices.BinarySearchFunc(list, m, temporal.Compare)
	if !found {
		return list
	}
	return slices.Delete(list, i, i+1)
}

func cloneAll(list []*models.Meeting) []models.Meeting {
	out := make([]models.Meeting, len(list))
	for i, m := range list {
		out[i] = m.Clone()
	}
	return out
}
