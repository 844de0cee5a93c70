package contactbook

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/rolodex/internal/apperr"
	"github.com/starford/rolodex/internal/models"
	"github.com/starford/rolodex/internal/storage"
)

// fakeClock is a settable evaluation instant.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 5, 14, 12, 0, 0, 0, time.Local)}
	return New(WithClock(clock.Now)), clock
}

func seedContacts(t *testing.T, s *Store, names ...string) []int {
	t.Helper()
	ids := make([]int, len(names))
	for i, n := range names {
		id, err := s.AddContact(n, "")
		require.NoError(t, err)
		ids[i] = id
	}
	return ids
}

func TestAddContact_AssignsSequentialIDs(t *testing.T) {
	s, _ := newTestStore(t)
	ids := seedContacts(t, s, "Alice", "Bob")
	assert.Equal(t, []int{0, 1}, ids)

	_, err := s.AddContact("", "notes")
	assert.ErrorIs(t, err, apperr.ErrNullArgument)

	all := s.Contacts()
	require.Len(t, all, 2)
	assert.Equal(t, "Alice", all[0].Name)
	assert.Equal(t, "Bob", all[1].Name)
}

func TestFutureMeetingsForContact_Scenario(t *testing.T) {
	s, clock := newTestStore(t)
	ids := seedContacts(t, s, "Alice", "Bob")
	tenYears := clock.now.AddDate(10, 0, 0)

	m0, err := s.AddFutureMeeting(ids, tenYears)
	require.NoError(t, err)
	m1, err := s.AddFutureMeeting(ids, tenYears.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, m0)
	assert.Equal(t, 1, m1)

	got, err := s.GetFutureMeetingsForContact(ids[0])
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, m0, got[0].ID)
	assert.Equal(t, m1, got[1].ID)
}

func TestAddFutureMeeting_RoundTripsThroughGet(t *testing.T) {
	s, clock := newTestStore(t)
	ids := seedContacts(t, s, "Alice", "Bob")
	date := clock.now.Add(48 * time.Hour)

	id, err := s.AddFutureMeeting(ids, date)
	require.NoError(t, err)

	got, err := s.GetFutureMeeting(id)
	require.NoError(t, err)
	want := models.NewFutureMeeting(id, []*models.Contact{
		models.NewContact(0, "Alice", ""),
		models.NewContact(1, "Bob", ""),
	}, date)
	assert.True(t, got.Equal(*want), "got %+v", got)
}

func TestAddFutureMeeting_Rejects(t *testing.T) {
	s, clock := newTestStore(t)
	ids := seedContacts(t, s, "Alice")

	tests := []struct {
		name string
		ids  []int
		date time.Time
		want error
	}{
		{"date equal to now", ids, clock.now, apperr.ErrInvalidArgument},
		{"date in the past", ids, clock.now.Add(-time.Minute), apperr.ErrInvalidArgument},
		{"unknown contact", []int{ids[0], 42}, clock.now.AddDate(1, 0, 0), apperr.ErrInvalidArgument},
		{"no participants", nil, clock.now.AddDate(1, 0, 0), apperr.ErrInvalidArgument},
		{"zero date", ids, time.Time{}, apperr.ErrNullArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddFutureMeeting(tt.ids, tt.date)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, Stats{Contacts: 1}, s.Stats(), "failed adds must not change the store")
}

func TestAddPastMeeting(t *testing.T) {
	s, clock := newTestStore(t)
	ids := seedContacts(t, s, "Alice", "Bob")

	id, err := s.AddPastMeeting(ids, clock.now, "")
	require.NoError(t, err, "past meetings may be dated exactly now")
	backfill, err := s.AddPastMeeting(ids[:1], clock.now.AddDate(0, 0, 3), "planned ahead")
	require.NoError(t, err, "past meetings are not checked against now")

	_, err = s.AddPastMeeting([]int{7}, clock.now, "x")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	_, err = s.AddPastMeeting(nil, clock.now, "x")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	m, err := s.GetPastMeeting(backfill)
	require.NoError(t, err)
	assert.Equal(t, "planned ahead", m.Notes)
	assert.True(t, m.IsPast())

	got, err := s.GetPastMeetingsForContact(ids[0])
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []int{id, backfill}, []int{got[0].ID, got[1].ID})
}

func TestMeetingIDsShareOneSpace(t *testing.T) {
	s, clock := newTestStore(t)
	ids := seedContacts(t, s, "Alice")
	f, err := s.AddFutureMeeting(ids, clock.now.Add(time.Hour))
	require.NoError(t, err)
	p, err := s.AddPastMeeting(ids, clock.now.Add(-time.Hour), "done")
	require.NoError(t, err)
	assert.NotEqual(t, f, p)
}

func TestGetMeeting_Variants(t *testing.T) {
	s, clock := newTestStore(t)
	ids := seedContacts(t, s, "Alice")
	future, err := s.AddFutureMeeting(ids, clock.now.Add(time.Hour))
	require.NoError(t, err)
	past, err := s.AddPastMeeting(ids, clock.now.Add(-time.Hour), "n")
	require.NoError(t, err)

	m, err := s.GetMeeting(future)
	require.NoError(t, err)
	assert.True(t, m.IsFuture())
	m, err = s.GetMeeting(past)
	require.NoError(t, err)
	assert.True(t, m.IsPast())

	_, err = s.GetMeeting(99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = s.GetFutureMeeting(past)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	_, err = s.GetPastMeeting(future)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	_, err = s.GetFutureMeeting(99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = s.GetPastMeeting(99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAddMeetingNotes_ConvertsElapsedFutureMeeting(t *testing.T) {
	s, clock := newTestStore(t)
	ids := seedContacts(t, s, "Alice", "Bob")
	date := clock.now.Add(time.Hour)
	id, err := s.AddFutureMeeting(ids, date)
	require.NoError(t, err)

	_, err = s.AddMeetingNotes(id, "too early")
	require.ErrorIs(t, err, apperr.ErrInvalidState)

	clock.now = date
	_, err = s.AddMeetingNotes(id, "exactly on time")
	require.ErrorIs(t, err, apperr.ErrInvalidState, "a meeting dated now has not elapsed")

	clock.Advance(time.Minute)
	m, err := s.AddMeetingNotes(id, "went well")
	require.NoError(t, err)
	assert.True(t, m.IsPast())

	_, err = s.GetFutureMeeting(id)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	past, err := s.GetPastMeeting(id)
	require.NoError(t, err)
	assert.Equal(t, "went well", past.Notes)
	assert.True(t, past.Date.Equal(date))

	for _, cid := range ids {
		fut, err := s.GetFutureMeetingsForContact(cid)
		require.NoError(t, err)
		assert.Empty(t, fut)
		pst, err := s.GetPastMeetingsForContact(cid)
		require.NoError(t, err)
		require.Len(t, pst, 1)
		assert.Equal(t, id, pst[0].ID)
	}
	assert.Len(t, s.GetMeetingsOnDate(date), 1)

	m, err = s.AddMeetingNotes(id, "follow-up sent")
	require.NoError(t, err)
	assert.Equal(t, "went well\nfollow-up sent", m.Notes)
}

func TestAddMeetingNotes_Rejects(t *testing.T) {
	s, clock := newTestStore(t)
	ids := seedContacts(t, s, "Alice")
	id, err := s.AddPastMeeting(ids, clock.now.Add(-time.Hour), "")
	require.NoError(t, err)

	_, err = s.AddMeetingNotes(42, "x")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	_, err = s.AddMeetingNotes(id, "")
	assert.ErrorIs(t, err, apperr.ErrNullArgument)
}

func TestGetContactsByName_CaseSensitive(t *testing.T) {
	s, _ := newTestStore(t)
	seedContacts(t, s, "Alice", "Malik", "Bob")

	got, err := s.GetContactsByName("Ali")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alice", got[0].Name)

	got, err = s.GetContactsByName("ali")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Malik", got[0].Name)

	got, err = s.GetContactsByName("zed")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.GetContactsByName("")
	assert.ErrorIs(t, err, apperr.ErrNullArgument)
}

func TestGetContactsByID(t *testing.T) {
	s, _ := newTestStore(t)
	seedContacts(t, s, "Alice", "Bob", "Carol")

	got, err := s.GetContactsByID(2, 0, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alice", got[0].Name)
	assert.Equal(t, "Carol", got[1].Name)

	_, err = s.GetContactsByID(0, 9)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	_, err = s.GetContactsByID()
	assert.ErrorIs(t, err, apperr.ErrNullArgument)
}

func TestMeetingsForUnknownContact(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.GetFutureMeetingsForContact(3)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	_, err = s.GetPastMeetingsForContact(3)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestGetMeetingsOnDate_MixesPastAndFuture(t *testing.T) {
	s, clock := newTestStore(t)
	ids := seedContacts(t, s, "Alice")
	day := clock.now

	late, err := s.AddFutureMeeting(ids, day.Add(3*time.Hour))
	require.NoError(t, err)
	early, err := s.AddPastMeeting(ids, day.Add(-3*time.Hour), "breakfast")
	require.NoError(t, err)
	_, err = s.AddFutureMeeting(ids, day.AddDate(0, 0, 1))
	require.NoError(t, err)

	got := s.GetMeetingsOnDate(time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.Local))
	require.Len(t, got, 2)
	assert.Equal(t, early, got[0].ID)
	assert.Equal(t, late, got[1].ID)

	assert.Empty(t, s.GetMeetingsOnDate(day.AddDate(1, 0, 0)))
}

func TestOrderingTieBreaksOnID(t *testing.T) {
	s, clock := newTestStore(t)
	ids := seedContacts(t, s, "Alice")
	date := clock.now.Add(time.Hour)
	for range 3 {
		_, err := s.AddFutureMeeting(ids, date)
		require.NoError(t, err)
	}
	_, err := s.AddFutureMeeting(ids, date.Add(-time.Minute))
	require.NoError(t, err)

	got, err := s.GetFutureMeetingsForContact(ids[0])
	require.NoError(t, err)
	gotIDs := make([]int, len(got))
	for i, m := range got {
		gotIDs[i] = m.ID
	}
	assert.Equal(t, []int{3, 0, 1, 2}, gotIDs)
}

func TestReturnedViewsAreCopies(t *testing.T) {
	s, clock := newTestStore(t)
	ids := seedContacts(t, s, "Alice")
	id, err := s.AddPastMeeting(ids, clock.now.Add(-time.Hour), "orig")
	require.NoError(t, err)

	list, err := s.GetPastMeetingsForContact(ids[0])
	require.NoError(t, err)
	list[0].Notes = "tampered"
	list[0].Participants[0].Name = "Mallory"

	contacts := s.Contacts()
	contacts[0].Name = "Eve"

	m, err := s.GetMeeting(id)
	require.NoError(t, err)
	assert.Equal(t, "orig", m.Notes)
	assert.Equal(t, "Alice", m.Participants[0].Name)
	assert.Equal(t, "Alice", s.Contacts()[0].Name)
}

func TestSnapshotRestore(t *testing.T) {
	s, clock := newTestStore(t)
	ids := seedContacts(t, s, "Alice", "Bob")
	_, err := s.AddFutureMeeting(ids, clock.now.Add(time.Hour))
	require.NoError(t, err)
	_, err = s.AddPastMeeting(ids[1:], clock.now.Add(-time.Hour), "n")
	require.NoError(t, err)

	snap := s.Snapshot()
	restored := New(WithClock(clock.Now))
	require.NoError(t, restored.Restore(snap))
	assert.Equal(t, s.Stats(), restored.Stats())

	next, err := restored.AddContact("Carol", "")
	require.NoError(t, err)
	assert.Equal(t, 2, next, "contact ids continue after the restored ones")
	mid, err := restored.AddPastMeeting(ids, clock.now, "")
	require.NoError(t, err)
	assert.Equal(t, 2, mid, "meeting ids continue after the restored ones")
}

func TestRestore_InvalidSnapshotLeavesStore(t *testing.T) {
	s, clock := newTestStore(t)
	seedContacts(t, s, "Alice")
	before := s.Stats()

	bad := &storage.Snapshot{
		Contacts: []*models.Contact{models.NewContact(0, "X", "")},
		Future: []*models.Meeting{
			models.NewFutureMeeting(0, []*models.Contact{models.NewContact(5, "Ghost", "")}, clock.now),
		},
	}
	err := s.Restore(bad)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.Equal(t, before, s.Stats())
	assert.Equal(t, "Alice", s.Contacts()[0].Name)

	assert.ErrorIs(t, s.Restore(nil), apperr.ErrNullArgument)
}

func TestOpen_FileProvider(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 14, 12, 0, 0, 0, time.Local)}
	path := filepath.Join(t.TempDir(), "contacts.txt")
	file, err := storage.NewFile(path)
	require.NoError(t, err)

	s, err := Open(file, WithClock(clock.Now))
	require.NoError(t, err, "a missing file opens an empty store")
	assert.Equal(t, Stats{}, s.Stats())

	ids := seedContacts(t, s, "Alice", "Bob")
	fid, err := s.AddFutureMeeting(ids, clock.now.AddDate(0, 1, 0))
	require.NoError(t, err)
	pid, err := s.AddPastMeeting(ids[:1], clock.now.AddDate(0, -1, 0), "kickoff")
	require.NoError(t, err)
	require.NoError(t, file.Save(s.Snapshot()))

	reopened, err := Open(file, WithClock(clock.Now))
	require.NoError(t, err)
	assert.Equal(t, s.Contacts(), reopened.Contacts())
	for _, id := range []int{fid, pid} {
		want, err := s.GetMeeting(id)
		require.NoError(t, err)
		got, err := reopened.GetMeeting(id)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "meeting %d: want %+v got %+v", id, want, got)
	}
}

func TestOpen_FileProviderKeepsOrderForSubMinuteDates(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 14, 12, 0, 0, 0, time.Local)}
	file, err := storage.NewFile(filepath.Join(t.TempDir(), "contacts.txt"))
	require.NoError(t, err)
	s, err := Open(file, WithClock(clock.Now))
	require.NoError(t, err)
	ids := seedContacts(t, s, "Alice")

	at := clock.now.Add(time.Hour)
	late, err := s.AddFutureMeeting(ids, at.Add(50*time.Second))
	require.NoError(t, err)
	early, err := s.AddFutureMeeting(ids, at.Add(10*time.Second+500*time.Millisecond))
	require.NoError(t, err)
	past, err := s.AddPastMeeting(ids, clock.now.Add(-time.Hour+59*time.Second), "n")
	require.NoError(t, err)

	m, err := s.GetMeeting(late)
	require.NoError(t, err)
	assert.True(t, at.Equal(m.Date), "date %v should be kept to the minute", m.Date)

	before, err := s.GetFutureMeetingsForContact(ids[0])
	require.NoError(t, err)
	require.NoError(t, file.Save(s.Snapshot()))

	reopened, err := Open(file, WithClock(clock.Now))
	require.NoError(t, err)
	after, err := reopened.GetFutureMeetingsForContact(ids[0])
	require.NoError(t, err)

	require.Len(t, after, 2)
	assert.Equal(t, []int{late, early}, []int{before[0].ID, before[1].ID})
	assert.Equal(t, []int{before[0].ID, before[1].ID}, []int{after[0].ID, after[1].ID})
	for i := range before {
		assert.True(t, before[i].Equal(after[i]), "want %+v got %+v", before[i], after[i])
	}
	want, err := s.GetMeeting(past)
	require.NoError(t, err)
	got, err := reopened.GetMeeting(past)
	require.NoError(t, err)
	assert.True(t, want.Equal(got), "want %+v got %+v", want, got)
}

func TestAddFutureMeeting_WithinCurrentMinuteIsRejected(t *testing.T) {
	s, clock := newTestStore(t)
	ids := seedContacts(t, s, "Alice")

	_, err := s.AddFutureMeeting(ids, clock.now.Add(30*time.Second))
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = s.AddFutureMeeting(ids, clock.now.Add(time.Minute+30*time.Second))
	assert.NoError(t, err)
}

type failingProvider struct{ err error }

func (p failingProvider) Load() (*storage.Snapshot, error) { return nil, p.err }
func (p failingProvider) Save(*storage.Snapshot) error     { return p.err }

func TestOpen_FailedLoadYieldsEmptyStore(t *testing.T) {
	s, err := Open(failingProvider{err: storage.ErrMalformed})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrMalformed))
	require.NotNil(t, s)
	assert.Equal(t, Stats{}, s.Stats())

	s, err = Open(failingProvider{err: fs.ErrNotExist})
	require.NoError(t, err)
	assert.Equal(t, Stats{}, s.Stats())
}
