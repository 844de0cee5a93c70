// Package contactservice serializes access to a contact book and ties it to
// its persistence provider and change notifications.
package contactservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/rolodex/internal/checksum"
	"github.com/starford/rolodex/internal/contactbook"
	"github.com/starford/rolodex/internal/models"
	"github.com/starford/rolodex/internal/storage"
)

// Event kinds published after successful operations.
const (
	EventContactCreated = "contact.created"
	EventMeetingCreated = "meeting.created"
	EventNotesAdded     = "meeting.notes_added"
	EventCompleted      = "meeting.completed"
	EventFlushed        = "store.flushed"
	EventReloaded       = "store.reloaded"
)

// Publisher receives change notifications.
type Publisher interface {
	PublishChange(kind string, data any)
}

// fileTracker is implemented by providers that know which bytes they last
// read or wrote.
type fileTracker interface {
	Path() string
	LastChecksum() string
}

// Service guards a contactbook.Store with a single mutex.
type Service struct {
	mu       sync.Mutex
	book     *contactbook.Store
	dirty    bool
	provider storage.Provider
	pub      Publisher
	logger   *slog.Logger
}

// New wraps book. provider receives Flush and serves Reload.
func New(book *contactbook.Store, provider storage.Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{book: book, provider: provider, logger: logger}
}

// SetPublisher installs the change notification sink. Must be called before
// the service is shared.
func (s *Service) SetPublisher(p Publisher) {
	s.pub = p
}

func (s *Service) publish(kind string, data any) {
	if s.pub != nil {
		s.pub.PublishChange(kind, data)
	}
}

// AddContact creates a contact.
func (s *Service) AddContact(_ context.Context, name, notes string) (models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.book.AddContact(name, notes)
	if err != nil {
		return models.Contact{}, err
	}
	s.dirty = true
	c, err := s.book.GetContactsByID(id)
	if err != nil {
		return models.Contact{}, err
	}
	s.publish(EventContactCreated, c[0])
	return c[0], nil
}

// Contacts lists every contact.
func (s *Service) Contacts(_ context.Context) []models.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Contacts()
}

// GetContactsByID returns the contacts with the given ids.
func (s *Service) GetContactsByID(_ context.Context, ids ...int) ([]models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.GetContactsByID(ids...)
}

// GetContactsByName returns contacts whose name contains text.
func (s *Service) GetContactsByName(_ context.Context, text string) ([]models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.GetContactsByName(text)
}

// AddFutureMeeting schedules a meeting.
func (s *Service) AddFutureMeeting(_ context.Context, contactIDs []int, date time.Time) (models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.book.AddFutureMeeting(contactIDs, date)
	if err != nil {
		return models.Meeting{}, err
	}
	return s.created(id)
}

// AddPastMeeting records a meeting that already happened.
func (s *Service) AddPastMeeting(_ context.Context, contactIDs []int, date time.Time, notes string) (models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.book.AddPastMeeting(contactIDs, date, notes)
	if err != nil {
		return models.Meeting{}, err
	}
	return s.created(id)
}

func (s *Service) created(id int) (models.Meeting, error) {
	s.dirty = true
	m, err := s.book.GetMeeting(id)
	if err != nil {
		return models.Meeting{}, err
	}
	s.publish(EventMeetingCreated, m)
	return m, nil
}

// GetMeeting returns any meeting by id.
func (s *Service) GetMeeting(_ context.Context, id int) (models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.GetMeeting(id)
}

// GetFutureMeeting returns a future meeting by id.
func (s *Service) GetFutureMeeting(_ context.Context, id int) (models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.GetFutureMeeting(id)
}

// GetPastMeeting returns a past meeting by id.
func (s *Service) GetPastMeeting(_ context.Context, id int) (models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.GetPastMeeting(id)
}

// AddMeetingNotes appends notes, completing an elapsed future meeting.
func (s *Service) AddMeetingNotes(_ context.Context, id int, text string) (models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wasFuture := false
	if m, err := s.book.GetMeeting(id); err == nil {
		wasFuture = m.IsFuture()
	}
	m, err := s.book.AddMeetingNotes(id, text)
	if err != nil {
		return models.Meeting{}, err
	}
	s.dirty = true
	if wasFuture {
		s.logger.Info("meeting completed", slog.Int("id", id))
		s.publish(EventCompleted, m)
	} else {
		s.publish(EventNotesAdded, m)
	}
	return m, nil
}

// GetFutureMeetingsForContact lists a contact's future meetings.
func (s *Service) GetFutureMeetingsForContact(_ context.Context, contactID int) ([]models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.GetFutureMeetingsForContact(contactID)
}

// GetPastMeetingsForContact lists a contact's past meetings.
func (s *Service) GetPastMeetingsForContact(_ context.Context, contactID int) ([]models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.GetPastMeetingsForContact(contactID)
}

// GetMeetingsOnDate lists every meeting held on the day of date.
func (s *Service) GetMeetingsOnDate(_ context.Context, date time.Time) []models.Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.GetMeetingsOnDate(date)
}

// Stats returns record counts.
func (s *Service) Stats(_ context.Context) contactbook.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Stats()
}

// Dirty reports whether there are changes not yet flushed.
func (s *Service) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Flush writes the current snapshot through the provider. A failed save
// leaves the in-memory state untouched.
func (s *Service) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	if err := s.provider.Save(s.book.Snapshot()); err != nil {
		s.logger.Error("flush failed", slog.String("error", err.Error()))
		return fmt.Errorf("contactservice: flush: %w", err)
	}
	s.dirty = false
	stats := s.book.Stats()
	s.logger.Info("flushed",
		slog.Int("contacts", stats.Contacts),
		slog.Int("past_meetings", stats.PastMeetings),
		slog.Int("future_meetings", stats.FutureMeetings),
		slog.Duration("took", time.Since(start)),
	)
	s.publish(EventFlushed, stats)
	return nil
}

// Reload replaces the in-memory state with the provider's data. On failure
// the current state is kept.
func (s *Service) Reload(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked()
}

func (s *Service) reloadLocked() error {
	snap, err := s.provider.Load()
	if err != nil {
		s.logger.Error("reload failed", slog.String("error", err.Error()))
		return fmt.Errorf("contactservice: reload: %w", err)
	}
	if err := s.book.Restore(snap); err != nil {
		s.logger.Error("reload rejected", slog.String("error", err.Error()))
		return fmt.Errorf("contactservice: reload: %w", err)
	}
	s.dirty = false
	stats := s.book.Stats()
	s.logger.Info("reloaded", slog.Int("contacts", stats.Contacts))
	s.publish(EventReloaded, stats)
	return nil
}

// HandleFileChange reacts to a change of the backing file. It reloads only
// when the file content differs from what the provider last read or wrote,
// so the service's own saves are ignored. Unflushed changes are kept.
func (s *Service) HandleFileChange(ctx context.Context) error {
	ft, ok := s.provider.(fileTracker)
	if !ok {
		return nil
	}
	sum, err := checksum.File(ft.Path())
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("data file removed; keeping in-memory state", slog.String("path", ft.Path()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("contactservice: read %s: %w", ft.Path(), err)
	}
	if sum == ft.LastChecksum() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		s.logger.Warn("data file changed externally; keeping unflushed changes", slog.String("path", ft.Path()))
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return s.reloadLocked()
}
