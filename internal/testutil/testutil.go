// Package testutil provides shared test helpers for setting up data files,
// databases and services.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/rolodex/internal/contactbook"
	"github.com/starford/rolodex/internal/contactservice"
	"github.com/starford/rolodex/internal/sqlitestore"
	"github.com/starford/rolodex/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *sqlitestore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "rolodex-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := sqlitestore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestFile creates a file provider for a data file inside a temporary
// directory. The file itself is not created.
func TestFile(t *testing.T) *storage.File {
	t.Helper()
	f, err := storage.NewFile(filepath.Join(t.TempDir(), "contacts.txt"))
	if err != nil {
		t.Fatal(err)
	}
	return f
}

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Clock is a settable evaluation instant safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock fixed at a minute-aligned local instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 5, 14, 12, 0, 0, 0, time.Local)}
}

// Now returns the current instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TestService builds a service over an empty file-backed store driven by
// the returned clock.
func TestService(t *testing.T) (*contactservice.Service, *storage.File, *Clock) {
	t.Helper()
	clock := NewClock()
	file := TestFile(t)
	book, err := contactbook.Open(file, contactbook.WithClock(clock.Now))
	if err != nil {
		t.Fatal(err)
	}
	return contactservice.New(book, file, Logger()), file, clock
}
