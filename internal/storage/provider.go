// Package storage persists whole-dataset snapshots of contacts and meetings.
package storage

import (
	"errors"

	"github.com/starford/rolodex/internal/models"
)

// ErrMalformed reports a data file whose content cannot be turned back into a
// consistent snapshot.
var ErrMalformed = errors.New("malformed data")

// Snapshot is the raw content of the store: every contact plus the past and
// future meeting collections. Meeting participants point at entries of
// Contacts.
type Snapshot struct {
	Contacts []*models.Contact
	Past     []*models.Meeting
	Future   []*models.Meeting
}

// Provider loads and saves snapshots.
type Provider interface {
	// Load returns the stored snapshot. A missing backing store is reported
	// with an error matching fs.ErrNotExist.
	Load() (*Snapshot, error)
	// Save replaces the stored snapshot.
	Save(s *Snapshot) error
}
