// Package models defines the domain types for the contact manager.
package models

const notesSeparator = "\n"

// Contact is a known business relation. ID and Name never change after
// creation; Notes only grow through AddNotes.
type Contact struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

// NewContact returns a contact with the given initial notes (may be empty).
func NewContact(id int, name, notes string) *Contact {
	return &Contact{ID: id, Name: name, Notes: notes}
}

// AddNotes appends text, separating it from earlier notes with a newline.
func (c *Contact) AddNotes(text string) {
	c.Notes = appendNotes(c.Notes, text)
}

// Equal reports whether both contacts have the same id, name and notes.
func (c Contact) Equal(o Contact) bool {
	return c.ID == o.ID && c.Name == o.Name && c.Notes == o.Notes
}

func appendNotes(existing, text string) string {
	if existing == "" {
		return text
	}
	return existing + notesSeparator + text
}
