package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/rolodex/internal/models"
	"github.com/starford/rolodex/internal/parser"
)

// CreateContactRequest is the request body for creating a contact.
type CreateContactRequest struct {
	Name  string `json:"name" example:"Alice" validate:"required"`
	Notes string `json:"notes" example:"met at the expo"`
}

// Validate checks required fields.
func (r CreateContactRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
	)
}

// CreateMeetingRequest is the request body for creating a future or past
// meeting. Notes are only used for past meetings.
type CreateMeetingRequest struct {
	ContactIDs []int  `json:"contact_ids" example:"0,1" validate:"required"`
	Date       string `json:"date" example:"24/12/2030 10:00" validate:"required"`
	Notes      string `json:"notes,omitempty" example:"signed the contract"`
}

// Validate checks that participants and a parseable date are present.
func (r CreateMeetingRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ContactIDs, validation.Required),
		validation.Field(&r.Date, validation.Required, validation.By(timestamp)),
	)
}

// When returns the parsed meeting date.
func (r CreateMeetingRequest) When() (time.Time, error) {
	return parser.ParseTimestamp(r.Date)
}

// AddNotesRequest is the request body for adding meeting notes.
type AddNotesRequest struct {
	Text string `json:"text" example:"follow-up sent" validate:"required"`
}

// Validate checks required fields.
func (r AddNotesRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Required),
	)
}

func timestamp(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, err := parser.ParseTimestamp(s)
	return err
}

// Contact is the contact response type (aliased from the domain layer).
type Contact = models.Contact

// Meeting is the meeting response type (aliased from the domain layer).
type Meeting = models.Meeting

// ContactListResponse wraps contact listings.
type ContactListResponse struct {
	Contacts []Contact `json:"contacts" validate:"required"`
}

// MeetingListResponse wraps meeting listings.
type MeetingListResponse struct {
	Meetings []Meeting `json:"meetings" validate:"required"`
}

// FlushResponse reports what was written on flush.
type FlushResponse struct {
	Contacts       int `json:"contacts" example:"2"`
	PastMeetings   int `json:"past_meetings" example:"1"`
	FutureMeetings int `json:"future_meetings" example:"3"`
}
