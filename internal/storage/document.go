package storage

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/rolodex/internal/models"
	"github.com/starford/rolodex/internal/parser"
)

// document is the tree written to disk. The XML form uses the
// ContactManagerData element layout so existing contacts.txt files load.
type document struct {
	XMLName  xml.Name        `xml:"ContactManagerData" yaml:"-"`
	Contacts []contactRecord `xml:"Contacts>contact" yaml:"contacts"`
	Past     []meetingRecord `xml:"PastMeetings>meeting" yaml:"past_meetings"`
	Future   []meetingRecord `xml:"FutureMeetings>meeting" yaml:"future_meetings"`
}

type contactRecord struct {
	ID    int    `xml:"id,attr" yaml:"id"`
	Name  string `xml:"name" yaml:"name"`
	Notes string `xml:"notes" yaml:"notes"`
}

type meetingRecord struct {
	ID           int              `xml:"id,attr" yaml:"id"`
	Date         string           `xml:"date" yaml:"date"`
	Participants []participantRef `xml:"contacts>contact" yaml:"contacts"`
	Notes        string           `xml:"notes,omitempty" yaml:"notes,omitempty"`
}

type participantRef struct {
	ID int `xml:"id,attr" yaml:"id"`
}

type codec interface {
	encode(doc *document) ([]byte, error)
	decode(data []byte, doc *document) error
}

type xmlCodec struct{}

func (xmlCodec) encode(doc *document) ([]byte, error) {
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(out)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func (xmlCodec) decode(data []byte, doc *document) error {
	return xml.Unmarshal(data, doc)
}

type yamlCodec struct{}

func (yamlCodec) encode(doc *document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (yamlCodec) decode(data []byte, doc *document) error {
	return yaml.Unmarshal(data, doc)
}

// codecFor picks YAML for .yaml/.yml files and XML for everything else.
func codecFor(path string) codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlCodec{}
	default:
		return xmlCodec{}
	}
}

func toDocument(s *Snapshot) *document {
	doc := &document{
		Contacts: make([]contactRecord, 0, len(s.Contacts)),
		Past:     make([]meetingRecord, 0, len(s.Past)),
		Future:   make([]meetingRecord, 0, len(s.Future)),
	}
	for _, c := range s.Contacts {
		doc.Contacts = append(doc.Contacts, contactRecord{ID: c.ID, Name: c.Name, Notes: c.Notes})
	}
	for _, m := range s.Past {
		doc.Past = append(doc.Past, toMeetingRecord(m))
	}
	for _, m := range s.Future {
		doc.Future = append(doc.Future, toMeetingRecord(m))
	}
	return doc
}

func toMeetingRecord(m *models.Meeting) meetingRecord {
	rec := meetingRecord{
		ID:           m.ID,
		Date:         parser.FormatDate(m.Date),
		Participants: make([]participantRef, len(m.Participants)),
	}
	for i, c := range m.Participants {
		rec.Participants[i] = participantRef{ID: c.ID}
	}
	if m.IsPast() {
		rec.Notes = m.Notes
	}
	return rec
}

// fromDocument rebuilds a snapshot, resolving participant references by id.
func fromDocument(doc *document) (*Snapshot, error) {
	s := &Snapshot{}
	byID := make(map[int]*models.Contact, len(doc.Contacts))
	for _, rec := range doc.Contacts {
		if _, dup := byID[rec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate contact id %d", ErrMalformed, rec.ID)
		}
		c := models.NewContact(rec.ID, rec.Name, rec.Notes)
		byID[rec.ID] = c
		s.Contacts = append(s.Contacts, c)
	}

	seen := make(map[int]struct{}, len(doc.Past)+len(doc.Future))
	build := func(rec meetingRecord, status models.Status) (*models.Meeting, error) {
		if _, dup := seen[rec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate meeting id %d", ErrMalformed, rec.ID)
		}
		seen[rec.ID] = struct{}{}
		date, err := parser.ParseDate(rec.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: meeting %d: %v", ErrMalformed, rec.ID, err)
		}
		if len(rec.Participants) == 0 {
			return nil, fmt.Errorf("%w: meeting %d has no participants", ErrMalformed, rec.ID)
		}
		participants := make([]*models.Contact, 0, len(rec.Participants))
		for _, ref := range rec.Participants {
			c, ok := byID[ref.ID]
			if !ok {
				return nil, fmt.Errorf("%w: meeting %d references unknown contact %d", ErrMalformed, rec.ID, ref.ID)
			}
			participants = append(participants, c)
		}
		if status == models.StatusPast {
			return models.NewPastMeeting(rec.ID, participants, date, rec.Notes), nil
		}
		return models.NewFutureMeeting(rec.ID, participants, date), nil
	}

	for _, rec := range doc.Past {
		m, err := build(rec, models.StatusPast)
		if err != nil {
			return nil, err
		}
		s.Past = append(s.Past, m)
	}
	for _, rec := range doc.Future {
		m, err := build(rec, models.StatusFuture)
		if err != nil {
			return nil, err
		}
		s.Future = append(s.Future, m)
	}
	return s, nil
}
