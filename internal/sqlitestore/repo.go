package sqlitestore

import (
	"fmt"
	"time"

	"github.com/starford/rolodex/internal/models"
	"github.com/starford/rolodex/internal/storage"
)

// Save replaces every stored row with the snapshot inside one transaction.
func (db *DB) Save(s *storage.Snapshot) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("sqlitestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, table := range []string{"participants", "meetings", "contacts"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("sqlitestore: clear %s: %w", table, err)
		}
	}

	contactStmt, err := tx.Prepare(`INSERT INTO contacts (id, name, notes) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlitestore: prepare contact insert: %w", err)
	}
	defer contactStmt.Close()
	for _, c := range s.Contacts {
		if _, err := contactStmt.Exec(c.ID, c.Name, c.Notes); err != nil {
			return fmt.Errorf("sqlitestore: insert contact %d: %w", c.ID, err)
		}
	}

	meetingStmt, err := tx.Prepare(`INSERT INTO meetings (id, status, date, notes) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlitestore: prepare meeting insert: %w", err)
	}
	defer meetingStmt.Close()
	partStmt, err := tx.Prepare(`INSERT OR IGNORE INTO participants (meeting_id, contact_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlitestore: prepare participant insert: %w", err)
	}
	defer partStmt.Close()

	insert := func(m *models.Meeting, status models.Status) error {
		notes := ""
		if status == models.StatusPast {
			notes = m.Notes
		}
		if _, err := meetingStmt.Exec(m.ID, status.String(), m.Date.UTC(), notes); err != nil {
			return fmt.Errorf("sqlitestore: insert meeting %d: %w", m.ID, err)
		}
		for _, c := range m.Participants {
			if _, err := partStmt.Exec(m.ID, c.ID); err != nil {
				return fmt.Errorf("sqlitestore: insert participant %d of meeting %d: %w", c.ID, m.ID, err)
			}
		}
		return nil
	}
	for _, m := range s.Past {
		if err := insert(m, models.StatusPast); err != nil {
			return err
		}
	}
	for _, m := range s.Future {
		if err := insert(m, models.StatusFuture); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Load reads every row back into a snapshot, resolving participants to the
// loaded contacts. An empty database yields an empty snapshot.
func (db *DB) Load() (*storage.Snapshot, error) {
	snap := &storage.Snapshot{}
	byID := make(map[int]*models.Contact)

	rows, err := db.conn.Query(`SELECT id, name, notes FROM contacts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list contacts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Notes); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan contact: %w", err)
		}
		byID[c.ID] = &c
		snap.Contacts = append(snap.Contacts, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	participants, err := db.participants()
	if err != nil {
		return nil, err
	}

	mrows, err := db.conn.Query(`SELECT id, status, date, notes FROM meetings ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list meetings: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var (
			id     int
			status string
			date   time.Time
			notes  string
		)
		if err := mrows.Scan(&id, &status, &date, &notes); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan meeting: %w", err)
		}
		ids := participants[id]
		if len(ids) == 0 {
			return nil, fmt.Errorf("%w: meeting %d has no participants", storage.ErrMalformed, id)
		}
		contacts := make([]*models.Contact, 0, len(ids))
		for _, cid := range ids {
			c, ok := byID[cid]
			if !ok {
				return nil, fmt.Errorf("%w: meeting %d references unknown contact %d", storage.ErrMalformed, id, cid)
			}
			contacts = append(contacts, c)
		}
		date = date.Local()
		if status == models.StatusPast.String() {
			snap.Past = append(snap.Past, models.NewPastMeeting(id, contacts, date, notes))
		} else {
			snap.Future = append(snap.Future, models.NewFutureMeeting(id, contacts, date))
		}
	}
	return snap, mrows.Err()
}

func (db *DB) participants() (map[int][]int, error) {
	rows, err := db.conn.Query(`SELECT meeting_id, contact_id FROM participants ORDER BY meeting_id, contact_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list participants: %w", err)
	}
	defer rows.Close()
	out := make(map[int][]int)
	for rows.Next() {
		var mid, cid int
		if err := rows.Scan(&mid, &cid); err != nil {
			return nil, err
		}
		out[mid] = append(out[mid], cid)
	}
	return out, rows.Err()
}
