package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/rolodex/internal/models"
)

func tempFile(t *testing.T, name string) *File {
	t.Helper()
	f, err := NewFile(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	return f
}

func sampleSnapshot() *Snapshot {
	alice := models.NewContact(0, "Alice", "")
	bob := models.NewContact(1, "Bob", "met at <conf> & dinner")
	bob.AddNotes("second line")
	past := models.NewPastMeeting(0, []*models.Contact{alice, bob},
		time.Date(2001, 3, 4, 9, 30, 0, 0, time.Local), "signed")
	future := models.NewFutureMeeting(1, []*models.Contact{bob},
		time.Date(2099, 12, 31, 23, 59, 0, 0, time.Local))
	return &Snapshot{
		Contacts: []*models.Contact{alice, bob},
		Past:     []*models.Meeting{past},
		Future:   []*models.Meeting{future},
	}
}

func assertSnapshotEqual(t *testing.T, want, got *Snapshot) {
	t.Helper()
	if len(got.Contacts) != len(want.Contacts) {
		t.Fatalf("contacts = %d, want %d", len(got.Contacts), len(want.Contacts))
	}
	for i := range want.Contacts {
		if !got.Contacts[i].Equal(*want.Contacts[i]) {
			t.Errorf("contact %d = %+v, want %+v", i, *got.Contacts[i], *want.Contacts[i])
		}
	}
	for _, pair := range []struct{ want, got []*models.Meeting }{
		{want.Past, got.Past},
		{want.Future, got.Future},
	} {
		if len(pair.got) != len(pair.want) {
			t.Fatalf("meetings = %d, want %d", len(pair.got), len(pair.want))
		}
		for i := range pair.want {
			if !pair.got[i].Equal(*pair.want[i]) {
				t.Errorf("meeting %d = %+v, want %+v", pair.want[i].ID, *pair.got[i], *pair.want[i])
			}
		}
	}
}

func TestRoundTripXML(t *testing.T) {
	f := tempFile(t, "contacts.txt")
	want := sampleSnapshot()
	if err := f.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, _ := os.ReadFile(f.Path())
	if !strings.Contains(string(data), "<ContactManagerData>") {
		t.Errorf("xml root missing:\n%s", data)
	}
	if !strings.Contains(string(data), "<date>04/03/2001 09:30</date>") {
		t.Errorf("date not in dd/MM/yyyy HH:mm form:\n%s", data)
	}

	got, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertSnapshotEqual(t, want, got)
}

func TestRoundTripYAML(t *testing.T) {
	f := tempFile(t, "contacts.yaml")
	want := sampleSnapshot()
	if err := f.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, _ := os.ReadFile(f.Path())
	if !strings.Contains(string(data), "past_meetings:") {
		t.Errorf("yaml keys missing:\n%s", data)
	}
	got, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertSnapshotEqual(t, want, got)
}

func TestLoadResolvesSharedContacts(t *testing.T) {
	f := tempFile(t, "contacts.txt")
	if err := f.Save(sampleSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	bob := got.Contacts[1]
	if got.Past[0].Participants[1] != bob || got.Future[0].Participants[0] != bob {
		t.Error("meeting participants should reference the loaded contacts")
	}
}

func TestLoadMissingFile(t *testing.T) {
	f := tempFile(t, "absent.txt")
	_, err := f.Load()
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestLoadMalformed(t *testing.T) {
	cases := map[string]string{
		"garbage.txt": "this is not a document",
		"empty.txt":   "",
		"wrongroot.txt": `<Other></Other>`,
		"baddate.txt": `<ContactManagerData><Contacts><contact id="0"><name>A</name><notes></notes></contact></Contacts>` +
			`<PastMeetings><meeting id="0"><date>yesterday</date><contacts><contact id="0"/></contacts></meeting></PastMeetings></ContactManagerData>`,
		"unknown.txt": `<ContactManagerData><Contacts></Contacts><FutureMeetings><meeting id="0"><date>01/01/2099 10:00</date>` +
			`<contacts><contact id="7"/></contacts></meeting></FutureMeetings></ContactManagerData>`,
		"dupmeeting.txt": `<ContactManagerData><Contacts><contact id="0"><name>A</name><notes></notes></contact></Contacts>` +
			`<PastMeetings><meeting id="3"><date>01/01/2000 10:00</date><contacts><contact id="0"/></contacts></meeting></PastMeetings>` +
			`<FutureMeetings><meeting id="3"><date>01/01/2099 10:00</date><contacts><contact id="0"/></contacts></meeting></FutureMeetings></ContactManagerData>`,
		"noparticipants.txt": `<ContactManagerData><FutureMeetings><meeting id="0"><date>01/01/2099 10:00</date>` +
			`<contacts></contacts></meeting></FutureMeetings></ContactManagerData>`,
		"bad.yaml": "contacts: {{{",
	}
	dir := t.TempDir()
	for name, content := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		f, err := NewFile(path)
		if err != nil {
			t.Fatalf("NewFile: %v", err)
		}
		if _, err := f.Load(); !errors.Is(err, ErrMalformed) {
			t.Errorf("%s: err = %v, want ErrMalformed", name, err)
		}
	}
}

func TestSaveNoLeftoverTemp(t *testing.T) {
	f := tempFile(t, "contacts.txt")
	if err := f.Save(sampleSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := f.Save(&Snapshot{}); err != nil {
		t.Fatalf("Save empty: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(f.Path()), ".rolodex-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
	got, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Contacts) != 0 || len(got.Past) != 0 || len(got.Future) != 0 {
		t.Errorf("expected empty snapshot, got %+v", got)
	}
}

func TestChecksumTracksSaveAndLoad(t *testing.T) {
	f := tempFile(t, "contacts.txt")
	if f.LastChecksum() != "" {
		t.Fatal("checksum should be empty before any IO")
	}
	if err := f.Save(sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	saved := f.LastChecksum()
	if saved == "" {
		t.Fatal("checksum not recorded on save")
	}
	if _, err := f.Load(); err != nil {
		t.Fatal(err)
	}
	if f.LastChecksum() != saved {
		t.Error("load of unchanged file should keep the checksum")
	}
}

func TestNewFile_Directory(t *testing.T) {
	if _, err := NewFile(t.TempDir()); err == nil {
		t.Error("expected error when data path is a directory")
	}
}

func TestWatch_ExternalWrite(t *testing.T) {
	f := tempFile(t, "contacts.txt")
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go Watch(ctx, f.Path(), logger, func() { calls.Add(1) })
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(filepath.Dir(f.Path()), "other.txt"), []byte("x"), 0o644)
	_ = os.WriteFile(f.Path(), []byte("<ContactManagerData/>"), 0o644)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && calls.Load() == 0 {
		time.Sleep(50 * time.Millisecond)
	}
	if calls.Load() == 0 {
		t.Fatal("onChange not called for data file write")
	}
}
