package parser

import (
	"testing"
	"time"
)

func TestFormatAndParseDate(t *testing.T) {
	ts := time.Date(2031, time.February, 3, 14, 5, 59, 0, time.Local)
	s := FormatDate(ts)
	if s != "03/02/2031 14:05" {
		t.Fatalf("FormatDate = %q", s)
	}
	got, err := ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !got.Equal(ts.Truncate(time.Minute)) {
		t.Errorf("ParseDate = %v, want %v", got, ts.Truncate(time.Minute))
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, s := range []string{"", "2031-02-03", "31/13/2031 10:00", "03/02/31 10:00"} {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestParseTimestamp_RFC3339(t *testing.T) {
	got, err := ParseTimestamp("2030-01-02T03:04:05Z")
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	if !got.Equal(time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("got %v", got)
	}
}

func TestParseDay(t *testing.T) {
	got, err := ParseDay("2030-07-14")
	if err != nil {
		t.Fatalf("ParseDay: %v", err)
	}
	if got.Year() != 2030 || got.Month() != time.July || got.Day() != 14 {
		t.Errorf("ParseDay = %v", got)
	}
	if _, err := ParseDay("14/07/2030 09:30"); err != nil {
		t.Errorf("ParseDay date-time form: %v", err)
	}
	if _, err := ParseDay("tomorrow"); err == nil {
		t.Error("expected error for free text")
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := ParseIDs(" 3, 1,,2 ")
	if err != nil {
		t.Fatalf("ParseIDs: %v", err)
	}
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 1 || ids[2] != 2 {
		t.Errorf("ids = %v, want [3 1 2]", ids)
	}
	if _, err := ParseIDs("1,x"); err == nil {
		t.Error("expected error for non-numeric id")
	}
	ids, _ = ParseIDs("")
	if len(ids) != 0 {
		t.Errorf("empty input gave %v", ids)
	}
}
