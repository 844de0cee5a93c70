// Package parser converts the textual forms of dates and id lists used by the
// data file, the HTTP API and the MCP tools.
package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the on-disk date form, dd/MM/yyyy HH:mm.
const DateLayout = "02/01/2006 15:04"

// FormatDate renders t with DateLayout. Seconds and below are dropped.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a DateLayout string in the local time zone.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parser: date %q (want dd/MM/yyyy HH:mm): %w", s, err)
	}
	return t, nil
}

// ParseTimestamp accepts RFC 3339 or DateLayout.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return ParseDate(s)
}

// ParseDay accepts a calendar day (yyyy-MM-dd) or any form ParseTimestamp
// understands. Days are interpreted in the local time zone.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, nil
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parser: day %q: %w", s, err)
	}
	return t, nil
}

// ParseIDs parses a comma separated list such as "1, 2,3". Empty elements
// are skipped.
func ParseIDs(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("parser: id %q: %w", part, err)
		}
		out = append(out, id)
	}
	return out, nil
}
