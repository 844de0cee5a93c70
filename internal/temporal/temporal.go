// Package temporal classifies timestamps against an evaluation instant and
// orders meetings chronologically.
package temporal

import (
	"cmp"
	"time"

	"github.com/starford/rolodex/internal/models"
)

// Precision is the finest resolution a meeting date keeps. The data file
// stores dates to the minute.
const Precision = time.Minute

// Clock returns the evaluation instant. Callers read it once per operation.
type Clock func() time.Time

// SystemClock reads the wall clock.
func SystemClock() time.Time { return time.Now() }

// Truncate rounds t down to Precision.
func Truncate(t time.Time) time.Time { return t.Truncate(Precision) }

// IsFuture reports whether t is strictly after now.
func IsFuture(t, now time.Time) bool { return t.After(now) }

// IsPast reports whether t is strictly before now. A timestamp equal to now
// is neither past nor future.
func IsPast(t, now time.Time) bool { return t.Before(now) }

// Compare orders meetings by date, then by ascending id.
func Compare(a, b *models.Meeting) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// DayKey returns the calendar day of t in its own location.
func DayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
