package model

import (
	"fmt"
	"regexp"
	"sort"
	"time"
)

// DateFormat is the canonical calendar-date layout used across the engine.
const DateFormat = "2006-01-02"

// slotPattern matches zero-padded 24-hour HH:MM strings.
var slotPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// DateKey identifies one calendar day as a canonical YYYY-MM-DD string.
// Two dates are the same day iff their DateKeys are equal.
type DateKey string

// NewDateKey strips the time-of-day component and returns the canonical key.
func NewDateKey(t time.Time) DateKey {
	return DateKey(t.Format(DateFormat))
}

// ParseDateKey validates a YYYY-MM-DD string and returns it as a DateKey.
func ParseDateKey(s string) (DateKey, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q; expected YYYY-MM-DD", s)
	}
	// Round-trip guards against unpadded inputs that time.Parse accepts.
	if t.Format(DateFormat) != s {
		return "", fmt.Errorf("invalid date %q; expected YYYY-MM-DD", s)
	}
	return DateKey(s), nil
}

// Time returns the start of the day in UTC.
func (d DateKey) Time() time.Time {
	t, _ := time.Parse(DateFormat, string(d))
	return t
}

// Weekday returns the weekday index, 0=Sunday through 6=Saturday.
func (d DateKey) Weekday() int {
	return int(d.Time().Weekday())
}

// Before reports whether d falls on an earlier calendar day than other.
// Lexicographic comparison is chronological for the canonical layout.
func (d DateKey) Before(other DateKey) bool {
	return d < other
}

// ValidSlot reports whether s is a zero-padded HH:MM time slot with
// hour in [00,23] and minute in [00,59].
func ValidSlot(s string) bool {
	return slotPattern.MatchString(s)
}

// SortSlots returns a sorted copy of slots. Lexicographic order is
// chronological for HH:MM strings.
func SortSlots(slots []string) []string {
	out := make([]string, len(slots))
	copy(out, slots)
	sort.Strings(out)
	return out
}
