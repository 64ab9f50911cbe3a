package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage layout for calendar dates.
const DateLayout = "2006-01-02"

// normalizedHour is the fixed hour stored for day-granularity timestamps so
// that timezone shifts never move the value across a date boundary.
const normalizedHour = 12

// DateKey identifies a calendar date independent of time-of-day.
type DateKey string

// DateKeyOf returns the calendar date of t in t's location.
func DateKeyOf(t time.Time) DateKey {
	return DateKey(t.Format(DateLayout))
}

// ParseDate parses "YYYY-MM-DD" in loc and normalizes it to the fixed hour.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return NormalizeDate(t), nil
}

// NormalizeDate keeps the calendar date of t and pins the clock to the fixed hour.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, normalizedHour, 0, 0, 0, t.Location())
}

// StartOfDay returns midnight of t's calendar date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayRange returns the half-open [midnight, next midnight) interval for t's date.
func DayRange(t time.Time) (time.Time, time.Time) {
	start := StartOfDay(t)
	return start, start.AddDate(0, 0, 1)
}

// DateSet is a set of calendar dates.
type DateSet map[DateKey]string

// Contains reports whether t's calendar date is in the set.
func (s DateSet) Contains(t time.Time) bool {
	if s == nil {
		return false
	}
	_, ok := s[DateKeyOf(t)]
	return ok
}

// Reason returns the stored reason for t's date, if any.
func (s DateSet) Reason(t time.Time) (string, bool) {
	if s == nil {
		return "", false
	}
	reason, ok := s[DateKeyOf(t)]
	return reason, ok
}
