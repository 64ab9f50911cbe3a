package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeRange is a wall-clock interval within a day, stored as minutes after midnight.
type TimeRange struct {
	Start int
	End   int
}

// ParseTimeRange accepts "16:00-17:20" (spaces and en-dashes tolerated).
func ParseTimeRange(raw string) (TimeRange, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), "–", "-")
	parts := strings.Split(cleaned, "-")
	if len(parts) != 2 {
		return TimeRange{}, fmt.Errorf("invalid time range %q", raw)
	}
	start, err := parseClock(parts[0])
	if err != nil {
		return TimeRange{}, fmt.Errorf("invalid time range %q: %w", raw, err)
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return TimeRange{}, fmt.Errorf("invalid time range %q: %w", raw, err)
	}
	if end <= start {
		return TimeRange{}, fmt.Errorf("invalid time range %q: end must be after start", raw)
	}
	return TimeRange{Start: start, End: end}, nil
}

// ParseTimeRanges splits per-day segments separated by "/", skipping malformed ones.
func ParseTimeRanges(raw string) []TimeRange {
	segments, valid := ParseTimeRangeSegments(raw)
	ranges := make([]TimeRange, 0, len(segments))
	for i, tr := range segments {
		if valid[i] {
			ranges = append(ranges, tr)
		}
	}
	return ranges
}

// ParseTimeRangeSegments keeps one entry per "/" segment; valid[i] is false where segment i is malformed.
func ParseTimeRangeSegments(raw string) ([]TimeRange, []bool) {
	parts := strings.Split(raw, "/")
	segments := make([]TimeRange, len(parts))
	valid := make([]bool, len(parts))
	for i, part := range parts {
		tr, err := ParseTimeRange(part)
		if err != nil {
			continue
		}
		segments[i], valid[i] = tr, true
	}
	return segments, valid
}

func parseClock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	hh, mm, ok := strings.Cut(raw, ":")
	if !ok {
		return 0, fmt.Errorf("clock %q must be HH:MM", raw)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("clock %q has invalid hour", raw)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q has invalid minute", raw)
	}
	return h*60 + m, nil
}

// String renders the canonical "HH:MM-HH:MM" form.
func (r TimeRange) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", r.Start/60, r.Start%60, r.End/60, r.End%60)
}

// IsZero reports whether the range is unset.
func (r TimeRange) IsZero() bool {
	return r.Start == 0 && r.End == 0
}

// Duration is the length of the range.
func (r TimeRange) Duration() time.Duration {
	return time.Duration(r.End-r.Start) * time.Minute
}

// On anchors the range to the calendar date of day, in day's location.
func (r TimeRange) On(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	loc := day.Location()
	start := time.Date(y, m, d, r.Start/60, r.Start%60, 0, 0, loc)
	end := time.Date(y, m, d, r.End/60, r.End%60, 0, 0, loc)
	return start, end
}
