package models

import (
	"fmt"
	"sort"
)

// SeatSlot is one numbered seat within a (day, time range) slot.
type SeatSlot struct {
	Day       Weekday
	TimeRange TimeRange
	Seat      int
}

// LockKey identifies the slot for transaction-scoped locking.
func (s SeatSlot) LockKey() string {
	return fmt.Sprintf("seat:%s|%s|%d", s.Day, s.TimeRange, s.Seat)
}

// SlotsFor expands an enrollment pattern into the seat slots it would occupy.
func SlotsFor(pattern EnrollmentPattern, seat int) []SeatSlot {
	if seat <= 0 {
		return nil
	}
	slots := make([]SeatSlot, 0, len(pattern.Days))
	for _, day := range pattern.Days {
		tr, ok := pattern.TimeFor(day)
		if !ok {
			continue
		}
		slots = append(slots, SeatSlot{Day: day, TimeRange: tr, Seat: seat})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].LockKey() < slots[j].LockKey() })
	return slots
}

// OccupiedSeats returns the sorted seat numbers held by active recurring enrollments in the slot.
func OccupiedSeats(enrollments []Enrollment, day Weekday, tr TimeRange) []int {
	seen := make(map[int]struct{})
	seats := make([]int, 0)
	for _, e := range enrollments {
		if !e.HoldsSeat() {
			continue
		}
		seat := e.SeatNumber()
		if !e.Pattern().Holds(day, tr) {
			continue
		}
		if _, dup := seen[seat]; dup {
			continue
		}
		seen[seat] = struct{}{}
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	return seats
}

// SeatHolder returns the active enrollment already holding slot, if any.
func SeatHolder(enrollments []Enrollment, slot SeatSlot) (*Enrollment, bool) {
	for i := range enrollments {
		e := enrollments[i]
		if e.HoldsSeat() && e.SeatNumber() == slot.Seat && e.Pattern().Holds(slot.Day, slot.TimeRange) {
			return &enrollments[i], true
		}
	}
	return nil, false
}

// SeatConflictError is returned when a reservation collides with an existing holder.
type SeatConflictError struct {
	Slot         SeatSlot
	EnrollmentID string
}

// Error implements the error interface.
func (e *SeatConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("seat %d already taken for %s %s", e.Slot.Seat, e.Slot.Day, e.Slot.TimeRange)
}
