package models

import "time"

// Occurrence is one concrete dated instance of a recurring class.
type Occurrence struct {
	ID           string    `json:"id"`
	EnrollmentID string    `json:"enrollment_id"`
	StudentID    string    `json:"student_id"`
	StudentName  string    `json:"student_name,omitempty"`
	WorkshopID   string    `json:"workshop_id"`
	Title        string    `json:"title"`
	Day          Weekday   `json:"day"`
	Date         DateKey   `json:"date"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	TimeRange    string    `json:"time_range"`
	Seat         int       `json:"seat"`
	Regime       string    `json:"regime"`
}

// Window is an inclusive calendar-date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t's calendar date lies inside the window.
func (w Window) Contains(t time.Time) bool {
	day := DateKeyOf(t)
	return day >= DateKeyOf(w.Start) && day <= DateKeyOf(w.End)
}

// Days lists every calendar date of the window at midnight in the window's location.
func (w Window) Days() []time.Time {
	start := StartOfDay(w.Start)
	end := StartOfDay(w.End.In(w.Start.Location()))
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
