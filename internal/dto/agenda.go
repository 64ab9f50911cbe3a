package dto

import "time"

// AgendaItemType distinguishes classes from placement appointments.
type AgendaItemType string

const (
	AgendaItemClass     AgendaItemType = "CLASE"
	AgendaItemPlacement AgendaItemType = "CITA_NIVELACION"
)

// AgendaResponse is the grouped, time-ordered agenda for a window.
type AgendaResponse struct {
	From  string       `json:"from"`
	To    string       `json:"to"`
	Days  []AgendaDay  `json:"days"`
	Today AgendaCounts `json:"today"`
	Total int          `json:"total"`
}

// AgendaDay groups the items of one calendar date.
type AgendaDay struct {
	Date   string       `json:"date"`
	Day    string       `json:"day"`
	Items  []AgendaItem `json:"items"`
	Counts AgendaCounts `json:"counts"`
}

// AgendaCounts tallies items per category.
type AgendaCounts struct {
	Classes      int `json:"classes"`
	Appointments int `json:"appointments"`
}

// AgendaItem is a single class or appointment slot.
type AgendaItem struct {
	ID            string           `json:"id"`
	Type          AgendaItemType   `json:"type"`
	Title         string           `json:"title"`
	Start         time.Time        `json:"start"`
	End           time.Time        `json:"end"`
	TimeRange     string           `json:"timeRange,omitempty"`
	WorkshopID    string           `json:"workshopId,omitempty"`
	EnrollmentID  string           `json:"enrollmentId,omitempty"`
	AppointmentID string           `json:"appointmentId,omitempty"`
	Attendees     []AgendaAttendee `json:"attendees"`
	Note          string           `json:"note,omitempty"`
}

// AgendaAttendee is a student attending an agenda item.
type AgendaAttendee struct {
	StudentID    string `json:"studentId"`
	StudentName  string `json:"studentName"`
	Seat         int    `json:"seat,omitempty"`
	EnrollmentID string `json:"enrollmentId,omitempty"`
}
