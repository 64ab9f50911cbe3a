package models

import "time"

// PlacementStatus is the lifecycle of a placement appointment.
type PlacementStatus string

const (
	PlacementStatusPending   PlacementStatus = "PENDIENTE"
	PlacementStatusDone      PlacementStatus = "REALIZADA"
	PlacementStatusCancelled PlacementStatus = "CANCELADA"
)

// PlacementAppointment is a one-off trial/placement session.
type PlacementAppointment struct {
	ID          string          `db:"id" json:"id"`
	StudentID   string          `db:"student_id" json:"student_id"`
	ScheduledAt time.Time       `db:"scheduled_at" json:"scheduled_at"`
	Status      PlacementStatus `db:"status" json:"status"`
	Note        string          `db:"note" json:"note"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// PlacementDetail adds the student's name and owner for agenda rendering.
type PlacementDetail struct {
	PlacementAppointment
	StudentName   string `db:"student_name" json:"student_name"`
	StudentUserID string `db:"student_user_id" json:"student_user_id"`
}
