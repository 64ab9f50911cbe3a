package models

import "time"

// CreditKind tells a compensation credit apart from a pre-scheduled transfer.
type CreditKind string

const (
	CreditKindCompensation CreditKind = "COMPENSACION"
	CreditKindTransfer     CreditKind = "TRASLADO"
)

// MakeUpCredit entitles a student to one rescheduled session.
type MakeUpCredit struct {
	ID             string     `db:"id" json:"id"`
	StudentID      string     `db:"student_id" json:"student_id"`
	WorkshopID     *string    `db:"workshop_id" json:"workshop_id,omitempty"`
	EnrollmentID   *string    `db:"enrollment_id" json:"enrollment_id,omitempty"`
	OriginDate     *time.Time `db:"origin_date" json:"origin_date,omitempty"`
	Kind           CreditKind `db:"kind" json:"kind"`
	Reason         string     `db:"reason" json:"reason"`
	Used           bool       `db:"used" json:"used"`
	ScheduledDate  *time.Time `db:"scheduled_date" json:"scheduled_date,omitempty"`
	ScheduledBlock *string    `db:"scheduled_block" json:"scheduled_block,omitempty"`
	UsedAt         *time.Time `db:"used_at" json:"used_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// MakeUpCreditDetail adds the workshop name for listings.
type MakeUpCreditDetail struct {
	MakeUpCredit
	WorkshopName *string `db:"workshop_name" json:"workshop_name,omitempty"`
}
