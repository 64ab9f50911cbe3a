package models

import "time"

// NotificationKind classifies in-app notifications.
type NotificationKind string

const (
	NotificationKindNonWorkingDay NotificationKind = "DIA_NO_LABORABLE"
	NotificationKindCredit        NotificationKind = "CREDITO"
)

// Notification is an in-app message shown to a family account.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Kind      NotificationKind `db:"kind" json:"kind"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
