package models

import "time"

// NonWorkingDay is a calendar date on which no classes occur.
type NonWorkingDay struct {
	ID        string    `db:"id" json:"id"`
	Date      time.Time `db:"date" json:"date"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NonWorkingDayOptions selects the side effects of a declaration.
type NonWorkingDayOptions struct {
	SendEmail  bool
	AddCredit  bool
	TransferTo *time.Time
}

// DateSetOf indexes declared days by calendar date in loc.
func DateSetOf(days []NonWorkingDay, loc *time.Location) DateSet {
	set := make(DateSet, len(days))
	for _, d := range days {
		date := d.Date
		if loc != nil {
			date = date.In(loc)
		}
		set[DateKeyOf(date)] = d.Reason
	}
	return set
}
