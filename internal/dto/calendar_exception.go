package dto

// NonWorkingDaySummary reports the cascade triggered by a declaration.
type NonWorkingDaySummary struct {
	Date             string `json:"date"`
	Day              string `json:"day"`
	Reason           string `json:"reason"`
	Affected         int    `json:"affected"`
	StudentsNotified int    `json:"studentsNotified"`
	EmailsSent       int    `json:"emailsSent"`
	EmailsFailed     int    `json:"emailsFailed"`
	CreditsCreated   int    `json:"creditsCreated"`
	TransfersCreated int    `json:"transfersCreated"`
}

// RevertNonWorkingDayResult reports a removed declaration.
type RevertNonWorkingDayResult struct {
	Date    string `json:"date"`
	Removed bool   `json:"removed"`
}
