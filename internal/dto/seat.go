package dto

// SeatAvailability lists the occupied and free seats of a (day, time range) slot.
type SeatAvailability struct {
	Day       string `json:"day"`
	TimeRange string `json:"timeRange"`
	Occupied  []int  `json:"occupied"`
	Free      []int  `json:"free,omitempty"`
	Capacity  int    `json:"capacity,omitempty"`
}

// SeatReservationResult is returned after a successful reservation.
type SeatReservationResult struct {
	EnrollmentID string `json:"enrollmentId"`
	StudentID    string `json:"studentId"`
	WorkshopID   string `json:"workshopId"`
	Days         string `json:"days"`
	TimeRange    string `json:"timeRange"`
	Seat         int    `json:"seat"`
	Phase        string `json:"phase"`
	MonthlyPrice string `json:"monthlyPrice,omitempty"`
}
