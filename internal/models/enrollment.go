package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVA"
	EnrollmentStatusInactive  EnrollmentStatus = "INACTIVA"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELADA"
)

// NoSeat is the stored seat for phases that do not occupy a numbered seat.
const NoSeat = "0"

// Regime distinguishes how an enrollment recurs.
type Regime int

const (
	RegimeRegular Regime = iota
	RegimeSummer
	RegimeSingleClass
)

func (r Regime) String() string {
	switch r {
	case RegimeSummer:
		return "summer"
	case RegimeSingleClass:
		return "single_class"
	default:
		return "regular"
	}
}

// RegimeOf classifies a free-text phase tag ("Taller de Verano", "Clase Única", ...).
func RegimeOf(phase string) Regime {
	folded := Fold(phase)
	switch {
	case strings.Contains(folded, "VERANO"):
		return RegimeSummer
	case strings.Contains(folded, "CLASE UNICA"), strings.Contains(folded, "UNICA CLASE"):
		return RegimeSingleClass
	default:
		return RegimeRegular
	}
}

// Enrollment captures a student's commitment to a recurring workshop slot.
type Enrollment struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	WorkshopID   string           `db:"workshop_id" json:"workshop_id"`
	Days         string           `db:"days" json:"days"`
	TimeRange    string           `db:"time_range" json:"time_range"`
	Phase        string           `db:"phase" json:"phase"`
	Seat         string           `db:"seat" json:"seat"`
	Status       EnrollmentStatus `db:"status" json:"status"`
	CancelReason *string          `db:"cancel_reason" json:"cancel_reason,omitempty"`
	Notes        string           `db:"notes" json:"notes"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and workshop info.
type EnrollmentDetail struct {
	Enrollment
	StudentName   string `db:"student_name" json:"student_name"`
	StudentUserID string `db:"student_user_id" json:"student_user_id"`
	WorkshopName  string `db:"workshop_name" json:"workshop_name"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentIDs []string
	WorkshopID string
	Status     EnrollmentStatus
}

// SeatNumber returns the integer seat, 0 for non-seated or malformed values.
func (e Enrollment) SeatNumber() int {
	n, err := strconv.Atoi(strings.TrimSpace(e.Seat))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Active reports whether the enrollment holds its slot.
func (e Enrollment) Active() bool {
	return e.Status == EnrollmentStatusActive
}

// HoldsSeat reports whether the enrollment keeps a numbered seat every week.
// Single-class bookings happen once and never hold one.
func (e Enrollment) HoldsSeat() bool {
	return e.Active() && e.SeatNumber() > 0 && RegimeOf(e.Phase) != RegimeSingleClass
}

// Pattern parses the stored day list and time ranges once. Each day is paired with
// the segment at its raw token position, so dropped tokens do not shift later days.
func (e Enrollment) Pattern() EnrollmentPattern {
	days, positions := ParseIndexedWeekdayList(e.Days)
	segments, valid := ParseTimeRangeSegments(e.TimeRange)
	pattern := EnrollmentPattern{
		Days:  days,
		Times: ParseTimeRanges(e.TimeRange),
		byDay: make(map[Weekday]TimeRange, len(days)),
	}
	for i, day := range days {
		if pos := positions[i]; pos < len(segments) && valid[pos] {
			pattern.byDay[day] = segments[pos]
		}
	}
	return pattern
}

// Details parses the phase and notes into the regime-specific structure.
func (e Enrollment) Details() EnrollmentDetails {
	return ParseEnrollmentDetails(e.Phase, e.Notes)
}

// EnrollmentPattern is the weekly recurrence of an enrollment.
type EnrollmentPattern struct {
	Days  []Weekday
	Times []TimeRange // valid segments in stored order

	byDay map[Weekday]TimeRange
}

// TimeFor returns the time range paired with day by position, falling back to the first valid segment.
func (p EnrollmentPattern) TimeFor(day Weekday) (TimeRange, bool) {
	if tr, ok := p.byDay[day]; ok {
		return tr, true
	}
	if len(p.Times) == 0 {
		return TimeRange{}, false
	}
	return p.Times[0], true
}

// Includes reports whether the pattern meets on day.
func (p EnrollmentPattern) Includes(day Weekday) bool {
	return ContainsWeekday(p.Days, day)
}

// Holds reports whether the pattern occupies the (day, time range) slot.
func (p EnrollmentPattern) Holds(day Weekday, tr TimeRange) bool {
	if !p.Includes(day) {
		return false
	}
	got, ok := p.TimeFor(day)
	return ok && got == tr
}

// EnrollmentDetails is the regime-tagged view of the free-text notes.
type EnrollmentDetails interface {
	Regime() Regime
}

// RegularDetails carries nothing beyond the weekly pattern.
type RegularDetails struct{}

func (RegularDetails) Regime() Regime { return RegimeRegular }

// SummerDetails is decoded from "Modalidad: X, Freq: Y, Inicio: YYYY-MM-DD".
type SummerDetails struct {
	Modality  string
	Frequency string
	StartDate string
}

func (SummerDetails) Regime() Regime { return RegimeSummer }

// HasStart reports whether the notes carried a usable start date.
func (d SummerDetails) HasStart() bool {
	return d.StartDate != ""
}

// SingleClassDetails pins the one date a single-class booking happens on.
type SingleClassDetails struct {
	Date string
}

func (SingleClassDetails) Regime() Regime { return RegimeSingleClass }

var (
	notesStartPattern    = regexp.MustCompile(`(?i)(?:inicio|fecha)\s*:\s*(\d{4}-\d{2}-\d{2})`)
	notesModalityPattern = regexp.MustCompile(`(?i)modalidad\s*:\s*([^,]+)`)
	notesFreqPattern     = regexp.MustCompile(`(?i)freq(?:uencia)?\s*:\s*([^,]+)`)
)

// ParseEnrollmentDetails decodes the structured fragments packed into notes.
func ParseEnrollmentDetails(phase, notes string) EnrollmentDetails {
	switch RegimeOf(phase) {
	case RegimeSummer:
		return SummerDetails{
			Modality:  firstGroup(notesModalityPattern, notes),
			Frequency: firstGroup(notesFreqPattern, notes),
			StartDate: firstGroup(notesStartPattern, notes),
		}
	case RegimeSingleClass:
		return SingleClassDetails{Date: firstGroup(notesStartPattern, notes)}
	default:
		return RegularDetails{}
	}
}

// FormatSummerNotes renders details in the stored notes format.
func FormatSummerNotes(d SummerDetails) string {
	return "Modalidad: " + d.Modality + ", Freq: " + d.Frequency + ", Inicio: " + d.StartDate
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
