package models

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Weekday is a canonical Spanish weekday name: upper case, no diacritics.
type Weekday string

const (
	Lunes     Weekday = "LUNES"
	Martes    Weekday = "MARTES"
	Miercoles Weekday = "MIERCOLES"
	Jueves    Weekday = "JUEVES"
	Viernes   Weekday = "VIERNES"
	Sabado    Weekday = "SABADO"
	Domingo   Weekday = "DOMINGO"
)

var weekdayByTime = map[time.Weekday]Weekday{
	time.Monday:    Lunes,
	time.Tuesday:   Martes,
	time.Wednesday: Miercoles,
	time.Thursday:  Jueves,
	time.Friday:    Viernes,
	time.Saturday:  Sabado,
	time.Sunday:    Domingo,
}

var timeByWeekday = map[Weekday]time.Weekday{
	Lunes:     time.Monday,
	Martes:    time.Tuesday,
	Miercoles: time.Wednesday,
	Jueves:    time.Thursday,
	Viernes:   time.Friday,
	Sabado:    time.Saturday,
	Domingo:   time.Sunday,
}

// Fold strips diacritics and upper-cases s. Every weekday comparison goes through it.
func Fold(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(strings.TrimSpace(s)) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// ParseWeekday canonicalizes a single day token ("Miércoles", "sabado", ...).
func ParseWeekday(raw string) (Weekday, bool) {
	day := Weekday(Fold(raw))
	if _, ok := timeByWeekday[day]; !ok {
		return "", false
	}
	return day, true
}

// ParseWeekdayList splits a comma-joined day list and drops malformed tokens.
func ParseWeekdayList(raw string) []Weekday {
	days, _ := ParseIndexedWeekdayList(raw)
	return days
}

// ParseIndexedWeekdayList is ParseWeekdayList that also reports, for each kept day,
// its position among the raw tokens. Malformed and repeated tokens still count.
func ParseIndexedWeekdayList(raw string) ([]Weekday, []int) {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' || r == '/' })
	days := make([]Weekday, 0, len(parts))
	positions := make([]int, 0, len(parts))
	seen := make(map[Weekday]struct{}, len(parts))
	for i, part := range parts {
		day, ok := ParseWeekday(part)
		if !ok {
			continue
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
		positions = append(positions, i)
	}
	return days, positions
}

// WeekdayOf returns the canonical weekday of t in its own location.
func WeekdayOf(t time.Time) Weekday {
	return weekdayByTime[t.Weekday()]
}

// TimeWeekday converts back to the time package representation.
func (d Weekday) TimeWeekday() time.Weekday {
	return timeByWeekday[d]
}

// Valid reports whether d is one of the seven canonical names.
func (d Weekday) Valid() bool {
	_, ok := timeByWeekday[d]
	return ok
}

// Title renders the day for people, e.g. "Miércoles".
func (d Weekday) Title() string {
	switch d {
	case Miercoles:
		return "Miércoles"
	case Sabado:
		return "Sábado"
	case "":
		return ""
	}
	s := string(d)
	return s[:1] + strings.ToLower(s[1:])
}

// ContainsWeekday reports whether days includes day.
func ContainsWeekday(days []Weekday, day Weekday) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

// JoinWeekdays renders days the way they are stored ("LUNES, MIERCOLES").
func JoinWeekdays(days []Weekday) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = string(d)
	}
	return strings.Join(parts, ", ")
}
