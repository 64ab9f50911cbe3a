package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Workshop is a class offering students enroll into.
type Workshop struct {
	ID              string          `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	Active          bool            `db:"active" json:"active"`
	Days            string          `db:"days" json:"days"`
	StartTime       string          `db:"start_time" json:"start_time"`
	DurationMinutes int             `db:"duration_minutes" json:"duration_minutes"`
	Capacity        int             `db:"capacity" json:"capacity"`
	Price           decimal.Decimal `db:"price" json:"price"`
	TimeBlocks      pq.StringArray  `db:"time_blocks" json:"time_blocks"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// WorkshopPriceVariant overrides the base price for a day-count and modality combination.
type WorkshopPriceVariant struct {
	WorkshopID  string          `db:"workshop_id" json:"workshop_id"`
	DaysPerWeek int             `db:"days_per_week" json:"days_per_week"`
	Modality    string          `db:"modality" json:"modality"`
	Price       decimal.Decimal `db:"price" json:"price"`
}

// Weekdays parses the workshop's day pattern.
func (w Workshop) Weekdays() []Weekday {
	return ParseWeekdayList(w.Days)
}

// MeetsOn reports whether the workshop runs on day.
func (w Workshop) MeetsOn(day Weekday) bool {
	return ContainsWeekday(w.Weekdays(), day)
}

// Blocks returns the workshop's configured time blocks, skipping malformed entries.
func (w Workshop) Blocks() []TimeRange {
	blocks := make([]TimeRange, 0, len(w.TimeBlocks))
	for _, raw := range w.TimeBlocks {
		tr, err := ParseTimeRange(raw)
		if err != nil {
			continue
		}
		blocks = append(blocks, tr)
	}
	return blocks
}

// DaysLabel renders the valid days for error messages ("Viernes", "Lunes, Miércoles").
func (w Workshop) DaysLabel() string {
	days := w.Weekdays()
	labels := make([]string, len(days))
	for i, d := range days {
		labels[i] = d.Title()
	}
	return strings.Join(labels, ", ")
}

// PriceFor picks the variant matching daysPerWeek and modality, falling back to
// a day-count-only match and then the base price.
func (w Workshop) PriceFor(variants []WorkshopPriceVariant, daysPerWeek int, modality string) decimal.Decimal {
	var dayOnly *WorkshopPriceVariant
	for i := range variants {
		v := variants[i]
		if v.DaysPerWeek != daysPerWeek {
			continue
		}
		if modality != "" && Fold(v.Modality) == Fold(modality) {
			return v.Price
		}
		if v.Modality == "" && dayOnly == nil {
			dayOnly = &variants[i]
		}
	}
	if dayOnly != nil {
		return dayOnly.Price
	}
	if daysPerWeek > 1 {
		return w.Price.Mul(decimal.NewFromInt(int64(daysPerWeek)))
	}
	return w.Price
}
