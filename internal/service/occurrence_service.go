package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/taller-agenda-api/internal/models"
	appErrors "github.com/noah-isme/taller-agenda-api/pkg/errors"
)

var occurrenceNamespace = uuid.MustParse("6f1c7c1e-0d0a-4f43-9c55-8a0b6f2e9d31")

// ExpanderOptions configures an OccurrenceExpander.
type ExpanderOptions struct {
	Location            *time.Location
	SeasonEnd           time.Time
	WindowBackMonths    int
	WindowForwardMonths int
	Now                 func() time.Time
}

// OccurrenceExpander turns an enrollment's weekly pattern into dated class instances.
// It holds no state between calls.
type OccurrenceExpander struct {
	loc       *time.Location
	seasonEnd time.Time
	back      int
	forward   int
	now       func() time.Time
	logger    *zap.Logger
}

// NewOccurrenceExpander builds an expander.
func NewOccurrenceExpander(opts ExpanderOptions, logger *zap.Logger) *OccurrenceExpander {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.WindowBackMonths <= 0 {
		opts.WindowBackMonths = 1
	}
	if opts.WindowForwardMonths <= 0 {
		opts.WindowForwardMonths = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	seasonEnd := opts.SeasonEnd
	if !seasonEnd.IsZero() {
		seasonEnd = models.StartOfDay(seasonEnd.In(opts.Location))
	}
	return &OccurrenceExpander{
		loc:       opts.Location,
		seasonEnd: seasonEnd,
		back:      opts.WindowBackMonths,
		forward:   opts.WindowForwardMonths,
		now:       opts.Now,
		logger:    logger,
	}
}

// Location returns the business timezone.
func (x *OccurrenceExpander) Location() *time.Location {
	return x.loc
}

// Today returns midnight of the current business date.
func (x *OccurrenceExpander) Today() time.Time {
	return models.StartOfDay(x.now().In(x.loc))
}

// DefaultWindow spans the configured months back and forward from today, clipped to start at today.
func (x *OccurrenceExpander) DefaultWindow() models.Window {
	today := x.Today()
	start := today.AddDate(0, -x.back, 0)
	if start.Before(today) {
		start = today
	}
	return models.Window{Start: start, End: today.AddDate(0, x.forward, 0)}
}

// ForwardWindow covers days calendar dates starting today.
func (x *OccurrenceExpander) ForwardWindow(days int) models.Window {
	if days < 1 {
		days = 1
	}
	today := x.Today()
	return models.Window{Start: today, End: today.AddDate(0, 0, days-1)}
}

// Expand lazily yields the occurrences of enrollment inside window in date order.
// Dates before today and dates in nonWorking are never produced.
func (x *OccurrenceExpander) Expand(enrollment models.EnrollmentDetail, window models.Window, nonWorking models.DateSet) iter.Seq[models.Occurrence] {
	return func(yield func(models.Occurrence) bool) {
		pattern := enrollment.Pattern()
		if len(pattern.Days) == 0 || len(pattern.Times) == 0 {
			return
		}
		from, to, ok := x.bounds(enrollment, window)
		if !ok {
			return
		}
		details := enrollment.Details()
		for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
			day := models.WeekdayOf(date)
			if !pattern.Includes(day) || nonWorking.Contains(date) {
				continue
			}
			tr, _ := pattern.TimeFor(day)
			if !yield(x.occurrence(enrollment, details, day, date, tr)) {
				return
			}
		}
	}
}

// bounds intersects the window with today and the regime's own date limits.
func (x *OccurrenceExpander) bounds(enrollment models.EnrollmentDetail, window models.Window) (time.Time, time.Time, bool) {
	from := models.StartOfDay(window.Start.In(x.loc))
	to := models.StartOfDay(window.End.In(x.loc))
	if today := x.Today(); from.Before(today) {
		from = today
	}

	switch details := enrollment.Details().(type) {
	case models.SummerDetails:
		if !details.HasStart() {
			x.logger.Warn("summer enrollment without start date",
				zap.String("enrollment_id", enrollment.ID),
				zap.String("notes", enrollment.Notes))
			return time.Time{}, time.Time{}, false
		}
		start, err := models.ParseDate(details.StartDate, x.loc)
		if err != nil {
			x.logger.Warn("summer enrollment with unreadable start date",
				zap.String("enrollment_id", enrollment.ID),
				zap.String("start", details.StartDate))
			return time.Time{}, time.Time{}, false
		}
		if start = models.StartOfDay(start); from.Before(start) {
			from = start
		}
		if !x.seasonEnd.IsZero() && to.After(x.seasonEnd) {
			to = x.seasonEnd
		}
	case models.SingleClassDetails:
		if details.Date == "" {
			x.logger.Warn("single class enrollment without date", zap.String("enrollment_id", enrollment.ID))
			return time.Time{}, time.Time{}, false
		}
		date, err := models.ParseDate(details.Date, x.loc)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		date = models.StartOfDay(date)
		if date.Before(from) || date.After(to) {
			return time.Time{}, time.Time{}, false
		}
		from, to = date, date
	}
	return from, to, !from.After(to)
}

func (x *OccurrenceExpander) occurrence(enrollment models.EnrollmentDetail, details models.EnrollmentDetails, day models.Weekday, date time.Time, tr models.TimeRange) models.Occurrence {
	start, end := tr.On(date)
	title := enrollment.WorkshopName
	if title == "" {
		title = enrollment.Phase
	}
	return models.Occurrence{
		ID:           OccurrenceID(enrollment.ID, day, start),
		EnrollmentID: enrollment.ID,
		StudentID:    enrollment.StudentID,
		StudentName:  enrollment.StudentName,
		WorkshopID:   enrollment.WorkshopID,
		Title:        title,
		Day:          day,
		Date:         models.DateKeyOf(date),
		Start:        start,
		End:          end,
		TimeRange:    tr.String(),
		Seat:         enrollment.SeatNumber(),
		Regime:       details.Regime().String(),
	}
}

// OccurrenceID is stable for a given (enrollment, day token, start instant).
func OccurrenceID(enrollmentID string, day models.Weekday, start time.Time) string {
	key := enrollmentID + "|" + string(day) + "|" + strconv.FormatInt(start.Unix(), 10)
	return uuid.NewSHA1(occurrenceNamespace, []byte(key)).String()
}

type occurrenceEnrollmentReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
}

type nonWorkingDayLister interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]models.NonWorkingDay, error)
}

// OccurrenceService expands a stored enrollment for the API.
type OccurrenceService struct {
	enrollments occurrenceEnrollmentReader
	calendar    nonWorkingDayLister
	expander    *OccurrenceExpander
	logger      *zap.Logger
}

// NewOccurrenceService constructs an OccurrenceService.
func NewOccurrenceService(enrollments occurrenceEnrollmentReader, calendar nonWorkingDayLister, expander *OccurrenceExpander, logger *zap.Logger) *OccurrenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OccurrenceService{enrollments: enrollments, calendar: calendar, expander: expander, logger: logger}
}

// ParseWindow reads optional from/to dates, defaulting to the expander's default window.
func (s *OccurrenceService) ParseWindow(fromRaw, toRaw string) (models.Window, error) {
	window := s.expander.DefaultWindow()
	loc := s.expander.Location()
	if fromRaw != "" {
		from, err := models.ParseDate(fromRaw, loc)
		if err != nil {
			return models.Window{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		window.Start = models.StartOfDay(from)
	}
	if toRaw != "" {
		to, err := models.ParseDate(toRaw, loc)
		if err != nil {
			return models.Window{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		window.End = models.StartOfDay(to)
	}
	if window.End.Before(window.Start) {
		return models.Window{}, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	return window, nil
}

// ForEnrollment returns the ordered occurrences of one enrollment in window.
func (s *OccurrenceService) ForEnrollment(ctx context.Context, enrollmentID string, window models.Window) ([]models.Occurrence, error) {
	enrollment, err := s.enrollments.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	nonWorking, err := s.nonWorkingSet(ctx, window)
	if err != nil {
		return nil, err
	}
	occurrences := slices.Collect(s.expander.Expand(*enrollment, window, nonWorking))
	if occurrences == nil {
		occurrences = []models.Occurrence{}
	}
	return occurrences, nil
}

func (s *OccurrenceService) nonWorkingSet(ctx context.Context, window models.Window) (models.DateSet, error) {
	return loadNonWorkingSet(ctx, s.calendar, window, s.expander.Location())
}

// loadNonWorkingSet fetches declared days overlapping window as a date set.
func loadNonWorkingSet(ctx context.Context, calendar nonWorkingDayLister, window models.Window, loc *time.Location) (models.DateSet, error) {
	from := models.StartOfDay(window.Start.In(loc))
	to := models.StartOfDay(window.End.In(loc)).AddDate(0, 0, 1)
	days, err := calendar.ListBetween(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load non-working days %s..%s", models.DateKeyOf(from), models.DateKeyOf(to)))
	}
	return models.DateSetOf(days, loc), nil
}
