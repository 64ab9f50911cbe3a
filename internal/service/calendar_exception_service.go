package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/taller-agenda-api/internal/dto"
	"github.com/noah-isme/taller-agenda-api/internal/models"
	appErrors "github.com/noah-isme/taller-agenda-api/pkg/errors"
)

type calendarStore interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]models.NonWorkingDay, error)
	FindOnDate(ctx context.Context, dayStart, dayEnd time.Time) (*models.NonWorkingDay, error)
	Upsert(ctx context.Context, day *models.NonWorkingDay, dayStart, dayEnd time.Time) (bool, error)
	DeleteBetween(ctx context.Context, dayStart, dayEnd time.Time) (int64, error)
}

type calendarEnrollmentReader interface {
	ListActiveByWeekday(ctx context.Context, day models.Weekday) ([]models.EnrollmentDetail, error)
}

type creditWriter interface {
	CreateIfAbsent(ctx context.Context, credit *models.MakeUpCredit) (bool, error)
}

type studentBatchReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Student, error)
}

type cascadeNotifier interface {
	Notify(ctx context.Context, userID, title, message string, kind models.NotificationKind) error
	SendEmail(ctx context.Context, to, subject, html string) bool
}

// DeclareNonWorkingDayRequest is the payload for declaring a date without classes.
type DeclareNonWorkingDayRequest struct {
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	Reason     string  `json:"reason" validate:"required,max=255"`
	SendEmail  bool    `json:"sendEmail"`
	AddCredit  bool    `json:"addCredit"`
	TransferTo *string `json:"transferTo" validate:"omitempty,datetime=2006-01-02"`
}

// CalendarExceptionService keeps the non-working day registry and runs the declaration cascade.
type CalendarExceptionService struct {
	calendar    calendarStore
	enrollments calendarEnrollmentReader
	credits     creditWriter
	students    studentBatchReader
	notifier    cascadeNotifier
	agenda      *AgendaCache
	metrics     *MetricsService
	loc         *time.Location
	now         func() time.Time
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCalendarExceptionService constructs the service.
func NewCalendarExceptionService(
	calendar calendarStore,
	enrollments calendarEnrollmentReader,
	credits creditWriter,
	students studentBatchReader,
	notifier cascadeNotifier,
	agenda *AgendaCache,
	metrics *MetricsService,
	loc *time.Location,
	validate *validator.Validate,
	logger *zap.Logger,
) *CalendarExceptionService {
	if loc == nil {
		loc = time.UTC
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarExceptionService{
		calendar:    calendar,
		enrollments: enrollments,
		credits:     credits,
		students:    students,
		notifier:    notifier,
		agenda:      agenda,
		metrics:     metrics,
		loc:         loc,
		now:         time.Now,
		validator:   validate,
		logger:      logger,
	}
}

// WithClock overrides the clock used for credit timestamps.
func (s *CalendarExceptionService) WithClock(now func() time.Time) *CalendarExceptionService {
	if now != nil {
		s.now = now
	}
	return s
}

// List returns the declared days between from and to inclusive. Empty bounds
// default to the current month and the two that follow.
func (s *CalendarExceptionService) List(ctx context.Context, fromRaw, toRaw string) ([]models.NonWorkingDay, error) {
	today := s.now().In(s.loc)
	from := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.loc)
	to := from.AddDate(0, 3, 0)
	if fromRaw != "" {
		parsed, err := models.ParseDate(fromRaw, s.loc)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		from = models.StartOfDay(parsed)
	}
	if toRaw != "" {
		parsed, err := models.ParseDate(toRaw, s.loc)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		_, to = models.DayRange(parsed)
	}
	if !from.Before(to) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	days, err := s.calendar.ListBetween(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list non-working days")
	}
	if days == nil {
		days = []models.NonWorkingDay{}
	}
	return days, nil
}

// Declare records the date as non-working and fans out credits, transfers and notifications
// to every active enrollment meeting on its weekday. Per-student delivery failures only
// reduce the returned counts.
func (s *CalendarExceptionService) Declare(ctx context.Context, req DeclareNonWorkingDayRequest) (*dto.NonWorkingDaySummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid non-working day payload")
	}
	date, err := models.ParseDate(req.Date, s.loc)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	reason := strings.TrimSpace(req.Reason)

	var transferTo *time.Time
	if req.TransferTo != nil && *req.TransferTo != "" {
		target, err := s.transferTarget(ctx, date, *req.TransferTo)
		if err != nil {
			return nil, err
		}
		transferTo = &target
	}

	dayStart, dayEnd := models.DayRange(date)
	record := &models.NonWorkingDay{Date: date, Reason: reason}
	created, err := s.calendar.Upsert(ctx, record, dayStart, dayEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save non-working day")
	}
	s.agenda.Invalidate(ctx)

	weekday := models.WeekdayOf(date)
	summary := &dto.NonWorkingDaySummary{Date: req.Date, Day: weekday.Title(), Reason: reason}
	s.logger.Info("non-working day declared",
		zap.String("date", req.Date),
		zap.String("weekday", string(weekday)),
		zap.Bool("created", created),
		zap.Bool("add_credit", req.AddCredit),
		zap.Bool("send_email", req.SendEmail),
		zap.Bool("transfer", transferTo != nil))

	enrollments, err := s.enrollments.ListActiveByWeekday(ctx, weekday)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load affected enrollments")
	}
	summary.Affected = len(enrollments)
	if len(enrollments) == 0 {
		return summary, nil
	}

	for _, enrollment := range enrollments {
		if req.AddCredit && s.issueCredit(ctx, compensationCredit(enrollment, date, reason)) {
			summary.CreditsCreated++
		}
		if transferTo != nil && s.issueCredit(ctx, transferCredit(enrollment, date, *transferTo, weekday, reason, s.now())) {
			summary.TransfersCreated++
		}
	}
	s.metrics.RecordCreditsCreated(models.CreditKindCompensation, summary.CreditsCreated)
	s.metrics.RecordCreditsCreated(models.CreditKindTransfer, summary.TransfersCreated)

	s.notifyStudents(ctx, enrollments, date, reason, req, transferTo, summary)
	return summary, nil
}

// Revert removes the declaration for the date. Credits and notifications already issued are kept.
func (s *CalendarExceptionService) Revert(ctx context.Context, dateRaw string) (*dto.RevertNonWorkingDayResult, error) {
	date, err := models.ParseDate(dateRaw, s.loc)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	dayStart, dayEnd := models.DayRange(date)
	removed, err := s.calendar.DeleteBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove non-working day")
	}
	if removed > 0 {
		s.agenda.Invalidate(ctx)
	}
	return &dto.RevertNonWorkingDayResult{Date: string(models.DateKeyOf(date)), Removed: removed > 0}, nil
}

func (s *CalendarExceptionService) transferTarget(ctx context.Context, date time.Time, raw string) (time.Time, error) {
	target, err := models.ParseDate(raw, s.loc)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if models.DateKeyOf(target) == models.DateKeyOf(date) {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "transferTo must differ from the non-working date")
	}
	start, end := models.DayRange(target)
	existing, err := s.calendar.FindOnDate(ctx, start, end)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check transfer date")
	}
	if existing != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrNonWorkingDay, fmt.Sprintf("transfer date %s is a non-working day: %s", models.DateKeyOf(target), existing.Reason))
	}
	return target, nil
}

func (s *CalendarExceptionService) issueCredit(ctx context.Context, credit *models.MakeUpCredit) bool {
	created, err := s.credits.CreateIfAbsent(ctx, credit)
	if err != nil {
		s.logger.Error("make-up credit not created",
			zap.String("student_id", credit.StudentID),
			zap.String("kind", string(credit.Kind)),
			zap.Error(err))
		return false
	}
	return created
}

func (s *CalendarExceptionService) notifyStudents(ctx context.Context, enrollments []models.EnrollmentDetail, date time.Time, reason string, req DeclareNonWorkingDayRequest, transferTo *time.Time, summary *dto.NonWorkingDaySummary) {
	seen := make(map[string]struct{}, len(enrollments))
	recipients := make([]models.EnrollmentDetail, 0, len(enrollments))
	for _, e := range enrollments {
		if _, dup := seen[e.StudentID]; dup {
			continue
		}
		seen[e.StudentID] = struct{}{}
		recipients = append(recipients, e)
	}

	emails := map[string]string{}
	if req.SendEmail {
		ids := make([]string, len(recipients))
		for i, r := range recipients {
			ids[i] = r.StudentID
		}
		students, err := s.students.FindByIDs(ctx, ids)
		if err != nil {
			s.logger.Error("student emails unavailable", zap.Error(err))
		}
		for _, st := range students {
			emails[st.ID] = strings.TrimSpace(st.Email)
		}
	}

	title := fmt.Sprintf("Día no laborable: %s", models.DateKeyOf(date))
	for _, r := range recipients {
		message := nonWorkingMessage(r.StudentName, date, reason, req.AddCredit, transferTo)
		if r.StudentUserID != "" {
			if err := s.notifier.Notify(ctx, r.StudentUserID, title, message, models.NotificationKindNonWorkingDay); err != nil {
				s.logger.Warn("in-app notification failed", zap.String("student_id", r.StudentID), zap.Error(err))
			} else {
				summary.StudentsNotified++
			}
		}
		if !req.SendEmail {
			continue
		}
		to := emails[r.StudentID]
		if to == "" {
			summary.EmailsFailed++
			s.logger.Warn("student without email", zap.String("student_id", r.StudentID))
			continue
		}
		if s.notifier.SendEmail(ctx, to, title, "<p>"+html.EscapeString(message)+"</p>") {
			summary.EmailsSent++
		} else {
			summary.EmailsFailed++
		}
	}
}

func compensationCredit(e models.EnrollmentDetail, date time.Time, reason string) *models.MakeUpCredit {
	enrollmentID, workshopID, origin := e.ID, e.WorkshopID, date
	return &models.MakeUpCredit{
		StudentID:    e.StudentID,
		WorkshopID:   &workshopID,
		EnrollmentID: &enrollmentID,
		OriginDate:   &origin,
		Kind:         models.CreditKindCompensation,
		Reason:       fmt.Sprintf("Día no laborable %s: %s", models.DateKeyOf(date), reason),
	}
}

func transferCredit(e models.EnrollmentDetail, date, target time.Time, day models.Weekday, reason string, now time.Time) *models.MakeUpCredit {
	credit := compensationCredit(e, date, reason)
	credit.Kind = models.CreditKindTransfer
	credit.Reason = fmt.Sprintf("Traslado de %s a %s: %s", models.DateKeyOf(date), models.DateKeyOf(target), reason)
	credit.Used = true
	credit.ScheduledDate = &target
	if tr, ok := e.Pattern().TimeFor(day); ok {
		block := tr.String()
		credit.ScheduledBlock = &block
	} else {
		block := e.TimeRange
		credit.ScheduledBlock = &block
	}
	usedAt := now.UTC()
	credit.UsedAt = &usedAt
	return credit
}

func nonWorkingMessage(student string, date time.Time, reason string, credit bool, transferTo *time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "El %s %s no habrá clases (%s).", models.WeekdayOf(date).Title(), date.Format("02/01/2006"), reason)
	if student != "" {
		b.WriteString(" Alumno: " + student + ".")
	}
	if credit {
		b.WriteString(" Se generó un crédito para recuperar la clase.")
	}
	if transferTo != nil {
		fmt.Fprintf(&b, " La clase se traslada al %s %s.", models.WeekdayOf(*transferTo).Title(), transferTo.Format("02/01/2006"))
	}
	return b.String()
}
