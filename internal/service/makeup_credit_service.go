package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/taller-agenda-api/internal/models"
	appErrors "github.com/noah-isme/taller-agenda-api/pkg/errors"
)

// DefaultTimeBlocks are offered when a workshop has no blocks of its own.
var DefaultTimeBlocks = []string{"16:00-17:20", "17:30-18:50", "19:00-20:20"}

type creditStore interface {
	FindByID(ctx context.Context, id string) (*models.MakeUpCredit, error)
	ListByStudent(ctx context.Context, studentID string, used bool) ([]models.MakeUpCreditDetail, error)
	MarkUsed(ctx context.Context, id, workshopID string, date time.Time, block string, usedAt time.Time) (bool, error)
}

type creditWorkshopReader interface {
	FindByID(ctx context.Context, id string) (*models.Workshop, error)
	ListActiveByWeekday(ctx context.Context, day models.Weekday) ([]models.Workshop, error)
}

type creditEnrollmentReader interface {
	ListActiveByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type creditCalendarReader interface {
	FindOnDate(ctx context.Context, dayStart, dayEnd time.Time) (*models.NonWorkingDay, error)
}

// ScheduleCreditRequest books a make-up session for a credit.
type ScheduleCreditRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	TimeBlock string `json:"timeBlock" validate:"required,timerange"`
}

// MakeUpCreditService lists and redeems compensation credits.
type MakeUpCreditService struct {
	credits       creditStore
	workshops     creditWorkshopReader
	enrollments   creditEnrollmentReader
	calendar      creditCalendarReader
	agenda        *AgendaCache
	defaultBlocks []models.TimeRange
	loc           *time.Location
	now           func() time.Time
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewMakeUpCreditService constructs the service. Empty defaultBlocks fall back to DefaultTimeBlocks.
func NewMakeUpCreditService(
	credits creditStore,
	workshops creditWorkshopReader,
	enrollments creditEnrollmentReader,
	calendar creditCalendarReader,
	agenda *AgendaCache,
	defaultBlocks []string,
	loc *time.Location,
	validate *validator.Validate,
	logger *zap.Logger,
) *MakeUpCreditService {
	if len(defaultBlocks) == 0 {
		defaultBlocks = DefaultTimeBlocks
	}
	blocks := make([]models.TimeRange, 0, len(defaultBlocks))
	for _, raw := range defaultBlocks {
		if tr, err := models.ParseTimeRange(raw); err == nil {
			blocks = append(blocks, tr)
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &MakeUpCreditService{
		credits:       credits,
		workshops:     workshops,
		enrollments:   enrollments,
		calendar:      calendar,
		agenda:        agenda,
		defaultBlocks: blocks,
		loc:           loc,
		now:           time.Now,
		validator:     validate,
		logger:        logger,
	}
	registerSchedulingValidations(svc.validator)
	return svc
}

// WithClock overrides the clock used for used_at.
func (s *MakeUpCreditService) WithClock(now func() time.Time) *MakeUpCreditService {
	if now != nil {
		s.now = now
	}
	return s
}

// ListAvailable returns the student's unused credits, oldest first.
func (s *MakeUpCreditService) ListAvailable(ctx context.Context, studentID string) ([]models.MakeUpCreditDetail, error) {
	return s.list(ctx, studentID, false)
}

// ListHistory returns the student's used credits with their scheduled slot.
func (s *MakeUpCreditService) ListHistory(ctx context.Context, studentID string) ([]models.MakeUpCreditDetail, error) {
	return s.list(ctx, studentID, true)
}

func (s *MakeUpCreditService) list(ctx context.Context, studentID string, used bool) ([]models.MakeUpCreditDetail, error) {
	credits, err := s.credits.ListByStudent(ctx, studentID, used)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list credits")
	}
	if credits == nil {
		credits = []models.MakeUpCreditDetail{}
	}
	return credits, nil
}

// Schedule redeems an unused credit into (date, timeBlock). It fails when the date is
// non-working, when no workshop meeting that weekday can be resolved, or when the
// block is not offered.
func (s *MakeUpCreditService) Schedule(ctx context.Context, studentID, creditID string, req ScheduleCreditRequest) (*models.MakeUpCredit, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	date, err := models.ParseDate(req.Date, s.loc)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	block, _ := models.ParseTimeRange(req.TimeBlock)
	if models.StartOfDay(date).Before(models.StartOfDay(s.now().In(s.loc))) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must not be in the past")
	}

	credit, err := s.credits.FindByID(ctx, creditID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "credit not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load credit")
	}
	if credit.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "credit not found")
	}
	if credit.Used {
		return nil, appErrors.ErrCreditUsed
	}

	dayStart, dayEnd := models.DayRange(date)
	closed, err := s.calendar.FindOnDate(ctx, dayStart, dayEnd)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check calendar")
	}
	if closed != nil {
		return nil, appErrors.Clone(appErrors.ErrNonWorkingDay, fmt.Sprintf("%s is a non-working day: %s", req.Date, closed.Reason))
	}

	weekday := models.WeekdayOf(date)
	workshop, err := s.resolveWorkshop(ctx, credit, weekday)
	if err != nil {
		return nil, err
	}
	if !workshop.MeetsOn(weekday) {
		return nil, appErrors.Clone(appErrors.ErrResolution,
			fmt.Sprintf("%s does not meet on %s; valid days: %s", workshop.Name, weekday.Title(), workshop.DaysLabel()))
	}

	offered := workshop.Blocks()
	if len(offered) == 0 {
		offered = s.defaultBlocks
	}
	if !containsBlock(offered, block) {
		return nil, appErrors.Clone(appErrors.ErrResolution,
			fmt.Sprintf("time block %s is not offered by %s; available: %s", block, workshop.Name, joinBlocks(offered)))
	}

	usedAt := s.now().UTC()
	blockLabel := block.String()
	ok, err := s.credits.MarkUsed(ctx, credit.ID, workshop.ID, date, blockLabel, usedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule credit")
	}
	if !ok {
		return nil, appErrors.ErrCreditUsed
	}
	s.agenda.Invalidate(ctx)

	credit.Used = true
	credit.ScheduledDate = &date
	credit.ScheduledBlock = &blockLabel
	credit.UsedAt = &usedAt
	if credit.WorkshopID == nil {
		id := workshop.ID
		credit.WorkshopID = &id
	}
	s.logger.Info("make-up credit scheduled",
		zap.String("credit_id", credit.ID),
		zap.String("workshop_id", workshop.ID),
		zap.String("date", req.Date),
		zap.String("block", blockLabel))
	return credit, nil
}

// resolveWorkshop walks the credit's own workshop, then the student's active
// enrollments, then any workshop active on the weekday.
func (s *MakeUpCreditService) resolveWorkshop(ctx context.Context, credit *models.MakeUpCredit, weekday models.Weekday) (*models.Workshop, error) {
	if credit.WorkshopID != nil && *credit.WorkshopID != "" {
		workshop, err := s.workshops.FindByID(ctx, *credit.WorkshopID)
		if err == nil {
			return workshop, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load workshop")
		}
	}

	enrollments, err := s.enrollments.ListActiveByStudent(ctx, credit.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	if len(enrollments) > 0 {
		chosen := enrollments[0]
		for _, e := range enrollments {
			if e.Pattern().Includes(weekday) {
				chosen = e
				break
			}
		}
		workshop, err := s.workshops.FindByID(ctx, chosen.WorkshopID)
		if err == nil {
			return workshop, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load workshop")
		}
	}

	candidates, err := s.workshops.ListActiveByWeekday(ctx, weekday)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load workshops")
	}
	if len(candidates) == 0 {
		return nil, appErrors.Clone(appErrors.ErrResolution, fmt.Sprintf("no workshop is offered on %s", weekday.Title()))
	}
	return &candidates[0], nil
}

func containsBlock(blocks []models.TimeRange, block models.TimeRange) bool {
	for _, b := range blocks {
		if b == block {
			return true
		}
	}
	return false
}

func joinBlocks(blocks []models.TimeRange) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.String()
	}
	return strings.Join(parts, ", ")
}
