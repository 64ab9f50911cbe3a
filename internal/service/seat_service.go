package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/taller-agenda-api/internal/dto"
	"github.com/noah-isme/taller-agenda-api/internal/models"
	appErrors "github.com/noah-isme/taller-agenda-api/pkg/errors"
)

type seatEnrollmentStore interface {
	ListActiveByWeekday(ctx context.Context, day models.Weekday) ([]models.EnrollmentDetail, error)
	ReserveSeat(ctx context.Context, enrollment *models.Enrollment, slots []models.SeatSlot) error
}

type seatWorkshopReader interface {
	FindByID(ctx context.Context, id string) (*models.Workshop, error)
	ListPriceVariants(ctx context.Context, workshopID string) ([]models.WorkshopPriceVariant, error)
}

type seatStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// ReserveSeatRequest describes a new enrollment claiming a seat.
type ReserveSeatRequest struct {
	StudentID  string   `json:"studentId" validate:"required"`
	WorkshopID string   `json:"workshopId" validate:"required"`
	Days       []string `json:"days" validate:"required,min=1,dive,weekday"`
	TimeRange  string   `json:"timeRange" validate:"required,timeranges"`
	Seat       int      `json:"seat" validate:"gte=0"`
	Phase      string   `json:"phase" validate:"required"`
	Modality   string   `json:"modality"`
	Frequency  string   `json:"frequency"`
	StartDate  string   `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	Notes      string   `json:"notes"`
}

// SeatService allocates exclusive seats per (day, time range) slot.
type SeatService struct {
	enrollments seatEnrollmentStore
	workshops   seatWorkshopReader
	students    seatStudentReader
	agenda      *AgendaCache
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSeatService constructs a SeatService.
func NewSeatService(
	enrollments seatEnrollmentStore,
	workshops seatWorkshopReader,
	students seatStudentReader,
	agenda *AgendaCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *SeatService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &SeatService{
		enrollments: enrollments,
		workshops:   workshops,
		students:    students,
		agenda:      agenda,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
	registerSchedulingValidations(svc.validator)
	return svc
}

func registerSchedulingValidations(v *validator.Validate) {
	v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseWeekday(fl.Field().String())
		return ok
	})
	v.RegisterValidation("timerange", func(fl validator.FieldLevel) bool {
		_, err := models.ParseTimeRange(fl.Field().String())
		return err == nil
	})
	v.RegisterValidation("timeranges", func(fl validator.FieldLevel) bool {
		raw := fl.Field().String()
		return len(models.ParseTimeRanges(raw)) == len(strings.Split(raw, "/"))
	})
}

// CheckAvailability returns the sorted seat numbers held in the slot.
func (s *SeatService) CheckAvailability(ctx context.Context, dayRaw, timeRangeRaw string) ([]int, error) {
	day, tr, err := parseSlot(dayRaw, timeRangeRaw)
	if err != nil {
		return nil, err
	}
	return s.occupied(ctx, day, tr)
}

// SeatMap reports occupied and free seats of a slot against a workshop's capacity.
func (s *SeatService) SeatMap(ctx context.Context, dayRaw, timeRangeRaw, workshopID string) (*dto.SeatAvailability, error) {
	day, tr, err := parseSlot(dayRaw, timeRangeRaw)
	if err != nil {
		return nil, err
	}
	occupied, err := s.occupied(ctx, day, tr)
	if err != nil {
		return nil, err
	}
	result := &dto.SeatAvailability{Day: string(day), TimeRange: tr.String(), Occupied: occupied}
	if workshopID == "" {
		return result, nil
	}
	workshop, err := s.loadWorkshop(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	taken := make(map[int]struct{}, len(occupied))
	for _, seat := range occupied {
		taken[seat] = struct{}{}
	}
	result.Capacity = workshop.Capacity
	result.Free = make([]int, 0, workshop.Capacity)
	for seat := 1; seat <= workshop.Capacity; seat++ {
		if _, ok := taken[seat]; !ok {
			result.Free = append(result.Free, seat)
		}
	}
	return result, nil
}

// Reserve creates an ACTIVA enrollment if every slot it covers has the seat free.
func (s *SeatService) Reserve(ctx context.Context, req ReserveSeatRequest) (*dto.SeatReservationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reservation payload")
	}
	regime := models.RegimeOf(req.Phase)
	if regime != models.RegimeSingleClass && req.Seat < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "seat is required for this phase")
	}
	if regime != models.RegimeRegular && req.StartDate == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startDate is required for this phase")
	}

	workshop, err := s.loadWorkshop(ctx, req.WorkshopID)
	if err != nil {
		return nil, err
	}
	if !workshop.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("workshop %s is not active", workshop.Name))
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	seat := req.Seat
	if regime == models.RegimeSingleClass {
		seat = 0
	}
	days, timeRange := reservationPattern(req.Days, req.TimeRange)
	enrollment := &models.Enrollment{
		StudentID:  req.StudentID,
		WorkshopID: req.WorkshopID,
		Days:       models.JoinWeekdays(days),
		TimeRange:  timeRange,
		Phase:      strings.TrimSpace(req.Phase),
		Seat:       strconv.Itoa(seat),
		Status:     models.EnrollmentStatusActive,
		Notes:      enrollmentNotes(regime, req),
	}
	slots := models.SlotsFor(enrollment.Pattern(), seat)

	if err := s.enrollments.ReserveSeat(ctx, enrollment, slots); err != nil {
		var conflict *models.SeatConflictError
		if errors.As(err, &conflict) {
			s.metrics.RecordSeatReservation(ReservationResultConflict)
			s.logger.Info("seat reservation conflict",
				zap.Int("seat", conflict.Slot.Seat),
				zap.String("day", string(conflict.Slot.Day)),
				zap.String("time_range", conflict.Slot.TimeRange.String()))
			return nil, appErrors.Clone(appErrors.ErrSeatTaken, conflict.Error())
		}
		s.metrics.RecordSeatReservation(ReservationResultError)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve seat")
	}
	s.metrics.RecordSeatReservation(ReservationResultReserved)
	s.agenda.Invalidate(ctx)

	result := &dto.SeatReservationResult{
		EnrollmentID: enrollment.ID,
		StudentID:    enrollment.StudentID,
		WorkshopID:   enrollment.WorkshopID,
		Days:         enrollment.Days,
		TimeRange:    enrollment.TimeRange,
		Seat:         seat,
		Phase:        enrollment.Phase,
	}
	variants, err := s.workshops.ListPriceVariants(ctx, workshop.ID)
	if err != nil {
		s.logger.Warn("price variants unavailable", zap.String("workshop_id", workshop.ID), zap.Error(err))
	}
	result.MonthlyPrice = workshop.PriceFor(variants, len(days), req.Modality).StringFixed(2)
	return result, nil
}

func (s *SeatService) occupied(ctx context.Context, day models.Weekday, tr models.TimeRange) ([]int, error) {
	details, err := s.enrollments.ListActiveByWeekday(ctx, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot enrollments")
	}
	enrollments := make([]models.Enrollment, len(details))
	for i := range details {
		enrollments[i] = details[i].Enrollment
	}
	return models.OccupiedSeats(enrollments, day, tr), nil
}

func (s *SeatService) loadWorkshop(ctx context.Context, id string) (*models.Workshop, error) {
	workshop, err := s.workshops.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "workshop not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load workshop")
	}
	return workshop, nil
}

func parseSlot(dayRaw, timeRangeRaw string) (models.Weekday, models.TimeRange, error) {
	day, ok := models.ParseWeekday(dayRaw)
	if !ok {
		return "", models.TimeRange{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid day %q", dayRaw))
	}
	tr, err := models.ParseTimeRange(timeRangeRaw)
	if err != nil {
		return "", models.TimeRange{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return day, tr, nil
}

// reservationPattern drops repeated days together with the segment at their position,
// so the stored day list and time ranges stay paired index by index.
func reservationPattern(rawDays []string, rawRanges string) ([]models.Weekday, string) {
	ranges := models.ParseTimeRanges(rawRanges)
	days := make([]models.Weekday, 0, len(rawDays))
	parts := make([]string, 0, len(rawDays))
	for i, raw := range rawDays {
		day, _ := models.ParseWeekday(raw)
		if models.ContainsWeekday(days, day) {
			continue
		}
		days = append(days, day)
		if len(ranges) > 1 {
			tr := ranges[0]
			if i < len(ranges) {
				tr = ranges[i]
			}
			parts = append(parts, tr.String())
		}
	}
	if len(ranges) == 1 {
		return days, ranges[0].String()
	}
	return days, strings.Join(parts, "/")
}

func enrollmentNotes(regime models.Regime, req ReserveSeatRequest) string {
	switch regime {
	case models.RegimeSummer:
		return models.FormatSummerNotes(models.SummerDetails{Modality: req.Modality, Frequency: req.Frequency, StartDate: req.StartDate})
	case models.RegimeSingleClass:
		notes := "Fecha: " + req.StartDate
		if req.Notes != "" {
			notes += ", " + req.Notes
		}
		return notes
	default:
		return req.Notes
	}
}
