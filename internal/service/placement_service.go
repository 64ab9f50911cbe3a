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
	"github.com/noah-isme/taller-agenda-api/internal/repository"
	appErrors "github.com/noah-isme/taller-agenda-api/pkg/errors"
)

const placementTimeLayout = "2006-01-02T15:04"

type placementStore interface {
	Create(ctx context.Context, appt *models.PlacementAppointment) error
	FindByID(ctx context.Context, id string) (*models.PlacementDetail, error)
	FindPendingByStudent(ctx context.Context, studentID string) (*models.PlacementAppointment, error)
	UpdateSchedule(ctx context.Context, id string, at time.Time) error
	UpdateStatus(ctx context.Context, id string, status models.PlacementStatus) error
}

// RequestPlacementRequest books a placement appointment for a student.
type RequestPlacementRequest struct {
	StudentID   string `json:"studentId" validate:"required"`
	ScheduledAt string `json:"scheduledAt" validate:"required,datetime=2006-01-02T15:04"`
	Note        string `json:"note" validate:"max=500"`
}

// ReschedulePlacementRequest moves a pending appointment.
type ReschedulePlacementRequest struct {
	ScheduledAt string `json:"scheduledAt" validate:"required,datetime=2006-01-02T15:04"`
}

// PlacementService manages placement appointments. A student holds at most one pending appointment.
type PlacementService struct {
	placements placementStore
	calendar   creditCalendarReader
	access     *StudentAccess
	agenda     *AgendaCache
	loc        *time.Location
	now        func() time.Time
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewPlacementService constructs a PlacementService.
func NewPlacementService(
	placements placementStore,
	calendar creditCalendarReader,
	access *StudentAccess,
	agenda *AgendaCache,
	loc *time.Location,
	validate *validator.Validate,
	logger *zap.Logger,
) *PlacementService {
	if loc == nil {
		loc = time.UTC
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlacementService{
		placements: placements,
		calendar:   calendar,
		access:     access,
		agenda:     agenda,
		loc:        loc,
		now:        time.Now,
		validator:  validate,
		logger:     logger,
	}
}

// WithClock overrides the clock used to reject past appointments.
func (s *PlacementService) WithClock(now func() time.Time) *PlacementService {
	if now != nil {
		s.now = now
	}
	return s
}

// Request creates a pending appointment for a student owned by claims.
func (s *PlacementService) Request(ctx context.Context, claims *models.JWTClaims, req RequestPlacementRequest) (*models.PlacementAppointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid placement payload")
	}
	if _, err := s.access.Ensure(ctx, claims, req.StudentID); err != nil {
		return nil, err
	}
	at, err := s.schedulable(ctx, req.ScheduledAt)
	if err != nil {
		return nil, err
	}

	existing, err := s.placements.FindPendingByStudent(ctx, req.StudentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending appointments")
	}
	if existing != nil {
		return nil, pendingConflict(existing.ScheduledAt.In(s.loc))
	}

	appt := &models.PlacementAppointment{
		StudentID:   req.StudentID,
		ScheduledAt: at,
		Status:      models.PlacementStatusPending,
		Note:        strings.TrimSpace(req.Note),
	}
	if err := s.placements.Create(ctx, appt); err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already has a pending placement appointment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create placement appointment")
	}
	s.agenda.Invalidate(ctx)
	s.logger.Info("placement appointment requested",
		zap.String("appointment_id", appt.ID),
		zap.String("student_id", appt.StudentID),
		zap.Time("scheduled_at", appt.ScheduledAt))
	return appt, nil
}

// Reschedule moves a pending appointment to a new instant.
func (s *PlacementService) Reschedule(ctx context.Context, claims *models.JWTClaims, id string, req ReschedulePlacementRequest) (*models.PlacementDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid placement payload")
	}
	appt, err := s.pendingFor(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	at, err := s.schedulable(ctx, req.ScheduledAt)
	if err != nil {
		return nil, err
	}
	if err := s.placements.UpdateSchedule(ctx, id, at); err != nil {
		return nil, s.transitionError(err, "failed to reschedule placement appointment")
	}
	s.agenda.Invalidate(ctx)
	appt.ScheduledAt = at
	return appt, nil
}

// Cancel marks a pending appointment as CANCELADA.
func (s *PlacementService) Cancel(ctx context.Context, claims *models.JWTClaims, id string) error {
	if _, err := s.pendingFor(ctx, claims, id); err != nil {
		return err
	}
	if err := s.placements.UpdateStatus(ctx, id, models.PlacementStatusCancelled); err != nil {
		return s.transitionError(err, "failed to cancel placement appointment")
	}
	s.agenda.Invalidate(ctx)
	s.logger.Info("placement appointment cancelled", zap.String("appointment_id", id))
	return nil
}

func (s *PlacementService) pendingFor(ctx context.Context, claims *models.JWTClaims, id string) (*models.PlacementDetail, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	appt, err := s.placements.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "placement appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load placement appointment")
	}
	if !canActFor(claims, appt.StudentUserID) {
		return nil, appErrors.ErrForbidden
	}
	if appt.Status != models.PlacementStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("appointment is %s", appt.Status))
	}
	return appt, nil
}

// schedulable parses raw in the business timezone and rejects past instants and non-working dates.
func (s *PlacementService) schedulable(ctx context.Context, raw string) (time.Time, error) {
	at, err := time.ParseInLocation(placementTimeLayout, raw, s.loc)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid scheduledAt %q: expected YYYY-MM-DDTHH:MM", raw))
	}
	if !at.After(s.now()) {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "scheduledAt must be in the future")
	}
	dayStart, dayEnd := models.DayRange(at)
	closed, err := s.calendar.FindOnDate(ctx, dayStart, dayEnd)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check calendar")
	}
	if closed != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrNonWorkingDay,
			fmt.Sprintf("%s is a non-working day: %s", models.DateKeyOf(at), closed.Reason))
	}
	return at, nil
}

func (s *PlacementService) transitionError(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrConflict, "appointment is no longer pending")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msg)
}

func pendingConflict(at time.Time) error {
	return appErrors.Clone(appErrors.ErrConflict,
		fmt.Sprintf("student already has a pending placement appointment on %s", at.Format("2006-01-02 15:04")))
}
