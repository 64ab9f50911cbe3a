package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/taller-agenda-api/internal/models"
)

// ErrDuplicatePending is returned when a student already has a pending appointment.
var ErrDuplicatePending = errors.New("student already has a pending placement appointment")

const placementDetailColumns = `p.id, p.student_id, p.scheduled_at, p.status, p.note, p.created_at, p.updated_at,
        s.full_name AS student_name, s.user_id AS student_user_id`

// PlacementRepository persists placement appointments.
type PlacementRepository struct {
	db *sqlx.DB
}

// NewPlacementRepository constructs the repository.
func NewPlacementRepository(db *sqlx.DB) *PlacementRepository {
	return &PlacementRepository{db: db}
}

// Create inserts a pending appointment. The partial unique index on
// (student_id) WHERE status = 'PENDIENTE' backs the one-pending rule.
func (r *PlacementRepository) Create(ctx context.Context, appt *models.PlacementAppointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	if appt.Status == "" {
		appt.Status = models.PlacementStatusPending
	}
	const query = `INSERT INTO citas_nivelacion (id, student_id, scheduled_at, status, note, created_at, updated_at)
        VALUES (:id, :student_id, :scheduled_at, :status, :note, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, appt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePending
		}
		return fmt.Errorf("create placement appointment: %w", err)
	}
	return nil
}

// FindByID fetches an appointment with its student.
func (r *PlacementRepository) FindByID(ctx context.Context, id string) (*models.PlacementDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM citas_nivelacion p JOIN alumnos s ON s.id = p.student_id WHERE p.id = $1`, placementDetailColumns)
	var appt models.PlacementDetail
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// FindPendingByStudent returns the student's pending appointment.
func (r *PlacementRepository) FindPendingByStudent(ctx context.Context, studentID string) (*models.PlacementAppointment, error) {
	const query = `SELECT id, student_id, scheduled_at, status, note, created_at, updated_at FROM citas_nivelacion WHERE student_id = $1 AND status = $2 LIMIT 1`
	var appt models.PlacementAppointment
	if err := r.db.GetContext(ctx, &appt, query, studentID, models.PlacementStatusPending); err != nil {
		return nil, err
	}
	return &appt, nil
}

// UpdateSchedule moves a pending appointment.
func (r *PlacementRepository) UpdateSchedule(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE citas_nivelacion SET scheduled_at = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, at, time.Now().UTC(), id, models.PlacementStatusPending)
	if err != nil {
		return fmt.Errorf("reschedule placement appointment: %w", err)
	}
	return requireAffected(result)
}

// UpdateStatus transitions a pending appointment to status.
func (r *PlacementRepository) UpdateStatus(ctx context.Context, id string, status models.PlacementStatus) error {
	const query = `UPDATE citas_nivelacion SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id, models.PlacementStatusPending)
	if err != nil {
		return fmt.Errorf("update placement status: %w", err)
	}
	return requireAffected(result)
}

// ListPending returns pending appointments scheduled in [from, to), optionally for some students.
func (r *PlacementRepository) ListPending(ctx context.Context, from, to time.Time, studentIDs []string) ([]models.PlacementDetail, error) {
	conditions := []string{"p.status = $1", "p.scheduled_at >= $2", "p.scheduled_at < $3"}
	args := []interface{}{models.PlacementStatusPending, from, to}
	if studentIDs != nil {
		conditions = append(conditions, fmt.Sprintf("p.student_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(studentIDs))
	}
	query := fmt.Sprintf(`SELECT %s FROM citas_nivelacion p JOIN alumnos s ON s.id = p.student_id WHERE %s ORDER BY p.scheduled_at ASC`,
		placementDetailColumns, strings.Join(conditions, " AND "))
	var appts []models.PlacementDetail
	if err := r.db.SelectContext(ctx, &appts, query, args...); err != nil {
		return nil, fmt.Errorf("list pending placements: %w", err)
	}
	return appts, nil
}
