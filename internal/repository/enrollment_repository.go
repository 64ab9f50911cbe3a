package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/taller-agenda-api/internal/models"
)

const enrollmentDetailColumns = `e.id, e.student_id, e.workshop_id, e.days, e.time_range, e.phase, e.seat, e.status, e.cancel_reason, e.notes, e.created_at, e.updated_at,
        s.full_name AS student_name, s.user_id AS student_user_id, w.name AS workshop_name`

const enrollmentDetailFrom = `FROM inscripciones e
        JOIN alumnos s ON s.id = e.student_id
        JOIN talleres w ON w.id = e.workshop_id`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListActive returns active enrollments, optionally narrowed to students or a workshop.
func (r *EnrollmentRepository) ListActive(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	conditions := []string{"e.status = $1"}
	args := []interface{}{models.EnrollmentStatusActive}
	if len(filter.StudentIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("e.student_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.StudentIDs))
	}
	if filter.WorkshopID != "" {
		conditions = append(conditions, fmt.Sprintf("e.workshop_id = $%d", len(args)+1))
		args = append(args, filter.WorkshopID)
	}
	query := fmt.Sprintf("SELECT %s\n        %s\n        WHERE %s ORDER BY e.created_at ASC", enrollmentDetailColumns, enrollmentDetailFrom, strings.Join(conditions, " AND "))

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list active enrollments: %w", err)
	}
	return enrollments, nil
}

// ListActiveByWeekday returns active enrollments whose day list mentions day,
// matching with and without diacritics. Callers re-check the parsed pattern.
func (r *EnrollmentRepository) ListActiveByWeekday(ctx context.Context, day models.Weekday) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        %s
        WHERE e.status = $1 AND unaccent(e.days) ILIKE $2 ORDER BY e.created_at ASC`, enrollmentDetailColumns, enrollmentDetailFrom)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, models.EnrollmentStatusActive, "%"+string(day)+"%"); err != nil {
		return nil, fmt.Errorf("list enrollments by weekday: %w", err)
	}
	return filterByWeekday(enrollments, day), nil
}

// ListActiveByStudent returns a student's active enrollments.
func (r *EnrollmentRepository) ListActiveByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        %s
        WHERE e.student_id = $1 AND e.status = $2 ORDER BY e.created_at ASC`, enrollmentDetailColumns, enrollmentDetailFrom)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// FindDetailByID returns an enrollment with contextual info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        %s
        WHERE e.id = $1`, enrollmentDetailColumns, enrollmentDetailFrom)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ReserveSeat inserts the enrollment if none of its seat slots is held by an
// active enrollment. Concurrent reservations of one slot serialize on a
// transaction-scoped advisory lock keyed by the slot.
func (r *EnrollmentRepository) ReserveSeat(ctx context.Context, enrollment *models.Enrollment, slots []models.SeatSlot) (err error) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seat reservation: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, slot := range slots {
		if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, slot.LockKey()); err != nil {
			return fmt.Errorf("lock seat slot: %w", err)
		}
	}

	checked := make(map[models.Weekday][]models.Enrollment)
	for _, slot := range slots {
		holders, ok := checked[slot.Day]
		if !ok {
			holders, err = r.lockActiveByWeekday(ctx, tx, slot.Day)
			if err != nil {
				return err
			}
			checked[slot.Day] = holders
		}
		if holder, taken := models.SeatHolder(holders, slot); taken {
			err = &models.SeatConflictError{Slot: slot, EnrollmentID: holder.ID}
			return err
		}
	}

	const insertQuery = `INSERT INTO inscripciones (id, student_id, workshop_id, days, time_range, phase, seat, status, cancel_reason, notes, created_at, updated_at)
        VALUES (:id, :student_id, :workshop_id, :days, :time_range, :phase, :seat, :status, :cancel_reason, :notes, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insertQuery, enrollment); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit seat reservation: %w", err)
	}
	return nil
}

func (r *EnrollmentRepository) lockActiveByWeekday(ctx context.Context, tx *sqlx.Tx, day models.Weekday) ([]models.Enrollment, error) {
	const query = `SELECT id, student_id, workshop_id, days, time_range, phase, seat, status, cancel_reason, notes, created_at, updated_at
        FROM inscripciones WHERE status = $1 AND unaccent(days) ILIKE $2 FOR UPDATE`
	var enrollments []models.Enrollment
	if err := tx.SelectContext(ctx, &enrollments, query, models.EnrollmentStatusActive, "%"+string(day)+"%"); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("lock slot enrollments: %w", err)
	}
	return enrollments, nil
}

func filterByWeekday(enrollments []models.EnrollmentDetail, day models.Weekday) []models.EnrollmentDetail {
	filtered := enrollments[:0]
	for _, e := range enrollments {
		if e.Pattern().Includes(day) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
