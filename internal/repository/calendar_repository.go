package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/taller-agenda-api/internal/models"
)

// CalendarRepository persists non-working days.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository constructs a calendar repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// ListBetween returns declared days whose date falls in [from, to).
func (r *CalendarRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.NonWorkingDay, error) {
	const query = `SELECT id, date, reason, created_at, updated_at FROM dias_no_laborables WHERE date >= $1 AND date < $2 ORDER BY date ASC`
	var days []models.NonWorkingDay
	if err := r.db.SelectContext(ctx, &days, query, from, to); err != nil {
		return nil, fmt.Errorf("list non-working days: %w", err)
	}
	return days, nil
}

// FindOnDate returns the declaration covering the calendar date [dayStart, dayEnd).
func (r *CalendarRepository) FindOnDate(ctx context.Context, dayStart, dayEnd time.Time) (*models.NonWorkingDay, error) {
	const query = `SELECT id, date, reason, created_at, updated_at FROM dias_no_laborables WHERE date >= $1 AND date < $2 ORDER BY date ASC LIMIT 1`
	var day models.NonWorkingDay
	if err := r.db.GetContext(ctx, &day, query, dayStart, dayEnd); err != nil {
		return nil, err
	}
	return &day, nil
}

// Upsert stores one declaration per calendar date, updating the reason when it already exists.
// created reports whether a new row was inserted. Writers of the same date serialize on a
// transaction-scoped advisory lock taken before the lookup.
func (r *CalendarRepository) Upsert(ctx context.Context, day *models.NonWorkingDay, dayStart, dayEnd time.Time) (created bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin non-working day upsert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, nonWorkingDayLockKey(dayStart)); err != nil {
		return false, fmt.Errorf("lock non-working date: %w", err)
	}

	now := time.Now().UTC()
	var current struct {
		ID        string    `db:"id"`
		CreatedAt time.Time `db:"created_at"`
	}
	const selectQuery = `SELECT id, created_at FROM dias_no_laborables WHERE date >= $1 AND date < $2 ORDER BY date ASC LIMIT 1 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, selectQuery, dayStart, dayEnd); err != nil {
		if err != sql.ErrNoRows {
			return false, fmt.Errorf("lock non-working day: %w", err)
		}
		if day.ID == "" {
			day.ID = uuid.NewString()
		}
		day.CreatedAt = now
		day.UpdatedAt = now
		const insertQuery = `INSERT INTO dias_no_laborables (id, date, reason, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
		if _, err = tx.ExecContext(ctx, insertQuery, day.ID, day.Date, day.Reason, day.CreatedAt, day.UpdatedAt); err != nil {
			return false, fmt.Errorf("insert non-working day: %w", err)
		}
		created = true
	} else {
		day.ID = current.ID
		day.CreatedAt = current.CreatedAt
		day.UpdatedAt = now
		const updateQuery = `UPDATE dias_no_laborables SET reason = $1, updated_at = $2 WHERE id = $3`
		if _, err = tx.ExecContext(ctx, updateQuery, day.Reason, day.UpdatedAt, day.ID); err != nil {
			return false, fmt.Errorf("update non-working day: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit non-working day: %w", err)
	}
	return created, nil
}

func nonWorkingDayLockKey(dayStart time.Time) string {
	return "nwd:" + string(models.DateKeyOf(dayStart))
}

// DeleteBetween removes every declaration in [dayStart, dayEnd) and returns how many were removed.
func (r *CalendarRepository) DeleteBetween(ctx context.Context, dayStart, dayEnd time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM dias_no_laborables WHERE date >= $1 AND date < $2`, dayStart, dayEnd)
	if err != nil {
		return 0, fmt.Errorf("delete non-working day: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("non-working day rows affected: %w", err)
	}
	return affected, nil
}
