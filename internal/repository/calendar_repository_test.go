package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/taller-agenda-api/internal/models"
)

func newCalendarMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCalendarRepositoryUpsertInserts(t *testing.T) {
	db, mock, cleanup := newCalendarMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	date := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	start, end := models.DayRange(date)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("nwd:2026-03-20").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM dias_no_laborables WHERE date >= $1 AND date < $2 ORDER BY date ASC LIMIT 1 FOR UPDATE")).
		WithArgs(start, end).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dias_no_laborables")).
		WithArgs(sqlmock.AnyArg(), date, "Feriado", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	day := &models.NonWorkingDay{Date: date, Reason: "Feriado"}
	created, err := repo.Upsert(context.Background(), day, start, end)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, day.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarRepositoryUpsertUpdatesExistingDate(t *testing.T) {
	db, mock, cleanup := newCalendarMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	date := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	start, end := models.DayRange(date)
	createdAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("nwd:2026-03-20").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("nwd-1", createdAt))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE dias_no_laborables SET reason = $1, updated_at = $2 WHERE id = $3")).
		WithArgs("Mantenimiento", sqlmock.AnyArg(), "nwd-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	day := &models.NonWorkingDay{Date: date, Reason: "Mantenimiento"}
	created, err := repo.Upsert(context.Background(), day, start, end)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "nwd-1", day.ID)
	assert.Equal(t, createdAt, day.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarRepositoryUpsertLocksDateBeforeLookup(t *testing.T) {
	db, mock, cleanup := newCalendarMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	date := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	start, end := models.DayRange(date)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("nwd:2026-03-20").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := repo.Upsert(context.Background(), &models.NonWorkingDay{Date: date, Reason: "Feriado"}, start, end)
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarRepositoryDeleteBetween(t *testing.T) {
	db, mock, cleanup := newCalendarMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	start, end := models.DayRange(time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM dias_no_laborables WHERE date >= $1 AND date < $2")).
		WithArgs(start, end).
		WillReturnResult(sqlmock.NewResult(0, 1))

	removed, err := repo.DeleteBetween(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarRepositoryListBetween(t *testing.T) {
	db, mock, cleanup := newCalendarMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, date, reason, created_at, updated_at FROM dias_no_laborables WHERE date >= $1 AND date < $2 ORDER BY date ASC")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id", "date", "reason", "created_at", "updated_at"}).
			AddRow("nwd-1", time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC), "Feriado", now, now))

	days, err := repo.ListBetween(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "Feriado", days[0].Reason)
	require.NoError(t, mock.ExpectationsWereMet())
}
