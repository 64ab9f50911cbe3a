package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/taller-agenda-api/internal/models"
)

func newPlacementMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPlacementRepositoryCreateDuplicatePending(t *testing.T) {
	db, mock, cleanup := newPlacementMock(t)
	defer cleanup()
	repo := NewPlacementRepository(db)

	mock.ExpectExec("INSERT INTO citas_nivelacion").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.PlacementAppointment{StudentID: "stu-1", ScheduledAt: time.Now()})
	assert.ErrorIs(t, err, ErrDuplicatePending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlacementRepositoryListPendingForStudents(t *testing.T) {
	db, mock, cleanup := newPlacementMock(t)
	defer cleanup()
	repo := NewPlacementRepository(db)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 8)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.status = $1 AND p.scheduled_at >= $2 AND p.scheduled_at < $3 AND p.student_id = ANY($4) ORDER BY p.scheduled_at ASC")).
		WithArgs(models.PlacementStatusPending, from, to, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "scheduled_at", "status", "note", "created_at", "updated_at", "student_name", "student_user_id"}).
			AddRow("pl-1", "stu-1", from.Add(10*time.Hour), models.PlacementStatusPending, "", now, now, "Ana", "user-1"))

	appts, err := repo.ListPending(context.Background(), from, to, []string{"stu-1"})
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "Ana", appts[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlacementRepositoryUpdateStatusRequiresPending(t *testing.T) {
	db, mock, cleanup := newPlacementMock(t)
	defer cleanup()
	repo := NewPlacementRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE citas_nivelacion SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4")).
		WithArgs(models.PlacementStatusCancelled, sqlmock.AnyArg(), "pl-1", models.PlacementStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "pl-1", models.PlacementStatusCancelled)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
