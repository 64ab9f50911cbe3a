package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var studentRowColumns = []string{"id", "user_id", "full_name", "email", "active", "created_at", "updated_at"}

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryListByUser(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, full_name, email, active, created_at, updated_at FROM alumnos WHERE user_id = $1 ORDER BY full_name ASC")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(studentRowColumns).
			AddRow("stu-1", "user-1", "Ana", "ana@example.com", true, now, now).
			AddRow("stu-2", "user-1", "Beto", "ana@example.com", true, now, now))

	students, err := repo.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, students, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDsEmpty(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	students, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDs(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM alumnos WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(studentRowColumns).AddRow("stu-1", "user-1", "Ana", "ana@example.com", true, now, now))

	students, err := repo.FindByIDs(context.Background(), []string{"stu-1"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "ana@example.com", students[0].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}
