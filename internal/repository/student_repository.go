package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/taller-agenda-api/internal/models"
)

const studentColumns = `id, user_id, full_name, email, active, created_at, updated_at`

// StudentRepository reads student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID fetches a student.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM alumnos WHERE id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByIDs returns the students with the given ids.
func (r *StudentRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	if len(ids) == 0 {
		return []models.Student{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM alumnos WHERE id = ANY($1) ORDER BY full_name ASC`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find students: %w", err)
	}
	return students, nil
}

// ListByUser returns the students owned by a family account.
func (r *StudentRepository) ListByUser(ctx context.Context, userID string) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM alumnos WHERE user_id = $1 ORDER BY full_name ASC`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, userID); err != nil {
		return nil, fmt.Errorf("list students by user: %w", err)
	}
	return students, nil
}
