package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/taller-agenda-api/internal/models"
)

const creditColumns = `c.id, c.student_id, c.workshop_id, c.enrollment_id, c.origin_date, c.kind, c.reason, c.used, c.scheduled_date, c.scheduled_block, c.used_at, c.created_at`

// MakeUpCreditRepository persists compensation credits.
type MakeUpCreditRepository struct {
	db *sqlx.DB
}

// NewMakeUpCreditRepository constructs the repository.
func NewMakeUpCreditRepository(db *sqlx.DB) *MakeUpCreditRepository {
	return &MakeUpCreditRepository{db: db}
}

// CreateIfAbsent inserts a credit unless one already exists for the same
// enrollment, origin date and kind. It reports whether a row was inserted.
func (r *MakeUpCreditRepository) CreateIfAbsent(ctx context.Context, credit *models.MakeUpCredit) (bool, error) {
	if credit.ID == "" {
		credit.ID = uuid.NewString()
	}
	if credit.CreatedAt.IsZero() {
		credit.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO creditos_clase_extra (id, student_id, workshop_id, enrollment_id, origin_date, kind, reason, used, scheduled_date, scheduled_block, used_at, created_at)
        VALUES (:id, :student_id, :workshop_id, :enrollment_id, :origin_date, :kind, :reason, :used, :scheduled_date, :scheduled_block, :used_at, :created_at)
        ON CONFLICT (enrollment_id, kind, origin_date) WHERE enrollment_id IS NOT NULL AND origin_date IS NOT NULL DO NOTHING`
	result, err := r.db.NamedExecContext(ctx, query, credit)
	if err != nil {
		return false, fmt.Errorf("create make-up credit: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("make-up credit rows affected: %w", err)
	}
	return affected > 0, nil
}

// FindByID fetches a credit.
func (r *MakeUpCreditRepository) FindByID(ctx context.Context, id string) (*models.MakeUpCredit, error) {
	query := fmt.Sprintf(`SELECT %s FROM creditos_clase_extra c WHERE c.id = $1`, creditColumns)
	var credit models.MakeUpCredit
	if err := r.db.GetContext(ctx, &credit, query, id); err != nil {
		return nil, err
	}
	return &credit, nil
}

// ListByStudent returns a student's credits filtered by the used flag.
func (r *MakeUpCreditRepository) ListByStudent(ctx context.Context, studentID string, used bool) ([]models.MakeUpCreditDetail, error) {
	order := "c.created_at ASC"
	if used {
		order = "c.scheduled_date DESC, c.used_at DESC"
	}
	query := fmt.Sprintf(`SELECT %s, w.name AS workshop_name
        FROM creditos_clase_extra c
        LEFT JOIN talleres w ON w.id = c.workshop_id
        WHERE c.student_id = $1 AND c.used = $2 ORDER BY %s`, creditColumns, order)
	var credits []models.MakeUpCreditDetail
	if err := r.db.SelectContext(ctx, &credits, query, studentID, used); err != nil {
		return nil, fmt.Errorf("list make-up credits: %w", err)
	}
	return credits, nil
}

// MarkUsed schedules an unused credit. It reports false when the credit was
// already used by the time the update ran.
func (r *MakeUpCreditRepository) MarkUsed(ctx context.Context, id, workshopID string, date time.Time, block string, usedAt time.Time) (bool, error) {
	const query = `UPDATE creditos_clase_extra
        SET used = TRUE, scheduled_date = $2, scheduled_block = $3, used_at = $4, workshop_id = COALESCE(workshop_id, $5)
        WHERE id = $1 AND used = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, date, block, usedAt, workshopID)
	if err != nil {
		return false, fmt.Errorf("mark make-up credit used: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("make-up credit rows affected: %w", err)
	}
	return affected > 0, nil
}
