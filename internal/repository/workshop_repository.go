package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/taller-agenda-api/internal/models"
)

const workshopColumns = `id, name, active, days, start_time, duration_minutes, capacity, price, time_blocks, created_at, updated_at`

// WorkshopRepository reads workshop offerings.
type WorkshopRepository struct {
	db *sqlx.DB
}

// NewWorkshopRepository constructs the repository.
func NewWorkshopRepository(db *sqlx.DB) *WorkshopRepository {
	return &WorkshopRepository{db: db}
}

// FindByID fetches a workshop.
func (r *WorkshopRepository) FindByID(ctx context.Context, id string) (*models.Workshop, error) {
	query := fmt.Sprintf(`SELECT %s FROM talleres WHERE id = $1`, workshopColumns)
	var workshop models.Workshop
	if err := r.db.GetContext(ctx, &workshop, query, id); err != nil {
		return nil, err
	}
	return &workshop, nil
}

// ListActiveByWeekday returns active workshops running on day, ordered by name.
func (r *WorkshopRepository) ListActiveByWeekday(ctx context.Context, day models.Weekday) ([]models.Workshop, error) {
	query := fmt.Sprintf(`SELECT %s FROM talleres WHERE active = TRUE AND unaccent(days) ILIKE $1 ORDER BY name ASC`, workshopColumns)
	var workshops []models.Workshop
	if err := r.db.SelectContext(ctx, &workshops, query, "%"+string(day)+"%"); err != nil {
		return nil, fmt.Errorf("list workshops by weekday: %w", err)
	}
	filtered := workshops[:0]
	for _, w := range workshops {
		if w.MeetsOn(day) {
			filtered = append(filtered, w)
		}
	}
	return filtered, nil
}

// ListPriceVariants returns the variant prices configured for a workshop.
func (r *WorkshopRepository) ListPriceVariants(ctx context.Context, workshopID string) ([]models.WorkshopPriceVariant, error) {
	const query = `SELECT workshop_id, days_per_week, modality, price FROM precios_variantes WHERE workshop_id = $1 ORDER BY days_per_week ASC, modality ASC`
	var variants []models.WorkshopPriceVariant
	if err := r.db.SelectContext(ctx, &variants, query, workshopID); err != nil {
		return nil, fmt.Errorf("list workshop price variants: %w", err)
	}
	return variants, nil
}
