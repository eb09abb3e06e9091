package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ifarias/examsched/internal/model"
	"github.com/ifarias/examsched/internal/repository/base"
)

type ModuleRepository struct {
	*base.Repository
}

func NewModuleRepository(pool *pgxpool.Pool) *ModuleRepository {
	return &ModuleRepository{Repository: base.NewRepository(pool)}
}

// GetAll returns the day's module catalog ordered by sequence position.
func (r *ModuleRepository) GetAll(ctx context.Context) ([]model.Module, error) {
	query := `
		SELECT id, module_order, start_time, end_time, created_at
		FROM modules
		ORDER BY module_order
	`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get modules: %w", err)
	}
	defer rows.Close()

	var modules []model.Module
	for rows.Next() {
		var m model.Module
		err := rows.Scan(
			&m.ID,
			&m.Order,
			&m.StartTime,
			&m.EndTime,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		modules = append(modules, m)
	}

	return modules, nil
}

// GetByReservationID returns a reservation's associated modules ordered by
// sequence position.
func (r *ModuleRepository) GetByReservationID(ctx context.Context, reservationID int64) ([]model.Module, error) {
	query := `
		SELECT m.id, m.module_order, m.start_time, m.end_time, m.created_at
		FROM modules m
		JOIN reservation_modules rm ON rm.module_id = m.id
		WHERE rm.reservation_id = $1
		ORDER BY m.module_order
	`

	rows, err := r.Query(ctx, query, reservationID)
	if err != nil {
		return nil, fmt.Errorf("get reservation modules: %w", err)
	}
	defer rows.Close()

	var modules []model.Module
	for rows.Next() {
		var m model.Module
		err := rows.Scan(
			&m.ID,
			&m.Order,
			&m.StartTime,
			&m.EndTime,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		modules = append(modules, m)
	}

	return modules, nil
}
