package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ifarias/examsched/internal/model"
	"github.com/ifarias/examsched/internal/repository/base"
)

// StatusRepository reads the reservation_statuses reference table.
type StatusRepository struct {
	*base.Repository
}

func NewStatusRepository(pool *pgxpool.Pool) *StatusRepository {
	return &StatusRepository{Repository: base.NewRepository(pool)}
}

// GetByCode returns the status row for a code, or nil when the reference
// data was never seeded.
func (r *StatusRepository) GetByCode(ctx context.Context, code model.StatusCode) (*model.ReservationStatus, error) {
	query := `
		SELECT id, code
		FROM reservation_statuses
		WHERE code = $1
	`

	var status model.ReservationStatus
	err := r.QueryRow(ctx, query, code).Scan(&status.ID, &status.Code)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get status by code: %w", err)
	}

	return &status, nil
}

// GetAll returns every status row.
func (r *StatusRepository) GetAll(ctx context.Context) ([]model.ReservationStatus, error) {
	query := `
		SELECT id, code
		FROM reservation_statuses
		ORDER BY id
	`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get statuses: %w", err)
	}
	defer rows.Close()

	var statuses []model.ReservationStatus
	for rows.Next() {
		var status model.ReservationStatus
		if err := rows.Scan(&status.ID, &status.Code); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}
