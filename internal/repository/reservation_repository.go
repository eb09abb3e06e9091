package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ifarias/examsched/internal/model"
	"github.com/ifarias/examsched/internal/repository/base"
)

// ReservationFilter narrows List queries; nil fields are ignored.
type ReservationFilter struct {
	RoomID *int64
	ExamID *int64
	Date   *time.Time
	Status *model.StatusCode
}

type ReservationRepository struct {
	*base.Repository
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{Repository: base.NewRepository(pool)}
}

const reservationColumns = `
	r.id, r.exam_id, r.room_id, r.status_id, s.code, r.date, r.start_order,
	r.teacher_id, r.notes, r.created_at, r.updated_at
`

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var res model.Reservation
	err := row.Scan(
		&res.ID,
		&res.ExamID,
		&res.RoomID,
		&res.StatusID,
		&res.Status,
		&res.Date,
		&res.StartOrder,
		&res.TeacherID,
		&res.Notes,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Create inserts the reservation row and fills the generated fields.
func (r *ReservationRepository) Create(ctx context.Context, db base.Querier, res *model.Reservation) error {
	query := `
		INSERT INTO reservations (exam_id, room_id, status_id, date, start_order, teacher_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := db.QueryRow(
		ctx, query,
		res.ExamID,
		res.RoomID,
		res.StatusID,
		res.Date,
		res.StartOrder,
		res.TeacherID,
		res.Notes,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}

	return nil
}

// InsertModules bulk-inserts the module associations of a reservation.
func (r *ReservationRepository) InsertModules(ctx context.Context, db base.Querier, reservationID int64, moduleIDs []int64) error {
	query := `
		INSERT INTO reservation_modules (reservation_id, module_id)
		SELECT $1, unnest($2::bigint[])
	`

	_, err := db.Exec(ctx, query, reservationID, moduleIDs)
	if err != nil {
		return fmt.Errorf("insert reservation modules: %w", err)
	}

	return nil
}

// DeleteModules removes every module association of a reservation.
func (r *ReservationRepository) DeleteModules(ctx context.Context, db base.Querier, reservationID int64) error {
	query := `DELETE FROM reservation_modules WHERE reservation_id = $1`

	if _, err := db.Exec(ctx, query, reservationID); err != nil {
		return fmt.Errorf("delete reservation modules: %w", err)
	}

	return nil
}

// Delete removes the reservation row and returns the affected count so the
// caller can distinguish an already-gone reservation.
func (r *ReservationRepository) Delete(ctx context.Context, db base.Querier, id int64) (int64, error) {
	query := `DELETE FROM reservations WHERE id = $1`

	tag, err := db.Exec(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("delete reservation: %w", err)
	}

	return tag.RowsAffected(), nil
}

// UpdateStatus sets the confirmation status and optional notes.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, db base.Querier, id, statusID int64, notes string) error {
	query := `
		UPDATE reservations
		SET status_id = $1, notes = $2, updated_at = now()
		WHERE id = $3
	`

	tag, err := db.Exec(ctx, query, statusID, notes, id)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reservation not found")
	}

	return nil
}

// UpdatePlacement rewrites room, date and start order after a move/resize.
func (r *ReservationRepository) UpdatePlacement(ctx context.Context, db base.Querier, id, roomID int64, date time.Time, startOrder int) error {
	query := `
		UPDATE reservations
		SET room_id = $1, date = $2, start_order = $3, updated_at = now()
		WHERE id = $4
	`

	tag, err := db.Exec(ctx, query, roomID, date, startOrder, id)
	if err != nil {
		return fmt.Errorf("update reservation placement: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reservation not found")
	}

	return nil
}

// GetByID returns a reservation with its module rows, or nil when absent.
func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*model.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations r
		JOIN reservation_statuses s ON s.id = r.status_id
		WHERE r.id = $1
	`

	res, err := scanReservation(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation by id: %w", err)
	}

	if err := r.loadModules(ctx, res); err != nil {
		return nil, err
	}

	return res, nil
}

// GetActiveByExam returns the exam's current reservation, or nil.
func (r *ReservationRepository) GetActiveByExam(ctx context.Context, examID int64) (*model.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations r
		JOIN reservation_statuses s ON s.id = r.status_id
		WHERE r.exam_id = $1
		LIMIT 1
	`

	res, err := scanReservation(r.QueryRow(ctx, query, examID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation by exam: %w", err)
	}

	if err := r.loadModules(ctx, res); err != nil {
		return nil, err
	}

	return res, nil
}

// List returns reservations matching the filter, modules included, newest
// first.
func (r *ReservationRepository) List(ctx context.Context, filter ReservationFilter) ([]*model.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations r
		JOIN reservation_statuses s ON s.id = r.status_id
		WHERE ($1::bigint IS NULL OR r.room_id = $1)
		  AND ($2::bigint IS NULL OR r.exam_id = $2)
		  AND ($3::date IS NULL OR r.date = $3)
		  AND ($4::text IS NULL OR s.code = $4)
		ORDER BY r.date, r.start_order, r.id
	`

	rows, err := r.Query(ctx, query, filter.RoomID, filter.ExamID, filter.Date, filter.Status)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	rows.Close()

	for _, res := range reservations {
		if err := r.loadModules(ctx, res); err != nil {
			return nil, err
		}
	}

	return reservations, nil
}

// OccupiedOrders returns the module orders taken by active reservations in
// a room on a date, minus the excluded reservation/exam. It runs on the
// caller's Querier so the conflict re-check sees in-transaction state.
func (r *ReservationRepository) OccupiedOrders(ctx context.Context, db base.Querier, roomID int64, date time.Time, excludeReservationID, excludeExamID *int64) ([]int, error) {
	query := `
		SELECT m.module_order
		FROM reservations r
		JOIN reservation_modules rm ON rm.reservation_id = r.id
		JOIN modules m ON m.id = rm.module_id
		WHERE r.room_id = $1
		  AND r.date = $2
		  AND ($3::bigint IS NULL OR r.id <> $3)
		  AND ($4::bigint IS NULL OR r.exam_id <> $4)
		ORDER BY m.module_order
	`

	rows, err := db.Query(ctx, query, roomID, date, excludeReservationID, excludeExamID)
	if err != nil {
		return nil, fmt.Errorf("get occupied orders: %w", err)
	}
	defer rows.Close()

	var orders []int
	for rows.Next() {
		var order int
		if err := rows.Scan(&order); err != nil {
			return nil, fmt.Errorf("scan occupied order: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, nil
}

func (r *ReservationRepository) loadModules(ctx context.Context, res *model.Reservation) error {
	query := `
		SELECT m.id, m.module_order, m.start_time, m.end_time, m.created_at
		FROM modules m
		JOIN reservation_modules rm ON rm.module_id = m.id
		WHERE rm.reservation_id = $1
		ORDER BY m.module_order
	`

	rows, err := r.Query(ctx, query, res.ID)
	if err != nil {
		return fmt.Errorf("load reservation modules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m model.Module
		err := rows.Scan(&m.ID, &m.Order, &m.StartTime, &m.EndTime, &m.CreatedAt)
		if err != nil {
			return fmt.Errorf("scan module: %w", err)
		}
		res.Modules = append(res.Modules, m)
	}

	return nil
}
