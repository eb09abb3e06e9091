package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ifarias/examsched/internal/model"
	"github.com/ifarias/examsched/internal/repository/base"
)

type RoomRepository struct {
	*base.Repository
}

func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{Repository: base.NewRepository(pool)}
}

// GetByID returns a room or nil when it does not exist.
func (r *RoomRepository) GetByID(ctx context.Context, id int64) (*model.Room, error) {
	query := `
		SELECT id, name, building, capacity, created_at
		FROM rooms
		WHERE id = $1
	`

	var room model.Room
	err := r.QueryRow(ctx, query, id).Scan(
		&room.ID,
		&room.Name,
		&room.Building,
		&room.Capacity,
		&room.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get room by id: %w", err)
	}

	return &room, nil
}

// GetAll returns every room ordered by building and name.
func (r *RoomRepository) GetAll(ctx context.Context) ([]model.Room, error) {
	query := `
		SELECT id, name, building, capacity, created_at
		FROM rooms
		ORDER BY building, name
	`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get rooms: %w", err)
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		var room model.Room
		err := rows.Scan(
			&room.ID,
			&room.Name,
			&room.Building,
			&room.Capacity,
			&room.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	return rooms, nil
}
