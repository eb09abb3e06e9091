package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ifarias/examsched/internal/model"
	"github.com/ifarias/examsched/internal/repository/base"
)

type ExamRepository struct {
	*base.Repository
}

func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{Repository: base.NewRepository(pool)}
}

// GetByID returns an exam or nil when it does not exist.
func (r *ExamRepository) GetByID(ctx context.Context, id int64) (*model.Exam, error) {
	query := `
		SELECT id, subject, section, module_count, state, created_at, updated_at
		FROM exams
		WHERE id = $1
	`

	var exam model.Exam
	err := r.QueryRow(ctx, query, id).Scan(
		&exam.ID,
		&exam.Subject,
		&exam.Section,
		&exam.ModuleCount,
		&exam.State,
		&exam.CreatedAt,
		&exam.UpdatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get exam by id: %w", err)
	}

	return &exam, nil
}

// ListPending returns exams still waiting for a placement.
func (r *ExamRepository) ListPending(ctx context.Context) ([]model.Exam, error) {
	query := `
		SELECT id, subject, section, module_count, state, created_at, updated_at
		FROM exams
		WHERE state = $1
		ORDER BY subject, section
	`

	rows, err := r.Query(ctx, query, model.ExamStatePending)
	if err != nil {
		return nil, fmt.Errorf("list pending exams: %w", err)
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var exam model.Exam
		err := rows.Scan(
			&exam.ID,
			&exam.Subject,
			&exam.Section,
			&exam.ModuleCount,
			&exam.State,
			&exam.CreatedAt,
			&exam.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		exams = append(exams, exam)
	}

	return exams, nil
}

// UpdateModuleCount records a new exam duration. It runs on the caller's
// Querier so a resize commits the duration together with the module rows.
func (r *ExamRepository) UpdateModuleCount(ctx context.Context, db base.Querier, id int64, moduleCount int) error {
	query := `
		UPDATE exams
		SET module_count = $1, updated_at = now()
		WHERE id = $2
	`

	tag, err := db.Exec(ctx, query, moduleCount, id)
	if err != nil {
		return fmt.Errorf("update exam module count: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("exam not found")
	}

	return nil
}

// SetState flips an exam's placement state. It runs on the caller's Querier
// so the flip commits atomically with the reservation writes.
func (r *ExamRepository) SetState(ctx context.Context, db base.Querier, id int64, state model.ExamState) error {
	query := `
		UPDATE exams
		SET state = $1, updated_at = now()
		WHERE id = $2
	`

	tag, err := db.Exec(ctx, query, state, id)
	if err != nil {
		return fmt.Errorf("set exam state: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("exam not found")
	}

	return nil
}
