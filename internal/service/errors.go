package service

import (
	"errors"
	"fmt"

	"github.com/ifarias/examsched/internal/repository/base"
	"github.com/ifarias/examsched/internal/schedule"
)

var (
	// ErrNotFound is returned for reads/updates on a missing reservation.
	// Delete-style operations treat a missing row as a no-op instead.
	ErrNotFound = errors.New("reservation not found")

	// ErrValidation covers missing or malformed request fields, rejected
	// before any store access.
	ErrValidation = errors.New("validation failed")

	// ErrConflict covers placements that overlap an active reservation,
	// illegal status transitions and store integrity violations. Callers
	// must not retry these as if they were transient.
	ErrConflict = errors.New("scheduling conflict")

	// ErrMissingConfig means required reference data (such as the canonical
	// scheduled status) was never seeded. Distinguishable from a generic
	// storage failure on purpose.
	ErrMissingConfig = errors.New("missing reference configuration")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}

// classifyCheck maps conflict-detector errors onto the service taxonomy.
func classifyCheck(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, schedule.ErrSlotTaken),
		errors.Is(err, schedule.ErrOrderOutOfRange):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

// translateDBError converts store integrity violations into domain
// conflicts so raw postgres errors never leak to callers.
func translateDBError(err error) error {
	switch {
	case err == nil:
		return nil
	case base.UniqueViolation(err):
		return fmt.Errorf("%w: already exists: %v", ErrConflict, err)
	case base.ForeignKeyViolation(err):
		return fmt.Errorf("%w: still referenced: %v", ErrConflict, err)
	default:
		return err
	}
}
