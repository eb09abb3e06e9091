package schedule

import (
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/ifarias/examsched/internal/model"
)

var (
	// ErrTerminalStatus means the reservation already reached DESCARTADO.
	ErrTerminalStatus = errors.New("reservation status is terminal")
	// ErrInvalidTransition means the confirmation workflow forbids the move.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Workflow events, named after the teacher/admin actions.
const (
	evConfirmar = "confirmar"
	evRechazar  = "rechazar"
	evRevisar   = "revisar"
	evDescartar = "descartar"
)

var lifecycleEvents = fsm.Events{
	{
		Name: evConfirmar,
		Src:  []string{string(model.StatusProgramado), string(model.StatusRequiereRevision), string(model.StatusRechazado)},
		Dst:  string(model.StatusConfirmado),
	},
	{
		Name: evRechazar,
		Src:  []string{string(model.StatusProgramado), string(model.StatusRequiereRevision), string(model.StatusConfirmado)},
		Dst:  string(model.StatusRechazado),
	},
	{
		Name: evRevisar,
		Src:  []string{string(model.StatusProgramado), string(model.StatusConfirmado), string(model.StatusRechazado)},
		Dst:  string(model.StatusRequiereRevision),
	},
	{
		Name: evDescartar,
		Src: []string{
			string(model.StatusProgramado),
			string(model.StatusConfirmado),
			string(model.StatusRechazado),
			string(model.StatusRequiereRevision),
		},
		Dst: string(model.StatusDescartado),
	},
}

var eventByTarget = map[model.StatusCode]string{
	model.StatusConfirmado:       evConfirmar,
	model.StatusRechazado:        evRechazar,
	model.StatusRequiereRevision: evRevisar,
	model.StatusDescartado:       evDescartar,
}

// NewLifecycle builds the confirmation-workflow machine positioned at the
// reservation's current status.
func NewLifecycle(current model.StatusCode) *fsm.FSM {
	return fsm.NewFSM(string(current), lifecycleEvents, fsm.Callbacks{})
}

// ValidateTransition checks whether the workflow allows moving from one
// status to another. Same-status moves are allowed so retried teacher
// responses stay idempotent.
func ValidateTransition(from, to model.StatusCode) error {
	if from == to {
		return nil
	}
	if from == model.StatusDescartado {
		return fmt.Errorf("%w: %s", ErrTerminalStatus, from)
	}

	event, ok := eventByTarget[to]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	if !NewLifecycle(from).Can(event) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	return nil
}

// CanRemove reports whether a reservation in this status may be discarded
// or cancelled.
func CanRemove(from model.StatusCode) bool {
	return from != model.StatusDescartado
}
