package schedule

import (
	"errors"
	"fmt"
)

// ErrSlotTaken means at least one module in the requested span is already
// occupied by another active reservation.
var ErrSlotTaken = errors.New("module already reserved")

// CheckSpan decides whether a span can be placed given the module catalog
// and the orders already occupied in the target room and date. The caller
// supplies occupied orders with any self-exclusions already applied. The
// check is exhaustive: one conflicting slot rejects the whole placement,
// and rejection means the caller must not write anything.
func CheckSpan(ix *ModuleIndex, occupied []int, span Span) error {
	if span.Length < 1 {
		return fmt.Errorf("span length must be positive, got %d", span.Length)
	}

	taken := make(map[int]bool, len(occupied))
	for _, order := range occupied {
		taken[order] = true
	}

	for _, order := range span.Orders() {
		if _, ok := ix.ByOrder(order); !ok {
			return fmt.Errorf("%w: order %d", ErrOrderOutOfRange, order)
		}
		if taken[order] {
			return fmt.Errorf("%w: order %d", ErrSlotTaken, order)
		}
	}

	return nil
}
