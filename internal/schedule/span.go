package schedule

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ifarias/examsched/internal/model"
)

var (
	// ErrOrderOutOfRange means a requested module order has no module row.
	ErrOrderOutOfRange = errors.New("module order out of range")
	// ErrNoModuleData means a reservation carries neither a start order nor
	// module rows, so its span cannot be known.
	ErrNoModuleData = errors.New("reservation has no module data")
	// ErrNonContiguous means a module set does not form one ascending run.
	ErrNonContiguous = errors.New("modules do not form a contiguous run")
)

// Span is a contiguous run of module orders.
type Span struct {
	Start  int
	Length int
}

// Orders expands the span into its occupied module orders.
func (s Span) Orders() []int {
	orders := make([]int, 0, s.Length)
	for i := 0; i < s.Length; i++ {
		orders = append(orders, s.Start+i)
	}
	return orders
}

// Contains reports whether order falls inside the span.
func (s Span) Contains(order int) bool {
	return order >= s.Start && order < s.Start+s.Length
}

// ModuleIndex is the ordered catalog of the day's time slots keyed by their
// sequence position.
type ModuleIndex struct {
	byOrder map[int]model.Module
	byID    map[int64]model.Module
}

func NewModuleIndex(modules []model.Module) *ModuleIndex {
	ix := &ModuleIndex{
		byOrder: make(map[int]model.Module, len(modules)),
		byID:    make(map[int64]model.Module, len(modules)),
	}
	for _, m := range modules {
		ix.byOrder[m.Order] = m
		ix.byID[m.ID] = m
	}
	return ix
}

// ByOrder returns the module at a sequence position.
func (ix *ModuleIndex) ByOrder(order int) (model.Module, bool) {
	m, ok := ix.byOrder[order]
	return m, ok
}

// Len returns the number of catalogued modules.
func (ix *ModuleIndex) Len() int {
	return len(ix.byOrder)
}

// Resolve maps a span onto concrete module ids. It fails when any order in
// the span has no module.
func (ix *ModuleIndex) Resolve(span Span) ([]int64, error) {
	if span.Length < 1 {
		return nil, fmt.Errorf("span length must be positive, got %d", span.Length)
	}

	ids := make([]int64, 0, span.Length)
	for _, order := range span.Orders() {
		m, ok := ix.byOrder[order]
		if !ok {
			return nil, fmt.Errorf("%w: order %d", ErrOrderOutOfRange, order)
		}
		ids = append(ids, m.ID)
	}

	return ids, nil
}

// SpanFromModuleIDs derives the span a module-id set occupies and verifies
// it forms a contiguous ascending run without duplicates.
func (ix *ModuleIndex) SpanFromModuleIDs(moduleIDs []int64) (Span, error) {
	if len(moduleIDs) == 0 {
		return Span{}, ErrNoModuleData
	}

	orders := make([]int, 0, len(moduleIDs))
	seen := make(map[int]bool, len(moduleIDs))
	for _, id := range moduleIDs {
		m, ok := ix.byID[id]
		if !ok {
			return Span{}, fmt.Errorf("%w: unknown module id %d", ErrOrderOutOfRange, id)
		}
		if seen[m.Order] {
			return Span{}, fmt.Errorf("%w: duplicate order %d", ErrNonContiguous, m.Order)
		}
		seen[m.Order] = true
		orders = append(orders, m.Order)
	}

	sort.Ints(orders)
	for i := 1; i < len(orders); i++ {
		if orders[i] != orders[i-1]+1 {
			return Span{}, fmt.Errorf("%w: gap between orders %d and %d", ErrNonContiguous, orders[i-1], orders[i])
		}
	}

	return Span{Start: orders[0], Length: len(orders)}, nil
}

// SpanOf resolves the span a persisted reservation occupies. The recorded
// start order is authoritative when present; the module rows only supply the
// start as a fallback, since they go stale if partially deleted. A
// reservation without module rows is an error, never a default span.
func SpanOf(res *model.Reservation) (Span, error) {
	if len(res.Modules) == 0 {
		return Span{}, fmt.Errorf("reservation %d: %w", res.ID, ErrNoModuleData)
	}

	start := res.StartOrder
	if start < 1 {
		start = res.Modules[0].Order
		for _, m := range res.Modules[1:] {
			if m.Order < start {
				start = m.Order
			}
		}
	}

	return Span{Start: start, Length: len(res.Modules)}, nil
}
