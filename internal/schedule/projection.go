package schedule

import (
	"fmt"

	"github.com/ifarias/examsched/internal/model"
)

// CellKey addresses one calendar cell inside the loaded room window.
type CellKey struct {
	Date  string // YYYY-MM-DD
	Order int
}

// Occupant describes what fills a calendar cell. StartOrder and Length let
// the caller decide which cell owns the visible block and which cells are
// silent continuations.
type Occupant struct {
	ReservationID int64
	ExamID        int64
	StartOrder    int
	Length        int
	Status        model.StatusCode
	Pending       bool // true for a local, not-yet-committed placement
}

// PendingPlacement is a locally selected placement that has not been
// committed yet. It is owned by the initiating session.
type PendingPlacement struct {
	ExamID int64
	Date   string
	Span   Span
}

// Projection is the read-optimized (date, order) -> occupant index for the
// currently loaded room window. It carries two layers: committed
// reservations always win; local pending placements only fill cells the
// committed layer leaves empty.
type Projection struct {
	committed map[CellKey]*Occupant
	pending   map[CellKey]*Occupant
}

func NewProjection() *Projection {
	return &Projection{
		committed: make(map[CellKey]*Occupant),
		pending:   make(map[CellKey]*Occupant),
	}
}

// Rebuild recomputes both layers from scratch. It fails when a reservation's
// span cannot be resolved; callers decide whether to keep serving the
// previous projection.
func (p *Projection) Rebuild(reservations []*model.Reservation, local []PendingPlacement) error {
	committed := make(map[CellKey]*Occupant)
	pending := make(map[CellKey]*Occupant)

	for _, res := range reservations {
		if !res.IsActive() {
			continue
		}
		span, err := SpanOf(res)
		if err != nil {
			return fmt.Errorf("project reservation %d: %w", res.ID, err)
		}

		occ := &Occupant{
			ReservationID: res.ID,
			ExamID:        res.ExamID,
			StartOrder:    span.Start,
			Length:        span.Length,
			Status:        res.Status,
		}
		date := res.DateKey()
		for _, order := range span.Orders() {
			committed[CellKey{Date: date, Order: order}] = occ
		}
	}

	for _, pl := range local {
		occ := &Occupant{
			ExamID:     pl.ExamID,
			StartOrder: pl.Span.Start,
			Length:     pl.Span.Length,
			Pending:    true,
		}
		for _, order := range pl.Span.Orders() {
			pending[CellKey{Date: pl.Date, Order: order}] = occ
		}
	}

	p.committed = committed
	p.pending = pending
	return nil
}

// Lookup returns the cell's occupant or nil when it is empty. The committed
// layer always takes precedence over the pending layer.
func (p *Projection) Lookup(date string, order int) *Occupant {
	key := CellKey{Date: date, Order: order}
	if occ, ok := p.committed[key]; ok {
		return occ
	}
	if occ, ok := p.pending[key]; ok {
		return occ
	}
	return nil
}

// IsSpanHead reports whether this cell renders the visible block header,
// i.e. the occupant's span starts here.
func (p *Projection) IsSpanHead(date string, order int) bool {
	occ := p.Lookup(date, order)
	return occ != nil && occ.StartOrder == order
}
