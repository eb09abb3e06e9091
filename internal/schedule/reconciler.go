package schedule

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ifarias/examsched/internal/model"
)

// Reconciler merges broadcast change events into a local view of the
// reservation set, the pool of still-unplaced exams and the calendar
// projection. Events arrive at-least-once and ordered per connection only,
// so every apply is idempotent, per-reservation last-write-wins, and never
// fails: malformed or stale input degrades to a no-op and the next Replace
// (full re-fetch) corrects any drift.
type Reconciler struct {
	mu           sync.RWMutex
	reservations map[int64]*model.Reservation
	previews     map[int64]int // reservation id -> previewed span length
	available    map[int64]model.Exam
	projection   *Projection
	logger       *zap.Logger
}

func NewReconciler(logger *zap.Logger) *Reconciler {
	return &Reconciler{
		reservations: make(map[int64]*model.Reservation),
		previews:     make(map[int64]int),
		available:    make(map[int64]model.Exam),
		projection:   NewProjection(),
		logger:       logger,
	}
}

// ApplyEvent dispatches a broadcast event. Unknown kinds are ignored.
func (rc *Reconciler) ApplyEvent(evt model.ChangeEvent) {
	switch evt.Kind {
	case model.EventReservationUpserted:
		if evt.Reservation != nil {
			rc.ApplyUpsert(*evt.Reservation)
		}
	case model.EventReservationRemoved:
		rc.ApplyRemove(evt.ReservationID, evt.ExamID)
	case model.EventSpanPreview:
		id := evt.ReservationID
		if id == 0 && evt.Reservation != nil {
			id = evt.Reservation.ID
		}
		rc.ApplyPreview(id, evt.NewModuleCount)
	default:
		rc.logger.Warn("ignoring unknown event kind", zap.String("kind", evt.Kind))
	}
}

// ApplyUpsert merges a reservation by id: insert when absent, field-wise
// overwrite when present. Any outstanding preview for it is superseded and
// its exam leaves the available pool.
func (rc *Reconciler) ApplyUpsert(res model.Reservation) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	stored := res
	rc.reservations[res.ID] = &stored
	delete(rc.previews, res.ID)
	delete(rc.available, res.ExamID)

	rc.rebuild()
}

// ApplyRemove deletes a reservation by id. A remove for an already-absent
// id is a no-op, and the liberated exam joins the available pool only once.
func (rc *Reconciler) ApplyRemove(reservationID, examID int64) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	res, existed := rc.reservations[reservationID]
	delete(rc.reservations, reservationID)
	delete(rc.previews, reservationID)

	if examID != 0 {
		if _, ok := rc.available[examID]; !ok {
			exam := model.Exam{ID: examID, State: model.ExamStatePending}
			if existed && res.Exam != nil && res.Exam.ID == examID {
				exam = *res.Exam
				exam.State = model.ExamStatePending
			}
			rc.available[examID] = exam
		}
	}

	rc.rebuild()
}

// ApplyPreview records another session's in-progress resize. It is
// non-authoritative: the previewed span renders in the pending layer and is
// superseded by the next upsert or remove for the same reservation. A
// preview for an unknown reservation is dropped.
func (rc *Reconciler) ApplyPreview(reservationID int64, newModuleCount int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if _, ok := rc.reservations[reservationID]; !ok {
		return
	}
	if newModuleCount < 1 {
		delete(rc.previews, reservationID)
	} else {
		rc.previews[reservationID] = newModuleCount
	}

	rc.rebuild()
}

// Replace swaps in a full server snapshot. This is the correctness backstop
// for any drift accumulated from lost or reordered events.
func (rc *Reconciler) Replace(reservations []*model.Reservation, availableExams []model.Exam) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.reservations = make(map[int64]*model.Reservation, len(reservations))
	for _, res := range reservations {
		stored := *res
		rc.reservations[res.ID] = &stored
	}

	rc.previews = make(map[int64]int)

	rc.available = make(map[int64]model.Exam, len(availableExams))
	for _, exam := range availableExams {
		rc.available[exam.ID] = exam
	}

	rc.rebuild()
}

// Snapshot returns the known reservations ordered by id.
func (rc *Reconciler) Snapshot() []model.Reservation {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	out := make([]model.Reservation, 0, len(rc.reservations))
	for _, res := range rc.reservations {
		out = append(out, *res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AvailableExams returns the unplaced-exam pool ordered by id.
func (rc *Reconciler) AvailableExams() []model.Exam {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	out := make([]model.Exam, 0, len(rc.available))
	for _, exam := range rc.available {
		out = append(out, exam)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup proxies the projection under the read lock.
func (rc *Reconciler) Lookup(date string, order int) *Occupant {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.projection.Lookup(date, order)
}

// IsSpanHead proxies the projection under the read lock.
func (rc *Reconciler) IsSpanHead(date string, order int) bool {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.projection.IsSpanHead(date, order)
}

// rebuild recomputes the projection. Reservations whose span cannot be
// resolved are skipped with a warning instead of failing the rebuild; the
// next Replace restores them. Callers hold the write lock.
func (rc *Reconciler) rebuild() {
	projectable := make([]*model.Reservation, 0, len(rc.reservations))
	var local []PendingPlacement

	for _, res := range rc.reservations {
		span, err := SpanOf(res)
		if err != nil {
			rc.logger.Warn("skipping unprojectable reservation",
				zap.Int64("reservation_id", res.ID),
				zap.Error(err))
			continue
		}
		projectable = append(projectable, res)

		// a previewed resize renders through the pending layer; the
		// committed cells keep winning until the real upsert lands
		if count, ok := rc.previews[res.ID]; ok && count != span.Length {
			local = append(local, PendingPlacement{
				ExamID: res.ExamID,
				Date:   res.DateKey(),
				Span:   Span{Start: span.Start, Length: count},
			})
		}
	}

	projection := NewProjection()
	if err := projection.Rebuild(projectable, local); err != nil {
		rc.logger.Warn("projection rebuild failed, keeping previous index", zap.Error(err))
		return
	}
	rc.projection = projection
}
