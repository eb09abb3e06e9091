package realtime

import (
	"github.com/ifarias/examsched/internal/model"
	"github.com/ifarias/examsched/internal/schedule"
)

// ReconcilerSink feeds broadcast events into a local reconciler so the
// server keeps a warm view of the reservation set for new sessions.
type ReconcilerSink struct {
	rec *schedule.Reconciler
}

func NewReconcilerSink(rec *schedule.Reconciler) *ReconcilerSink {
	return &ReconcilerSink{rec: rec}
}

func (s *ReconcilerSink) Publish(evt model.ChangeEvent) {
	s.rec.ApplyEvent(evt)
}
