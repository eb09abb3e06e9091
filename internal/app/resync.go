package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ifarias/examsched/internal/model"
	"github.com/ifarias/examsched/internal/repository"
	"github.com/ifarias/examsched/internal/schedule"
)

type (
	reservationLister interface {
		List(ctx context.Context, filter repository.ReservationFilter) ([]*model.Reservation, error)
	}
	examLister interface {
		ListPending(ctx context.Context) ([]model.Exam, error)
	}
)

// Resyncer periodically replaces the reconciler's state with a full store
// snapshot. Broadcast events keep the view fresh between runs; the full
// re-fetch is the backstop against drift from lost or reordered events.
type Resyncer struct {
	reservations reservationLister
	exams        examLister
	rec          *schedule.Reconciler
	interval     time.Duration
	logger       *zap.Logger
	stopChan     chan struct{}
}

func NewResyncer(
	reservations reservationLister,
	exams examLister,
	rec *schedule.Reconciler,
	interval time.Duration,
	logger *zap.Logger,
) *Resyncer {
	return &Resyncer{
		reservations: reservations,
		exams:        exams,
		rec:          rec,
		interval:     interval,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start runs the resync loop in the background.
func (r *Resyncer) Start(ctx context.Context) {
	go r.run(ctx)
}

// Stop terminates the loop.
func (r *Resyncer) Stop() {
	close(r.stopChan)
}

func (r *Resyncer) run(ctx context.Context) {
	// first sync right away so the view is warm before traffic arrives
	r.resync(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.resync(ctx)
		case <-r.stopChan:
			r.logger.Info("resync task stopped")
			return
		case <-ctx.Done():
			r.logger.Info("resync task cancelled")
			return
		}
	}
}

func (r *Resyncer) resync(ctx context.Context) {
	reservations, err := r.reservations.List(ctx, repository.ReservationFilter{})
	if err != nil {
		r.logger.Error("resync: failed to list reservations", zap.Error(err))
		return
	}

	pending, err := r.exams.ListPending(ctx)
	if err != nil {
		r.logger.Error("resync: failed to list pending exams", zap.Error(err))
		return
	}

	r.rec.Replace(reservations, pending)

	r.logger.Debug("view resynced",
		zap.Int("reservations", len(reservations)),
		zap.Int("available_exams", len(pending)),
	)
}
