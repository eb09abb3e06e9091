package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/ifarias/examsched/internal/model"
)

// Notifier pings the people who need to react to a reservation change:
// scheduled reservations wait for teacher confirmation, removed ones free
// the exam again. Implementations must not block the caller on user
// interaction.
type Notifier interface {
	ReservationScheduled(ctx context.Context, res *model.Reservation, exam *model.Exam)
	ReservationRemoved(ctx context.Context, res *model.Reservation, exam *model.Exam)
}

// LogNotifier is the fallback when no external channel is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) ReservationScheduled(_ context.Context, res *model.Reservation, exam *model.Exam) {
	n.logger.Info("reservation awaiting confirmation",
		zap.Int64("reservation_id", res.ID),
		zap.Int64("exam_id", exam.ID),
		zap.String("subject", exam.Subject),
		zap.String("date", res.DateKey()),
	)
}

func (n *LogNotifier) ReservationRemoved(_ context.Context, res *model.Reservation, exam *model.Exam) {
	n.logger.Info("reservation withdrawn",
		zap.Int64("reservation_id", res.ID),
		zap.Int64("exam_id", exam.ID),
		zap.String("subject", exam.Subject),
	)
}
