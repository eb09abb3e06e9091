package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"

	"github.com/ifarias/examsched/internal/model"
)

// TelegramNotifier posts reservation changes to the coordination channel
// the exam office watches.
type TelegramNotifier struct {
	bot    *bot.Bot
	chatID int64
	logger *zap.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *zap.Logger) (*TelegramNotifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:    b,
		chatID: chatID,
		logger: logger,
	}, nil
}

func (n *TelegramNotifier) ReservationScheduled(ctx context.Context, res *model.Reservation, exam *model.Exam) {
	text := fmt.Sprintf(
		"📌 %s %s scheduled on %s, modules %d-%d. Waiting for teacher confirmation.",
		exam.Subject, exam.Section, res.DateKey(),
		res.StartOrder, res.StartOrder+len(res.Modules)-1,
	)
	n.send(ctx, text)
}

func (n *TelegramNotifier) ReservationRemoved(ctx context.Context, res *model.Reservation, exam *model.Exam) {
	text := fmt.Sprintf(
		"↩️ Reservation for %s %s on %s was withdrawn, the exam is available again.",
		exam.Subject, exam.Section, res.DateKey(),
	)
	n.send(ctx, text)
}

func (n *TelegramNotifier) send(ctx context.Context, text string) {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   text,
	})
	if err != nil {
		n.logger.Error("failed to send telegram notification", zap.Error(err))
	}
}
