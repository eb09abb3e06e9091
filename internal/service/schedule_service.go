package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ifarias/examsched/internal/model"
	"github.com/ifarias/examsched/internal/render"
	"github.com/ifarias/examsched/internal/repository"
	"github.com/ifarias/examsched/internal/schedule"
)

// Cell is one row of the day view: a module plus whatever occupies it.
type Cell struct {
	Module   model.Module       `json:"module"`
	Occupant *schedule.Occupant `json:"occupant,omitempty"`
	SpanHead bool               `json:"span_head"`
}

// DayView is the room/date window a scheduler works in.
type DayView struct {
	Date         string               `json:"date"`
	Room         model.Room           `json:"room"`
	Cells        []Cell               `json:"cells"`
	Reservations []*model.Reservation `json:"reservations"`
}

// ScheduleService assembles read-only views over the reservation set.
type ScheduleService struct {
	reservRepo ReservationStore
	examRepo   ExamStore
	moduleRepo ModuleStore
	roomRepo   RoomStore
	logger     *zap.Logger
}

func NewScheduleService(
	reservRepo ReservationStore,
	examRepo ExamStore,
	moduleRepo ModuleStore,
	roomRepo RoomStore,
	logger *zap.Logger,
) *ScheduleService {
	return &ScheduleService{
		reservRepo: reservRepo,
		examRepo:   examRepo,
		moduleRepo: moduleRepo,
		roomRepo:   roomRepo,
		logger:     logger,
	}
}

// DayView projects one room and date onto the module grid.
func (s *ScheduleService) DayView(ctx context.Context, date time.Time, roomID int64) (*DayView, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, validationf("unknown room %d", roomID)
	}

	modules, err := s.moduleRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	day := dateOnly(date)
	reservations, err := s.reservRepo.List(ctx, repository.ReservationFilter{
		RoomID: &roomID,
		Date:   &day,
	})
	if err != nil {
		return nil, err
	}

	projection := schedule.NewProjection()
	if err := projection.Rebuild(reservations, nil); err != nil {
		return nil, fmt.Errorf("build day view: %w", err)
	}

	dateKey := day.Format("2006-01-02")
	cells := make([]Cell, 0, len(modules))
	for _, m := range modules {
		cells = append(cells, Cell{
			Module:   m,
			Occupant: projection.Lookup(dateKey, m.Order),
			SpanHead: projection.IsSpanHead(dateKey, m.Order),
		})
	}

	return &DayView{
		Date:         dateKey,
		Room:         *room,
		Cells:        cells,
		Reservations: reservations,
	}, nil
}

// RenderDay draws the day view as a PNG grid.
func (s *ScheduleService) RenderDay(ctx context.Context, date time.Time, roomID int64) ([]byte, error) {
	view, err := s.DayView(ctx, date, roomID)
	if err != nil {
		return nil, err
	}

	modules := make([]model.Module, 0, len(view.Cells))
	for _, cell := range view.Cells {
		modules = append(modules, cell.Module)
	}

	blocks := make([]render.Block, 0, len(view.Reservations))
	for _, res := range view.Reservations {
		span, err := schedule.SpanOf(res)
		if err != nil {
			return nil, fmt.Errorf("render day view: %w", err)
		}

		label := fmt.Sprintf("exam %d", res.ExamID)
		if exam, err := s.examRepo.GetByID(ctx, res.ExamID); err == nil && exam != nil {
			label = fmt.Sprintf("%s %s", exam.Subject, exam.Section)
		}

		blocks = append(blocks, render.Block{
			StartOrder: span.Start,
			Length:     span.Length,
			Label:      label,
			Status:     res.Status,
		})
	}

	return render.DayGrid(view.Date, view.Room.Name, modules, blocks)
}

// PendingExams lists the exams still waiting for a placement.
func (s *ScheduleService) PendingExams(ctx context.Context) ([]model.Exam, error) {
	return s.examRepo.ListPending(ctx)
}

// Rooms lists the room catalog.
func (s *ScheduleService) Rooms(ctx context.Context) ([]model.Room, error) {
	return s.roomRepo.GetAll(ctx)
}

// Modules lists the day's module catalog.
func (s *ScheduleService) Modules(ctx context.Context) ([]model.Module, error) {
	return s.moduleRepo.GetAll(ctx)
}
