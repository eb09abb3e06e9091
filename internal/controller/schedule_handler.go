package controller

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ifarias/examsched/internal/model"
	"github.com/ifarias/examsched/internal/schedule"
	"github.com/ifarias/examsched/internal/service"
)

// ScheduleViews is the read surface of the schedule service.
type ScheduleViews interface {
	DayView(ctx context.Context, date time.Time, roomID int64) (*service.DayView, error)
	RenderDay(ctx context.Context, date time.Time, roomID int64) ([]byte, error)
	PendingExams(ctx context.Context) ([]model.Exam, error)
	Rooms(ctx context.Context) ([]model.Room, error)
	Modules(ctx context.Context) ([]model.Module, error)
}

type ScheduleHandler struct {
	svc    ScheduleViews
	view   *schedule.Reconciler
	logger *zap.Logger
}

func NewScheduleHandler(svc ScheduleViews, view *schedule.Reconciler, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, view: view, logger: logger}
}

func (h *ScheduleHandler) dayParams(c *gin.Context) (time.Time, int64, bool) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation", Reason: "date must be YYYY-MM-DD"})
		return time.Time{}, 0, false
	}

	roomID, err := strconv.ParseInt(c.Query("room_id"), 10, 64)
	if err != nil || roomID < 1 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation", Reason: "room_id must be a positive integer"})
		return time.Time{}, 0, false
	}

	return date, roomID, true
}

func (h *ScheduleHandler) Day(c *gin.Context) {
	date, roomID, ok := h.dayParams(c)
	if !ok {
		return
	}

	view, err := h.svc.DayView(c.Request.Context(), date, roomID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *ScheduleHandler) DayImage(c *gin.Context) {
	date, roomID, ok := h.dayParams(c)
	if !ok {
		return
	}

	png, err := h.svc.RenderDay(c.Request.Context(), date, roomID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// Live serves the reconciler-backed warm view: the reservation set plus the
// pool of unplaced exams, as maintained from broadcast events.
func (h *ScheduleHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"reservations":    h.view.Snapshot(),
		"available_exams": h.view.AvailableExams(),
	})
}

func (h *ScheduleHandler) PendingExams(c *gin.Context) {
	exams, err := h.svc.PendingExams(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, exams)
}

func (h *ScheduleHandler) Rooms(c *gin.Context) {
	rooms, err := h.svc.Rooms(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *ScheduleHandler) Modules(c *gin.Context) {
	modules, err := h.svc.Modules(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, modules)
}
