package controller

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ifarias/examsched/internal/model"
	"github.com/ifarias/examsched/internal/repository"
	"github.com/ifarias/examsched/internal/service"
)

// Reservations is the command/query surface the service layer exposes;
// tests substitute a mock.
type Reservations interface {
	Create(ctx context.Context, req service.CreateRequest) (*model.Reservation, error)
	Update(ctx context.Context, id int64, req service.UpdateRequest) (*model.Reservation, error)
	Discard(ctx context.Context, id int64) (bool, error)
	Cancel(ctx context.Context, id int64) (bool, error)
	SetConfirmationStatus(ctx context.Context, id int64, code model.StatusCode, notes string) (*model.Reservation, error)
	Get(ctx context.Context, id int64) (*model.Reservation, error)
	List(ctx context.Context, filter repository.ReservationFilter) ([]*model.Reservation, error)
}

type ReservationHandler struct {
	svc    Reservations
	logger *zap.Logger
}

func NewReservationHandler(svc Reservations, logger *zap.Logger) *ReservationHandler {
	return &ReservationHandler{svc: svc, logger: logger}
}

type createReservationRequest struct {
	ExamID     int64   `json:"exam_id" binding:"required"`
	RoomID     int64   `json:"room_id" binding:"required"`
	Date       string  `json:"date" binding:"required"`
	StartOrder int     `json:"start_order"`
	ModuleIDs  []int64 `json:"module_ids"`
	TeacherID  *int64  `json:"teacher_id"`
}

type updateReservationRequest struct {
	RoomID      *int64  `json:"room_id"`
	Date        *string `json:"date"`
	StartOrder  *int    `json:"start_order"`
	ModuleCount *int    `json:"module_count"`
	ModuleIDs   []int64 `json:"module_ids"`
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

func (h *ReservationHandler) Create(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation", Reason: err.Error()})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation", Reason: "date must be YYYY-MM-DD"})
		return
	}

	res, err := h.svc.Create(c.Request.Context(), service.CreateRequest{
		ExamID:     req.ExamID,
		RoomID:     req.RoomID,
		Date:       date,
		StartOrder: req.StartOrder,
		ModuleIDs:  req.ModuleIDs,
		TeacherID:  req.TeacherID,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *ReservationHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation", Reason: err.Error()})
		return
	}

	update := service.UpdateRequest{
		RoomID:      req.RoomID,
		StartOrder:  req.StartOrder,
		ModuleCount: req.ModuleCount,
		ModuleIDs:   req.ModuleIDs,
	}
	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "validation", Reason: "date must be YYYY-MM-DD"})
			return
		}
		update.Date = &date
	}

	res, err := h.svc.Update(c.Request.Context(), id, update)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ReservationHandler) Discard(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	removed, err := h.svc.Discard(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *ReservationHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	removed, err := h.svc.Cancel(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *ReservationHandler) SetStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation", Reason: err.Error()})
		return
	}

	res, err := h.svc.SetConfirmationStatus(c.Request.Context(), id, model.StatusCode(req.Status), req.Notes)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ReservationHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	res, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ReservationHandler) List(c *gin.Context) {
	var filter repository.ReservationFilter

	if raw := c.Query("room_id"); raw != "" {
		roomID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "validation", Reason: "room_id must be an integer"})
			return
		}
		filter.RoomID = &roomID
	}
	if raw := c.Query("exam_id"); raw != "" {
		examID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "validation", Reason: "exam_id must be an integer"})
			return
		}
		filter.ExamID = &examID
	}
	if raw := c.Query("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "validation", Reason: "date must be YYYY-MM-DD"})
			return
		}
		filter.Date = &date
	}
	if raw := c.Query("status"); raw != "" {
		status := model.StatusCode(raw)
		filter.Status = &status
	}

	reservations, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, reservations)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation", Reason: "id must be a positive integer"})
		return 0, false
	}
	return id, true
}
