package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ifarias/examsched/internal/service"
)

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// writeError maps the service error taxonomy onto HTTP statuses. Conflicts
// and validation failures carry the reason so the UI can tell "this slot is
// taken" apart from a transient server problem and not retry it.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation", Reason: err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse{Error: "conflict", Reason: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "not_found"})
	case errors.Is(err, service.ErrMissingConfig):
		logger.Error("reference configuration missing", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "missing_configuration", Reason: err.Error()})
	default:
		logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal"})
	}
}
