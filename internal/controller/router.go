package controller

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ifarias/examsched/internal/realtime"
)

// NewRouter wires the HTTP surface: reservation commands, schedule queries
// and the realtime websocket channel.
func NewRouter(
	reservations *ReservationHandler,
	schedules *ScheduleHandler,
	hub *realtime.Hub,
	logger *zap.Logger,
	env string,
) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// realtime channel; viewers authenticate at the gateway
	router.GET("/ws", func(c *gin.Context) {
		realtime.ServeWS(hub, logger, c.Writer, c.Request)
	})

	api := router.Group("/api", Identity())
	{
		api.GET("/reservations", reservations.List)
		api.GET("/reservations/:id", reservations.Get)
		api.POST("/reservations", RequireRole(RoleScheduler, RoleAdmin), reservations.Create)
		api.PATCH("/reservations/:id", RequireRole(RoleScheduler, RoleAdmin), reservations.Update)
		api.POST("/reservations/:id/discard", RequireRole(RoleScheduler, RoleAdmin), reservations.Discard)
		api.DELETE("/reservations/:id", RequireRole(RoleAdmin), reservations.Cancel)
		api.POST("/reservations/:id/status", RequireRole(RoleTeacher, RoleAdmin), reservations.SetStatus)

		api.GET("/schedule/day", schedules.Day)
		api.GET("/schedule/day/image", schedules.DayImage)
		api.GET("/schedule/live", schedules.Live)
		api.GET("/exams/pending", schedules.PendingExams)
		api.GET("/rooms", schedules.Rooms)
		api.GET("/modules", schedules.Modules)
	}

	return router
}
