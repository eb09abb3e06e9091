package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ifarias/examsched/internal/app"
	"github.com/ifarias/examsched/internal/config"
	"github.com/ifarias/examsched/internal/controller"
	"github.com/ifarias/examsched/internal/notify"
	"github.com/ifarias/examsched/internal/realtime"
	"github.com/ifarias/examsched/internal/repository"
	"github.com/ifarias/examsched/internal/schedule"
	"github.com/ifarias/examsched/internal/service"
)

const resyncInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("failed to create db pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("failed to reach database", zap.Error(err))
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath)
	if err != nil {
		logger.Fatal("failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	// repositories
	moduleRepo := repository.NewModuleRepository(pool)
	roomRepo := repository.NewRoomRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	statusRepo := repository.NewStatusRepository(pool)
	reservRepo := repository.NewReservationRepository(pool)
	txManager := repository.NewTxManager(pool)

	// realtime: hub for viewers plus a local reconciler-backed view
	hub := realtime.NewHub(logger)
	go hub.Run(ctx)

	reconciler := schedule.NewReconciler(logger)
	broadcaster := realtime.Fanout{hub, realtime.NewReconcilerSink(reconciler)}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Fatal("failed to create telegram notifier", zap.Error(err))
		}
		notifier = tg
		logger.Info("telegram notifications enabled")
	}

	// services
	reservationService := service.NewReservationService(
		txManager, reservRepo, examRepo, moduleRepo, roomRepo, statusRepo,
		broadcaster, notifier, logger,
	)
	scheduleService := service.NewScheduleService(
		reservRepo, examRepo, moduleRepo, roomRepo, logger,
	)

	resyncer := app.NewResyncer(reservRepo, examRepo, reconciler, resyncInterval, logger)
	resyncer.Start(ctx)
	defer resyncer.Stop()

	router := controller.NewRouter(
		controller.NewReservationHandler(reservationService, logger),
		controller.NewScheduleHandler(scheduleService, reconciler, logger),
		hub,
		logger,
		cfg.Environment,
	)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		logger.Info("starting exam scheduler",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("environment", cfg.Environment),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
}
