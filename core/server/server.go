package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"winetour-api/core/cache"
	"winetour-api/core/config"
	"winetour-api/core/constants"
	"winetour-api/core/database"
	"winetour-api/core/logger"
	"winetour-api/core/middleware"
	"winetour-api/core/queue"
	"winetour-api/core/secret"
	"winetour-api/core/validator"
	"winetour-api/modules/auth"
	"winetour-api/modules/booking"
	"winetour-api/modules/calendar"
	"winetour-api/modules/notification"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

const oauthStateCleanupSpec = "@every 1h"

// Run loads configuration, wires every module and serves until SIGINT/SIGTERM.
func Run() error {
	cfg, err := config.Init()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logger.Info("Server:Run:Start", "port", cfg.Server.Port)

	if cfg.JWT.Secret == "" {
		return errors.New("jwt secret is not configured")
	}

	db, err := database.InitDB(database.DatabaseConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	redisCache := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisCache.Close()
	if err := redisCache.Ping(context.Background()); err != nil {
		logger.Warn("Server:Run:RedisUnavailable", "addr", cfg.Redis.Addr, "error", err)
	}

	sealer, err := secret.NewSealer(cfg.Secret.TokenKey)
	if err != nil {
		return fmt.Errorf("token sealer: %w", err)
	}

	queueCfg := queue.RedisConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	queueClient := queue.NewClient(queueCfg)
	defer queueClient.Close()

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.ContextTimeout(constants.DefaultTimeout))
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	mw := middleware.NewMiddleware(cfg.JWT.Secret, redisCache)

	// Modules
	authService := auth.Init(e, db, redisCache, mw, cfg.JWT)
	notificationService := notification.Init(e.Group("/api/v1/private"), db, mw)
	calendarService := calendar.Init(e, db, mw, sealer, cfg.Calendar, notificationService)
	booking.Init(e, db, mw, queueClient, authService, cfg.Calendar.DefaultTimeZone)

	// Background work
	worker := queue.NewWorker(queueCfg, cfg.Queue.Concurrency)
	calendar.RegisterTasks(worker, db, sealer)
	booking.RegisterTasks(worker, db, calendarService)
	if err := worker.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	defer worker.Shutdown()

	scheduler := queue.NewScheduler(queueCfg)
	if err := scheduler.Register(oauthStateCleanupSpec, calendar.TaskCleanupOAuthStates, asynq.Queue(queue.QueueCalendar)); err != nil {
		return err
	}
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer scheduler.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server:Run:Listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Server:Run:ShuttingDown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
