package calendar

import (
	"context"
	"net/http"

	"winetour-api/core/config"
	"winetour-api/core/database"
	"winetour-api/core/middleware"
	"winetour-api/core/queue"
	"winetour-api/core/secret"
	"winetour-api/modules/calendar/controller"
	"winetour-api/modules/calendar/provider"
	"winetour-api/modules/calendar/repository"
	"winetour-api/modules/calendar/router"
	"winetour-api/modules/calendar/service"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
)

// Init wires the calendar module and returns the service the booking module syncs through.
func Init(
	e *echo.Echo,
	db database.IDatabase,
	mw *middleware.Middleware,
	sealer secret.Sealer,
	cfg config.CalendarConfig,
	notifier service.ReconnectNotifier,
) service.CalendarService {
	// Initialize layers
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	repo := repository.NewCalendarRepository(db, sealer)
	providers := provider.NewRegistry(cfg.Providers(), httpClient)
	tokens := service.NewTokenManager(repo, providers, httpClient, cfg, notifier)
	gateway := service.NewCalendarGateway(repo, tokens, providers, cfg)
	calendarService := service.NewCalendarService(repo, providers, gateway, httpClient, cfg)
	calendarController := controller.NewCalendarController(calendarService)

	// Setup routes
	router.NewCalendarRouter(calendarController).Setup(e, mw)

	return calendarService
}

// TaskCleanupOAuthStates is the periodic task that drops abandoned connect flows.
const TaskCleanupOAuthStates = "calendar:oauth_state:cleanup"

// RegisterTasks binds the calendar background tasks to the worker.
func RegisterTasks(w *queue.Worker, db database.IDatabase, sealer secret.Sealer) {
	repo := repository.NewCalendarRepository(db, sealer)
	w.Handle(TaskCleanupOAuthStates, asynq.HandlerFunc(func(ctx context.Context, _ *asynq.Task) error {
		return repo.CleanupExpiredOAuthStates(ctx)
	}))
}
