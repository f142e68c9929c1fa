package booking

import (
	"winetour-api/core/database"
	"winetour-api/core/middleware"
	"winetour-api/core/queue"
	"winetour-api/modules/booking/controller"
	"winetour-api/modules/booking/repository"
	"winetour-api/modules/booking/router"
	"winetour-api/modules/booking/service"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
)

func Init(e *echo.Echo, db database.IDatabase, mw *middleware.Middleware, enqueuer queue.Enqueuer, vendors controller.VendorDirectory, defaultTimeZone string) service.BookingService {
	repo := repository.NewBookingRepository(db)
	bookingService := service.NewBookingService(repo, enqueuer, defaultTimeZone)
	ctrl := controller.NewBookingController(bookingService, vendors)

	router.NewBookingRouter(ctrl).Setup(e, mw)

	return bookingService
}

// RegisterTasks binds the calendar sync handlers to the worker.
func RegisterTasks(w *queue.Worker, db database.IDatabase, calendar service.CalendarSync) {
	handler := service.NewCalendarSyncHandler(repository.NewBookingRepository(db), calendar)
	w.Handle(service.TaskCreateEvent, asynq.HandlerFunc(handler.HandleCreate))
	w.Handle(service.TaskUpdateEvent, asynq.HandlerFunc(handler.HandleUpdate))
	w.Handle(service.TaskDeleteEvent, asynq.HandlerFunc(handler.HandleDelete))
}
