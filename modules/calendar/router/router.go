package router

import (
	"winetour-api/core/middleware"
	"winetour-api/modules/calendar/controller"

	"github.com/labstack/echo/v4"
)

type CalendarRouter struct {
	controller *controller.CalendarController
}

func NewCalendarRouter(controller *controller.CalendarController) *CalendarRouter {
	return &CalendarRouter{
		controller: controller,
	}
}

func (r *CalendarRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	// OAuth redirect target, no bearer token available
	v1.GET("/public/calendar/callback/:provider", r.controller.Callback)

	// Private routes (require authentication)
	calendarRoutes := v1.Group("/private/calendar")
	calendarRoutes.Use(mw.AuthMiddleware())

	// Calendar connections
	calendarRoutes.GET("/connections", r.controller.GetConnections)
	calendarRoutes.GET("/connect/:provider", r.controller.Connect)
	calendarRoutes.DELETE("/connections/:provider", r.controller.Disconnect)
	calendarRoutes.PUT("/connections/:provider/activate", r.controller.Activate)

	// Events
	calendarRoutes.POST("/events", r.controller.CreateEvent)
	calendarRoutes.PATCH("/events/:id", r.controller.UpdateEvent)
	calendarRoutes.DELETE("/events/:id", r.controller.DeleteEvent)
}
