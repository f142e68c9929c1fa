package router

import (
	"winetour-api/core/middleware"
	"winetour-api/modules/booking/controller"

	"github.com/labstack/echo/v4"
)

type BookingRouter struct {
	controller *controller.BookingController
}

func NewBookingRouter(controller *controller.BookingController) *BookingRouter {
	return &BookingRouter{controller: controller}
}

func (r *BookingRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	v1.GET("/public/bookings/:reference", r.controller.GetPublicBooking)
	v1.GET("/public/vendors/:vendor/availability", r.controller.GetAvailability)

	bookings := v1.Group("/private/bookings", mw.AuthMiddleware())
	bookings.POST("", r.controller.CreateBooking)
	bookings.GET("", r.controller.ListBookings)
	bookings.GET("/:id", r.controller.GetBooking)
	bookings.PUT("/:id/confirm", r.controller.ConfirmBooking)
	bookings.PUT("/:id/reschedule", r.controller.RescheduleBooking)
	bookings.DELETE("/:id", r.controller.CancelBooking)
}
