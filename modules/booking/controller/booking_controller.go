package controller

import (
	"context"
	"strconv"

	"winetour-api/core/controller"
	"winetour-api/core/errors"
	"winetour-api/core/middleware"
	"winetour-api/core/params"
	"winetour-api/modules/booking/dto"
	"winetour-api/modules/booking/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// VendorDirectory resolves a vendor's public slug.
type VendorDirectory interface {
	VendorIDBySlug(ctx context.Context, slug string) (uuid.UUID, error)
}

type BookingController struct {
	service service.BookingService
	vendors VendorDirectory
	controller.BaseController
}

func NewBookingController(service service.BookingService, vendors VendorDirectory) *BookingController {
	return &BookingController{
		service:        service,
		vendors:        vendors,
		BaseController: controller.NewBaseController(),
	}
}

// CreateBooking creates a booking and schedules its calendar event
// @Summary Create booking
// @Tags Booking
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateBookingRequest true "Booking"
// @Success 201 {object} dto.BookingResponse
// @Failure 400 {object} errors.AppError
// @Router /private/bookings [post]
func (c *BookingController) CreateBooking(ctx echo.Context) error {
	vendorID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized", nil)
	}

	req := new(dto.CreateBookingRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body", nil)
	}
	if err := ctx.Validate(req); err != nil {
		return c.ErrorResponse(ctx, err)
	}

	resp, err := c.service.CreateBooking(ctx.Request().Context(), vendorID, req)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.CreatedResponse(ctx, resp, "Booking created successfully")
}

// ListBookings returns the vendor's bookings, newest first
// @Summary List bookings
// @Tags Booking
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} dto.BookingListResponse
// @Router /private/bookings [get]
func (c *BookingController) ListBookings(ctx echo.Context) error {
	vendorID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized", nil)
	}

	resp, err := c.service.ListBookings(ctx.Request().Context(), vendorID, *params.NewQueryParams(ctx))
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, resp, "Bookings retrieved successfully")
}

// GetBooking returns one booking
// @Summary Get booking
// @Tags Booking
// @Security BearerAuth
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} dto.BookingResponse
// @Failure 404 {object} errors.AppError
// @Router /private/bookings/{id} [get]
func (c *BookingController) GetBooking(ctx echo.Context) error {
	vendorID, id, err := c.ids(ctx)
	if err != nil {
		return err
	}

	resp, err := c.service.GetBooking(ctx.Request().Context(), vendorID, id)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, resp, "Booking retrieved successfully")
}

// ConfirmBooking
// @Summary Confirm booking
// @Tags Booking
// @Security BearerAuth
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} dto.BookingResponse
// @Router /private/bookings/{id}/confirm [put]
func (c *BookingController) ConfirmBooking(ctx echo.Context) error {
	vendorID, id, err := c.ids(ctx)
	if err != nil {
		return err
	}

	resp, err := c.service.ConfirmBooking(ctx.Request().Context(), vendorID, id)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, resp, "Booking confirmed")
}

// RescheduleBooking moves a booking and its calendar event
// @Summary Reschedule booking
// @Tags Booking
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body dto.RescheduleBookingRequest true "New schedule"
// @Success 200 {object} dto.BookingResponse
// @Failure 400 {object} errors.AppError
// @Router /private/bookings/{id}/reschedule [put]
func (c *BookingController) RescheduleBooking(ctx echo.Context) error {
	vendorID, id, err := c.ids(ctx)
	if err != nil {
		return err
	}

	req := new(dto.RescheduleBookingRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body", nil)
	}
	if err := ctx.Validate(req); err != nil {
		return c.ErrorResponse(ctx, err)
	}

	resp, err := c.service.RescheduleBooking(ctx.Request().Context(), vendorID, id, req)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, resp, "Booking rescheduled")
}

// CancelBooking cancels a booking and removes its calendar event
// @Summary Cancel booking
// @Tags Booking
// @Security BearerAuth
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} dto.BookingResponse
// @Router /private/bookings/{id} [delete]
func (c *BookingController) CancelBooking(ctx echo.Context) error {
	vendorID, id, err := c.ids(ctx)
	if err != nil {
		return err
	}

	resp, err := c.service.CancelBooking(ctx.Request().Context(), vendorID, id)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, resp, "Booking cancelled")
}

// GetPublicBooking lets a guest look a booking up by its reference
// @Summary Public booking lookup
// @Tags Booking
// @Produce json
// @Param reference path string true "Booking reference"
// @Success 200 {object} dto.PublicBookingResponse
// @Failure 404 {object} errors.AppError
// @Router /public/bookings/{reference} [get]
func (c *BookingController) GetPublicBooking(ctx echo.Context) error {
	resp, err := c.service.GetPublicBooking(ctx.Request().Context(), ctx.Param("reference"))
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, resp, "Booking retrieved successfully")
}

// GetAvailability lists the free visit slots of a vendor for one day
// @Summary Vendor availability
// @Tags Booking
// @Produce json
// @Param vendor path string true "Vendor ID or slug"
// @Param date query string true "Day (YYYY-MM-DD)"
// @Param duration query int false "Visit length in minutes"
// @Success 200 {object} dto.AvailabilityResponse
// @Failure 400 {object} errors.AppError
// @Failure 404 {object} errors.AppError
// @Router /public/vendors/{vendor}/availability [get]
func (c *BookingController) GetAvailability(ctx echo.Context) error {
	vendorID, err := c.resolveVendor(ctx.Request().Context(), ctx.Param("vendor"))
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	duration := 0
	if raw := ctx.QueryParam("duration"); raw != "" {
		if duration, err = strconv.Atoi(raw); err != nil {
			return c.BadRequest(errors.ErrInvalidInput, "Invalid duration", nil)
		}
	}

	resp, err := c.service.GetAvailability(ctx.Request().Context(), vendorID, ctx.QueryParam("date"), duration)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, resp, "Availability retrieved successfully")
}

func (c *BookingController) resolveVendor(ctx context.Context, vendor string) (uuid.UUID, error) {
	if id, err := uuid.Parse(vendor); err == nil {
		return id, nil
	}
	if c.vendors == nil {
		return uuid.Nil, errors.NewAppError(errors.ErrNotFound, "Vendor not found", nil)
	}
	return c.vendors.VendorIDBySlug(ctx, vendor)
}

func (c *BookingController) ids(ctx echo.Context) (uuid.UUID, uuid.UUID, error) {
	vendorID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, c.Unauthorized(errors.ErrUnauthorized, "Unauthorized", nil)
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, c.BadRequest(errors.ErrInvalidInput, "Invalid booking id", nil)
	}
	return vendorID, id, nil
}
