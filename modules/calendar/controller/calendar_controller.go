package controller

import (
	"winetour-api/core/controller"
	"winetour-api/core/errors"
	"winetour-api/core/middleware"
	"winetour-api/modules/calendar/dto"
	"winetour-api/modules/calendar/service"

	"github.com/labstack/echo/v4"
)

type CalendarController struct {
	service service.CalendarService
	controller.BaseController
}

func NewCalendarController(service service.CalendarService) *CalendarController {
	return &CalendarController{
		service:        service,
		BaseController: controller.NewBaseController(),
	}
}

// GetConnections returns all calendar connections for the current user
// @Summary List calendar connections
// @Tags Calendar
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.CalendarConnectionListResponse
// @Failure 401 {object} errors.AppError
// @Router /private/calendar/connections [get]
func (c *CalendarController) GetConnections(ctx echo.Context) error {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized", nil)
	}

	connections, err := c.service.GetConnections(ctx.Request().Context(), userID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, dto.CalendarConnectionListResponse{Connections: connections}, "Calendar connections retrieved successfully")
}

// Connect returns the provider consent URL
// @Summary Start calendar OAuth connect
// @Tags Calendar
// @Security BearerAuth
// @Produce json
// @Param provider path string true "google, microsoft or orange"
// @Success 200 {object} dto.OAuthURLResponse
// @Failure 400 {object} errors.AppError
// @Failure 503 {object} errors.AppError
// @Router /private/calendar/connect/{provider} [get]
func (c *CalendarController) Connect(ctx echo.Context) error {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized", nil)
	}

	resp, err := c.service.GetAuthURL(ctx.Request().Context(), userID, ctx.Param("provider"))
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, resp, "Authorization URL created")
}

// Callback finishes the OAuth connect flow
// @Summary Calendar OAuth callback
// @Tags Calendar
// @Produce json
// @Param provider path string true "google, microsoft or orange"
// @Param code query string true "Authorization code"
// @Param state query string true "OAuth state"
// @Success 200 {object} dto.CalendarConnectionResponse
// @Failure 400 {object} errors.AppError
// @Router /public/calendar/callback/{provider} [get]
func (c *CalendarController) Callback(ctx echo.Context) error {
	if providerErr := ctx.QueryParam("error"); providerErr != "" {
		return c.BadRequest(errors.ErrInvalidInput, "Calendar authorization was declined", providerErr)
	}

	code := ctx.QueryParam("code")
	state := ctx.QueryParam("state")
	if code == "" || state == "" {
		return c.BadRequest(errors.ErrInvalidInput, "code and state are required", nil)
	}

	resp, err := c.service.HandleCallback(ctx.Request().Context(), ctx.Param("provider"), state, code)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, resp, "Calendar connected successfully")
}

// Disconnect disables a calendar provider
// @Summary Disconnect calendar
// @Tags Calendar
// @Security BearerAuth
// @Produce json
// @Param provider path string true "google, microsoft or orange"
// @Success 200 {object} map[string]string
// @Failure 404 {object} errors.AppError
// @Router /private/calendar/connections/{provider} [delete]
func (c *CalendarController) Disconnect(ctx echo.Context) error {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized", nil)
	}

	if err := c.service.Disconnect(ctx.Request().Context(), userID, ctx.Param("provider")); err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, nil, "Disconnected successfully")
}

// Activate re-enables a disconnected calendar provider
// @Summary Activate calendar
// @Tags Calendar
// @Security BearerAuth
// @Produce json
// @Param provider path string true "google, microsoft or orange"
// @Success 200 {object} map[string]string
// @Failure 404 {object} errors.AppError
// @Router /private/calendar/connections/{provider}/activate [put]
func (c *CalendarController) Activate(ctx echo.Context) error {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized", nil)
	}

	if err := c.service.Activate(ctx.Request().Context(), userID, ctx.Param("provider")); err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, nil, "Activated successfully")
}

// CreateEvent creates an event in the user's calendar
// @Summary Create calendar event
// @Tags Calendar
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.EventData true "Event"
// @Success 201 {object} dto.CalendarEventResponse
// @Failure 400 {object} errors.AppError
// @Router /private/calendar/events [post]
func (c *CalendarController) CreateEvent(ctx echo.Context) error {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized", nil)
	}

	req, err := c.bindEvent(ctx)
	if err != nil {
		return err
	}

	resp, err := c.service.CreateEvent(ctx.Request().Context(), userID, req)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.CreatedResponse(ctx, resp, "Event processed")
}

// UpdateEvent updates an event in the user's calendar
// @Summary Update calendar event
// @Tags Calendar
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Provider event id"
// @Param provider query string false "Provider holding the event"
// @Param request body dto.EventData true "Event"
// @Success 200 {object} dto.CalendarEventResponse
// @Failure 400 {object} errors.AppError
// @Router /private/calendar/events/{id} [patch]
func (c *CalendarController) UpdateEvent(ctx echo.Context) error {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized", nil)
	}

	req, err := c.bindEvent(ctx)
	if err != nil {
		return err
	}

	resp, err := c.service.UpdateEvent(ctx.Request().Context(), userID, eventRef(ctx), req)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, resp, "Event processed")
}

// DeleteEvent deletes an event from the user's calendar
// @Summary Delete calendar event
// @Tags Calendar
// @Security BearerAuth
// @Produce json
// @Param id path string true "Provider event id"
// @Param provider query string false "Provider holding the event"
// @Success 200 {object} dto.CalendarEventResponse
// @Router /private/calendar/events/{id} [delete]
func (c *CalendarController) DeleteEvent(ctx echo.Context) error {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized", nil)
	}

	resp, err := c.service.DeleteEvent(ctx.Request().Context(), userID, eventRef(ctx))
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, resp, "Event processed")
}

// eventRef reads the event id from the path and the optional provider from the query.
func eventRef(ctx echo.Context) dto.EventRef {
	return dto.EventRef{ID: ctx.Param("id"), Provider: ctx.QueryParam("provider")}
}

func (c *CalendarController) bindEvent(ctx echo.Context) (*dto.EventData, error) {
	req := new(dto.EventData)
	if err := ctx.Bind(req); err != nil {
		return nil, c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body", nil)
	}
	if err := ctx.Validate(req); err != nil {
		return nil, c.ErrorResponse(ctx, err)
	}
	return req, nil
}
