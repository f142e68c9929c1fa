package controller

import (
	"winetour-api/core/controller"
	"winetour-api/core/errors"
	"winetour-api/core/middleware"
	"winetour-api/modules/auth/dto"
	"winetour-api/modules/auth/service"

	"github.com/labstack/echo/v4"
)

type AuthController struct {
	AuthService service.AuthServiceInterface
	controller.BaseController
}

func NewAuthController(authService service.AuthServiceInterface) *AuthController {
	return &AuthController{
		AuthService:    authService,
		BaseController: controller.NewBaseController(),
	}
}

// Register creates a vendor account
// @Summary Register
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Account"
// @Success 201 {object} dto.UserResponse
// @Failure 409 {object} errors.AppError
// @Router /public/auth/register [post]
func (controller *AuthController) Register(c echo.Context) error {
	requestData := new(dto.RegisterRequest)
	if err := c.Bind(requestData); err != nil {
		return controller.BadRequest(errors.ErrInvalidRequestData, "Invalid request data", nil)
	}
	if err := c.Validate(requestData); err != nil {
		return controller.ErrorResponse(c, err)
	}

	user, appErr := controller.AuthService.Register(c.Request().Context(), requestData)
	if appErr != nil {
		return controller.ErrorResponse(c, appErr)
	}

	return controller.CreatedResponse(c, user, "Register success")
}

// Login issues an access token
// @Summary Login
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.LoginResponse
// @Failure 401 {object} errors.AppError
// @Router /public/auth/login [post]
func (controller *AuthController) Login(c echo.Context) error {
	requestData := new(dto.LoginRequest)
	if err := c.Bind(requestData); err != nil {
		return controller.BadRequest(errors.ErrInvalidRequestData, "Invalid request data", nil)
	}
	if err := c.Validate(requestData); err != nil {
		return controller.ErrorResponse(c, err)
	}

	loginResponse, appErr := controller.AuthService.Login(c.Request().Context(), requestData)
	if appErr != nil {
		return controller.ErrorResponse(c, appErr)
	}

	return controller.SuccessResponse(c, loginResponse, "Login success")
}

// Logout revokes the current token
// @Summary Logout
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /private/auth/logout [post]
func (controller *AuthController) Logout(c echo.Context) error {
	claims, err := middleware.TokenClaimsFromContext(c)
	if err != nil {
		return controller.Unauthorized(errors.ErrUnauthorized, "Unauthorized", nil)
	}

	if appErr := controller.AuthService.Logout(c.Request().Context(), claims); appErr != nil {
		return controller.ErrorResponse(c, appErr)
	}

	return controller.SuccessResponse(c, nil, "Logout success")
}

// Me returns the current account
// @Summary Current user
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Router /private/auth/me [get]
func (controller *AuthController) Me(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return controller.Unauthorized(errors.ErrUnauthorized, "Unauthorized", nil)
	}

	user, appErr := controller.AuthService.Me(c.Request().Context(), userID)
	if appErr != nil {
		return controller.ErrorResponse(c, appErr)
	}

	return controller.SuccessResponse(c, user, "User retrieved successfully")
}
