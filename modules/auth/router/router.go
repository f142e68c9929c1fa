package router

import (
	"winetour-api/core/middleware"
	"winetour-api/modules/auth/controller"

	"github.com/labstack/echo/v4"
)

type AuthRouter struct {
	AuthController *controller.AuthController
}

func NewAuthRouter(authController *controller.AuthController) *AuthRouter {
	return &AuthRouter{AuthController: authController}
}

func (r *AuthRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	public := v1.Group("/public/auth")
	public.POST("/register", r.AuthController.Register)
	public.POST("/login", r.AuthController.Login)

	private := v1.Group("/private/auth", mw.AuthMiddleware())
	private.POST("/logout", r.AuthController.Logout)
	private.GET("/me", r.AuthController.Me)
}
