package auth

import (
	"winetour-api/core/cache"
	"winetour-api/core/config"
	"winetour-api/core/database"
	"winetour-api/core/middleware"
	"winetour-api/modules/auth/controller"
	"winetour-api/modules/auth/repository"
	"winetour-api/modules/auth/router"
	"winetour-api/modules/auth/service"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Echo, db database.IDatabase, cache cache.Cache, mw *middleware.Middleware, cfg config.JWTConfig) *service.AuthService {
	repo := repository.NewAuthRepository(db)
	authService := service.NewAuthService(repo, cache, cfg.Secret, cfg.TTL)
	authController := controller.NewAuthController(authService)

	router.NewAuthRouter(authController).Setup(e, mw)
	return authService
}
