package notification

import (
	"winetour-api/core/database"
	"winetour-api/core/middleware"
	"winetour-api/modules/notification/controller"
	"winetour-api/modules/notification/repository"
	"winetour-api/modules/notification/router"
	"winetour-api/modules/notification/service"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Group, db database.IDatabase, mw *middleware.Middleware) *service.NotificationService {
	repo := repository.NewNotificationRepository(db)
	svc := service.NewNotificationService(repo)
	ctrl := controller.NewNotificationController(svc)

	router.NewNotificationRouter(ctrl).Register(e, mw)

	return svc
}
