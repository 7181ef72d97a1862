package router

import (
	"github.com/labstack/echo/v4"

	"propertychat/internal/adapter/api/handler"
	"propertychat/internal/adapter/api/middleware"
)

func SetupAdminRouter(e *echo.Echo, adminHandler *handler.AdminHandler, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	adminGroup := e.Group("/v1/admin")
	adminGroup.Use(authMiddleware.Authenticate)
	adminGroup.Use(adminMiddleware.AdminOnly)

	adminGroup.DELETE("/properties/:propertyId/conversations", adminHandler.PurgeProperty)
	adminGroup.DELETE("/users/:userId/conversations", adminHandler.PurgeUser)
}
