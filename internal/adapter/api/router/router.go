package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"propertychat/internal/adapter/api/handler"
	"propertychat/internal/adapter/api/middleware"
)

// Handlers groups everything the HTTP surface serves.
type Handlers struct {
	Conversation *handler.ConversationHandler
	Admin        *handler.AdminHandler
	Health       *handler.HealthHandler
	WebSocket    *handler.WebSocketHandler
}

func Setup(e *echo.Echo, h Handlers, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	SetupConversationRouter(e, h.Conversation, authMiddleware)
	SetupAdminRouter(e, h.Admin, authMiddleware, adminMiddleware)
	SetupWebSocketRouter(e, h.WebSocket, authMiddleware)
	SetupHealthRouter(e, h.Health)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
