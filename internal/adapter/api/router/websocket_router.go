package router

import (
	"github.com/labstack/echo/v4"

	"propertychat/internal/adapter/api/handler"
	"propertychat/internal/adapter/api/middleware"
)

// Browsers cannot set headers on a WebSocket handshake, so the token rides in
// the query string.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler, authMiddleware *middleware.AuthMiddleware) {
	e.GET("/ws", wsHandler.HandleWebSocket, authMiddleware.AuthenticateQuery)
}
