package router

import (
	"github.com/labstack/echo/v4"

	"propertychat/internal/adapter/api/handler"
	"propertychat/internal/adapter/api/middleware"
)

func SetupConversationRouter(e *echo.Echo, conversationHandler *handler.ConversationHandler, authMiddleware *middleware.AuthMiddleware) {
	conversationGroup := e.Group("/v1/conversations")
	conversationGroup.Use(authMiddleware.Authenticate)

	conversationGroup.GET("", conversationHandler.ListConversations)
	conversationGroup.GET("/unread-count", conversationHandler.CountUnread)
	conversationGroup.GET("/property/:propertyId", conversationHandler.GetOrCreateConversation)
	conversationGroup.GET("/:conversationId", conversationHandler.GetConversation)

	conversationGroup.GET("/:conversationId/messages", conversationHandler.ListMessages)
	conversationGroup.POST("/:conversationId/messages", conversationHandler.SendMessage)
}
