package handler

import (
	"github.com/labstack/echo/v4"

	"propertychat/internal/usecase"
	"propertychat/pkg/response"
)

type ConversationHandler struct {
	conversationUseCase *usecase.ConversationUseCase
	messageUseCase      *usecase.MessageUseCase
}

func NewConversationHandler(conversationUseCase *usecase.ConversationUseCase, messageUseCase *usecase.MessageUseCase) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
		messageUseCase:      messageUseCase,
	}
}

type propertyParams struct {
	PropertyID string `param:"propertyId" validate:"required"`
}

type conversationParams struct {
	ConversationID string `param:"conversationId" validate:"required"`
}

// Text is validated by the message service so blank and whitespace-only
// bodies get the same INVALID_INPUT answer.
type sendMessageRequest struct {
	ConversationID string `param:"conversationId" validate:"required"`
	Text           string `json:"text"`
}

type unreadCountResponse struct {
	Unread int `json:"unread"`
}

// GetOrCreateConversation handles GET /v1/conversations/property/:propertyId
func (h *ConversationHandler) GetOrCreateConversation(c echo.Context) error {
	var req propertyParams
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	conversation, err := h.conversationUseCase.GetOrCreateConversation(c.Request().Context(), req.PropertyID, userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversation)
}

// ListConversations handles GET /v1/conversations
func (h *ConversationHandler) ListConversations(c echo.Context) error {
	userID := c.Get("uid").(string)

	conversations, err := h.conversationUseCase.ListConversationsForUser(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.List(c, conversations, len(conversations))
}

// CountUnread handles GET /v1/conversations/unread-count
func (h *ConversationHandler) CountUnread(c echo.Context) error {
	userID := c.Get("uid").(string)

	unread, err := h.conversationUseCase.CountUnread(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, unreadCountResponse{Unread: unread})
}

// GetConversation handles GET /v1/conversations/:conversationId
func (h *ConversationHandler) GetConversation(c echo.Context) error {
	var req conversationParams
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	conversation, err := h.conversationUseCase.GetConversation(c.Request().Context(), req.ConversationID, userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversation)
}

// ListMessages handles GET /v1/conversations/:conversationId/messages and
// marks the other participant's messages as read.
func (h *ConversationHandler) ListMessages(c echo.Context) error {
	var req conversationParams
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	messages, err := h.messageUseCase.ListMessages(c.Request().Context(), req.ConversationID, userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.List(c, messages, len(messages))
}

// SendMessage handles POST /v1/conversations/:conversationId/messages
func (h *ConversationHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	message, err := h.messageUseCase.SendMessage(c.Request().Context(), req.ConversationID, userID, req.Text)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}
