package handler

import (
	"github.com/labstack/echo/v4"

	"propertychat/internal/usecase"
	"propertychat/pkg/response"
)

// AdminHandler serves the purge hooks the property and user services call when
// they delete a record.
type AdminHandler struct {
	conversationUseCase *usecase.ConversationUseCase
}

func NewAdminHandler(conversationUseCase *usecase.ConversationUseCase) *AdminHandler {
	return &AdminHandler{
		conversationUseCase: conversationUseCase,
	}
}

type purgePropertyParams struct {
	PropertyID string `param:"propertyId" validate:"required"`
}

type purgeUserParams struct {
	UserID string `param:"userId" validate:"required"`
}

type purgeResponse struct {
	Deleted int `json:"deleted"`
}

func (h *AdminHandler) PurgeProperty(c echo.Context) error {
	var req purgePropertyParams
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	deleted, err := h.conversationUseCase.PurgeProperty(c.Request().Context(), req.PropertyID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, purgeResponse{Deleted: deleted})
}

func (h *AdminHandler) PurgeUser(c echo.Context) error {
	var req purgeUserParams
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	deleted, err := h.conversationUseCase.PurgeUser(c.Request().Context(), req.UserID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, purgeResponse{Deleted: deleted})
}
