package middleware

import (
	"github.com/labstack/echo/v4"

	"propertychat/internal/domain/repository"
	"propertychat/pkg/errors"
	"propertychat/pkg/response"
)

type AdminMiddleware struct {
	userRepo repository.UserRepository
}

func NewAdminMiddleware(userRepo repository.UserRepository) *AdminMiddleware {
	return &AdminMiddleware{
		userRepo: userRepo,
	}
}

func (m *AdminMiddleware) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, ok := c.Get(ContextUserID).(string)
		if !ok || uid == "" {
			return response.Error(c, errors.Unauthorized("Authentication required", nil))
		}

		user, err := m.userRepo.GetByID(c.Request().Context(), uid)
		if err != nil {
			if errors.Is(err, errors.CodeNotFound) {
				return response.Error(c, errors.Forbidden("Admin privileges required", err))
			}
			return response.Error(c, errors.Internal("Failed to verify admin privileges", err))
		}

		if !user.IsAdmin() {
			return response.Error(c, errors.Forbidden("Admin privileges required", nil))
		}

		return next(c)
	}
}
