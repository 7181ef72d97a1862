package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"propertychat/internal/domain/service"
	"propertychat/pkg/errors"
	"propertychat/pkg/response"
)

const ContextUserID = "uid"

type AuthMiddleware struct {
	verifier service.IdentityVerifier
}

func NewAuthMiddleware(verifier service.IdentityVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// Authenticate requires an "Authorization: Bearer <token>" header.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}

		return m.verify(c, next, parts[1])
	}
}

// AuthenticateQuery reads the token from ?token= for clients that cannot set
// headers, such as browser WebSocket handshakes.
func (m *AuthMiddleware) AuthenticateQuery(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		if token == "" {
			return response.Error(c, errors.Unauthorized("Token query parameter is required", nil))
		}

		return m.verify(c, next, token)
	}
}

func (m *AuthMiddleware) verify(c echo.Context, next echo.HandlerFunc, token string) error {
	identity, err := m.verifier.Verify(c.Request().Context(), token)
	if err != nil {
		if errors.Is(err, errors.CodeUnauthorized) {
			return response.Error(c, err)
		}
		return response.Error(c, errors.Unauthorized("Invalid or expired token", err))
	}

	c.Set(ContextUserID, identity.ID)

	return next(c)
}
