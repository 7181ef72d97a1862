package response

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apperrors "propertychat/pkg/errors"
	"propertychat/pkg/logger"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	// Message mirrors Error.Message so clients reading a flat {message} body keep working.
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ListResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func Success(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: now(),
	})
}

func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{
		Success:   true,
		Data:      data,
		Timestamp: now(),
	})
}

func List(c echo.Context, items interface{}, total int) error {
	return c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      ListResponse{Items: items, Total: total},
		Timestamp: now(),
	})
}

func Fail(c echo.Context, status int, code, message string) error {
	return c.JSON(status, Response{
		Success:   false,
		Message:   message,
		Timestamp: now(),
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}

func Error(c echo.Context, err error) error {
	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		return handleValidationError(c, validationErr)
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logger.Error("%s %s failed: %v", c.Request().Method, c.Path(), err)
			return Fail(c, appErr.Status, appErr.Code, "An unexpected error occurred")
		}
		return Fail(c, appErr.Status, appErr.Code, appErr.Message)
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok {
			message = m
		}
		return Fail(c, httpErr.Code, "BAD_REQUEST", message)
	}

	logger.Error("%s %s failed: %v", c.Request().Method, c.Path(), err)
	return Fail(c, http.StatusInternalServerError, apperrors.CodeInternal, "An unexpected error occurred")
}

func handleValidationError(c echo.Context, validationErr validator.ValidationErrors) error {
	for _, err := range validationErr {
		field := strings.ToLower(err.Field())

		var message string
		switch err.Tag() {
		case "required":
			message = field + " required"
		case "max":
			message = field + " must be at most " + err.Param() + " characters"
		default:
			message = field + " is invalid"
		}

		return Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", message)
	}

	return Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input data")
}
