package handler

import (
	"github.com/labstack/echo/v4"

	"propertychat/pkg/errors"
)

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errors.BadRequest("Invalid request body", err)
	}
	return c.Validate(req)
}
