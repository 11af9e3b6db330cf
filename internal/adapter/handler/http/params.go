package http

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	domainErrors "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/errors"
)

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, domainErrors.NewValidationError(name, "must be a valid UUID")
	}
	return id, nil
}

// bindAndValidate decodes the body into req and runs its validate tags
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return domainErrors.NewValidationError("body", "malformed request body")
	}
	return c.Validate(req)
}
