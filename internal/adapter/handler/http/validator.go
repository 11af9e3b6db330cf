package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainErrors "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/errors"
)

// RequestValidator plugs go-playground/validator into echo's c.Validate.
// Failures come back as domain ValidationErrors keyed by the JSON field name.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

func (v *RequestValidator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		return domainErrors.NewValidationError(fe.Field(), messageForTag(fe.Tag(), fe.Param()))
	}
	return domainErrors.NewValidationError("body", err.Error())
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "max":
		return "must be at most " + param + " characters"
	case "startswith":
		return "must start with " + param
	default:
		return "is invalid"
	}
}
