package errors

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ToHTTPStatus converts an error code to an HTTP status
func ToHTTPStatus(code string) int {
	httpStatus, _ := GetCodeMapping(code)
	return httpStatus
}

// ToHTTPError converts err into an echo HTTP error. Coded errors keep their message
// so callers can correct the request; anything else becomes a 500.
func ToHTTPError(err error) *echo.HTTPError {
	if err == nil {
		return nil
	}

	if echoErr, ok := err.(*echo.HTTPError); ok {
		return echoErr
	}

	if coded, ok := asCoded(err); ok {
		httpErr := echo.NewHTTPError(ToHTTPStatus(coded.Code()), map[string]string{
			"code":    coded.Code(),
			"message": coded.Error(),
		})
		return httpErr.SetInternal(err)
	}

	return echo.NewHTTPError(http.StatusInternalServerError, map[string]string{
		"code":    ErrInternal,
		"message": http.StatusText(http.StatusInternalServerError),
	}).SetInternal(err)
}

// FromHTTPError converts an echo HTTP error into an application error
func FromHTTPError(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := asCoded(err); ok {
		return err
	}

	if echoErr, ok := err.(*echo.HTTPError); ok {
		msg := "HTTP error"
		if m, ok := echoErr.Message.(string); ok {
			msg = m
		}
		return NewAppError(httpStatusToCode(echoErr.Code), msg, nil)
	}

	return NewAppError(ErrInternal, err.Error(), err)
}

func httpStatusToCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrInvalidArgument
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnprocessableEntity:
		return ErrFailedPrecondition
	case http.StatusBadGateway:
		return ErrBadGateway
	case http.StatusGatewayTimeout:
		return ErrTimeout
	case http.StatusNotImplemented:
		return ErrNotImplemented
	default:
		return ErrInternal
	}
}
