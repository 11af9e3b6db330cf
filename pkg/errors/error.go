// Package errors carries the codes the payment service answers with. Domain
// errors (validation, duplicate in-flight charges, illegal status transitions,
// gateway failures) implement Error so handlers and logs can classify them
// without knowing their concrete types.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is an error with a stable code from codes.go.
type Error interface {
	error
	Code() string
	Unwrap() error
}

// AppError is a coded error with an optional cause, used where no domain type fits.
type AppError struct {
	code    string
	message string
	err     error
}

func (e *AppError) Error() string {
	if e.err == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %s", e.message, e.err)
}

func (e *AppError) Code() string  { return e.code }
func (e *AppError) Unwrap() error { return e.err }

func NewAppError(code string, message string, err error) *AppError {
	return &AppError{code: code, message: message, err: err}
}

// Wrap adds context to err for logs. A gateway failure wrapped this way still
// reports BAD_GATEWAY; uncoded causes report INTERNAL.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return NewAppError(CodeOf(err), message, err)
}

func asCoded(err error) (Error, bool) {
	var coded Error
	if stderrors.As(err, &coded) {
		return coded, true
	}
	return nil, false
}
