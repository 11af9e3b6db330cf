package errors

import (
	"fmt"

	apperrors "github.com/nishant-k1/flushjohn-api-sub000/pkg/errors"
)

// ValidationError is returned for missing or invalid input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Code() string  { return apperrors.ErrInvalidArgument }
func (e *ValidationError) Unwrap() error { return nil }

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError is returned when an order or payment does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Code() string  { return apperrors.ErrNotFound }
func (e *NotFoundError) Unwrap() error { return nil }

// NewOrderNotFoundError creates a NotFoundError for an order
func NewOrderNotFoundError(id string) *NotFoundError {
	return &NotFoundError{Resource: "order", ID: id}
}

// NewPaymentNotFoundError creates a NotFoundError for a payment
func NewPaymentNotFoundError(id string) *NotFoundError {
	return &NotFoundError{Resource: "payment", ID: id}
}

// Duplicate charge reasons
const (
	DuplicateReasonAlreadyPaid  = "already_paid"
	DuplicateReasonRetryShortly = "retry_shortly"
)

// DuplicateInFlightError is returned when a recent payment for the order blocks a new charge
type DuplicateInFlightError struct {
	OrderID           string
	ExistingPaymentID string
	Reason            string
}

func (e *DuplicateInFlightError) Error() string {
	if e.Reason == DuplicateReasonAlreadyPaid {
		return fmt.Sprintf("order %s was already paid by payment %s", e.OrderID, e.ExistingPaymentID)
	}
	return fmt.Sprintf("a payment for order %s is already in progress (%s), retry shortly", e.OrderID, e.ExistingPaymentID)
}

func (e *DuplicateInFlightError) Code() string  { return apperrors.ErrConflict }
func (e *DuplicateInFlightError) Unwrap() error { return nil }

// NewDuplicateInFlightError creates a new DuplicateInFlightError
func NewDuplicateInFlightError(orderID, existingPaymentID, reason string) *DuplicateInFlightError {
	return &DuplicateInFlightError{OrderID: orderID, ExistingPaymentID: existingPaymentID, Reason: reason}
}

// InvalidStateTransitionError is returned when an operation is not allowed from the payment's state
type InvalidStateTransitionError struct {
	PaymentID string
	From      string
	To        string
	Message   string
}

func (e *InvalidStateTransitionError) Error() string {
	msg := fmt.Sprintf("payment %s cannot move from %s to %s", e.PaymentID, e.From, e.To)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *InvalidStateTransitionError) Code() string  { return apperrors.ErrFailedPrecondition }
func (e *InvalidStateTransitionError) Unwrap() error { return nil }

// NewInvalidStateTransitionError creates a new InvalidStateTransitionError
func NewInvalidStateTransitionError(paymentID, from, to, message string) *InvalidStateTransitionError {
	return &InvalidStateTransitionError{PaymentID: paymentID, From: from, To: to, Message: message}
}

// GatewayError wraps a failure reported by, or while reaching, the payment gateway
type GatewayError struct {
	Operation   string
	GatewayCode string
	HTTPStatus  int
	Message     string
	Retryable   bool
	Cause       error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("gateway %s failed", e.Operation)
	if e.GatewayCode != "" {
		msg += " (" + e.GatewayCode + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *GatewayError) Code() string  { return apperrors.ErrBadGateway }
func (e *GatewayError) Unwrap() error { return e.Cause }

// NewGatewayError creates a new GatewayError
func NewGatewayError(operation, message string, cause error) *GatewayError {
	return &GatewayError{Operation: operation, Message: message, Cause: cause}
}

// ReconciliationError is returned when an order balance could not be recomputed
type ReconciliationError struct {
	OrderID string
	Cause   error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("failed to reconcile order %s: %v", e.OrderID, e.Cause)
}

func (e *ReconciliationError) Code() string  { return apperrors.ErrInternal }
func (e *ReconciliationError) Unwrap() error { return e.Cause }

// NewReconciliationError creates a new ReconciliationError
func NewReconciliationError(orderID string, cause error) *ReconciliationError {
	return &ReconciliationError{OrderID: orderID, Cause: cause}
}
