// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Standard sentinel errors
var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidFeeComponent = errors.New("invalid fee component")
	ErrOverfill            = errors.New("fill exceeds requested quantity")
	ErrOrderTerminal       = errors.New("order is in a terminal status")
	ErrNotCancellable      = errors.New("order is not cancellable")
	ErrInvalidOrder        = errors.New("invalid order")
	ErrDuplicateExecution  = errors.New("duplicate execution id")
	ErrConfigInvalid       = errors.New("invalid configuration")
)

// InvalidFeeComponentError reports a negative fee component rejected at
// construction.
type InvalidFeeComponentError struct {
	Component string
	Value     decimal.Decimal
}

func (e *InvalidFeeComponentError) Error() string {
	return fmt.Sprintf("invalid fee component %s: %s is negative", e.Component, e.Value)
}

func (e *InvalidFeeComponentError) Unwrap() error {
	return ErrInvalidFeeComponent
}

// NewInvalidFeeComponentError creates a new InvalidFeeComponentError.
func NewInvalidFeeComponentError(component string, value decimal.Decimal) *InvalidFeeComponentError {
	return &InvalidFeeComponentError{Component: component, Value: value}
}

// OverfillError reports a fill that would push executed quantity past the
// requested quantity. The fill is rejected whole; the engine never clips.
type OverfillError struct {
	OrderID      string
	Requested    decimal.Decimal
	Executed     decimal.Decimal
	FillQuantity decimal.Decimal
}

func (e *OverfillError) Error() string {
	return fmt.Sprintf("overfill on order %s: executed %s + fill %s exceeds requested %s",
		e.OrderID, e.Executed, e.FillQuantity, e.Requested)
}

func (e *OverfillError) Unwrap() error {
	return ErrOverfill
}

// NewOverfillError creates a new OverfillError.
func NewOverfillError(orderID string, requested, executed, fillQty decimal.Decimal) *OverfillError {
	return &OverfillError{OrderID: orderID, Requested: requested, Executed: executed, FillQuantity: fillQty}
}

// OrderTerminalError reports a mutation attempted against an order in a
// terminal status.
type OrderTerminalError struct {
	OrderID string
	Status  string
	Action  string
}

func (e *OrderTerminalError) Error() string {
	return fmt.Sprintf("order %s is %s: %s rejected", e.OrderID, e.Status, e.Action)
}

func (e *OrderTerminalError) Unwrap() error {
	return ErrOrderTerminal
}

// NewOrderTerminalError creates a new OrderTerminalError.
func NewOrderTerminalError(orderID, status, action string) *OrderTerminalError {
	return &OrderTerminalError{OrderID: orderID, Status: status, Action: action}
}

// NotCancellableError reports a cancel attempted outside the cancellable
// predicate.
type NotCancellableError struct {
	OrderID string
	Status  string
	Reason  string
}

func (e *NotCancellableError) Error() string {
	return fmt.Sprintf("order %s (%s) is not cancellable: %s", e.OrderID, e.Status, e.Reason)
}

func (e *NotCancellableError) Unwrap() error {
	return ErrNotCancellable
}

// NewNotCancellableError creates a new NotCancellableError.
func NewNotCancellableError(orderID, status, reason string) *NotCancellableError {
	return &NotCancellableError{OrderID: orderID, Status: status, Reason: reason}
}

// ValidationError reports an invalid field on a submission request.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidOrder
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
