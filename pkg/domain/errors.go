package domain

import (
	"errors"
	"fmt"
)

// Not-found sentinels. Stale references (a product deleted mid-flow, an order
// id from an old keyboard) resolve to one of these and redirect the user to a
// safe listing instead of failing the update.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrTxnNotFound     = errors.New("transaction not found")
)

// Precondition failures. The operation aborts with no mutation and the user is
// informed; these never escape the dialogue boundary as transport errors.
var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrCartEmpty         = errors.New("cart is empty")
	ErrProductInactive   = errors.New("product is not available")
)

// ErrIllegalTransition is returned when an order status transition has no edge
// in the transition table. The order is left unchanged.
var ErrIllegalTransition = errors.New("illegal order status transition")

// ErrPaymentProvider marks a failure of the external payment collaborator.
// It is recoverable by retrying or choosing another method and is never
// silently treated as success.
var ErrPaymentProvider = errors.New("payment provider error")

// ValidationError describes malformed or out-of-range user input for a
// dialogue step. The engine re-prompts the same step without advancing.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validation is a shorthand constructor.
func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrTxnNotFound)
}

// IsPrecondition reports whether err is a recoverable precondition failure.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrCartEmpty) ||
		errors.Is(err, ErrProductInactive) ||
		errors.Is(err, ErrIllegalTransition)
}
