package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentProvider is the external payment collaborator. A failed call is
// recoverable by retrying or falling back to another method; it is never
// treated as success.
type PaymentProvider interface {
	// CreateIntent registers a payment of amount in the given currency and
	// returns the provider's intent id.
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, meta map[string]string) (string, error)

	// Verify reports whether the intent has been paid.
	Verify(ctx context.Context, intentID string) (bool, error)
}
