package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telemart/telemart/pkg/domain"
)

func TestOrderTransitions(t *testing.T) {
	now := time.Now()

	t.Run("happy path is forward-only", func(t *testing.T) {
		o := &domain.Order{Status: domain.OrderPending}
		require.NoError(t, o.Transition(domain.OrderProcessing, now))
		require.NoError(t, o.Transition(domain.OrderShipped, now))
		require.NoError(t, o.Transition(domain.OrderDelivered, now))
		assert.True(t, o.Terminal())
		assert.False(t, o.DeliveredAt.IsZero())
	})

	t.Run("ship from pending is rejected", func(t *testing.T) {
		o := &domain.Order{Status: domain.OrderPending}
		err := o.Transition(domain.OrderShipped, now)
		assert.ErrorIs(t, err, domain.ErrIllegalTransition)
		assert.Equal(t, domain.OrderPending, o.Status)
		assert.True(t, o.ShippedAt.IsZero())
	})

	t.Run("cancel from shipped is rejected", func(t *testing.T) {
		o := &domain.Order{Status: domain.OrderShipped}
		err := o.Transition(domain.OrderCancelled, now)
		assert.ErrorIs(t, err, domain.ErrIllegalTransition)
		assert.Equal(t, domain.OrderShipped, o.Status)
		assert.False(t, o.Cancellable())
	})

	t.Run("cancellation entry points", func(t *testing.T) {
		assert.True(t, domain.CanTransition(domain.OrderPending, domain.OrderCancelled))
		assert.True(t, domain.CanTransition(domain.OrderProcessing, domain.OrderCancelled))
		assert.False(t, domain.CanTransition(domain.OrderDelivered, domain.OrderCancelled))
	})
}

func TestCartArithmetic(t *testing.T) {
	p1 := &domain.Product{ID: "p1", Name: "Widget", Price: decimal.RequireFromString("4.50")}
	p2 := &domain.Product{ID: "p2", Name: "Gadget", Price: decimal.RequireFromString("10.00")}

	cart := &domain.Cart{UserID: 1}
	cart.Add(p1, 2)
	cart.Add(p2, 1)
	cart.Add(p1, 1) // merges into the existing line

	require.Len(t, cart.Lines, 2)
	assert.Equal(t, 3, cart.Quantity("p1"))
	assert.True(t, cart.Total().Equal(decimal.RequireFromString("23.50")), "got %s", cart.Total())

	assert.True(t, cart.Remove("p2"))
	assert.False(t, cart.Remove("p2"))
	assert.True(t, cart.Total().Equal(decimal.RequireFromString("13.50")))
}

func TestLedgerBalance(t *testing.T) {
	u := domain.NewUser(7, "Ada", "ada", time.Now())
	u.Transactions = []domain.Transaction{
		{Kind: domain.TxnDeposit, Amount: decimal.NewFromInt(100), Status: domain.TxnCompleted},
		{Kind: domain.TxnPurchase, Method: domain.MethodWallet, Amount: decimal.RequireFromString("23.00"), Status: domain.TxnCompleted},
		{Kind: domain.TxnWithdrawal, Amount: decimal.NewFromInt(30), Status: domain.TxnPending},
		{Kind: domain.TxnRefund, Amount: decimal.RequireFromString("23.00"), Status: domain.TxnCompleted},
		// Rejected entries are excluded from the replay.
		{Kind: domain.TxnWithdrawal, Amount: decimal.NewFromInt(999), Status: domain.TxnRejected},
	}

	assert.True(t, u.LedgerBalance().Equal(decimal.NewFromInt(70)), "got %s", u.LedgerBalance())
}
