package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is a node in the order state machine.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// transitions is the legal edge set: forward-only happy path, cancellation
// only out of pending and processing.
var transitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
}

// CanTransition reports whether from -> to has an edge.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderItem is a line snapshot copied from the cart at purchase time. It must
// not reference the live product, so later edits never alter order history.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Qty       int             `json:"qty"`
}

// Order is a purchase record. Totals are computed once at creation and never
// recomputed; Status moves only through Transition.
type Order struct {
	ID          string          `json:"id"`
	UserID      int64           `json:"user_id"`
	Items       []OrderItem     `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
	Method      string          `json:"payment_method"`
	Status      OrderStatus     `json:"status"`

	TrackingNumber string `json:"tracking_number,omitempty"`
	CancelReason   string `json:"cancel_reason,omitempty"`
	CancelledBy    int64  `json:"cancelled_by,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	ProcessedAt time.Time `json:"processed_at,omitzero"`
	ShippedAt   time.Time `json:"shipped_at,omitzero"`
	DeliveredAt time.Time `json:"delivered_at,omitzero"`
	CancelledAt time.Time `json:"cancelled_at,omitzero"`
}

// Transition moves the order to the next status, recording the transition
// timestamp. It returns ErrIllegalTransition (order unchanged) when the edge
// does not exist.
func (o *Order) Transition(to OrderStatus, now time.Time) error {
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, to)
	}
	o.Status = to
	switch to {
	case OrderProcessing:
		o.ProcessedAt = now
	case OrderShipped:
		o.ShippedAt = now
	case OrderDelivered:
		o.DeliveredAt = now
	case OrderCancelled:
		o.CancelledAt = now
	}
	return nil
}

// Cancellable reports whether the order still has a cancellation edge.
func (o *Order) Cancellable() bool {
	return CanTransition(o.Status, OrderCancelled)
}

// Terminal reports whether the order reached a sink state.
func (o *Order) Terminal() bool {
	return o.Status == OrderDelivered || o.Status == OrderCancelled
}
