package commerce

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/telemart/telemart/pkg/domain"
)

// OrderAction names a requested lifecycle transition.
type OrderAction string

const (
	ActionProcess OrderAction = "process"
	ActionShip    OrderAction = "ship"
	ActionDeliver OrderAction = "deliver"
)

var actionTargets = map[OrderAction]domain.OrderStatus{
	ActionProcess: domain.OrderProcessing,
	ActionShip:    domain.OrderShipped,
	ActionDeliver: domain.OrderDelivered,
}

// Order returns the order, enforcing that only its owner or an administrator
// may see it.
func (s *Service) Order(ctx context.Context, orderID string, byUserID int64) (*domain.Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != byUserID {
		by, err := s.users.Get(ctx, byUserID)
		if err != nil {
			return nil, err
		}
		if !by.IsAdmin() {
			return nil, domain.ErrUnauthorized
		}
	}
	return o, nil
}

// OrdersFor returns the user's orders, newest first.
func (s *Service) OrdersFor(ctx context.Context, userID int64) ([]*domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// CancelOrder cancels a pending or processing order. Status change, restock
// of every line and, for wallet payment, the refund are applied in one
// critical section; a partial application cannot be observed.
func (s *Service) CancelOrder(ctx context.Context, orderID string, byUserID int64, reason string) (err error) {
	defer func() { s.record("cancel_order", err) }()

	// Resolve line set first so all locks are taken before any check.
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	keys := []string{orderKey(orderID), userKey(o.UserID)}
	for _, item := range o.Items {
		keys = append(keys, productKey(item.ProductID))
	}
	unlock := s.locks.Lock(keys...)

	cancelled, owner, err := s.cancelLocked(ctx, orderID, byUserID, reason)
	unlock()
	if err != nil {
		return err
	}

	refunded := cancelled.Method == PayWallet
	s.logger.Info("order cancelled", "order_id", orderID, "by", byUserID, "refunded", refunded)
	text := fmt.Sprintf("Order %s has been cancelled and its items restocked.", shortID(orderID))
	if refunded {
		text = fmt.Sprintf("Order %s has been cancelled. %s %s was refunded to your wallet; items restocked.",
			shortID(orderID), cancelled.Total.StringFixed(2), s.pricing.Currency)
	}
	s.notify(ctx, owner.ID, text)
	return nil
}

func (s *Service) cancelLocked(ctx context.Context, orderID string, byUserID int64, reason string) (*domain.Order, *domain.User, error) {
	// Re-read under lock; the pre-lock read only chose the lock set.
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	owner, err := s.users.Get(ctx, o.UserID)
	if err != nil {
		return nil, nil, err
	}
	if byUserID != o.UserID {
		by, err := s.users.Get(ctx, byUserID)
		if err != nil {
			return nil, nil, err
		}
		if !by.IsAdmin() {
			return nil, nil, domain.ErrUnauthorized
		}
	}

	now := s.now()
	if err := o.Transition(domain.OrderCancelled, now); err != nil {
		return nil, nil, err
	}
	o.CancelReason = strings.TrimSpace(reason)
	o.CancelledBy = byUserID

	// Restock every line.
	for _, item := range o.Items {
		p, err := s.products.Get(ctx, item.ProductID)
		if err != nil {
			// A product deleted after purchase loses its restock; the
			// cancellation still proceeds.
			s.logger.Warn("restock skipped, product missing", "product_id", item.ProductID, "order_id", orderID)
			continue
		}
		p.Stock += item.Qty
		p.Sold -= item.Qty
		p.UpdatedAt = now
		if err := s.products.Put(ctx, p); err != nil {
			return nil, nil, fmt.Errorf("failed to restock product: %w", err)
		}
	}

	if o.Method == PayWallet {
		owner.Wallet = owner.Wallet.Add(o.Total)
		owner.Transactions = append(owner.Transactions, domain.Transaction{
			ID:        uuid.NewString(),
			UserID:    owner.ID,
			Kind:      domain.TxnRefund,
			Amount:    o.Total,
			Method:    PayWallet,
			OrderID:   o.ID,
			Status:    domain.TxnCompleted,
			CreatedAt: now,
		})
	}
	if err := s.users.Put(ctx, owner); err != nil {
		return nil, nil, fmt.Errorf("failed to store user: %w", err)
	}
	if err := s.orders.Put(ctx, o); err != nil {
		return nil, nil, fmt.Errorf("failed to store order: %w", err)
	}
	return o, owner, nil
}

// AdvanceOrderStatus applies a lifecycle action. Process and ship are
// administrator actions; deliver is accepted from the administrator or the
// owning customer confirming receipt. Ship requires a tracking number.
func (s *Service) AdvanceOrderStatus(ctx context.Context, orderID string, byUserID int64, action OrderAction, tracking string) (err error) {
	defer func() { s.record("advance_order", err) }()

	target, ok := actionTargets[action]
	if !ok {
		return fmt.Errorf("%w: unknown action %q", domain.ErrIllegalTransition, action)
	}

	by, err := s.users.Get(ctx, byUserID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(orderKey(orderID))
	o, err := s.advanceLocked(ctx, orderID, by, action, target, tracking)
	unlock()
	if err != nil {
		return err
	}

	s.logger.Info("order status advanced", "order_id", orderID, "status", o.Status, "by", byUserID)
	switch target {
	case domain.OrderProcessing:
		s.notify(ctx, o.UserID, fmt.Sprintf("Order %s is now being processed.", shortID(orderID)))
	case domain.OrderShipped:
		s.notify(ctx, o.UserID, fmt.Sprintf("Order %s has shipped. Tracking: %s", shortID(orderID), o.TrackingNumber))
	case domain.OrderDelivered:
		s.notify(ctx, o.UserID, fmt.Sprintf("Order %s was delivered. Thank you for shopping with us!", shortID(orderID)))
	}
	return nil
}

func (s *Service) advanceLocked(ctx context.Context, orderID string, by *domain.User, action OrderAction, target domain.OrderStatus, tracking string) (*domain.Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionProcess, ActionShip:
		if !by.IsAdmin() {
			return nil, domain.ErrUnauthorized
		}
	case ActionDeliver:
		if !by.IsAdmin() && by.ID != o.UserID {
			return nil, domain.ErrUnauthorized
		}
	}

	if action == ActionShip {
		tracking = strings.TrimSpace(tracking)
		if tracking == "" {
			return nil, domain.Validation("tracking number", "cannot be empty")
		}
	}

	if err := o.Transition(target, s.now()); err != nil {
		return nil, err
	}
	if action == ActionShip {
		o.TrackingNumber = tracking
	}
	if err := s.orders.Put(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to store order: %w", err)
	}
	return o, nil
}
