package commerce

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/telemart/telemart/pkg/domain"
)

// PayWallet is the built-in payment method settled against the user's wallet.
// Any other method is an external payment and must present a verified intent.
const PayWallet = domain.MethodWallet

// Checkout converts the user's cart into an order. Stock for every line and,
// for wallet payment, the wallet balance are revalidated inside one critical
// section; if any precondition fails the whole operation aborts with no
// mutation and the cart is left intact.
func (s *Service) Checkout(ctx context.Context, userID int64, method, intentID string) (order *domain.Order, err error) {
	defer func() { s.record("checkout", err) }()

	cart := s.takeCart(userID)
	if cart.Empty() {
		return nil, domain.ErrCartEmpty
	}

	order, err = s.placeOrder(ctx, userID, cart.Lines, method, intentID)
	if err != nil {
		s.restoreCart(cart)
		return nil, err
	}
	return order, nil
}

// BuyNow places a single-product order without touching the user's cart.
func (s *Service) BuyNow(ctx context.Context, userID int64, productID string, method, intentID string) (order *domain.Order, err error) {
	defer func() { s.record("buy_now", err) }()

	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Purchasable() {
		return nil, domain.ErrProductInactive
	}

	line := domain.CartLine{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Qty: 1}
	return s.placeOrder(ctx, userID, []domain.CartLine{line}, method, intentID)
}

// BeginPurchase registers a payment intent for the user's current cart total.
// The cart is not reserved; stock and price are authoritative only when the
// verified intent comes back through Checkout.
func (s *Service) BeginPurchase(ctx context.Context, userID int64, method string) (intentID string, err error) {
	defer func() { s.record("begin_purchase", err) }()

	cart := s.Cart(userID)
	if cart.Empty() {
		return "", domain.ErrCartEmpty
	}
	if s.payments == nil {
		return "", fmt.Errorf("%w: no provider configured", domain.ErrPaymentProvider)
	}

	subtotal := cart.Total()
	total := subtotal.Add(s.pricing.ShippingFee).Add(subtotal.Mul(s.pricing.TaxRate).Round(2))
	intentID, err = s.payments.CreateIntent(ctx, total, s.pricing.Currency, map[string]string{
		"kind":    "purchase",
		"user_id": fmt.Sprint(userID),
		"method":  method,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPaymentProvider, err)
	}
	return intentID, nil
}

// placeOrder runs the checkout critical section over the user and every
// product referenced by the lines. External payment verification happens
// before any lock is taken; no suspension point exists inside the section.
func (s *Service) placeOrder(ctx context.Context, userID int64, lines []domain.CartLine, method, intentID string) (*domain.Order, error) {
	if method != PayWallet {
		if err := s.verifyPayment(ctx, intentID); err != nil {
			return nil, err
		}
	}

	keys := []string{userKey(userID)}
	for _, l := range lines {
		keys = append(keys, productKey(l.ProductID))
	}
	unlock := s.locks.Lock(keys...)

	order, user, err := s.placeOrderLocked(ctx, userID, lines, method)
	unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		"order_id", order.ID,
		"user_id", userID,
		"total", order.Total.StringFixed(2),
		"method", method,
	)
	s.notify(ctx, userID, fmt.Sprintf(
		"Order %s placed. Total %s %s, paid by %s. Wallet balance: %s.",
		shortID(order.ID), order.Total.StringFixed(2), s.pricing.Currency, method, user.Wallet.StringFixed(2)))
	if s.adminID != 0 {
		s.notify(ctx, s.adminID, fmt.Sprintf(
			"New order %s from %s: %d items, %s %s (%s).",
			shortID(order.ID), user.Name, len(order.Items), order.Total.StringFixed(2), s.pricing.Currency, method))
	}
	return order, nil
}

func (s *Service) placeOrderLocked(ctx context.Context, userID int64, lines []domain.CartLine, method string) (*domain.Order, *domain.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	// Revalidate every line against live stock before mutating anything.
	products := make([]*domain.Product, len(lines))
	for i, l := range lines {
		p, err := s.products.Get(ctx, l.ProductID)
		if err != nil {
			return nil, nil, fmt.Errorf("line %q: %w", l.Name, err)
		}
		if p.Status != domain.ProductActive {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrProductInactive, p.Name)
		}
		if p.Stock < l.Qty {
			return nil, nil, fmt.Errorf("%w: %s has %d in stock, %d requested",
				domain.ErrInsufficientStock, p.Name, p.Stock, l.Qty)
		}
		products[i] = p
	}

	now := s.now()
	order := &domain.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     make([]domain.OrderItem, len(lines)),
		Method:    method,
		Status:    domain.OrderPending,
		CreatedAt: now,
	}
	subtotal := (&domain.Cart{Lines: lines}).Total()
	order.Subtotal = subtotal
	order.ShippingFee = s.pricing.ShippingFee
	order.Tax = subtotal.Mul(s.pricing.TaxRate).Round(2)
	order.Total = order.Subtotal.Add(order.ShippingFee).Add(order.Tax)
	for i, l := range lines {
		order.Items[i] = domain.OrderItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Qty:       l.Qty,
		}
	}

	if method == PayWallet {
		if user.Wallet.LessThan(order.Total) {
			return nil, nil, fmt.Errorf("%w: balance %s, total %s",
				domain.ErrInsufficientFunds, user.Wallet.StringFixed(2), order.Total.StringFixed(2))
		}
		user.Wallet = user.Wallet.Sub(order.Total)
	}
	user.TotalSpent = user.TotalSpent.Add(order.Total)
	user.OrderCount++
	user.Transactions = append(user.Transactions, domain.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      domain.TxnPurchase,
		Amount:    order.Total,
		Method:    method,
		OrderID:   order.ID,
		Status:    domain.TxnCompleted,
		CreatedAt: now,
	})

	for i, p := range products {
		p.Stock -= lines[i].Qty
		p.Sold += lines[i].Qty
		p.UpdatedAt = now
		if err := s.products.Put(ctx, p); err != nil {
			return nil, nil, fmt.Errorf("failed to store product: %w", err)
		}
	}
	if err := s.users.Put(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to store user: %w", err)
	}
	if err := s.orders.Put(ctx, order); err != nil {
		return nil, nil, fmt.Errorf("failed to store order: %w", err)
	}
	return order, user, nil
}

// verifyPayment confirms an external payment intent. Provider failures are
// never treated as success.
func (s *Service) verifyPayment(ctx context.Context, intentID string) error {
	if s.payments == nil || intentID == "" {
		return fmt.Errorf("%w: no payment intent", domain.ErrPaymentProvider)
	}
	ok, err := s.payments.Verify(ctx, intentID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPaymentProvider, err)
	}
	if !ok {
		return fmt.Errorf("%w: intent %s not confirmed", domain.ErrPaymentProvider, intentID)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
