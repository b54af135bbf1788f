package commerce

import (
	"context"
	"fmt"

	"github.com/telemart/telemart/pkg/domain"
)

// cart returns the user's cart, creating it lazily on first use. Caller must
// hold cartMu or operate on a copy.
func (s *Service) cartLocked(userID int64) *domain.Cart {
	c, ok := s.carts[userID]
	if !ok {
		c = &domain.Cart{UserID: userID}
		s.carts[userID] = c
	}
	return c
}

// Cart returns a copy of the user's cart.
func (s *Service) Cart(userID int64) *domain.Cart {
	s.cartMu.Lock()
	defer s.cartMu.Unlock()

	c := s.cartLocked(userID)
	out := &domain.Cart{UserID: userID, Lines: make([]domain.CartLine, len(c.Lines))}
	copy(out.Lines, c.Lines)
	return out
}

// AddToCart merges qty units of a product into the user's cart. The product
// must be active and its stock must cover the merged cart quantity. No stock
// is reserved; stock is authoritative only at checkout.
func (s *Service) AddToCart(ctx context.Context, userID int64, productID string, qty int) (err error) {
	defer func() { s.record("add_to_cart", err) }()

	if qty <= 0 {
		return domain.Validation("quantity", "must be positive")
	}

	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return err
	}
	if !p.Purchasable() {
		return domain.ErrProductInactive
	}

	s.cartMu.Lock()
	defer s.cartMu.Unlock()

	c := s.cartLocked(userID)
	if c.Quantity(productID)+qty > p.Stock {
		return fmt.Errorf("%w: %s has %d in stock", domain.ErrInsufficientStock, p.Name, p.Stock)
	}
	c.Add(p, qty)
	return nil
}

// RemoveFromCart drops a product line from the user's cart.
func (s *Service) RemoveFromCart(ctx context.Context, userID int64, productID string) (err error) {
	defer func() { s.record("remove_from_cart", err) }()

	s.cartMu.Lock()
	defer s.cartMu.Unlock()

	if !s.cartLocked(userID).Remove(productID) {
		return domain.ErrProductNotFound
	}
	return nil
}

// ClearCart empties the user's cart.
func (s *Service) ClearCart(ctx context.Context, userID int64) error {
	s.cartMu.Lock()
	defer s.cartMu.Unlock()
	delete(s.carts, userID)
	return nil
}

// takeCart atomically snapshots and clears the user's cart; restoreCart puts
// it back when a checkout aborts.
func (s *Service) takeCart(userID int64) *domain.Cart {
	s.cartMu.Lock()
	defer s.cartMu.Unlock()

	c := s.cartLocked(userID)
	delete(s.carts, userID)
	return c
}

func (s *Service) restoreCart(c *domain.Cart) {
	s.cartMu.Lock()
	defer s.cartMu.Unlock()
	s.carts[c.UserID] = c
}
