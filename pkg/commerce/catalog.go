package commerce

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/telemart/telemart/pkg/domain"
)

// Product returns a single catalog item.
func (s *Service) Product(ctx context.Context, productID string) (*domain.Product, error) {
	return s.products.Get(ctx, productID)
}

// Catalog returns active products, newest first. Inactive products stay in
// the store for order history but are never listed.
func (s *Service) Catalog(ctx context.Context) ([]*domain.Product, error) {
	all, err := s.products.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var active []*domain.Product
	for _, p := range all {
		if p.Status == domain.ProductActive {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.After(active[j].CreatedAt) })
	return active, nil
}

// SearchProducts matches the query against active products' names, descriptions
// and categories, case-insensitively.
func (s *Service) SearchProducts(ctx context.Context, query string) ([]*domain.Product, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, domain.Validation("query", "cannot be empty")
	}
	active, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	var hits []*domain.Product
	for _, p := range active {
		if strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.Description), query) ||
			strings.Contains(strings.ToLower(p.Category), query) {
			hits = append(hits, p)
		}
	}
	return hits, nil
}

// CreateProduct adds a catalog item from a completed draft. Administrator
// only; price must be positive and stock non-negative.
func (s *Service) CreateProduct(ctx context.Context, byUserID int64, draft domain.ProductDraft) (p *domain.Product, err error) {
	defer func() { s.record("create_product", err) }()

	by, err := s.users.Get(ctx, byUserID)
	if err != nil {
		return nil, err
	}
	if !by.IsAdmin() {
		return nil, domain.ErrUnauthorized
	}
	if strings.TrimSpace(draft.Name) == "" {
		return nil, domain.Validation("name", "cannot be empty")
	}
	if !draft.Price.IsPositive() {
		return nil, domain.Validation("price", "must be greater than zero")
	}
	if draft.Stock < 0 {
		return nil, domain.Validation("stock", "cannot be negative")
	}

	now := s.now()
	p = &domain.Product{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(draft.Name),
		Description: strings.TrimSpace(draft.Description),
		Price:       draft.Price,
		Stock:       draft.Stock,
		Status:      domain.ProductActive,
		Category:    strings.TrimSpace(draft.Category),
		CreatedBy:   byUserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = s.products.Put(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to store product: %w", err)
	}
	s.logger.Info("product created", "product_id", p.ID, "name", p.Name, "by", byUserID)
	return p, nil
}

// SetProductActive toggles storefront visibility. Deactivation hides the
// product from browsing and blocks new purchases; existing orders keep their
// snapshots.
func (s *Service) SetProductActive(ctx context.Context, byUserID int64, productID string, active bool) (err error) {
	defer func() { s.record("set_product_active", err) }()

	by, err := s.users.Get(ctx, byUserID)
	if err != nil {
		return err
	}
	if !by.IsAdmin() {
		return domain.ErrUnauthorized
	}

	unlock := s.locks.Lock(productKey(productID))
	defer unlock()
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return err
	}
	if active {
		p.Status = domain.ProductActive
	} else {
		p.Status = domain.ProductInactive
	}
	p.UpdatedAt = s.now()
	return s.products.Put(ctx, p)
}

// RestockProduct adjusts stock by delta, which may be negative for a
// correction but can never take stock below zero.
func (s *Service) RestockProduct(ctx context.Context, byUserID int64, productID string, delta int) (err error) {
	defer func() { s.record("restock_product", err) }()

	by, err := s.users.Get(ctx, byUserID)
	if err != nil {
		return err
	}
	if !by.IsAdmin() {
		return domain.ErrUnauthorized
	}

	unlock := s.locks.Lock(productKey(productID))
	defer unlock()
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return err
	}
	if p.Stock+delta < 0 {
		return fmt.Errorf("%w: %s has %d in stock, adjustment %d",
			domain.ErrInsufficientStock, p.Name, p.Stock, delta)
	}
	p.Stock += delta
	p.UpdatedAt = s.now()
	return s.products.Put(ctx, p)
}
