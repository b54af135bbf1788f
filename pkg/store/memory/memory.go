// Package memory implements the storefront's store ports with in-process
// maps. Safe for concurrent use; values are copied on read and write so
// callers can never mutate store state through a shared pointer.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/telemart/telemart/pkg/domain"
)

// Users implements ports.UserStore.
type Users struct {
	mu   sync.RWMutex
	data map[int64]*domain.User
}

// NewUsers creates an empty user store.
func NewUsers() *Users {
	return &Users{data: make(map[int64]*domain.User)}
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	c.Transactions = make([]domain.Transaction, len(u.Transactions))
	copy(c.Transactions, u.Transactions)
	return &c
}

// Get returns a copy of the user or domain.ErrUserNotFound.
func (s *Users) Get(ctx context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.data[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return copyUser(u), nil
}

// GetOrCreate returns the existing user or registers a customer on first
// contact.
func (s *Users) GetOrCreate(ctx context.Context, id int64, name, handle string) (*domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.data[id]; ok {
		return copyUser(u), false, nil
	}
	u := domain.NewUser(id, name, handle, time.Now())
	s.data[id] = copyUser(u)
	return u, true, nil
}

// Put stores a copy of the user.
func (s *Users) Put(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[u.ID] = copyUser(u)
	return nil
}

// Snapshot returns a point-in-time copy of all users.
func (s *Users) Snapshot(ctx context.Context) (map[int64]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]*domain.User, len(s.data))
	for id, u := range s.data {
		out[id] = copyUser(u)
	}
	return out, nil
}

// Products implements ports.ProductStore.
type Products struct {
	mu   sync.RWMutex
	data map[string]*domain.Product
}

// NewProducts creates an empty catalog.
func NewProducts() *Products {
	return &Products{data: make(map[string]*domain.Product)}
}

// Get returns a copy of the product or domain.ErrProductNotFound.
func (s *Products) Get(ctx context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	c := *p
	return &c, nil
}

// Put stores a copy of the product.
func (s *Products) Put(ctx context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	s.data[p.ID] = &c
	return nil
}

// Snapshot returns a point-in-time copy of the catalog.
func (s *Products) Snapshot(ctx context.Context) (map[string]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*domain.Product, len(s.data))
	for id, p := range s.data {
		c := *p
		out[id] = &c
	}
	return out, nil
}

// Orders implements ports.OrderStore.
type Orders struct {
	mu   sync.RWMutex
	data map[string]*domain.Order
}

// NewOrders creates an empty order store.
func NewOrders() *Orders {
	return &Orders{data: make(map[string]*domain.Order)}
}

func copyOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = make([]domain.OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	return &c
}

// Get returns a copy of the order or domain.ErrOrderNotFound.
func (s *Orders) Get(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.data[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

// Put stores a copy of the order.
func (s *Orders) Put(ctx context.Context, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[o.ID] = copyOrder(o)
	return nil
}

// ListByUser returns the user's orders, newest first.
func (s *Orders) ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Order
	for _, o := range s.data {
		if o.UserID == userID {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Snapshot returns a point-in-time copy of all orders.
func (s *Orders) Snapshot(ctx context.Context) (map[string]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*domain.Order, len(s.data))
	for id, o := range s.data {
		out[id] = copyOrder(o)
	}
	return out, nil
}

// Load seeds the store from a persisted snapshot, replacing current contents.
func (s *Users) Load(data map[int64]*domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[int64]*domain.User, len(data))
	for id, u := range data {
		s.data[id] = copyUser(u)
	}
}

// Load seeds the catalog from a persisted snapshot, replacing current contents.
func (s *Products) Load(data map[string]*domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]*domain.Product, len(data))
	for id, p := range data {
		c := *p
		s.data[id] = &c
	}
}

// Load seeds the store from a persisted snapshot, replacing current contents.
func (s *Orders) Load(data map[string]*domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]*domain.Order, len(data))
	for id, o := range data {
		s.data[id] = copyOrder(o)
	}
}
