package ports

import (
	"context"

	"github.com/telemart/telemart/pkg/domain"
)

// UserStore persists counterparties. Implementations must be safe for
// concurrent use; callers serialize mutation through entity locks.
type UserStore interface {
	// Get returns the user or domain.ErrUserNotFound.
	Get(ctx context.Context, id int64) (*domain.User, error)

	// GetOrCreate returns the existing user or creates a customer record on
	// first contact. The second result reports whether a record was created.
	GetOrCreate(ctx context.Context, id int64, name, handle string) (*domain.User, bool, error)

	// Put stores the user, replacing any existing record.
	Put(ctx context.Context, u *domain.User) error

	// Snapshot returns a point-in-time copy of all users.
	Snapshot(ctx context.Context) (map[int64]*domain.User, error)
}

// ProductStore persists catalog items.
type ProductStore interface {
	// Get returns the product or domain.ErrProductNotFound.
	Get(ctx context.Context, id string) (*domain.Product, error)

	Put(ctx context.Context, p *domain.Product) error

	// Snapshot returns a point-in-time copy of the catalog.
	Snapshot(ctx context.Context) (map[string]*domain.Product, error)
}

// OrderStore persists orders.
type OrderStore interface {
	// Get returns the order or domain.ErrOrderNotFound.
	Get(ctx context.Context, id string) (*domain.Order, error)

	Put(ctx context.Context, o *domain.Order) error

	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error)

	// Snapshot returns a point-in-time copy of all orders.
	Snapshot(ctx context.Context) (map[string]*domain.Order, error)
}

// SessionStore persists dialogue sessions keyed by counterparty.
type SessionStore interface {
	// Save persists the session for the counterparty, replacing any previous
	// session wholesale.
	Save(ctx context.Context, userID int64, s *domain.Session) error

	// Load retrieves the session or domain.ErrSessionNotFound.
	Load(ctx context.Context, userID int64) (*domain.Session, error)

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, userID int64) error

	// List returns the counterparties with a stored session.
	List(ctx context.Context) ([]int64, error)
}
