package commerce

import (
	"context"

	"github.com/telemart/telemart/pkg/domain"
)

// Identify resolves a counterparty on contact: the user is created on first
// sight, promoted to administrator when they match the configured admin id,
// and their LastSeen is advanced.
func (s *Service) Identify(ctx context.Context, id int64, name, handle string) (*domain.User, error) {
	unlock := s.locks.Lock(userKey(id))
	defer unlock()

	u, created, err := s.users.GetOrCreate(ctx, id, name, handle)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("user registered", "user_id", id, "name", name)
	}

	if s.adminID != 0 && id == s.adminID && !u.IsAdmin() {
		u.Role = domain.RoleAdmin
	}
	if name != "" && u.Name != name {
		u.Name = name
	}
	if handle != "" && u.Handle != handle {
		u.Handle = handle
	}
	u.LastSeen = s.now()
	if err := s.users.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// User returns a counterparty record.
func (s *Service) User(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.Get(ctx, id)
}

// Users returns a point-in-time copy of all counterparties.
func (s *Service) Users(ctx context.Context) (map[int64]*domain.User, error) {
	return s.users.Snapshot(ctx)
}
