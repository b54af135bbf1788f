package memory

import (
	"context"
	"sync"

	"github.com/telemart/telemart/pkg/domain"
)

// Sessions implements ports.SessionStore in memory. This is the default
// backend; the redis store is used when sessions must survive the process.
type Sessions struct {
	mu   sync.RWMutex
	data map[int64]*domain.Session
}

// NewSessions creates an empty session store.
func NewSessions() *Sessions {
	return &Sessions{data: make(map[int64]*domain.Session)}
}

func copySession(s *domain.Session) *domain.Session {
	c := *s
	return &c
}

// Save persists a copy of the session.
func (s *Sessions) Save(ctx context.Context, userID int64, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = copySession(sess)
	return nil
}

// Load retrieves a copy of the session or domain.ErrSessionNotFound.
func (s *Sessions) Load(ctx context.Context, userID int64) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.data[userID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return copySession(sess), nil
}

// Delete removes the session.
func (s *Sessions) Delete(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
	return nil
}

// List returns the counterparties with a stored session.
func (s *Sessions) List(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
