// Package session orchestrates dialogue session access: get-or-create,
// wholesale replacement at step transitions, and the periodic idle sweep.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/telemart/telemart/internal/keylock"
	"github.com/telemart/telemart/internal/logging"
	"github.com/telemart/telemart/pkg/domain"
	"github.com/telemart/telemart/pkg/ports"
)

// Manager serializes access to each counterparty's session. Two updates for
// the same counterparty can interleave at I/O suspension points; the per-key
// lock keeps load-modify-save of a session atomic.
type Manager struct {
	store  ports.SessionStore
	locks  *keylock.Guard
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for sweep reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a Manager on the given store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locks:  keylock.New(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func lockKey(userID int64) string {
	return "session/" + strconv.FormatInt(userID, 10)
}

// WithLock executes fn while holding the session lock for the counterparty.
func (m *Manager) WithLock(userID int64, fn func() error) error {
	unlock := m.locks.Lock(lockKey(userID))
	defer unlock()
	return fn()
}

// loadOrStart loads or creates the session. Caller holds the session lock.
func (m *Manager) loadOrStart(ctx context.Context, userID int64) (*domain.Session, error) {
	sess, err := m.store.Load(ctx, userID)
	if err == nil {
		return sess, nil
	}
	if err != domain.ErrSessionNotFound {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	sess = domain.NewSession(userID, time.Now())
	if err := m.store.Save(ctx, userID, sess); err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	return sess, nil
}

// LoadOrStart loads the counterparty's session, creating an idle one on first
// contact.
func (m *Manager) LoadOrStart(ctx context.Context, userID int64) (*domain.Session, error) {
	var sess *domain.Session
	err := m.WithLock(userID, func() error {
		var err error
		sess, err = m.loadOrStart(ctx, userID)
		return err
	})
	return sess, err
}

// WithSession runs fn over the counterparty's session inside one critical
// section: load (or create), mutate, persist. The session is saved with a
// fresh activity stamp only when fn succeeds.
func (m *Manager) WithSession(ctx context.Context, userID int64, fn func(*domain.Session) error) error {
	return m.WithLock(userID, func() error {
		sess, err := m.loadOrStart(ctx, userID)
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
		sess.LastActivity = time.Now()
		return m.store.Save(ctx, userID, sess)
	})
}

// Replace persists the session wholesale, stamping the activity time.
func (m *Manager) Replace(ctx context.Context, sess *domain.Session) error {
	return m.WithLock(sess.UserID, func() error {
		sess.LastActivity = time.Now()
		return m.store.Save(ctx, sess.UserID, sess)
	})
}

// Delete removes the counterparty's session.
func (m *Manager) Delete(ctx context.Context, userID int64) error {
	return m.WithLock(userID, func() error {
		return m.store.Delete(ctx, userID)
	})
}

// List returns the counterparties with a stored session.
func (m *Manager) List(ctx context.Context) ([]int64, error) {
	return m.store.List(ctx)
}

// Sweep purges sessions idle past maxIdle and returns the purge count. It
// only abandons incomplete dialogue; commerce entities are never touched, so
// it is safe to run concurrently with everything else.
func (m *Manager) Sweep(ctx context.Context, maxIdle time.Duration) (int, error) {
	ids, err := m.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions for sweep: %w", err)
	}

	cutoff := time.Now().Add(-maxIdle)
	purged := 0
	for _, id := range ids {
		err := m.WithLock(id, func() error {
			sess, err := m.store.Load(ctx, id)
			if err != nil {
				if err == domain.ErrSessionNotFound {
					return nil // already gone
				}
				return err
			}
			if !sess.IdleSince(cutoff) {
				return nil
			}
			if err := m.store.Delete(ctx, id); err != nil {
				return err
			}
			purged++
			return nil
		})
		if err != nil {
			m.logger.Warn("session sweep skipped entry", "user_id", id, "err", err)
		}
	}

	if purged > 0 {
		m.logger.Info("purged idle sessions", "count", purged)
	}
	return purged, nil
}

// Run drives Sweep on a ticker until the context is done.
func (m *Manager) Run(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx, maxIdle); err != nil {
				m.logger.Error("session sweep failed", "err", err)
			}
		}
	}
}
