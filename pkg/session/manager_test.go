package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telemart/telemart/pkg/domain"
	"github.com/telemart/telemart/pkg/session"
	"github.com/telemart/telemart/pkg/store/memory"
)

func TestLoadOrStart(t *testing.T) {
	ctx := context.Background()
	mgr := session.NewManager(memory.NewSessions())

	sess, err := mgr.LoadOrStart(ctx, 7)
	require.NoError(t, err)
	assert.True(t, sess.Step.None())

	sess.Step = domain.Step{Kind: domain.StepBroadcast}
	require.NoError(t, mgr.Replace(ctx, sess))

	again, err := mgr.LoadOrStart(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.StepBroadcast, again.Step.Kind)
}

func TestWithSessionPersistsOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessions()
	mgr := session.NewManager(store)

	err := mgr.WithSession(ctx, 3, func(sess *domain.Session) error {
		sess.Step = domain.Step{Kind: domain.StepSearchQuery}
		return nil
	})
	require.NoError(t, err)

	sess, err := store.Load(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.StepSearchQuery, sess.Step.Kind)

	failure := assert.AnError
	err = mgr.WithSession(ctx, 3, func(sess *domain.Session) error {
		sess.Step = domain.Step{Kind: domain.StepBroadcast}
		return failure
	})
	assert.ErrorIs(t, err, failure)

	sess, err = store.Load(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.StepSearchQuery, sess.Step.Kind, "failed update is not persisted")
}

func TestSweepPurgesOnlyIdleSessions(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessions()
	mgr := session.NewManager(store)

	stale := domain.NewSession(1, time.Now().Add(-25*time.Hour))
	stale.LastActivity = time.Now().Add(-25 * time.Hour)
	require.NoError(t, store.Save(ctx, 1, stale))

	fresh := domain.NewSession(2, time.Now().Add(-time.Hour))
	fresh.LastActivity = time.Now().Add(-time.Hour)
	require.NoError(t, store.Save(ctx, 2, fresh))

	purged, err := mgr.Sweep(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = store.Load(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = store.Load(ctx, 2)
	assert.NoError(t, err, "recently active session is retained")
}

func TestWithLockSerializesPerUser(t *testing.T) {
	mgr := session.NewManager(memory.NewSessions())

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.WithLock(9, func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}
