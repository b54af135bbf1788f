package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telemart/telemart/pkg/domain"
)

// RunSessionStoreContract verifies that a SessionStore implementation adheres
// to the interface contract. Store tests for each backend run this suite.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("Save and Load", func(t *testing.T) {
		s := domain.NewSession(101, now)
		s.Step = domain.Step{Kind: domain.StepProductPrice}
		s.Product.Name = "Widget"

		require.NoError(t, store.Save(ctx, 101, s))

		loaded, err := store.Load(ctx, 101)
		require.NoError(t, err)
		assert.Equal(t, domain.StepProductPrice, loaded.Step.Kind)
		assert.Equal(t, "Widget", loaded.Product.Name)
		assert.True(t, loaded.LastActivity.Equal(now), "last activity should survive the round trip")
	})

	t.Run("Load isolation", func(t *testing.T) {
		s := domain.NewSession(102, now)
		require.NoError(t, store.Save(ctx, 102, s))

		first, err := store.Load(ctx, 102)
		require.NoError(t, err)
		first.Step = domain.Step{Kind: domain.StepBroadcast}

		second, err := store.Load(ctx, 102)
		require.NoError(t, err)
		assert.True(t, second.Step.None(), "mutating a loaded session must not affect the store")
	})

	t.Run("Load non-existent", func(t *testing.T) {
		_, err := store.Load(ctx, 999999)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, 103, domain.NewSession(103, now)))
		require.NoError(t, store.Delete(ctx, 103))

		_, err := store.Load(ctx, 103)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		assert.NoError(t, store.Delete(ctx, 103), "deleting a missing session is not an error")
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, 104, domain.NewSession(104, now)))
		require.NoError(t, store.Save(ctx, 105, domain.NewSession(105, now)))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, int64(104))
		assert.Contains(t, ids, int64(105))
	})
}
