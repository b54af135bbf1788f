package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telemart/telemart/pkg/domain"
	"github.com/telemart/telemart/pkg/ports"
	"github.com/telemart/telemart/pkg/store/redis"
)

func newTestStore(t *testing.T, opts ...redis.Option) *redis.Sessions {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	return redis.NewFromClient(client, opts...)
}

func TestRedisSessions_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, newTestStore(t))
}

func TestRedisSessions_TTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redis.NewFromClient(client, redis.WithTTL(time.Hour))

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, 1, domain.NewSession(1, time.Now())))

	// Past the TTL the value is gone and List prunes the index entry.
	mr.FastForward(2 * time.Hour)

	_, err = store.Load(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
