package persist_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telemart/telemart/pkg/domain"
	"github.com/telemart/telemart/pkg/persist"
	"github.com/telemart/telemart/pkg/store/memory"
)

func TestSaveAndRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	users := memory.NewUsers()
	products := memory.NewProducts()
	orders := memory.NewOrders()

	u, _, err := users.GetOrCreate(ctx, 7, "Alice", "alice")
	require.NoError(t, err)
	u.Wallet = decimal.RequireFromString("12.34")
	require.NoError(t, users.Put(ctx, u))

	now := time.Now().UTC()
	require.NoError(t, products.Put(ctx, &domain.Product{
		ID: "p1", Name: "Widget", Price: decimal.RequireFromString("9.99"),
		Stock: 3, Status: domain.ProductActive, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, orders.Put(ctx, &domain.Order{
		ID: "o1", UserID: 7, Status: domain.OrderPending,
		Total: decimal.RequireFromString("15.79"), CreatedAt: now,
	}))

	snap := persist.New(dir, users, products, orders)
	require.NoError(t, snap.SaveAll(ctx))

	// Fresh stores, restored from disk.
	restored, err := persist.New(dir, nil, nil, nil).LoadAll()
	require.NoError(t, err)
	require.Len(t, restored.Users, 1)
	require.Len(t, restored.Products, 1)
	require.Len(t, restored.Orders, 1)

	assert.True(t, restored.Users[7].Wallet.Equal(decimal.RequireFromString("12.34")))
	assert.Equal(t, "Widget", restored.Products["p1"].Name)
	assert.Equal(t, domain.OrderPending, restored.Orders["o1"].Status)

	users2 := memory.NewUsers()
	users2.Load(restored.Users)
	got, err := users2.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
}

func TestLoadAllToleratesMissingFiles(t *testing.T) {
	restored, err := persist.New(t.TempDir(), nil, nil, nil).LoadAll()
	require.NoError(t, err)
	assert.Empty(t, restored.Users)
	assert.Empty(t, restored.Products)
	assert.Empty(t, restored.Orders)
}

func TestLoadAllRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"), []byte("{not json"), 0o644))

	_, err := persist.New(dir, nil, nil, nil).LoadAll()
	require.Error(t, err)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	snap := persist.New(dir, memory.NewUsers(), memory.NewProducts(), memory.NewOrders())
	require.NoError(t, snap.SaveAll(ctx))
	require.NoError(t, snap.SaveAll(ctx)) // overwrite path

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "tmp-")
	}
	assert.Len(t, entries, 3)
}
