package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telemart/telemart/pkg/config"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	p, err := cfg.Pricing()
	require.NoError(t, err)
	assert.True(t, p.ShippingFee.Equal(decimal.RequireFromString("5.00")))
	assert.True(t, p.TaxRate.Equal(decimal.RequireFromString("0.08")))
	assert.True(t, p.MinWithdrawal.Equal(decimal.NewFromInt(10)))

	ttl, sweep, autosave, delay := cfg.Durations()
	assert.Equal(t, 24*time.Hour, ttl)
	assert.Equal(t, time.Hour, sweep)
	assert.Equal(t, 5*time.Minute, autosave)
	assert.Equal(t, 100*time.Millisecond, delay)
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemart.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
admin_id: 42
listen_addr: ":9000"
shipping_fee: "2.50"
session_ttl: 12h
broadcast_workers: 8
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.AdminID)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 8, cfg.BroadcastWorkers)

	p, err := cfg.Pricing()
	require.NoError(t, err)
	assert.True(t, p.ShippingFee.Equal(decimal.RequireFromString("2.50")))
	// Untouched fields keep defaults.
	assert.True(t, p.TaxRate.Equal(decimal.RequireFromString("0.08")))
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemart.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":9000\"\n"), 0o644))

	t.Setenv("TELEMART_LISTEN_ADDR", ":7000")
	t.Setenv("TELEMART_ADMIN_ID", "77")
	t.Setenv("TELEMART_MIN_DEPOSIT", "2.50")
	t.Setenv("TELEMART_MAX_DEPOSIT", "500")
	t.Setenv("TELEMART_SWEEP_INTERVAL", "2m")
	t.Setenv("TELEMART_BROADCAST_DELAY", "50ms")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, int64(77), cfg.AdminID)
	assert.Equal(t, "2.50", cfg.MinDeposit)
	assert.Equal(t, "500", cfg.MaxDeposit)
	assert.Equal(t, "2m", cfg.SweepInterval)
	assert.Equal(t, "50ms", cfg.BroadcastDelay)
}

func TestLoadRejectsBadValues(t *testing.T) {
	for name, body := range map[string]string{
		"bad money":    "shipping_fee: \"a lot\"\n",
		"bad duration": "session_ttl: sometimes\n",
		"bad workers":  "broadcast_workers: 0\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "telemart.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := config.Load(path)
			require.Error(t, err)
		})
	}
}
