// Package config loads the storefront configuration from a YAML file with
// TELEMART_* environment overrides. Money values are strings in the file and
// parsed to decimals once, at load time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/telemart/telemart/pkg/commerce"
)

// Config is the raw file shape. Zero values fall back to defaults in
// Normalize.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	RedisAddr  string `yaml:"redis_addr"`
	DataDir    string `yaml:"data_dir"`
	LogLevel   string `yaml:"log_level"`

	AdminID int64 `yaml:"admin_id"`

	Currency      string `yaml:"currency"`
	ShippingFee   string `yaml:"shipping_fee"`
	TaxRate       string `yaml:"tax_rate"`
	MinWithdrawal string `yaml:"min_withdrawal"`
	MinDeposit    string `yaml:"min_deposit"`
	MaxDeposit    string `yaml:"max_deposit"`

	SessionTTL       string `yaml:"session_ttl"`
	SweepInterval    string `yaml:"sweep_interval"`
	AutosaveInterval string `yaml:"autosave_interval"`
	BroadcastDelay   string `yaml:"broadcast_delay"`
	BroadcastWorkers int    `yaml:"broadcast_workers"`
}

// Default returns the launch configuration.
func Default() Config {
	return Config{
		ListenAddr:       ":8080",
		DataDir:          "data",
		LogLevel:         "info",
		Currency:         "USD",
		ShippingFee:      "5.00",
		TaxRate:          "0.08",
		MinWithdrawal:    "10",
		MinDeposit:       "1",
		MaxDeposit:       "1000",
		SessionTTL:       "24h",
		SweepInterval:    "1h",
		AutosaveInterval: "5m",
		BroadcastDelay:   "100ms",
		BroadcastWorkers: 4,
	}
}

// Load reads the file at path, merges environment overrides and validates
// the result. A missing file is not an error; defaults plus environment
// apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setStr := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setStr(&c.ListenAddr, "TELEMART_LISTEN_ADDR")
	setStr(&c.RedisAddr, "TELEMART_REDIS_ADDR")
	setStr(&c.DataDir, "TELEMART_DATA_DIR")
	setStr(&c.LogLevel, "TELEMART_LOG_LEVEL")
	setStr(&c.Currency, "TELEMART_CURRENCY")
	setStr(&c.ShippingFee, "TELEMART_SHIPPING_FEE")
	setStr(&c.TaxRate, "TELEMART_TAX_RATE")
	setStr(&c.MinWithdrawal, "TELEMART_MIN_WITHDRAWAL")
	setStr(&c.MinDeposit, "TELEMART_MIN_DEPOSIT")
	setStr(&c.MaxDeposit, "TELEMART_MAX_DEPOSIT")
	setStr(&c.SessionTTL, "TELEMART_SESSION_TTL")
	setStr(&c.SweepInterval, "TELEMART_SWEEP_INTERVAL")
	setStr(&c.AutosaveInterval, "TELEMART_AUTOSAVE_INTERVAL")
	setStr(&c.BroadcastDelay, "TELEMART_BROADCAST_DELAY")

	if v, ok := os.LookupEnv("TELEMART_ADMIN_ID"); ok {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.AdminID = id
		}
	}
	if v, ok := os.LookupEnv("TELEMART_BROADCAST_WORKERS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.BroadcastWorkers = n
		}
	}
}

func (c *Config) validate() error {
	if _, err := c.Pricing(); err != nil {
		return err
	}
	for name, v := range map[string]string{
		"session_ttl":       c.SessionTTL,
		"sweep_interval":    c.SweepInterval,
		"autosave_interval": c.AutosaveInterval,
		"broadcast_delay":   c.BroadcastDelay,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}
	if c.BroadcastWorkers < 1 {
		return fmt.Errorf("broadcast_workers must be at least 1, got %d", c.BroadcastWorkers)
	}
	return nil
}

// Pricing converts the money fields into the commerce pricing rule.
func (c *Config) Pricing() (commerce.Pricing, error) {
	p := commerce.Pricing{Currency: c.Currency}
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"shipping_fee", c.ShippingFee, &p.ShippingFee},
		{"tax_rate", c.TaxRate, &p.TaxRate},
		{"min_withdrawal", c.MinWithdrawal, &p.MinWithdrawal},
		{"min_deposit", c.MinDeposit, &p.MinDeposit},
		{"max_deposit", c.MaxDeposit, &p.MaxDeposit},
	} {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return commerce.Pricing{}, fmt.Errorf("invalid %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return p, nil
}

// Durations returns the parsed interval settings. Load validates them, so
// parsing here cannot fail.
func (c *Config) Durations() (sessionTTL, sweep, autosave, broadcastDelay time.Duration) {
	sessionTTL, _ = time.ParseDuration(c.SessionTTL)
	sweep, _ = time.ParseDuration(c.SweepInterval)
	autosave, _ = time.ParseDuration(c.AutosaveInterval)
	broadcastDelay, _ = time.ParseDuration(c.BroadcastDelay)
	return sessionTTL, sweep, autosave, broadcastDelay
}
