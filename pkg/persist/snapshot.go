// Package persist snapshots the storefront's entities to JSON files. The
// in-memory stores stay authoritative; a failed save is logged by the caller
// and retried on the next tick, never surfaced to users.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/telemart/telemart/internal/logging"
	"github.com/telemart/telemart/pkg/domain"
	"github.com/telemart/telemart/pkg/ports"
)

const (
	usersFile    = "users.json"
	productsFile = "products.json"
	ordersFile   = "orders.json"
)

// Snapshotter saves and restores the entity stores as JSON files under one
// directory.
type Snapshotter struct {
	dir      string
	users    ports.UserStore
	products ports.ProductStore
	orders   ports.OrderStore
	logger   *slog.Logger
}

// Option configures the Snapshotter.
type Option func(*Snapshotter)

// WithLogger sets the snapshot logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Snapshotter) { s.logger = logger }
}

// New creates a Snapshotter rooted at dir.
func New(dir string, users ports.UserStore, products ports.ProductStore, orders ports.OrderStore, opts ...Option) *Snapshotter {
	if dir == "" {
		dir = "data"
	}
	s := &Snapshotter{
		dir:      dir,
		users:    users,
		products: products,
		orders:   orders,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restored holds the entity maps read from disk, ready to seed the stores.
type Restored struct {
	Users    map[int64]*domain.User
	Products map[string]*domain.Product
	Orders   map[string]*domain.Order
}

// LoadAll reads every snapshot file. Missing files yield empty maps; a fresh
// data directory is not an error.
func (s *Snapshotter) LoadAll() (*Restored, error) {
	r := &Restored{
		Users:    make(map[int64]*domain.User),
		Products: make(map[string]*domain.Product),
		Orders:   make(map[string]*domain.Order),
	}
	if err := loadFile(filepath.Join(s.dir, usersFile), &r.Users); err != nil {
		return nil, err
	}
	if err := loadFile(filepath.Join(s.dir, productsFile), &r.Products); err != nil {
		return nil, err
	}
	if err := loadFile(filepath.Join(s.dir, ordersFile), &r.Orders); err != nil {
		return nil, err
	}
	s.logger.Info("snapshots restored",
		"users", len(r.Users), "products", len(r.Products), "orders", len(r.Orders))
	return r, nil
}

// SaveAll snapshots every store. Each file is written independently; the
// first failure aborts so a partially stale directory is detectable from the
// error.
func (s *Snapshotter) SaveAll(ctx context.Context) error {
	users, err := s.users.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to snapshot users: %w", err)
	}
	if err := s.writeFile(usersFile, users); err != nil {
		return err
	}

	products, err := s.products.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to snapshot products: %w", err)
	}
	if err := s.writeFile(productsFile, products); err != nil {
		return err
	}

	orders, err := s.orders.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to snapshot orders: %w", err)
	}
	return s.writeFile(ordersFile, orders)
}

// Run drives periodic saves until the context is done, then takes a final
// snapshot so shutdown never loses state.
func (s *Snapshotter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.SaveAll(context.Background()); err != nil {
				s.logger.Error("final snapshot failed", "err", err)
			}
			return
		case <-ticker.C:
			if err := s.SaveAll(ctx); err != nil {
				s.logger.Error("periodic snapshot failed", "err", err)
			}
		}
	}
}

func loadFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	return nil
}

// writeFile persists one snapshot atomically: temp file in the same
// directory, fsync, then rename over the destination.
func (s *Snapshotter) writeFile(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure data directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, "tmp-"+name+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync snapshot %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to rename snapshot %s: %w", name, err)
	}
	return nil
}
