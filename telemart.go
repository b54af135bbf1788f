package telemart

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/telemart/telemart/internal/logging"
	"github.com/telemart/telemart/internal/server"
	"github.com/telemart/telemart/pkg/commerce"
	"github.com/telemart/telemart/pkg/config"
	"github.com/telemart/telemart/pkg/dialogue"
	"github.com/telemart/telemart/pkg/persist"
	"github.com/telemart/telemart/pkg/ports"
	"github.com/telemart/telemart/pkg/session"
	"github.com/telemart/telemart/pkg/store/memory"
	"github.com/telemart/telemart/pkg/store/redis"
)

// Version is stamped by the build.
var Version = "0.1.0"

// App assembles the storefront: entity stores, session manager, commerce
// service, dialogue engine, snapshot persistence and the ops HTTP surface.
// The chat transport stays outside; the host wires updates into HandleText
// and HandleAction.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	users    *memory.Users
	products *memory.Products
	orders   *memory.Orders

	sessionStore ports.SessionStore
	sessions     *session.Manager
	service      *commerce.Service
	engine       *dialogue.Engine
	snapshots    *persist.Snapshotter
	registry     *prometheus.Registry

	messenger ports.Messenger
	payments  ports.PaymentProvider
}

// Option configures the App.
type Option func(*App)

// WithMessenger wires the chat transport's outbound side. Without it the app
// falls back to a logging messenger, useful for smoke runs only.
func WithMessenger(m ports.Messenger) Option {
	return func(a *App) { a.messenger = m }
}

// WithPayments wires the external payment provider.
func WithPayments(p ports.PaymentProvider) Option {
	return func(a *App) { a.payments = p }
}

// WithSessionStore overrides the session store chosen from configuration.
func WithSessionStore(s ports.SessionStore) Option {
	return func(a *App) { a.sessionStore = s }
}

// WithLogger overrides the configured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// New assembles an App from configuration, restoring entity snapshots from
// the data directory.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:      cfg,
		users:    memory.NewUsers(),
		products: memory.NewProducts(),
		orders:   memory.NewOrders(),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logging.New(logging.ParseLevel(cfg.LogLevel))
	}
	if a.messenger == nil {
		a.messenger = &logMessenger{logger: a.logger}
	}
	if a.sessionStore == nil {
		if cfg.RedisAddr != "" {
			ttl, _, _, _ := cfg.Durations()
			a.sessionStore = redis.New(cfg.RedisAddr, "", 0, redis.WithTTL(ttl))
		} else {
			a.sessionStore = memory.NewSessions()
		}
	}

	pricing, err := cfg.Pricing()
	if err != nil {
		return nil, err
	}

	a.registry.MustRegister(collectors.NewGoCollector())
	a.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.snapshots = persist.New(cfg.DataDir, a.users, a.products, a.orders,
		persist.WithLogger(a.logger))
	restored, err := a.snapshots.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to restore snapshots: %w", err)
	}
	a.users.Load(restored.Users)
	a.products.Load(restored.Products)
	a.orders.Load(restored.Orders)

	a.sessions = session.NewManager(a.sessionStore, session.WithLogger(a.logger))

	messenger := a.messenger
	notify := func(ctx context.Context, to int64, text string) {
		if _, err := messenger.SendMessage(ctx, to, text, nil); err != nil {
			a.logger.Warn("notification failed", "to", to, "err", err)
		}
	}
	a.service = commerce.NewService(a.users, a.products, a.orders,
		commerce.WithPricing(pricing),
		commerce.WithAdmin(cfg.AdminID),
		commerce.WithPayments(a.payments),
		commerce.WithNotifier(notify),
		commerce.WithMetrics(commerce.NewMetrics(a.registry)),
		commerce.WithLogger(a.logger),
	)

	_, _, _, delay := cfg.Durations()
	a.engine = dialogue.NewEngine(a.sessions, a.service, a.messenger,
		dialogue.WithBroadcast(delay, cfg.BroadcastWorkers),
		dialogue.WithLogger(a.logger),
	)
	return a, nil
}

// HandleText forwards a free-text chat message into the dialogue engine.
func (a *App) HandleText(ctx context.Context, userID int64, name, handle, text string) error {
	return a.engine.HandleText(ctx, userID, name, handle, text)
}

// HandleAction forwards a pressed keyboard button into the dialogue engine.
func (a *App) HandleAction(ctx context.Context, userID int64, name, handle, token string) error {
	return a.engine.HandleAction(ctx, userID, name, handle, token)
}

// Commerce exposes the commerce service for hosts that need direct access
// (admin tooling, tests).
func (a *App) Commerce() *commerce.Service { return a.service }

// Sessions exposes the session manager.
func (a *App) Sessions() *session.Manager { return a.sessions }

// Handler returns the ops HTTP surface.
func (a *App) Handler() http.Handler {
	return server.Handler(a.service, a.sessions, a.registry, a.logger)
}

// Run serves the ops listener and drives the background loops (idle session
// sweep, snapshot autosave) until ctx is cancelled, then shuts down
// gracefully, taking a final snapshot.
func (a *App) Run(ctx context.Context) error {
	server.Version = Version

	ttl, sweep, autosave, _ := a.cfg.Durations()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.sessions.Run(ctx, sweep, ttl)
	}()
	go func() {
		defer wg.Done()
		a.snapshots.Run(ctx, autosave)
	}()

	srv := &http.Server{
		Addr:    a.cfg.ListenAddr,
		Handler: a.Handler(),
	}
	serverErrors := make(chan error, 1)
	go func() {
		a.logger.Info("ops listener up", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	var err error
	select {
	case err = <-serverErrors:
		err = fmt.Errorf("ops listener failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			a.logger.Error("ops listener shutdown failed", "err", serr)
			_ = srv.Close()
		}
	}

	wg.Wait()
	if closer, ok := a.sessionStore.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	a.logger.Info("stopped")
	return err
}

// logMessenger is the fallback transport: it logs instead of delivering.
type logMessenger struct {
	logger *slog.Logger
	seq    int64
	mu     sync.Mutex
}

func (m *logMessenger) SendMessage(_ context.Context, to int64, text string, _ ports.Keyboard) (string, error) {
	m.mu.Lock()
	m.seq++
	id := fmt.Sprintf("log-%d", m.seq)
	m.mu.Unlock()
	m.logger.Info("outbound message", "to", to, "text", text)
	return id, nil
}

func (m *logMessenger) DeleteMessage(context.Context, int64, string) error { return nil }
