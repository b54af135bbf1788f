// Package commerce implements the atomic business mutations of the
// storefront: cart edits, checkout, order lifecycle, wallet deposits and
// withdrawals. Every operation treats its precondition check and mutation as
// one critical section over the entities it touches, via keyed entity locks.
package commerce

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/telemart/telemart/internal/keylock"
	"github.com/telemart/telemart/internal/logging"
	"github.com/telemart/telemart/pkg/domain"
	"github.com/telemart/telemart/pkg/ports"
)

// Pricing holds the storefront's fixed pricing rule: flat shipping plus a
// fixed tax rate applied to the subtotal, computed once at checkout.
type Pricing struct {
	Currency      string
	ShippingFee   decimal.Decimal
	TaxRate       decimal.Decimal
	MinWithdrawal decimal.Decimal
	MinDeposit    decimal.Decimal
	MaxDeposit    decimal.Decimal
}

// DefaultPricing mirrors the store's launch configuration.
func DefaultPricing() Pricing {
	return Pricing{
		Currency:      "USD",
		ShippingFee:   decimal.RequireFromString("5.00"),
		TaxRate:       decimal.RequireFromString("0.08"),
		MinWithdrawal: decimal.NewFromInt(10),
		MinDeposit:    decimal.NewFromInt(1),
		MaxDeposit:    decimal.NewFromInt(1000),
	}
}

// NotifyFunc delivers a fire-and-forget notification to a counterparty.
// Failures are isolated per recipient: implementations log and swallow.
type NotifyFunc func(ctx context.Context, to int64, text string)

// Service executes commerce operations over the entity stores.
type Service struct {
	users    ports.UserStore
	products ports.ProductStore
	orders   ports.OrderStore
	payments ports.PaymentProvider

	locks *keylock.Guard

	// Carts are ephemeral working state, owned per user and reconciled
	// against shared stock only at checkout.
	cartMu sync.Mutex
	carts  map[int64]*domain.Cart

	pricing Pricing
	adminID int64
	notify  NotifyFunc
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithPricing overrides the pricing rule.
func WithPricing(p Pricing) Option {
	return func(s *Service) { s.pricing = p }
}

// WithAdmin sets the administrator counterparty for operational alerts.
func WithAdmin(id int64) Option {
	return func(s *Service) { s.adminID = id }
}

// WithNotifier wires the outbound notification sink.
func WithNotifier(fn NotifyFunc) Option {
	return func(s *Service) { s.notify = fn }
}

// WithPayments wires the external payment provider.
func WithPayments(p ports.PaymentProvider) Option {
	return func(s *Service) { s.payments = p }
}

// WithMetrics wires operation metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a commerce service over the given stores.
func NewService(users ports.UserStore, products ports.ProductStore, orders ports.OrderStore, opts ...Option) *Service {
	s := &Service{
		users:    users,
		products: products,
		orders:   orders,
		locks:    keylock.New(),
		carts:    make(map[int64]*domain.Cart),
		pricing:  DefaultPricing(),
		notify:   func(context.Context, int64, string) {},
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pricing returns the active pricing rule.
func (s *Service) Pricing() Pricing { return s.pricing }

// AdminID returns the configured administrator, 0 when unset.
func (s *Service) AdminID() int64 { return s.adminID }

func userKey(id int64) string     { return "user/" + strconv.FormatInt(id, 10) }
func productKey(id string) string { return "product/" + id }
func orderKey(id string) string   { return "order/" + id }

func (s *Service) record(op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case domain.IsPrecondition(err) || domain.IsValidation(err):
		outcome = "rejected"
	case domain.IsNotFound(err):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	if s.metrics != nil {
		s.metrics.Operations.WithLabelValues(op, outcome).Inc()
	}
	if err != nil && outcome == "error" {
		s.logger.Error("commerce operation failed", "op", op, "err", err)
	}
}
