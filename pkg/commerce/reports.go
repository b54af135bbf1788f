package commerce

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/telemart/telemart/pkg/domain"
)

// SalesReport is a point-in-time aggregate over the order book.
type SalesReport struct {
	Orders    int
	Delivered int
	Cancelled int
	InFlight  int

	// Revenue sums totals of non-cancelled orders; cancelled orders were
	// either refunded or never settled.
	Revenue decimal.Decimal

	UnitsSold   int
	TopProducts []ProductSales
}

// ProductSales ranks a product by units sold across the order book.
type ProductSales struct {
	ProductID string
	Name      string
	Units     int
	Revenue   decimal.Decimal
}

// SalesReport aggregates the order book. Administrator only.
func (s *Service) SalesReport(ctx context.Context, byUserID int64) (*SalesReport, error) {
	by, err := s.users.Get(ctx, byUserID)
	if err != nil {
		return nil, err
	}
	if !by.IsAdmin() {
		return nil, domain.ErrUnauthorized
	}

	orders, err := s.orders.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	report := &SalesReport{Revenue: decimal.Zero}
	byProduct := map[string]*ProductSales{}
	for _, o := range orders {
		report.Orders++
		switch o.Status {
		case domain.OrderDelivered:
			report.Delivered++
		case domain.OrderCancelled:
			report.Cancelled++
			continue
		default:
			report.InFlight++
		}
		report.Revenue = report.Revenue.Add(o.Total)
		for _, item := range o.Items {
			report.UnitsSold += item.Qty
			ps, ok := byProduct[item.ProductID]
			if !ok {
				ps = &ProductSales{ProductID: item.ProductID, Name: item.Name, Revenue: decimal.Zero}
				byProduct[item.ProductID] = ps
			}
			ps.Units += item.Qty
			ps.Revenue = ps.Revenue.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Qty))))
		}
	}

	for _, ps := range byProduct {
		report.TopProducts = append(report.TopProducts, *ps)
	}
	sort.Slice(report.TopProducts, func(i, j int) bool {
		if report.TopProducts[i].Units != report.TopProducts[j].Units {
			return report.TopProducts[i].Units > report.TopProducts[j].Units
		}
		return report.TopProducts[i].Name < report.TopProducts[j].Name
	})
	if len(report.TopProducts) > 5 {
		report.TopProducts = report.TopProducts[:5]
	}
	return report, nil
}

// UserStats summarizes the customer base.
type UserStats struct {
	Users       int
	Admins      int
	WalletTotal decimal.Decimal
	TopSpenders []Spender
	ActiveToday int
	JoinedToday int
}

// Spender ranks a customer by lifetime spend.
type Spender struct {
	UserID int64
	Name   string
	Spent  decimal.Decimal
	Orders int
}

// UserStats aggregates the user base. Administrator only.
func (s *Service) UserStats(ctx context.Context, byUserID int64) (*UserStats, error) {
	by, err := s.users.Get(ctx, byUserID)
	if err != nil {
		return nil, err
	}
	if !by.IsAdmin() {
		return nil, domain.ErrUnauthorized
	}

	users, err := s.users.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	stats := &UserStats{WalletTotal: decimal.Zero}
	dayAgo := s.now().Add(-24 * time.Hour)
	for _, u := range users {
		stats.Users++
		if u.IsAdmin() {
			stats.Admins++
		}
		stats.WalletTotal = stats.WalletTotal.Add(u.Wallet)
		if u.LastSeen.After(dayAgo) {
			stats.ActiveToday++
		}
		if u.CreatedAt.After(dayAgo) {
			stats.JoinedToday++
		}
		stats.TopSpenders = append(stats.TopSpenders, Spender{
			UserID: u.ID, Name: u.Name, Spent: u.TotalSpent, Orders: u.OrderCount,
		})
	}
	sort.Slice(stats.TopSpenders, func(i, j int) bool {
		return stats.TopSpenders[i].Spent.GreaterThan(stats.TopSpenders[j].Spent)
	})
	if len(stats.TopSpenders) > 5 {
		stats.TopSpenders = stats.TopSpenders[:5]
	}
	return stats, nil
}
