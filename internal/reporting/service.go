//go:generate mockgen -source ./service.go -destination=./mocks/reporting.go -package=mock_reporting
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/sewain/backend/internal/rental"
	"github.com/sewain/backend/internal/repository"
)

type LedgerReader interface {
	StatusCounts(ctx context.Context) ([]*repository.StatusCount, error)
	CompletedRevenue(ctx context.Context) (int64, error)
	CountByStatuses(ctx context.Context, statuses []string) (int, error)
	MonthlyRevenue(ctx context.Context, since time.Time) ([]*repository.MonthRevenue, error)
	RecentOrders(ctx context.Context, limit int) ([]*repository.OrderReportRow, error)
	OrdersCreatedSince(ctx context.Context, since time.Time) ([]*repository.OrderReportRow, error)
}

type UserCounter interface {
	CountStats(ctx context.Context, monthStart time.Time) (*repository.UserStats, error)
}

type ProductCounter interface {
	Count(ctx context.Context) (int, error)
}

// Service is the read-only reporting view over the order ledger. It tolerates
// in-flight transitions; numbers may trail a concurrent status write by one
// request.
type Service struct {
	ledger   LedgerReader
	users    UserCounter
	products ProductCounter
	now      func() time.Time
}

func NewService(ledger LedgerReader, users UserCounter, products ProductCounter) *Service {
	return &Service{
		ledger:   ledger,
		users:    users,
		products: products,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type PaymentSplit struct {
	Paid   int `json:"paid"`
	Unpaid int `json:"unpaid"`
}

type Dashboard struct {
	TotalProducts int                         `json:"totalProducts"`
	TotalOrders   map[string]int              `json:"totalOrders"`
	TotalRevenue  int64                       `json:"totalRevenue"`
	PaymentStatus PaymentSplit                `json:"paymentStatus"`
	RevenueTrend  []*repository.MonthRevenue  `json:"revenueTrend"`
	RecentOrders  []*repository.OrderReportRow `json:"recentOrders"`
	TotalUsers    int                         `json:"totalUsers"`
	UserStats     *repository.UserStats       `json:"userStats"`
}

var (
	paidFamily   = []string{"paid", "in_progress", "completed"}
	unpaidFamily = []string{"pending", "confirmed"}
)

const recentOrderLimit = 5

// Dashboard assembles the admin landing-page aggregates. Status counts are
// zero-filled over all six statuses, so they always sum to the total order
// count.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	counts, err := s.ledger.StatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	totalOrders := make(map[string]int, len(rental.AllStatuses))
	for _, st := range rental.AllStatuses {
		totalOrders[string(st)] = 0
	}
	for _, c := range counts {
		if _, known := totalOrders[c.Status]; known {
			totalOrders[c.Status] = c.Count
		}
	}

	revenue, err := s.ledger.CompletedRevenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum completed revenue: %w", err)
	}

	paid, err := s.ledger.CountByStatuses(ctx, paidFamily)
	if err != nil {
		return nil, fmt.Errorf("failed to count paid orders: %w", err)
	}
	unpaid, err := s.ledger.CountByStatuses(ctx, unpaidFamily)
	if err != nil {
		return nil, fmt.Errorf("failed to count unpaid orders: %w", err)
	}

	now := s.now()
	trend, err := s.ledger.MonthlyRevenue(ctx, now.AddDate(0, -6, 0))
	if err != nil {
		return nil, err
	}
	if trend == nil {
		trend = []*repository.MonthRevenue{}
	}

	recent, err := s.ledger.RecentOrders(ctx, recentOrderLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent orders: %w", err)
	}
	if recent == nil {
		recent = []*repository.OrderReportRow{}
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	userStats, err := s.users.CountStats(ctx, monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to load user stats: %w", err)
	}

	totalProducts, err := s.products.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	return &Dashboard{
		TotalProducts: totalProducts,
		TotalOrders:   totalOrders,
		TotalRevenue:  revenue,
		PaymentStatus: PaymentSplit{Paid: paid, Unpaid: unpaid},
		RevenueTrend:  trend,
		RecentOrders:  recent,
		TotalUsers:    userStats.Total,
		UserStats:     userStats,
	}, nil
}

// RangeReport returns all orders created at or after the selector's boundary,
// newest first, enriched with product and customer names. Unknown selectors
// fall back to monthly.
func (s *Service) RangeReport(ctx context.Context, rangeSelector string) ([]*repository.OrderReportRow, error) {
	since := s.rangeStart(rangeSelector)
	rows, err := s.ledger.OrdersCreatedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders for report: %w", err)
	}
	if rows == nil {
		rows = []*repository.OrderReportRow{}
	}
	return rows, nil
}

func (s *Service) rangeStart(selector string) time.Time {
	now := s.now()
	switch selector {
	case "daily":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case "weekly":
		return now.AddDate(0, 0, -7)
	case "yearly":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	case "monthly":
		fallthrough
	default:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
}
