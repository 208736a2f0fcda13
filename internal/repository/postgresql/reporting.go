package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/sewain/backend/internal/db"
	"github.com/sewain/backend/internal/repository"
)

// ReportingRepo is the read-only aggregation side of the order ledger. It
// never mutates anything.
type ReportingRepo struct {
	db db.DB
}

func NewReportingRepo(db db.DB) *ReportingRepo {
	return &ReportingRepo{db: db}
}

func (r *ReportingRepo) StatusCounts(ctx context.Context) ([]*repository.StatusCount, error) {
	var counts []*repository.StatusCount
	err := r.db.Select(ctx, &counts, `
        SELECT status, COUNT(*) AS count
        FROM rental_orders
        WHERE deleted_at IS NULL
        GROUP BY status
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	return counts, nil
}

func (r *ReportingRepo) CompletedRevenue(ctx context.Context) (int64, error) {
	var revenue int64
	err := r.db.ExecQueryRow(ctx, `
        SELECT COALESCE(SUM(estimated_price), 0)
        FROM rental_orders
        WHERE status = 'completed' AND deleted_at IS NULL
    `).Scan(&revenue)
	return revenue, err
}

func (r *ReportingRepo) CountByStatuses(ctx context.Context, statuses []string) (int, error) {
	var n int
	err := r.db.ExecQueryRow(ctx, `
        SELECT COUNT(*) FROM rental_orders
        WHERE status = ANY($1) AND deleted_at IS NULL
    `, statuses).Scan(&n)
	return n, err
}

// MonthlyRevenue returns the completed-order revenue per month since the
// boundary, oldest month first.
func (r *ReportingRepo) MonthlyRevenue(ctx context.Context, since time.Time) ([]*repository.MonthRevenue, error) {
	var trend []*repository.MonthRevenue
	err := r.db.Select(ctx, &trend, `
        SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month,
               SUM(estimated_price) AS revenue
        FROM rental_orders
        WHERE status = 'completed' AND created_at >= $1 AND deleted_at IS NULL
        GROUP BY 1
        ORDER BY 1 ASC
    `, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly revenue: %w", err)
	}
	return trend, nil
}

const reportRowQuery = `
        SELECT o.id, COALESCE(p.name, '-') AS product_name, COALESCE(u.name, '-') AS customer_name,
               o.rent_date, o.return_date, o.quantity, o.estimated_price, o.status, o.created_at
        FROM rental_orders o
        LEFT JOIN products p ON p.id = o.product_id
        LEFT JOIN users u ON u.id = o.user_id
        WHERE o.deleted_at IS NULL`

func (r *ReportingRepo) RecentOrders(ctx context.Context, limit int) ([]*repository.OrderReportRow, error) {
	var rows []*repository.OrderReportRow
	err := r.db.Select(ctx, &rows, reportRowQuery+`
        ORDER BY o.created_at DESC
        LIMIT $1
    `, limit)
	return rows, err
}

func (r *ReportingRepo) OrdersCreatedSince(ctx context.Context, since time.Time) ([]*repository.OrderReportRow, error) {
	var rows []*repository.OrderReportRow
	err := r.db.Select(ctx, &rows, reportRowQuery+`
        AND o.created_at >= $1
        ORDER BY o.created_at DESC
    `, since)
	return rows, err
}
