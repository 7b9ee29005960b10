package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/repository"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/database"
	apperrors "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/errors"
)

const orderColumns = `id, buyer_id, product_id, provider_order_id, provider_payment_id, signature,
	amount, currency, status, created_at, updated_at, purchased_at, refunded_at`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.BuyerID,
		&o.ProductID,
		&o.ProviderOrderID,
		&o.ProviderPaymentID,
		&o.Signature,
		&o.Amount,
		&o.Currency,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.PurchasedAt,
		&o.RefundedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create inserts a new order.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	query := `
		INSERT INTO orders (id, buyer_id, product_id, provider_order_id, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	ctx, end := database.TraceQuery(ctx, "orders.Create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		o.ID,
		o.BuyerID,
		o.ProductID,
		o.ProviderOrderID,
		o.Amount,
		o.Currency,
		o.Status,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("order", "provider_order_id", o.ProviderOrderID)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (o *domain.Order, err error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "orders.GetByID", query)
	defer func() { end(err) }()

	o, err = scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return o, nil
}

// GetByProviderOrderID retrieves an order by the provider's order reference.
func (r *OrderRepository) GetByProviderOrderID(ctx context.Context, providerOrderID string) (o *domain.Order, err error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE provider_order_id = $1`

	ctx, end := database.TraceQuery(ctx, "orders.GetByProviderOrderID", query)
	defer func() { end(err) }()

	o, err = scanOrder(r.pool.QueryRow(ctx, query, providerOrderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", providerOrderID)
		}
		return nil, fmt.Errorf("get order by provider order id: %w", err)
	}
	return o, nil
}

// HasPaid reports whether the buyer has a paid order for the product.
func (r *OrderRepository) HasPaid(ctx context.Context, buyerID, productID string) (paid bool, err error) {
	query := `SELECT EXISTS(SELECT 1 FROM orders WHERE buyer_id = $1 AND product_id = $2 AND status = 'paid')`

	ctx, end := database.TraceQuery(ctx, "orders.HasPaid", query)
	defer func() { end(err) }()

	if err = r.pool.QueryRow(ctx, query, buyerID, productID).Scan(&paid); err != nil {
		return false, fmt.Errorf("check paid order: %w", err)
	}
	return paid, nil
}

// paidOrderConstraint allows one paid order per buyer and product.
const paidOrderConstraint = "uq_orders_buyer_product_paid"

// MarkPaid moves a pending order to paid in a single conditional update.
func (r *OrderRepository) MarkPaid(ctx context.Context, id, providerPaymentID, signature string, at time.Time) (o *domain.Order, err error) {
	query := `
		UPDATE orders
		SET status = 'paid', provider_payment_id = $2, signature = $3, purchased_at = $4, updated_at = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + orderColumns

	ctx, end := database.TraceQuery(ctx, "orders.MarkPaid", query)
	defer func() { end(err) }()

	o, err = scanOrder(r.pool.QueryRow(ctx, query, id, providerPaymentID, signature, at))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, repository.ErrStatusChanged
		case database.IsUniqueViolation(err) && database.ConstraintName(err) == paidOrderConstraint:
			return nil, repository.ErrAlreadyPaid
		}
		return nil, fmt.Errorf("mark order paid: %w", err)
	}
	return o, nil
}

// MarkFailed moves a pending order to failed.
func (r *OrderRepository) MarkFailed(ctx context.Context, id string, at time.Time) (err error) {
	query := `UPDATE orders SET status = 'failed', updated_at = $2 WHERE id = $1 AND status = 'pending'`

	ctx, end := database.TraceQuery(ctx, "orders.MarkFailed", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("mark order failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrStatusChanged
	}
	return nil
}

// MarkRefunded moves a paid order to refunded.
func (r *OrderRepository) MarkRefunded(ctx context.Context, id string, at time.Time) (o *domain.Order, err error) {
	query := `
		UPDATE orders
		SET status = 'refunded', refunded_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'paid'
		RETURNING ` + orderColumns

	ctx, end := database.TraceQuery(ctx, "orders.MarkRefunded", query)
	defer func() { end(err) }()

	o, err = scanOrder(r.pool.QueryRow(ctx, query, id, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrStatusChanged
		}
		return nil, fmt.Errorf("mark order refunded: %w", err)
	}
	return o, nil
}

// ListPaidByBuyer returns the buyer's paid orders, newest purchase first.
func (r *OrderRepository) ListPaidByBuyer(ctx context.Context, buyerID string, page, perPage int) (orders []domain.Order, total int, err error) {
	query := `
		SELECT ` + orderColumns + `, count(*) OVER() AS total_count
		FROM orders
		WHERE buyer_id = $1 AND status = 'paid'
		ORDER BY purchased_at DESC
		LIMIT $2 OFFSET $3`

	ctx, end := database.TraceQuery(ctx, "orders.ListPaidByBuyer", query)
	defer func() { end(err) }()

	limit, offset := window(page, perPage)
	orders, total, err = r.queryOrderPage(ctx, query, buyerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list buyer orders: %w", err)
	}
	return orders, total, nil
}

// ListTransactions returns orders matching filter together with the
// revenue of paid orders in the filter's date window. The revenue ignores
// the status filter, so a page of failed orders still reports what the
// window earned.
func (r *OrderRepository) ListTransactions(ctx context.Context, filter repository.TransactionFilter) (page *repository.TransactionPage, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("purchased_at >= $%d", argIndex))
		args = append(args, *filter.From)
		argIndex++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("purchased_at <= $%d", argIndex))
		args = append(args, *filter.To)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY COALESCE(purchased_at, created_at) DESC
		LIMIT $%d OFFSET $%d`,
		orderColumns, whereClause, argIndex, argIndex+1,
	)

	ctx, end := database.TraceQuery(ctx, "orders.ListTransactions", query)
	defer func() { end(err) }()

	limit, offset := window(filter.Page, filter.PerPage)
	orders, total, err := r.queryOrderPage(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	revenueQuery, revenueArgs := paidRevenueQuery(filter.From, filter.To)

	var revenue int64
	if err = r.pool.QueryRow(ctx, revenueQuery, revenueArgs...).Scan(&revenue); err != nil {
		return nil, fmt.Errorf("sum transaction revenue: %w", err)
	}

	return &repository.TransactionPage{
		Orders:       orders,
		TotalCount:   total,
		TotalRevenue: revenue,
	}, nil
}

// paidRevenueQuery sums paid orders purchased within [from, to].
func paidRevenueQuery(from, to *time.Time) (string, []any) {
	conditions := []string{"status = 'paid'"}
	var args []any
	if from != nil {
		args = append(args, *from)
		conditions = append(conditions, fmt.Sprintf("purchased_at >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		conditions = append(conditions, fmt.Sprintf("purchased_at <= $%d", len(args)))
	}
	return "SELECT COALESCE(SUM(amount), 0)::bigint FROM orders WHERE " + strings.Join(conditions, " AND "), args
}

// Stats returns the admin dashboard figures.
func (r *OrderRepository) Stats(ctx context.Context) (stats *domain.DashboardStats, err error) {
	query := `
		SELECT
			(SELECT count(*) FROM orders),
			(SELECT count(*) FROM orders WHERE status = 'paid'),
			(SELECT COALESCE(SUM(amount), 0)::bigint FROM orders WHERE status = 'paid'),
			(SELECT count(*) FROM products)`

	ctx, end := database.TraceQuery(ctx, "orders.Stats", query)
	defer func() { end(err) }()

	stats = &domain.DashboardStats{}
	if err = r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalOrders,
		&stats.PaidOrders,
		&stats.TotalRevenue,
		&stats.TotalProducts,
	); err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}

	recentQuery := `
		SELECT ` + orderColumns + `, count(*) OVER() AS total_count
		FROM orders
		WHERE status = 'paid'
		ORDER BY purchased_at DESC
		LIMIT $1 OFFSET $2`

	stats.RecentOrders, _, err = r.queryOrderPage(ctx, recentQuery, domain.RecentOrdersLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("dashboard recent orders: %w", err)
	}
	return stats, nil
}

func (r *OrderRepository) queryOrderPage(ctx context.Context, query string, args ...any) ([]domain.Order, int, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)

	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID,
			&o.BuyerID,
			&o.ProductID,
			&o.ProviderOrderID,
			&o.ProviderPaymentID,
			&o.Signature,
			&o.Amount,
			&o.Currency,
			&o.Status,
			&o.CreatedAt,
			&o.UpdatedAt,
			&o.PurchasedAt,
			&o.RefundedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, totalCount, nil
}

// window converts a page number and size into LIMIT and OFFSET.
func window(page, perPage int) (limit, offset int) {
	limit = perPage
	if limit <= 0 {
		limit = 20
	}
	if page > 1 {
		offset = (page - 1) * limit
	}
	return limit, offset
}
