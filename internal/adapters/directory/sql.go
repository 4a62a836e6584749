package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/llm-email-triage/internal/core"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanOrder(ctx context.Context, q querier, orderID string) (*core.Order, error) {
	var (
		order     core.Order
		createdAt sql.NullTime
		tracking  sql.NullString
	)

	err := q.QueryRowContext(ctx, `
		SELECT order_id, customer_id, customer_email, status, shipping_status,
		       shipping_address, tracking_number, total_amount, currency, created_at
		FROM orders
		WHERE order_id = ?
	`, orderID).Scan(&order.OrderID, &order.CustomerID, &order.CustomerEmail,
		&order.Status, (*string)(&order.ShippingStatus), &order.ShippingAddress,
		&tracking, &order.TotalAmount, &order.Currency, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	order.TrackingNumber = tracking.String
	if createdAt.Valid {
		order.CreatedAt = createdAt.Time
	}

	rows, err := q.QueryContext(ctx, `
		SELECT product_id, name, quantity, unit_price
		FROM order_lines
		WHERE order_id = ?
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line core.OrderLine
		if err := rows.Scan(&line.ProductID, &line.Name, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		order.Lines = append(order.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order lines: %w", err)
	}

	return &order, nil
}

func scanCustomer(ctx context.Context, q querier, email string) (*core.Customer, error) {
	var customer core.Customer

	err := q.QueryRowContext(ctx, `
		SELECT customer_id, name, email, phone, company, country, vip_level
		FROM customers
		WHERE email = ?
	`, email).Scan(&customer.CustomerID, &customer.Name, &customer.Email,
		&customer.Phone, &customer.Company, &customer.Country, &customer.VIPLevel)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}

	return &customer, nil
}

func scanCustomerOrders(ctx context.Context, q querier, customerID string) ([]core.Order, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT order_id FROM orders WHERE customer_id = ?
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query customer orders: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read customer orders: %w", err)
	}

	orders := make([]core.Order, 0, len(ids))
	for _, id := range ids {
		order, err := scanOrder(ctx, q, id)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

func scanProduct(ctx context.Context, q querier, productID string) (*core.Product, error) {
	var product core.Product

	err := q.QueryRowContext(ctx, `
		SELECT product_id, name, category, unit_price, currency,
		       stock_status, stock_quantity, min_order_qty, lead_time
		FROM products
		WHERE product_id = ?
	`, productID).Scan(&product.ProductID, &product.Name, &product.Category,
		&product.UnitPrice, &product.Currency, (*string)(&product.StockStatus),
		&product.StockQuantity, &product.MinOrderQty, &product.LeadTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &product, nil
}

// interceptInTx performs the interception command inside a transaction so the
// idempotency-key check and the status update are atomic.
func interceptInTx(ctx context.Context, tx *sql.Tx, orderID, reason, idempotencyKey string) (*core.InterceptResult, error) {
	var (
		prior         core.InterceptResult
		interceptedAt sql.NullTime
	)
	err := tx.QueryRowContext(ctx, `
		SELECT order_id, outcome, reason, intercepted_at
		FROM interceptions
		WHERE idempotency_key = ?
	`, idempotencyKey).Scan(&prior.OrderID, (*string)(&prior.Outcome), &prior.Reason, &interceptedAt)
	if err == nil {
		if interceptedAt.Valid {
			prior.InterceptedAt = interceptedAt.Time
		}
		return &prior, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query interceptions: %w", err)
	}

	var shippingStatus string
	err = tx.QueryRowContext(ctx, `
		SELECT shipping_status FROM orders WHERE order_id = ?
	`, orderID).Scan(&shippingStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query order status: %w", err)
	}

	result := &core.InterceptResult{OrderID: orderID, Reason: reason}
	switch core.ShippingStatus(shippingStatus) {
	case core.ShippingShipped, core.ShippingInTransit, core.ShippingDelivered:
		result.Outcome = core.InterceptAlreadyShipped
	default:
		result.Outcome = core.InterceptSucceeded
		result.InterceptedAt = time.Now()
		if _, err := tx.ExecContext(ctx, `
			UPDATE orders SET shipping_status = ? WHERE order_id = ?
		`, string(core.ShippingIntercepted), orderID); err != nil {
			return nil, fmt.Errorf("failed to update shipping status: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO interceptions (idempotency_key, order_id, outcome, reason, intercepted_at)
		VALUES (?, ?, ?, ?, ?)
	`, idempotencyKey, orderID, string(result.Outcome), reason, result.InterceptedAt); err != nil {
		return nil, fmt.Errorf("failed to record interception: %w", err)
	}

	return result, nil
}
