package directory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mikey/llm-email-triage/internal/core"
)

// MySQLDirectory is a MySQL implementation of the BusinessDirectory
// interface.
type MySQLDirectory struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLDirectory connects to (and if necessary initializes) a
// MySQL-backed directory.
func NewMySQLDirectory(dsn string, logger *zap.Logger) (*MySQLDirectory, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	if err := initDirectorySchema(db, schemaMySQL); err != nil {
		db.Close()
		return nil, err
	}

	return &MySQLDirectory{db: db, logger: logger}, nil
}

var schemaMySQL = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		customer_id VARCHAR(32) PRIMARY KEY,
		name VARCHAR(255),
		email VARCHAR(255) UNIQUE,
		phone VARCHAR(64),
		company VARCHAR(255),
		country VARCHAR(64),
		vip_level VARCHAR(32)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id VARCHAR(32) PRIMARY KEY,
		customer_id VARCHAR(32),
		customer_email VARCHAR(255),
		status VARCHAR(32),
		shipping_status VARCHAR(32),
		shipping_address TEXT,
		tracking_number VARCHAR(64),
		total_amount DOUBLE,
		currency VARCHAR(8),
		created_at TIMESTAMP NULL,
		INDEX idx_orders_customer (customer_id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_lines (
		order_id VARCHAR(32),
		product_id VARCHAR(32),
		name VARCHAR(255),
		quantity INT,
		unit_price DOUBLE,
		INDEX idx_lines_order (order_id)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id VARCHAR(32) PRIMARY KEY,
		name VARCHAR(255),
		category VARCHAR(64),
		unit_price DOUBLE,
		currency VARCHAR(8),
		stock_status VARCHAR(16),
		stock_quantity INT,
		min_order_qty INT,
		lead_time VARCHAR(32)
	)`,
	`CREATE TABLE IF NOT EXISTS interceptions (
		idempotency_key VARCHAR(128) PRIMARY KEY,
		order_id VARCHAR(32),
		outcome VARCHAR(32),
		reason TEXT,
		intercepted_at TIMESTAMP NULL
	)`,
}

// GetOrder retrieves an order by id.
func (d *MySQLDirectory) GetOrder(ctx context.Context, orderID string) (*core.Order, error) {
	return scanOrder(ctx, d.db, orderID)
}

// GetCustomer retrieves a customer by email address.
func (d *MySQLDirectory) GetCustomer(ctx context.Context, email string) (*core.Customer, error) {
	return scanCustomer(ctx, d.db, email)
}

// GetOrdersForCustomer lists every order belonging to a customer.
func (d *MySQLDirectory) GetOrdersForCustomer(ctx context.Context, customerID string) ([]core.Order, error) {
	return scanCustomerOrders(ctx, d.db, customerID)
}

// GetProduct retrieves a product by id.
func (d *MySQLDirectory) GetProduct(ctx context.Context, productID string) (*core.Product, error) {
	return scanProduct(ctx, d.db, productID)
}

// GetInventoryStatus answers the closed in-stock question for a product.
func (d *MySQLDirectory) GetInventoryStatus(ctx context.Context, productID string) (core.StockStatus, error) {
	product, err := d.GetProduct(ctx, productID)
	if err != nil {
		return core.StockUnknown, err
	}
	return product.StockStatus, nil
}

// GetLogisticsStatus returns the read-only shipment view of an order.
func (d *MySQLDirectory) GetLogisticsStatus(ctx context.Context, orderID string) (*core.LogisticsStatus, error) {
	order, err := d.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &core.LogisticsStatus{
		OrderID:           order.OrderID,
		ShippingStatus:    order.ShippingStatus,
		TrackingNumber:    order.TrackingNumber,
		ShippingAddress:   order.ShippingAddress,
		EstimatedDelivery: time.Now().AddDate(0, 0, 3),
	}, nil
}

// InterceptShipment stops an order from shipping, deduplicated by
// idempotency key.
func (d *MySQLDirectory) InterceptShipment(ctx context.Context, orderID, reason, idempotencyKey string) (*core.InterceptResult, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin interception transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := interceptInTx(ctx, tx, orderID, reason, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit interception: %w", err)
	}

	if result.Outcome == core.InterceptSucceeded {
		d.logger.Info("Shipment intercepted",
			zap.String("order_id", orderID),
			zap.String("reason", reason))
	}
	return result, nil
}

// Close closes the database connection.
func (d *MySQLDirectory) Close() error {
	return d.db.Close()
}
