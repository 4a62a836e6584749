package directory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/llm-email-triage/internal/core"
)

// SQLiteDirectory is a SQLite implementation of the BusinessDirectory
// interface, for single-node deployments where the system of record is a
// local file.
type SQLiteDirectory struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteDirectory opens (and if necessary initializes) a SQLite-backed
// directory.
func NewSQLiteDirectory(dbPath string, logger *zap.Logger) (*SQLiteDirectory, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := initDirectorySchema(db, schemaSQLite); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteDirectory{db: db, logger: logger}, nil
}

var schemaSQLite = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		customer_id TEXT PRIMARY KEY,
		name TEXT,
		email TEXT UNIQUE,
		phone TEXT,
		company TEXT,
		country TEXT,
		vip_level TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id TEXT PRIMARY KEY,
		customer_id TEXT,
		customer_email TEXT,
		status TEXT,
		shipping_status TEXT,
		shipping_address TEXT,
		tracking_number TEXT,
		total_amount REAL,
		currency TEXT,
		created_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS order_lines (
		order_id TEXT,
		product_id TEXT,
		name TEXT,
		quantity INTEGER,
		unit_price REAL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id TEXT PRIMARY KEY,
		name TEXT,
		category TEXT,
		unit_price REAL,
		currency TEXT,
		stock_status TEXT,
		stock_quantity INTEGER,
		min_order_qty INTEGER,
		lead_time TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS interceptions (
		idempotency_key TEXT PRIMARY KEY,
		order_id TEXT,
		outcome TEXT,
		reason TEXT,
		intercepted_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id)`,
}

func initDirectorySchema(db *sql.DB, statements []string) error {
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize directory schema: %w", err)
		}
	}
	return nil
}

// GetOrder retrieves an order by id.
func (d *SQLiteDirectory) GetOrder(ctx context.Context, orderID string) (*core.Order, error) {
	return scanOrder(ctx, d.db, orderID)
}

// GetCustomer retrieves a customer by email address.
func (d *SQLiteDirectory) GetCustomer(ctx context.Context, email string) (*core.Customer, error) {
	return scanCustomer(ctx, d.db, email)
}

// GetOrdersForCustomer lists every order belonging to a customer.
func (d *SQLiteDirectory) GetOrdersForCustomer(ctx context.Context, customerID string) ([]core.Order, error) {
	return scanCustomerOrders(ctx, d.db, customerID)
}

// GetProduct retrieves a product by id.
func (d *SQLiteDirectory) GetProduct(ctx context.Context, productID string) (*core.Product, error) {
	return scanProduct(ctx, d.db, productID)
}

// GetInventoryStatus answers the closed in-stock question for a product.
func (d *SQLiteDirectory) GetInventoryStatus(ctx context.Context, productID string) (core.StockStatus, error) {
	product, err := d.GetProduct(ctx, productID)
	if err != nil {
		return core.StockUnknown, err
	}
	return product.StockStatus, nil
}

// GetLogisticsStatus returns the read-only shipment view of an order.
func (d *SQLiteDirectory) GetLogisticsStatus(ctx context.Context, orderID string) (*core.LogisticsStatus, error) {
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

// InterceptShipment stops an order from shipping. The idempotency key is the
// primary key of the interceptions table, so a replay returns the recorded
// outcome instead of intercepting twice.
func (d *SQLiteDirectory) InterceptShipment(ctx context.Context, orderID, reason, idempotencyKey string) (*core.InterceptResult, error) {
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
func (d *SQLiteDirectory) Close() error {
	return d.db.Close()
}
