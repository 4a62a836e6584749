package directory

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-email-triage/internal/core"
)

// MemoryDirectory is an in-memory implementation of the BusinessDirectory
// interface. It is safe for concurrent use: reads take a shared lock and the
// interception command takes an exclusive one, deduplicated by idempotency
// key so two sessions targeting the same order cannot double-intercept.
type MemoryDirectory struct {
	mu            sync.RWMutex
	orders        map[string]*core.Order
	customers     map[string]*core.Customer
	products      map[string]*core.Product
	interceptions map[string]*core.InterceptResult
	logger        *zap.Logger
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory(logger *zap.Logger) *MemoryDirectory {
	return &MemoryDirectory{
		orders:        make(map[string]*core.Order),
		customers:     make(map[string]*core.Customer),
		products:      make(map[string]*core.Product),
		interceptions: make(map[string]*core.InterceptResult),
		logger:        logger,
	}
}

// AddOrder seeds one order.
func (d *MemoryDirectory) AddOrder(order *core.Order) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.orders[order.OrderID] = order
}

// AddCustomer seeds one customer.
func (d *MemoryDirectory) AddCustomer(customer *core.Customer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.customers[strings.ToLower(customer.Email)] = customer
}

// AddProduct seeds one product.
func (d *MemoryDirectory) AddProduct(product *core.Product) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.products[product.ProductID] = product
}

// GetOrder retrieves an order by id.
func (d *MemoryDirectory) GetOrder(_ context.Context, orderID string) (*core.Order, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	order, ok := d.orders[orderID]
	if !ok {
		return nil, core.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

// GetCustomer retrieves a customer by email address.
func (d *MemoryDirectory) GetCustomer(_ context.Context, email string) (*core.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	customer, ok := d.customers[strings.ToLower(email)]
	if !ok {
		return nil, core.ErrNotFound
	}
	copied := *customer
	return &copied, nil
}

// GetOrdersForCustomer lists every order belonging to a customer.
func (d *MemoryDirectory) GetOrdersForCustomer(_ context.Context, customerID string) ([]core.Order, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var orders []core.Order
	for _, order := range d.orders {
		if order.CustomerID == customerID {
			orders = append(orders, *order)
		}
	}
	return orders, nil
}

// GetProduct retrieves a product by id.
func (d *MemoryDirectory) GetProduct(_ context.Context, productID string) (*core.Product, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	product, ok := d.products[productID]
	if !ok {
		return nil, core.ErrNotFound
	}
	copied := *product
	return &copied, nil
}

// GetInventoryStatus answers the closed in-stock question for a product.
func (d *MemoryDirectory) GetInventoryStatus(_ context.Context, productID string) (core.StockStatus, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	product, ok := d.products[productID]
	if !ok {
		return core.StockUnknown, core.ErrNotFound
	}
	return product.StockStatus, nil
}

// GetLogisticsStatus returns the read-only shipment view of an order.
func (d *MemoryDirectory) GetLogisticsStatus(_ context.Context, orderID string) (*core.LogisticsStatus, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	order, ok := d.orders[orderID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &core.LogisticsStatus{
		OrderID:           order.OrderID,
		ShippingStatus:    order.ShippingStatus,
		TrackingNumber:    order.TrackingNumber,
		ShippingAddress:   order.ShippingAddress,
		EstimatedDelivery: time.Now().AddDate(0, 0, 3),
	}, nil
}

// InterceptShipment stops an order from shipping. Replaying an idempotency
// key returns the recorded outcome without touching the order again; orders
// that have already left the warehouse cannot be intercepted.
func (d *MemoryDirectory) InterceptShipment(_ context.Context, orderID, reason, idempotencyKey string) (*core.InterceptResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prior, ok := d.interceptions[idempotencyKey]; ok {
		d.logger.Debug("Interception replayed by idempotency key",
			zap.String("order_id", orderID),
			zap.String("idempotency_key", idempotencyKey))
		copied := *prior
		return &copied, nil
	}

	order, ok := d.orders[orderID]
	if !ok {
		return nil, core.ErrNotFound
	}

	var result *core.InterceptResult
	switch order.ShippingStatus {
	case core.ShippingShipped, core.ShippingInTransit, core.ShippingDelivered:
		result = &core.InterceptResult{
			OrderID: orderID,
			Outcome: core.InterceptAlreadyShipped,
			Reason:  reason,
		}
	case core.ShippingIntercepted:
		result = &core.InterceptResult{
			OrderID:       orderID,
			Outcome:       core.InterceptSucceeded,
			Reason:        reason,
			InterceptedAt: time.Now(),
		}
	default:
		order.ShippingStatus = core.ShippingIntercepted
		result = &core.InterceptResult{
			OrderID:       orderID,
			Outcome:       core.InterceptSucceeded,
			Reason:        reason,
			InterceptedAt: time.Now(),
		}
		d.logger.Info("Shipment intercepted",
			zap.String("order_id", orderID),
			zap.String("reason", reason))
	}

	d.interceptions[idempotencyKey] = result
	copied := *result
	return &copied, nil
}

// InterceptionCount reports how many distinct idempotency keys have been
// accepted. Intended for tests and diagnostics.
func (d *MemoryDirectory) InterceptionCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.interceptions)
}
