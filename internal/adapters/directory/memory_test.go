package directory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/llm-email-triage/internal/core"
)

func seeded(t *testing.T) *MemoryDirectory {
	t.Helper()
	return NewSeededMemoryDirectory(zap.NewNop())
}

func TestMemoryLookups(t *testing.T) {
	dir := seeded(t)
	ctx := context.Background()

	order, err := dir.GetOrder(ctx, "LC123456")
	require.NoError(t, err)
	assert.Equal(t, "CUST001", order.CustomerID)
	assert.Equal(t, core.ShippingPending, order.ShippingStatus)
	require.Len(t, order.Lines, 2)

	customer, err := dir.GetCustomer(ctx, "customer1@example.com")
	require.NoError(t, err)
	assert.Equal(t, "CUST001", customer.CustomerID)

	// Email lookup is case-insensitive.
	customer, err = dir.GetCustomer(ctx, "Customer1@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "CUST001", customer.CustomerID)

	product, err := dir.GetProduct(ctx, "08-50-0113")
	require.NoError(t, err)
	assert.Equal(t, core.StockInStock, product.StockStatus)

	status, err := dir.GetInventoryStatus(ctx, "42816-0212")
	require.NoError(t, err)
	assert.Equal(t, core.StockBackorder, status)

	orders, err := dir.GetOrdersForCustomer(ctx, "CUST001")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "LC123456", orders[0].OrderID)

	logistics, err := dir.GetLogisticsStatus(ctx, "LC789012")
	require.NoError(t, err)
	assert.Equal(t, core.ShippingInTransit, logistics.ShippingStatus)
	assert.Equal(t, "SF1234567890", logistics.TrackingNumber)
}

func TestMemoryUnknownIdentifiers(t *testing.T) {
	dir := seeded(t)
	ctx := context.Background()

	_, err := dir.GetOrder(ctx, "LC000000")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = dir.GetCustomer(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = dir.GetProduct(ctx, "00-00-0000")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = dir.GetLogisticsStatus(ctx, "LC000000")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = dir.InterceptShipment(ctx, "LC000000", "test", "k1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMemoryLookupsReturnCopies(t *testing.T) {
	dir := seeded(t)
	ctx := context.Background()

	order, err := dir.GetOrder(ctx, "LC123456")
	require.NoError(t, err)
	order.Status = "mutated"

	again, err := dir.GetOrder(ctx, "LC123456")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", again.Status)
}

func TestMemoryInterceptPendingOrder(t *testing.T) {
	dir := seeded(t)
	ctx := context.Background()

	result, err := dir.InterceptShipment(ctx, "LC123456", "customer requested order cancellation", "LC123456:s1")
	require.NoError(t, err)
	assert.Equal(t, core.InterceptSucceeded, result.Outcome)
	assert.False(t, result.InterceptedAt.IsZero())

	order, err := dir.GetOrder(ctx, "LC123456")
	require.NoError(t, err)
	assert.Equal(t, core.ShippingIntercepted, order.ShippingStatus)
}

func TestMemoryInterceptAlreadyShipped(t *testing.T) {
	dir := seeded(t)
	ctx := context.Background()

	result, err := dir.InterceptShipment(ctx, "LC789012", "too late", "LC789012:s1")
	require.NoError(t, err)
	assert.Equal(t, core.InterceptAlreadyShipped, result.Outcome)

	order, err := dir.GetOrder(ctx, "LC789012")
	require.NoError(t, err)
	assert.Equal(t, core.ShippingInTransit, order.ShippingStatus)
}

func TestMemoryInterceptIdempotencyReplay(t *testing.T) {
	dir := seeded(t)
	ctx := context.Background()

	first, err := dir.InterceptShipment(ctx, "LC123456", "cancel", "LC123456:s1")
	require.NoError(t, err)
	second, err := dir.InterceptShipment(ctx, "LC123456", "cancel", "LC123456:s1")
	require.NoError(t, err)

	assert.Equal(t, first.Outcome, second.Outcome)
	assert.Equal(t, first.InterceptedAt, second.InterceptedAt)
	assert.Equal(t, 1, dir.InterceptionCount())
}

func TestMemoryInterceptInterceptedOrderSucceeds(t *testing.T) {
	dir := seeded(t)
	ctx := context.Background()

	_, err := dir.InterceptShipment(ctx, "LC123456", "cancel", "LC123456:s1")
	require.NoError(t, err)

	// A different session intercepting an already-intercepted order gets a
	// success, not a failure: the desired end state already holds.
	result, err := dir.InterceptShipment(ctx, "LC123456", "cancel", "LC123456:s2")
	require.NoError(t, err)
	assert.Equal(t, core.InterceptSucceeded, result.Outcome)
	assert.Equal(t, 2, dir.InterceptionCount())
}

func TestMemoryConcurrentAccess(t *testing.T) {
	dir := seeded(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = dir.GetOrder(ctx, "LC123456")
			_, _ = dir.GetCustomer(ctx, "customer2@example.com")
			_, _ = dir.InterceptShipment(ctx, "LC345678", "race", "LC345678:s1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, dir.InterceptionCount())
	order, err := dir.GetOrder(ctx, "LC345678")
	require.NoError(t, err)
	assert.Equal(t, core.ShippingIntercepted, order.ShippingStatus)
}
