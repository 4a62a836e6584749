package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeDirectory is a scriptable BusinessDirectory. failures maps a tool's
// identifier to how many transient failures to serve before succeeding; a
// negative count fails forever.
type fakeDirectory struct {
	mu            sync.Mutex
	orders        map[string]*Order
	customers     map[string]*Customer
	products      map[string]*Product
	failures      map[string]int
	interceptions map[string]*InterceptResult
	calls         map[string]int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		orders: map[string]*Order{
			"LC123456": {OrderID: "LC123456", CustomerID: "CUST001", Status: "confirmed", ShippingStatus: ShippingPending},
			"LC789012": {OrderID: "LC789012", CustomerID: "CUST002", Status: "shipped", ShippingStatus: ShippingInTransit, TrackingNumber: "SF1234567890"},
		},
		customers: map[string]*Customer{
			"customer1@example.com": {CustomerID: "CUST001", Name: "Zhang San", Email: "customer1@example.com"},
		},
		products: map[string]*Product{
			"08-50-0113": {ProductID: "08-50-0113", Name: "Connector", UnitPrice: 0.05, Currency: "CNY", StockStatus: StockInStock},
		},
		failures:      map[string]int{},
		interceptions: map[string]*InterceptResult{},
		calls:         map[string]int{},
	}
}

func (d *fakeDirectory) failing(key string) error {
	d.calls[key]++
	n, ok := d.failures[key]
	if !ok {
		return nil
	}
	if n < 0 {
		return ToolFailed(fmt.Errorf("injected failure for %s", key), true)
	}
	if n > 0 {
		d.failures[key] = n - 1
		return ToolFailed(fmt.Errorf("injected failure for %s", key), true)
	}
	return nil
}

func (d *fakeDirectory) GetOrder(_ context.Context, orderID string) (*Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failing("order:" + orderID); err != nil {
		return nil, err
	}
	order, ok := d.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (d *fakeDirectory) GetCustomer(_ context.Context, email string) (*Customer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failing("customer:" + email); err != nil {
		return nil, err
	}
	customer, ok := d.customers[email]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *customer
	return &copied, nil
}

func (d *fakeDirectory) GetOrdersForCustomer(_ context.Context, customerID string) ([]Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failing("customer-orders:" + customerID); err != nil {
		return nil, err
	}
	var orders []Order
	for _, order := range d.orders {
		if order.CustomerID == customerID {
			orders = append(orders, *order)
		}
	}
	return orders, nil
}

func (d *fakeDirectory) GetProduct(_ context.Context, productID string) (*Product, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failing("product:" + productID); err != nil {
		return nil, err
	}
	product, ok := d.products[productID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *product
	return &copied, nil
}

func (d *fakeDirectory) GetInventoryStatus(_ context.Context, productID string) (StockStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failing("inventory:" + productID); err != nil {
		return StockUnknown, err
	}
	product, ok := d.products[productID]
	if !ok {
		return StockUnknown, ErrNotFound
	}
	return product.StockStatus, nil
}

func (d *fakeDirectory) GetLogisticsStatus(_ context.Context, orderID string) (*LogisticsStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failing("logistics:" + orderID); err != nil {
		return nil, err
	}
	order, ok := d.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return &LogisticsStatus{
		OrderID:        order.OrderID,
		ShippingStatus: order.ShippingStatus,
		TrackingNumber: order.TrackingNumber,
	}, nil
}

func (d *fakeDirectory) InterceptShipment(_ context.Context, orderID, reason, idempotencyKey string) (*InterceptResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failing("intercept:" + orderID); err != nil {
		return nil, err
	}
	if prior, ok := d.interceptions[idempotencyKey]; ok {
		copied := *prior
		return &copied, nil
	}
	order, ok := d.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	result := &InterceptResult{OrderID: orderID, Reason: reason}
	switch order.ShippingStatus {
	case ShippingShipped, ShippingInTransit, ShippingDelivered:
		result.Outcome = InterceptAlreadyShipped
	default:
		order.ShippingStatus = ShippingIntercepted
		result.Outcome = InterceptSucceeded
		result.InterceptedAt = time.Now()
	}
	d.interceptions[idempotencyKey] = result
	copied := *result
	return &copied, nil
}

func testExecutor(dir BusinessDirectory) *ToolExecutor {
	return NewToolExecutor(dir, zap.NewNop(), ExecutorConfig{
		MaxRetries: 2,
		Backoff:    time.Millisecond,
	})
}

func TestExecutePlanInOrder(t *testing.T) {
	dir := newFakeDirectory()
	exec := testExecutor(dir)

	plan := &ActionPlan{Actions: []PlannedAction{
		{Tool: ToolResolveOrder, Params: ActionParams{OrderID: "LC123456"}, DependsOn: -1},
		{Tool: ToolInterceptShipment, Params: ActionParams{OrderID: "LC123456", Reason: "test"}, Irreversible: true, DependsOn: 0},
	}}

	results := exec.Execute(context.Background(), "session-1", plan)
	require.Len(t, results, 2)
	assert.Equal(t, ResultOK, results[0].Status)
	assert.Equal(t, ResultOK, results[1].Status)
	assert.Equal(t, 1, results[0].Attempts)

	res, ok := results[1].Payload.(*InterceptResult)
	require.True(t, ok)
	assert.Equal(t, InterceptSucceeded, res.Outcome)
}

func TestExecuteSkipsDependentsOfFailedStep(t *testing.T) {
	dir := newFakeDirectory()
	exec := testExecutor(dir)

	plan := &ActionPlan{Actions: []PlannedAction{
		{Tool: ToolResolveOrder, Params: ActionParams{OrderID: "LC999999"}, DependsOn: -1},
		{Tool: ToolInterceptShipment, Params: ActionParams{OrderID: "LC999999"}, Irreversible: true, DependsOn: 0},
		{Tool: ToolResolveProduct, Params: ActionParams{ProductID: "08-50-0113"}, DependsOn: -1},
	}}

	results := exec.Execute(context.Background(), "session-1", plan)
	require.Len(t, results, 3)

	assert.Equal(t, ResultFailed, results[0].Status)
	assert.Equal(t, ErrKindNotFound, results[0].ErrorKind)
	// Unknown identifiers are validation failures, so no retries.
	assert.Equal(t, 1, results[0].Attempts)

	assert.Equal(t, ResultSkipped, results[1].Status)
	assert.Zero(t, dir.calls["intercept:LC999999"])

	// Independent later entries still run.
	assert.Equal(t, ResultOK, results[2].Status)
}

func TestExecuteRetriesTransientFailures(t *testing.T) {
	dir := newFakeDirectory()
	dir.failures["logistics:LC789012"] = 2
	exec := testExecutor(dir)

	plan := &ActionPlan{Actions: []PlannedAction{
		{Tool: ToolResolveLogistics, Params: ActionParams{OrderID: "LC789012"}, DependsOn: -1},
	}}

	results := exec.Execute(context.Background(), "session-1", plan)
	require.Len(t, results, 1)
	assert.Equal(t, ResultOK, results[0].Status)
	assert.Equal(t, 3, results[0].Attempts)
}

func TestExecuteRetryBudgetExhausted(t *testing.T) {
	dir := newFakeDirectory()
	dir.failures["logistics:LC789012"] = -1
	exec := testExecutor(dir)

	plan := &ActionPlan{Actions: []PlannedAction{
		{Tool: ToolResolveLogistics, Params: ActionParams{OrderID: "LC789012"}, DependsOn: -1},
	}}

	results := exec.Execute(context.Background(), "session-1", plan)
	require.Len(t, results, 1)
	assert.Equal(t, ResultFailed, results[0].Status)
	assert.Equal(t, ErrKindToolInvocationFailed, results[0].ErrorKind)
	assert.Equal(t, 3, results[0].Attempts)
}

func TestExecuteCancelledDuringRetryRecordsCancellation(t *testing.T) {
	dir := newFakeDirectory()
	dir.failures["logistics:LC789012"] = -1
	exec := testExecutor(dir)

	plan := &ActionPlan{Actions: []PlannedAction{
		{Tool: ToolResolveLogistics, Params: ActionParams{OrderID: "LC789012"}, DependsOn: -1},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := exec.Execute(ctx, "session-1", plan)
	require.Len(t, results, 1)
	assert.Equal(t, ResultFailed, results[0].Status)
	// The trail names the cancellation, not a tool failure.
	assert.Equal(t, ErrKindCancelled, results[0].ErrorKind)
	assert.Equal(t, 1, results[0].Attempts)
}

func TestExecuteInterceptUsesSessionScopedIdempotencyKey(t *testing.T) {
	dir := newFakeDirectory()
	exec := testExecutor(dir)

	plan := &ActionPlan{Actions: []PlannedAction{
		{Tool: ToolInterceptShipment, Params: ActionParams{OrderID: "LC123456", Reason: "test"}, Irreversible: true, DependsOn: -1},
	}}

	exec.Execute(context.Background(), "session-1", plan)
	_, ok := dir.interceptions["LC123456:session-1"]
	assert.True(t, ok)
}

func TestExecuteInterceptRetryDoesNotDoubleIntercept(t *testing.T) {
	dir := newFakeDirectory()
	exec := testExecutor(dir)

	plan := &ActionPlan{Actions: []PlannedAction{
		{Tool: ToolInterceptShipment, Params: ActionParams{OrderID: "LC123456", Reason: "test"}, Irreversible: true, DependsOn: -1},
	}}

	// Re-executing the same session's plan replays the recorded outcome.
	first := exec.Execute(context.Background(), "session-1", plan)
	second := exec.Execute(context.Background(), "session-1", plan)

	require.Equal(t, ResultOK, first[0].Status)
	require.Equal(t, ResultOK, second[0].Status)
	assert.Len(t, dir.interceptions, 1)
}

func TestExecuteInterceptAlreadyShipped(t *testing.T) {
	dir := newFakeDirectory()
	exec := testExecutor(dir)

	plan := &ActionPlan{Actions: []PlannedAction{
		{Tool: ToolInterceptShipment, Params: ActionParams{OrderID: "LC789012", Reason: "test"}, Irreversible: true, DependsOn: -1},
	}}

	results := exec.Execute(context.Background(), "session-1", plan)
	require.Len(t, results, 1)
	// The tool answered; "already shipped" is a successful invocation with a
	// negative outcome, not a failure.
	assert.Equal(t, ResultOK, results[0].Status)
	res, ok := results[0].Payload.(*InterceptResult)
	require.True(t, ok)
	assert.Equal(t, InterceptAlreadyShipped, res.Outcome)
	assert.Equal(t, ShippingInTransit, dir.orders["LC789012"].ShippingStatus)
}

func TestExecuteCustomerOrdersFromPriorResult(t *testing.T) {
	dir := newFakeDirectory()
	exec := testExecutor(dir)

	plan := &ActionPlan{Actions: []PlannedAction{
		{Tool: ToolResolveCustomer, Params: ActionParams{Email: "customer1@example.com"}, DependsOn: -1},
		{Tool: ToolResolveCustomerOrders, DependsOn: 0},
	}}

	results := exec.Execute(context.Background(), "session-1", plan)
	require.Len(t, results, 2)
	require.Equal(t, ResultOK, results[1].Status)

	orders, ok := results[1].Payload.([]Order)
	require.True(t, ok)
	require.Len(t, orders, 1)
	assert.Equal(t, "LC123456", orders[0].OrderID)
}

func TestExecuteFlagForReviewTouchesNothing(t *testing.T) {
	dir := newFakeDirectory()
	exec := testExecutor(dir)

	plan := &ActionPlan{
		Reviewable:   true,
		ReviewReason: "low confidence",
		Actions: []PlannedAction{
			{Tool: ToolFlagForReview, Params: ActionParams{Reason: "low confidence"}, DependsOn: -1},
		},
	}

	results := exec.Execute(context.Background(), "session-1", plan)
	require.Len(t, results, 1)
	assert.Equal(t, ResultOK, results[0].Status)
	assert.Empty(t, dir.interceptions)
	assert.Empty(t, dir.calls)
}
