package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ExecutorConfig bounds retries and timeouts for individual tool calls.
type ExecutorConfig struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// Backoff is the initial delay between attempts; it doubles per retry.
	Backoff time.Duration
	// Timeout applies to each individual directory call.
	Timeout time.Duration
}

// ToolExecutor runs an ActionPlan's entries in declared order against the
// Business Directory. Entries whose prerequisite failed are skipped; later
// independent entries still run. Transient failures are retried with
// exponential backoff, validation failures are terminal for the entry.
type ToolExecutor struct {
	dir    BusinessDirectory
	logger *zap.Logger
	cfg    ExecutorConfig
}

// NewToolExecutor creates a new tool executor.
func NewToolExecutor(dir BusinessDirectory, logger *zap.Logger, cfg ExecutorConfig) *ToolExecutor {
	if cfg.Backoff <= 0 {
		cfg.Backoff = 250 * time.Millisecond
	}
	return &ToolExecutor{
		dir:    dir,
		logger: logger,
		cfg:    cfg,
	}
}

// Execute runs every entry of the plan and returns one ToolResult per entry,
// in plan order. The interception command is sent with an idempotency key
// derived from the order and session identifiers, so a retried or re-executed
// plan cannot intercept the same order twice.
func (e *ToolExecutor) Execute(ctx context.Context, sessionID string, plan *ActionPlan) []ToolResult {
	results := make([]ToolResult, 0, len(plan.Actions))

	for i, action := range plan.Actions {
		if action.DependsOn >= 0 && results[action.DependsOn].Status != ResultOK {
			e.logger.Debug("Skipping tool with failed prerequisite",
				zap.String("session_id", sessionID),
				zap.String("tool", string(action.Tool)),
				zap.Int("prerequisite", action.DependsOn))
			results = append(results, ToolResult{
				Tool:   action.Tool,
				Params: action.Params,
				Status: ResultSkipped,
				Summary: fmt.Sprintf("skipped: prerequisite %s did not succeed",
					plan.Actions[action.DependsOn].Tool),
			})
			continue
		}
		results = append(results, e.run(ctx, sessionID, i, action, results))
	}

	return results
}

func (e *ToolExecutor) run(ctx context.Context, sessionID string, idx int, action PlannedAction, prior []ToolResult) ToolResult {
	start := time.Now()

	var (
		payload  any
		summary  string
		err      error
		attempts int
	)

	backoff := e.cfg.Backoff
	for {
		attempts++
		callCtx := ctx
		cancel := func() {}
		if e.cfg.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		}
		payload, summary, err = e.call(callCtx, sessionID, action, prior)
		cancel()
		// A per-call timeout is a transient tool failure; only the session
		// context going away is a cancellation.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = ToolFailed(err, true)
		}

		if err == nil || attempts > e.cfg.MaxRetries || !transientFailure(err) {
			break
		}

		e.logger.Warn("Tool invocation failed, retrying",
			zap.String("session_id", sessionID),
			zap.String("tool", string(action.Tool)),
			zap.Int("attempt", attempts),
			zap.Error(err))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			err = ctx.Err()
			goto done
		}
		backoff *= 2
	}

done:
	result := ToolResult{
		Tool:     action.Tool,
		Params:   action.Params,
		Payload:  payload,
		Summary:  summary,
		Attempts: attempts,
		Latency:  time.Since(start),
	}
	if err != nil {
		result.Status = ResultFailed
		result.ErrorKind = KindOf(err)
		result.Summary = err.Error()
		e.logger.Error("Tool invocation failed",
			zap.String("session_id", sessionID),
			zap.String("tool", string(action.Tool)),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return result
	}

	result.Status = ResultOK
	e.logger.Debug("Tool invocation succeeded",
		zap.String("session_id", sessionID),
		zap.String("tool", string(action.Tool)),
		zap.Int("attempts", attempts),
		zap.Duration("latency", result.Latency))
	return result
}

func (e *ToolExecutor) call(ctx context.Context, sessionID string, action PlannedAction, prior []ToolResult) (any, string, error) {
	switch action.Tool {
	case ToolFlagForReview:
		return nil, "flagged for human review: " + action.Params.Reason, nil

	case ToolResolveOrder:
		order, err := e.dir.GetOrder(ctx, action.Params.OrderID)
		if err != nil {
			return nil, "", err
		}
		return order, fmt.Sprintf("order %s: %s, shipping %s",
			order.OrderID, order.Status, order.ShippingStatus), nil

	case ToolResolveCustomer:
		customer, err := e.dir.GetCustomer(ctx, action.Params.Email)
		if err != nil {
			return nil, "", err
		}
		return customer, fmt.Sprintf("customer %s (%s)", customer.Name, customer.CustomerID), nil

	case ToolResolveCustomerOrders:
		customerID := action.Params.CustomerID
		if customerID == "" && action.DependsOn >= 0 {
			if customer, ok := prior[action.DependsOn].Payload.(*Customer); ok {
				customerID = customer.CustomerID
			}
		}
		orders, err := e.dir.GetOrdersForCustomer(ctx, customerID)
		if err != nil {
			return nil, "", err
		}
		return orders, fmt.Sprintf("customer %s has %d order(s)", customerID, len(orders)), nil

	case ToolResolveProduct:
		product, err := e.dir.GetProduct(ctx, action.Params.ProductID)
		if err != nil {
			return nil, "", err
		}
		return product, fmt.Sprintf("product %s: %s, unit price %.2f %s",
			product.ProductID, product.Name, product.UnitPrice, product.Currency), nil

	case ToolResolveInventory:
		status, err := e.dir.GetInventoryStatus(ctx, action.Params.ProductID)
		if err != nil {
			return nil, "", err
		}
		return status, fmt.Sprintf("product %s stock status: %s", action.Params.ProductID, status), nil

	case ToolResolveLogistics:
		logistics, err := e.dir.GetLogisticsStatus(ctx, action.Params.OrderID)
		if err != nil {
			return nil, "", err
		}
		return logistics, fmt.Sprintf("order %s shipping status: %s, tracking %q",
			logistics.OrderID, logistics.ShippingStatus, logistics.TrackingNumber), nil

	case ToolInterceptShipment:
		key := action.Params.OrderID + ":" + sessionID
		e.logger.Info("Issuing shipment interception",
			zap.String("session_id", sessionID),
			zap.String("order_id", action.Params.OrderID),
			zap.String("idempotency_key", key))
		res, err := e.dir.InterceptShipment(ctx, action.Params.OrderID, action.Params.Reason, key)
		if err != nil {
			return nil, "", err
		}
		switch res.Outcome {
		case InterceptSucceeded:
			return res, fmt.Sprintf("order %s intercepted: %s", res.OrderID, res.Reason), nil
		case InterceptAlreadyShipped:
			return res, fmt.Sprintf("order %s already shipped, interception not possible", res.OrderID), nil
		default:
			return res, "", ToolFailed(fmt.Errorf("interception of order %s failed", action.Params.OrderID), false)
		}

	default:
		return nil, "", ToolFailed(fmt.Errorf("unknown tool %q", action.Tool), false)
	}
}

// transientFailure reports whether a tool error is worth retrying. Unknown
// identifiers and cancelled contexts never are; timeouts and transport errors
// are.
func transientFailure(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te *TriageError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return true
}
