package core

import (
	"context"
	"time"
)

// Classifier maps a normalized email to exactly one Intent from the closed
// taxonomy. Ambiguous emails come back as GeneralInquiry with low confidence;
// an error is returned only when the underlying strategy is unreachable.
type Classifier interface {
	Classify(ctx context.Context, email *NormalizedEmail) (*Intent, error)
}

// BusinessDirectory is the external system of record for orders, customers,
// products, inventory, and shipment control. Lookups return ErrNotFound for
// unknown identifiers. InterceptShipment is the only mutating operation; the
// directory deduplicates it by idempotency key.
type BusinessDirectory interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	GetCustomer(ctx context.Context, email string) (*Customer, error)
	GetOrdersForCustomer(ctx context.Context, customerID string) ([]Order, error)
	GetProduct(ctx context.Context, productID string) (*Product, error)
	GetInventoryStatus(ctx context.Context, productID string) (StockStatus, error)
	GetLogisticsStatus(ctx context.Context, orderID string) (*LogisticsStatus, error)
	InterceptShipment(ctx context.Context, orderID, reason, idempotencyKey string) (*InterceptResult, error)
}

// RawEmail is one message as supplied by an email source.
type RawEmail struct {
	ID         string
	Data       []byte
	ReceivedAt time.Time
}

// EmailSource supplies raw messages as an enumerable, re-readable sequence.
type EmailSource interface {
	List(ctx context.Context) ([]RawEmail, error)
	Get(ctx context.Context, id string) (*RawEmail, error)
}

// Normalizer turns a raw message into its canonical form.
type Normalizer interface {
	Normalize(raw RawEmail) (*NormalizedEmail, error)
}

// ProgressSink receives stage-completion notifications for progressive
// display. Implementations must be safe for concurrent use.
type ProgressSink interface {
	StageChanged(sessionID string, state SessionState)
}

// NopSink discards progress notifications.
type NopSink struct{}

func (NopSink) StageChanged(string, SessionState) {}
