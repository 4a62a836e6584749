package core

import (
	"time"
)

// Order is the Business Directory's record of one customer order.
type Order struct {
	OrderID         string
	CustomerID      string
	CustomerEmail   string
	Status          string
	ShippingStatus  ShippingStatus
	ShippingAddress string
	TrackingNumber  string
	TotalAmount     float64
	Currency        string
	CreatedAt       time.Time
	Lines           []OrderLine
}

// OrderLine is one product position on an order.
type OrderLine struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice float64
}

// ShippingStatus is the directory's view of where a shipment is.
type ShippingStatus string

const (
	ShippingPending     ShippingStatus = "pending"
	ShippingPreparing   ShippingStatus = "preparing"
	ShippingShipped     ShippingStatus = "shipped"
	ShippingInTransit   ShippingStatus = "in_transit"
	ShippingDelivered   ShippingStatus = "delivered"
	ShippingIntercepted ShippingStatus = "intercepted"
)

// Customer is the directory's record of one customer.
type Customer struct {
	CustomerID string
	Name       string
	Email      string
	Phone      string
	Company    string
	Country    string
	VIPLevel   string
}

// Product is the directory's record of one product.
type Product struct {
	ProductID     string
	Name          string
	Category      string
	UnitPrice     float64
	Currency      string
	StockStatus   StockStatus
	StockQuantity int
	MinOrderQty   int
	LeadTime      string
}

// StockStatus is the closed inventory answer.
type StockStatus string

const (
	StockInStock   StockStatus = "in_stock"
	StockBackorder StockStatus = "backorder"
	StockUnknown   StockStatus = "unknown"
)

// LogisticsStatus is the read-only shipment view returned for a logistics
// inquiry.
type LogisticsStatus struct {
	OrderID           string
	ShippingStatus    ShippingStatus
	TrackingNumber    string
	ShippingAddress   string
	EstimatedDelivery time.Time
}

// InterceptOutcome is the closed result of a shipment interception command.
type InterceptOutcome string

const (
	InterceptSucceeded      InterceptOutcome = "intercepted"
	InterceptAlreadyShipped InterceptOutcome = "already_shipped"
	InterceptFailed         InterceptOutcome = "failed"
)

// InterceptResult records what the directory did with an interception command.
type InterceptResult struct {
	OrderID       string
	Outcome       InterceptOutcome
	Reason        string
	InterceptedAt time.Time
}
