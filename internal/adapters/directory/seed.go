package directory

import (
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-email-triage/internal/core"
)

// NewSeededMemoryDirectory creates an in-memory directory preloaded with the
// demo dataset, so the pipeline can be exercised end to end without a real
// system of record.
func NewSeededMemoryDirectory(logger *zap.Logger) *MemoryDirectory {
	d := NewMemoryDirectory(logger)

	d.AddCustomer(&core.Customer{
		CustomerID: "CUST001",
		Name:       "Zhang San",
		Email:      "customer1@example.com",
		Phone:      "+86-138-0000-0001",
		Company:    "Shenzhen Technology Co., Ltd.",
		Country:    "China",
		VIPLevel:   "Gold",
	})
	d.AddCustomer(&core.Customer{
		CustomerID: "CUST002",
		Name:       "John Smith",
		Email:      "customer2@example.com",
		Phone:      "+1-555-0123",
		Company:    "Tech Solutions Inc",
		Country:    "United States",
		VIPLevel:   "Silver",
	})
	d.AddCustomer(&core.Customer{
		CustomerID: "CUST003",
		Name:       "Maria Garcia",
		Email:      "customer3@example.com",
		Phone:      "+34-600-123-456",
		Company:    "European Electronics Ltd",
		Country:    "Spain",
		VIPLevel:   "Bronze",
	})

	d.AddOrder(&core.Order{
		OrderID:         "LC123456",
		CustomerID:      "CUST001",
		CustomerEmail:   "customer1@example.com",
		Status:          "confirmed",
		ShippingStatus:  core.ShippingPending,
		ShippingAddress: "Nanshan District, Shenzhen Technology Park, China",
		TotalAmount:     1580.50,
		Currency:        "CNY",
		CreatedAt:       time.Date(2024, 7, 1, 10, 30, 0, 0, time.UTC),
		Lines: []core.OrderLine{
			{ProductID: "08-50-0113", Name: "Connector", Quantity: 20000, UnitPrice: 0.05},
			{ProductID: "22-01-1042", Name: "Resistor", Quantity: 5000, UnitPrice: 0.02},
		},
	})
	d.AddOrder(&core.Order{
		OrderID:         "LC789012",
		CustomerID:      "CUST002",
		CustomerEmail:   "customer2@example.com",
		Status:          "shipped",
		ShippingStatus:  core.ShippingInTransit,
		ShippingAddress: "123 Tech Street, San Francisco, CA 94105, USA",
		TrackingNumber:  "SF1234567890",
		TotalAmount:     2350.00,
		Currency:        "USD",
		CreatedAt:       time.Date(2024, 6, 28, 14, 20, 0, 0, time.UTC),
		Lines: []core.OrderLine{
			{ProductID: "42816-0212", Name: "Microcontroller Chip", Quantity: 200, UnitPrice: 11.75},
		},
	})
	d.AddOrder(&core.Order{
		OrderID:         "LC345678",
		CustomerID:      "CUST003",
		CustomerEmail:   "customer3@example.com",
		Status:          "processing",
		ShippingStatus:  core.ShippingPreparing,
		ShippingAddress: "Calle Mayor 45, Madrid 28013, Spain",
		TotalAmount:     890.25,
		Currency:        "EUR",
		CreatedAt:       time.Date(2024, 7, 2, 9, 15, 0, 0, time.UTC),
		Lines: []core.OrderLine{
			{ProductID: "08-50-0113", Name: "Connector", Quantity: 5000, UnitPrice: 0.05},
			{ProductID: "22-01-1042", Name: "Resistor", Quantity: 10000, UnitPrice: 0.02},
		},
	})

	d.AddProduct(&core.Product{
		ProductID:     "08-50-0113",
		Name:          "Molex Connector",
		Category:      "Connectors",
		UnitPrice:     0.05,
		Currency:      "CNY",
		StockStatus:   core.StockInStock,
		StockQuantity: 500000,
		MinOrderQty:   1000,
		LeadTime:      "1-3 days",
	})
	d.AddProduct(&core.Product{
		ProductID:     "22-01-1042",
		Name:          "1K Ohm Resistor",
		Category:      "Resistors",
		UnitPrice:     0.02,
		Currency:      "CNY",
		StockStatus:   core.StockInStock,
		StockQuantity: 1000000,
		MinOrderQty:   100,
		LeadTime:      "1-3 days",
	})
	d.AddProduct(&core.Product{
		ProductID:     "42816-0212",
		Name:          "STM32 Microcontroller",
		Category:      "Microcontrollers",
		UnitPrice:     11.75,
		Currency:      "USD",
		StockStatus:   core.StockBackorder,
		StockQuantity: 0,
		MinOrderQty:   10,
		LeadTime:      "4-6 weeks",
	})
	d.AddProduct(&core.Product{
		ProductID:     "75-12-3456",
		Name:          "Ceramic Capacitor 10uF",
		Category:      "Capacitors",
		UnitPrice:     0.08,
		Currency:      "USD",
		StockStatus:   core.StockInStock,
		StockQuantity: 250000,
		MinOrderQty:   500,
		LeadTime:      "1-2 days",
	})

	return d
}
