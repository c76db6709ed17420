package sales

import (
	"errors"
	"time"
)

// PaymentMethod distinguishes settled sales from credit sales. It selects
// the debit side of the revenue journal entry.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCredit PaymentMethod = "credit"
)

// Valid reports whether the method is known.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCredit
}

// SalesOrder is a posted sale. Revenue totals come from the request; cost
// totals come from the FIFO allocation and are exact, never estimated.
type SalesOrder struct {
	ID            int64
	Code          string
	Channel       string
	WarehouseID   int64
	CustomerName  string
	PaymentMethod PaymentMethod
	Total         float64
	TotalCost     float64
	PostedBy      int64
	PostedAt      time.Time
	CreatedAt     time.Time
	Lines         []SaleLine
}

// SaleLine is one sold variant. CostTotal is the summed batch draw value
// recorded at allocation time.
type SaleLine struct {
	ID        int64
	OrderID   int64
	VariantID int64
	Qty       float64
	UnitPrice float64
	LineTotal float64
	CostTotal float64
	CreatedAt time.Time
}

// PostSaleLineInput is one requested line.
type PostSaleLineInput struct {
	VariantID int64   `json:"variant_id" validate:"required"`
	Qty       float64 `json:"qty" validate:"gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

// PostSaleInput carries a sale posting request.
type PostSaleInput struct {
	Code          string              `json:"code"`
	Channel       string              `json:"channel" validate:"required"`
	WarehouseID   int64               `json:"warehouse_id" validate:"required"`
	CustomerName  string              `json:"customer_name"`
	PaymentMethod PaymentMethod       `json:"payment_method" validate:"required"`
	Lines         []PostSaleLineInput `json:"lines" validate:"required,min=1,dive"`
	PostedAt      time.Time           `json:"posted_at"`
	ActorID       int64               `json:"-"`
}

// ListFilter narrows order listings.
type ListFilter struct {
	Channel     string
	WarehouseID int64
	From        time.Time
	To          time.Time
	Limit       int
}

var (
	// ErrOrderNotFound indicates an unknown order id.
	ErrOrderNotFound = errors.New("sales: order not found")
	// ErrDuplicateCode indicates an order code that was already posted.
	ErrDuplicateCode = errors.New("sales: order code already exists")
	// ErrInvalidPayment indicates an unknown payment method.
	ErrInvalidPayment = errors.New("sales: invalid payment method")
	// ErrNoLines indicates a sale without line items.
	ErrNoLines = errors.New("sales: at least one line required")
)
