package purchasing

import (
	"errors"
	"time"
)

// PurchaseLot is a received import shipment: foreign invoice value,
// exchange rate and freight surcharge resolved into one landed unit cost.
// The lot is immutable once received; its unit cost seeds exactly one
// inventory batch.
type PurchaseLot struct {
	ID               int64
	Code             string
	VariantID        int64
	WarehouseID      int64
	SupplierName     string
	ForeignTotalCost float64
	FXRate           float64
	FreightExtraCost float64
	Quantity         float64
	UnitCost         float64
	TotalCost        float64
	ArrivedAt        time.Time
	Note             string
	ReceivedBy       int64
	CreatedAt        time.Time
}

// ReceiveLotInput carries the fields of a lot receipt request. FXRate may
// be zero to fall back to the configured default rate.
type ReceiveLotInput struct {
	Code             string    `json:"code"`
	VariantID        int64     `json:"variant_id" validate:"required"`
	WarehouseID      int64     `json:"warehouse_id" validate:"required"`
	SupplierName     string    `json:"supplier_name"`
	ForeignTotalCost float64   `json:"foreign_total_cost" validate:"gte=0"`
	FXRate           float64   `json:"fx_rate" validate:"gte=0"`
	FreightExtraCost float64   `json:"freight_extra_cost" validate:"gte=0"`
	Quantity         float64   `json:"quantity" validate:"gt=0"`
	ArrivedAt        time.Time `json:"arrived_at"`
	Note             string    `json:"note"`
	ActorID          int64     `json:"-"`
}

// ListFilter narrows lot listings.
type ListFilter struct {
	VariantID   int64
	WarehouseID int64
	From        time.Time
	To          time.Time
	Limit       int
}

var (
	// ErrLotNotFound indicates an unknown lot id.
	ErrLotNotFound = errors.New("purchasing: lot not found")
	// ErrDuplicateCode indicates a lot code that was already received.
	ErrDuplicateCode = errors.New("purchasing: lot code already exists")
)
