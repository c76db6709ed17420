package inventory

import (
	"errors"
	"time"
)

// EntryType enumerates supported stock ledger movements.
type EntryType string

const (
	// EntryTypePurchaseIn represents a landed-cost receipt.
	EntryTypePurchaseIn EntryType = "purchase_in"
	// EntryTypeSaleOut represents a FIFO depletion for a sale.
	EntryTypeSaleOut EntryType = "sale_out"
	// EntryTypeAdjustment indicates manual gain/loss adjustments.
	EntryTypeAdjustment EntryType = "adjustment"
	// EntryTypeTransfer is used for warehouse-to-warehouse moves.
	EntryTypeTransfer EntryType = "transfer"
)

// EventKind names the finite set of business events that can move stock.
type EventKind string

const (
	EventPurchaseLot EventKind = "purchase_lot"
	EventSalesOrder  EventKind = "sales_order"
	EventExpense     EventKind = "expense"
	EventAdjustment  EventKind = "adjustment"
	EventTransfer    EventKind = "transfer"
)

// EventRef is a typed reference to the business object that caused a
// movement. It replaces free-form reference_type/reference_id pairs.
type EventRef struct {
	Kind EventKind
	ID   int64
}

// Valid reports whether the reference names a known event kind.
func (r EventRef) Valid() bool {
	switch r.Kind {
	case EventPurchaseLot, EventSalesOrder, EventExpense, EventAdjustment, EventTransfer:
		return r.ID > 0
	}
	return false
}

// Batch is one cost layer: a quantity received at one time and landed cost,
// owned by a (variant, warehouse) pair. CostPrice is fixed at creation and
// RemainingQty only ever decreases. Batches are kept at zero remaining for
// audit, never deleted.
type Batch struct {
	ID           int64
	VariantID    int64
	WarehouseID  int64
	CostPrice    float64
	InitialQty   float64
	RemainingQty float64
	ReceivedAt   time.Time
	CreatedAt    time.Time
}

// LedgerEntry is one append-only quantity change. BatchID is nil for
// movements that are not tied to a single layer.
type LedgerEntry struct {
	ID          int64
	VariantID   int64
	WarehouseID int64
	BatchID     *int64
	Type        EntryType
	QtyChange   float64
	Ref         EventRef
	Note        string
	OccurredAt  time.Time
	CreatedAt   time.Time
}

// Allocation links one sold line item to one batch draw. CostPerUnit is
// copied from the batch at allocation time and never recomputed.
type Allocation struct {
	ID          int64
	SaleLineID  int64
	BatchID     int64
	QtyDeducted float64
	CostPerUnit float64
	CreatedAt   time.Time
}

// BatchDraw reports one greedy FIFO draw inside an allocation result.
type BatchDraw struct {
	BatchID     int64
	Qty         float64
	CostPerUnit float64
}

// AllocationResult is the outcome of one FIFO allocation.
type AllocationResult struct {
	Draws     []BatchDraw
	TotalCost float64
}

// ReceiptInput describes a landed-cost receipt into a warehouse.
type ReceiptInput struct {
	VariantID   int64
	WarehouseID int64
	CostPrice   float64
	Qty         float64
	ArrivedAt   time.Time
	Ref         EventRef
	Note        string
}

// AllocationInput describes a stock-out request for one sold line item.
type AllocationInput struct {
	VariantID   int64
	WarehouseID int64
	Qty         float64
	SaleLineID  int64
	Ref         EventRef
	OccurredAt  time.Time
}

// AdjustmentInput describes a signed manual stock correction.
type AdjustmentInput struct {
	Code        string
	VariantID   int64
	WarehouseID int64
	Qty         float64
	UnitCost    float64
	Note        string
	ActorID     int64
}

// TransferInput describes a move between warehouses. Moved units keep
// their cost and original arrival time so FIFO age survives the move.
type TransferInput struct {
	Code         string
	VariantID    int64
	SrcWarehouse int64
	DstWarehouse int64
	Qty          float64
	Note         string
	ActorID      int64
}

// StockCardFilter narrows ledger listings.
type StockCardFilter struct {
	VariantID   int64
	WarehouseID int64
	Type        EntryType
	From        time.Time
	To          time.Time
	Limit       int
}

// ErrOutOfStock triggered when a requested quantity exceeds availability.
// No partial draw is committed.
var ErrOutOfStock = errors.New("inventory: insufficient stock")

// ErrInvalidReceipt indicates a receipt with non-positive qty or negative cost.
var ErrInvalidReceipt = errors.New("inventory: invalid receipt")

// ErrInvalidQuantity indicates invalid qty.
var ErrInvalidQuantity = errors.New("inventory: quantity must be positive")

// ErrIntegrity signals a broken invariant, e.g. a remaining quantity that
// would go negative despite the availability check. The enclosing
// transaction must abort; values are never clamped.
var ErrIntegrity = errors.New("inventory: integrity violation")

// ErrInvalidRef indicates an event reference of unknown kind.
var ErrInvalidRef = errors.New("inventory: invalid event reference")
