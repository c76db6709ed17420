package inventory

import (
	"context"
	"time"

	"github.com/ledgerline/ledgerline/internal/accounting/journals"
)

// AdjustmentPostedEvent represents an adjustment ready for ledger posting.
// Amount is the absolute inventory value moved: qty x unit cost for gains,
// the sum of FIFO draw costs for losses.
type AdjustmentPostedEvent struct {
	AdjustmentID int64
	Code         string
	VariantID    int64
	WarehouseID  int64
	Qty          float64
	Amount       float64
	PostedAt     time.Time
}

// IntegrationHandler receives inventory events for financial integration.
// The journal port is bound to the transaction the event happened in.
type IntegrationHandler interface {
	HandleAdjustmentPosted(ctx context.Context, ledger journals.TxRepository, evt AdjustmentPostedEvent) error
}
