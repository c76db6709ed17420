package purchasing

import (
	"context"
	"time"

	"github.com/ledgerline/ledgerline/internal/accounting/journals"
)

// LotReceivedEvent is emitted when a purchase lot lands in stock. Total is
// the rounded landed value capitalised into inventory.
type LotReceivedEvent struct {
	LotID       int64
	Code        string
	VariantID   int64
	WarehouseID int64
	Quantity    float64
	UnitCost    float64
	Total       float64
	ReceivedAt  time.Time
}

// IntegrationHandler posts the accounting side of purchasing events. The
// journal port is bound to the receipt transaction, so the entry commits
// with the lot and its batch or not at all.
type IntegrationHandler interface {
	HandlePurchaseReceived(ctx context.Context, ledger journals.TxRepository, evt LotReceivedEvent) error
}
