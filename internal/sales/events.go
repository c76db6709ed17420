package sales

import (
	"context"
	"time"

	"github.com/ledgerline/ledgerline/internal/accounting/journals"
)

// SalePostedEvent is emitted when a sale posts. COGS carries the exact
// FIFO draw value of the allocation, not an average.
type SalePostedEvent struct {
	OrderID       int64
	Code          string
	Channel       string
	PaymentMethod PaymentMethod
	Revenue       float64
	COGS          float64
	PostedAt      time.Time
}

// IntegrationHandler posts the accounting side of a sale inside the sale
// transaction.
type IntegrationHandler interface {
	HandleSalePosted(ctx context.Context, ledger journals.TxRepository, evt SalePostedEvent) error
}
