package expenses

import (
	"context"
	"time"

	"github.com/ledgerline/ledgerline/internal/accounting/journals"
)

// ExpensePostedEvent is emitted when an expense posts.
type ExpensePostedEvent struct {
	ExpenseID int64
	Code      string
	Category  string
	AccountID int64
	Amount    float64
	Source    PaymentSource
	SpentAt   time.Time
}

// IntegrationHandler posts the accounting side of an expense inside the
// expense transaction.
type IntegrationHandler interface {
	HandleExpensePosted(ctx context.Context, ledger journals.TxRepository, evt ExpensePostedEvent) error
}
