package mappings

import "time"

// AccountMapping links integration keys to ledger accounts.
type AccountMapping struct {
	Module    string
	Key       string
	AccountID int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Well-known mapping keys resolved by the integration hooks.
const (
	KeyPurchaseInventory = "purchase.inventory"
	KeyPurchasePayable   = "purchase.payable"
	KeySaleCash          = "sale.cash"
	KeySaleReceivable    = "sale.receivable"
	KeySaleRevenue       = "sale.revenue"
	KeySaleCOGS          = "sale.cogs"
	KeySaleInventory     = "sale.inventory"
	KeyExpenseCash       = "expense.cash"
	KeyExpenseBank       = "expense.bank"
	KeyAdjustInventory   = "adjustment.inventory"
	KeyAdjustGain        = "adjustment.gain"
	KeyAdjustLoss        = "adjustment.loss"
)
