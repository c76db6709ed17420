package reporting

import "time"

// StockSummaryRow aggregates one (variant, warehouse) position: on-hand
// quantity and inventory value at exact layer costs.
type StockSummaryRow struct {
	VariantID   int64   `json:"variant_id"`
	WarehouseID int64   `json:"warehouse_id"`
	OnHandQty   float64 `json:"on_hand_qty"`
	Value       float64 `json:"value"`
}

// TrialBalanceRow aggregates posted debits and credits per account.
type TrialBalanceRow struct {
	AccountID   int64   `json:"account_id"`
	AccountCode string  `json:"account_code"`
	AccountName string  `json:"account_name"`
	Debit       float64 `json:"debit"`
	Credit      float64 `json:"credit"`
}

// StockCardRow is one ledger movement with its running context for export.
type StockCardRow struct {
	EntryID     int64     `json:"entry_id"`
	VariantID   int64     `json:"variant_id"`
	WarehouseID int64     `json:"warehouse_id"`
	EntryType   string    `json:"entry_type"`
	QtyChange   float64   `json:"qty_change"`
	RefKind     string    `json:"ref_kind"`
	RefID       int64     `json:"ref_id"`
	Note        string    `json:"note"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Period bounds a report window. Zero values leave the side open.
type Period struct {
	From time.Time
	To   time.Time
}
