// Package integration posts journal entries for business events. Each hook
// receives a journal port bound to the event's own transaction, so the
// accounting entry and the operational rows commit or roll back as one.
package integration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ledgerline/ledgerline/internal/accounting/journals"
	"github.com/ledgerline/ledgerline/internal/accounting/mappings"
	"github.com/ledgerline/ledgerline/internal/expenses"
	"github.com/ledgerline/ledgerline/internal/inventory"
	"github.com/ledgerline/ledgerline/internal/purchasing"
	"github.com/ledgerline/ledgerline/internal/sales"
)

// Hooks resolves account mappings and posts the journal entry for each
// supported event.
type Hooks struct {
	logger   *slog.Logger
	mappings mappings.Repository
}

// NewHooks builds Hooks.
func NewHooks(logger *slog.Logger, mappingRepo mappings.Repository) *Hooks {
	return &Hooks{logger: logger, mappings: mappingRepo}
}

var (
	_ purchasing.IntegrationHandler = (*Hooks)(nil)
	_ sales.IntegrationHandler      = (*Hooks)(nil)
	_ expenses.IntegrationHandler   = (*Hooks)(nil)
	_ inventory.IntegrationHandler  = (*Hooks)(nil)
)

// HandlePurchaseReceived capitalises the landed lot value into inventory
// against accounts payable.
func (h *Hooks) HandlePurchaseReceived(ctx context.Context, ledger journals.TxRepository, evt purchasing.LotReceivedEvent) error {
	inventoryAcc, err := h.mappings.Get(ctx, "purchasing", mappings.KeyPurchaseInventory)
	if err != nil {
		return err
	}
	payableAcc, err := h.mappings.Get(ctx, "purchasing", mappings.KeyPurchasePayable)
	if err != nil {
		return err
	}

	input := journals.PostingInput{
		Date:         evt.ReceivedAt,
		SourceModule: "purchasing",
		SourceID:     sourceID("purchase_lot", evt.LotID),
		Memo:         fmt.Sprintf("Lot %s received: %.2f units at %.2f", evt.Code, evt.Quantity, evt.UnitCost),
		Lines: []journals.PostingLineInput{
			{AccountID: inventoryAcc.AccountID, Debit: evt.Total},
			{AccountID: payableAcc.AccountID, Credit: evt.Total},
		},
	}
	if _, err := journals.Post(ctx, ledger, input); err != nil {
		return fmt.Errorf("integration: purchase journal for lot %d: %w", evt.LotID, err)
	}
	h.logger.Info("purchase journal posted", slog.Int64("lot_id", evt.LotID), slog.Float64("total", evt.Total))
	return nil
}

// HandleSalePosted posts revenue and exact FIFO cost in one balanced entry.
// Cash sales debit the cash account, credit sales debit receivables.
func (h *Hooks) HandleSalePosted(ctx context.Context, ledger journals.TxRepository, evt sales.SalePostedEvent) error {
	debitKey := mappings.KeySaleCash
	if evt.PaymentMethod == sales.PaymentCredit {
		debitKey = mappings.KeySaleReceivable
	}
	debitAcc, err := h.mappings.Get(ctx, "sales", debitKey)
	if err != nil {
		return err
	}
	revenueAcc, err := h.mappings.Get(ctx, "sales", mappings.KeySaleRevenue)
	if err != nil {
		return err
	}

	lines := []journals.PostingLineInput{
		{AccountID: debitAcc.AccountID, Debit: evt.Revenue},
		{AccountID: revenueAcc.AccountID, Credit: evt.Revenue},
	}
	if evt.COGS > 0 {
		cogsAcc, err := h.mappings.Get(ctx, "sales", mappings.KeySaleCOGS)
		if err != nil {
			return err
		}
		inventoryAcc, err := h.mappings.Get(ctx, "sales", mappings.KeySaleInventory)
		if err != nil {
			return err
		}
		lines = append(lines,
			journals.PostingLineInput{AccountID: cogsAcc.AccountID, Debit: evt.COGS},
			journals.PostingLineInput{AccountID: inventoryAcc.AccountID, Credit: evt.COGS},
		)
	}

	input := journals.PostingInput{
		Date:         evt.PostedAt,
		SourceModule: "sales",
		SourceID:     sourceID("sales_order", evt.OrderID),
		Memo:         fmt.Sprintf("Sale %s posted on %s channel", evt.Code, evt.Channel),
		Lines:        lines,
	}
	if _, err := journals.Post(ctx, ledger, input); err != nil {
		return fmt.Errorf("integration: sale journal for order %d: %w", evt.OrderID, err)
	}
	h.logger.Info("sale journal posted",
		slog.Int64("order_id", evt.OrderID),
		slog.Float64("revenue", evt.Revenue),
		slog.Float64("cogs", evt.COGS))
	return nil
}

// HandleExpensePosted debits the chosen expense account against cash or bank.
func (h *Hooks) HandleExpensePosted(ctx context.Context, ledger journals.TxRepository, evt expenses.ExpensePostedEvent) error {
	creditKey := mappings.KeyExpenseCash
	if evt.Source == expenses.SourceBank {
		creditKey = mappings.KeyExpenseBank
	}
	creditAcc, err := h.mappings.Get(ctx, "expenses", creditKey)
	if err != nil {
		return err
	}

	input := journals.PostingInput{
		Date:         evt.SpentAt,
		SourceModule: "expenses",
		SourceID:     sourceID("expense", evt.ExpenseID),
		Memo:         fmt.Sprintf("Expense %s (%s)", evt.Code, evt.Category),
		Lines: []journals.PostingLineInput{
			{AccountID: evt.AccountID, Debit: evt.Amount},
			{AccountID: creditAcc.AccountID, Credit: evt.Amount},
		},
	}
	if _, err := journals.Post(ctx, ledger, input); err != nil {
		return fmt.Errorf("integration: expense journal for %d: %w", evt.ExpenseID, err)
	}
	h.logger.Info("expense journal posted", slog.Int64("expense_id", evt.ExpenseID), slog.Float64("amount", evt.Amount))
	return nil
}

// HandleAdjustmentPosted books stock gains against the gain account and
// losses against the loss account, both through the inventory account.
func (h *Hooks) HandleAdjustmentPosted(ctx context.Context, ledger journals.TxRepository, evt inventory.AdjustmentPostedEvent) error {
	inventoryAcc, err := h.mappings.Get(ctx, "inventory", mappings.KeyAdjustInventory)
	if err != nil {
		return err
	}

	var lines []journals.PostingLineInput
	if evt.Qty > 0 {
		gainAcc, err := h.mappings.Get(ctx, "inventory", mappings.KeyAdjustGain)
		if err != nil {
			return err
		}
		lines = []journals.PostingLineInput{
			{AccountID: inventoryAcc.AccountID, Debit: evt.Amount},
			{AccountID: gainAcc.AccountID, Credit: evt.Amount},
		}
	} else {
		lossAcc, err := h.mappings.Get(ctx, "inventory", mappings.KeyAdjustLoss)
		if err != nil {
			return err
		}
		lines = []journals.PostingLineInput{
			{AccountID: lossAcc.AccountID, Debit: evt.Amount},
			{AccountID: inventoryAcc.AccountID, Credit: evt.Amount},
		}
	}

	input := journals.PostingInput{
		Date:         evt.PostedAt,
		SourceModule: "inventory",
		SourceID:     sourceID("inventory_adjustment", evt.AdjustmentID),
		Memo:         fmt.Sprintf("Adjustment %s: %+.2f units", evt.Code, evt.Qty),
		Lines:        lines,
	}
	if _, err := journals.Post(ctx, ledger, input); err != nil {
		return fmt.Errorf("integration: adjustment journal for %d: %w", evt.AdjustmentID, err)
	}
	h.logger.Info("adjustment journal posted", slog.Int64("adjustment_id", evt.AdjustmentID), slog.Float64("amount", evt.Amount))
	return nil
}
