package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates inventory operations that stand on their own as
// business events: manual adjustments, transfers and read queries.
// Purchase receipts and sale allocations run inside the purchasing and
// sales transactions through the engine functions.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	integration IntegrationHandler
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore, integration IntegrationHandler) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, integration: integration}
}

// AvailableQty reports the remaining stock for a (variant, warehouse) key.
func (s *Service) AvailableQty(ctx context.Context, variantID, warehouseID int64) (float64, error) {
	if variantID == 0 || warehouseID == 0 {
		return 0, errors.New("inventory: variant and warehouse required")
	}
	return s.repo.AvailableQty(ctx, variantID, warehouseID)
}

// StockCard lists ledger entries for the filter.
func (s *Service) StockCard(ctx context.Context, filter StockCardFilter) ([]LedgerEntry, error) {
	return s.repo.ListLedger(ctx, filter)
}

// Batches lists all cost layers for the key, exhausted layers included.
func (s *Service) Batches(ctx context.Context, variantID, warehouseID int64) ([]Batch, error) {
	if variantID == 0 || warehouseID == 0 {
		return nil, errors.New("inventory: variant and warehouse required")
	}
	return s.repo.ListBatches(ctx, variantID, warehouseID)
}

// PostAdjustment posts an adjustment which may be positive or negative.
// Gains create a fresh cost layer at the given unit cost; losses deplete
// layers FIFO like a sale. The gain/loss journal entry commits in the same
// transaction.
func (s *Service) PostAdjustment(ctx context.Context, input AdjustmentInput) (int64, error) {
	if input.VariantID == 0 || input.WarehouseID == 0 {
		return 0, errors.New("inventory: variant and warehouse required")
	}
	if math.Abs(input.Qty) < qtyEpsilon {
		return 0, ErrInvalidQuantity
	}
	if input.Qty > 0 && input.UnitCost < 0 {
		return 0, ErrInvalidReceipt
	}
	now := time.Now().UTC()
	if input.Code == "" {
		input.Code = fmt.Sprintf("ADJ-%d", now.UnixNano())
	}

	key := fmt.Sprintf("adjustment:%s:%d:%d", input.Code, input.WarehouseID, input.VariantID)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "inventory"); err != nil {
			return 0, err
		}
		insertedKey = true
	}

	var adjID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		adjID, err = tx.InsertAdjustmentDoc(ctx, input, now)
		if err != nil {
			return err
		}
		ref := EventRef{Kind: EventAdjustment, ID: adjID}

		var amount float64
		if input.Qty > 0 {
			batch := Batch{
				VariantID:    input.VariantID,
				WarehouseID:  input.WarehouseID,
				CostPrice:    input.UnitCost,
				InitialQty:   input.Qty,
				RemainingQty: input.Qty,
				ReceivedAt:   now,
			}
			batchID, err := tx.InsertBatch(ctx, batch)
			if err != nil {
				return err
			}
			entry := LedgerEntry{
				VariantID:   input.VariantID,
				WarehouseID: input.WarehouseID,
				BatchID:     &batchID,
				Type:        EntryTypeAdjustment,
				QtyChange:   input.Qty,
				Ref:         ref,
				Note:        input.Note,
				OccurredAt:  now,
			}
			if _, err := tx.InsertLedgerEntry(ctx, entry); err != nil {
				return err
			}
			amount = round2(input.Qty * input.UnitCost)
		} else {
			draws, err := deplete(ctx, tx, depleteParams{
				VariantID:   input.VariantID,
				WarehouseID: input.WarehouseID,
				Qty:         -input.Qty,
				EntryType:   EntryTypeAdjustment,
				Ref:         ref,
				Note:        input.Note,
				OccurredAt:  now,
			})
			if err != nil {
				return err
			}
			for _, draw := range draws {
				amount += draw.Qty * draw.CostPerUnit
			}
			amount = round2(amount)
		}

		if s.integration != nil && amount > 0 {
			evt := AdjustmentPostedEvent{
				AdjustmentID: adjID,
				Code:         input.Code,
				VariantID:    input.VariantID,
				WarehouseID:  input.WarehouseID,
				Qty:          input.Qty,
				Amount:       amount,
				PostedAt:     now,
			}
			if err := s.integration.HandleAdjustmentPosted(ctx, tx.Journals(), evt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return 0, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "inventory.adjust",
			Entity:   "inventory_adjustment",
			EntityID: fmt.Sprintf("%d", adjID),
			Meta: map[string]any{
				"code":         input.Code,
				"variant_id":   input.VariantID,
				"warehouse_id": input.WarehouseID,
				"qty":          input.Qty,
			},
		})
	}
	return adjID, nil
}

// PostTransfer moves stock between warehouses. No journal entry is posted:
// the moved layers keep their cost, so total inventory value is unchanged.
func (s *Service) PostTransfer(ctx context.Context, input TransferInput) ([]BatchDraw, error) {
	if input.VariantID == 0 || input.SrcWarehouse == 0 || input.DstWarehouse == 0 {
		return nil, errors.New("inventory: variant and warehouse required")
	}
	now := time.Now().UTC()
	if input.Code == "" {
		input.Code = fmt.Sprintf("TRF-%d", now.UnixNano())
	}

	key := fmt.Sprintf("transfer:%s:%d", input.Code, input.VariantID)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "inventory"); err != nil {
			return nil, err
		}
		insertedKey = true
	}

	var draws []BatchDraw
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		transferID, err := tx.InsertTransferDoc(ctx, input, now)
		if err != nil {
			return err
		}
		draws, err = Transfer(ctx, tx, input, EventRef{Kind: EventTransfer, ID: transferID})
		return err
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "inventory.transfer",
			Entity:   "stock_transfer",
			EntityID: input.Code,
			Meta: map[string]any{
				"variant_id": input.VariantID,
				"src":        input.SrcWarehouse,
				"dst":        input.DstWarehouse,
				"qty":        input.Qty,
			},
		})
	}
	return draws, nil
}
