package inventory

import (
	"context"
	"math"
	"time"
)

// qtyEpsilon absorbs float drift on fractional quantities.
const qtyEpsilon = 1e-9

// Receive creates a new cost layer and its purchase_in ledger entry inside
// the caller's transaction. The batch starts with remaining == initial.
func Receive(ctx context.Context, tx TxRepository, in ReceiptInput) (Batch, error) {
	if in.VariantID == 0 || in.WarehouseID == 0 {
		return Batch{}, ErrInvalidReceipt
	}
	if in.Qty <= 0 || in.CostPrice < 0 {
		return Batch{}, ErrInvalidReceipt
	}
	if !in.Ref.Valid() {
		return Batch{}, ErrInvalidRef
	}
	arrivedAt := in.ArrivedAt
	if arrivedAt.IsZero() {
		arrivedAt = time.Now().UTC()
	}

	batch := Batch{
		VariantID:    in.VariantID,
		WarehouseID:  in.WarehouseID,
		CostPrice:    in.CostPrice,
		InitialQty:   in.Qty,
		RemainingQty: in.Qty,
		ReceivedAt:   arrivedAt,
	}
	id, err := tx.InsertBatch(ctx, batch)
	if err != nil {
		return Batch{}, err
	}
	batch.ID = id

	entry := LedgerEntry{
		VariantID:   in.VariantID,
		WarehouseID: in.WarehouseID,
		BatchID:     &batch.ID,
		Type:        EntryTypePurchaseIn,
		QtyChange:   in.Qty,
		Ref:         in.Ref,
		Note:        in.Note,
		OccurredAt:  arrivedAt,
	}
	if _, err := tx.InsertLedgerEntry(ctx, entry); err != nil {
		return Batch{}, err
	}
	return batch, nil
}

// Allocate depletes batches oldest arrival first for one sold line item.
// The availability check and the per-batch decrements run against rows the
// repository has already locked in (received_at, id) order, so concurrent
// allocations on the same key serialize instead of jointly overdrawing.
// On a shortfall nothing is written and ErrOutOfStock is returned.
func Allocate(ctx context.Context, tx TxRepository, in AllocationInput) (AllocationResult, error) {
	if in.VariantID == 0 || in.WarehouseID == 0 {
		return AllocationResult{}, ErrInvalidQuantity
	}
	if in.Qty <= 0 {
		return AllocationResult{}, ErrInvalidQuantity
	}
	if !in.Ref.Valid() {
		return AllocationResult{}, ErrInvalidRef
	}

	draws, err := deplete(ctx, tx, depleteParams{
		VariantID:   in.VariantID,
		WarehouseID: in.WarehouseID,
		Qty:         in.Qty,
		EntryType:   EntryTypeSaleOut,
		Ref:         in.Ref,
		OccurredAt:  in.OccurredAt,
	})
	if err != nil {
		return AllocationResult{}, err
	}

	result := AllocationResult{Draws: draws}
	for _, draw := range draws {
		alloc := Allocation{
			SaleLineID:  in.SaleLineID,
			BatchID:     draw.BatchID,
			QtyDeducted: draw.Qty,
			CostPerUnit: draw.CostPerUnit,
		}
		if _, err := tx.InsertAllocation(ctx, alloc); err != nil {
			return AllocationResult{}, err
		}
		result.TotalCost += draw.Qty * draw.CostPerUnit
	}
	result.TotalCost = round2(result.TotalCost)
	return result, nil
}

type depleteParams struct {
	VariantID   int64
	WarehouseID int64
	Qty         float64
	EntryType   EntryType
	Ref         EventRef
	Note        string
	OccurredAt  time.Time
}

// deplete walks the locked batch set in FIFO order, decrementing remaining
// quantities and appending one ledger entry per touched batch.
func deplete(ctx context.Context, tx TxRepository, params depleteParams) ([]BatchDraw, error) {
	batches, err := tx.SelectBatchesForUpdate(ctx, params.VariantID, params.WarehouseID)
	if err != nil {
		return nil, err
	}

	var available float64
	for _, batch := range batches {
		available += batch.RemainingQty
	}
	if available+qtyEpsilon < params.Qty {
		return nil, ErrOutOfStock
	}

	occurredAt := params.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	remaining := params.Qty
	var draws []BatchDraw
	for _, batch := range batches {
		if remaining <= qtyEpsilon {
			break
		}
		draw := math.Min(batch.RemainingQty, remaining)
		if draw <= 0 {
			continue
		}
		newRemaining := batch.RemainingQty - draw
		if newRemaining < -qtyEpsilon {
			return nil, ErrIntegrity
		}
		if newRemaining < 0 {
			newRemaining = 0
		}
		if err := tx.UpdateBatchRemaining(ctx, batch.ID, newRemaining); err != nil {
			return nil, err
		}
		batchID := batch.ID
		entry := LedgerEntry{
			VariantID:   params.VariantID,
			WarehouseID: params.WarehouseID,
			BatchID:     &batchID,
			Type:        params.EntryType,
			QtyChange:   -draw,
			Ref:         params.Ref,
			Note:        params.Note,
			OccurredAt:  occurredAt,
		}
		if _, err := tx.InsertLedgerEntry(ctx, entry); err != nil {
			return nil, err
		}
		draws = append(draws, BatchDraw{BatchID: batch.ID, Qty: draw, CostPerUnit: batch.CostPrice})
		remaining -= draw
	}
	if remaining > qtyEpsilon {
		// The availability check passed, so leftover demand means the
		// locked snapshot and the decrements disagree.
		return nil, ErrIntegrity
	}
	return draws, nil
}

// Transfer moves stock between warehouses as transfer-out draws at the
// source plus mirrored layers at the target. Each moved slice keeps its
// cost price and original arrival time.
func Transfer(ctx context.Context, tx TxRepository, in TransferInput, ref EventRef) ([]BatchDraw, error) {
	if in.SrcWarehouse == 0 || in.DstWarehouse == 0 || in.VariantID == 0 {
		return nil, ErrInvalidQuantity
	}
	if in.SrcWarehouse == in.DstWarehouse {
		return nil, ErrInvalidQuantity
	}
	if in.Qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	batches, err := tx.SelectBatchesForUpdate(ctx, in.VariantID, in.SrcWarehouse)
	if err != nil {
		return nil, err
	}
	var available float64
	for _, batch := range batches {
		available += batch.RemainingQty
	}
	if available+qtyEpsilon < in.Qty {
		return nil, ErrOutOfStock
	}

	now := time.Now().UTC()
	remaining := in.Qty
	var draws []BatchDraw
	for _, batch := range batches {
		if remaining <= qtyEpsilon {
			break
		}
		draw := math.Min(batch.RemainingQty, remaining)
		if err := tx.UpdateBatchRemaining(ctx, batch.ID, batch.RemainingQty-draw); err != nil {
			return nil, err
		}
		srcBatchID := batch.ID
		outEntry := LedgerEntry{
			VariantID:   in.VariantID,
			WarehouseID: in.SrcWarehouse,
			BatchID:     &srcBatchID,
			Type:        EntryTypeTransfer,
			QtyChange:   -draw,
			Ref:         ref,
			Note:        in.Note,
			OccurredAt:  now,
		}
		if _, err := tx.InsertLedgerEntry(ctx, outEntry); err != nil {
			return nil, err
		}

		mirror := Batch{
			VariantID:    in.VariantID,
			WarehouseID:  in.DstWarehouse,
			CostPrice:    batch.CostPrice,
			InitialQty:   draw,
			RemainingQty: draw,
			ReceivedAt:   batch.ReceivedAt,
		}
		mirrorID, err := tx.InsertBatch(ctx, mirror)
		if err != nil {
			return nil, err
		}
		inEntry := LedgerEntry{
			VariantID:   in.VariantID,
			WarehouseID: in.DstWarehouse,
			BatchID:     &mirrorID,
			Type:        EntryTypeTransfer,
			QtyChange:   draw,
			Ref:         ref,
			Note:        in.Note,
			OccurredAt:  now,
		}
		if _, err := tx.InsertLedgerEntry(ctx, inEntry); err != nil {
			return nil, err
		}
		draws = append(draws, BatchDraw{BatchID: batch.ID, Qty: draw, CostPerUnit: batch.CostPrice})
		remaining -= draw
	}
	if remaining > qtyEpsilon {
		return nil, ErrIntegrity
	}
	return draws, nil
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
