package purchasing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerline/ledgerline/internal/costing"
	"github.com/ledgerline/ledgerline/internal/inventory"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service receives purchase lots. One receipt is one transaction: the lot
// row, its inventory batch, the stock ledger entry and the capitalisation
// journal entry commit together.
type Service struct {
	repo        Repository
	calculator  *costing.Calculator
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	integration IntegrationHandler
}

// NewService builds Service.
func NewService(repo Repository, calc *costing.Calculator, audit AuditPort, idem *shared.IdempotencyStore, integration IntegrationHandler) *Service {
	return &Service{repo: repo, calculator: calc, audit: audit, idempotency: idem, integration: integration}
}

// ReceiveLot costs the lot, books the inventory layer and posts the journal.
func (s *Service) ReceiveLot(ctx context.Context, input ReceiveLotInput) (PurchaseLot, error) {
	if input.VariantID == 0 || input.WarehouseID == 0 {
		return PurchaseLot{}, errors.New("purchasing: variant and warehouse required")
	}
	arrivedAt := input.ArrivedAt
	if arrivedAt.IsZero() {
		arrivedAt = time.Now().UTC()
	}
	if input.Code == "" {
		input.Code = fmt.Sprintf("LOT-%d", time.Now().UTC().UnixNano())
	}

	costLot := costing.Lot{
		ForeignTotalCost: input.ForeignTotalCost,
		FXRate:           input.FXRate,
		FreightExtraCost: input.FreightExtraCost,
		Quantity:         input.Quantity,
		ArrivedAt:        arrivedAt,
	}
	unitCost, err := s.calculator.UnitCost(costLot)
	if err != nil {
		return PurchaseLot{}, err
	}
	total, err := s.calculator.LotTotal(costLot)
	if err != nil {
		return PurchaseLot{}, err
	}

	key := fmt.Sprintf("purchase:%s", input.Code)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "purchasing"); err != nil {
			return PurchaseLot{}, err
		}
		insertedKey = true
	}

	lot := PurchaseLot{
		Code:             input.Code,
		VariantID:        input.VariantID,
		WarehouseID:      input.WarehouseID,
		SupplierName:     input.SupplierName,
		ForeignTotalCost: input.ForeignTotalCost,
		FXRate:           input.FXRate,
		FreightExtraCost: input.FreightExtraCost,
		Quantity:         input.Quantity,
		UnitCost:         unitCost,
		TotalCost:        total,
		ArrivedAt:        arrivedAt,
		Note:             input.Note,
		ReceivedBy:       input.ActorID,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lotID, err := tx.InsertLot(ctx, lot)
		if err != nil {
			return err
		}
		lot.ID = lotID

		if _, err := inventory.Receive(ctx, tx.Inventory(), inventory.ReceiptInput{
			VariantID:   input.VariantID,
			WarehouseID: input.WarehouseID,
			CostPrice:   unitCost,
			Qty:         input.Quantity,
			ArrivedAt:   arrivedAt,
			Ref:         inventory.EventRef{Kind: inventory.EventPurchaseLot, ID: lotID},
			Note:        input.Note,
		}); err != nil {
			return err
		}

		if s.integration != nil {
			evt := LotReceivedEvent{
				LotID:       lotID,
				Code:        lot.Code,
				VariantID:   input.VariantID,
				WarehouseID: input.WarehouseID,
				Quantity:    input.Quantity,
				UnitCost:    unitCost,
				Total:       total,
				ReceivedAt:  arrivedAt,
			}
			if err := s.integration.HandlePurchaseReceived(ctx, tx.Journals(), evt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return PurchaseLot{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "purchasing.receive",
			Entity:   "purchase_lot",
			EntityID: fmt.Sprintf("%d", lot.ID),
			Meta: map[string]any{
				"code":      lot.Code,
				"unit_cost": unitCost,
				"total":     total,
				"qty":       input.Quantity,
			},
		})
	}
	return lot, nil
}

// List returns lots matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]PurchaseLot, error) {
	return s.repo.List(ctx, filter)
}

// Get fetches one lot.
func (s *Service) Get(ctx context.Context, lotID int64) (PurchaseLot, error) {
	return s.repo.Get(ctx, lotID)
}
