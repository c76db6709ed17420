package sales

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ledgerline/ledgerline/internal/inventory"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service posts sales orders. One sale is one transaction: the order, its
// lines, the FIFO batch draws, the stock ledger entries and the revenue
// plus cost journal entry commit together. A shortfall on any line aborts
// the whole sale.
type Service struct {
	repo        Repository
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	integration IntegrationHandler
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort, idem *shared.IdempotencyStore, integration IntegrationHandler) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, integration: integration}
}

// PostSale allocates stock for each line and posts the sale.
func (s *Service) PostSale(ctx context.Context, input PostSaleInput) (SalesOrder, error) {
	if input.WarehouseID == 0 {
		return SalesOrder{}, errors.New("sales: warehouse required")
	}
	if len(input.Lines) == 0 {
		return SalesOrder{}, ErrNoLines
	}
	if !input.PaymentMethod.Valid() {
		return SalesOrder{}, ErrInvalidPayment
	}
	for _, line := range input.Lines {
		if line.VariantID == 0 || line.Qty <= 0 || line.UnitPrice < 0 {
			return SalesOrder{}, inventory.ErrInvalidQuantity
		}
	}
	postedAt := input.PostedAt
	if postedAt.IsZero() {
		postedAt = time.Now().UTC()
	}
	if input.Code == "" {
		input.Code = fmt.Sprintf("SO-%d", time.Now().UTC().UnixNano())
	}

	var revenue float64
	for _, line := range input.Lines {
		revenue += line.Qty * line.UnitPrice
	}
	revenue = round2(revenue)

	key := fmt.Sprintf("sale:%s", input.Code)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "sales"); err != nil {
			return SalesOrder{}, err
		}
		insertedKey = true
	}

	order := SalesOrder{
		Code:          input.Code,
		Channel:       input.Channel,
		WarehouseID:   input.WarehouseID,
		CustomerName:  input.CustomerName,
		PaymentMethod: input.PaymentMethod,
		Total:         revenue,
		PostedBy:      input.ActorID,
		PostedAt:      postedAt,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		orderID, err := tx.InsertOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = orderID
		ref := inventory.EventRef{Kind: inventory.EventSalesOrder, ID: orderID}
		inv := tx.Inventory()

		var totalCost float64
		for _, in := range input.Lines {
			line := SaleLine{
				OrderID:   orderID,
				VariantID: in.VariantID,
				Qty:       in.Qty,
				UnitPrice: in.UnitPrice,
				LineTotal: round2(in.Qty * in.UnitPrice),
			}
			lineID, err := tx.InsertLine(ctx, line)
			if err != nil {
				return err
			}
			line.ID = lineID

			result, err := inventory.Allocate(ctx, inv, inventory.AllocationInput{
				VariantID:   in.VariantID,
				WarehouseID: input.WarehouseID,
				Qty:         in.Qty,
				SaleLineID:  lineID,
				Ref:         ref,
				OccurredAt:  postedAt,
			})
			if err != nil {
				return err
			}
			line.CostTotal = result.TotalCost
			if err := tx.UpdateLineCost(ctx, lineID, result.TotalCost); err != nil {
				return err
			}
			totalCost += result.TotalCost
			order.Lines = append(order.Lines, line)
		}
		totalCost = round2(totalCost)
		order.TotalCost = totalCost
		if err := tx.UpdateOrderCost(ctx, orderID, totalCost); err != nil {
			return err
		}

		if s.integration != nil {
			evt := SalePostedEvent{
				OrderID:       orderID,
				Code:          order.Code,
				Channel:       order.Channel,
				PaymentMethod: order.PaymentMethod,
				Revenue:       revenue,
				COGS:          totalCost,
				PostedAt:      postedAt,
			}
			if err := s.integration.HandleSalePosted(ctx, tx.Journals(), evt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return SalesOrder{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "sales.post",
			Entity:   "sales_order",
			EntityID: fmt.Sprintf("%d", order.ID),
			Meta: map[string]any{
				"code":    order.Code,
				"channel": order.Channel,
				"revenue": revenue,
				"cogs":    order.TotalCost,
			},
		})
	}
	return order, nil
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]SalesOrder, error) {
	return s.repo.List(ctx, filter)
}

// Get fetches one order with its lines.
func (s *Service) Get(ctx context.Context, orderID int64) (SalesOrder, error) {
	return s.repo.Get(ctx, orderID)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
