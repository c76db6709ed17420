package sales

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/accounting/journals"
	"github.com/ledgerline/ledgerline/internal/inventory"
)

type memoryInventoryTx struct {
	batches     []*inventory.Batch
	ledger      []inventory.LedgerEntry
	allocations []inventory.Allocation
	nextID      int64
}

func (m *memoryInventoryTx) SelectBatchesForUpdate(_ context.Context, variantID, warehouseID int64) ([]inventory.Batch, error) {
	var out []inventory.Batch
	for _, b := range m.batches {
		if b.VariantID == variantID && b.WarehouseID == warehouseID && b.RemainingQty > 0 {
			out = append(out, *b)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			a, b := out[j-1], out[j]
			if b.ReceivedAt.Before(a.ReceivedAt) || (b.ReceivedAt.Equal(a.ReceivedAt) && b.ID < a.ID) {
				out[j-1], out[j] = b, a
			}
		}
	}
	return out, nil
}

func (m *memoryInventoryTx) InsertBatch(_ context.Context, batch inventory.Batch) (int64, error) {
	m.nextID++
	batch.ID = m.nextID
	m.batches = append(m.batches, &batch)
	return batch.ID, nil
}

func (m *memoryInventoryTx) UpdateBatchRemaining(_ context.Context, batchID int64, remaining float64) error {
	for _, b := range m.batches {
		if b.ID == batchID {
			b.RemainingQty = remaining
			return nil
		}
	}
	return inventory.ErrIntegrity
}

func (m *memoryInventoryTx) InsertLedgerEntry(_ context.Context, entry inventory.LedgerEntry) (int64, error) {
	m.nextID++
	m.ledger = append(m.ledger, entry)
	return m.nextID, nil
}

func (m *memoryInventoryTx) InsertAllocation(_ context.Context, alloc inventory.Allocation) (int64, error) {
	m.nextID++
	alloc.ID = m.nextID
	m.allocations = append(m.allocations, alloc)
	return alloc.ID, nil
}

func (m *memoryInventoryTx) InsertAdjustmentDoc(context.Context, inventory.AdjustmentInput, time.Time) (int64, error) {
	return 0, nil
}

func (m *memoryInventoryTx) InsertTransferDoc(context.Context, inventory.TransferInput, time.Time) (int64, error) {
	return 0, nil
}

func (m *memoryInventoryTx) Journals() journals.TxRepository { return nil }

type memoryTx struct {
	orders    []SalesOrder
	lines     []SaleLine
	inventory *memoryInventoryTx
	nextID    int64
}

func (m *memoryTx) InsertOrder(_ context.Context, order SalesOrder) (int64, error) {
	for _, existing := range m.orders {
		if existing.Code == order.Code {
			return 0, ErrDuplicateCode
		}
	}
	m.nextID++
	order.ID = m.nextID
	m.orders = append(m.orders, order)
	return order.ID, nil
}

func (m *memoryTx) InsertLine(_ context.Context, line SaleLine) (int64, error) {
	m.nextID++
	line.ID = m.nextID
	m.lines = append(m.lines, line)
	return line.ID, nil
}

func (m *memoryTx) UpdateLineCost(_ context.Context, lineID int64, costTotal float64) error {
	for i := range m.lines {
		if m.lines[i].ID == lineID {
			m.lines[i].CostTotal = costTotal
			return nil
		}
	}
	return ErrOrderNotFound
}

func (m *memoryTx) UpdateOrderCost(_ context.Context, orderID int64, totalCost float64) error {
	for i := range m.orders {
		if m.orders[i].ID == orderID {
			m.orders[i].TotalCost = totalCost
			return nil
		}
	}
	return ErrOrderNotFound
}

func (m *memoryTx) Inventory() inventory.TxRepository { return m.inventory }

func (m *memoryTx) Journals() journals.TxRepository { return nil }

type memoryRepo struct {
	tx *memoryTx
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{tx: &memoryTx{inventory: &memoryInventoryTx{}}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	ordersLen := len(m.tx.orders)
	linesLen := len(m.tx.lines)
	ledgerLen := len(m.tx.inventory.ledger)
	allocLen := len(m.tx.inventory.allocations)
	snapshot := make([]inventory.Batch, len(m.tx.inventory.batches))
	for i, b := range m.tx.inventory.batches {
		snapshot[i] = *b
	}
	if err := fn(ctx, m.tx); err != nil {
		m.tx.orders = m.tx.orders[:ordersLen]
		m.tx.lines = m.tx.lines[:linesLen]
		m.tx.inventory.ledger = m.tx.inventory.ledger[:ledgerLen]
		m.tx.inventory.allocations = m.tx.inventory.allocations[:allocLen]
		for i := range snapshot {
			*m.tx.inventory.batches[i] = snapshot[i]
		}
		m.tx.inventory.batches = m.tx.inventory.batches[:len(snapshot)]
		return err
	}
	return nil
}

func (m *memoryRepo) List(_ context.Context, _ ListFilter) ([]SalesOrder, error) {
	return m.tx.orders, nil
}

func (m *memoryRepo) Get(_ context.Context, orderID int64) (SalesOrder, error) {
	for _, order := range m.tx.orders {
		if order.ID == orderID {
			return order, nil
		}
	}
	return SalesOrder{}, ErrOrderNotFound
}

type capturingHooks struct {
	events []SalePostedEvent
}

func (h *capturingHooks) HandleSalePosted(_ context.Context, _ journals.TxRepository, evt SalePostedEvent) error {
	h.events = append(h.events, evt)
	return nil
}

func seedBatch(t *testing.T, m *memoryInventoryTx, variantID, warehouseID int64, cost, qty float64, receivedAt time.Time) {
	t.Helper()
	_, err := m.InsertBatch(context.Background(), inventory.Batch{
		VariantID:    variantID,
		WarehouseID:  warehouseID,
		CostPrice:    cost,
		InitialQty:   qty,
		RemainingQty: qty,
		ReceivedAt:   receivedAt,
	})
	require.NoError(t, err)
}

func TestPostSaleAllocatesAndEmitsCOGS(t *testing.T) {
	repo := newMemoryRepo()
	hooks := &capturingHooks{}
	svc := NewService(repo, nil, nil, hooks)
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedBatch(t, repo.tx.inventory, 10, 1, 945.00, 5, t1)
	seedBatch(t, repo.tx.inventory, 10, 1, 960.00, 5, t1.AddDate(0, 0, 10))

	order, err := svc.PostSale(context.Background(), PostSaleInput{
		Code:          "SO-2026-001",
		Channel:       "retail",
		WarehouseID:   1,
		PaymentMethod: PaymentCash,
		Lines: []PostSaleLineInput{
			{VariantID: 10, Qty: 7, UnitPrice: 1500.00},
		},
	})
	require.NoError(t, err)

	require.Equal(t, 10500.00, order.Total)
	// 5 @ 945 from the older layer, 2 @ 960 from the newer.
	require.Equal(t, 6645.00, order.TotalCost)
	require.Len(t, order.Lines, 1)
	require.Equal(t, 6645.00, order.Lines[0].CostTotal)

	require.Len(t, hooks.events, 1)
	require.Equal(t, 10500.00, hooks.events[0].Revenue)
	require.Equal(t, 6645.00, hooks.events[0].COGS)
	require.Equal(t, PaymentCash, hooks.events[0].PaymentMethod)

	require.Equal(t, 0.0, repo.tx.inventory.batches[0].RemainingQty)
	require.Equal(t, 3.0, repo.tx.inventory.batches[1].RemainingQty)
	require.Len(t, repo.tx.inventory.allocations, 2)
}

func TestPostSaleMultiLine(t *testing.T) {
	repo := newMemoryRepo()
	hooks := &capturingHooks{}
	svc := NewService(repo, nil, nil, hooks)
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedBatch(t, repo.tx.inventory, 10, 1, 100.00, 10, t1)
	seedBatch(t, repo.tx.inventory, 11, 1, 50.00, 10, t1)

	order, err := svc.PostSale(context.Background(), PostSaleInput{
		Code:          "SO-2026-002",
		Channel:       "wholesale",
		WarehouseID:   1,
		PaymentMethod: PaymentCredit,
		Lines: []PostSaleLineInput{
			{VariantID: 10, Qty: 2, UnitPrice: 150.00},
			{VariantID: 11, Qty: 4, UnitPrice: 80.00},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 620.00, order.Total)
	require.Equal(t, 400.00, order.TotalCost)
}

func TestPostSaleOutOfStockAbortsWholeSale(t *testing.T) {
	repo := newMemoryRepo()
	hooks := &capturingHooks{}
	svc := NewService(repo, nil, nil, hooks)
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedBatch(t, repo.tx.inventory, 10, 1, 100.00, 10, t1)
	seedBatch(t, repo.tx.inventory, 11, 1, 50.00, 1, t1)

	_, err := svc.PostSale(context.Background(), PostSaleInput{
		Code:          "SO-2026-003",
		Channel:       "retail",
		WarehouseID:   1,
		PaymentMethod: PaymentCash,
		Lines: []PostSaleLineInput{
			{VariantID: 10, Qty: 2, UnitPrice: 150.00},
			{VariantID: 11, Qty: 5, UnitPrice: 80.00},
		},
	})
	require.ErrorIs(t, err, inventory.ErrOutOfStock)

	// The first line's draw must roll back with the order.
	require.Empty(t, repo.tx.orders)
	require.Empty(t, repo.tx.lines)
	require.Empty(t, repo.tx.inventory.allocations)
	require.Equal(t, 10.0, repo.tx.inventory.batches[0].RemainingQty)
	require.Equal(t, 1.0, repo.tx.inventory.batches[1].RemainingQty)
	require.Empty(t, hooks.events)
}

func TestPostSaleRejectsInvalidPayment(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)
	_, err := svc.PostSale(context.Background(), PostSaleInput{
		Code:          "SO-2026-004",
		Channel:       "retail",
		WarehouseID:   1,
		PaymentMethod: "barter",
		Lines:         []PostSaleLineInput{{VariantID: 10, Qty: 1, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, ErrInvalidPayment)
}

func TestPostSaleRejectsEmptyLines(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)
	_, err := svc.PostSale(context.Background(), PostSaleInput{
		Code:          "SO-2026-005",
		Channel:       "retail",
		WarehouseID:   1,
		PaymentMethod: PaymentCash,
	})
	require.ErrorIs(t, err, ErrNoLines)
}

func TestPostSaleDuplicateCode(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	seedBatch(t, repo.tx.inventory, 10, 1, 100.00, 10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	input := PostSaleInput{
		Code:          "SO-2026-006",
		Channel:       "retail",
		WarehouseID:   1,
		PaymentMethod: PaymentCash,
		Lines:         []PostSaleLineInput{{VariantID: 10, Qty: 1, UnitPrice: 10}},
	}
	_, err := svc.PostSale(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.PostSale(context.Background(), input)
	require.ErrorIs(t, err, ErrDuplicateCode)
	require.Len(t, repo.tx.orders, 1)
}
