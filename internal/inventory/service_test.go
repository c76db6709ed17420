package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/accounting/journals"
	accountingshared "github.com/ledgerline/ledgerline/internal/accounting/shared"
	"github.com/ledgerline/ledgerline/internal/shared"
)

type memoryTx struct {
	batches     []*Batch
	ledger      []LedgerEntry
	allocations []Allocation
	adjustments []AdjustmentInput
	transfers   []TransferInput
	journal     *memoryJournalTx
	nextID      int64
}

func newMemoryTx() *memoryTx {
	return &memoryTx{journal: &memoryJournalTx{}, nextID: 1}
}

func (m *memoryTx) SelectBatchesForUpdate(_ context.Context, variantID, warehouseID int64) ([]Batch, error) {
	var out []Batch
	for _, b := range m.batches {
		if b.VariantID == variantID && b.WarehouseID == warehouseID && b.RemainingQty > 0 {
			out = append(out, *b)
		}
	}
	// FIFO order, oldest first, id breaks ties.
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

func (m *memoryTx) InsertBatch(_ context.Context, batch Batch) (int64, error) {
	batch.ID = m.nextID
	m.nextID++
	m.batches = append(m.batches, &batch)
	return batch.ID, nil
}

func (m *memoryTx) UpdateBatchRemaining(_ context.Context, batchID int64, remaining float64) error {
	for _, b := range m.batches {
		if b.ID == batchID {
			if remaining < 0 || remaining > b.InitialQty {
				return ErrIntegrity
			}
			b.RemainingQty = remaining
			return nil
		}
	}
	return ErrIntegrity
}

func (m *memoryTx) InsertLedgerEntry(_ context.Context, entry LedgerEntry) (int64, error) {
	entry.ID = m.nextID
	m.nextID++
	m.ledger = append(m.ledger, entry)
	return entry.ID, nil
}

func (m *memoryTx) InsertAllocation(_ context.Context, alloc Allocation) (int64, error) {
	alloc.ID = m.nextID
	m.nextID++
	m.allocations = append(m.allocations, alloc)
	return alloc.ID, nil
}

func (m *memoryTx) InsertAdjustmentDoc(_ context.Context, in AdjustmentInput, _ time.Time) (int64, error) {
	id := m.nextID
	m.nextID++
	m.adjustments = append(m.adjustments, in)
	return id, nil
}

func (m *memoryTx) InsertTransferDoc(_ context.Context, in TransferInput, _ time.Time) (int64, error) {
	id := m.nextID
	m.nextID++
	m.transfers = append(m.transfers, in)
	return id, nil
}

func (m *memoryTx) Journals() journals.TxRepository {
	return m.journal
}

type memoryJournalTx struct {
	entries []journals.JournalEntry
	lines   map[int64][]journals.PostingLineInput
	links   map[string]int64
	nextID  int64
}

func (m *memoryJournalTx) InsertJournalEntry(_ context.Context, in journals.PostingInput) (journals.JournalEntry, error) {
	m.nextID++
	entry := journals.JournalEntry{
		ID:           m.nextID,
		Number:       m.nextID,
		Date:         in.Date,
		SourceModule: in.SourceModule,
		SourceID:     in.SourceID,
		Memo:         in.Memo,
		ReversesID:   in.ReversesID,
	}
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *memoryJournalTx) InsertJournalLines(_ context.Context, entryID int64, lines []journals.PostingLineInput) error {
	if m.lines == nil {
		m.lines = map[int64][]journals.PostingLineInput{}
	}
	m.lines[entryID] = append(m.lines[entryID], lines...)
	return nil
}

func (m *memoryJournalTx) LinkSource(_ context.Context, module string, ref uuid.UUID, entryID int64) error {
	if m.links == nil {
		m.links = map[string]int64{}
	}
	key := module + ":" + ref.String()
	if _, ok := m.links[key]; ok {
		return accountingshared.ErrSourceConflict
	}
	m.links[key] = entryID
	return nil
}

func (m *memoryJournalTx) GetJournalWithLines(_ context.Context, entryID int64) (journals.JournalEntry, []journals.JournalLine, error) {
	for _, e := range m.entries {
		if e.ID == entryID {
			return e, nil, nil
		}
	}
	return journals.JournalEntry{}, nil, accountingshared.ErrJournalNotFound
}

type memoryRepo struct {
	mu sync.Mutex
	tx *memoryTx
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{tx: newMemoryTx()}
}

// WithTx serializes callers the way FOR UPDATE row locks do in Postgres,
// so concurrent transactions see each other's committed state.
func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make([]Batch, len(m.tx.batches))
	for i, b := range m.tx.batches {
		snapshot[i] = *b
	}
	ledgerLen := len(m.tx.ledger)
	allocLen := len(m.tx.allocations)
	if err := fn(ctx, m.tx); err != nil {
		for i := range snapshot {
			*m.tx.batches[i] = snapshot[i]
		}
		m.tx.batches = m.tx.batches[:len(snapshot)]
		m.tx.ledger = m.tx.ledger[:ledgerLen]
		m.tx.allocations = m.tx.allocations[:allocLen]
		return err
	}
	return nil
}

func (m *memoryRepo) AvailableQty(_ context.Context, variantID, warehouseID int64) (float64, error) {
	var qty float64
	for _, b := range m.tx.batches {
		if b.VariantID == variantID && b.WarehouseID == warehouseID {
			qty += b.RemainingQty
		}
	}
	return qty, nil
}

func (m *memoryRepo) ListLedger(_ context.Context, filter StockCardFilter) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for _, e := range m.tx.ledger {
		if filter.VariantID != 0 && e.VariantID != filter.VariantID {
			continue
		}
		if filter.WarehouseID != 0 && e.WarehouseID != filter.WarehouseID {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memoryRepo) ListBatches(_ context.Context, variantID, warehouseID int64) ([]Batch, error) {
	var out []Batch
	for _, b := range m.tx.batches {
		if b.VariantID == variantID && b.WarehouseID == warehouseID {
			out = append(out, *b)
		}
	}
	return out, nil
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, shared.AuditLog) error { return nil }

func seedBatch(t *testing.T, tx *memoryTx, variantID, warehouseID int64, cost, qty float64, receivedAt time.Time) int64 {
	t.Helper()
	id, err := tx.InsertBatch(context.Background(), Batch{
		VariantID:    variantID,
		WarehouseID:  warehouseID,
		CostPrice:    cost,
		InitialQty:   qty,
		RemainingQty: qty,
		ReceivedAt:   receivedAt,
	})
	require.NoError(t, err)
	return id
}

func TestReceiveCreatesLayerAndLedgerEntry(t *testing.T) {
	tx := newMemoryTx()
	batch, err := Receive(context.Background(), tx, ReceiptInput{
		VariantID:   1,
		WarehouseID: 1,
		CostPrice:   945.00,
		Qty:         5,
		ArrivedAt:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Ref:         EventRef{Kind: EventPurchaseLot, ID: 7},
	})
	require.NoError(t, err)
	require.Equal(t, 5.0, batch.RemainingQty)
	require.Equal(t, batch.InitialQty, batch.RemainingQty)

	require.Len(t, tx.ledger, 1)
	entry := tx.ledger[0]
	require.Equal(t, EntryTypePurchaseIn, entry.Type)
	require.Equal(t, 5.0, entry.QtyChange)
	require.Equal(t, EventPurchaseLot, entry.Ref.Kind)
	require.Equal(t, int64(7), entry.Ref.ID)
}

func TestReceiveRejectsInvalidInput(t *testing.T) {
	tx := newMemoryTx()
	ref := EventRef{Kind: EventPurchaseLot, ID: 1}

	_, err := Receive(context.Background(), tx, ReceiptInput{VariantID: 1, WarehouseID: 1, Qty: 0, Ref: ref})
	require.ErrorIs(t, err, ErrInvalidReceipt)

	_, err = Receive(context.Background(), tx, ReceiptInput{VariantID: 1, WarehouseID: 1, Qty: 5, CostPrice: -1, Ref: ref})
	require.ErrorIs(t, err, ErrInvalidReceipt)

	_, err = Receive(context.Background(), tx, ReceiptInput{VariantID: 1, WarehouseID: 1, Qty: 5, Ref: EventRef{Kind: "shipment", ID: 1}})
	require.ErrorIs(t, err, ErrInvalidRef)

	require.Empty(t, tx.batches)
	require.Empty(t, tx.ledger)
}

func TestAllocateDrawsOldestBatchFirst(t *testing.T) {
	tx := newMemoryTx()
	t1 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	b1 := seedBatch(t, tx, 1, 1, 100.00, 5, t1)
	b2 := seedBatch(t, tx, 1, 1, 120.00, 5, t2)

	result, err := Allocate(context.Background(), tx, AllocationInput{
		VariantID:   1,
		WarehouseID: 1,
		Qty:         7,
		SaleLineID:  42,
		Ref:         EventRef{Kind: EventSalesOrder, ID: 9},
	})
	require.NoError(t, err)

	require.Len(t, result.Draws, 2)
	require.Equal(t, b1, result.Draws[0].BatchID)
	require.Equal(t, 5.0, result.Draws[0].Qty)
	require.Equal(t, b2, result.Draws[1].BatchID)
	require.Equal(t, 2.0, result.Draws[1].Qty)
	require.Equal(t, 740.00, result.TotalCost)

	require.Equal(t, 0.0, tx.batches[0].RemainingQty)
	require.Equal(t, 3.0, tx.batches[1].RemainingQty)

	require.Len(t, tx.allocations, 2)
	for _, alloc := range tx.allocations {
		require.Equal(t, int64(42), alloc.SaleLineID)
	}
	require.Equal(t, 100.00, tx.allocations[0].CostPerUnit)
	require.Equal(t, 120.00, tx.allocations[1].CostPerUnit)
}

func TestAllocateOrdersByArrivalNotInsertion(t *testing.T) {
	tx := newMemoryTx()
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	// Inserted newest first; draw must still start from the older arrival.
	seedBatch(t, tx, 1, 1, 200.00, 4, newer)
	olderID := seedBatch(t, tx, 1, 1, 150.00, 4, older)

	result, err := Allocate(context.Background(), tx, AllocationInput{
		VariantID:   1,
		WarehouseID: 1,
		Qty:         3,
		SaleLineID:  1,
		Ref:         EventRef{Kind: EventSalesOrder, ID: 1},
	})
	require.NoError(t, err)
	require.Len(t, result.Draws, 1)
	require.Equal(t, olderID, result.Draws[0].BatchID)
	require.Equal(t, 450.00, result.TotalCost)
}

func TestAllocateOutOfStockLeavesNothingWritten(t *testing.T) {
	tx := newMemoryTx()
	seedBatch(t, tx, 1, 1, 50.00, 100, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	_, err := Allocate(context.Background(), tx, AllocationInput{
		VariantID:   1,
		WarehouseID: 1,
		Qty:         150,
		SaleLineID:  1,
		Ref:         EventRef{Kind: EventSalesOrder, ID: 1},
	})
	require.ErrorIs(t, err, ErrOutOfStock)

	require.Equal(t, 100.0, tx.batches[0].RemainingQty)
	require.Empty(t, tx.ledger)
	require.Empty(t, tx.allocations)
}

func TestAllocateConservesValue(t *testing.T) {
	tx := newMemoryTx()
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedBatch(t, tx, 1, 1, 945.00, 10, t1)
	seedBatch(t, tx, 1, 1, 960.00, 10, t1.AddDate(0, 0, 5))
	initialValue := 10*945.00 + 10*960.00

	result, err := Allocate(context.Background(), tx, AllocationInput{
		VariantID:   1,
		WarehouseID: 1,
		Qty:         13,
		SaleLineID:  1,
		Ref:         EventRef{Kind: EventSalesOrder, ID: 1},
	})
	require.NoError(t, err)

	var remainingValue float64
	for _, b := range tx.batches {
		remainingValue += b.RemainingQty * b.CostPrice
	}
	require.InDelta(t, initialValue, result.TotalCost+remainingValue, 0.001)
	require.Equal(t, 10*945.00+3*960.00, result.TotalCost)
}

func TestAllocateFractionalQuantities(t *testing.T) {
	tx := newMemoryTx()
	seedBatch(t, tx, 1, 1, 10.00, 0.3, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	seedBatch(t, tx, 1, 1, 10.00, 0.3, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))

	result, err := Allocate(context.Background(), tx, AllocationInput{
		VariantID:   1,
		WarehouseID: 1,
		Qty:         0.6,
		SaleLineID:  1,
		Ref:         EventRef{Kind: EventSalesOrder, ID: 1},
	})
	require.NoError(t, err)
	require.Len(t, result.Draws, 2)
	require.Equal(t, 6.00, result.TotalCost)
}

func TestServiceAdjustmentLossDepletesFIFO(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, noopAudit{}, nil, nil)
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedBatch(t, repo.tx, 1, 1, 100.00, 5, t1)
	seedBatch(t, repo.tx, 1, 1, 110.00, 5, t1.AddDate(0, 0, 1))

	_, err := svc.PostAdjustment(context.Background(), AdjustmentInput{
		VariantID:   1,
		WarehouseID: 1,
		Qty:         -6,
		Note:        "cycle count shortfall",
	})
	require.NoError(t, err)

	require.Equal(t, 0.0, repo.tx.batches[0].RemainingQty)
	require.Equal(t, 4.0, repo.tx.batches[1].RemainingQty)
	for _, e := range repo.tx.ledger {
		require.Equal(t, EntryTypeAdjustment, e.Type)
	}
}

func TestServiceAdjustmentGainCreatesLayer(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, noopAudit{}, nil, nil)

	_, err := svc.PostAdjustment(context.Background(), AdjustmentInput{
		VariantID:   1,
		WarehouseID: 1,
		Qty:         3,
		UnitCost:    80.00,
		Note:        "found stock",
	})
	require.NoError(t, err)

	require.Len(t, repo.tx.batches, 1)
	require.Equal(t, 3.0, repo.tx.batches[0].RemainingQty)
	require.Equal(t, 80.00, repo.tx.batches[0].CostPrice)

	qty, err := svc.AvailableQty(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Equal(t, 3.0, qty)
}

func TestServiceAdjustmentOverdrawRollsBack(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, noopAudit{}, nil, nil)
	seedBatch(t, repo.tx, 1, 1, 100.00, 2, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	_, err := svc.PostAdjustment(context.Background(), AdjustmentInput{
		VariantID:   1,
		WarehouseID: 1,
		Qty:         -5,
	})
	require.ErrorIs(t, err, ErrOutOfStock)
	require.Equal(t, 2.0, repo.tx.batches[0].RemainingQty)
	require.Empty(t, repo.tx.ledger)
}

func TestServiceTransferPreservesCostAndAge(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, noopAudit{}, nil, nil)
	receivedAt := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	seedBatch(t, repo.tx, 1, 1, 945.00, 5, receivedAt)

	draws, err := svc.PostTransfer(context.Background(), TransferInput{
		VariantID:    1,
		SrcWarehouse: 1,
		DstWarehouse: 2,
		Qty:          2,
	})
	require.NoError(t, err)
	require.Len(t, draws, 1)

	require.Len(t, repo.tx.ledger, 2)
	for _, e := range repo.tx.ledger {
		require.Equal(t, EntryTypeTransfer, e.Type)
		require.Equal(t, EventTransfer, e.Ref.Kind)
		require.Greater(t, e.Ref.ID, int64(0))
	}

	srcQty, err := svc.AvailableQty(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Equal(t, 3.0, srcQty)

	dstBatches, err := svc.Batches(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, dstBatches, 1)
	require.Equal(t, 945.00, dstBatches[0].CostPrice)
	require.True(t, dstBatches[0].ReceivedAt.Equal(receivedAt))
}

func TestServiceTransferSameWarehouseRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, noopAudit{}, nil, nil)
	seedBatch(t, repo.tx, 1, 1, 10.00, 5, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	_, err := svc.PostTransfer(context.Background(), TransferInput{
		VariantID:    1,
		SrcWarehouse: 1,
		DstWarehouse: 1,
		Qty:          2,
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAllocateConcurrentNeverOverdraws(t *testing.T) {
	repo := newMemoryRepo()
	seedBatch(t, repo.tx, 1, 1, 100.00, 5, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	const workers = 12
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 1; i <= workers; i++ {
		wg.Add(1)
		go func(line int64) {
			defer wg.Done()
			errs <- repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
				_, err := Allocate(ctx, tx, AllocationInput{
					VariantID:   1,
					WarehouseID: 1,
					Qty:         1,
					SaleLineID:  line,
					Ref:         EventRef{Kind: EventSalesOrder, ID: line},
				})
				return err
			})
		}(int64(i))
	}
	wg.Wait()
	close(errs)

	var allocated, rejected int
	for err := range errs {
		switch {
		case err == nil:
			allocated++
		case errors.Is(err, ErrOutOfStock):
			rejected++
		default:
			t.Fatalf("unexpected allocation error: %v", err)
		}
	}
	require.Equal(t, 5, allocated)
	require.Equal(t, workers-5, rejected)

	qty, err := repo.AvailableQty(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Equal(t, 0.0, qty)
	for _, b := range repo.tx.batches {
		require.GreaterOrEqual(t, b.RemainingQty, 0.0)
	}
}
