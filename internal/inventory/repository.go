package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/accounting/journals"
	"github.com/ledgerline/ledgerline/internal/platform/db"
)

// TxRepository exposes transactional operations used by the engine. The
// journal port is bound to the same transaction, so a movement and its
// accounting entry commit or roll back together.
type TxRepository interface {
	SelectBatchesForUpdate(ctx context.Context, variantID, warehouseID int64) ([]Batch, error)
	InsertBatch(ctx context.Context, batch Batch) (int64, error)
	UpdateBatchRemaining(ctx context.Context, batchID int64, remaining float64) error
	InsertLedgerEntry(ctx context.Context, entry LedgerEntry) (int64, error)
	InsertAllocation(ctx context.Context, alloc Allocation) (int64, error)
	InsertAdjustmentDoc(ctx context.Context, in AdjustmentInput, postedAt time.Time) (int64, error)
	InsertTransferDoc(ctx context.Context, in TransferInput, postedAt time.Time) (int64, error)
	Journals() journals.TxRepository
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	AvailableQty(ctx context.Context, variantID, warehouseID int64) (float64, error)
	ListLedger(ctx context.Context, filter StockCardFilter) ([]LedgerEntry, error)
	ListBatches(ctx context.Context, variantID, warehouseID int64) ([]Batch, error)
}

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// NewTxRepository wraps an existing transaction with inventory operations.
// Purchasing and sales use this to fold stock movements into their own
// document transactions.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepo{tx: tx}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// AvailableQty sums remaining quantities across all layers for the key.
// Runs without locks; writers may shift the value a moment later.
func (r *Repository) AvailableQty(ctx context.Context, variantID, warehouseID int64) (float64, error) {
	var qty float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(remaining_qty), 0) FROM inventory_batches WHERE variant_id=$1 AND warehouse_id=$2`, variantID, warehouseID).Scan(&qty)
	if err != nil {
		return 0, err
	}
	return qty, nil
}

// ListLedger returns ledger entries matching the filter, newest first.
func (r *Repository) ListLedger(ctx context.Context, filter StockCardFilter) ([]LedgerEntry, error) {
	query := `SELECT id, variant_id, warehouse_id, batch_id, entry_type, qty_change, ref_kind, ref_id, note, occurred_at, created_at FROM stock_ledger WHERE 1=1`
	args := []any{}
	idx := 1
	if filter.VariantID != 0 {
		query += fmt.Sprintf(" AND variant_id = $%d", idx)
		args = append(args, filter.VariantID)
		idx++
	}
	if filter.WarehouseID != 0 {
		query += fmt.Sprintf(" AND warehouse_id = $%d", idx)
		args = append(args, filter.WarehouseID)
		idx++
	}
	if filter.Type != "" {
		query += fmt.Sprintf(" AND entry_type = $%d", idx)
		args = append(args, string(filter.Type))
		idx++
	}
	if !filter.From.IsZero() {
		query += fmt.Sprintf(" AND occurred_at >= $%d", idx)
		args = append(args, filter.From)
		idx++
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(" AND occurred_at <= $%d", idx)
		args = append(args, filter.To)
		idx++
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	query += fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var refKind string
		if err := rows.Scan(&e.ID, &e.VariantID, &e.WarehouseID, &e.BatchID, &e.Type, &e.QtyChange, &refKind, &e.Ref.ID, &e.Note, &e.OccurredAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Ref.Kind = EventKind(refKind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListBatches returns all layers for the key in FIFO order, including
// exhausted ones.
func (r *Repository) ListBatches(ctx context.Context, variantID, warehouseID int64) ([]Batch, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, variant_id, warehouse_id, cost_price, initial_qty, remaining_qty, received_at, created_at
FROM inventory_batches WHERE variant_id=$1 AND warehouse_id=$2 ORDER BY received_at ASC, id ASC`, variantID, warehouseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var batches []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.VariantID, &b.WarehouseID, &b.CostPrice, &b.InitialQty, &b.RemainingQty, &b.ReceivedAt, &b.CreatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

// SelectBatchesForUpdate locks open layers for the key in FIFO order.
// The fixed (received_at, id) lock order keeps concurrent allocations on
// overlapping batch sets from deadlocking.
func (r *txRepo) SelectBatchesForUpdate(ctx context.Context, variantID, warehouseID int64) ([]Batch, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, variant_id, warehouse_id, cost_price, initial_qty, remaining_qty, received_at, created_at
FROM inventory_batches WHERE variant_id=$1 AND warehouse_id=$2 AND remaining_qty > 0 ORDER BY received_at ASC, id ASC FOR UPDATE`, variantID, warehouseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var batches []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.VariantID, &b.WarehouseID, &b.CostPrice, &b.InitialQty, &b.RemainingQty, &b.ReceivedAt, &b.CreatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (r *txRepo) InsertBatch(ctx context.Context, batch Batch) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_batches (variant_id, warehouse_id, cost_price, initial_qty, remaining_qty, received_at)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`, batch.VariantID, batch.WarehouseID, toNumeric(batch.CostPrice), batch.InitialQty, batch.RemainingQty, batch.ReceivedAt).Scan(&id)
	return id, err
}

func (r *txRepo) UpdateBatchRemaining(ctx context.Context, batchID int64, remaining float64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE inventory_batches SET remaining_qty=$2 WHERE id=$1 AND $2 >= 0 AND $2 <= initial_qty`, batchID, remaining)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrIntegrity
	}
	return nil
}

func (r *txRepo) InsertLedgerEntry(ctx context.Context, entry LedgerEntry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_ledger (variant_id, warehouse_id, batch_id, entry_type, qty_change, ref_kind, ref_id, note, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		entry.VariantID, entry.WarehouseID, entry.BatchID, string(entry.Type), entry.QtyChange, string(entry.Ref.Kind), entry.Ref.ID, entry.Note, entry.OccurredAt).Scan(&id)
	return id, err
}

func (r *txRepo) InsertAllocation(ctx context.Context, alloc Allocation) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sale_allocations (sale_line_id, batch_id, qty_deducted, cost_per_unit)
VALUES ($1,$2,$3,$4) RETURNING id`, alloc.SaleLineID, alloc.BatchID, alloc.QtyDeducted, toNumeric(alloc.CostPerUnit)).Scan(&id)
	return id, err
}

func (r *txRepo) InsertAdjustmentDoc(ctx context.Context, in AdjustmentInput, postedAt time.Time) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_adjustments (code, variant_id, warehouse_id, qty, unit_cost, note, posted_by, posted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`, in.Code, in.VariantID, in.WarehouseID, in.Qty, toNumeric(in.UnitCost), in.Note, nullInt(in.ActorID), postedAt).Scan(&id)
	return id, err
}

func (r *txRepo) InsertTransferDoc(ctx context.Context, in TransferInput, postedAt time.Time) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_transfers (code, variant_id, src_warehouse_id, dst_warehouse_id, qty, note, posted_by, posted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`, in.Code, in.VariantID, in.SrcWarehouse, in.DstWarehouse, in.Qty, in.Note, nullInt(in.ActorID), postedAt).Scan(&id)
	return id, err
}

func (r *txRepo) Journals() journals.TxRepository {
	return journals.NewTxRepository(r.tx)
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}
