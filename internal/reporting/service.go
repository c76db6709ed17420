// Package reporting serves read-only aggregates over the stock ledger and
// the journal. Nothing here mutates state.
package reporting

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store abstracts the report queries.
type Store interface {
	StockSummary(ctx context.Context, warehouseID int64) ([]StockSummaryRow, error)
	TrialBalance(ctx context.Context, period Period) ([]TrialBalanceRow, error)
	StockCard(ctx context.Context, variantID, warehouseID int64, period Period) ([]StockCardRow, error)
}

// Service wraps Store.
type Service struct {
	store Store
}

// NewService builds Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// StockSummary lists on-hand positions, optionally scoped to a warehouse.
func (s *Service) StockSummary(ctx context.Context, warehouseID int64) ([]StockSummaryRow, error) {
	return s.store.StockSummary(ctx, warehouseID)
}

// TrialBalance sums posted debits and credits per account for the period.
func (s *Service) TrialBalance(ctx context.Context, period Period) ([]TrialBalanceRow, error) {
	return s.store.TrialBalance(ctx, period)
}

// StockCard lists the movements of one variant for the period.
func (s *Service) StockCard(ctx context.Context, variantID, warehouseID int64, period Period) ([]StockCardRow, error) {
	return s.store.StockCard(ctx, variantID, warehouseID, period)
}

type pgStore struct {
	pool *pgxpool.Pool
}

// NewStore constructs the PostgreSQL store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) StockSummary(ctx context.Context, warehouseID int64) ([]StockSummaryRow, error) {
	query := `SELECT variant_id, warehouse_id, COALESCE(SUM(remaining_qty), 0), COALESCE(SUM(remaining_qty * cost_price), 0)
FROM inventory_batches`
	args := []any{}
	if warehouseID != 0 {
		query += ` WHERE warehouse_id = $1`
		args = append(args, warehouseID)
	}
	query += ` GROUP BY variant_id, warehouse_id ORDER BY variant_id, warehouse_id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StockSummaryRow
	for rows.Next() {
		var row StockSummaryRow
		if err := rows.Scan(&row.VariantID, &row.WarehouseID, &row.OnHandQty, &row.Value); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *pgStore) TrialBalance(ctx context.Context, period Period) ([]TrialBalanceRow, error) {
	query := `SELECT a.id, a.code, a.name, COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM accounts a
JOIN journal_lines l ON l.account_id = a.id
JOIN journal_entries e ON e.id = l.je_id
WHERE 1=1`
	args := []any{}
	idx := 1
	if !period.From.IsZero() {
		query += fmt.Sprintf(" AND e.date >= $%d", idx)
		args = append(args, period.From)
		idx++
	}
	if !period.To.IsZero() {
		query += fmt.Sprintf(" AND e.date <= $%d", idx)
		args = append(args, period.To)
		idx++
	}
	query += ` GROUP BY a.id, a.code, a.name ORDER BY a.code`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TrialBalanceRow
	for rows.Next() {
		var row TrialBalanceRow
		if err := rows.Scan(&row.AccountID, &row.AccountCode, &row.AccountName, &row.Debit, &row.Credit); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *pgStore) StockCard(ctx context.Context, variantID, warehouseID int64, period Period) ([]StockCardRow, error) {
	query := `SELECT id, variant_id, warehouse_id, entry_type, qty_change, ref_kind, ref_id, note, occurred_at
FROM stock_ledger WHERE variant_id = $1`
	args := []any{variantID}
	idx := 2
	if warehouseID != 0 {
		query += fmt.Sprintf(" AND warehouse_id = $%d", idx)
		args = append(args, warehouseID)
		idx++
	}
	if !period.From.IsZero() {
		query += fmt.Sprintf(" AND occurred_at >= $%d", idx)
		args = append(args, period.From)
		idx++
	}
	if !period.To.IsZero() {
		query += fmt.Sprintf(" AND occurred_at <= $%d", idx)
		args = append(args, period.To)
		idx++
	}
	query += ` ORDER BY occurred_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StockCardRow
	for rows.Next() {
		var row StockCardRow
		if err := rows.Scan(&row.EntryID, &row.VariantID, &row.WarehouseID, &row.EntryType, &row.QtyChange, &row.RefKind, &row.RefID, &row.Note, &row.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
