package purchasing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/accounting/journals"
	"github.com/ledgerline/ledgerline/internal/inventory"
	"github.com/ledgerline/ledgerline/internal/platform/db"
)

// TxRepository exposes the operations of one receipt transaction. The
// inventory and journal ports share the transaction.
type TxRepository interface {
	InsertLot(ctx context.Context, lot PurchaseLot) (int64, error)
	Inventory() inventory.TxRepository
	Journals() journals.TxRepository
}

// Repository abstracts persistence for the service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]PurchaseLot, error)
	Get(ctx context.Context, lotID int64) (PurchaseLot, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const lotColumns = `id, code, variant_id, warehouse_id, supplier_name, foreign_total_cost, fx_rate, freight_extra_cost, quantity, unit_cost, total_cost, arrived_at, note, received_by, created_at`

func (r *repository) List(ctx context.Context, filter ListFilter) ([]PurchaseLot, error) {
	query := `SELECT ` + lotColumns + ` FROM purchase_lots WHERE 1=1`
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
	if !filter.From.IsZero() {
		query += fmt.Sprintf(" AND arrived_at >= $%d", idx)
		args = append(args, filter.From)
		idx++
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(" AND arrived_at <= $%d", idx)
		args = append(args, filter.To)
		idx++
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY arrived_at DESC, id DESC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lots []PurchaseLot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

func (r *repository) Get(ctx context.Context, lotID int64) (PurchaseLot, error) {
	row := r.db.QueryRow(ctx, `SELECT `+lotColumns+` FROM purchase_lots WHERE id=$1`, lotID)
	lot, err := scanLot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseLot{}, ErrLotNotFound
		}
		return PurchaseLot{}, err
	}
	return lot, nil
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertLot(ctx context.Context, lot PurchaseLot) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchase_lots (code, variant_id, warehouse_id, supplier_name, foreign_total_cost, fx_rate, freight_extra_cost, quantity, unit_cost, total_cost, arrived_at, note, received_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING id`,
		lot.Code, lot.VariantID, lot.WarehouseID, lot.SupplierName,
		toNumeric(lot.ForeignTotalCost), lot.FXRate, toNumeric(lot.FreightExtraCost),
		lot.Quantity, toNumeric(lot.UnitCost), toNumeric(lot.TotalCost),
		lot.ArrivedAt, lot.Note, nullInt(lot.ReceivedBy)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateCode
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) Inventory() inventory.TxRepository {
	return inventory.NewTxRepository(r.tx)
}

func (r *txRepository) Journals() journals.TxRepository {
	return journals.NewTxRepository(r.tx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLot(row rowScanner) (PurchaseLot, error) {
	var lot PurchaseLot
	var receivedBy *int64
	err := row.Scan(&lot.ID, &lot.Code, &lot.VariantID, &lot.WarehouseID, &lot.SupplierName,
		&lot.ForeignTotalCost, &lot.FXRate, &lot.FreightExtraCost, &lot.Quantity,
		&lot.UnitCost, &lot.TotalCost, &lot.ArrivedAt, &lot.Note, &receivedBy, &lot.CreatedAt)
	if err != nil {
		return PurchaseLot{}, err
	}
	if receivedBy != nil {
		lot.ReceivedBy = *receivedBy
	}
	return lot, nil
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
