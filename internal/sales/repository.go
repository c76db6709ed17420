package sales

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

// TxRepository exposes the operations of one sale transaction.
type TxRepository interface {
	InsertOrder(ctx context.Context, order SalesOrder) (int64, error)
	InsertLine(ctx context.Context, line SaleLine) (int64, error)
	UpdateLineCost(ctx context.Context, lineID int64, costTotal float64) error
	UpdateOrderCost(ctx context.Context, orderID int64, totalCost float64) error
	Inventory() inventory.TxRepository
	Journals() journals.TxRepository
}

// Repository abstracts persistence for the service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]SalesOrder, error)
	Get(ctx context.Context, orderID int64) (SalesOrder, error)
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

func (r *repository) List(ctx context.Context, filter ListFilter) ([]SalesOrder, error) {
	query := `SELECT id, code, channel, warehouse_id, customer_name, payment_method, total, total_cost, posted_by, posted_at, created_at FROM sales_orders WHERE 1=1`
	args := []any{}
	idx := 1
	if filter.Channel != "" {
		query += fmt.Sprintf(" AND channel = $%d", idx)
		args = append(args, filter.Channel)
		idx++
	}
	if filter.WarehouseID != 0 {
		query += fmt.Sprintf(" AND warehouse_id = $%d", idx)
		args = append(args, filter.WarehouseID)
		idx++
	}
	if !filter.From.IsZero() {
		query += fmt.Sprintf(" AND posted_at >= $%d", idx)
		args = append(args, filter.From)
		idx++
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(" AND posted_at <= $%d", idx)
		args = append(args, filter.To)
		idx++
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY posted_at DESC, id DESC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []SalesOrder
	for rows.Next() {
		var o SalesOrder
		var postedBy *int64
		if err := rows.Scan(&o.ID, &o.Code, &o.Channel, &o.WarehouseID, &o.CustomerName, &o.PaymentMethod, &o.Total, &o.TotalCost, &postedBy, &o.PostedAt, &o.CreatedAt); err != nil {
			return nil, err
		}
		if postedBy != nil {
			o.PostedBy = *postedBy
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *repository) Get(ctx context.Context, orderID int64) (SalesOrder, error) {
	var o SalesOrder
	var postedBy *int64
	err := r.db.QueryRow(ctx, `SELECT id, code, channel, warehouse_id, customer_name, payment_method, total, total_cost, posted_by, posted_at, created_at FROM sales_orders WHERE id=$1`, orderID).
		Scan(&o.ID, &o.Code, &o.Channel, &o.WarehouseID, &o.CustomerName, &o.PaymentMethod, &o.Total, &o.TotalCost, &postedBy, &o.PostedAt, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SalesOrder{}, ErrOrderNotFound
		}
		return SalesOrder{}, err
	}
	if postedBy != nil {
		o.PostedBy = *postedBy
	}

	rows, err := r.db.Query(ctx, `SELECT id, order_id, variant_id, qty, unit_price, line_total, cost_total, created_at FROM sale_lines WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return SalesOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line SaleLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.VariantID, &line.Qty, &line.UnitPrice, &line.LineTotal, &line.CostTotal, &line.CreatedAt); err != nil {
			return SalesOrder{}, err
		}
		o.Lines = append(o.Lines, line)
	}
	return o, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertOrder(ctx context.Context, order SalesOrder) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales_orders (code, channel, warehouse_id, customer_name, payment_method, total, total_cost, posted_by, posted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		order.Code, order.Channel, order.WarehouseID, order.CustomerName, string(order.PaymentMethod),
		toNumeric(order.Total), toNumeric(order.TotalCost), nullInt(order.PostedBy), order.PostedAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateCode
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) InsertLine(ctx context.Context, line SaleLine) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sale_lines (order_id, variant_id, qty, unit_price, line_total, cost_total)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		line.OrderID, line.VariantID, line.Qty, toNumeric(line.UnitPrice), toNumeric(line.LineTotal), toNumeric(line.CostTotal)).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateLineCost(ctx context.Context, lineID int64, costTotal float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE sale_lines SET cost_total=$2 WHERE id=$1`, lineID, toNumeric(costTotal))
	return err
}

func (r *txRepository) UpdateOrderCost(ctx context.Context, orderID int64, totalCost float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE sales_orders SET total_cost=$2 WHERE id=$1`, orderID, toNumeric(totalCost))
	return err
}

func (r *txRepository) Inventory() inventory.TxRepository {
	return inventory.NewTxRepository(r.tx)
}

func (r *txRepository) Journals() journals.TxRepository {
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
