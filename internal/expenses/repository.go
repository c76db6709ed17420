package expenses

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/accounting/journals"
	"github.com/ledgerline/ledgerline/internal/platform/db"
)

// TxRepository exposes the operations of one expense transaction.
type TxRepository interface {
	InsertExpense(ctx context.Context, expense Expense) (int64, error)
	Journals() journals.TxRepository
}

// Repository abstracts persistence for the service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]Expense, error)
	Get(ctx context.Context, expenseID int64) (Expense, error)
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

const expenseColumns = `id, code, category, account_id, amount, source, note, spent_at, posted_by, created_at`

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE 1=1`
	args := []any{}
	idx := 1
	if filter.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", idx)
		args = append(args, filter.Category)
		idx++
	}
	if !filter.From.IsZero() {
		query += fmt.Sprintf(" AND spent_at >= $%d", idx)
		args = append(args, filter.From)
		idx++
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(" AND spent_at <= $%d", idx)
		args = append(args, filter.To)
		idx++
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY spent_at DESC, id DESC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var expenses []Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}
	return expenses, rows.Err()
}

func (r *repository) Get(ctx context.Context, expenseID int64) (Expense, error) {
	row := r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id=$1`, expenseID)
	expense, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expense{}, ErrExpenseNotFound
		}
		return Expense{}, err
	}
	return expense, nil
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertExpense(ctx context.Context, expense Expense) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO expenses (code, category, account_id, amount, source, note, spent_at, posted_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		expense.Code, expense.Category, expense.AccountID, fmt.Sprintf("%.2f", expense.Amount),
		string(expense.Source), expense.Note, expense.SpentAt, nullInt(expense.PostedBy)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateCode
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) Journals() journals.TxRepository {
	return journals.NewTxRepository(r.tx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (Expense, error) {
	var e Expense
	var postedBy *int64
	err := row.Scan(&e.ID, &e.Code, &e.Category, &e.AccountID, &e.Amount, &e.Source, &e.Note, &e.SpentAt, &postedBy, &e.CreatedAt)
	if err != nil {
		return Expense{}, err
	}
	if postedBy != nil {
		e.PostedBy = *postedBy
	}
	return e, nil
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}
