package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IntegrityScanJob cross-checks the invariants the write path enforces:
// batch remaining quantities stay within [0, initial], the stock ledger sums
// to the batch remainders, and every journal entry balances. Violations are
// logged, never repaired.
type IntegrityScanJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewIntegrityScanJob initialises the scan handler.
func NewIntegrityScanJob(pool *pgxpool.Pool, logger *slog.Logger) *IntegrityScanJob {
	return &IntegrityScanJob{
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the integrity scan.
func (j *IntegrityScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("integrity scan: handler not configured")
	}
	var payload IntegrityScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := j.clock()
	logger := j.Logger.With(slog.String("job", "integrity_scan"))
	logger.Info("starting integrity scan")

	violations := 0
	n, err := j.scanBatchBounds(ctx, logger)
	if err != nil {
		return err
	}
	violations += n

	n, err = j.scanLedgerConsistency(ctx, logger)
	if err != nil {
		return err
	}
	violations += n

	n, err = j.scanJournalBalance(ctx, logger, payload.Since)
	if err != nil {
		return err
	}
	violations += n

	logger.Info("integrity scan finished",
		slog.Int("violations", violations),
		slog.Duration("took", j.clock().Sub(start)))
	return nil
}

func (j *IntegrityScanJob) scanBatchBounds(ctx context.Context, logger *slog.Logger) (int, error) {
	rows, err := j.Pool.Query(ctx, `SELECT id, remaining_qty, initial_qty FROM inventory_batches
WHERE remaining_qty < 0 OR remaining_qty > initial_qty`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		var id int64
		var remaining, initial float64
		if err := rows.Scan(&id, &remaining, &initial); err != nil {
			return count, err
		}
		count++
		logger.Error("batch remaining out of bounds",
			slog.Int64("batch_id", id),
			slog.Float64("remaining", remaining),
			slog.Float64("initial", initial))
	}
	return count, rows.Err()
}

func (j *IntegrityScanJob) scanLedgerConsistency(ctx context.Context, logger *slog.Logger) (int, error) {
	// Per batch, initial + sum(ledger qty_change) must equal remaining.
	rows, err := j.Pool.Query(ctx, `
SELECT b.id, b.initial_qty, b.remaining_qty, COALESCE(SUM(l.qty_change), 0)
FROM inventory_batches b
LEFT JOIN stock_ledger l ON l.batch_id = b.id AND l.qty_change < 0
GROUP BY b.id, b.initial_qty, b.remaining_qty`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		var id int64
		var initial, remaining, outflow float64
		if err := rows.Scan(&id, &initial, &remaining, &outflow); err != nil {
			return count, err
		}
		if math.Abs(initial+outflow-remaining) > 1e-6 {
			count++
			logger.Error("ledger does not reconcile with batch",
				slog.Int64("batch_id", id),
				slog.Float64("initial", initial),
				slog.Float64("outflow", outflow),
				slog.Float64("remaining", remaining))
		}
	}
	return count, rows.Err()
}

func (j *IntegrityScanJob) scanJournalBalance(ctx context.Context, logger *slog.Logger, since time.Time) (int, error) {
	query := `
SELECT e.id, e.number, COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM journal_entries e
JOIN journal_lines l ON l.je_id = e.id`
	args := []any{}
	if !since.IsZero() {
		query += ` WHERE e.date >= $1`
		args = append(args, since)
	}
	query += ` GROUP BY e.id, e.number HAVING ABS(COALESCE(SUM(l.debit), 0) - COALESCE(SUM(l.credit), 0)) > 0.005`

	rows, err := j.Pool.Query(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		var id, number int64
		var debit, credit float64
		if err := rows.Scan(&id, &number, &debit, &credit); err != nil {
			return count, err
		}
		count++
		logger.Error("journal entry unbalanced",
			slog.Int64("journal_id", id),
			slog.Int64("number", number),
			slog.Float64("debit", debit),
			slog.Float64("credit", credit))
	}
	return count, rows.Err()
}
