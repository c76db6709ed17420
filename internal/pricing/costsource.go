package pricing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BatchCostSource reads the most recently received cost layer of a
// variant. Quotes track the latest landed cost, not a historical average.
type BatchCostSource struct {
	pool *pgxpool.Pool
}

// NewBatchCostSource builds BatchCostSource.
func NewBatchCostSource(pool *pgxpool.Pool) *BatchCostSource {
	return &BatchCostSource{pool: pool}
}

// LatestCost returns the cost price of the newest layer for the key.
func (s *BatchCostSource) LatestCost(ctx context.Context, variantID, warehouseID int64) (float64, error) {
	var cost float64
	err := s.pool.QueryRow(ctx, `SELECT cost_price FROM inventory_batches
WHERE variant_id=$1 AND warehouse_id=$2 ORDER BY received_at DESC, id DESC LIMIT 1`, variantID, warehouseID).Scan(&cost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoCost
		}
		return 0, err
	}
	return cost, nil
}
