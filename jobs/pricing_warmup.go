package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/pricing"
)

// PricingWarmupJob precomputes channel quotes for every variant that has
// stock, so the first interactive quote after an invalidation hits cache.
type PricingWarmupJob struct {
	Pool     *pgxpool.Pool
	Resolver *pricing.Resolver
	Logger   *slog.Logger
}

// NewPricingWarmupJob initialises the warmup handler.
func NewPricingWarmupJob(pool *pgxpool.Pool, resolver *pricing.Resolver, logger *slog.Logger) *PricingWarmupJob {
	return &PricingWarmupJob{Pool: pool, Resolver: resolver, Logger: logger}
}

var warmupChannels = []pricing.Channel{
	pricing.ChannelWholesale,
	pricing.ChannelRetail,
	pricing.ChannelMarketplace,
}

// Handle executes the warmup.
func (j *PricingWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil || j.Resolver == nil {
		return errors.New("pricing warmup: handler not configured")
	}
	var payload PricingWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	query := `SELECT DISTINCT variant_id, warehouse_id FROM inventory_batches WHERE remaining_qty > 0`
	args := []any{}
	if len(payload.WarehouseIDs) > 0 {
		query += ` AND warehouse_id = ANY($1)`
		args = append(args, payload.WarehouseIDs)
	}
	rows, err := j.Pool.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	type key struct{ variantID, warehouseID int64 }
	var keys []key
	for rows.Next() {
		var k key
		if err := rows.Scan(&k.variantID, &k.warehouseID); err != nil {
			return err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	warmed := 0
	for _, k := range keys {
		for _, channel := range warmupChannels {
			if _, err := j.Resolver.Quote(ctx, k.variantID, k.warehouseID, channel); err != nil {
				if errors.Is(err, pricing.ErrNoCost) {
					continue
				}
				j.Logger.Warn("quote warmup failed",
					slog.Int64("variant_id", k.variantID),
					slog.Int64("warehouse_id", k.warehouseID),
					slog.String("channel", string(channel)),
					slog.Any("error", err))
				continue
			}
			warmed++
		}
	}
	j.Logger.Info("pricing cache warmed", slog.Int("quotes", warmed))
	return nil
}
