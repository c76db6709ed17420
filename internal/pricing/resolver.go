// Package pricing resolves channel sale prices from landed costs and
// per-channel margins.
package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// CostSource supplies the landed unit cost a quote is derived from.
type CostSource interface {
	LatestCost(ctx context.Context, variantID, warehouseID int64) (float64, error)
}

// Config holds per-channel margins as fractions, e.g. 0.25 for 25%.
type Config struct {
	MarginWholesale   float64
	MarginRetail      float64
	MarginMarketplace float64
}

// Margin returns the margin for the channel.
func (c Config) Margin(channel Channel) (float64, error) {
	switch channel {
	case ChannelWholesale:
		return c.MarginWholesale, nil
	case ChannelRetail:
		return c.MarginRetail, nil
	case ChannelMarketplace:
		return c.MarginMarketplace, nil
	}
	return 0, ErrUnknownChannel
}

// Resolver derives channel quotes. Concurrent quotes for the same key
// collapse into one cost lookup.
type Resolver struct {
	cfg   Config
	costs CostSource
	cache *Cache
	group singleflight.Group
}

// NewResolver builds Resolver. The cache may be nil.
func NewResolver(cfg Config, costs CostSource, cache *Cache) *Resolver {
	return &Resolver{cfg: cfg, costs: costs, cache: cache}
}

// Quote resolves the channel price for one variant at one warehouse.
func (r *Resolver) Quote(ctx context.Context, variantID, warehouseID int64, channel Channel) (Quote, error) {
	if !channel.Valid() {
		return Quote{}, ErrUnknownChannel
	}
	if r.cache != nil {
		if quote, ok := r.cache.Get(ctx, variantID, warehouseID, channel); ok {
			return quote, nil
		}
	}

	key := fmt.Sprintf("%d:%d:%s", variantID, warehouseID, channel)
	value, err, _ := r.group.Do(key, func() (any, error) {
		cost, err := r.costs.LatestCost(ctx, variantID, warehouseID)
		if err != nil {
			return Quote{}, err
		}
		if cost <= 0 {
			return Quote{}, ErrNoCost
		}
		quote, err := r.Compute(variantID, warehouseID, channel, cost)
		if err != nil {
			return Quote{}, err
		}
		if r.cache != nil {
			r.cache.Set(ctx, quote)
		}
		return quote, nil
	})
	if err != nil {
		return Quote{}, err
	}
	return value.(Quote), nil
}

// Compute derives a quote from a known landed cost without touching the
// cost source or the cache.
func (r *Resolver) Compute(variantID, warehouseID int64, channel Channel, landedCost float64) (Quote, error) {
	margin, err := r.cfg.Margin(channel)
	if err != nil {
		return Quote{}, err
	}
	price := PriceFor(landedCost, margin)
	return Quote{
		VariantID:     variantID,
		WarehouseID:   warehouseID,
		Channel:       channel,
		LandedCost:    landedCost,
		Price:         price,
		ProfitAmount:  ProfitAmount(price, landedCost),
		ProfitPercent: ProfitPercent(price, landedCost),
		BelowCost:     ValidateOffer(price, landedCost),
	}, nil
}

// ValidateOffer flags an offer priced under landed cost. Selling below
// cost is allowed, the flag only makes it visible.
func ValidateOffer(offerPrice, landedCost float64) bool {
	return offerPrice < landedCost
}

// PriceFor applies the margin to the landed cost, rounded half-up to
// currency precision.
func PriceFor(landedCost, margin float64) float64 {
	price := decimal.NewFromFloat(landedCost).
		Mul(decimal.NewFromFloat(1).Add(decimal.NewFromFloat(margin))).
		Round(2)
	out, _ := price.Float64()
	return out
}

// ProfitAmount is the absolute margin of the offer.
func ProfitAmount(price, landedCost float64) float64 {
	out, _ := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(landedCost)).Round(2).Float64()
	return out
}

// ProfitPercent is the relative margin of the offer over its landed
// cost. Zero cost yields zero, not a division error.
func ProfitPercent(price, landedCost float64) float64 {
	if landedCost <= 0 {
		return 0
	}
	pct := decimal.NewFromFloat(price).
		Sub(decimal.NewFromFloat(landedCost)).
		Div(decimal.NewFromFloat(landedCost)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	out, _ := pct.Float64()
	return out
}
