// Package costing derives per-unit landed costs for purchase lots.
package costing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidLot indicates a lot with a non-positive quantity or a negative
// monetary input. Rejected before any cost is derived.
var ErrInvalidLot = errors.New("costing: invalid purchase lot")

// Lot carries the cost inputs of one shipment. Immutable once costed.
type Lot struct {
	ForeignTotalCost float64
	FXRate           float64
	FreightExtraCost float64
	Quantity         float64
	ArrivedAt        time.Time
}

// Config groups calculator settings.
type Config struct {
	// DefaultFXRate applies when a lot carries no explicit rate.
	DefaultFXRate float64
}

// Calculator converts lot-level foreign costs into a per-unit landed cost.
type Calculator struct {
	cfg Config
}

// NewCalculator builds a Calculator.
func NewCalculator(cfg Config) *Calculator {
	if cfg.DefaultFXRate <= 0 {
		cfg.DefaultFXRate = 1
	}
	return &Calculator{cfg: cfg}
}

// UnitCost returns the per-unit landed cost of the lot:
// (foreign_total * fx_rate + freight_extra) / quantity, rounded half-up to
// currency precision. Decimal arithmetic keeps the division exact before
// the final rounding step.
func (c *Calculator) UnitCost(lot Lot) (float64, error) {
	if lot.Quantity <= 0 {
		return 0, ErrInvalidLot
	}
	if lot.ForeignTotalCost < 0 || lot.FXRate < 0 || lot.FreightExtraCost < 0 {
		return 0, ErrInvalidLot
	}
	rate := lot.FXRate
	if rate == 0 {
		rate = c.cfg.DefaultFXRate
	}

	foreign := decimal.NewFromFloat(lot.ForeignTotalCost)
	fx := decimal.NewFromFloat(rate)
	freight := decimal.NewFromFloat(lot.FreightExtraCost)
	qty := decimal.NewFromFloat(lot.Quantity)

	landedTotal := foreign.Mul(fx).Add(freight)
	unit := landedTotal.DivRound(qty, 2)

	cost, _ := unit.Float64()
	return cost, nil
}

// LotTotal returns the landed total of the lot at currency precision,
// the amount the receipt journal entry carries.
func (c *Calculator) LotTotal(lot Lot) (float64, error) {
	unit, err := c.UnitCost(lot)
	if err != nil {
		return 0, err
	}
	total := decimal.NewFromFloat(unit).Mul(decimal.NewFromFloat(lot.Quantity)).Round(2)
	out, _ := total.Float64()
	return out, nil
}
