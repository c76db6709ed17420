package costing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnitCost(t *testing.T) {
	calc := NewCalculator(Config{DefaultFXRate: 1})

	cost, err := calc.UnitCost(Lot{ForeignTotalCost: 5000, FXRate: 16.50, FreightExtraCost: 12000, Quantity: 100})
	require.NoError(t, err)
	require.Equal(t, 945.00, cost)

	total, err := calc.LotTotal(Lot{ForeignTotalCost: 5000, FXRate: 16.50, FreightExtraCost: 12000, Quantity: 100})
	require.NoError(t, err)
	require.Equal(t, 94500.00, total)
}

func TestUnitCostRoundsHalfUp(t *testing.T) {
	calc := NewCalculator(Config{DefaultFXRate: 1})

	// 100.005 / 1 rounds up to 100.01, not down.
	cost, err := calc.UnitCost(Lot{ForeignTotalCost: 300.015, FXRate: 1, Quantity: 3})
	require.NoError(t, err)
	require.Equal(t, 100.01, cost)

	// Uneven division: 1000 / 3 = 333.33...
	cost, err = calc.UnitCost(Lot{ForeignTotalCost: 1000, FXRate: 1, Quantity: 3})
	require.NoError(t, err)
	require.Equal(t, 333.33, cost)
}

func TestUnitCostDefaultFXRate(t *testing.T) {
	calc := NewCalculator(Config{DefaultFXRate: 16.50})

	cost, err := calc.UnitCost(Lot{ForeignTotalCost: 5000, FreightExtraCost: 12000, Quantity: 100})
	require.NoError(t, err)
	require.Equal(t, 945.00, cost)
}

func TestUnitCostRejectsInvalidLots(t *testing.T) {
	calc := NewCalculator(Config{})

	cases := []Lot{
		{ForeignTotalCost: 100, FXRate: 1, Quantity: 0},
		{ForeignTotalCost: 100, FXRate: 1, Quantity: -5},
		{ForeignTotalCost: -100, FXRate: 1, Quantity: 10},
		{ForeignTotalCost: 100, FXRate: -1, Quantity: 10},
		{ForeignTotalCost: 100, FXRate: 1, FreightExtraCost: -20, Quantity: 10},
	}
	for _, lot := range cases {
		_, err := calc.UnitCost(lot)
		require.ErrorIs(t, err, ErrInvalidLot)
	}
}
