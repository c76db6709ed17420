package pricing

import "errors"

// Channel is a sales channel with its own margin policy.
type Channel string

const (
	ChannelWholesale   Channel = "wholesale"
	ChannelRetail      Channel = "retail"
	ChannelMarketplace Channel = "marketplace"
)

// Valid reports whether the channel is known.
func (c Channel) Valid() bool {
	switch c {
	case ChannelWholesale, ChannelRetail, ChannelMarketplace:
		return true
	}
	return false
}

// Quote is a resolved channel price for one variant. BelowCost flags an
// offer priced under landed cost; it is a warning, the quote still resolves.
type Quote struct {
	VariantID     int64   `json:"variant_id"`
	WarehouseID   int64   `json:"warehouse_id"`
	Channel       Channel `json:"channel"`
	LandedCost    float64 `json:"landed_cost"`
	Price         float64 `json:"price"`
	ProfitAmount  float64 `json:"profit_amount"`
	ProfitPercent float64 `json:"profit_percent"`
	BelowCost     bool    `json:"below_cost"`
}

var (
	// ErrUnknownChannel indicates a channel with no margin policy.
	ErrUnknownChannel = errors.New("pricing: unknown channel")
	// ErrNoCost indicates a variant with no cost layer to price from.
	ErrNoCost = errors.New("pricing: no landed cost available")
)
