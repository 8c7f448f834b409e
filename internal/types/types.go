package types

import "time"

type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

// Side is the direction of a position or entry signal.
type Side string

const (
	SideNone  Side = "NONE"
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Valid reports whether s is a tradable direction.
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// Opposite returns the closing direction for a held side.
func (s Side) Opposite() Side {
	switch s {
	case SideLong:
		return SideShort
	case SideShort:
		return SideLong
	}
	return SideNone
}

type OrderReq struct {
	Symbol string
	Side   Side
	Qty    int
	Tag    string
}

type OrderResp struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Position is the single stateful record of the bot. Exactly one exists
// process-wide; when Active is false every trade field holds its zero value.
type Position struct {
	Active            bool      `json:"active"`
	Symbol            string    `json:"symbol"`
	Side              Side      `json:"side"`
	EntryPrice        float64   `json:"entry_price"`
	Quantity          int       `json:"quantity"`
	InitialStopLoss   float64   `json:"initial_stop_loss"`
	EffectiveStopLoss float64   `json:"effective_stop_loss"`
	HighWater         float64   `json:"high_water"`
	LowWater          float64   `json:"low_water"`
	OpenedAt          time.Time `json:"opened_at"`
}

// EmptyPosition returns the inactive record with all trade fields reset.
func EmptyPosition() Position {
	return Position{Side: SideNone}
}

// Invariant reports whether an active position carries a usable symbol,
// quantity and entry price. An inactive position is always consistent.
func (p Position) Invariant() bool {
	if !p.Active {
		return true
	}
	return p.Symbol != "" && p.Quantity > 0 && p.EntryPrice > 0 && p.Side.Valid()
}

// PnL is the unrealized profit at the given last traded price.
func (p Position) PnL(ltp float64) float64 {
	if !p.Active {
		return 0
	}
	if p.Side == SideShort {
		return (p.EntryPrice - ltp) * float64(p.Quantity)
	}
	return (ltp - p.EntryPrice) * float64(p.Quantity)
}
