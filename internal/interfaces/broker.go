package interfaces

import (
	"context"

	"kite-futures-bot/internal/types"
)

// Broker is the capability set the engine needs from the exchange gateway.
// Every call may fail with a transient gateway error; callers retry on the
// next cycle rather than crash.
type Broker interface {
	LTP(ctx context.Context, symbol string) (float64, error)
	RecentCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error)
	PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
}
