// Package zerodha implements the broker gateway on the Kite Connect REST
// API. In DRY_RUN mode orders are simulated and candles are synthetic so the
// engine can be exercised without credentials.
package zerodha

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"kite-futures-bot/internal/interfaces"
	"kite-futures-bot/internal/logger"
	"kite-futures-bot/internal/types"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

type Params struct {
	Mode            string
	APIKey          string
	AccessToken     string
	Exchange        string
	HistoryInterval string
}

type Zerodha struct {
	p      Params
	kc     *kiteconnect.Client
	tokens *instrumentMapper
}

var _ interfaces.Broker = (*Zerodha)(nil)

func NewZerodha(p Params) *Zerodha {
	z := &Zerodha{p: p, tokens: newInstrumentMapper()}

	if p.Mode == "LIVE" {
		z.kc = kiteconnect.New(p.APIKey)
		z.kc.SetAccessToken(p.AccessToken)
	}

	return z
}

func (z *Zerodha) LTP(ctx context.Context, symbol string) (float64, error) {
	if z.p.Mode == "DRY_RUN" {
		price := 1000 + rand.Float64()*100
		logger.Debug(ctx, "Simulated LTP", "symbol", symbol, "price", price)
		return price, nil
	}

	key := z.p.Exchange + ":" + symbol
	quotes, err := z.kc.GetLTP(key)
	if err != nil {
		return 0, fmt.Errorf("fetch ltp for %s: %w", symbol, err)
	}
	q, ok := quotes[key]
	if !ok {
		return 0, fmt.Errorf("ltp response missing %s", key)
	}
	return q.LastPrice, nil
}

func (z *Zerodha) RecentCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	if z.p.Mode == "DRY_RUN" {
		return z.syntheticCandles(n), nil
	}

	token, err := z.resolveToken(symbol)
	if err != nil {
		return nil, err
	}

	interval := z.p.HistoryInterval
	to := time.Now()
	from := to.Add(-time.Duration(n+1) * intervalDuration(interval))

	data, err := z.kc.GetHistoricalData(token, interval, from, to, false, false)
	if err != nil {
		return nil, fmt.Errorf("fetch candles for %s: %w", symbol, err)
	}

	cs := make([]types.Candle, 0, len(data))
	for _, d := range data {
		cs = append(cs, types.Candle{
			Ts:    d.Date.Unix(),
			Open:  d.Open,
			High:  d.High,
			Low:   d.Low,
			Close: d.Close,
			Vol:   float64(d.Volume),
		})
	}
	if len(cs) > n {
		cs = cs[len(cs)-n:]
	}
	return cs, nil
}

func (z *Zerodha) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if z.p.Mode == "DRY_RUN" {
		resp := types.OrderResp{
			OrderID: fmt.Sprintf("SIM-%d", time.Now().UnixNano()),
			Status:  "SIMULATED",
			Message: "dry-run",
		}
		logger.Info(ctx, "Simulated order placed", "symbol", req.Symbol, "side", req.Side, "qty", req.Qty, "order_id", resp.OrderID)
		return resp, nil
	}

	if z.p.APIKey == "" || z.p.AccessToken == "" {
		return types.OrderResp{}, errors.New("missing API key/access token")
	}

	txnType := kiteconnect.TransactionTypeBuy
	if req.Side == types.SideShort {
		txnType = kiteconnect.TransactionTypeSell
	}

	resp, err := z.kc.PlaceOrder(kiteconnect.VarietyRegular, kiteconnect.OrderParams{
		Exchange:        z.p.Exchange,
		Tradingsymbol:   req.Symbol,
		TransactionType: txnType,
		Quantity:        req.Qty,
		Product:         kiteconnect.ProductNRML,
		OrderType:       kiteconnect.OrderTypeMarket,
		Tag:             req.Tag,
	})
	if err != nil {
		return types.OrderResp{}, fmt.Errorf("place %s order for %s: %w", req.Side, req.Symbol, err)
	}

	return types.OrderResp{OrderID: resp.OrderID, Status: "PLACED", Message: "ok"}, nil
}

// resolveToken maps a tradingsymbol to its instrument token, refreshing the
// instrument dump from Kite on a cache miss (new contracts appear after
// every rollover).
func (z *Zerodha) resolveToken(symbol string) (int, error) {
	if token, ok := z.tokens.getToken(symbol); ok {
		return token, nil
	}

	instruments, err := z.kc.GetInstrumentsByExchange(z.p.Exchange)
	if err != nil {
		return 0, fmt.Errorf("fetch instruments: %w", err)
	}
	for _, inst := range instruments {
		z.tokens.addMapping(inst.Tradingsymbol, inst.InstrumentToken)
	}

	token, ok := z.tokens.getToken(symbol)
	if !ok {
		return 0, fmt.Errorf("instrument token not found for %s", symbol)
	}
	return token, nil
}

// syntheticCandles builds an oldest-first random walk around a fixed base
// price, one bar per minute ending now.
func (z *Zerodha) syntheticCandles(n int) []types.Candle {
	cs := make([]types.Candle, 0, n)
	price := 1000.0
	now := time.Now().Unix()
	for i := 0; i < n; i++ {
		price += (rand.Float64() - 0.5) * 5
		h := price + rand.Float64()*3
		l := price - rand.Float64()*3
		cs = append(cs, types.Candle{
			Ts:    now - int64((n-i)*60),
			Open:  price - 0.5,
			High:  h,
			Low:   l,
			Close: price,
			Vol:   rand.Float64() * 1000,
		})
	}
	return cs
}

func intervalDuration(interval string) time.Duration {
	switch interval {
	case "minute":
		return time.Minute
	case "3minute":
		return 3 * time.Minute
	case "5minute":
		return 5 * time.Minute
	case "10minute":
		return 10 * time.Minute
	case "15minute":
		return 15 * time.Minute
	case "60minute":
		return time.Hour
	case "day":
		return 24 * time.Hour
	default:
		return 30 * time.Minute
	}
}
