package engine

import (
	"context"
	"fmt"

	"kite-futures-bot/internal/logger"
	"kite-futures-bot/internal/ta"
	"kite-futures-bot/internal/tradelog"
	"kite-futures-bot/internal/types"
)

// TryEnter validates an external entry signal and, on MACD confirmation,
// opens a position with a market order. It returns the broker order id or
// one of the rejection errors (ErrInvalidSignal, ErrAlreadyActive,
// ErrNoConfirmation, ErrDataUnavailable).
func (e *Engine) TryEnter(ctx context.Context, direction types.Side, refPrice float64) (string, error) {
	ctx, span := logger.StartSpan(ctx, "engine.TryEnter")
	defer span.End()

	if !direction.Valid() || refPrice <= 0 {
		return "", ErrInvalidSignal
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pos := e.loadPosition(ctx)
	if pos.Active {
		logger.Info(ctx, "Entry signal ignored, position already active", "symbol", pos.Symbol, "side", pos.Side)
		return "", ErrAlreadyActive
	}

	// Rollover resolution happens before any indicator fetch so the
	// confirmation runs against the contract we would actually trade.
	symbol := ResolveContract(e.cfg.BaseSymbol, e.now(), e.cfg.RolloverDays)
	logger.Info(ctx, "Entry signal received", "direction", direction, "symbol", symbol, "reference_price", refPrice)

	candles, err := e.brk.RecentCandles(ctx, symbol, e.cfg.History.Bars)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch history for entry confirmation", err, "symbol", symbol)
		return "", fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	macd, err := ta.MACDHistogram(closes)
	if err != nil {
		logger.Warn(ctx, "Insufficient history for entry confirmation", "symbol", symbol, "bars", len(closes))
		return "", fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	confirmed := false
	switch direction {
	case types.SideLong:
		confirmed = macd.Value > 0 && macd.CrossedUp
	case types.SideShort:
		confirmed = macd.Value < 0 && macd.CrossedDown
	}
	if !confirmed {
		logger.Info(ctx, "Entry signal not confirmed by MACD histogram",
			"direction", direction, "symbol", symbol, "histogram", macd.Value,
			"crossed_up", macd.CrossedUp, "crossed_down", macd.CrossedDown)
		return "", ErrNoConfirmation
	}

	resp, err := e.brk.PlaceOrder(ctx, types.OrderReq{
		Symbol: symbol,
		Side:   direction,
		Qty:    e.cfg.Quantity,
		Tag:    "ENTRY",
	})
	if err != nil {
		logger.ErrorWithErr(ctx, "Entry order failed", err, "symbol", symbol, "direction", direction)
		return "", fmt.Errorf("place entry order: %w", err)
	}

	sl := initialStopLoss(direction, refPrice, e.cfg.SLPercent)
	pos = types.Position{
		Active:            true,
		Symbol:            symbol,
		Side:              direction,
		EntryPrice:        refPrice,
		Quantity:          e.cfg.Quantity,
		InitialStopLoss:   sl,
		EffectiveStopLoss: sl,
		HighWater:         refPrice,
		LowWater:          refPrice,
		OpenedAt:          e.now(),
	}
	e.savePosition(ctx, pos)

	logger.Trade(ctx, symbol, string(direction), e.cfg.Quantity, refPrice, resp.OrderID, "stop_loss", sl)
	if err := tradelog.Append(tradelog.Entry{
		Symbol:  symbol,
		Side:    string(direction),
		Qty:     e.cfg.Quantity,
		Price:   refPrice,
		OrderID: resp.OrderID,
		Reason:  "WEBHOOK_SIGNAL",
	}); err != nil {
		logger.Warn(ctx, "Failed to journal entry", "error", err)
	}

	return resp.OrderID, nil
}

// loadPosition refreshes from the durable store, falling back to the cached
// in-memory copy when the read fails so a persistence error never promotes
// to a crash. While an earlier write is still unflushed the cached copy is
// authoritative: reading the stale on-disk record back would forget a live
// position and re-open the entry gate.
func (e *Engine) loadPosition(ctx context.Context) types.Position {
	if e.dirty {
		if err := e.st.Save(ctx, e.cached); err != nil {
			logger.Warn(ctx, "Retrying position persistence failed, in-memory state stays authoritative", "error", err)
			return e.cached
		}
		e.dirty = false
		return e.cached
	}

	pos, err := e.st.Load(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to read position state, using cached copy", err)
		return e.cached
	}
	e.cached = pos
	return pos
}

// savePosition persists the record and updates the cache. A failed write is
// logged and retried on the next state access.
func (e *Engine) savePosition(ctx context.Context, pos types.Position) {
	e.cached = pos
	if err := e.st.Save(ctx, pos); err != nil {
		e.dirty = true
		logger.ErrorWithErr(ctx, "Failed to persist position state, in-memory copy stays authoritative", err, "symbol", pos.Symbol)
		return
	}
	e.dirty = false
}
