package engine

import (
	"context"

	"kite-futures-bot/internal/logger"
	"kite-futures-bot/internal/tradelog"
	"kite-futures-bot/internal/types"
)

// ExitPosition closes any active position with an opposing market order and
// resets state to inactive. Idempotent: with nothing to exit it only resets
// state defensively and never errors.
func (e *Engine) ExitPosition(ctx context.Context) {
	ctx, span := logger.StartSpan(ctx, "engine.ExitPosition")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	pos := e.loadPosition(ctx)
	e.exitLocked(ctx, pos, "MANUAL_EXIT", 0)
}

// exitLocked performs the exit under the engine mutex. price is the last
// traded price that triggered the exit, zero when unknown. The state reset
// is unconditional: a failed closing order is logged but must not leave the
// monitor loop wedged against a record that blocks new entries.
func (e *Engine) exitLocked(ctx context.Context, pos types.Position, reason string, price float64) {
	if !pos.Active || pos.Quantity <= 0 {
		e.clearPosition(ctx)
		return
	}

	closeSide := pos.Side.Opposite()
	resp, err := e.brk.PlaceOrder(ctx, types.OrderReq{
		Symbol: pos.Symbol,
		Side:   closeSide,
		Qty:    pos.Quantity,
		Tag:    "EXIT",
	})
	if err != nil {
		logger.ErrorWithErr(ctx, "Exit order failed, clearing state anyway", err,
			"symbol", pos.Symbol, "side", closeSide, "qty", pos.Quantity, "reason", reason)
	} else {
		logger.Trade(ctx, pos.Symbol, string(closeSide), pos.Quantity, price, resp.OrderID, "reason", reason, "pnl", pos.PnL(price))
		if jerr := tradelog.Append(tradelog.Entry{
			Symbol:  pos.Symbol,
			Side:    string(closeSide),
			Qty:     pos.Quantity,
			Price:   price,
			OrderID: resp.OrderID,
			Reason:  reason,
		}); jerr != nil {
			logger.Warn(ctx, "Failed to journal exit", "error", jerr)
		}
	}

	e.clearPosition(ctx)
}

func (e *Engine) clearPosition(ctx context.Context) {
	e.cached = types.EmptyPosition()
	if err := e.st.Clear(ctx); err != nil {
		e.dirty = true
		logger.ErrorWithErr(ctx, "Failed to persist cleared position state", err)
		return
	}
	e.dirty = false
}
