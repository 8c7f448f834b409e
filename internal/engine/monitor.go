package engine

import (
	"context"
	"time"

	"kite-futures-bot/internal/logger"
	"kite-futures-bot/internal/ta"
	"kite-futures-bot/internal/types"
)

// Run is the supervisory loop. Idle, it polls the store at low frequency for
// an externally-created position; active, it runs the full cycle of LTP
// fetch, boundary-gated trailing-stop recomputation and indicator-reversal
// checks. The loop only terminates when ctx is cancelled; no error from one
// cycle escapes it.
func (e *Engine) Run(ctx context.Context) {
	logger.Info(ctx, "Monitor loop started",
		"poll_seconds", e.cfg.PollSeconds,
		"idle_poll_seconds", e.cfg.IdlePollSeconds)

	for {
		if ctx.Err() != nil {
			logger.Info(ctx, "Monitor loop stopped")
			return
		}

		pause := e.cycle(ctx)

		if !sleepCtx(ctx, pause) {
			logger.Info(ctx, "Monitor loop stopped")
			return
		}
	}
}

// cycle runs one supervision pass, converting any panic into a logged event
// so the loop itself never dies.
func (e *Engine) cycle(ctx context.Context) (pause time.Duration) {
	pause = e.pollInterval()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "Monitor cycle panicked", "panic", r)
		}
	}()
	return e.runCycle(ctx, e.now())
}

// runCycle is one supervision pass. It refreshes the position from the
// durable store first so entries recorded by another handler (the webhook
// intake) are picked up.
func (e *Engine) runCycle(ctx context.Context, now time.Time) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos := e.loadPosition(ctx)

	if !pos.Active {
		e.lastStatusMinute = -1
		return e.idleInterval()
	}

	// An active record with broken invariants (zero quantity, missing
	// symbol) cannot be supervised; reset it rather than loop on garbage.
	if !pos.Invariant() {
		logger.Warn(ctx, "Active position violates invariants, resetting defensively",
			"symbol", pos.Symbol, "qty", pos.Quantity, "entry_price", pos.EntryPrice)
		e.clearPosition(ctx)
		return e.idleInterval()
	}

	if !e.inSession(now) {
		return e.pollInterval()
	}

	// One LTP per cycle: every decision below observes this price.
	ltp, err := e.brk.LTP(ctx, pos.Symbol)
	if err != nil {
		logger.Warn(ctx, "LTP fetch failed, retrying next cycle", "symbol", pos.Symbol, "error", err)
		return e.pollInterval()
	}

	e.logStatus(ctx, pos, ltp, now)

	if e.fiveMin.Hit(now) {
		exited := e.checkStops(ctx, &pos, ltp)
		if exited {
			return e.pollInterval()
		}
	}

	if e.thirtyMin.Hit(now) {
		e.checkReversal(ctx, pos, ltp)
	}

	return e.pollInterval()
}

// checkStops recomputes the trailing stop from the watermarks, persists any
// mutation, and exits on a breach. Returns true when the position was closed.
func (e *Engine) checkStops(ctx context.Context, pos *types.Position, ltp float64) bool {
	prev := *pos

	if ltp > pos.HighWater {
		pos.HighWater = ltp
	}
	if ltp < pos.LowWater {
		pos.LowWater = ltp
	}

	pos.EffectiveStopLoss = nextEffectiveStop(pos.Side, pos.InitialStopLoss,
		pos.EffectiveStopLoss, pos.HighWater, pos.LowWater, ltp, e.cfg.TSLPercent)

	logger.Debug(ctx, "Stop check",
		"symbol", pos.Symbol, "side", pos.Side, "ltp", ltp,
		"initial_sl", pos.InitialStopLoss, "effective_sl", pos.EffectiveStopLoss,
		"high_water", pos.HighWater, "low_water", pos.LowWater)

	if *pos != prev {
		e.savePosition(ctx, *pos)
	}

	if stopBreached(pos.Side, ltp, pos.EffectiveStopLoss) {
		reason := "STOP_LOSS"
		if pos.EffectiveStopLoss != pos.InitialStopLoss {
			reason = "TRAILING_STOP"
		}
		logger.Risk(ctx, pos.Symbol, reason,
			"ltp", ltp, "effective_sl", pos.EffectiveStopLoss, "side", pos.Side)
		e.exitLocked(ctx, *pos, reason, ltp)
		return true
	}
	return false
}

// checkReversal refetches the histogram and exits when it confirms a
// reversal against the held side. A failed fetch skips the check; it never
// exits a position on missing data.
func (e *Engine) checkReversal(ctx context.Context, pos types.Position, ltp float64) {
	candles, err := e.brk.RecentCandles(ctx, pos.Symbol, e.cfg.History.Bars)
	if err != nil {
		logger.Warn(ctx, "History fetch failed, skipping reversal check", "symbol", pos.Symbol, "error", err)
		return
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	macd, err := ta.MACDHistogram(closes)
	if err != nil {
		logger.Warn(ctx, "Insufficient history, skipping reversal check", "symbol", pos.Symbol, "bars", len(closes))
		return
	}

	if (pos.Side == types.SideLong && macd.CrossedDown) ||
		(pos.Side == types.SideShort && macd.CrossedUp) {
		logger.Risk(ctx, pos.Symbol, "MACD_REVERSAL", "histogram", macd.Value, "side", pos.Side)
		e.exitLocked(ctx, pos, "MACD_REVERSAL", ltp)
	}
}

// logStatus prints the per-minute monitoring line with price and PnL.
func (e *Engine) logStatus(ctx context.Context, pos types.Position, ltp float64, now time.Time) {
	minute := now.Minute()
	if minute == e.lastStatusMinute {
		return
	}
	e.lastStatusMinute = minute

	logger.Info(ctx, "Monitoring update",
		"symbol", pos.Symbol,
		"side", pos.Side,
		"entry_price", pos.EntryPrice,
		"ltp", ltp,
		"pnl", pos.PnL(ltp),
		"initial_sl", pos.InitialStopLoss,
		"effective_sl", pos.EffectiveStopLoss)
}

func (e *Engine) pollInterval() time.Duration {
	return time.Duration(e.cfg.PollSeconds) * time.Second
}

func (e *Engine) idleInterval() time.Duration {
	return time.Duration(e.cfg.IdlePollSeconds) * time.Second
}

// sleepCtx sleeps for d but wakes immediately on cancellation. Returns false
// when the context ended during the sleep.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
