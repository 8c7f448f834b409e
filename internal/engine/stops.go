package engine

import (
	"math"

	"kite-futures-bot/internal/types"
)

// nextEffectiveStop applies one trailing-stop observation and returns the
// new effective stop. For LONG the candidate trail is high*(1-tslPct),
// clamped to no less than the initial stop and no more than the current
// price, and the result never falls below the previous effective stop (the
// ratchet: a trailing stop must never loosen). SHORT is the mirror image.
func nextEffectiveStop(side types.Side, initialSL, prevEffective, highWater, lowWater, ltp, tslPct float64) float64 {
	switch side {
	case types.SideLong:
		candidate := highWater * (1 - tslPct)
		eff := math.Max(initialSL, math.Min(candidate, ltp))
		return math.Max(prevEffective, eff)
	case types.SideShort:
		candidate := lowWater * (1 + tslPct)
		eff := math.Min(initialSL, math.Max(candidate, ltp))
		if prevEffective > 0 {
			eff = math.Min(prevEffective, eff)
		}
		return eff
	}
	return prevEffective
}

// stopBreached reports whether the last traded price has crossed the
// effective stop for the held side.
func stopBreached(side types.Side, ltp, effective float64) bool {
	switch side {
	case types.SideLong:
		return ltp <= effective
	case types.SideShort:
		return ltp >= effective
	}
	return false
}

// initialStopLoss derives the fixed stop from the entry reference price.
func initialStopLoss(side types.Side, refPrice, slPct float64) float64 {
	if side == types.SideShort {
		return refPrice * (1 + slPct)
	}
	return refPrice * (1 - slPct)
}
