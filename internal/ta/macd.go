// Package ta holds the pure indicator math consumed by the engine. All
// functions are deterministic and side-effect free.
package ta

import (
	"errors"
	"fmt"
	"math"
)

const (
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9

	// MinCrossoverBars is the fewest closes that allow comparing the
	// histogram against the prior bar for a crossover verdict.
	MinCrossoverBars = 35
)

// ErrInsufficientData is returned when a price series is too short for the
// requested indicator.
var ErrInsufficientData = errors.New("insufficient data")

// MACD is the histogram state at the most recent bar. CrossedUp is true iff
// the histogram is positive now and was non-positive on the prior bar;
// CrossedDown is the mirror condition.
type MACD struct {
	Value       float64
	CrossedUp   bool
	CrossedDown bool
}

// MACDHistogram computes the MACD histogram (12/26 EMA spread minus its
// 9-period signal EMA) over an ordered close-price series and reports
// whether the latest bar crossed zero relative to the previous one.
func MACDHistogram(closes []float64) (MACD, error) {
	if len(closes) < MinCrossoverBars {
		return MACD{}, fmt.Errorf("macd histogram: %w: have %d closes, need %d", ErrInsufficientData, len(closes), MinCrossoverBars)
	}

	fast := EMASeries(closes, macdFastPeriod)
	slow := EMASeries(closes, macdSlowPeriod)

	// MACD line exists once the slow EMA is seeded.
	line := make([]float64, 0, len(closes)-macdSlowPeriod+1)
	for i := macdSlowPeriod - 1; i < len(closes); i++ {
		line = append(line, fast[i]-slow[i])
	}

	signal := EMASeries(line, macdSignalPeriod)

	n := len(line)
	curr := line[n-1] - signal[n-1]
	prev := line[n-2] - signal[n-2]

	return MACD{
		Value:       curr,
		CrossedUp:   curr > 0 && prev <= 0,
		CrossedDown: curr < 0 && prev >= 0,
	}, nil
}

// EMASeries returns the exponential moving average of data with smoothing
// factor 2/(period+1). The first period values seed the average; entries
// before index period-1 are NaN.
func EMASeries(data []float64, period int) []float64 {
	out := make([]float64, len(data))
	if period <= 0 || len(data) < period {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	alpha := 2.0 / (float64(period) + 1.0)

	seed := 0.0
	for i := 0; i < period; i++ {
		out[i] = math.NaN()
		seed += data[i]
	}
	ema := seed / float64(period)
	out[period-1] = ema

	for i := period; i < len(data); i++ {
		ema = data[i]*alpha + ema*(1.0-alpha)
		out[i] = ema
	}
	return out
}
