package ta

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decelerating sell-off capped by a sharp up bar, enough to flip the
// histogram positive on the final close only.
func vBottomCloses() []float64 {
	closes := make([]float64, 40)
	for i := 0; i < 39; i++ {
		closes[i] = 100 - 0.02*float64(i*i)
	}
	closes[39] = closes[38] + 20
	return closes
}

func vTopCloses() []float64 {
	closes := make([]float64, 40)
	for i := 0; i < 39; i++ {
		closes[i] = 100 + 0.02*float64(i*i)
	}
	closes[39] = closes[38] - 20
	return closes
}

func TestMACDHistogram(t *testing.T) {
	t.Run("insufficient closes", func(t *testing.T) {
		closes := make([]float64, MinCrossoverBars-1)
		for i := range closes {
			closes[i] = 100
		}
		_, err := MACDHistogram(closes)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("flat series has zero histogram and no crossover", func(t *testing.T) {
		closes := make([]float64, 60)
		for i := range closes {
			closes[i] = 812.40
		}
		m, err := MACDHistogram(closes)
		require.NoError(t, err)
		assert.InDelta(t, 0, m.Value, 1e-9)
		assert.False(t, m.CrossedUp)
		assert.False(t, m.CrossedDown)
	})

	t.Run("bullish zero crossing on the last bar", func(t *testing.T) {
		m, err := MACDHistogram(vBottomCloses())
		require.NoError(t, err)
		assert.Greater(t, m.Value, 0.0)
		assert.True(t, m.CrossedUp)
		assert.False(t, m.CrossedDown)
	})

	t.Run("bearish zero crossing on the last bar", func(t *testing.T) {
		m, err := MACDHistogram(vTopCloses())
		require.NoError(t, err)
		assert.Less(t, m.Value, 0.0)
		assert.True(t, m.CrossedDown)
		assert.False(t, m.CrossedUp)
	})

	t.Run("sustained trend is not a crossover", func(t *testing.T) {
		// Accelerating rally: histogram positive on both of the last
		// two bars, so the crossover already happened further back.
		closes := make([]float64, 50)
		for i := range closes {
			closes[i] = 100 + 0.02*float64(i*i)
		}
		m, err := MACDHistogram(closes)
		require.NoError(t, err)
		assert.Greater(t, m.Value, 0.0)
		assert.False(t, m.CrossedUp)
		assert.False(t, m.CrossedDown)
	})
}

func TestEMASeries(t *testing.T) {
	t.Run("seeded by simple average", func(t *testing.T) {
		out := EMASeries([]float64{1, 2, 3, 4, 5}, 3)
		require.Len(t, out, 5)
		assert.True(t, math.IsNaN(out[0]))
		assert.True(t, math.IsNaN(out[1]))
		assert.InDelta(t, 2.0, out[2], 1e-9)
		// alpha = 0.5 for period 3
		assert.InDelta(t, 3.0, out[3], 1e-9)
		assert.InDelta(t, 4.0, out[4], 1e-9)
	})

	t.Run("too short is all NaN", func(t *testing.T) {
		out := EMASeries([]float64{1, 2}, 5)
		require.Len(t, out, 2)
		for _, v := range out {
			assert.True(t, math.IsNaN(v))
		}
	})

	t.Run("constant input stays constant", func(t *testing.T) {
		data := make([]float64, 20)
		for i := range data {
			data[i] = 42.5
		}
		out := EMASeries(data, 9)
		for i := 8; i < len(out); i++ {
			assert.InDelta(t, 42.5, out[i], 1e-9)
		}
	})
}
