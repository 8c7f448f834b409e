package zerodha

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kite-futures-bot/internal/types"
)

func dryRun() *Zerodha {
	return NewZerodha(Params{Mode: "DRY_RUN", Exchange: "NFO", HistoryInterval: "30minute"})
}

func TestDryRunLTP(t *testing.T) {
	z := dryRun()
	price, err := z.LTP(context.Background(), "SBIN25SEPFUT")
	require.NoError(t, err)
	assert.Greater(t, price, 0.0)
}

func TestDryRunCandles(t *testing.T) {
	z := dryRun()
	cs, err := z.RecentCandles(context.Background(), "SBIN25SEPFUT", 60)
	require.NoError(t, err)
	require.Len(t, cs, 60)

	for i, c := range cs {
		assert.GreaterOrEqual(t, c.High, c.Close, "candle %d", i)
		assert.LessOrEqual(t, c.Low, c.Close, "candle %d", i)
		if i > 0 {
			assert.Greater(t, c.Ts, cs[i-1].Ts, "timestamps must ascend")
		}
	}
}

func TestDryRunPlaceOrder(t *testing.T) {
	z := dryRun()
	resp, err := z.PlaceOrder(context.Background(), types.OrderReq{
		Symbol: "SBIN25SEPFUT",
		Side:   types.SideLong,
		Qty:    750,
		Tag:    "ENTRY",
	})
	require.NoError(t, err)
	assert.Equal(t, "SIMULATED", resp.Status)
	assert.NotEmpty(t, resp.OrderID)
}

func TestIntervalDuration(t *testing.T) {
	assert.Equal(t, "1m0s", intervalDuration("minute").String())
	assert.Equal(t, "30m0s", intervalDuration("30minute").String())
	assert.Equal(t, "30m0s", intervalDuration("unknown").String())
	assert.Equal(t, "24h0m0s", intervalDuration("day").String())
}

func TestInstrumentMapper(t *testing.T) {
	m := newInstrumentMapper()

	_, ok := m.getToken("SBIN25SEPFUT")
	assert.False(t, ok)

	m.addMapping("SBIN25SEPFUT", 779521)
	token, ok := m.getToken("SBIN25SEPFUT")
	assert.True(t, ok)
	assert.Equal(t, 779521, token)
}
