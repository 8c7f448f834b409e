package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func istDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 11, 0, 0, 0, ist)
}

func TestResolveContract(t *testing.T) {
	// August 2025 expiry is Thursday the 28th.
	t.Run("well before expiry stays on the near month", func(t *testing.T) {
		sym := ResolveContract("SBIN", istDate(2025, time.August, 20), 3)
		assert.Equal(t, "SBIN25AUGFUT", sym)
	})

	t.Run("inside the rollover window moves to next month", func(t *testing.T) {
		sym := ResolveContract("SBIN", istDate(2025, time.August, 26), 3)
		assert.Equal(t, "SBIN25SEPFUT", sym)
	})

	t.Run("expiry day itself rolls", func(t *testing.T) {
		sym := ResolveContract("SBIN", istDate(2025, time.August, 28), 3)
		assert.Equal(t, "SBIN25SEPFUT", sym)
	})

	t.Run("exactly at the threshold rolls", func(t *testing.T) {
		// Sep 2025 expiry is the 25th; three days out is the boundary.
		sym := ResolveContract("SBIN", istDate(2025, time.September, 22), 3)
		assert.Equal(t, "SBIN25OCTFUT", sym)
	})

	t.Run("december rolls into january of the next year", func(t *testing.T) {
		// Dec 2025 expiry is Thursday the 25th.
		sym := ResolveContract("SBIN", istDate(2025, time.December, 24), 3)
		assert.Equal(t, "SBIN26JANFUT", sym)
	})

	t.Run("zero rollover days holds until after expiry", func(t *testing.T) {
		sym := ResolveContract("SBIN", istDate(2025, time.August, 27), 0)
		assert.Equal(t, "SBIN25AUGFUT", sym)

		sym = ResolveContract("SBIN", istDate(2025, time.August, 28), 0)
		assert.Equal(t, "SBIN25SEPFUT", sym)
	})
}

func TestMonthlyExpiry(t *testing.T) {
	cases := []struct {
		y   int
		m   time.Month
		day int
	}{
		{2025, time.August, 28},
		{2025, time.September, 25},
		{2025, time.December, 25},
		{2026, time.February, 26},
	}
	for _, c := range cases {
		exp := monthlyExpiry(c.y, c.m, ist)
		assert.Equal(t, time.Thursday, exp.Weekday())
		assert.Equal(t, c.day, exp.Day())
		assert.Equal(t, c.m, exp.Month())
	}
}
