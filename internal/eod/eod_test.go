package eod

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2025, 8, 20, 16, 0, 0, 0, time.FixedZone("IST", 19800))

func writeJournal(t *testing.T, dir string, lines ...string) {
	t.Helper()
	p := filepath.Join(dir, testDay.Format("2006-01-02")+".txt")
	body := ""
	for _, l := range lines {
		body += l + "\n"
	}
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func TestSummarizeDay(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)

	writeJournal(t, dir,
		`{"Symbol":"SBIN25AUGFUT","Side":"LONG","Qty":750,"Price":800,"Reason":"WEBHOOK_SIGNAL"}`,
		`{"Symbol":"SBIN25AUGFUT","Side":"SHORT","Qty":750,"Price":810,"Reason":"TRAILING_STOP"}`,
		`{"Symbol":"TCS25AUGFUT","Side":"SHORT","Qty":100,"Price":3000,"Reason":"WEBHOOK_SIGNAL"}`,
	)

	outPath, err := SummarizeDay(testDay)
	require.NoError(t, err)
	require.NotEmpty(t, outPath)

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4, "header, two symbols, total")

	assert.Equal(t, "symbol", rows[0][0])

	// symbols are sorted
	assert.Equal(t, "SBIN25AUGFUT", rows[1][0])
	assert.Equal(t, "750", rows[1][1])
	assert.Equal(t, "800.0000", rows[1][2])
	assert.Equal(t, "750", rows[1][3])
	assert.Equal(t, "810.0000", rows[1][4])
	assert.Equal(t, "7500.00", rows[1][5], "750 matched at a 10 point spread")

	assert.Equal(t, "TCS25AUGFUT", rows[2][0])
	assert.Equal(t, "0.00", rows[2][5], "unmatched one-leg day has no realized pnl")

	assert.Equal(t, "TOTAL", rows[3][0])
	assert.Equal(t, "7500.00", rows[3][5])
}

func TestSummarizeDayNoJournal(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())

	outPath, err := SummarizeDay(testDay)
	assert.NoError(t, err)
	assert.Empty(t, outPath, "no trades means no summary file")
}

func TestSummarizeDaySkipsGarbageLines(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)

	writeJournal(t, dir,
		`not json at all`,
		`{"Symbol":"SBIN25AUGFUT","Side":"LONG","Qty":10,"Price":100}`,
	)

	outPath, err := SummarizeDay(testDay)
	require.NoError(t, err)
	require.NotEmpty(t, outPath)

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "SBIN25AUGFUT", rows[1][0])
}
