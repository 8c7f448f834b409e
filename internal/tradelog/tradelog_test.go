package tradelog

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppend(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)

	require.NoError(t, Append(Entry{
		Symbol:  "SBIN25SEPFUT",
		Side:    "LONG",
		Qty:     750,
		Price:   812.40,
		OrderID: "OID-1",
		Reason:  "WEBHOOK_SIGNAL",
	}))
	require.NoError(t, Append(Entry{
		Symbol:  "SBIN25SEPFUT",
		Side:    "SHORT",
		Qty:     750,
		Price:   815.10,
		OrderID: "OID-2",
		Reason:  "TRAILING_STOP",
	}))

	day := time.Now().In(time.FixedZone("IST", 19800)).Format("2006-01-02")
	b, err := os.ReadFile(filepath.Join(dir, day+".txt"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)

	var first Entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "SBIN25SEPFUT", first.Symbol)
	assert.Equal(t, "LONG", first.Side)
	assert.Equal(t, 750, first.Qty)
	assert.NotEmpty(t, first.Time, "append stamps the entry")

	var second Entry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "TRAILING_STOP", second.Reason)
	assert.InDelta(t, 815.10, second.Price, 1e-9)
}

func TestCompressOlder(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)

	oldPath := filepath.Join(dir, "2025-01-02.txt")
	require.NoError(t, os.WriteFile(oldPath, []byte("{\"Symbol\":\"SBIN25JANFUT\"}\n"), 0o644))
	stale := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(oldPath, stale, stale))

	freshPath := filepath.Join(dir, "2025-08-29.txt")
	require.NoError(t, os.WriteFile(freshPath, []byte("{}\n"), 0o644))

	require.NoError(t, CompressOlder(7))

	_, err := os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err), "stale file must be replaced by its archive")

	gz, err := os.Open(oldPath + ".gz")
	require.NoError(t, err)
	defer gz.Close()
	r, err := gzip.NewReader(gz)
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Contains(t, string(content), "SBIN25JANFUT")

	_, err = os.Stat(freshPath)
	assert.NoError(t, err, "recent files are kept as-is")
}
