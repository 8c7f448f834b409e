// Package tradelog appends executed trades to daily JSON-lines files so the
// order trail survives restarts and can be compacted after the fact.
package tradelog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var mu sync.Mutex

// Entry is one executed order. Reason carries the trigger: WEBHOOK_SIGNAL,
// STOP_LOSS, TRAILING_STOP, MACD_REVERSAL or MANUAL_EXIT.
type Entry struct {
	Time, Symbol, Side, OrderID, Reason string
	Qty                                 int
	Price                               float64
	Extra                               map[string]any `json:"extra,omitempty"`
}

func logDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func dailyFilepath(t time.Time) string {
	d := t.In(time.FixedZone("IST", 19800)).Format("2006-01-02")
	return filepath.Join(logDir(), d+".txt")
}

// Append records an entry in today's trade file.
func Append(e Entry) error {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now().In(time.FixedZone("IST", 19800))
	e.Time = now.Format("2006-01-02 15:04:05")
	p := dailyFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, _ := json.Marshal(e)
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips daily trade files older than retentionDays.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	root := logDir()
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil {
			return nil
		}
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		if info.ModTime().Before(cutoff) {
			compressFile(p)
		}
		return nil
	})
}

func compressFile(p string) {
	gz := p + ".gz"
	if _, err := os.Stat(gz); err == nil {
		_ = os.Remove(p)
		return
	}

	in, err := os.Open(p)
	if err != nil {
		return
	}
	defer in.Close()

	out, err := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return
	}

	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err == nil {
		_ = gw.Close()
		_ = out.Close()
		_ = os.Remove(p)
		return
	}
	_ = gw.Close()
	_ = out.Close()
}
