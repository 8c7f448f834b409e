package engine

import "time"

var ist = time.FixedZone("IST", 19800)

// inSession reports whether now falls inside the configured trading window
// on a weekday. Times in the config are interpreted as IST, NSE's clock.
func (e *Engine) inSession(now time.Time) bool {
	local := now.In(ist)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}

	open, err := time.Parse("15:04", e.cfg.Market.Open)
	if err != nil {
		return true
	}
	close_, err := time.Parse("15:04", e.cfg.Market.Close)
	if err != nil {
		return true
	}

	openAt := time.Date(local.Year(), local.Month(), local.Day(), open.Hour(), open.Minute(), 0, 0, ist)
	closeAt := time.Date(local.Year(), local.Month(), local.Day(), close_.Hour(), close_.Minute(), 0, 0, ist)

	return !local.Before(openAt) && !local.After(closeAt)
}
