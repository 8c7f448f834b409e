package engine

import (
	"fmt"
	"strings"
	"time"
)

// ResolveContract returns the tradingsymbol of the monthly futures contract
// to trade for the given base instrument, e.g. "SBIN25SEPFUT". When the
// nearest expiry is within rolloverDays of today (or already past), the next
// month's contract is resolved instead.
func ResolveContract(base string, today time.Time, rolloverDays int) string {
	year, month := today.Year(), today.Month()

	expiry := monthlyExpiry(year, month, today.Location())
	daysLeft := int(expiry.Sub(startOfDay(today)).Hours() / 24)
	if daysLeft <= rolloverDays {
		if month == time.December {
			year, month = year+1, time.January
		} else {
			month++
		}
	}

	return fmt.Sprintf("%s%02d%sFUT", base, year%100, strings.ToUpper(month.String()[:3]))
}

// monthlyExpiry returns the last Thursday of the month, the standard expiry
// for NSE monthly futures.
func monthlyExpiry(year int, month time.Month, loc *time.Location) time.Time {
	// Day 0 of the next month is the last day of this one.
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc)
	for last.Weekday() != time.Thursday {
		last = last.AddDate(0, 0, -1)
	}
	return last
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
