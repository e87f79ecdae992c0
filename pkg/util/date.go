package util

import (
	"strconv"
	"time"
)

// DateLayout is the trading-date format used across caches and the API.
const DateLayout = "2006-01-02"

// brokerLayouts covers the timestamp shapes brokerage APIs return.
var brokerLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05",
	DateLayout,
}

// ParseTime tries RFC3339 variants, broker formats and unix seconds.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range brokerLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTradeDate parses any ParseTime input and truncates it to a UTC calendar date.
func ParseTradeDate(s string) (time.Time, bool) {
	t, ok := ParseTime(s)
	if !ok {
		return time.Time{}, false
	}
	return Day(t), true
}

// Day drops the clock component, keeping the calendar date in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// ClampRange keeps [from, to] within maxDays by moving from forward.
func ClampRange(from, to time.Time, maxDays int) (time.Time, time.Time) {
	if limit := to.AddDate(0, 0, -maxDays); from.Before(limit) {
		from = limit
	}
	return from, to
}
