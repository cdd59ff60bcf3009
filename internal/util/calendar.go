package util

import (
	"math/rand"
	"time"
)

const (
	// WindowSpanDays is the calendar length of a picked window. Fourteen
	// calendar days reliably contain at least seven trading days.
	WindowSpanDays = 14

	windowMonthsBack = 6
	windowJitterDays = 365
)

// PickWindow returns a random historical date range: the start lies between
// six and eighteen months before now, the end WindowSpanDays after it. Both
// are truncated to UTC midnight.
func PickWindow(now time.Time, rng *rand.Rand) (start, end time.Time) {
	base := now.UTC().AddDate(0, -windowMonthsBack, 0)
	start = base.AddDate(0, 0, -rng.Intn(windowJitterDays))
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	return start, WindowFrom(start)
}

// WindowFrom returns the end of the window that begins at start.
func WindowFrom(start time.Time) time.Time {
	return start.AddDate(0, 0, WindowSpanDays)
}
