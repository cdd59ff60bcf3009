// Package market supplies the historical price windows a session trades
// over. Providers fetch daily bars from an upstream source, optionally
// through an on-disk cache, and reduce them to the final trading days of
// the requested range.
package market

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"papertrader/internal/domain"
)

// DefaultWindowDays is the number of trading days a session plays.
const DefaultWindowDays = 7

var (
	// ErrUpstreamFetchFailed wraps every failure to obtain bars from the
	// upstream quote source.
	ErrUpstreamFetchFailed = errors.New("market: upstream fetch failed")

	// ErrInvalidDate is returned by ParseDate for malformed input.
	ErrInvalidDate = errors.New("market: invalid date")
)

// Provider returns the ordered closing prices of symbol over [start, end],
// truncated to the final trading days of the range. An empty result with a
// nil error means the range held no trading days.
type Provider interface {
	FetchPriceWindow(ctx context.Context, symbol string, start, end time.Time) ([]domain.PricePoint, error)
}

// BarSource returns the raw daily bars of symbol over [start, end].
type BarSource interface {
	FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}

// windowFromBars orders bars by time and converts the last days of them into
// price points.
func windowFromBars(bars []domain.Bar, days int) []domain.PricePoint {
	if days <= 0 {
		days = DefaultWindowDays
	}
	sorted := append([]domain.Bar(nil), bars...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	if len(sorted) > days {
		sorted = sorted[len(sorted)-days:]
	}

	points := make([]domain.PricePoint, 0, len(sorted))
	for _, b := range sorted {
		points = append(points, domain.PricePointFromBar(b))
	}
	return points
}

// ParseDate parses a caller-supplied ISO date (YYYY-MM-DD) as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t.UTC(), nil
}
