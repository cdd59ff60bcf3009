package market

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"papertrader/internal/domain"
	"papertrader/internal/store"
)

// Compile-time interface checks.
var _ Provider = (*CachedProvider)(nil)
var _ BarSource = (*CachedProvider)(nil)

// CachedProvider serves windows from a WindowStore before falling back to
// the upstream source. Historical bars never change, so a cached window is
// served as-is until it is pruned.
type CachedProvider struct {
	upstream BarSource
	cache    store.WindowStore
	days     int
	log      *slog.Logger
}

// NewCachedProvider wraps upstream with cache.
func NewCachedProvider(upstream BarSource, cache store.WindowStore, days int, log *slog.Logger) *CachedProvider {
	if days <= 0 {
		days = DefaultWindowDays
	}
	if log == nil {
		log = slog.Default()
	}
	return &CachedProvider{
		upstream: upstream,
		cache:    cache,
		days:     days,
		log:      log.With("component", "window-cache"),
	}
}

// FetchBars returns cached bars when present. Cache read and write failures
// are logged and bypassed; empty upstream results are not cached.
func (p *CachedProvider) FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	bars, err := p.cache.ReadWindow(ctx, symbol, start, end)
	switch {
	case err == nil && len(bars) > 0:
		p.log.Debug("cache hit", "symbol", symbol, "count", len(bars))
		return bars, nil
	case err != nil && !errors.Is(err, store.ErrWindowNotCached):
		p.log.Warn("cache read failed", "symbol", symbol, "error", err)
	}

	bars, err = p.upstream.FetchBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 {
		if werr := p.cache.WriteWindow(ctx, symbol, start, end, bars); werr != nil {
			p.log.Warn("cache write failed", "symbol", symbol, "error", werr)
		}
	}
	return bars, nil
}

// FetchPriceWindow returns the final trading days of the (possibly cached)
// window.
func (p *CachedProvider) FetchPriceWindow(ctx context.Context, symbol string, start, end time.Time) ([]domain.PricePoint, error) {
	bars, err := p.FetchBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	return windowFromBars(bars, p.days), nil
}
