package market

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"papertrader/internal/domain"
	"papertrader/internal/util"
)

// Compile-time interface checks.
var _ Provider = (*AlpacaProvider)(nil)
var _ BarSource = (*AlpacaProvider)(nil)

// barsClient is the subset of *marketdata.Client the provider calls.
type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaOptions configures an AlpacaProvider.
type AlpacaOptions struct {
	APIKey          string
	APISecret       string
	DataURL         string
	Feed            string
	RateLimitPerMin int
	RateBurst       int
	MaxAttempts     int
	RetryDelay      time.Duration
	WindowDays      int
}

// AlpacaProvider fetches daily bars from the Alpaca market-data API. Calls
// are rate limited and retried with exponential backoff.
type AlpacaProvider struct {
	client      barsClient
	feed        string
	days        int
	limiter     *util.RateLimiter
	maxAttempts int
	retryDelay  time.Duration
	log         *slog.Logger
}

// NewAlpacaProvider creates an AlpacaProvider from opts.
func NewAlpacaProvider(opts AlpacaOptions, log *slog.Logger) *AlpacaProvider {
	clientOpts := marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.DataURL != "" {
		clientOpts.BaseURL = opts.DataURL
	}
	return newAlpacaProvider(marketdata.NewClient(clientOpts), opts, log)
}

func newAlpacaProvider(client barsClient, opts AlpacaOptions, log *slog.Logger) *AlpacaProvider {
	if opts.RateLimitPerMin <= 0 {
		opts.RateLimitPerMin = 200
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultWindowDays
	}
	if log == nil {
		log = slog.Default()
	}
	return &AlpacaProvider{
		client:      client,
		feed:        opts.Feed,
		days:        opts.WindowDays,
		limiter:     util.NewRateLimiter(opts.RateLimitPerMin, opts.RateBurst),
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		log:         log.With("component", "alpaca"),
	}
}

// FetchBars fetches daily bars for symbol over [start, end]. Any failure is
// wrapped with ErrUpstreamFetchFailed.
func (p *AlpacaProvider) FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	req := marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
	}
	if p.feed != "" {
		req.Feed = marketdata.Feed(p.feed)
	}

	var raw []marketdata.Bar
	attempt := 0
	err := util.Retry(ctx, p.maxAttempts, p.retryDelay, func() error {
		attempt++
		if err := ctx.Err(); err != nil {
			return util.Permanent(err)
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		bars, err := p.client.GetBars(symbol, req)
		if err != nil {
			p.log.Warn("GetBars failed", "symbol", symbol, "attempt", attempt, "error", err)
			return err
		}
		raw = bars
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s bars %s..%s: %w", ErrUpstreamFetchFailed, symbol,
			start.Format(domain.DateLayout), end.Format(domain.DateLayout), err)
	}

	bars := make([]domain.Bar, 0, len(raw))
	for _, ab := range raw {
		bars = append(bars, domain.Bar{
			Symbol:     symbol,
			Timestamp:  ab.Timestamp,
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		})
	}
	p.log.Debug("fetched bars", "symbol", symbol, "count", len(bars), "attempts", attempt)
	return bars, nil
}

// FetchPriceWindow fetches bars and keeps the final configured number of
// trading days.
func (p *AlpacaProvider) FetchPriceWindow(ctx context.Context, symbol string, start, end time.Time) ([]domain.PricePoint, error) {
	bars, err := p.FetchBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	return windowFromBars(bars, p.days), nil
}
