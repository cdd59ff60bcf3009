// Package session owns the process-wide trading session and serializes every
// engine operation against it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"papertrader/internal/domain"
	"papertrader/internal/engine"
	"papertrader/internal/market"
	"papertrader/internal/store"
	"papertrader/internal/util"
)

// ErrFutureStartDate is returned when a caller asks to replay a window that
// starts after today.
var ErrFutureStartDate = errors.New("session: start date is in the future")

// Options configures a Service. Engine and Provider are required.
type Options struct {
	Engine   *engine.Engine
	Provider market.Provider
	// Results journals finished sessions. Nil disables the journal.
	Results store.ResultStore
	Logger  *slog.Logger
	Now     func() time.Time
	Rand    *rand.Rand
}

// Service holds the single session state and exposes the engine operations
// to transports. All methods are safe for concurrent use.
type Service struct {
	engine   *engine.Engine
	provider market.Provider
	results  store.ResultStore
	log      *slog.Logger
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	mu      sync.Mutex
	state   domain.SessionState
	started bool // a session was started since the last reset
}

// New creates a Service with a default inactive session.
func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		engine:   opts.Engine,
		provider: opts.Provider,
		results:  opts.Results,
		log:      opts.Logger.With("component", "session"),
		now:      opts.Now,
		rng:      opts.Rand,
		state:    opts.Engine.NewState(),
	}
}

// Start fetches a price window for ticker and installs a fresh active
// session over it. An empty startDate picks a random historical window.
//
// The fetch runs without holding the session lock. Any failure leaves the
// service with no active session.
func (s *Service) Start(ctx context.Context, ticker, startDate string) (domain.SessionState, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return domain.SessionState{}, engine.ErrInvalidTicker
	}

	start, end, err := s.window(startDate)
	if err != nil {
		return domain.SessionState{}, err
	}

	s.log.Info("fetching price window", "ticker", ticker,
		"start", start.Format(domain.DateLayout), "end", end.Format(domain.DateLayout))
	series, fetchErr := s.provider.FetchPriceWindow(ctx, ticker, start, end)
	if fetchErr != nil && !errors.Is(fetchErr, market.ErrUpstreamFetchFailed) {
		fetchErr = fmt.Errorf("%w: %w", market.ErrUpstreamFetchFailed, fetchErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsActive {
		s.log.Warn("discarding active session", "ticker", s.state.Ticker, "sessionId", s.state.SessionID)
	}
	if fetchErr != nil {
		s.clearLocked()
		s.log.Error("price window fetch failed", "ticker", ticker, "error", fetchErr)
		return domain.SessionState{}, fetchErr
	}
	if err := s.engine.StartSession(&s.state, ticker, series); err != nil {
		s.clearLocked()
		s.log.Warn("session not started", "ticker", ticker, "error", err)
		return domain.SessionState{}, err
	}
	s.started = true

	s.log.Info("session started", "ticker", ticker, "sessionId", s.state.SessionID,
		"startDate", s.state.StartDate, "days", len(s.state.PriceSeries))
	return s.state.Clone(), nil
}

func (s *Service) window(startDate string) (time.Time, time.Time, error) {
	now := s.now()
	if strings.TrimSpace(startDate) == "" {
		s.rngMu.Lock()
		defer s.rngMu.Unlock()
		start, end := util.PickWindow(now, s.rng)
		return start, end, nil
	}

	start, err := market.ParseDate(startDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.After(now) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s", ErrFutureStartDate, start.Format(domain.DateLayout))
	}
	return start, util.WindowFrom(start), nil
}

func (s *Service) clearLocked() {
	s.engine.ResetSession(&s.state)
	s.started = false
}

// Act applies action at the current day's price. A quit ends the session
// and journals its result.
func (s *Service) Act(ctx context.Context, action domain.Action, amount decimal.Decimal) (domain.ActionResult, error) {
	s.mu.Lock()
	res, err := s.engine.ApplyAction(&s.state, action, amount)
	var ended *domain.SessionResult
	if err == nil && res.Summary != nil {
		ended = s.resultLocked(domain.EndReasonQuit, *res.Summary)
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Debug("action rejected", "action", action, "amount", amount, "error", err)
		return domain.ActionResult{}, err
	}
	s.log.Info("action applied", "action", action, "amount", res.Trade.Amount,
		"price", res.Trade.Price, "cash", res.CashBalance, "shares", res.SharesHeld)
	s.record(ctx, ended)
	return res, nil
}

// NextDay advances the session by one trading day. Moving past the last day
// ends the session and journals its result.
func (s *Service) NextDay(ctx context.Context) (domain.DayResult, error) {
	s.mu.Lock()
	res, err := s.engine.AdvanceDay(&s.state)
	var ended *domain.SessionResult
	if err == nil && res.Finished && res.Summary != nil {
		ended = s.resultLocked(domain.EndReasonExhausted, *res.Summary)
	}
	s.mu.Unlock()

	if err != nil {
		return domain.DayResult{}, err
	}
	if res.Finished {
		s.log.Info("price window exhausted", "profitLoss", res.Summary.ProfitLoss)
	}
	s.record(ctx, ended)
	return res, nil
}

// State returns a copy of the active session.
func (s *Service) State() (domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.IsActive {
		return domain.SessionState{}, engine.ErrSessionNotStarted
	}
	return s.state.Clone(), nil
}

// Summary values the active session at the current day's price.
func (s *Service) Summary() (domain.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ComputeSummary(&s.state)
}

// Reset discards any session and returns the default state.
func (s *Service) Reset(_ context.Context) domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsActive {
		s.log.Warn("resetting active session", "ticker", s.state.Ticker, "sessionId", s.state.SessionID)
	}
	s.clearLocked()
	return s.state.Clone()
}

// Snapshot returns a copy of the current or just-finished session. Unlike
// State it does not require the session to be active.
func (s *Service) Snapshot() (domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return domain.SessionState{}, engine.ErrSessionNotStarted
	}
	return s.state.Clone(), nil
}

// History returns the trade history of the current or just-finished session.
func (s *Service) History() ([]domain.TradeRecord, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.TradeHistory, nil
}

// Results lists journaled sessions, newest first.
func (s *Service) Results(ctx context.Context, limit int) ([]domain.SessionResult, error) {
	if s.results == nil {
		return []domain.SessionResult{}, nil
	}
	return s.results.ListResults(ctx, limit)
}

func (s *Service) resultLocked(reason domain.EndReason, sum domain.Summary) *domain.SessionResult {
	return &domain.SessionResult{
		SessionID:    s.state.SessionID,
		Ticker:       s.state.Ticker,
		StartDate:    s.state.StartDate,
		DaysPlayed:   sum.DaysPlayed,
		Trades:       len(s.state.TradeHistory),
		FinalBalance: sum.TotalPortfolioValue,
		ProfitLoss:   sum.ProfitLoss,
		Reason:       reason,
		EndedAt:      s.now().UTC(),
	}
}

// record journals a finished session. Failures are logged only; the session
// transition has already committed.
func (s *Service) record(ctx context.Context, r *domain.SessionResult) {
	if r == nil || s.results == nil {
		return
	}
	if err := s.results.SaveResult(ctx, r); err != nil {
		s.log.Error("journaling session result failed", "sessionId", r.SessionID, "error", err)
		return
	}
	s.log.Info("session journaled", "id", r.ID, "sessionId", r.SessionID, "reason", r.Reason,
		"profitLoss", r.ProfitLoss)
}
