// Package engine implements the trading-session state machine: starting a
// session over a price window, applying buy/sell/hold/quit decisions,
// advancing the day pointer, and valuing the position. The engine performs
// no I/O; every operation works on a caller-owned *domain.SessionState.
package engine

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"papertrader/internal/domain"
)

// DefaultStartingCash is the balance every session starts with unless the
// engine is configured otherwise.
var DefaultStartingCash = decimal.NewFromInt(10000)

// Engine applies the trading rules to a session state.
type Engine struct {
	startingCash decimal.Decimal
	newID        func() string
}

// New creates an Engine whose sessions start with startingCash. A zero or
// negative value falls back to DefaultStartingCash.
func New(startingCash decimal.Decimal) *Engine {
	if !startingCash.IsPositive() {
		startingCash = DefaultStartingCash
	}
	return &Engine{
		startingCash: Round2(startingCash),
		newID:        uuid.NewString,
	}
}

// StartingCash returns the balance sessions start with; profit and loss are
// measured against it.
func (e *Engine) StartingCash() decimal.Decimal {
	return e.startingCash
}

// Share amounts outside these bounds are rejected before any arithmetic.
// The magnitude range matches what a float64 can represent.
const (
	maxAmountDigits    = 64
	minAmountMagnitude = -308
	maxAmountMagnitude = 308
)

// FiniteAmount reports whether amount is a number a float64 could hold with
// a bounded coefficient. Scaling larger values allocates without limit.
func FiniteAmount(amount decimal.Decimal) bool {
	digits := amount.NumDigits()
	if digits > maxAmountDigits {
		return false
	}
	mag := int64(amount.Exponent()) + int64(digits) - 1
	return mag >= minAmountMagnitude && mag <= maxAmountMagnitude
}

// Round2 rounds a monetary amount to exactly two decimal places. Applied at
// every step that produces a balance.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// NewState returns the default, inactive session state.
func (e *Engine) NewState() domain.SessionState {
	return domain.SessionState{
		PriceSeries:  []domain.PricePoint{},
		CashBalance:  e.startingCash,
		SharesHeld:   decimal.Zero,
		TradeHistory: []domain.TradeRecord{},
	}
}

// ResetSession reinitializes state to the default inactive state, whether or
// not a session is in progress.
func (e *Engine) ResetSession(state *domain.SessionState) {
	*state = e.NewState()
}

// StartSession replaces state with a fresh active session over series. The
// series must be non-empty and every closing price positive; on failure
// state is left untouched.
func (e *Engine) StartSession(state *domain.SessionState, ticker string, series []domain.PricePoint) error {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return ErrInvalidTicker
	}
	if len(series) == 0 {
		return ErrEmptyPriceData
	}
	for _, p := range series {
		if !p.ClosingPrice.IsPositive() {
			return ErrInvalidPrice
		}
	}

	next := e.NewState()
	next.SessionID = e.newID()
	next.Ticker = ticker
	next.StartDate = series[0].Date
	next.PriceSeries = append([]domain.PricePoint(nil), series...)
	next.IsActive = true

	*state = next
	return nil
}

// ApplyAction applies a player decision at the current day's closing price.
//
// Checks run in order: the session must be active, amount must be positive
// and finite (not checked for hold and quit), and the current price must be
// positive. Buy and sell are then checked against cash and holdings. Every accepted
// action appends exactly one trade record.
func (e *Engine) ApplyAction(state *domain.SessionState, action domain.Action, amount decimal.Decimal) (domain.ActionResult, error) {
	if !state.IsActive {
		return domain.ActionResult{}, ErrSessionNotStarted
	}
	if action != domain.ActionHold && action != domain.ActionQuit && (!amount.IsPositive() || !FiniteAmount(amount)) {
		return domain.ActionResult{}, ErrInvalidAmount
	}
	current, ok := state.CurrentPrice()
	if !ok || !current.ClosingPrice.IsPositive() {
		return domain.ActionResult{}, ErrInvalidPrice
	}
	price := current.ClosingPrice

	cash := state.CashBalance
	shares := state.SharesHeld
	record := domain.TradeRecord{Action: action, Amount: amount, Price: price, Date: current.Date}
	var (
		message string
		summary *domain.Summary
	)

	switch action {
	case domain.ActionBuy:
		cost := Round2(price.Mul(amount))
		if cost.GreaterThan(cash) {
			return domain.ActionResult{}, ErrInsufficientFunds
		}
		cash = Round2(cash.Sub(cost))
		shares = shares.Add(amount)
		message = "Purchase successful"

	case domain.ActionSell:
		if amount.GreaterThan(shares) {
			return domain.ActionResult{}, ErrInsufficientShares
		}
		cash = Round2(cash.Add(price.Mul(amount)))
		shares = shares.Sub(amount)
		message = "Sale successful"

	case domain.ActionHold:
		record.Amount = shares
		message = "Hold successful"

	case domain.ActionQuit:
		record.Amount = shares
		cash = Round2(cash.Add(price.Mul(shares)))
		shares = decimal.Zero
		message = "Game ended"
		summary = &domain.Summary{
			FinalBalance:        cash,
			FinalStockValue:     decimal.Zero,
			TotalPortfolioValue: cash,
			ProfitLoss:          Round2(cash.Sub(e.startingCash)),
			DaysPlayed:          state.CurrentDayIndex + 1,
		}

	default:
		return domain.ActionResult{}, ErrInvalidAction
	}

	state.CashBalance = cash
	state.SharesHeld = shares
	state.TradeHistory = append(state.TradeHistory, record)
	if action == domain.ActionQuit {
		state.IsActive = false
	}

	return domain.ActionResult{
		Action:      action,
		Message:     message,
		CashBalance: cash,
		SharesHeld:  shares,
		Trade:       record,
		Summary:     summary,
	}, nil
}

// AdvanceDay moves the session to the next trading day. Moving past the last
// day deactivates the session and returns a finished result; the day index
// is left out of range and must not be used to index the series.
func (e *Engine) AdvanceDay(state *domain.SessionState) (domain.DayResult, error) {
	if !state.IsActive {
		return domain.DayResult{}, ErrSessionNotStarted
	}

	state.CurrentDayIndex++

	if current, ok := state.CurrentPrice(); ok {
		return domain.DayResult{
			Message:         "Moved to next day.",
			CurrentDayIndex: state.CurrentDayIndex,
			CurrentPrice:    &current,
			CashBalance:     state.CashBalance,
			SharesHeld:      state.SharesHeld,
		}, nil
	}

	state.IsActive = false
	last := state.PriceSeries[len(state.PriceSeries)-1]
	final := e.valuation(state, last.ClosingPrice, len(state.PriceSeries))
	return domain.DayResult{
		Message:         "Game ended. No more data available.",
		CurrentDayIndex: state.CurrentDayIndex,
		CashBalance:     state.CashBalance,
		SharesHeld:      state.SharesHeld,
		Finished:        true,
		Summary:         &final,
	}, nil
}

// ComputeSummary values the active session at the current day's price.
func (e *Engine) ComputeSummary(state *domain.SessionState) (domain.Summary, error) {
	if !state.IsActive {
		return domain.Summary{}, ErrSessionNotStarted
	}
	current, ok := state.CurrentPrice()
	if !ok {
		return domain.Summary{}, ErrSessionNotStarted
	}
	return e.valuation(state, current.ClosingPrice, state.CurrentDayIndex+1), nil
}

func (e *Engine) valuation(state *domain.SessionState, price decimal.Decimal, days int) domain.Summary {
	stockValue := Round2(state.SharesHeld.Mul(price))
	total := Round2(state.CashBalance.Add(state.SharesHeld.Mul(price)))
	return domain.Summary{
		FinalBalance:        state.CashBalance,
		FinalStockValue:     stockValue,
		TotalPortfolioValue: total,
		ProfitLoss:          Round2(total.Sub(e.startingCash)),
		DaysPlayed:          days,
	}
}
