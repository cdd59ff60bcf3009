// Package domain defines the core value types shared across the papertrader
// server: price data, trade records, and the session state a player trades
// against.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO date format used for every date carried by the
// session (price points, trade records, window bounds).
const DateLayout = "2006-01-02"

// Action is a player decision for the current trading day.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
	ActionQuit Action = "quit"
)

// EndReason records how a session reached its terminal state.
type EndReason string

const (
	EndReasonQuit      EndReason = "quit"
	EndReasonExhausted EndReason = "exhausted"
)

// Bar is a single daily OHLCV bar as returned by the upstream quote source.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// PricePoint is one trading day of the session's price window.
type PricePoint struct {
	Date         string          `json:"date"`
	ClosingPrice decimal.Decimal `json:"closingPrice"`
}

// PricePointFromBar converts an upstream bar into a session price point.
func PricePointFromBar(b Bar) PricePoint {
	return PricePoint{
		Date:         b.Timestamp.UTC().Format(DateLayout),
		ClosingPrice: decimal.NewFromFloat(b.Close),
	}
}

// TradeRecord is one accepted action in the session's trade history.
type TradeRecord struct {
	Action Action          `json:"action"`
	Amount decimal.Decimal `json:"amount"`
	Price  decimal.Decimal `json:"price"`
	Date   string          `json:"date"`
}

// SessionState holds one player's position and trade history.
type SessionState struct {
	SessionID       string          `json:"sessionId,omitempty"`
	Ticker          string          `json:"ticker"`
	StartDate       string          `json:"startDate"`
	PriceSeries     []PricePoint    `json:"priceSeries"`
	CurrentDayIndex int             `json:"currentDayIndex"`
	CashBalance     decimal.Decimal `json:"cashBalance"`
	SharesHeld      decimal.Decimal `json:"sharesHeld"`
	TradeHistory    []TradeRecord   `json:"tradeHistory"`
	IsActive        bool            `json:"isActive"`
}

// CurrentPrice returns the price point for the current day. The second
// return value is false when the day index is out of range.
func (s *SessionState) CurrentPrice() (PricePoint, bool) {
	if s.CurrentDayIndex < 0 || s.CurrentDayIndex >= len(s.PriceSeries) {
		return PricePoint{}, false
	}
	return s.PriceSeries[s.CurrentDayIndex], true
}

// Clone returns a deep copy of the state so callers can read it without
// holding the owner's lock.
func (s *SessionState) Clone() SessionState {
	c := *s
	c.PriceSeries = append([]PricePoint(nil), s.PriceSeries...)
	c.TradeHistory = append([]TradeRecord(nil), s.TradeHistory...)
	if c.PriceSeries == nil {
		c.PriceSeries = []PricePoint{}
	}
	if c.TradeHistory == nil {
		c.TradeHistory = []TradeRecord{}
	}
	return c
}

// Summary is the valuation of a session at a given day.
type Summary struct {
	FinalBalance        decimal.Decimal `json:"finalBalance"`
	FinalStockValue     decimal.Decimal `json:"finalStockValue"`
	TotalPortfolioValue decimal.Decimal `json:"totalPortfolioValue"`
	ProfitLoss          decimal.Decimal `json:"profitLoss"`
	DaysPlayed          int             `json:"daysPlayed"`
}

// ActionResult is returned for every accepted action. Summary is set only
// for quit.
type ActionResult struct {
	Action      Action          `json:"action"`
	Message     string          `json:"message"`
	CashBalance decimal.Decimal `json:"cashBalance"`
	SharesHeld  decimal.Decimal `json:"sharesHeld"`
	Trade       TradeRecord     `json:"trade"`
	Summary     *Summary        `json:"summary,omitempty"`
}

// DayResult is returned by a day advance. When Finished is true the window
// is exhausted, CurrentPrice is nil and Summary values the position at the
// last valid day.
type DayResult struct {
	Message         string          `json:"message"`
	CurrentDayIndex int             `json:"currentDayIndex"`
	CurrentPrice    *PricePoint     `json:"currentPrice,omitempty"`
	CashBalance     decimal.Decimal `json:"cashBalance"`
	SharesHeld      decimal.Decimal `json:"sharesHeld"`
	Finished        bool            `json:"finished"`
	Summary         *Summary        `json:"summary,omitempty"`
}

// SessionResult is the journal entry written when a session ends.
type SessionResult struct {
	ID           string          `json:"id"`
	SessionID    string          `json:"sessionId"`
	Ticker       string          `json:"ticker"`
	StartDate    string          `json:"startDate"`
	DaysPlayed   int             `json:"daysPlayed"`
	Trades       int             `json:"trades"`
	FinalBalance decimal.Decimal `json:"finalBalance"`
	ProfitLoss   decimal.Decimal `json:"profitLoss"`
	Reason       EndReason       `json:"reason"`
	EndedAt      time.Time       `json:"endedAt"`
}
