package papertrader

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one trading day of a session's price window.
type PricePoint struct {
	Date         string          `json:"date"`
	ClosingPrice decimal.Decimal `json:"closingPrice"`
}

// TradeRecord is one accepted action.
type TradeRecord struct {
	Action string          `json:"action"`
	Amount decimal.Decimal `json:"amount"`
	Price  decimal.Decimal `json:"price"`
	Date   string          `json:"date"`
}

// State is the session state returned by the server.
type State struct {
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

// CurrentPrice returns the current day's price point, if any.
func (s State) CurrentPrice() (PricePoint, bool) {
	if s.CurrentDayIndex < 0 || s.CurrentDayIndex >= len(s.PriceSeries) {
		return PricePoint{}, false
	}
	return s.PriceSeries[s.CurrentDayIndex], true
}

// Summary values a session.
type Summary struct {
	FinalBalance        decimal.Decimal `json:"finalBalance"`
	FinalStockValue     decimal.Decimal `json:"finalStockValue"`
	TotalPortfolioValue decimal.Decimal `json:"totalPortfolioValue"`
	ProfitLoss          decimal.Decimal `json:"profitLoss"`
	DaysPlayed          int             `json:"daysPlayed"`
}

// ActionResult is returned by an accepted action.
type ActionResult struct {
	Action      string          `json:"action"`
	Message     string          `json:"message"`
	CashBalance decimal.Decimal `json:"cashBalance"`
	SharesHeld  decimal.Decimal `json:"sharesHeld"`
	Trade       TradeRecord     `json:"trade"`
	Summary     *Summary        `json:"summary,omitempty"`
}

// DayResult is returned by a day advance.
type DayResult struct {
	Message         string          `json:"message"`
	CurrentDayIndex int             `json:"currentDayIndex"`
	CurrentPrice    *PricePoint     `json:"currentPrice,omitempty"`
	CashBalance     decimal.Decimal `json:"cashBalance"`
	SharesHeld      decimal.Decimal `json:"sharesHeld"`
	Finished        bool            `json:"finished"`
	Summary         *Summary        `json:"summary,omitempty"`
}

// Result is a journaled finished session.
type Result struct {
	ID           string          `json:"id"`
	SessionID    string          `json:"sessionId"`
	Ticker       string          `json:"ticker"`
	StartDate    string          `json:"startDate"`
	DaysPlayed   int             `json:"daysPlayed"`
	Trades       int             `json:"trades"`
	FinalBalance decimal.Decimal `json:"finalBalance"`
	ProfitLoss   decimal.Decimal `json:"profitLoss"`
	Reason       string          `json:"reason"`
	EndedAt      time.Time       `json:"endedAt"`
}

// Health is the server health response.
type Health struct {
	Status string `json:"status"`
	Port   int    `json:"port"`
}

type startRequest struct {
	Ticker    string `json:"ticker"`
	StartDate string `json:"startDate,omitempty"`
}

type actionRequest struct {
	Action string          `json:"action"`
	Amount decimal.Decimal `json:"amount"`
}

type resetResponse struct {
	Message string `json:"message"`
	State   State  `json:"state"`
}

type resultsResponse struct {
	Results []Result `json:"results"`
}

type errorBody struct {
	Error string `json:"error"`
}
