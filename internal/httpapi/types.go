// Package httpapi exposes the paper-trading session over a JSON HTTP API.
package httpapi

import (
	"github.com/shopspring/decimal"

	"papertrader/internal/domain"
)

// StartRequest is the body of POST /start-game. StartDate is optional and
// replays the window beginning on that day.
type StartRequest struct {
	Ticker    string `json:"ticker"`
	StartDate string `json:"startDate,omitempty"`
}

// ActionRequest is the body of POST /action. Amount accepts a JSON number or
// a numeric string.
type ActionRequest struct {
	Action string          `json:"action"`
	Amount decimal.Decimal `json:"amount"`
}

// HealthResponse is returned by GET /.
type HealthResponse struct {
	Status string `json:"status"`
	Port   int    `json:"port"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ResetResponse is returned by POST /reset.
type ResetResponse struct {
	Message string              `json:"message"`
	State   domain.SessionState `json:"state"`
}

// ResultsResponse is returned by GET /results.
type ResultsResponse struct {
	Results []domain.SessionResult `json:"results"`
}
