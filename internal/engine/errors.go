package engine

import "errors"

// Rejections returned by the engine. A rejected call never mutates the
// session it was given.
var (
	ErrInvalidTicker      = errors.New("ticker is required")
	ErrEmptyPriceData     = errors.New("no price data for requested window")
	ErrSessionNotStarted  = errors.New("session not started")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidPrice       = errors.New("invalid stock price")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrInvalidAction      = errors.New("invalid action")
)
