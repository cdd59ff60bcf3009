// Package papertrader is a Go SDK for the papertrader-server HTTP API.
package papertrader

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is where papertrader-server listens by default.
const DefaultBaseURL = "http://localhost:5000"

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("papertrader: %d: %s", e.StatusCode, e.Message)
}

// Client provides a Go SDK for interacting with the papertrader-server API.
type Client struct {
	baseURL string
	http    *resty.Client
}

// NewClient creates a new papertrader API client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30*time.Second).
			SetHeader("Accept", "application/json"),
	}
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, body, out any) (*resty.Response, error) {
	req := c.http.R().
		SetContext(ctx).
		SetError(&errorBody{})
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if eb, ok := resp.Error().(*errorBody); ok && eb.Error != "" {
			msg = eb.Error
		}
		return resp, &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}
	return resp, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	_, err := c.do(ctx, http.MethodGet, "/", nil, &out)
	return out, err
}

// StartGame starts a session for ticker. An empty startDate lets the server
// pick a random historical window.
func (c *Client) StartGame(ctx context.Context, ticker, startDate string) (State, error) {
	var out State
	_, err := c.do(ctx, http.MethodPost, "/start-game", startRequest{Ticker: ticker, StartDate: startDate}, &out)
	return out, err
}

// Act applies action with amount at the current day's price.
func (c *Client) Act(ctx context.Context, action string, amount decimal.Decimal) (ActionResult, error) {
	var out ActionResult
	_, err := c.do(ctx, http.MethodPost, "/action", actionRequest{Action: action, Amount: amount}, &out)
	return out, err
}

// Buy purchases shares at the current price.
func (c *Client) Buy(ctx context.Context, shares decimal.Decimal) (ActionResult, error) {
	return c.Act(ctx, "buy", shares)
}

// Sell sells shares at the current price.
func (c *Client) Sell(ctx context.Context, shares decimal.Decimal) (ActionResult, error) {
	return c.Act(ctx, "sell", shares)
}

// Hold records a hold for the current day.
func (c *Client) Hold(ctx context.Context) (ActionResult, error) {
	return c.Act(ctx, "hold", decimal.Zero)
}

// Quit liquidates the position and ends the session.
func (c *Client) Quit(ctx context.Context) (ActionResult, error) {
	return c.Act(ctx, "quit", decimal.Zero)
}

// NextDay advances to the next trading day.
func (c *Client) NextDay(ctx context.Context) (DayResult, error) {
	var out DayResult
	_, err := c.do(ctx, http.MethodPost, "/next-day", nil, &out)
	return out, err
}

// State returns the active session.
func (c *Client) State(ctx context.Context) (State, error) {
	var out State
	_, err := c.do(ctx, http.MethodGet, "/state", nil, &out)
	return out, err
}

// Summary values the active session.
func (c *Client) Summary(ctx context.Context) (Summary, error) {
	var out Summary
	_, err := c.do(ctx, http.MethodGet, "/summary", nil, &out)
	return out, err
}

// Reset discards the session.
func (c *Client) Reset(ctx context.Context) (State, error) {
	var out resetResponse
	_, err := c.do(ctx, http.MethodPost, "/reset", nil, &out)
	return out.State, err
}

// HistoryXLSX downloads the trade history workbook of the current or
// just-finished session.
func (c *Client) HistoryXLSX(ctx context.Context) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/history.xlsx", nil, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// Results lists journaled sessions, newest first. limit <= 0 uses the
// server default.
func (c *Client) Results(ctx context.Context, limit int) ([]Result, error) {
	path := "/results"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out resultsResponse
	_, err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Results, err
}
