package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"papertrader/internal/domain"
	"papertrader/internal/engine"
	"papertrader/internal/market"
	"papertrader/internal/session"
)

type stubProvider struct {
	points []domain.PricePoint
	err    error
}

func (p *stubProvider) FetchPriceWindow(context.Context, string, time.Time, time.Time) ([]domain.PricePoint, error) {
	return p.points, p.err
}

func closes(ps ...int64) []domain.PricePoint {
	out := make([]domain.PricePoint, len(ps))
	for i, p := range ps {
		out[i] = domain.PricePoint{Date: fmt.Sprintf("2024-03-%02d", i+4), ClosingPrice: decimal.NewFromInt(p)}
	}
	return out
}

func newTestHandler(t *testing.T, p market.Provider) http.Handler {
	t.Helper()
	svc := session.New(session.Options{
		Engine:   engine.New(decimal.Zero),
		Provider: p,
		Now:      func() time.Time { return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC) },
		Rand:     rand.New(rand.NewSource(7)),
	})
	return NewServer(svc, 5000, nil).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[ErrorResponse](t, rec).Error
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, &stubProvider{})

	rec := do(t, h, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[HealthResponse](t, rec)
	assert.Equal(t, "Server is running", got.Status)
	assert.Equal(t, 5000, got.Port)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newTestHandler(t, &stubProvider{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(t, &stubProvider{})

	req := httptest.NewRequest(http.MethodOptions, "/action", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestGameFlow(t *testing.T) {
	h := newTestHandler(t, &stubProvider{points: closes(10, 11, 12, 13, 14, 15, 16)})

	rec := do(t, h, http.MethodPost, "/start-game", StartRequest{Ticker: "aapl"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state := decodeBody[domain.SessionState](t, rec)
	assert.Equal(t, "AAPL", state.Ticker)
	assert.True(t, state.IsActive)
	assert.Len(t, state.PriceSeries, 7)

	rec = do(t, h, http.MethodPost, "/action", `{"action":"buy","amount":100}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[domain.ActionResult](t, rec)
	assert.Equal(t, "Purchase successful", res.Message)
	assert.True(t, decimal.NewFromInt(9000).Equal(res.CashBalance))

	rec = do(t, h, http.MethodPost, "/next-day", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	day := decodeBody[domain.DayResult](t, rec)
	assert.Equal(t, "Moved to next day.", day.Message)
	require.NotNil(t, day.CurrentPrice)
	assert.True(t, decimal.NewFromInt(11).Equal(day.CurrentPrice.ClosingPrice))

	rec = do(t, h, http.MethodPost, "/action", `{"action":"SELL","amount":"50"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decodeBody[domain.Summary](t, rec)
	assert.True(t, decimal.NewFromInt(100).Equal(sum.ProfitLoss))
	assert.Equal(t, 2, sum.DaysPlayed)

	rec = do(t, h, http.MethodGet, "/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[domain.SessionState](t, rec).TradeHistory, 2)

	rec = do(t, h, http.MethodPost, "/action", `{"action":"quit"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res = decodeBody[domain.ActionResult](t, rec)
	assert.Equal(t, "Game ended", res.Message)
	require.NotNil(t, res.Summary)
	assert.True(t, decimal.NewFromInt(10100).Equal(res.Summary.FinalBalance))

	rec = do(t, h, http.MethodGet, "/state", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgNotStarted, errorOf(t, rec))

	rec = do(t, h, http.MethodGet, "/history.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "aapl-2024-03-04-history.xlsx")
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	rows, err := f.GetRows("History")
	require.NoError(t, err)
	assert.Equal(t, "buy", rows[1][2])
	require.NoError(t, f.Close())

	rec = do(t, h, http.MethodPost, "/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reset := decodeBody[ResetResponse](t, rec)
	assert.False(t, reset.State.IsActive)
	assert.True(t, decimal.NewFromInt(10000).Equal(reset.State.CashBalance))

	rec = do(t, h, http.MethodGet, "/history.xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExhaustion(t *testing.T) {
	h := newTestHandler(t, &stubProvider{points: closes(10)})

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/start-game", StartRequest{Ticker: "AAPL"}).Code)

	rec := do(t, h, http.MethodPost, "/next-day", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	day := decodeBody[domain.DayResult](t, rec)
	assert.True(t, day.Finished)
	assert.Equal(t, "Game ended. No more data available.", day.Message)
	assert.Nil(t, day.CurrentPrice)
	require.NotNil(t, day.Summary)

	rec = do(t, h, http.MethodPost, "/next-day", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgNotStarted, errorOf(t, rec))
}

func TestErrorMapping(t *testing.T) {
	h := newTestHandler(t, &stubProvider{points: closes(11)})
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/start-game", StartRequest{Ticker: "AAPL"}).Code)

	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"insufficient funds", `{"action":"buy","amount":1000}`, http.StatusBadRequest, msgInsufficientFun},
		{"insufficient shares", `{"action":"sell","amount":1}`, http.StatusBadRequest, msgInsufficientShr},
		{"zero amount", `{"action":"buy","amount":0}`, http.StatusBadRequest, msgInvalidAmount},
		{"negative amount", `{"action":"sell","amount":-5}`, http.StatusBadRequest, msgInvalidAmount},
		{"unknown action", `{"action":"short","amount":1}`, http.StatusBadRequest, msgInvalidAction},
		{"huge exponent", `{"action":"buy","amount":1e50000000}`, http.StatusBadRequest, msgInvalidAmount},
		{"tiny exponent", `{"action":"sell","amount":1e-50000000}`, http.StatusBadRequest, msgInvalidAmount},
		{"huge hold amount", `{"action":"hold","amount":"1e50000000"}`, http.StatusBadRequest, msgInvalidAmount},
		{"malformed body", `{"action":`, http.StatusBadRequest, msgBadBody},
		{"bad amount type", `{"action":"buy","amount":"lots"}`, http.StatusBadRequest, msgBadBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/action", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, errorOf(t, rec))
		})
	}

	rec := do(t, h, http.MethodGet, "/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeBody[domain.SessionState](t, rec)
	assert.Empty(t, state.TradeHistory, "rejected actions must not be recorded")
}

func TestActionBeforeStart(t *testing.T) {
	h := newTestHandler(t, &stubProvider{})

	for _, a := range []string{"buy", "sell", "hold", "quit"} {
		rec := do(t, h, http.MethodPost, "/action", fmt.Sprintf(`{"action":%q,"amount":1}`, a))
		assert.Equal(t, http.StatusBadRequest, rec.Code, a)
		assert.Equal(t, msgNotStarted, errorOf(t, rec), a)
	}
	for _, path := range []string{"/state", "/summary"} {
		rec := do(t, h, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestStartErrors(t *testing.T) {
	rec := do(t, newTestHandler(t, &stubProvider{}), http.MethodPost, "/start-game", StartRequest{Ticker: "ZZZZ"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgNoData, errorOf(t, rec))

	rec = do(t, newTestHandler(t, &stubProvider{}), http.MethodPost, "/start-game", StartRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgNoTicker, errorOf(t, rec))

	rec = do(t, newTestHandler(t, &stubProvider{points: closes(1)}), http.MethodPost, "/start-game",
		StartRequest{Ticker: "AAPL", StartDate: "2024/01/01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidDate, errorOf(t, rec))

	rec = do(t, newTestHandler(t, &stubProvider{err: errors.New("dial tcp: refused")}), http.MethodPost,
		"/start-game", StartRequest{Ticker: "AAPL"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, msgUpstream, errorOf(t, rec))
}

func TestResultsWithoutJournal(t *testing.T) {
	h := newTestHandler(t, &stubProvider{})

	rec := do(t, h, http.MethodGet, "/results?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[ResultsResponse](t, rec).Results)
	assert.True(t, strings.Contains(rec.Body.String(), `"results":[]`))

	rec = do(t, h, http.MethodGet, "/results?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type panicSessions struct{ Sessions }

func (panicSessions) State() (domain.SessionState, error) { panic("boom") }

func TestRecovery(t *testing.T) {
	h := NewServer(panicSessions{}, 5000, nil).Handler()

	rec := do(t, h, http.MethodGet, "/state", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgInternal, errorOf(t, rec))
}

func TestErrorResponseDefault(t *testing.T) {
	status, msg := errorResponse(errors.New("something odd"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, msgInternal, msg)

	status, _ = errorResponse(fmt.Errorf("wrapped: %w", engine.ErrInsufficientFunds))
	assert.Equal(t, http.StatusBadRequest, status)
}
