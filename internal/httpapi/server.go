package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"papertrader/internal/domain"
	"papertrader/internal/engine"
	"papertrader/internal/market"
	"papertrader/internal/report"
	"papertrader/internal/session"
)

// Error messages shown to players.
const (
	msgNoData          = "No data found. Enter valid ticker symbol."
	msgNoTicker        = "Ticker symbol is required."
	msgNotStarted      = "Game has not started. Please start a game by entering a valid ticker symbol."
	msgInvalidAmount   = "Invalid amount specified."
	msgInvalidPrice    = "Invalid stock price."
	msgInsufficientFun = "Insufficient funds to complete purchase."
	msgInsufficientShr = "Insufficient shares to complete sale."
	msgInvalidAction   = "Invalid action specified."
	msgInvalidDate     = "Invalid start date. Use YYYY-MM-DD for a past date."
	msgUpstream        = "Unable to fetch price data. Please try again later."
	msgBadBody         = "Invalid request body."
	msgInternal        = "Internal server error"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 16

// Sessions is the session service the API drives.
type Sessions interface {
	Start(ctx context.Context, ticker, startDate string) (domain.SessionState, error)
	Act(ctx context.Context, action domain.Action, amount decimal.Decimal) (domain.ActionResult, error)
	NextDay(ctx context.Context) (domain.DayResult, error)
	State() (domain.SessionState, error)
	Summary() (domain.Summary, error)
	Reset(ctx context.Context) domain.SessionState
	Snapshot() (domain.SessionState, error)
	Results(ctx context.Context, limit int) ([]domain.SessionResult, error)
}

var _ Sessions = (*session.Service)(nil)

// Server serves the game HTTP API.
type Server struct {
	sessions Sessions
	port     int
	log      *slog.Logger
}

// NewServer creates a new game HTTP server. port is reported by the health
// endpoint only.
func NewServer(sessions Sessions, port int, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		sessions: sessions,
		port:     port,
		log:      log.With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("POST /start-game", s.handleStart)
	mux.HandleFunc("POST /action", s.handleAction)
	mux.HandleFunc("POST /next-day", s.handleNextDay)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /summary", s.handleSummary)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("POST /reset-game", s.handleReset)
	mux.HandleFunc("GET /history.xlsx", s.handleHistoryXLSX)
	mux.HandleFunc("GET /results", s.handleResults)
}

// Handler returns the routed mux wrapped in recovery, logging, request-id
// and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	var h http.Handler = mux
	h = recoveryMiddleware(s.log, h)
	h = loggingMiddleware(s.log, h)
	h = requestIDMiddleware(h)
	return corsMiddleware(h)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "Server is running", Port: s.port})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if !s.decode(w, r, &req) {
		return
	}
	state, err := s.sessions.Start(r.Context(), req.Ticker, req.StartDate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if !req.Amount.IsZero() && !engine.FiniteAmount(req.Amount) {
		s.fail(w, r, engine.ErrInvalidAmount)
		return
	}
	action := domain.Action(strings.ToLower(strings.TrimSpace(req.Action)))
	res, err := s.sessions.Act(r.Context(), action, req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleNextDay(w http.ResponseWriter, r *http.Request) {
	res, err := s.sessions.NextDay(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.State()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.sessions.Summary()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	state := s.sessions.Reset(r.Context())
	writeJSON(w, http.StatusOK, ResetResponse{Message: "Game reset.", State: state})
}

func (s *Server) handleHistoryXLSX(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.Snapshot()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := report.HistoryXLSX(state)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", report.XLSXContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.FileName(state)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.log.Warn("writing xlsx response", "error", err)
	}
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit.")
			return
		}
		limit = n
	}
	results, err := s.sessions.Results(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultsResponse{Results: results})
}

// decode reads a JSON body into v. An empty body leaves v zero-valued.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		s.log.Debug("decoding request body", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadRequest, msgBadBody)
		return false
	}
	return true
}

// fail translates err into a status and player-facing message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorResponse(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "status", status, "error", err,
			"requestId", RequestIDFromContext(r.Context()))
	}
	writeError(w, status, msg)
}

func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrEmptyPriceData):
		return http.StatusBadRequest, msgNoData
	case errors.Is(err, engine.ErrInvalidTicker):
		return http.StatusBadRequest, msgNoTicker
	case errors.Is(err, engine.ErrSessionNotStarted):
		return http.StatusBadRequest, msgNotStarted
	case errors.Is(err, engine.ErrInvalidAmount):
		return http.StatusBadRequest, msgInvalidAmount
	case errors.Is(err, engine.ErrInvalidPrice):
		return http.StatusBadRequest, msgInvalidPrice
	case errors.Is(err, engine.ErrInsufficientFunds):
		return http.StatusBadRequest, msgInsufficientFun
	case errors.Is(err, engine.ErrInsufficientShares):
		return http.StatusBadRequest, msgInsufficientShr
	case errors.Is(err, engine.ErrInvalidAction):
		return http.StatusBadRequest, msgInvalidAction
	case errors.Is(err, market.ErrInvalidDate), errors.Is(err, session.ErrFutureStartDate):
		return http.StatusBadRequest, msgInvalidDate
	case errors.Is(err, market.ErrUpstreamFetchFailed):
		return http.StatusBadGateway, msgUpstream
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
