package store

import (
	"context"
	cryptorand "crypto/rand"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"papertrader/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ ResultStore = (*SQLiteStore)(nil)

// DefaultListLimit caps ListResults when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Schema is applied every time the database is opened.
const Schema = `
CREATE TABLE IF NOT EXISTS session_results (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	ticker TEXT NOT NULL,
	start_date TEXT NOT NULL,
	days_played INTEGER NOT NULL,
	trades INTEGER NOT NULL,
	final_balance TEXT NOT NULL,
	profit_loss TEXT NOT NULL,
	reason TEXT NOT NULL,
	ended_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_results_ticker ON session_results(ticker);
`

// SQLiteStore implements ResultStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy io.Reader
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases coherent and
	// serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{
		db:      db,
		entropy: ulid.Monotonic(cryptorand.Reader, 0),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// newID returns a ULID so row ids sort by creation time.
func (s *SQLiteStore) newID(t time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(t), s.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// SaveResult inserts a finished-session result. ID and EndedAt are filled in
// when empty.
func (s *SQLiteStore) SaveResult(ctx context.Context, r *domain.SessionResult) error {
	if r.EndedAt.IsZero() {
		r.EndedAt = time.Now().UTC()
	}
	if r.ID == "" {
		id, err := s.newID(r.EndedAt)
		if err != nil {
			return fmt.Errorf("generating result id: %w", err)
		}
		r.ID = id
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_results
		(id, session_id, ticker, start_date, days_played, trades, final_balance, profit_loss, reason, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.Ticker, r.StartDate, r.DaysPlayed, r.Trades,
		r.FinalBalance.StringFixed(2), r.ProfitLoss.StringFixed(2), string(r.Reason), r.EndedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting result %s: %w", r.ID, err)
	}
	return nil
}

// ListResults returns the most recent results, newest first, up to limit.
func (s *SQLiteStore) ListResults(ctx context.Context, limit int) ([]domain.SessionResult, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, ticker, start_date, days_played, trades, final_balance, profit_loss, reason, ended_at
		FROM session_results
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	results := []domain.SessionResult{}
	for rows.Next() {
		var (
			r                    domain.SessionResult
			finalBalance, profit string
			reason               string
			endedAt              int64
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Ticker, &r.StartDate, &r.DaysPlayed, &r.Trades,
			&finalBalance, &profit, &reason, &endedAt); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		if r.FinalBalance, err = decimal.NewFromString(finalBalance); err != nil {
			return nil, fmt.Errorf("parsing final balance of %s: %w", r.ID, err)
		}
		if r.ProfitLoss, err = decimal.NewFromString(profit); err != nil {
			return nil, fmt.Errorf("parsing profit/loss of %s: %w", r.ID, err)
		}
		r.Reason = domain.EndReason(reason)
		r.EndedAt = time.UnixMilli(endedAt).UTC()
		results = append(results, r)
	}
	return results, rows.Err()
}
