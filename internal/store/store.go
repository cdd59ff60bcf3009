// Package store defines storage interfaces for the price-window cache and the
// journal of finished sessions.
package store

import (
	"context"
	"errors"
	"time"

	"papertrader/internal/domain"
)

// ErrWindowNotCached is returned by ReadWindow when no cached file exists for
// the requested window.
var ErrWindowNotCached = errors.New("store: window not cached")

// WindowStore persists and retrieves the daily bars of a fetched price window.
type WindowStore interface {
	// ReadWindow returns the cached bars for symbol over [start, end].
	ReadWindow(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// WriteWindow replaces the cached bars for symbol over [start, end].
	WriteWindow(ctx context.Context, symbol string, start, end time.Time, bars []domain.Bar) error

	// Prune removes cached windows last written before cutoff and reports
	// how many files were removed.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// ResultStore persists and retrieves finished-session results.
type ResultStore interface {
	// SaveResult inserts a result, assigning an ID if it has none.
	SaveResult(ctx context.Context, r *domain.SessionResult) error

	// ListResults returns the most recent results, newest first, up to limit.
	ListResults(ctx context.Context, limit int) ([]domain.SessionResult, error)
}
