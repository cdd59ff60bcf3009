package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"papertrader/internal/domain"
)

// Compile-time interface check.
var _ WindowStore = (*ParquetStore)(nil)

// ParquetStore implements WindowStore using Parquet files on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// BarRecord is the Parquet schema for a cached daily bar.
type BarRecord struct {
	Symbol     string  `parquet:"symbol"`
	Timestamp  int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open       float64 `parquet:"open"`
	High       float64 `parquet:"high"`
	Low        float64 `parquet:"low"`
	Close      float64 `parquet:"close"`
	Volume     int64   `parquet:"volume"`
	TradeCount int64   `parquet:"trade_count"`
	VWAP       float64 `parquet:"vwap"`
}

func toRecord(b domain.Bar) BarRecord {
	return BarRecord{
		Symbol:     b.Symbol,
		Timestamp:  b.Timestamp.UnixMilli(),
		Open:       b.Open,
		High:       b.High,
		Low:        b.Low,
		Close:      b.Close,
		Volume:     b.Volume,
		TradeCount: b.TradeCount,
		VWAP:       b.VWAP,
	}
}

func (r BarRecord) toBar() domain.Bar {
	return domain.Bar{
		Symbol:     r.Symbol,
		Timestamp:  time.UnixMilli(r.Timestamp).UTC(),
		Open:       r.Open,
		High:       r.High,
		Low:        r.Low,
		Close:      r.Close,
		Volume:     r.Volume,
		TradeCount: r.TradeCount,
		VWAP:       r.VWAP,
	}
}

// ReadWindow reads the cached window file for symbol. It returns
// ErrWindowNotCached when the file does not exist.
func (s *ParquetStore) ReadWindow(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.windowPath(symbol, start, end)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, ErrWindowNotCached
	}
	records, err := readParquetFile[BarRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading window %s: %w", path, err)
	}

	bars := make([]domain.Bar, 0, len(records))
	for _, r := range records {
		bars = append(bars, r.toBar())
	}
	return bars, nil
}

// WriteWindow writes bars to the window file for symbol, sorted by
// timestamp. Layout:
//
//	<DataDir>/us/windows/<SYMBOL>/<START>_<END>.parquet
func (s *ParquetStore) WriteWindow(ctx context.Context, symbol string, start, end time.Time, bars []domain.Bar) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(bars) == 0 {
		return nil
	}

	records := make([]BarRecord, 0, len(bars))
	for _, b := range bars {
		records = append(records, toRecord(b))
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})

	if err := writeParquetFile(s.windowPath(symbol, start, end), records); err != nil {
		return fmt.Errorf("writing window for %s: %w", symbol, err)
	}
	return nil
}

// Prune deletes window files whose modification time is before cutoff and
// removes symbol directories left empty.
func (s *ParquetStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	root := filepath.Join(s.DataDir, "us", "windows")
	symbols, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, sym := range symbols {
		if !sym.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		dir := filepath.Join(root, sym.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return removed, err
		}
		left := len(files)
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".parquet") {
				continue
			}
			info, err := f.Info()
			if err != nil {
				return removed, err
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, f.Name())); err != nil {
				return removed, err
			}
			removed++
			left--
		}
		if left == 0 {
			_ = os.Remove(dir)
		}
	}
	return removed, nil
}

// windowPath returns the filesystem path for a window Parquet file.
func (s *ParquetStore) windowPath(symbol string, start, end time.Time) string {
	name := start.UTC().Format(domain.DateLayout) + "_" + end.UTC().Format(domain.DateLayout) + ".parquet"
	return filepath.Join(s.DataDir, "us", "windows", strings.ToUpper(symbol), name)
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

// writeParquetFile writes to a temp file and renames it into place so
// readers never observe a partial window.
func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, records); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
