package scheduler

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrader/internal/domain"
	"papertrader/internal/store"
)

func TestIntervalJobRuns(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	var runs atomic.Int32
	require.NoError(t, s.NewIntervalJob("count", func(context.Context) error {
		runs.Add(1)
		return nil
	}, 20*time.Millisecond, true))

	s.Start()
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())
}

func TestJobPanicIsRecovered(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	var runs atomic.Int32
	require.NoError(t, s.NewIntervalJob("panics", func(context.Context) error {
		runs.Add(1)
		panic("boom")
	}, 20*time.Millisecond, true))
	require.NoError(t, s.NewIntervalJob("fails", func(context.Context) error {
		return errors.New("failed")
	}, 20*time.Millisecond, true))

	s.Start()
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())
}

func TestPruneWindowsTask(t *testing.T) {
	dir := t.TempDir()
	ps := store.NewParquetStore(dir)
	ctx := context.Background()

	start := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	bars := []domain.Bar{{Symbol: "AAPL", Timestamp: start, Close: 10}}
	require.NoError(t, ps.WriteWindow(ctx, "AAPL", start, start.AddDate(0, 0, 14), bars))

	// Fresh files survive.
	task := PruneWindowsTask(ps, time.Hour, nil)
	require.NoError(t, task(ctx))
	_, err := ps.ReadWindow(ctx, "AAPL", start, start.AddDate(0, 0, 14))
	require.NoError(t, err)

	// Age the file past the ttl.
	entries, err := os.ReadDir(dir + "/us/windows/AAPL")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(dir+"/us/windows/AAPL/"+entries[0].Name(), old, old))

	require.NoError(t, task(ctx))
	_, err = ps.ReadWindow(ctx, "AAPL", start, start.AddDate(0, 0, 14))
	assert.ErrorIs(t, err, store.ErrWindowNotCached)
}
