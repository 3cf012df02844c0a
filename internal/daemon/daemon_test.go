package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/crate/internal/cleanup"
	"github.com/llehouerou/crate/internal/history"
	"github.com/llehouerou/crate/internal/importer"
	"github.com/llehouerou/crate/internal/logging"
)

type fakeImporter struct {
	calls atomic.Int32
	sum   importer.Summary
	// failOn makes the n-th call (1-based) return err.
	failOn int32
	err    error
}

func (f *fakeImporter) RunOnce(context.Context) (importer.Summary, error) {
	n := f.calls.Add(1)
	if f.err != nil && (f.failOn == 0 || n == f.failOn) {
		return f.sum, f.err
	}
	return f.sum, nil
}

type fakeCleaner struct {
	calls atomic.Int32
	sum   cleanup.Summary
	err   error
}

func (f *fakeCleaner) RunOnce(context.Context) (cleanup.Summary, error) {
	f.calls.Add(1)
	return f.sum, f.err
}

func newTestDaemon(t *testing.T, imp Importer, cl Cleaner, rec Recorder) *Daemon {
	t.Helper()
	d := New(Options{
		Interval: time.Minute,
		LockFile: filepath.Join(t.TempDir(), "run", "crate.lock"),
	}, imp, cl, rec, logging.NewNop())
	d.newRunID = func() string { return "run-1" }
	return d
}

func openHistory(t *testing.T) *history.Store {
	t.Helper()
	s, err := history.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunOnce_RecordsHistory(t *testing.T) {
	imp := &fakeImporter{sum: importer.Summary{Results: []importer.Result{
		{Artist: "A", Album: "One", Outcome: importer.OutcomeImported, Destination: "/electro/A/REL1 - One", Files: 2, Bytes: 4096},
		{Artist: "B", Album: "Two", Outcome: importer.OutcomeRejected, Reason: "missing tracks"},
	}}}
	cl := &fakeCleaner{sum: cleanup.Summary{Results: []cleanup.Result{
		{Artist: "C", Album: "TODO - Three", Outcome: cleanup.OutcomeSkipped},
		{Artist: "D", Album: "TODO - Four", Outcome: cleanup.OutcomeCleaned, Files: 1},
	}}}
	store := openHistory(t)
	d := newTestDaemon(t, imp, cl, store)

	require.NoError(t, d.RunOnce(context.Background()))
	assert.Equal(t, int32(1), imp.calls.Load())
	assert.Equal(t, int32(1), cl.calls.Load())

	entries, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byAlbum := make(map[string]history.Entry)
	for _, e := range entries {
		assert.Equal(t, "run-1", e.RunID)
		byAlbum[e.Album] = e
	}
	assert.Equal(t, history.PipelineImport, byAlbum["One"].Pipeline)
	assert.Equal(t, "imported", byAlbum["One"].Outcome)
	assert.Equal(t, int64(4096), byAlbum["One"].Bytes)
	assert.Equal(t, "missing tracks", byAlbum["Two"].Reason)
	assert.Equal(t, history.PipelineCleanup, byAlbum["TODO - Four"].Pipeline)
	assert.Equal(t, "cleaned", byAlbum["TODO - Four"].Outcome)
	assert.NotContains(t, byAlbum, "TODO - Three")
}

func TestRunOnce_WithoutHistory(t *testing.T) {
	d := newTestDaemon(t, &fakeImporter{}, &fakeCleaner{}, nil)
	require.NoError(t, d.RunOnce(context.Background()))
}

func TestRunOnce_FatalImportSkipsCleanup(t *testing.T) {
	diskFull := errors.New("no space left on device")
	imp := &fakeImporter{
		sum: importer.Summary{Results: []importer.Result{
			{Artist: "A", Album: "One", Outcome: importer.OutcomeFailed, Reason: diskFull.Error()},
		}},
		err: diskFull,
	}
	cl := &fakeCleaner{}
	store := openHistory(t)
	d := newTestDaemon(t, imp, cl, store)

	err := d.RunOnce(context.Background())
	require.ErrorIs(t, err, diskFull)
	assert.Equal(t, int32(0), cl.calls.Load())

	entries, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "failed", entries[0].Outcome)
}

func TestRunOnce_FatalCleanup(t *testing.T) {
	readOnly := errors.New("read-only file system")
	d := newTestDaemon(t, &fakeImporter{}, &fakeCleaner{err: readOnly}, nil)
	require.ErrorIs(t, d.RunOnce(context.Background()), readOnly)
}

func TestRunOnce_AlreadyRunning(t *testing.T) {
	imp := &fakeImporter{}
	d := newTestDaemon(t, imp, &fakeCleaner{}, nil)

	// Hold the lock from another handle
	require.NoError(t, d.withLock(func() error {
		err := d.RunOnce(context.Background())
		require.ErrorIs(t, err, ErrAlreadyRunning)
		return nil
	}))
	assert.Equal(t, int32(0), imp.calls.Load())

	// Released afterwards
	require.NoError(t, d.RunOnce(context.Background()))
	assert.Equal(t, int32(1), imp.calls.Load())
}

func TestRunOnce_LockHeldByOtherProcess(t *testing.T) {
	d := newTestDaemon(t, &fakeImporter{}, &fakeCleaner{}, nil)
	require.NoError(t, d.RunOnce(context.Background()))

	other := flock.New(d.opts.LockFile)
	ok, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer other.Unlock() //nolint:errcheck

	require.ErrorIs(t, d.RunOnce(context.Background()), ErrAlreadyRunning)
}

func TestRun_InvalidInterval(t *testing.T) {
	d := newTestDaemon(t, &fakeImporter{}, &fakeCleaner{}, nil)
	d.opts.Interval = 0
	require.Error(t, d.Run(context.Background()))
}

func TestRun_TicksUntilCanceled(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		imp := &fakeImporter{}
		cl := &fakeCleaner{}
		d := newTestDaemon(t, imp, cl, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- d.Run(ctx) }()

		// First pass runs immediately
		synctest.Wait()
		assert.Equal(t, int32(1), imp.calls.Load())

		time.Sleep(2*time.Minute + time.Second)
		synctest.Wait()
		assert.Equal(t, int32(3), imp.calls.Load())
		assert.Equal(t, int32(3), cl.calls.Load())

		cancel()
		require.NoError(t, <-done)
	})
}

func TestRun_FatalErrorStops(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		fatal := errors.New("disk quota exceeded")
		imp := &fakeImporter{failOn: 2, err: fatal}
		d := newTestDaemon(t, imp, &fakeCleaner{}, nil)

		done := make(chan error, 1)
		go func() { done <- d.Run(context.Background()) }()

		time.Sleep(time.Minute + time.Second)
		require.ErrorIs(t, <-done, fatal)
		assert.Equal(t, int32(2), imp.calls.Load())
	})
}

func TestRun_CancellationDuringPassIsClean(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	imp := &fakeImporter{err: context.Canceled}
	d := newTestDaemon(t, imp, &fakeCleaner{}, nil)

	require.NoError(t, d.Run(ctx))
	assert.Equal(t, int32(1), imp.calls.Load())
}
