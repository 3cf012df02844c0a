// Package daemon schedules the import and cleanup pipelines and makes sure a
// single instance works on the library at a time.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/llehouerou/crate/internal/cleanup"
	"github.com/llehouerou/crate/internal/errmsg"
	"github.com/llehouerou/crate/internal/history"
	"github.com/llehouerou/crate/internal/importer"
	"github.com/llehouerou/crate/internal/logging"
)

// ErrAlreadyRunning is returned when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another crate instance is already running")

// Importer runs one import pass.
type Importer interface {
	RunOnce(ctx context.Context) (importer.Summary, error)
}

// Cleaner runs one cleanup pass.
type Cleaner interface {
	RunOnce(ctx context.Context) (cleanup.Summary, error)
}

// Recorder stores album dispositions.
type Recorder interface {
	Record(ctx context.Context, entries ...history.Entry) error
}

// Options configures the scheduler.
type Options struct {
	Interval time.Duration
	LockFile string
}

// Daemon runs import then cleanup on every tick.
type Daemon struct {
	opts     Options
	importer Importer
	cleaner  Cleaner
	recorder Recorder
	logger   *slog.Logger
	newRunID func() string
}

// New creates a Daemon. recorder may be nil to disable history.
func New(opts Options, imp Importer, cl Cleaner, recorder Recorder, logger *slog.Logger) *Daemon {
	return &Daemon{
		opts:     opts,
		importer: imp,
		cleaner:  cl,
		recorder: recorder,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		newRunID: uuid.NewString,
	}
}

// Run holds the instance lock, runs a pass immediately and then once per
// interval until ctx is done. Cancellation is a clean stop and returns nil.
// A fatal pass error is returned so the process can exit non-zero.
func (d *Daemon) Run(ctx context.Context) error {
	if d.opts.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", d.opts.Interval)
	}
	return d.withLock(func() error {
		d.logger.Info("daemon started", slog.Duration("interval", d.opts.Interval),
			slog.String("lock", d.opts.LockFile))

		ticker := time.NewTicker(d.opts.Interval)
		defer ticker.Stop()
		for {
			if err := d.pass(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			select {
			case <-ctx.Done():
				d.logger.Info("daemon stopped")
				return nil
			case <-ticker.C:
			}
		}
	})
}

// RunOnce holds the instance lock for a single pass.
func (d *Daemon) RunOnce(ctx context.Context) error {
	return d.withLock(func() error {
		return d.pass(ctx)
	})
}

func (d *Daemon) withLock(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(d.opts.LockFile), 0o755); err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpLockAcquire, err)
	}
	lock := flock.New(d.opts.LockFile)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpLockAcquire, err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			d.logger.Warn("failed to release instance lock", logging.Error(err))
		}
	}()
	return fn()
}

// pass runs import then cleanup once. Results are recorded even when a
// pipeline stops on a fatal error.
func (d *Daemon) pass(ctx context.Context) error {
	runID := d.newRunID()
	logger := d.logger.With(slog.String(logging.FieldRun, runID))
	start := time.Now()

	imported, err := d.importer.RunOnce(ctx)
	d.record(ctx, logger, importEntries(runID, imported))
	if err != nil {
		logger.Error(errmsg.OpRun.Failed(), slog.String("pipeline", history.PipelineImport), logging.Error(err))
		return fmt.Errorf("import: %w", err)
	}

	cleaned, err := d.cleaner.RunOnce(ctx)
	d.record(ctx, logger, cleanupEntries(runID, cleaned))
	if err != nil {
		logger.Error(errmsg.OpRun.Failed(), slog.String("pipeline", history.PipelineCleanup), logging.Error(err))
		return fmt.Errorf("cleanup: %w", err)
	}

	logger.Info("run complete", summaryAttrs(imported, cleaned, time.Since(start))...)
	return nil
}

func (d *Daemon) record(ctx context.Context, logger *slog.Logger, entries []history.Entry) {
	if d.recorder == nil || len(entries) == 0 {
		return
	}
	// Outcomes of a canceled run are still worth keeping
	if err := d.recorder.Record(context.WithoutCancel(ctx), entries...); err != nil {
		logger.Warn(errmsg.OpHistoryRecord.Failed(), logging.Error(err))
	}
}
