package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"imdbratings/internal/config"
	"imdbratings/internal/dataset"
	"imdbratings/internal/logging"
)

// Ingester refreshes the rating store from the dataset dumps.
type Ingester interface {
	Ingest(ctx context.Context) (dataset.Summary, error)
}

// LocalStore is the maintenance surface of a local rating store.
type LocalStore interface {
	HasRatings(ctx context.Context) (bool, error)
	CacheCleanup(ctx context.Context) (int64, error)
}

// Options carry the optional collaborators. A nil Ingester disables the
// dataset refresh; a nil Store disables cache cleanup and the initial
// ingest. Both are nil when ratings come from a remote ratings API.
type Options struct {
	Ingester Ingester
	Store    LocalStore
}

// Daemon coordinates the HTTP server and scheduled maintenance and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	handler  http.Handler
	ingester Ingester
	store    LocalStore

	lockPath string
	lock     *flock.Flock

	mu        sync.Mutex
	api       *apiServer
	scheduler *cron.Cron
	wg        sync.WaitGroup
	last      IngestStatus

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// IngestStatus describes the most recent dataset refresh.
type IngestStatus struct {
	Trigger  string
	Finished time.Time
	Summary  dataset.Summary
	Err      string
}

// Status represents daemon runtime information. NextRun is the earliest
// scheduled job.
type Status struct {
	Running      bool
	APIAddress   string
	LockFilePath string
	LastIngest   IngestStatus
	NextRun      time.Time
}

// New constructs a daemon around an HTTP handler.
func New(cfg *config.Config, handler http.Handler, opts Options, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || handler == nil {
		return nil, errors.New("daemon requires config and handler")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		handler:  handler,
		ingester: opts.Ingester,
		store:    opts.Store,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, starts the HTTP server and the schedules.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another imdbratings daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	api := newAPIServer(d.cfg.Paths.APIBind, d.handler, d.logger)
	if err := api.start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start api server: %w", err)
	}
	scheduler, err := d.schedule()
	if err != nil {
		api.stop()
		d.abortStart()
		return err
	}
	scheduler.Start()

	d.mu.Lock()
	d.api = api
	d.scheduler = scheduler
	d.mu.Unlock()

	d.running.Store(true)
	d.startInitialIngest()
	d.logger.Info("imdbratings daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", api.addr()))
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// schedule registers the cron jobs. Empty schedules disable their job.
func (d *Daemon) schedule() (*cron.Cron, error) {
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if spec := strings.TrimSpace(d.cfg.Dataset.RefreshSchedule); spec != "" && d.ingester != nil {
		if _, err := scheduler.AddFunc(spec, func() { d.runIngest("scheduled") }); err != nil {
			return nil, fmt.Errorf("schedule dataset refresh %q: %w", spec, err)
		}
	}
	if spec := strings.TrimSpace(d.cfg.Dataset.CacheCleanupSchedule); spec != "" && d.store != nil {
		if _, err := scheduler.AddFunc(spec, func() { _, _ = d.CleanupCache(d.ctx) }); err != nil {
			return nil, fmt.Errorf("schedule cache cleanup %q: %w", spec, err)
		}
	}
	return scheduler, nil
}

// startInitialIngest loads the dataset in the background when the local
// store is empty, so a fresh install serves ratings without waiting for the
// first scheduled refresh.
func (d *Daemon) startInitialIngest() {
	if d.ingester == nil || d.store == nil {
		return
	}
	has, err := d.store.HasRatings(d.ctx)
	if err != nil {
		logging.WarnWithContext(d.logger, "rating store check failed", "store_check_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the database path and permissions"),
			logging.String(logging.FieldImpact, "initial dataset ingest skipped"))
		return
	}
	if has {
		return
	}
	d.logger.Info("rating store is empty; starting initial dataset ingest")
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.runIngest("initial")
	}()
}

func (d *Daemon) runIngest(trigger string) {
	ctx := d.ctx
	if ctx == nil {
		return
	}
	if _, err := d.Ingest(ctx, trigger); err != nil && !errors.Is(err, dataset.ErrIngestRunning) && ctx.Err() == nil {
		logging.ErrorWithContext(d.logger, "dataset ingest failed", "dataset_ingest_failed",
			logging.String("trigger", trigger),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check dataset URLs and network access"),
			logging.String(logging.FieldImpact, "serving previously loaded ratings"))
	}
}

// Ingest runs a dataset refresh now and records its outcome.
func (d *Daemon) Ingest(ctx context.Context, trigger string) (dataset.Summary, error) {
	if d.ingester == nil {
		return dataset.Summary{}, errors.New("dataset ingest not available for this store backend")
	}
	summary, err := d.ingester.Ingest(ctx)
	status := IngestStatus{Trigger: trigger, Finished: time.Now(), Summary: summary}
	if err != nil {
		status.Err = err.Error()
	} else {
		d.logger.Info("dataset ingest complete",
			logging.String("trigger", trigger),
			logging.Int64("ratings", summary.Ratings),
			logging.Int64("episodes", summary.Episodes),
			logging.Duration("duration", summary.Duration))
	}
	d.mu.Lock()
	d.last = status
	d.mu.Unlock()
	return summary, err
}

// CleanupCache removes expired api_cache entries.
func (d *Daemon) CleanupCache(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("cache cleanup not available for this store backend")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	removed, err := d.store.CacheCleanup(ctx)
	if err != nil {
		logging.WarnWithContext(d.logger, "api cache cleanup failed", "cache_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the rating store"),
			logging.String(logging.FieldImpact, "expired cache rows kept until the next run"))
		return 0, err
	}
	d.logger.Debug("api cache cleaned", logging.Int64("removed", removed))
	return removed, nil
}

// Stop stops the server and schedules and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Lock()
	scheduler, api := d.scheduler, d.api
	d.scheduler, d.api = nil, nil
	d.mu.Unlock()
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	api.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("imdbratings daemon stopped")
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	status := Status{
		Running:      d.running.Load(),
		APIAddress:   d.api.addr(),
		LockFilePath: d.lockPath,
		LastIngest:   d.last,
	}
	if d.scheduler != nil {
		for _, entry := range d.scheduler.Entries() {
			if status.NextRun.IsZero() || entry.Next.Before(status.NextRun) {
				status.NextRun = entry.Next
			}
		}
	}
	return status
}
