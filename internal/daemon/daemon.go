package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"strmhook/internal/alist"
	"strmhook/internal/config"
	"strmhook/internal/generator"
	"strmhook/internal/history"
	"strmhook/internal/logging"
	"strmhook/internal/metrics"
	"strmhook/internal/server"
)

// Daemon owns the webhook server and enforces single-instance execution per
// state directory.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *history.Store
	metrics *metrics.Metrics
	server  *server.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Address      string
	LockFilePath string
	HistoryPath  string
}

// New wires the AList client, generator, history ledger and webhook server.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		metrics:  metrics.New(),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}

	genOpts := []generator.Option{generator.WithLogger(logger), generator.WithMetrics(d.metrics)}
	srvOpts := []server.Option{server.WithLogger(logger), server.WithMetrics(d.metrics)}
	if cfg.History.Enabled {
		store, err := history.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		d.store = store
		genOpts = append(genOpts, generator.WithRecorder(store))
		srvOpts = append(srvOpts, server.WithHistory(store))
	}

	gen := generator.New(cfg, alist.NewFromConfig(cfg, logger), genOpts...)
	d.server = server.New(cfg, gen, srvOpts...)
	return d, nil
}

// Start acquires the daemon lock and begins serving webhooks.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another strmhook daemon is already running (lock %s)", d.lockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("strmhook daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.server.Addr()),
		logging.Bool("history", d.store != nil),
	)
	return nil
}

// Stop stops serving and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("strmhook daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports the current runtime state.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		LockFilePath: d.lockPath,
	}
	if status.Running {
		status.Address = d.server.Addr()
	}
	if d.store != nil {
		status.HistoryPath = d.store.Path()
	}
	return status
}
