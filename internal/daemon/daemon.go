package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"muse/internal/api"
	"muse/internal/config"
	"muse/internal/idea"
	"muse/internal/logging"
	"muse/internal/notifications"
	"muse/internal/services/llm"
)

// Daemon coordinates the idea services and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *idea.Store
	ideaSvc *api.IdeaService
	logPath string

	lockPath string
	lock     *flock.Flock

	apiServer *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *idea.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	client := llm.NewClient(llm.FromAppConfig(cfg.LLM))
	notifier := notifications.NewService(cfg)
	ideaSvc := api.NewIdeaService(store, client, notifier, logger, cfg.LLM.Model)

	lockPath := filepath.Join(cfg.Paths.LogDir, "mused.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		ideaSvc:  ideaSvc,
		logPath:  filepath.Join(cfg.Paths.LogDir, "muse.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.apiServer = srv
	return d, nil
}

// Start acquires the daemon lock and brings up the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another muse daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if err := d.apiServer.start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("muse daemon started",
		logging.String(logging.FieldComponent, "daemon"),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the API server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.apiServer.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.String(logging.FieldComponent, "daemon"),
			logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("muse daemon stopped", logging.String(logging.FieldComponent, "daemon"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr reports the API listen address, empty until Start succeeds.
func (d *Daemon) Addr() string {
	return d.apiServer.addr()
}

// IdeaService exposes the application service for in-process callers.
func (d *Daemon) IdeaService() *api.IdeaService {
	return d.ideaSvc
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if stats, err := d.store.Stats(ctx); err == nil {
		counts := make(map[string]int, len(stats))
		for stage, n := range stats {
			counts[string(stage)] = n
		}
		status.IdeaCounts = counts
	}
	return status
}
