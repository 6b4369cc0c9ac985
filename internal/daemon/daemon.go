// Package daemon keeps the blog in sync with the repository: a periodic
// sync job plus an HTTP server for metrics, health checks and GitHub
// webhooks.
package daemon

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/bloghub/internal/config"
	"git.home.luguber.info/inful/bloghub/internal/forge"
	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
	"git.home.luguber.info/inful/bloghub/internal/logfields"
	"git.home.luguber.info/inful/bloghub/internal/metrics"
	"git.home.luguber.info/inful/bloghub/internal/publish"
)

const shutdownTimeout = 10 * time.Second

// Publisher is the part of publish.Service the daemon drives.
type Publisher interface {
	Publish(ctx context.Context, issue *forge.Issue) (*publish.Result, error)
	Unpublish(ctx context.Context, number int) (*publish.Result, error)
	Sync(ctx context.Context) (*publish.SyncReport, error)
}

// Daemon runs periodic syncs and serves the HTTP endpoints.
type Daemon struct {
	cfg       *config.Config
	publisher Publisher
	registry  *prometheus.Registry
	recorder  metrics.Recorder
	adapter   *errors.HTTPErrorAdapter

	// mu serializes syncs and webhook publishes; both rewrite the listings.
	mu        sync.Mutex
	ready     atomic.Bool
	lastSync  atomic.Pointer[time.Time]
	startTime time.Time
}

// New builds a daemon. registry may be nil, in which case /metrics is not
// served.
func New(cfg *config.Config, p Publisher, registry *prometheus.Registry, recorder metrics.Recorder) *Daemon {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Daemon{
		cfg:       cfg,
		publisher: p,
		registry:  registry,
		recorder:  recorder,
		adapter:   errors.NewHTTPErrorAdapter(slog.Default()),
		startTime: time.Now(),
	}
}

// Run starts the scheduler and the HTTP server and blocks until ctx is
// canceled, then shuts both down.
func (d *Daemon) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.cfg.Daemon.HTTPAddr)
	if err != nil {
		return errors.DaemonError("failed to bind HTTP address").
			WithCause(err).
			WithContext("addr", d.cfg.Daemon.HTTPAddr).
			Build()
	}
	return d.serve(ctx, ln)
}

func (d *Daemon) serve(ctx context.Context, ln net.Listener) error {
	scheduler, err := NewScheduler()
	if err != nil {
		_ = ln.Close()
		return errors.DaemonError("failed to create scheduler").WithCause(err).Build()
	}
	if _, err := scheduler.ScheduleEvery("sync", d.cfg.Daemon.SyncInterval, func() { d.runSync(ctx) }); err != nil {
		_ = ln.Close()
		return errors.DaemonError("failed to schedule sync").WithCause(err).Build()
	}

	server := &http.Server{
		Handler:           d.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	scheduler.Start()
	slog.Info("Daemon started",
		slog.String("addr", ln.Addr().String()),
		slog.Duration("sync_interval", d.cfg.Daemon.SyncInterval),
		slog.Bool("webhook", d.cfg.GitHub.WebhookSecret != ""))

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = errors.DaemonError("HTTP server failed").WithCause(err).Build()
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown", logfields.Error(err))
	}
	if err := scheduler.Stop(); err != nil {
		slog.Warn("Scheduler shutdown", logfields.Error(err))
	}
	slog.Info("Daemon stopped")
	return runErr
}

// runSync is the scheduled job body.
func (d *Daemon) runSync(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	report, err := d.publisher.Sync(ctx)
	if err != nil {
		slog.Error("Sync failed", logfields.Error(err))
		return
	}
	now := time.Now()
	d.lastSync.Store(&now)
	if !d.ready.Swap(true) {
		slog.Info("Daemon ready after first sync")
	}
	if report != nil && report.Failed > 0 {
		slog.Warn("Sync finished with failures", logfields.Count(report.Failed))
	}
}

// Ready reports whether a sync has completed.
func (d *Daemon) Ready() bool { return d.ready.Load() }

func (d *Daemon) uptime() string {
	return fmt.Sprint(time.Since(d.startTime).Round(time.Second))
}
