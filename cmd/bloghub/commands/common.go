// Package commands implements the bloghub subcommands.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/bloghub/internal/config"
	"git.home.luguber.info/inful/bloghub/internal/forge"
	"git.home.luguber.info/inful/bloghub/internal/gitpub"
	"git.home.luguber.info/inful/bloghub/internal/logfields"
	"git.home.luguber.info/inful/bloghub/internal/metrics"
	"git.home.luguber.info/inful/bloghub/internal/notify"
	"git.home.luguber.info/inful/bloghub/internal/publish"
	"git.home.luguber.info/inful/bloghub/internal/retry"
	"git.home.luguber.info/inful/bloghub/internal/site"
	"git.home.luguber.info/inful/bloghub/internal/store"
)

// Global is shared state handed to every command.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"bloghub.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Publish      PublishCmd      `cmd:"" help:"Publish one issue (from GitHub Actions env or --issue)"`
	Unpublish    UnpublishCmd    `cmd:"" help:"Remove a published issue from the blog"`
	Sync         SyncCmd         `cmd:"" help:"Publish every closed issue carrying the approval label"`
	Rebuild      RebuildCmd      `cmd:"" help:"Regenerate all pages from the post database"`
	Render       RenderCmd       `cmd:"" help:"Render markdown to an HTML fragment on stdout"`
	Preview      PreviewCmd      `cmd:"" help:"Render a local markdown file as a post page and re-render on change"`
	Daemon       DaemonCmd       `cmd:"" help:"Sync periodically and serve metrics, health checks and webhooks"`
	ImportLegacy ImportLegacyCmd `cmd:"" name:"import-legacy" help:"Seed the post database from existing post pages"`
	Init         InitCmd         `cmd:"" help:"Write a sample configuration file"`
	VersionCmd   VersionCmd      `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	if g != nil {
		g.Logger = logger
	}
	return nil
}

// app holds the collaborators a publishing command needs.
type app struct {
	cfg      *config.Config
	store    store.Store
	site     *site.Site
	forge    *forge.GitHubClient
	notifier notify.Notifier
	registry *prometheus.Registry
	recorder *metrics.PrometheusRecorder
	service  *publish.Service
}

// newApp loads the configuration and wires the publish service.
func newApp(ctx context.Context, root *CLI) (*app, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireRepository(); err != nil {
		return nil, err
	}

	client, err := forge.NewGitHubClient(cfg.GitHub, retry.FromConfig(cfg.Retry), nil)
	if err != nil {
		return nil, err
	}
	s, err := site.New(cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, store: st, site: s, forge: client, notifier: notify.Noop{}}
	a.registry = prometheus.NewRegistry()
	a.recorder = metrics.NewPrometheusRecorder(a.registry)

	if cfg.Notify.NATSURL != "" {
		n, err := notify.NewNATSNotifier(ctx, cfg.Notify)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		a.notifier = n
	}

	a.service = publish.NewService(cfg, client, st, s).
		WithNotifier(a.notifier).
		WithRecorder(a.recorder)

	if cfg.Git.Enabled {
		committer, err := gitpub.New(cfg.Git, cfg.Output.Dir, cfg.GitHub.Token)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.service.WithCommitter(committer)
	}
	return a, nil
}

// Close flushes metrics to the textfile and releases connections.
func (a *app) Close() {
	if err := metrics.WriteTextfile(a.registry, a.cfg.Metrics.TextfilePath); err != nil {
		slog.Warn("Failed to write metrics textfile", logfields.Path(a.cfg.Metrics.TextfilePath), logfields.Error(err))
	}
	if err := a.notifier.Close(); err != nil {
		slog.Warn("Failed to close notifier", logfields.Error(err))
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close store", logfields.Error(err))
	}
}
