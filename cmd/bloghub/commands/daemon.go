package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/bloghub/internal/daemon"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	Addr string `help:"HTTP listen address (overrides daemon.http_addr)"`
}

func (d *DaemonCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, root)
	if err != nil {
		return err
	}
	defer a.Close()

	if d.Addr != "" {
		a.cfg.Daemon.HTTPAddr = d.Addr
	}
	slog.Info("Starting daemon mode", slog.String("addr", a.cfg.Daemon.HTTPAddr))
	return daemon.New(a.cfg, a.service, a.registry, a.recorder).Run(ctx)
}
