package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/bloghub/internal/config"
	"git.home.luguber.info/inful/bloghub/internal/preview"
	"git.home.luguber.info/inful/bloghub/internal/site"
)

// PreviewCmd implements the 'preview' command.
type PreviewCmd struct {
	File   string `arg:"" help:"Markdown file to preview" type:"existingfile"`
	Output string `short:"o" help:"Where to write the page (defaults to the file name with .html)" type:"path"`
	Once   bool   `help:"Render once and exit instead of watching"`
}

func (p *PreviewCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	s, err := site.New(cfg)
	if err != nil {
		return err
	}
	pv, err := preview.New(p.File, p.Output, s, cfg.GitHub.ApprovedLabel)
	if err != nil {
		return err
	}
	if p.Once {
		if err := pv.Render(); err != nil {
			return err
		}
		fmt.Println(pv.Output())
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	fmt.Printf("Previewing %s -> %s (Ctrl-C to stop)\n", p.File, pv.Output())
	return pv.Watch(ctx)
}
