package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
)

// SyncCmd implements the 'sync' command.
type SyncCmd struct{}

func (s *SyncCmd) Run(_ *Global, root *CLI) error {
	ctx := context.Background()
	a, err := newApp(ctx, root)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.service.Sync(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d issues: %d published, %d updated, %d unchanged, %d failed\n",
		report.Issues, report.Published, report.Updated, report.Skipped, report.Failed)
	if report.Failed > 0 {
		return errors.PublishError(fmt.Sprintf("%d of %d issues failed to publish", report.Failed, report.Issues)).
			WithCause(report.Errors[0]).
			Build()
	}
	return nil
}

// RebuildCmd implements the 'rebuild' command.
type RebuildCmd struct{}

func (r *RebuildCmd) Run(_ *Global, root *CLI) error {
	ctx := context.Background()
	a, err := newApp(ctx, root)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.service.Rebuild(ctx)
}

// ImportLegacyCmd implements the 'import-legacy' command.
type ImportLegacyCmd struct {
	Dir string `short:"d" help:"Directory with existing post pages (defaults to the configured posts directory)" type:"path"`
}

func (i *ImportLegacyCmd) Run(_ *Global, root *CLI) error {
	ctx := context.Background()
	a, err := newApp(ctx, root)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.service.ImportLegacy(ctx, i.Dir)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d legacy posts\n", n)
	return nil
}
