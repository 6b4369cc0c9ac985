// Command bloghub publishes GitHub issues as a static blog.
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/bloghub/cmd/bloghub/commands"
	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
	"git.home.luguber.info/inful/bloghub/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{}
	parser := kong.Must(cli,
		kong.Name("bloghub"),
		kong.Description("Publish approved GitHub issues as a static blog."),
		kong.UsageOnError(),
		kong.Bind(global),
		kong.Vars{"version": version.String()},
	)
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	err = kctx.Run(global, cli)
	adapter := errors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
	os.Exit(adapter.Handle(err))
}
