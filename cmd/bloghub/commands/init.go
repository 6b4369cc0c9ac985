package commands

import (
	"fmt"

	"git.home.luguber.info/inful/bloghub/internal/config"
	"git.home.luguber.info/inful/bloghub/internal/version"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	fmt.Printf("Writing configuration to %s\n", root.Config)
	if err := config.WriteSample(root.Config, i.Force); err != nil {
		return err
	}
	fmt.Println("Initialized. Set github.repository and run 'bloghub sync'.")
	return nil
}

// VersionCmd implements the 'version' command.
type VersionCmd struct{}

func (v *VersionCmd) Run(_ *Global, _ *CLI) error {
	fmt.Println(version.String())
	return nil
}
