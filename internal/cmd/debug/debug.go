package debug

import (
	"github.com/urfave/cli/v2"
)

var subcommands = []*cli.Command{
	config(),
}

func Command() *cli.Command {
	return &cli.Command{
		Name:        "debug",
		Usage:       "inspect the init thread's environment",
		Subcommands: subcommands,
	}
}
