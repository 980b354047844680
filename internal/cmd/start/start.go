package start

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/wetware/naive/internal/runtime"
	ctxutil "github.com/wetware/naive/internal/util/ctx"
)

var flags = []cli.Flag{
	&cli.PathFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "load init thread configuration from TOML `file`",
		EnvVars: []string{"NAIVE_CONFIG"},
	},
	&cli.Uint64Flag{
		Name:        "badge-base",
		Usage:       "first `badge` minted by the root endpoint",
		DefaultText: "100",
		EnvVars:     []string{"NAIVE_BADGE_BASE"},
	},
	&cli.IntFlag{
		Name:        "irq",
		Usage:       "console interrupt `line`",
		DefaultText: "29",
		EnvVars:     []string{"NAIVE_IRQ"},
	},
	&cli.IntFlag{
		Name:        "cspace",
		Usage:       "capability space size of the init thread, in `slots`",
		DefaultText: "4096",
		EnvVars:     []string{"NAIVE_CSPACE"},
	},
	&cli.BoolFlag{
		Name:    "no-shell",
		Usage:   "do not attach the echo shell to the console",
		EnvVars: []string{"NAIVE_NO_SHELL"},
	},
}

func Command() *cli.Command {
	return &cli.Command{
		Name:   "start",
		Usage:  "start the init thread",
		Flags:  flags,
		Before: setup,
		Action: serve,
	}
}

func setup(c *cli.Context) error {
	c.Context = ctxutil.WithLifetime(c.Context)
	return nil
}

func serve(c *cli.Context) error {
	if err := runtime.Serve(c); err != nil {
		return errors.Wrap(err, "init")
	}

	return nil
}
