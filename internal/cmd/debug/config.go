package debug

import (
	"encoding/json"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v2"

	cfg "github.com/wetware/naive/internal/config"
)

func config() *cli.Command {
	return &cli.Command{
		Name:      "config",
		Usage:     "display the resolved init thread configuration",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "load configuration from TOML `file`",
				EnvVars: []string{"NAIVE_CONFIG"},
			},
			&cli.BoolFlag{
				Name:    "json",
				Usage:   "print results as json",
				EnvVars: []string{"NAIVE_FMT_JSON"},
			},
		},
		Action: showConfig,
	}
}

func showConfig(c *cli.Context) error {
	conf, err := cfg.Resolve(c)
	if err != nil {
		return err
	}

	return renderConfig(c, conf)
}

func renderConfig(c *cli.Context, conf cfg.Config) error {
	if !c.Bool("json") {
		return toml.NewEncoder(c.App.Writer).Encode(conf)
	}

	enc := json.NewEncoder(c.App.Writer)
	if c.Bool("prettyprint") {
		enc.SetIndent("", "  ")
	}

	return enc.Encode(conf)
}
