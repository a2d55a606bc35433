package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/metasnap/internal/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:      "validate",
				Usage:     "Validate a configuration file",
				ArgsUsage: "FILE",
				Action:    configValidate,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}
	return rt.print(rt.cfg)
}

func configValidate(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("config validate: exactly one file is required")
	}
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	path := c.Args().First()
	if _, err := config.Load(path, nil); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(rt.stdout, "%s: ok\n", path)
	return nil
}
