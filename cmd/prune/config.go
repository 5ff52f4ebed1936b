package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/prune/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect the effective configuration",
		Subcommands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Print the effective configuration as TOML",
				ArgsUsage: "[path]",
				Action:    runConfigShowCmd,
			},
			{
				Name:      "validate",
				Usage:     "Check the configuration file against the schema",
				ArgsUsage: "[path]",
				Action:    runConfigValidateCmd,
			},
		},
	}
}

func runConfigShowCmd(c *cli.Context) error {
	root, err := filepath.Abs(getPath(c))
	if err != nil {
		return err
	}
	cfg, source, err := loadConfig(c, root)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if source == "" {
		source = "defaults"
	}
	w := c.App.Writer
	fmt.Fprintf(w, "# source: %s\n", source)
	_, err = w.Write(data)
	return err
}

func runConfigValidateCmd(c *cli.Context) error {
	root, err := filepath.Abs(getPath(c))
	if err != nil {
		return err
	}
	_, source, err := loadConfig(c, root)
	if err != nil {
		return err
	}
	w := c.App.Writer
	if source == "" {
		messages(w).Warning("No configuration file found, using defaults")
		return nil
	}
	messages(w).Success("Configuration valid: %s", source)
	return nil
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "Write a prune.toml with the default settings",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing prune.toml",
			},
		},
		Action: runInitCmd,
	}
}

func runInitCmd(c *cli.Context) error {
	root, err := filepath.Abs(getPath(c))
	if err != nil {
		return err
	}
	path := filepath.Join(root, "prune.toml")
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	data, err := toml.Marshal(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	messages(c.App.Writer).Success("Wrote %s", path)
	return nil
}
