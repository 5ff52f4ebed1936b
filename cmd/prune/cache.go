package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/prune/internal/cache"
	"github.com/panbanda/prune/internal/output"
	"github.com/panbanda/prune/pkg/config"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the per-file analysis cache",
		Subcommands: []*cli.Command{
			{
				Name:      "clear",
				Usage:     "Remove all cached entries",
				ArgsUsage: "[path]",
				Action:    runCacheClearCmd,
			},
			{
				Name:      "stats",
				Usage:     "Show cache size and entry ages",
				ArgsUsage: "[path]",
				Action:    runCacheStatsCmd,
			},
		},
	}
}

func openCache(c *cli.Context) (*cache.Cache, *config.Config, error) {
	root, err := filepath.Abs(getPath(c))
	if err != nil {
		return nil, nil, err
	}
	cfg, _, err := loadConfig(c, root)
	if err != nil {
		return nil, nil, err
	}
	fc, err := cache.New(cacheDir(cfg, root), cfg.Cache.TTL, true)
	return fc, cfg, err
}

func runCacheClearCmd(c *cli.Context) error {
	fc, _, err := openCache(c)
	if err != nil {
		return err
	}
	if err := fc.Clear(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	messages(c.App.Writer).Success("Cleared %s", fc.Dir())
	return nil
}

func runCacheStatsCmd(c *cli.Context) error {
	fc, cfg, err := openCache(c)
	if err != nil {
		return err
	}
	stats, err := fc.GetStats()
	if err != nil {
		return err
	}
	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(output.NewTable(
		"Cache",
		[]string{"Setting", "Value"},
		[][]string{
			{"Directory", fc.Dir()},
			{"Entries", strconv.Itoa(stats.Entries)},
			{"Total size", fmt.Sprintf("%d bytes", stats.TotalSize)},
			{"Oldest entry", stats.OldestAge.Round(time.Second).String()},
			{"Newest entry", stats.NewestAge.Round(time.Second).String()},
		},
		stats,
	))
}
