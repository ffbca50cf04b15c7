package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ivlis-studio/ivlyrics-helper/internal/cache"
	"github.com/ivlis-studio/ivlyrics-helper/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the video cache",
}

var cacheUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show cache usage against the configured bound",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}

		total, err := store.Usage()
		if err != nil {
			return fmt.Errorf("reading cache usage: %w", err)
		}

		fmt.Printf("Cache directory: %s\n", store.Dir())
		if limit := cfg.MaxCacheBytes(); limit > 0 {
			fmt.Printf("Usage: %s of %s\n", humanize.IBytes(uint64(total)), humanize.IBytes(uint64(limit)))
		} else {
			fmt.Printf("Usage: %s (unbounded)\n", humanize.IBytes(uint64(total)))
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached videos",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Println("Cache cleared")
		return nil
	},
}

func openStore() (*cache.Store, config.App, error) {
	manager, err := config.NewManager(config.ConfigPath())
	if err != nil {
		return nil, config.App{}, fmt.Errorf("loading configuration: %w", err)
	}
	cfg := manager.Snapshot()
	store := cache.NewStore(cfg.VideoDir(), func() int64 { return cfg.MaxCacheBytes() }, slog.Default())
	return store, cfg, nil
}

func init() {
	cacheCmd.AddCommand(cacheUsageCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
