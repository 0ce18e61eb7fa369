package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-absint/internal/config"
	"github.com/l3aro/go-absint/pkg/cache"
)

// cacheCmd groups the report cache commands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the report cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many reports the cache holds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return runCacheStats(cmd.OutOrStdout(), cfg, jsonOutput)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the report cache file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runCacheClear(cmd.OutOrStdout(), cfg)
	},
}

// CacheStats is the output of cache stats.
type CacheStats struct {
	Path    string `json:"path"`
	Enabled bool   `json:"enabled"`
	Entries int    `json:"entries"`
	MaxSize int    `json:"max_size"`
	Bytes   int64  `json:"bytes"`
}

func runCacheStats(out io.Writer, cfg *config.Config, jsonOutput bool) error {
	stats := CacheStats{Path: cfg.CachePath, Enabled: cfg.CacheEnabled, MaxSize: cfg.CacheSize}

	c := cache.New(cache.Options{MaxSize: cfg.CacheSize})
	if err := c.LoadFile(cfg.CachePath); err != nil {
		return fmt.Errorf("reading cache: %w", err)
	}
	stats.Entries = c.Len()
	if info, err := os.Stat(cfg.CachePath); err == nil {
		stats.Bytes = info.Size()
	}

	if jsonOutput {
		return printJSON(out, stats)
	}
	fmt.Fprintf(out, "Path: %s\n", stats.Path)
	fmt.Fprintf(out, "Enabled: %v\n", stats.Enabled)
	fmt.Fprintf(out, "Entries: %d / %d\n", stats.Entries, stats.MaxSize)
	fmt.Fprintf(out, "Size: %d bytes\n", stats.Bytes)
	return nil
}

func runCacheClear(out io.Writer, cfg *config.Config) error {
	err := os.Remove(cfg.CachePath)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, "Cache is already empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("removing cache: %w", err)
	}
	fmt.Fprintf(out, "Removed %s\n", cfg.CachePath)
	return nil
}

func init() {
	cacheStatsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	RootCmd.AddCommand(cacheCmd)
}
