package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dexterite/prguard/internal/cache"
	"github.com/dexterite/prguard/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Response cache management",
}

func openCache() (*cache.Cache, error) {
	cfg, err := config.Load(flagConfigFile)
	if err != nil && !errors.Is(err, config.ErrMissingAPIKey) {
		return nil, err
	}
	// Cache maintenance does not need an API key.
	return cache.New(true, cfg.CacheDir, cfg.CacheTTLSeconds)
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and entry count",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		stats, err := c.GetStats()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Directory: %s\n", stats.Dir)
		fmt.Fprintf(os.Stdout, "Entries:   %d (%d expired)\n", stats.Entries, stats.Expired)
		fmt.Fprintf(os.Stdout, "Size:      %s\n", humanize.IBytes(uint64(stats.TotalBytes)))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		if err := c.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "Cache cleared.")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
