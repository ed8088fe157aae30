package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dexterite/prguard/internal/aiclient"
	"github.com/dexterite/prguard/internal/cache"
	"github.com/dexterite/prguard/internal/checks"
	"github.com/dexterite/prguard/internal/collect"
	"github.com/dexterite/prguard/internal/config"
	"github.com/dexterite/prguard/internal/findings"
	"github.com/dexterite/prguard/internal/gitsel"
	"github.com/dexterite/prguard/internal/report"
	"github.com/dexterite/prguard/internal/runner"
	"github.com/dexterite/prguard/internal/ship"
)

// Run command flags.
var (
	flagConfigFile   string
	flagChecks       string
	flagFullScan     bool
	flagThreshold    string
	flagFormat       string
	flagShipTo       string
	flagModel        string
	flagMaxTokens    int
	flagExclude      string
	flagCustomChecks string
	flagDebug        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the review checks against changed files",
	Long: `Run collects the changed (or all tracked) files, executes each enabled
review check through the configured model, prints the report, and ships it to
the configured destinations. Exits 1 when any finding meets the severity
threshold.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if errors.Is(err, config.ErrMissingAPIKey) {
				exitCode = ExitAuthError
			} else {
				exitCode = ExitUsageError
			}
			return nil
		}
		applyFlagOverrides(cmd, &cfg)
		setupLogging(cfg.Debug)

		runReview(cmd.Context(), cfg)
		return nil
	},
}

// applyFlagOverrides layers explicitly passed flags over the loaded config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("checks") {
		cfg.Checks = flagChecks
	}
	if cmd.Flags().Changed("full-scan") {
		cfg.FullScan = flagFullScan
		if flagFullScan {
			cfg.DiffOnly = false
		}
	}
	if cmd.Flags().Changed("severity-threshold") {
		cfg.SeverityThreshold = flagThreshold
	}
	if cmd.Flags().Changed("format") {
		cfg.OutputFormat = flagFormat
	}
	if cmd.Flags().Changed("ship-to") {
		cfg.ShipTo = flagShipTo
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = flagModel
	}
	if cmd.Flags().Changed("max-context-tokens") {
		cfg.MaxContextTokens = flagMaxTokens
	}
	if cmd.Flags().Changed("exclude") {
		cfg.ExcludePatterns = append(cfg.ExcludePatterns, splitComma(flagExclude)...)
	}
	if cmd.Flags().Changed("custom-checks-dir") {
		cfg.CustomChecksDir = flagCustomChecks
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = flagDebug
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func splitComma(s string) []string {
	var result []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

func selectionMode(cfg config.Config) gitsel.Mode {
	if cfg.DiffOnly {
		return gitsel.ModeDiffOnly
	}
	return gitsel.ModeFullScan
}

func runReview(ctx context.Context, cfg config.Config) {
	enabled := checks.Resolve(cfg.Checks, cfg.CustomChecksDir, cfg.CheckOverrides)
	if len(enabled) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no checks enabled")
		exitCode = ExitUsageError
		return
	}
	defs := checks.Load(enabled, cfg.CustomChecksDir, cfg.CheckOverrides)

	slog.Debug("configuration resolved",
		"endpoint", cfg.MaskedBaseURL(),
		"model", cfg.Model,
		"checks", strings.Join(enabled, ","),
		"mode", string(selectionMode(cfg)))

	selector := gitsel.New(gitsel.Hints{
		BaseRef: firstNonEmpty(cfg.BaseRef, os.Getenv("GITHUB_BASE_REF")),
		Before:  firstNonEmpty(cfg.Before, os.Getenv("GITHUB_EVENT_BEFORE")),
	})
	collector := collect.New(selector, "")
	client := aiclient.New(aiclient.Options{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.APIBaseURL,
		Model:          cfg.Model,
		MaxRetries:     cfg.MaxRetries,
		Timeout:        cfg.RequestTimeout(),
		RequestDelayMS: cfg.RequestDelayMS,
	})

	eng := runner.New(collector, client, runner.Options{
		Mode:             selectionMode(cfg),
		Model:            cfg.Model,
		MaxFileSizeKB:    cfg.MaxFileSizeKB,
		MaxContextTokens: cfg.MaxContextTokens,
		GlobalExcludes:   cfg.ExcludePatterns,
	})
	if cfg.CacheEnabled {
		respCache, err := cache.New(true, cfg.CacheDir, cfg.CacheTTLSeconds)
		if err != nil {
			slog.Warn("response cache unavailable", "error", err)
		} else {
			eng.WithCache(respCache)
		}
	}

	results, err := eng.Run(ctx, defs)
	if err != nil {
		// Only context cancellation surfaces here; batch and auth failures
		// are recorded as findings on their checks.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	stats := client.Stats()
	slog.Debug("run complete",
		"api_calls", stats.TotalCalls,
		"throttled_seconds", fmt.Sprintf("%.1f", stats.TotalThrottledSeconds),
		"effective_delay_ms", stats.EffectiveDelayMS)

	rep := report.New(version, string(selectionMode(cfg)), cfg.Model, results)

	rendered, err := report.Render(rep, cfg.OutputFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering report: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}
	fmt.Fprint(os.Stdout, rendered)

	if err := ship.New().ShipAll(ctx, cfg.ShipTo, rep, ship.Options{
		Format:      cfg.OutputFormat,
		FilePath:    cfg.ShipFilePath,
		WebhookURL:  cfg.ShipWebhookURL,
		GitHubToken: cfg.GitHubToken,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	total := rep.TotalFindings()
	if findings.AnyMeetsThreshold(results, cfg.SeverityThreshold) {
		color.Red("✗ %d finding(s), at least one at or above %s severity", total, cfg.SeverityThreshold)
		exitCode = ExitFindings
		return
	}
	color.Green("✓ review passed (%d finding(s) below the %s threshold)", total, cfg.SeverityThreshold)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	runCmd.Flags().StringVar(&flagConfigFile, "config", "", "Path to a prguard config file")
	runCmd.Flags().StringVar(&flagChecks, "checks", "", `Checks to run ("all" or comma-separated names)`)
	runCmd.Flags().BoolVar(&flagFullScan, "full-scan", false, "Analyze all tracked files instead of the diff")
	runCmd.Flags().StringVar(&flagThreshold, "severity-threshold", "", "Fail threshold (critical, high, medium, low, info)")
	runCmd.Flags().StringVar(&flagFormat, "format", "", "Report format (markdown, json, sarif, text)")
	runCmd.Flags().StringVar(&flagShipTo, "ship-to", "", "Destinations (github-summary, file, webhook, github-pr-comment, none)")
	runCmd.Flags().StringVar(&flagModel, "model", "", "Model name")
	runCmd.Flags().IntVar(&flagMaxTokens, "max-context-tokens", 0, "Model context budget in tokens")
	runCmd.Flags().StringVar(&flagExclude, "exclude", "", "Additional exclude globs (comma-separated)")
	runCmd.Flags().StringVar(&flagCustomChecks, "custom-checks-dir", "", "Directory with custom check definitions")
	runCmd.Flags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
}
