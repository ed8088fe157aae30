package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

// Exit codes, stable for CI gating.
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

var rootCmd = &cobra.Command{
	Use:   "prguard",
	Short: "AI code review for pull requests",
	Long:  "PRGuard runs configurable AI-powered review checks over changed files and ships the findings to CI surfaces with deterministic exit codes.",
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checksCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print prguard version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "prguard version %s\n", version)
	},
}
