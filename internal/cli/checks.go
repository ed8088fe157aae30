package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dexterite/prguard/internal/checks"
)

var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "Review check management",
}

var checksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available checks and their file patterns",
	Run: func(cmd *cobra.Command, args []string) {
		bold := color.New(color.Bold)
		defs := checks.Load(checks.Builtin, flagCustomChecks, nil)
		for _, def := range defs {
			bold.Fprintf(os.Stdout, "%s\n", def.Name)
			if len(def.Config.FilePatterns) > 0 {
				fmt.Fprintf(os.Stdout, "  files:    %s\n", strings.Join(def.Config.FilePatterns, ", "))
			}
			if len(def.Config.ExcludePatterns) > 0 {
				fmt.Fprintf(os.Stdout, "  excludes: %s\n", strings.Join(def.Config.ExcludePatterns, ", "))
			}
			fmt.Fprintln(os.Stdout)
		}
	},
}

var checksShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a check's full prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt, err := checks.BuiltinPrompt(args[0])
		if err != nil {
			return fmt.Errorf("unknown check %q (see 'prguard checks list')", args[0])
		}
		fmt.Fprintln(os.Stdout, prompt)
		return nil
	},
}

func init() {
	checksCmd.AddCommand(checksListCmd)
	checksCmd.AddCommand(checksShowCmd)
	checksListCmd.Flags().StringVar(&flagCustomChecks, "custom-checks-dir", "", "Directory with custom check definitions")
}
