// Package commands provides the CLI commands for absint.
package commands

import (
	"github.com/spf13/cobra"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "absint",
	Short: "absint - Interval abstract interpretation for Go functions",
	Long: `absint summarises functions with abstract values: intervals for integers and a
four-point lattice for booleans. It reads Go sources, lowered with tree-sitter, and IR
files (.air.yaml, .air.yml, .air.json).

Commands:
  analyze     Interpret every function found under the given paths
  summary     Show the abstract signature of functions
  lower       Print the IR a Go file lowers to
  watch       Re-analyse files as they change
  init        Create a configuration file
  cache       Inspect or clear the report cache

Use "absint [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().String("config", "", "Config file (default: ./.absint/config.yaml over ~/.absint/config.yaml)")
	RootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	RootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")
}
