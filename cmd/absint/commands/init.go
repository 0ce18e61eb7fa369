package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/l3aro/go-absint/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an absint configuration file",
	Long: `Writes ./.absint/config.yaml, or ~/.absint/config.yaml with --global. On a
terminal the settings are asked for interactively; otherwise, or with --defaults, the
default configuration is written.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		global, _ := cmd.Flags().GetBool("global")
		defaults, _ := cmd.Flags().GetBool("defaults")
		force, _ := cmd.Flags().GetBool("force")

		path := config.ProjectConfigFilePath()
		if global {
			path = config.GlobalConfigFilePath()
		}

		cfg := config.DefaultConfig()
		if !defaults && isatty.IsTerminal(os.Stdin.Fd()) {
			if err := promptConfig(cfg); err != nil {
				return err
			}
		}
		return writeConfig(cmd.OutOrStdout(), cfg, path, force)
	},
}

// promptConfig asks for the settings most projects change and stores the answers in cfg.
func promptConfig(cfg *config.Config) error {
	workers := strconv.Itoa(cfg.Workers)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Workers").
				Description("Functions analysed concurrently").
				Value(&workers).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 || n > 256 {
						return fmt.Errorf("enter a number between 1 and 256")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Fold numeric constants?").
				Description("Decode integer constants into point intervals instead of reporting them").
				Value(&cfg.FoldNumericConstants),
			huh.NewConfirm().
				Title("Cache reports between runs?").
				Description("Stored in "+cfg.CachePath).
				Value(&cfg.CacheEnabled),
			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions("debug", "info", "warn", "error")...).
				Value(&cfg.LogLevel),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	cfg.Workers, _ = strconv.Atoi(workers)
	return nil
}

func writeConfig(out io.Writer, cfg *config.Config, path string, force bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(out, "Configuration saved to %s\n", path)
	return nil
}

func init() {
	initCmd.Flags().Bool("global", false, "Write the global config (~/.absint/config.yaml)")
	initCmd.Flags().Bool("defaults", false, "Write the defaults without prompting")
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	RootCmd.AddCommand(initCmd)
}
