package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-absint/internal/config"
	"github.com/l3aro/go-absint/internal/log"
	"github.com/l3aro/go-absint/pkg/types"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [path...]",
	Short: "Interpret every function found under the given paths",
	Long: `Finds Go sources and IR files under each path (default: the current directory),
summarises every function and interprets its body over the summary's arguments.

Each function gets a status:
  ok               every statement was interpreted
  partial          some statements failed; the state holds what was computed
  not_implemented  the signature uses a type without an abstraction
  ineligible       a local has a type the interpreter does not handle
  error            the input was malformed or the run was interrupted`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := analyzeOptions{}
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.ShowState, _ = cmd.Flags().GetBool("state")
		opts.Strict, _ = cmd.Flags().GetBool("strict")
		opts.Function, _ = cmd.Flags().GetString("function")

		if len(args) == 0 {
			args = []string{"."}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runAnalyze(ctx, cmd.OutOrStdout(), cfg, cfg.Logger(), args, opts)
	},
}

type analyzeOptions struct {
	JSON      bool
	ShowState bool
	Strict    bool
	Function  string
}

func runAnalyze(ctx context.Context, out io.Writer, cfg *config.Config, logger log.Logger, paths []string, opts analyzeOptions) error {
	inputs, err := collectInputs(paths)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no Go or IR files found in %s", strings.Join(paths, ", "))
	}

	s := newSession(cfg, logger)
	defer s.saveCache()

	spinner := log.NewProgressSpinner(fmt.Sprintf("Analysing %d files...", len(inputs)))
	spinner.Start()
	files, runErr := s.analyzeInputs(ctx, inputs, opts.Function)
	spinner.Stop()

	if opts.JSON {
		if err := printJSON(out, files); err != nil {
			return err
		}
	} else {
		printFileReports(out, files, opts.ShowState)
	}
	if runErr != nil {
		return runErr
	}

	if opts.Strict {
		var failed int
		for _, f := range files {
			if f.Error != "" {
				failed++
			}
			for _, r := range f.Functions {
				if r.Status != types.StatusOK {
					failed++
				}
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d inputs or functions did not analyse cleanly", failed)
		}
	}
	return nil
}

func init() {
	analyzeCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	analyzeCmd.Flags().Bool("state", false, "Print the final abstract value of every local")
	analyzeCmd.Flags().Bool("strict", false, "Exit with an error unless every function is ok")
	analyzeCmd.Flags().StringP("function", "f", "", "Only analyse functions with this name")
	analyzeCmd.Flags().IntP("workers", "w", 0, "Functions analysed concurrently (overrides config)")
	analyzeCmd.Flags().Bool("fold", false, "Decode integer constants into point intervals (overrides config)")
	analyzeCmd.Flags().Bool("no-cache", false, "Do not read or write the report cache")
	RootCmd.AddCommand(analyzeCmd)
}
