package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-absint/pkg/ir"
	"github.com/l3aro/go-absint/pkg/lower"
)

// lowerCmd represents the lower command
var lowerCmd = &cobra.Command{
	Use:   "lower <file.go>",
	Short: "Print the IR a Go file lowers to",
	Long: `Lowers every top-level function of a Go file and prints the program as an IR
file. Statements outside the supported subset appear as unsupported statements
carrying their source text. The output can be edited and analysed directly.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		prog, err := lower.LowerFile(args[0])
		if err != nil {
			return fmt.Errorf("lowering: %w", err)
		}

		if output == "" {
			return writeProgram(cmd.OutOrStdout(), prog, jsonOutput)
		}
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		if err := writeProgram(f, prog, jsonOutput); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d functions to %s\n", len(prog.Functions), output)
		return nil
	},
}

func writeProgram(w io.Writer, prog *ir.Program, jsonOutput bool) error {
	if jsonOutput {
		return printJSON(w, prog)
	}
	return ir.Encode(w, prog)
}

func init() {
	lowerCmd.Flags().StringP("output", "o", "", "Write the IR to this file instead of stdout")
	lowerCmd.Flags().BoolP("json", "j", false, "Output as JSON instead of YAML")
	RootCmd.AddCommand(lowerCmd)
}
