package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-absint/internal/scanner"
	"github.com/l3aro/go-absint/pkg/interp"
	"github.com/l3aro/go-absint/pkg/ir"
)

// summaryCmd represents the summary command
var summaryCmd = &cobra.Command{
	Use:   "summary <file> [function]",
	Short: "Show the abstract signature of functions",
	Long: `Prints the summary of each function in a Go or IR file: the top abstract value of
every argument type and of the return type. Bodies are not interpreted.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		function := ""
		if len(args) == 2 {
			function = args[1]
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return runSummary(cmd.OutOrStdout(), args[0], function, jsonOutput)
	},
}

// FunctionSummary is the JSON form of one summary.
type FunctionSummary struct {
	Name      string   `json:"name"`
	Summary   string   `json:"summary,omitempty"`
	Arguments []string `json:"arguments,omitempty"`
	Return    string   `json:"return,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func runSummary(out io.Writer, path, function string, jsonOutput bool) error {
	prog, err := loadFile(path)
	if err != nil {
		return err
	}
	if function != "" {
		prog = filterFunctions(prog, function)
		if len(prog.Functions) == 0 {
			return fmt.Errorf("function %q not found in %s", function, path)
		}
	}

	summaries := make([]FunctionSummary, 0, len(prog.Functions))
	for i := range prog.Functions {
		summaries = append(summaries, summarize(&prog.Functions[i]))
	}

	if jsonOutput {
		return printJSON(out, summaries)
	}
	for _, s := range summaries {
		if s.Error != "" {
			fmt.Fprintf(out, "%s: %s\n", s.Name, s.Error)
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", s.Name, s.Summary)
	}
	return nil
}

func summarize(body *ir.Body) FunctionSummary {
	s := FunctionSummary{Name: body.Name}
	fn, err := interp.Summarize(body)
	if err != nil {
		s.Error = err.Error()
		return s
	}
	s.Summary = fn.String()
	s.Return = fn.Return.String()
	for _, a := range fn.Arguments {
		s.Arguments = append(s.Arguments, a.String())
	}
	return s
}

// loadFile loads one Go or IR file named on the command line.
func loadFile(path string) (*ir.Program, error) {
	inputs, err := scanner.Scan(path)
	if err != nil {
		return nil, err
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("%s is not a Go or IR file", path)
	}
	return loadProgram(inputs[0])
}

func init() {
	summaryCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(summaryCmd)
}
