package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/l3aro/go-absint/pkg/types"
)

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// printFileReports prints reports in human-readable format, one section per file and a
// closing tally.
func printFileReports(w io.Writer, files []types.FileReport, showState bool) {
	var all []types.FunctionReport
	for _, f := range files {
		fmt.Fprintf(w, "=== %s (%s) ===\n", f.Path, f.Kind)
		if f.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", f.Error)
			continue
		}
		if len(f.Functions) == 0 {
			fmt.Fprintln(w, "  no functions")
		}
		for _, r := range f.Functions {
			printFunctionReport(w, r, showState)
		}
		all = append(all, f.Functions...)
	}
	fmt.Fprintln(w, tally(all))
}

func printFunctionReport(w io.Writer, r types.FunctionReport, showState bool) {
	suffix := ""
	if r.Cached {
		suffix = " (cached)"
	}
	fmt.Fprintf(w, "  %-15s %s%s\n", r.Status, r.Name, suffix)
	if r.Summary != "" {
		fmt.Fprintf(w, "      summary: %s\n", r.Summary)
	}
	if r.Error != "" {
		fmt.Fprintf(w, "      error: %s\n", r.Error)
	}
	if showState {
		for _, lv := range r.State {
			fmt.Fprintf(w, "      %s = %s\n", lv.Local, lv.Value)
		}
	}
	for _, f := range r.Failures {
		fmt.Fprintf(w, "      bb%d[%d] %s: %s\n", f.Block, f.Statement, f.Text, f.Message)
	}
}

// tally renders "N functions: a ok, b partial, ..." skipping empty statuses.
func tally(reports []types.FunctionReport) string {
	counts := types.Counts(reports)
	var parts []string
	for _, s := range types.Statuses {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, s))
		}
	}
	noun := "functions"
	if len(reports) == 1 {
		noun = "function"
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d %s", len(reports), noun)
	}
	return fmt.Sprintf("%d %s: %s", len(reports), noun, strings.Join(parts, ", "))
}
