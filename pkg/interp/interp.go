// Package interp evaluates a function body over abstract values. It builds signature
// summaries, decides which bodies are interpretable, and walks a body's basic blocks in
// declaration order, updating an abstract state per statement.
//
// Blocks are visited once each. There is no fixpoint iteration over back edges, so
// results for bodies with loops describe a single pass only.
package interp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/l3aro/go-absint/internal/log"
	"github.com/l3aro/go-absint/pkg/domain"
	"github.com/l3aro/go-absint/pkg/errs"
	"github.com/l3aro/go-absint/pkg/ir"
)

// State maps locals to their current abstract values.
type State map[ir.Local]domain.Value

// Locals returns the populated locals in ascending order.
func (s State) Locals() []ir.Local {
	out := make([]ir.Local, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equal reports whether both states bind the same locals to equal values.
func (s State) Equal(o State) bool {
	if len(s) != len(o) {
		return false
	}
	for l, v := range s {
		ov, ok := o[l]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

func (s State) String() string {
	parts := make([]string, 0, len(s))
	for _, l := range s.Locals() {
		parts = append(parts, l.String()+": "+s[l].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Options configures an Interpreter.
type Options struct {
	// FoldNumericConstants decodes integer constants into point intervals. When false,
	// only boolean constants are understood and numeric ones are NotImplemented.
	FoldNumericConstants bool

	// Logger receives per-body diagnostics at debug level. Nil disables logging.
	Logger log.Logger
}

// Interpreter evaluates bodies. It holds no per-body state and is safe for concurrent use.
type Interpreter struct {
	opts   Options
	logger log.Logger
}

// New creates an Interpreter.
func New(opts Options) *Interpreter {
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Interpreter{opts: opts, logger: logger}
}

// StatementError records a statement that failed during interpretation.
type StatementError struct {
	Block     int
	Statement int
	Text      string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("bb%d[%d] %s: %v", e.Block, e.Statement, e.Text, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// Result is the outcome of interpreting a body: the final state and the failures of
// statements that could not be evaluated.
type Result struct {
	State  State
	Errors []error
}

// Summarize abstracts a function from its signature alone: the top value of every
// argument type and of the return type. The first type without an abstraction fails
// the whole summary.
func Summarize(body *ir.Body) (*domain.Function, error) {
	argTypes := body.ArgTypes()
	args := make([]domain.Value, len(argTypes))
	for i, ty := range argTypes {
		v, err := domain.NewValue(ty)
		if err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i+1, body.Name, err)
		}
		args[i] = v
	}
	ret, err := domain.NewValue(body.ReturnType())
	if err != nil {
		return nil, fmt.Errorf("return value of %s: %w", body.Name, err)
	}
	return &domain.Function{Arguments: args, Return: ret}, nil
}

// CanInterpret reports whether every local is numeric, boolean, or a tuple made only of
// numeric and boolean fields.
func CanInterpret(body *ir.Body) bool {
	scalar := func(t ir.Type) bool { return t.IsNumeric() || t.IsBool() }
	for _, decl := range body.Locals {
		if scalar(decl.Ty) {
			continue
		}
		fields, ok := decl.Ty.TupleFields()
		if !ok {
			return false
		}
		for _, f := range fields {
			if !scalar(f) {
				return false
			}
		}
	}
	return true
}

// InterpretBody runs body with the given argument values. The argument count must
// match the body's; otherwise InvalidArgument is returned and nothing runs.
//
// Arguments seed locals 1..n. Blocks then run in declaration order. A failing statement
// ends its block and is recorded in Result.Errors; later blocks still run.
func (in *Interpreter) InterpretBody(body *ir.Body, args []domain.Value) (*Result, error) {
	if len(args) != body.ArgCount {
		return nil, errs.New(errs.InvalidArgument,
			"%s takes %d arguments, got %d", body.Name, body.ArgCount, len(args))
	}

	state := make(State, len(body.Locals))
	for i, arg := range args {
		state[ir.Local(i+1)] = arg.Clone()
	}

	var failures []error
	for bi, block := range body.Blocks {
		for si, stmt := range block.Statements {
			if err := in.interpretStatement(stmt, state); err != nil {
				failures = append(failures, &StatementError{Block: bi, Statement: si, Text: stmt.String(), Err: err})
				break
			}
		}
	}

	if len(failures) > 0 {
		in.logger.Debug("errors while interpreting body", "function", body.Name, "count", len(failures))
		for _, f := range failures {
			in.logger.Debug("statement failed", "function", body.Name, "error", f)
		}
	}
	return &Result{State: state, Errors: failures}, nil
}
