package interp

import (
	"github.com/l3aro/go-absint/pkg/domain"
	"github.com/l3aro/go-absint/pkg/errs"
	"github.com/l3aro/go-absint/pkg/ir"
)

// Outcome combines a function's signature summary with the state reached by
// interpreting its body from the summary's arguments.
type Outcome struct {
	Summary *domain.Function
	State   State
	Errors  []error
}

// Analyze gates body on CanInterpret, summarizes it, then interprets it with every
// argument at the top of its type.
func (in *Interpreter) Analyze(body *ir.Body) (*Outcome, error) {
	if !CanInterpret(body) {
		return nil, errs.New(errs.Interpreter, "%s has locals outside the interpretable types", body.Name)
	}
	summary, err := Summarize(body)
	if err != nil {
		return nil, err
	}
	res, err := in.InterpretBody(body, summary.Arguments)
	if err != nil {
		return nil, err
	}
	return &Outcome{Summary: summary, State: res.State, Errors: res.Errors}, nil
}
