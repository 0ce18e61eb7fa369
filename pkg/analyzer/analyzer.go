// Package analyzer runs the interpreter over whole programs. It fans functions out over a
// bounded worker pool, reuses cached reports for unchanged bodies, and records metrics.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/l3aro/go-absint/internal/log"
	"github.com/l3aro/go-absint/pkg/cache"
	"github.com/l3aro/go-absint/pkg/errs"
	"github.com/l3aro/go-absint/pkg/interp"
	"github.com/l3aro/go-absint/pkg/ir"
	"github.com/l3aro/go-absint/pkg/types"
)

// fingerprintVersion changes whenever the analysis of an unchanged body can produce a
// different report, so stale cache entries stop matching.
const fingerprintVersion = 1

// Options configures an Analyzer.
type Options struct {
	// Workers bounds concurrent function analyses. Values below 1 mean 1.
	Workers int

	FoldNumericConstants bool

	// Cache, when set, is consulted before and filled after each analysis.
	Cache *cache.ReportCache

	Logger log.Logger
}

// Analyzer produces function reports.
type Analyzer struct {
	opts   Options
	interp *interp.Interpreter
	logger log.Logger
}

// New creates an Analyzer.
func New(opts Options) *Analyzer {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Analyzer{
		opts:   opts,
		interp: interp.New(interp.Options{FoldNumericConstants: opts.FoldNumericConstants, Logger: logger}),
		logger: logger,
	}
}

// Fingerprint identifies body together with the options that affect its analysis.
func Fingerprint(body *ir.Body, foldNumericConstants bool) (string, error) {
	return cache.Key(fingerprintVersion, foldNumericConstants, body)
}

// AnalyzeFunction analyses one body. Failures are reported through the status and
// error fields rather than returned.
func (a *Analyzer) AnalyzeFunction(ctx context.Context, body *ir.Body) types.FunctionReport {
	if err := ctx.Err(); err != nil {
		return a.record(errorReport(body.Name, err))
	}

	key := ""
	if a.opts.Cache != nil {
		k, err := Fingerprint(body, a.opts.FoldNumericConstants)
		if err != nil {
			a.logger.Warn("cannot fingerprint function", "function", body.Name, "error", err)
		} else if r, ok := a.opts.Cache.Get(k); ok {
			cacheLookups.WithLabelValues("hit").Inc()
			r.Cached = true
			return a.record(r)
		} else {
			cacheLookups.WithLabelValues("miss").Inc()
			key = k
		}
	}

	start := time.Now()
	report := a.analyze(body)
	elapsed := time.Since(start)
	report.DurationMs = float64(elapsed.Microseconds()) / 1000
	functionDuration.Observe(elapsed.Seconds())

	for _, f := range report.Failures {
		statementErrors.WithLabelValues(f.Kind).Inc()
	}
	if key != "" && report.Status != types.StatusError {
		a.opts.Cache.Set(key, report)
	}
	a.logger.Debug("analysed function", "function", body.Name, "status", report.Status, "failures", len(report.Failures))
	return a.record(report)
}

func (a *Analyzer) record(r types.FunctionReport) types.FunctionReport {
	functionsAnalyzed.WithLabelValues(string(r.Status)).Inc()
	return r
}

// analyze maps the interpreter outcome of body onto a report. A panic from a contract
// violation in the input becomes an error report.
func (a *Analyzer) analyze(body *ir.Body) (report types.FunctionReport) {
	defer func() {
		if p := recover(); p != nil {
			a.logger.Error("interpreter panicked", "function", body.Name, "panic", p)
			report = errorReport(body.Name, fmt.Errorf("panic: %v", p))
		}
	}()

	if !interp.CanInterpret(body) {
		return types.FunctionReport{
			Name:   body.Name,
			Status: types.StatusIneligible,
			Error:  "function has locals outside the interpretable types",
		}
	}

	out, err := a.interp.Analyze(body)
	if err != nil {
		status := types.StatusError
		if errors.Is(err, errs.ErrNotImplemented) {
			status = types.StatusNotImplemented
		}
		return types.FunctionReport{Name: body.Name, Status: status, Error: err.Error()}
	}

	report = types.FunctionReport{
		Name:    body.Name,
		Status:  types.StatusOK,
		Summary: out.Summary.String(),
		Return:  out.Summary.Return.String(),
	}
	for _, arg := range out.Summary.Arguments {
		report.Arguments = append(report.Arguments, arg.String())
	}
	for _, l := range out.State.Locals() {
		report.State = append(report.State, types.LocalValue{Local: l.String(), Value: out.State[l].String()})
	}
	for _, e := range out.Errors {
		report.Failures = append(report.Failures, failure(e))
	}
	if len(report.Failures) > 0 {
		report.Status = types.StatusPartial
	}
	return report
}

func failure(err error) types.StatementFailure {
	f := types.StatementFailure{Kind: errs.KindOf(err).String(), Message: err.Error()}
	var se *interp.StatementError
	if errors.As(err, &se) {
		f.Block = se.Block
		f.Statement = se.Statement
		f.Text = se.Text
		f.Message = se.Err.Error()
	}
	return f
}

func errorReport(name string, err error) types.FunctionReport {
	return types.FunctionReport{Name: name, Status: types.StatusError, Error: err.Error()}
}

// AnalyzeProgram analyses every function of prog concurrently and returns the reports
// in declaration order. When ctx is cancelled, functions not yet started are reported
// with StatusError and the context error is returned alongside the reports.
func (a *Analyzer) AnalyzeProgram(ctx context.Context, prog *ir.Program) ([]types.FunctionReport, error) {
	reports := make([]types.FunctionReport, len(prog.Functions))
	started := make([]bool, len(prog.Functions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)

	for i := range prog.Functions {
		if gctx.Err() != nil {
			break
		}
		started[i] = true
		body := &prog.Functions[i]
		g.Go(func() error {
			reports[i] = a.AnalyzeFunction(gctx, body)
			return nil
		})
	}
	_ = g.Wait()

	err := ctx.Err()
	for i, ok := range started {
		if !ok {
			cause := err
			if cause == nil {
				cause = context.Canceled
			}
			reports[i] = a.record(errorReport(prog.Functions[i].Name, fmt.Errorf("not analysed: %w", cause)))
		}
	}
	if err != nil {
		return reports, fmt.Errorf("analysis interrupted: %w", err)
	}
	return reports, nil
}
