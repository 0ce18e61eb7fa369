package analyzer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-absint/pkg/cache"
	"github.com/l3aro/go-absint/pkg/ir"
	"github.com/l3aro/go-absint/pkg/lower"
	"github.com/l3aro/go-absint/pkg/types"
)

func local(l int) ir.Place { return ir.LocalPlace(ir.Local(l)) }

func identity(name string) ir.Body {
	return ir.Body{
		Name:     name,
		ArgCount: 1,
		Locals:   []ir.LocalDecl{{Ty: ir.Int(32)}, {Name: "x", Ty: ir.Int(32)}},
		Blocks: []ir.BasicBlock{{Statements: []ir.Statement{
			ir.Assign(local(0), ir.Use(ir.Copy(local(1)))),
		}}},
	}
}

func testProgram() *ir.Program {
	malformed := ir.Constant{Ty: ir.Bool(), Bytes: []*byte{nil}}
	return &ir.Program{Functions: []ir.Body{
		identity("ok"),
		{
			Name:     "partial",
			ArgCount: 1,
			Locals:   []ir.LocalDecl{{Ty: ir.Int(32)}, {Ty: ir.Int(32)}},
			Blocks: []ir.BasicBlock{{Statements: []ir.Statement{
				ir.Assign(local(0), ir.BinaryOp(ir.OpMul, ir.Copy(local(1)), ir.Copy(local(1)))),
			}}},
		},
		{
			Name:     "float",
			ArgCount: 1,
			Locals:   []ir.LocalDecl{{Ty: ir.Float(64)}, {Ty: ir.Float(64)}},
		},
		{
			Name:     "reference",
			ArgCount: 1,
			Locals:   []ir.LocalDecl{{Ty: ir.Int(32)}, {Ty: ir.Named(ir.KindRef, "&i32")}},
		},
		{
			Name:   "malformed",
			Locals: []ir.LocalDecl{{Ty: ir.Bool()}},
			Blocks: []ir.BasicBlock{{Statements: []ir.Statement{
				ir.Assign(local(0), ir.Use(ir.Const(malformed))),
			}}},
		},
	}}
}

func TestAnalyzeProgramStatuses(t *testing.T) {
	a := New(Options{Workers: 2})

	reports, err := a.AnalyzeProgram(context.Background(), testProgram())
	require.NoError(t, err)
	require.Len(t, reports, 5)

	want := []types.Status{
		types.StatusOK,
		types.StatusPartial,
		types.StatusNotImplemented,
		types.StatusIneligible,
		types.StatusError,
	}
	for i, r := range reports {
		assert.Equal(t, want[i], r.Status, "report %d (%s): %s", i, r.Name, r.Error)
	}

	ok := reports[0]
	assert.Equal(t, "ok", ok.Name)
	assert.Equal(t, "fn(i[-∞, +∞]) -> i[-∞, +∞]", ok.Summary)
	assert.Equal(t, []string{"i[-∞, +∞]"}, ok.Arguments)
	assert.Equal(t, []types.LocalValue{
		{Local: "_0", Value: "i[-∞, +∞]"},
		{Local: "_1", Value: "i[-∞, +∞]"},
	}, ok.State)

	partial := reports[1]
	require.Len(t, partial.Failures, 1)
	assert.Equal(t, "not_implemented", partial.Failures[0].Kind)
	assert.Equal(t, 0, partial.Failures[0].Block)
	assert.Contains(t, partial.Failures[0].Text, "mul")

	assert.Contains(t, reports[4].Error, "panic")
}

func TestAnalyzeFunctionMetrics(t *testing.T) {
	a := New(Options{})
	prog := testProgram()

	okBefore := testutil.ToFloat64(functionsAnalyzed.WithLabelValues("ok"))
	partialBefore := testutil.ToFloat64(functionsAnalyzed.WithLabelValues("partial"))
	stmtBefore := testutil.ToFloat64(statementErrors.WithLabelValues("not_implemented"))

	a.AnalyzeFunction(context.Background(), &prog.Functions[0])
	a.AnalyzeFunction(context.Background(), &prog.Functions[1])

	assert.Equal(t, okBefore+1, testutil.ToFloat64(functionsAnalyzed.WithLabelValues("ok")))
	assert.Equal(t, partialBefore+1, testutil.ToFloat64(functionsAnalyzed.WithLabelValues("partial")))
	assert.Equal(t, stmtBefore+1, testutil.ToFloat64(statementErrors.WithLabelValues("not_implemented")))
}

func TestAnalyzeFunctionCache(t *testing.T) {
	c := cache.New(cache.Options{MaxSize: 10})
	a := New(Options{Cache: c})
	body := identity("f")

	first := a.AnalyzeFunction(context.Background(), &body)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, c.Len())

	second := a.AnalyzeFunction(context.Background(), &body)
	assert.True(t, second.Cached)
	assert.Equal(t, first.State, second.State)
	assert.Equal(t, first.Summary, second.Summary)

	// Changing the body changes the fingerprint.
	body.Blocks[0].Statements = append(body.Blocks[0].Statements, ir.Deinit(local(1)))
	third := a.AnalyzeFunction(context.Background(), &body)
	assert.False(t, third.Cached)
	assert.Equal(t, 2, c.Len())
}

func TestFingerprintDependsOnOptions(t *testing.T) {
	body := identity("f")
	k1, err := Fingerprint(&body, false)
	require.NoError(t, err)
	k2, err := Fingerprint(&body, true)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)

	again, err := Fingerprint(&body, false)
	require.NoError(t, err)
	assert.Equal(t, k1, again)
}

func TestErrorReportsAreNotCached(t *testing.T) {
	c := cache.New(cache.Options{MaxSize: 10})
	a := New(Options{Cache: c})
	prog := testProgram()

	r := a.AnalyzeFunction(context.Background(), &prog.Functions[4])
	assert.Equal(t, types.StatusError, r.Status)
	assert.Equal(t, 0, c.Len())
}

func TestAnalyzeProgramCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := New(Options{Workers: 4}).AnalyzeProgram(ctx, testProgram())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	require.Len(t, reports, 5)
	for _, r := range reports {
		assert.Equal(t, types.StatusError, r.Status)
		assert.NotEmpty(t, r.Name)
	}
}

func TestAnalyzeProgramKeepsOrder(t *testing.T) {
	prog := &ir.Program{}
	for i := 0; i < 64; i++ {
		prog.Functions = append(prog.Functions, identity(fmt.Sprintf("f%02d", i)))
	}

	reports, err := New(Options{Workers: 8}).AnalyzeProgram(context.Background(), prog)
	require.NoError(t, err)
	require.Len(t, reports, 64)
	for i, r := range reports {
		assert.Equal(t, fmt.Sprintf("f%02d", i), r.Name)
		assert.Equal(t, types.StatusOK, r.Status)
	}

	counts := types.Counts(reports)
	assert.Equal(t, 64, counts[types.StatusOK])
}

func TestAnalyzeTestdata(t *testing.T) {
	a := New(Options{Workers: 4, FoldNumericConstants: true})

	analyze := func(t *testing.T, prog *ir.Program) map[string]types.FunctionReport {
		t.Helper()
		reports, err := a.AnalyzeProgram(context.Background(), prog)
		require.NoError(t, err)
		out := make(map[string]types.FunctionReport, len(reports))
		for _, r := range reports {
			out[r.Name] = r
		}
		return out
	}

	t.Run("ir", func(t *testing.T) {
		prog, err := ir.Load("../../testdata/ir/checked_add.air.yaml")
		require.NoError(t, err)
		more, err := ir.Load("../../testdata/ir/compare.air.yaml")
		require.NoError(t, err)
		prog.Functions = append(prog.Functions, more.Functions...)

		reports := analyze(t, prog)
		assert.Equal(t, types.StatusOK, reports["add_one"].Status)
		assert.Equal(t, types.StatusOK, reports["lt"].Status)
		assert.Contains(t, reports["lt"].State, types.LocalValue{Local: "_1", Value: "uninit"})
		assert.Equal(t, types.StatusPartial, reports["uninit_byte"].Status)
	})

	t.Run("go", func(t *testing.T) {
		prog, err := lower.LowerFile("../../testdata/go/arith.go")
		require.NoError(t, err)

		reports := analyze(t, prog)
		want := map[string]types.Status{
			"inc":          types.StatusOK,
			"isSmall":      types.StatusPartial,
			"seven":        types.StatusOK,
			"below":        types.StatusOK,
			"clamp":        types.StatusPartial,
			"divmod":       types.StatusPartial,
			"scale":        types.StatusNotImplemented,
			"counter.bump": types.StatusIneligible,
		}
		require.Len(t, reports, len(want))
		for name, status := range want {
			assert.Equal(t, status, reports[name].Status, "%s: %s", name, reports[name].Error)
		}
		assert.Contains(t, reports["seven"].State, types.LocalValue{Local: "_1", Value: "i[7, 7]"})
	})
}
