// Package lower translates Go source into IR bodies. It covers the straight-line integer
// and boolean subset of Go: parameters, results, short variable and var declarations,
// assignments, increments, returns, literals and binary operators. Anything else is kept
// as an unsupported statement carrying its source text, so the interpreter reports it
// instead of the frontend silently dropping it.
package lower

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/l3aro/go-absint/pkg/ir"
)

// ErrSyntax is returned for sources tree-sitter cannot parse cleanly.
var ErrSyntax = errors.New("syntax error")

// errUnsupported marks a construct outside the lowered subset.
var errUnsupported = errors.New("unsupported construct")

// LowerFile parses the Go file at path and lowers every top-level function and method.
func LowerFile(path string) (*ir.Program, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	prog, err := LowerSource(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// LowerSource parses src as a Go file and lowers every top-level function and method,
// in source order.
func LowerSource(src []byte) (*ir.Program, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%w near line %d", ErrSyntax, firstErrorLine(root))
	}

	prog := &ir.Program{}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "function_declaration", "method_declaration":
			body := lowerFunction(src, child)
			if err := body.Validate(); err != nil {
				return nil, fmt.Errorf("lowering %s: %w", body.Name, err)
			}
			prog.Functions = append(prog.Functions, *body)
		}
	}
	return prog, nil
}

func firstErrorLine(node *sitter.Node) int {
	if node.Type() == "ERROR" || node.IsMissing() {
		return int(node.StartPoint().Row) + 1
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.HasError() {
			return firstErrorLine(child)
		}
	}
	return int(node.StartPoint().Row) + 1
}

// builder accumulates the body of one function.
type builder struct {
	src     []byte
	body    *ir.Body
	names   map[string]ir.Local
	current []ir.Statement
	pending []ir.Statement
	// rebinds records the binding each bind replaced, so a failed statement can undo them.
	rebinds []rebind
}

type rebind struct {
	name  string
	prev  ir.Local
	bound bool
}

func lowerFunction(src []byte, fn *sitter.Node) *ir.Body {
	b := &builder{src: src, body: &ir.Body{}, names: make(map[string]ir.Local)}

	name := b.text(fn.ChildByFieldName("name"))
	var params []param
	if fn.Type() == "method_declaration" {
		recv := b.paramList(fn.ChildByFieldName("receiver"))
		if len(recv) > 0 {
			name = receiverType(recv[0].typeText) + "." + name
		}
		params = append(params, recv...)
	}
	params = append(params, b.paramList(fn.ChildByFieldName("parameters"))...)
	b.body.Name = name

	ret, retName := b.result(fn.ChildByFieldName("result"))
	b.newLocal("", ret)
	if retName != "" && retName != "_" {
		b.names[retName] = ir.ReturnLocal
	}
	for _, p := range params {
		l := b.newLocal(p.name, p.ty)
		b.bind(p.name, l)
	}
	b.body.ArgCount = len(params)

	if block := fn.ChildByFieldName("body"); block != nil {
		b.lowerBlock(block)
	}
	b.endBlock()
	return b.body
}

// result returns the return type and, for a single named result, its name.
func (b *builder) result(node *sitter.Node) (ir.Type, string) {
	if node == nil {
		return ir.Tuple(), ""
	}
	if node.Type() != "parameter_list" {
		return b.mapType(node), ""
	}
	results := b.paramList(node)
	switch len(results) {
	case 0:
		return ir.Tuple(), ""
	case 1:
		return results[0].ty, results[0].name
	default:
		fields := make([]ir.Type, len(results))
		for i, r := range results {
			fields[i] = r.ty
		}
		return ir.Tuple(fields...), ""
	}
}

type param struct {
	name     string
	ty       ir.Type
	typeText string
}

func (b *builder) paramList(list *sitter.Node) []param {
	if list == nil {
		return nil
	}
	var out []param
	for i := 0; i < int(list.NamedChildCount()); i++ {
		decl := list.NamedChild(i)
		if decl == nil {
			continue
		}
		switch decl.Type() {
		case "parameter_declaration", "variadic_parameter_declaration":
		default:
			continue
		}

		tyNode := decl.ChildByFieldName("type")
		ty := b.mapType(tyNode)
		if decl.Type() == "variadic_parameter_declaration" {
			ty = ir.Named(ir.KindAdt, "..."+b.text(tyNode))
		}

		named := false
		for j := 0; j < int(decl.NamedChildCount()); j++ {
			c := decl.NamedChild(j)
			if c != nil && c.Type() == "identifier" {
				out = append(out, param{name: b.text(c), ty: ty, typeText: b.text(tyNode)})
				named = true
			}
		}
		if !named {
			out = append(out, param{ty: ty, typeText: b.text(tyNode)})
		}
	}
	return out
}

// receiverType strips pointer and type-argument syntax from a receiver type.
func receiverType(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "*")
	if i := strings.IndexByte(s, '['); i >= 0 {
		s = s[:i]
	}
	return s
}

func (b *builder) newLocal(name string, ty ir.Type) ir.Local {
	b.body.Locals = append(b.body.Locals, ir.LocalDecl{Name: name, Ty: ty})
	return ir.Local(len(b.body.Locals) - 1)
}

func (b *builder) bind(name string, l ir.Local) {
	if name == "" || name == "_" {
		return
	}
	prev, bound := b.names[name]
	b.rebinds = append(b.rebinds, rebind{name: name, prev: prev, bound: bound})
	b.names[name] = l
}

func (b *builder) emit(s ir.Statement) {
	b.pending = append(b.pending, s)
}

// endBlock closes the current basic block if it has statements.
func (b *builder) endBlock() {
	if len(b.current) == 0 {
		return
	}
	b.body.Blocks = append(b.body.Blocks, ir.BasicBlock{Statements: b.current})
	b.current = nil
}

func (b *builder) unsupported(node *sitter.Node) {
	b.current = append(b.current, ir.Statement{Kind: ir.StmtUnsupported, Text: b.snippet(node)})
}

func (b *builder) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start >= uint32(len(b.src)) || end > uint32(len(b.src)) {
		return ""
	}
	return string(b.src[start:end])
}

// snippet renders node on one line, shortened for reports.
func (b *builder) snippet(node *sitter.Node) string {
	s := strings.Join(strings.Fields(b.text(node)), " ")
	const max = 120
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

// unparen strips redundant parentheses.
func unparen(node *sitter.Node) *sitter.Node {
	for node != nil && node.Type() == "parenthesized_expression" && node.NamedChildCount() > 0 {
		node = node.NamedChild(0)
	}
	return node
}

func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if c := node.NamedChild(i); c != nil && c.Type() != "comment" {
			out = append(out, c)
		}
	}
	return out
}
