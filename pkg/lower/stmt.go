package lower

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/go-absint/pkg/ir"
)

// controlFlow lists statements that leave straight-line code. Each one closes the
// current block and is kept as an unsupported statement in a block of its own.
var controlFlow = map[string]bool{
	"if_statement":                true,
	"for_statement":               true,
	"expression_switch_statement": true,
	"type_switch_statement":       true,
	"select_statement":            true,
	"labeled_statement":           true,
	"goto_statement":              true,
	"break_statement":             true,
	"continue_statement":          true,
	"fallthrough_statement":       true,
	"block":                       true,
	"defer_statement":             true,
	"go_statement":                true,
	"expression_statement":        true,
	"send_statement":              true,
}

// statements flattens the statement list of a block.
func statements(block *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range namedChildren(block) {
		if c.Type() == "statement_list" {
			out = append(out, statements(c)...)
			continue
		}
		out = append(out, c)
	}
	return out
}

func (b *builder) lowerBlock(block *sitter.Node) {
	for _, stmt := range statements(block) {
		switch {
		case stmt.Type() == "empty_statement":
			continue
		case stmt.Type() == "return_statement":
			b.statement(stmt, b.lowerReturn)
			return
		case controlFlow[stmt.Type()]:
			b.endBlock()
			b.unsupported(stmt)
			b.endBlock()
		default:
			b.statement(stmt, b.lowerSimple)
		}
	}
}

// statement lowers one source statement. On failure the locals it declared and the
// names it bound are dropped and the statement is kept as unsupported.
func (b *builder) statement(node *sitter.Node, lower func(*sitter.Node) error) {
	mark := len(b.body.Locals)
	b.pending = b.pending[:0]
	b.rebinds = b.rebinds[:0]
	if err := lower(node); err != nil {
		for i := len(b.rebinds) - 1; i >= 0; i-- {
			r := b.rebinds[i]
			if r.bound {
				b.names[r.name] = r.prev
			} else {
				delete(b.names, r.name)
			}
		}
		b.body.Locals = b.body.Locals[:mark]
		b.pending = b.pending[:0]
		b.unsupported(node)
		return
	}
	b.current = append(b.current, b.pending...)
}

func (b *builder) lowerSimple(node *sitter.Node) error {
	switch node.Type() {
	case "short_var_declaration":
		return b.lowerShortVar(node)
	case "assignment_statement":
		return b.lowerAssignment(node)
	case "inc_statement", "dec_statement":
		return b.lowerIncDec(node)
	case "var_declaration", "const_declaration":
		for _, spec := range specs(node) {
			if err := b.lowerSpec(spec); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", errUnsupported, node.Type())
	}
}

func (b *builder) lowerShortVar(node *sitter.Node) error {
	lhs := namedChildren(node.ChildByFieldName("left"))
	rhs := namedChildren(node.ChildByFieldName("right"))
	if len(lhs) != 1 || len(rhs) != 1 || lhs[0].Type() != "identifier" {
		return fmt.Errorf("%w: multiple assignment", errUnsupported)
	}
	rv, ty, err := b.lowerRvalue(rhs[0], nil)
	if err != nil {
		return err
	}
	name := b.text(lhs[0])
	l := b.newLocal(name, ty)
	b.emit(ir.Assign(ir.LocalPlace(l), rv))
	b.bind(name, l)
	return nil
}

func (b *builder) lowerAssignment(node *sitter.Node) error {
	lhs := namedChildren(node.ChildByFieldName("left"))
	rhs := namedChildren(node.ChildByFieldName("right"))
	if len(lhs) != 1 || len(rhs) != 1 {
		return fmt.Errorf("%w: multiple assignment", errUnsupported)
	}
	op := strings.TrimSpace(b.text(node.ChildByFieldName("operator")))

	if b.text(lhs[0]) == "_" && op == "=" {
		_, _, err := b.lowerRvalue(rhs[0], nil)
		return err
	}
	l, err := b.lookup(lhs[0])
	if err != nil {
		return err
	}
	ty := b.body.Locals[l].Ty

	var rv ir.Rvalue
	if op == "=" {
		rv, _, err = b.lowerRvalue(rhs[0], &ty)
	} else {
		var right ir.Operand
		right, _, err = b.lowerOperand(rhs[0], &ty)
		if err == nil {
			rv, _, err = b.binary(strings.TrimSuffix(op, "="), ir.Copy(ir.LocalPlace(l)), right, ty)
		}
	}
	if err != nil {
		return err
	}
	b.emit(ir.Assign(ir.LocalPlace(l), rv))
	return nil
}

func (b *builder) lowerIncDec(node *sitter.Node) error {
	target := namedChildren(node)
	if len(target) != 1 {
		return fmt.Errorf("%w: %s", errUnsupported, node.Type())
	}
	l, err := b.lookup(target[0])
	if err != nil {
		return err
	}
	ty := b.body.Locals[l].Ty
	if !isInteger(ty) {
		return fmt.Errorf("%w: increment of %s", errUnsupported, ty)
	}
	op := "+"
	if node.Type() == "dec_statement" {
		op = "-"
	}
	rv, _, err := b.binary(op, ir.Copy(ir.LocalPlace(l)), ir.Const(ir.IntConst(ty, 1)), ty)
	if err != nil {
		return err
	}
	b.emit(ir.Assign(ir.LocalPlace(l), rv))
	return nil
}

// specs collects the var or const specs of a declaration, grouped or not.
func specs(node *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range namedChildren(node) {
		switch c.Type() {
		case "var_spec", "const_spec":
			out = append(out, c)
		case "var_spec_list", "const_spec_list":
			out = append(out, specs(c)...)
		}
	}
	return out
}

func (b *builder) lowerSpec(spec *sitter.Node) error {
	var names []*sitter.Node
	for _, c := range namedChildren(spec) {
		if c.Type() == "identifier" {
			names = append(names, c)
		}
	}
	if len(names) != 1 {
		return fmt.Errorf("%w: multiple names in declaration", errUnsupported)
	}
	name := b.text(names[0])

	var declared *ir.Type
	if tyNode := spec.ChildByFieldName("type"); tyNode != nil {
		t := b.mapType(tyNode)
		declared = &t
	}

	var (
		rv  ir.Rvalue
		ty  ir.Type
		err error
	)
	values := namedChildren(spec.ChildByFieldName("value"))
	switch {
	case len(values) == 1:
		rv, ty, err = b.lowerRvalue(values[0], declared)
		if declared != nil {
			ty = *declared
		}
	case len(values) == 0 && declared != nil:
		ty = *declared
		rv, err = zeroValue(ty)
	default:
		err = fmt.Errorf("%w: declaration of %s", errUnsupported, name)
	}
	if err != nil {
		return err
	}

	l := b.newLocal(name, ty)
	b.emit(ir.Assign(ir.LocalPlace(l), rv))
	b.bind(name, l)
	return nil
}

func zeroValue(ty ir.Type) (ir.Rvalue, error) {
	switch {
	case ty.IsBool():
		return ir.Use(ir.Const(ir.BoolConst(false))), nil
	case isInteger(ty):
		return ir.Use(ir.Const(ir.IntConst(ty, 0))), nil
	default:
		return ir.Rvalue{}, fmt.Errorf("%w: zero value of %s", errUnsupported, ty)
	}
}

// lowerReturn assigns the returned expressions to the return local. Multiple results
// become an aggregate.
func (b *builder) lowerReturn(node *sitter.Node) error {
	var exprs []*sitter.Node
	for _, c := range namedChildren(node) {
		if c.Type() == "expression_list" {
			exprs = append(exprs, namedChildren(c)...)
		} else {
			exprs = append(exprs, c)
		}
	}
	if len(exprs) == 0 {
		return nil
	}

	ret := b.body.ReturnType()
	fields, isTuple := ret.TupleFields()
	if !isTuple || len(fields) < 2 {
		if len(exprs) != 1 {
			return fmt.Errorf("%w: return arity", errUnsupported)
		}
		rv, _, err := b.lowerRvalue(exprs[0], &ret)
		if err != nil {
			return err
		}
		b.emit(ir.Assign(ir.LocalPlace(ir.ReturnLocal), rv))
		return nil
	}

	if len(exprs) != len(fields) {
		return fmt.Errorf("%w: return arity", errUnsupported)
	}
	ops := make([]ir.Operand, len(exprs))
	for i, e := range exprs {
		op, _, err := b.lowerOperand(e, &fields[i])
		if err != nil {
			return err
		}
		ops[i] = op
	}
	b.emit(ir.Statement{
		Kind:   ir.StmtAssign,
		Place:  ir.LocalPlace(ir.ReturnLocal),
		Rvalue: &ir.Rvalue{Kind: ir.RvAggregate, Operands: ops},
	})
	return nil
}
