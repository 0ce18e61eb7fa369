package lower

import (
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/go-absint/pkg/ir"
)

var comparisons = map[string]ir.BinOp{
	"==": ir.OpEq,
	"!=": ir.OpNe,
	"<":  ir.OpLt,
	"<=": ir.OpLe,
	// > and >= are lowered as < and <= with swapped operands.
	">":  ir.OpLt,
	">=": ir.OpLe,
}

var arithmetic = map[string]ir.BinOp{
	"-":  ir.OpSub,
	"*":  ir.OpMul,
	"/":  ir.OpDiv,
	"%":  ir.OpRem,
	"&":  ir.OpBitAnd,
	"|":  ir.OpBitOr,
	"^":  ir.OpBitXor,
	"<<": ir.OpShl,
	">>": ir.OpShr,
}

func isShift(op string) bool { return op == "<<" || op == ">>" }

func (b *builder) lookup(node *sitter.Node) (ir.Local, error) {
	node = unparen(node)
	if node.Type() != "identifier" {
		return 0, fmt.Errorf("%w: assignment to %s", errUnsupported, node.Type())
	}
	l, ok := b.names[b.text(node)]
	if !ok {
		return 0, fmt.Errorf("%w: unknown name %q", errUnsupported, b.text(node))
	}
	return l, nil
}

// lowerRvalue lowers expr as the right-hand side of an assignment. hint is the type an
// untyped constant should take.
func (b *builder) lowerRvalue(expr *sitter.Node, hint *ir.Type) (ir.Rvalue, ir.Type, error) {
	expr = unparen(expr)
	if expr.Type() == "binary_expression" {
		return b.lowerBinary(expr, hint)
	}
	op, ty, err := b.lowerOperand(expr, hint)
	if err != nil {
		return ir.Rvalue{}, ir.Type{}, err
	}
	return ir.Use(op), ty, nil
}

// lowerOperand lowers expr to an operand, spilling compound expressions into temporaries.
func (b *builder) lowerOperand(expr *sitter.Node, hint *ir.Type) (ir.Operand, ir.Type, error) {
	expr = unparen(expr)
	switch expr.Type() {
	case "identifier":
		l, err := b.lookup(expr)
		if err != nil {
			return ir.Operand{}, ir.Type{}, err
		}
		return ir.Copy(ir.LocalPlace(l)), b.body.Locals[l].Ty, nil
	case "true", "false":
		return ir.Const(ir.BoolConst(expr.Type() == "true")), ir.Bool(), nil
	case "int_literal":
		return b.intLiteral(expr, hint, false)
	case "unary_expression":
		operator := strings.TrimSpace(b.text(expr.ChildByFieldName("operator")))
		operand := unparen(expr.ChildByFieldName("operand"))
		switch {
		case operator == "-" && operand != nil && operand.Type() == "int_literal":
			return b.intLiteral(operand, hint, true)
		case operator == "+" && operand != nil:
			return b.lowerOperand(operand, hint)
		}
	case "binary_expression":
		rv, ty, err := b.lowerBinary(expr, hint)
		if err != nil {
			return ir.Operand{}, ir.Type{}, err
		}
		tmp := b.newLocal("", ty)
		b.emit(ir.Assign(ir.LocalPlace(tmp), rv))
		return ir.Copy(ir.LocalPlace(tmp)), ty, nil
	}
	return ir.Operand{}, ir.Type{}, fmt.Errorf("%w: %s", errUnsupported, expr.Type())
}

// intLiteral encodes an integer literal as a constant of the hinted integer type, or
// int when there is none.
func (b *builder) intLiteral(node *sitter.Node, hint *ir.Type, negate bool) (ir.Operand, ir.Type, error) {
	ty := ir.Int(64)
	if hint != nil && isInteger(*hint) {
		ty = *hint
	}
	text := b.text(node)
	mag, err := strconv.ParseUint(text, 0, 64)
	if err != nil {
		return ir.Operand{}, ir.Type{}, fmt.Errorf("%w: literal %s", errUnsupported, text)
	}
	if !fits(mag, negate, ty) {
		return ir.Operand{}, ir.Type{}, fmt.Errorf("%w: literal %s overflows %s", errUnsupported, text, ty)
	}
	v := mag
	if negate {
		v = -mag
	}
	return ir.Const(ir.IntConst(ty, v)), ty, nil
}

// fits reports whether the literal with magnitude mag is representable in ty. Signed
// literals are limited to the int64 range.
func fits(mag uint64, negative bool, ty ir.Type) bool {
	bits := ty.Bits
	if ty.IsUnsigned() {
		if negative {
			return mag == 0
		}
		return bits >= 64 || mag < 1<<uint(bits)
	}
	if bits > 64 {
		bits = 64
	}
	limit := uint64(1) << uint(bits-1)
	if negative {
		return mag <= limit
	}
	return mag < limit
}

func (b *builder) lowerBinary(expr *sitter.Node, hint *ir.Type) (ir.Rvalue, ir.Type, error) {
	operator := strings.TrimSpace(b.text(expr.ChildByFieldName("operator")))
	left, right := expr.ChildByFieldName("left"), expr.ChildByFieldName("right")
	if left == nil || right == nil {
		return ir.Rvalue{}, ir.Type{}, fmt.Errorf("%w: incomplete expression", errUnsupported)
	}
	if operator == ">" || operator == ">=" {
		left, right = right, left
	}

	_, comparison := comparisons[operator]
	var operandHint *ir.Type
	if t, ok := b.exprType(left); ok {
		operandHint = &t
	} else if t, ok := b.exprType(right); ok && !isShift(operator) {
		operandHint = &t
	} else if !comparison {
		operandHint = hint
	}

	l, lt, err := b.lowerOperand(left, operandHint)
	if err != nil {
		return ir.Rvalue{}, ir.Type{}, err
	}
	rightHint := &lt
	if isShift(operator) {
		rightHint = nil
		if t, ok := b.exprType(right); ok {
			rightHint = &t
		}
	}
	r, rt, err := b.lowerOperand(right, rightHint)
	if err != nil {
		return ir.Rvalue{}, ir.Type{}, err
	}
	if !isShift(operator) && !lt.Equal(rt) {
		return ir.Rvalue{}, ir.Type{}, fmt.Errorf("%w: mismatched operands %s and %s", errUnsupported, lt, rt)
	}
	return b.binary(operator, l, r, lt)
}

// binary builds the rvalue for l operator r over operands of type ty. Addition is
// checked: the sum goes through a (ty, bool) temporary and the rvalue reads field 0.
func (b *builder) binary(operator string, l, r ir.Operand, ty ir.Type) (ir.Rvalue, ir.Type, error) {
	if operator == "+" {
		tmp := b.newLocal("", ir.Tuple(ty, ir.Bool()))
		b.emit(ir.Assign(ir.LocalPlace(tmp), ir.CheckedBinaryOp(ir.OpAdd, l, r)))
		return ir.Use(ir.Copy(ir.LocalPlace(tmp).Field(0))), ty, nil
	}
	if op, ok := comparisons[operator]; ok {
		return ir.BinaryOp(op, l, r), ir.Bool(), nil
	}
	if op, ok := arithmetic[operator]; ok {
		return ir.BinaryOp(op, l, r), ty, nil
	}
	return ir.Rvalue{}, ir.Type{}, fmt.Errorf("%w: operator %s", errUnsupported, operator)
}

// exprType infers the type of expr without lowering it. Untyped constants have none.
func (b *builder) exprType(expr *sitter.Node) (ir.Type, bool) {
	expr = unparen(expr)
	if expr == nil {
		return ir.Type{}, false
	}
	switch expr.Type() {
	case "identifier":
		if l, ok := b.names[b.text(expr)]; ok {
			return b.body.Locals[l].Ty, true
		}
	case "true", "false":
		return ir.Bool(), true
	case "unary_expression":
		if strings.TrimSpace(b.text(expr.ChildByFieldName("operator"))) == "!" {
			return ir.Bool(), true
		}
		return b.exprType(expr.ChildByFieldName("operand"))
	case "binary_expression":
		operator := strings.TrimSpace(b.text(expr.ChildByFieldName("operator")))
		if _, ok := comparisons[operator]; ok || operator == "&&" || operator == "||" {
			return ir.Bool(), true
		}
		if t, ok := b.exprType(expr.ChildByFieldName("left")); ok || isShift(operator) {
			return t, ok
		}
		return b.exprType(expr.ChildByFieldName("right"))
	}
	return ir.Type{}, false
}
