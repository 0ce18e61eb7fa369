package interp

import (
	"encoding/binary"

	"github.com/l3aro/go-absint/pkg/domain"
	"github.com/l3aro/go-absint/pkg/errs"
	"github.com/l3aro/go-absint/pkg/ir"
)

func (in *Interpreter) interpretStatement(stmt ir.Statement, state State) error {
	switch stmt.Kind {
	case ir.StmtAssign:
		if stmt.Rvalue == nil {
			return errs.New(errs.Interpreter, "assignment to %s has no rvalue", stmt.Place)
		}
		v, err := in.interpretRvalue(*stmt.Rvalue, state)
		if err != nil {
			return err
		}
		return storePlace(stmt.Place, v, state)
	case ir.StmtDeinit:
		return storePlace(stmt.Place, domain.Uninit(), state)
	default:
		return errs.New(errs.NotImplemented, "statement kind %q", stmt.Kind)
	}
}

func (in *Interpreter) interpretRvalue(rv ir.Rvalue, state State) (domain.Value, error) {
	switch rv.Kind {
	case ir.RvUse:
		if len(rv.Operands) != 1 {
			return domain.Value{}, errs.New(errs.Interpreter, "use takes 1 operand, got %d", len(rv.Operands))
		}
		return in.interpretOperand(rv.Operands[0], state)
	case ir.RvBinaryOp:
		return in.interpretBinOp(rv, state)
	case ir.RvCheckedBinaryOp:
		v, err := in.interpretBinOp(rv, state)
		if err != nil {
			return domain.Value{}, err
		}
		// Overflow is not predicted: the flag is always false.
		return domain.TupleValue(v, domain.BoolValue(domain.BoolFalse)), nil
	default:
		return domain.Value{}, errs.New(errs.NotImplemented, "rvalue kind %q", rv.Kind)
	}
}

func (in *Interpreter) interpretBinOp(rv ir.Rvalue, state State) (domain.Value, error) {
	if len(rv.Operands) != 2 {
		return domain.Value{}, errs.New(errs.Interpreter, "%s takes 2 operands, got %d", rv.Op, len(rv.Operands))
	}
	left, err := in.interpretOperand(rv.Operands[0], state)
	if err != nil {
		return domain.Value{}, err
	}
	right, err := in.interpretOperand(rv.Operands[1], state)
	if err != nil {
		return domain.Value{}, err
	}

	unsupported := func() (domain.Value, error) {
		return domain.Value{}, errs.New(errs.NotImplemented, "%s on %s and %s", rv.Op, left.Kind(), right.Kind())
	}

	switch rv.Op {
	case ir.OpAdd:
		if l, ok := left.AsInt(); ok {
			if r, ok := right.AsInt(); ok {
				return domain.IntValue(l.Add(r)), nil
			}
		}
		if l, ok := left.AsUint(); ok {
			if r, ok := right.AsUint(); ok {
				return domain.UintValue(l.Add(r)), nil
			}
		}
		return unsupported()
	case ir.OpEq:
		if l, ok := left.AsBool(); ok {
			if r, ok := right.AsBool(); ok {
				return domain.BoolValue(l.Equals(r)), nil
			}
		}
		if l, ok := left.AsInt(); ok {
			if r, ok := right.AsInt(); ok {
				return domain.BoolValue(l.Equals(r)), nil
			}
		}
		if l, ok := left.AsUint(); ok {
			if r, ok := right.AsUint(); ok {
				return domain.BoolValue(l.Equals(r)), nil
			}
		}
		return unsupported()
	case ir.OpLt:
		if l, ok := left.AsInt(); ok {
			if r, ok := right.AsInt(); ok {
				return domain.BoolValue(l.LessThan(r)), nil
			}
		}
		if l, ok := left.AsUint(); ok {
			if r, ok := right.AsUint(); ok {
				return domain.BoolValue(l.LessThan(r)), nil
			}
		}
		return unsupported()
	default:
		return unsupported()
	}
}

func (in *Interpreter) interpretOperand(op ir.Operand, state State) (domain.Value, error) {
	switch op.Kind {
	case ir.OperandCopy, ir.OperandMove:
		return loadPlace(op.Place, state)
	case ir.OperandConstant:
		if op.Constant == nil {
			return domain.Value{}, errs.New(errs.Interpreter, "constant operand without a value")
		}
		return in.interpretConstant(*op.Constant)
	default:
		return domain.Value{}, errs.New(errs.NotImplemented, "operand kind %q", op.Kind)
	}
}

func (in *Interpreter) interpretConstant(c ir.Constant) (domain.Value, error) {
	switch {
	case c.Ty.IsBool():
		return domain.BoolValue(domain.BoolFromConstant(c)), nil
	case in.opts.FoldNumericConstants && (c.Ty.IsSigned() || c.Ty.IsUnsigned()):
		return decodeIntConstant(c)
	default:
		return domain.Value{}, errs.New(errs.NotImplemented, "constant of type %s", c.Ty)
	}
}

// decodeIntConstant reads a little-endian integer allocation of 1, 2, 4, 8 or 16 bytes,
// sign-extending signed values, into a point interval.
func decodeIntConstant(c ir.Constant) (domain.Value, error) {
	size := len(c.Bytes)
	switch size {
	case 1, 2, 4, 8, 16:
	default:
		return domain.Value{}, errs.New(errs.NotImplemented, "integer constant of %d bytes", size)
	}
	if want := c.Ty.Size(); want != size {
		return domain.Value{}, errs.New(errs.NotImplemented, "constant of type %s has %d bytes", c.Ty, size)
	}

	var buf [16]byte
	for i, b := range c.Bytes {
		if b == nil {
			return domain.Value{}, errs.New(errs.NotImplemented, "constant %s has uninitialised bytes", c)
		}
		buf[i] = *b
	}
	if c.Ty.IsSigned() && buf[size-1]&0x80 != 0 {
		for i := size; i < len(buf); i++ {
			buf[i] = 0xff
		}
	}

	lo := binary.LittleEndian.Uint64(buf[:8])
	hi := binary.LittleEndian.Uint64(buf[8:])
	if c.Ty.IsSigned() {
		return domain.IntValue(domain.Point(domain.Int128FromParts(lo, hi))), nil
	}
	return domain.UintValue(domain.Point(domain.Uint128FromParts(lo, hi))), nil
}

// loadPlace returns a copy of the value at p, following any field projections.
func loadPlace(p ir.Place, state State) (domain.Value, error) {
	v, ok := state[p.Local]
	if !ok {
		return domain.Value{}, errs.New(errs.Interpreter, "read of unset local %s", p.Local)
	}
	for _, field := range p.Projection {
		if v.Kind() != domain.ValueTuple {
			return domain.Value{}, errs.New(errs.NotImplemented, "field projection on %s", v.Kind())
		}
		elem, ok := v.Get(field)
		if !ok {
			return domain.Value{}, errs.New(errs.IndexOutOfRange, "field %d of %s", field, p)
		}
		v = elem
	}
	return v.Clone(), nil
}

// storePlace writes v at p. A whole local is overwritten; a projected place must name
// an element of a tuple already held by the local.
func storePlace(p ir.Place, v domain.Value, state State) error {
	if len(p.Projection) == 0 {
		state[p.Local] = v
		return nil
	}

	root, ok := state[p.Local]
	if !ok {
		return errs.New(errs.Interpreter, "write into unset local %s", p.Local)
	}
	root = root.Clone()
	target := &root
	for _, field := range p.Projection[:len(p.Projection)-1] {
		next := target.GetMut(field)
		if next == nil {
			if target.Kind() != domain.ValueTuple {
				return errs.New(errs.NotImplemented, "field projection on %s", target.Kind())
			}
			return errs.New(errs.IndexOutOfRange, "field %d of %s", field, p)
		}
		target = next
	}
	if err := target.Set(p.Projection[len(p.Projection)-1], v); err != nil {
		return err
	}
	state[p.Local] = root
	return nil
}
