package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Local identifies a local variable slot. Local 0 is the return place and locals
// 1..ArgCount hold the arguments.
type Local int

// ReturnLocal is the slot holding a function's return value.
const ReturnLocal Local = 0

func (l Local) String() string { return "_" + strconv.Itoa(int(l)) }

// LocalDecl declares a local's type. Name is informational.
type LocalDecl struct {
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	Ty   Type   `yaml:"ty" json:"ty"`
}

// Place names a storage location: a local plus an optional path of tuple field
// indices, e.g. _2.0.
type Place struct {
	Local      Local `yaml:"local" json:"local"`
	Projection []int `yaml:"projection,omitempty" json:"projection,omitempty"`
}

// LocalPlace returns a place for a whole local.
func LocalPlace(l Local) Place { return Place{Local: l} }

// Field returns a place for field i of p.
func (p Place) Field(i int) Place {
	proj := make([]int, len(p.Projection), len(p.Projection)+1)
	copy(proj, p.Projection)
	return Place{Local: p.Local, Projection: append(proj, i)}
}

func (p Place) String() string {
	var sb strings.Builder
	sb.WriteString(p.Local.String())
	for _, f := range p.Projection {
		sb.WriteString(".")
		sb.WriteString(strconv.Itoa(f))
	}
	return sb.String()
}

// StatementKind tags a statement.
type StatementKind string

const (
	StmtAssign      StatementKind = "assign"
	StmtDeinit      StatementKind = "deinit"
	StmtStorageLive StatementKind = "storage_live"
	StmtStorageDead StatementKind = "storage_dead"
	StmtNop         StatementKind = "nop"
	StmtUnsupported StatementKind = "unsupported" // Frontend could not lower; Text holds the source
)

// Statement is one straight-line step of a basic block.
type Statement struct {
	Kind   StatementKind `yaml:"kind" json:"kind"`
	Place  Place         `yaml:"place" json:"place"`
	Rvalue *Rvalue       `yaml:"rvalue,omitempty" json:"rvalue,omitempty"`
	Text   string        `yaml:"text,omitempty" json:"text,omitempty"`
}

// Assign builds an assignment statement.
func Assign(p Place, rv Rvalue) Statement {
	return Statement{Kind: StmtAssign, Place: p, Rvalue: &rv}
}

// Deinit builds a deinitialisation statement.
func Deinit(p Place) Statement {
	return Statement{Kind: StmtDeinit, Place: p}
}

func (s Statement) String() string {
	switch s.Kind {
	case StmtAssign:
		if s.Rvalue == nil {
			return s.Place.String() + " = <missing>"
		}
		return s.Place.String() + " = " + s.Rvalue.String()
	case StmtDeinit:
		return "Deinit(" + s.Place.String() + ")"
	case StmtUnsupported:
		return "unsupported: " + s.Text
	default:
		return string(s.Kind) + "(" + s.Place.String() + ")"
	}
}

// RvalueKind tags an rvalue.
type RvalueKind string

const (
	RvUse             RvalueKind = "use"
	RvBinaryOp        RvalueKind = "binary_op"
	RvCheckedBinaryOp RvalueKind = "checked_binary_op"
	RvUnaryOp         RvalueKind = "unary_op"
	RvRef             RvalueKind = "ref"
	RvCast            RvalueKind = "cast"
	RvAggregate       RvalueKind = "aggregate"
)

// BinOp is a binary operator.
type BinOp string

const (
	OpAdd    BinOp = "add"
	OpSub    BinOp = "sub"
	OpMul    BinOp = "mul"
	OpDiv    BinOp = "div"
	OpRem    BinOp = "rem"
	OpBitAnd BinOp = "bit_and"
	OpBitOr  BinOp = "bit_or"
	OpBitXor BinOp = "bit_xor"
	OpShl    BinOp = "shl"
	OpShr    BinOp = "shr"
	OpEq     BinOp = "eq"
	OpNe     BinOp = "ne"
	OpLt     BinOp = "lt"
	OpLe     BinOp = "le"
	OpGt     BinOp = "gt"
	OpGe     BinOp = "ge"
)

// Rvalue computes a value. Use carries one operand, the binary forms two.
type Rvalue struct {
	Kind     RvalueKind `yaml:"kind" json:"kind"`
	Op       BinOp      `yaml:"op,omitempty" json:"op,omitempty"`
	Operands []Operand  `yaml:"operands" json:"operands"`
}

// Use builds Use(op).
func Use(op Operand) Rvalue {
	return Rvalue{Kind: RvUse, Operands: []Operand{op}}
}

// BinaryOp builds BinaryOp(op, l, r).
func BinaryOp(op BinOp, l, r Operand) Rvalue {
	return Rvalue{Kind: RvBinaryOp, Op: op, Operands: []Operand{l, r}}
}

// CheckedBinaryOp builds CheckedBinaryOp(op, l, r).
func CheckedBinaryOp(op BinOp, l, r Operand) Rvalue {
	return Rvalue{Kind: RvCheckedBinaryOp, Op: op, Operands: []Operand{l, r}}
}

func (r Rvalue) String() string {
	ops := make([]string, len(r.Operands))
	for i, o := range r.Operands {
		ops[i] = o.String()
	}
	switch r.Kind {
	case RvUse:
		return strings.Join(ops, ", ")
	case RvBinaryOp, RvCheckedBinaryOp:
		name := string(r.Op)
		if r.Kind == RvCheckedBinaryOp {
			name = "checked_" + name
		}
		return name + "(" + strings.Join(ops, ", ") + ")"
	default:
		return string(r.Kind) + "(" + strings.Join(ops, ", ") + ")"
	}
}

// OperandKind tags an operand.
type OperandKind string

const (
	OperandCopy     OperandKind = "copy"
	OperandMove     OperandKind = "move"
	OperandConstant OperandKind = "constant"
)

// Operand reads a place or a constant.
type Operand struct {
	Kind     OperandKind `yaml:"kind" json:"kind"`
	Place    Place       `yaml:"place,omitempty" json:"place,omitempty"`
	Constant *Constant   `yaml:"constant,omitempty" json:"constant,omitempty"`
}

// Copy builds Copy(p).
func Copy(p Place) Operand { return Operand{Kind: OperandCopy, Place: p} }

// Move builds Move(p).
func Move(p Place) Operand { return Operand{Kind: OperandMove, Place: p} }

// Const builds a constant operand.
func Const(c Constant) Operand { return Operand{Kind: OperandConstant, Constant: &c} }

func (o Operand) String() string {
	switch o.Kind {
	case OperandCopy:
		return "copy " + o.Place.String()
	case OperandMove:
		return "move " + o.Place.String()
	case OperandConstant:
		if o.Constant == nil {
			return "const <missing>"
		}
		return "const " + o.Constant.String()
	default:
		return string(o.Kind)
	}
}

// Constant is a typed compile-time constant and its little-endian allocation bytes.
// A nil entry in Bytes is an uninitialised byte.
type Constant struct {
	Ty    Type    `yaml:"ty" json:"ty"`
	Bytes []*byte `yaml:"bytes" json:"bytes"`
}

// BoolConst encodes a boolean constant.
func BoolConst(v bool) Constant {
	var b byte
	if v {
		b = 1
	}
	return Constant{Ty: Bool(), Bytes: []*byte{&b}}
}

// IntConst encodes v as a little-endian constant of type ty, truncated to its width.
func IntConst(ty Type, v uint64) Constant {
	size := ty.Size()
	bytes := make([]*byte, size)
	for i := 0; i < size; i++ {
		var b byte
		if i < 8 {
			b = byte(v >> (8 * i))
		} else if int64(v) < 0 && ty.IsSigned() {
			b = 0xff
		}
		bytes[i] = &b
	}
	return Constant{Ty: ty, Bytes: bytes}
}

func (c Constant) String() string {
	parts := make([]string, len(c.Bytes))
	for i, b := range c.Bytes {
		if b == nil {
			parts[i] = "__"
		} else {
			parts[i] = fmt.Sprintf("%02x", *b)
		}
	}
	return c.Ty.String() + "[" + strings.Join(parts, " ") + "]"
}

// BasicBlock is a straight-line sequence of statements.
type BasicBlock struct {
	Statements []Statement `yaml:"statements" json:"statements"`
}

// Body is a function body: its locals and its blocks in declaration order.
type Body struct {
	Name     string       `yaml:"name" json:"name"`
	Locals   []LocalDecl  `yaml:"locals" json:"locals"`
	ArgCount int          `yaml:"arg_count" json:"arg_count"`
	Blocks   []BasicBlock `yaml:"blocks" json:"blocks"`
}

// ArgTypes returns the declared types of locals 1..ArgCount.
func (b *Body) ArgTypes() []Type {
	if b.ArgCount <= 0 || len(b.Locals) < b.ArgCount+1 {
		return nil
	}
	out := make([]Type, b.ArgCount)
	for i := range out {
		out[i] = b.Locals[i+1].Ty
	}
	return out
}

// ReturnType returns the declared type of local 0.
func (b *Body) ReturnType() Type {
	if len(b.Locals) == 0 {
		return Tuple()
	}
	return b.Locals[ReturnLocal].Ty
}

// Validate checks structural consistency: the return local and argument locals exist
// and every place refers to a declared local.
func (b *Body) Validate() error {
	if len(b.Locals) == 0 {
		return fmt.Errorf("function %s: missing return local", b.Name)
	}
	if b.ArgCount < 0 || b.ArgCount+1 > len(b.Locals) {
		return fmt.Errorf("function %s: arg_count %d exceeds %d locals", b.Name, b.ArgCount, len(b.Locals))
	}
	check := func(p Place, bb, si int) error {
		if int(p.Local) < 0 || int(p.Local) >= len(b.Locals) {
			return fmt.Errorf("function %s: bb%d[%d]: place %s refers to undeclared local", b.Name, bb, si, p)
		}
		return nil
	}
	for bi, block := range b.Blocks {
		for si, stmt := range block.Statements {
			if stmt.Kind == StmtUnsupported || stmt.Kind == StmtNop {
				continue
			}
			if err := check(stmt.Place, bi, si); err != nil {
				return err
			}
			if stmt.Rvalue == nil {
				continue
			}
			for _, op := range stmt.Rvalue.Operands {
				if op.Kind == OperandConstant {
					continue
				}
				if err := check(op.Place, bi, si); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Program is a set of function bodies, the unit an IR file holds.
type Program struct {
	Functions []Body `yaml:"functions" json:"functions"`
}

// Function returns the body with the given name.
func (p *Program) Function(name string) (*Body, bool) {
	for i := range p.Functions {
		if p.Functions[i].Name == name {
			return &p.Functions[i], true
		}
	}
	return nil, false
}
