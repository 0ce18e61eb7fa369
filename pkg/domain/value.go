package domain

import (
	"fmt"
	"strings"

	"github.com/l3aro/go-absint/pkg/errs"
	"github.com/l3aro/go-absint/pkg/ir"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	ValueUninit ValueKind = iota // Deinitialised or unknown-content slot, distinct from top
	ValueBool
	ValueInt
	ValueUint
	ValueTuple
)

func (k ValueKind) String() string {
	switch k {
	case ValueUninit:
		return "Uninit"
	case ValueBool:
		return "Bool"
	case ValueInt:
		return "IntInterval"
	case ValueUint:
		return "UintInterval"
	case ValueTuple:
		return "Tuple"
	default:
		return "ValueKind(?)"
	}
}

// IntInterval abstracts any signed integer, UintInterval any unsigned one. The widest
// scalar of each signedness keeps one representation for every integer width.
type (
	IntInterval  = Interval[Int128]
	UintInterval = Interval[Uint128]
)

// Value is the recursive abstract value: one of Bool, IntInterval, UintInterval, Tuple
// or Uninit. The zero Value is Uninit.
type Value struct {
	kind  ValueKind
	b     Bool
	i     IntInterval
	u     UintInterval
	elems []Value
}

func BoolValue(b Bool) Value         { return Value{kind: ValueBool, b: b} }
func IntValue(i IntInterval) Value   { return Value{kind: ValueInt, i: i} }
func UintValue(u UintInterval) Value { return Value{kind: ValueUint, u: u} }
func Uninit() Value                  { return Value{} }

// TupleValue returns a tuple of copies of elems.
func TupleValue(elems ...Value) Value {
	out := make([]Value, len(elems))
	for i, e := range elems {
		out[i] = e.Clone()
	}
	return Value{kind: ValueTuple, elems: out}
}

// NewValue builds the top element for a type: Top for bool, the full interval for
// integers, and a tuple of tops for tuples. Any other type is NotImplemented.
func NewValue(t ir.Type) (Value, error) {
	switch t.Kind {
	case ir.KindBool:
		return BoolValue(BoolTop), nil
	case ir.KindInt:
		return IntValue(TopInterval[Int128]()), nil
	case ir.KindUint:
		return UintValue(TopInterval[Uint128]()), nil
	case ir.KindTuple:
		elems := make([]Value, len(t.Fields))
		for i, f := range t.Fields {
			v, err := NewValue(f)
			if err != nil {
				return Value{}, err
			}
			elems[i] = v
		}
		return Value{kind: ValueTuple, elems: elems}, nil
	default:
		return Value{}, errs.New(errs.NotImplemented, "no abstract value for type %s", t)
	}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) AsBool() (Bool, bool)         { return v.b, v.kind == ValueBool }
func (v Value) AsInt() (IntInterval, bool)   { return v.i, v.kind == ValueInt }
func (v Value) AsUint() (UintInterval, bool) { return v.u, v.kind == ValueUint }

// Len returns the arity of a tuple and 0 for other variants.
func (v Value) Len() int { return len(v.elems) }

// Clone returns a deep copy, so tuple elements are never shared between values.
func (v Value) Clone() Value {
	if v.kind != ValueTuple {
		return v
	}
	out := v
	out.elems = make([]Value, len(v.elems))
	for i, e := range v.elems {
		out.elems[i] = e.Clone()
	}
	return out
}

// Get returns tuple element i.
func (v Value) Get(i int) (Value, bool) {
	if v.kind != ValueTuple || i < 0 || i >= len(v.elems) {
		return Value{}, false
	}
	return v.elems[i].Clone(), true
}

// GetMut returns a pointer to tuple element i, or nil.
func (v *Value) GetMut(i int) *Value {
	if v.kind != ValueTuple || i < 0 || i >= len(v.elems) {
		return nil
	}
	return &v.elems[i]
}

// Set replaces tuple element i.
func (v *Value) Set(i int, elem Value) error {
	if v.kind != ValueTuple {
		return errs.New(errs.NotImplemented, "cannot index into %s", v.kind)
	}
	if i < 0 || i >= len(v.elems) {
		return errs.New(errs.IndexOutOfRange, "index %d out of range for tuple of %d", i, len(v.elems))
	}
	v.elems[i] = elem.Clone()
	return nil
}

func (v Value) Join(o Value) Value {
	return v.combine(o, "join", Bool.Join, IntInterval.Join, UintInterval.Join, Value.Join)
}

func (v Value) Widen(o Value) Value {
	return v.combine(o, "widen", Bool.Widen, IntInterval.Widen, UintInterval.Widen, Value.Widen)
}

func (v Value) combine(
	o Value,
	op string,
	fb func(Bool, Bool) Bool,
	fi func(IntInterval, IntInterval) IntInterval,
	fu func(UintInterval, UintInterval) UintInterval,
	ft func(Value, Value) Value,
) Value {
	if v.kind != o.kind {
		panic(fmt.Sprintf("domain: cannot %s %s with %s", op, v.kind, o.kind))
	}
	switch v.kind {
	case ValueBool:
		return BoolValue(fb(v.b, o.b))
	case ValueInt:
		return IntValue(fi(v.i, o.i))
	case ValueUint:
		return UintValue(fu(v.u, o.u))
	case ValueTuple:
		if len(v.elems) != len(o.elems) {
			panic(fmt.Sprintf("domain: cannot %s tuples of arity %d and %d", op, len(v.elems), len(o.elems)))
		}
		elems := make([]Value, len(v.elems))
		for i := range v.elems {
			elems[i] = ft(v.elems[i], o.elems[i])
		}
		return Value{kind: ValueTuple, elems: elems}
	case ValueUninit:
		return Uninit()
	default:
		panic(fmt.Sprintf("domain: unknown value kind %d", v.kind))
	}
}

func (v Value) Top() Value {
	switch v.kind {
	case ValueBool:
		return BoolValue(BoolTop)
	case ValueInt:
		return IntValue(TopInterval[Int128]())
	case ValueUint:
		return UintValue(TopInterval[Uint128]())
	case ValueTuple:
		elems := make([]Value, len(v.elems))
		for i, e := range v.elems {
			elems[i] = e.Top()
		}
		return Value{kind: ValueTuple, elems: elems}
	default:
		return Uninit()
	}
}

// Equal reports structural equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueBool:
		return v.b == o.b
	case ValueInt:
		return v.i == o.i
	case ValueUint:
		return v.u == o.u
	case ValueTuple:
		if len(v.elems) != len(o.elems) {
			return false
		}
		for i := range v.elems {
			if !v.elems[i].Equal(o.elems[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case ValueBool:
		return v.b.String()
	case ValueInt:
		return "i" + v.i.String()
	case ValueUint:
		return "u" + v.u.String()
	case ValueTuple:
		parts := make([]string, len(v.elems))
		for i, e := range v.elems {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return "uninit"
	}
}
