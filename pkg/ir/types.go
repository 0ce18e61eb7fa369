// Package ir defines the read-only function representation consumed by the abstract
// interpreter: type descriptors, locals, basic blocks, statements, rvalues and operands.
// Bodies are produced by a frontend (see package lower) or loaded from YAML/JSON files.
package ir

import (
	"fmt"
	"strings"
)

// TypeKind identifies the shape of a type descriptor.
type TypeKind string

const (
	KindBool  TypeKind = "bool"  // Boolean
	KindInt   TypeKind = "int"   // Signed integer of Bits width
	KindUint  TypeKind = "uint"  // Unsigned integer of Bits width
	KindFloat TypeKind = "float" // Floating point of Bits width
	KindTuple TypeKind = "tuple" // Ordered product of Fields
	KindRef   TypeKind = "ref"   // Reference or pointer
	KindAdt   TypeKind = "adt"   // Struct, enum or other nominal aggregate
	KindStr   TypeKind = "str"   // String slice
	KindOther TypeKind = "other" // Anything the frontend could not classify
)

// Type is a type descriptor. Only Kind is meaningful for every type; Bits applies to
// numeric kinds, Fields to tuples and Name to nominal or unclassified types.
type Type struct {
	Kind   TypeKind `yaml:"kind" json:"kind"`
	Bits   int      `yaml:"bits,omitempty" json:"bits,omitempty"`
	Fields []Type   `yaml:"fields,omitempty" json:"fields,omitempty"`
	Name   string   `yaml:"name,omitempty" json:"name,omitempty"`
}

// Bool returns the boolean type.
func Bool() Type { return Type{Kind: KindBool} }

// Int returns a signed integer type of the given width.
func Int(bits int) Type { return Type{Kind: KindInt, Bits: bits} }

// Uint returns an unsigned integer type of the given width.
func Uint(bits int) Type { return Type{Kind: KindUint, Bits: bits} }

// Float returns a floating point type of the given width.
func Float(bits int) Type { return Type{Kind: KindFloat, Bits: bits} }

// Tuple returns a tuple of the given field types. Tuple() is the unit type.
func Tuple(fields ...Type) Type { return Type{Kind: KindTuple, Fields: fields} }

// Named returns a nominal type of the given kind, e.g. Named(KindAdt, "Point").
func Named(kind TypeKind, name string) Type { return Type{Kind: kind, Name: name} }

func (t Type) IsBool() bool     { return t.Kind == KindBool }
func (t Type) IsSigned() bool   { return t.Kind == KindInt }
func (t Type) IsUnsigned() bool { return t.Kind == KindUint }
func (t Type) IsFloat() bool    { return t.Kind == KindFloat }
func (t Type) IsTuple() bool    { return t.Kind == KindTuple }

// IsNumeric reports whether t is a signed, unsigned or floating point number.
func (t Type) IsNumeric() bool {
	return t.IsSigned() || t.IsUnsigned() || t.IsFloat()
}

// TupleFields returns the field types of a tuple and false for any other type.
func (t Type) TupleFields() ([]Type, bool) {
	if !t.IsTuple() {
		return nil, false
	}
	return t.Fields, true
}

// Size returns the width of a scalar in bytes, 1 for bool, 0 when unknown.
func (t Type) Size() int {
	switch t.Kind {
	case KindBool:
		return 1
	case KindInt, KindUint, KindFloat:
		return t.Bits / 8
	default:
		return 0
	}
}

// Equal reports structural equality.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind || t.Bits != o.Bits || t.Name != o.Name || len(t.Fields) != len(o.Fields) {
		return false
	}
	for i := range t.Fields {
		if !t.Fields[i].Equal(o.Fields[i]) {
			return false
		}
	}
	return true
}

func (t Type) String() string {
	switch t.Kind {
	case KindBool:
		return "bool"
	case KindInt:
		return fmt.Sprintf("i%d", t.Bits)
	case KindUint:
		return fmt.Sprintf("u%d", t.Bits)
	case KindFloat:
		return fmt.Sprintf("f%d", t.Bits)
	case KindTuple:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.String()
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		if t.Name != "" {
			return t.Name
		}
		return string(t.Kind)
	}
}
