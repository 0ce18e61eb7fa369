package domain

import (
	"math/bits"

	"lukechampine.com/uint128"
)

// Scalar is the capability an interval element needs: a total order, checked addition
// and a printable form. Implementations must be comparable value types.
type Scalar[T any] interface {
	comparable
	// Cmp returns -1, 0 or +1.
	Cmp(other T) int
	// AddChecked returns the sum and false if it does not fit in T.
	AddChecked(other T) (T, bool)
	String() string
}

// Uint128 is an unsigned 128-bit integer.
type Uint128 struct {
	v uint128.Uint128
}

var (
	MinUint128 = Uint128{}
	MaxUint128 = Uint128{v: uint128.Max}
)

// U128 returns v as a Uint128.
func U128(v uint64) Uint128 { return Uint128{v: uint128.From64(v)} }

// Uint128FromParts returns hi<<64 | lo.
func Uint128FromParts(lo, hi uint64) Uint128 { return Uint128{v: uint128.New(lo, hi)} }

func (u Uint128) Cmp(o Uint128) int { return u.v.Cmp(o.v) }

func (u Uint128) AddChecked(o Uint128) (Uint128, bool) {
	lo, carry := bits.Add64(u.v.Lo, o.v.Lo, 0)
	hi, carry := bits.Add64(u.v.Hi, o.v.Hi, carry)
	if carry != 0 {
		return Uint128{}, false
	}
	return Uint128{v: uint128.New(lo, hi)}, true
}

func (u Uint128) String() string { return u.v.String() }

// Int128 is a signed 128-bit integer stored in two's complement.
type Int128 struct {
	bits uint128.Uint128
}

const signBit = uint64(1) << 63

var (
	MinInt128 = Int128{bits: uint128.New(0, signBit)}
	MaxInt128 = Int128{bits: uint128.New(^uint64(0), ^signBit)}
)

// I128 returns v as an Int128.
func I128(v int64) Int128 {
	var hi uint64
	if v < 0 {
		hi = ^uint64(0)
	}
	return Int128{bits: uint128.New(uint64(v), hi)}
}

// Int128FromParts reinterprets hi<<64 | lo as a two's complement value.
func Int128FromParts(lo, hi uint64) Int128 { return Int128{bits: uint128.New(lo, hi)} }

// Negative reports whether i < 0.
func (i Int128) Negative() bool { return i.bits.Hi&signBit != 0 }

func (i Int128) Cmp(o Int128) int {
	// Flipping the sign bit maps two's complement order onto unsigned order.
	a := uint128.New(i.bits.Lo, i.bits.Hi^signBit)
	b := uint128.New(o.bits.Lo, o.bits.Hi^signBit)
	return a.Cmp(b)
}

func (i Int128) AddChecked(o Int128) (Int128, bool) {
	sum := Int128{bits: i.bits.AddWrap(o.bits)}
	if i.Negative() == o.Negative() && sum.Negative() != i.Negative() {
		return Int128{}, false
	}
	return sum, true
}

func (i Int128) String() string {
	if !i.Negative() {
		return i.bits.String()
	}
	return "-" + uint128.Zero.SubWrap(i.bits).String()
}
