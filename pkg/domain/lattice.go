// Package domain implements the abstract domains used by the interpreter: a four-point
// boolean lattice, an interval lattice over totally ordered scalars, and Value, a tagged
// union composing them (plus tuples) into one recursive abstract value.
//
// All domain types are immutable values. Binary lattice operations on operands of
// different shapes are caller bugs and panic.
package domain

// Lattice is the contract every abstract domain satisfies.
//
// Join is the least upper bound: commutative, associative and idempotent.
// Widen over-approximates Join so that any ascending chain stabilises after finitely
// many applications. Top returns the maximal element.
type Lattice[T any] interface {
	Join(other T) T
	Widen(other T) T
	Top() T
}

var (
	_ Lattice[Bool]              = BoolTop
	_ Lattice[Interval[Int128]]  = Interval[Int128]{}
	_ Lattice[Interval[Uint128]] = Interval[Uint128]{}
	_ Lattice[Value]             = Value{}
)
