package domain

import (
	"fmt"

	"github.com/l3aro/go-absint/pkg/ir"
)

// Bool is the four-point boolean lattice:
//
//	     Top
//	   /     \
//	False    True
//	   \     /
//	     Bot
//
// The zero value is BoolBot.
type Bool uint8

const (
	BoolBot   Bool = iota // Neither true nor false
	BoolFalse             // Definitely false
	BoolTrue              // Definitely true
	BoolTop               // Either
)

// BoolFrom abstracts a concrete boolean.
func BoolFrom(b bool) Bool {
	if b {
		return BoolTrue
	}
	return BoolFalse
}

// BoolFromConstant decodes a boolean compile-time constant. It panics when the constant
// is not boolean-typed or its allocation is not exactly one initialised byte; both are
// upstream type-checking bugs rather than properties of the analysed program.
func BoolFromConstant(c ir.Constant) Bool {
	if !c.Ty.IsBool() {
		panic(fmt.Sprintf("domain: cannot build an abstract bool from a %s constant", c.Ty))
	}
	if len(c.Bytes) != 1 || c.Bytes[0] == nil {
		panic(fmt.Sprintf("domain: unexpected boolean constant encoding %s", c))
	}
	return BoolFrom(*c.Bytes[0] != 0)
}

// Compare returns the order of b relative to o, and false when they are incomparable
// (True against False).
func (b Bool) Compare(o Bool) (int, bool) {
	switch {
	case b == o:
		return 0, true
	case b == BoolTop || o == BoolBot:
		return 1, true
	case o == BoolTop || b == BoolBot:
		return -1, true
	default:
		return 0, false
	}
}

// Leq reports b ⊑ o.
func (b Bool) Leq(o Bool) bool {
	c, ok := b.Compare(o)
	return ok && c <= 0
}

func (b Bool) Join(o Bool) Bool {
	c, ok := b.Compare(o)
	if !ok {
		return BoolTop
	}
	if c < 0 {
		return o
	}
	return b
}

func (b Bool) Widen(o Bool) Bool {
	switch {
	case b == BoolTop || o == BoolTop:
		return BoolTop
	case b == BoolBot:
		return o
	case o == BoolBot:
		return b
	case b == o:
		return b
	default:
		return BoolTop
	}
}

func (Bool) Top() Bool { return BoolTop }

// Equals is abstract equality. Top, then Bot, propagate from either side.
func (b Bool) Equals(o Bool) Bool {
	switch {
	case b == BoolTop || o == BoolTop:
		return BoolTop
	case b == BoolBot || o == BoolBot:
		return BoolBot
	case b == o:
		return BoolTrue
	default:
		return BoolFalse
	}
}

func (b Bool) String() string {
	switch b {
	case BoolBot:
		return "⊥"
	case BoolFalse:
		return "false"
	case BoolTrue:
		return "true"
	case BoolTop:
		return "⊤"
	default:
		return "Bool(?)"
	}
}
