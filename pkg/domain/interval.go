package domain

// BoundKind distinguishes finite interval bounds from the two infinities.
type BoundKind uint8

const (
	NegInf BoundKind = iota
	Finite
	PosInf
)

// Bound is one end of an interval. The infinities order below and above every
// finite value.
type Bound[T Scalar[T]] struct {
	kind  BoundKind
	value T
}

// At returns a finite bound.
func At[T Scalar[T]](v T) Bound[T] { return Bound[T]{kind: Finite, value: v} }

// MinusInfinity returns the lower infinite bound.
func MinusInfinity[T Scalar[T]]() Bound[T] { return Bound[T]{kind: NegInf} }

// PlusInfinity returns the upper infinite bound.
func PlusInfinity[T Scalar[T]]() Bound[T] { return Bound[T]{kind: PosInf} }

func (b Bound[T]) Kind() BoundKind { return b.kind }

// Value returns the finite value and false for an infinity.
func (b Bound[T]) Value() (T, bool) {
	return b.value, b.kind == Finite
}

// Cmp orders bounds: NegInf < finite < PosInf, finite bounds by T.
func (b Bound[T]) Cmp(o Bound[T]) int {
	if b.kind != o.kind {
		if b.kind < o.kind {
			return -1
		}
		return 1
	}
	if b.kind != Finite {
		return 0
	}
	return b.value.Cmp(o.value)
}

func (b Bound[T]) String() string {
	switch b.kind {
	case NegInf:
		return "-∞"
	case PosInf:
		return "+∞"
	default:
		return b.value.String()
	}
}

func minBound[T Scalar[T]](a, b Bound[T]) Bound[T] {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

func maxBound[T Scalar[T]](a, b Bound[T]) Bound[T] {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// addBound adds two bounds. NegInf absorbs first, then PosInf. A finite sum that does
// not fit in T becomes onOverflow.
func addBound[T Scalar[T]](a, b Bound[T], onOverflow BoundKind) Bound[T] {
	if a.kind == NegInf || b.kind == NegInf {
		return MinusInfinity[T]()
	}
	if a.kind == PosInf || b.kind == PosInf {
		return PlusInfinity[T]()
	}
	sum, ok := a.value.AddChecked(b.value)
	if !ok {
		return Bound[T]{kind: onOverflow}
	}
	return At(sum)
}

// Interval is the closed range [lower, upper] of possible values of a scalar.
// Callers must not build inverted intervals; no operation checks lower <= upper.
type Interval[T Scalar[T]] struct {
	lower Bound[T]
	upper Bound[T]
}

// Point returns the single-value interval [v, v].
func Point[T Scalar[T]](v T) Interval[T] {
	return Interval[T]{lower: At(v), upper: At(v)}
}

// Range returns [lo, hi].
func Range[T Scalar[T]](lo, hi T) Interval[T] {
	return Interval[T]{lower: At(lo), upper: At(hi)}
}

// NewInterval returns the interval between two arbitrary bounds.
func NewInterval[T Scalar[T]](lo, hi Bound[T]) Interval[T] {
	return Interval[T]{lower: lo, upper: hi}
}

// TopInterval returns (-∞, +∞).
func TopInterval[T Scalar[T]]() Interval[T] {
	return Interval[T]{lower: MinusInfinity[T](), upper: PlusInfinity[T]()}
}

func (i Interval[T]) Lower() Bound[T] { return i.lower }
func (i Interval[T]) Upper() Bound[T] { return i.upper }

// IsTop reports whether i is (-∞, +∞).
func (i Interval[T]) IsTop() bool {
	return i.lower.kind == NegInf && i.upper.kind == PosInf
}

// Leq reports interval inclusion i ⊑ o.
func (i Interval[T]) Leq(o Interval[T]) bool {
	return o.lower.Cmp(i.lower) <= 0 && i.upper.Cmp(o.upper) <= 0
}

// Join returns the smallest interval enclosing both.
func (i Interval[T]) Join(o Interval[T]) Interval[T] {
	return Interval[T]{
		lower: minBound(i.lower, o.lower),
		upper: maxBound(i.upper, o.upper),
	}
}

// Widen keeps each bound of i that o does not exceed and sends the others to the
// matching infinity, so each bound moves at most once under repeated widening.
func (i Interval[T]) Widen(o Interval[T]) Interval[T] {
	w := i
	if o.lower.Cmp(i.lower) < 0 {
		w.lower = MinusInfinity[T]()
	}
	if o.upper.Cmp(i.upper) > 0 {
		w.upper = PlusInfinity[T]()
	}
	return w
}

func (Interval[T]) Top() Interval[T] { return TopInterval[T]() }

// Equals is abstract equality: False for disjoint intervals, True when both are the
// same finite point, Top otherwise.
func (i Interval[T]) Equals(o Interval[T]) Bool {
	if i.upper.Cmp(o.lower) < 0 || o.upper.Cmp(i.lower) < 0 {
		return BoolFalse
	}
	if i.isPoint() && o.isPoint() && i.lower.Cmp(o.lower) == 0 {
		return BoolTrue
	}
	return BoolTop
}

// LessThan is abstract strict order i < o.
func (i Interval[T]) LessThan(o Interval[T]) Bool {
	if i.upper.Cmp(o.lower) < 0 {
		return BoolTrue
	}
	if i.lower.Cmp(o.upper) >= 0 {
		return BoolFalse
	}
	return BoolTop
}

// Add is interval addition. Bounds that overflow T snap to the infinity on their side.
func (i Interval[T]) Add(o Interval[T]) Interval[T] {
	return Interval[T]{
		lower: addBound(i.lower, o.lower, NegInf),
		upper: addBound(i.upper, o.upper, PosInf),
	}
}

func (i Interval[T]) isPoint() bool {
	return i.lower.kind == Finite && i.upper.kind == Finite && i.lower.value == i.upper.value
}

func (i Interval[T]) String() string {
	return "[" + i.lower.String() + ", " + i.upper.String() + "]"
}
