package domain

import (
	"errors"
	"testing"

	"github.com/l3aro/go-absint/pkg/errs"
	"github.com/l3aro/go-absint/pkg/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValue(t *testing.T) {
	tests := []struct {
		name string
		ty   ir.Type
		want string
	}{
		{"bool", ir.Bool(), "⊤"},
		{"signed", ir.Int(32), "i[-∞, +∞]"},
		{"unsigned", ir.Uint(8), "u[-∞, +∞]"},
		{"tuple", ir.Tuple(ir.Int(64), ir.Bool()), "(i[-∞, +∞], ⊤)"},
		{"unit", ir.Tuple(), "()"},
		{"nested", ir.Tuple(ir.Tuple(ir.Uint(16))), "((u[-∞, +∞]))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewValue(tt.ty)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestNewValueNotImplemented(t *testing.T) {
	for _, ty := range []ir.Type{
		ir.Float(64),
		ir.Named(ir.KindRef, "&i32"),
		ir.Tuple(ir.Int(8), ir.Named(ir.KindAdt, "Point")),
	} {
		_, err := NewValue(ty)
		assert.True(t, errors.Is(err, errs.ErrNotImplemented), "type %s", ty)
	}
}

func TestTupleTopIsFixedPoint(t *testing.T) {
	for n := 0; n < 4; n++ {
		fields := make([]ir.Type, n)
		for i := range fields {
			fields[i] = ir.Int(32)
		}
		v, err := NewValue(ir.Tuple(fields...))
		require.NoError(t, err)
		assert.Equal(t, ValueTuple, v.Kind())
		assert.Equal(t, n, v.Len())
		assert.True(t, v.Top().Top().Equal(v.Top()))
		assert.True(t, v.Top().Equal(v))
	}
}

func TestValueJoinWiden(t *testing.T) {
	a := IntValue(irange(0, 3))
	b := IntValue(irange(5, 9))
	assert.Equal(t, "i[0, 9]", a.Join(b).String())
	assert.Equal(t, "i[0, +∞]", a.Widen(b).String())

	ta := TupleValue(a, BoolValue(BoolTrue))
	tb := TupleValue(b, BoolValue(BoolFalse))
	assert.Equal(t, "(i[0, 9], ⊤)", ta.Join(tb).String())
	assert.Equal(t, "(i[0, +∞], ⊤)", ta.Widen(tb).String())

	u := UintValue(Point(U128(4)))
	assert.Equal(t, "u[4, 7]", u.Join(UintValue(Point(U128(7)))).String())
	assert.Equal(t, "uninit", Uninit().Join(Uninit()).String())
}

func TestValueJoinMismatchPanics(t *testing.T) {
	assert.Panics(t, func() { BoolValue(BoolTrue).Join(IntValue(ipoint(1))) })
	assert.Panics(t, func() { IntValue(ipoint(1)).Widen(UintValue(Point(U128(1)))) })
	assert.Panics(t, func() {
		TupleValue(BoolValue(BoolTrue)).Join(TupleValue(BoolValue(BoolTrue), BoolValue(BoolTrue)))
	})
	assert.Panics(t, func() { Uninit().Join(BoolValue(BoolBot)) })
}

func TestValueTupleAccess(t *testing.T) {
	v := TupleValue(IntValue(ipoint(1)), BoolValue(BoolFalse))

	got, ok := v.Get(0)
	require.True(t, ok)
	assert.Equal(t, "i[1, 1]", got.String())
	_, ok = v.Get(2)
	assert.False(t, ok)

	require.NoError(t, v.Set(1, BoolValue(BoolTrue)))
	got, _ = v.Get(1)
	assert.Equal(t, "true", got.String())

	err := v.Set(2, BoolValue(BoolTrue))
	assert.True(t, errors.Is(err, errs.ErrIndexOutOfRange))

	scalar := IntValue(ipoint(1))
	err = scalar.Set(0, BoolValue(BoolTrue))
	assert.True(t, errors.Is(err, errs.ErrNotImplemented))
	_, ok = scalar.Get(0)
	assert.False(t, ok)
	assert.Nil(t, scalar.GetMut(0))

	elem := v.GetMut(0)
	require.NotNil(t, elem)
	*elem = IntValue(ipoint(9))
	got, _ = v.Get(0)
	assert.Equal(t, "i[9, 9]", got.String())
}

func TestValueCloneDoesNotAlias(t *testing.T) {
	orig := TupleValue(IntValue(ipoint(1)))
	clone := orig.Clone()
	require.NoError(t, clone.Set(0, IntValue(ipoint(2))))

	got, _ := orig.Get(0)
	assert.Equal(t, "i[1, 1]", got.String())
}

func TestValueAccessors(t *testing.T) {
	b, ok := BoolValue(BoolTrue).AsBool()
	assert.True(t, ok)
	assert.Equal(t, BoolTrue, b)
	_, ok = BoolValue(BoolTrue).AsInt()
	assert.False(t, ok)
	i, ok := IntValue(ipoint(3)).AsInt()
	assert.True(t, ok)
	assert.Equal(t, ipoint(3), i)
	_, ok = UintValue(Point(U128(3))).AsUint()
	assert.True(t, ok)
	assert.Equal(t, ValueUninit, Value{}.Kind())
	assert.Equal(t, "Tuple", ValueTuple.String())
}

func TestFunctionString(t *testing.T) {
	f := Function{
		Arguments: []Value{IntValue(TopInterval[Int128]())},
		Return:    BoolValue(BoolTop),
	}
	assert.Equal(t, "fn(i[-∞, +∞]) -> ⊤", f.String())
}

func TestValueGetCopiesNestedTuples(t *testing.T) {
	v := TupleValue(TupleValue(IntValue(ipoint(1)), BoolValue(BoolFalse)), BoolValue(BoolTrue))

	inner, ok := v.Get(0)
	require.True(t, ok)
	require.NoError(t, inner.Set(1, BoolValue(BoolTrue)))

	again, _ := v.Get(0)
	field, _ := again.Get(1)
	assert.Equal(t, "false", field.String())
}
