package ir

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const identityYAML = `
functions:
  - name: f
    arg_count: 1
    locals:
      - ty: {kind: int, bits: 32}
      - name: x
        ty: {kind: int, bits: 32}
    blocks:
      - statements:
          - kind: assign
            place: {local: 0}
            rvalue:
              kind: use
              operands:
                - kind: copy
                  place: {local: 1}
`

func TestDecodeProgram(t *testing.T) {
	prog, err := Decode(strings.NewReader(identityYAML))
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)

	body, ok := prog.Function("f")
	require.True(t, ok)
	assert.Equal(t, 1, body.ArgCount)
	assert.Equal(t, []Type{Int(32)}, body.ArgTypes())
	assert.Equal(t, Int(32), body.ReturnType())
	require.Len(t, body.Blocks, 1)
	assert.Equal(t, "_0 = copy _1", body.Blocks[0].Statements[0].String())
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader("functions:\n  - name: f\n    bogus: 1\n"))
	assert.Error(t, err)
}

func TestDecodeRejectsUndeclaredLocal(t *testing.T) {
	src := strings.Replace(identityYAML, "place: {local: 1}", "place: {local: 7}", 1)
	_, err := Decode(strings.NewReader(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared local")
}

func TestEncodeRoundTrip(t *testing.T) {
	body := Body{
		Name:     "add_one",
		ArgCount: 1,
		Locals: []LocalDecl{
			{Ty: Uint(8)},
			{Name: "x", Ty: Uint(8)},
			{Ty: Tuple(Uint(8), Bool())},
		},
		Blocks: []BasicBlock{{Statements: []Statement{
			Assign(LocalPlace(2), CheckedBinaryOp(OpAdd, Copy(LocalPlace(1)), Const(IntConst(Uint(8), 1)))),
			Assign(LocalPlace(0), Use(Move(LocalPlace(2).Field(0)))),
		}}},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, &Program{Functions: []Body{body}}))

	prog, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)
	assert.Equal(t, body.Blocks[0].Statements[1].String(), prog.Functions[0].Blocks[0].Statements[1].String())
	assert.Equal(t, "_2 = checked_add(copy _1, const u8[01])", prog.Functions[0].Blocks[0].Statements[0].String())
}

func TestTypePredicates(t *testing.T) {
	tests := []struct {
		ty      Type
		numeric bool
		str     string
	}{
		{Bool(), false, "bool"},
		{Int(64), true, "i64"},
		{Uint(16), true, "u16"},
		{Float(32), true, "f32"},
		{Tuple(Int(8), Bool()), false, "(i8, bool)"},
		{Tuple(Int(8)), false, "(i8,)"},
		{Named(KindAdt, "Point"), false, "Point"},
		{Named(KindRef, ""), false, "ref"},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			assert.Equal(t, tt.numeric, tt.ty.IsNumeric())
			assert.Equal(t, tt.str, tt.ty.String())
		})
	}

	fields, ok := Tuple(Int(8), Bool()).TupleFields()
	assert.True(t, ok)
	assert.Len(t, fields, 2)
	_, ok = Int(8).TupleFields()
	assert.False(t, ok)
}

func TestIntConstSignExtends(t *testing.T) {
	c := IntConst(Int(128), uint64(0xffffffffffffffff))
	require.Len(t, c.Bytes, 16)
	for _, b := range c.Bytes {
		assert.Equal(t, byte(0xff), *b)
	}

	c = IntConst(Int(16), 0x1234)
	assert.Equal(t, "i16[34 12]", c.String())
}

func TestIsIRFile(t *testing.T) {
	assert.True(t, IsIRFile("dir/prog.air.yaml"))
	assert.True(t, IsIRFile("prog.air.json"))
	assert.False(t, IsIRFile("prog.yaml"))
	assert.False(t, IsIRFile("main.go"))
}

func TestLoadTestdata(t *testing.T) {
	prog, err := Load("../../testdata/ir/checked_add.air.yaml")
	require.NoError(t, err)
	body, ok := prog.Function("add_one")
	require.True(t, ok)
	assert.Equal(t, "_2 = checked_add(copy _1, const i32[01 00 00 00])", body.Blocks[0].Statements[0].String())
	assert.Equal(t, "_0 = copy _2.0", body.Blocks[0].Statements[1].String())

	prog, err = Load("../../testdata/ir/compare.air.yaml")
	require.NoError(t, err)
	require.Len(t, prog.Functions, 2)
	body, ok = prog.Function("uninit_byte")
	require.True(t, ok)
	assert.Equal(t, "_0 = const u16[07 __]", body.Blocks[0].Statements[0].String())

	_, err = Load("../../testdata/ir/missing.air.yaml")
	assert.Error(t, err)
}
