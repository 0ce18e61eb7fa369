package cache

import (
	"strconv"
	"testing"

	"github.com/l3aro/go-absint/pkg/ir"
)

func benchBody(n int) ir.Body {
	i32 := ir.Int(32)
	body := ir.Body{
		Name:     "bench",
		ArgCount: 1,
		Locals:   []ir.LocalDecl{{Ty: i32}, {Name: "x", Ty: i32}},
	}
	var stmts []ir.Statement
	for i := 0; i < n; i++ {
		tmp := ir.Local(len(body.Locals))
		body.Locals = append(body.Locals, ir.LocalDecl{Ty: ir.Tuple(i32, ir.Bool())})
		stmts = append(stmts,
			ir.Assign(ir.LocalPlace(tmp), ir.CheckedBinaryOp(ir.OpAdd,
				ir.Copy(ir.LocalPlace(1)), ir.Const(ir.IntConst(i32, uint64(i))))),
			ir.Assign(ir.LocalPlace(1), ir.Use(ir.Copy(ir.LocalPlace(tmp).Field(0)))),
		)
	}
	body.Blocks = []ir.BasicBlock{{Statements: stmts}}
	return body
}

func BenchmarkKey(b *testing.B) {
	body := benchBody(100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Key(body, true); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCacheGet(b *testing.B) {
	c := New(Options{MaxSize: 10000})
	keys := make([]string, 1000)
	for i := range keys {
		k, err := Key(benchBody(i%10), i)
		if err != nil {
			b.Fatal(err)
		}
		keys[i] = k
		c.Set(k, report("f"+strconv.Itoa(i)))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get(keys[i%len(keys)])
	}
}
