package lower

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/go-absint/pkg/ir"
)

// predeclared maps Go's predeclared type names. int, uint and uintptr are 64 bits wide.
var predeclared = map[string]ir.Type{
	"bool":    ir.Bool(),
	"int":     ir.Int(64),
	"int8":    ir.Int(8),
	"int16":   ir.Int(16),
	"int32":   ir.Int(32),
	"int64":   ir.Int(64),
	"rune":    ir.Int(32),
	"uint":    ir.Uint(64),
	"uint8":   ir.Uint(8),
	"uint16":  ir.Uint(16),
	"uint32":  ir.Uint(32),
	"uint64":  ir.Uint(64),
	"uintptr": ir.Uint(64),
	"byte":    ir.Uint(8),
	"float32": ir.Float(32),
	"float64": ir.Float(64),
	"string":  ir.Named(ir.KindStr, "string"),
}

func (b *builder) mapType(node *sitter.Node) ir.Type {
	if node == nil {
		return ir.Named(ir.KindOther, "")
	}
	text := b.text(node)
	switch node.Type() {
	case "type_identifier":
		if t, ok := predeclared[text]; ok {
			return t
		}
		return ir.Named(ir.KindAdt, text)
	case "parenthesized_type":
		return b.mapType(node.NamedChild(0))
	case "pointer_type":
		return ir.Named(ir.KindRef, text)
	case "slice_type", "array_type", "struct_type", "map_type", "generic_type", "qualified_type":
		return ir.Named(ir.KindAdt, text)
	default:
		return ir.Named(ir.KindOther, text)
	}
}

func isInteger(t ir.Type) bool { return t.IsSigned() || t.IsUnsigned() }
