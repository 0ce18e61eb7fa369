package scanner

import (
	"path/filepath"
	"strings"

	"github.com/l3aro/go-absint/pkg/ir"
)

// Kind is the kind of analysis input a file holds.
type Kind string

const (
	KindNone Kind = ""
	KindGo   Kind = "go" // Go source, lowered with tree-sitter
	KindIR   Kind = "ir" // IR program in YAML or JSON
)

// DetectKind returns the input kind for path, or KindNone when the file is not an input.
// Go test files are inputs only when includeTests is set.
func DetectKind(path string, includeTests bool) Kind {
	if ir.IsIRFile(path) {
		return KindIR
	}
	name := filepath.Base(path)
	if strings.ToLower(filepath.Ext(name)) != ".go" {
		return KindNone
	}
	if strings.HasSuffix(name, "_test.go") && !includeTests {
		return KindNone
	}
	return KindGo
}
