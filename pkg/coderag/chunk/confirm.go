package chunk

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// ConfirmGoLanguage reports whether code parses as syntactically
// plausible Go, used to confirm (not replace) C4's lexical language
// guess before a code block is tagged "go" — spec §4.5/§4.4 only require
// best-effort detection, so on a parse failure the chunker drops the "go"
// tag (leaving the language empty) but still keeps the block.
//
// Grounded on the teacher's pkg/rag/treesitter/treesitter.go, which
// parses a fresh tree per call because the underlying tree-sitter C
// library is not goroutine-safe.
func ConfirmGoLanguage(code string) bool {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(code))
	if err != nil || tree == nil {
		return false
	}
	return !hasErrorNode(tree.RootNode())
}

func hasErrorNode(n *sitter.Node) bool {
	if n.IsError() || n.IsMissing() {
		return true
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if hasErrorNode(n.Child(i)) {
			return true
		}
	}
	return false
}
