// File: internal/syntax/syntax.go
package syntax

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// ErrMalformed is wrapped by every syntax failure.
var ErrMalformed = errors.New("source is not well-formed")

// Error locates the first syntax defect. Line and Column are 1-based.
type Error struct {
	Line   int
	Column int
	Kind   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s at line %d, column %d", ErrMalformed, e.Kind, e.Line, e.Column)
}

func (e *Error) Unwrap() error { return ErrMalformed }

// LanguageFor picks a grammar from the file extension. Unknown extensions
// are parsed as TypeScript, the superset most test suites use.
func LanguageFor(filename string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".js", ".mjs", ".cjs", ".jsx":
		return javascript.GetLanguage()
	case ".tsx":
		return tsx.GetLanguage()
	default:
		return typescript.GetLanguage()
	}
}

// Check parses code with the grammar for filename and reports the first
// error or missing node.
func Check(ctx context.Context, filename string, code []byte) error {
	if len(strings.TrimSpace(string(code))) == 0 {
		return fmt.Errorf("%w: empty source", ErrMalformed)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(LanguageFor(filename))

	tree, err := parser.ParseCtx(ctx, nil, code)
	if err != nil {
		return fmt.Errorf("tree-sitter failed to parse %s: %w", filename, err)
	}
	if tree == nil {
		return fmt.Errorf("tree-sitter returned no tree for %s", filename)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || !root.HasError() {
		return nil
	}
	if bad := firstDefect(root); bad != nil {
		kind := "unexpected token"
		if bad.IsMissing() {
			kind = "missing " + bad.Type()
		}
		p := bad.StartPoint()
		return &Error{Line: int(p.Row) + 1, Column: int(p.Column) + 1, Kind: kind}
	}
	return &Error{Line: 1, Column: 1, Kind: "unexpected token"}
}

func firstDefect(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstDefect(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}
