package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ErrDecode is returned when a source file is not valid UTF-8.
var ErrDecode = errors.New("source is not valid UTF-8")

// Parser wraps tree-sitter for Python parsing. A Parser is not safe for
// concurrent use; create one per worker.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed AST and metadata.
type ParseResult struct {
	Tree   *sitter.Tree
	Source []byte
	Path   string
}

// Root returns the module node.
func (r *ParseResult) Root() *sitter.Node {
	return r.Tree.RootNode()
}

// New creates a new parser instance.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{parser: p}
}

// IsPythonFile reports whether path has a Python source extension.
func IsPythonFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py", ".pyw", ".pyi":
		return true
	}
	return false
}

// ParseFile reads and parses a source file.
func (p *Parser) ParseFile(ctx context.Context, path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.Parse(ctx, source, path)
}

// Parse parses Python source. A leading UTF-8 BOM is stripped.
func (p *Parser) Parse(ctx context.Context, source []byte, path string) (*ParseResult, error) {
	source = trimBOM(source)
	if !utf8.Valid(source) {
		return nil, fmt.Errorf("%s: %w", path, ErrDecode)
	}

	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}

	return &ParseResult{
		Tree:   tree,
		Source: source,
		Path:   path,
	}, nil
}

func trimBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// SyntaxError describes the first malformed region of a tree.
type SyntaxError struct {
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Syntax error at line %d: %s", e.Line, e.Message)
}

// FindSyntaxError returns the first ERROR or missing node in document order,
// or nil when the tree parsed cleanly.
func FindSyntaxError(root *sitter.Node, source []byte) *SyntaxError {
	if root == nil || !root.HasError() {
		return nil
	}
	var found *SyntaxError
	Walk(root, source, func(node *sitter.Node, source []byte) bool {
		if found != nil {
			return false
		}
		switch {
		case node.IsMissing():
			found = &SyntaxError{
				Line:    int(node.StartPoint().Row) + 1,
				Message: fmt.Sprintf("missing %q", node.Type()),
			}
			return false
		case node.IsError():
			text := GetNodeText(node, source)
			if i := strings.IndexByte(text, '\n'); i >= 0 {
				text = text[:i]
			}
			found = &SyntaxError{
				Line:    int(node.StartPoint().Row) + 1,
				Message: fmt.Sprintf("invalid syntax near %q", strings.TrimSpace(text)),
			}
			return false
		}
		return node.HasError()
	})
	if found == nil {
		found = &SyntaxError{Line: int(root.StartPoint().Row) + 1, Message: "invalid syntax"}
	}
	return found
}

// Comments maps 1-based line numbers to the comment text found on them.
func Comments(root *sitter.Node, source []byte) map[int]string {
	comments := make(map[int]string)
	WalkTyped(root, source, func(node *sitter.Node, nodeType string, source []byte) bool {
		if nodeType == "comment" {
			line := int(node.StartPoint().Row) + 1
			if prev, ok := comments[line]; ok {
				comments[line] = prev + " " + GetNodeText(node, source)
			} else {
				comments[line] = GetNodeText(node, source)
			}
			return false
		}
		return true
	})
	return comments
}

// NodeVisitor is a function that visits AST nodes.
type NodeVisitor func(node *sitter.Node, source []byte) bool

// TypedNodeVisitor visits AST nodes with pre-cached node type to avoid CGO overhead.
type TypedNodeVisitor func(node *sitter.Node, nodeType string, source []byte) bool

// Walk traverses the AST calling visitor for each node.
func Walk(node *sitter.Node, source []byte, visitor NodeVisitor) {
	if node == nil {
		return
	}

	if !visitor(node, source) {
		return
	}

	for i := range int(node.ChildCount()) {
		Walk(node.Child(i), source, visitor)
	}
}

// WalkTyped traverses the AST with cached node types to reduce CGO overhead.
func WalkTyped(node *sitter.Node, source []byte, visitor TypedNodeVisitor) {
	if node == nil {
		return
	}

	nodeType := node.Type()
	if !visitor(node, nodeType, source) {
		return
	}

	for i := range int(node.ChildCount()) {
		WalkTyped(node.Child(i), source, visitor)
	}
}

// NamedChildren returns the named children of node.
func NamedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	n := int(node.NamedChildCount())
	out := make([]*sitter.Node, 0, n)
	for i := range n {
		out = append(out, node.NamedChild(i))
	}
	return out
}

// GetNodeText extracts the source text for a node.
// Returns empty string if node is nil or byte offsets are out of bounds.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}

// StringValue returns the contents of a plain string literal node, or false
// when node is not a literal without interpolation.
func StringValue(node *sitter.Node, source []byte) (string, bool) {
	if node == nil || node.Type() != "string" {
		return "", false
	}
	var b strings.Builder
	found := false
	for _, child := range NamedChildren(node) {
		switch child.Type() {
		case "string_content":
			b.WriteString(GetNodeText(child, source))
			found = true
		case "interpolation":
			return "", false
		}
	}
	if found {
		return b.String(), true
	}
	// Older grammars expose no content child; strip prefix and quotes.
	return unquote(GetNodeText(node, source))
}

func unquote(text string) (string, bool) {
	text = strings.TrimLeft(text, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(text) >= 2*len(q) && strings.HasPrefix(text, q) && strings.HasSuffix(text, q) {
			return text[len(q) : len(text)-len(q)], true
		}
	}
	return "", false
}
