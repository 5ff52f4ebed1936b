package plugins

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/prune/pkg/models"
	"github.com/panbanda/prune/pkg/parser"
)

// DecoratorShape tags the syntactic form of a decorator expression.
type DecoratorShape int

const (
	ShapeOther     DecoratorShape = iota
	ShapeName                     // @shared_task
	ShapeAttribute                // @pytest.fixture
	ShapeCall                     // @app.route("/")
)

// Decorator is a decorator flattened to its callee name segments.
type Decorator struct {
	Shape    DecoratorShape
	Segments []string
	Args     *sitter.Node
}

// Dotted returns the segments joined with dots.
func (d Decorator) Dotted() string {
	return strings.Join(d.Segments, ".")
}

// Tail returns the last n segments, or nil when there are fewer.
func (d Decorator) Tail(n int) []string {
	if len(d.Segments) < n {
		return nil
	}
	return d.Segments[len(d.Segments)-n:]
}

// Last returns the final segment.
func (d Decorator) Last() string {
	if len(d.Segments) == 0 {
		return ""
	}
	return d.Segments[len(d.Segments)-1]
}

// Has reports whether segment appears anywhere in the chain.
func (d Decorator) Has(segment string) bool {
	for _, s := range d.Segments {
		if s == segment {
			return true
		}
	}
	return false
}

// ParseDecorator flattens a decorator node.
func ParseDecorator(n *sitter.Node, src []byte) Decorator {
	if n == nil || n.NamedChildCount() == 0 {
		return Decorator{}
	}
	expr := n.NamedChild(0)
	switch expr.Type() {
	case "identifier":
		return Decorator{Shape: ShapeName, Segments: []string{parser.GetNodeText(expr, src)}}
	case "attribute":
		return Decorator{Shape: ShapeAttribute, Segments: FlattenAttribute(expr, src)}
	case "call":
		return Decorator{
			Shape:    ShapeCall,
			Segments: FlattenAttribute(expr.ChildByFieldName("function"), src),
			Args:     expr.ChildByFieldName("arguments"),
		}
	}
	return Decorator{Shape: ShapeOther}
}

// FlattenAttribute returns the name segments of an identifier or attribute
// chain, or nil when the chain is rooted at something else.
func FlattenAttribute(n *sitter.Node, src []byte) []string {
	var parts []string
	for n != nil {
		switch n.Type() {
		case "identifier":
			parts = append(parts, parser.GetNodeText(n, src))
			reverse(parts)
			return parts
		case "attribute":
			parts = append(parts, parser.GetNodeText(n.ChildByFieldName("attribute"), src))
			n = n.ChildByFieldName("object")
		default:
			return nil
		}
	}
	return nil
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// DefinitionKind distinguishes functions from classes.
type DefinitionKind int

const (
	DefFunction DefinitionKind = iota
	DefClass
)

// Definition is a function or class found by Definitions.
type Definition struct {
	Kind       DefinitionKind
	Name       string
	Node       *sitter.Node
	Decorators []Decorator
	// Class is the directly enclosing class for methods.
	Class string
	// Bases are the dotted base class names of a class.
	Bases []string
}

// Location returns the definition's source location in file.
func (d Definition) Location(file string) models.Location {
	return nodeLocation(d.Node, file)
}

func nodeLocation(n *sitter.Node, file string) models.Location {
	return models.Location{
		File:   file,
		Line:   int(n.StartPoint().Row) + 1,
		Column: int(n.StartPoint().Column),
	}
}

// Definitions returns every function and class in f in document order.
func Definitions(f *File) []Definition {
	var defs []Definition
	collectDefinitions(f.Root, f.Source, "", nil, &defs)
	return defs
}

func collectDefinitions(n *sitter.Node, src []byte, class string, decorators []Decorator, defs *[]Definition) {
	for _, child := range parser.NamedChildren(n) {
		switch child.Type() {
		case "decorated_definition":
			var decs []Decorator
			for _, d := range parser.NamedChildren(child) {
				if d.Type() == "decorator" {
					decs = append(decs, ParseDecorator(d, src))
				}
			}
			if def := child.ChildByFieldName("definition"); def != nil {
				visitDefinition(def, src, class, decs, defs)
			}
		case "function_definition", "class_definition":
			visitDefinition(child, src, class, nil, defs)
		default:
			collectDefinitions(child, src, class, nil, defs)
		}
	}
}

func visitDefinition(n *sitter.Node, src []byte, class string, decorators []Decorator, defs *[]Definition) {
	name := parser.GetNodeText(n.ChildByFieldName("name"), src)
	switch n.Type() {
	case "function_definition":
		*defs = append(*defs, Definition{
			Kind:       DefFunction,
			Name:       name,
			Node:       n,
			Decorators: decorators,
			Class:      class,
		})
		collectDefinitions(n.ChildByFieldName("body"), src, "", nil, defs)
	case "class_definition":
		var bases []string
		for _, b := range parser.NamedChildren(n.ChildByFieldName("superclasses")) {
			if segs := FlattenAttribute(b, src); segs != nil {
				bases = append(bases, strings.Join(segs, "."))
			}
		}
		*defs = append(*defs, Definition{
			Kind:       DefClass,
			Name:       name,
			Node:       n,
			Decorators: decorators,
			Class:      class,
			Bases:      bases,
		})
		collectDefinitions(n.ChildByFieldName("body"), src, name, nil, defs)
	}
}

// Calls returns every call expression in f in document order.
func Calls(f *File) []*sitter.Node {
	var calls []*sitter.Node
	parser.WalkTyped(f.Root, f.Source, func(n *sitter.Node, nodeType string, _ []byte) bool {
		if nodeType == "call" {
			calls = append(calls, n)
		}
		return true
	})
	return calls
}

// IsMainBlock reports whether n is `if __name__ == "__main__":`.
func IsMainBlock(n *sitter.Node, src []byte) bool {
	if n == nil || n.Type() != "if_statement" {
		return false
	}
	cond := n.ChildByFieldName("condition")
	if cond == nil || cond.Type() != "comparison_operator" || cond.NamedChildCount() != 2 {
		return false
	}
	if !strings.Contains(parser.GetNodeText(cond, src), "==") {
		return false
	}
	left, right := cond.NamedChild(0), cond.NamedChild(1)
	if left.Type() != "identifier" {
		left, right = right, left
	}
	if left.Type() != "identifier" || parser.GetNodeText(left, src) != "__name__" {
		return false
	}
	s, ok := parser.StringValue(right, src)
	return ok && s == "__main__"
}

// MainBlocks returns the top-level `if __name__ == "__main__":` statements.
func MainBlocks(f *File) []*sitter.Node {
	var out []*sitter.Node
	for _, child := range parser.NamedChildren(f.Root) {
		if IsMainBlock(child, f.Source) {
			out = append(out, child)
		}
	}
	return out
}

// PositionalArgs returns the positional arguments of an argument list.
func PositionalArgs(args *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, a := range parser.NamedChildren(args) {
		switch a.Type() {
		case "keyword_argument", "list_splat", "dictionary_splat", "comment":
			continue
		}
		out = append(out, a)
	}
	return out
}

// KeywordArg returns the value of keyword argument name.
func KeywordArg(args *sitter.Node, name string, src []byte) *sitter.Node {
	for _, a := range parser.NamedChildren(args) {
		if a.Type() == "keyword_argument" && parser.GetNodeText(a.ChildByFieldName("name"), src) == name {
			return a.ChildByFieldName("value")
		}
	}
	return nil
}

// ExtractArguments converts decorator call arguments to plain values:
// literals become Go values, anything else its source text. Positional
// arguments are stored under "positional".
func ExtractArguments(args *sitter.Node, src []byte) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any)
	var positional []any
	for _, a := range parser.NamedChildren(args) {
		switch a.Type() {
		case "keyword_argument":
			out[parser.GetNodeText(a.ChildByFieldName("name"), src)] = literalValue(a.ChildByFieldName("value"), src)
		case "comment", "list_splat", "dictionary_splat":
		default:
			positional = append(positional, literalValue(a, src))
		}
	}
	if len(positional) > 0 {
		out["positional"] = positional
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func literalValue(n *sitter.Node, src []byte) any {
	if n == nil {
		return nil
	}
	text := parser.GetNodeText(n, src)
	switch n.Type() {
	case "string":
		if s, ok := parser.StringValue(n, src); ok {
			return s
		}
	case "integer":
		if v, err := strconv.ParseInt(text, 0, 64); err == nil {
			return v
		}
	case "float":
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			return v
		}
	case "true":
		return true
	case "false":
		return false
	case "none":
		return nil
	case "list", "tuple":
		items := make([]any, 0, n.NamedChildCount())
		for _, c := range parser.NamedChildren(n) {
			items = append(items, literalValue(c, src))
		}
		return items
	}
	return text
}

// stringSet builds a lookup set.
func stringSet(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, i := range items {
		m[i] = true
	}
	return m
}

// factoryEntrypoints reports top-level definitions named like factories.
func factoryEntrypoints(f *File, defs []Definition, factories map[string]bool) []models.DetectedEntrypoint {
	var out []models.DetectedEntrypoint
	for _, d := range defs {
		if d.Kind == DefFunction && factories[d.Name] {
			out = append(out, models.DetectedEntrypoint{
				Name:     d.Name,
				Type:     models.EntrypointFactoryFunction,
				Location: d.Location(f.Path),
			})
		}
	}
	return out
}
