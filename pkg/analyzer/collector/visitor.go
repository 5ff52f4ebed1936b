package collector

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/prune/pkg/models"
	"github.com/panbanda/prune/pkg/parser"
	"github.com/panbanda/prune/pkg/plugins"
)

type frameKind int

const (
	frameModule frameKind = iota
	frameClass
	frameFunction
	frameComprehension
)

// classContext is the base-class list of the class whose body is being
// walked. Methods copy it into ParentClasses.
type classContext struct {
	parents []string
}

type frame struct {
	kind   frameKind
	qname  string
	locals map[string]struct{}
	class  *classContext
}

type handler func(v *visitor, n *sitter.Node)

var handlers map[string]handler

func init() {
	handlers = map[string]handler{
		"decorated_definition":     (*visitor).visitDecorated,
		"function_definition":      func(v *visitor, n *sitter.Node) { v.visitFunction(n, nil) },
		"class_definition":         func(v *visitor, n *sitter.Node) { v.visitClass(n, nil) },
		"assignment":               (*visitor).visitAssignment,
		"augmented_assignment":     (*visitor).visitAugmented,
		"for_statement":            (*visitor).visitFor,
		"with_statement":           (*visitor).visitChildren,
		"if_statement":             (*visitor).visitIf,
		"with_item":                (*visitor).visitWithItem,
		"except_clause":            (*visitor).visitExcept,
		"except_group_clause":      (*visitor).visitExcept,
		"list_comprehension":       (*visitor).visitComprehension,
		"set_comprehension":        (*visitor).visitComprehension,
		"dictionary_comprehension": (*visitor).visitComprehension,
		"generator_expression":     (*visitor).visitComprehension,
		"lambda":                   (*visitor).visitLambda,
		"named_expression":         (*visitor).visitNamedExpression,
		"import_statement":         (*visitor).visitImport,
		"import_from_statement":    (*visitor).visitImportFrom,
		"future_import_statement":  func(*visitor, *sitter.Node) {},
		"global_statement":         func(*visitor, *sitter.Node) {},
		"nonlocal_statement":       func(*visitor, *sitter.Node) {},
		"comment":                  func(*visitor, *sitter.Node) {},
		"identifier":               (*visitor).visitIdentifier,
		"attribute":                (*visitor).visitAttribute,
		"call":                     (*visitor).visitCall,
		"keyword_argument":         (*visitor).visitKeywordArgument,
		"string":                   (*visitor).visitString,
		"type":                     (*visitor).visitAnnotation,
	}
}

var reflectionCalls = map[string]bool{
	"getattr": true, "hasattr": true, "setattr": true, "delattr": true,
}

var registryCalls = map[string]bool{
	"register": true, "add": true, "append": true,
	"extend": true, "update": true, "include": true,
}

var signalCalls = map[string]bool{
	"connect": true, "connect_via": true,
}

type visitor struct {
	c      *Collector
	src    []byte
	res    *Result
	frames []frame
	// inMain is set while walking a top-level `if __name__ == "__main__":`.
	inMain bool
}

func newVisitor(c *Collector, src []byte, res *Result) *visitor {
	return &visitor{
		c:   c,
		src: src,
		res: res,
		frames: []frame{{
			kind:   frameModule,
			qname:  res.Module,
			locals: make(map[string]struct{}),
		}},
	}
}

func (v *visitor) visit(n *sitter.Node) {
	if n == nil {
		return
	}
	if h, ok := handlers[n.Type()]; ok {
		h(v, n)
		return
	}
	v.visitChildren(n)
}

func (v *visitor) visitChildren(n *sitter.Node) {
	for _, child := range parser.NamedChildren(n) {
		v.visit(child)
	}
}

func (v *visitor) text(n *sitter.Node) string {
	return parser.GetNodeText(n, v.src)
}

// Scope handling.

func (v *visitor) top() *frame {
	return &v.frames[len(v.frames)-1]
}

func (v *visitor) push(kind frameKind, name string, class *classContext) {
	qname := v.scope()
	if kind != frameComprehension {
		qname = joinName(qname, name)
	}
	v.frames = append(v.frames, frame{
		kind:   kind,
		qname:  qname,
		locals: make(map[string]struct{}),
		class:  class,
	})
}

func (v *visitor) pop() {
	v.frames = v.frames[:len(v.frames)-1]
}

// scope is the qualified name of the innermost named scope.
func (v *visitor) scope() string {
	return v.top().qname
}

// namedKind is the kind of the innermost non-comprehension frame.
func (v *visitor) namedKind() frameKind {
	for i := len(v.frames) - 1; i >= 0; i-- {
		if v.frames[i].kind != frameComprehension {
			return v.frames[i].kind
		}
	}
	return frameModule
}

// caller is the qualified name of the nearest enclosing function. Module
// level code inside a script entry block is attributed to the pseudo
// function `<module>.__main__`; other module level code has no caller.
func (v *visitor) caller() string {
	for i := len(v.frames) - 1; i >= 0; i-- {
		if v.frames[i].kind == frameFunction {
			return v.frames[i].qname
		}
	}
	if v.inMain {
		return MainCaller(v.res.Module)
	}
	return ""
}

// MainCaller is the caller recorded for usages inside module's script
// entry block.
func MainCaller(module string) string {
	return joinName(module, plugins.MainBlockName)
}

func (v *visitor) visitIf(n *sitter.Node) {
	if len(v.frames) == 1 && !v.inMain && plugins.IsMainBlock(n, v.src) {
		v.inMain = true
		defer func() { v.inMain = false }()
	}
	v.visitChildren(n)
}

// isLocal reports whether name is bound in an enclosing scope. Class-body
// bindings are only visible from the class body itself, not from methods
// or nested scopes.
func (v *visitor) isLocal(name string) bool {
	for i := len(v.frames) - 1; i >= 0; i-- {
		if v.frames[i].kind == frameClass && i != len(v.frames)-1 {
			continue
		}
		if _, ok := v.frames[i].locals[name]; ok {
			return true
		}
	}
	return false
}

func (v *visitor) addLocal(name string) {
	v.top().locals[name] = struct{}{}
}

func joinName(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}

// Recording.

func (v *visitor) location(n *sitter.Node) models.Location {
	start, end := n.StartPoint(), n.EndPoint()
	return models.Location{
		File:      v.res.File,
		Line:      int(start.Row) + 1,
		Column:    int(start.Column),
		EndLine:   int(end.Row) + 1,
		EndColumn: int(end.Column),
	}
}

func (v *visitor) use(name string, ctx models.UsageContext, n *sitter.Node) {
	if name == "" {
		return
	}
	loc := v.location(n)
	loc.EndLine, loc.EndColumn = 0, 0
	v.res.Usages = append(v.res.Usages, models.Usage{
		SymbolName: name,
		Context:    ctx,
		Location:   loc,
		Caller:     v.caller(),
	})
}

// define records a symbol. Only functions and methods carry the dunder and
// private flags.
func (v *visitor) define(name string, kind models.SymbolKind, n *sitter.Node, decorators []string, parents []string) {
	callable := kind == models.KindFunction || kind == models.KindMethod
	v.res.define(models.Symbol{
		Name:          name,
		QualifiedName: joinName(v.scope(), name),
		Kind:          kind,
		Location:      v.location(n),
		Scope:         v.scope(),
		Decorators:    decorators,
		IsDunder:      callable && models.IsDunderName(name),
		IsPrivate:     callable && models.IsPrivateName(name),
		ParentClasses: parents,
	})
}

// Definitions.

func (v *visitor) visitDecorated(n *sitter.Node) {
	var decorators []*sitter.Node
	for _, child := range parser.NamedChildren(n) {
		if child.Type() == "decorator" {
			decorators = append(decorators, child)
		}
	}
	def := n.ChildByFieldName("definition")
	if def == nil {
		return
	}
	switch def.Type() {
	case "function_definition":
		v.visitFunction(def, decorators)
	case "class_definition":
		v.visitClass(def, decorators)
	default:
		v.visit(def)
	}
}

// recordDecorators captures decorator source text and records each
// decorator expression as a usage in the enclosing scope.
func (v *visitor) recordDecorators(decorators []*sitter.Node) []string {
	if len(decorators) == 0 {
		return nil
	}
	texts := make([]string, 0, len(decorators))
	for _, dec := range decorators {
		texts = append(texts, strings.TrimSpace(strings.TrimPrefix(v.text(dec), "@")))
		if dec.NamedChildCount() == 0 {
			continue
		}
		expr := dec.NamedChild(0)
		switch expr.Type() {
		case "call":
			fn := expr.ChildByFieldName("function")
			v.use(calleeName(fn, v.src), models.UsageDecorator, fn)
			if fn != nil && fn.Type() == "attribute" {
				v.visit(fn.ChildByFieldName("object"))
			}
			v.visit(expr.ChildByFieldName("arguments"))
		case "identifier":
			v.use(v.text(expr), models.UsageDecorator, expr)
		case "attribute":
			v.use(v.text(expr.ChildByFieldName("attribute")), models.UsageDecorator, expr)
			v.visit(expr.ChildByFieldName("object"))
		default:
			v.visit(expr)
		}
	}
	return texts
}

func (v *visitor) visitFunction(n *sitter.Node, decorators []*sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := v.text(nameNode)

	decTexts := v.recordDecorators(decorators)

	kind := models.KindFunction
	var parents []string
	if v.top().kind == frameClass {
		kind = models.KindMethod
		if cls := v.top().class; cls != nil && len(cls.parents) > 0 {
			parents = append([]string(nil), cls.parents...)
		}
	}
	v.define(name, kind, n, decTexts, parents)

	params := n.ChildByFieldName("parameters")
	// Defaults evaluate in the enclosing scope.
	v.visitParameterDefaults(params)

	v.push(frameFunction, name, nil)
	v.bindParameters(params)
	v.visitParameterAnnotations(params)
	v.visit(n.ChildByFieldName("return_type"))
	v.visit(n.ChildByFieldName("body"))
	v.pop()
}

func (v *visitor) visitParameterDefaults(params *sitter.Node) {
	for _, p := range parser.NamedChildren(params) {
		switch p.Type() {
		case "default_parameter", "typed_default_parameter":
			v.visit(p.ChildByFieldName("value"))
		}
	}
}

func (v *visitor) visitParameterAnnotations(params *sitter.Node) {
	for _, p := range parser.NamedChildren(params) {
		switch p.Type() {
		case "typed_parameter", "typed_default_parameter":
			v.visit(p.ChildByFieldName("type"))
		}
	}
}

func (v *visitor) bindParameters(params *sitter.Node) {
	for _, p := range parser.NamedChildren(params) {
		switch p.Type() {
		case "identifier":
			v.addLocal(v.text(p))
		case "default_parameter", "typed_default_parameter":
			v.bindPattern(p.ChildByFieldName("name"))
		case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
			for _, c := range parser.NamedChildren(p) {
				if c.Type() == "type" {
					continue
				}
				v.bindPattern(c)
			}
		}
	}
}

// bindPattern marks every identifier in a target pattern as local.
func (v *visitor) bindPattern(n *sitter.Node) {
	if n == nil {
		return
	}
	if n.Type() == "identifier" {
		v.addLocal(v.text(n))
		return
	}
	for _, c := range parser.NamedChildren(n) {
		v.bindPattern(c)
	}
}

func (v *visitor) visitClass(n *sitter.Node, decorators []*sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := v.text(nameNode)
	decTexts := v.recordDecorators(decorators)

	var parents []string
	for _, base := range parser.NamedChildren(n.ChildByFieldName("superclasses")) {
		switch base.Type() {
		case "identifier":
			parents = append(parents, v.text(base))
			v.use(v.text(base), models.UsageInheritance, base)
		case "attribute":
			parents = append(parents, v.text(base))
			v.use(v.text(base.ChildByFieldName("attribute")), models.UsageInheritance, base)
			v.visit(base.ChildByFieldName("object"))
		case "subscript":
			value := base.ChildByFieldName("value")
			parents = append(parents, v.text(value))
			v.use(lastSegment(v.text(value)), models.UsageInheritance, base)
			v.visitChildren(base)
		case "keyword_argument":
			v.visit(base.ChildByFieldName("value"))
		default:
			v.visit(base)
		}
	}

	v.define(name, models.KindClass, n, decTexts, parents)

	v.push(frameClass, name, &classContext{parents: parents})
	v.visit(n.ChildByFieldName("body"))
	v.pop()
}

// Assignments.

func (v *visitor) visitAssignment(n *sitter.Node) {
	var targets []*sitter.Node
	var value *sitter.Node
	cur := n
	for {
		targets = append(targets, cur.ChildByFieldName("left"))
		v.visit(cur.ChildByFieldName("type"))
		right := cur.ChildByFieldName("right")
		if right != nil && right.Type() == "assignment" {
			cur = right
			continue
		}
		value = right
		break
	}

	if v.top().kind == frameClass && len(targets) == 1 && v.text(targets[0]) == "__tablename__" {
		if table, ok := parser.StringValue(value, v.src); ok {
			if v.res.Tables == nil {
				v.res.Tables = make(map[string]string)
			}
			v.res.Tables[lastSegment(v.scope())] = table
		}
	}

	factory := value != nil && value.Type() == "call" &&
		v.c.IsFactory(calleeName(value.ChildByFieldName("function"), v.src))

	for _, target := range targets {
		if target == nil {
			continue
		}
		switch target.Type() {
		case "subscript":
			if value != nil && value.Type() == "identifier" {
				v.use(v.text(value), models.UsageReference, value)
			}
			v.visitChildren(target)
		case "attribute":
			v.visit(target.ChildByFieldName("object"))
		case "identifier":
			if factory {
				v.res.Usages = append(v.res.Usages, models.Usage{
					SymbolName: v.text(target),
					Context:    models.UsageReference,
					Location:   v.location(target),
				})
			}
			v.recordTarget(target, true)
		default:
			v.recordTarget(target, true)
		}
	}
	v.visit(value)
}

func (v *visitor) visitAugmented(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	if left != nil && left.Type() == "identifier" {
		name := v.text(left)
		v.use(name, models.UsageReference, left)
		if v.namedKind() != frameModule {
			v.addLocal(name)
		}
	} else {
		v.visit(left)
	}
	v.visit(n.ChildByFieldName("right"))
}

// recordTarget binds an assignment target. Module-level identifiers become
// symbols when define is set; everywhere else they are local.
func (v *visitor) recordTarget(n *sitter.Node, define bool) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier":
		name := v.text(n)
		if define && v.top().kind == frameModule {
			kind := models.KindVariable
			if isUpper(name) {
				kind = models.KindConstant
			}
			v.define(name, kind, n, nil, nil)
			return
		}
		v.addLocal(name)
	case "pattern_list", "tuple_pattern", "list_pattern", "expression_list", "tuple", "list",
		"list_splat_pattern", "list_splat", "parenthesized_expression":
		for _, c := range parser.NamedChildren(n) {
			v.recordTarget(c, define)
		}
	case "subscript":
		v.visitChildren(n)
	case "attribute":
		v.visit(n.ChildByFieldName("object"))
	}
}

func (v *visitor) visitFor(n *sitter.Node) {
	v.visit(n.ChildByFieldName("right"))
	v.recordTarget(n.ChildByFieldName("left"), true)
	v.visit(n.ChildByFieldName("body"))
	v.visit(n.ChildByFieldName("alternative"))
}

func (v *visitor) visitWithItem(n *sitter.Node) {
	value := n.ChildByFieldName("value")
	if value != nil && value.Type() == "as_pattern" {
		v.visitAsPattern(value)
		return
	}
	v.visit(value)
}

// visitAsPattern visits the bound expression and marks the alias local.
func (v *visitor) visitAsPattern(n *sitter.Node) {
	alias := n.ChildByFieldName("alias")
	for _, c := range parser.NamedChildren(n) {
		if alias != nil && c.Equal(alias) {
			continue
		}
		if c.Type() == "as_pattern_target" {
			continue
		}
		v.visit(c)
	}
	if alias != nil {
		v.recordTarget(unwrapTarget(alias), false)
	}
}

func unwrapTarget(n *sitter.Node) *sitter.Node {
	if n.Type() == "as_pattern_target" && n.NamedChildCount() > 0 {
		return n.NamedChild(0)
	}
	return n
}

func (v *visitor) visitExcept(n *sitter.Node) {
	afterAs := false
	for i := range int(n.ChildCount()) {
		c := n.Child(i)
		if !c.IsNamed() {
			afterAs = c.Type() == "as"
			continue
		}
		switch {
		case c.Type() == "as_pattern":
			v.visitAsPattern(c)
		case afterAs && c.Type() == "identifier":
			v.addLocal(v.text(c))
		default:
			v.visit(c)
		}
		afterAs = false
	}
}

func (v *visitor) visitComprehension(n *sitter.Node) {
	v.push(frameComprehension, "", nil)
	var conditions []*sitter.Node
	for _, c := range parser.NamedChildren(n) {
		switch c.Type() {
		case "for_in_clause":
			for _, r := range namedChildrenByField(c, "right") {
				v.visit(r)
			}
			v.recordTarget(c.ChildByFieldName("left"), false)
		case "if_clause":
			conditions = append(conditions, c)
		}
	}
	for _, c := range conditions {
		v.visitChildren(c)
	}
	v.visit(n.ChildByFieldName("body"))
	v.pop()
}

func (v *visitor) visitLambda(n *sitter.Node) {
	params := n.ChildByFieldName("parameters")
	v.visitParameterDefaults(params)
	v.push(frameComprehension, "", nil)
	v.bindParameters(params)
	v.visit(n.ChildByFieldName("body"))
	v.pop()
}

func (v *visitor) visitNamedExpression(n *sitter.Node) {
	v.visit(n.ChildByFieldName("value"))
	if name := n.ChildByFieldName("name"); name != nil {
		v.addLocal(v.text(name))
	}
}

// Imports.

func (v *visitor) visitImport(n *sitter.Node) {
	for _, c := range namedChildrenByField(n, "name") {
		module, alias := v.importName(c)
		if module == "" {
			continue
		}
		name := alias
		if name == "" {
			name, _, _ = strings.Cut(module, ".")
		}
		v.res.Imports = append(v.res.Imports, models.ImportRecord{
			Module:   module,
			Alias:    alias,
			Location: v.location(n),
		})
		v.define(name, models.KindImport, n, nil, nil)
	}
}

func (v *visitor) visitImportFrom(n *sitter.Node) {
	moduleNode := n.ChildByFieldName("module_name")
	if moduleNode == nil {
		return
	}
	module, level := v.text(moduleNode), 0
	if moduleNode.Type() == "relative_import" {
		module = ""
		for _, c := range parser.NamedChildren(moduleNode) {
			switch c.Type() {
			case "import_prefix":
				level = strings.Count(v.text(c), ".")
			case "dotted_name":
				module = v.text(c)
			}
		}
	}

	for _, c := range parser.NamedChildren(n) {
		if c.Type() == "wildcard_import" {
			v.res.Imports = append(v.res.Imports, models.ImportRecord{
				Module:     module,
				Name:       "*",
				IsRelative: level > 0,
				Level:      level,
				Location:   v.location(n),
			})
			return
		}
	}

	for _, c := range namedChildrenByField(n, "name") {
		name, alias := v.importName(c)
		if name == "" {
			continue
		}
		v.res.Imports = append(v.res.Imports, models.ImportRecord{
			Module:     module,
			Name:       name,
			Alias:      alias,
			IsRelative: level > 0,
			Level:      level,
			Location:   v.location(n),
		})
		bound := alias
		if bound == "" {
			bound = name
		}
		v.define(bound, models.KindImport, n, nil, nil)
	}
}

func (v *visitor) importName(n *sitter.Node) (name, alias string) {
	if n.Type() == "aliased_import" {
		return v.text(n.ChildByFieldName("name")), v.text(n.ChildByFieldName("alias"))
	}
	return v.text(n), ""
}

// Expressions.

func (v *visitor) visitIdentifier(n *sitter.Node) {
	name := v.text(n)
	if v.isLocal(name) {
		return
	}
	v.use(name, models.UsageReference, n)
}

func (v *visitor) visitAttribute(n *sitter.Node) {
	obj := n.ChildByFieldName("object")
	attr := v.text(n.ChildByFieldName("attribute"))
	v.use(attr, models.UsageAttribute, n)

	if obj != nil && obj.Type() == "identifier" {
		base := v.text(obj)
		if attr == "query" {
			v.use(base, models.UsageORMReference, obj)
		}
		if !v.isLocal(base) {
			v.use(base, models.UsageAttribute, obj)
		}
	}
	v.visit(obj)
}

func (v *visitor) visitKeywordArgument(n *sitter.Node) {
	v.visit(n.ChildByFieldName("value"))
}

func (v *visitor) visitString(n *sitter.Node) {
	for _, c := range parser.NamedChildren(n) {
		if c.Type() == "interpolation" {
			v.visitChildren(c)
		}
	}
}

// visitAnnotation records every name in a type expression as a type hint.
// String annotations are skipped.
func (v *visitor) visitAnnotation(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "string", "none", "integer", "float", "true", "false", "comment":
		return
	case "identifier":
		v.use(v.text(n), models.UsageTypeHint, n)
		return
	case "attribute":
		v.use(v.text(n.ChildByFieldName("attribute")), models.UsageTypeHint, n)
		v.visitAnnotation(n.ChildByFieldName("object"))
		return
	case "keyword_argument":
		v.visitAnnotation(n.ChildByFieldName("value"))
		return
	}
	for _, c := range parser.NamedChildren(n) {
		v.visitAnnotation(c)
	}
}

func (v *visitor) visitCall(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")
	name := calleeName(fn, v.src)
	v.use(name, models.UsageCall, fn)

	positional := positionalArgs(args)

	if fn != nil && fn.Type() == "identifier" && reflectionCalls[name] && len(positional) >= 2 {
		if s, ok := parser.StringValue(positional[1], v.src); ok {
			v.use(s, models.UsageAttribute, positional[1])
		}
	}

	if fn != nil && fn.Type() == "attribute" {
		switch {
		case signalCalls[name]:
			for _, a := range positional {
				if a.Type() == "identifier" {
					v.use(v.text(a), models.UsageReference, a)
				}
			}
		case registryCalls[name]:
			v.recordRegistryArgs(positional)
		case name == "query" && isSessionObject(fn.ChildByFieldName("object"), v.src):
			for _, a := range positional {
				if a.Type() == "identifier" {
					v.use(v.text(a), models.UsageORMReference, a)
				}
			}
		}
	}

	v.recordORMCall(name, args, positional)

	v.visit(fn)
	v.visit(args)
}

func (v *visitor) recordRegistryArgs(args []*sitter.Node) {
	for _, a := range args {
		switch a.Type() {
		case "identifier":
			v.use(v.text(a), models.UsageReference, a)
		case "list", "tuple", "set":
			for _, e := range parser.NamedChildren(a) {
				if e.Type() == "identifier" {
					v.use(v.text(e), models.UsageReference, e)
				}
			}
		case "dictionary":
			for _, p := range parser.NamedChildren(a) {
				if p.Type() != "pair" {
					continue
				}
				if val := p.ChildByFieldName("value"); val != nil && val.Type() == "identifier" {
					v.use(v.text(val), models.UsageReference, val)
				}
			}
		}
	}
}

// recordORMCall records model and table names referenced by SQLAlchemy
// relationship helpers.
func (v *visitor) recordORMCall(name string, args *sitter.Node, positional []*sitter.Node) {
	switch name {
	case "relationship":
		if len(positional) > 0 {
			first := positional[0]
			if s, ok := parser.StringValue(first, v.src); ok {
				v.use(s, models.UsageORMReference, first)
			} else if first.Type() == "identifier" {
				v.use(v.text(first), models.UsageORMReference, first)
			}
		}
		for _, kw := range parser.NamedChildren(args) {
			if kw.Type() != "keyword_argument" || v.text(kw.ChildByFieldName("name")) != "backref" {
				continue
			}
			val := kw.ChildByFieldName("value")
			if s, ok := parser.StringValue(val, v.src); ok {
				v.use(s, models.UsageORMReference, val)
			}
		}
	case "ForeignKey":
		if len(positional) > 0 {
			if s, ok := parser.StringValue(positional[0], v.src); ok {
				table, _, _ := strings.Cut(s, ".")
				v.use(table, models.UsageORMReference, positional[0])
			}
		}
	case "backref":
		if len(positional) > 0 {
			if s, ok := parser.StringValue(positional[0], v.src); ok {
				v.use(s, models.UsageORMReference, positional[0])
			}
		}
	}
}

// Helpers.

func calleeName(fn *sitter.Node, src []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return parser.GetNodeText(fn, src)
	case "attribute":
		return parser.GetNodeText(fn.ChildByFieldName("attribute"), src)
	}
	return ""
}

func isSessionObject(obj *sitter.Node, src []byte) bool {
	if obj == nil {
		return false
	}
	switch obj.Type() {
	case "identifier":
		name := parser.GetNodeText(obj, src)
		return name == "session" || name == "Session"
	case "attribute":
		return parser.GetNodeText(obj.ChildByFieldName("attribute"), src) == "session"
	}
	return false
}

func positionalArgs(args *sitter.Node) []*sitter.Node {
	if args == nil || args.Type() != "argument_list" {
		return nil
	}
	var out []*sitter.Node
	for _, a := range parser.NamedChildren(args) {
		switch a.Type() {
		case "keyword_argument", "dictionary_splat", "list_splat", "comment":
			continue
		}
		out = append(out, a)
	}
	return out
}

func namedChildrenByField(n *sitter.Node, field string) []*sitter.Node {
	var out []*sitter.Node
	for i := range int(n.ChildCount()) {
		if n.FieldNameForChild(i) == field {
			out = append(out, n.Child(i))
		}
	}
	return out
}

func lastSegment(dotted string) string {
	if i := strings.LastIndexByte(dotted, '.'); i >= 0 {
		return dotted[i+1:]
	}
	return dotted
}

// isUpper reports whether name has at least one cased rune and no
// lower-case runes.
func isUpper(name string) bool {
	cased := false
	for _, r := range name {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}
