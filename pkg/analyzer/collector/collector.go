package collector

import (
	"bytes"
	"context"
	"errors"
	"os"

	"github.com/panbanda/prune/pkg/parser"
)

// DefaultFactories are constructor names whose assignment target is treated
// as used, since the variable is typically consumed only through decorators.
var DefaultFactories = []string{
	"Flask", "Blueprint", "Celery", "FastAPI", "APIRouter", "Api", "Namespace",
	"create_app", "make_app", "create_celery", "make_celery", "app_factory",
}

// Collector walks parsed files. It holds no per-file state and is safe for
// concurrent use.
type Collector struct {
	factories map[string]struct{}
}

// Option configures a Collector.
type Option func(*Collector)

// WithFactories adds framework factory names to the defaults.
func WithFactories(names ...string) Option {
	return func(c *Collector) {
		for _, n := range names {
			c.factories[n] = struct{}{}
		}
	}
}

// New creates a Collector.
func New(opts ...Option) *Collector {
	c := &Collector{factories: make(map[string]struct{}, len(DefaultFactories))}
	for _, n := range DefaultFactories {
		c.factories[n] = struct{}{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsFactory reports whether name is a known framework factory.
func (c *Collector) IsFactory(name string) bool {
	_, ok := c.factories[name]
	return ok
}

// CollectFile reads, parses and collects path. Read, decode and parse
// failures are reported on the Result rather than returned. The parse
// tree is returned for further inspection and is nil when collection failed;
// callers close it.
func (c *Collector) CollectFile(ctx context.Context, p *parser.Parser, path, module string) (*Result, *parser.ParseResult) {
	source, err := os.ReadFile(path)
	if err != nil {
		res := newResult(path, module)
		res.Error = &FileError{Kind: ErrorOther, Message: err.Error()}
		return res, nil
	}
	return c.CollectSource(ctx, p, source, path, module)
}

// CollectSource parses and collects source as if read from path.
func (c *Collector) CollectSource(ctx context.Context, p *parser.Parser, source []byte, path, module string) (*Result, *parser.ParseResult) {
	parsed, err := p.Parse(ctx, source, path)
	if err != nil {
		res := newResult(path, module)
		res.Lines = countLines(source)
		kind := ErrorOther
		if errors.Is(err, parser.ErrDecode) {
			kind = ErrorDecode
		}
		res.Error = &FileError{Kind: kind, Message: err.Error()}
		return res, nil
	}

	res := c.Collect(parsed, module)
	if res.Failed() {
		parsed.Tree.Close()
		return res, nil
	}
	return res, parsed
}

// Collect walks an already parsed file. A tree containing syntax errors
// yields a Result with only Error set.
func (c *Collector) Collect(parsed *parser.ParseResult, module string) *Result {
	res := newResult(parsed.Path, module)
	res.Lines = countLines(parsed.Source)

	root := parsed.Root()
	if serr := parser.FindSyntaxError(root, parsed.Source); serr != nil {
		res.Error = &FileError{Kind: ErrorSyntax, Line: serr.Line, Message: serr.Message}
		return res
	}

	v := newVisitor(c, parsed.Source, res)
	v.visitChildren(root)
	res.Comments = parser.Comments(root, parsed.Source)
	return res
}

func countLines(source []byte) int {
	if len(source) == 0 {
		return 0
	}
	n := bytes.Count(source, []byte{'\n'})
	if source[len(source)-1] != '\n' {
		n++
	}
	return n
}
