package collector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/prune/pkg/models"
	"github.com/panbanda/prune/pkg/parser"
)

func collect(t *testing.T, code string) *Result {
	t.Helper()
	p := parser.New()
	defer p.Close()

	res, tree := New().CollectSource(context.Background(), p, []byte(code), "app.py", "app")
	if tree != nil {
		tree.Tree.Close()
	}
	require.Nil(t, res.Error, "unexpected file error: %v", res.Error)
	return res
}

func usagesOf(res *Result, name string) []models.Usage {
	var out []models.Usage
	for _, u := range res.Usages {
		if u.SymbolName == name {
			out = append(out, u)
		}
	}
	return out
}

func hasUsage(res *Result, name string, ctx models.UsageContext) bool {
	for _, u := range usagesOf(res, name) {
		if u.Context == ctx {
			return true
		}
	}
	return false
}

func TestCollect_Definitions(t *testing.T) {
	res := collect(t, `
import os
from typing import List as L

MAX_SIZE = 10
counter = 0

def helper(x):
    return x

class Service(Base):
    def run(self):
        pass

    async def stop(self):
        pass

    def __init__(self):
        pass

    def _reset(self):
        pass

__version__ = "1.0"
_cache = {}

class _Hidden:
    pass

def _private():
    pass
`)

	tests := []struct {
		qname   string
		kind    models.SymbolKind
		private bool
		dunder  bool
	}{
		{"app.os", models.KindImport, false, false},
		{"app.L", models.KindImport, false, false},
		{"app.MAX_SIZE", models.KindConstant, false, false},
		{"app.counter", models.KindVariable, false, false},
		{"app.helper", models.KindFunction, false, false},
		{"app.Service", models.KindClass, false, false},
		{"app.Service.run", models.KindMethod, false, false},
		{"app.Service.stop", models.KindMethod, false, false},
		{"app.Service.__init__", models.KindMethod, false, true},
		{"app.Service._reset", models.KindMethod, true, false},
		{"app.__version__", models.KindVariable, false, false},
		{"app._cache", models.KindVariable, false, false},
		{"app._Hidden", models.KindClass, false, false},
		{"app._private", models.KindFunction, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.qname, func(t *testing.T) {
			sym, ok := res.Symbol(tt.qname)
			require.True(t, ok, "missing symbol %s", tt.qname)
			assert.Equal(t, tt.kind, sym.Kind)
			assert.Equal(t, tt.private, sym.IsPrivate)
			assert.Equal(t, tt.dunder, sym.IsDunder)
			assert.Equal(t, "app.py", sym.Location.File)
		})
	}

	// Locals never become symbols.
	_, ok := res.Symbol("app.helper.x")
	assert.False(t, ok)
}

func TestCollect_QualifiedNamesUnique(t *testing.T) {
	res := collect(t, `
def f():
    pass

def f():
    return 1
`)
	count := 0
	for _, s := range res.Symbols {
		if s.QualifiedName == "app.f" {
			count++
			assert.Equal(t, 5, s.Location.Line)
		}
	}
	assert.Equal(t, 1, count)
}

func TestCollect_MethodsInheritParentClasses(t *testing.T) {
	res := collect(t, `
class UserResource(Resource, mixins.Auditable):
    def get(self):
        def inner():
            pass
        return inner()
`)
	cls, ok := res.Symbol("app.UserResource")
	require.True(t, ok)
	assert.Equal(t, []string{"Resource", "mixins.Auditable"}, cls.ParentClasses)

	get, ok := res.Symbol("app.UserResource.get")
	require.True(t, ok)
	assert.Equal(t, models.KindMethod, get.Kind)
	assert.Equal(t, []string{"Resource", "mixins.Auditable"}, get.ParentClasses)

	inner, ok := res.Symbol("app.UserResource.get.inner")
	require.True(t, ok)
	assert.Equal(t, models.KindFunction, inner.Kind)
	assert.Empty(t, inner.ParentClasses)

	assert.True(t, hasUsage(res, "Resource", models.UsageInheritance))
	assert.True(t, hasUsage(res, "Auditable", models.UsageInheritance))
}

func TestCollect_Decorators(t *testing.T) {
	res := collect(t, `
from flask import Flask

app = Flask(__name__)

@app.route("/", methods=["GET"])
@login_required
def index():
    return "ok"
`)
	sym, ok := res.Symbol("app.index")
	require.True(t, ok)
	assert.Equal(t, []string{`app.route("/", methods=["GET"])`, "login_required"}, sym.Decorators)

	for _, u := range usagesOf(res, "route") {
		assert.Equal(t, models.UsageDecorator, u.Context)
		assert.Empty(t, u.Caller, "decorator usages belong to the enclosing scope")
	}
	assert.True(t, hasUsage(res, "login_required", models.UsageDecorator))

	// Factory assignment marks the target used.
	factoryUse := false
	for _, u := range usagesOf(res, "app") {
		if u.Context == models.UsageReference && u.Location.Line == 4 {
			factoryUse = true
		}
	}
	assert.True(t, factoryUse)
}

func TestCollect_TypeHints(t *testing.T) {
	res := collect(t, `
def load(path: Optional[Path], opts: dict[str, Config] = None) -> List[Record]:
    x: "Forward" = None
    return []

value: Settings | None = None
`)
	for _, name := range []string{"Optional", "Path", "Config", "List", "Record", "Settings"} {
		assert.True(t, hasUsage(res, name, models.UsageTypeHint), "expected type hint usage of %s", name)
	}
	assert.Empty(t, usagesOf(res, "Forward"))

	for _, u := range usagesOf(res, "Path") {
		assert.Equal(t, "app.load", u.Caller)
	}
}

func TestCollect_LocalsSuppressReads(t *testing.T) {
	res := collect(t, `
def process(items, *args, **kwargs):
    for item in items:
        print(item)
    squares = [n * n for n in range(10)]
    with open("f") as fh:
        fh.read()
    try:
        pass
    except ValueError as err:
        log(err)
    return squares, args, kwargs

total = sum(v for v in values)
`)
	for _, name := range []string{"items", "item", "n", "fh", "err", "squares", "args", "kwargs", "v"} {
		for _, u := range usagesOf(res, name) {
			assert.NotEqual(t, models.UsageReference, u.Context, "%s should be local", name)
		}
	}
	assert.True(t, hasUsage(res, "values", models.UsageReference))
	assert.True(t, hasUsage(res, "ValueError", models.UsageReference))
	assert.True(t, hasUsage(res, "log", models.UsageCall))

	_, ok := res.Symbol("app.v")
	assert.False(t, ok, "comprehension targets are not symbols")
}

func TestCollect_ModuleLevelDestructuring(t *testing.T) {
	res := collect(t, `
A, (B, *rest) = 1, (2, 3, 4)
for idx in range(3):
    pass
`)
	for _, q := range []string{"app.A", "app.B", "app.rest", "app.idx"} {
		_, ok := res.Symbol(q)
		assert.True(t, ok, "missing %s", q)
	}
}

func TestCollect_Caller(t *testing.T) {
	res := collect(t, `
def index():
    helper()

class C:
    x = compute()

    def m(self):
        other()

run()
`)
	tests := map[string]string{
		"helper":  "app.index",
		"other":   "app.C.m",
		"compute": "",
		"run":     "",
	}
	for name, caller := range tests {
		uses := usagesOf(res, name)
		require.NotEmpty(t, uses, name)
		assert.Equal(t, caller, uses[0].Caller, name)
		assert.Equal(t, models.UsageCall, uses[0].Context, name)
	}
}

func TestCollect_AugmentedAssignment(t *testing.T) {
	res := collect(t, `
COUNT = 0

def bump():
    global COUNT
    COUNT += 1
`)
	assert.True(t, hasUsage(res, "COUNT", models.UsageReference))
}

func TestCollect_CallPatterns(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
		ctx  models.UsageContext
	}{
		{"getattr literal", `getattr(obj, "handler")`, "handler", models.UsageAttribute},
		{"setattr literal", `setattr(obj, "handler", 1)`, "handler", models.UsageAttribute},
		{"registry identifier", `registry.register(on_save)`, "on_save", models.UsageReference},
		{"registry list", `hooks.extend([first_hook, second_hook])`, "second_hook", models.UsageReference},
		{"registry dict", `handlers.update({"a": handle_a})`, "handle_a", models.UsageReference},
		{"signal connect", `post_save.connect(on_post_save)`, "on_post_save", models.UsageReference},
		{"session query", `db.session.query(User).all()`, "User", models.UsageORMReference},
		{"model query", `User.query.filter_by(id=1)`, "User", models.UsageORMReference},
		{"relationship string", `posts = relationship("Post", backref="author")`, "Post", models.UsageORMReference},
		{"relationship backref", `posts = relationship("Post", backref="author")`, "author", models.UsageORMReference},
		{"foreign key table", `user_id = Column(ForeignKey("users.id"))`, "users", models.UsageORMReference},
		{"backref helper", `posts = relationship(Post, backref=backref("owner"))`, "owner", models.UsageORMReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := collect(t, tt.code+"\n")
			assert.True(t, hasUsage(res, tt.want, tt.ctx), "expected %s usage of %s", tt.ctx, tt.want)
		})
	}
}

func TestCollect_Imports(t *testing.T) {
	res := collect(t, `
import os.path
import numpy as np
from . import sibling
from ..pkg.mod import thing as alias
from shared import *
from __future__ import annotations
`)
	require.Len(t, res.Imports, 5)

	assert.Equal(t, models.ImportRecord{Module: "os.path", Location: res.Imports[0].Location}, res.Imports[0])
	assert.Equal(t, "np", res.Imports[1].Alias)

	assert.True(t, res.Imports[2].IsRelative)
	assert.Equal(t, 1, res.Imports[2].Level)
	assert.Equal(t, "", res.Imports[2].Module)
	assert.Equal(t, "sibling", res.Imports[2].Name)

	assert.Equal(t, 2, res.Imports[3].Level)
	assert.Equal(t, "pkg.mod", res.Imports[3].Module)
	assert.Equal(t, "thing", res.Imports[3].Name)
	assert.Equal(t, "alias", res.Imports[3].Alias)

	assert.Equal(t, "*", res.Imports[4].Name)

	for _, q := range []string{"app.os", "app.np", "app.sibling", "app.alias"} {
		sym, ok := res.Symbol(q)
		require.True(t, ok, q)
		assert.Equal(t, models.KindImport, sym.Kind)
	}
	_, ok := res.Symbol("app.annotations")
	assert.False(t, ok)
}

func TestCollect_Comments(t *testing.T) {
	res := collect(t, "import os  # noqa: F401\n")
	assert.Equal(t, "# noqa: F401", res.Comments[1])
}

func TestCollectSource_Errors(t *testing.T) {
	p := parser.New()
	defer p.Close()
	c := New()

	res, tree := c.CollectSource(context.Background(), p, []byte("def broken(:\n    pass\n"), "bad.py", "bad")
	assert.Nil(t, tree)
	require.NotNil(t, res.Error)
	assert.Equal(t, ErrorSyntax, res.Error.Kind)
	assert.Contains(t, res.Error.Error(), "Syntax error at line")
	assert.Empty(t, res.Symbols)

	res, tree = c.CollectSource(context.Background(), p, []byte("x = '\xff'\n"), "enc.py", "enc")
	assert.Nil(t, tree)
	require.NotNil(t, res.Error)
	assert.Equal(t, ErrorDecode, res.Error.Kind)
}

func TestCollectFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.py")
	require.NoError(t, os.WriteFile(path, []byte("def f():\n    pass\n"), 0o644))

	p := parser.New()
	defer p.Close()

	res, tree := New().CollectFile(context.Background(), p, path, "mod")
	require.NotNil(t, tree)
	defer tree.Tree.Close()
	assert.Nil(t, res.Error)
	assert.Equal(t, 2, res.Lines)
	_, ok := res.Symbol("mod.f")
	assert.True(t, ok)

	res, tree = New().CollectFile(context.Background(), p, filepath.Join(dir, "missing.py"), "missing")
	assert.Nil(t, tree)
	require.NotNil(t, res.Error)
	assert.Equal(t, ErrorOther, res.Error.Kind)
}

func TestWithFactories(t *testing.T) {
	c := New(WithFactories("build_app"))
	assert.True(t, c.IsFactory("build_app"))
	assert.True(t, c.IsFactory("Flask"))
	assert.False(t, c.IsFactory("helper"))
}

func TestCollect_TableNames(t *testing.T) {
	res := collect(t, `
class User(db.Model):
    __tablename__ = "users"
    id = Column(Integer)
`)
	assert.Equal(t, map[string]string{"User": "users"}, res.Tables)
}

func TestCollect_MainBlockCaller(t *testing.T) {
	res := collect(t, `
def main():
    run()

if __name__ == "__main__":
    main()

if DEBUG:
    setup()
`)
	for _, u := range usagesOf(res, "main") {
		if u.Context == models.UsageCall {
			assert.Equal(t, "app.__main__", u.Caller)
		}
	}
	for _, u := range usagesOf(res, "run") {
		assert.Equal(t, "app.main", u.Caller)
	}
	for _, u := range usagesOf(res, "setup") {
		assert.Empty(t, u.Caller)
	}
	assert.Equal(t, "app.__main__", MainCaller("app"))
}

func TestCollect_ClassBodyNamesHiddenFromMethods(t *testing.T) {
	res := collect(t, `
def handler():
    pass

class Registry:
    handler = None
    alias = handler

    def setup(self):
        callbacks = [handler]
        return callbacks
`)
	var fromSetup int
	for _, u := range usagesOf(res, "handler") {
		if u.Caller == "app.Registry.setup" && u.Context == models.UsageReference {
			fromSetup++
		}
	}
	assert.Equal(t, 1, fromSetup, "a method sees the module-level handler, not the class attribute")
}
