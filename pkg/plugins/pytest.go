package plugins

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/panbanda/prune/pkg/models"
)

var (
	gitlabPytestPattern = regexp.MustCompile(`pytest\s+.*?((?:\./[\w/.-]+\s*)+)`)
	githubPytestPattern = regexp.MustCompile(`pytest\s+.*?((?:[\w/.-]+\s*)+)`)
)

// Pytest detects test functions and fixtures. When the project's CI
// configuration names pytest paths, only files under those paths count as
// tests; otherwise test files are recognized by naming convention.
type Pytest struct {
	root    string
	ciPaths []string
}

// NewPytest creates the pytest plugin and reads CI configuration under root.
// An empty root disables CI detection.
func NewPytest(root string) *Pytest {
	p := &Pytest{}
	if root == "" {
		return p
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	p.root = root
	p.ciPaths = parseCIPaths(root)
	return p
}

// CIPaths returns the absolute test paths found in CI configuration.
func (p *Pytest) CIPaths() []string { return p.ciPaths }

// Fingerprint changes when the CI test paths change.
func (p *Pytest) Fingerprint() string { return strings.Join(p.ciPaths, ",") }

func (*Pytest) Name() string      { return "pytest" }
func (*Pytest) Framework() string { return "pytest" }

func (*Pytest) ImportIndicators() []string { return []string{"pytest"} }

func (*Pytest) FactoryFunctions() []string { return nil }

func (*Pytest) ImplicitNames() []ImplicitName { return nil }

func (*Pytest) DecoratorRules() []DecoratorRule {
	return []DecoratorRule{
		{Pattern: "pytest.fixture", Delta: -40, Description: "Pytest fixture"},
	}
}

func (*Pytest) IsImplicitName(string, []string, []string) bool { return false }

func (p *Pytest) DetectEntrypoints(f *File) []models.DetectedEntrypoint {
	if !p.covers(f.Path) {
		return nil
	}

	var out []models.DetectedEntrypoint
	for _, d := range Definitions(f) {
		if d.Kind != DefFunction {
			continue
		}
		if hasFixtureDecorator(d.Decorators) {
			out = append(out, models.DetectedEntrypoint{
				Name:      d.Name,
				Type:      models.EntrypointPytestFixture,
				Location:  d.Location(f.Path),
				Decorator: "@pytest.fixture",
			})
			continue
		}
		if strings.HasPrefix(d.Name, "test_") {
			ep := models.DetectedEntrypoint{
				Name:     d.Name,
				Type:     models.EntrypointPytestTest,
				Location: d.Location(f.Path),
			}
			if strings.HasPrefix(d.Class, "Test") {
				ep.ParentClass = d.Class
			}
			out = append(out, ep)
		}
	}
	return out
}

func hasFixtureDecorator(decs []Decorator) bool {
	for _, d := range decs {
		switch d.Shape {
		case ShapeAttribute, ShapeCall:
			if len(d.Segments) == 2 && d.Segments[0] == "pytest" && d.Segments[1] == "fixture" {
				return true
			}
		case ShapeName:
			if d.Last() == "fixture" {
				return true
			}
		}
	}
	return false
}

func (p *Pytest) covers(path string) bool {
	abs := path
	if !filepath.IsAbs(abs) && p.root != "" {
		abs = filepath.Join(p.root, path)
	}
	abs = filepath.Clean(abs)

	if len(p.ciPaths) == 0 {
		return p.isTestFile(abs)
	}
	for _, ci := range p.ciPaths {
		if abs == ci || strings.HasPrefix(abs, ci+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// isTestFile applies pytest's naming convention. Directory parts are taken
// relative to the project root so that a checkout living under a "test"
// directory does not turn every file into a test.
func (p *Pytest) isTestFile(abs string) bool {
	name := filepath.Base(abs)
	if strings.HasPrefix(name, "test_") || name == "conftest.py" {
		return true
	}
	rel := abs
	if p.root != "" {
		if r, err := filepath.Rel(p.root, abs); err == nil {
			rel = r
		}
	}
	for _, part := range strings.Split(filepath.Dir(rel), string(filepath.Separator)) {
		if part == "test" || part == "tests" {
			return true
		}
	}
	return false
}

func parseCIPaths(root string) []string {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	if data, err := os.ReadFile(filepath.Join(root, ".gitlab-ci.yml")); err == nil {
		for _, text := range yamlScripts(data) {
			for _, m := range gitlabPytestPattern.FindAllStringSubmatch(text, -1) {
				for _, field := range strings.Fields(m[1]) {
					if strings.HasPrefix(field, "./") {
						add(filepath.Join(root, field[2:]))
					}
				}
			}
		}
	}

	workflows := filepath.Join(root, ".github", "workflows")
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, _ := filepath.Glob(filepath.Join(workflows, pattern))
		for _, wf := range matches {
			data, err := os.ReadFile(wf)
			if err != nil {
				continue
			}
			for _, text := range yamlScripts(data) {
				for _, m := range githubPytestPattern.FindAllStringSubmatch(text, -1) {
					for _, field := range strings.Fields(m[1]) {
						if strings.HasPrefix(field, "-") {
							continue
						}
						full := filepath.Join(root, field)
						if _, err := os.Stat(full); err == nil {
							add(full)
						}
					}
				}
			}
		}
	}
	return paths
}

// yamlScripts returns every scalar string in a YAML document, so each
// shell command is matched on its own. Unparseable documents are matched
// as raw text.
func yamlScripts(data []byte) []string {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return []string{string(data)}
	}
	var out []string
	var walk func(n *yaml.Node)
	walk = func(n *yaml.Node) {
		if n.Kind == yaml.ScalarNode {
			if strings.Contains(n.Value, "pytest") {
				out = append(out, n.Value)
			}
			return
		}
		for _, c := range n.Content {
			walk(c)
		}
	}
	walk(&doc)
	return out
}
