// Package infra finds Python entrypoints named in deployment files:
// Dockerfiles, docker-compose files, GitLab CI scripts, shell scripts and
// Procfiles.
package infra

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/panbanda/prune/pkg/models"
)

// commandPattern extracts a Python target from a shell command line.
type commandPattern struct {
	re      *regexp.Regexp
	command string
}

var commandPatterns = []commandPattern{
	{regexp.MustCompile(`python3?\s+(?:-\w\s+)*-m\s+([\w.]+)`), "python"},
	{regexp.MustCompile(`python3?\s+([\w/.-]+\.py)`), "python"},
	{regexp.MustCompile(`gunicorn\s+(?:-[\w-]+(?:\s+\S+)?\s+)*([\w.]+:\w+)`), "gunicorn"},
	{regexp.MustCompile(`celery\s+-A\s+([\w.]+)`), "celery"},
	{regexp.MustCompile(`uvicorn\s+([\w.]+:\w+)`), "uvicorn"},
}

var (
	flaskAppEnv   = regexp.MustCompile(`ENV\s+FLASK_APP[=\s]+([\w/.]+)`)
	execArray     = regexp.MustCompile(`\[([^\]]+)\]`)
	dockerCommand = regexp.MustCompile(`^(ENTRYPOINT|CMD)\s+`)
)

var skipDirs = map[string]bool{
	"__pycache__": true, ".venv": true, "venv": true, ".git": true, "node_modules": true,
}

// Entrypoint is a Python target named by an infrastructure file.
type Entrypoint struct {
	// Source is the infrastructure file, relative to the project root.
	Source string `json:"source"`
	// Line is the 1-based line in Source, or 0 when unknown (YAML values).
	Line int `json:"line"`
	// Command is the launcher: python, gunicorn, celery, uvicorn or flask.
	Command string `json:"command"`
	// Target is the module or script as written, e.g. "app.wsgi:app".
	Target string `json:"target"`
	// File is the absolute path Target resolves to, or empty.
	File string `json:"file,omitempty"`
}

// Type classifies the entrypoint: a script path or a module target.
func (e Entrypoint) Type() models.EntrypointType {
	if strings.HasSuffix(e.Target, ".py") {
		return models.EntrypointScript
	}
	return models.EntrypointInfra
}

// Detector scans a project root.
type Detector struct {
	root   string
	logger *slog.Logger
	seen   map[string]bool
	out    []Entrypoint
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger used for unreadable files.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = l
	}
}

// Detect returns every infrastructure entrypoint under root. Unreadable or
// malformed files are skipped.
func Detect(root string, opts ...Option) []Entrypoint {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	d := &Detector{root: root, logger: slog.Default(), seen: make(map[string]bool)}
	for _, opt := range opts {
		opt(d)
	}

	d.scanDockerfiles()
	d.scanCompose()
	d.scanGitLabCI()
	d.scanShellScripts()
	d.scanProcfile()
	return d.out
}

func (d *Detector) read(path string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		d.logger.Debug("skipping infrastructure file", "path", path, "error", err)
		return nil, false
	}
	return data, true
}

func (d *Detector) rel(path string) string {
	if r, err := filepath.Rel(d.root, path); err == nil {
		return r
	}
	return path
}

func (d *Detector) add(source string, line int, command, target string) {
	key := fmt.Sprintf("%s:%d:%s", source, line, target)
	if d.seen[key] {
		return
	}
	d.seen[key] = true
	d.out = append(d.out, Entrypoint{
		Source:  d.rel(source),
		Line:    line,
		Command: command,
		Target:  target,
		File:    Resolve(d.root, target),
	})
}

// matchCommand records the first launcher pattern found in cmd.
func (d *Detector) matchCommand(source string, line int, cmd string) {
	for _, p := range commandPatterns {
		if m := p.re.FindStringSubmatch(cmd); m != nil {
			d.add(source, line, p.command, m[1])
			return
		}
	}
}

func (d *Detector) scanDockerfiles() {
	matches, _ := filepath.Glob(filepath.Join(d.root, "Dockerfile*"))
	sort.Strings(matches)
	for _, path := range matches {
		data, ok := d.read(path)
		if !ok {
			continue
		}
		eachLine(data, func(n int, line string) {
			if strings.HasPrefix(line, "#") {
				return
			}
			if m := flaskAppEnv.FindStringSubmatch(line); m != nil {
				d.add(path, n, "flask", m[1])
			}
			if !strings.HasPrefix(line, "ENTRYPOINT") && !strings.HasPrefix(line, "CMD") {
				return
			}
			var cmd string
			if m := execArray.FindStringSubmatch(line); m != nil {
				parts := strings.Split(m[1], ",")
				for i, p := range parts {
					parts[i] = strings.Trim(strings.TrimSpace(p), `"'`)
				}
				cmd = strings.Join(parts, " ")
			} else {
				cmd = dockerCommand.ReplaceAllString(line, "")
			}
			if strings.HasSuffix(cmd, ".sh") {
				d.scanScript(filepath.Join(d.root, cmd))
				return
			}
			d.matchCommand(path, n, cmd)
		})
	}
}

type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Entrypoint  any `yaml:"entrypoint"`
	Command     any `yaml:"command"`
	Environment any `yaml:"environment"`
}

func (d *Detector) scanCompose() {
	var matches []string
	for _, pattern := range []string{"docker-compose*.yml", "docker-compose*.yaml"} {
		m, _ := filepath.Glob(filepath.Join(d.root, pattern))
		matches = append(matches, m...)
	}
	sort.Strings(matches)
	for _, path := range matches {
		data, ok := d.read(path)
		if !ok {
			continue
		}
		var doc composeFile
		if err := yaml.Unmarshal(data, &doc); err != nil {
			d.logger.Debug("skipping malformed compose file", "path", path, "error", err)
			continue
		}
		names := make([]string, 0, len(doc.Services))
		for name := range doc.Services {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			svc := doc.Services[name]
			for _, value := range []any{svc.Entrypoint, svc.Command} {
				d.composeCommand(path, value)
			}
			if app := flaskAppFromEnv(svc.Environment); app != "" {
				d.add(path, 0, "flask", app)
			}
		}
	}
}

func (d *Detector) composeCommand(source string, value any) {
	var cmd string
	switch v := value.(type) {
	case string:
		cmd = v
	case []any:
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = fmt.Sprint(p)
		}
		cmd = strings.Join(parts, " ")
	default:
		return
	}
	cmd = strings.TrimSpace(cmd)
	if strings.HasSuffix(cmd, ".sh") {
		script := filepath.Join(d.root, cmd)
		if _, err := os.Stat(script); err == nil {
			d.scanScript(script)
			return
		}
	}
	d.matchCommand(source, 0, cmd)
}

// flaskAppFromEnv reads FLASK_APP from a compose environment given as a
// mapping or as a list of KEY=VALUE strings.
func flaskAppFromEnv(env any) string {
	switch v := env.(type) {
	case map[string]any:
		if app, ok := v["FLASK_APP"]; ok && app != nil {
			return fmt.Sprint(app)
		}
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if key, value, found := strings.Cut(s, "="); found && key == "FLASK_APP" {
				return value
			}
		}
	}
	return ""
}

func (d *Detector) scanGitLabCI() {
	path := filepath.Join(d.root, ".gitlab-ci.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		d.logger.Debug("skipping malformed CI file", "path", path, "error", err)
		return
	}
	d.walkScripts(path, doc)
}

// walkScripts visits every "script" list nested anywhere in m.
func (d *Detector) walkScripts(source string, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := m[k].(type) {
		case []any:
			if k != "script" {
				continue
			}
			for _, line := range v {
				if s, ok := line.(string); ok {
					d.matchCommand(source, 0, s)
				}
			}
		case map[string]any:
			d.walkScripts(source, v)
		}
	}
}

func (d *Detector) scanShellScripts() {
	var scripts []string
	_ = filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			if path != d.root && skipDirs[entry.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(entry.Name(), ".sh") {
			scripts = append(scripts, path)
		}
		return nil
	})
	for _, s := range scripts {
		d.scanScript(s)
	}
}

func (d *Detector) scanScript(path string) {
	data, ok := d.read(path)
	if !ok {
		return
	}
	eachLine(data, func(n int, line string) {
		if line == "" || strings.HasPrefix(line, "#") {
			return
		}
		d.matchCommand(path, n, line)
	})
}

func (d *Detector) scanProcfile() {
	path := filepath.Join(d.root, "Procfile")
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	eachLine(data, func(n int, line string) {
		if line == "" || strings.HasPrefix(line, "#") {
			return
		}
		if _, cmd, ok := strings.Cut(line, ":"); ok {
			d.matchCommand(path, n, strings.TrimSpace(cmd))
		}
	})
}

// eachLine calls fn with every trimmed line and its 1-based number.
func eachLine(data []byte, fn func(n int, line string)) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; sc.Scan(); n++ {
		fn(n, strings.TrimSpace(sc.Text()))
	}
}

// Resolve maps a module target ("pkg.mod", "pkg.mod:app") or script path
// to an existing file under root. It tries the module file, then the
// package __init__.py, then progressively shorter dotted prefixes so that
// "pkg.tasks.celery" finds pkg/tasks.py. It returns "" when nothing exists.
func Resolve(root, target string) string {
	target, _, _ = strings.Cut(target, ":")
	if strings.HasSuffix(target, ".py") {
		return existing(filepath.Join(root, filepath.FromSlash(target)))
	}

	parts := strings.Split(target, ".")
	for i := len(parts); i > 0; i-- {
		rel := filepath.Join(parts[:i]...)
		if f := existing(filepath.Join(root, rel+".py")); f != "" {
			return f
		}
		if f := existing(filepath.Join(root, rel, "__init__.py")); f != "" {
			return f
		}
	}
	return ""
}

func existing(path string) string {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path
	}
	return ""
}
