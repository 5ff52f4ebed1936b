package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/prune/internal/testutil"
	"github.com/panbanda/prune/pkg/models"
)

func writeProject(t *testing.T) string {
	t.Helper()
	dir, _ := testutil.PythonProject(t, map[string]string{
		"app.py": `from flask import Flask

app = Flask(__name__)


@app.route("/")
def index():
    return helper()


def helper():
    return 1


def unused():
    return 2
`,
		"orphan.py": `def lonely():
    return 3
`,
	})
	return dir
}

// run executes the CLI and returns what it printed to the app writer.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &bytes.Buffer{}
	err := app.Run(append([]string{"prune"}, args...))
	return out.String(), err
}

func TestGetPath(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"no args defaults to current dir", nil, "."},
		{"single path", []string{"/foo/bar"}, "/foo/bar"},
		{"first of several", []string{"/foo", "/bar"}, "/foo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &cli.App{
				Action: func(c *cli.Context) error {
					if got := getPath(c); got != tt.expected {
						t.Errorf("getPath() = %q, want %q", got, tt.expected)
					}
					return nil
				},
			}
			_ = app.Run(append([]string{"test"}, tt.args...))
		})
	}
}

func TestAnalyzeJSON(t *testing.T) {
	dir := writeProject(t)
	outFile := filepath.Join(t.TempDir(), "out.json")

	_, err := run(t, "--no-cache", "--format", "json", "--output", outFile, "analyze", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var result models.AnalysisOutput
	require.NoError(t, json.Unmarshal(data, &result))

	names := make(map[string]bool)
	for _, item := range result.DeadCode {
		names[item.Name] = true
	}
	assert.True(t, names["unused"], "unused should be reported")
	assert.True(t, names["lonely"], "lonely should be reported")
	assert.False(t, names["index"], "route handlers are entrypoints")
	assert.Equal(t, 2, result.Metadata.FilesAnalyzed)

	var orphaned []string
	for _, f := range result.OrphanedFiles {
		orphaned = append(orphaned, f.File)
	}
	assert.Contains(t, orphaned, "orphan.py")
}

func TestAnalyzeMinConfidence(t *testing.T) {
	dir := writeProject(t)
	outFile := filepath.Join(t.TempDir(), "out.json")

	_, err := run(t, "--no-cache", "-f", "json", "-o", outFile, "analyze", "--min-confidence", "100", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var result models.AnalysisOutput
	require.NoError(t, json.Unmarshal(data, &result))
	for _, item := range result.DeadCode {
		assert.Equal(t, 100, item.Confidence, "%s below the threshold", item.QualifiedName)
	}

	_, err = run(t, "--no-cache", "analyze", "--min-confidence", "101", dir)
	assert.Error(t, err)
}

func TestAnalyzeUnknownFormat(t *testing.T) {
	dir := writeProject(t)
	_, err := run(t, "--format", "html", "analyze", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestAnalyzeMissingPath(t *testing.T) {
	_, err := run(t, "analyze", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestEntrypointsCmd(t *testing.T) {
	dir := writeProject(t)
	outFile := filepath.Join(t.TempDir(), "eps.json")

	_, err := run(t, "--no-cache", "-f", "json", "-o", outFile, "entrypoints", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var eps []models.EntrypointInfo
	require.NoError(t, json.Unmarshal(data, &eps))

	found := false
	for _, ep := range eps {
		if ep.QualifiedName == "app.index" && ep.Type == models.EntrypointFlaskRoute {
			found = true
		}
	}
	assert.True(t, found, "app.index should be a flask route in %+v", eps)
}

func TestGraphCmd(t *testing.T) {
	dir := writeProject(t)
	outFile := filepath.Join(t.TempDir(), "graph.md")

	_, err := run(t, "--no-cache", "-f", "markdown", "-o", outFile, "graph", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "orphan")
	assert.Contains(t, string(data), "Modules")
}

func TestInitAndConfigCmds(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "config", "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "using defaults")

	_, err = run(t, "init", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "prune.toml"))

	_, err = run(t, "init", dir)
	assert.Error(t, err, "init should not overwrite without --force")
	_, err = run(t, "init", "--force", dir)
	assert.NoError(t, err)

	out, err = run(t, "config", "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")

	out, err = run(t, "config", "show", dir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# source: "), out)
	assert.Contains(t, out, "min_confidence")
	assert.Contains(t, out, "respect_noqa")
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prune.toml"), []byte("[analysis]\nmin_confidence = 500\n"), 0o644))

	_, err := run(t, "config", "validate", dir)
	assert.Error(t, err)
}

func TestCacheCmds(t *testing.T) {
	dir := writeProject(t)
	outFile := filepath.Join(t.TempDir(), "out.json")

	_, err := run(t, "-f", "json", "-o", outFile, "analyze", dir)
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(dir, ".prune", "cache"))

	statsFile := filepath.Join(t.TempDir(), "stats.json")
	_, err = run(t, "-f", "json", "-o", statsFile, "cache", "stats", dir)
	require.NoError(t, err)
	data, err := os.ReadFile(statsFile)
	require.NoError(t, err)
	var stats struct {
		Entries int `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(data, &stats))
	assert.Equal(t, 2, stats.Entries)

	out, err := run(t, "cache", "clear", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared")
	assert.NoDirExists(t, filepath.Join(dir, ".prune", "cache"))
}

func TestWatchRejectsOutputFile(t *testing.T) {
	dir := writeProject(t)
	_, err := run(t, "-o", filepath.Join(t.TempDir(), "out.txt"), "watch", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output")
}

func TestRemoteReferenceMustNotHaveEmptyRef(t *testing.T) {
	_, err := run(t, "analyze", "owner/repo@")
	assert.Error(t, err)
}

func TestGraphWhy(t *testing.T) {
	dir, _ := testutil.PythonProject(t, map[string]string{
		"main.py":          "import services\n\nif __name__ == \"__main__\":\n    services.run()\n",
		"services.py":      "from models import User\n\ndef run():\n    return User()\n",
		"models.py":        "class User:\n    pass\n",
		"unrelated/mod.py": "x = 1\n",
	})
	outFile := filepath.Join(t.TempDir(), "why.json")

	_, err := run(t, "--no-cache", "-f", "json", "-o", outFile, "graph", "--why", "models", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var chain []string
	require.NoError(t, json.Unmarshal(data, &chain))
	assert.Equal(t, []string{"services", "main"}, chain)
}

func TestGraphWhyUnknownModule(t *testing.T) {
	_, err := run(t, "--no-cache", "graph", "--why", "nope", writeProject(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown module")
}
