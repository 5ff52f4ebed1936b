// Package config loads and validates the prune configuration document.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/panbanda/prune/pkg/analyzer/scoring"
	"github.com/panbanda/prune/pkg/models"
)

// ErrNotFound is returned by Find when no configuration file exists.
var ErrNotFound = errors.New("no configuration file found")

// Config holds all configuration options for prune.
type Config struct {
	Analysis    AnalysisConfig    `koanf:"analysis" toml:"analysis"`
	Linting     LintingConfig     `koanf:"linting" toml:"linting"`
	EntryPoints EntryPointsConfig `koanf:"entry_points" toml:"entry_points"`
	Scoring     scoring.Config    `koanf:"scoring" toml:"scoring"`
	Exclude     ExcludeConfig     `koanf:"exclude" toml:"exclude"`
	Cache       CacheConfig       `koanf:"cache" toml:"cache"`
	Output      OutputConfig      `koanf:"output" toml:"output"`
}

// AnalysisConfig controls which files are analyzed and how.
type AnalysisConfig struct {
	Include []string `koanf:"include" toml:"include"`
	Exclude []string `koanf:"exclude" toml:"exclude"`
	// SrcDirs are the source roots module names are computed against.
	SrcDirs           []string `koanf:"src_dirs" toml:"src_dirs"`
	Workers           int      `koanf:"workers" toml:"workers"`
	MaxFileSize       int64    `koanf:"max_file_size" toml:"max_file_size"`
	MinConfidence     int      `koanf:"min_confidence" toml:"min_confidence"`
	PreferGit         bool     `koanf:"prefer_git" toml:"prefer_git"`
	GitTimeoutSeconds int      `koanf:"git_timeout_seconds" toml:"git_timeout_seconds"`
}

// LintingConfig controls suppression comments and ignored decorators.
type LintingConfig struct {
	RespectNoqa      bool     `koanf:"respect_noqa" toml:"respect_noqa"`
	NoqaPatterns     []string `koanf:"noqa_patterns" toml:"noqa_patterns"`
	IgnoreDecorators []string `koanf:"ignore_decorators" toml:"ignore_decorators"`
}

// EntryPointsConfig decides which entrypoint types mark symbols as used.
type EntryPointsConfig struct {
	Rules []EntryPointRule `koanf:"rules" toml:"rules"`
}

// EntryPointRule configures one entrypoint type. A nil MarkAsUsed means true.
type EntryPointRule struct {
	Type       string `koanf:"type" toml:"type"`
	MarkAsUsed *bool  `koanf:"mark_as_used" toml:"mark_as_used,omitempty"`
}

// ExcludeConfig controls the ignore-file sources and always-excluded names.
type ExcludeConfig struct {
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
	Pyproject bool     `koanf:"pyproject" toml:"pyproject"`
	Dirs      []string `koanf:"dirs" toml:"dirs"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color  bool   `koanf:"color" toml:"color"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Include: []string{"**/*.py"},
			Exclude: []string{
				"**/__pycache__/**",
				"**/tests/**",
				"**/test_*.py",
				"**/*_test.py",
				"**/conftest.py",
				"**/migrations/**",
				"**/alembic/**",
				"**/.venv/**",
				"**/venv/**",
			},
			SrcDirs:           []string{"."},
			MaxFileSize:       1 << 20,
			PreferGit:         true,
			GitTimeoutSeconds: 5,
		},
		Linting: LintingConfig{
			RespectNoqa:  true,
			NoqaPatterns: []string{"# noqa", "# type: ignore"},
			IgnoreDecorators: []string{
				"@pytest.fixture",
				"@pytest.mark.*",
				"@property",
				"@abstractmethod",
			},
		},
		Scoring: scoring.DefaultConfig(),
		Exclude: ExcludeConfig{
			Gitignore: true,
			Pyproject: true,
			Dirs: []string{
				"__pycache__",
				".venv",
				"venv",
				".git",
				"node_modules",
				".tox",
				".eggs",
				"*.egg-info",
				"build",
				"dist",
			},
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".prune/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// parserFor picks the koanf parser from the file extension.
func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	default:
		return toml.Parser()
	}
}

// Load loads configuration from a file, validates the document against the
// schema and compiles every glob.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := validateDocument(k.Raw()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// SearchNames are the configuration file names LoadOrDefault looks for, in
// order of preference.
var SearchNames = []string{
	"prune.toml",
	"prune.yaml",
	"prune.yml",
	"prune.json",
	".prune.toml",
	".prune.yaml",
	".prune.yml",
	".prune.json",
	"open-prune.json",
}

// Find returns the first configuration file present under root or
// root/.prune.
func Find(root string) (string, error) {
	for _, dir := range []string{root, filepath.Join(root, ".prune")} {
		for _, name := range SearchNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}
	return "", ErrNotFound
}

// LoadOrDefault loads the first configuration file found in the current
// directory, or returns defaults. The returned path is empty when defaults
// are used.
func LoadOrDefault() (*Config, string, error) {
	path, err := Find(".")
	if err != nil {
		return DefaultConfig(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// MarkTypes returns the entrypoint types whose symbols are marked as used.
// Types without a rule are marked.
func (c *Config) MarkTypes() map[models.EntrypointType]bool {
	marked := make(map[models.EntrypointType]bool, len(models.AllEntrypointTypes))
	for _, t := range models.AllEntrypointTypes {
		marked[t] = true
	}
	for _, r := range c.EntryPoints.Rules {
		marked[models.EntrypointType(r.Type)] = r.MarkAsUsed == nil || *r.MarkAsUsed
	}
	return marked
}
