package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "prune.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// validateDocument checks a raw configuration document against the
// embedded schema.
func validateDocument(raw map[string]any) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	// Round-trip through JSON so numbers and nested maps have the shapes
	// the validator expects regardless of the source format.
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

var outputFormats = map[string]bool{"text": true, "json": true, "markdown": true, "toon": true}

// Validate checks the decoded configuration: every glob must compile and
// numeric settings must be in range.
func (c *Config) Validate() error {
	var problems []string
	globs := map[string][]string{
		"analysis.include":          c.Analysis.Include,
		"analysis.exclude":          c.Analysis.Exclude,
		"linting.ignore_decorators": trimAt(c.Linting.IgnoreDecorators),
		"exclude.dirs":              c.Exclude.Dirs,
	}
	for _, key := range []string{"analysis.include", "analysis.exclude", "linting.ignore_decorators", "exclude.dirs"} {
		if _, err := CompileGlobs(globs[key]); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(c.Analysis.Include) == 0 {
		problems = append(problems, "analysis.include: at least one pattern is required")
	}
	if c.Analysis.MinConfidence < 0 || c.Analysis.MinConfidence > 100 {
		problems = append(problems, fmt.Sprintf("analysis.min_confidence: %d is outside 0..100", c.Analysis.MinConfidence))
	}
	if c.Analysis.Workers < 0 {
		problems = append(problems, "analysis.workers: must not be negative")
	}
	if c.Analysis.GitTimeoutSeconds < 0 {
		problems = append(problems, "analysis.git_timeout_seconds: must not be negative")
	}
	if c.Output.Format != "" && !outputFormats[c.Output.Format] {
		problems = append(problems, fmt.Sprintf("output.format: unknown format %q", c.Output.Format))
	}
	for i, r := range c.EntryPoints.Rules {
		if r.Type == "" {
			problems = append(problems, fmt.Sprintf("entry_points.rules[%d]: type is required", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func trimAt(patterns []string) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = strings.TrimLeft(p, "@")
	}
	return out
}
