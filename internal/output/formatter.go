// Package output renders analysis results as text, JSON, Markdown or TOON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	toon "github.com/toon-format/toon-go"
)

// Format is a report encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatTOON     Format = "toon"
)

// ParseFormat maps a format name to a Format. Unknown names fall back to
// text; callers that must reject them compare the result themselves.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "markdown", "md":
		return FormatMarkdown
	case "toon":
		return FormatTOON
	}
	return FormatText
}

// Renderable is a report that knows how to present itself. JSON and TOON
// encode RenderData; text and Markdown are drawn by the report.
type Renderable interface {
	RenderText(w io.Writer, colored bool) error
	RenderMarkdown(w io.Writer) error
	RenderData() any
}

// Formatter writes reports in one format to stdout or a file.
type Formatter struct {
	format  Format
	writer  io.Writer
	file    *os.File
	colored bool
}

// NewFormatter creates a formatter for stdout, or for the named output
// file. Files are never colored.
func NewFormatter(format Format, output string, colored bool) (*Formatter, error) {
	if output == "" {
		return NewWriterFormatter(format, os.Stdout, colored), nil
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, err
	}
	return &Formatter{format: format, writer: f, file: f}, nil
}

// NewWriterFormatter creates a formatter over w.
func NewWriterFormatter(format Format, w io.Writer, colored bool) *Formatter {
	return &Formatter{format: format, writer: w, colored: colored}
}

// Close closes the output file, if any.
func (f *Formatter) Close() error {
	if f.file == nil {
		return nil
	}
	return f.file.Close()
}

// Output writes r in the formatter's format.
func (f *Formatter) Output(r Renderable) error {
	switch f.format {
	case FormatJSON:
		return writeJSON(f.writer, r.RenderData())
	case FormatTOON:
		return writeTOON(f.writer, r.RenderData())
	case FormatMarkdown:
		return r.RenderMarkdown(f.writer)
	}
	return r.RenderText(f.writer, f.colored)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTOON encodes v as TOON. The value goes through its JSON form first
// so keys follow the json tags and omitempty holds.
func writeTOON(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var plain any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return err
	}
	out, err := toon.Marshal(plain, toon.WithIndent(2))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}

// Success writes a status line, green when colored.
func (f *Formatter) Success(format string, args ...any) {
	f.status(color.FgGreen, "", format, args...)
}

// Warning writes a warning line, yellow when colored.
func (f *Formatter) Warning(format string, args ...any) {
	f.status(color.FgYellow, "WARNING: ", format, args...)
}

func (f *Formatter) status(attr color.Attribute, plainPrefix, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if f.colored {
		color.New(attr).Fprintln(f.writer, msg)
		return
	}
	fmt.Fprintln(f.writer, plainPrefix+msg)
}
