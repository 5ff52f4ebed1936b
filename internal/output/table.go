package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Table is a titled grid of cells. Data is what JSON and TOON encode.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Data    any
}

// NewTable creates a table whose structured form is data.
func NewTable(title string, headers []string, rows [][]string, data any) *Table {
	return &Table{Title: title, Headers: headers, Rows: rows, Data: data}
}

func (t *Table) RenderData() any { return t.Data }

func (t *Table) RenderText(w io.Writer, colored bool) error {
	heading(w, t.Title, '-', colored)
	if len(t.Rows) == 0 {
		_, err := fmt.Fprintln(w, "  (none)")
		return err
	}

	left := tw.CellAlignment{Global: tw.AlignLeft}
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{Alignment: left, Formatting: tw.CellFormatting{AutoFormat: tw.On}},
			Row:    tw.CellConfig{Alignment: left},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders:  tw.Border{Left: tw.Off, Right: tw.Off, Top: tw.Off, Bottom: tw.Off},
			Settings: tw.Settings{Separators: tw.Separators{BetweenColumns: tw.Off}},
		}),
	)
	table.Header(t.Headers)
	for _, row := range t.Rows {
		table.Append(row)
	}
	table.Render()
	return nil
}

func (t *Table) RenderMarkdown(w io.Writer) error {
	if t.Title != "" {
		fmt.Fprintf(w, "## %s\n\n", t.Title)
	}
	if len(t.Rows) == 0 {
		_, err := fmt.Fprint(w, "_None._\n\n")
		return err
	}
	writeMarkdownRow(w, t.Headers)
	writeMarkdownRow(w, repeat("---", len(t.Headers)))
	for _, row := range t.Rows {
		writeMarkdownRow(w, row)
	}
	_, err := fmt.Fprintln(w)
	return err
}

var markdownEscaper = strings.NewReplacer("|", `\|`, "\n", "<br>")

func writeMarkdownRow(w io.Writer, cells []string) {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = markdownEscaper.Replace(c)
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(escaped, " | "))
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

// Section is a titled block of preformatted text.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Section) RenderData() any { return s }

func (s *Section) RenderText(w io.Writer, colored bool) error {
	heading(w, s.Title, '-', colored)
	_, err := fmt.Fprintln(w, s.Content)
	return err
}

func (s *Section) RenderMarkdown(w io.Writer) error {
	_, err := fmt.Fprintf(w, "## %s\n\n%s\n\n", s.Title, s.Content)
	return err
}

// Report stacks tables and sections under one title. Data is what JSON
// and TOON encode.
type Report struct {
	Title string
	Parts []Renderable
	Data  any
}

func (r *Report) RenderData() any { return r.Data }

func (r *Report) RenderText(w io.Writer, colored bool) error {
	heading(w, r.Title, '=', colored)
	for _, p := range r.Parts {
		fmt.Fprintln(w)
		if err := p.RenderText(w, colored); err != nil {
			return err
		}
	}
	return nil
}

func (r *Report) RenderMarkdown(w io.Writer) error {
	fmt.Fprintf(w, "# %s\n\n", r.Title)
	for _, p := range r.Parts {
		if err := p.RenderMarkdown(w); err != nil {
			return err
		}
	}
	return nil
}

// heading writes title underlined with rule. Report titles ('=') are
// bold cyan when colored, the rest bold.
func heading(w io.Writer, title string, rule byte, colored bool) {
	if title == "" {
		return
	}
	switch {
	case colored && rule == '=':
		color.New(color.Bold, color.FgCyan).Fprintln(w, title)
	case colored:
		color.New(color.Bold).Fprintln(w, title)
	default:
		fmt.Fprintln(w, title)
	}
	fmt.Fprintln(w, strings.Repeat(string(rule), len(title)))
}
