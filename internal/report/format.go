// Package report renders merge results, changesets and lookups for the CLI.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
	md "github.com/nao1215/markdown"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Format is an output format.
type Format string

// Output formats.
const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Formatter writes a Report.
type Formatter interface {
	Format(w io.Writer, r *Report) error
}

// FormatterFunc allows functions to implement Formatter.
type FormatterFunc func(io.Writer, *Report) error

// Format implements the Formatter interface.
func (f FormatterFunc) Format(w io.Writer, r *Report) error {
	return f(w, r)
}

// NewFormatter returns the formatter for format. Unknown formats render tables.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: "  "}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// DetectFormat returns the explicit format if set, otherwise table on a
// terminal and JSON for pipes.
func DetectFormat(explicit string) Format {
	if explicit != "" {
		return Format(strings.ToLower(explicit))
	}
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return FormatTable
	}
	return FormatJSON
}

// ParseFormat converts s to a Format.
func ParseFormat(s string) (Format, error) {
	format := Format(strings.ToLower(s))
	switch format {
	case FormatTable, FormatJSON, FormatYAML, FormatMarkdown, "":
		return format, nil
	}
	return "", fmt.Errorf("invalid format %q: must be one of: table, json, yaml, markdown", s)
}

// JSONFormatter writes the report value as JSON.
type JSONFormatter struct {
	Indent string
}

// Format implements the Formatter interface.
func (f *JSONFormatter) Format(w io.Writer, r *Report) error {
	encoder := json.NewEncoder(w)
	if f.Indent != "" {
		encoder.SetIndent("", f.Indent)
	}
	return encoder.Encode(r.Value)
}

// YAMLFormatter writes the report value as YAML.
type YAMLFormatter struct{}

// Format implements the Formatter interface.
func (f *YAMLFormatter) Format(w io.Writer, r *Report) error {
	data, err := yaml.MarshalWithOptions(r.Value,
		yaml.Indent(2),
		yaml.IndentSequence(false),
	)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// TableFormatter writes each section as a text table.
type TableFormatter struct{}

// Format implements the Formatter interface.
func (f *TableFormatter) Format(w io.Writer, r *Report) error {
	for _, note := range r.Notes {
		if _, err := fmt.Fprintln(w, note); err != nil {
			return err
		}
	}
	for i, s := range r.Sections {
		if i > 0 || len(r.Notes) > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if s.Heading != "" {
			if _, err := fmt.Fprintln(w, s.Heading); err != nil {
				return err
			}
		}
		if err := renderTable(w, s.Data); err != nil {
			return err
		}
	}
	return nil
}

func renderTable(w io.Writer, data Data) error {
	config := tablewriter.Config{}
	if len(data.Alignment) > 0 {
		align := make([]tw.Align, len(data.Alignment))
		for i, a := range data.Alignment {
			switch a {
			case AlignLeft:
				align[i] = tw.AlignLeft
			case AlignRight:
				align[i] = tw.AlignRight
			default:
				align[i] = tw.Skip
			}
		}
		config.Header.Alignment = tw.CellAlignment{PerColumn: align}
		config.Row.Alignment = tw.CellAlignment{PerColumn: align}
	}

	table := tablewriter.NewTable(w, tablewriter.WithConfig(config))
	if len(data.Headers) > 0 {
		headers := make([]any, len(data.Headers))
		for i, h := range data.Headers {
			headers[i] = h
		}
		table.Header(headers...)
	}
	for _, row := range data.Rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c
		}
		if err := table.Append(cells...); err != nil {
			return err
		}
	}
	return table.Render()
}

// MarkdownFormatter writes the report as a markdown document.
type MarkdownFormatter struct{}

// Format implements the Formatter interface.
func (f *MarkdownFormatter) Format(w io.Writer, r *Report) error {
	doc := md.NewMarkdown(w)
	if r.Title != "" {
		doc.H1(r.Title).LF()
	}
	for _, note := range r.Notes {
		doc.PlainText(note).LF()
	}
	for _, s := range r.Sections {
		if s.Heading != "" {
			doc.H2(s.Heading).LF()
		}
		if len(s.Data.Rows) == 0 {
			doc.PlainText("_None._").LF()
			continue
		}
		doc.Table(md.TableSet{Header: s.Data.Headers, Rows: s.Data.Rows}).LF()
	}
	return doc.Build()
}

// Write renders r to w in the requested format, detecting it when empty.
func Write(w io.Writer, format string, r *Report) error {
	return NewFormatter(DetectFormat(format)).Format(w, r)
}
