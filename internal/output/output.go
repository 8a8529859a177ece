package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q, expected one of: table, json, yaml", s)
	}
}

// Formatter writes data to w
type Formatter interface {
	Format(w io.Writer, data any) error
}

func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return JSONFormatter{}
	case FormatYAML:
		return YAMLFormatter{}
	default:
		return TableFormatter{}
	}
}

// Table is data ready to be printed in columns
type Table struct {
	Headers []string
	Rows    [][]string
}

// Tabular is implemented by data that knows how to be shown as table
type Tabular interface {
	Table() Table
}

type TableFormatter struct{}

// Format prints Table or Tabular in aligned columns, anything else with fmt
func (TableFormatter) Format(w io.Writer, data any) error {
	var t Table
	switch v := data.(type) {
	case Table:
		t = v
	case Tabular:
		t = v.Table()
	case nil:
		return nil
	default:
		_, err := fmt.Fprintln(w, v)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		_, _ = fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

type JSONFormatter struct{}

func (JSONFormatter) Format(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

type YAMLFormatter struct{}

func (YAMLFormatter) Format(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

// Shorten long identifiers keeping head and tail: GABCDEFG...UVWXYZ12
func Shorten(s string, keep int) string {
	if keep <= 0 || len(s) <= 2*keep+3 {
		return s
	}
	return s[:keep] + "..." + s[len(s)-keep:]
}
