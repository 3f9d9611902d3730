package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatCSV  OutputFormat = "csv"
)

// ParseOutputFormat validates a --output flag value. Empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", NewConfigError("output", fmt.Sprintf("unsupported format %q: must be 'text', 'json', or 'csv'", s))
	}
}

// Formatter renders a command result to w.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// Table is implemented by results that have a row-oriented form. Text
// output aligns it in columns and CSV output requires it.
type Table interface {
	Header() []string
	Rows() [][]string
}

// TextFormatter aligns Table values in columns under an upper-cased
// header. Anything else is printed with %v.
type TextFormatter struct{}

// FormatTo implements Formatter.
func (TextFormatter) FormatTo(w io.Writer, data any) error {
	table, ok := data.(Table)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := make([]string, len(table.Header()))
	for i, h := range table.Header() {
		header[i] = strings.ToUpper(h)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range table.Rows() {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// JSONFormatter encodes data as JSON, one document per call.
type JSONFormatter struct {
	Indent bool
}

// FormatTo implements Formatter.
func (f JSONFormatter) FormatTo(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

// CSVFormatter writes Table values as CSV with a header row.
type CSVFormatter struct{}

// FormatTo implements Formatter.
func (CSVFormatter) FormatTo(w io.Writer, data any) error {
	table, ok := data.(Table)
	if !ok {
		return fmt.Errorf("CSV output is not supported for %T", data)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(table.Header()); err != nil {
		return err
	}
	// WriteAll flushes.
	return cw.WriteAll(table.Rows())
}

// NewFormatter returns the formatter for format; unknown formats get text.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return JSONFormatter{Indent: true}
	case FormatCSV:
		return CSVFormatter{}
	default:
		return TextFormatter{}
	}
}
