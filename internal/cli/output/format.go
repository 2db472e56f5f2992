// Package output renders command results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an output format selected with --output.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses s. The empty string selects the table format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("invalid output format: %q (valid: table, json, yaml)", s)
}

func (f Format) String() string { return string(f) }

// Printer writes values in one format.
type Printer struct {
	w      io.Writer
	format Format
	color  bool
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer, format Format, color bool) *Printer {
	return &Printer{w: w, format: format, color: color}
}

// Format returns the printer's format.
func (p *Printer) Format() Format { return p.format }

// Print writes v. In table format v must implement TableRenderer; other
// values fall back to JSON.
func (p *Printer) Print(v any) error {
	switch p.format {
	case FormatTable:
		if tr, ok := v.(TableRenderer); ok {
			return PrintTable(p.w, tr)
		}
		return PrintJSON(p.w, v)
	case FormatJSON:
		return PrintJSON(p.w, v)
	case FormatYAML:
		return PrintYAML(p.w, v)
	}
	return fmt.Errorf("unknown format: %s", p.format)
}

// Success prints msg in green when color is enabled.
func (p *Printer) Success(msg string) { p.colored("\033[32m", msg) }

// Warning prints msg in yellow when color is enabled.
func (p *Printer) Warning(msg string) { p.colored("\033[33m", msg) }

// Error prints msg in red when color is enabled.
func (p *Printer) Error(msg string) { p.colored("\033[31m", msg) }

func (p *Printer) colored(code, msg string) {
	if p.color {
		_, _ = fmt.Fprintf(p.w, "%s%s\033[0m\n", code, msg)
		return
	}
	_, _ = fmt.Fprintln(p.w, msg)
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintYAML writes v as YAML with two-space indentation.
func PrintYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
