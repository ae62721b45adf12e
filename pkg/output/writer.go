// Package output writes command results as JSON or YAML.
//
// Usage:
//
//	w := output.NewWriter(output.FormatYAML, os.Stdout)
//	if err := w.Write(result); err != nil {
//		return err
//	}
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format represents the output format type.
type Format string

const (
	// FormatJSON outputs indented JSON.
	FormatJSON Format = "json"

	// FormatYAML outputs YAML.
	FormatYAML Format = "yaml"
)

// ParseFormat converts a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want json or yaml)", s)
	}
}

// SupportedFormats returns a list of all supported output formats.
func SupportedFormats() []string {
	return []string{string(FormatJSON), string(FormatYAML)}
}

// Writer serializes values to an io.Writer.
type Writer struct {
	format Format
	out    io.Writer
}

// NewWriter creates a Writer. A nil out writes to os.Stdout; an unknown
// format falls back to JSON.
func NewWriter(format Format, out io.Writer) *Writer {
	if out == nil {
		out = os.Stdout
	}
	if format != FormatJSON && format != FormatYAML {
		format = FormatJSON
	}
	return &Writer{format: format, out: out}
}

// Format returns the configured format.
func (w *Writer) Format() Format {
	return w.format
}

// Write serializes v. Output is buffered so a failed encode writes nothing.
func (w *Writer) Write(v any) error {
	var buf bytes.Buffer

	switch w.format {
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
	default:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
	}

	if _, err := w.out.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
