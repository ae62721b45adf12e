// Package chart renders bar charts described by a Spec.
package chart

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrInvalidSpec is returned when a Spec cannot be drawn.
var ErrInvalidSpec = errors.New("invalid chart spec")

// Format is the encoding of a rendered chart.
type Format string

const (
	// FormatPNG renders raster images.
	FormatPNG Format = "png"

	// FormatSVG renders vector images.
	FormatSVG Format = "svg"
)

// ParseFormat converts a configuration string to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatPNG:
		return FormatPNG, nil
	case FormatSVG:
		return FormatSVG, nil
	default:
		return "", fmt.Errorf("unsupported chart format %q (want png or svg)", s)
	}
}

// Spec describes one bar chart.
type Spec struct {
	Title      string    `json:"title" yaml:"title"`
	YLabel     string    `json:"yLabel" yaml:"yLabel"`
	Categories []string  `json:"categories" yaml:"categories"`
	Values     []float64 `json:"values" yaml:"values"`
	Color      string    `json:"color" yaml:"color"`
}

// Validate checks that the spec describes at least one drawable bar.
func (s Spec) Validate() error {
	if len(s.Categories) == 0 {
		return fmt.Errorf("%w: no bars", ErrInvalidSpec)
	}
	if len(s.Categories) != len(s.Values) {
		return fmt.Errorf("%w: %d categories but %d values", ErrInvalidSpec, len(s.Categories), len(s.Values))
	}
	for i, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: value %d is not finite", ErrInvalidSpec, i)
		}
	}
	if _, err := parseColor(s.Color); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	return nil
}

// Artifact is a handle to a rendered chart.
type Artifact struct {
	Title  string `json:"title" yaml:"title"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	Format Format `json:"format,omitempty" yaml:"format,omitempty"`
}

var namedColors = map[string]drawing.Color{
	"blue":  drawing.ColorBlue,
	"red":   drawing.ColorRed,
	"green": drawing.ColorGreen,
	"black": drawing.ColorBlack,
}

// parseColor accepts a color name or a #rrggbb hex value. Empty means blue.
func parseColor(s string) (drawing.Color, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return drawing.ColorBlue, nil
	}
	if c, ok := namedColors[name]; ok {
		return c, nil
	}
	if strings.HasPrefix(name, "#") && len(name) == 7 && isHex(name[1:]) {
		return drawing.ColorFromHex(name[1:]), nil
	}
	return drawing.Color{}, fmt.Errorf("unknown color %q", s)
}

func isHex(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
