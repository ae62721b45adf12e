package chart

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gochart "github.com/wcharczuk/go-chart/v2"
)

var chartsRenderedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pokecache_charts_rendered_total",
	Help: "Total charts rendered by format",
}, []string{"format"})

const (
	defaultWidth    = 640
	defaultHeight   = 480
	defaultBarWidth = 120
)

// Renderer turns a Spec into an Artifact.
type Renderer interface {
	Render(ctx context.Context, spec Spec) (Artifact, error)
}

// Encode draws spec onto w in the given format.
func Encode(w io.Writer, spec Spec, format Format) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	color, _ := parseColor(spec.Color)

	bars := make([]gochart.Value, len(spec.Values))
	maxValue := 0.0
	for i, v := range spec.Values {
		bars[i] = gochart.Value{
			Label: spec.Categories[i],
			Value: v,
			Style: gochart.Style{
				FillColor:   color,
				StrokeColor: color,
				StrokeWidth: 1,
			},
		}
		if v > maxValue {
			maxValue = v
		}
	}
	if maxValue == 0 {
		maxValue = 1
	}

	bc := gochart.BarChart{
		Title:  spec.Title,
		Width:  defaultWidth,
		Height: defaultHeight,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20},
		},
		BarWidth: defaultBarWidth,
		YAxis: gochart.YAxis{
			Name: spec.YLabel,
			// Bars are measured from zero, never from the smallest value.
			Range: &gochart.ContinuousRange{Min: 0, Max: maxValue * 1.1},
		},
		Bars: bars,
	}

	provider := gochart.PNG
	if format == FormatSVG {
		provider = gochart.SVG
	}
	if err := bc.Render(provider, w); err != nil {
		return fmt.Errorf("draw %q: %w", spec.Title, err)
	}
	return nil
}

// FileRenderer writes each chart to a file in a directory.
type FileRenderer struct {
	dir    string
	format Format
	logger zerolog.Logger
}

// NewFileRenderer creates dir if needed and returns a renderer writing into it.
func NewFileRenderer(dir string, format Format) (*FileRenderer, error) {
	if dir == "" {
		return nil, fmt.Errorf("chart directory is required")
	}
	if format != FormatPNG && format != FormatSVG {
		return nil, fmt.Errorf("unsupported chart format %q", format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart directory: %w", err)
	}
	return &FileRenderer{
		dir:    dir,
		format: format,
		logger: log.With().Str("component", "chart").Logger(),
	}, nil
}

// Dir returns the output directory.
func (r *FileRenderer) Dir() string {
	return r.dir
}

// Render writes spec to <dir>/<slug(title)>.<format>, replacing any previous
// file with the same name.
func (r *FileRenderer) Render(ctx context.Context, spec Spec) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	if err := spec.Validate(); err != nil {
		return Artifact{}, err
	}

	path := filepath.Join(r.dir, FileName(spec.Title, r.format))

	tmp, err := os.CreateTemp(r.dir, ".chart-*")
	if err != nil {
		return Artifact{}, fmt.Errorf("create chart file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, spec, r.format); err != nil {
		tmp.Close()
		return Artifact{}, err
	}
	if err := tmp.Close(); err != nil {
		return Artifact{}, fmt.Errorf("close chart file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Artifact{}, fmt.Errorf("move chart file: %w", err)
	}

	chartsRenderedTotal.WithLabelValues(string(r.format)).Inc()
	r.logger.Debug().Str("title", spec.Title).Str("path", path).Msg("Chart written")

	return Artifact{Title: spec.Title, Path: path, Format: r.format}, nil
}

// Discard validates specs without drawing them.
type Discard struct{}

// Render implements Renderer.
func (Discard) Render(ctx context.Context, spec Spec) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	if err := spec.Validate(); err != nil {
		return Artifact{}, err
	}
	chartsRenderedTotal.WithLabelValues("discard").Inc()
	return Artifact{Title: spec.Title}, nil
}

// FileName derives a file name from a chart title:
// "Height Comparison: Dog vs Pikachu" becomes
// "height-comparison-dog-vs-pikachu.png".
func FileName(title string, format Format) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = "chart"
	}
	return slug + "." + string(format)
}
