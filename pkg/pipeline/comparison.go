package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Sternrassler/pokecache/pkg/chart"
	"github.com/tidwall/gjson"
)

const (
	// YLabel labels the vertical axis of every comparison chart.
	YLabel = "Height (m)"

	// BarColor is the uniform fill of every bar.
	BarColor = "blue"

	// decimetresPerMetre converts the upstream height unit.
	decimetresPerMetre = 10
)

// Comparison pairs a reference subject with a creature, heights in metres.
type Comparison struct {
	Subject         string  `json:"subject" yaml:"subject"`
	ReferenceHeight float64 `json:"referenceHeight" yaml:"referenceHeight"`
	CreatureHeight  float64 `json:"creatureHeight" yaml:"creatureHeight"`
}

type reference struct {
	subject string
	height  float64
}

// Reference heights in metres, in chart order.
var references = [...]reference{
	{"Dog", 0.5},
	{"Human", 1.7},
	{"Elephant", 3.5},
}

// BuildComparisons pairs heightMeters with each reference subject.
func BuildComparisons(heightMeters float64) []Comparison {
	out := make([]Comparison, len(references))
	for i, ref := range references {
		out[i] = Comparison{
			Subject:         ref.subject,
			ReferenceHeight: ref.height,
			CreatureHeight:  heightMeters,
		}
	}
	return out
}

// ChartSpec builds the bar chart for one comparison. displayName is the
// capitalized creature name.
func ChartSpec(c Comparison, displayName string) chart.Spec {
	return chart.Spec{
		Title:      fmt.Sprintf("Height Comparison: %s vs %s", c.Subject, displayName),
		YLabel:     YLabel,
		Categories: []string{c.Subject, displayName},
		Values:     []float64{c.ReferenceHeight, c.CreatureHeight},
		Color:      BarColor,
	}
}

// HeightMeters reads the "height" field (decimetres) of doc and converts it
// to metres. Numeric strings are accepted. A missing, non-numeric,
// non-finite or negative height returns ErrMalformedRecord.
func HeightMeters(doc json.RawMessage) (float64, error) {
	if !gjson.ValidBytes(doc) {
		return 0, fmt.Errorf("%w: document is not valid JSON", ErrMalformedRecord)
	}

	field := gjson.GetBytes(doc, "height")
	if !field.Exists() {
		return 0, fmt.Errorf("%w: height is missing", ErrMalformedRecord)
	}

	var decimetres float64
	switch field.Type {
	case gjson.Number:
		decimetres = field.Num
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(field.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: height %q is not a number", ErrMalformedRecord, field.Str)
		}
		decimetres = v
	default:
		return 0, fmt.Errorf("%w: height has type %s", ErrMalformedRecord, field.Type)
	}

	if math.IsNaN(decimetres) || math.IsInf(decimetres, 0) || decimetres < 0 {
		return 0, fmt.Errorf("%w: height %v is out of range", ErrMalformedRecord, decimetres)
	}

	return decimetres / decimetresPerMetre, nil
}
