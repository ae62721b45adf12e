package output

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	Name   string  `json:"name" yaml:"name"`
	Height float64 `json:"heightMeters" yaml:"heightMeters"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"YAML", FormatYAML, false},
		{" yaml ", FormatYAML, false},
		{"table", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(FormatJSON, &buf).Write(sample{Name: "pikachu", Height: 0.4}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	want := "{\n  \"name\": \"pikachu\",\n  \"heightMeters\": 0.4\n}\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriter_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(FormatYAML, &buf).Write(sample{Name: "pikachu", Height: 0.4}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "name: pikachu") {
		t.Errorf("missing name in %q", out)
	}
	if !strings.Contains(out, "heightMeters: 0.4") {
		t.Errorf("missing height in %q", out)
	}
}

func TestWriter_UnknownFormatFallsBackToJSON(t *testing.T) {
	w := NewWriter(Format("table"), &bytes.Buffer{})
	if w.Format() != FormatJSON {
		t.Errorf("Format() = %q, want json", w.Format())
	}
}

func TestWriter_EncodeErrorWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	err := NewWriter(FormatJSON, &buf).Write(map[string]any{"bad": make(chan int)})
	if err == nil {
		t.Fatal("expected encode error")
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}
