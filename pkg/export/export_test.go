package export

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/previewforge/previewforge/pkg/compose"
	"github.com/previewforge/previewforge/pkg/quality"
)

func sampleRendered() compose.Rendered {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, color.RGBA{200, 100, 50, 255})
		}
	}
	return compose.Rendered{
		Image: img,
		Plan: compose.Plan{
			Template: compose.TemplateSplit, Treatment: compose.TreatmentMono,
			Emphasis: compose.EmphasisTitle, Revision: 2,
			Width: 16, Height: 8, Palette: []string{"#112233", "#445566"},
		},
	}
}

func TestPNGRoundTrip(t *testing.T) {
	r := sampleRendered()
	path := filepath.Join(t.TempDir(), "card.png")
	if err := ExportPNG(r.Image, path); err != nil {
		t.Fatalf("ExportPNG: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bounds() != r.Image.Bounds() {
		t.Errorf("bounds = %v, want %v", decoded.Bounds(), r.Image.Bounds())
	}
}

func TestManifestContents(t *testing.T) {
	r := sampleRendered()
	rep := quality.Report{Scores: map[quality.Axis]float64{quality.AxisContrast: 0.9}, Passed: true, Overall: 0.9}
	m := NewManifest("run-1", "https://example.com", r, rep, true)

	var buf bytes.Buffer
	if err := WriteManifest(m, &buf); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	var got Manifest
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.RunID != "run-1" || got.Template != "split" || got.Revision != 2 || !got.Degraded {
		t.Errorf("manifest round-trip mismatch: %+v", got)
	}
	if !got.Report.Passed || got.Report.Overall != 0.9 {
		t.Errorf("report mismatch: %+v", got.Report)
	}
}
