// Package export writes rendered previews and their composition metadata
// to files or streams.
package export

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"time"

	"github.com/previewforge/previewforge/pkg/compose"
	"github.com/previewforge/previewforge/pkg/quality"
)

// Manifest is the JSON sidecar written next to a rendered preview: enough
// to reproduce, audit, or debug the composition.
type Manifest struct {
	RunID       string         `json:"runId"`
	URL         string         `json:"url,omitempty"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Template    string         `json:"template"`
	Treatment   string         `json:"treatment"`
	Emphasis    string         `json:"emphasis"`
	Revision    int            `json:"revision"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Palette     []string       `json:"palette"`
	Degraded    bool           `json:"degraded,omitempty"`
	Report      quality.Report `json:"report"`
}

// NewManifest builds a manifest for a rendered preview.
func NewManifest(runID, url string, r compose.Rendered, rep quality.Report, degraded bool) Manifest {
	return Manifest{
		RunID:       runID,
		URL:         url,
		GeneratedAt: time.Now().UTC(),
		Template:    string(r.Plan.Template),
		Treatment:   string(r.Plan.Treatment),
		Emphasis:    string(r.Plan.Emphasis),
		Revision:    r.Plan.Revision,
		Width:       r.Plan.Width,
		Height:      r.Plan.Height,
		Palette:     r.Plan.Palette,
		Degraded:    degraded,
		Report:      rep,
	}
}

// WritePNG encodes an image as PNG and writes it to w.
func WritePNG(img image.Image, w io.Writer) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// ExportPNG writes an image to a PNG file at path.
// This is a convenience wrapper around [WritePNG] for file-based output.
func ExportPNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WritePNG(img, f)
}

// WriteManifest encodes a manifest as indented JSON and writes it to w.
func WriteManifest(m Manifest, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return nil
}

// ExportManifest writes a manifest to a JSON file at path.
// This is a convenience wrapper around [WriteManifest].
func ExportManifest(m Manifest, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteManifest(m, f)
}
