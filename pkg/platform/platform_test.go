package platform

import (
	"image"
	"image/color"
	"testing"

	"github.com/previewforge/previewforge/pkg/compose"
	"github.com/previewforge/previewforge/pkg/dna"
	"github.com/previewforge/previewforge/pkg/errors"
)

func baseRendered(t *testing.T, e *compose.Engine, req compose.Request) compose.Rendered {
	t.Helper()
	plan, err := e.Compose(req, dna.Defaults(), compose.TemplateTextFocused, compose.TreatmentEmotion, compose.EmphasisTitle)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	rendered, err := e.Render(plan, req)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return rendered
}

func TestLookup(t *testing.T) {
	p, err := Lookup("instagram")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.Width != 1080 || p.Height != 1080 {
		t.Errorf("instagram = %dx%d, want 1080x1080", p.Width, p.Height)
	}
	if _, err := Lookup("myspace"); !errors.Is(err, errors.ErrCodeInvalidPlatform) {
		t.Errorf("unknown platform err = %v, want INVALID_PLATFORM", err)
	}
}

func TestNamesIncludeTable(t *testing.T) {
	names := Names()
	if len(names) != len(profiles) {
		t.Fatalf("Names() returned %d entries, table has %d", len(names), len(profiles))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("names not sorted: %q before %q", names[i-1], names[i])
		}
	}
}

func TestOptimizeExactDimensions(t *testing.T) {
	e := compose.NewEngine(nil, nil)
	req := compose.Request{Title: "Retarget me", URL: "https://example.com"}
	base := baseRendered(t, e, req)

	for _, name := range []string{"instagram", "twitter", "story"} {
		p, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		out, err := NewOptimizer(e).Optimize(base, req, p)
		if err != nil {
			t.Fatalf("Optimize(%q): %v", name, err)
		}
		b := out.Image.Bounds()
		if b.Dx() != p.Width || b.Dy() != p.Height {
			t.Errorf("%s: got %dx%d, want %dx%d", name, b.Dx(), b.Dy(), p.Width, p.Height)
		}
		if out.Plan.Revision != base.Plan.Revision+1 {
			t.Errorf("%s: revision = %d, want bump", name, out.Plan.Revision)
		}
	}
}

func TestOptimizeRespectsSafeZones(t *testing.T) {
	e := compose.NewEngine(nil, nil)
	logo := image.NewNRGBA(image.Rect(0, 0, 120, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 120; x++ {
			logo.SetNRGBA(x, y, color.NRGBA{200, 40, 40, 255})
		}
	}
	req := compose.Request{Title: "Safe zones", URL: "https://example.com", Logo: logo}
	base := baseRendered(t, e, req)

	p, err := Lookup("story")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	out, err := NewOptimizer(e).Optimize(base, req, p)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	safe := insetRect(p)
	for _, tr := range out.TextRegions {
		if !tr.Rect.In(safe) {
			t.Errorf("text %q region %v breaches safe zone %v", tr.Role, tr.Rect, safe)
		}
	}
	if out.LogoRegion.Empty() {
		t.Fatal("logo not placed")
	}
	if !out.LogoRegion.In(safe) {
		t.Errorf("logo region %v breaches safe zone %v", out.LogoRegion, safe)
	}
}

func TestOptimizeKeepsPalette(t *testing.T) {
	e := compose.NewEngine(nil, nil)
	req := compose.Request{Title: "Palette survives"}
	base := baseRendered(t, e, req)

	p, err := Lookup("pinterest")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	out, err := NewOptimizer(e).Optimize(base, req, p)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if len(out.Plan.Palette) != len(base.Plan.Palette) {
		t.Fatalf("palette size changed: %d vs %d", len(out.Plan.Palette), len(base.Plan.Palette))
	}
	for i := range base.Plan.Palette {
		if out.Plan.Palette[i] != base.Plan.Palette[i] {
			t.Errorf("palette[%d] changed: %q vs %q", i, out.Plan.Palette[i], base.Plan.Palette[i])
		}
	}
}
