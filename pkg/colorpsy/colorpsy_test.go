package colorpsy

import (
	"math"
	"testing"

	"github.com/previewforge/previewforge/pkg/errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"#FFFFFF", "#ffffff", false},
		{"#abc", "#aabbcc", false},
		{"#1A2b3C", "#1a2b3c", false},
		{"ffffff", "", true},
		{"#zzz", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Normalize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidColor) {
			t.Errorf("Normalize(%q) should return INVALID_COLOR_FORMAT", tt.in)
		}
	}
}

func TestContrastRatioKnownValues(t *testing.T) {
	// Black on white is the WCAG maximum of 21:1.
	r, err := ContrastRatio("#000000", "#ffffff")
	if err != nil {
		t.Fatalf("ContrastRatio: %v", err)
	}
	if math.Abs(r-21.0) > 0.01 {
		t.Errorf("black/white contrast = %.4f, want 21.0", r)
	}

	// Identical colors have a ratio of exactly 1.
	r, _ = ContrastRatio("#777777", "#777777")
	if math.Abs(r-1.0) > 1e-9 {
		t.Errorf("same-color contrast = %.4f, want 1.0", r)
	}
}

func TestContrastRatioSymmetricAndAtLeastOne(t *testing.T) {
	pairs := [][2]string{
		{"#000000", "#ffffff"},
		{"#123456", "#abcdef"},
		{"#ff0000", "#00ff00"},
		{"#777777", "#777778"},
		{"#1e3a8a", "#f8fafc"},
	}
	for _, p := range pairs {
		ab, err := ContrastRatio(p[0], p[1])
		if err != nil {
			t.Fatalf("ContrastRatio(%q, %q): %v", p[0], p[1], err)
		}
		ba, _ := ContrastRatio(p[1], p[0])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("contrast not symmetric for %v: %.6f vs %.6f", p, ab, ba)
		}
		if ab < 1.0 {
			t.Errorf("contrast for %v = %.6f, want >= 1.0", p, ab)
		}
	}
}

func TestOptimalTextColor(t *testing.T) {
	tests := []struct {
		bg   string
		want string
	}{
		{"#ffffff", "#000000"}, // near-white background
		{"#f5f5f4", "#000000"},
		{"#000000", "#ffffff"}, // near-black background
		{"#0a0a0a", "#ffffff"},
		{"#1e3a8a", "#ffffff"}, // dark blue
	}
	for _, tt := range tests {
		got, err := OptimalTextColor(tt.bg)
		if err != nil {
			t.Fatalf("OptimalTextColor(%q): %v", tt.bg, err)
		}
		if got != tt.want {
			t.Errorf("OptimalTextColor(%q) = %q, want %q", tt.bg, got, tt.want)
		}
	}
}

func TestGradient(t *testing.T) {
	g, err := Gradient("#000000", "#ffffff", 5)
	if err != nil {
		t.Fatalf("Gradient: %v", err)
	}
	if len(g) != 5 {
		t.Fatalf("Gradient returned %d colors, want 5", len(g))
	}
	if g[0] != "#000000" || g[4] != "#ffffff" {
		t.Errorf("Gradient endpoints = %q, %q", g[0], g[4])
	}

	// Lightness should be monotonically increasing along the ramp.
	prev := -1.0
	for _, c := range g {
		l, _ := RelativeLuminance(c)
		if l < prev {
			t.Errorf("gradient luminance not monotonic at %q", c)
		}
		prev = l
	}
}

func TestGradientShorterHueArc(t *testing.T) {
	// Red (0°) to magenta-ish (330°) should interpolate through 345°, not
	// sweep the long way through green.
	g, err := Gradient("#ff0000", "#ff00aa", 3)
	if err != nil {
		t.Fatalf("Gradient: %v", err)
	}
	mid, _ := Parse(g[1])
	h, _, _ := mid.Hsl()
	if h > 60 && h < 300 {
		t.Errorf("midpoint hue %.1f took the longer arc", h)
	}
}

func TestGradientInvalidInput(t *testing.T) {
	if _, err := Gradient("#ff0000", "nope", 3); !errors.Is(err, errors.ErrCodeInvalidColor) {
		t.Errorf("Gradient with bad color should fail with INVALID_COLOR_FORMAT, got %v", err)
	}
}

func TestPaletteForEmotion(t *testing.T) {
	trust := PaletteForEmotion("trust")
	if len(trust) == 0 {
		t.Fatal("trust palette is empty")
	}
	if got := PaletteForEmotion("no-such-emotion"); got[0] != trust[0] {
		t.Errorf("unknown emotion should fall back to the %s palette", DefaultEmotion)
	}
	// Returned slices must be copies: mutating one must not leak.
	trust[0] = "#mutated"
	if again := PaletteForEmotion("trust"); again[0] == "#mutated" {
		t.Error("PaletteForEmotion returned a shared slice")
	}
}

func TestLightenDarken(t *testing.T) {
	lighter, err := Lighten("#808080", 0.2)
	if err != nil {
		t.Fatalf("Lighten: %v", err)
	}
	darker, _ := Darken("#808080", 0.2)

	ll, _ := RelativeLuminance(lighter)
	ld, _ := RelativeLuminance(darker)
	lm, _ := RelativeLuminance("#808080")
	if !(ll > lm && ld < lm) {
		t.Errorf("Lighten/Darken luminance ordering wrong: %.3f, %.3f, %.3f", ld, lm, ll)
	}

	// Clamping: lightening white stays white.
	w, _ := Lighten("#ffffff", 0.5)
	if w != "#ffffff" {
		t.Errorf("Lighten(#ffffff) = %q, want #ffffff", w)
	}
}

func TestEnsureContrastAchievable(t *testing.T) {
	// Gray on white: 4.5:1 is reachable by darkening.
	got, ok, err := EnsureContrast("#999999", "#ffffff", MinContrastNormal)
	if err != nil {
		t.Fatalf("EnsureContrast: %v", err)
	}
	if !ok {
		t.Fatal("EnsureContrast should reach 4.5:1 for gray on white")
	}
	r, _ := ContrastRatio(got, "#ffffff")
	if r < MinContrastNormal {
		t.Errorf("result contrast %.3f < %.1f", r, MinContrastNormal)
	}
}

func TestEnsureContrastAlreadySufficient(t *testing.T) {
	got, ok, err := EnsureContrast("#000000", "#ffffff", MinContrastNormal)
	if err != nil || !ok {
		t.Fatalf("EnsureContrast: ok=%v err=%v", ok, err)
	}
	if got != "#000000" {
		t.Errorf("sufficient color should be returned unchanged, got %q", got)
	}
}

func TestEnsureContrastUnreachable(t *testing.T) {
	// 21:1 against a mid-gray background is impossible; we must still get
	// the best achievable color back with ok=false, not an error.
	got, ok, err := EnsureContrast("#808080", "#808080", 21.0)
	if err != nil {
		t.Fatalf("EnsureContrast: %v", err)
	}
	if ok {
		t.Error("21:1 against mid-gray should not be achievable")
	}
	r, _ := ContrastRatio(got, "#808080")
	if r <= 1.0 {
		t.Errorf("best-effort color should still improve contrast, got %.3f", r)
	}
}

func TestEnsureContrastInvalidColor(t *testing.T) {
	if _, _, err := EnsureContrast("bogus", "#ffffff", 4.5); !errors.Is(err, errors.ErrCodeInvalidColor) {
		t.Errorf("want INVALID_COLOR_FORMAT, got %v", err)
	}
}
