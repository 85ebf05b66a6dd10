// Package colorpsy implements the color psychology engine: emotion-keyed
// palettes, HSL gradients, WCAG contrast math, and contrast-driven color
// adjustment.
//
// All functions are pure; colors cross the package boundary as normalized
// lowercase #rrggbb strings. Malformed input fails with an
// INVALID_COLOR_FORMAT error rather than being silently coerced.
package colorpsy

import (
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/previewforge/previewforge/pkg/errors"
)

// Contrast ratios from WCAG 2.1 AA. These are a published standard, not
// tunable policy.
const (
	// MinContrastNormal is the required ratio for normal-size text.
	MinContrastNormal = 4.5
	// MinContrastLarge is the required ratio for large text (>= ~24px).
	MinContrastLarge = 3.0
)

const (
	// lightnessStep is the per-iteration HSL lightness nudge used by EnsureContrast.
	lightnessStep = 0.05
	// maxContrastIters bounds the EnsureContrast search.
	maxContrastIters = 20
)

// Parse normalizes and parses a hex color. Accepts #rgb and #rrggbb in
// either case; returns the parsed color.
func Parse(s string) (colorful.Color, error) {
	n, err := Normalize(s)
	if err != nil {
		return colorful.Color{}, err
	}
	c, err := colorful.Hex(n)
	if err != nil {
		return colorful.Color{}, errors.Wrap(errors.ErrCodeInvalidColor, err, "invalid color format: %q", s)
	}
	return c, nil
}

// Normalize converts a hex color to canonical lowercase #rrggbb form.
func Normalize(s string) (string, error) {
	if err := errors.ValidateHexColor(s); err != nil {
		return "", err
	}
	hex := strings.ToLower(s[1:])
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	return "#" + hex, nil
}

// emotionPalettes maps an emotional intent to an ordered palette, primary
// color first. The tables are fixed editorial choices; unknown intents fall
// through to the trust palette, which reads neutral on most pages.
var emotionPalettes = map[string][]string{
	"trust":      {"#1e3a8a", "#2563eb", "#60a5fa", "#dbeafe", "#f8fafc"},
	"energy":     {"#dc2626", "#f97316", "#facc15", "#fef3c7", "#1c1917"},
	"calm":       {"#0f766e", "#14b8a6", "#99f6e4", "#f0fdfa", "#134e4a"},
	"luxury":     {"#1c1917", "#44403c", "#a16207", "#fbbf24", "#fafaf9"},
	"growth":     {"#14532d", "#16a34a", "#86efac", "#f0fdf4", "#052e16"},
	"passion":    {"#881337", "#e11d48", "#fb7185", "#ffe4e6", "#1c1917"},
	"innovation": {"#312e81", "#6366f1", "#a5b4fc", "#e0e7ff", "#0f172a"},
	"warmth":     {"#7c2d12", "#ea580c", "#fdba74", "#ffedd5", "#1c1917"},
}

// DefaultEmotion is the palette key used when the extracted intent is
// unknown or missing.
const DefaultEmotion = "trust"

// PaletteForEmotion returns the ordered palette for an emotional intent.
// Unrecognized intents return the DefaultEmotion palette.
func PaletteForEmotion(intent string) []string {
	p, ok := emotionPalettes[strings.ToLower(strings.TrimSpace(intent))]
	if !ok {
		p = emotionPalettes[DefaultEmotion]
	}
	out := make([]string, len(p))
	copy(out, p)
	return out
}

// Gradient interpolates between two colors in HSL space, taking the shorter
// hue arc. The result has exactly steps entries including both endpoints;
// steps < 2 returns just the endpoints.
func Gradient(a, b string, steps int) ([]string, error) {
	ca, err := Parse(a)
	if err != nil {
		return nil, err
	}
	cb, err := Parse(b)
	if err != nil {
		return nil, err
	}
	if steps < 2 {
		steps = 2
	}

	ha, sa, la := ca.Hsl()
	hb, sb, lb := cb.Hsl()

	// Shorter arc: wrap the hue delta into [-180, 180].
	dh := hb - ha
	if dh > 180 {
		dh -= 360
	} else if dh < -180 {
		dh += 360
	}

	out := make([]string, steps)
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps-1)
		h := math.Mod(ha+dh*t+360, 360)
		c := colorful.Hsl(h, sa+(sb-sa)*t, la+(lb-la)*t)
		out[i] = c.Clamped().Hex()
	}
	return out, nil
}

// RelativeLuminance computes WCAG relative luminance for a hex color.
func RelativeLuminance(s string) (float64, error) {
	c, err := Parse(s)
	if err != nil {
		return 0, err
	}
	return luminance(c), nil
}

func luminance(c colorful.Color) float64 {
	return 0.2126*linearize(c.R) + 0.7152*linearize(c.G) + 0.0722*linearize(c.B)
}

// linearize applies the sRGB gamma expansion from the WCAG definition.
func linearize(v float64) float64 {
	if v <= 0.03928 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// ContrastRatio computes the WCAG contrast ratio between two colors.
// The result is symmetric in its arguments and always >= 1.
func ContrastRatio(fg, bg string) (float64, error) {
	lf, err := RelativeLuminance(fg)
	if err != nil {
		return 0, err
	}
	lb, err := RelativeLuminance(bg)
	if err != nil {
		return 0, err
	}
	hi, lo := lf, lb
	if lo > hi {
		hi, lo = lo, hi
	}
	return (hi + 0.05) / (lo + 0.05), nil
}

// OptimalTextColor returns black or white, whichever contrasts more with bg.
func OptimalTextColor(bg string) (string, error) {
	black, err := ContrastRatio("#000000", bg)
	if err != nil {
		return "", err
	}
	white, _ := ContrastRatio("#ffffff", bg)
	if black >= white {
		return "#000000", nil
	}
	return "#ffffff", nil
}

// Lighten raises a color's HSL lightness by amount, clamped to [0, 1].
func Lighten(s string, amount float64) (string, error) {
	return shiftLightness(s, amount)
}

// Darken lowers a color's HSL lightness by amount, clamped to [0, 1].
func Darken(s string, amount float64) (string, error) {
	return shiftLightness(s, -amount)
}

func shiftLightness(s string, delta float64) (string, error) {
	c, err := Parse(s)
	if err != nil {
		return "", err
	}
	h, sat, l := c.Hsl()
	l = math.Max(0, math.Min(1, l+delta))
	return colorful.Hsl(h, sat, l).Clamped().Hex(), nil
}

// EnsureContrast nudges fg's lightness away from bg in fixed steps until the
// contrast ratio reaches minRatio or the iteration bound is hit. It returns
// the best color achieved and whether the target ratio was met; when the
// target is unreachable within [0,1] lightness the caller still gets the
// closest achievable color.
func EnsureContrast(fg, bg string, minRatio float64) (string, bool, error) {
	cf, err := Parse(fg)
	if err != nil {
		return "", false, err
	}
	if _, err := Parse(bg); err != nil {
		return "", false, err
	}

	bgLum, _ := RelativeLuminance(bg)
	// Move away from the background: darken over light backgrounds,
	// lighten over dark ones.
	dir := -1.0
	if bgLum < 0.5 {
		dir = 1.0
	}

	h, sat, l := cf.Hsl()
	best := cf.Clamped().Hex()
	bestRatio, _ := ContrastRatio(best, bg)
	if bestRatio >= minRatio {
		return best, true, nil
	}

	for i := 0; i < maxContrastIters; i++ {
		l = math.Max(0, math.Min(1, l+dir*lightnessStep))
		cand := colorful.Hsl(h, sat, l).Clamped().Hex()
		ratio, _ := ContrastRatio(cand, bg)
		if ratio > bestRatio {
			bestRatio = ratio
			best = cand
		}
		if bestRatio >= minRatio {
			return best, true, nil
		}
		if l <= 0 || l >= 1 {
			break
		}
	}
	return best, false, nil
}
