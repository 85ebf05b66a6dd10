// Package typography implements the typography intelligence layer:
// personality-keyed font selection, adaptive text sizing, line breaking, and
// shadow parameter selection.
package typography

import (
	"math"
	"strings"

	"github.com/previewforge/previewforge/pkg/errors"
)

// Sizing heuristics. Character width and line height are approximations of
// average glyph metrics; they only need to be consistent, the renderer
// measures real glyphs before drawing.
const (
	fontCharWidth   = 0.55
	lineHeightRatio = 1.25
	sizeDecrement   = 2.0
	// MinFontSize is the hard floor below which text is declared overflowed
	// instead of shrunk further.
	MinFontSize = 12.0
)

// Tier identifies the importance of a text role on the card.
type Tier int

// Importance tiers, most prominent first.
const (
	TierTitle Tier = iota
	TierSubtitle
	TierBody
	TierCaption
)

// baseSizes are the starting font sizes per tier, in pixels on the
// 1200x630 reference canvas.
var baseSizes = map[Tier]float64{
	TierTitle:    64,
	TierSubtitle: 36,
	TierBody:     24,
	TierCaption:  18,
}

// BaseSize returns the tier's starting size before any shrinking.
func BaseSize(t Tier) float64 {
	if s, ok := baseSizes[t]; ok {
		return s
	}
	return baseSizes[TierBody]
}

// FontChoice describes the font stack and base parameters selected for a
// typography personality.
type FontChoice struct {
	Personality   string   // The personality tag this choice was derived from
	Stack         []string // Preferred font files, best first (resolved by pkg/fonts)
	Weight        int      // CSS-style weight, 400 = regular
	LetterSpacing float64  // Additional tracking in px per glyph
	UppercaseHint bool     // Whether titles read better uppercased
}

// personalityTable is a fixed lookup from personality tag to font choice.
// Stacks name common system font files; the font library falls back to the
// bundled Go faces when none resolve.
var personalityTable = map[string]FontChoice{
	"authoritative": {
		Stack:         []string{"Helvetica-Bold.ttf", "Arial Bold.ttf", "DejaVuSans-Bold.ttf"},
		Weight:        700,
		LetterSpacing: 0,
	},
	"friendly": {
		Stack:         []string{"Verdana.ttf", "Trebuchet MS.ttf", "DejaVuSans.ttf"},
		Weight:        400,
		LetterSpacing: 0.2,
	},
	"elegant": {
		Stack:         []string{"Georgia.ttf", "Times New Roman.ttf", "DejaVuSerif.ttf"},
		Weight:        400,
		LetterSpacing: 0.6,
	},
	"playful": {
		Stack:         []string{"Comic Sans MS.ttf", "Chalkboard.ttf", "DejaVuSans.ttf"},
		Weight:        400,
		LetterSpacing: 0.4,
	},
	"technical": {
		Stack:         []string{"Menlo.ttf", "Consolas.ttf", "DejaVuSansMono.ttf"},
		Weight:        400,
		LetterSpacing: 0,
	},
	"bold": {
		Stack:         []string{"Impact.ttf", "Arial Black.ttf", "DejaVuSans-Bold.ttf"},
		Weight:        800,
		LetterSpacing: 0.3,
		UppercaseHint: true,
	},
}

// neutralChoice is the unknown-personality fallback: a plain sans stack.
var neutralChoice = FontChoice{
	Stack:  []string{"Helvetica.ttf", "Arial.ttf", "DejaVuSans.ttf"},
	Weight: 400,
}

// ForPersonality maps a personality tag to a font choice. Unknown tags get
// a neutral sans-serif stack.
func ForPersonality(personality string) FontChoice {
	key := strings.ToLower(strings.TrimSpace(personality))
	choice, ok := personalityTable[key]
	if !ok {
		choice = neutralChoice
	}
	choice.Personality = key
	stack := make([]string, len(choice.Stack))
	copy(stack, choice.Stack)
	choice.Stack = stack
	return choice
}

// AdaptiveFontSize finds the largest size at or below the tier's base size
// whose wrapped line count fits the container. The estimate uses average
// glyph width; the renderer re-measures with real metrics.
//
// When even MinFontSize overflows the container, the minimum size is
// returned alongside a TEXT_OVERFLOW error so the caller can truncate.
func AdaptiveFontSize(text string, containerWidth, containerHeight float64, tier Tier) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" || containerWidth <= 0 || containerHeight <= 0 {
		return MinFontSize, errors.New(errors.ErrCodeInvalidInput, "adaptive size needs text and a positive container")
	}

	for size := BaseSize(tier); size >= MinFontSize; size -= sizeDecrement {
		if fits(text, containerWidth, containerHeight, size) {
			return size, nil
		}
	}
	if fits(text, containerWidth, containerHeight, MinFontSize) {
		return MinFontSize, nil
	}
	return MinFontSize, errors.New(errors.ErrCodeTextOverflow,
		"text does not fit %gx%g even at minimum size", containerWidth, containerHeight)
}

func fits(text string, w, h, size float64) bool {
	lines := OptimalLineBreaks(text, MaxCharsPerLine(w, size))
	// A single word longer than the wrap budget lands on its own line;
	// the estimated width catches that horizontal overflow.
	for _, line := range lines {
		if EstimateWidth(line, size, 0) > w {
			return false
		}
	}
	return float64(len(lines))*size*lineHeightRatio <= h
}

// MaxCharsPerLine converts a pixel width and font size to the wrap budget
// used by OptimalLineBreaks.
func MaxCharsPerLine(containerWidth, size float64) int {
	n := int(containerWidth / (size * fontCharWidth))
	if n < 1 {
		n = 1
	}
	return n
}

// orphanMaxLen is the longest trailing word still considered an orphan.
const orphanMaxLen = 4

// OptimalLineBreaks wraps text greedily at maxChars per line, then applies
// an orphan-avoidance pass: a final line holding a single short word pulls
// one word down from the line above.
func OptimalLineBreaks(text string, maxChars int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxChars < 1 {
		maxChars = 1
	}

	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		if len(current)+1+len(w) <= maxChars {
			current += " " + w
			continue
		}
		lines = append(lines, current)
		current = w
	}
	lines = append(lines, current)

	// Orphan rule: rebalance the final break one word earlier when the last
	// line is a lone short word and the previous line has words to give.
	if n := len(lines); n >= 2 {
		last := lines[n-1]
		if !strings.Contains(last, " ") && len(last) <= orphanMaxLen {
			prev := strings.Fields(lines[n-2])
			if len(prev) >= 2 {
				moved := prev[len(prev)-1]
				lines[n-2] = strings.Join(prev[:len(prev)-1], " ")
				lines[n-1] = moved + " " + last
			}
		}
	}
	return lines
}

// Shadow describes a text drop shadow.
type Shadow struct {
	Blur    float64 // Blur radius in px
	Opacity float64 // 0..1
	Color   string  // Shadow color, normalized hex
	OffsetY float64 // Vertical offset in px
}

// ShadowParams selects shadow strength from the background's luminance and
// local variance. Low-luminance or busy backgrounds get a stronger shadow;
// bright flat backgrounds barely need one.
func ShadowParams(bgLuminance, bgVariance float64) Shadow {
	s := Shadow{Color: "#000000", OffsetY: 2}
	switch {
	case bgLuminance < 0.25 || bgVariance > 0.15:
		s.Blur = 8
		s.Opacity = 0.65
	case bgLuminance < 0.6 || bgVariance > 0.08:
		s.Blur = 5
		s.Opacity = 0.45
	default:
		s.Blur = 3
		s.Opacity = 0.25
	}
	// Near-white backgrounds carry dark text; flip the shadow to a light
	// halo so it lifts instead of smudges.
	if bgLuminance > 0.85 && bgVariance <= 0.08 {
		s.Color = "#ffffff"
		s.Opacity = math.Min(s.Opacity, 0.2)
	}
	return s
}

// EstimateWidth returns the approximate rendered width of text at size,
// including tracking.
func EstimateWidth(text string, size, letterSpacing float64) float64 {
	n := float64(len([]rune(text)))
	return n*size*fontCharWidth + math.Max(0, n-1)*letterSpacing
}
