// Package dna defines the Design DNA intermediate representation and the
// vision-service extractor that produces it.
//
// Design DNA is the inferred design-philosophy profile of a source page. It
// is produced once per extraction, immutable afterward, and consumed by
// every downstream composition stage. A degraded DNA (service unreachable,
// malformed output) is always still usable: every field has a documented
// neutral default.
package dna

import "image"

// Philosophy classifies a page's overall visual design philosophy.
type Philosophy string

// Recognized design philosophies.
const (
	PhilosophyMinimalist Philosophy = "minimalist"
	PhilosophyMaximalist Philosophy = "maximalist"
	PhilosophyBrutalist  Philosophy = "brutalist"
	PhilosophyLuxurious  Philosophy = "luxurious"
	PhilosophyPlayful    Philosophy = "playful"
	PhilosophyCorporate  Philosophy = "corporate"
	PhilosophyEditorial  Philosophy = "editorial"
	PhilosophyUnknown    Philosophy = "unknown"
)

// knownPhilosophies is the validation set for extractor output.
var knownPhilosophies = map[Philosophy]bool{
	PhilosophyMinimalist: true,
	PhilosophyMaximalist: true,
	PhilosophyBrutalist:  true,
	PhilosophyLuxurious:  true,
	PhilosophyPlayful:    true,
	PhilosophyCorporate:  true,
	PhilosophyEditorial:  true,
	PhilosophyUnknown:    true,
}

// HeroKind classifies the page's dominant visual element.
type HeroKind string

// Hero element kinds.
const (
	HeroNone         HeroKind = "none"
	HeroPhotography  HeroKind = "photography"
	HeroIllustration HeroKind = "illustration"
	HeroProduct      HeroKind = "product"
	HeroTypography   HeroKind = "typography"
)

var knownHeroKinds = map[HeroKind]bool{
	HeroNone:         true,
	HeroPhotography:  true,
	HeroIllustration: true,
	HeroProduct:      true,
	HeroTypography:   true,
}

// TypographyDNA captures the page's typographic character.
type TypographyDNA struct {
	Personality      string `json:"personality"`
	WeightContrast   string `json:"weightContrast"`   // low|medium|high
	SpacingCharacter string `json:"spacingCharacter"` // tight|normal|airy
}

// ColorPsychology captures the page's chromatic intent.
type ColorPsychology struct {
	EmotionalIntent string `json:"emotionalIntent"` // keys into colorpsy palettes
	Strategy        string `json:"strategy"`        // monochrome|complementary|analogous
	SaturationLevel string `json:"saturationLevel"` // muted|balanced|vivid
}

// SpatialIntelligence captures the page's layout character.
type SpatialIntelligence struct {
	Density             string `json:"density"` // sparse|balanced|dense
	Rhythm              string `json:"rhythm"`  // regular|varied
	WhitespaceIntention string `json:"whitespaceIntention"`
}

// HeroElement identifies the page's dominant visual and where it sits in
// the screenshot.
type HeroElement struct {
	Kind           HeroKind        `json:"kind"`
	BoundingRegion image.Rectangle `json:"boundingRegion"`
}

// BrandPersonality captures how the brand wants to feel.
type BrandPersonality struct {
	Adjectives    []string `json:"adjectives"`
	TargetFeeling string   `json:"targetFeeling"`
	Confidence    float64  `json:"confidence"` // 0..1
}

// DesignDNA is the shared intermediate representation driving all
// composition decisions downstream of extraction.
type DesignDNA struct {
	Philosophy       Philosophy          `json:"philosophy"`
	Typography       TypographyDNA       `json:"typographyDNA"`
	Color            ColorPsychology     `json:"colorPsychology"`
	Spatial          SpatialIntelligence `json:"spatialIntelligence"`
	Hero             HeroElement         `json:"heroElement"`
	Brand            BrandPersonality    `json:"brandPersonality"`

	// Degraded marks DNA built from defaults after extraction failure, so
	// downstream quality expectations can be relaxed.
	Degraded bool `json:"degraded,omitempty"`
}

// Defaults returns the all-defaults DesignDNA used when extraction fails or
// fields are missing. It is neutral on purpose: unknown philosophy, sans
// typography, trust palette, balanced spacing, no hero.
func Defaults() DesignDNA {
	return DesignDNA{
		Philosophy: PhilosophyUnknown,
		Typography: TypographyDNA{
			Personality:      "neutral",
			WeightContrast:   "medium",
			SpacingCharacter: "normal",
		},
		Color: ColorPsychology{
			EmotionalIntent: "trust",
			Strategy:        "monochrome",
			SaturationLevel: "balanced",
		},
		Spatial: SpatialIntelligence{
			Density:             "balanced",
			Rhythm:              "regular",
			WhitespaceIntention: "functional",
		},
		Hero: HeroElement{Kind: HeroNone},
		Brand: BrandPersonality{
			Adjectives:    []string{"clear", "dependable"},
			TargetFeeling: "confidence",
			Confidence:    0.3,
		},
	}
}
