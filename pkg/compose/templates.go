package compose

import "github.com/previewforge/previewforge/pkg/dna"

// TemplateID identifies one of the fixed composition templates.
type TemplateID string

// The fixed template set.
const (
	TemplateHeroFocused     TemplateID = "hero-focused"
	TemplateTextFocused     TemplateID = "text-focused"
	TemplateSplit           TemplateID = "split"
	TemplateMinimalGradient TemplateID = "minimal-gradient"
)

// templatePriority breaks score ties: earlier wins.
var templatePriority = []TemplateID{
	TemplateHeroFocused,
	TemplateTextFocused,
	TemplateSplit,
	TemplateMinimalGradient,
}

// Templates returns the fixed template set in priority order.
func Templates() []TemplateID {
	out := make([]TemplateID, len(templatePriority))
	copy(out, templatePriority)
	return out
}

// ValidTemplate reports whether id names a known template.
func ValidTemplate(id TemplateID) bool {
	for _, t := range templatePriority {
		if t == id {
			return true
		}
	}
	return false
}

// SelectTemplate scores each template against the DNA's philosophy, hero
// element, and layout density with a weighted rule table. Highest score
// wins; ties fall back to the fixed priority order.
func SelectTemplate(d dna.DesignDNA) TemplateID {
	return pickTemplate(templateScores(d))
}

// templateScores builds the weighted rule table for one DNA profile.
func templateScores(d dna.DesignDNA) map[TemplateID]int {
	scores := map[TemplateID]int{}

	switch d.Hero.Kind {
	case dna.HeroPhotography, dna.HeroProduct:
		scores[TemplateHeroFocused] += 3
		scores[TemplateSplit] += 2
	case dna.HeroIllustration:
		scores[TemplateSplit] += 2
		scores[TemplateHeroFocused] += 1
	case dna.HeroTypography, dna.HeroNone:
		scores[TemplateTextFocused] += 3
		scores[TemplateMinimalGradient] += 2
	}

	switch d.Philosophy {
	case dna.PhilosophyMinimalist:
		scores[TemplateMinimalGradient] += 2
		scores[TemplateTextFocused] += 2
		scores[TemplateHeroFocused] -= 1
	case dna.PhilosophyMaximalist:
		scores[TemplateHeroFocused] += 2
		scores[TemplateSplit] += 1
	case dna.PhilosophyBrutalist:
		scores[TemplateTextFocused] += 2
	case dna.PhilosophyLuxurious:
		scores[TemplateHeroFocused] += 1
		scores[TemplateMinimalGradient] += 1
	case dna.PhilosophyPlayful:
		scores[TemplateSplit] += 1
		scores[TemplateMinimalGradient] += 1
	case dna.PhilosophyCorporate:
		scores[TemplateSplit] += 2
		scores[TemplateTextFocused] += 1
	case dna.PhilosophyEditorial:
		scores[TemplateTextFocused] += 2
		scores[TemplateSplit] += 1
	}

	switch d.Spatial.Density {
	case "sparse":
		scores[TemplateMinimalGradient]++
		scores[TemplateTextFocused]++
	case "dense":
		scores[TemplateSplit]++
		scores[TemplateHeroFocused]++
	}
	return scores
}

func pickTemplate(scores map[TemplateID]int) TemplateID {
	best := templatePriority[0]
	bestScore := scores[best]
	for _, id := range templatePriority[1:] {
		if scores[id] > bestScore {
			best, bestScore = id, scores[id]
		}
	}
	return best
}

// usesHero reports whether a template reserves canvas area for a hero image.
func usesHero(id TemplateID) bool {
	return id == TemplateHeroFocused || id == TemplateSplit
}
