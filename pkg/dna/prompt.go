package dna

import (
	"fmt"
	"strings"
)

// buildPrompt assembles the vision-service prompt. The schema block mirrors
// rawDNA exactly; the service is asked for JSON only, and parseResponse
// tolerates everything it might return anyway.
func buildPrompt(in Input) string {
	var b strings.Builder

	b.WriteString(`You are a visual design analyst. Examine the web page material below (and the attached screenshot, if any) and infer its design philosophy.

Respond with a single JSON object matching this schema, and nothing else:

{
  "philosophy": "minimalist|maximalist|brutalist|luxurious|playful|corporate|editorial|unknown",
  "typographyDNA": {
    "personality": "authoritative|friendly|elegant|playful|technical|bold|neutral",
    "weightContrast": "low|medium|high",
    "spacingCharacter": "tight|normal|airy"
  },
  "colorPsychology": {
    "emotionalIntent": "trust|energy|calm|luxury|growth|passion|innovation|warmth",
    "strategy": "monochrome|complementary|analogous",
    "saturationLevel": "muted|balanced|vivid"
  },
  "spatialIntelligence": {
    "density": "sparse|balanced|dense",
    "rhythm": "regular|varied",
    "whitespaceIntention": "luxurious|functional|cramped"
  },
  "heroElement": {
    "kind": "none|photography|illustration|product|typography",
    "boundingRegion": {"x": 0, "y": 0, "w": 0, "h": 0}
  },
  "brandPersonality": {
    "adjectives": ["..."],
    "targetFeeling": "...",
    "confidence": 0.0
  }
}

The boundingRegion is in screenshot pixel coordinates; use zeros when there is no hero element. Confidence is your own certainty in the brand reading, 0 to 1.

`)

	fmt.Fprintf(&b, "URL: %s\nTitle: %s\n", in.URL, in.Title)
	if in.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", in.Description)
	}
	if len(in.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(in.Keywords, ", "))
	}
	return b.String()
}
