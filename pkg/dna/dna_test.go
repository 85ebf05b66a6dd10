package dna

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
)

// fakeVision scripts vision-service responses for extractor tests.
type fakeVision struct {
	response json.RawMessage
	err      error
	failures int // fail this many calls before succeeding
	calls    int
}

func (f *fakeVision) GenerateJSON(ctx context.Context, prompt string, screenshot []byte) (json.RawMessage, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, fmt.Errorf("scripted failure")
	}
	return f.response, f.err
}

const completeResponse = `{
	"philosophy": "minimalist",
	"typographyDNA": {"personality": "elegant", "weightContrast": "high", "spacingCharacter": "airy"},
	"colorPsychology": {"emotionalIntent": "luxury", "strategy": "monochrome", "saturationLevel": "muted"},
	"spatialIntelligence": {"density": "sparse", "rhythm": "regular", "whitespaceIntention": "luxurious"},
	"heroElement": {"kind": "photography", "boundingRegion": {"x": 100, "y": 50, "w": 600, "h": 400}},
	"brandPersonality": {"adjectives": ["refined", "quiet"], "targetFeeling": "exclusivity", "confidence": 0.85}
}`

func newTestExtractor(v Vision) *Extractor {
	return NewExtractor(v, WithAttempts(2), WithRetryDelay(time.Millisecond))
}

func TestExtractComplete(t *testing.T) {
	e := newTestExtractor(&fakeVision{response: json.RawMessage(completeResponse)})
	got := e.Extract(context.Background(), Input{URL: "https://example.com", Title: "Example"})

	if got.Degraded {
		t.Error("complete response should not be degraded")
	}
	if got.Philosophy != PhilosophyMinimalist {
		t.Errorf("Philosophy = %q, want minimalist", got.Philosophy)
	}
	if got.Hero.Kind != HeroPhotography {
		t.Errorf("Hero.Kind = %q, want photography", got.Hero.Kind)
	}
	if got.Hero.BoundingRegion.Dx() != 600 || got.Hero.BoundingRegion.Dy() != 400 {
		t.Errorf("hero region = %v, want 600x400", got.Hero.BoundingRegion)
	}
	if got.Brand.Confidence != 0.85 {
		t.Errorf("Confidence = %g, want 0.85", got.Brand.Confidence)
	}
}

func TestExtractMissingColorPsychology(t *testing.T) {
	partial := `{
		"philosophy": "playful",
		"typographyDNA": {"personality": "playful", "weightContrast": "medium", "spacingCharacter": "normal"},
		"spatialIntelligence": {"density": "dense", "rhythm": "varied", "whitespaceIntention": "functional"},
		"heroElement": {"kind": "illustration"},
		"brandPersonality": {"adjectives": ["fun"], "targetFeeling": "delight", "confidence": 0.7}
	}`
	e := newTestExtractor(&fakeVision{response: json.RawMessage(partial)})
	got := e.Extract(context.Background(), Input{URL: "https://example.com"})

	if !got.Degraded {
		t.Error("missing colorPsychology must mark the result degraded")
	}
	defaults := Defaults()
	if got.Color != defaults.Color {
		t.Errorf("Color = %+v, want defaults %+v", got.Color, defaults.Color)
	}
	// The sections that were present must survive.
	if got.Philosophy != PhilosophyPlayful {
		t.Errorf("Philosophy = %q, want playful", got.Philosophy)
	}
}

func TestExtractMalformedJSON(t *testing.T) {
	e := newTestExtractor(&fakeVision{response: json.RawMessage(`not json at all`)})
	got := e.Extract(context.Background(), Input{URL: "https://example.com"})

	if !got.Degraded {
		t.Error("malformed response must degrade")
	}
	if got.Philosophy != PhilosophyUnknown {
		t.Errorf("Philosophy = %q, want unknown", got.Philosophy)
	}
}

func TestExtractUnknownPhilosophyRejected(t *testing.T) {
	resp := `{"philosophy": "vaporwave"}`
	e := newTestExtractor(&fakeVision{response: json.RawMessage(resp)})
	got := e.Extract(context.Background(), Input{})

	if got.Philosophy != PhilosophyUnknown {
		t.Errorf("unrecognized philosophy should default to unknown, got %q", got.Philosophy)
	}
	if !got.Degraded {
		t.Error("rejected philosophy must mark the result degraded")
	}
}

func TestExtractRetriesThenSucceeds(t *testing.T) {
	v := &fakeVision{response: json.RawMessage(completeResponse), failures: 1}
	e := newTestExtractor(v)
	got := e.Extract(context.Background(), Input{URL: "https://example.com"})

	if v.calls != 2 {
		t.Errorf("expected 2 calls (1 failure + 1 success), got %d", v.calls)
	}
	if got.Degraded {
		t.Error("recovered extraction should not be degraded")
	}
}

func TestExtractExhaustionDegrades(t *testing.T) {
	v := &fakeVision{failures: 10}
	e := newTestExtractor(v)
	got := e.Extract(context.Background(), Input{URL: "https://example.com"})

	if v.calls != 2 {
		t.Errorf("retry bound violated: %d calls, want 2", v.calls)
	}
	if !got.Degraded {
		t.Error("exhausted extraction must be degraded")
	}
	defaults := Defaults()
	if got.Philosophy != defaults.Philosophy || got.Color != defaults.Color || got.Hero != defaults.Hero {
		t.Errorf("exhausted extraction should return defaults, got %+v", got)
	}
}

func TestConfidenceClamped(t *testing.T) {
	resp := `{"brandPersonality": {"adjectives": ["loud"], "targetFeeling": "x", "confidence": 3.2}}`
	e := newTestExtractor(&fakeVision{response: json.RawMessage(resp)})
	got := e.Extract(context.Background(), Input{})
	if got.Brand.Confidence != 1 {
		t.Errorf("confidence should clamp to 1, got %g", got.Brand.Confidence)
	}
}

func TestBuildPromptIncludesMaterial(t *testing.T) {
	p := buildPrompt(Input{
		URL:         "https://example.com/pricing",
		Title:       "Pricing",
		Description: "Plans for every team",
		Keywords:    []string{"saas", "pricing"},
	})
	for _, want := range []string{"https://example.com/pricing", "Pricing", "Plans for every team", "saas, pricing", "philosophy"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
