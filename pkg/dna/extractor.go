package dna

import (
	"context"
	"encoding/json"
	"image"
	"time"

	"github.com/charmbracelet/log"

	"github.com/previewforge/previewforge/pkg/errors"
	"github.com/previewforge/previewforge/pkg/httputil"
	"github.com/previewforge/previewforge/pkg/observability"
)

// Vision is the external AI content/vision collaborator. It takes a prompt
// and an optional screenshot and returns DesignDNA-shaped JSON.
type Vision interface {
	GenerateJSON(ctx context.Context, prompt string, screenshot []byte) (json.RawMessage, error)
}

// Input is the material the extractor sends to the vision service.
type Input struct {
	URL         string
	Title       string
	Description string
	Keywords    []string
	Screenshot  []byte // PNG/JPEG bytes, optional
}

// Extractor turns page material into DesignDNA via the vision service,
// degrading to defaults instead of failing.
type Extractor struct {
	vision   Vision
	attempts int
	delay    time.Duration
	logger   *log.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithAttempts sets the bounded retry count for vision calls.
func WithAttempts(n int) ExtractorOption {
	return func(e *Extractor) { e.attempts = n }
}

// WithRetryDelay sets the initial backoff delay (doubles per retry).
func WithRetryDelay(d time.Duration) ExtractorOption {
	return func(e *Extractor) { e.delay = d }
}

// WithLogger sets the extractor's logger.
func WithLogger(l *log.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an extractor over the given vision collaborator.
func NewExtractor(v Vision, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		vision:   v,
		attempts: 3,
		delay:    time.Second,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract calls the vision service with bounded backoff and returns the
// best DesignDNA it can. It never returns an error: network failure,
// exhaustion, and malformed output all degrade to defaults with
// Degraded=true so the pipeline keeps moving.
func (e *Extractor) Extract(ctx context.Context, in Input) DesignDNA {
	start := time.Now()
	observability.Pipeline().OnExtractStart(ctx, in.URL)

	var raw json.RawMessage
	err := httputil.Retry(ctx, e.attempts, e.delay, func() error {
		var callErr error
		raw, callErr = e.vision.GenerateJSON(ctx, buildPrompt(in), in.Screenshot)
		if callErr != nil {
			// All vision-service failures are transient from our point of
			// view; the retry bound is what keeps this finite.
			return &httputil.RetryableError{Err: callErr}
		}
		return nil
	})
	if err != nil {
		e.logger.Warn("design extraction failed, using defaults",
			"url", in.URL, "error", err)
		out := Defaults()
		out.Degraded = true
		observability.Pipeline().OnExtractComplete(ctx, in.URL, true, time.Since(start),
			errors.Wrap(errors.ErrCodeExtractionDegraded, err, "vision service exhausted"))
		return out
	}

	out := parseResponse(raw, e.logger)
	observability.Pipeline().OnExtractComplete(ctx, in.URL, out.Degraded, time.Since(start), nil)
	return out
}

// rawDNA mirrors DesignDNA with pointer sections so missing fields are
// distinguishable from zero values.
type rawDNA struct {
	Philosophy *string              `json:"philosophy"`
	Typography *TypographyDNA       `json:"typographyDNA"`
	Color      *ColorPsychology     `json:"colorPsychology"`
	Spatial    *SpatialIntelligence `json:"spatialIntelligence"`
	Hero       *rawHero             `json:"heroElement"`
	Brand      *BrandPersonality    `json:"brandPersonality"`
}

type rawHero struct {
	Kind           string           `json:"kind"`
	BoundingRegion *rawRegion       `json:"boundingRegion"`
}

type rawRegion struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// parseResponse validates the service response against the DesignDNA shape,
// filling each missing or invalid section with its default. Any defaulted
// section marks the result degraded.
func parseResponse(raw json.RawMessage, logger *log.Logger) DesignDNA {
	out := Defaults()

	var r rawDNA
	if err := json.Unmarshal(raw, &r); err != nil {
		logger.Warn("malformed extraction response, using defaults", "error", err)
		out.Degraded = true
		return out
	}

	degraded := false

	if r.Philosophy != nil && knownPhilosophies[Philosophy(*r.Philosophy)] {
		out.Philosophy = Philosophy(*r.Philosophy)
	} else {
		degraded = true
	}
	if r.Typography != nil && r.Typography.Personality != "" {
		out.Typography = *r.Typography
	} else {
		degraded = true
	}
	if r.Color != nil && r.Color.EmotionalIntent != "" {
		out.Color = *r.Color
	} else {
		degraded = true
	}
	if r.Spatial != nil && r.Spatial.Density != "" {
		out.Spatial = *r.Spatial
	} else {
		degraded = true
	}
	if r.Hero != nil && knownHeroKinds[HeroKind(r.Hero.Kind)] {
		out.Hero = HeroElement{Kind: HeroKind(r.Hero.Kind)}
		if br := r.Hero.BoundingRegion; br != nil && br.W > 0 && br.H > 0 {
			out.Hero.BoundingRegion = image.Rect(br.X, br.Y, br.X+br.W, br.Y+br.H)
		}
	} else {
		degraded = true
	}
	if r.Brand != nil && len(r.Brand.Adjectives) > 0 {
		out.Brand = *r.Brand
		if out.Brand.Confidence < 0 {
			out.Brand.Confidence = 0
		} else if out.Brand.Confidence > 1 {
			out.Brand.Confidence = 1
		}
	} else {
		degraded = true
	}

	out.Degraded = degraded
	return out
}
