// Package pipeline wires extraction, composition, validation, fixing,
// variant generation, and platform re-targeting into one cached
// execution path shared by the CLI and the dev server.
//
// # Architecture
//
// The pipeline runs extract → compose → validate → fix, optionally fans
// out variants, then re-targets the winner per platform:
//
//	runner := pipeline.NewRunner(cache, nil, extractor, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    URL:   "https://example.com",
//	    Title: "Example",
//	})
package pipeline

import (
	"image"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/previewforge/previewforge/pkg/cache"
	"github.com/previewforge/previewforge/pkg/colorpsy"
	"github.com/previewforge/previewforge/pkg/compose"
	"github.com/previewforge/previewforge/pkg/dna"
	"github.com/previewforge/previewforge/pkg/errors"
	"github.com/previewforge/previewforge/pkg/fixer"
	"github.com/previewforge/previewforge/pkg/platform"
	"github.com/previewforge/previewforge/pkg/quality"
	"github.com/previewforge/previewforge/pkg/variant"
)

// Default values shared by CLI, server, and tests.
const (
	// DefaultTimeout bounds one full pipeline run.
	DefaultTimeout = 60 * time.Second

	// DefaultModel is the vision model used for extraction.
	DefaultModel = dna.DefaultModel

	// DefaultVariantCount is used when variants are requested without an
	// explicit K.
	DefaultVariantCount = variant.DefaultCount
)

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for server requests.
type Options struct {
	// Content
	URL         string   `json:"url,omitempty"`
	Domain      string   `json:"domain,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Tone        string   `json:"tone,omitempty"`
	BrandColors []string `json:"brand_colors,omitempty"`

	// Inputs. Screenshot feeds extraction; Hero and Logo feed composition
	// and are supplied decoded by the caller.
	Screenshot []byte      `json:"screenshot,omitempty"`
	Hero       image.Image `json:"-"`
	Logo       image.Image `json:"-"`

	// Output geometry
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// Fan-out
	VariantCount   int      `json:"variant_count,omitempty"` // <=1 single-preview path
	Seed           int64    `json:"seed,omitempty"`          // 0 = time-derived, order unspecified
	Workers        int      `json:"workers,omitempty"`
	Platforms      []string `json:"platforms,omitempty"`
	MaxFixAttempts int      `json:"max_fix_attempts,omitempty"`

	// Extraction
	Model   string        `json:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty"`
	Refresh bool          `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := errors.ValidateTitle(o.Title); err != nil {
		return err
	}
	if err := errors.ValidateDimensions(o.Width, o.Height); err != nil {
		return err
	}
	for _, c := range o.BrandColors {
		if err := errors.ValidateHexColor(c); err != nil {
			return err
		}
	}
	for _, p := range o.Platforms {
		if _, err := platform.Lookup(p); err != nil {
			return err
		}
	}
	if o.Width == 0 {
		o.Width = compose.DefaultWidth
	}
	if o.Height == 0 {
		o.Height = compose.DefaultHeight
	}
	if o.VariantCount <= 0 {
		o.VariantCount = 1
	}
	if o.MaxFixAttempts == 0 {
		o.MaxFixAttempts = fixer.DefaultMaxAttempts
	}
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	for i, c := range o.BrandColors {
		n, err := colorpsy.Normalize(c)
		if err != nil {
			return err
		}
		o.BrandColors[i] = n
	}
	o.validated = true
	return nil
}

// DNAKeyOpts returns cache key options for the extraction stage.
func (o *Options) DNAKeyOpts() cache.DNAKeyOpts {
	return cache.DNAKeyOpts{
		Model:         o.Model,
		HasScreenshot: len(o.Screenshot) > 0,
	}
}

// PlanKeyOpts returns cache key options for the composition stage.
func (o *Options) PlanKeyOpts(t compose.TemplateID, tr compose.Treatment, em compose.Emphasis) cache.PlanKeyOpts {
	return cache.PlanKeyOpts{
		Template:  string(t),
		Treatment: string(tr),
		Emphasis:  string(em),
		Width:     o.Width,
		Height:    o.Height,
	}
}

// ArtifactKeyOpts returns cache key options for a rendered artifact.
func (o *Options) ArtifactKeyOpts(platformName string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{Format: "png", Platform: platformName}
}

// Validator builds the quality gate matching this run: degraded DNA
// relaxes thresholds so the gate stays passable.
func (o *Options) Validator(degraded bool) *quality.Validator {
	if degraded {
		return quality.NewValidator(quality.WithRelaxedThresholds())
	}
	return quality.NewValidator()
}
