package compose

import (
	"image"

	"github.com/previewforge/previewforge/pkg/errors"
	"github.com/previewforge/previewforge/pkg/typography"
)

// Default canvas dimensions (the Open Graph standard card).
const (
	DefaultWidth  = 1200
	DefaultHeight = 630
)

// Treatment selects how the plan's palette is sourced.
type Treatment string

// Color treatments.
const (
	TreatmentBrand   Treatment = "brand"   // request brand colors, emotion fallback
	TreatmentEmotion Treatment = "emotion" // emotionalIntent palette
	TreatmentMono    Treatment = "mono"    // single hue, lightness ramp
)

// Emphasis selects the text hierarchy balance.
type Emphasis string

// Text emphasis modes.
const (
	EmphasisTitle    Emphasis = "title"    // oversized title, description dropped
	EmphasisBalanced Emphasis = "balanced" // title + description
)

// Request is the externally supplied render material. It is read-only to
// the pipeline.
type Request struct {
	URL         string
	Domain      string
	Title       string
	Description string
	Keywords    []string
	Tone        string

	Hero image.Image // optional source/hero image
	Logo image.Image // optional brand mark

	BrandColors []string // normalized hex, best first
	Width       int      // 0 = DefaultWidth
	Height      int      // 0 = DefaultHeight
}

// TextRole names a text block's function in the composition.
type TextRole string

// Text roles.
const (
	RoleTitle       TextRole = "title"
	RoleDescription TextRole = "description"
	RoleDomain      TextRole = "domain"
)

// TextSpec is one planned text block.
type TextSpec struct {
	Role          TextRole
	Content       string
	Font          typography.FontChoice
	Size          float64
	Lines         []string
	Color         string // normalized hex
	Shadow        typography.Shadow
	LargeText     bool // relaxed 3:1 contrast threshold applies
}

// OverlaySpec is a translucent fill drawn between hero and text. A zero
// Region covers the whole canvas.
type OverlaySpec struct {
	Color   string
	Opacity float64 // 0..1
	Region  image.Rectangle
}

// GradientSpec is a linear gradient fill over a region. A zero Region
// covers the whole canvas.
type GradientSpec struct {
	From     string
	To       string
	Vertical bool
	Region   image.Rectangle
}

// Plan is the deterministic composition recipe. Plans are immutable:
// the fixer produces revised copies via Revise, never edits in place.
type Plan struct {
	Template  TemplateID
	Treatment Treatment
	Emphasis  Emphasis
	Revision  int

	Width  int
	Height int

	// Safe, when non-empty, restricts text and logo placement to this
	// rect. Platform profiles set it from their safe-zone insets.
	Safe image.Rectangle

	Crop       image.Rectangle // hero crop window in source coordinates
	Palette    []string
	Background GradientSpec   // canvas background fill
	Overlays   []OverlaySpec  // drawn after hero, before text
	Gradients  []GradientSpec // regional scrims, same layer as overlays
	Text       []TextSpec
	ShowLogo   bool
}

// Revise returns a deep copy of the plan with the revision bumped, ready
// for a fix to be applied.
func (p Plan) Revise() Plan {
	out := p
	out.Revision++
	out.Palette = append([]string(nil), p.Palette...)
	out.Overlays = append([]OverlaySpec(nil), p.Overlays...)
	out.Gradients = append([]GradientSpec(nil), p.Gradients...)
	out.Text = make([]TextSpec, len(p.Text))
	for i, ts := range p.Text {
		ts.Lines = append([]string(nil), ts.Lines...)
		ts.Font.Stack = append([]string(nil), ts.Font.Stack...)
		out.Text[i] = ts
	}
	return out
}

// Validate checks the structural invariants a renderable plan must hold.
// Violations are programmer errors and fatal for the render task.
func (p Plan) Validate() error {
	if !ValidTemplate(p.Template) {
		return errors.New(errors.ErrCodeInvalidPlan, "unknown template %q", p.Template)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidPlan, "non-positive canvas %dx%d", p.Width, p.Height)
	}
	if len(p.Text) == 0 {
		return errors.New(errors.ErrCodeInvalidPlan, "plan has no text blocks")
	}
	for _, ts := range p.Text {
		if ts.Size <= 0 {
			return errors.New(errors.ErrCodeInvalidPlan, "text %q has non-positive size", ts.Role)
		}
	}
	return nil
}

// ValidateCrop checks the crop window against a source image's bounds.
// An out-of-bounds crop is a malformed plan, never silently clamped.
func (p Plan) ValidateCrop(src image.Image) error {
	if p.Crop.Empty() {
		return nil
	}
	if src == nil {
		return errors.New(errors.ErrCodeInvalidPlan, "plan has crop %v but no source image", p.Crop)
	}
	if !p.Crop.In(src.Bounds()) {
		return errors.New(errors.ErrCodeInvalidPlan,
			"crop %v outside source bounds %v", p.Crop, src.Bounds())
	}
	return nil
}

// TextRegion is a measured text bounding box in the rendered image.
type TextRegion struct {
	Role TextRole
	Rect image.Rectangle
}

// Rendered pairs a pixel buffer with the plan that produced it and the
// measured geometry the validator needs.
type Rendered struct {
	Image       *image.RGBA
	Plan        Plan
	TextRegions []TextRegion
	LogoRegion  image.Rectangle // zero if no logo drawn
}

// Region returns the measured rect for a role, or a zero rect.
func (r Rendered) Region(role TextRole) image.Rectangle {
	for _, tr := range r.TextRegions {
		if tr.Role == role {
			return tr.Rect
		}
	}
	return image.Rectangle{}
}
