// Package platform re-targets a finished composition to per-platform
// dimension and safe-zone constraints. It reuses the already computed
// design decisions: DNA is never re-extracted and the palette survives,
// only geometry and text sizing adapt.
package platform

import (
	"image"
	"sort"

	"github.com/previewforge/previewforge/pkg/compose"
	"github.com/previewforge/previewforge/pkg/errors"
	"github.com/previewforge/previewforge/pkg/typography"
)

// Insets are per-edge safe-zone margins in pixels. Text and logo must not
// be placed inside them: platforms overlay their own chrome there.
type Insets struct {
	Top, Bottom, Left, Right int
}

// StyleBias nudges treatment choices per platform audience.
type StyleBias string

// Style biases.
const (
	BiasProfessional StyleBias = "professional"
	BiasPunchy       StyleBias = "punchy"
)

// Profile is one platform's static constraint set.
type Profile struct {
	Name   string
	Width  int
	Height int
	Safe   Insets
	Bias   StyleBias
}

// Aspect returns the profile's width/height ratio.
func (p Profile) Aspect() float64 {
	return float64(p.Width) / float64(p.Height)
}

// profiles is the static platform table.
var profiles = map[string]Profile{
	"og":        {Name: "og", Width: 1200, Height: 630, Safe: Insets{}, Bias: BiasProfessional},
	"facebook":  {Name: "facebook", Width: 1200, Height: 630, Safe: Insets{Bottom: 60}, Bias: BiasProfessional},
	"twitter":   {Name: "twitter", Width: 1200, Height: 600, Safe: Insets{Bottom: 40}, Bias: BiasPunchy},
	"linkedin":  {Name: "linkedin", Width: 1200, Height: 627, Safe: Insets{}, Bias: BiasProfessional},
	"instagram": {Name: "instagram", Width: 1080, Height: 1080, Safe: Insets{Top: 80, Bottom: 120}, Bias: BiasPunchy},
	"pinterest": {Name: "pinterest", Width: 1000, Height: 1500, Safe: Insets{Bottom: 100}, Bias: BiasPunchy},
	"story":     {Name: "story", Width: 1080, Height: 1920, Safe: Insets{Top: 200, Bottom: 250}, Bias: BiasPunchy},
}

// Lookup returns the profile for a platform name.
func Lookup(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, errors.New(errors.ErrCodeInvalidPlatform, "unknown platform %q", name)
	}
	return p, nil
}

// Names lists the known platforms, sorted.
func Names() []string {
	out := make([]string, 0, len(profiles))
	for n := range profiles {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Optimizer re-targets plans through a compose engine.
type Optimizer struct {
	engine *compose.Engine
}

// NewOptimizer creates an optimizer over the given engine.
func NewOptimizer(e *compose.Engine) *Optimizer {
	return &Optimizer{engine: e}
}

// Optimize re-targets a variant's plan to a platform: rebuilds geometry
// for the platform canvas, re-runs typography sizing against the
// safe-zone-shrunk text area, and renders. The source DNA decisions
// carried in the plan (template, palette, fonts) are reused as-is.
func (o *Optimizer) Optimize(v compose.Rendered, req compose.Request, profile Profile) (compose.Rendered, error) {
	plan := v.Plan.Revise()
	plan.Width = profile.Width
	plan.Height = profile.Height
	plan.Safe = insetRect(profile)

	// Re-crop the hero for the new aspect.
	if req.Hero != nil && !plan.Crop.Empty() {
		area := compose.HeroArea(plan.Template, profile.Width, profile.Height)
		aspect := float64(area.Dx()) / float64(area.Dy())
		crop, err := o.engine.Recrop(req.Hero, aspect)
		if err != nil && !errors.Is(err, errors.ErrCodeCropUnavailable) {
			return compose.Rendered{}, err
		}
		plan.Crop = crop
	}

	if err := o.resizeText(&plan, profile); err != nil {
		return compose.Rendered{}, err
	}
	return o.engine.Render(plan, req)
}

// resizeText re-runs adaptive sizing and wrapping for the platform's
// safe text area. Line-wrap outcomes change with the canvas, the planned
// content and fonts do not.
func (o *Optimizer) resizeText(plan *compose.Plan, profile Profile) error {
	area := safeTextArea(plan.Template, profile, plan.Emphasis)
	areaW := float64(area.Dx())

	for i := range plan.Text {
		ts := &plan.Text[i]
		tier := typography.TierTitle
		switch ts.Role {
		case compose.RoleDescription:
			tier = typography.TierBody
		case compose.RoleDomain:
			tier = typography.TierCaption
		}
		share := roleHeightShare(ts.Role, plan.Emphasis)
		size, err := typography.AdaptiveFontSize(ts.Content, areaW, float64(area.Dy())*share, tier)
		if err != nil && !errors.Is(err, errors.ErrCodeTextOverflow) {
			return err
		}
		ts.Size = size
		ts.LargeText = size >= 24
		if ts.Role == compose.RoleDomain {
			ts.Lines = []string{ts.Content}
		} else {
			ts.Lines = typography.OptimalLineBreaks(ts.Content, typography.MaxCharsPerLine(areaW, size))
		}
	}
	return nil
}

func roleHeightShare(role compose.TextRole, em compose.Emphasis) float64 {
	switch role {
	case compose.RoleTitle:
		if em == compose.EmphasisTitle {
			return 0.8
		}
		return 0.55
	case compose.RoleDescription:
		return 0.3
	default:
		return 0.1
	}
}

// insetRect is the usable canvas after safe-zone insets.
func insetRect(p Profile) image.Rectangle {
	return image.Rect(p.Safe.Left, p.Safe.Top, p.Width-p.Safe.Right, p.Height-p.Safe.Bottom)
}

// safeTextArea intersects the template's text area with the safe zone.
func safeTextArea(id compose.TemplateID, p Profile, em compose.Emphasis) image.Rectangle {
	return compose.TextArea(id, p.Width, p.Height, em).Intersect(insetRect(p))
}
