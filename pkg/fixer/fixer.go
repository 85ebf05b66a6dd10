// Package fixer repairs failed quality reports with a bounded state
// machine. Each attempt targets the highest-severity issue with one rung
// of a fixed priority ladder, re-renders, and re-validates. The loop is
// bounded; when attempts run out the fixer falls back to a known-safe
// solid-overlay treatment so the pipeline always ships a usable image.
package fixer

import (
	"context"
	"image"

	"github.com/charmbracelet/log"

	"github.com/previewforge/previewforge/pkg/colorpsy"
	"github.com/previewforge/previewforge/pkg/compose"
	"github.com/previewforge/previewforge/pkg/errors"
	"github.com/previewforge/previewforge/pkg/observability"
	"github.com/previewforge/previewforge/pkg/quality"
)

// DefaultMaxAttempts bounds the fix loop.
const DefaultMaxAttempts = 3

// Ladder rungs, applied in order per axis.
const (
	rungOverlay = iota
	rungGradient
	rungTextColor
	rungShadow
	rungCount
)

// safeOverlayOpacity is the fallback treatment's opacity: heavy enough
// that text contrast no longer depends on the hero underneath.
const safeOverlayOpacity = 0.85

// Outcome is the fixer's terminal state.
type Outcome struct {
	Rendered  compose.Rendered
	Report    quality.Report
	Attempts  int
	Exhausted bool // safe-default fallback was applied
}

// Fixer drives the repair loop over a compose engine and validator.
type Fixer struct {
	engine      *compose.Engine
	validator   *quality.Validator
	maxAttempts int
	logger      *log.Logger
}

// Option configures a Fixer.
type Option func(*Fixer)

// WithMaxAttempts overrides the attempt bound.
func WithMaxAttempts(n int) Option {
	return func(f *Fixer) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

// WithLogger sets the fixer's logger.
func WithLogger(l *log.Logger) Option {
	return func(f *Fixer) { f.logger = l }
}

// NewFixer creates a fixer over the given engine and validator.
func NewFixer(engine *compose.Engine, validator *quality.Validator, opts ...Option) *Fixer {
	f := &Fixer{
		engine:      engine,
		validator:   validator,
		maxAttempts: DefaultMaxAttempts,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fix repairs a failed validation. It returns immediately when the report
// already passes. Each attempt produces a new plan revision; history is
// never edited. On exhaustion the safe-default treatment is rendered and
// returned with Exhausted=true, its report reflecting its own validation.
func (f *Fixer) Fix(ctx context.Context, rendered compose.Rendered, report quality.Report, req compose.Request) (Outcome, error) {
	out := Outcome{Rendered: rendered, Report: report}
	if report.Passed {
		return out, nil
	}

	rungs := map[quality.Axis]int{}
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return out, errors.Wrap(errors.ErrCodeTimeout, err, "fix loop interrupted")
		}
		if len(out.Report.Issues) == 0 {
			break
		}
		issue := out.Report.Issues[0]
		rung := rungs[issue.Axis]
		rungs[issue.Axis] = (rung + 1) % rungCount
		observability.Pipeline().OnFixAttempt(ctx, attempt, string(issue.Axis))
		f.logger.Debug("applying fix", "attempt", attempt, "axis", issue.Axis, "rung", rung)

		plan, err := f.applyFix(out.Rendered, issue, rung)
		if err != nil {
			return out, err
		}
		next, err := f.engine.Render(plan, req)
		if err != nil {
			return out, err
		}
		out.Rendered = next
		out.Report = f.validator.Validate(next)
		out.Attempts = attempt
		if out.Report.Passed {
			return out, nil
		}
	}

	// Attempts exhausted: fall back to the safe default and report what
	// validation makes of it, imperfect or not.
	f.logger.Warn("quality gate exhausted, applying safe default",
		"attempts", out.Attempts)
	plan, err := f.safeDefault(out.Rendered)
	if err != nil {
		return out, err
	}
	next, err := f.engine.Render(plan, req)
	if err != nil {
		return out, err
	}
	out.Rendered = next
	out.Report = f.validator.Validate(next)
	out.Exhausted = true
	return out, nil
}

// applyFix produces a revised plan with one ladder rung applied to the
// issue's region. Fixes only touch the targeted region so a previously
// repaired axis cannot regress.
func (f *Fixer) applyFix(rendered compose.Rendered, issue quality.Issue, rung int) (compose.Plan, error) {
	plan := rendered.Plan.Revise()
	role := roleAt(rendered, issue.Region)
	scrim, err := f.scrimColor(plan, role)
	if err != nil {
		return compose.Plan{}, err
	}

	switch rung {
	case rungOverlay:
		if i := overlayCovering(plan, issue.Region); i >= 0 {
			plan.Overlays[i].Opacity = clamp(plan.Overlays[i].Opacity+0.2, 0, 0.9)
		} else {
			plan.Overlays = append(plan.Overlays, compose.OverlaySpec{
				Color:   scrim,
				Opacity: 0.45,
				Region:  pad(issue.Region, plan),
			})
		}

	case rungGradient:
		lighter, err := colorpsy.Lighten(scrim, 0.2)
		if err != nil {
			return compose.Plan{}, err
		}
		plan.Gradients = append(plan.Gradients, compose.GradientSpec{
			From:     scrim,
			To:       lighter,
			Vertical: true,
			Region:   pad(issue.Region, plan),
		})

	case rungTextColor:
		bg := quality.AverageHex(rendered.Image, issue.Region)
		for i := range plan.Text {
			if role != "" && plan.Text[i].Role != role {
				continue
			}
			required := colorpsy.MinContrastNormal
			if plan.Text[i].LargeText {
				required = colorpsy.MinContrastLarge
			}
			fixed, _, err := colorpsy.EnsureContrast(plan.Text[i].Color, bg, required)
			if err != nil {
				return compose.Plan{}, err
			}
			plan.Text[i].Color = fixed
		}

	case rungShadow:
		for i := range plan.Text {
			if role != "" && plan.Text[i].Role != role {
				continue
			}
			s := &plan.Text[i].Shadow
			s.Opacity = clamp(s.Opacity+0.25, 0.5, 0.9)
			s.Blur += 2
			if s.Color == "" {
				s.Color = "#000000"
			}
			if s.OffsetY < 2 {
				s.OffsetY = 2
			}
		}
	}
	return plan, nil
}

// safeDefault is the terminal fallback: a heavy solid overlay across the
// whole canvas with text recolored for maximum contrast against it.
func (f *Fixer) safeDefault(rendered compose.Rendered) (compose.Plan, error) {
	plan := rendered.Plan.Revise()
	scrim, err := f.scrimColor(plan, "")
	if err != nil {
		return compose.Plan{}, err
	}
	plan.Overlays = append(plan.Overlays, compose.OverlaySpec{
		Color:   scrim,
		Opacity: safeOverlayOpacity,
	})
	text, err := colorpsy.OptimalTextColor(scrim)
	if err != nil {
		return compose.Plan{}, err
	}
	for i := range plan.Text {
		plan.Text[i].Color = text
	}
	return plan, nil
}

// scrimColor picks the repair fill: the opposite pole of the text color so
// the existing text gains contrast rather than losing it.
func (f *Fixer) scrimColor(plan compose.Plan, role compose.TextRole) (string, error) {
	textColor := "#ffffff"
	for _, ts := range plan.Text {
		if role == "" || ts.Role == role {
			textColor = ts.Color
			break
		}
	}
	lum, err := colorpsy.RelativeLuminance(textColor)
	if err != nil {
		return "", err
	}
	if lum >= 0.5 {
		return "#111111", nil
	}
	return "#f5f5f5", nil
}

func roleAt(rendered compose.Rendered, region image.Rectangle) compose.TextRole {
	for _, tr := range rendered.TextRegions {
		if tr.Rect.Overlaps(region) {
			return tr.Role
		}
	}
	return ""
}

func overlayCovering(plan compose.Plan, region image.Rectangle) int {
	canvas := image.Rect(0, 0, plan.Width, plan.Height)
	for i, o := range plan.Overlays {
		r := o.Region
		if r.Empty() {
			r = canvas
		}
		if region.In(r) || r.Overlaps(region) {
			return i
		}
	}
	return -1
}

// pad expands a fix region slightly so repairs cover glyph edges, clamped
// to the canvas.
func pad(region image.Rectangle, plan compose.Plan) image.Rectangle {
	margin := region.Dy() / 4
	if margin < 8 {
		margin = 8
	}
	return region.Inset(-margin).Intersect(image.Rect(0, 0, plan.Width, plan.Height))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
