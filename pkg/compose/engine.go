// Package compose turns a render request plus Design DNA into a
// composition plan and renders the plan to pixels. Plan derivation and
// rendering are both deterministic: identical inputs produce identical
// images, which is what makes quality validation and fixing tractable.
package compose

import (
	"image"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/previewforge/previewforge/pkg/colorpsy"
	"github.com/previewforge/previewforge/pkg/dna"
	"github.com/previewforge/previewforge/pkg/errors"
	"github.com/previewforge/previewforge/pkg/fonts"
	"github.com/previewforge/previewforge/pkg/imageproc"
	"github.com/previewforge/previewforge/pkg/typography"
)

// Engine derives plans and renders them. Safe for concurrent use: all
// per-request state lives in the plan.
type Engine struct {
	fonts  *fonts.Library
	proc   *imageproc.Processor
	logger *log.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over a font library and image processor.
// Nil arguments get working defaults.
func NewEngine(lib *fonts.Library, proc *imageproc.Processor, opts ...EngineOption) *Engine {
	e := &Engine{fonts: lib, proc: proc, logger: log.Default()}
	if e.fonts == nil {
		e.fonts = fonts.NewLibrary()
	}
	if e.proc == nil {
		e.proc = imageproc.NewProcessor(nil)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Hero demotion applied by SelectTemplateFor. A weak hero loses a close
// race against a text layout without being banned outright; generic stock
// imagery costs the hero-led template one more point.
const (
	minHeroQuality   = 0.45
	weakHeroPenalty  = 2
	stockHeroPenalty = 1
)

// SelectTemplateFor picks the template for a concrete request. Without a
// hero it is SelectTemplate; with one, the hero's quality score and the
// stock-photo heuristic demote hero-led layouts before the pick.
func (e *Engine) SelectTemplateFor(d dna.DesignDNA, hero image.Image) TemplateID {
	scores := templateScores(d)
	if hero != nil {
		q := e.proc.ScoreQuality(hero)
		if q.Overall < minHeroQuality {
			scores[TemplateHeroFocused] -= weakHeroPenalty
			scores[TemplateSplit] -= weakHeroPenalty
		}
		if e.proc.Detector.IsLikelyStockPhoto(hero) {
			scores[TemplateHeroFocused] -= stockHeroPenalty
		}
	}
	return pickTemplate(scores)
}

// Compose derives a composition plan: crop window from the image
// processor, palette from the color engine keyed off colorPsychology,
// typography sizing and line breaks from actual text length.
func (e *Engine) Compose(req Request, d dna.DesignDNA, tmpl TemplateID, treatment Treatment, emphasis Emphasis) (Plan, error) {
	if err := errors.ValidateTitle(req.Title); err != nil {
		return Plan{}, err
	}
	if !ValidTemplate(tmpl) {
		return Plan{}, errors.New(errors.ErrCodeInvalidTemplate, "unknown template %q", tmpl)
	}
	w, h := req.Width, req.Height
	if w == 0 {
		w = DefaultWidth
	}
	if h == 0 {
		h = DefaultHeight
	}
	if err := errors.ValidateDimensions(w, h); err != nil {
		return Plan{}, err
	}

	plan := Plan{
		Template:  tmpl,
		Treatment: treatment,
		Emphasis:  emphasis,
		Width:     w,
		Height:    h,
		ShowLogo:  req.Logo != nil,
	}

	palette, err := e.palette(req, d, treatment)
	if err != nil {
		return Plan{}, err
	}
	plan.Palette = palette
	plan.Background = GradientSpec{From: palette[0], To: palette[1], Vertical: false}

	if usesHero(tmpl) && req.Hero != nil {
		area := heroArea(tmpl, w, h)
		aspect := float64(area.Dx()) / float64(area.Dy())
		crop, err := e.proc.IntelligentCrop(req.Hero, aspect)
		if err != nil && !errors.Is(err, errors.ErrCodeCropUnavailable) {
			return Plan{}, err
		}
		if err != nil {
			e.logger.Debug("no focus-aligned crop, using center window", "aspect", aspect)
		}
		plan.Crop = crop
	}

	// Text sits on the backdrop color: the darkest palette tone under a
	// hero (where a scrim is layered in), the base tone otherwise.
	backdrop := palette[0]
	if usesHero(tmpl) && req.Hero != nil {
		backdrop, err = colorpsy.Darken(palette[0], 0.25)
		if err != nil {
			return Plan{}, err
		}
		plan.Overlays = append(plan.Overlays, OverlaySpec{
			Color:   backdrop,
			Opacity: 0.35,
			Region:  textArea(tmpl, w, h, emphasis),
		})
	}

	if err := e.planText(&plan, req, d, backdrop, emphasis); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// palette resolves the color treatment to an ordered palette of at least
// four tones.
func (e *Engine) palette(req Request, d dna.DesignDNA, treatment Treatment) ([]string, error) {
	emotion := colorpsy.PaletteForEmotion(d.Color.EmotionalIntent)
	switch treatment {
	case TreatmentBrand:
		if len(req.BrandColors) == 0 {
			return emotion, nil
		}
		out := make([]string, 0, len(req.BrandColors)+len(emotion))
		for _, c := range req.BrandColors {
			n, err := colorpsy.Normalize(c)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		for len(out) < 4 {
			out = append(out, emotion[len(out)%len(emotion)])
		}
		return out, nil
	case TreatmentMono:
		base := emotion[0]
		if len(req.BrandColors) > 0 {
			n, err := colorpsy.Normalize(req.BrandColors[0])
			if err != nil {
				return nil, err
			}
			base = n
		}
		dark, err := colorpsy.Darken(base, 0.15)
		if err != nil {
			return nil, err
		}
		light, err := colorpsy.Lighten(base, 0.2)
		if err != nil {
			return nil, err
		}
		lighter, err := colorpsy.Lighten(base, 0.35)
		if err != nil {
			return nil, err
		}
		return []string{dark, base, light, lighter}, nil
	default: // TreatmentEmotion and anything unrecognized
		return emotion, nil
	}
}

// planText sizes, wraps, and colors the text blocks for the template's
// text area.
func (e *Engine) planText(plan *Plan, req Request, d dna.DesignDNA, backdrop string, emphasis Emphasis) error {
	choice := typography.ForPersonality(d.Typography.Personality)
	area := textArea(plan.Template, plan.Width, plan.Height, emphasis)
	areaW := float64(area.Dx())

	textColor, err := colorpsy.OptimalTextColor(backdrop)
	if err != nil {
		return err
	}
	lum, err := colorpsy.RelativeLuminance(backdrop)
	if err != nil {
		return err
	}
	variance := 0.0
	if usesHero(plan.Template) && req.Hero != nil {
		// Photographic backdrops read as high-variance for shadow purposes.
		variance = 0.05
	}
	shadow := typography.ShadowParams(lum, variance)

	title := req.Title
	if choice.UppercaseHint {
		title = strings.ToUpper(title)
	}
	titleH := float64(area.Dy()) * 0.55
	if emphasis == EmphasisTitle || req.Description == "" {
		titleH = float64(area.Dy()) * 0.8
	}
	size, err := typography.AdaptiveFontSize(title, areaW, titleH, typography.TierTitle)
	if err != nil && !errors.Is(err, errors.ErrCodeTextOverflow) {
		return err
	}
	lines := typography.OptimalLineBreaks(title, typography.MaxCharsPerLine(areaW, size))
	if err != nil {
		// Overflow at minimum size: truncate to the lines that fit.
		maxLines := maxLinesFor(titleH, size)
		lines = truncateLines(lines, maxLines)
		e.logger.Debug("title truncated to fit", "lines", len(lines))
	}
	plan.Text = append(plan.Text, TextSpec{
		Role:      RoleTitle,
		Content:   title,
		Font:      choice,
		Size:      size,
		Lines:     lines,
		Color:     textColor,
		Shadow:    shadow,
		LargeText: size >= 24,
	})

	if emphasis == EmphasisBalanced && req.Description != "" {
		descH := float64(area.Dy()) * 0.3
		descSize, err := typography.AdaptiveFontSize(req.Description, areaW, descH, typography.TierBody)
		if err != nil && !errors.Is(err, errors.ErrCodeTextOverflow) {
			return err
		}
		descLines := typography.OptimalLineBreaks(req.Description, typography.MaxCharsPerLine(areaW, descSize))
		if err != nil {
			descLines = truncateLines(descLines, maxLinesFor(descH, descSize))
		}
		plan.Text = append(plan.Text, TextSpec{
			Role:      RoleDescription,
			Content:   req.Description,
			Font:      choice,
			Size:      descSize,
			Lines:     descLines,
			Color:     textColor,
			Shadow:    shadow,
			LargeText: descSize >= 24,
		})
	}

	if domain := domainLabel(req); domain != "" {
		capSize := typography.BaseSize(typography.TierCaption)
		plan.Text = append(plan.Text, TextSpec{
			Role:      RoleDomain,
			Content:   domain,
			Font:      choice,
			Size:      capSize,
			Lines:     []string{domain},
			Color:     textColor,
			Shadow:    shadow,
			LargeText: false,
		})
	}
	return nil
}

func domainLabel(req Request) string {
	if req.Domain != "" {
		return req.Domain
	}
	u := req.URL
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	if i := strings.IndexByte(u, '/'); i >= 0 {
		u = u[:i]
	}
	return u
}

func maxLinesFor(containerH, size float64) int {
	n := int(containerH / (size * 1.25))
	if n < 1 {
		n = 1
	}
	return n
}

// truncateLines cuts to n lines, marking the cut with an ellipsis.
func truncateLines(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	out := append([]string(nil), lines[:n]...)
	out[n-1] += "…"
	return out
}

// Recrop selects a crop window for a new target aspect with the same
// focus-region search Compose uses. Callers re-targeting a plan use it
// instead of re-deriving the whole plan.
func (e *Engine) Recrop(img image.Image, aspect float64) (image.Rectangle, error) {
	return e.proc.IntelligentCrop(img, aspect)
}

// HeroArea exposes the template hero region for re-targeting callers.
func HeroArea(id TemplateID, w, h int) image.Rectangle {
	return heroArea(id, w, h)
}

// TextArea exposes the template text region for re-targeting callers.
func TextArea(id TemplateID, w, h int, emphasis Emphasis) image.Rectangle {
	return textArea(id, w, h, emphasis)
}

// heroArea is the canvas region a template reserves for the hero image.
func heroArea(id TemplateID, w, h int) image.Rectangle {
	switch id {
	case TemplateHeroFocused:
		return image.Rect(0, 0, w, h)
	case TemplateSplit:
		return image.Rect(w/2, 0, w, h)
	default:
		return image.Rectangle{}
	}
}

// textArea is the canvas region a template reserves for text, inset by a
// proportional padding.
func textArea(id TemplateID, w, h int, emphasis Emphasis) image.Rectangle {
	pad := w / 20
	switch id {
	case TemplateHeroFocused:
		// Lower band over the scrim.
		return image.Rect(pad, h/2, w-pad, h-pad)
	case TemplateSplit:
		return image.Rect(pad, pad, w/2-pad, h-pad)
	case TemplateMinimalGradient:
		return image.Rect(pad*2, h/4, w-pad*2, h-h/4)
	default: // text-focused
		return image.Rect(pad, pad, w-pad, h-pad)
	}
}
