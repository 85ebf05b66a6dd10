// Package quality inspects rendered compositions against objective
// legibility and balance thresholds and produces the report the fixer and
// variant ranking consume.
package quality

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/previewforge/previewforge/pkg/colorpsy"
	"github.com/previewforge/previewforge/pkg/compose"
)

// Axis names one validation dimension.
type Axis string

// Validation axes.
const (
	AxisContrast   Axis = "contrast"
	AxisLegibility Axis = "legibility"
	AxisLogo       Axis = "logo-prominence"
	AxisBalance    Axis = "balance"
)

// Issue is one detected defect. Severity is 0..1, higher is worse.
type Issue struct {
	Axis     Axis
	Severity float64
	Region   image.Rectangle
}

// Report is the outcome of one validation pass. It is recomputed on every
// call and never outlives the rendered image it describes.
type Report struct {
	Scores  map[Axis]float64 // 0..1 per axis, higher is better
	Issues  []Issue          // sorted by severity descending
	Overall float64
	Passed  bool
}

// Failure thresholds: an issue at or above its axis threshold fails the
// report. Tuned against the default templates.
var defaultFailAt = map[Axis]float64{
	AxisContrast:   0.25,
	AxisLegibility: 0.55,
	AxisLogo:       0.5,
	AxisBalance:    0.7,
}

// Per-axis weights for the overall score.
var axisWeights = map[Axis]float64{
	AxisContrast:   0.4,
	AxisLegibility: 0.3,
	AxisLogo:       0.1,
	AxisBalance:    0.2,
}

// legibilityEdgeLimit is the mean band edge energy above which background
// detail starts fighting the text.
const legibilityEdgeLimit = 18.0

// minLogoFraction is the minimum canvas share a logo must occupy to read
// at feed sizes.
const minLogoFraction = 0.004

// Validator runs the four-axis inspection.
type Validator struct {
	failAt map[Axis]float64
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithFailThreshold overrides one axis's failure threshold.
func WithFailThreshold(axis Axis, at float64) ValidatorOption {
	return func(v *Validator) { v.failAt[axis] = at }
}

// WithRelaxedThresholds loosens every axis by half, used when the design
// DNA is degraded and strict gating would reject everything.
func WithRelaxedThresholds() ValidatorOption {
	return func(v *Validator) {
		for a, t := range v.failAt {
			v.failAt[a] = math.Min(1, t*1.5)
		}
	}
}

// NewValidator creates a validator with the default thresholds.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{failAt: map[Axis]float64{}}
	for a, t := range defaultFailAt {
		v.failAt[a] = t
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate inspects a rendered composition. Passed is true iff every
// issue's severity sits below its axis's failure threshold.
func (v *Validator) Validate(r compose.Rendered) Report {
	rep := Report{Scores: map[Axis]float64{}}

	var issues []Issue
	rep.Scores[AxisContrast], issues = v.contrastAxis(r, issues)
	rep.Scores[AxisLegibility], issues = v.legibilityAxis(r, issues)
	rep.Scores[AxisLogo], issues = v.logoAxis(r, issues)
	rep.Scores[AxisBalance], issues = v.balanceAxis(r, issues)

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Severity > issues[j].Severity
	})
	rep.Issues = issues

	rep.Passed = true
	for _, is := range issues {
		if is.Severity >= v.failAt[is.Axis] {
			rep.Passed = false
			break
		}
	}

	total, weight := 0.0, 0.0
	for a, s := range rep.Scores {
		total += s * axisWeights[a]
		weight += axisWeights[a]
	}
	if weight > 0 {
		rep.Overall = total / weight
	}
	return rep
}

// contrastAxis recomputes the WCAG ratio of each text block's planned
// color against the average of the pixels it sits on.
func (v *Validator) contrastAxis(r compose.Rendered, issues []Issue) (float64, []Issue) {
	score := 1.0
	for _, ts := range r.Plan.Text {
		region := r.Region(ts.Role)
		if region.Empty() {
			continue
		}
		bg := AverageHex(r.Image, region)
		ratio, err := colorpsy.ContrastRatio(ts.Color, bg)
		if err != nil {
			continue
		}
		required := colorpsy.MinContrastNormal
		if ts.LargeText {
			required = colorpsy.MinContrastLarge
		}
		axisScore := math.Min(1, ratio/required)
		if axisScore < score {
			score = axisScore
		}
		if ratio < required {
			issues = append(issues, Issue{
				Axis:     AxisContrast,
				Severity: math.Min(1, (required-ratio)/required),
				Region:   region,
			})
		}
	}
	return score, issues
}

// legibilityAxis flags text regions sitting on high-frequency detail.
// The sampled band is the region inflated by a margin, so the text's own
// glyph edges dominate less than the surrounding backdrop.
func (v *Validator) legibilityAxis(r compose.Rendered, issues []Issue) (float64, []Issue) {
	score := 1.0
	for _, tr := range r.TextRegions {
		band := tr.Rect.Inset(-tr.Rect.Dy() / 4).Intersect(r.Image.Bounds())
		if band.Empty() {
			continue
		}
		energy := edgeEnergy(r.Image, band)
		axisScore := math.Min(1, legibilityEdgeLimit/math.Max(energy, 1e-9))
		if axisScore < score {
			score = axisScore
		}
		if energy > legibilityEdgeLimit {
			sev := math.Min(1, (energy-legibilityEdgeLimit)/(legibilityEdgeLimit*2))
			issues = append(issues, Issue{Axis: AxisLegibility, Severity: sev, Region: tr.Rect})
		}
	}
	return score, issues
}

// logoAxis checks the logo occupies a readable share of the canvas and is
// not clipped. Absent logos pass vacuously.
func (v *Validator) logoAxis(r compose.Rendered, issues []Issue) (float64, []Issue) {
	if !r.Plan.ShowLogo || r.LogoRegion.Empty() {
		return 1.0, issues
	}
	canvas := r.Image.Bounds()
	frac := float64(r.LogoRegion.Dx()*r.LogoRegion.Dy()) / float64(canvas.Dx()*canvas.Dy())
	score := math.Min(1, frac/minLogoFraction)
	if frac < minLogoFraction {
		issues = append(issues, Issue{
			Axis:     AxisLogo,
			Severity: math.Min(1, 1-frac/minLogoFraction),
			Region:   r.LogoRegion,
		})
	}
	if !r.LogoRegion.In(canvas) {
		score = 0
		issues = append(issues, Issue{Axis: AxisLogo, Severity: 1, Region: r.LogoRegion})
	}
	return score, issues
}

// balanceAxis scores the visual-weight centroid against the nearest
// rule-of-thirds anchor.
func (v *Validator) balanceAxis(r compose.Rendered, issues []Issue) (float64, []Issue) {
	b := r.Image.Bounds()
	cx, cy, ok := weightCentroid(r.Image)
	if !ok {
		return 1.0, issues
	}

	// Thirds anchors plus the center: a centered composition is balanced
	// too, it is the off-axis lopsided ones that score poorly.
	w, h := float64(b.Dx()), float64(b.Dy())
	anchors := [][2]float64{
		{w / 3, h / 3}, {2 * w / 3, h / 3},
		{w / 3, 2 * h / 3}, {2 * w / 3, 2 * h / 3},
		{w / 2, h / 2},
	}
	best := math.Inf(1)
	for _, a := range anchors {
		d := math.Hypot(cx-a[0], cy-a[1])
		if d < best {
			best = d
		}
	}
	diag := math.Hypot(w, h)
	score := 1 - math.Min(1, best/(diag/4))
	if score < 0.3 {
		issues = append(issues, Issue{
			Axis:     AxisBalance,
			Severity: math.Min(1, 1-score),
			Region:   b,
		})
	}
	return score, issues
}

// weightCentroid finds the centroid of luminance deviation from the image
// mean. Flat images have no meaningful centroid.
func weightCentroid(img *image.RGBA) (float64, float64, bool) {
	b := img.Bounds()
	step := sampleStep(b)

	var sum, n float64
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			sum += lumAt(img, x, y)
			n++
		}
	}
	if n == 0 {
		return 0, 0, false
	}
	mean := sum / n

	var wx, wy, wsum float64
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			w := math.Abs(lumAt(img, x, y) - mean)
			wx += w * float64(x-b.Min.X)
			wy += w * float64(y-b.Min.Y)
			wsum += w
		}
	}
	if wsum < 1e-9 {
		return 0, 0, false
	}
	return wx / wsum, wy / wsum, true
}

// edgeEnergy is the mean absolute 4-neighbor laplacian response over a
// region, sampled sparsely on large regions.
func edgeEnergy(img *image.RGBA, region image.Rectangle) float64 {
	step := sampleStep(region)
	var sum, n float64
	for y := region.Min.Y + 1; y < region.Max.Y-1; y += step {
		for x := region.Min.X + 1; x < region.Max.X-1; x += step {
			c := lumAt(img, x, y)
			lap := 4*c - lumAt(img, x-1, y) - lumAt(img, x+1, y) - lumAt(img, x, y-1) - lumAt(img, x, y+1)
			sum += math.Abs(lap)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / n
}

func sampleStep(r image.Rectangle) int {
	longest := r.Dx()
	if r.Dy() > longest {
		longest = r.Dy()
	}
	step := longest / 256
	if step < 1 {
		step = 1
	}
	return step
}

func lumAt(img *image.RGBA, x, y int) float64 {
	i := img.PixOffset(x, y)
	r := float64(img.Pix[i])
	g := float64(img.Pix[i+1])
	b := float64(img.Pix[i+2])
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// AverageHex samples a region's mean color as a normalized hex string.
// The fixer uses it to pick repair colors from the same sample the
// contrast axis judges against.
func AverageHex(img *image.RGBA, region image.Rectangle) string {
	region = region.Intersect(img.Bounds())
	step := sampleStep(region)
	var r, g, b, n uint64
	for y := region.Min.Y; y < region.Max.Y; y += step {
		for x := region.Min.X; x < region.Max.X; x += step {
			i := img.PixOffset(x, y)
			r += uint64(img.Pix[i])
			g += uint64(img.Pix[i+1])
			b += uint64(img.Pix[i+2])
			n++
		}
	}
	if n == 0 {
		return "#000000"
	}
	return fmt.Sprintf("#%02x%02x%02x", r/n, g/n, b/n)
}
