package imageproc

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const (
	// targetMinDim is the smaller-side pixel target at which the resolution
	// score saturates. 630 is the short side of the reference card canvas.
	targetMinDim = 630

	// blurVarianceScale calibrates the Laplacian-variance sigmoid. Sharp
	// photos typically measure in the high hundreds on an 8-bit scale.
	blurVarianceScale = 900.0
)

// Score weights for the overall quality number.
const (
	weightBlur        = 0.40
	weightResolution  = 0.25
	weightComposition = 0.35
)

// ScoreQuality scores an image on blur, resolution, and composition.
func (p *Processor) ScoreQuality(img image.Image) Score {
	small := downsample(img)

	s := Score{
		Blur:        blurScore(small),
		Resolution:  resolutionScore(img.Bounds()),
		Composition: p.compositionScore(img, small),
	}
	s.Overall = weightBlur*s.Blur + weightResolution*s.Resolution + weightComposition*s.Composition
	return s
}

// blurScore estimates sharpness from the variance of a 4-neighbor Laplacian
// over luminance. Higher variance means more high-frequency energy, which
// reads as sharper.
func blurScore(p *image.NRGBA) float64 {
	v := laplacianVariance(p, p.Bounds())
	return 1 - math.Exp(-v/blurVarianceScale)
}

// laplacianVariance computes the variance of the 4-neighbor Laplacian
// response over the given window of an NRGBA image.
func laplacianVariance(p *image.NRGBA, win image.Rectangle) float64 {
	win = win.Intersect(p.Bounds())
	w, h := win.Dx(), win.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	var sum, sumSq float64
	n := 0
	for y := win.Min.Y + 1; y < win.Max.Y-1; y++ {
		for x := win.Min.X + 1; x < win.Max.X-1; x++ {
			c := lum8(p, x, y)
			resp := 4*c - lum8(p, x-1, y) - lum8(p, x+1, y) - lum8(p, x, y-1) - lum8(p, x, y+1)
			sum += resp
			sumSq += resp * resp
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

// resolutionScore is a monotonic function of the smaller dimension against
// the target.
func resolutionScore(b image.Rectangle) float64 {
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	if side <= 0 {
		return 0
	}
	return math.Min(1, float64(side)/targetMinDim)
}

// compositionScore combines luminance-histogram spread with rule-of-thirds
// alignment of the detected focus regions.
func (p *Processor) compositionScore(img image.Image, small *image.NRGBA) float64 {
	spread := histogramSpread(img)

	regions := p.Detector.DetectFocusRegions(img)
	thirds := thirdsAlignment(img.Bounds(), regions)

	return 0.6*spread + 0.4*thirds
}

// histogramSpread measures tonal range as normalized entropy of the
// luminance histogram. Flat, washed-out images score low.
func histogramSpread(img image.Image) float64 {
	hist := imaging.Histogram(img)
	var entropy float64
	for _, p := range hist {
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
	}
	return entropy / 8 // log2(256) bins
}

// thirdsAlignment scores how close region centers sit to the nearest
// rule-of-thirds intersection. A whole-image region is neutral.
func thirdsAlignment(b image.Rectangle, regions []Region) float64 {
	if len(regions) == 0 {
		return 0.5
	}
	w, h := float64(b.Dx()), float64(b.Dy())
	if w == 0 || h == 0 {
		return 0
	}
	points := [4][2]float64{
		{w / 3, h / 3}, {2 * w / 3, h / 3},
		{w / 3, 2 * h / 3}, {2 * w / 3, 2 * h / 3},
	}
	// Distance is normalized by the frame diagonal; anything within ~15%
	// of a third point counts as well-placed.
	diag := math.Hypot(w, h)

	var total, weights float64
	for _, r := range regions {
		if r.Kind == RegionWhole {
			total += 0.5 * r.Weight
			weights += r.Weight
			continue
		}
		cx := float64(r.Rect.Min.X+r.Rect.Max.X) / 2
		cy := float64(r.Rect.Min.Y+r.Rect.Max.Y) / 2
		best := math.Inf(1)
		for _, pt := range points {
			d := math.Hypot(cx-pt[0], cy-pt[1]) / diag
			if d < best {
				best = d
			}
		}
		total += math.Max(0, 1-best/0.15) * r.Weight
		weights += r.Weight
	}
	if weights == 0 {
		return 0.5
	}
	return total / weights
}
