package imageproc

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Enhancement caps. A single pass can never push any adjustment past these
// deltas, which prevents the over-processed look on already-good sources.
const (
	maxContrastDelta   = 12.0 // imaging.AdjustContrast percentage points
	maxSaturationDelta = 15.0 // imaging.AdjustSaturation percentage points
	sharpenSigma       = 0.6
)

// Targets the pass corrects toward.
const (
	targetLumStdDev = 0.22 // normalized luminance std-dev of a well-exposed photo
	targetMeanSat   = 0.30
)

// Enhance applies bounded auto contrast, saturation, and sharpness
// correction. Each adjustment is proportional to the measured deficit and
// clamped, so repeated passes converge instead of compounding.
func Enhance(img image.Image) image.Image {
	small := downsample(img)
	lumStd := luminanceStdDev(small)
	meanSat := meanSaturation(small)

	out := imaging.Clone(img)

	if lumStd < targetLumStdDev {
		boost := math.Min(maxContrastDelta, (targetLumStdDev-lumStd)/targetLumStdDev*maxContrastDelta)
		out = imaging.AdjustContrast(out, boost)
	}
	if meanSat < targetMeanSat {
		boost := math.Min(maxSaturationDelta, (targetMeanSat-meanSat)/targetMeanSat*maxSaturationDelta)
		out = imaging.AdjustSaturation(out, boost)
	}
	return imaging.Sharpen(out, sharpenSigma)
}

func luminanceStdDev(p *image.NRGBA) float64 {
	b := p.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	var sum, sumSq float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			l := lum8(p, x, y) / 255
			sum += l
			sumSq += l * l
		}
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

func meanSaturation(p *image.NRGBA) float64 {
	b := p.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum += sat(p, x, y)
		}
	}
	return sum / float64(n)
}
