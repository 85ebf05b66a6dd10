// Package imageproc implements the smart image processor: quality scoring,
// heuristic focus-region detection, aspect-exact intelligent cropping, and
// bounded enhancement.
//
// Focus and stock-photo detection are acknowledged heuristics. They sit
// behind the [Detector] interface so a learned detector can be substituted
// without touching the cropping or composition logic.
package imageproc

import (
	"image"

	"github.com/disintegration/imaging"
)

// RegionKind tags the heuristic category of a detected focus region.
type RegionKind string

// Detected region categories.
const (
	RegionFaceLike  RegionKind = "face-like"
	RegionTextDense RegionKind = "text-dense"
	RegionProduct   RegionKind = "product"
	RegionWhole     RegionKind = "whole-image"
)

// Region is a weighted bounding region within a source image.
type Region struct {
	Rect   image.Rectangle
	Kind   RegionKind
	Weight float64
}

// Score holds the per-axis quality scores for an image, each in [0, 1].
type Score struct {
	Blur        float64 // 1 = sharp, 0 = blurred
	Resolution  float64 // 1 = at or above target dimensions
	Composition float64 // Histogram spread + thirds alignment
	Overall     float64
}

// Detector finds focus regions and filters generic stock imagery.
// Implementations must degrade to a single whole-image region rather than
// returning nothing.
type Detector interface {
	DetectFocusRegions(img image.Image) []Region
	IsLikelyStockPhoto(img image.Image) bool
}

// Processor bundles the detector with the scoring and cropping operations
// that consume its regions.
type Processor struct {
	Detector Detector
}

// NewProcessor creates a processor with the given detector, defaulting to
// the built-in heuristic detector.
func NewProcessor(d Detector) *Processor {
	if d == nil {
		d = NewHeuristicDetector()
	}
	return &Processor{Detector: d}
}

// analysisMaxDim bounds the working copy used for pixel statistics so
// scoring cost stays independent of source resolution.
const analysisMaxDim = 256

// downsample returns an NRGBA working copy no larger than analysisMaxDim on
// its longest side.
func downsample(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() <= analysisMaxDim && b.Dy() <= analysisMaxDim {
		return imaging.Clone(img)
	}
	return imaging.Fit(img, analysisMaxDim, analysisMaxDim, imaging.Box)
}

// lum8 returns the 0-255 luminance of an NRGBA pixel.
func lum8(p *image.NRGBA, x, y int) float64 {
	i := p.PixOffset(x, y)
	r := float64(p.Pix[i])
	g := float64(p.Pix[i+1])
	b := float64(p.Pix[i+2])
	return 0.299*r + 0.587*g + 0.114*b
}

// sat returns the 0-1 HSV saturation of an NRGBA pixel.
func sat(p *image.NRGBA, x, y int) float64 {
	i := p.PixOffset(x, y)
	r, g, b := p.Pix[i], p.Pix[i+1], p.Pix[i+2]
	maxc := max(r, g, b)
	if maxc == 0 {
		return 0
	}
	minc := min(r, g, b)
	return float64(maxc-minc) / float64(maxc)
}
