package imageproc

import (
	"image"
	"math"

	"github.com/previewforge/previewforge/pkg/errors"
)

// Crop search parameters: three window scales by a 5x5 position grid keeps
// the search cheap while still covering off-center subjects.
var cropScales = []float64{1.0, 0.85, 0.7}

const cropGridSteps = 5

// IntelligentCrop searches windows of the target aspect ratio for the one
// maximizing weighted overlap with the detected focus regions. Ties are
// broken by preferring the window closest to the image center.
//
// When no valid window exists the centered best-effort crop is returned
// together with a CROP_UNAVAILABLE error; callers treat that as a fallback,
// not a failure.
func (p *Processor) IntelligentCrop(img image.Image, targetAspect float64) (image.Rectangle, error) {
	b := img.Bounds()
	if targetAspect <= 0 {
		return image.Rectangle{}, errors.New(errors.ErrCodeInvalidInput, "aspect ratio must be positive, got %g", targetAspect)
	}
	if b.Dx() < 1 || b.Dy() < 1 {
		return image.Rectangle{}, errors.New(errors.ErrCodeCropUnavailable, "source image is empty")
	}

	maxW, maxH := maxWindow(b, targetAspect)
	if maxW < 1 || maxH < 1 {
		return centerWindow(b, 1, 1), errors.New(errors.ErrCodeCropUnavailable,
			"no window of aspect %g fits %dx%d", targetAspect, b.Dx(), b.Dy())
	}

	regions := p.Detector.DetectFocusRegions(img)

	cx := float64(b.Min.X+b.Max.X) / 2
	cy := float64(b.Min.Y+b.Max.Y) / 2

	var best image.Rectangle
	bestScore := math.Inf(-1)
	bestDist := math.Inf(1)

	for _, scale := range cropScales {
		w := int(float64(maxW) * scale)
		h := int(float64(w) / targetAspect)
		if w < 1 || h < 1 {
			continue
		}
		for _, win := range slideWindows(b, w, h) {
			score := overlapScore(win, regions)
			wx := float64(win.Min.X+win.Max.X) / 2
			wy := float64(win.Min.Y+win.Max.Y) / 2
			dist := math.Hypot(wx-cx, wy-cy)
			if score > bestScore || (score == bestScore && dist < bestDist) {
				best = win
				bestScore = score
				bestDist = dist
			}
		}
	}
	if best.Empty() {
		return centerWindow(b, maxW, maxH), errors.New(errors.ErrCodeCropUnavailable,
			"crop search produced no windows for aspect %g", targetAspect)
	}
	return best, nil
}

// maxWindow computes the largest width/height of the target aspect that fits
// the bounds.
func maxWindow(b image.Rectangle, aspect float64) (int, int) {
	w := b.Dx()
	h := int(float64(w) / aspect)
	if h > b.Dy() {
		h = b.Dy()
		w = int(float64(h) * aspect)
	}
	return w, h
}

// centerWindow returns a wxh window centered in b, clamped to b.
func centerWindow(b image.Rectangle, w, h int) image.Rectangle {
	x := b.Min.X + (b.Dx()-w)/2
	y := b.Min.Y + (b.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h).Intersect(b)
}

// slideWindows enumerates wxh windows on a uniform position grid inside b.
func slideWindows(b image.Rectangle, w, h int) []image.Rectangle {
	maxX := b.Dx() - w
	maxY := b.Dy() - h
	var wins []image.Rectangle
	for iy := 0; iy < cropGridSteps; iy++ {
		for ix := 0; ix < cropGridSteps; ix++ {
			x := b.Min.X
			y := b.Min.Y
			if maxX > 0 {
				x += maxX * ix / (cropGridSteps - 1)
			}
			if maxY > 0 {
				y += maxY * iy / (cropGridSteps - 1)
			}
			win := image.Rect(x, y, x+w, y+h)
			if win.In(b) {
				wins = append(wins, win)
			}
			if maxX <= 0 && maxY <= 0 {
				return wins // only one possible position
			}
		}
		if maxY <= 0 && len(wins) > 0 && maxX > 0 {
			// vertical sliding is a no-op, one row is enough
			break
		}
	}
	return wins
}

// overlapScore sums region-weighted overlap area, favoring windows centered
// on the highest-weighted region.
func overlapScore(win image.Rectangle, regions []Region) float64 {
	var score float64
	for _, r := range regions {
		inter := win.Intersect(r.Rect)
		if inter.Empty() {
			continue
		}
		area := float64(inter.Dx() * inter.Dy())
		score += area * r.Weight

		// Centering bonus: full weight when the region's center is inside
		// the window.
		rcx := (r.Rect.Min.X + r.Rect.Max.X) / 2
		rcy := (r.Rect.Min.Y + r.Rect.Max.Y) / 2
		if image.Pt(rcx, rcy).In(win) {
			score += area * r.Weight * 0.25
		}
	}
	return score
}
