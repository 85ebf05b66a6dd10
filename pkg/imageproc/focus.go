package imageproc

import (
	"image"
	"math"
)

// Detection grid and thresholds. The grid keeps cost bounded on the
// downsampled working copy; thresholds were tuned on screenshot corpora and
// are deliberately loose. False positives only bias the crop, they never
// break it.
const (
	gridCells = 8

	skinCellThreshold = 0.35 // fraction of skin-toned pixels for face-like
	edgeCellThreshold = 550  // Laplacian variance for text-dense
	satCellThreshold  = 0.45 // mean saturation for product
)

// HeuristicDetector is the built-in pixel-statistics detector.
type HeuristicDetector struct{}

// NewHeuristicDetector creates the default detector.
func NewHeuristicDetector() *HeuristicDetector {
	return &HeuristicDetector{}
}

type cellStat struct {
	rect     image.Rectangle // in source coordinates
	skin     float64
	edgeVar  float64
	meanSat  float64
	meanLum  float64
}

// DetectFocusRegions scans a coarse grid for face-like, text-dense, and
// high-saturation product cells, returning one bounding region per detected
// category. When nothing qualifies it degrades to a single whole-image
// region so downstream cropping always has something to aim at.
func (d *HeuristicDetector) DetectFocusRegions(img image.Image) []Region {
	src := img.Bounds()
	small := downsample(img)
	cells := analyzeGrid(small, src)

	var faces, texts, products []image.Rectangle
	for _, c := range cells {
		switch {
		case c.skin >= skinCellThreshold && c.meanSat > 0.1:
			faces = append(faces, c.rect)
		case c.edgeVar >= edgeCellThreshold && c.meanSat < 0.35:
			texts = append(texts, c.rect)
		case c.meanSat >= satCellThreshold:
			products = append(products, c.rect)
		}
	}

	var regions []Region
	if r, ok := boundingUnion(faces); ok {
		regions = append(regions, Region{Rect: r, Kind: RegionFaceLike, Weight: 1.0})
	}
	if r, ok := boundingUnion(texts); ok {
		regions = append(regions, Region{Rect: r, Kind: RegionTextDense, Weight: 0.8})
	}
	if r, ok := boundingUnion(products); ok {
		regions = append(regions, Region{Rect: r, Kind: RegionProduct, Weight: 0.6})
	}
	if len(regions) == 0 {
		regions = append(regions, Region{Rect: src, Kind: RegionWhole, Weight: 1.0})
	}
	return regions
}

// stockAspects are the suspiciously generic aspect ratios of catalog
// photography.
var stockAspects = []float64{3.0 / 2.0, 16.0 / 9.0, 4.0 / 3.0}

// IsLikelyStockPhoto flags imagery with a generic aspect ratio, a bland
// mid-band tonal spread, and very uniform saturation. Used to deprioritize
// hero candidates, never to exclude them.
func (d *HeuristicDetector) IsLikelyStockPhoto(img image.Image) bool {
	b := img.Bounds()
	if b.Dy() == 0 {
		return false
	}
	aspect := float64(b.Dx()) / float64(b.Dy())
	generic := false
	for _, a := range stockAspects {
		if math.Abs(aspect-a) < 0.02 {
			generic = true
			break
		}
	}
	if !generic {
		return false
	}

	spread := histogramSpread(img)
	if spread < 0.45 || spread > 0.75 {
		return false
	}

	small := downsample(img)
	cells := analyzeGrid(small, b)
	if len(cells) == 0 {
		return false
	}
	var mean, m2 float64
	for i, c := range cells {
		delta := c.meanSat - mean
		mean += delta / float64(i+1)
		m2 += delta * (c.meanSat - mean)
	}
	variance := m2 / float64(len(cells))
	return variance < 0.01
}

// analyzeGrid computes per-cell statistics on the working copy, mapping cell
// rectangles back to source coordinates.
func analyzeGrid(small *image.NRGBA, src image.Rectangle) []cellStat {
	sb := small.Bounds()
	cw := sb.Dx() / gridCells
	ch := sb.Dy() / gridCells
	if cw < 2 || ch < 2 {
		return nil
	}
	scaleX := float64(src.Dx()) / float64(sb.Dx())
	scaleY := float64(src.Dy()) / float64(sb.Dy())

	cells := make([]cellStat, 0, gridCells*gridCells)
	for gy := 0; gy < gridCells; gy++ {
		for gx := 0; gx < gridCells; gx++ {
			win := image.Rect(gx*cw, gy*ch, (gx+1)*cw, (gy+1)*ch)
			st := cellStat{edgeVar: laplacianVariance(small, win)}

			var skin, satSum, lumSum float64
			n := 0
			for y := win.Min.Y; y < win.Max.Y; y++ {
				for x := win.Min.X; x < win.Max.X; x++ {
					if isSkinTone(small, x, y) {
						skin++
					}
					satSum += sat(small, x, y)
					lumSum += lum8(small, x, y) / 255
					n++
				}
			}
			st.skin = skin / float64(n)
			st.meanSat = satSum / float64(n)
			st.meanLum = lumSum / float64(n)

			st.rect = image.Rect(
				src.Min.X+int(float64(win.Min.X)*scaleX),
				src.Min.Y+int(float64(win.Min.Y)*scaleY),
				src.Min.X+int(float64(win.Max.X)*scaleX),
				src.Min.Y+int(float64(win.Max.Y)*scaleY),
			)
			cells = append(cells, st)
		}
	}
	return cells
}

// isSkinTone applies the classic RGB skin-tone rule. Crude, but adequate
// for biasing crops toward people.
func isSkinTone(p *image.NRGBA, x, y int) bool {
	i := p.PixOffset(x, y)
	r, g, b := int(p.Pix[i]), int(p.Pix[i+1]), int(p.Pix[i+2])
	return r > 95 && g > 40 && b > 20 &&
		r > g && g > b &&
		r-g > 15
}

func boundingUnion(rects []image.Rectangle) (image.Rectangle, bool) {
	if len(rects) == 0 {
		return image.Rectangle{}, false
	}
	u := rects[0]
	for _, r := range rects[1:] {
		u = u.Union(r)
	}
	return u, true
}
