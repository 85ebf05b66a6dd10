package compose

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/previewforge/previewforge/pkg/colorpsy"
	"github.com/previewforge/previewforge/pkg/errors"
	"github.com/previewforge/previewforge/pkg/imageproc"
)

const lineHeight = 1.25

// Render rasterizes a plan. The z-order is fixed: background, hero,
// gradients/overlays, text, logo. Rendering is deterministic for a given
// plan and request.
func (e *Engine) Render(plan Plan, req Request) (Rendered, error) {
	if err := plan.Validate(); err != nil {
		return Rendered{}, err
	}
	if err := plan.ValidateCrop(req.Hero); err != nil {
		return Rendered{}, err
	}

	dc := gg.NewContext(plan.Width, plan.Height)

	if err := e.drawGradient(dc, plan.Background, image.Rect(0, 0, plan.Width, plan.Height)); err != nil {
		return Rendered{}, err
	}

	if usesHero(plan.Template) && req.Hero != nil && !plan.Crop.Empty() {
		area := heroArea(plan.Template, plan.Width, plan.Height)
		cropped := imageproc.Enhance(imaging.Crop(req.Hero, plan.Crop))
		fitted := imaging.Fill(cropped, area.Dx(), area.Dy(), imaging.Center, imaging.Lanczos)
		dc.DrawImage(fitted, area.Min.X, area.Min.Y)
	}

	for _, g := range plan.Gradients {
		if err := e.drawGradient(dc, g, orCanvas(g.Region, plan)); err != nil {
			return Rendered{}, err
		}
	}
	for _, o := range plan.Overlays {
		if err := e.drawOverlay(dc, o, orCanvas(o.Region, plan)); err != nil {
			return Rendered{}, err
		}
	}

	out := Rendered{Plan: plan}
	if err := e.drawText(dc, plan, &out); err != nil {
		return Rendered{}, err
	}

	if plan.ShowLogo && req.Logo != nil {
		out.LogoRegion = e.drawLogo(dc, plan, req.Logo)
	}

	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		return Rendered{}, errors.New(errors.ErrCodeInternal, "unexpected canvas pixel format")
	}
	out.Image = img
	return out, nil
}

func orCanvas(r image.Rectangle, plan Plan) image.Rectangle {
	if r.Empty() {
		return image.Rect(0, 0, plan.Width, plan.Height)
	}
	return r
}

func (e *Engine) drawGradient(dc *gg.Context, g GradientSpec, region image.Rectangle) error {
	from, err := colorpsy.Parse(g.From)
	if err != nil {
		return err
	}
	to, err := colorpsy.Parse(g.To)
	if err != nil {
		return err
	}
	x0, y0 := float64(region.Min.X), float64(region.Min.Y)
	x1, y1 := float64(region.Max.X), float64(region.Min.Y)
	if g.Vertical {
		x1, y1 = float64(region.Min.X), float64(region.Max.Y)
	}
	grad := gg.NewLinearGradient(x0, y0, x1, y1)
	grad.AddColorStop(0, from)
	grad.AddColorStop(1, to)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(float64(region.Min.X), float64(region.Min.Y),
		float64(region.Dx()), float64(region.Dy()))
	dc.Fill()
	return nil
}

func (e *Engine) drawOverlay(dc *gg.Context, o OverlaySpec, region image.Rectangle) error {
	c, err := colorpsy.Parse(o.Color)
	if err != nil {
		return err
	}
	r, g, b := c.RGB255()
	dc.SetRGBA255(int(r), int(g), int(b), int(o.Opacity*255))
	dc.DrawRectangle(float64(region.Min.X), float64(region.Min.Y),
		float64(region.Dx()), float64(region.Dy()))
	dc.Fill()
	return nil
}

// drawText lays the planned blocks into the template's text area: title at
// the top, description beneath it, domain pinned to the bottom. Measured
// bounding boxes are recorded for the validator.
func (e *Engine) drawText(dc *gg.Context, plan Plan, out *Rendered) error {
	area := textArea(plan.Template, plan.Width, plan.Height, plan.Emphasis)
	if !plan.Safe.Empty() {
		area = area.Intersect(plan.Safe)
	}
	y := float64(area.Min.Y)

	for _, ts := range plan.Text {
		face, err := e.fonts.Face(ts.Font, ts.Size)
		if err != nil {
			return err
		}
		dc.SetFontFace(face)

		startY := y
		if ts.Role == RoleDomain {
			startY = float64(area.Max.Y) - ts.Size*lineHeight
		}

		maxW := 0.0
		lh := ts.Size * lineHeight
		for i, line := range ts.Lines {
			baseline := startY + float64(i)*lh + ts.Size
			if ts.Shadow.Opacity > 0 {
				sc, err := colorpsy.Parse(ts.Shadow.Color)
				if err != nil {
					return err
				}
				sr, sg, sb := sc.RGB255()
				dc.SetRGBA255(int(sr), int(sg), int(sb), int(ts.Shadow.Opacity*255))
				dc.DrawString(line, float64(area.Min.X)+1, baseline+ts.Shadow.OffsetY)
			}
			fg, err := colorpsy.Parse(ts.Color)
			if err != nil {
				return err
			}
			dc.SetColor(fg)
			dc.DrawString(line, float64(area.Min.X), baseline)
			if w, _ := dc.MeasureString(line); w > maxW {
				maxW = w
			}
		}

		blockH := float64(len(ts.Lines)) * lh
		rect := image.Rect(area.Min.X, int(startY), area.Min.X+int(maxW), int(startY+blockH))
		rect = rect.Intersect(image.Rect(0, 0, plan.Width, plan.Height))
		out.TextRegions = append(out.TextRegions, TextRegion{Role: ts.Role, Rect: rect})
		if ts.Role != RoleDomain {
			y = startY + blockH + ts.Size*0.5
		}
	}
	return nil
}

// drawLogo places the brand mark in the top-left padding corner, scaled to
// a fixed height.
func (e *Engine) drawLogo(dc *gg.Context, plan Plan, logo image.Image) image.Rectangle {
	const logoHeight = 48
	pad := plan.Width / 20
	b := logo.Bounds()
	if b.Dy() == 0 {
		return image.Rectangle{}
	}
	w := b.Dx() * logoHeight / b.Dy()
	x, y := pad, pad/2
	if !plan.Safe.Empty() {
		if x < plan.Safe.Min.X {
			x = plan.Safe.Min.X
		}
		if y < plan.Safe.Min.Y {
			y = plan.Safe.Min.Y
		}
	}
	scaled := imaging.Resize(logo, w, logoHeight, imaging.Lanczos)
	dc.DrawImage(scaled, x, y)
	return image.Rect(x, y, x+w, y+logoHeight)
}
