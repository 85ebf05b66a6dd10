package compose

import (
	"bytes"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/previewforge/previewforge/pkg/dna"
	"github.com/previewforge/previewforge/pkg/errors"
	"github.com/previewforge/previewforge/pkg/imageproc"
)

func testDNA() dna.DesignDNA {
	d := dna.Defaults()
	d.Philosophy = dna.PhilosophyCorporate
	d.Typography.Personality = "authoritative"
	d.Color.EmotionalIntent = "trust"
	return d
}

func testHero(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func flatHero(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 120, G: 120, B: 120, A: 255})
		}
	}
	return img
}

// noisyHero is a sharp, high-spread image that scores well on every
// quality axis.
func noisyHero(w, h int, seed int64) image.Image {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255,
			})
		}
	}
	return img
}

// stockHero is gray noise confined to a mid luminance band at an exact
// 3:2 aspect: sharp and well resolved, but generic by every stock cue.
func stockHero(w, h int, seed int64) image.Image {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(96 + rng.Intn(48))
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestSelectTemplateMinimalistNoHero(t *testing.T) {
	d := dna.Defaults()
	d.Philosophy = dna.PhilosophyMinimalist
	d.Hero.Kind = dna.HeroNone
	if got := SelectTemplate(d); got != TemplateTextFocused {
		t.Errorf("SelectTemplate = %q, want text-focused", got)
	}
}

func TestSelectTemplatePhotographyHero(t *testing.T) {
	d := dna.Defaults()
	d.Philosophy = dna.PhilosophyMaximalist
	d.Hero.Kind = dna.HeroPhotography
	if got := SelectTemplate(d); got != TemplateHeroFocused {
		t.Errorf("SelectTemplate = %q, want hero-focused", got)
	}
}

func TestSelectTemplateForWeakHeroDemoted(t *testing.T) {
	e := NewEngine(nil, nil)
	d := dna.Defaults()
	d.Philosophy = dna.PhilosophyMinimalist
	d.Hero.Kind = dna.HeroPhotography

	if got := e.SelectTemplateFor(d, nil); got != SelectTemplate(d) {
		t.Fatalf("nil hero changed selection: %q != %q", got, SelectTemplate(d))
	}
	// A tiny flat image scores near zero on every quality axis.
	weak := flatHero(40, 30)
	if got := e.SelectTemplateFor(d, weak); got == TemplateHeroFocused || got == TemplateSplit {
		t.Errorf("weak hero still selected hero-led template %q", got)
	}
}

func TestSelectTemplateForStrongHeroKept(t *testing.T) {
	e := NewEngine(nil, nil)
	d := dna.Defaults()
	d.Philosophy = dna.PhilosophyMinimalist
	d.Hero.Kind = dna.HeroPhotography

	if got := e.SelectTemplateFor(d, noisyHero(800, 630, 3)); got != TemplateHeroFocused {
		t.Errorf("strong hero selection = %q, want hero-focused", got)
	}
}

func TestSelectTemplateForStockHeroDemoted(t *testing.T) {
	e := NewEngine(nil, nil)
	d := dna.Defaults()
	d.Philosophy = dna.PhilosophyMinimalist
	d.Hero.Kind = dna.HeroPhotography

	if got := e.SelectTemplateFor(d, stockHero(945, 630, 5)); got == TemplateHeroFocused {
		t.Error("stock hero kept the hero-focused template")
	}
}

func TestSelectTemplateTieUsesPriority(t *testing.T) {
	// A DNA matching no rules scores everything zero; the fixed priority
	// order must decide.
	if got := SelectTemplate(dna.DesignDNA{}); got != templatePriority[0] {
		t.Errorf("tie broke to %q, want %q", got, templatePriority[0])
	}
}

func TestComposeTextFocused(t *testing.T) {
	e := NewEngine(nil, nil)
	req := Request{Title: "Adaptive preview cards", Description: "Cards that match your page", URL: "https://example.com/x"}
	plan, err := e.Compose(req, testDNA(), TemplateTextFocused, TreatmentEmotion, EmphasisBalanced)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if plan.Template != TemplateTextFocused || plan.Revision != 0 {
		t.Errorf("plan header = %q rev %d", plan.Template, plan.Revision)
	}
	if len(plan.Palette) < 4 {
		t.Errorf("palette too small: %v", plan.Palette)
	}
	if !plan.Crop.Empty() {
		t.Errorf("text-focused plan should not crop, got %v", plan.Crop)
	}
	if got := roleSpec(plan, RoleTitle); got == nil {
		t.Fatal("plan missing title block")
	}
	if got := roleSpec(plan, RoleDomain); got == nil || got.Content != "example.com" {
		t.Errorf("domain block = %+v, want example.com", got)
	}
}

func TestComposeBrandTreatment(t *testing.T) {
	e := NewEngine(nil, nil)
	req := Request{Title: "T", BrandColors: []string{"#112233"}}
	plan, err := e.Compose(req, testDNA(), TemplateTextFocused, TreatmentBrand, EmphasisTitle)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if plan.Palette[0] != "#112233" {
		t.Errorf("palette[0] = %q, want brand color first", plan.Palette[0])
	}
	if len(plan.Palette) < 4 {
		t.Errorf("brand palette should pad to 4+, got %d", len(plan.Palette))
	}
}

func TestComposeInvalidBrandColor(t *testing.T) {
	e := NewEngine(nil, nil)
	req := Request{Title: "T", BrandColors: []string{"nope"}}
	_, err := e.Compose(req, testDNA(), TemplateTextFocused, TreatmentBrand, EmphasisTitle)
	if !errors.Is(err, errors.ErrCodeInvalidColor) {
		t.Errorf("err = %v, want INVALID_COLOR_FORMAT", err)
	}
}

func TestComposeHeroCropInsideBounds(t *testing.T) {
	e := NewEngine(nil, nil)
	hero := testHero(800, 600)
	req := Request{Title: "T", Hero: hero}
	plan, err := e.Compose(req, testDNA(), TemplateHeroFocused, TreatmentEmotion, EmphasisTitle)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if plan.Crop.Empty() {
		t.Fatal("hero plan should select a crop window")
	}
	if !plan.Crop.In(hero.Bounds()) {
		t.Errorf("crop %v outside source bounds %v", plan.Crop, hero.Bounds())
	}
}

func TestComposeTitleEmphasisDropsDescription(t *testing.T) {
	e := NewEngine(nil, nil)
	req := Request{Title: "T", Description: "long body copy"}
	plan, err := e.Compose(req, testDNA(), TemplateTextFocused, TreatmentEmotion, EmphasisTitle)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if roleSpec(plan, RoleDescription) != nil {
		t.Error("title emphasis must drop the description block")
	}
}

func TestReviseIsDeepCopy(t *testing.T) {
	e := NewEngine(nil, nil)
	plan, err := e.Compose(Request{Title: "Original title here"}, testDNA(), TemplateTextFocused, TreatmentEmotion, EmphasisTitle)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	rev := plan.Revise()
	if rev.Revision != plan.Revision+1 {
		t.Errorf("Revision = %d, want %d", rev.Revision, plan.Revision+1)
	}
	rev.Palette[0] = "#000000"
	rev.Text[0].Lines[0] = "mutated"
	rev.Overlays = append(rev.Overlays, OverlaySpec{Color: "#000000", Opacity: 1})
	if plan.Palette[0] == "#000000" || plan.Text[0].Lines[0] == "mutated" {
		t.Error("mutating the revision leaked into the original plan")
	}
	if len(plan.Overlays) != 0 {
		t.Error("appending overlays to the revision grew the original")
	}
}

func TestPlanValidate(t *testing.T) {
	good := Plan{
		Template: TemplateTextFocused, Width: 100, Height: 100,
		Text: []TextSpec{{Role: RoleTitle, Size: 12}},
	}
	if err := good.Validate(); err != nil {
		t.Errorf("valid plan rejected: %v", err)
	}

	bad := good
	bad.Template = "nonsense"
	if err := bad.Validate(); !errors.Is(err, errors.ErrCodeInvalidPlan) {
		t.Errorf("unknown template: err = %v, want INVALID_PLAN", err)
	}

	bad = good
	bad.Width = 0
	if err := bad.Validate(); !errors.Is(err, errors.ErrCodeInvalidPlan) {
		t.Errorf("zero width: err = %v, want INVALID_PLAN", err)
	}
}

func TestValidateCropOutOfBounds(t *testing.T) {
	plan := Plan{Crop: image.Rect(0, 0, 2000, 2000)}
	if err := plan.ValidateCrop(testHero(100, 100)); !errors.Is(err, errors.ErrCodeInvalidPlan) {
		t.Errorf("err = %v, want INVALID_PLAN", err)
	}
}

func TestRenderDeterministic(t *testing.T) {
	e := NewEngine(nil, nil)
	req := Request{Title: "Deterministic render", URL: "https://example.com", Width: 400, Height: 210}
	plan, err := e.Compose(req, testDNA(), TemplateMinimalGradient, TreatmentEmotion, EmphasisTitle)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	a, err := e.Render(plan, req)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b, err := e.Render(plan, req)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Equal(a.Image.Pix, b.Image.Pix) {
		t.Error("identical plan and request rendered different pixels")
	}
}

func TestRenderMeasuresTextRegions(t *testing.T) {
	e := NewEngine(nil, nil)
	req := Request{Title: "Measured", URL: "https://example.com", Width: 400, Height: 210}
	plan, err := e.Compose(req, testDNA(), TemplateTextFocused, TreatmentEmotion, EmphasisTitle)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	rendered, err := e.Render(plan, req)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	title := rendered.Region(RoleTitle)
	if title.Empty() {
		t.Fatal("title region not measured")
	}
	canvas := image.Rect(0, 0, plan.Width, plan.Height)
	if !title.In(canvas) {
		t.Errorf("title region %v outside canvas %v", title, canvas)
	}
	if got := rendered.Region("nonexistent"); !got.Empty() {
		t.Errorf("unknown role should return zero rect, got %v", got)
	}
}

func TestRenderHeroEnhanced(t *testing.T) {
	e := NewEngine(nil, nil)
	hero := noisyHero(800, 630, 11)
	req := Request{Title: "Hero enhancement", Hero: hero, URL: "https://example.com", Width: 400, Height: 210}
	plan, err := e.Compose(req, testDNA(), TemplateHeroFocused, TreatmentEmotion, EmphasisBalanced)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	rendered, err := e.Render(plan, req)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	area := heroArea(plan.Template, plan.Width, plan.Height)
	want := imaging.Fill(imageproc.Enhance(imaging.Crop(hero, plan.Crop)), area.Dx(), area.Dy(), imaging.Center, imaging.Lanczos)

	// The scrim and text sit in the lower half; upper rows carry the hero
	// pixels untouched.
	for _, pt := range []image.Point{{5, 5}, {area.Dx() / 2, 10}, {area.Dx() - 6, 20}} {
		got := color.RGBAModel.Convert(rendered.Image.At(area.Min.X+pt.X, area.Min.Y+pt.Y))
		exp := color.RGBAModel.Convert(want.At(pt.X, pt.Y))
		if got != exp {
			t.Fatalf("hero pixel at %v = %v, want enhanced %v", pt, got, exp)
		}
	}
}

func TestRenderPlacesLogo(t *testing.T) {
	e := NewEngine(nil, nil)
	logo := testHero(120, 60)
	req := Request{Title: "With logo", Logo: logo, Width: 400, Height: 210}
	plan, err := e.Compose(req, testDNA(), TemplateTextFocused, TreatmentEmotion, EmphasisTitle)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !plan.ShowLogo {
		t.Fatal("plan should carry ShowLogo")
	}
	rendered, err := e.Render(plan, req)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if rendered.LogoRegion.Empty() {
		t.Error("logo region not recorded")
	}
	if !rendered.LogoRegion.In(image.Rect(0, 0, plan.Width, plan.Height)) {
		t.Errorf("logo region %v outside canvas", rendered.LogoRegion)
	}
}

func roleSpec(p Plan, role TextRole) *TextSpec {
	for i := range p.Text {
		if p.Text[i].Role == role {
			return &p.Text[i]
		}
	}
	return nil
}
