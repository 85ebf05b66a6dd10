package pipeline

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/previewforge/previewforge/pkg/cache"
	"github.com/previewforge/previewforge/pkg/dna"
	"github.com/previewforge/previewforge/pkg/errors"
)

type fakeVision struct {
	response string
	calls    int
}

func (f *fakeVision) GenerateJSON(ctx context.Context, prompt string, screenshot []byte) (json.RawMessage, error) {
	f.calls++
	return json.RawMessage(f.response), nil
}

const visionResponse = `{
	"philosophy": "minimalist",
	"colorPsychology": {
		"dominantEmotion": "calm",
		"extractedColors": ["#2d6cdf", "#f4f4f4"],
		"saturationProfile": "muted"
	},
	"typographyPersonality": {"mood": "modern", "weightPreference": "medium"},
	"heroStrategy": {"kind": "none"},
	"confidence": 0.9
}`

const photoVisionResponse = `{
	"philosophy": "maximalist",
	"colorPsychology": {
		"dominantEmotion": "excitement",
		"extractedColors": ["#d33f49", "#1b1b2f"],
		"saturationProfile": "vivid"
	},
	"typographyPersonality": {"mood": "bold", "weightPreference": "heavy"},
	"heroStrategy": {"kind": "photography"},
	"confidence": 0.9
}`

func noisyImage(w, h int, seed int64) image.Image {
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

func testOptions() Options {
	return Options{
		URL:         "https://example.com/post",
		Domain:      "example.com",
		Title:       "Observability for Distributed Queues",
		Description: "A practical tour of tracing message backlogs in production.",
		Width:       600,
		Height:      315,
	}
}

func TestExecuteSinglePreview(t *testing.T) {
	vision := &fakeVision{response: visionResponse}
	r := NewRunner(nil, nil, dna.NewExtractor(vision), nil, nil)

	result, err := r.Execute(context.Background(), testOptions())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.RunID == "" {
		t.Error("RunID is empty")
	}
	if got := len(result.Variants); got != 1 {
		t.Fatalf("len(Variants) = %d, want 1", got)
	}
	winner := result.Winner()
	if winner.Rendered.Image == nil {
		t.Fatal("winner has no image")
	}
	b := winner.Rendered.Image.Bounds()
	if b.Dx() != 600 || b.Dy() != 315 {
		t.Errorf("image = %dx%d, want 600x315", b.Dx(), b.Dy())
	}
	if result.DNA.Philosophy != dna.PhilosophyMinimalist {
		t.Errorf("Philosophy = %q, want minimalist", result.DNA.Philosophy)
	}
	if result.DNA.Degraded {
		t.Error("Degraded = true for a clean extraction")
	}
	if len(result.Artifacts["png"]) == 0 {
		t.Error("no base PNG artifact")
	}
	if result.CacheInfo.DNAHit {
		t.Error("DNAHit = true with a null cache")
	}
}

func TestExecuteDNACacheHit(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	vision := &fakeVision{response: visionResponse}
	r := NewRunner(c, nil, dna.NewExtractor(vision), nil, nil)

	if _, err := r.Execute(context.Background(), testOptions()); err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	if vision.calls != 1 {
		t.Fatalf("vision calls = %d, want 1", vision.calls)
	}

	result, err := r.Execute(context.Background(), testOptions())
	if err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}
	if !result.CacheInfo.DNAHit {
		t.Error("DNAHit = false on second run")
	}
	if !result.CacheInfo.PlanHit {
		t.Error("PlanHit = false on second run")
	}
	if !result.CacheInfo.ArtifactHit {
		t.Error("ArtifactHit = false on second run")
	}
	if vision.calls != 1 {
		t.Errorf("vision calls = %d after cached run, want 1", vision.calls)
	}
}

func TestExecuteHeroChangeInvalidatesPlanCache(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	vision := &fakeVision{response: photoVisionResponse}
	r := NewRunner(c, nil, dna.NewExtractor(vision), nil, nil)

	opts := testOptions()
	opts.Hero = noisyImage(1600, 900, 1)
	if _, err := r.Execute(context.Background(), opts); err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}

	opts.Hero = noisyImage(1600, 900, 1)
	again, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("same-geometry Execute() error = %v", err)
	}
	if !again.CacheInfo.PlanHit {
		t.Error("PlanHit = false for an unchanged hero")
	}

	opts.Hero = noisyImage(200, 120, 2)
	result, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("smaller hero Execute() error = %v", err)
	}
	if result.CacheInfo.PlanHit {
		t.Error("PlanHit = true across a hero size change")
	}
	winner := result.Winner()
	if winner.Rendered.Image == nil {
		t.Fatal("smaller hero run produced no image")
	}
	b := winner.Rendered.Image.Bounds()
	if b.Dx() != 600 || b.Dy() != 315 {
		t.Errorf("image = %dx%d, want 600x315", b.Dx(), b.Dy())
	}
}

func TestExecuteRefreshBypassesCache(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	vision := &fakeVision{response: visionResponse}
	r := NewRunner(c, nil, dna.NewExtractor(vision), nil, nil)

	if _, err := r.Execute(context.Background(), testOptions()); err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}

	opts := testOptions()
	opts.Refresh = true
	result, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("refresh Execute() error = %v", err)
	}
	if result.CacheInfo.DNAHit {
		t.Error("DNAHit = true with Refresh set")
	}
	if vision.calls != 2 {
		t.Errorf("vision calls = %d, want 2", vision.calls)
	}
}

func TestExecuteNilExtractorDegrades(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil, nil)

	result, err := r.Execute(context.Background(), testOptions())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.DNA.Degraded {
		t.Error("Degraded = false without an extractor")
	}
	if len(result.Variants) != 1 {
		t.Errorf("len(Variants) = %d, want 1", len(result.Variants))
	}
}

func TestExecuteVariants(t *testing.T) {
	vision := &fakeVision{response: visionResponse}
	r := NewRunner(nil, nil, dna.NewExtractor(vision), nil, nil)

	opts := testOptions()
	opts.VariantCount = 4
	opts.Seed = 7

	result, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := len(result.Variants); got != 4 {
		t.Fatalf("len(Variants) = %d, want 4", got)
	}
	seen := make(map[string]bool)
	for _, v := range result.Variants {
		if seen[string(v.Key)] {
			t.Errorf("duplicate variant key %q", v.Key)
		}
		seen[string(v.Key)] = true
	}
	for i := 1; i < len(result.Variants); i++ {
		if result.Variants[i].Score > result.Variants[0].Score {
			t.Errorf("variant %d outscores the winner", i)
		}
	}
}

func TestExecutePlatforms(t *testing.T) {
	vision := &fakeVision{response: visionResponse}
	r := NewRunner(nil, nil, dna.NewExtractor(vision), nil, nil)

	opts := testOptions()
	opts.Platforms = []string{"twitter", "story"}

	result, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	tw, ok := result.Platforms["twitter"]
	if !ok {
		t.Fatal("missing twitter rendering")
	}
	if b := tw.Image.Bounds(); b.Dx() != 1200 || b.Dy() != 600 {
		t.Errorf("twitter = %dx%d, want 1200x600", b.Dx(), b.Dy())
	}
	story, ok := result.Platforms["story"]
	if !ok {
		t.Fatal("missing story rendering")
	}
	if b := story.Image.Bounds(); b.Dx() != 1080 || b.Dy() != 1920 {
		t.Errorf("story = %dx%d, want 1080x1920", b.Dx(), b.Dy())
	}
	if len(result.Artifacts["twitter"]) == 0 {
		t.Error("no twitter PNG artifact")
	}
}

func TestExecuteUnknownPlatform(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil, nil)

	opts := testOptions()
	opts.Platforms = []string{"myspace"}

	_, err := r.Execute(context.Background(), opts)
	if err == nil {
		t.Fatal("Execute() succeeded with an unknown platform")
	}
	if errors.GetCode(err) != errors.ErrCodeInvalidPlatform {
		t.Errorf("code = %q, want %q", errors.GetCode(err), errors.ErrCodeInvalidPlatform)
	}
}

func TestExecuteMissingTitle(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil, nil)

	opts := testOptions()
	opts.Title = ""

	_, err := r.Execute(context.Background(), opts)
	if err == nil {
		t.Fatal("Execute() succeeded without a title")
	}
}

func TestExecuteExpiredContext(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := testOptions()
	opts.VariantCount = 3

	_, err := r.Execute(ctx, opts)
	if err == nil {
		t.Fatal("Execute() succeeded with an expired context")
	}
	if errors.GetCode(err) != errors.ErrCodeTimeout {
		t.Errorf("code = %q, want %q", errors.GetCode(err), errors.ErrCodeTimeout)
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := Options{Title: "Queues"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if opts.Width != 1200 || opts.Height != 630 {
		t.Errorf("dims = %dx%d, want 1200x630", opts.Width, opts.Height)
	}
	if opts.VariantCount != 1 {
		t.Errorf("VariantCount = %d, want 1", opts.VariantCount)
	}
	if opts.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", opts.Timeout, DefaultTimeout)
	}
	if opts.Seed == 0 {
		t.Error("Seed not defaulted")
	}
	if opts.Logger == nil {
		t.Error("Logger not defaulted")
	}

	// Idempotent: a second call keeps the chosen seed.
	seed := opts.Seed
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("second ValidateAndSetDefaults() error = %v", err)
	}
	if opts.Seed != seed {
		t.Error("Seed changed on revalidation")
	}
}

func TestValidateAndSetDefaultsBadColor(t *testing.T) {
	opts := Options{Title: "Queues", BrandColors: []string{"notacolor"}}
	if err := opts.ValidateAndSetDefaults(); err == nil {
		t.Fatal("ValidateAndSetDefaults() accepted a bad brand color")
	}
}

func TestRunnerClose(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	r := NewRunner(c, nil, nil, nil, nil)
	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
