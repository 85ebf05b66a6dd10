package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/previewforge/previewforge/pkg/cache"
	"github.com/previewforge/previewforge/pkg/compose"
	"github.com/previewforge/previewforge/pkg/dna"
	"github.com/previewforge/previewforge/pkg/errors"
	"github.com/previewforge/previewforge/pkg/export"
	"github.com/previewforge/previewforge/pkg/fixer"
	"github.com/previewforge/previewforge/pkg/fonts"
	"github.com/previewforge/previewforge/pkg/imageproc"
	"github.com/previewforge/previewforge/pkg/observability"
	"github.com/previewforge/previewforge/pkg/platform"
	"github.com/previewforge/previewforge/pkg/quality"
	"github.com/previewforge/previewforge/pkg/store"
	"github.com/previewforge/previewforge/pkg/variant"
)

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies this execution in logs and the result store.
	RunID string

	// DNA is the extracted (or defaulted) design profile.
	DNA dna.DesignDNA

	// Variants is the ranked candidate set; Variants[0] is the winner.
	// The single-preview path produces exactly one entry.
	Variants []variant.Variant

	// Platforms maps platform name to the re-targeted rendering.
	Platforms map[string]compose.Rendered

	// Artifacts contains encoded PNGs: "png" for the base card plus one
	// entry per requested platform.
	Artifacts map[string][]byte

	// Stats contains timing information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Winner returns the top-ranked variant.
func (r *Result) Winner() variant.Variant {
	return r.Variants[0]
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ExtractTime  time.Duration
	ComposeTime  time.Duration
	PlatformTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	DNAHit      bool // extraction result came from cache
	PlanHit     bool // composition plan came from cache (single-preview path)
	ArtifactHit bool // base PNG came from cache
}

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for its collaborators - it doesn't store
// run results. Multiple goroutines can safely share one Runner with
// different options.
type Runner struct {
	Cache     cache.Cache
	Keyer     cache.Keyer
	Extractor *dna.Extractor // nil disables extraction, defaults are used
	Store     store.Store    // nil disables the audit sink
	Logger    *log.Logger

	engine *compose.Engine
}

// NewRunner creates a runner. Nil cache disables caching, nil keyer uses
// the default keyer, nil extractor skips the vision service entirely.
func NewRunner(c cache.Cache, keyer cache.Keyer, extractor *dna.Extractor, sink store.Store, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:     cache.OrNull(c),
		Keyer:     keyer,
		Extractor: extractor,
		Store:     sink,
		Logger:    logger,
		engine:    compose.NewEngine(fonts.NewLibrary(), imageproc.NewProcessor(nil), compose.WithLogger(logger)),
	}
}

// Execute runs the complete extract → compose → validate → fix pipeline,
// fanning out variants when requested and re-targeting the winner to each
// requested platform. A run always yields at least one usable image or an
// error; deadline expiry returns whatever completed.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	result := &Result{
		RunID:     uuid.NewString(),
		Platforms: make(map[string]compose.Rendered),
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Extract
	extractStart := time.Now()
	d, dnaHit := r.ExtractWithCacheInfo(ctx, opts)
	result.DNA = d
	result.Stats.ExtractTime = time.Since(extractStart)
	result.CacheInfo.DNAHit = dnaHit

	opts.Logger.Info("extracted design profile",
		"philosophy", d.Philosophy,
		"degraded", d.Degraded,
		"cached", dnaHit,
		"duration", result.Stats.ExtractTime)

	req := requestFrom(opts)
	validator := opts.Validator(d.Degraded)
	fx := fixer.NewFixer(r.engine, validator,
		fixer.WithMaxAttempts(opts.MaxFixAttempts),
		fixer.WithLogger(opts.Logger))

	// Stage 2: Compose (single preview or variant fan-out)
	composeStart := time.Now()
	if opts.VariantCount <= 1 {
		v, planHit, err := r.singlePreview(ctx, opts, req, d, validator, fx)
		if err != nil {
			return nil, err
		}
		result.Variants = []variant.Variant{v}
		result.CacheInfo.PlanHit = planHit
	} else {
		gen := variant.NewGenerator(r.engine, validator, fx,
			variant.WithCount(opts.VariantCount),
			variant.WithWorkers(opts.Workers),
			variant.WithLogger(opts.Logger))
		vs, err := gen.Generate(ctx, req, d, opts.Seed)
		if err != nil {
			return nil, err
		}
		result.Variants = vs
	}
	result.Stats.ComposeTime = time.Since(composeStart)

	winner := result.Winner()
	observability.Pipeline().OnComposeComplete(ctx,
		string(winner.Rendered.Plan.Template), result.Stats.ComposeTime, nil)
	opts.Logger.Info("composed preview",
		"variants", len(result.Variants),
		"winner", winner.Key,
		"passed", winner.Report.Passed,
		"duration", result.Stats.ComposeTime)

	// Stage 3: Encode + platform re-targeting
	platformStart := time.Now()
	data, artifactHit, err := r.artifactPNG(ctx, winner.Rendered, "", opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts["png"] = data
	result.CacheInfo.ArtifactHit = artifactHit

	optimizer := platform.NewOptimizer(r.engine)
	for _, name := range opts.Platforms {
		if ctx.Err() != nil {
			opts.Logger.Warn("deadline reached, returning partial platform set",
				"completed", len(result.Platforms))
			break
		}
		profile, err := platform.Lookup(name)
		if err != nil {
			return nil, err
		}
		rendered, err := optimizer.Optimize(winner.Rendered, req, profile)
		if err != nil {
			if errors.Fatal(err) {
				return nil, err
			}
			opts.Logger.Warn("platform re-target skipped", "platform", name, "error", err)
			continue
		}
		result.Platforms[name] = rendered
		if data, _, err := r.artifactPNG(ctx, rendered, name, opts); err == nil {
			result.Artifacts[name] = data
		}
	}
	result.Stats.PlatformTime = time.Since(platformStart)

	r.saveResult(ctx, opts, result)
	return result, nil
}

// ExtractWithCacheInfo runs the extraction stage with caching and reports
// whether the DNA came from the cache.
func (r *Runner) ExtractWithCacheInfo(ctx context.Context, opts Options) (dna.DesignDNA, bool) {
	key := r.Keyer.DNAKey(r.contentHash(opts), opts.DNAKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var d dna.DesignDNA
			if err := json.Unmarshal(data, &d); err == nil {
				observability.Cache().OnCacheHit(ctx, "dna")
				return d, true
			}
		}
		observability.Cache().OnCacheMiss(ctx, "dna")
	}

	var d dna.DesignDNA
	if r.Extractor == nil {
		d = dna.Defaults()
		d.Degraded = true
		opts.Logger.Debug("no extractor configured, using default profile")
	} else {
		d = r.Extractor.Extract(ctx, dna.Input{
			URL:         opts.URL,
			Title:       opts.Title,
			Description: opts.Description,
			Keywords:    opts.Keywords,
			Screenshot:  opts.Screenshot,
		})
	}

	if !opts.Refresh {
		if data, err := json.Marshal(d); err == nil {
			_ = r.Cache.Set(ctx, key, data, cache.TTLDNA)
			observability.Cache().OnCacheSet(ctx, "dna", len(data))
		}
	}
	return d, false
}

// singlePreview composes the DNA-preferred combination with plan caching,
// then renders, validates, and fixes it.
func (r *Runner) singlePreview(ctx context.Context, opts Options, req compose.Request, d dna.DesignDNA, validator *quality.Validator, fx *fixer.Fixer) (variant.Variant, bool, error) {
	tmpl := r.engine.SelectTemplateFor(d, req.Hero)
	treatment := compose.TreatmentEmotion
	if len(opts.BrandColors) > 0 {
		treatment = compose.TreatmentBrand
	}
	emphasis := compose.EmphasisBalanced

	dnaJSON, err := json.Marshal(d)
	if err != nil {
		return variant.Variant{}, false, errors.Wrap(errors.ErrCodeInternal, err, "hashing design profile")
	}
	planBase := cache.Hash(append(dnaJSON, []byte(opts.Title+"\x00"+opts.Description+"\x00"+heroStamp(req.Hero))...))
	key := r.Keyer.PlanKey(planBase, opts.PlanKeyOpts(tmpl, treatment, emphasis))

	var plan compose.Plan
	planHit := false
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		// A cached crop window must still fit the hero supplied with this
		// request; otherwise the entry is stale and we re-compose.
		if err := json.Unmarshal(data, &plan); err == nil &&
			plan.Validate() == nil && plan.ValidateCrop(req.Hero) == nil {
			planHit = true
			observability.Cache().OnCacheHit(ctx, "plan")
		}
	}
	if !planHit {
		observability.Cache().OnCacheMiss(ctx, "plan")
		plan, err = r.engine.Compose(req, d, tmpl, treatment, emphasis)
		if err != nil {
			return variant.Variant{}, false, err
		}
		if data, err := json.Marshal(plan); err == nil {
			_ = r.Cache.Set(ctx, key, data, cache.TTLPlan)
			observability.Cache().OnCacheSet(ctx, "plan", len(data))
		}
	}

	rendered, err := r.engine.Render(plan, req)
	if err != nil {
		return variant.Variant{}, false, err
	}
	report := validator.Validate(rendered)
	observability.Pipeline().OnValidateComplete(ctx, report.Passed, len(report.Issues))

	out, err := fx.Fix(ctx, rendered, report, req)
	if err != nil {
		return variant.Variant{}, false, err
	}
	return variant.Variant{
		Key:       variant.MakeKey(tmpl, treatment, emphasis),
		Rendered:  out.Rendered,
		Report:    out.Report,
		Score:     out.Report.Overall,
		Exhausted: out.Exhausted,
	}, planHit, nil
}

// artifactPNG encodes a rendering as PNG with artifact caching, keyed by
// the plan content and platform.
func (r *Runner) artifactPNG(ctx context.Context, rendered compose.Rendered, platformName string, opts Options) ([]byte, bool, error) {
	planJSON, err := json.Marshal(rendered.Plan)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "hashing plan")
	}
	key := r.Keyer.ArtifactKey(cache.Hash(planJSON), opts.ArtifactKeyOpts(platformName))

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return data, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
	}

	var buf bytes.Buffer
	if err := export.WritePNG(rendered.Image, &buf); err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "encoding artifact")
	}
	data := buf.Bytes()
	_ = r.Cache.Set(ctx, key, data, cache.TTLArtifact)
	observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	return data, false, nil
}

// saveResult writes the winner to the audit sink, best effort.
func (r *Runner) saveResult(ctx context.Context, opts Options, result *Result) {
	if r.Store == nil {
		return
	}
	// The audit write should survive a pipeline deadline that fired
	// mid-run.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	winner := result.Winner()
	rec := store.Record{
		RunID:      result.RunID,
		URL:        opts.URL,
		CreatedAt:  time.Now().UTC(),
		VariantKey: string(winner.Key),
		Template:   string(winner.Rendered.Plan.Template),
		Revision:   winner.Rendered.Plan.Revision,
		Palette:    winner.Rendered.Plan.Palette,
		Degraded:   result.DNA.Degraded,
		Exhausted:  winner.Exhausted,
		Report:     winner.Report,
	}
	if err := r.Store.SaveResult(ctx, rec); err != nil {
		opts.Logger.Warn("result store write failed", "run", result.RunID, "error", err)
	}
}

// contentHash fingerprints the extraction inputs.
func (r *Runner) contentHash(opts Options) string {
	var buf bytes.Buffer
	buf.WriteString(opts.URL)
	buf.WriteByte(0)
	buf.WriteString(opts.Title)
	buf.WriteByte(0)
	buf.WriteString(opts.Description)
	buf.WriteByte(0)
	for _, k := range opts.Keywords {
		buf.WriteString(k)
		buf.WriteByte(0)
	}
	buf.Write(opts.Screenshot)
	return cache.Hash(buf.Bytes())
}

// heroStamp distinguishes plan cache entries by hero geometry so a cached
// crop window is never keyed against a differently sized source image.
func heroStamp(hero image.Image) string {
	if hero == nil {
		return ""
	}
	b := hero.Bounds()
	return fmt.Sprintf("%dx%d", b.Dx(), b.Dy())
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// requestFrom converts pipeline options to the composition request.
func requestFrom(opts Options) compose.Request {
	return compose.Request{
		URL:         opts.URL,
		Domain:      opts.Domain,
		Title:       opts.Title,
		Description: opts.Description,
		Keywords:    opts.Keywords,
		Tone:        opts.Tone,
		Hero:        opts.Hero,
		Logo:        opts.Logo,
		BrandColors: opts.BrandColors,
		Width:       opts.Width,
		Height:      opts.Height,
	}
}
