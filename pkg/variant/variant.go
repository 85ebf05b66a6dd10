// Package variant fans the compose/validate/fix loop out over template,
// treatment, and emphasis combinations and returns a ranked, deduplicated
// candidate set.
package variant

import (
	"context"
	"fmt"
	"image"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/previewforge/previewforge/pkg/compose"
	"github.com/previewforge/previewforge/pkg/dna"
	"github.com/previewforge/previewforge/pkg/errors"
	"github.com/previewforge/previewforge/pkg/fixer"
	"github.com/previewforge/previewforge/pkg/observability"
	"github.com/previewforge/previewforge/pkg/quality"
)

// DefaultCount is the number of variants produced when the caller does
// not ask for a specific K.
const DefaultCount = 6

// Diversity penalties applied during greedy ranking.
const (
	sameTemplatePenalty = 0.15
	samePalettePenalty  = 0.10
)

// Key identifies a visually distinct combination. Identical combinations
// collapse to one variant by construction.
type Key string

// MakeKey builds the stable variant key.
func MakeKey(t compose.TemplateID, tr compose.Treatment, em compose.Emphasis) Key {
	return Key(fmt.Sprintf("%s|%s|%s", t, tr, em))
}

// Variant is one ranked candidate.
type Variant struct {
	Key       Key
	Rendered  compose.Rendered
	Report    quality.Report
	Score     float64 // Overall adjusted by diversity at ranking time
	Exhausted bool    // the fixer fell back to the safe default
}

type combo struct {
	template  compose.TemplateID
	treatment compose.Treatment
	emphasis  compose.Emphasis
}

// Generator runs candidate combinations through the full compose,
// validate, fix loop on a bounded worker pool.
type Generator struct {
	engine    *compose.Engine
	validator *quality.Validator
	fixer     *fixer.Fixer
	count     int
	workers   int
	logger    *log.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithCount sets the maximum number of variants K.
func WithCount(k int) Option {
	return func(g *Generator) {
		if k > 0 {
			g.count = k
		}
	}
}

// WithWorkers bounds the candidate worker pool.
func WithWorkers(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithLogger sets the generator's logger.
func WithLogger(l *log.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator creates a generator over the engine, validator, and fixer.
func NewGenerator(e *compose.Engine, v *quality.Validator, f *fixer.Fixer, opts ...Option) *Generator {
	g := &Generator{
		engine:    e,
		validator: v,
		fixer:     f,
		count:     DefaultCount,
		workers:   runtime.NumCPU(),
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces up to K ranked variants. The DNA-selected template
// with the emotion treatment always leads; the remaining combination
// order is a deterministic function of the seed. Candidates failing with
// a fatal plan error abort only themselves. On deadline the variants that
// completed are returned; only a fully empty result is an error.
func (g *Generator) Generate(ctx context.Context, req compose.Request, d dna.DesignDNA, seed int64) ([]Variant, error) {
	combos := g.enumerate(d, req.Hero, seed)

	var (
		mu       sync.Mutex
		variants []Variant
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for _, c := range combos {
		c := c
		eg.Go(func() error {
			if ctx.Err() != nil {
				return nil // deadline passed, keep what we have
			}
			v, err := g.candidate(ctx, req, d, c)
			key := MakeKey(c.template, c.treatment, c.emphasis)
			if err != nil {
				observability.Pipeline().OnVariantComplete(ctx, string(key), 0, err)
				if errors.Fatal(err) {
					g.logger.Error("candidate aborted", "key", key, "error", err)
				} else {
					g.logger.Warn("candidate skipped", "key", key, "error", err)
				}
				return nil
			}
			observability.Pipeline().OnVariantComplete(ctx, string(key), v.Report.Overall, nil)
			mu.Lock()
			variants = append(variants, v)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	ranked := rank(dedupe(variants))
	if len(ranked) == 0 {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "no variant completed before the deadline")
		}
		return nil, errors.New(errors.ErrCodeInternal, "no candidate produced a usable variant")
	}
	return ranked, nil
}

// enumerate builds the ordered candidate list: the preferred combo for
// the DNA and hero first, then a seed-shuffled walk of the remaining
// space, truncated to K.
func (g *Generator) enumerate(d dna.DesignDNA, hero image.Image, seed int64) []combo {
	preferred := combo{
		template:  g.engine.SelectTemplateFor(d, hero),
		treatment: compose.TreatmentEmotion,
		emphasis:  compose.EmphasisBalanced,
	}

	var rest []combo
	for _, t := range compose.Templates() {
		for _, tr := range []compose.Treatment{compose.TreatmentBrand, compose.TreatmentEmotion, compose.TreatmentMono} {
			for _, em := range []compose.Emphasis{compose.EmphasisBalanced, compose.EmphasisTitle} {
				c := combo{template: t, treatment: tr, emphasis: em}
				if c != preferred {
					rest = append(rest, c)
				}
			}
		}
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })

	combos := append([]combo{preferred}, rest...)
	if len(combos) > g.count {
		combos = combos[:g.count]
	}
	return combos
}

// candidate runs one combination through compose, render, validate, fix.
func (g *Generator) candidate(ctx context.Context, req compose.Request, d dna.DesignDNA, c combo) (Variant, error) {
	plan, err := g.engine.Compose(req, d, c.template, c.treatment, c.emphasis)
	if err != nil {
		return Variant{}, err
	}
	rendered, err := g.engine.Render(plan, req)
	if err != nil {
		return Variant{}, err
	}
	report := g.validator.Validate(rendered)
	observability.Pipeline().OnValidateComplete(ctx, report.Passed, len(report.Issues))

	out, err := g.fixer.Fix(ctx, rendered, report, req)
	if err != nil {
		return Variant{}, err
	}
	return Variant{
		Key:       MakeKey(c.template, c.treatment, c.emphasis),
		Rendered:  out.Rendered,
		Report:    out.Report,
		Score:     out.Report.Overall,
		Exhausted: out.Exhausted,
	}, nil
}

func dedupe(in []Variant) []Variant {
	seen := map[Key]bool{}
	var out []Variant
	for _, v := range in {
		if seen[v.Key] {
			continue
		}
		seen[v.Key] = true
		out = append(out, v)
	}
	return out
}

// rank orders variants by quality with a diversity adjustment: each pick
// is the remaining candidate whose overall score minus penalties for
// sharing a template or leading palette color with an already ranked
// variant is highest.
func rank(pool []Variant) []Variant {
	// Key is the secondary sort so ranking does not depend on candidate
	// completion order.
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Report.Overall != pool[j].Report.Overall {
			return pool[i].Report.Overall > pool[j].Report.Overall
		}
		return pool[i].Key < pool[j].Key
	})

	var ranked []Variant
	remaining := append([]Variant(nil), pool...)
	for len(remaining) > 0 {
		bestIdx, bestScore := 0, -1.0
		for i, v := range remaining {
			score := v.Report.Overall
			for _, r := range ranked {
				if r.Rendered.Plan.Template == v.Rendered.Plan.Template {
					score -= sameTemplatePenalty
				}
				if leadColor(r) == leadColor(v) {
					score -= samePalettePenalty
				}
			}
			if score > bestScore {
				bestIdx, bestScore = i, score
			}
		}
		pick := remaining[bestIdx]
		pick.Score = bestScore
		ranked = append(ranked, pick)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return ranked
}

func leadColor(v Variant) string {
	if len(v.Rendered.Plan.Palette) == 0 {
		return ""
	}
	return v.Rendered.Plan.Palette[0]
}
