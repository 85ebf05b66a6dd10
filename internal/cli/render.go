package cli

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	cachepkg "github.com/previewforge/previewforge/pkg/cache"
	"github.com/previewforge/previewforge/pkg/export"
	"github.com/previewforge/previewforge/pkg/httputil"
	"github.com/previewforge/previewforge/pkg/pipeline"
)

// renderOpts holds the command-line flags shared by render and variants.
// These options describe the page content, optional image inputs, output
// geometry, and caching behavior.
type renderOpts struct {
	title       string   // card title (required)
	description string   // supporting copy
	keywords    []string // content keywords, hint the extractor
	tone        string   // content tone hint (e.g. "professional")
	brandColors []string // brand hex colors, best first
	hero        string   // hero image file path
	logo        string   // logo image file path
	screenshot  string   // page screenshot file path (feeds extraction)
	width       int      // card width in pixels
	height      int      // card height in pixels
	platforms   []string // platform targets (e.g. twitter, instagram-story)
	output      string   // output file or base path
	manifest    bool     // write a JSON manifest next to each PNG
	noCache     bool     // disable the stage cache
	refresh     bool     // bypass cached extraction results
	seed        int64    // variant enumeration seed (0 = random)
}

// renderCommand creates the render command for generating a single
// preview card.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <url>",
		Short: "Generate a preview card for a URL",
		Long: `Generate a link-preview card for a URL.

The page's design profile is extracted from the supplied content (and
screenshot, when given), a card is composed to match it, validated for
readability, and auto-fixed until it passes.

Examples:
  previewforge render https://example.com --title "Example"
  previewforge render https://example.com --title "Example" \
      --screenshot page.png --hero product.jpg --platforms twitter,linkedin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, args[0], &opts)
		},
	}

	addContentFlags(cmd, &opts)
	return cmd
}

// addContentFlags registers the flags shared by render and variants.
func addContentFlags(cmd *cobra.Command, opts *renderOpts) {
	cmd.Flags().StringVarP(&opts.title, "title", "t", "", "card title (required)")
	cmd.Flags().StringVarP(&opts.description, "description", "d", "", "supporting description")
	cmd.Flags().StringSliceVar(&opts.keywords, "keywords", nil, "content keywords")
	cmd.Flags().StringVar(&opts.tone, "tone", "", "content tone hint")
	cmd.Flags().StringSliceVar(&opts.brandColors, "brand", nil, "brand hex colors, best first")
	cmd.Flags().StringVar(&opts.hero, "hero", "", "hero image file")
	cmd.Flags().StringVar(&opts.logo, "logo", "", "logo image file")
	cmd.Flags().StringVar(&opts.screenshot, "screenshot", "", "page screenshot file (feeds extraction)")
	cmd.Flags().IntVar(&opts.width, "width", 0, "card width (default 1200)")
	cmd.Flags().IntVar(&opts.height, "height", 0, "card height (default 630)")
	cmd.Flags().StringSliceVar(&opts.platforms, "platforms", nil, "platform targets (comma-separated)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file or base path")
	cmd.Flags().BoolVar(&opts.manifest, "manifest", false, "write a JSON manifest next to each PNG")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the stage cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cached extraction results")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "variant enumeration seed")

	_ = cmd.MarkFlagRequired("title")
}

// runRender executes the single-preview pipeline and writes the outputs.
func (c *CLI) runRender(cmd *cobra.Command, url string, opts *renderOpts) error {
	ctx := cmd.Context()

	pipeOpts, err := c.buildOptions(ctx, url, opts)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spin := newSpinner(ctx, fmt.Sprintf("Rendering %s", url))
	spin.Start()

	prog := newProgress(c.Logger)
	result, err := runner.Execute(ctx, pipeOpts)
	if err != nil {
		spin.StopWithError(fmt.Sprintf("Render failed: %v", err))
		return err
	}
	spin.Stop()
	prog.done(fmt.Sprintf("Rendered %s", url))

	return c.writeResult(result, pipeOpts, opts)
}

// buildOptions converts CLI flags and config into pipeline options,
// loading image inputs from disk or by URL.
func (c *CLI) buildOptions(ctx context.Context, url string, opts *renderOpts) (pipeline.Options, error) {
	pipeOpts := pipeline.Options{
		URL:            url,
		Title:          opts.title,
		Description:    opts.description,
		Keywords:       opts.keywords,
		Tone:           opts.tone,
		BrandColors:    opts.brandColors,
		Width:          opts.width,
		Height:         opts.height,
		Platforms:      opts.platforms,
		Seed:           opts.seed,
		Refresh:        opts.refresh,
		Model:          c.Config.Model,
		Workers:        c.Config.Workers,
		MaxFixAttempts: c.Config.MaxFixAttempts,
		Logger:         c.Logger,
	}
	if len(pipeOpts.Platforms) == 0 {
		pipeOpts.Platforms = c.Config.Platforms
	}

	fetcher := c.newFetcher(opts.noCache)

	if opts.hero != "" {
		img, err := loadImage(ctx, fetcher, opts.hero)
		if err != nil {
			return pipeOpts, fmt.Errorf("load hero image: %w", err)
		}
		pipeOpts.Hero = img
	}
	if opts.logo != "" {
		img, err := loadImage(ctx, fetcher, opts.logo)
		if err != nil {
			return pipeOpts, fmt.Errorf("load logo image: %w", err)
		}
		pipeOpts.Logo = img
	}
	if opts.screenshot != "" {
		data, err := loadBytes(ctx, fetcher, opts.screenshot)
		if err != nil {
			return pipeOpts, fmt.Errorf("load screenshot: %w", err)
		}
		pipeOpts.Screenshot = data
	}
	return pipeOpts, nil
}

// newFetcher builds the cached fetcher used for URL image inputs.
func (c *CLI) newFetcher(noCache bool) *httputil.Fetcher {
	if noCache {
		return httputil.NewFetcher(nil)
	}
	dir, err := cacheDir()
	if err != nil {
		return httputil.NewFetcher(nil)
	}
	fc, err := cachepkg.NewFileCache(dir)
	if err != nil {
		return httputil.NewFetcher(nil)
	}
	return httputil.NewFetcher(fc)
}

// isURL reports whether the image input is remote.
func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// loadBytes reads an input from disk or, for http(s) references, through
// the cached fetcher.
func loadBytes(ctx context.Context, f *httputil.Fetcher, ref string) ([]byte, error) {
	if isURL(ref) {
		return f.Get(ctx, ref)
	}
	return os.ReadFile(ref)
}

// loadImage loads and decodes an image input from disk or URL.
func loadImage(ctx context.Context, f *httputil.Fetcher, ref string) (image.Image, error) {
	if isURL(ref) {
		data, err := f.Get(ctx, ref)
		if err != nil {
			return nil, err
		}
		return imaging.Decode(bytes.NewReader(data))
	}
	return imaging.Open(ref)
}

// writeResult writes the winner PNG, per-platform PNGs, and optional
// manifests, then prints a run summary.
func (c *CLI) writeResult(result *pipeline.Result, pipeOpts pipeline.Options, opts *renderOpts) error {
	base := outputBase(opts.output, pipeOpts.URL)
	winner := result.Winner()

	path := base + ".png"
	if err := os.WriteFile(path, result.Artifacts["png"], 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	printSuccess("Generated %s", path)
	if opts.manifest {
		m := export.NewManifest(result.RunID, pipeOpts.URL, winner.Rendered, winner.Report, result.DNA.Degraded)
		if err := export.ExportManifest(m, base+".json"); err != nil {
			return err
		}
		printFile(base + ".json")
	}

	for name, rendered := range result.Platforms {
		platformPath := fmt.Sprintf("%s_%s.png", base, name)
		data, ok := result.Artifacts[name]
		if !ok {
			if err := export.ExportPNG(rendered.Image, platformPath); err != nil {
				return err
			}
		} else if err := os.WriteFile(platformPath, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", platformPath, err)
		}
		printFile(platformPath)
	}

	printRunStats(len(result.Variants), len(result.Platforms), result.CacheInfo.DNAHit)
	if !winner.Report.Passed {
		printWarning("Quality gate not fully satisfied (score %.2f)", winner.Report.Overall)
	}
	if result.DNA.Degraded {
		printDetail("Extraction degraded, defaults were used")
	}
	return nil
}

// outputBase derives the base output path from the output flag and URL.
// A format extension on the output flag is stripped; with no flag the
// base is derived from the URL host and path.
func outputBase(output, url string) string {
	if output != "" {
		if ext := filepath.Ext(output); ext == ".png" || ext == ".json" {
			return strings.TrimSuffix(output, ext)
		}
		return output
	}
	name := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	name = strings.Trim(name, "/")
	for _, r := range []string{"/", ":", "?", "&", "="} {
		name = strings.ReplaceAll(name, r, "_")
	}
	if name == "" {
		name = "preview"
	}
	return name
}
