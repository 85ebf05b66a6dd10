package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/previewforge/previewforge/pkg/export"
	"github.com/previewforge/previewforge/pkg/pipeline"
	"github.com/previewforge/previewforge/pkg/variant"
)

// variantsCommand creates the variants command for generating and
// ranking multiple candidate cards.
func (c *CLI) variantsCommand() *cobra.Command {
	var (
		opts  renderOpts
		count int
		pick  bool
	)

	cmd := &cobra.Command{
		Use:   "variants <url>",
		Short: "Generate and rank multiple candidate cards",
		Long: `Generate several candidate cards from one design profile, ranked by
quality and visual diversity.

By default every candidate is written to disk. With --pick an
interactive list lets you choose a single winner instead.

Examples:
  previewforge variants https://example.com --title "Example" --count 6
  previewforge variants https://example.com --title "Example" --pick`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runVariants(cmd, args[0], &opts, count, pick)
		},
	}

	addContentFlags(cmd, &opts)
	cmd.Flags().IntVarP(&count, "count", "k", pipeline.DefaultVariantCount, "number of variants to generate")
	cmd.Flags().BoolVar(&pick, "pick", false, "choose a variant interactively")

	return cmd
}

// runVariants executes the fan-out pipeline and writes either all
// candidates or the interactively chosen one.
func (c *CLI) runVariants(cmd *cobra.Command, url string, opts *renderOpts, count int, pick bool) error {
	ctx := cmd.Context()

	pipeOpts, err := c.buildOptions(ctx, url, opts)
	if err != nil {
		return err
	}
	pipeOpts.VariantCount = count
	if c.Config.Variants > 0 && !cmd.Flags().Changed("count") {
		pipeOpts.VariantCount = c.Config.Variants
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spin := newSpinner(ctx, fmt.Sprintf("Generating %d variants for %s", pipeOpts.VariantCount, url))
	spin.Start()

	prog := newProgress(c.Logger)
	result, err := runner.Execute(ctx, pipeOpts)
	if err != nil {
		spin.StopWithError(fmt.Sprintf("Generation failed: %v", err))
		return err
	}
	spin.Stop()
	prog.done(fmt.Sprintf("Generated %d variants", len(result.Variants)))

	if pick {
		return c.pickVariant(result, pipeOpts, opts)
	}
	return c.writeVariants(result, pipeOpts, opts)
}

// writeVariants writes every ranked candidate plus optional manifests.
func (c *CLI) writeVariants(result *pipeline.Result, pipeOpts pipeline.Options, opts *renderOpts) error {
	base := outputBase(opts.output, pipeOpts.URL)

	for i, v := range result.Variants {
		path := fmt.Sprintf("%s_%02d.png", base, i+1)
		if err := export.ExportPNG(v.Rendered.Image, path); err != nil {
			return err
		}
		printFile(fmt.Sprintf("%s  %s  %.2f", path, v.Key, v.Score))
		if opts.manifest {
			m := export.NewManifest(result.RunID, pipeOpts.URL, v.Rendered, v.Report, result.DNA.Degraded)
			if err := export.ExportManifest(m, fmt.Sprintf("%s_%02d.json", base, i+1)); err != nil {
				return err
			}
		}
	}

	printSuccess("Wrote %d variants (winner: %s)", len(result.Variants), result.Winner().Key)
	return nil
}

// pickVariant runs the interactive picker and writes the selection.
func (c *CLI) pickVariant(result *pipeline.Result, pipeOpts pipeline.Options, opts *renderOpts) error {
	model := NewVariantListModel(result.Variants)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return fmt.Errorf("variant picker: %w", err)
	}

	m, ok := final.(VariantListModel)
	if !ok || m.Selected == nil {
		printInfo("No variant selected")
		return nil
	}
	chosen := *m.Selected

	base := outputBase(opts.output, pipeOpts.URL)
	path := base + ".png"
	if err := export.ExportPNG(chosen.Rendered.Image, path); err != nil {
		return err
	}
	printSuccess("Generated %s (%s)", path, chosen.Key)

	if opts.manifest {
		manifest := export.NewManifest(result.RunID, pipeOpts.URL, chosen.Rendered, chosen.Report, result.DNA.Degraded)
		if err := export.ExportManifest(manifest, base+".json"); err != nil {
			return err
		}
		printFile(base + ".json")
	}
	return nil
}

// variantLabel formats one candidate for list display.
func variantLabel(v variant.Variant) string {
	status := iconSuccess
	if !v.Report.Passed {
		status = iconWarning
	}
	return fmt.Sprintf("%s %-34s %.2f", status, v.Key, v.Score)
}
