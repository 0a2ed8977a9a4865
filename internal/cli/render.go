package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/repairgraph/pkg/graph"
	"github.com/matzehuels/repairgraph/pkg/render"
	"github.com/matzehuels/repairgraph/pkg/render/nodelink"
)

// renderCommand creates the render command drawing a laid-out graph.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output     string
		formatsStr string
		noCache    bool
	)
	opts := nodelink.Options{Scale: nodelink.DefaultScale}

	cmd := &cobra.Command{
		Use:   "render [graph.json] [layout.json]",
		Short: "Render a laid-out variant graph to SVG, PNG, PDF or DOT",
		Long: `Render a laid-out variant graph to SVG, PNG, PDF or DOT.

Nodes are drawn at the positions of the layout; nothing is re-laid out.
Node size follows the variant's frequency and color its edit distance from
the reference. With --experiment, sizes use that experiment's frequencies
instead of the largest frequency across experiments.

PNG and PDF output require rsvg-convert. Results are cached locally.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := parseFormats(formatsStr)
			if err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], args[1], formats, opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, pdf, dot (comma-separated)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", false, "label nodes with edits and frequencies")
	cmd.Flags().StringVar(&opts.Experiment, "experiment", "", "size nodes by this experiment's frequencies")
	cmd.Flags().Float64Var(&opts.Scale, "scale", opts.Scale, "points per layout unit")

	return cmd
}

// runRender loads the graph and layout and writes one file per format.
func (c *CLI) runRender(ctx context.Context, graphPath, layoutPath string, formats []string, opts nodelink.Options, output string, noCache bool) error {
	g, err := graph.ReadGraphFile(graphPath)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", graphPath, err)
	}
	l, err := graph.ReadLayoutFile(layoutPath)
	if err != nil {
		return fmt.Errorf("load layout %s: %w", layoutPath, err)
	}

	runner, err := c.newRunner(nil, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", strings.Join(formats, ", ")))
	spinner.Start()

	artifacts, cacheHit, err := runner.RenderWithCacheInfo(ctx, g, l, formats, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return fmt.Errorf("render: %w", err)
	}
	spinner.Stop()

	base := basePath(output, graphPath)
	var written []string
	for _, format := range formats {
		path := base + "." + format
		if len(formats) == 1 && output != "" {
			path = output
		}
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write output %s: %w", path, err)
		}
		written = append(written, path)
	}

	printSuccess("Render complete")
	for _, path := range written {
		printFile(path)
	}
	printStats(g.NodeCount(), g.EdgeCount(), cacheHit)
	return nil
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the known extensions from input.
// If output has a format extension (.svg, .pdf, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return filepath.Join(filepath.Dir(input), trimExt(input))
	}
	ext := filepath.Ext(output)
	if render.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
