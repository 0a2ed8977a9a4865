package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/repairgraph/pkg/graph"
	"github.com/matzehuels/repairgraph/pkg/layout"
)

// storeFlags selects the layout store from the command line.
type storeFlags struct {
	kind string
	url  string
	dir  string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kind, "store", layout.StoreFile, "layout store: memory, file (default), redis, mongo")
	cmd.Flags().StringVar(&f.url, "store-url", "", "redis or mongo connection URL")
	cmd.Flags().StringVar(&f.dir, "store-dir", "", "file store directory (default: layouts/ next to the input)")
}

func (f *storeFlags) open(ctx context.Context, input string) (layout.Store, error) {
	dir := f.dir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(input), "layouts")
	}
	return layout.Open(ctx, f.kind, f.url, dir)
}

// layoutCommand creates the layout command for computing group layouts.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output string
		group  string
		flip   bool
		store  storeFlags
	)
	opts := layout.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "layout [graph.json]",
		Short: "Compute the 2D layout of a variant graph",
		Long: `Compute the 2D layout of a variant graph.

The layout command takes a graph.json file (produced by 'graph' or 'run')
and places its nodes with a force simulation, the reference pinned at the
origin. The layout is persisted per group: as long as the graph and the
options do not change, repeated calls return the stored positions. When new
variants appear, existing nodes start from their stored positions.

With --flip the x axis is mirrored for reverse-complement experiments.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if group == "" {
				group = trimExt(args[0])
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			return c.runLayout(cmd.Context(), args[0], group, flip, opts, store, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().StringVar(&group, "group", "", "layout group name (default: input name)")
	cmd.Flags().BoolVar(&flip, "flip", false, "mirror the x axis (reverse-complement experiments)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", opts.Seed, "random seed for initial positions")
	cmd.Flags().IntVar(&opts.MaxIterations, "max-iterations", opts.MaxIterations, "force simulation iteration bound")
	cmd.Flags().Float64Var(&opts.Threshold, "threshold", opts.Threshold, "convergence threshold on the largest displacement")
	store.register(cmd)

	return cmd
}

// runLayout loads the graph, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input, group string, flip bool, opts layout.Options, sf storeFlags, output string) error {
	g, err := graph.ReadGraphFile(input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	store, err := sf.open(ctx, input)
	if err != nil {
		return fmt.Errorf("open layout store: %w", err)
	}
	defer store.Close()
	engine := layout.NewEngine(store, opts, c.Logger)

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Computing layout for %s...", group))
	spinner.Start()

	l, err := engine.Compute(ctx, group, g, []bool{flip})
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		outputPath = filepath.Join(filepath.Dir(input), trimExt(input)+".layout.json")
	}

	if err := graph.WriteLayoutFile(l, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	if l.Converged {
		printSuccess("Layout complete")
	} else {
		printWarning("Layout did not converge after %d iterations", l.Iterations)
	}
	printFile(outputPath)
	printStats(g.NodeCount(), g.EdgeCount(), false)
	printDetail("%s", layout.Describe(l))
	printNewline()
	printNextStep("Render", appName+" render "+input+" "+outputPath)

	return nil
}
