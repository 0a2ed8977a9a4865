package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/repairgraph/pkg/graph"
	"github.com/matzehuels/repairgraph/pkg/io"
	"github.com/matzehuels/repairgraph/pkg/pipeline"
	"github.com/matzehuels/repairgraph/pkg/variant"
)

// graphCommand creates the graph command linking variant tables.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		output string
		group  string
	)

	cmd := &cobra.Command{
		Use:   "graph [variants.tsv]...",
		Short: "Build the variant graph of one or more variant tables",
		Long: `Build the variant graph of one or more variant tables.

The tables (produced by 'extract', 'combine' or 'run') become one layout
group: their variants are unioned, the reference is always a node, and two
variants are linked when they differ by exactly one edit. Variants with no
such neighbor are joined to their closest neighbor on a path to the
reference.

All tables must share the same reference window.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if group == "" {
				group = trimExt(args[0])
			}
			if output == "" {
				output = filepath.Join(filepath.Dir(args[0]), group+".graph.json")
			}
			return c.runGraph(cmd.Context(), args, group, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <group>.graph.json)")
	cmd.Flags().StringVar(&group, "group", "", "layout group name (default: first input name)")

	return cmd
}

// runGraph imports the tables, builds the graph and writes it as JSON.
func (c *CLI) runGraph(ctx context.Context, inputs []string, group, output string) error {
	p := newProgress(loggerFromContext(ctx))
	exps := make([]*variant.Experiment, len(inputs))
	for i, path := range inputs {
		exp, err := io.ImportVariants(path)
		if err != nil {
			return fmt.Errorf("load variants %s: %w", path, err)
		}
		exps[i] = exp
	}

	runner := pipeline.NewRunner(nil, nil, nil, c.Logger)
	g, err := runner.BuildGraph(ctx, group, exps)
	if err != nil {
		return err
	}
	p.done(fmt.Sprintf("Linked %d variant tables", len(exps)))

	if err := graph.WriteGraphFile(g, output); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Graph complete")
	printFile(output)
	printStats(g.NodeCount(), g.EdgeCount(), false)
	printNewline()
	printNextStep("Layout", appName+" layout "+output)

	return nil
}
