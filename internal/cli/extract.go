package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/io"
	"github.com/matzehuels/repairgraph/pkg/layout"
	"github.com/matzehuels/repairgraph/pkg/pipeline"
	"github.com/matzehuels/repairgraph/pkg/variant"
)

// windowFlags holds the window settings shared by extract and combine.
type windowFlags struct {
	dsbPos            int
	width             int
	normalize         bool
	reverseComplement bool
	totals            []int
}

func (f *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.dsbPos, "dsb-pos", 0, "break position in reference coordinates (required)")
	cmd.Flags().IntVar(&f.width, "width", 0, "window width, positive and even (required)")
	cmd.Flags().BoolVar(&f.normalize, "normalize", false, "fold substitutions into matches")
	cmd.Flags().BoolVar(&f.reverseComplement, "reverse-complement", false, "mark the experiment as reverse-complement")
	cmd.Flags().IntSliceVar(&f.totals, "total-reads", nil, "frequency denominators per library (default: reads in each file)")
	_ = cmd.MarkFlagRequired("dsb-pos")
	_ = cmd.MarkFlagRequired("width")
}

// experiment builds a validated single-experiment configuration.
func (f *windowFlags) experiment(name string, ids, paths []string) (pipeline.ExperimentConfig, error) {
	if len(f.totals) > 0 && len(f.totals) != len(paths) {
		return pipeline.ExperimentConfig{}, errors.New(errors.ErrCodeInvalidInput,
			"--total-reads has %d values for %d libraries", len(f.totals), len(paths))
	}
	e := pipeline.ExperimentConfig{
		Name:              name,
		DSBPos:            f.dsbPos,
		WindowWidth:       f.width,
		ReverseComplement: f.reverseComplement,
		Substitutions:     variant.WithSubstitutions,
	}
	if f.normalize {
		e.Substitutions = variant.WithoutSubstitutions
	}
	for i, path := range paths {
		lib := pipeline.LibraryConfig{ID: ids[i], Path: path}
		if len(f.totals) > 0 {
			lib.TotalReads = f.totals[i]
		}
		e.Libraries = append(e.Libraries, lib)
	}

	cfg := &pipeline.Config{
		Store:       pipeline.StoreConfig{Kind: layout.StoreMemory},
		Experiments: []pipeline.ExperimentConfig{e},
	}
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return pipeline.ExperimentConfig{}, err
	}
	return cfg.Experiments[0], nil
}

// extractCommand creates the extract command for a single library.
func (c *CLI) extractCommand() *cobra.Command {
	var (
		output  string
		library string
		noCache bool
		flags   windowFlags
	)

	cmd := &cobra.Command{
		Use:   "extract [reads.tsv]",
		Short: "Count the repair variants of one sequenced library",
		Long: `Count the repair variants of one sequenced library.

The input is a TSV of aligned reads with the columns ref_align, read_align
and strand (gzip compressed if the name ends in .gz). Each read is cut to
the window around the break; distinct windows are counted and written as a
variant table.

Use 'combine' to merge several repeat libraries into one experiment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			if library == "" {
				library = trimExt(input)
			}
			e, err := flags.experiment(library, []string{library}, []string{input})
			if err != nil {
				return err
			}
			if output == "" {
				output = filepath.Join(filepath.Dir(input), library+".variants.tsv")
			}
			return c.runExtract(cmd.Context(), e, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.variants.tsv)")
	cmd.Flags().StringVar(&library, "library", "", "library ID (default: input file name)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	flags.register(cmd)

	return cmd
}

// combineCommand creates the combine command merging repeat libraries.
func (c *CLI) combineCommand() *cobra.Command {
	var (
		output  string
		name    string
		noCache bool
		flags   windowFlags
	)

	cmd := &cobra.Command{
		Use:   "combine [reads.tsv]...",
		Short: "Combine repeat libraries into one experiment's variant table",
		Long: `Combine repeat libraries into one experiment's variant table.

Each library is extracted as with 'extract'. A variant's experiment
frequency is the mean of its per-library frequencies, counting 0 in
libraries where it was not observed. Library IDs are taken from the file
names and must be distinct.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]string, len(args))
			for i, path := range args {
				ids[i] = trimExt(path)
			}
			e, err := flags.experiment(name, ids, args)
			if err != nil {
				return err
			}
			if output == "" {
				output = name + ".variants.tsv"
			}
			return c.runExtract(cmd.Context(), e, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <name>.variants.tsv)")
	cmd.Flags().StringVar(&name, "name", "", "experiment name (required)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	_ = cmd.MarkFlagRequired("name")
	flags.register(cmd)

	return cmd
}

// runExtract builds one experiment and writes its variant table.
func (c *CLI) runExtract(ctx context.Context, e pipeline.ExperimentConfig, output string, noCache bool) error {
	runner, err := c.newRunner(nil, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	p := newProgress(loggerFromContext(ctx))
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Extracting %d libraries...", len(e.Libraries)))
	spinner.Start()

	exp, stats, err := runner.BuildExperiment(ctx, e)
	if err != nil {
		spinner.StopWithError("Extraction failed")
		return err
	}
	spinner.Stop()
	p.done(fmt.Sprintf("Extracted %d libraries", len(stats)))

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err := io.ExportVariants(exp, output); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Extracted %d variants", len(exp.Variants))
	printFile(output)
	for _, s := range stats {
		printLibraryStats(s)
	}
	printNewline()
	printNextStep("Graph", appName+" graph "+output)

	return nil
}

// printLibraryStats prints the counts of one extracted library on a single line.
func printLibraryStats(s pipeline.LibraryStats) {
	status := iconFresh
	statusStyle := styleComputed
	if s.CacheHit {
		status = iconCached
		statusStyle = styleCached
	}
	fmt.Println("  " + StyleValue.Render(s.Library) +
		StyleDim.Render(fmt.Sprintf(" · %d reads · %d dropped · %d variants · ", s.Reads, s.Dropped, s.Variants)) +
		statusStyle.Render(status))
}
