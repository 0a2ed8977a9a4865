package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/pipeline"
)

// runCommand creates the run command executing a full configuration.
func (c *CLI) runCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "run [config.toml]",
		Short: "Run every experiment and layout group of a configuration",
		Long: `Run every experiment and layout group of a configuration.

Each experiment's libraries are windowed around the break and counted, the
repeats are combined into a variant table and every layout group gets a
variant graph, a persisted layout and rendered output:

  <output_dir>/variants/<experiment>.variants.tsv
  <output_dir>/groups/<group>.graph.json
  <output_dir>/groups/<group>.layout.json
  <output_dir>/groups/<group>.<format>

A failing experiment only fails its own layout group. Extracted tables and
rendered artifacts are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConfig(cmd.Context(), args[0], noCache)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runConfig executes the pipeline for a configuration file and prints a summary.
func (c *CLI) runConfig(ctx context.Context, path string, noCache bool) error {
	cfg, runner, err := c.newConfigRunner(ctx, path, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Processing %d experiments...", len(cfg.Experiments)))
	spinner.Start()
	restore := followStages(spinner)
	defer restore()

	result, err := runner.Execute(ctx, cfg)
	if err != nil {
		spinner.StopWithError("Run failed")
		return err
	}
	spinner.Stop()

	printRunSummary(result)

	if n := result.Failed(); n > 0 {
		for _, line := range failureLines(result) {
			printError("%s", line)
		}
		return fmt.Errorf("%d unit(s) failed", n)
	}

	printSuccess("Run complete")
	for _, g := range result.Groups {
		for _, out := range g.Outputs {
			printFile(out)
		}
	}
	if len(result.Experiments) > 0 {
		printNewline()
		printNextStep("Browse", appName+" browse "+result.Experiments[0].Output)
	}
	return nil
}

// printRunSummary prints experiment and group tables for a run.
func printRunSummary(result *pipeline.Result) {
	fmt.Println(renderTable(
		[]string{"", "Experiment", "Libraries", "Reads", "Dropped", "Variants"},
		experimentRows(result),
	))
	if len(result.Groups) > 0 {
		fmt.Println(renderTable(
			[]string{"", "Group", "Experiments", "Nodes", "Edges", "Converged"},
			groupRows(result),
		))
	}
	printDetail("extract %s · graph %s · layout %s · render %s",
		result.Stats.ExtractTime.Round(1e6), result.Stats.GraphTime.Round(1e6),
		result.Stats.LayoutTime.Round(1e6), result.Stats.RenderTime.Round(1e6))
}

func experimentRows(result *pipeline.Result) [][]string {
	rows := make([][]string, 0, len(result.Experiments))
	for _, e := range result.Experiments {
		reads, dropped := 0, 0
		for _, l := range e.Libraries {
			reads += l.Reads
			dropped += l.Dropped
		}
		status, variants := iconSuccess, "-"
		if e.Err != nil {
			status = iconError
		} else {
			variants = strconv.Itoa(len(e.Experiment.Variants))
		}
		rows = append(rows, []string{
			status, e.Name, strconv.Itoa(len(e.Libraries)),
			strconv.Itoa(reads), strconv.Itoa(dropped), variants,
		})
	}
	return rows
}

func groupRows(result *pipeline.Result) [][]string {
	rows := make([][]string, 0, len(result.Groups))
	for _, g := range result.Groups {
		row := []string{iconSuccess, g.Group, strconv.Itoa(len(g.Experiments)), "-", "-", "-"}
		if g.Err != nil {
			row[0] = iconError
		}
		if g.Graph != nil {
			row[3] = strconv.Itoa(g.Graph.NodeCount())
			row[4] = strconv.Itoa(g.Graph.EdgeCount())
		}
		if g.Layout.Version != "" {
			row[5] = strconv.FormatBool(g.Layout.Converged)
		}
		rows = append(rows, row)
	}
	return rows
}

// failureLines describes each failed unit with its user-facing message.
func failureLines(result *pipeline.Result) []string {
	var lines []string
	for _, e := range result.Experiments {
		if e.Err != nil {
			lines = append(lines, fmt.Sprintf("experiment %s: %s", e.Name, errors.UserMessage(e.Err)))
		}
	}
	for _, g := range result.Groups {
		if g.Err != nil {
			lines = append(lines, fmt.Sprintf("group %s: %s", g.Group, errors.UserMessage(g.Err)))
		}
	}
	return lines
}
